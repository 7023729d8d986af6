package botapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	kit "listingbot/internal/transport"
	logx "listingbot/pkg/logx"
)

func TestSendTextPostsFormFields(t *testing.T) {
	t.Parallel()

	var gotPath, gotCT string
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotCT = r.Header.Get("Content-Type")
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm: %v", err)
		}
		gotForm = map[string]string{
			"chat_id":    r.PostForm.Get("chat_id"),
			"text":       r.PostForm.Get("text"),
			"parse_mode": r.PostForm.Get("parse_mode"),
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":42}}`))
	}))
	defer srv.Close()

	c, err := New(Config{Token: "123:abc", BaseURL: srv.URL}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ref, err := c.SendText(context.Background(), kit.ChatTarget{ChatID: "@rooms"}, "<b>hi</b>", &kit.SendOptions{ParseMode: kit.ParseModeHTML})
	if err != nil {
		t.Fatalf("SendText: %v", err)
	}
	if ref.MessageID != 42 || ref.ChatID != "@rooms" {
		t.Fatalf("unexpected ref: %+v", ref)
	}
	if gotPath != "/bot123:abc/sendMessage" {
		t.Fatalf("path = %q", gotPath)
	}
	if !strings.HasPrefix(gotCT, "application/x-www-form-urlencoded") {
		t.Fatalf("content-type = %q", gotCT)
	}
	if gotForm["chat_id"] != "@rooms" || gotForm["text"] != "<b>hi</b>" || gotForm["parse_mode"] != "HTML" {
		t.Fatalf("unexpected form: %#v", gotForm)
	}
}

func TestSendTextNotOK(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	c, err := New(Config{Token: "t", BaseURL: srv.URL}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.SendText(context.Background(), kit.ChatTarget{ChatID: "1"}, "x", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.ErrorCode != 400 || !strings.Contains(apiErr.Description, "chat not found") {
		t.Fatalf("unexpected api error: %+v", apiErr)
	}
}

func TestSendTextOKFalseWith200(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false}`))
	}))
	defer srv.Close()

	c, _ := New(Config{Token: "t", BaseURL: srv.URL}, logx.Nop())
	if _, err := c.SendText(context.Background(), kit.ChatTarget{ChatID: "1"}, "x", nil); err == nil {
		t.Fatal("expected error for ok=false")
	}
}

func TestSendTextMalformedResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>gateway</html>`))
	}))
	defer srv.Close()

	c, _ := New(Config{Token: "t", BaseURL: srv.URL}, logx.Nop())
	_, err := c.SendText(context.Background(), kit.ChatTarget{ChatID: "1"}, "x", nil)
	if err == nil || !strings.Contains(err.Error(), "malformed") {
		t.Fatalf("expected malformed response error, got %v", err)
	}
}

func TestSendTextTransportErrorHidesToken(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	c, _ := New(Config{Token: "secret-token", BaseURL: base}, logx.Nop())
	_, err := c.SendText(context.Background(), kit.ChatTarget{ChatID: "1"}, "x", nil)
	if err == nil {
		t.Fatal("expected transport error")
	}
	if strings.Contains(err.Error(), "secret-token") {
		t.Fatalf("error leaks token: %v", err)
	}
}

func TestNewRequiresToken(t *testing.T) {
	t.Parallel()
	if _, err := New(Config{Token: "  "}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty token")
	}
}
