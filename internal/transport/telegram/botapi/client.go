// Package botapi is a minimal Telegram Bot API client that posts
// form-encoded sendMessage requests.
package botapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	kit "listingbot/internal/transport"
	logx "listingbot/pkg/logx"
)

const DefaultBaseURL = "https://api.telegram.org"

type Config struct {
	Token   string
	BaseURL string        // default: DefaultBaseURL
	Timeout time.Duration // default: 10s
}

// APIError is returned when Telegram answers with ok=false (or a non-2xx
// status without a decodable body).
type APIError struct {
	Method      string
	StatusCode  int
	ErrorCode   int
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("telegram %s failed: %s (code=%d http=%d)", e.Method, e.Description, e.ErrorCode, e.StatusCode)
	}
	return fmt.Sprintf("telegram %s failed: http=%d", e.Method, e.StatusCode)
}

type Client struct {
	cfg  Config
	log  logx.Logger
	http *http.Client
}

func New(cfg Config, log logx.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Client{cfg: cfg, log: log, http: &http.Client{Timeout: cfg.Timeout}}, nil
}

func (c *Client) endpoint(method string) string {
	return c.cfg.BaseURL + "/bot" + strings.TrimSpace(c.cfg.Token) + "/" + method
}

type response struct {
	OK     bool `json:"ok"`
	Result struct {
		MessageID int `json:"message_id"`
	} `json:"result"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// SendText posts a sendMessage request. It performs exactly one attempt.
func (c *Client) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if opt == nil {
		opt = &kit.SendOptions{}
	}

	form := url.Values{}
	form.Set("chat_id", to.ChatID)
	form.Set("text", text)
	if opt.ParseMode != "" {
		form.Set("parse_mode", opt.ParseMode)
	}
	if opt.DisablePreview {
		form.Set("disable_web_page_preview", "true")
	}
	if to.ThreadID != 0 {
		form.Set("message_thread_id", strconv.Itoa(to.ThreadID))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("sendMessage"), strings.NewReader(form.Encode()))
	if err != nil {
		return kit.MessageRef{}, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		// url.Error carries the full request URL, which embeds the token.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return kit.MessageRef{}, fmt.Errorf("telegram sendMessage: %w", err)
	}
	defer resp.Body.Close()

	var out response
	decErr := json.NewDecoder(resp.Body).Decode(&out)

	if decErr != nil && resp.StatusCode/100 == 2 {
		return kit.MessageRef{}, fmt.Errorf("telegram sendMessage: malformed response: %w", decErr)
	}
	if resp.StatusCode/100 != 2 || !out.OK {
		return kit.MessageRef{}, &APIError{
			Method:      "sendMessage",
			StatusCode:  resp.StatusCode,
			ErrorCode:   out.ErrorCode,
			Description: out.Description,
		}
	}

	c.log.Debug("message delivered", logx.String("chat_id", to.ChatID), logx.Int("message_id", out.Result.MessageID))
	return kit.MessageRef{ChatID: to.ChatID, MessageID: out.Result.MessageID}, nil
}
