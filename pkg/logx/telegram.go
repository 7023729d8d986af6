package logx

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	kit "listingbot/internal/transport"
)

const (
	telegramMessageMax = 3500
	telegramFieldMax   = 600
	telegramStackMax   = 900
	drainTimeout       = 2 * time.Second
)

// telegramState is guarded by Service.mu.
type telegramState struct {
	sender   kit.Sender
	chatID   string
	minLevel zerolog.Level
	limiter  *rate.Limiter
}

// startWorker must be called with s.mu held.
func (s *Service) startWorker() {
	s.workerOnce.Do(func() {
		ctx, cancel := context.WithCancel(context.Background())
		s.stopWorker = cancel
		s.workerDone = make(chan struct{})
		go s.forward(ctx)
	})
}

func (s *Service) forward(ctx context.Context) {
	defer close(s.workerDone)
	for {
		select {
		case msg := <-s.queue:
			s.deliver(ctx, msg)
		case <-ctx.Done():
			dctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
			defer cancel()
			for dctx.Err() == nil {
				select {
				case msg := <-s.queue:
					s.deliver(dctx, msg)
				default:
					return
				}
			}
			return
		}
	}
}

func (s *Service) deliver(ctx context.Context, msg string) {
	s.mu.Lock()
	chatID, sender := s.tg.chatID, s.tg.sender
	s.mu.Unlock()
	if chatID == "" || sender == nil {
		return
	}
	_, _ = sender.SendText(ctx, kit.ChatTarget{ChatID: chatID}, msg, &kit.SendOptions{DisablePreview: true})
}

// telegramSink is a zerolog.LevelWriter that queues records for the
// forwarder. It never blocks and never fails the write.
type telegramSink struct{ svc *Service }

func (t telegramSink) Write(p []byte) (int, error) {
	return t.WriteLevel(zerolog.InfoLevel, p)
}

func (t telegramSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	s := t.svc
	s.mu.Lock()
	st := s.tg
	s.mu.Unlock()

	if st.chatID == "" || st.sender == nil || level < st.minLevel || !st.limiter.Allow() {
		return len(p), nil
	}
	if msg := formatRecord(p); msg != "" {
		select {
		case s.queue <- msg:
		default:
		}
	}
	return len(p), nil
}

// formatRecord turns a JSON log line into "[LEVEL] message" followed by one
// "- key=value" line per field, sorted by key. Non-JSON input passes through.
func formatRecord(p []byte) string {
	raw := strings.TrimSpace(string(p))
	var rec map[string]any
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return truncate(raw, telegramMessageMax)
	}

	var b strings.Builder
	if lvl, _ := rec["level"].(string); lvl != "" {
		b.WriteString("[" + strings.ToUpper(lvl) + "] ")
	}
	msg, _ := rec["message"].(string)
	b.WriteString(msg)

	keys := make([]string, 0, len(rec))
	for k := range rec {
		if k != "time" && k != "level" && k != "message" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		limit := telegramFieldMax
		if k == "stack" {
			limit = telegramStackMax
		}
		fmt.Fprintf(&b, "\n- %s=%s", k, truncate(fmt.Sprint(rec[k]), limit))
	}
	return truncate(b.String(), telegramMessageMax)
}

// truncate cuts s to at most maxBytes bytes on a rune boundary, marking the cut with "…".
func truncate(s string, maxBytes int) string {
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	const mark = "…"
	suffix := mark
	cut := maxBytes - len(mark)
	if cut < 0 {
		cut, suffix = maxBytes, ""
	}
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + suffix
}
