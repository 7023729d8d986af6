package notifier

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"listingbot/internal/listing"
	"listingbot/internal/report"
	kit "listingbot/internal/transport"
	"listingbot/internal/transport/telegram/botapi"
	logx "listingbot/pkg/logx"
)

type fakeSender struct {
	mu    sync.Mutex
	texts []string
	opts  []kit.SendOptions
	// fail decides per call (1-based) whether to return an error.
	fail func(call int, text string) error
}

func (f *fakeSender) SendText(_ context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) (kit.MessageRef, error) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	f.opts = append(f.opts, *opt)
	call := len(f.texts)
	f.mu.Unlock()
	if f.fail != nil {
		if err := f.fail(call, text); err != nil {
			return kit.MessageRef{}, err
		}
	}
	return kit.MessageRef{ChatID: to.ChatID, MessageID: call}, nil
}

type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
	hook  func(n int) error
}

func (s *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	s.waits = append(s.waits, d)
	n := len(s.waits)
	s.mu.Unlock()
	if s.hook != nil {
		if err := s.hook(n); err != nil {
			return err
		}
	}
	return ctx.Err()
}

type countingMetrics struct {
	sent, failed, listings atomic.Int64
	runs                   atomic.Int64
	lastErr                atomic.Value
}

func (m *countingMetrics) MessageSent(ok bool) {
	if ok {
		m.sent.Add(1)
	} else {
		m.failed.Add(1)
	}
}
func (m *countingMetrics) ListingsGenerated(n int) { m.listings.Add(int64(n)) }
func (m *countingMetrics) RunFinished(_ Report, err error) {
	m.runs.Add(1)
	if err != nil {
		m.lastErr.Store(err.Error())
	}
}

var fixedNow = time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)

func newTestNotifier(t *testing.T, snd kit.Sender, seed uint64, sl *sleepRecorder, m Metrics) *Notifier {
	t.Helper()
	gen, err := listing.NewGenerator(listing.DefaultPools(), rand.NewPCG(seed, seed^0x9e3779b9))
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	if sl == nil {
		sl = &sleepRecorder{}
	}
	n, err := New(snd, gen, Options{
		Chat:    kit.ChatTarget{ChatID: "-1001"},
		Regions: listing.DefaultRegions(),
		Labels:  report.DefaultLabels(),
		Pacing:  DefaultPacing(),
		Metrics: m,
		Now:     func() time.Time { return fixedNow },
		Sleep:   sl.Sleep,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return n
}

func TestSendDailyUpdateSequence(t *testing.T) {
	t.Parallel()

	regions := listing.DefaultRegions()
	sawEmpty, sawBlock := false, false

	for seed := uint64(1); seed <= 40; seed++ {
		snd := &fakeSender{}
		sl := &sleepRecorder{}
		n := newTestNotifier(t, snd, seed, sl, nil)

		rep, err := n.SendDailyUpdate(context.Background())
		if err != nil {
			t.Fatalf("seed %d: SendDailyUpdate: %v", seed, err)
		}

		if len(snd.texts) != len(regions)+2 {
			t.Fatalf("seed %d: sent %d messages, want %d", seed, len(snd.texts), len(regions)+2)
		}
		if !strings.Contains(snd.texts[0], "경기도 전세 매물 알림") {
			t.Fatalf("seed %d: first message is not the header: %q", seed, snd.texts[0])
		}
		for _, o := range snd.opts {
			if o.ParseMode != kit.ParseModeHTML {
				t.Fatalf("seed %d: parse mode = %q", seed, o.ParseMode)
			}
		}

		sum := 0
		wantWaits := []time.Duration{2 * time.Second}
		for i, res := range rep.Regions {
			msg := snd.texts[i+1]
			if res.Region != regions[i].Name || !strings.Contains(msg, regions[i].Name) {
				t.Fatalf("seed %d: region %d out of order: %q", seed, i, msg)
			}
			if res.Count < 0 || res.Count > 6 {
				t.Fatalf("seed %d: count %d out of range", seed, res.Count)
			}
			if res.Count == 0 {
				sawEmpty = true
				if !strings.Contains(msg, "신규 매물 없음") {
					t.Fatalf("seed %d: empty region without notice: %q", seed, msg)
				}
				wantWaits = append(wantWaits, time.Second)
			} else {
				sawBlock = true
				if got := strings.Count(msg, "📱 출처:"); got != res.Count {
					t.Fatalf("seed %d: block renders %d listings, want %d", seed, got, res.Count)
				}
				wantWaits = append(wantWaits, 2*time.Second)
			}
			sum += res.Count
		}
		if rep.Total != sum {
			t.Fatalf("seed %d: total %d != sum %d", seed, rep.Total, sum)
		}
		summary := snd.texts[len(snd.texts)-1]
		if !strings.Contains(summary, "<b>총 "+strconv.Itoa(sum)+"건의 신규 매물</b>") {
			t.Fatalf("seed %d: summary does not carry total %d: %q", seed, sum, summary)
		}
		if rep.Sent != len(regions)+2 || rep.Failed != 0 {
			t.Fatalf("seed %d: sent=%d failed=%d", seed, rep.Sent, rep.Failed)
		}
		if !slices.Equal(sl.waits, wantWaits) {
			t.Fatalf("seed %d: pauses %v, want %v", seed, sl.waits, wantWaits)
		}
		if rep.RunID == "" {
			t.Fatalf("seed %d: missing run id", seed)
		}
	}

	if !sawEmpty || !sawBlock {
		t.Fatalf("seeds did not cover both paths (empty=%v block=%v)", sawEmpty, sawBlock)
	}
}

func TestFailedSendDoesNotHaltSequence(t *testing.T) {
	t.Parallel()

	snd := &fakeSender{fail: func(call int, _ string) error {
		if call == 2 {
			return &botapi.APIError{Method: "sendMessage", StatusCode: 400, ErrorCode: 400, Description: "Bad Request"}
		}
		return nil
	}}
	m := &countingMetrics{}
	n := newTestNotifier(t, snd, 3, nil, m)

	rep, err := n.SendDailyUpdate(context.Background())
	if err != nil {
		t.Fatalf("SendDailyUpdate: %v", err)
	}
	want := len(listing.DefaultRegions()) + 2
	if len(snd.texts) != want {
		t.Fatalf("attempted %d sends, want %d", len(snd.texts), want)
	}
	if rep.Failed != 1 || rep.Sent != want-1 {
		t.Fatalf("sent=%d failed=%d", rep.Sent, rep.Failed)
	}
	if rep.Regions[0].Delivered {
		t.Fatal("first region should be marked undelivered")
	}
	if m.failed.Load() != 1 || m.sent.Load() != int64(want-1) || m.runs.Load() != 1 {
		t.Fatalf("metrics: sent=%d failed=%d runs=%d", m.sent.Load(), m.failed.Load(), m.runs.Load())
	}
	if m.listings.Load() != int64(rep.Total) {
		t.Fatalf("metrics listings %d != total %d", m.listings.Load(), rep.Total)
	}
}

func TestCancelDuringPauseReportsFailure(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	snd := &fakeSender{}
	sl := &sleepRecorder{hook: func(n int) error {
		if n == 3 {
			cancel()
		}
		return nil
	}}
	m := &countingMetrics{}
	n := newTestNotifier(t, snd, 5, sl, m)

	rep, err := n.SendDailyUpdate(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	// header + 2 regions, then the error report
	if len(snd.texts) != 4 {
		t.Fatalf("sent %d messages, want 4: %q", len(snd.texts), snd.texts)
	}
	last := snd.texts[len(snd.texts)-1]
	if !strings.HasPrefix(last, "❌ <b>GitHub Actions 오류</b>") || !strings.Contains(last, "context canceled") {
		t.Fatalf("last message is not the error report: %q", last)
	}
	if rep.Error == "" || len(rep.Regions) != 2 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if v, _ := m.lastErr.Load().(string); v == "" {
		t.Fatal("metrics did not observe the failed run")
	}
}

func TestPanicIsRecoveredAndReported(t *testing.T) {
	t.Parallel()

	snd := &fakeSender{fail: func(call int, _ string) error {
		if call == 3 {
			panic("sender exploded")
		}
		return nil
	}}
	n := newTestNotifier(t, snd, 9, nil, nil)

	_, err := n.SendDailyUpdate(context.Background())
	if err == nil || !strings.Contains(err.Error(), "sender exploded") {
		t.Fatalf("err = %v, want recovered panic", err)
	}
	last := snd.texts[len(snd.texts)-1]
	if !strings.Contains(last, "오류") || !strings.Contains(last, "sender exploded") {
		t.Fatalf("error report not sent: %q", last)
	}
}

func TestSendMessageAgainstBotAPI(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1}}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":false,"error_code":429,"description":"Too Many Requests"}`))
	}))
	defer srv.Close()

	client, err := botapi.New(botapi.Config{Token: "t", BaseURL: srv.URL}, logx.Nop())
	if err != nil {
		t.Fatalf("botapi.New: %v", err)
	}
	n := newTestNotifier(t, client, 1, nil, nil)

	if !n.SendMessage(context.Background(), "first") {
		t.Fatal("expected first send to succeed")
	}
	if n.SendMessage(context.Background(), "second") {
		t.Fatal("expected non-ok response to report failure")
	}
}

func TestGenerateSampleListingsBounds(t *testing.T) {
	t.Parallel()
	n := newTestNotifier(t, &fakeSender{}, 11, nil, nil)
	for range 100 {
		ls := n.GenerateSampleListings("용인시")
		if len(ls) > 6 {
			t.Fatalf("generated %d listings", len(ls))
		}
		for _, l := range ls {
			if !l.Complete() || !strings.HasPrefix(l.Location, "용인시 ") {
				t.Fatalf("bad listing: %+v", l)
			}
		}
	}
}

func TestNewValidatesArguments(t *testing.T) {
	t.Parallel()
	gen, _ := listing.NewGenerator(listing.DefaultPools(), nil)
	if _, err := New(nil, gen, Options{Chat: kit.ChatTarget{ChatID: "1"}}, logx.Nop()); err == nil {
		t.Fatal("expected error for nil sender")
	}
	if _, err := New(&fakeSender{}, nil, Options{Chat: kit.ChatTarget{ChatID: "1"}}, logx.Nop()); err == nil {
		t.Fatal("expected error for nil generator")
	}
	if _, err := New(&fakeSender{}, gen, Options{}, logx.Nop()); err == nil {
		t.Fatal("expected error for empty chat id")
	}
}

func TestSleepCtx(t *testing.T) {
	t.Parallel()
	if err := sleepCtx(context.Background(), 0); err != nil {
		t.Fatalf("zero sleep: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sleepCtx(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled sleep = %v", err)
	}
}
