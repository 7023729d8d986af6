package schedule

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	logx "listingbot/pkg/logx"
)

func TestParseScheduleVariants(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		raw      string
		kind     SpecKind
		source   string
		duration time.Duration
	}{
		{name: "cron", raw: "0 9 * * *", kind: SpecCron, source: "cron"},
		{name: "descriptor", raw: "@daily", kind: SpecCron, source: "cron"},
		{name: "prefixed cron", raw: "cron:30 8 * * 1-5", kind: SpecCron, source: "cron"},
		{name: "duration", raw: "24h", kind: SpecInterval, source: "duration", duration: 24 * time.Hour},
		{name: "prefixed interval", raw: "interval:45s", kind: SpecInterval, source: "duration", duration: 45 * time.Second},
		{name: "every prefix", raw: "every:12h", kind: SpecInterval, source: "duration", duration: 12 * time.Hour},
		{name: "hhmm", raw: "01:30", kind: SpecInterval, source: "hhmm", duration: 90 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSchedule(tt.raw)
			if err != nil {
				t.Fatalf("ParseSchedule(%q) error: %v", tt.raw, err)
			}
			if got.Kind != tt.kind {
				t.Fatalf("Kind = %v, want %v", got.Kind, tt.kind)
			}
			if got.Source != tt.source {
				t.Fatalf("Source = %s, want %s", got.Source, tt.source)
			}
			if tt.kind == SpecInterval && got.Every != tt.duration {
				t.Fatalf("Every = %v, want %v", got.Every, tt.duration)
			}
		})
	}
}

func TestParseScheduleInvalid(t *testing.T) {
	t.Parallel()
	for _, raw := range []string{"", "not-a-schedule", "0 25 * * *", "interval:-5m", "01:75", "cron:"} {
		if _, err := ParseSchedule(raw); err == nil {
			t.Errorf("ParseSchedule(%q): expected error", raw)
		}
	}
}

func TestNextAfterDailyCron(t *testing.T) {
	t.Parallel()
	loc := time.FixedZone("KST", 9*3600)
	r, err := NewRunner(Config{Spec: "0 9 * * *", Location: loc}, func(context.Context) {}, logx.Nop())
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	from := time.Date(2026, 10, 19, 10, 0, 0, 0, loc)
	want := time.Date(2026, 10, 20, 9, 0, 0, 0, loc)
	if got := r.NextAfter(from); !got.Equal(want) {
		t.Fatalf("NextAfter = %v, want %v", got, want)
	}
}

func TestRunnerFiresJob(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	fired := make(chan struct{}, 1)
	r, err := NewRunner(Config{Spec: "1s"}, func(ctx context.Context) {
		if ctx == nil {
			t.Error("job received nil context")
		}
		runs.Add(1)
		select {
		case fired <- struct{}{}:
		default:
		}
	}, logx.Nop())
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}

	if !r.Next().IsZero() {
		t.Fatal("Next should be zero before Start")
	}
	r.Start(context.Background())
	if r.Next().IsZero() {
		t.Fatal("Next should be set after Start")
	}

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("job did not fire")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	r.Stop(ctx)
	if !r.Next().IsZero() {
		t.Fatal("Next should be zero after Stop")
	}
	if runs.Load() < 1 {
		t.Fatalf("runs = %d", runs.Load())
	}
}

func TestNewRunnerRejectsBadInput(t *testing.T) {
	t.Parallel()
	if _, err := NewRunner(Config{Spec: "0 9 * * *"}, nil, logx.Nop()); err == nil {
		t.Fatal("expected error for nil job")
	}
	if _, err := NewRunner(Config{Spec: "whenever"}, func(context.Context) {}, logx.Nop()); err == nil {
		t.Fatal("expected error for bad spec")
	}
}
