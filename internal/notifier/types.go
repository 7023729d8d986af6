package notifier

import (
	"context"
	"time"

	"listingbot/internal/listing"
	"listingbot/internal/report"
	kit "listingbot/internal/transport"
)

// Pacing holds the fixed pauses between sends. Zero disables a pause.
type Pacing struct {
	AfterHeader time.Duration
	AfterRegion time.Duration
	AfterEmpty  time.Duration
}

// DefaultPacing is 2s after the header and each region block, 1s after an empty notice.
func DefaultPacing() Pacing {
	return Pacing{AfterHeader: 2 * time.Second, AfterRegion: 2 * time.Second, AfterEmpty: time.Second}
}

type Options struct {
	Chat           kit.ChatTarget
	Regions        []listing.Region
	Labels         report.Labels
	Pacing         Pacing
	DisablePreview bool

	// Metrics is optional.
	Metrics Metrics

	// Now and Sleep default to the wall clock; tests replace them.
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Metrics observes a run. Implementations must be cheap and non-blocking.
type Metrics interface {
	MessageSent(ok bool)
	ListingsGenerated(n int)
	RunFinished(rep Report, err error)
}

type RegionResult struct {
	Region    string `json:"region"`
	Count     int    `json:"count"`
	Delivered bool   `json:"delivered"`
}

// Report summarizes one daily update.
type Report struct {
	RunID    string         `json:"run_id"`
	Started  time.Time      `json:"started"`
	Duration time.Duration  `json:"duration"`
	Regions  []RegionResult `json:"regions"`
	Total    int            `json:"total"`
	Sent     int            `json:"sent"`
	Failed   int            `json:"failed"`
	Error    string         `json:"error,omitempty"`
}

type nopMetrics struct{}

func (nopMetrics) MessageSent(bool)          {}
func (nopMetrics) ListingsGenerated(int)     {}
func (nopMetrics) RunFinished(Report, error) {}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
