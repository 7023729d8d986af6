package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"listingbot/internal/listing"
	"listingbot/internal/report"
	kit "listingbot/internal/transport"
	logx "listingbot/pkg/logx"
)

// failureSendTimeout bounds the best-effort error report, which is sent even
// after the run's context was cancelled.
const failureSendTimeout = 10 * time.Second

// Notifier posts the daily update to one chat.
//
// A Notifier owns its generator and is not safe for concurrent use; build one
// per run.
type Notifier struct {
	sender kit.Sender
	gen    *listing.Generator
	opts   Options
	log    logx.Logger
}

func New(sender kit.Sender, gen *listing.Generator, opts Options, log logx.Logger) (*Notifier, error) {
	if sender == nil {
		return nil, errors.New("notifier: sender is nil")
	}
	if gen == nil {
		return nil, errors.New("notifier: generator is nil")
	}
	if opts.Chat.ChatID == "" {
		return nil, errors.New("notifier: chat id is empty")
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Notifier{sender: sender, gen: gen, opts: opts, log: log.With(logx.String("comp", "notifier"))}, nil
}

// SendMessage posts text with HTML parse mode and reports whether the API
// acknowledged it. Failures are logged, never retried.
func (n *Notifier) SendMessage(ctx context.Context, text string) bool {
	return n.send(ctx, n.log, text)
}

func (n *Notifier) send(ctx context.Context, log logx.Logger, text string) bool {
	_, err := n.sender.SendText(ctx, n.opts.Chat, text, &kit.SendOptions{
		ParseMode:      kit.ParseModeHTML,
		DisablePreview: n.opts.DisablePreview,
	})
	n.opts.Metrics.MessageSent(err == nil)
	if err != nil {
		log.Error("message send failed", logx.Err(err), logx.Int("len", len(text)))
		return false
	}
	log.Info("message sent")
	return true
}

// GenerateSampleListings fabricates 0..max placeholder listings for a region.
func (n *Notifier) GenerateSampleListings(regionName string) []listing.Listing {
	ls := n.gen.Sample(regionName)
	n.opts.Metrics.ListingsGenerated(len(ls))
	return ls
}

// SendDailyUpdate sends the header, one message per region and the summary,
// pausing between sends. A failed send is counted and the sequence goes on.
//
// If the sequence itself fails (cancellation during a pause, a panic), a
// best-effort error message is sent to the chat and the error is returned.
func (n *Notifier) SendDailyUpdate(ctx context.Context) (rep Report, err error) {
	rep = Report{RunID: uuid.NewString(), Started: n.opts.Now()}
	log := n.log.With(logx.String("run_id", rep.RunID))
	log.Info("daily update started", logx.Int("regions", len(n.opts.Regions)))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("daily update panic: %v", r)
			log.Error("daily update panicked", logx.Any("panic", r), logx.Stack(logx.StackTrace(3, 16)))
		}
		rep.Duration = n.opts.Now().Sub(rep.Started)
		if err != nil {
			rep.Error = err.Error()
			n.reportFailure(ctx, log, &rep, err)
			log.Error("daily update failed", logx.Err(err), logx.Int("sent", rep.Sent), logx.Int("failed", rep.Failed))
		} else {
			log.Info("daily update finished",
				logx.Int("total", rep.Total),
				logx.Int("sent", rep.Sent),
				logx.Int("failed", rep.Failed),
				logx.Duration("took", rep.Duration),
			)
		}
		n.opts.Metrics.RunFinished(rep, err)
	}()

	err = n.run(ctx, log, &rep)
	return rep, err
}

func (n *Notifier) run(ctx context.Context, log logx.Logger, rep *Report) error {
	labels := n.opts.Labels
	pace := n.opts.Pacing

	send := func(text string) bool {
		ok := n.send(ctx, log, text)
		if ok {
			rep.Sent++
		} else {
			rep.Failed++
		}
		return ok
	}

	send(report.Header(n.opts.Now(), labels))
	if err := n.opts.Sleep(ctx, pace.AfterHeader); err != nil {
		return fmt.Errorf("pause after header: %w", err)
	}

	rep.Regions = make([]RegionResult, 0, len(n.opts.Regions))
	for _, region := range n.opts.Regions {
		ls := n.GenerateSampleListings(region.Name)
		rep.Total += len(ls)
		res := RegionResult{Region: region.Name, Count: len(ls)}

		pause := pace.AfterRegion
		if len(ls) > 0 {
			res.Delivered = send(report.RegionBlock(region, ls))
		} else {
			res.Delivered = send(report.EmptyRegion(region))
			pause = pace.AfterEmpty
		}
		rep.Regions = append(rep.Regions, res)
		log.Debug("region processed", logx.String("region", region.Name), logx.Int("count", res.Count), logx.Bool("delivered", res.Delivered))

		if err := n.opts.Sleep(ctx, pause); err != nil {
			return fmt.Errorf("pause after region %s: %w", region.Name, err)
		}
	}

	send(report.Summary(rep.Total, labels))
	return nil
}

func (n *Notifier) reportFailure(ctx context.Context, log logx.Logger, rep *Report, cause error) {
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureSendTimeout)
	defer cancel()
	if n.send(sctx, log, report.Failure(cause, n.opts.Now(), n.opts.Labels)) {
		rep.Sent++
	} else {
		rep.Failed++
	}
}
