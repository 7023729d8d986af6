package schedule

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/dustin/go-humanize"
	"github.com/robfig/cron/v3"

	logx "listingbot/pkg/logx"
)

type Config struct {
	Spec     string
	Location *time.Location // default: time.Local
}

// Job is invoked on every trigger with the runner's context.
type Job func(ctx context.Context)

// Runner triggers a single job on a schedule. Overlapping triggers are
// skipped, so at most one job runs at a time.
type Runner struct {
	log   logx.Logger
	loc   *time.Location
	sched cron.Schedule
	job   Job

	mu     sync.Mutex
	c      *cron.Cron
	entry  cron.EntryID
	ctx    context.Context
	cancel context.CancelFunc
}

func NewRunner(cfg Config, job Job, log logx.Logger) (*Runner, error) {
	if job == nil {
		return nil, errors.New("schedule: job is nil")
	}
	spec, err := ParseSchedule(cfg.Spec)
	if err != nil {
		return nil, err
	}
	sched, err := spec.Schedule()
	if err != nil {
		return nil, err
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Runner{log: log, loc: loc, sched: sched, job: job}, nil
}

// Start begins triggering. Calling Start twice is a no-op.
func (r *Runner) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.c != nil {
		return
	}
	r.ctx, r.cancel = context.WithCancel(ctx)
	cl := cronLogger{log: r.log}
	r.c = cron.New(
		cron.WithLocation(r.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	jobCtx := r.ctx
	r.entry = r.c.Schedule(r.sched, cron.FuncJob(func() { r.job(jobCtx) }))
	r.c.Start()

	next := r.c.Entry(r.entry).Next
	r.log.Info("scheduler started",
		logx.String("tz", r.loc.String()),
		logx.Time("next_run", next),
		logx.String("next_in", humanize.Time(next)),
	)
	notifySystemd(r.log, daemon.SdNotifyReady)
}

// Stop stops triggering and waits for a running job until ctx is done.
func (r *Runner) Stop(ctx context.Context) {
	r.mu.Lock()
	c := r.c
	cancel := r.cancel
	r.c = nil
	r.cancel = nil
	r.mu.Unlock()
	if c == nil {
		return
	}

	notifySystemd(r.log, daemon.SdNotifyStopping)
	done := c.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		r.log.Warn("scheduler stop timed out; cancelling running job")
	}
	if cancel != nil {
		cancel()
	}
	r.log.Info("scheduler stopped")
}

// Next returns the next fire time, or the zero time when not started.
func (r *Runner) Next() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.c == nil {
		return time.Time{}
	}
	return r.c.Entry(r.entry).Next
}

// NextAfter computes the fire time following t without a running scheduler.
func (r *Runner) NextAfter(t time.Time) time.Time {
	return r.sched.Next(t.In(r.loc))
}

func notifySystemd(log logx.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Debug("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		log.Debug("sd_notify sent", logx.String("state", state))
	}
}

// cronLogger adapts logx to cron.Logger.
type cronLogger struct{ log logx.Logger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, kvFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(kvFields(keysAndValues), logx.Err(err))...)
}

func kvFields(kv []interface{}) []logx.Field {
	out := make([]logx.Field, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			continue
		}
		out = append(out, logx.Any(k, kv[i+1]))
	}
	return out
}
