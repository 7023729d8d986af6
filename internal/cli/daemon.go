package cli

import (
	"context"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"listingbot/internal/config"
	"listingbot/internal/report"
	"listingbot/internal/runtime/supervisor"
	"listingbot/internal/schedule"
	"listingbot/internal/status"
	logx "listingbot/pkg/logx"
)

const shutdownTimeout = 30 * time.Second

func newDaemonCommand(opts *globalOptions) *cobra.Command {
	var runNow bool
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Send the daily update on the configured schedule",
		Long: `daemon keeps running and sends the daily update on schedule.spec
(default "0 9 * * *" in Asia/Seoul). The config file is watched; logging and
report settings apply to the next run, schedule changes need a restart.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDaemon(cmd.Context(), opts, runNow)
		},
	}
	cmd.Flags().BoolVar(&runNow, "now", false, "also send one update right after startup")
	return cmd
}

func runDaemon(ctx context.Context, opts *globalOptions, runNow bool) error {
	loadOpts := opts.loadOptions(true)
	cfg, err := config.Load(loadOpts)
	if err != nil {
		return err
	}
	loc, err := cfg.Schedule.Location()
	if err != nil {
		return err
	}

	svc, log := logx.New(loggingConfig(cfg), nil)
	defer svc.Close()

	sinkSender, err := newSender(cfg, log)
	if err != nil {
		return err
	}
	svc.SetSender(sinkSender)

	mgr := config.NewManager(loadOpts, cfg, log.With(logx.String("comp", "config")))
	metrics := status.NewMetrics()

	var (
		runner *schedule.Runner
		jobMu  sync.Mutex
	)
	tracker := status.NewTracker(func() time.Time { return runner.Next() })

	job := func(ctx context.Context) {
		jobMu.Lock()
		defer jobMu.Unlock()

		cur := mgr.Get()
		jlog := log.With(logx.String("comp", "daily"))
		sender, err := newSender(cur, jlog)
		if err != nil {
			jlog.Error("build sender failed", logx.Err(err))
			return
		}
		now := time.Now().In(loc)
		n, err := newNotifier(cur, sender, notifierOverrides{
			nextUpdate: report.NextUpdateText(runner.NextAfter(now), now),
			metrics:    metrics,
		}, loc, jlog)
		if err != nil {
			jlog.Error("build notifier failed", logx.Err(err))
			return
		}

		tracker.Begin()
		rep, _ := n.SendDailyUpdate(ctx)
		tracker.Finish(rep)
	}

	runner, err = schedule.NewRunner(schedule.Config{Spec: cfg.Schedule.Spec, Location: loc}, job, log.With(logx.String("comp", "scheduler")))
	if err != nil {
		return err
	}

	sup := supervisor.New(ctx, log.With(logx.String("comp", "supervisor")))
	tracker.WatchTasks(sup.Snapshot)

	sup.GoRestart("config-watch", func(ctx context.Context) error {
		return mgr.Watch(ctx, func(next *config.Config) {
			svc.Apply(loggingConfig(next))
			if s, err := newSender(next, log); err == nil {
				svc.SetSender(s)
			}
			if next.Schedule != cfg.Schedule {
				log.Warn("schedule change ignored until restart",
					logx.String("running", cfg.Schedule.Spec+" "+cfg.Schedule.Timezone),
					logx.String("configured", next.Schedule.Spec+" "+next.Schedule.Timezone),
				)
			}
		})
	}, time.Second, time.Minute)

	if cfg.Status.Enabled {
		router := status.NewRouter(tracker, metrics)
		if cfg.Status.Pprof {
			status.MountPprof(router)
		}
		srv := status.NewServer(cfg.Status.Addr, router, log.With(logx.String("comp", "status")))
		sup.Go("status-server", srv.Run)
	}

	runner.Start(sup.Context())
	if runNow {
		sup.Go("run-now", func(ctx context.Context) error {
			job(ctx)
			return nil
		})
	}

	<-ctx.Done()
	log.Info("shutdown requested")

	stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	runner.Stop(stopCtx)
	if err := sup.Stop(stopCtx); err != nil {
		log.Warn("shutdown timed out", logx.Err(err))
	}
	if err := sup.Err(); err != nil {
		log.Warn("daemon goroutine failed", logx.Err(err))
	}
	return nil
}
