package cli

import (
	"context"

	"github.com/spf13/cobra"

	"listingbot/internal/config"
	logx "listingbot/pkg/logx"
)

func newRunCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Send one daily update and exit (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context(), opts)
		},
	}
}

// runOnce sends a single daily update. Send failures are logged and reported
// to the chat but do not make the process fail.
func runOnce(ctx context.Context, opts *globalOptions) error {
	// Credentials are checked before any transport exists, so a missing token
	// never reaches the network.
	cfg, err := config.Load(opts.loadOptions(true))
	if err != nil {
		return err
	}

	loc, err := cfg.Schedule.Location()
	if err != nil {
		return err
	}

	svc, log := logx.New(loggingConfig(cfg), nil)
	defer svc.Close()

	sender, err := newSender(cfg, log)
	if err != nil {
		return err
	}
	svc.SetSender(sender)

	n, err := newNotifier(cfg, sender, notifierOverrides{}, loc, log)
	if err != nil {
		return err
	}

	log.Info("=== daily report started ===", logx.Int("regions", len(cfg.Regions)), logx.String("transport", cfg.Telegram.Transport))
	if _, err := n.SendDailyUpdate(ctx); err != nil {
		// Already logged and reported to the chat by the notifier.
		return nil
	}
	log.Info("=== daily report sent ===")
	return nil
}
