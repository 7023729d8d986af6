package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"listingbot/internal/config"
	kit "listingbot/internal/transport"
	logx "listingbot/pkg/logx"
)

const previewRule = "----------------------------------------"

func newPreviewCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "preview",
		Short: "Print the rendered messages without contacting Telegram",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPreview(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}
}

// runPreview renders to out; warnings go to errOut as JSON lines.
func runPreview(ctx context.Context, out, errOut io.Writer, opts *globalOptions) error {
	cfg, err := config.Load(opts.loadOptions(false))
	if err != nil {
		return err
	}
	loc, err := cfg.Schedule.Location()
	if err != nil {
		return err
	}
	if cfg.ChatID == "" {
		cfg.ChatID = "preview"
	}

	sender := kit.SenderFunc(func(_ context.Context, _ kit.ChatTarget, text string, _ *kit.SendOptions) (kit.MessageRef, error) {
		_, err := fmt.Fprintf(out, "%s\n%s\n", text, previewRule)
		return kit.MessageRef{}, err
	})

	n, err := newNotifier(cfg, sender, notifierOverrides{noPauses: true}, loc, logx.NewWriter(errOut, "warn"))
	if err != nil {
		return err
	}
	_, err = n.SendDailyUpdate(ctx)
	return err
}
