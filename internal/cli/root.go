// Package cli is the listingbot command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"listingbot/internal/config"
)

var version = "dev"

type globalOptions struct {
	configPath string
	envFile    string
}

func (o *globalOptions) loadOptions(requireCredentials bool) config.LoadOptions {
	return config.LoadOptions{
		Path:               o.configPath,
		EnvFile:            o.envFile,
		RequireCredentials: requireCredentials,
	}
}

// NewRootCommand builds the command tree. Without a subcommand it behaves like "run".
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "listingbot",
		Short: "Post the daily placeholder listing update to a Telegram chat",
		Long: `listingbot fabricates placeholder real-estate listings for a fixed set of
regions and posts them to a Telegram chat, one message per region.

BOT_TOKEN and CHAT_ID must be set in the environment (or in the env file).`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runOnce(cmd.Context(), opts)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config file (.yaml, .yml or .json); defaults apply when omitted")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before reading the environment (ignored when missing)")

	root.AddCommand(
		newRunCommand(opts),
		newPreviewCommand(opts),
		newDaemonCommand(opts),
	)
	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, config.ErrMissingCredentials):
		// An unconfigured bot exits cleanly.
		fmt.Fprintln(stdout, config.MissingCredentialsHint)
		return 0
	default:
		fmt.Fprintln(stderr, "fatal:", err)
		return 1
	}
}
