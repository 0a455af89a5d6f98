// Command shopkit prints birthday mailing labels, exports customers from the
// commerce API and checks that the shop websites are up.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Sternrassler/shopkit/internal/app"
	"github.com/Sternrassler/shopkit/pkg/config"
	"github.com/spf13/cobra"
)

// Exit codes.
const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

// rootOptions holds the persistent flags and what the pre-run derives from
// them.
type rootOptions struct {
	configPath string
	verbose    bool
	pretty     bool

	cfg   *config.Config
	runID string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "shopkit",
		Short: "shopkit - customer labels, exports and uptime checks for a small shop",
		Long: `shopkit prints next month's birthday mailing labels from a POS export
or the commerce API, exports the API's customers as CSV or JSON, and checks
that the shop websites answer.

Settings come from an optional YAML file (--config), a .env file and
SHOPKIT_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			opts.runID = app.SetupLogging(cfg.Logging, app.LogOptions{
				Verbose: opts.verbose,
				Pretty:  opts.pretty,
			})
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to YAML config file")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&opts.pretty, "pretty", false, "Human-readable console logs")

	cmd.AddCommand(
		newLabelsCmd(opts),
		newCustomersCmd(opts),
		newUptimeCmd(opts),
	)
	return cmd
}

// exitCode maps a command error to the process exit status.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var cfgErr *config.ConfigError
	if errors.As(err, &cfgErr) {
		return exitConfig
	}
	return exitFailed
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
}
