package main

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/shopkit/internal/app"
	"github.com/spf13/cobra"
)

// errSitesDown is returned by "uptime --fail" when a check failed.
var errSitesDown = errors.New("one or more sites are down")

func newUptimeCmd(root *rootOptions) *cobra.Command {
	var (
		primary string
		fail    bool
	)

	cmd := &cobra.Command{
		Use:   "uptime [secondary-url...]",
		Short: "Check the primary website, and the secondaries when it is down",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			if primary != "" {
				cfg.Uptime.PrimaryURL = primary
			}
			if len(args) > 0 {
				cfg.Uptime.SecondaryURLs = args
			}

			report, err := app.CheckUptime(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if report.Healthy() {
				fmt.Fprintf(out, "OK %s (%s)\n", report.Primary.URL, report.Primary.Duration)
				return nil
			}
			fmt.Fprint(out, report.HTML())
			if fail {
				return errSitesDown
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&primary, "primary", "p", "", "Primary URL (default from config)")
	cmd.Flags().BoolVar(&fail, "fail", false, "Exit non-zero when a site is down")

	return cmd
}
