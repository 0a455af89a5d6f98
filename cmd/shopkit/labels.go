package main

import (
	"fmt"
	"time"

	"github.com/Sternrassler/shopkit/internal/app"
	"github.com/Sternrassler/shopkit/pkg/config"
	"github.com/Sternrassler/shopkit/pkg/labels"
	"github.com/Sternrassler/shopkit/pkg/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newLabelsCmd(root *rootOptions) *cobra.Command {
	var (
		source    string
		input     string
		outputDir string
		monthsOut int
		month     int
		keepInput bool
	)

	cmd := &cobra.Command{
		Use:   "labels",
		Short: "Render the birthday label sheet for next month",
		Long: `Loads customers from the POS export (--source csv) or the commerce API
(--source api), keeps those with a birthday in the target month and a
complete mailing address, and writes birthday_labels_YYYYMM.pdf plus
birthday_labels_skipped_YYYYMM.txt to the output directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := root.cfg
			opts := app.LabelOptionsFrom(cfg)

			flags := cmd.Flags()
			if flags.Changed("source") {
				opts.Source = source
			}
			if flags.Changed("input") {
				opts.InputPath = config.ExpandHome(input)
			}
			if flags.Changed("output-dir") {
				opts.OutputDir = config.ExpandHome(outputDir)
			}
			if flags.Changed("months-out") {
				if monthsOut < 0 {
					return &config.ConfigError{Field: "--months-out", Err: fmt.Errorf("must be >= 0 (got %d)", monthsOut)}
				}
				opts.MonthsOut = monthsOut
			}
			if flags.Changed("month") {
				if month < 1 || month > 12 {
					return &config.ConfigError{Field: "--month", Err: fmt.Errorf("must be 1-12 (got %d)", month)}
				}
				opts.Month = month
			}
			if flags.Changed("keep-input") {
				opts.KeepInput = keepInput
			}

			job := app.LabelConfig(cfg, opts, time.Now())

			if cfg.Logging.Dir != "" {
				f, err := logging.OpenRunLog(cfg.Logging.Dir, labels.FileStem(job.Target)+".log")
				if err != nil {
					log.Warn().Err(err).Msg("Run log disabled")
				} else {
					logOpts := app.LogOptions{Verbose: root.verbose, Pretty: root.pretty, RunID: root.runID}
					defer func() {
						app.SetupLogging(cfg.Logging, logOpts)
						f.Close()
					}()
					fileOpts := logOpts
					fileOpts.File = f
					app.SetupLogging(cfg.Logging, fileOpts)
				}
			}

			res, err := app.RunLabels(cmd.Context(), cfg, opts, job)
			app.PushMetrics(cmd.Context(), cfg, "labels")
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d labels for %s %d (%d blank, %d skipped) -> %s\n",
				res.Accepted, res.Month, res.Year, res.Padding, res.Rejected, res.PDFPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&source, "source", "", "Customer source: csv or api (default from config)")
	cmd.Flags().StringVarP(&input, "input", "i", "", "POS export CSV for --source csv")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory for the PDF and skipped list")
	cmd.Flags().IntVar(&monthsOut, "months-out", 1, "Target the month this many months from today")
	cmd.Flags().IntVarP(&month, "month", "m", 0, "Target this month (1-12) instead")
	cmd.Flags().BoolVar(&keepInput, "keep-input", false, "Keep the input CSV after backing it up")

	return cmd
}
