package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/Sternrassler/shopkit/internal/app"
	"github.com/Sternrassler/shopkit/pkg/config"
	"github.com/Sternrassler/shopkit/pkg/record"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// Export formats.
const (
	formatCSV  = "csv"
	formatJSON = "json"
)

func newCustomersCmd(root *rootOptions) *cobra.Command {
	var (
		format   string
		output   string
		pageSize int
	)

	cmd := &cobra.Command{
		Use:   "customers",
		Short: "Export every customer from the commerce API",
		Long: `Walks every page of the customers endpoint and writes the records as CSV
(readable by "labels --source csv") or JSON, to stdout or --output.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != formatCSV && format != formatJSON {
				return &config.ConfigError{Field: "--format", Err: fmt.Errorf("unknown format %q (valid: csv, json)", format)}
			}

			cfg := root.cfg
			if cmd.Flags().Changed("page-size") {
				cfg.Shop.PageSize = pageSize
			}

			shop, err := app.OpenShop(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer shop.Close()

			customers, err := shop.Fetcher.FetchAll(cmd.Context())
			app.PushMetrics(cmd.Context(), cfg, "customers")
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				w = f
			}

			if err := writeCustomers(w, format, customers); err != nil {
				return err
			}

			log.Info().
				Int("customers", len(customers)).
				Str("format", format).
				Str("output", output).
				Msg("Exported customers")
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatCSV, "Output format: csv or json")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file, - for stdout")
	cmd.Flags().IntVar(&pageSize, "page-size", 250, "Customers per request (1-250)")

	return cmd
}

func writeCustomers(w io.Writer, format string, customers []record.Customer) error {
	if format == formatJSON {
		if customers == nil {
			customers = []record.Customer{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(customers); err != nil {
			return fmt.Errorf("encode customers: %w", err)
		}
		return nil
	}
	return record.WriteCSV(w, customers)
}
