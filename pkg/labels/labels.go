// Package labels runs the monthly birthday label job: load customers, keep
// the ones with a birthday next month and a complete address, log the rest,
// and render the label sheet.
package labels

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Sternrassler/shopkit/pkg/filter"
	"github.com/Sternrassler/shopkit/pkg/layout"
	"github.com/Sternrassler/shopkit/pkg/record"
	"github.com/Sternrassler/shopkit/pkg/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
)

var (
	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shopkit_label_runs_total",
		Help: "Label job runs by result",
	}, []string{"result"})

	labelsRendered = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shopkit_labels_rendered",
		Help: "Labels rendered by the last run, padding excluded",
	})
)

// Config is the immutable input of one run.
type Config struct {
	// Target selects the birth month; its year names the output files.
	Target time.Time

	OutputDir string

	// KeepInput leaves a consumed input file in place after backing it up.
	KeepInput bool

	PageCapacity int
	Columns      int
	Render       render.Options
}

// DefaultConfig returns a config targeting next month from now.
func DefaultConfig(outputDir string) Config {
	return Config{
		Target:       TargetMonth(time.Now(), 1, 0),
		OutputDir:    outputDir,
		PageCapacity: layout.DefaultPageCapacity,
		Columns:      layout.DefaultColumns,
		Render:       render.DefaultOptions(),
	}
}

// Result summarizes a run.
type Result struct {
	Month time.Month
	Year  int

	Loaded   int
	Accepted int
	Rejected int
	Dropped  int
	Padding  int
	Rows     int
	Pages    int

	PDFPath     string
	SkippedPath string
	BackupPath  string
}

// TargetMonth returns the first day of the month labels are printed for.
// With override in 1..12 that month is used, in the current year unless it
// has already passed. Otherwise the month is today plus monthsOut × 365/12
// days.
func TargetMonth(today time.Time, monthsOut, override int) time.Time {
	if override >= 1 && override <= 12 {
		year := today.Year()
		if time.Month(override) < today.Month() {
			year++
		}
		return time.Date(year, time.Month(override), 1, 0, 0, 0, 0, today.Location())
	}

	days := float64(monthsOut) * 365 / 12
	t := today.Add(time.Duration(days * float64(24*time.Hour)))
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, today.Location())
}

// FileStem is the month-stamped base name shared by the run's files, e.g.
// "birthday_labels_202403".
func FileStem(target time.Time) string {
	return fmt.Sprintf("birthday_labels_%04d%02d", target.Year(), int(target.Month()))
}

// SkippedFileName names the rejection log, e.g.
// "birthday_labels_skipped_202403.txt".
func SkippedFileName(target time.Time) string {
	return fmt.Sprintf("birthday_labels_skipped_%04d%02d.txt", target.Year(), int(target.Month()))
}

// Run executes the job. Load and write failures abort it; failing to back
// up or remove the input only logs a warning.
func Run(ctx context.Context, cfg Config, src Source) (Result, error) {
	logger := log.With().Str("component", "labels").Logger()

	res, err := run(ctx, cfg, src)
	if err != nil {
		runsTotal.WithLabelValues("error").Inc()
		logger.Error().Err(err).Str("source", src.Describe()).Msg("Label run failed")
		return res, err
	}
	runsTotal.WithLabelValues("success").Inc()
	labelsRendered.Set(float64(res.Accepted))
	return res, nil
}

func run(ctx context.Context, cfg Config, src Source) (Result, error) {
	logger := log.With().Str("component", "labels").Logger()

	if cfg.PageCapacity < 1 || cfg.Columns < 1 {
		return Result{}, fmt.Errorf("page capacity and columns must be positive")
	}

	res := Result{Month: cfg.Target.Month(), Year: cfg.Target.Year()}
	stem := FileStem(cfg.Target)

	logger.Info().
		Str("source", src.Describe()).
		Str("month", res.Month.String()).
		Int("year", res.Year).
		Msg("Starting label run")

	customers, err := src.Load(ctx)
	if err != nil {
		return res, err
	}
	res.Loaded = len(customers)

	filtered := filter.Filter(customers, filter.Target{Month: res.Month, Mode: src.Mode()})
	res.Accepted = len(filtered.Accepted)
	res.Rejected = len(filtered.Rejected)
	res.Dropped = filtered.Dropped

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return res, fmt.Errorf("create output dir: %w", err)
	}

	res.SkippedPath = filepath.Join(cfg.OutputDir, SkippedFileName(cfg.Target))
	if err := writeSkipped(res.SkippedPath, filtered.Rejected); err != nil {
		return res, err
	}

	grid := layout.Layout(filtered.Accepted, cfg.PageCapacity, cfg.Columns)
	res.Rows = grid.Rows()
	res.Padding = layout.PadCount(res.Accepted, cfg.PageCapacity)
	res.Pages = cfg.Render.Pages(res.Rows)
	logger.Info().
		Int("accepted", res.Accepted).
		Int("padding", res.Padding).
		Msg("Laid out labels")

	res.PDFPath = filepath.Join(cfg.OutputDir, stem+".pdf")
	if err := render.WriteFile(res.PDFPath, grid, cfg.Render); err != nil {
		return res, fmt.Errorf("render labels: %w", err)
	}

	if c, ok := src.(consumer); ok {
		backup, err := c.Consume(cfg.KeepInput)
		res.BackupPath = backup
		if err != nil {
			logger.Warn().Err(err).Msg("Could not clean up input")
		}
	}

	logger.Info().
		Str("pdf", res.PDFPath).
		Str("skipped", res.SkippedPath).
		Int("pages", res.Pages).
		Msg("Label run finished")
	return res, nil
}

func writeSkipped(path string, rejected []record.Rejection) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create skipped log: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close skipped log: %w", cerr)
		}
	}()

	if err := record.WriteRejections(f, rejected); err != nil {
		return fmt.Errorf("write skipped log: %w", err)
	}
	return nil
}
