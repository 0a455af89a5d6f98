// Package app turns a loaded configuration into the jobs run by the shopkit
// command line and the uptime Lambda.
package app

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"time"

	"github.com/Sternrassler/shopkit/pkg/client"
	"github.com/Sternrassler/shopkit/pkg/config"
	"github.com/Sternrassler/shopkit/pkg/labels"
	"github.com/Sternrassler/shopkit/pkg/logging"
	"github.com/Sternrassler/shopkit/pkg/metrics"
	"github.com/Sternrassler/shopkit/pkg/render"
	"github.com/Sternrassler/shopkit/pkg/shopapi"
	"github.com/Sternrassler/shopkit/pkg/uptime"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// LogOptions adjusts the configured logging for one invocation.
type LogOptions struct {
	Verbose bool
	Pretty  bool

	// RunID tags every event. A new one is generated when empty.
	RunID string

	// File receives a JSON copy of every event when set.
	File io.Writer
}

// SetupLogging configures the global logger and returns the run id.
func SetupLogging(cfg config.LoggingConfig, opts LogOptions) string {
	level := logging.LogLevel(cfg.Level)
	if opts.Verbose {
		level = logging.LevelDebug
	}

	logging.Setup(logging.Config{
		Level:  level,
		Pretty: cfg.Pretty || opts.Pretty,
		Output: os.Stderr,
		File:   opts.File,
	})

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log.Logger = log.With().Str("run_id", runID).Logger()
	return runID
}

// Shop is a customer fetcher and the connections behind it.
type Shop struct {
	Fetcher *shopapi.Fetcher
	Client  *client.Client

	redis *redis.Client
}

// OpenShop connects to the commerce API described by cfg. An unreachable
// Redis is logged and skipped. The caller closes the returned Shop.
func OpenShop(ctx context.Context, cfg *config.Config) (*Shop, error) {
	if err := cfg.RequireShop(); err != nil {
		return nil, err
	}

	endpoint, err := CustomersURL(cfg.Shop)
	if err != nil {
		return nil, err
	}

	rdb, err := cfg.RedisClient()
	if err != nil {
		return nil, err
	}
	if rdb != nil {
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, continuing without cache and shared call limit")
			rdb.Close()
			rdb = nil
		}
	}

	clientCfg := client.DefaultConfig(rdb, cfg.Shop.UserAgent)
	clientCfg.Shop = bucketName(cfg.Shop, endpoint)
	clientCfg.Timeout = cfg.ShopTimeout()
	clientCfg.CacheTTL = cfg.CacheTTL()

	c, err := client.New(clientCfg)
	if err != nil {
		closeRedis(rdb)
		return nil, fmt.Errorf("create client: %w", err)
	}

	f, err := shopapi.NewFetcher(c, endpoint, cfg.Shop.PageSize)
	if err != nil {
		closeRedis(rdb)
		return nil, &config.ConfigError{Field: "shop.base_url", Err: err}
	}

	return &Shop{Fetcher: f, Client: c, redis: rdb}, nil
}

// Close releases the Redis connection, if any.
func (s *Shop) Close() error {
	return closeRedis(s.redis)
}

func closeRedis(rdb *redis.Client) error {
	if rdb == nil {
		return nil
	}
	return rdb.Close()
}

// CustomersURL returns the customers endpoint with the API key as user
// info: BaseURL when set, otherwise the endpoint of Domain.
func CustomersURL(cfg config.ShopConfig) (string, error) {
	if cfg.BaseURL == "" {
		return shopapi.CustomersURL(cfg.Domain, cfg.APIVersion, cfg.APIKey), nil
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return "", &config.ConfigError{Field: "shop.base_url", Err: err}
	}
	return shopapi.WithCredentials(u, cfg.APIKey).String(), nil
}

func bucketName(cfg config.ShopConfig, endpoint string) string {
	if cfg.Domain != "" {
		return cfg.Domain
	}
	if u, err := url.Parse(endpoint); err == nil {
		return u.Host
	}
	return "default"
}

// LabelOptions overrides label settings from the command line.
type LabelOptions struct {
	Source    string
	InputPath string
	OutputDir string
	MonthsOut int
	Month     int
	KeepInput bool
}

// LabelOptionsFrom returns the label settings of cfg.
func LabelOptionsFrom(cfg *config.Config) LabelOptions {
	return LabelOptions{
		Source:    cfg.Labels.Source,
		InputPath: cfg.Labels.InputPath,
		OutputDir: cfg.Labels.OutputDir,
		MonthsOut: cfg.Labels.MonthsOut,
		Month:     cfg.Labels.Month,
		KeepInput: cfg.Labels.KeepInput,
	}
}

// LabelConfig builds the job configuration, targeting the month chosen by
// opts relative to today.
func LabelConfig(cfg *config.Config, opts LabelOptions, today time.Time) labels.Config {
	return labels.Config{
		Target:       labels.TargetMonth(today, opts.MonthsOut, opts.Month),
		OutputDir:    opts.OutputDir,
		KeepInput:    opts.KeepInput,
		PageCapacity: cfg.Labels.PageCapacity,
		Columns:      cfg.Labels.Columns,
		Render:       render.DefaultOptions(),
	}
}

// RunLabels runs the label job with the source named in opts.
func RunLabels(ctx context.Context, cfg *config.Config, opts LabelOptions, job labels.Config) (labels.Result, error) {
	var src labels.Source
	switch opts.Source {
	case config.SourceCSV:
		src = labels.CSVSource{Path: opts.InputPath}
	case config.SourceAPI:
		shop, err := OpenShop(ctx, cfg)
		if err != nil {
			return labels.Result{}, err
		}
		defer shop.Close()
		src = labels.APISource{Fetcher: shop.Fetcher}
	default:
		return labels.Result{}, &config.ConfigError{
			Field: "labels.source",
			Err:   fmt.Errorf("unknown source %q (valid: csv, api)", opts.Source),
		}
	}

	return labels.Run(ctx, job, src)
}

// CheckUptime checks the configured sites, logs the alert body when any
// failed and pushes metrics when a Pushgateway is configured.
func CheckUptime(ctx context.Context, cfg *config.Config, checker *uptime.Checker) (uptime.Report, error) {
	if err := cfg.RequireUptime(); err != nil {
		return uptime.Report{}, err
	}
	if checker == nil {
		checker = uptime.NewChecker(cfg.UptimeTimeout())
	}

	report := checker.Check(ctx, cfg.Uptime.PrimaryURL, cfg.Uptime.SecondaryURLs)
	if !report.Healthy() {
		log.Error().
			Int("failures", len(report.Failures())).
			Str("report", report.HTML()).
			Msg("Uptime check failed")
	}

	PushMetrics(ctx, cfg, "uptime")
	return report, nil
}

// PushMetrics pushes the process metrics under the configured job with a
// "command" grouping label. Failures are logged only.
func PushMetrics(ctx context.Context, cfg *config.Config, command string) {
	err := metrics.Push(ctx, cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, map[string]string{
		"command": command,
	})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to push metrics")
	}
}
