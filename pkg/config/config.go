// Package config loads shopkit settings from a YAML file, a .env file and
// the environment, in that order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Label sources.
const (
	SourceCSV = "csv"
	SourceAPI = "api"
)

// ConfigError reports a missing or unusable setting.
type ConfigError struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Field, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ErrRequired marks a setting that must be present.
var ErrRequired = errors.New("required setting is empty")

// Config holds all shopkit configuration.
type Config struct {
	Shop    ShopConfig    `yaml:"shop"`
	Redis   RedisConfig   `yaml:"redis"`
	Labels  LabelsConfig  `yaml:"labels"`
	Logging LoggingConfig `yaml:"logging"`
	Uptime  UptimeConfig  `yaml:"uptime"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ShopConfig configures the commerce API.
type ShopConfig struct {
	Domain     string `yaml:"domain"` // e.g. example.myshopify.com
	APIVersion string `yaml:"api_version"`

	// BaseURL replaces the customers endpoint derived from Domain, e.g. for
	// a proxy or a test server.
	BaseURL string `yaml:"base_url"`

	// APIKey is "key" or "key:password". Never written to the YAML file;
	// read from APIKeyFile or SHOPKIT_API_KEY.
	APIKey     string `yaml:"-"`
	APIKeyFile string `yaml:"api_key_file"`

	PageSize  int    `yaml:"page_size"`
	UserAgent string `yaml:"user_agent"`
	Timeout   string `yaml:"timeout"`
	CacheTTL  string `yaml:"cache_ttl"` // "0" disables page caching
}

// RedisConfig configures the optional Redis backend.
type RedisConfig struct {
	URL string `yaml:"url"` // redis://host:6379/0, empty disables Redis
}

// LabelsConfig configures the birthday label job.
type LabelsConfig struct {
	Source    string `yaml:"source"` // csv, api
	InputPath string `yaml:"input_path"`
	OutputDir string `yaml:"output_dir"`
	MonthsOut int    `yaml:"months_out"`
	Month     int    `yaml:"month"` // 1-12 overrides MonthsOut, 0 = unset
	KeepInput bool   `yaml:"keep_input"`

	PageCapacity int `yaml:"page_capacity"`
	Columns      int `yaml:"columns"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"` // debug, info, warn, error
	Pretty bool   `yaml:"pretty"`
	Dir    string `yaml:"dir"` // run log directory, empty disables the file
}

// UptimeConfig configures the website checker.
type UptimeConfig struct {
	PrimaryURL    string   `yaml:"primary_url"`
	SecondaryURLs []string `yaml:"secondary_urls"`
	Timeout       string   `yaml:"timeout"`
}

// MetricsConfig configures metric pushing.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Shop: ShopConfig{
			APIVersion: "2021-04",
			PageSize:   250,
			UserAgent:  "shopkit/1.0",
			Timeout:    "30s",
			CacheTTL:   "0",
		},
		Labels: LabelsConfig{
			Source:       SourceCSV,
			InputPath:    "~/Documents/bulk_customers.csv",
			OutputDir:    "~/Documents",
			MonthsOut:    1,
			PageCapacity: 30,
			Columns:      3,
		},
		Logging: LoggingConfig{
			Level: "info",
			Dir:   "~/Documents/logs",
		},
		Uptime: UptimeConfig{
			Timeout: "10s",
		},
		Metrics: MetricsConfig{
			Job: "shopkit",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// path is not empty), then .env and the environment. The result is
// validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, &ConfigError{Field: "file", Err: err}
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigError{Field: "file", Err: fmt.Errorf("parse %s: %w", path, err)}
		}
	}

	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := cfg.resolveAPIKey(); err != nil {
		return nil, err
	}

	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from a .env file without overriding ones
// already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &ConfigError{Field: "dotenv", Err: err}
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	setString := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
	setInt := func(name string, dst *int) error {
		v := os.Getenv(name)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ConfigError{Field: name, Err: err}
		}
		*dst = n
		return nil
	}

	setString("SHOPKIT_SHOP_DOMAIN", &c.Shop.Domain)
	setString("SHOPKIT_API_VERSION", &c.Shop.APIVersion)
	setString("SHOPKIT_SHOP_BASE_URL", &c.Shop.BaseURL)
	setString("SHOPKIT_API_KEY", &c.Shop.APIKey)
	setString("SHOPKIT_API_KEY_FILE", &c.Shop.APIKeyFile)
	setString("SHOPKIT_USER_AGENT", &c.Shop.UserAgent)
	setString("REDIS_URL", &c.Redis.URL)
	setString("SHOPKIT_LABEL_SOURCE", &c.Labels.Source)
	setString("SHOPKIT_INPUT", &c.Labels.InputPath)
	setString("SHOPKIT_OUTPUT_DIR", &c.Labels.OutputDir)
	setString("SHOPKIT_LOG_LEVEL", &c.Logging.Level)
	setString("SHOPKIT_LOG_DIR", &c.Logging.Dir)
	setString("SHOPKIT_UPTIME_PRIMARY_URL", &c.Uptime.PrimaryURL)
	setString("SHOPKIT_PUSHGATEWAY_URL", &c.Metrics.PushgatewayURL)

	if v := os.Getenv("SHOPKIT_UPTIME_SECONDARY_URLS"); v != "" {
		c.Uptime.SecondaryURLs = nil
		for _, u := range strings.Split(v, ",") {
			if u = strings.TrimSpace(u); u != "" {
				c.Uptime.SecondaryURLs = append(c.Uptime.SecondaryURLs, u)
			}
		}
	}

	if err := setInt("SHOPKIT_PAGE_SIZE", &c.Shop.PageSize); err != nil {
		return err
	}
	if err := setInt("SHOPKIT_MONTHS_OUT", &c.Labels.MonthsOut); err != nil {
		return err
	}
	return setInt("SHOPKIT_MONTH", &c.Labels.Month)
}

// resolveAPIKey reads the API key file when no key was given directly.
func (c *Config) resolveAPIKey() error {
	if c.Shop.APIKey != "" || c.Shop.APIKeyFile == "" {
		return nil
	}
	data, err := os.ReadFile(ExpandHome(c.Shop.APIKeyFile))
	if err != nil {
		return &ConfigError{Field: "shop.api_key_file", Err: err}
	}
	c.Shop.APIKey = strings.TrimRight(string(data), " \t\r\n")
	if c.Shop.APIKey == "" {
		return &ConfigError{Field: "shop.api_key_file", Err: ErrRequired}
	}
	return nil
}

func (c *Config) expandPaths() {
	c.Labels.InputPath = ExpandHome(c.Labels.InputPath)
	c.Labels.OutputDir = ExpandHome(c.Labels.OutputDir)
	c.Logging.Dir = ExpandHome(c.Logging.Dir)
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// Validate checks settings shared by every command.
func (c *Config) Validate() error {
	switch c.Labels.Source {
	case SourceCSV, SourceAPI:
	default:
		return &ConfigError{Field: "labels.source", Err: fmt.Errorf("unknown source %q (valid: csv, api)", c.Labels.Source)}
	}
	if c.Labels.MonthsOut < 0 {
		return &ConfigError{Field: "labels.months_out", Err: fmt.Errorf("must be >= 0 (got %d)", c.Labels.MonthsOut)}
	}
	if c.Labels.Month < 0 || c.Labels.Month > 12 {
		return &ConfigError{Field: "labels.month", Err: fmt.Errorf("must be 0-12 (got %d)", c.Labels.Month)}
	}
	if c.Labels.PageCapacity < 1 {
		return &ConfigError{Field: "labels.page_capacity", Err: fmt.Errorf("must be >= 1 (got %d)", c.Labels.PageCapacity)}
	}
	if c.Labels.Columns < 1 || c.Labels.PageCapacity%c.Labels.Columns != 0 {
		return &ConfigError{Field: "labels.columns", Err: fmt.Errorf("must divide page capacity %d (got %d)", c.Labels.PageCapacity, c.Labels.Columns)}
	}
	if c.Shop.UserAgent == "" {
		return &ConfigError{Field: "shop.user_agent", Err: ErrRequired}
	}

	durations := map[string]string{
		"shop.timeout":   c.Shop.Timeout,
		"shop.cache_ttl": c.Shop.CacheTTL,
		"uptime.timeout": c.Uptime.Timeout,
	}
	for field, value := range durations {
		if _, err := parseDuration(value); err != nil {
			return &ConfigError{Field: field, Err: err}
		}
	}

	if c.Redis.URL != "" {
		if _, err := redis.ParseURL(c.Redis.URL); err != nil {
			return &ConfigError{Field: "redis.url", Err: err}
		}
	}
	return nil
}

// RequireShop checks the settings needed to call the commerce API.
func (c *Config) RequireShop() error {
	if c.Shop.Domain == "" && c.Shop.BaseURL == "" {
		return &ConfigError{Field: "shop.domain", Err: ErrRequired}
	}
	if c.Shop.APIKey == "" {
		return &ConfigError{Field: "shop.api_key", Err: fmt.Errorf("%w (set SHOPKIT_API_KEY or shop.api_key_file)", ErrRequired)}
	}
	return nil
}

// RequireUptime checks the settings needed by the website checker.
func (c *Config) RequireUptime() error {
	if c.Uptime.PrimaryURL == "" {
		return &ConfigError{Field: "uptime.primary_url", Err: ErrRequired}
	}
	return nil
}

// ShopTimeout returns the API request timeout.
func (c *Config) ShopTimeout() time.Duration {
	d, err := parseDuration(c.Shop.Timeout)
	if err != nil || d == 0 {
		return 30 * time.Second
	}
	return d
}

// CacheTTL returns the page cache TTL, zero when caching is off.
func (c *Config) CacheTTL() time.Duration {
	d, _ := parseDuration(c.Shop.CacheTTL)
	return d
}

// UptimeTimeout returns the per-site check timeout.
func (c *Config) UptimeTimeout() time.Duration {
	d, err := parseDuration(c.Uptime.Timeout)
	if err != nil || d == 0 {
		return 10 * time.Second
	}
	return d
}

// RedisClient connects to the configured Redis. It returns nil when no URL
// is set.
func (c *Config) RedisClient() (*redis.Client, error) {
	if c.Redis.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(c.Redis.URL)
	if err != nil {
		return nil, &ConfigError{Field: "redis.url", Err: err}
	}
	return redis.NewClient(opts), nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must be >= 0 (got %s)", s)
	}
	return d, nil
}
