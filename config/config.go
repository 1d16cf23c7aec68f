// Package config loads server settings from the environment and an optional
// config file. Environment variables use the DEPOT_ prefix, e.g.
// DEPOT_HTTP_PORT, DEPOT_DB_PATH, DEPOT_CLOSING_SCHEDULER_ENABLED.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App     AppConfig
	HTTP    HTTPConfig
	DB      DBConfig
	Log     LogConfig
	Ledger  LedgerConfig
	Closing ClosingConfig
}

type AppConfig struct {
	Env  string // development, production
	Name string
}

type HTTPConfig struct {
	Host string
	Port int
}

// Addr returns the listen address (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type DBConfig struct {
	Path string // ":memory:" for a throwaway database
}

type LogConfig struct {
	Level string
}

// LedgerConfig tunes balance reconstruction.
type LedgerConfig struct {
	Strict            bool // fail reads instead of degrading to zero
	LowStockThreshold int
}

// ClosingConfig controls the automated end-of-day closing job.
type ClosingConfig struct {
	SchedulerEnabled bool
	Interval         time.Duration
}

// IsDevelopment reports whether the app runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// Load reads configuration. Environment variables take precedence over the
// file; a missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DEPOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && path != "" {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg := &Config{
		App: AppConfig{
			Env:  v.GetString("app.env"),
			Name: v.GetString("app.name"),
		},
		HTTP: HTTPConfig{
			Host: v.GetString("http.host"),
			Port: v.GetInt("http.port"),
		},
		DB: DBConfig{
			Path: v.GetString("db.path"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
		Ledger: LedgerConfig{
			Strict:            v.GetBool("ledger.strict"),
			LowStockThreshold: v.GetInt("ledger.low_stock_threshold"),
		},
		Closing: ClosingConfig{
			SchedulerEnabled: v.GetBool("closing.scheduler_enabled"),
			Interval:         v.GetDuration("closing.interval"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "development")
	v.SetDefault("app.name", "crate-ledger")
	v.SetDefault("http.host", "")
	v.SetDefault("http.port", 8080)
	v.SetDefault("db.path", "depot.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("ledger.strict", false)
	v.SetDefault("ledger.low_stock_threshold", 50)
	v.SetDefault("closing.scheduler_enabled", false)
	v.SetDefault("closing.interval", time.Hour)
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port %d", c.HTTP.Port)
	}
	if c.DB.Path == "" {
		return errors.New("db path is required")
	}
	if c.Ledger.LowStockThreshold <= 0 {
		return fmt.Errorf("low stock threshold must be positive, got %d", c.Ledger.LowStockThreshold)
	}
	if c.Closing.SchedulerEnabled && c.Closing.Interval <= 0 {
		return fmt.Errorf("closing interval must be positive, got %s", c.Closing.Interval)
	}
	return nil
}
