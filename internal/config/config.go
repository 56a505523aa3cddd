// File: internal/config/config.go
package config

import (
	"fmt"
	"path/filepath"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger" yaml:"logger"`
	Browser BrowserConfig `mapstructure:"browser" yaml:"browser"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Network NetworkConfig `mapstructure:"network" yaml:"network"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig describes how to reach the user's running Chrome. The probe
// attaches over CDP; it never launches or owns the browser, since the whole
// point is piggybacking on the user's logged-in session.
type BrowserConfig struct {
	// DevToolsURL is the remote debugging endpoint of the running browser,
	// e.g. ws://127.0.0.1:9222 or http://127.0.0.1:9222.
	DevToolsURL string `mapstructure:"devtools_url" yaml:"devtools_url"`
	// ProbeTimeout bounds individual probe operations (tab query, eval,
	// cookie read), not whole message handlers.
	ProbeTimeout time.Duration `mapstructure:"probe_timeout" yaml:"probe_timeout"`
}

// Store driver names accepted by StoreConfig.Driver.
const (
	StoreDriverSQLite   = "sqlite"
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// StoreConfig selects and configures the environment cache backend.
type StoreConfig struct {
	// Driver is one of "sqlite", "postgres", "memory".
	Driver string `mapstructure:"driver" yaml:"driver"`
	// Path is the sqlite database file. Empty means <data_dir>/birdclip.db.
	Path string `mapstructure:"path" yaml:"path"`
	// DSN is the postgres connection string when driver is "postgres".
	DSN string `mapstructure:"dsn" yaml:"dsn"`
	// DataDir holds local state. Empty means ~/.birdclip.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// NetworkConfig tunes the outbound HTTP behavior.
type NetworkConfig struct {
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout"`
	UserAgent string        `mapstructure:"user_agent" yaml:"user_agent"`
	// GraphQLRatePerSec throttles TweetDetail calls. This is politeness, not
	// retry policy; a failed call is never re-attempted.
	GraphQLRatePerSec float64 `mapstructure:"graphql_rate_per_sec" yaml:"graphql_rate_per_sec"`
}

// ServerConfig configures the local session channel endpoint.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// SetDefaults registers every default value with viper. Called before the
// config file and environment are read so both can override.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.service_name", "birdclip")
	v.SetDefault("logger.max_size", 10)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 28)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")

	v.SetDefault("browser.devtools_url", "http://127.0.0.1:9222")
	v.SetDefault("browser.probe_timeout", 15*time.Second)

	v.SetDefault("store.driver", "sqlite")

	v.SetDefault("network.timeout", 30*time.Second)
	v.SetDefault("network.user_agent",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("network.graphql_rate_per_sec", 1.0)

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 8377)
}

// Validate checks the configuration for values the rest of the program
// cannot work with, and resolves the data directory and sqlite path.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverSQLite, StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown store driver %q (want sqlite, postgres, or memory)", c.Store.Driver)
	}
	if c.Store.Driver == StoreDriverPostgres && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required when store.driver is postgres")
	}

	if c.Store.DataDir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return fmt.Errorf("resolving home directory: %w", err)
		}
		c.Store.DataDir = filepath.Join(home, ".birdclip")
	}
	if c.Store.Driver == StoreDriverSQLite && c.Store.Path == "" {
		c.Store.Path = filepath.Join(c.Store.DataDir, "birdclip.db")
	}

	if c.Browser.DevToolsURL == "" {
		return fmt.Errorf("browser.devtools_url must not be empty")
	}
	if c.Browser.ProbeTimeout <= 0 {
		c.Browser.ProbeTimeout = 15 * time.Second
	}
	if c.Network.Timeout <= 0 {
		c.Network.Timeout = 30 * time.Second
	}
	if c.Network.GraphQLRatePerSec <= 0 {
		c.Network.GraphQLRatePerSec = 1.0
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	return nil
}
