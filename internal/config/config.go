// Package config loads engine configuration from a config file, environment
// variables, and defaults.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// Config holds everything the engine needs to run.
type Config struct {
	// DataDir is where the local store database lives.
	DataDir string `mapstructure:"dataDir"`
	// DatabaseFile is the store filename inside DataDir.
	DatabaseFile string `mapstructure:"databaseFile"`

	// RemoteBaseURL is the base URL of the remote sync API.
	RemoteBaseURL string `mapstructure:"remoteBaseUrl"`
	// APIToken authenticates against the remote sync API.
	APIToken string `mapstructure:"apiToken"`
	// RequestTimeout bounds each remote call.
	RequestTimeout time.Duration `mapstructure:"requestTimeout"`

	// FreshnessTTL is how long cached scopes stay fresh.
	FreshnessTTL time.Duration `mapstructure:"freshnessTtl"`

	// ProbeAddress is the host:port the connectivity probe dials.
	ProbeAddress string `mapstructure:"probeAddress"`
	// ProbeInterval is the time between connectivity probes.
	ProbeInterval time.Duration `mapstructure:"probeInterval"`

	// CleanupSchedule is the cron expression for regatta cache cleanup.
	CleanupSchedule string `mapstructure:"cleanupSchedule"`

	// LogFormat is "text" or "json".
	LogFormat string `mapstructure:"logFormat"`
	// Debug enables debug logging.
	Debug bool `mapstructure:"debug"`
}

// DatabasePath is the full path of the store database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, c.DatabaseFile)
}

// Loader reads and merges configuration from its sources.
type Loader struct {
	configFile string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithConfigFile sets an explicit configuration file path.
func WithConfigFile(configFile string) LoaderOption {
	return func(l *Loader) {
		l.configFile = configFile
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the configuration. Environment variables use the SHORELINE_
// prefix with underscores (for example SHORELINE_REMOTE_BASE_URL).
func (l *Loader) Load() (*Config, error) {
	v := viper.New()

	v.SetEnvPrefix("SHORELINE")
	v.AutomaticEnv()

	v.SetDefault("dataDir", filepath.Join(xdg.DataHome, "shoreline"))
	v.SetDefault("databaseFile", "shoreline.db")
	v.SetDefault("requestTimeout", 15*time.Second)
	v.SetDefault("freshnessTtl", 24*time.Hour)
	v.SetDefault("probeAddress", "1.1.1.1:443")
	v.SetDefault("probeInterval", 30*time.Second)
	v.SetDefault("cleanupSchedule", "0 4 * * *")
	v.SetDefault("logFormat", "text")

	bindEnvs(v)

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", l.configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(filepath.Join(xdg.ConfigHome, "shoreline"))
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("config: read: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &cfg, nil
}

func bindEnvs(v *viper.Viper) {
	for key, env := range map[string]string{
		"dataDir":         "SHORELINE_DATA_DIR",
		"databaseFile":    "SHORELINE_DATABASE_FILE",
		"remoteBaseUrl":   "SHORELINE_REMOTE_BASE_URL",
		"apiToken":        "SHORELINE_API_TOKEN",
		"requestTimeout":  "SHORELINE_REQUEST_TIMEOUT",
		"freshnessTtl":    "SHORELINE_FRESHNESS_TTL",
		"probeAddress":    "SHORELINE_PROBE_ADDRESS",
		"probeInterval":   "SHORELINE_PROBE_INTERVAL",
		"cleanupSchedule": "SHORELINE_CLEANUP_SCHEDULE",
		"logFormat":       "SHORELINE_LOG_FORMAT",
		"debug":           "SHORELINE_DEBUG",
	} {
		_ = v.BindEnv(key, env)
	}
}
