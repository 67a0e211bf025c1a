// Package config handles configuration loading for creditplan.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/fracarlesi/piano-excel-sub003/internal/product"
)

// EnvPrefix prefixes every environment override, e.g.
// CREDITPLAN_RATES_REFERENCE_RATE.
const EnvPrefix = "CREDITPLAN"

// DefaultConfigFile is where SaveToFile writes when no file was loaded.
const DefaultConfigFile = "config/config.yaml"

// Config represents the complete application configuration.
type Config struct {
	Engine    EngineConfig    `mapstructure:"engine"    yaml:"engine"    json:"engine"`
	Rates     RatesConfig     `mapstructure:"rates"     yaml:"rates"     json:"rates"`
	Portfolio PortfolioConfig `mapstructure:"portfolio" yaml:"portfolio" json:"portfolio"`
	API       APIConfig       `mapstructure:"api"       yaml:"api"       json:"api"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"   json:"logging"`
}

// EngineConfig holds projection engine settings.
type EngineConfig struct {
	Workers   int `mapstructure:"workers"    yaml:"workers"    json:"workers"`    // products projected in parallel, 0 = NumCPU
	CacheTTL  int `mapstructure:"cache_ttl"  yaml:"cache_ttl"  json:"cache_ttl"`  // seconds a projection stays retrievable
	StartYear int `mapstructure:"start_year" yaml:"start_year" json:"start_year"` // calendar year of quarter 0
}

// RatesConfig holds the market assumptions and where they come from.
type RatesConfig struct {
	Source             string  `mapstructure:"source"               yaml:"source"               json:"source"` // "static" or "feed"
	FeedURL            string  `mapstructure:"feed_url"             yaml:"feed_url"             json:"feed_url"`
	FeedTimeout        int     `mapstructure:"feed_timeout"         yaml:"feed_timeout"         json:"feed_timeout"` // seconds
	ReferenceRate      float64 `mapstructure:"reference_rate"       yaml:"reference_rate"       json:"reference_rate"`
	FixedReferenceRate float64 `mapstructure:"fixed_reference_rate" yaml:"fixed_reference_rate" json:"fixed_reference_rate"`
	CostOfFunds        float64 `mapstructure:"cost_of_funds"        yaml:"cost_of_funds"        json:"cost_of_funds"`
}

// Globals returns the configured market snapshot.
func (r RatesConfig) Globals() product.Globals {
	return product.Globals{
		ReferenceRate:      r.ReferenceRate,
		FixedReferenceRate: r.FixedReferenceRate,
		CostOfFunds:        r.CostOfFunds,
	}
}

// PortfolioConfig points at the product assumption file.
type PortfolioConfig struct {
	File string `mapstructure:"file" yaml:"file" json:"file"`
}

// APIConfig holds HTTP API server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"         json:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"         json:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins" json:"cors_origins"`
	RateLimit   int      `mapstructure:"rate_limit"   yaml:"rate_limit"   json:"rate_limit"` // projections per minute
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"  json:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "text" or "json"
}

var (
	activeMu   sync.RWMutex
	activeFile string
)

// ConfigFilePath returns the config file loaded last, or DefaultConfigFile
// when configuration came from defaults and environment only.
func ConfigFilePath() string {
	activeMu.RLock()
	defer activeMu.RUnlock()
	if activeFile == "" {
		return DefaultConfigFile
	}
	return activeFile
}

func setActiveFile(path string) {
	activeMu.Lock()
	activeFile = path
	activeMu.Unlock()
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.creditplan/config.yaml (home directory)
//  3. /etc/creditplan/config.yaml (system)
//
// Environment variables override config file values.
// Format: CREDITPLAN_<SECTION>_<KEY>, e.g., CREDITPLAN_ENGINE_WORKERS
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".creditplan"))
	v.AddConfigPath("/etc/creditplan")

	// Read config file (not required to exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	setActiveFile(v.ConfigFileUsed())
	return unmarshal(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	setActiveFile(path)
	return unmarshal(v)
}

// SaveToFile writes cfg as YAML to path, creating parent directories.
func SaveToFile(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("error writing config file %s: %w", path, err)
	}
	return nil
}

// Default returns the built-in configuration, ignoring files and environment.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

var envKeyReplacer = strings.NewReplacer(".", "_")

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that have a closed set of values.
func (c *Config) Validate() error {
	switch c.Rates.Source {
	case "static", "feed":
	default:
		return fmt.Errorf("rates.source must be static or feed, got %q", c.Rates.Source)
	}
	if c.Rates.Source == "feed" && c.Rates.FeedURL == "" {
		return fmt.Errorf("rates.feed_url is required when rates.source is feed")
	}
	if c.Engine.Workers < 0 {
		return fmt.Errorf("engine.workers must not be negative, got %d", c.Engine.Workers)
	}
	return nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// Engine defaults
	v.SetDefault("engine.workers", 0)
	v.SetDefault("engine.cache_ttl", 3600) // 1 hour
	v.SetDefault("engine.start_year", 2025)

	// Rates defaults (annual percentages)
	v.SetDefault("rates.source", "static")
	v.SetDefault("rates.feed_url", "")
	v.SetDefault("rates.feed_timeout", 10)
	v.SetDefault("rates.reference_rate", 3.0)       // Euribor 3M
	v.SetDefault("rates.fixed_reference_rate", 2.5) // EUR swap
	v.SetDefault("rates.cost_of_funds", 3.5)

	// Portfolio defaults
	v.SetDefault("portfolio.file", "config/portfolio.yaml")

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("api.rate_limit", 60)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
