package config

import (
	"net/url"
	"os"
	"strings"

	"github.com/fracarlesi/piano-excel-sub003/pkg/utils"
)

// SettingSource represents where an effective setting comes from.
type SettingSource string

const (
	SourceEnv     SettingSource = "env"
	SourceConfig  SettingSource = "config"
	SourceDefault SettingSource = "default"
)

// SettingStatus describes one effective setting for the status command.
type SettingStatus struct {
	Name   string        `json:"name"`
	Key    string        `json:"key"`
	Source SettingSource `json:"source"`
	Value  string        `json:"value"`
}

// CheckSettings reports the market assumptions and inputs a projection run
// depends on, and where each one was set.
func CheckSettings(cfg *Config) []SettingStatus {
	def := Default()
	return []SettingStatus{
		checkSetting("Rate source", "rates.source", cfg.Rates.Source, def.Rates.Source),
		checkSetting("Rate feed", "rates.feed_url", maskURL(cfg.Rates.FeedURL), maskURL(def.Rates.FeedURL)),
		checkSetting("Reference rate", "rates.reference_rate", pct(cfg.Rates.ReferenceRate), pct(def.Rates.ReferenceRate)),
		checkSetting("Fixed reference rate", "rates.fixed_reference_rate", pct(cfg.Rates.FixedReferenceRate), pct(def.Rates.FixedReferenceRate)),
		checkSetting("Cost of funds", "rates.cost_of_funds", pct(cfg.Rates.CostOfFunds), pct(def.Rates.CostOfFunds)),
		checkSetting("Portfolio file", "portfolio.file", cfg.Portfolio.File, def.Portfolio.File),
	}
}

// EnvVar returns the environment variable that overrides key.
func EnvVar(key string) string {
	return EnvPrefix + "_" + envKeyReplacer.Replace(strings.ToUpper(key))
}

// checkSetting decides the source: env wins, then any value that differs
// from the built-in default.
func checkSetting(name, key, value, def string) SettingStatus {
	status := SettingStatus{Name: name, Key: key, Value: value}
	switch {
	case os.Getenv(EnvVar(key)) != "":
		status.Source = SourceEnv
	case value != def:
		status.Source = SourceConfig
	default:
		status.Source = SourceDefault
	}
	return status
}

func pct(v float64) string {
	return utils.FormatPct(v)
}

// maskURL drops credentials and the query string from a feed URL.
func maskURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "***"
	}
	u.User = nil
	if u.RawQuery != "" {
		u.RawQuery = "***"
	}
	return u.String()
}
