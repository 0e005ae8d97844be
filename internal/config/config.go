// Package config loads wiresift settings from TOML.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Analysis AnalysisConfig `toml:"analysis"`
	Anomaly  AnomalyConfig  `toml:"anomaly"`
	Capture  CaptureConfig  `toml:"capture"`
	Log      LogConfig      `toml:"log"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Report   ReportConfig   `toml:"report"`
}

type AnalysisConfig struct {
	PrintAnalysis bool `toml:"print_analysis"`
	// DomainLogSize bounds the recent-query ring buffer.
	DomainLogSize int `toml:"domain_log_size"`
	// UniqueDomainCapacity sizes the bloom filter used to count distinct
	// query names.
	UniqueDomainCapacity uint    `toml:"unique_domain_capacity"`
	UniqueDomainFPRate   float64 `toml:"unique_domain_fp_rate"`
}

type AnomalyConfig struct {
	LongNameThreshold  int `toml:"long_name_threshold"`
	QueryRateThreshold int `toml:"query_rate_threshold"`
	MalformedThreshold int `toml:"malformed_threshold"`
	CooldownSeconds    int `toml:"cooldown_seconds"`
	MaxAlerts          int `toml:"max_alerts"`
}

type CaptureConfig struct {
	File      string `toml:"file"`
	Interface string `toml:"interface"`
	Filter    string `toml:"filter"`
	SnapLen   int    `toml:"snaplen"`
	Promisc   bool   `toml:"promisc"`
}

type LogConfig struct {
	Level   string `toml:"level"`
	NoColor bool   `toml:"no_color"`
}

type MetricsConfig struct {
	Addr string `toml:"addr"`
}

type ReportConfig struct {
	Format string `toml:"format"`
	Dir    string `toml:"dir"`
}

// DefaultCaptureFile is read when neither a file nor an interface is set.
const DefaultCaptureFile = "./pcaps/ssh_test.pcap"

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Analysis: AnalysisConfig{
			DomainLogSize:        50,
			UniqueDomainCapacity: 1 << 20,
			UniqueDomainFPRate:   0.01,
		},
		Anomaly: AnomalyConfig{
			LongNameThreshold:  100,
			QueryRateThreshold: 200,
			MalformedThreshold: 50,
			CooldownSeconds:    10,
			MaxAlerts:          20,
		},
		Capture: CaptureConfig{
			SnapLen: 65536,
			Promisc: true,
		},
		Log: LogConfig{
			Level: "info",
		},
		Report: ReportConfig{
			Format: "text",
			Dir:    ".",
		},
	}
}

// Load reads path on top of Default. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the analysis cannot run with.
func (c Config) Validate() error {
	if c.Capture.File != "" && c.Capture.Interface != "" {
		return fmt.Errorf("%w: capture file and interface are mutually exclusive", ErrInvalidConfig)
	}
	if c.Analysis.DomainLogSize <= 0 {
		return fmt.Errorf("%w: domain_log_size must be positive", ErrInvalidConfig)
	}
	if c.Analysis.UniqueDomainCapacity == 0 {
		return fmt.Errorf("%w: unique_domain_capacity must be positive", ErrInvalidConfig)
	}
	if c.Analysis.UniqueDomainFPRate <= 0 || c.Analysis.UniqueDomainFPRate >= 1 {
		return fmt.Errorf("%w: unique_domain_fp_rate must be in (0, 1)", ErrInvalidConfig)
	}
	if c.Anomaly.LongNameThreshold <= 0 || c.Anomaly.QueryRateThreshold <= 0 || c.Anomaly.MalformedThreshold <= 0 {
		return fmt.Errorf("%w: anomaly thresholds must be positive", ErrInvalidConfig)
	}
	if c.Anomaly.MaxAlerts <= 0 {
		return fmt.Errorf("%w: max_alerts must be positive", ErrInvalidConfig)
	}
	switch strings.ToLower(c.Report.Format) {
	case "text", "html", "none":
	default:
		return fmt.Errorf("%w: unsupported report format %q", ErrInvalidConfig, c.Report.Format)
	}
	return nil
}
