package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// MetricsConfig controls the rolling-window aggregation engine
type MetricsConfig struct {
	WindowSeconds int `toml:"WindowSeconds"`
	BucketSeconds int `toml:"BucketSeconds"`
	MaxEndpoints  int `toml:"MaxEndpoints"`
}

// SLAConfig holds the thresholds evaluated on the health endpoint
type SLAConfig struct {
	P95LatencyMs     float64 `toml:"P95LatencyMs"`
	ErrorRatePercent float64 `toml:"ErrorRatePercent"`
}

// ProbeConfig controls the synthetic probe scheduler
type ProbeConfig struct {
	MinIntervalInSeconds       uint32 `toml:"MinIntervalInSeconds"`
	MaxConcurrentJobs          int    `toml:"MaxConcurrentJobs"`
	MaxConcurrentRequests      int    `toml:"MaxConcurrentRequests"`
	RequestTimeoutInSeconds    uint32 `toml:"RequestTimeoutInSeconds"`
	JobTimeoutInSeconds        uint32 `toml:"JobTimeoutInSeconds"`
	AutoProbeIntervalInSeconds uint32 `toml:"AutoProbeIntervalInSeconds"`
}

// HistoryConfig controls the optional sqlite probe-job history. An empty DBPath
// disables persistence
type HistoryConfig struct {
	DBPath           string `toml:"DBPath"`
	RetentionSeconds int    `toml:"RetentionSeconds"`
}

// Config maps to the config.toml file for the pulse service
type Config struct {
	ListenAddress         string        `toml:"ListenAddress"`
	SpecFile              string        `toml:"SpecFile"`
	DashboardDir          string        `toml:"DashboardDir"`
	PayloadFile           string        `toml:"PayloadFile"`
	AllowedOrigins        []string      `toml:"AllowedOrigins"`
	EnableDetailedLogging bool          `toml:"EnableDetailedLogging"`
	ExcludePathPrefixes   []string      `toml:"ExcludePathPrefixes"`
	Metrics               MetricsConfig `toml:"Metrics"`
	SLA                   SLAConfig     `toml:"SLA"`
	Probe                 ProbeConfig   `toml:"Probe"`
	History               HistoryConfig `toml:"History"`
}

// LoadConfig parses a TOML file into the Config struct
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", filepath, err)
	}

	var cfg Config
	err = toml.Unmarshal(data, &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	return &cfg, nil
}
