package config

import (
	"testing"

	"github.com/pelletier/go-toml"
	"github.com/stretchr/testify/assert"
)

func TestConfig(t *testing.T) {
	t.Parallel()

	testString := `
ListenAddress = "127.0.0.1:8080"
SpecFile = "./openapi.json"
DashboardDir = "./dashboard"
PayloadFile = "./pulse_payloads.json"
AllowedOrigins = ["http://localhost:3000"]
EnableDetailedLogging = true
ExcludePathPrefixes = ["/internal"]

[Metrics]
    WindowSeconds = 300
    BucketSeconds = 60
    MaxEndpoints = 1000

[SLA]
    P95LatencyMs = 500.0
    ErrorRatePercent = 5.0

[Probe]
    MinIntervalInSeconds = 30
    MaxConcurrentJobs = 3
    MaxConcurrentRequests = 5
    RequestTimeoutInSeconds = 10
    JobTimeoutInSeconds = 60
    AutoProbeIntervalInSeconds = 0

[History]
    DBPath = "./db/pulse_history.db"
    RetentionSeconds = 86400
`

	expectedCfg := Config{
		ListenAddress:         "127.0.0.1:8080",
		SpecFile:              "./openapi.json",
		DashboardDir:          "./dashboard",
		PayloadFile:           "./pulse_payloads.json",
		AllowedOrigins:        []string{"http://localhost:3000"},
		EnableDetailedLogging: true,
		ExcludePathPrefixes:   []string{"/internal"},
		Metrics: MetricsConfig{
			WindowSeconds: 300,
			BucketSeconds: 60,
			MaxEndpoints:  1000,
		},
		SLA: SLAConfig{
			P95LatencyMs:     500.0,
			ErrorRatePercent: 5.0,
		},
		Probe: ProbeConfig{
			MinIntervalInSeconds:       30,
			MaxConcurrentJobs:          3,
			MaxConcurrentRequests:      5,
			RequestTimeoutInSeconds:    10,
			JobTimeoutInSeconds:        60,
			AutoProbeIntervalInSeconds: 0,
		},
		History: HistoryConfig{
			DBPath:           "./db/pulse_history.db",
			RetentionSeconds: 86400,
		},
	}

	cfg := Config{}

	err := toml.Unmarshal([]byte(testString), &cfg)
	assert.Nil(t, err)
	assert.Equal(t, expectedCfg, cfg)
}
