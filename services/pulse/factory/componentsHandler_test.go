package factory

import (
	"net/http"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/iulianpascalau/api-pulse/services/pulse/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSpecDocument = `{
  "openapi": "3.0.0",
  "paths": {
    "/": {"get": {"summary": "Banner"}},
    "/items/{item_id}": {
      "get": {
        "parameters": [
          {"name": "item_id", "in": "path", "required": true, "schema": {"type": "integer"}}
        ]
      }
    }
  }
}`

func createTestArgs(t *testing.T) ArgsComponentsHandler {
	gin.SetMode(gin.TestMode)
	app := gin.New()
	app.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	tempDir := t.TempDir()

	return ArgsComponentsHandler{
		App: app,
		Config: config.Config{
			ListenAddress: "127.0.0.1:0",
			PayloadFile:   filepath.Join(tempDir, "payloads.json"),
			Metrics: config.MetricsConfig{
				WindowSeconds: 300,
				BucketSeconds: 60,
				MaxEndpoints:  100,
			},
			SLA: config.SLAConfig{
				P95LatencyMs:     500,
				ErrorRatePercent: 5,
			},
			Probe: config.ProbeConfig{
				MinIntervalInSeconds:    30,
				MaxConcurrentJobs:       2,
				MaxConcurrentRequests:   5,
				RequestTimeoutInSeconds: 10,
				JobTimeoutInSeconds:     120,
			},
			History: config.HistoryConfig{
				DBPath:           filepath.Join(tempDir, "history.db"),
				RetentionSeconds: 3600,
			},
		},
		SpecDocument: []byte(testSpecDocument),
	}
}

func TestNewComponentsHandler(t *testing.T) {
	t.Run("nil application engine should error", func(t *testing.T) {
		args := createTestArgs(t)
		args.App = nil

		components, err := NewComponentsHandler(args)
		assert.Nil(t, components)
		assert.ErrorContains(t, err, "nil application engine")
	})
	t.Run("invalid metrics config should error", func(t *testing.T) {
		args := createTestArgs(t)
		args.Config.Metrics.WindowSeconds = 0

		components, err := NewComponentsHandler(args)
		assert.Nil(t, components)
		assert.NotNil(t, err)
	})
	t.Run("empty payload file should error", func(t *testing.T) {
		args := createTestArgs(t)
		args.Config.PayloadFile = ""

		components, err := NewComponentsHandler(args)
		assert.Nil(t, components)
		assert.NotNil(t, err)
	})
	t.Run("should work without a history archive", func(t *testing.T) {
		args := createTestArgs(t)
		args.Config.History.DBPath = ""

		components, err := NewComponentsHandler(args)
		require.NoError(t, err)
		require.NotNil(t, components)
		components.Close()
	})
	t.Run("should work", func(t *testing.T) {
		args := createTestArgs(t)

		components, err := NewComponentsHandler(args)
		require.NoError(t, err)
		require.NotNil(t, components)

		assert.NotNil(t, components.GetServer())
		assert.NotNil(t, components.GetProber())
		assert.NotNil(t, components.GetRegistry())
		assert.NotNil(t, components.GetMetrics())

		assert.Len(t, components.GetRegistry().ListEndpoints(), 2)
		assert.Len(t, components.GetRegistry().AutoProbeTargets(), 1)

		components.Close()
	})
}

func TestComponentsHandler_StartAndClose(t *testing.T) {
	args := createTestArgs(t)

	components, err := NewComponentsHandler(args)
	require.NoError(t, err)

	components.Start()
	assert.NotEmpty(t, components.GetServer().Address())

	components.Close()
}

func TestComponentsHandler_StartWithAutoProbe(t *testing.T) {
	args := createTestArgs(t)
	args.Config.Probe.AutoProbeIntervalInSeconds = 3600

	components, err := NewComponentsHandler(args)
	require.NoError(t, err)

	components.Start()
	components.Close()
}
