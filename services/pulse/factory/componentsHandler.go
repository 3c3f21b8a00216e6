package factory

import (
	"context"
	"errors"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/iulianpascalau/api-pulse/commonGo"
	"github.com/iulianpascalau/api-pulse/services/pulse/api"
	"github.com/iulianpascalau/api-pulse/services/pulse/config"
	"github.com/iulianpascalau/api-pulse/services/pulse/history"
	"github.com/iulianpascalau/api-pulse/services/pulse/metrics"
	"github.com/iulianpascalau/api-pulse/services/pulse/middleware"
	"github.com/iulianpascalau/api-pulse/services/pulse/payloadstore"
	"github.com/iulianpascalau/api-pulse/services/pulse/probe"
	"github.com/iulianpascalau/api-pulse/services/pulse/registry"
	"github.com/iulianpascalau/api-pulse/services/pulse/sample"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("pulse/factory")

const (
	pulseRoutesPrefix  = "/health/pulse"
	dashboardMountPath = "/pulse"
)

// ArgsComponentsHandler defines the components handler arguments. App is the
// host application engine the monitoring layer instruments
type ArgsComponentsHandler struct {
	App          *gin.Engine
	Config       config.Config
	SpecDocument []byte
}

// componentsHandler assembles and owns the whole monitoring layer: the
// aggregator, the interception middleware, the catalog, the probe scheduler,
// the optional history archive and the web server hosting the application
type componentsHandler struct {
	cfg        config.Config
	metrics    api.MetricsProvider
	server     Server
	history    HistoryStorer
	prober     api.ProbeHandler
	registry   api.EndpointsRegistry
	cancelFunc context.CancelFunc
}

// NewComponentsHandler creates and wires all monitoring components
func NewComponentsHandler(args ArgsComponentsHandler) (*componentsHandler, error) {
	if args.App == nil {
		return nil, errors.New("nil application engine")
	}

	cfg := args.Config

	pulseMetrics, err := metrics.NewPulseMetrics(metrics.ArgsPulseMetrics{
		WindowSeconds: cfg.Metrics.WindowSeconds,
		BucketSeconds: cfg.Metrics.BucketSeconds,
		MaxEndpoints:  cfg.Metrics.MaxEndpoints,
	})
	if err != nil {
		return nil, err
	}

	excludePrefixes := append([]string{pulseRoutesPrefix, dashboardMountPath}, cfg.ExcludePathPrefixes...)
	interceptor, err := middleware.NewPulseMiddleware(middleware.ArgsPulseMiddleware{
		Metrics:               pulseMetrics,
		ExcludePathPrefixes:   excludePrefixes,
		EnableDetailedLogging: cfg.EnableDetailedLogging,
	})
	if err != nil {
		return nil, err
	}

	args.App.Use(newCORSHandler(cfg.AllowedOrigins))
	args.App.Use(interceptor.Handle())

	endpointsRegistry := registry.NewEndpointRegistry(excludePrefixes)
	endpointsRegistry.Refresh(args.SpecDocument)

	payloadBuilder := sample.NewPayloadBuilder(args.SpecDocument)

	store, err := payloadstore.NewPayloadStore(cfg.PayloadFile)
	if err != nil {
		return nil, err
	}

	var jobsHistory HistoryStorer
	if cfg.History.DBPath != "" {
		jobsHistory, err = history.NewSQLiteHistory(cfg.History.DBPath, cfg.History.RetentionSeconds)
		if err != nil {
			return nil, err
		}
	}

	prober, err := probe.NewProbeManager(probe.ArgsProbeManager{
		Handler:               args.App,
		Store:                 store,
		Builder:               payloadBuilder,
		History:               jobsHistory,
		MinProbeInterval:      time.Duration(cfg.Probe.MinIntervalInSeconds) * time.Second,
		MaxConcurrentJobs:     cfg.Probe.MaxConcurrentJobs,
		MaxConcurrentRequests: cfg.Probe.MaxConcurrentRequests,
		RequestTimeout:        time.Duration(cfg.Probe.RequestTimeoutInSeconds) * time.Second,
		JobTimeout:            time.Duration(cfg.Probe.JobTimeoutInSeconds) * time.Second,
	})
	if err != nil {
		return nil, err
	}

	group, err := api.NewPulseGroup(api.ArgsPulseGroup{
		Metrics:  pulseMetrics,
		Registry: endpointsRegistry,
		Prober:   prober,
		Store:    store,
		Builder:  payloadBuilder,
		History:  jobsHistory,
		SLA:      cfg.SLA,
	})
	if err != nil {
		return nil, err
	}
	group.RegisterRoutes(args.App)

	if cfg.DashboardDir != "" {
		log.Info("serving dashboard files", "dir", cfg.DashboardDir)
		args.App.Static(dashboardMountPath, cfg.DashboardDir)
	}

	server, err := api.NewServer(api.ArgsWebServer{
		ListenAddress: cfg.ListenAddress,
		Handler:       args.App,
	})
	if err != nil {
		return nil, err
	}

	return &componentsHandler{
		cfg:      cfg,
		metrics:  pulseMetrics,
		server:   server,
		history:  jobsHistory,
		prober:   prober,
		registry: endpointsRegistry,
	}, nil
}

func newCORSHandler(allowedOrigins []string) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "X-Correlation-ID")

	return cors.New(corsConfig)
}

// GetServer returns the server component
func (ch *componentsHandler) GetServer() Server {
	return ch.server
}

// GetProber returns the probe scheduler component
func (ch *componentsHandler) GetProber() api.ProbeHandler {
	return ch.prober
}

// GetRegistry returns the endpoint catalog component
func (ch *componentsHandler) GetRegistry() api.EndpointsRegistry {
	return ch.registry
}

// GetMetrics returns the metrics aggregator component
func (ch *componentsHandler) GetMetrics() api.MetricsProvider {
	return ch.metrics
}

// Start starts the inner components, including the periodic auto-probe job
// when configured
func (ch *componentsHandler) Start() {
	ch.server.Start()

	autoProbeInterval := time.Duration(ch.cfg.Probe.AutoProbeIntervalInSeconds) * time.Second
	if autoProbeInterval == 0 {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch.cancelFunc = cancel
	commonGo.CronJobStarter(ctx, ch.runAutoProbe, autoProbeInterval)
}

func (ch *componentsHandler) runAutoProbe(_ context.Context) {
	targets := ch.registry.AutoProbeTargets()
	if len(targets) == 0 {
		return
	}

	jobID, err := ch.prober.StartProbe(targets)
	if err != nil {
		log.Debug("auto-probe skipped", "error", err)
		return
	}

	log.Debug("auto-probe started", "job id", jobID, "targets", len(targets))
}

// Close closes the inner components
func (ch *componentsHandler) Close() {
	if ch.cancelFunc != nil {
		ch.cancelFunc()
	}
	_ = ch.server.Close()
	if !check.IfNil(ch.history) {
		_ = ch.history.Close()
	}
}
