package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iulianpascalau/api-pulse/services/pulse/common"
	"github.com/iulianpascalau/api-pulse/services/pulse/config"
	"github.com/iulianpascalau/api-pulse/services/pulse/payloadstore"
	"github.com/iulianpascalau/api-pulse/services/pulse/probe"
	"github.com/iulianpascalau/api-pulse/services/pulse/registry"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("pulse/api")

const (
	healthStatusHealthy  = "healthy"
	healthStatusDegraded = "degraded"
	defaultHistoryLimit  = 20
	maxHistoryLimit      = 100
)

// ArgsPulseGroup defines the monitoring routes group arguments
type ArgsPulseGroup struct {
	Metrics  MetricsProvider
	Registry EndpointsRegistry
	Prober   ProbeHandler
	Store    PayloadStorer
	Builder  PayloadBuilder
	History  HistoryProvider
	SLA      config.SLAConfig
}

// pulseGroup mounts the monitoring surface under /health/pulse on the
// application's engine. The routes themselves are excluded from tracking by
// the interception layer, they never pollute the metrics they expose
type pulseGroup struct {
	metrics  MetricsProvider
	registry EndpointsRegistry
	prober   ProbeHandler
	store    PayloadStorer
	builder  PayloadBuilder
	history  HistoryProvider
	sla      config.SLAConfig
}

// NewPulseGroup creates a new monitoring routes group
func NewPulseGroup(args ArgsPulseGroup) (*pulseGroup, error) {
	if check.IfNil(args.Metrics) {
		return nil, errNilMetrics
	}
	if check.IfNil(args.Registry) {
		return nil, errNilRegistry
	}
	if check.IfNil(args.Prober) {
		return nil, errNilProber
	}
	if check.IfNil(args.Store) {
		return nil, errNilStore
	}
	if check.IfNil(args.Builder) {
		return nil, errNilBuilder
	}

	return &pulseGroup{
		metrics:  args.Metrics,
		registry: args.Registry,
		prober:   args.Prober,
		store:    args.Store,
		builder:  args.Builder,
		history:  args.History,
		sla:      args.SLA,
	}, nil
}

// RegisterRoutes mounts the monitoring routes on the given engine
func (pg *pulseGroup) RegisterRoutes(router gin.IRouter) {
	group := router.Group("/health/pulse")

	group.GET("", pg.handleHealth)
	group.GET("/endpoints", pg.handleEndpoints)
	group.GET("/openapi.json", pg.handleDocument)
	group.POST("/probe", pg.handleStartProbe)
	group.GET("/probe/:jobID", pg.handleGetJob)
	group.GET("/payloads", pg.handleListPayloads)
	group.PUT("/payloads/*endpointID", pg.handleSetPayload)
	group.DELETE("/payloads/*endpointID", pg.handleDeletePayload)
	group.GET("/history", pg.handleHistory)
}

// handleHealth returns the live metrics snapshot together with the SLA verdict
func (pg *pulseGroup) handleHealth(c *gin.Context) {
	snapshot := pg.metrics.Snapshot()
	sla := pg.computeSLA(snapshot.Summary)

	status := healthStatusHealthy
	if !sla.OverallSLAMet {
		status = healthStatusDegraded
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"metrics":   snapshot,
		"sla":       sla,
	})
}

// computeSLA derives the compliance verdict from the summary. A missing p95
// means not enough traffic to judge, which counts as met
func (pg *pulseGroup) computeSLA(summary common.MetricsSummary) common.SLACompliance {
	compliance := common.SLACompliance{
		LatencySLAMet:   true,
		ErrorRateSLAMet: summary.ErrorRate <= pg.sla.ErrorRatePercent,
		Details: common.SLADetails{
			P95ResponseTime:    summary.P95ResponseTime,
			ErrorRate:          summary.ErrorRate,
			P95ResponseTimeSLA: pg.sla.P95LatencyMs,
			ErrorRateSLA:       pg.sla.ErrorRatePercent,
		},
	}

	if summary.P95ResponseTime != nil {
		compliance.LatencySLAMet = *summary.P95ResponseTime <= pg.sla.P95LatencyMs
	}
	compliance.OverallSLAMet = compliance.LatencySLAMet && compliance.ErrorRateSLAMet

	return compliance
}

// handleDocument serves the raw OpenAPI document the catalog was parsed from,
// so the dashboard and external tooling read the same schema the prober uses
func (pg *pulseGroup) handleDocument(c *gin.Context) {
	doc := pg.registry.Document()
	if len(doc) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"detail": "No schema available"})
		return
	}

	c.Data(http.StatusOK, "application/json", doc)
}

type endpointView struct {
	registry.EndpointInfo
	PayloadSource string              `json:"payload_source"`
	LastProbe     *common.ProbeResult `json:"last_probe"`
}

// handleEndpoints lists the discovered endpoints with their probe readiness
// and the outcome of the most recent probe job
func (pg *pulseGroup) handleEndpoints(c *gin.Context) {
	endpoints := pg.registry.ListEndpoints()

	lastResults := make(map[string]common.ProbeResult)
	lastJob, found := pg.prober.LastJob()
	if found {
		lastResults = lastJob.Results
	}

	autoProbed := 0
	requiresInput := 0
	views := make([]endpointView, 0, len(endpoints))
	for _, endpoint := range endpoints {
		if endpoint.RequiresInput {
			requiresInput++
		} else {
			autoProbed++
		}

		view := endpointView{
			EndpointInfo:  endpoint,
			PayloadSource: pg.payloadSource(endpoint),
		}
		result, has := lastResults[endpoint.ID]
		if !has {
			// never probed
			result = common.ProbeResult{
				EndpointID: endpoint.ID,
				Method:     endpoint.Method,
				Path:       endpoint.Path,
				Status:     common.ResultStatusUnknown,
			}
		}
		view.LastProbe = &result
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{
		"endpoints": views,
		"summary": gin.H{
			"total":          len(endpoints),
			"auto_probed":    autoProbed,
			"requires_input": requiresInput,
		},
	})
}

func (pg *pulseGroup) payloadSource(endpoint registry.EndpointInfo) string {
	_, hasCustom := pg.store.Get(endpoint.ID)
	if hasCustom {
		return common.PayloadSourceCustom
	}
	if pg.builder.Build(endpoint) != nil {
		return common.PayloadSourceGenerated
	}

	return common.PayloadSourceNone
}

type startProbeRequest struct {
	Endpoints []string `json:"endpoints"`
}

// handleStartProbe schedules a probe job. Without an explicit target list the
// job covers every endpoint probeable without caller input
func (pg *pulseGroup) handleStartProbe(c *gin.Context) {
	request := startProbeRequest{}
	if c.Request.ContentLength > 0 {
		err := c.ShouldBindJSON(&request)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid request body"})
			return
		}
	}

	var targets []registry.EndpointInfo
	if len(request.Endpoints) == 0 {
		targets = pg.registry.AutoProbeTargets()
	} else {
		endpointMap := pg.registry.EndpointMap()
		missing := make([]string, 0)
		for _, endpointID := range request.Endpoints {
			endpoint, found := endpointMap[endpointID]
			if !found {
				missing = append(missing, endpointID)
				continue
			}
			targets = append(targets, endpoint)
		}
		if len(missing) > 0 {
			c.JSON(http.StatusNotFound, gin.H{
				"detail": gin.H{
					"message":           "Endpoint not found",
					"missing_endpoints": missing,
				},
			})
			return
		}
	}

	jobID, err := pg.prober.StartProbe(targets)
	if err != nil {
		pg.respondProbeError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": jobID,
		"status": common.JobStatusQueued,
		"total":  len(targets),
	})
}

func (pg *pulseGroup) respondProbeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, probe.ErrCooldownActive), errors.Is(err, probe.ErrTooManyJobs):
		c.JSON(http.StatusConflict, gin.H{"detail": err.Error()})
	default:
		log.Error("failed to start probe job", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to start probe job"})
	}
}

func (pg *pulseGroup) handleGetJob(c *gin.Context) {
	job, err := pg.prober.GetJob(c.Param("jobID"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Probe job not found"})
		return
	}

	c.JSON(http.StatusOK, job)
}

func (pg *pulseGroup) handleListPayloads(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"payloads": pg.store.All()})
}

// endpointIDParam extracts the endpoint id from the catch-all parameter, the
// id itself contains slashes ("GET /items/{item_id}")
func endpointIDParam(c *gin.Context) string {
	return strings.TrimPrefix(c.Param("endpointID"), "/")
}

func (pg *pulseGroup) handleSetPayload(c *gin.Context) {
	endpointID := endpointIDParam(c)

	_, known := pg.registry.EndpointMap()[endpointID]
	if !known {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Endpoint not found"})
		return
	}

	payload := &common.ProbePayload{}
	err := c.ShouldBindJSON(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid payload body"})
		return
	}

	err = pg.store.Set(endpointID, payload)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, payloadstore.ErrInvalidEndpointID) {
			status = http.StatusBadRequest
		}
		if errors.Is(err, payloadstore.ErrPayloadTooLarge) || errors.Is(err, payloadstore.ErrStorageFull) {
			status = http.StatusRequestEntityTooLarge
		}
		c.JSON(status, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"endpoint_id": endpointID, "source": common.PayloadSourceCustom})
}

func (pg *pulseGroup) handleDeletePayload(c *gin.Context) {
	endpointID := endpointIDParam(c)

	_, known := pg.registry.EndpointMap()[endpointID]
	if !known {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Endpoint not found"})
		return
	}

	err := pg.store.Delete(endpointID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"endpoint_id": endpointID, "deleted": true})
}

// handleHistory lists the archived probe jobs, newest first. Without a
// configured archive the listing is empty, not an error
func (pg *pulseGroup) handleHistory(c *gin.Context) {
	limit := defaultHistoryLimit
	if rawLimit := c.Query("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid limit"})
			return
		}
		if parsed > maxHistoryLimit {
			parsed = maxHistoryLimit
		}
		limit = parsed
	}

	if check.IfNil(pg.history) {
		c.JSON(http.StatusOK, gin.H{"jobs": []common.ProbeJob{}})
		return
	}

	jobs, err := pg.history.ListRecent(c.Request.Context(), limit)
	if err != nil {
		log.Error("failed to list probe history", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "Failed to list probe history"})
		return
	}
	if jobs == nil {
		jobs = []common.ProbeJob{}
	}

	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// IsInterfaceNil returns true if the value under the interface is nil
func (pg *pulseGroup) IsInterfaceNil() bool {
	return pg == nil
}
