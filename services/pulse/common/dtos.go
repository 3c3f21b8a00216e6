package common

import "time"

// Probe job statuses. Terminal states (completed, failed, timeout) are absorbing.
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusTimeout   = "timeout"
)

// Probe result statuses for a single target within a job
const (
	ResultStatusQueued   = "queued"
	ResultStatusHealthy  = "healthy"
	ResultStatusWarning  = "warning"
	ResultStatusCritical = "critical"
	ResultStatusSkipped  = "skipped"
	ResultStatusUnknown  = "unknown"
)

// Payload sources reported on the endpoints listing
const (
	PayloadSourceCustom    = "custom"
	PayloadSourceGenerated = "generated"
	PayloadSourceNone      = "none"
)

// EndpointMetrics holds the per-endpoint aggregated values exposed in a snapshot
type EndpointMetrics struct {
	TotalRequests   int64   `json:"total_requests"`
	SuccessCount    int64   `json:"success_count"`
	ErrorCount      int64   `json:"error_count"`
	AvgResponseTime float64 `json:"avg_response_time"`
	P95ResponseTime float64 `json:"p95_response_time"`
	P99ResponseTime float64 `json:"p99_response_time"`
	WindowSeconds   int     `json:"window_seconds"`
}

// MetricsSummary aggregates the global view across all endpoints. The percentile
// fields are pointers: absent means "not enough samples in the window", which is
// different from a value of 0
type MetricsSummary struct {
	TotalRequests      int64    `json:"total_requests"`
	TotalErrors        int64    `json:"total_errors"`
	ErrorRate          float64  `json:"error_rate"`
	SuccessRate        *float64 `json:"success_rate"`
	AvgResponseTime    float64  `json:"avg_response_time"`
	WindowSeconds      int      `json:"window_seconds"`
	RequestsPerMinute  float64  `json:"requests_per_minute"`
	WindowRequestCount int64    `json:"window_request_count"`
	P50ResponseTime    *float64 `json:"p50_response_time,omitempty"`
	P95ResponseTime    *float64 `json:"p95_response_time,omitempty"`
	P99ResponseTime    *float64 `json:"p99_response_time,omitempty"`
}

// MetricsSnapshot is an immutable-at-call-time copy of the aggregator state
type MetricsSnapshot struct {
	RequestCounts   map[string]int64           `json:"request_counts"`
	ErrorCounts     map[string]int64           `json:"error_counts"`
	EndpointMetrics map[string]EndpointMetrics `json:"endpoint_metrics"`
	StatusCodes     map[string]map[int]int64   `json:"status_codes"`
	Summary         MetricsSummary             `json:"summary"`
}

// SLADetails carries the measured values next to their configured thresholds
type SLADetails struct {
	P95ResponseTime    *float64 `json:"p95_response_time"`
	ErrorRate          float64  `json:"error_rate"`
	P95ResponseTimeSLA float64  `json:"p95_response_time_sla"`
	ErrorRateSLA       float64  `json:"error_rate_sla"`
}

// SLACompliance is the verdict derived from the current snapshot
type SLACompliance struct {
	LatencySLAMet   bool       `json:"latency_sla_met"`
	ErrorRateSLAMet bool       `json:"error_rate_sla_met"`
	OverallSLAMet   bool       `json:"overall_sla_met"`
	Details         SLADetails `json:"details"`
}

// ProbePayload describes the inputs used when probing one endpoint. The same
// shape is persisted by the payload store (without the Source tag)
type ProbePayload struct {
	PathParams map[string]interface{} `json:"path_params"`
	Query      map[string]interface{} `json:"query"`
	Headers    map[string]interface{} `json:"headers"`
	Body       interface{}            `json:"body"`
	MediaType  string                 `json:"media_type,omitempty"`
	Source     string                 `json:"source,omitempty"`
}

// Clone returns a copy of the payload with its own maps. The body is shared,
// callers treat it as read-only
func (p *ProbePayload) Clone() *ProbePayload {
	if p == nil {
		return nil
	}

	cloned := &ProbePayload{
		PathParams: make(map[string]interface{}, len(p.PathParams)),
		Query:      make(map[string]interface{}, len(p.Query)),
		Headers:    make(map[string]interface{}, len(p.Headers)),
		Body:       p.Body,
		MediaType:  p.MediaType,
		Source:     p.Source,
	}
	for k, v := range p.PathParams {
		cloned.PathParams[k] = v
	}
	for k, v := range p.Query {
		cloned.Query[k] = v
	}
	for k, v := range p.Headers {
		cloned.Headers[k] = v
	}

	return cloned
}

// ProbeResult is the terminal (or still queued) outcome for one probed endpoint
type ProbeResult struct {
	EndpointID string        `json:"endpoint_id"`
	Method     string        `json:"method"`
	Path       string        `json:"path"`
	Status     string        `json:"status"`
	StatusCode *int          `json:"status_code"`
	LatencyMs  *float64      `json:"latency_ms"`
	Error      *string       `json:"error"`
	CheckedAt  *time.Time    `json:"checked_at"`
	Payload    *ProbePayload `json:"payload,omitempty"`
}

// ProbeJob is the full state of one probe batch
type ProbeJob struct {
	JobID     string                 `json:"job_id"`
	Status    string                 `json:"status"`
	Total     int                    `json:"total"`
	Completed int                    `json:"completed"`
	Results   map[string]ProbeResult `json:"results"`
	CreatedAt time.Time              `json:"created_at"`
}

// Clone returns a copy of the job with its own results map
func (j *ProbeJob) Clone() ProbeJob {
	cloned := *j
	cloned.Results = make(map[string]ProbeResult, len(j.Results))
	for k, v := range j.Results {
		cloned.Results[k] = v
	}

	return cloned
}
