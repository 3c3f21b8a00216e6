package probe

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/iulianpascalau/api-pulse/services/pulse/common"
	"github.com/iulianpascalau/api-pulse/services/pulse/registry"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("pulse/probe")

const (
	defaultMinProbeInterval      = 30 * time.Second
	defaultMaxConcurrentJobs     = 2
	defaultMaxConcurrentRequests = 5
	defaultRequestTimeout        = 10 * time.Second
	defaultJobTimeout            = 2 * time.Minute
	defaultSlowThresholdMs       = 1000.0
	probeMarkerHeader            = "X-Pulse-Probe"
	jsonMediaType                = "application/json"
)

// ArgsProbeManager defines the probe scheduler arguments. Zero durations and
// counts select the defaults
type ArgsProbeManager struct {
	Handler               http.Handler
	Store                 PayloadProvider
	Builder               PayloadBuilder
	History               JobRecorder
	MinProbeInterval      time.Duration
	MaxConcurrentJobs     int
	MaxConcurrentRequests int
	RequestTimeout        time.Duration
	JobTimeout            time.Duration
	SlowThresholdMs       float64
}

type jobState struct {
	job  *common.ProbeJob
	done chan struct{}
}

// probeManager runs active health checks against the wrapped application
// without leaving the process: requests are dispatched straight into the
// application handler through an in-memory transport. One goroutine per job,
// a semaphore bounds the per-job request fan-out
type probeManager struct {
	mut                   sync.Mutex
	handler               http.Handler
	store                 PayloadProvider
	builder               PayloadBuilder
	history               JobRecorder
	minProbeInterval      time.Duration
	maxConcurrentJobs     int
	maxConcurrentRequests int
	requestTimeout        time.Duration
	jobTimeout            time.Duration
	slowThresholdMs       float64
	client                *http.Client
	jobs                  map[string]*jobState
	lastJobID             string
	lastStart             time.Time
	activeJobs            int
}

// NewProbeManager creates a new probe manager instance
func NewProbeManager(args ArgsProbeManager) (*probeManager, error) {
	if args.Handler == nil {
		return nil, errNilHandler
	}
	if check.IfNil(args.Store) {
		return nil, errNilStore
	}
	if check.IfNil(args.Builder) {
		return nil, errNilBuilder
	}

	if args.MinProbeInterval == 0 {
		args.MinProbeInterval = defaultMinProbeInterval
	}
	if args.MaxConcurrentJobs == 0 {
		args.MaxConcurrentJobs = defaultMaxConcurrentJobs
	}
	if args.MaxConcurrentRequests == 0 {
		args.MaxConcurrentRequests = defaultMaxConcurrentRequests
	}
	if args.RequestTimeout == 0 {
		args.RequestTimeout = defaultRequestTimeout
	}
	if args.JobTimeout == 0 {
		args.JobTimeout = defaultJobTimeout
	}
	if args.SlowThresholdMs == 0 {
		args.SlowThresholdMs = defaultSlowThresholdMs
	}

	return &probeManager{
		handler:               args.Handler,
		store:                 args.Store,
		builder:               args.Builder,
		history:               args.History,
		minProbeInterval:      args.MinProbeInterval,
		maxConcurrentJobs:     args.MaxConcurrentJobs,
		maxConcurrentRequests: args.MaxConcurrentRequests,
		requestTimeout:        args.RequestTimeout,
		jobTimeout:            args.JobTimeout,
		slowThresholdMs:       args.SlowThresholdMs,
		client: &http.Client{
			Transport: &handlerTransport{handler: args.Handler},
		},
		jobs: make(map[string]*jobState),
	}, nil
}

// StartProbe schedules a new probe job over the given targets and returns its
// id immediately. The job runs asynchronously
func (pm *probeManager) StartProbe(targets []registry.EndpointInfo) (string, error) {
	pm.mut.Lock()
	defer pm.mut.Unlock()

	sinceLast := time.Since(pm.lastStart)
	if !pm.lastStart.IsZero() && sinceLast < pm.minProbeInterval {
		return "", fmt.Errorf("%w: retry in %.0fs", ErrCooldownActive, (pm.minProbeInterval - sinceLast).Seconds())
	}
	if pm.activeJobs >= pm.maxConcurrentJobs {
		return "", fmt.Errorf("%w: %d running", ErrTooManyJobs, pm.activeJobs)
	}

	jobID := newJobID()
	job := &common.ProbeJob{
		JobID:     jobID,
		Status:    common.JobStatusQueued,
		Total:     len(targets),
		Results:   make(map[string]common.ProbeResult, len(targets)),
		CreatedAt: time.Now(),
	}
	for _, target := range targets {
		job.Results[target.ID] = common.ProbeResult{
			EndpointID: target.ID,
			Method:     target.Method,
			Path:       target.Path,
			Status:     common.ResultStatusQueued,
		}
	}

	state := &jobState{
		job:  job,
		done: make(chan struct{}),
	}
	pm.jobs[jobID] = state
	pm.lastJobID = jobID
	pm.lastStart = time.Now()
	pm.activeJobs++

	go pm.runJob(state, targets)

	log.Debug("probe job scheduled", "job id", jobID, "targets", len(targets))

	return jobID, nil
}

func (pm *probeManager) runJob(state *jobState, targets []registry.EndpointInfo) {
	ctx, cancel := context.WithTimeout(context.Background(), pm.jobTimeout)
	defer cancel()

	defer func() {
		r := recover()
		if r != nil {
			log.Error("probe job panicked", "job id", state.job.JobID, "reason", r)
			pm.finishJob(state, common.JobStatusFailed)
			return
		}

		status := common.JobStatusCompleted
		if ctx.Err() == context.DeadlineExceeded {
			status = common.JobStatusTimeout
		}
		pm.finishJob(state, status)
	}()

	pm.mut.Lock()
	state.job.Status = common.JobStatusRunning
	pm.mut.Unlock()

	pm.executeBatch(ctx, state, targets)
}

func (pm *probeManager) finishJob(state *jobState, status string) {
	pm.mut.Lock()
	state.job.Status = status
	pm.activeJobs--
	snapshot := state.job.Clone()
	pm.mut.Unlock()

	close(state.done)

	if !check.IfNil(pm.history) {
		err := pm.history.SaveJob(snapshot)
		if err != nil {
			log.Warn("could not persist probe job", "job id", snapshot.JobID, "error", err)
		}
	}

	log.Debug("probe job finished", "job id", snapshot.JobID, "status", status,
		"completed", snapshot.Completed, "total", snapshot.Total)
}

// executeBatch fans the targets out across a bounded number of workers. When
// the job deadline hits, targets not yet picked up stay queued while in-flight
// requests surface the cancellation as a critical result
func (pm *probeManager) executeBatch(ctx context.Context, state *jobState, targets []registry.EndpointInfo) {
	semaphore := make(chan struct{}, pm.maxConcurrentRequests)
	wg := sync.WaitGroup{}

	for _, target := range targets {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case semaphore <- struct{}{}:
			// the slot may free up in the same instant the deadline fires,
			// never dispatch work on an expired job
			if ctx.Err() != nil {
				<-semaphore
				wg.Wait()
				return
			}
		}

		wg.Add(1)
		go func(target registry.EndpointInfo) {
			defer wg.Done()
			defer func() { <-semaphore }()

			result := pm.probeEndpoint(ctx, target)
			pm.storeResult(state, result)
		}(target)
	}

	wg.Wait()
}

func (pm *probeManager) storeResult(state *jobState, result common.ProbeResult) {
	pm.mut.Lock()
	defer pm.mut.Unlock()

	state.job.Results[result.EndpointID] = result
	state.job.Completed++
}

// probeEndpoint sends one request to the target and classifies the outcome:
// status >= 400 or a transport error is critical, a slow success is a warning,
// anything else is healthy. Targets without a usable payload are skipped
func (pm *probeManager) probeEndpoint(ctx context.Context, target registry.EndpointInfo) common.ProbeResult {
	result := common.ProbeResult{
		EndpointID: target.ID,
		Method:     target.Method,
		Path:       target.Path,
	}

	payload, skipReason := pm.preparePayload(target)
	if skipReason != "" {
		result.Status = common.ResultStatusSkipped
		result.Error = &skipReason
		return result
	}
	result.Payload = payload

	reqCtx, cancel := context.WithTimeout(ctx, pm.requestTimeout)
	defer cancel()

	req, err := pm.buildRequest(reqCtx, target, payload)
	if err != nil {
		message := err.Error()
		result.Status = common.ResultStatusSkipped
		result.Error = &message
		return result
	}

	start := time.Now()
	resp, err := pm.client.Do(req)
	latencyMs := float64(time.Since(start)) / float64(time.Millisecond)
	checkedAt := time.Now().UTC()
	result.LatencyMs = &latencyMs
	result.CheckedAt = &checkedAt

	if err != nil {
		message := err.Error()
		result.Status = common.ResultStatusCritical
		result.Error = &message
		return result
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	statusCode := resp.StatusCode
	result.StatusCode = &statusCode

	switch {
	case statusCode >= 400:
		result.Status = common.ResultStatusCritical
	case latencyMs >= pm.slowThresholdMs:
		result.Status = common.ResultStatusWarning
	default:
		result.Status = common.ResultStatusHealthy
	}

	return result
}

// preparePayload picks the caller-provided override when one exists, otherwise
// synthesizes one. It returns a skip reason when the target can not be probed
// meaningfully
func (pm *probeManager) preparePayload(target registry.EndpointInfo) (*common.ProbePayload, string) {
	payload, found := pm.store.Get(target.ID)
	if !found {
		payload = pm.builder.Build(target)
	}

	if payload == nil {
		return nil, "no payload available for required request body"
	}

	for _, param := range target.PathParameters {
		value, has := payload.PathParams[param.Name]
		if !has || value == nil {
			return nil, fmt.Sprintf("missing path parameter %q", param.Name)
		}
	}
	if target.HasRequestBody && payload.Body == nil {
		return nil, "no payload available for required request body"
	}

	return payload, ""
}

func (pm *probeManager) buildRequest(ctx context.Context, target registry.EndpointInfo, payload *common.ProbePayload) (*http.Request, error) {
	path := target.Path
	for name, value := range payload.PathParams {
		path = strings.ReplaceAll(path, "{"+name+"}", fmt.Sprintf("%v", value))
	}

	query := url.Values{}
	for name, value := range payload.Query {
		query.Set(name, fmt.Sprintf("%v", value))
	}

	targetURL := "http://pulse.internal" + path
	if len(query) > 0 {
		targetURL += "?" + query.Encode()
	}

	var body *bytes.Reader
	contentType := ""
	if payload.Body != nil {
		serialized, err := json.Marshal(payload.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(serialized)

		contentType = payload.MediaType
		if contentType == "" {
			contentType = jsonMediaType
		}
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, target.Method, targetURL, body)
	if err != nil {
		return nil, err
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set(probeMarkerHeader, "1")
	for name, value := range payload.Headers {
		req.Header.Set(name, fmt.Sprintf("%v", value))
	}

	return req, nil
}

// GetJob returns a copy of the job state
func (pm *probeManager) GetJob(jobID string) (common.ProbeJob, error) {
	pm.mut.Lock()
	defer pm.mut.Unlock()

	state, found := pm.jobs[jobID]
	if !found {
		return common.ProbeJob{}, ErrJobNotFound
	}

	return state.job.Clone(), nil
}

// LastJob returns a copy of the most recently scheduled job, if any
func (pm *probeManager) LastJob() (common.ProbeJob, bool) {
	pm.mut.Lock()
	defer pm.mut.Unlock()

	state, found := pm.jobs[pm.lastJobID]
	if !found {
		return common.ProbeJob{}, false
	}

	return state.job.Clone(), true
}

// WaitForCompletion blocks until the job reaches a terminal state and returns
// its final snapshot, or fails when the context expires first
func (pm *probeManager) WaitForCompletion(ctx context.Context, jobID string) (common.ProbeJob, error) {
	pm.mut.Lock()
	state, found := pm.jobs[jobID]
	pm.mut.Unlock()
	if !found {
		return common.ProbeJob{}, ErrJobNotFound
	}

	select {
	case <-ctx.Done():
		return common.ProbeJob{}, ctx.Err()
	case <-state.done:
	}

	pm.mut.Lock()
	defer pm.mut.Unlock()

	return state.job.Clone(), nil
}

// IsInterfaceNil returns true if the value under the interface is nil
func (pm *probeManager) IsInterfaceNil() bool {
	return pm == nil
}

func newJobID() string {
	buff := make([]byte, 16)
	_, _ = rand.Read(buff)

	return hex.EncodeToString(buff)
}

// handlerTransport dispatches requests straight into the wrapped handler, no
// socket involved. The handler runs on its own goroutine so a context
// cancellation can unblock the caller even if the handler hangs
type handlerTransport struct {
	handler http.Handler
}

// RoundTrip implements http.RoundTripper
func (ht *handlerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	recorder := httptest.NewRecorder()
	doneChan := make(chan struct{})

	go func() {
		defer func() {
			r := recover()
			if r != nil {
				recorder.Code = http.StatusInternalServerError
			}
			close(doneChan)
		}()

		ht.handler.ServeHTTP(recorder, req)
	}()

	select {
	case <-req.Context().Done():
		return nil, req.Context().Err()
	case <-doneChan:
	}

	return recorder.Result(), nil
}
