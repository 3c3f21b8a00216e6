package metrics

import (
	"container/list"
	"fmt"
	"sync"
	"time"

	"github.com/iulianpascalau/api-pulse/services/pulse/common"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("pulse/metrics")

const (
	defaultWindowSeconds = 300
	defaultBucketSeconds = 60
	defaultMaxEndpoints  = 1000
)

// endpointRecord holds every per-key structure, so eviction can remove the key
// from all of them at once
type endpointRecord struct {
	key             string
	totalRequests   int64
	successCount    int64
	errorCount      int64
	statusCodes     map[int]int64
	latency         *rollingWindowDigest
	avgResponseTime float64
	p95ResponseTime float64
	p99ResponseTime float64
	lruElement      *list.Element
}

// ArgsPulseMetrics defines the aggregator arguments. Zero values select the
// defaults (300s window, 60s buckets, 1000 endpoints)
type ArgsPulseMetrics struct {
	WindowSeconds int
	BucketSeconds int
	MaxEndpoints  int
}

// pulseMetrics is the thread-safe request metrics aggregator with bounded
// memory. One exclusive critical section covers every mutation and every
// snapshot read: all operations are short and call frequency is bounded by the
// request rate, so a single lock beats fine-grained locking in complexity
type pulseMetrics struct {
	mut           sync.Mutex
	windowSeconds int
	bucketSeconds int
	maxEndpoints  int
	records       map[string]*endpointRecord
	lruOrder      *list.List
	globalLatency *rollingWindowDigest
	nowFunc       func() time.Time
}

// NewPulseMetrics creates a new metrics aggregator instance
func NewPulseMetrics(args ArgsPulseMetrics) (*pulseMetrics, error) {
	if args.WindowSeconds == 0 {
		args.WindowSeconds = defaultWindowSeconds
	}
	if args.BucketSeconds == 0 {
		args.BucketSeconds = defaultBucketSeconds
	}
	if args.MaxEndpoints == 0 {
		args.MaxEndpoints = defaultMaxEndpoints
	}
	if args.WindowSeconds < 0 || args.BucketSeconds < 0 {
		return nil, fmt.Errorf("invalid window configuration: window %d, bucket %d", args.WindowSeconds, args.BucketSeconds)
	}
	if args.MaxEndpoints < 1 {
		return nil, fmt.Errorf("invalid max endpoints value: %d", args.MaxEndpoints)
	}

	return &pulseMetrics{
		windowSeconds: args.WindowSeconds,
		bucketSeconds: args.BucketSeconds,
		maxEndpoints:  args.MaxEndpoints,
		records:       make(map[string]*endpointRecord),
		lruOrder:      list.New(),
		globalLatency: newRollingWindowDigest(args.WindowSeconds, args.BucketSeconds),
		nowFunc:       time.Now,
	}, nil
}

// RecordRequest records one request's outcome under the "<METHOD> <endpoint>"
// key. It always succeeds: empty paths, negative durations and out-of-range
// status codes are recorded as given
func (pm *pulseMetrics) RecordRequest(endpoint string, method string, statusCode int, durationMs float64, _ string) {
	pm.mut.Lock()
	defer pm.mut.Unlock()

	now := pm.nowFunc()
	key := method + " " + endpoint

	record, found := pm.records[key]
	if !found {
		if len(pm.records) >= pm.maxEndpoints {
			pm.evictOldest()
		}

		record = &endpointRecord{
			key:         key,
			statusCodes: make(map[int]int64),
			latency:     newRollingWindowDigest(pm.windowSeconds, pm.bucketSeconds),
		}
		record.lruElement = pm.lruOrder.PushBack(record)
		pm.records[key] = record
	} else {
		pm.lruOrder.MoveToBack(record.lruElement)
	}

	record.totalRequests++
	record.statusCodes[statusCode]++
	if statusCode >= 400 {
		record.errorCount++
	} else {
		record.successCount++
	}

	record.latency.Add(durationMs, now)
	pm.globalLatency.Add(durationMs, now)

	record.avgResponseTime = record.latency.Mean(now)
	if p95, ok := record.latency.Percentile(95, now); ok {
		record.p95ResponseTime = p95
	}
	if p99, ok := record.latency.Percentile(99, now); ok {
		record.p99ResponseTime = p99
	}
}

// evictOldest removes the least-recently-touched key from every storage
// structure. Called with the lock held. The access-ordered list makes the
// choice deterministic and O(1)
func (pm *pulseMetrics) evictOldest() {
	front := pm.lruOrder.Front()
	if front == nil {
		return
	}

	record := front.Value.(*endpointRecord)
	pm.lruOrder.Remove(front)
	delete(pm.records, record.key)

	log.Debug("evicted endpoint metrics due to max endpoints limit",
		"endpoint", record.key, "max endpoints", pm.maxEndpoints)
}

// Snapshot returns an immutable-at-call-time copy of the aggregator state
func (pm *pulseMetrics) Snapshot() common.MetricsSnapshot {
	pm.mut.Lock()
	defer pm.mut.Unlock()

	now := pm.nowFunc()
	snapshot := common.MetricsSnapshot{
		RequestCounts:   make(map[string]int64, len(pm.records)),
		ErrorCounts:     make(map[string]int64, len(pm.records)),
		EndpointMetrics: make(map[string]common.EndpointMetrics, len(pm.records)),
		StatusCodes:     make(map[string]map[int]int64, len(pm.records)),
	}

	var totalRequests int64
	var totalErrors int64
	for key, record := range pm.records {
		totalRequests += record.totalRequests
		totalErrors += record.errorCount

		snapshot.RequestCounts[key] = record.totalRequests
		snapshot.ErrorCounts[key] = record.errorCount
		snapshot.EndpointMetrics[key] = common.EndpointMetrics{
			TotalRequests:   record.totalRequests,
			SuccessCount:    record.successCount,
			ErrorCount:      record.errorCount,
			AvgResponseTime: record.avgResponseTime,
			P95ResponseTime: record.p95ResponseTime,
			P99ResponseTime: record.p99ResponseTime,
			WindowSeconds:   pm.windowSeconds,
		}

		statusCopy := make(map[int]int64, len(record.statusCodes))
		for code, count := range record.statusCodes {
			statusCopy[code] = count
		}
		snapshot.StatusCodes[key] = statusCopy
	}

	snapshot.Summary = pm.computeSummary(totalRequests, totalErrors, now)

	return snapshot
}

func (pm *pulseMetrics) computeSummary(totalRequests int64, totalErrors int64, now time.Time) common.MetricsSummary {
	windowCount := pm.globalLatency.Count(now)

	summary := common.MetricsSummary{
		TotalRequests:      totalRequests,
		TotalErrors:        totalErrors,
		AvgResponseTime:    pm.globalLatency.Mean(now),
		WindowSeconds:      pm.windowSeconds,
		WindowRequestCount: windowCount,
	}

	if totalRequests > 0 {
		summary.ErrorRate = float64(totalErrors) / float64(totalRequests) * 100
		successRate := 100.0 - summary.ErrorRate
		if successRate < 0 {
			successRate = 0
		}
		summary.SuccessRate = &successRate
	}

	if pm.windowSeconds > 0 {
		summary.RequestsPerMinute = float64(windowCount) / float64(pm.windowSeconds) * 60
	}

	if p50, ok := pm.globalLatency.Percentile(50, now); ok {
		summary.P50ResponseTime = &p50
	}
	if p95, ok := pm.globalLatency.Percentile(95, now); ok {
		summary.P95ResponseTime = &p95
	}
	if p99, ok := pm.globalLatency.Percentile(99, now); ok {
		summary.P99ResponseTime = &p99
	}

	return summary
}

// IsInterfaceNil returns true if the value under the interface is nil
func (pm *pulseMetrics) IsInterfaceNil() bool {
	return pm == nil
}
