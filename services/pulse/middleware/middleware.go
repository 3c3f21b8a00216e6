package middleware

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("pulse/middleware")

const (
	responseTimeHeader    = "X-Response-Time-Ms"
	correlationIDHeader   = "X-Correlation-ID"
	unknownCorrelationID  = "unknown"
	slowRequestMs         = 1000.0
	fallbackBody          = `{"detail":"Internal Server Error"}`
	fallbackContentType   = "application/json"
	failureStatusCode     = 500
	idPlaceholder         = "{id}"
	normalizedPathMaxSize = 512
)

var (
	uuidPattern    = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	numericPattern = regexp.MustCompile(`\d+`)
)

// ArgsPulseMiddleware defines the request interception layer arguments
type ArgsPulseMiddleware struct {
	Metrics               RequestRecorder
	ExcludePathPrefixes   []string
	EnableDetailedLogging bool
}

// pulseMiddleware wraps every inbound request: it measures the duration,
// normalizes the path to a cardinality-safe key and feeds the aggregator.
// Handler panics are converted into a fail-safe 500 response here, so the rest
// of the system never reasons about unhandled failures
type pulseMiddleware struct {
	metrics               RequestRecorder
	excludePathPrefixes   []string
	enableDetailedLogging bool
}

// NewPulseMiddleware creates a new request interception middleware
func NewPulseMiddleware(args ArgsPulseMiddleware) (*pulseMiddleware, error) {
	if check.IfNil(args.Metrics) {
		return nil, errNilMetrics
	}

	prefixes := make([]string, 0, len(args.ExcludePathPrefixes))
	for _, prefix := range args.ExcludePathPrefixes {
		if prefix != "/" {
			prefix = strings.TrimSuffix(prefix, "/")
		}
		if prefix != "" {
			prefixes = append(prefixes, prefix)
		}
	}

	return &pulseMiddleware{
		metrics:               args.Metrics,
		excludePathPrefixes:   prefixes,
		enableDetailedLogging: args.EnableDetailedLogging,
	}, nil
}

// Handle returns the gin handler performing the interception
func (pm *pulseMiddleware) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		// exclusion is checked strictly before any aggregator mutation so the
		// monitoring endpoints never monitor themselves
		if pm.shouldSkipTracking(path) {
			c.Next()
			return
		}

		start := time.Now()
		writer := &timingWriter{ResponseWriter: c.Writer, start: start}
		c.Writer = writer

		method := c.Request.Method
		correlationID := c.GetHeader(correlationIDHeader)
		if correlationID == "" {
			correlationID = unknownCorrelationID
		}

		defer func() {
			r := recover()
			if r == nil {
				return
			}

			durationMs := float64(time.Since(start)) / float64(time.Millisecond)
			if !writer.Written() {
				writer.Header().Set("Content-Type", fallbackContentType)
				writer.WriteHeader(failureStatusCode)
				_, _ = writer.Write([]byte(fallbackBody))
			}
			// if the response already started we can not send conflicting
			// status or headers, aborting terminates the body cleanly
			c.Abort()

			log.Error("request handler panicked", "method", method, "path", path, "reason", r)
			pm.record(path, method, failureStatusCode, durationMs, correlationID)
		}()

		c.Next()

		durationMs := float64(time.Since(start)) / float64(time.Millisecond)
		status := writer.Status()
		pm.record(path, method, status, durationMs, correlationID)

		if pm.enableDetailedLogging && (status >= failureStatusCode || durationMs >= slowRequestMs) {
			log.Warn("slow or failing request", "method", method, "path", path,
				"status", status, "duration ms", durationMs, "correlation id", correlationID)
		}
	}
}

func (pm *pulseMiddleware) record(path string, method string, status int, durationMs float64, correlationID string) {
	pm.metrics.RecordRequest(pm.normalizePath(path), method, status, durationMs, correlationID)
}

// normalizePath collapses variable path tokens (UUIDs, numeric ids) into a
// placeholder so /items/123 and /items/456 share one endpoint key. The result
// contains no digits, which makes the operation idempotent
func (pm *pulseMiddleware) normalizePath(path string) string {
	if len(path) > normalizedPathMaxSize {
		path = path[:normalizedPathMaxSize]
	}

	normalized := uuidPattern.ReplaceAllString(path, idPlaceholder)
	normalized = numericPattern.ReplaceAllString(normalized, idPlaceholder)

	return normalized
}

// shouldSkipTracking reports whether the path matches an excluded prefix,
// either exactly or up to the next path separator. A bare "/" exclusion only
// matches the literal root, never every path
func (pm *pulseMiddleware) shouldSkipTracking(path string) bool {
	for _, prefix := range pm.excludePathPrefixes {
		if prefix == "/" {
			if path == "/" {
				return true
			}
			continue
		}
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}

	return false
}

// IsInterfaceNil returns true if the value under the interface is nil
func (pm *pulseMiddleware) IsInterfaceNil() bool {
	return pm == nil
}

// timingWriter injects the measured duration header at the moment the response
// status is committed, the last point where headers can still be set
type timingWriter struct {
	gin.ResponseWriter
	start       time.Time
	headerAdded bool
}

func (tw *timingWriter) setDurationHeader() {
	if tw.headerAdded || tw.Written() {
		return
	}
	tw.headerAdded = true

	elapsedMs := float64(time.Since(tw.start)) / float64(time.Millisecond)
	tw.Header().Set(responseTimeHeader, strconv.FormatFloat(elapsedMs, 'f', 2, 64))
}

// WriteHeader sets the duration header before committing the status
func (tw *timingWriter) WriteHeader(code int) {
	tw.setDurationHeader()
	tw.ResponseWriter.WriteHeader(code)
}

// Write sets the duration header before the first body write
func (tw *timingWriter) Write(data []byte) (int, error) {
	tw.setDurationHeader()
	return tw.ResponseWriter.Write(data)
}

// WriteString sets the duration header before the first body write
func (tw *timingWriter) WriteString(data string) (int, error) {
	tw.setDurationHeader()
	return tw.ResponseWriter.WriteString(data)
}
