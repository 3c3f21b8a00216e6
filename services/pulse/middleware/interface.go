package middleware

// RequestRecorder defines the sink for per-request measurements
type RequestRecorder interface {
	// RecordRequest records one request's outcome. Must accept any input shape
	// without failing
	RecordRequest(endpoint string, method string, statusCode int, durationMs float64, correlationID string)

	IsInterfaceNil() bool
}
