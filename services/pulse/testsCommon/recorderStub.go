package testsCommon

// RecorderStub -
type RecorderStub struct {
	RecordRequestHandler func(endpoint string, method string, statusCode int, durationMs float64, correlationID string)
}

// RecordRequest -
func (stub *RecorderStub) RecordRequest(endpoint string, method string, statusCode int, durationMs float64, correlationID string) {
	if stub.RecordRequestHandler != nil {
		stub.RecordRequestHandler(endpoint, method, statusCode, durationMs, correlationID)
	}
}

// IsInterfaceNil -
func (stub *RecorderStub) IsInterfaceNil() bool {
	return stub == nil
}
