package testsCommon

import (
	"github.com/iulianpascalau/api-pulse/services/pulse/common"
)

// MetricsProviderStub -
type MetricsProviderStub struct {
	SnapshotHandler func() common.MetricsSnapshot
}

// Snapshot -
func (stub *MetricsProviderStub) Snapshot() common.MetricsSnapshot {
	if stub.SnapshotHandler != nil {
		return stub.SnapshotHandler()
	}

	return common.MetricsSnapshot{
		RequestCounts:   make(map[string]int64),
		ErrorCounts:     make(map[string]int64),
		EndpointMetrics: make(map[string]common.EndpointMetrics),
		StatusCodes:     make(map[string]map[int]int64),
	}
}

// IsInterfaceNil -
func (stub *MetricsProviderStub) IsInterfaceNil() bool {
	return stub == nil
}
