package api

import (
	"context"

	"github.com/iulianpascalau/api-pulse/services/pulse/common"
	"github.com/iulianpascalau/api-pulse/services/pulse/registry"
)

// MetricsProvider defines the read side of the metrics aggregator
type MetricsProvider interface {
	// Snapshot returns an immutable-at-call-time copy of the aggregator state
	Snapshot() common.MetricsSnapshot

	IsInterfaceNil() bool
}

// EndpointsRegistry defines the read side of the endpoint catalog
type EndpointsRegistry interface {
	ListEndpoints() []registry.EndpointInfo
	EndpointMap() map[string]registry.EndpointInfo
	AutoProbeTargets() []registry.EndpointInfo
	Document() []byte
	IsInterfaceNil() bool
}

// ProbeHandler defines the probe scheduler operations used by the handlers
type ProbeHandler interface {
	// StartProbe schedules a new asynchronous probe job over the targets
	StartProbe(targets []registry.EndpointInfo) (string, error)

	// GetJob returns a copy of the job state
	GetJob(jobID string) (common.ProbeJob, error)

	// LastJob returns a copy of the most recently scheduled job, if any
	LastJob() (common.ProbeJob, bool)

	IsInterfaceNil() bool
}

// PayloadStorer defines the payload overrides persistence operations
type PayloadStorer interface {
	Get(endpointID string) (*common.ProbePayload, bool)
	Set(endpointID string, payload *common.ProbePayload) error
	Delete(endpointID string) error
	All() map[string]*common.ProbePayload
	IsInterfaceNil() bool
}

// PayloadBuilder defines the payload synthesizer used for the endpoints listing
type PayloadBuilder interface {
	Build(endpoint registry.EndpointInfo) *common.ProbePayload
	IsInterfaceNil() bool
}

// HistoryProvider defines the read side of the probe jobs archive
type HistoryProvider interface {
	ListRecent(ctx context.Context, limit int) ([]common.ProbeJob, error)
	IsInterfaceNil() bool
}
