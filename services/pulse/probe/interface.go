package probe

import (
	"github.com/iulianpascalau/api-pulse/services/pulse/common"
	"github.com/iulianpascalau/api-pulse/services/pulse/registry"
)

// PayloadProvider defines the source of caller-provided payload overrides
type PayloadProvider interface {
	Get(endpointID string) (*common.ProbePayload, bool)
	IsInterfaceNil() bool
}

// PayloadBuilder defines the fallback payload synthesizer
type PayloadBuilder interface {
	Build(endpoint registry.EndpointInfo) *common.ProbePayload
	IsInterfaceNil() bool
}

// JobRecorder defines the optional sink persisting finished probe jobs
type JobRecorder interface {
	SaveJob(job common.ProbeJob) error
	IsInterfaceNil() bool
}
