package testsCommon

import (
	"github.com/iulianpascalau/api-pulse/services/pulse/common"
	"github.com/iulianpascalau/api-pulse/services/pulse/registry"
)

// ProberStub -
type ProberStub struct {
	StartProbeHandler func(targets []registry.EndpointInfo) (string, error)
	GetJobHandler     func(jobID string) (common.ProbeJob, error)
	LastJobHandler    func() (common.ProbeJob, bool)
}

// StartProbe -
func (stub *ProberStub) StartProbe(targets []registry.EndpointInfo) (string, error) {
	if stub.StartProbeHandler != nil {
		return stub.StartProbeHandler(targets)
	}

	return "job-1", nil
}

// GetJob -
func (stub *ProberStub) GetJob(jobID string) (common.ProbeJob, error) {
	if stub.GetJobHandler != nil {
		return stub.GetJobHandler(jobID)
	}

	return common.ProbeJob{}, nil
}

// LastJob -
func (stub *ProberStub) LastJob() (common.ProbeJob, bool) {
	if stub.LastJobHandler != nil {
		return stub.LastJobHandler()
	}

	return common.ProbeJob{}, false
}

// IsInterfaceNil -
func (stub *ProberStub) IsInterfaceNil() bool {
	return stub == nil
}
