package testsCommon

import (
	"context"

	"github.com/iulianpascalau/api-pulse/services/pulse/common"
)

// JobRecorderStub -
type JobRecorderStub struct {
	SaveJobHandler    func(job common.ProbeJob) error
	ListRecentHandler func(ctx context.Context, limit int) ([]common.ProbeJob, error)
	CloseHandler      func() error
}

// SaveJob -
func (stub *JobRecorderStub) SaveJob(job common.ProbeJob) error {
	if stub.SaveJobHandler != nil {
		return stub.SaveJobHandler(job)
	}

	return nil
}

// ListRecent -
func (stub *JobRecorderStub) ListRecent(ctx context.Context, limit int) ([]common.ProbeJob, error) {
	if stub.ListRecentHandler != nil {
		return stub.ListRecentHandler(ctx, limit)
	}

	return make([]common.ProbeJob, 0), nil
}

// Close -
func (stub *JobRecorderStub) Close() error {
	if stub.CloseHandler != nil {
		return stub.CloseHandler()
	}

	return nil
}

// IsInterfaceNil -
func (stub *JobRecorderStub) IsInterfaceNil() bool {
	return stub == nil
}
