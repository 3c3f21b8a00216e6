package factory

import (
	"context"

	"github.com/iulianpascalau/api-pulse/services/pulse/common"
)

// Server defines the web server behavior
type Server interface {
	Start()
	Address() string
	Close() error
	IsInterfaceNil() bool
}

// HistoryStorer defines the probe jobs archive behavior
type HistoryStorer interface {
	SaveJob(job common.ProbeJob) error
	ListRecent(ctx context.Context, limit int) ([]common.ProbeJob, error)
	Close() error
	IsInterfaceNil() bool
}
