package commonGo

import "time"

// FileLoggingHandler defines the file logging component behavior
type FileLoggingHandler interface {
	ChangeFileLifeSpan(newDuration time.Duration, newSizeInMB uint64) error
	Close() error
	IsInterfaceNil() bool
}
