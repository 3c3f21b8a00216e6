package probe

import "errors"

// ErrCooldownActive signals that a probe was requested before the minimum interval elapsed
var ErrCooldownActive = errors.New("probe cooldown active")

// ErrTooManyJobs signals that the concurrent jobs cap is reached
var ErrTooManyJobs = errors.New("too many concurrent probe jobs")

// ErrJobNotFound signals an unknown probe job id
var ErrJobNotFound = errors.New("probe job not found")

var (
	errNilHandler = errors.New("nil application handler")
	errNilStore   = errors.New("nil payload store")
	errNilBuilder = errors.New("nil payload builder")
)
