package api

import "errors"

var (
	errNilMetrics  = errors.New("nil metrics provider")
	errNilRegistry = errors.New("nil endpoints registry")
	errNilProber   = errors.New("nil probe handler")
	errNilStore    = errors.New("nil payload store")
	errNilBuilder  = errors.New("nil payload builder")
)
