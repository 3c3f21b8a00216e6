package middleware

import "errors"

var errNilMetrics = errors.New("nil metrics recorder")
