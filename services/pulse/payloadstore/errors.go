package payloadstore

import "errors"

// ErrInvalidEndpointID signals that the endpoint id does not look like "<METHOD> /path"
var ErrInvalidEndpointID = errors.New("invalid endpoint id")

// ErrPayloadTooLarge signals that one serialized payload exceeds the per-entry cap
var ErrPayloadTooLarge = errors.New("payload too large")

// ErrStorageFull signals that saving would push the store past the total size cap
var ErrStorageFull = errors.New("payload storage full")
