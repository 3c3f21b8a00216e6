package testsCommon

import (
	"github.com/iulianpascalau/api-pulse/services/pulse/common"
	"github.com/iulianpascalau/api-pulse/services/pulse/registry"
)

// PayloadBuilderStub -
type PayloadBuilderStub struct {
	BuildHandler func(endpoint registry.EndpointInfo) *common.ProbePayload
}

// Build -
func (stub *PayloadBuilderStub) Build(endpoint registry.EndpointInfo) *common.ProbePayload {
	if stub.BuildHandler != nil {
		return stub.BuildHandler(endpoint)
	}

	return &common.ProbePayload{
		PathParams: make(map[string]interface{}),
		Query:      make(map[string]interface{}),
		Headers:    make(map[string]interface{}),
		Source:     common.PayloadSourceGenerated,
	}
}

// IsInterfaceNil -
func (stub *PayloadBuilderStub) IsInterfaceNil() bool {
	return stub == nil
}
