package testsCommon

import (
	"github.com/iulianpascalau/api-pulse/services/pulse/registry"
)

// RegistryStub -
type RegistryStub struct {
	ListEndpointsHandler    func() []registry.EndpointInfo
	EndpointMapHandler      func() map[string]registry.EndpointInfo
	AutoProbeTargetsHandler func() []registry.EndpointInfo
	DocumentHandler         func() []byte
}

// ListEndpoints -
func (stub *RegistryStub) ListEndpoints() []registry.EndpointInfo {
	if stub.ListEndpointsHandler != nil {
		return stub.ListEndpointsHandler()
	}

	return make([]registry.EndpointInfo, 0)
}

// EndpointMap -
func (stub *RegistryStub) EndpointMap() map[string]registry.EndpointInfo {
	if stub.EndpointMapHandler != nil {
		return stub.EndpointMapHandler()
	}

	return make(map[string]registry.EndpointInfo)
}

// AutoProbeTargets -
func (stub *RegistryStub) AutoProbeTargets() []registry.EndpointInfo {
	if stub.AutoProbeTargetsHandler != nil {
		return stub.AutoProbeTargetsHandler()
	}

	return make([]registry.EndpointInfo, 0)
}

// Document -
func (stub *RegistryStub) Document() []byte {
	if stub.DocumentHandler != nil {
		return stub.DocumentHandler()
	}

	return nil
}

// IsInterfaceNil -
func (stub *RegistryStub) IsInterfaceNil() bool {
	return stub == nil
}
