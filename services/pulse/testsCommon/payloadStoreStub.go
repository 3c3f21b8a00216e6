package testsCommon

import (
	"github.com/iulianpascalau/api-pulse/services/pulse/common"
)

// PayloadStoreStub -
type PayloadStoreStub struct {
	GetHandler    func(endpointID string) (*common.ProbePayload, bool)
	SetHandler    func(endpointID string, payload *common.ProbePayload) error
	DeleteHandler func(endpointID string) error
	AllHandler    func() map[string]*common.ProbePayload
}

// Get -
func (stub *PayloadStoreStub) Get(endpointID string) (*common.ProbePayload, bool) {
	if stub.GetHandler != nil {
		return stub.GetHandler(endpointID)
	}

	return nil, false
}

// Set -
func (stub *PayloadStoreStub) Set(endpointID string, payload *common.ProbePayload) error {
	if stub.SetHandler != nil {
		return stub.SetHandler(endpointID, payload)
	}

	return nil
}

// Delete -
func (stub *PayloadStoreStub) Delete(endpointID string) error {
	if stub.DeleteHandler != nil {
		return stub.DeleteHandler(endpointID)
	}

	return nil
}

// All -
func (stub *PayloadStoreStub) All() map[string]*common.ProbePayload {
	if stub.AllHandler != nil {
		return stub.AllHandler()
	}

	return make(map[string]*common.ProbePayload)
}

// IsInterfaceNil -
func (stub *PayloadStoreStub) IsInterfaceNil() bool {
	return stub == nil
}
