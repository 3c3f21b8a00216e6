package payloadstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/iulianpascalau/api-pulse/services/pulse/common"
	logger "github.com/multiversx/mx-chain-logger-go"
)

var log = logger.GetOrCreate("pulse/payloadstore")

const (
	maxPayloadSizeBytes  = 1 << 20
	maxTotalStorageBytes = 10 << 20
	tempFileSuffix       = ".tmp"
	storeFilePerm        = 0644
	storeDirPerm         = 0755
)

var endpointIDPattern = regexp.MustCompile(`^[A-Z]+ /[a-zA-Z0-9/_{}.-]*$`)

// payloadStore persists caller-provided probe payload overrides in one flat
// JSON file. Writes go through a temp file plus rename so a crash mid-write
// never corrupts the previous state
type payloadStore struct {
	mut      sync.RWMutex
	filePath string
	payloads map[string]*common.ProbePayload
}

// NewPayloadStore creates the store and loads the existing file, if any.
// A corrupted or unreadable file is logged and replaced by an empty store
func NewPayloadStore(filePath string) (*payloadStore, error) {
	if filePath == "" {
		return nil, fmt.Errorf("empty payload store file path")
	}

	ps := &payloadStore{
		filePath: filePath,
		payloads: make(map[string]*common.ProbePayload),
	}
	ps.load()

	return ps, nil
}

func (ps *payloadStore) load() {
	data, err := os.ReadFile(ps.filePath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn("could not read payload store file, starting empty",
				"file", ps.filePath, "error", err)
		}
		return
	}

	loaded := make(map[string]*common.ProbePayload)
	err = json.Unmarshal(data, &loaded)
	if err != nil {
		log.Warn("corrupted payload store file, starting empty",
			"file", ps.filePath, "error", err)
		return
	}

	for endpointID, payload := range loaded {
		if payload == nil {
			continue
		}
		payload.Source = common.PayloadSourceCustom
		ps.payloads[endpointID] = payload
	}
}

// Set validates and stores a payload override for the endpoint, then flushes
// the whole store to disk
func (ps *payloadStore) Set(endpointID string, payload *common.ProbePayload) error {
	if !endpointIDPattern.MatchString(endpointID) {
		return fmt.Errorf("%w: %q", ErrInvalidEndpointID, endpointID)
	}
	if payload == nil {
		return fmt.Errorf("%w: %q", ErrInvalidEndpointID, endpointID)
	}

	sanitized := sanitize(payload)
	serialized, err := json.Marshal(sanitized)
	if err != nil {
		return err
	}
	if len(serialized) > maxPayloadSizeBytes {
		return fmt.Errorf("%w: %d bytes, max %d", ErrPayloadTooLarge, len(serialized), maxPayloadSizeBytes)
	}

	ps.mut.Lock()
	defer ps.mut.Unlock()

	previous, hadPrevious := ps.payloads[endpointID]
	ps.payloads[endpointID] = sanitized

	err = ps.flush()
	if err != nil {
		if hadPrevious {
			ps.payloads[endpointID] = previous
		} else {
			delete(ps.payloads, endpointID)
		}
		return err
	}

	return nil
}

// Delete removes the override for the endpoint. Removing a missing entry is a
// no-op so the operation stays idempotent
func (ps *payloadStore) Delete(endpointID string) error {
	ps.mut.Lock()
	defer ps.mut.Unlock()

	previous, found := ps.payloads[endpointID]
	if !found {
		return nil
	}

	delete(ps.payloads, endpointID)
	err := ps.flush()
	if err != nil {
		ps.payloads[endpointID] = previous
		return err
	}

	return nil
}

// Get returns a copy of the override for the endpoint, if one exists
func (ps *payloadStore) Get(endpointID string) (*common.ProbePayload, bool) {
	ps.mut.RLock()
	defer ps.mut.RUnlock()

	payload, found := ps.payloads[endpointID]
	if !found {
		return nil, false
	}

	return payload.Clone(), true
}

// All returns a copy of every stored override keyed by endpoint id
func (ps *payloadStore) All() map[string]*common.ProbePayload {
	ps.mut.RLock()
	defer ps.mut.RUnlock()

	all := make(map[string]*common.ProbePayload, len(ps.payloads))
	for endpointID, payload := range ps.payloads {
		all[endpointID] = payload.Clone()
	}

	return all
}

// flush writes the whole store atomically. Called with the write lock held
func (ps *payloadStore) flush() error {
	data, err := json.MarshalIndent(ps.payloads, "", "  ")
	if err != nil {
		return err
	}
	if len(data) > maxTotalStorageBytes {
		return fmt.Errorf("%w: %d bytes, max %d", ErrStorageFull, len(data), maxTotalStorageBytes)
	}

	err = os.MkdirAll(filepath.Dir(ps.filePath), storeDirPerm)
	if err != nil {
		return err
	}

	tempPath := ps.filePath + tempFileSuffix
	err = os.WriteFile(tempPath, data, storeFilePerm)
	if err != nil {
		return err
	}

	return os.Rename(tempPath, ps.filePath)
}

// sanitize copies the payload keeping only the transferable fields and marks it
// as a caller-provided override
func sanitize(payload *common.ProbePayload) *common.ProbePayload {
	cloned := payload.Clone()
	cloned.Source = common.PayloadSourceCustom

	return cloned
}

// IsInterfaceNil returns true if the value under the interface is nil
func (ps *payloadStore) IsInterfaceNil() bool {
	return ps == nil
}
