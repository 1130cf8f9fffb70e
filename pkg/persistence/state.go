package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/stse-tools/stse-go/pkg/policy"
	"github.com/stse-tools/stse-go/pkg/stse"
)

// StateVersion is the current version of the state file format.
const StateVersion = 1

// ErrUnsupportedVersion is returned by Load for a state file written in
// another format version.
var ErrUnsupportedVersion = errors.New("persistence: unsupported state version")

// DeviceState is the saved state of one simulated device.
type DeviceState struct {
	// Version is the state file format version.
	Version int `json:"version"`

	// SavedAt is when the state was last saved.
	SavedAt time.Time `json:"saved_at"`

	// Address is the bus address the device answers on.
	Address uint8 `json:"address"`

	// ChangeRights are the table change rights.
	ChangeRights policy.ChangeRights `json:"change_rights"`

	// Commands is the command policy in table order.
	Commands []CommandState `json:"commands"`

	// Slots lists the key slots that have been written.
	Slots []SlotState `json:"slots,omitempty"`
}

// CommandState is the policy of one command.
type CommandState struct {
	Opcode          policy.Opcode          `json:"opcode"`
	AccessCondition policy.AccessCondition `json:"ac"`
	Encryption      policy.Encryption      `json:"encryption"`
}

// SlotState is a written key slot.
type SlotState struct {
	Slot   uint8                          `json:"slot"`
	Fields stse.ProvisioningControlFields `json:"fields"`
	Locked bool                           `json:"locked"`
}

// DeviceStateStore manages persistence of device state to a JSON file.
type DeviceStateStore struct {
	mu   sync.Mutex
	path string
}

// NewDeviceStateStore creates a new device state store.
func NewDeviceStateStore(path string) *DeviceStateStore {
	return &DeviceStateStore{path: path}
}

// Path returns the state file path.
func (s *DeviceStateStore) Path() string {
	return s.path
}

// Save persists the device state to disk. The file is replaced
// atomically.
func (s *DeviceStateStore) Save(state *DeviceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	state.Version = StateVersion
	state.SavedAt = time.Now()

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Load reads the device state from disk.
// Returns nil, nil if the file doesn't exist (factory state).
func (s *DeviceStateStore) Load() (*DeviceState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	state := &DeviceState{}
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("persistence: %s: %w", s.path, err)
	}
	if state.Version != StateVersion {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, state.Version)
	}
	return state, nil
}

// Clear removes the state file.
func (s *DeviceStateStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
