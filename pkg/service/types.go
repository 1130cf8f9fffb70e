package service

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/stse-tools/stse-go/pkg/log"
	"github.com/stse-tools/stse-go/pkg/policy"
	"github.com/stse-tools/stse-go/pkg/profile"
	"github.com/stse-tools/stse-go/pkg/provision"
	"github.com/stse-tools/stse-go/pkg/report"
	"github.com/stse-tools/stse-go/pkg/stse"
)

// Service errors.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrRunInProgress = errors.New("provisioning run in progress")
)

// RunState is the state of a provisioning run.
type RunState uint8

const (
	// StateInit - run created, device not yet initialized.
	StateInit RunState = iota

	// StateDeviceReady - device initialized.
	StateDeviceReady

	// StateQueriedBefore - current tables read and reported.
	StateQueriedBefore

	// StateAppliedAC - access-condition table written.
	StateAppliedAC

	// StateAppliedEncryption - encryption table written.
	StateAppliedEncryption

	// StateQueriedAfter - tables read back, diffed and reported.
	StateQueriedAfter

	// StateSlotsProvisioned - every key slot attempted.
	StateSlotsProvisioned

	// StateDone - run finished.
	StateDone

	// StateFailed - a table step failed; later steps were skipped.
	StateFailed
)

// String returns the state name.
func (s RunState) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateDeviceReady:
		return "DEVICE_READY"
	case StateQueriedBefore:
		return "QUERIED_BEFORE"
	case StateAppliedAC:
		return "APPLIED_AC"
	case StateAppliedEncryption:
		return "APPLIED_ENCRYPTION"
	case StateQueriedAfter:
		return "QUERIED_AFTER"
	case StateSlotsProvisioned:
		return "SLOTS_PROVISIONED"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// StateHandler is called on every run state transition.
type StateHandler func(old, new RunState)

// Config configures a Provisioner.
type Config struct {
	// ACTable and EncryptionTable are the target tables. They must list
	// the same opcodes in the same order.
	ACTable         policy.ACTable
	EncryptionTable policy.EncryptionTable

	// SlotFields are written to every key slot.
	SlotFields stse.ProvisioningControlFields

	// SlotCount is the number of key slots to provision (default: 15).
	SlotCount int

	// SkipSlots disables key slot provisioning.
	SkipSlots bool

	// Reporter renders the tables, changes, slot outcomes and summary.
	// If nil, nothing is rendered.
	Reporter report.Reporter

	// Logger is the optional logger for debug output.
	// If nil, logging is disabled.
	Logger *slog.Logger

	// ProtocolLogger receives trace events of every layer.
	// If nil, tracing is disabled.
	ProtocolLogger log.Logger

	// RunID tags trace events. If empty, a UUID is generated per run.
	RunID string

	// Endpoint names the device link in trace events.
	Endpoint string

	// OnStateChange is called on every transition.
	OnStateChange StateHandler
}

// ConfigFromProfile returns a Config holding the target tables and key
// slot settings of p.
func ConfigFromProfile(p *profile.Profile) (Config, error) {
	ac, enc, err := p.Tables()
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return Config{
		ACTable:         ac,
		EncryptionTable: enc,
		SlotFields:      p.KeySlots.Fields,
		SlotCount:       p.KeySlots.Count,
	}, nil
}

// Failure describes the step that failed a run.
type Failure struct {
	// State is the state the run was in when the step failed.
	State RunState

	// Status is the device status for protocol errors, zero otherwise.
	Status stse.Status

	// Err is the underlying error.
	Err error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("provisioning failed after %s: %v", f.State, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Result is the outcome of a provisioning run.
type Result struct {
	RunID string
	State RunState

	// Count is the command count reported by the device.
	Count int

	// Before and After are the record snapshots around the table puts,
	// with the change rights reported alongside.
	Before             []policy.Record
	ChangeRightsBefore policy.ChangeRights
	After              []policy.Record
	ChangeRightsAfter  policy.ChangeRights

	Changes []policy.Change
	Slots   []provision.SlotResult
	Summary report.Summary

	// Failure is set when State is StateFailed.
	Failure *Failure
}
