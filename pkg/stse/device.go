package stse

import (
	"context"

	"github.com/stse-tools/stse-go/pkg/policy"
)

// Device is the command set used by provisioning. *Handler implements it;
// tests substitute mocks.Device.
type Device interface {
	// GetCommandCount returns the number of commands in the device tables.
	GetCommandCount(ctx context.Context) (int, error)

	// GetCommandACTable reads both policy tables and their change rights.
	GetCommandACTable(ctx context.Context, count int) (TableSnapshot, error)

	// PutCommandACTable writes the access-condition table.
	PutCommandACTable(ctx context.Context, table policy.ACTable) error

	// PutCommandEncryptionTable writes the encryption table.
	PutCommandEncryptionTable(ctx context.Context, table policy.EncryptionTable) error

	// PutSymmetricKeySlotProvisioningFields writes the control fields of
	// one key slot.
	PutSymmetricKeySlotProvisioningFields(ctx context.Context, slot uint8, fields ProvisioningControlFields) error
}

// TableSnapshot is the raw result of a table query.
type TableSnapshot struct {
	Count           int
	ChangeRights    policy.ChangeRights
	ACTable         []byte
	EncryptionTable []byte
}

// Records decodes and merges both tables.
func (s TableSnapshot) Records() ([]policy.Record, error) {
	return policy.FromWire(s.ACTable, s.EncryptionTable, s.Count)
}
