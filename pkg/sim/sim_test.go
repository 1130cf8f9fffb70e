package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stse-tools/stse-go/pkg/policy"
	"github.com/stse-tools/stse-go/pkg/provision"
	"github.com/stse-tools/stse-go/pkg/stse"
)

var twoCommands = []policy.Opcode{policy.Simple(0x0A), policy.Extended(0x0B)}

func openHandler(t *testing.T, d *Device) *stse.Handler {
	t.Helper()
	h, err := stse.Open(context.Background(), d, stse.DefaultHandlerConfig(), stse.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func TestInitialPolicy(t *testing.T) {
	tests := []struct {
		name    string
		access  *policy.AccessCondition
		enc     policy.Encryption
		wantAC  policy.AccessCondition
		wantEnc policy.Encryption
	}{
		{name: "defaults", wantAC: policy.AccessFree, wantEnc: policy.EncryptNone},
		{name: "never", access: ptr(policy.AccessNever), wantAC: policy.AccessNever, wantEnc: policy.EncryptNone},
		{name: "host with both", access: ptr(policy.AccessHost), enc: policy.EncryptBoth, wantAC: policy.AccessHost, wantEnc: policy.EncryptBoth},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := New(Config{Opcodes: twoCommands, InitialAccess: tt.access, InitialEncryption: tt.enc})
			require.NoError(t, err)
			for _, r := range d.Records() {
				assert.Equal(t, tt.wantAC, r.AccessCondition, "%s", r.Opcode())
				assert.Equal(t, tt.wantEnc, r.Encryption, "%s", r.Opcode())
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestDefaultCommandSet(t *testing.T) {
	d, err := New(Config{})
	require.NoError(t, err)
	h := openHandler(t, d)

	count, err := h.GetCommandCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 45, count)

	snap, err := h.GetCommandACTable(context.Background(), count)
	require.NoError(t, err)
	records, err := snap.Records()
	require.NoError(t, err)
	require.Len(t, records, 45)
	for _, r := range records {
		assert.Equal(t, policy.AccessFree, r.AccessCondition, "%s", r.Opcode())
		assert.Equal(t, policy.EncryptNone, r.Encryption, "%s", r.Opcode())
	}
	assert.Equal(t, policy.ChangeRights{AccessCondition: 1, Encryption: 1}, snap.ChangeRights)
}

func TestInitializeWrongAddress(t *testing.T) {
	d, err := New(Config{Opcodes: twoCommands})
	require.NoError(t, err)

	cfg := stse.DefaultHandlerConfig()
	cfg.DeviceAddress = 0x21
	_, err = d.Initialize(context.Background(), cfg)
	assert.ErrorIs(t, err, ErrNoDevice)
}

func TestTransferBeforeInitialize(t *testing.T) {
	d, err := New(Config{Opcodes: twoCommands})
	require.NoError(t, err)

	_, err = d.Transfer(context.Background(), []byte{stse.HeaderQuery, stse.TagCommandConfiguration})
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestPutTables(t *testing.T) {
	d, err := New(Config{Opcodes: twoCommands})
	require.NoError(t, err)
	h := openHandler(t, d)
	ctx := context.Background()

	ac, err := policy.NewACTable(
		policy.ACEntry{Opcode: policy.Simple(0x0A), Value: policy.AccessHost},
		policy.ACEntry{Opcode: policy.Extended(0x0B), Value: policy.AccessAdmin},
	)
	require.NoError(t, err)
	enc, err := policy.NewEncryptionTable(
		policy.EncryptionEntry{Opcode: policy.Simple(0x0A), Value: policy.EncryptBoth},
		policy.EncryptionEntry{Opcode: policy.Extended(0x0B), Value: policy.EncryptNone},
	)
	require.NoError(t, err)

	require.NoError(t, h.PutCommandACTable(ctx, ac))
	require.NoError(t, h.PutCommandEncryptionTable(ctx, enc))

	want := []policy.Record{
		{Header: 0x0A, AccessCondition: policy.AccessHost, Encryption: policy.EncryptBoth},
		{Header: 0x1F, ExtendedHeader: 0x0B, HasExtendedHeader: true, AccessCondition: policy.AccessAdmin},
	}
	assert.Equal(t, want, d.Records())

	snap, err := h.GetCommandACTable(ctx, 2)
	require.NoError(t, err)
	records, err := snap.Records()
	require.NoError(t, err)
	assert.Equal(t, want, records)
}

func TestPutTableRejectsWrongOrder(t *testing.T) {
	d, err := New(Config{Opcodes: twoCommands})
	require.NoError(t, err)
	h := openHandler(t, d)

	ac, err := policy.NewACTable(
		policy.ACEntry{Opcode: policy.Extended(0x0B), Value: policy.AccessHost},
		policy.ACEntry{Opcode: policy.Simple(0x0A), Value: policy.AccessHost},
	)
	require.NoError(t, err)

	err = h.PutCommandACTable(context.Background(), ac)
	status, ok := stse.StatusOf(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, stse.StatusInconsistentCommandData, status)
}

func TestLockedTables(t *testing.T) {
	d, err := New(Config{
		Opcodes:      twoCommands,
		ChangeRights: &policy.ChangeRights{AccessCondition: 0, Encryption: 1},
	})
	require.NoError(t, err)
	h := openHandler(t, d)
	ctx := context.Background()

	ac, err := policy.NewACTable(
		policy.ACEntry{Opcode: policy.Simple(0x0A), Value: policy.AccessHost},
		policy.ACEntry{Opcode: policy.Extended(0x0B), Value: policy.AccessHost},
	)
	require.NoError(t, err)
	err = h.PutCommandACTable(ctx, ac)
	assert.ErrorIs(t, err, stse.ErrAccessConditionNotSatisfied)

	enc, err := policy.NewEncryptionTable(
		policy.EncryptionEntry{Opcode: policy.Simple(0x0A), Value: policy.EncryptResponse},
		policy.EncryptionEntry{Opcode: policy.Extended(0x0B), Value: policy.EncryptNone},
	)
	require.NoError(t, err)
	require.NoError(t, h.PutCommandEncryptionTable(ctx, enc))

	d.SetChangeRights(policy.ChangeRights{})
	err = h.PutCommandEncryptionTable(ctx, enc)
	assert.ErrorIs(t, err, stse.ErrAccessConditionNotSatisfied)
}

func TestQueryCountMismatch(t *testing.T) {
	d, err := New(Config{Opcodes: twoCommands})
	require.NoError(t, err)
	h := openHandler(t, d)

	_, err = h.GetCommandACTable(context.Background(), 3)
	status, ok := stse.StatusOf(err)
	require.True(t, ok, "got %v", err)
	assert.Equal(t, stse.StatusInconsistentCommandData, status)
}

func TestUnknownCommand(t *testing.T) {
	d, err := New(Config{Opcodes: twoCommands})
	require.NoError(t, err)
	_, err = d.Initialize(context.Background(), stse.DefaultHandlerConfig())
	require.NoError(t, err)

	rsp, err := d.Transfer(context.Background(), []byte{0x77, 0x01})
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(stse.StatusInvalidCommand)}, rsp)
	assert.Equal(t, 1, d.Transfers())
}

func TestSlotLocking(t *testing.T) {
	d, err := New(Config{Opcodes: twoCommands})
	require.NoError(t, err)
	h := openHandler(t, d)
	ctx := context.Background()

	open := stse.DefaultProvisioningFields()
	open.ChangeRight = true
	require.NoError(t, h.PutSymmetricKeySlotProvisioningFields(ctx, 1, open))
	require.NoError(t, h.PutSymmetricKeySlotProvisioningFields(ctx, 1, open))

	locked := stse.DefaultProvisioningFields()
	require.NoError(t, h.PutSymmetricKeySlotProvisioningFields(ctx, 1, locked))

	err = h.PutSymmetricKeySlotProvisioningFields(ctx, 1, locked)
	assert.ErrorIs(t, err, stse.ErrAccessConditionNotSatisfied)

	got, written := d.SlotFields(1)
	assert.True(t, written)
	assert.Equal(t, locked, got)

	_, written = d.SlotFields(2)
	assert.False(t, written)
}

func TestProvisioningRunIsIdempotent(t *testing.T) {
	d, err := New(Config{Opcodes: twoCommands})
	require.NoError(t, err)
	d.ForceSlotStatus(4, stse.StatusCommunicationError)
	h := openHandler(t, d)

	ctrl := provision.NewController(h, provision.Config{})
	first := provision.Tally(ctrl.Run(context.Background(), stse.DefaultProvisioningFields()))
	assert.Equal(t, provision.Summary{Applied: 14, Failed: 1}, first)

	d.ForceSlotStatus(4, stse.StatusOK)
	second := provision.Tally(ctrl.Run(context.Background(), stse.DefaultProvisioningFields()))
	assert.Equal(t, provision.Summary{Applied: 1, AlreadyConfigured: 14}, second)
}

func TestClosedDevice(t *testing.T) {
	d, err := New(Config{Opcodes: twoCommands})
	require.NoError(t, err)
	bus, err := d.Initialize(context.Background(), stse.DefaultHandlerConfig())
	require.NoError(t, err)
	require.NoError(t, bus.Close())

	_, err = bus.Transfer(context.Background(), []byte{stse.HeaderQuery, stse.TagCommandConfiguration})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSessionsAreIndependent(t *testing.T) {
	d, err := New(Config{Opcodes: twoCommands})
	require.NoError(t, err)
	ctx := context.Background()

	a, err := d.Initialize(ctx, stse.DefaultHandlerConfig())
	require.NoError(t, err)
	b, err := d.Initialize(ctx, stse.DefaultHandlerConfig())
	require.NoError(t, err)

	require.NoError(t, a.Close())
	_, err = a.Transfer(ctx, []byte{stse.HeaderQuery, stse.TagCommandConfiguration})
	assert.ErrorIs(t, err, ErrClosed)

	rsp, err := b.Transfer(ctx, []byte{stse.HeaderQuery, stse.TagCommandConfiguration})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x02}, rsp)
}
