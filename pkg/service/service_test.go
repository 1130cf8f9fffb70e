package service_test

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stse-tools/stse-go/pkg/log"
	"github.com/stse-tools/stse-go/pkg/policy"
	"github.com/stse-tools/stse-go/pkg/profile"
	"github.com/stse-tools/stse-go/pkg/provision"
	"github.com/stse-tools/stse-go/pkg/report"
	"github.com/stse-tools/stse-go/pkg/service"
	"github.com/stse-tools/stse-go/pkg/sim"
	"github.com/stse-tools/stse-go/pkg/stse"
	"github.com/stse-tools/stse-go/pkg/stse/mocks"
)

type recordingLogger struct {
	mu     sync.Mutex
	events []log.Event
}

func (r *recordingLogger) Log(e log.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingLogger) states() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if e.StateChange != nil {
			out = append(out, e.StateChange.NewState)
		}
	}
	return out
}

func hostNoneConfig(t *testing.T) service.Config {
	t.Helper()
	ac, err := policy.NewACTable(
		policy.ACEntry{Opcode: policy.Simple(0x00), Value: policy.AccessHost},
		policy.ACEntry{Opcode: policy.Simple(0x02), Value: policy.AccessHost},
	)
	require.NoError(t, err)
	enc, err := policy.NewEncryptionTable(
		policy.EncryptionEntry{Opcode: policy.Simple(0x00), Value: policy.EncryptNone},
		policy.EncryptionEntry{Opcode: policy.Simple(0x02), Value: policy.EncryptNone},
	)
	require.NoError(t, err)
	return service.Config{
		ACTable:         ac,
		EncryptionTable: enc,
		SlotFields:      stse.DefaultProvisioningFields(),
		RunID:           "run-1",
	}
}

func literalSnapshot() stse.TableSnapshot {
	return stse.TableSnapshot{
		Count:           2,
		ChangeRights:    policy.ChangeRights{AccessCondition: 1, Encryption: 1},
		ACTable:         []byte{0x00, 0x03, 0x02, 0x03},
		EncryptionTable: []byte{0x00, 0x00, 0x02, 0x00},
	}
}

func TestProvisionLiteralScenario(t *testing.T) {
	dev := mocks.NewMockDevice(t)
	dev.EXPECT().GetCommandCount(mock.Anything).Return(2, nil).Once()
	dev.EXPECT().GetCommandACTable(mock.Anything, 2).Return(literalSnapshot(), nil).Twice()
	dev.EXPECT().PutCommandACTable(mock.Anything, mock.Anything).Return(nil).Once()
	dev.EXPECT().PutCommandEncryptionTable(mock.Anything, mock.Anything).Return(nil).Once()
	dev.EXPECT().PutSymmetricKeySlotProvisioningFields(mock.Anything, mock.Anything, stse.DefaultProvisioningFields()).
		Return(nil).Times(stse.SymmetricKeySlotCount)

	trace := &recordingLogger{}
	cfg := hostNoneConfig(t)
	cfg.ProtocolLogger = trace

	p, err := service.NewProvisioner(cfg)
	require.NoError(t, err)

	result, err := p.Provision(context.Background(), dev)
	require.NoError(t, err)

	want := []policy.Record{
		{Header: 0x00, AccessCondition: policy.AccessHost},
		{Header: 0x02, AccessCondition: policy.AccessHost},
	}
	assert.Equal(t, want, result.Before)
	assert.Equal(t, want, result.After)
	assert.Empty(t, result.Changes)
	assert.Equal(t, service.StateDone, result.State)
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, report.Summary{TablesUnchanged: 2, SlotsApplied: 15}, result.Summary)

	assert.Equal(t, []string{
		"DEVICE_READY", "QUERIED_BEFORE", "APPLIED_AC", "APPLIED_ENCRYPTION",
		"QUERIED_AFTER", "SLOTS_PROVISIONED", "DONE",
	}, trace.states())
	assert.Equal(t, service.StateDone, p.State())
}

func TestProvisionSlotFailureDoesNotFailRun(t *testing.T) {
	dev := mocks.NewMockDevice(t)
	dev.EXPECT().GetCommandCount(mock.Anything).Return(2, nil)
	dev.EXPECT().GetCommandACTable(mock.Anything, 2).Return(literalSnapshot(), nil)
	dev.EXPECT().PutCommandACTable(mock.Anything, mock.Anything).Return(nil)
	dev.EXPECT().PutCommandEncryptionTable(mock.Anything, mock.Anything).Return(nil)
	dev.EXPECT().PutSymmetricKeySlotProvisioningFields(mock.Anything, uint8(3), mock.Anything).
		Return(&stse.ProtocolError{Op: stse.OpPutSlotFields, Status: 0x6A82}).Once()
	dev.EXPECT().PutSymmetricKeySlotProvisioningFields(mock.Anything, uint8(7), mock.Anything).
		Return(&stse.ProtocolError{Op: stse.OpPutSlotFields, Status: stse.StatusAccessConditionNotSatisfied}).Once()
	dev.EXPECT().PutSymmetricKeySlotProvisioningFields(mock.Anything, mock.Anything, mock.Anything).Return(nil)

	p, err := service.NewProvisioner(hostNoneConfig(t))
	require.NoError(t, err)

	result, err := p.Provision(context.Background(), dev)
	require.NoError(t, err)
	assert.Equal(t, service.StateDone, result.State)
	require.Len(t, result.Slots, 15)
	assert.Equal(t, provision.Failed, result.Slots[3].Outcome)
	assert.Equal(t, stse.Status(0x6A82), result.Slots[3].Status)
	assert.Equal(t, provision.AlreadyConfigured, result.Slots[7].Outcome)
	assert.Equal(t, 13, result.Summary.SlotsApplied)
	assert.Equal(t, 1, result.Summary.SlotsAlreadyConfigured)
	assert.Equal(t, 1, result.Summary.SlotsFailed)
}

func TestProvisionFailsWithoutRollback(t *testing.T) {
	dev := mocks.NewMockDevice(t)
	dev.EXPECT().GetCommandCount(mock.Anything).Return(2, nil).Once()
	dev.EXPECT().GetCommandACTable(mock.Anything, 2).Return(literalSnapshot(), nil).Once()
	dev.EXPECT().PutCommandACTable(mock.Anything, mock.Anything).Return(nil).Once()
	dev.EXPECT().PutCommandEncryptionTable(mock.Anything, mock.Anything).
		Return(&stse.ProtocolError{Op: stse.OpPutCommandEncryption, Status: stse.StatusAccessConditionNotSatisfied}).Once()

	var transitions []service.RunState
	cfg := hostNoneConfig(t)
	cfg.OnStateChange = func(_, next service.RunState) { transitions = append(transitions, next) }

	p, err := service.NewProvisioner(cfg)
	require.NoError(t, err)

	result, err := p.Provision(context.Background(), dev)
	require.Error(t, err)
	assert.ErrorIs(t, err, stse.ErrAccessConditionNotSatisfied)

	var failure *service.Failure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, service.StateAppliedAC, failure.State)
	assert.Equal(t, stse.StatusAccessConditionNotSatisfied, failure.Status)

	assert.Equal(t, service.StateFailed, result.State)
	assert.Same(t, failure, result.Failure)
	assert.Nil(t, result.After)
	assert.Nil(t, result.Slots)
	assert.Equal(t, service.StateFailed, transitions[len(transitions)-1])
}

func TestProvisionDecodeFailure(t *testing.T) {
	snap := literalSnapshot()
	snap.EncryptionTable = snap.EncryptionTable[:2]

	dev := mocks.NewMockDevice(t)
	dev.EXPECT().GetCommandCount(mock.Anything).Return(2, nil)
	dev.EXPECT().GetCommandACTable(mock.Anything, 2).Return(snap, nil)

	p, err := service.NewProvisioner(hostNoneConfig(t))
	require.NoError(t, err)

	result, err := p.Provision(context.Background(), dev)
	assert.ErrorIs(t, err, policy.ErrTableMismatch)
	assert.Equal(t, service.StateFailed, result.State)
	assert.Equal(t, service.StateDeviceReady, result.Failure.State)
}

func TestNewProvisionerValidation(t *testing.T) {
	_, err := service.NewProvisioner(service.Config{})
	assert.ErrorIs(t, err, service.ErrInvalidConfig)

	cfg := hostNoneConfig(t)
	enc, err := policy.NewEncryptionTable(
		policy.EncryptionEntry{Opcode: policy.Simple(0x00), Value: policy.EncryptNone},
	)
	require.NoError(t, err)
	cfg.EncryptionTable = enc
	_, err = service.NewProvisioner(cfg)
	assert.ErrorIs(t, err, service.ErrInvalidConfig)

	cfg = hostNoneConfig(t)
	cfg.SlotCount = 16
	_, err = service.NewProvisioner(cfg)
	assert.ErrorIs(t, err, service.ErrInvalidConfig)
}

func TestRunAgainstSimulator(t *testing.T) {
	prof, err := profile.Builtin(profile.DefaultName)
	require.NoError(t, err)
	hcfg, err := prof.HandlerConfig()
	require.NoError(t, err)

	device, err := sim.New(sim.Config{})
	require.NoError(t, err)

	cfg, err := service.ConfigFromProfile(prof)
	require.NoError(t, err)
	var out bytes.Buffer
	cfg.Reporter = report.NewTextReporter(&out, report.Options{})

	p, err := service.NewProvisioner(cfg)
	require.NoError(t, err)

	first, err := p.Run(context.Background(), device, hcfg)
	require.NoError(t, err)
	assert.Equal(t, service.StateDone, first.State)
	assert.Equal(t, 45, first.Count)
	assert.Equal(t, report.Summary{TablesApplied: 1, TablesUnchanged: 1, SlotsApplied: 15}, first.Summary)
	assert.NotEmpty(t, first.Changes)
	for _, c := range first.Changes {
		assert.True(t, c.AccessConditionChanged())
		assert.False(t, c.EncryptionChanged())
	}
	assert.Contains(t, out.String(), service.TitleBefore)
	assert.Contains(t, out.String(), service.TitleAfter)

	out.Reset()
	second, err := p.Run(context.Background(), device, hcfg)
	require.NoError(t, err)
	assert.Empty(t, second.Changes)
	assert.Equal(t, report.Summary{TablesUnchanged: 2, SlotsAlreadyConfigured: 15}, second.Summary)
	assert.Contains(t, out.String(), "Already done")
	assert.NotEqual(t, first.RunID, second.RunID)
}

func TestRunInitializeFailure(t *testing.T) {
	device, err := sim.New(sim.Config{})
	require.NoError(t, err)
	prof, err := profile.Builtin(profile.DefaultName)
	require.NoError(t, err)
	cfg, err := service.ConfigFromProfile(prof)
	require.NoError(t, err)

	p, err := service.NewProvisioner(cfg)
	require.NoError(t, err)

	hcfg := stse.DefaultHandlerConfig()
	hcfg.DeviceAddress = 0x42
	result, err := p.Run(context.Background(), device, hcfg)
	assert.ErrorIs(t, err, sim.ErrNoDevice)

	var terr *stse.TransportError
	assert.True(t, errors.As(err, &terr))
	assert.Equal(t, service.StateFailed, result.State)
	assert.Equal(t, service.StateInit, result.Failure.State)
}
