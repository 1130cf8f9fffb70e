package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/stse-tools/stse-go/pkg/log"
	"github.com/stse-tools/stse-go/pkg/policy"
	"github.com/stse-tools/stse-go/pkg/provision"
	"github.com/stse-tools/stse-go/pkg/stse"
)

// Report titles.
const (
	TitleBefore = "Command AC table before provisioning"
	TitleAfter  = "Command AC table after provisioning"
)

// Provisioner runs the provisioning sequence. Runs are serialized; a
// Provisioner may be reused for several devices.
type Provisioner struct {
	config Config
	trace  log.Logger

	mu      sync.Mutex
	state   RunState
	runID   string
	running bool
}

// NewProvisioner validates config and returns a Provisioner.
func NewProvisioner(config Config) (*Provisioner, error) {
	if config.ACTable.Len() == 0 {
		return nil, fmt.Errorf("%w: empty access condition table", ErrInvalidConfig)
	}
	if _, err := policy.FromTables(config.ACTable, config.EncryptionTable); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if config.SlotCount == 0 {
		config.SlotCount = stse.SymmetricKeySlotCount
	}
	if config.SlotCount < 0 || config.SlotCount > stse.SymmetricKeySlotCount {
		return nil, fmt.Errorf("%w: slot count %d", ErrInvalidConfig, config.SlotCount)
	}
	return &Provisioner{
		config: config,
		trace:  log.OrNoop(config.ProtocolLogger),
	}, nil
}

// State returns the state of the current or last run.
func (p *Provisioner) State() RunState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Run initializes the device through connector and provisions it. The
// device is closed before Run returns.
//
// The returned error is the *Failure of a failed run; the Result is
// returned in both cases.
func (p *Provisioner) Run(ctx context.Context, connector stse.Connector, cfg stse.HandlerConfig) (*Result, error) {
	result, err := p.begin()
	if err != nil {
		return nil, err
	}
	defer p.end()

	h, err := stse.Open(ctx, connector, cfg, stse.Options{
		Logger:         p.config.Logger,
		ProtocolLogger: p.config.ProtocolLogger,
		RunID:          result.RunID,
		Endpoint:       p.config.Endpoint,
	})
	if err != nil {
		return p.fail(result, err)
	}
	defer func() {
		if cerr := h.Close(); cerr != nil {
			p.debugLog("close device", "error", cerr)
		}
	}()

	return p.run(ctx, h, result)
}

// Provision runs the sequence against an already initialized device.
func (p *Provisioner) Provision(ctx context.Context, device stse.Device) (*Result, error) {
	result, err := p.begin()
	if err != nil {
		return nil, err
	}
	defer p.end()
	return p.run(ctx, device, result)
}

func (p *Provisioner) begin() (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil, ErrRunInProgress
	}
	p.running = true
	p.state = StateInit
	p.runID = p.config.RunID
	if p.runID == "" {
		p.runID = uuid.New().String()
	}
	return &Result{RunID: p.runID, State: StateInit}, nil
}

func (p *Provisioner) end() {
	p.mu.Lock()
	p.running = false
	p.mu.Unlock()
}

func (p *Provisioner) run(ctx context.Context, dev stse.Device, result *Result) (*Result, error) {
	p.transition(result, StateDeviceReady, "device initialized")

	count, err := dev.GetCommandCount(ctx)
	if err != nil {
		return p.fail(result, err)
	}
	result.Count = count
	if count != p.config.ACTable.Len() {
		p.warnLog("device command count differs from target tables",
			"device", count, "target", p.config.ACTable.Len())
	}

	before, cr, err := p.query(ctx, dev, count)
	if err != nil {
		return p.fail(result, err)
	}
	result.Before, result.ChangeRightsBefore = before, cr
	p.reportTable(TitleBefore, cr, before)
	p.transition(result, StateQueriedBefore, fmt.Sprintf("%d commands", count))

	if err := dev.PutCommandACTable(ctx, p.config.ACTable); err != nil {
		return p.fail(result, err)
	}
	p.transition(result, StateAppliedAC, "")

	if err := dev.PutCommandEncryptionTable(ctx, p.config.EncryptionTable); err != nil {
		return p.fail(result, err)
	}
	p.transition(result, StateAppliedEncryption, "")

	after, cr, err := p.query(ctx, dev, count)
	if err != nil {
		return p.fail(result, err)
	}
	result.After, result.ChangeRightsAfter = after, cr
	result.Changes = policy.Diff(before, after)
	p.reportTable(TitleAfter, cr, after)
	if p.config.Reporter != nil {
		p.config.Reporter.ReportChanges(result.Changes)
	}
	result.Summary.TablesApplied, result.Summary.TablesUnchanged = countTables(result.Changes)
	p.transition(result, StateQueriedAfter, fmt.Sprintf("%d changes", len(result.Changes)))

	if !p.config.SkipSlots {
		ctrl := provision.NewController(dev, provision.Config{
			SlotCount:      p.config.SlotCount,
			Logger:         p.config.Logger,
			ProtocolLogger: p.config.ProtocolLogger,
			RunID:          result.RunID,
		})
		result.Slots = ctrl.Run(ctx, p.config.SlotFields)
		result.Summary.AddSlots(provision.Tally(result.Slots))
		if p.config.Reporter != nil {
			p.config.Reporter.ReportSlots(result.Slots)
		}
		p.transition(result, StateSlotsProvisioned, fmt.Sprintf("%d slots", len(result.Slots)))
	}

	if p.config.Reporter != nil {
		p.config.Reporter.ReportSummary(result.Summary)
	}
	p.transition(result, StateDone, "")
	return result, nil
}

func (p *Provisioner) query(ctx context.Context, dev stse.Device, count int) ([]policy.Record, policy.ChangeRights, error) {
	snap, err := dev.GetCommandACTable(ctx, count)
	if err != nil {
		return nil, policy.ChangeRights{}, err
	}
	records, err := snap.Records()
	if err != nil {
		return nil, policy.ChangeRights{}, fmt.Errorf("%s: %w", stse.OpGetCommandACTable, err)
	}
	return records, snap.ChangeRights, nil
}

// countTables counts the tables whose aspect changed. A table whose put
// succeeded but whose records read back identical counts as unchanged.
func countTables(changes []policy.Change) (applied, unchanged int) {
	var acChanged, encChanged bool
	for _, c := range changes {
		acChanged = acChanged || c.AccessConditionChanged()
		encChanged = encChanged || c.EncryptionChanged()
	}
	for _, changed := range []bool{acChanged, encChanged} {
		if changed {
			applied++
		} else {
			unchanged++
		}
	}
	return applied, unchanged
}

func (p *Provisioner) reportTable(title string, cr policy.ChangeRights, records []policy.Record) {
	if p.config.Reporter != nil {
		p.config.Reporter.ReportTable(title, cr, records)
	}
}

func (p *Provisioner) fail(result *Result, err error) (*Result, error) {
	f := &Failure{State: result.State, Err: err}
	if status, ok := stse.StatusOf(err); ok {
		f.Status = status
	}
	result.Failure = f

	code := -1
	if f.Status != stse.StatusOK {
		code = int(f.Status)
	}
	p.trace.Log(log.NewErrorEvent(result.RunID, log.LayerService, result.State.String(), err, code))
	if p.config.Logger != nil {
		p.config.Logger.Error("provisioning failed", "run_id", result.RunID, "state", result.State.String(), "error", err)
	}
	p.transition(result, StateFailed, err.Error())
	return result, f
}

func (p *Provisioner) transition(result *Result, next RunState, reason string) {
	old := result.State
	result.State = next

	p.mu.Lock()
	p.state = next
	p.mu.Unlock()

	p.trace.Log(log.NewStateEvent(result.RunID, old.String(), next.String(), reason))
	if p.config.Logger != nil {
		p.config.Logger.Info("run state", "run_id", result.RunID, "from", old.String(), "to", next.String())
	}
	if p.config.OnStateChange != nil {
		p.config.OnStateChange(old, next)
	}
}

func (p *Provisioner) debugLog(msg string, args ...any) {
	if p.config.Logger != nil {
		p.config.Logger.Debug(msg, args...)
	}
}

func (p *Provisioner) warnLog(msg string, args ...any) {
	if p.config.Logger != nil {
		p.config.Logger.Warn(msg, args...)
	}
}
