// Package report renders command authorization records, table changes,
// key slot outcomes and run summaries for terminals and machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/stse-tools/stse-go/pkg/policy"
	"github.com/stse-tools/stse-go/pkg/provision"
)

// Summary counts the outcome of a provisioning run.
type Summary struct {
	TablesApplied          int `json:"tables_applied"`
	TablesUnchanged        int `json:"tables_unchanged"`
	SlotsApplied           int `json:"slots_applied"`
	SlotsAlreadyConfigured int `json:"slots_already_configured"`
	SlotsFailed            int `json:"slots_failed"`
}

// AddSlots adds slot outcome counts to s.
func (s *Summary) AddSlots(t provision.Summary) {
	s.SlotsApplied += t.Applied
	s.SlotsAlreadyConfigured += t.AlreadyConfigured
	s.SlotsFailed += t.Failed
}

// Reporter renders provisioning results.
type Reporter interface {
	// ReportTable renders a record snapshot under a title.
	ReportTable(title string, cr policy.ChangeRights, records []policy.Record)

	// ReportChanges renders the differences between two snapshots.
	ReportChanges(changes []policy.Change)

	// ReportSlots renders key slot outcomes.
	ReportSlots(results []provision.SlotResult)

	// ReportSummary renders run totals.
	ReportSummary(summary Summary)
}

// Options tune the text reporter.
type Options struct {
	// Color enables ANSI colors for outcomes.
	Color bool

	// Names maps opcodes to command names. When set, a NAME column is
	// appended to record tables.
	Names map[policy.Opcode]string
}

// JSONReporter writes one JSON object per report call. Report methods
// have no error result; the first write error is kept and returned by Err,
// and later calls write nothing.
type JSONReporter struct {
	enc *json.Encoder
	err error
}

// NewJSONReporter creates a reporter writing JSON lines to w.
func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{enc: json.NewEncoder(w)}
}

// Err returns the first error encountered while writing.
func (r *JSONReporter) Err() error {
	return r.err
}

func (r *JSONReporter) encode(v any) {
	if r.err != nil {
		return
	}
	r.err = r.enc.Encode(v)
}

// jsonRecord carries the encryption code by name. The flags are omitted
// when the code is unknown.
type jsonRecord struct {
	Opcode            string `json:"opcode"`
	AccessCondition   string `json:"access_condition"`
	Encryption        string `json:"encryption"`
	CommandEncrypted  *bool  `json:"cmd_encrypted,omitempty"`
	ResponseEncrypted *bool  `json:"rsp_encrypted,omitempty"`
}

type jsonSlot struct {
	Slot    uint8  `json:"slot"`
	Outcome string `json:"outcome"`
	Status  uint16 `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}

func toJSONRecord(r policy.Record) jsonRecord {
	out := jsonRecord{
		Opcode:          r.Opcode().String(),
		AccessCondition: r.AccessCondition.String(),
		Encryption:      r.Encryption.String(),
	}
	if r.Encryption.Known() {
		cmd, rsp := r.CommandEncrypted(), r.ResponseEncrypted()
		out.CommandEncrypted, out.ResponseEncrypted = &cmd, &rsp
	}
	return out
}

// ReportTable implements Reporter.
func (r *JSONReporter) ReportTable(title string, cr policy.ChangeRights, records []policy.Record) {
	out := struct {
		Type           string       `json:"type"`
		Title          string       `json:"title"`
		ACChangeRight  uint8        `json:"ac_change_right"`
		EncChangeRight uint8        `json:"enc_change_right"`
		Records        []jsonRecord `json:"records"`
	}{Type: "table", Title: title, ACChangeRight: cr.AccessCondition, EncChangeRight: cr.Encryption}
	for _, rec := range records {
		out.Records = append(out.Records, toJSONRecord(rec))
	}
	r.encode(out)
}

// ReportChanges implements Reporter.
func (r *JSONReporter) ReportChanges(changes []policy.Change) {
	type jsonChange struct {
		Opcode string      `json:"opcode"`
		Before *jsonRecord `json:"before,omitempty"`
		After  *jsonRecord `json:"after,omitempty"`
	}
	out := struct {
		Type    string       `json:"type"`
		Changes []jsonChange `json:"changes"`
	}{Type: "changes", Changes: []jsonChange{}}
	for _, c := range changes {
		jc := jsonChange{Opcode: c.Opcode.String()}
		if c.Before != nil {
			b := toJSONRecord(*c.Before)
			jc.Before = &b
		}
		if c.After != nil {
			a := toJSONRecord(*c.After)
			jc.After = &a
		}
		out.Changes = append(out.Changes, jc)
	}
	r.encode(out)
}

// ReportSlots implements Reporter.
func (r *JSONReporter) ReportSlots(results []provision.SlotResult) {
	out := struct {
		Type  string     `json:"type"`
		Slots []jsonSlot `json:"slots"`
	}{Type: "slots", Slots: []jsonSlot{}}
	for _, res := range results {
		s := jsonSlot{Slot: res.Slot, Outcome: res.Outcome.String(), Status: uint16(res.Status)}
		if res.Err != nil {
			s.Error = res.Err.Error()
		}
		out.Slots = append(out.Slots, s)
	}
	r.encode(out)
}

// ReportSummary implements Reporter.
func (r *JSONReporter) ReportSummary(summary Summary) {
	r.encode(struct {
		Type string `json:"type"`
		Summary
	}{Type: "summary", Summary: summary})
}

var (
	_ Reporter = (*TextReporter)(nil)
	_ Reporter = (*JSONReporter)(nil)
)

// acLabel returns the fixed-width AC column cell.
func acLabel(ac policy.AccessCondition) string {
	switch ac {
	case policy.AccessNever:
		return " NEVER  "
	case policy.AccessFree:
		return "  FREE  "
	case policy.AccessAdmin:
		return " ADMIN  "
	case policy.AccessHost:
		return "  HOST  "
	case policy.AccessAdminOrPassword:
		return "ADM/PWD "
	case policy.AccessAdminOrHost:
		return "ADM/HST "
	default:
		return " --?--  "
	}
}

// flagLabel returns the fixed-width cell of one encryption flag.
func flagLabel(e policy.Encryption, set bool) string {
	if !e.Known() {
		return " --?--"
	}
	if set {
		return "  YES "
	}
	return "  NO  "
}

func extHeader(r policy.Record) string {
	if !r.HasExtendedHeader {
		return "    -     "
	}
	return fmt.Sprintf("   0x%02X   ", r.ExtendedHeader)
}
