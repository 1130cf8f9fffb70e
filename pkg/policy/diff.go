package policy

// Change describes how one command's record differs between two snapshots.
// Before is nil for a command that appears only in the later snapshot and
// After is nil for one that disappeared.
type Change struct {
	Opcode Opcode
	Before *Record
	After  *Record
}

// AccessConditionChanged reports whether the access condition differs.
func (c Change) AccessConditionChanged() bool {
	if c.Before == nil || c.After == nil {
		return true
	}
	return c.Before.AccessCondition != c.After.AccessCondition
}

// EncryptionChanged reports whether the encryption code differs.
func (c Change) EncryptionChanged() bool {
	if c.Before == nil || c.After == nil {
		return true
	}
	return c.Before.Encryption != c.After.Encryption
}

// Diff compares two record snapshots by opcode. Changes are listed in the
// order of after, followed by commands that exist only in before.
func Diff(before, after []Record) []Change {
	index := make(map[Opcode]int, len(before))
	for i, r := range before {
		index[r.Opcode()] = i
	}
	matched := make([]bool, len(before))

	var changes []Change
	for i := range after {
		a := after[i]
		op := a.Opcode()
		j, ok := index[op]
		if !ok {
			changes = append(changes, Change{Opcode: op, After: &a})
			continue
		}
		matched[j] = true
		if b := before[j]; b != a {
			changes = append(changes, Change{Opcode: op, Before: &b, After: &a})
		}
	}
	for j := range before {
		if !matched[j] {
			b := before[j]
			changes = append(changes, Change{Opcode: b.Opcode(), Before: &b})
		}
	}
	return changes
}
