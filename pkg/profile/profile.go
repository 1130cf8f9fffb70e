// Package profile loads provisioning profiles: the target command policy
// tables, device selection, personalization and key slot fields for one
// kind of secure element.
//
// Profiles are YAML documents. Two built-in profiles are embedded:
//
//	stsafe-a120            every command HOST except the host-key commands
//	stsafe-a120-encrypted  as above, with MAC, envelope and cipher payloads encrypted
package profile

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/stse-tools/stse-go/pkg/changeright"
	"github.com/stse-tools/stse-go/pkg/policy"
	"github.com/stse-tools/stse-go/pkg/stse"
)

//go:embed profiles/*.yaml
var profileFS embed.FS

// DefaultName is the built-in profile used when none is selected.
const DefaultName = "stsafe-a120"

// Policy of reserved commands. Reserved commands are always written with
// these values.
const (
	ReservedAccessCondition = policy.AccessFree
	ReservedEncryption      = policy.EncryptNone
)

// Profile errors.
var (
	// ErrUnknownProfile is returned for a built-in name that does not exist.
	ErrUnknownProfile = errors.New("profile: unknown profile")

	// ErrInvalidProfile is returned when a profile fails validation.
	ErrInvalidProfile = errors.New("profile: invalid profile")
)

// Profile is a parsed provisioning profile.
type Profile struct {
	Name            string          `yaml:"name"`
	Description     string          `yaml:"description"`
	Device          Device          `yaml:"device"`
	Personalization Personalization `yaml:"personalization"`
	Commands        []Command       `yaml:"commands"`
	KeySlots        KeySlots        `yaml:"key_slots"`
}

// Device selects the secure element on its bus.
type Device struct {
	Address uint8 `yaml:"address"`
	Bus     uint8 `yaml:"bus"`
}

// Personalization gives the change-rights words either directly or as
// lists of 4-bit levels. The two forms are exclusive per word.
type Personalization struct {
	CmdACStatus    *uint64 `yaml:"cmd_ac_status"`
	ExtCmdACStatus *uint64 `yaml:"ext_cmd_ac_status"`
	CmdLevels      []uint8 `yaml:"cmd_levels"`
	ExtCmdLevels   []uint8 `yaml:"ext_cmd_levels"`
}

// Command is one row of the target policy.
type Command struct {
	Opcode          policy.Opcode           `yaml:"opcode"`
	Name            string                  `yaml:"name"`
	Reserved        bool                    `yaml:"reserved"`
	AccessCondition *policy.AccessCondition `yaml:"ac"`
	Encryption      *policy.Encryption      `yaml:"encryption"`
}

// KeySlots configures symmetric key slot provisioning. A missing fields
// section means stse.DefaultProvisioningFields; a present one is taken as
// written, with omitted flags cleared.
type KeySlots struct {
	Count  int                            `yaml:"count"`
	Fields stse.ProvisioningControlFields `yaml:"fields"`
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (k *KeySlots) UnmarshalYAML(n *yaml.Node) error {
	var raw struct {
		Count  int                             `yaml:"count"`
		Fields *stse.ProvisioningControlFields `yaml:"fields"`
	}
	if err := n.Decode(&raw); err != nil {
		return err
	}
	k.Count = raw.Count
	k.Fields = stse.DefaultProvisioningFields()
	if raw.Fields != nil {
		k.Fields = *raw.Fields
	}
	return nil
}

// Parse decodes and validates a profile document.
func Parse(data []byte) (*Profile, error) {
	p := Profile{KeySlots: KeySlots{Fields: stse.DefaultProvisioningFields()}}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadFile reads and parses a profile file.
func LoadFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read profile: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

var (
	cacheMu sync.RWMutex
	cache   = make(map[string][]byte)
)

// Builtin returns a fresh copy of an embedded profile.
func Builtin(name string) (*Profile, error) {
	cacheMu.RLock()
	data, ok := cache[name]
	cacheMu.RUnlock()

	if !ok {
		var err error
		data, err = profileFS.ReadFile("profiles/" + name + ".yaml")
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProfile, name)
		}
		cacheMu.Lock()
		cache[name] = data
		cacheMu.Unlock()
	}
	return Parse(data)
}

// Load resolves ref as a built-in profile name, or else as a file path.
func Load(ref string) (*Profile, error) {
	if ref == "" {
		ref = DefaultName
	}
	if !strings.ContainsAny(ref, `/\.`) {
		return Builtin(ref)
	}
	return LoadFile(ref)
}

// Available returns the names of the embedded profiles.
func Available() ([]string, error) {
	entries, err := profileFS.ReadDir("profiles")
	if err != nil {
		return nil, fmt.Errorf("reading profiles directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".yaml"); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (p *Profile) applyDefaults() {
	if p.Device.Address == 0 {
		p.Device.Address = stse.DefaultDeviceAddress
	}
	if p.Device.Bus == 0 {
		p.Device.Bus = stse.DefaultBusID
	}
	if p.KeySlots.Count == 0 {
		p.KeySlots.Count = stse.SymmetricKeySlotCount
	}
	for i := range p.Commands {
		c := &p.Commands[i]
		if c.Reserved {
			continue
		}
		if c.Encryption == nil {
			e := policy.EncryptNone
			c.Encryption = &e
		}
	}
}

// Validate checks the profile for consistency.
func (p *Profile) Validate() error {
	if len(p.Commands) == 0 {
		return fmt.Errorf("%w: no commands", ErrInvalidProfile)
	}
	if len(p.Commands) > 0xFF {
		return fmt.Errorf("%w: %d commands", ErrInvalidProfile, len(p.Commands))
	}
	for i, c := range p.Commands {
		if c.Reserved {
			if (c.AccessCondition != nil && *c.AccessCondition != ReservedAccessCondition) ||
				(c.Encryption != nil && *c.Encryption != ReservedEncryption) {
				return fmt.Errorf("%w: command %d (%s) is reserved and must keep its default policy", ErrInvalidProfile, i, c.Opcode)
			}
			continue
		}
		if c.AccessCondition == nil {
			return fmt.Errorf("%w: command %d (%s) has no access condition", ErrInvalidProfile, i, c.Opcode)
		}
	}
	if _, _, err := p.Tables(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	if _, err := p.PersonalizationWords(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	if p.KeySlots.Count < 0 || p.KeySlots.Count > stse.SymmetricKeySlotCount {
		return fmt.Errorf("%w: key slot count %d", ErrInvalidProfile, p.KeySlots.Count)
	}
	return nil
}

// Tables builds the target access-condition and encryption tables.
func (p *Profile) Tables() (policy.ACTable, policy.EncryptionTable, error) {
	acEntries := make([]policy.ACEntry, 0, len(p.Commands))
	encEntries := make([]policy.EncryptionEntry, 0, len(p.Commands))
	for _, c := range p.Commands {
		ac, enc := ReservedAccessCondition, ReservedEncryption
		if !c.Reserved {
			if c.AccessCondition == nil || c.Encryption == nil {
				return policy.ACTable{}, policy.EncryptionTable{}, fmt.Errorf("command %s: policy not set", c.Opcode)
			}
			ac, enc = *c.AccessCondition, *c.Encryption
		}
		acEntries = append(acEntries, policy.ACEntry{Opcode: c.Opcode, Value: ac})
		encEntries = append(encEntries, policy.EncryptionEntry{Opcode: c.Opcode, Value: enc})
	}

	acTable, err := policy.NewACTable(acEntries...)
	if err != nil {
		return policy.ACTable{}, policy.EncryptionTable{}, err
	}
	encTable, err := policy.NewEncryptionTable(encEntries...)
	if err != nil {
		return policy.ACTable{}, policy.EncryptionTable{}, err
	}
	return acTable, encTable, nil
}

// PersonalizationWords resolves the personalization section. An empty
// section yields the STSAFE-A120 SPL05 words.
func (p *Profile) PersonalizationWords() (changeright.Personalization, error) {
	out := changeright.SPL05

	word := func(raw *uint64, levels []uint8, what string) (uint64, bool, error) {
		switch {
		case raw != nil && levels != nil:
			return 0, false, fmt.Errorf("%s: both a word and levels given", what)
		case raw != nil:
			return *raw, true, nil
		case levels != nil:
			w, err := changeright.Pack(levels)
			if err != nil {
				return 0, false, fmt.Errorf("%s: %w", what, err)
			}
			return w, true, nil
		}
		return 0, false, nil
	}

	w, ok, err := word(p.Personalization.CmdACStatus, p.Personalization.CmdLevels, "cmd_ac_status")
	if err != nil {
		return changeright.Personalization{}, err
	}
	if ok {
		out.CmdACStatus = w
	}
	w, ok, err = word(p.Personalization.ExtCmdACStatus, p.Personalization.ExtCmdLevels, "ext_cmd_ac_status")
	if err != nil {
		return changeright.Personalization{}, err
	}
	if ok {
		out.ExtCmdACStatus = w
	}
	return out, nil
}

// HandlerConfig returns the device configuration of the profile.
func (p *Profile) HandlerConfig() (stse.HandlerConfig, error) {
	perso, err := p.PersonalizationWords()
	if err != nil {
		return stse.HandlerConfig{}, err
	}
	return stse.HandlerConfig{
		DeviceAddress:   p.Device.Address,
		BusID:           p.Device.Bus,
		Personalization: perso,
	}, nil
}

// Names maps each opcode to its command name.
func (p *Profile) Names() map[policy.Opcode]string {
	names := make(map[policy.Opcode]string, len(p.Commands))
	for _, c := range p.Commands {
		names[c.Opcode] = c.Name
	}
	return names
}

// Opcodes returns the profile opcodes in table order.
func (p *Profile) Opcodes() []policy.Opcode {
	ops := make([]policy.Opcode, len(p.Commands))
	for i, c := range p.Commands {
		ops[i] = c.Opcode
	}
	return ops
}
