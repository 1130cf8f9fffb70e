package changeright

import "fmt"

// Personalization is the static personalization information handed to
// the device driver at initialization. The two words are opaque to this
// package: they are stored and passed through, never interpreted.
type Personalization struct {
	// CmdACStatus covers the simple command set.
	CmdACStatus uint64

	// ExtCmdACStatus covers the 0x1F extended command set.
	ExtCmdACStatus uint64
}

// SPL05 is the static personalization of STSAFE-A120 SPL05 parts.
var SPL05 = Personalization{
	CmdACStatus:    0x4151540450141511,
	ExtCmdACStatus: 0x15555555555554,
}

// FromLevels packs both level lists into a Personalization.
func FromLevels(cmd, ext []uint8) (Personalization, error) {
	c, err := Pack(cmd)
	if err != nil {
		return Personalization{}, fmt.Errorf("command levels: %w", err)
	}
	x, err := Pack(ext)
	if err != nil {
		return Personalization{}, fmt.Errorf("extended command levels: %w", err)
	}
	return Personalization{CmdACStatus: c, ExtCmdACStatus: x}, nil
}

// String returns both words in hexadecimal.
func (p Personalization) String() string {
	return fmt.Sprintf("cmd=0x%016X ext=0x%016X", p.CmdACStatus, p.ExtCmdACStatus)
}
