package bridge

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/stse-tools/stse-go/pkg/changeright"
	"github.com/stse-tools/stse-go/pkg/stse"
)

// InitStatus is the result code of the init handshake.
type InitStatus uint8

const (
	// InitOK means the device was initialized.
	InitOK InitStatus = 0

	// InitNoDevice means no device answered at the requested address.
	InitNoDevice InitStatus = 1

	// InitBadRequest means the init request could not be decoded.
	InitBadRequest InitStatus = 2
)

// String returns the status name.
func (s InitStatus) String() string {
	switch s {
	case InitOK:
		return "OK"
	case InitNoDevice:
		return "NO_DEVICE"
	case InitBadRequest:
		return "BAD_REQUEST"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", uint8(s))
	}
}

// InitRequest is the first frame sent by a client.
type InitRequest struct {
	DeviceAddress  uint8  `cbor:"1,keyasint"`
	BusID          uint8  `cbor:"2,keyasint"`
	CmdACStatus    uint64 `cbor:"3,keyasint"`
	ExtCmdACStatus uint64 `cbor:"4,keyasint"`
}

// NewInitRequest builds the init request for cfg.
func NewInitRequest(cfg stse.HandlerConfig) InitRequest {
	return InitRequest{
		DeviceAddress:  cfg.DeviceAddress,
		BusID:          cfg.BusID,
		CmdACStatus:    cfg.Personalization.CmdACStatus,
		ExtCmdACStatus: cfg.Personalization.ExtCmdACStatus,
	}
}

// HandlerConfig returns the device configuration carried by r.
func (r InitRequest) HandlerConfig() stse.HandlerConfig {
	return stse.HandlerConfig{
		DeviceAddress: r.DeviceAddress,
		BusID:         r.BusID,
		Personalization: changeright.Personalization{
			CmdACStatus:    r.CmdACStatus,
			ExtCmdACStatus: r.ExtCmdACStatus,
		},
	}
}

// InitResponse answers an InitRequest.
type InitResponse struct {
	Status     InitStatus `cbor:"1,keyasint"`
	DeviceType string     `cbor:"2,keyasint,omitempty"`
	Message    string     `cbor:"3,keyasint,omitempty"`
}

// InitError is returned by a Dialer when the server rejects the init
// request.
type InitError struct {
	Status  InitStatus
	Message string
}

func (e *InitError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bridge init failed: %s", e.Status)
	}
	return fmt.Sprintf("bridge init failed: %s: %s", e.Status, e.Message)
}

// ErrInvalidHandshake indicates a malformed init message.
var ErrInvalidHandshake = errors.New("invalid bridge handshake")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

func marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

func unmarshal(data []byte, v any) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidHandshake, err)
	}
	return nil
}
