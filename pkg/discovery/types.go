package discovery

import (
	"errors"
	"net"
	"strconv"
	"time"
)

// Service constants for mDNS.
const (
	// ServiceType is the service type of device bridges.
	ServiceType = "_stse._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort is the default bridge port.
	DefaultPort = 7420

	// MaxInstanceNameLen is the DNS label limit for instance names.
	MaxInstanceNameLen = 63

	// ProtocolVersion is advertised in the "ver" TXT key.
	ProtocolVersion = 1
)

// TXT record keys.
const (
	TXTKeyDeviceType = "dt"   // Device type, e.g. STSAFE-A120
	TXTKeyAddress    = "addr" // Device bus address, hex
	TXTKeyBus        = "bus"  // Bus ID
	TXTKeySerial     = "sn"   // Serial number (optional)
	TXTKeyVersion    = "ver"  // Bridge protocol version
)

// BrowseTimeout is the default timeout of FindBridge.
const BrowseTimeout = 10 * time.Second

// Discovery errors.
var (
	ErrMissingRequired     = errors.New("missing required TXT field")
	ErrInvalidTXTRecord    = errors.New("invalid TXT record")
	ErrInvalidInstanceName = errors.New("invalid instance name")
	ErrNotFound            = errors.New("no bridge found")
)

// BridgeInfo describes an advertised bridge.
type BridgeInfo struct {
	// InstanceName is the mDNS instance name. If empty, the advertiser
	// derives one from the device type and serial number.
	InstanceName string

	DeviceType    string
	DeviceAddress uint8
	BusID         uint8
	Serial        string

	// Port is the bridge TCP port (default: 7420).
	Port uint16
}

// BridgeService is a bridge found by browsing.
type BridgeService struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string
	Info         BridgeInfo
}

// Address returns the "host:port" to dial, preferring the first resolved
// address over the host name.
func (s *BridgeService) Address() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	return net.JoinHostPort(host, strconv.Itoa(int(s.Port)))
}

// FilterFunc selects bridges.
type FilterFunc func(*BridgeService) bool

// FilterByDeviceType matches bridges serving deviceType.
func FilterByDeviceType(deviceType string) FilterFunc {
	return func(s *BridgeService) bool {
		return s.Info.DeviceType == deviceType
	}
}

// FilterBySerial matches the bridge of one device.
func FilterBySerial(serial string) FilterFunc {
	return func(s *BridgeService) bool {
		return s.Info.Serial == serial
	}
}
