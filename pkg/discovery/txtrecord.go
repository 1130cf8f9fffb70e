package discovery

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeTXT creates the TXT record of a bridge.
func EncodeTXT(info *BridgeInfo) TXTRecordMap {
	txt := TXTRecordMap{
		TXTKeyDeviceType: info.DeviceType,
		TXTKeyAddress:    fmt.Sprintf("0x%02X", info.DeviceAddress),
		TXTKeyBus:        strconv.Itoa(int(info.BusID)),
		TXTKeyVersion:    strconv.Itoa(ProtocolVersion),
	}
	if info.Serial != "" {
		txt[TXTKeySerial] = info.Serial
	}
	return txt
}

// DecodeTXT parses the TXT record of a bridge. Port and InstanceName are
// not part of the record and are left zero.
func DecodeTXT(txt TXTRecordMap) (*BridgeInfo, error) {
	info := &BridgeInfo{}

	var ok bool
	if info.DeviceType, ok = txt[TXTKeyDeviceType]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyDeviceType)
	}

	addr, ok := txt[TXTKeyAddress]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyAddress)
	}
	a, err := strconv.ParseUint(addr, 0, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, TXTKeyAddress, addr)
	}
	info.DeviceAddress = uint8(a)

	bus, ok := txt[TXTKeyBus]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyBus)
	}
	b, err := strconv.ParseUint(bus, 10, 8)
	if err != nil {
		return nil, fmt.Errorf("%w: %s=%q", ErrInvalidTXTRecord, TXTKeyBus, bus)
	}
	info.BusID = uint8(b)

	if v, ok := txt[TXTKeyVersion]; ok && v != strconv.Itoa(ProtocolVersion) {
		return nil, fmt.Errorf("%w: unsupported %s=%q", ErrInvalidTXTRecord, TXTKeyVersion, v)
	}

	info.Serial = txt[TXTKeySerial]
	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to sorted "key=value"
// strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, found := strings.Cut(s, "=")
		if found {
			txt[k] = v
		} else if k != "" {
			txt[k] = ""
		}
	}
	return txt
}

// InstanceName derives the instance name of a bridge.
func InstanceName(info *BridgeInfo) string {
	if info.InstanceName != "" {
		return info.InstanceName
	}
	name := "STSE"
	if info.DeviceType != "" {
		name = info.DeviceType
	}
	if info.Serial != "" {
		name += "-" + info.Serial
	}
	return name
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidInstanceName)
	}
	if len(name) > MaxInstanceNameLen {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidInstanceName, MaxInstanceNameLen)
	}
	return nil
}
