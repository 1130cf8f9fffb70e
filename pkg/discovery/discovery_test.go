package discovery

import (
	"errors"
	"testing"
)

func TestTXTRoundTrip(t *testing.T) {
	info := &BridgeInfo{
		DeviceType:    "STSAFE-A120",
		DeviceAddress: 0x20,
		BusID:         1,
		Serial:        "0203A1B2",
	}

	strs := TXTRecordsToStrings(EncodeTXT(info))
	want := []string{"addr=0x20", "bus=1", "dt=STSAFE-A120", "sn=0203A1B2", "ver=1"}
	if len(strs) != len(want) {
		t.Fatalf("got %v, want %v", strs, want)
	}
	for i := range want {
		if strs[i] != want[i] {
			t.Errorf("record %d = %q, want %q", i, strs[i], want[i])
		}
	}

	got, err := DecodeTXT(StringsToTXTRecords(strs))
	if err != nil {
		t.Fatalf("DecodeTXT failed: %v", err)
	}
	if *got != *info {
		t.Errorf("got %+v, want %+v", got, info)
	}
}

func TestDecodeTXTErrors(t *testing.T) {
	tests := []struct {
		name string
		txt  TXTRecordMap
		want error
	}{
		{"missing type", TXTRecordMap{"addr": "0x20", "bus": "1"}, ErrMissingRequired},
		{"missing address", TXTRecordMap{"dt": "X", "bus": "1"}, ErrMissingRequired},
		{"missing bus", TXTRecordMap{"dt": "X", "addr": "0x20"}, ErrMissingRequired},
		{"bad address", TXTRecordMap{"dt": "X", "addr": "0x200", "bus": "1"}, ErrInvalidTXTRecord},
		{"bad bus", TXTRecordMap{"dt": "X", "addr": "32", "bus": "one"}, ErrInvalidTXTRecord},
		{"future version", TXTRecordMap{"dt": "X", "addr": "32", "bus": "1", "ver": "2"}, ErrInvalidTXTRecord},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeTXT(tt.txt)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestStringsToTXTRecords(t *testing.T) {
	txt := StringsToTXTRecords([]string{"a=1", "flag", "b=x=y", ""})
	if txt["a"] != "1" || txt["b"] != "x=y" {
		t.Errorf("unexpected values %v", txt)
	}
	if v, ok := txt["flag"]; !ok || v != "" {
		t.Errorf("flag not parsed: %v", txt)
	}
	if len(txt) != 3 {
		t.Errorf("expected 3 keys, got %d", len(txt))
	}
}

func TestInstanceName(t *testing.T) {
	if got := InstanceName(&BridgeInfo{}); got != "STSE" {
		t.Errorf("got %q", got)
	}
	if got := InstanceName(&BridgeInfo{DeviceType: "STSAFE-A120", Serial: "42"}); got != "STSAFE-A120-42" {
		t.Errorf("got %q", got)
	}
	if got := InstanceName(&BridgeInfo{InstanceName: "bench", Serial: "42"}); got != "bench" {
		t.Errorf("got %q", got)
	}

	long := make([]byte, MaxInstanceNameLen+1)
	for i := range long {
		long[i] = 'a'
	}
	if err := ValidateInstanceName(string(long)); !errors.Is(err, ErrInvalidInstanceName) {
		t.Errorf("expected ErrInvalidInstanceName, got %v", err)
	}
	if err := ValidateInstanceName(""); !errors.Is(err, ErrInvalidInstanceName) {
		t.Errorf("expected ErrInvalidInstanceName, got %v", err)
	}
}

func TestBridgeServiceAddress(t *testing.T) {
	svc := &BridgeService{Host: "bench.local.", Port: 7420}
	if got := svc.Address(); got != "bench.local.:7420" {
		t.Errorf("got %q", got)
	}

	svc.Addresses = []string{"fe80::1", "192.168.1.20"}
	if got := svc.Address(); got != "[fe80::1]:7420" {
		t.Errorf("got %q", got)
	}
}

func TestMergeAddresses(t *testing.T) {
	got := mergeAddresses([]string{"10.0.0.1"}, []string{"10.0.0.1", "10.0.0.2"})
	if len(got) != 2 || got[1] != "10.0.0.2" {
		t.Errorf("got %v", got)
	}
}

func TestFilters(t *testing.T) {
	svc := &BridgeService{Info: BridgeInfo{DeviceType: "STSAFE-A120", Serial: "42"}}
	if !FilterByDeviceType("STSAFE-A120")(svc) || FilterByDeviceType("STSAFE-A110")(svc) {
		t.Error("FilterByDeviceType mismatch")
	}
	if !FilterBySerial("42")(svc) || FilterBySerial("43")(svc) {
		t.Error("FilterBySerial mismatch")
	}
}
