// Package discovery advertises and finds device bridges with mDNS.
//
// A bridge registers a "_stse._tcp" service whose TXT record describes
// the served device:
//
//	dt=STSAFE-A120 addr=0x20 bus=1 sn=0123456789 ver=1
//
// Hosts browse for the service type and dial the first matching bridge.
package discovery
