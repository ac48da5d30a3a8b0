// Package discovery finds Iris devices on the local network.
//
// No addresses are hardcoded. The scanner runs a recurring cycle:
//
//  1. mDNS browse for _iris-iot._tcp instances named iris-<name>,
//     with kind/caps/label TXT records.
//  2. When mDNS yields nothing, a UDP broadcast probe for devices too
//     small to speak mDNS.
//  3. As a last resort at startup, manually configured addresses.
//
// Results feed the device registry. Absence from a cycle never removes
// a record; the registry's freshness window handles staleness. Cycles
// that add or re-address a device publish a discovery-change interrupt
// so an open device list refreshes itself.
package discovery
