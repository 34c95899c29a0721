// Package pciaddr parses and validates PCI addresses of NIC devices.
package pciaddr

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
)

// ErrPCIAddress indicates the input PCI address is invalid.
var ErrPCIAddress = errors.New("bad PCI address")

var rePCI = regexp.MustCompile(`^(?:([[:xdigit:]]{1,4}):)?([[:xdigit:]]{1,2}):([[:xdigit:]]{1,2})\.([0-7])$`)

// SysfsRoot is the sysfs directory that contains PCI devices.
var SysfsRoot = "/sys/bus/pci/devices"

// PCIAddress represents a PCI address.
// Zero value is 0000:00:00.0, which is never a NIC.
type PCIAddress struct {
	Domain   uint16
	Bus      uint8
	Slot     uint8
	Function uint8
}

// Empty returns true if this is the zero value.
func (a PCIAddress) Empty() bool {
	return a == PCIAddress{}
}

// String returns the PCI address in 0000:00:01.0 format.
func (a PCIAddress) String() string {
	return fmt.Sprintf("%04x:%02x:%02x.%01x", a.Domain, a.Bus, a.Slot, a.Function)
}

// SysfsPath returns the sysfs directory of this device.
func (a PCIAddress) SysfsPath() string {
	return filepath.Join(SysfsRoot, a.String())
}

// MarshalText implements encoding.TextMarshaler interface.
func (a PCIAddress) MarshalText() (text []byte, e error) {
	if a.Function > 7 {
		return nil, ErrPCIAddress
	}
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler interface.
func (a *PCIAddress) UnmarshalText(text []byte) (e error) {
	*a, e = Parse(string(text))
	return e
}

// Parse parses a PCI address.
// The domain may be omitted, in which case it is 0000.
func Parse(input string) (a PCIAddress, e error) {
	m := rePCI.FindStringSubmatch(input)
	if m == nil {
		return PCIAddress{}, fmt.Errorf("%w %q", ErrPCIAddress, input)
	}

	if m[1] != "" {
		u, _ := strconv.ParseUint(m[1], 16, 16)
		a.Domain = uint16(u)
	}
	bus, _ := strconv.ParseUint(m[2], 16, 8)
	slot, _ := strconv.ParseUint(m[3], 16, 8)
	fn, _ := strconv.ParseUint(m[4], 16, 8)
	a.Bus, a.Slot, a.Function = uint8(bus), uint8(slot), uint8(fn)
	return a, nil
}

// MustParse parses a PCI address, and panics on failure.
func MustParse(input string) (a PCIAddress) {
	a, e := Parse(input)
	if e != nil {
		panic(e)
	}
	return a
}
