// Package emu provides the pipeline evaluation engine: the device
// memory, the delta/control records, the named register and signal
// maps, and the emulator that drives datapath and controller
// components through the two-phase tick/tock cycle.
package emu

import (
	"fmt"
	"strconv"
	"strings"
)

// SegmentBase identifies the memory segment an address belongs to.
type SegmentBase uint32

// Segment base addresses.
const (
	TextBase SegmentBase = 0x00400000
	DataBase SegmentBase = 0x10000000
)

// Address is a location in the device memory, expressed as a segment
// base and an offset into that segment.
type Address struct {
	Base   SegmentBase
	Offset uint32
}

// TextAddress returns the address at the given offset in the text
// segment.
func TextAddress(offset uint32) Address {
	return Address{Base: TextBase, Offset: offset}
}

// DataAddress returns the address at the given offset in the data
// segment.
func DataAddress(offset uint32) Address {
	return Address{Base: DataBase, Offset: offset}
}

// AddressFromRaw decomposes a raw 32-bit address. Addresses at or above
// the data base belong to the data segment; everything below is text.
func AddressFromRaw(raw uint32) Address {
	if raw >= uint32(DataBase) {
		return DataAddress(raw - uint32(DataBase))
	}
	return TextAddress(raw - uint32(TextBase))
}

// Raw returns the flat 32-bit form of the address.
func (a Address) Raw() uint32 {
	return uint32(a.Base) + a.Offset
}

// Next returns the address of the following word.
func (a Address) Next() Address {
	a.Offset += 4
	return a
}

// String formats the address in its raw hexadecimal form.
func (a Address) String() string {
	return fmt.Sprintf("0x%x", a.Raw())
}

// ParseAddress parses a raw hexadecimal address such as "0x10000000".
func ParseAddress(s string) (Address, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	raw, err := strconv.ParseUint(trimmed, 16, 32)
	if err != nil {
		return Address{}, fmt.Errorf("invalid address %q", s)
	}
	return AddressFromRaw(uint32(raw)), nil
}

// Range is an inclusive range of addresses.
type Range struct {
	Begin Address
	End   Address
}
