package ax25

import (
	"errors"
	"fmt"
)

var (
	// ErrAddressTruncated is returned when the frame ends before a group
	// with FlagLast set is found.
	ErrAddressTruncated = errors.New("address field truncated")
	// ErrTooManyDigis is returned when the address field lists more than
	// MaxDigis digipeaters.
	ErrTooManyDigis = errors.New("too many digipeaters in address field")
)

// AddressField is a cursor over the address groups at the start of a
// frame.  It aliases the frame it was parsed from: MarkRepeated modifies
// the frame in place.
type AddressField struct {
	frame  []byte
	groups int
}

// ParseAddressField walks the address groups at the start of frame,
// stopping at the group carrying FlagLast.  Every access through the
// returned cursor is within the bounds established here.
func ParseAddressField(frame []byte) (*AddressField, error) {
	for i := 0; ; i++ {
		off := i * AddrLen
		if off+AddrLen > len(frame) {
			return nil, ErrAddressTruncated
		}
		if i >= FirstDigi+MaxDigis {
			return nil, ErrTooManyDigis
		}
		if frame[off+6]&FlagLast != 0 {
			if i < Source {
				return nil, ErrAddressTruncated
			}
			return &AddressField{frame: frame, groups: i + 1}, nil
		}
	}
}

// Len returns the number of address groups.
func (af *AddressField) Len() int {
	return af.groups
}

// Size returns the length of the address field in bytes.
func (af *AddressField) Size() int {
	return af.groups * AddrLen
}

// Digis returns the number of digipeater slots.
func (af *AddressField) Digis() int {
	return af.groups - FirstDigi
}

// Group returns address group i.
func (af *AddressField) Group(i int) []byte {
	off := i * AddrLen
	return af.frame[off : off+AddrLen : off+AddrLen]
}

// Callsign decodes the callsign held in group i.
func (af *AddressField) Callsign(i int) Callsign {
	c, _ := DecodeCallsign(af.Group(i))
	return c
}

// IsLast reports whether group i terminates the address field.
func (af *AddressField) IsLast(i int) bool {
	return i == af.groups-1
}

// IsDigi reports whether group i is a digipeater slot.
func (af *AddressField) IsDigi(i int) bool {
	return i >= FirstDigi && i < af.groups
}

// Repeated reports whether the H bit of group i is set.
func (af *AddressField) Repeated(i int) bool {
	return af.Group(i)[6]&FlagRepeated != 0
}

// MarkRepeated sets the H bit of digipeater slot i.
func (af *AddressField) MarkRepeated(i int) {
	if !af.IsDigi(i) {
		panic(fmt.Sprintf("ax25: group %d is not a digipeater slot", i))
	}
	af.frame[i*AddrLen+6] |= FlagRepeated
}

// NextAddr returns the index of the station the frame is heading to:
// the first digipeater slot not yet repeated, or the destination if
// every digipeater has repeated the frame.
func (af *AddressField) NextAddr() int {
	for i := FirstDigi; i < af.groups; i++ {
		if !af.Repeated(i) {
			return i
		}
	}
	return Destination
}
