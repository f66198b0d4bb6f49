package ax25

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrCallsignEmpty is returned when parsing a zero-length callsign.
	ErrCallsignEmpty = errors.New("empty callsign")
	// ErrCallsignTooLong is returned for callsigns of more than six characters.
	ErrCallsignTooLong = errors.New("callsign longer than 6 characters")
	// ErrCallsignChar is returned for callsigns containing anything other
	// than letters and digits.
	ErrCallsignChar = errors.New("callsign contains an invalid character")
	// ErrSSIDRange is returned for SSIDs outside 0-15.
	ErrSSIDRange = errors.New("SSID out of range 0-15")
	// ErrShortGroup is returned when decoding fewer than AddrLen bytes.
	ErrShortGroup = errors.New("address group shorter than 7 bytes")
)

// Callsign is a station identifier: up to six characters plus an SSID.
// The zero value is the empty callsign.  Callsign is comparable and may
// be used as a map key.
type Callsign struct {
	call [6]byte
	ssid uint8
}

// NewCallsign builds a callsign from its parts.  Lower case letters are
// folded to upper case.
func NewCallsign(call string, ssid int) (Callsign, error) {
	var c Callsign
	if call == "" {
		return c, ErrCallsignEmpty
	}
	if len(call) > len(c.call) {
		return c, ErrCallsignTooLong
	}
	if ssid < 0 || ssid > 15 {
		return c, ErrSSIDRange
	}
	for i := range c.call {
		c.call[i] = ' '
	}
	for i := 0; i < len(call); i++ {
		ch := call[i]
		switch {
		case ch >= 'a' && ch <= 'z':
			ch -= 'a' - 'A'
		case ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
		default:
			return Callsign{}, ErrCallsignChar
		}
		c.call[i] = ch
	}
	c.ssid = uint8(ssid)
	return c, nil
}

// ParseCallsign parses the text form of a callsign: "CALL" or "CALL-SSID".
func ParseCallsign(s string) (Callsign, error) {
	call, ssidText, found := strings.Cut(strings.TrimSpace(s), "-")
	ssid := 0
	if found {
		v, err := strconv.Atoi(ssidText)
		if err != nil {
			return Callsign{}, fmt.Errorf("bad SSID in %q: %v", s, err)
		}
		ssid = v
	}
	c, err := NewCallsign(call, ssid)
	if err != nil {
		return Callsign{}, fmt.Errorf("%q: %w", s, err)
	}
	return c, nil
}

// MustParseCallsign is like ParseCallsign but panics on error.
func MustParseCallsign(s string) Callsign {
	c, err := ParseCallsign(s)
	if err != nil {
		panic(err)
	}
	return c
}

// DecodeCallsign extracts the callsign from an on-air address group.
// The characters are taken as-is so that frames from stations using
// unusual identifiers can still be relayed and logged.
func DecodeCallsign(group []byte) (Callsign, error) {
	var c Callsign
	if len(group) < AddrLen {
		return c, ErrShortGroup
	}
	for i := range c.call {
		c.call[i] = group[i] >> 1
	}
	c.ssid = (group[6] & ssidMask) >> 1
	return c, nil
}

// IsZero reports whether c is the empty callsign.
func (c Callsign) IsZero() bool {
	return c == Callsign{}
}

// Call returns the callsign without its SSID.
func (c Callsign) Call() string {
	return strings.TrimRight(string(c.call[:]), " ")
}

// SSID returns the secondary station identifier.
func (c Callsign) SSID() int {
	return int(c.ssid)
}

// String returns the text form of the callsign.  A zero SSID is omitted.
func (c Callsign) String() string {
	if c.IsZero() {
		return ""
	}
	if c.ssid == 0 {
		return c.Call()
	}
	return fmt.Sprintf("%s-%d", c.Call(), c.ssid)
}

// Encode returns the on-air form of c.  The reserved bits of the SSID
// byte are set; flags is ORed in on top (FlagLast, FlagRepeated).
func (c Callsign) Encode(flags byte) [AddrLen]byte {
	var g [AddrLen]byte
	for i, ch := range c.call {
		if ch == 0 {
			ch = ' '
		}
		g[i] = ch << 1
	}
	g[6] = FlagReserved | c.ssid<<1 | flags
	return g
}

// Matches reports whether the address group holds c, ignoring the
// flag bits.
func (c Callsign) Matches(group []byte) bool {
	if c.IsZero() {
		return false
	}
	g := c.Encode(0)
	return AddrMatch(g[:], group)
}

// MarshalText implements encoding.TextMarshaler.
func (c Callsign) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Callsign) UnmarshalText(b []byte) error {
	v, err := ParseCallsign(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// AddrMatch reports whether two address groups name the same station.
// Only the callsign characters and the SSID are compared.
func AddrMatch(a, b []byte) bool {
	if len(a) < AddrLen || len(b) < AddrLen {
		return false
	}
	for i := 0; i < 6; i++ {
		if a[i]&0xfe != b[i]&0xfe {
			return false
		}
	}
	return a[6]&ssidMask == b[6]&ssidMask
}
