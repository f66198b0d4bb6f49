package ax25

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCallsign(t *testing.T) {
	cases := []struct {
		in       string
		call     string
		ssid     int
		str      string
		wantErr  error
		anyError bool
	}{
		{in: "VK2XXX", call: "VK2XXX", ssid: 0, str: "VK2XXX"},
		{in: "vk2xxx-7", call: "VK2XXX", ssid: 7, str: "VK2XXX-7"},
		{in: "ID", call: "ID", ssid: 0, str: "ID"},
		{in: "N0CALL-15", call: "N0CALL", ssid: 15, str: "N0CALL-15"},
		{in: "", wantErr: ErrCallsignEmpty},
		{in: "TOOLONG1", wantErr: ErrCallsignTooLong},
		{in: "AB/C", wantErr: ErrCallsignChar},
		{in: "N0CALL-16", wantErr: ErrSSIDRange},
		{in: "N0CALL-x", anyError: true},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, err := ParseCallsign(c.in)
			if c.wantErr != nil || c.anyError {
				if err == nil {
					t.Fatalf("ParseCallsign(%q): expected error, got %v", c.in, got)
				}
				if c.wantErr != nil && !errors.Is(err, c.wantErr) {
					t.Fatalf("ParseCallsign(%q): got error %v, want %v", c.in, err, c.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.call, got.Call())
			assert.Equal(t, c.ssid, got.SSID())
			assert.Equal(t, c.str, got.String())
		})
	}
}

func TestCallsignEncode(t *testing.T) {
	c := MustParseCallsign("AB1C-3")
	got := c.Encode(FlagLast)
	want := [AddrLen]byte{'A' << 1, 'B' << 1, '1' << 1, 'C' << 1, ' ' << 1, ' ' << 1, 0x60 | 3<<1 | 0x01}
	assert.Equal(t, want, got)

	back, err := DecodeCallsign(got[:])
	require.NoError(t, err)
	assert.Equal(t, c, back)
}

func TestDecodeCallsignShort(t *testing.T) {
	_, err := DecodeCallsign([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrShortGroup)
}

func TestAddrMatch(t *testing.T) {
	a := MustParseCallsign("N0CALL-2").Encode(0)
	b := MustParseCallsign("N0CALL-2").Encode(FlagLast | FlagRepeated)
	c := MustParseCallsign("N0CALL-3").Encode(0)
	d := MustParseCallsign("N0CALM-2").Encode(0)

	assert.True(t, AddrMatch(a[:], b[:]), "flag bits must be ignored")
	assert.False(t, AddrMatch(a[:], c[:]), "SSID must be compared")
	assert.False(t, AddrMatch(a[:], d[:]), "call must be compared")
	assert.False(t, AddrMatch(a[:3], a[:]))

	assert.True(t, MustParseCallsign("N0CALL-2").Matches(b[:]))
	assert.False(t, Callsign{}.Matches(a[:]))
}

func TestCallsignText(t *testing.T) {
	var c Callsign
	require.NoError(t, c.UnmarshalText([]byte("g4abc-9")))
	b, err := c.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "G4ABC-9", string(b))
	assert.Error(t, c.UnmarshalText([]byte("--")))
}
