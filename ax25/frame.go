package ax25

import (
	"bytes"
	"errors"
	"fmt"
)

// Digi is a digipeater slot of a decoded frame.
type Digi struct {
	Call     Callsign
	Repeated bool
}

// Frame is a decoded AX.25 frame, used for building test traffic and
// for logging.  The relay path works on raw bytes via AddressField.
type Frame struct {
	Dest    Callsign
	Source  Callsign
	Digis   []Digi
	Control byte
	// PID is only present for I and UI frames.
	PID     byte
	HasPID  bool
	Info    []byte
	Command bool
}

// NewUIFrame encodes an unnumbered information frame with no
// digipeaters, sent as a command.
func NewUIFrame(dest, src Callsign, pid byte, info []byte) []byte {
	f := Frame{
		Dest:    dest,
		Source:  src,
		Control: ControlUI,
		PID:     pid,
		HasPID:  true,
		Info:    info,
		Command: true,
	}
	return f.Encode()
}

// Encode returns the wire form of f, without an FCS.
func (f *Frame) Encode() []byte {
	var b bytes.Buffer
	var dflags, sflags byte
	if f.Command {
		dflags = FlagRepeated
	} else {
		sflags = FlagRepeated
	}
	if len(f.Digis) == 0 {
		sflags |= FlagLast
	}
	g := f.Dest.Encode(dflags)
	b.Write(g[:])
	g = f.Source.Encode(sflags)
	b.Write(g[:])
	for i, d := range f.Digis {
		var flags byte
		if d.Repeated {
			flags |= FlagRepeated
		}
		if i == len(f.Digis)-1 {
			flags |= FlagLast
		}
		g = d.Call.Encode(flags)
		b.Write(g[:])
	}
	b.WriteByte(f.Control)
	if f.HasPID {
		b.WriteByte(f.PID)
	}
	b.Write(f.Info)
	return b.Bytes()
}

// DecodeFrame parses a frame without an FCS.
func DecodeFrame(b []byte) (*Frame, error) {
	af, err := ParseAddressField(b)
	if err != nil {
		return nil, err
	}
	rest := b[af.Size():]
	if len(rest) < 1 {
		return nil, errors.New("frame has no control field")
	}
	f := &Frame{
		Dest:    af.Callsign(Destination),
		Source:  af.Callsign(Source),
		Control: rest[0],
		Command: af.Group(Destination)[6]&FlagRepeated != 0,
	}
	for i := FirstDigi; i < af.Len(); i++ {
		f.Digis = append(f.Digis, Digi{Call: af.Callsign(i), Repeated: af.Repeated(i)})
	}
	rest = rest[1:]
	// I frames have bit 0 clear, UI frames are 0x03 with or without P/F.
	if (f.Control&0x01 == 0 || f.Control&0xef == ControlUI) && len(rest) > 0 {
		f.PID = rest[0]
		f.HasPID = true
		rest = rest[1:]
	}
	f.Info = rest
	return f, nil
}

// String renders f in the monitor style "SRC>DEST,DIGI*:ctl pid len".
func (f *Frame) String() string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%v>%v", f.Source, f.Dest)
	for _, d := range f.Digis {
		b.WriteByte(',')
		b.WriteString(d.Call.String())
		if d.Repeated {
			b.WriteByte('*')
		}
	}
	fmt.Fprintf(&b, ": ctl 0x%02x", f.Control)
	if f.HasPID {
		fmt.Fprintf(&b, " pid 0x%02x", f.PID)
	}
	fmt.Fprintf(&b, " len %d", len(f.Info))
	return b.String()
}

// Dump renders a raw frame for debug logging, falling back to a length
// when the frame cannot be decoded.
func Dump(b []byte) string {
	f, err := DecodeFrame(b)
	if err != nil {
		return fmt.Sprintf("undecodable frame (%v) len %d", err, len(b))
	}
	return f.String()
}
