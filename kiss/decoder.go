package kiss

import (
	"errors"
	"fmt"
)

var (
	// ErrBadType is reported for frames whose command byte is not a data
	// frame on a port we serve.
	ErrBadType = errors.New("KISS frame is not a data frame")
	// ErrTooBig is reported for frames that overran the frame buffer.
	ErrTooBig = errors.New("KISS frame too big")
)

// FrameHandler is called for each complete data frame with the port the
// frame arrived on.  The frame slice is owned by the handler and has
// capacity for two further bytes.  An error returned by the handler
// stops decoding and is returned from Write.
type FrameHandler func(port int, frame []byte) error

// DropHandler is called with ErrBadType or ErrTooBig, wrapped with
// detail, for each discarded frame.
type DropHandler func(err error)

// Decoder reassembles KISS frames from a byte stream.  Frames may be
// split across any number of Write calls: the result only depends on the
// concatenated input.
type Decoder struct {
	buf      [MaxFrame]byte
	count    int
	escaped  bool
	dualPort bool
	onFrame  FrameHandler
	onDrop   DropHandler
}

// NewDecoder returns a decoder delivering frames to onFrame.  If dualPort
// is set, data frames for port 1 are accepted as well as port 0.  onDrop
// may be nil.
func NewDecoder(dualPort bool, onFrame FrameHandler, onDrop DropHandler) *Decoder {
	return &Decoder{
		dualPort: dualPort,
		onFrame:  onFrame,
		onDrop:   onDrop,
	}
}

// Reset discards any partially received frame.
func (d *Decoder) Reset() {
	d.count = 0
	d.escaped = false
}

// Write feeds bytes received from the TNC into the decoder.
func (d *Decoder) Write(p []byte) (int, error) {
	for i, c := range p {
		if err := d.rx(c); err != nil {
			return i + 1, err
		}
	}
	return len(p), nil
}

func (d *Decoder) rx(c byte) error {
	switch {
	case c == FEND:
		var err error
		if d.count > 0 {
			err = d.complete()
		}
		d.Reset()
		return err
	case c == FESC:
		d.escaped = true
		return nil
	case d.escaped:
		switch c {
		case TFEND:
			c = FEND
		case TFESC:
			c = FESC
		}
		d.escaped = false
	}
	if d.count < len(d.buf) {
		d.buf[d.count] = c
	}
	d.count++
	return nil
}

func (d *Decoder) complete() error {
	typ := d.buf[0]
	port := int(typ >> 4)
	if Command(typ&0x0f) != CmdData || (port != 0 && !(d.dualPort && port == 1)) {
		d.drop(fmt.Errorf("%w: type byte 0x%02x", ErrBadType, typ))
		return nil
	}
	if d.count >= MaxFrame-2 {
		d.drop(fmt.Errorf("%w: %d bytes", ErrTooBig, d.count))
		return nil
	}
	frame := make([]byte, d.count-1, d.count+1)
	copy(frame, d.buf[1:d.count])
	return d.onFrame(port, frame)
}

func (d *Decoder) drop(err error) {
	if d.onDrop != nil {
		d.onDrop(err)
	}
}
