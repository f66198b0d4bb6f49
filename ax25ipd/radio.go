package ax25ipd

import (
	"errors"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/katalix/go-ax25ipd/kiss"
)

// radioChannel is the descriptor on the radio side of the gateway: a
// serial line, a pseudo terminal or a packet socket.  Fd must be
// nonblocking.
type radioChannel interface {
	Fd() int
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	Close() error
}

// framer converts between the bytes exchanged with a radio channel and
// AX.25 frames.
type framer interface {
	// input consumes bytes read from the channel, delivering complete
	// frames to the processor.  Only fatal send errors are returned.
	input(p []byte) error
	// output returns the bytes to write to the channel for a frame.
	output(port int, frame []byte) []byte
	// params returns the configuration frames to send at open time.
	params(cfg *Config) [][]byte
}

type kissFramer struct {
	dec *kiss.Decoder
}

func newKISSFramer(dualPort bool, proc *Processor, stats *Stats, logger log.Logger) *kissFramer {
	onDrop := func(err error) {
		switch {
		case errors.Is(err, kiss.ErrBadType):
			stats.KISSBadtype.Add(1)
		case errors.Is(err, kiss.ErrTooBig):
			stats.KISSToobig.Add(1)
		}
		level.Debug(logger).Log(
			"message", "dropped KISS frame",
			"error", err)
	}
	return &kissFramer{
		dec: kiss.NewDecoder(dualPort, proc.FromKISS, onDrop),
	}
}

func (kf *kissFramer) input(p []byte) error {
	_, err := kf.dec.Write(p)
	return err
}

func (kf *kissFramer) output(port int, frame []byte) []byte {
	return kiss.EncodeData(port, frame)
}

func (kf *kissFramer) params(cfg *Config) [][]byte {
	out := cfg.KISS.Frames(0)
	if cfg.DualPort {
		out = append(out, cfg.KISS.Frames(1)...)
	}
	return out
}
