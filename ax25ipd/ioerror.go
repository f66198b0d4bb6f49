package ax25ipd

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"golang.org/x/sys/unix"
)

// Direction is the direction of an I/O operation.
type Direction int

const (
	// DirRead is a read or receive.
	DirRead Direction = iota
	// DirWrite is a write or send.
	DirWrite
)

// String provides a human-readable representation of Direction.
func (d Direction) String() string {
	if d == DirRead {
		return "read"
	}
	return "write"
}

// ChannelKind identifies the descriptor an I/O operation was made on.
type ChannelKind int

const (
	// ChannelTTY is the radio channel.
	ChannelTTY ChannelKind = iota
	// ChannelUDP is the AXUDP socket.
	ChannelUDP
	// ChannelIP is the raw IP socket.
	ChannelIP
)

// String provides a human-readable representation of ChannelKind.
func (k ChannelKind) String() string {
	switch k {
	case ChannelTTY:
		return "tty"
	case ChannelUDP:
		return "udp"
	case ChannelIP:
		return "ip"
	}
	return "???"
}

// Action is the outcome of classifying an I/O result.
type Action int

const (
	// ActionContinue means the operation completed, or there is nothing
	// further to do with it.
	ActionContinue Action = iota
	// ActionRetry means the operation should be reissued at once.
	ActionRetry
	// ActionBackoff means the operation should be reissued after a
	// short sleep.
	ActionBackoff
	// ActionDrop means the payload should be discarded.
	ActionDrop
	// ActionFatal means the gateway cannot continue.
	ActionFatal
)

// String provides a human-readable representation of Action.
func (a Action) String() string {
	switch a {
	case ActionContinue:
		return "continue"
	case ActionRetry:
		return "retry"
	case ActionBackoff:
		return "backoff"
	case ActionDrop:
		return "drop"
	case ActionFatal:
		return "fatal"
	}
	return "???"
}

var (
	// ErrDeviceClosed is the cause of a fatal IOError when the radio
	// channel reports end of file.
	ErrDeviceClosed = errors.New("radio channel closed")
	// ErrShortWrite is the cause of a fatal IOError when a write
	// accepted no data.
	ErrShortWrite = errors.New("write accepted no data")
)

// IOError is returned from Run when an I/O operation fails in a way
// the gateway cannot recover from.
type IOError struct {
	Dir  Direction
	Kind ChannelKind
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%v on %v: %v", e.Dir, e.Kind, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Classify decides what to do with the result of an I/O operation.
func Classify(n int, err error, dir Direction, kind ChannelKind) Action {
	if err == nil {
		if n > 0 {
			return ActionContinue
		}
		if dir == DirRead {
			if kind == ChannelTTY {
				return ActionFatal
			}
			return ActionContinue
		}
		return ActionFatal
	}

	var errno unix.Errno
	if !errors.As(err, &errno) {
		return ActionFatal
	}

	switch errno {
	case unix.EINTR:
		if dir == DirRead {
			return ActionContinue
		}
		return ActionRetry
	case unix.EAGAIN:
		if dir == DirRead {
			return ActionContinue
		}
		return ActionBackoff
	case unix.ENOBUFS:
		return ActionBackoff
	}

	if dir == DirWrite && kind != ChannelTTY {
		switch errno {
		case unix.EMSGSIZE,
			unix.ENETDOWN, unix.ENETUNREACH, unix.EHOSTDOWN, unix.EHOSTUNREACH,
			unix.ENONET, unix.EPERM, unix.ENETRESET:
			return ActionDrop
		}
	}
	return ActionFatal
}

// Sleeper pauses the calling goroutine.
type Sleeper interface {
	Sleep(d time.Duration)
}

type timeSleeper struct{}

func (timeSleeper) Sleep(d time.Duration) {
	time.Sleep(d)
}

const (
	retryBackoff = 100 * time.Millisecond
	maxRetries   = 10
)

// retryPolicy reissues an I/O operation according to Classify.
type retryPolicy struct {
	logger  log.Logger
	sleeper Sleeper
	backoff time.Duration
	max     int
}

func newRetryPolicy(logger log.Logger, sleeper Sleeper) *retryPolicy {
	if sleeper == nil {
		sleeper = timeSleeper{}
	}
	return &retryPolicy{
		logger:  logger,
		sleeper: sleeper,
		backoff: retryBackoff,
		max:     maxRetries,
	}
}

// do runs op until it completes, is dropped, or fails fatally.  A drop
// is reported as zero bytes and no error.
func (rp *retryPolicy) do(dir Direction, kind ChannelKind, op func() (int, error)) (int, error) {
	for attempt := 0; ; attempt++ {
		n, err := op()
		action := Classify(n, err, dir, kind)
		switch action {
		case ActionContinue:
			if n < 0 {
				n = 0
			}
			return n, nil
		case ActionDrop:
			level.Debug(rp.logger).Log(
				"message", "dropping payload",
				"dir", dir,
				"channel", kind,
				"error", err)
			return 0, nil
		case ActionFatal:
			if err == nil {
				if dir == DirRead {
					err = ErrDeviceClosed
				} else {
					err = ErrShortWrite
				}
			}
			return 0, &IOError{Dir: dir, Kind: kind, Err: err}
		}
		if attempt >= rp.max {
			level.Warn(rp.logger).Log(
				"message", "giving up after retries",
				"dir", dir,
				"channel", kind,
				"retries", attempt,
				"error", err)
			return 0, nil
		}
		if action == ActionBackoff {
			rp.sleeper.Sleep(rp.backoff)
		}
	}
}
