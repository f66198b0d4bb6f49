package ax25ipd

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"golang.org/x/sys/unix"

	"github.com/katalix/go-ax25ipd/ax25"
	"github.com/katalix/go-ax25ipd/route"
)

// ErrReload is returned from Run when a reload was requested.
var ErrReload = errors.New("reload requested")

const pollTimeout = 10 * time.Second

const (
	reqNone int32 = iota
	reqReload
	reqStop
)

// Dispatcher owns the gateway's descriptors and runs the event loop
// relaying frames between them.  A Dispatcher is used for one
// Open/Run/Close cycle; a reload builds a new one.
type Dispatcher struct {
	cfg    *Config
	routes *route.Store
	stats  *Stats
	logger log.Logger
	proc   *Processor
	retry  *retryPolicy
	beacon *beaconTimer
	now    func() time.Time

	radio   radioChannel
	framer  framer
	udp     packetConn
	ip      packetConn
	ptyName string

	wakeMu sync.Mutex
	wake   [2]int
	req    atomic.Int32

	buf []byte
}

// NewDispatcher validates cfg and returns a dispatcher ready to Open.
// The route store and stats are shared with the caller, which may swap
// routes or read counters at any time.
func NewDispatcher(cfg *Config, routes *route.Store, stats *Stats, logger log.Logger) (*Dispatcher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if routes == nil {
		routes = route.NewStore(nil)
	}
	if stats == nil {
		stats = &Stats{}
	}
	d := &Dispatcher{
		cfg:    cfg,
		routes: routes,
		stats:  stats,
		logger: logger,
		retry:  newRetryPolicy(logger, nil),
		beacon: newBeaconTimer(&cfg.Beacon),
		now:    time.Now,
		wake:   [2]int{-1, -1},
		buf:    make([]byte, ax25.MaxFrame+ipv4MaxHeaderLen),
	}
	d.proc = newProcessor(cfg, routes, stats, d, logger)
	return d, nil
}

// Longest IPv4 header a raw socket may hand us in front of the payload.
const ipv4MaxHeaderLen = 60

// Processor returns the dispatcher's frame processor.
func (d *Dispatcher) Processor() *Processor {
	return d.proc
}

// PtyName returns the pseudo terminal slave path when the radio channel
// is a pseudo terminal.
func (d *Dispatcher) PtyName() string {
	return d.ptyName
}

// Open opens the radio channel and the IP sockets.
func (d *Dispatcher) Open() (err error) {
	var radio radioChannel
	var fr framer

	defer func() {
		if err != nil {
			d.Close()
		}
	}()

	switch d.cfg.Radio() {
	case RadioSerial:
		ch, err := openSerial(d.cfg.Device, d.cfg.Speed)
		if err != nil {
			return err
		}
		radio = ch
		fr = newKISSFramer(d.cfg.DualPort, d.proc, d.stats, d.logger)
	case RadioPty:
		ch, err := openPty(d.cfg.PtySymlink)
		if err != nil {
			return err
		}
		d.ptyName = ch.SlaveName()
		radio = ch
		fr = newKISSFramer(d.cfg.DualPort, d.proc, d.stats, d.logger)
	case RadioBPQ:
		ch, err := openBPQ(d.cfg.Device, d.logger)
		if err != nil {
			return err
		}
		radio = ch
		fr = &bpqFramer{src: ch.hwaddr, proc: d.proc}
		level.Info(d.logger).Log(
			"message", "BPQ interface open",
			"interface", ch.ifname,
			"hwaddr", hwaddrString(ch.hwaddr))
	}
	d.radio = radio

	var udp, ip packetConn
	if d.cfg.Sockets&SocketUDP != 0 {
		s, err := newUDPSocket(d.cfg.UDPPort)
		if err != nil {
			return err
		}
		udp = s
	}
	if d.cfg.Sockets&SocketIP != 0 {
		s, err := newRawIPSocket()
		if err != nil {
			if udp != nil {
				udp.Close()
			}
			return err
		}
		ip = s
	}

	level.Info(d.logger).Log(
		"message", "gateway open",
		"device", d.cfg.Device,
		"radio", d.cfg.Radio(),
		"pty", d.ptyName,
		"mode", d.cfg.Mode,
		"sockets", d.cfg.Sockets,
		"udp_port", d.cfg.UDPPort)

	return d.attach(radio, fr, udp, ip)
}

// attach installs the descriptors and runs the per-open setup: the wake
// pipe, KISS parameters and an immediate first beacon.
func (d *Dispatcher) attach(radio radioChannel, fr framer, udp, ip packetConn) error {
	d.radio = radio
	d.framer = fr
	d.udp = udp
	d.ip = ip

	var p [2]int
	if err := unix.Pipe2(p[:], unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return fmt.Errorf("failed to create wake pipe: %v", err)
	}
	d.wakeMu.Lock()
	d.wake = p
	d.wakeMu.Unlock()

	d.beacon.reset()
	if d.cfg.Digi() {
		for _, b := range d.framer.params(d.cfg) {
			if err := d.SendTTY(b); err != nil {
				return err
			}
		}
	}
	return nil
}

// Close releases every descriptor.  It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d.radio != nil {
		d.radio.Close()
		d.radio = nil
	}
	if d.udp != nil {
		d.udp.Close()
		d.udp = nil
	}
	if d.ip != nil {
		d.ip.Close()
		d.ip = nil
	}
	d.wakeMu.Lock()
	for i, fd := range d.wake {
		if fd >= 0 {
			unix.Close(fd)
			d.wake[i] = -1
		}
	}
	d.wakeMu.Unlock()
}

// Reload asks Run to return ErrReload.  It may be called from any
// goroutine.
func (d *Dispatcher) Reload() {
	d.request(reqReload)
}

// Stop asks Run to return nil.  It may be called from any goroutine and
// takes precedence over Reload.
func (d *Dispatcher) Stop() {
	d.request(reqStop)
}

func (d *Dispatcher) request(r int32) {
	for {
		cur := d.req.Load()
		if cur >= r || d.req.CompareAndSwap(cur, r) {
			break
		}
	}
	d.wakeMu.Lock()
	defer d.wakeMu.Unlock()
	if d.wake[1] >= 0 {
		_, _ = unix.Write(d.wake[1], []byte{0})
	}
}

func (d *Dispatcher) drainWake() {
	var b [16]byte
	for {
		n, err := unix.Read(d.wake[0], b[:])
		if n <= 0 || err != nil {
			return
		}
	}
}

// Run services the descriptors until a stop or reload is requested, or
// an unrecoverable I/O error occurs.  It returns nil after Stop,
// ErrReload after Reload, and otherwise the error, which for I/O
// failures is an *IOError.
func (d *Dispatcher) Run() error {
	type pollHandler func() error

	for {
		switch d.req.Load() {
		case reqStop:
			return nil
		case reqReload:
			return ErrReload
		}

		timeout := pollTimeout
		if d.cfg.Digi() {
			if d.beacon.due(d.now()) {
				if err := d.proc.Beacon(); err != nil {
					return err
				}
			}
			timeout = d.beacon.wait(d.now(), pollTimeout)
		}

		fds := []unix.PollFd{{Fd: int32(d.wake[0]), Events: unix.POLLIN}}
		handlers := []pollHandler{nil}
		if d.radio != nil {
			fds = append(fds, unix.PollFd{Fd: int32(d.radio.Fd()), Events: unix.POLLIN})
			handlers = append(handlers, d.serviceTTY)
		}
		if d.udp != nil {
			fds = append(fds, unix.PollFd{Fd: int32(d.udp.Fd()), Events: unix.POLLIN})
			handlers = append(handlers, d.serviceUDP)
		}
		if d.ip != nil {
			fds = append(fds, unix.PollFd{Fd: int32(d.ip.Fd()), Events: unix.POLLIN})
			handlers = append(handlers, d.serviceIP)
		}

		n, err := unix.Poll(fds, int(timeout/time.Millisecond))
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("poll: %v", err)
		}
		if n == 0 {
			continue
		}

		for i, pfd := range fds {
			if pfd.Revents == 0 {
				continue
			}
			if i == 0 {
				d.drainWake()
				continue
			}
			if pfd.Revents&unix.POLLNVAL != 0 {
				return fmt.Errorf("poll: descriptor %d is not open", pfd.Fd)
			}
			if err := handlers[i](); err != nil {
				return err
			}
		}
	}
}

func (d *Dispatcher) serviceTTY() error {
	n, err := d.retry.do(DirRead, ChannelTTY, func() (int, error) {
		return d.radio.Read(d.buf)
	})
	if err != nil || n == 0 {
		return err
	}
	d.beacon.heard(d.now())
	return d.framer.input(d.buf[:n])
}

func (d *Dispatcher) serviceUDP() error {
	var from unix.Sockaddr
	n, err := d.retry.do(DirRead, ChannelUDP, func() (n int, err error) {
		n, from, err = d.udp.RecvFrom(d.buf)
		return
	})
	if err != nil || n == 0 {
		return err
	}
	d.stats.UDPIn.Add(1)
	level.Debug(d.logger).Log(
		"message", "udp receive",
		"from", sockaddrString(from),
		"len", n)
	return d.proc.FromIP(d.buf[:n])
}

func (d *Dispatcher) serviceIP() error {
	var from unix.Sockaddr
	n, err := d.retry.do(DirRead, ChannelIP, func() (n int, err error) {
		n, from, err = d.ip.RecvFrom(d.buf)
		return
	})
	if err != nil || n == 0 {
		return err
	}
	d.stats.IPIn.Add(1)
	hdr := ipHeaderLen(d.buf[:n])
	if hdr == 0 {
		d.stats.IPTooshort.Add(1)
		level.Debug(d.logger).Log(
			"message", "dropped datagram with bad IP header",
			"from", sockaddrString(from),
			"len", n)
		return nil
	}
	level.Debug(d.logger).Log(
		"message", "ip receive",
		"from", sockaddrString(from),
		"len", n-hdr)
	return d.proc.FromIP(d.buf[hdr:n])
}

// SendIP sends a frame, FCS included, to the endpoint of a route entry.
// Frames for an encapsulation whose socket is not open are discarded.
func (d *Dispatcher) SendIP(frame []byte, e *route.Entry) error {
	if len(frame) == 0 {
		return nil
	}
	conn, kind := d.ip, ChannelIP
	to := &unix.SockaddrInet4{Addr: e.Addr}
	if e.IsUDP() {
		conn, kind = d.udp, ChannelUDP
		to.Port = int(e.Port)
	}
	if conn == nil {
		level.Debug(d.logger).Log(
			"message", "no socket for route",
			"route", e,
			"channel", kind)
		return nil
	}

	if kind == ChannelUDP {
		d.stats.UDPOut.Add(1)
	} else {
		d.stats.IPOut.Add(1)
	}
	level.Debug(d.logger).Log(
		"message", "send",
		"to", sockaddrString(to),
		"channel", kind,
		"len", len(frame))
	_, err := d.retry.do(DirWrite, kind, func() (int, error) {
		return conn.SendTo(frame, to)
	})
	return err
}

// SendRadio frames an AX.25 frame for the radio channel and sends it.
func (d *Dispatcher) SendRadio(port int, frame []byte) error {
	return d.SendTTY(d.framer.output(port, frame))
}

// SendTTY writes raw bytes to the radio channel, looping over partial
// writes.
func (d *Dispatcher) SendTTY(b []byte) error {
	if len(b) == 0 || d.radio == nil {
		return nil
	}
	d.stats.KISSOut.Add(1)
	for len(b) > 0 {
		n, err := d.retry.do(DirWrite, ChannelTTY, func() (int, error) {
			return d.radio.Write(b)
		})
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		b = b[n:]
	}
	return nil
}
