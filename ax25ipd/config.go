package ax25ipd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/katalix/go-ax25ipd/ax25"
	"github.com/katalix/go-ax25ipd/kiss"
)

// Mode selects how frames from the radio side are relayed.
type Mode int

const (
	// ModeTNC relays every frame toward its next hop.
	ModeTNC Mode = iota
	// ModeDigi acts as a digipeater: only frames addressed to us, or
	// routed via us, are relayed.
	ModeDigi
)

// String provides a human-readable representation of Mode.
func (m Mode) String() string {
	switch m {
	case ModeTNC:
		return "tnc"
	case ModeDigi:
		return "digi"
	}
	return "???"
}

// BeaconMode selects the beacon schedule.
type BeaconMode int

const (
	// BeaconEvery sends a beacon every interval regardless of traffic.
	BeaconEvery BeaconMode = iota
	// BeaconAfter sends a beacon after an interval with nothing heard
	// on the radio channel.
	BeaconAfter
)

// String provides a human-readable representation of BeaconMode.
func (m BeaconMode) String() string {
	switch m {
	case BeaconEvery:
		return "every"
	case BeaconAfter:
		return "after"
	}
	return "???"
}

// Sockets selects the IP encapsulations enabled.
type Sockets uint

const (
	// SocketUDP enables AX.25 over UDP.
	SocketUDP Sockets = 1 << iota
	// SocketIP enables AX.25 over raw IP protocol 93.
	SocketIP
)

// String provides a human-readable representation of Sockets.
func (s Sockets) String() string {
	var out []string
	if s&SocketIP != 0 {
		out = append(out, "ip")
	}
	if s&SocketUDP != 0 {
		out = append(out, "udp")
	}
	return strings.Join(out, ",")
}

// RadioKind identifies the channel type used for the radio side.
type RadioKind int

const (
	// RadioSerial is a KISS TNC on a serial line.
	RadioSerial RadioKind = iota
	// RadioPty is a pseudo terminal master, for a KISS application on
	// the same host.
	RadioPty
	// RadioBPQ is an Ethernet interface carrying BPQ frames.
	RadioBPQ
)

// String provides a human-readable representation of RadioKind.
func (k RadioKind) String() string {
	switch k {
	case RadioSerial:
		return "serial"
	case RadioPty:
		return "pty"
	case RadioBPQ:
		return "bpq"
	}
	return "???"
}

// PtyDevice is the device name selecting a pseudo terminal master.
const PtyDevice = "/dev/ptmx"

// DefaultUDPPort is the AXUDP port.
const DefaultUDPPort = 10093

// BeaconConfig controls the periodic identification beacon.
type BeaconConfig struct {
	// Interval between beacons.  Zero disables beaconing.
	Interval time.Duration
	Mode     BeaconMode
	Text     string
}

// Config contains the gateway's station identity and I/O settings.
type Config struct {
	MyCall   ax25.Callsign
	MyAlias  ax25.Callsign
	MyCall2  ax25.Callsign
	MyAlias2 ax25.Callsign
	Mode     Mode
	DualPort bool
	// Device is a serial device path, PtyDevice, or the name of a
	// network interface for BPQ Ethernet.
	Device string
	// Speed is the serial line rate in bits per second.
	Speed int
	// PtySymlink, if set, is pointed at the pseudo terminal slave.
	PtySymlink string
	Sockets    Sockets
	UDPPort    uint16
	Beacon     BeaconConfig
	KISS       kiss.Params
}

// DefaultConfig returns a Config carrying the defaults applied before
// configuration is loaded.
func DefaultConfig() Config {
	return Config{
		Mode:    ModeDigi,
		Speed:   9600,
		Sockets: SocketUDP,
		UDPPort: DefaultUDPPort,
		Beacon: BeaconConfig{
			Mode: BeaconEvery,
		},
	}
}

// Radio returns the channel type selected by Device.
func (cfg *Config) Radio() RadioKind {
	switch {
	case cfg.Device == PtyDevice:
		return RadioPty
	case !strings.Contains(cfg.Device, "/"):
		return RadioBPQ
	}
	return RadioSerial
}

// Digi reports whether digipeater mode is enabled.
func (cfg *Config) Digi() bool {
	return cfg.Mode == ModeDigi
}

// Validate checks the configuration is usable.
func (cfg *Config) Validate() error {
	if cfg.MyCall.IsZero() {
		return errors.New("mycall must be set")
	}
	if cfg.Device == "" {
		return errors.New("device must be set")
	}
	if cfg.Sockets == 0 {
		return errors.New("at least one of the ip and udp sockets must be enabled")
	}
	if cfg.Sockets&SocketUDP != 0 && cfg.UDPPort == 0 {
		return errors.New("udp_port must be set when the udp socket is enabled")
	}
	if cfg.DualPort && cfg.MyCall2.IsZero() {
		return errors.New("mycall2 must be set in dual port mode")
	}
	if cfg.Radio() == RadioSerial {
		if _, err := baudRate(cfg.Speed); err != nil {
			return err
		}
	}
	if cfg.PtySymlink != "" && cfg.Radio() != RadioPty {
		return fmt.Errorf("pty_symlink requires device %v", PtyDevice)
	}
	if cfg.Beacon.Interval < 0 {
		return errors.New("beacon interval must not be negative")
	}
	return nil
}
