/*
Package config implements a parser for ax25ipd configuration represented in
the TOML format: https://github.com/toml-lang/toml.

Please refer to the TOML repos for an in-depth description of the syntax.

Station parameters are top-level keys.  Beacon, KISS and DNS-SD settings
live in their own tables, and routes are called out using named TOML
tables, one per route.

	# mycall is the callsign of the gateway, used for digipeating and
	# as the source of beacons.
	mycall = "VK2XXX-1"

	# myalias is an optional alias the gateway also answers to.
	myalias = "AXIP"

	# mycall2 and myalias2 identify the second TNC port in dual port mode.
	mycall2 = "VK2XXX-2"
	myalias2 = "AXIP2"

	# mode is either "digi" (act as a digipeater) or "tnc" (relay every
	# frame toward its next hop).
	# The default is "digi".
	mode = "digi"

	# dual_port enables the second port of a dual port KISS TNC.
	dual_port = false

	# device is the radio channel.  A path names a serial device, except
	# "/dev/ptmx" which allocates a pseudo terminal.  A bare interface
	# name such as "bpq0" selects BPQ Ethernet on that interface.
	device = "/dev/ttyS0"

	# speed is the serial line rate.
	speed = 9600

	# pty_symlink, if set, is pointed at the pseudo terminal slave when
	# device is "/dev/ptmx".  Only an existing symlink is replaced.
	pty_symlink = "/var/run/ax25ipd-pty"

	# socket lists the encapsulations to open.
	# Currently supported values are "ip" and "udp".
	socket = ["ip", "udp"]

	# udp_port is the local AXUDP port.
	udp_port = 10093

	# loglevel: 0 errors, 1 warnings, 2 info, 3 and above debug.
	loglevel = 2

	# broadcast lists the callsigns treated as broadcast addresses.
	broadcast = ["QST", "NODES"]

	[beacon]
	interval = 600 # seconds, 0 disables
	mode = "every" # or "after"
	text = "ax25ipd gateway"

	# KISS parameters sent to the TNC at startup in digi mode.
	[kiss]
	txdelay = 20
	persist = 64
	slottime = 10
	txtail = 1
	fullduplex = 0
	hardware = 0

	# If a name is set the AXUDP port is announced over mDNS.
	[dnssd]
	name = "ax25ipd on gateway"

	# This is a route named "r1"
	[route.r1]
	call = "VK2YYY"
	addr = "192.0.2.1"

	# udp_port selects AXUDP to this port.  Omit it, or set 0, to use
	# raw IP protocol 93.
	udp_port = 10093

	# flags may include "broadcast" (receive copies of broadcast frames)
	# and "default" (route for callsigns without one of their own).
	flags = ["broadcast", "default"]
*/
package config

import (
	"fmt"
	"net"
	"sort"
	"time"

	"github.com/katalix/go-ax25ipd/ax25"
	"github.com/katalix/go-ax25ipd/ax25ipd"
	"github.com/katalix/go-ax25ipd/kiss"
	"github.com/katalix/go-ax25ipd/route"
	"github.com/pelletier/go-toml"
)

// DefaultLogLevel is used when the configuration does not set loglevel.
const DefaultLogLevel = 2

// Config contains the gateway configuration.
type Config struct {
	// The entire tree as a map as parsed from the TOML representation.
	// Apps may access this tree to handle their own config tables.
	Map map[string]interface{}
	// Station configuration for the gateway.
	Station ax25ipd.Config
	// All the routes defined in the configuration.
	Routes []NamedRoute
	// Broadcast addresses.
	Broadcasts []ax25.Callsign
	// LogLevel as set in the file.
	LogLevel int
	// DNSSDName, if set, is the instance name to announce.
	DNSSDName string
}

// NamedRoute is a route entry with the name of the table defining it.
type NamedRoute struct {
	// The route's name as specified in the config file.
	Name  string
	Entry route.Entry
}

// Table builds the routing table described by the configuration.
func (cfg *Config) Table() *route.Table {
	t := route.NewTable()
	for _, r := range cfg.Routes {
		t.Add(r.Entry.Call, r.Entry.Addr, r.Entry.Port, r.Entry.Flags)
	}
	for _, b := range cfg.Broadcasts {
		t.AddBroadcast(b)
	}
	return t
}

func toBool(v interface{}) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("supplied value could not be parsed as a bool")
}

// go-toml's ToMap function represents numbers as either uint64 or int64.
// So when we are converting numbers, we need to figure out which one it
// has picked and range check to ensure that the number from the config
// fits within the range of the destination type.
func toByte(v interface{}) (byte, error) {
	if b, ok := v.(int64); ok {
		if b < 0x0 || b > 0xff {
			return 0, fmt.Errorf("value %x out of range", b)
		}
		return byte(b), nil
	} else if b, ok := v.(uint64); ok {
		if b > 0xff {
			return 0, fmt.Errorf("value %x out of range", b)
		}
		return byte(b), nil
	}
	return 0, fmt.Errorf("unexpected %T value %v", v, v)
}

func toUint16(v interface{}) (uint16, error) {
	if b, ok := v.(int64); ok {
		if b < 0x0 || b > 0xffff {
			return 0, fmt.Errorf("value %x out of range", b)
		}
		return uint16(b), nil
	} else if b, ok := v.(uint64); ok {
		if b > 0xffff {
			return 0, fmt.Errorf("value %x out of range", b)
		}
		return uint16(b), nil
	}
	return 0, fmt.Errorf("unexpected %T value %v", v, v)
}

func toUint32(v interface{}) (uint32, error) {
	if b, ok := v.(int64); ok {
		if b < 0x0 || b > 0xffffffff {
			return 0, fmt.Errorf("value %x out of range", b)
		}
		return uint32(b), nil
	} else if b, ok := v.(uint64); ok {
		if b > 0xffffffff {
			return 0, fmt.Errorf("value %x out of range", b)
		}
		return uint32(b), nil
	}
	return 0, fmt.Errorf("unexpected %T value %v", v, v)
}

func toInt(v interface{}) (int, error) {
	u, err := toUint32(v)
	return int(u), err
}

func toString(v interface{}) (string, error) {
	if s, ok := v.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("supplied value could not be parsed as a string")
}

func toStrings(v interface{}) ([]string, error) {
	var out []string

	// First ensure that the supplied value is actually an array
	items, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected array value")
	}

	// TOML arrays can be mixed type, so we have to check on a value-by-value
	// basis that the value in the array can be represented as a string.
	for _, item := range items {
		s, err := toString(item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func toDurationS(v interface{}) (time.Duration, error) {
	u, err := toUint32(v)
	return time.Duration(u) * time.Second, err
}

func toCallsign(v interface{}) (ax25.Callsign, error) {
	s, err := toString(v)
	if err != nil {
		return ax25.Callsign{}, err
	}
	return ax25.ParseCallsign(s)
}

func toCallsigns(v interface{}) ([]ax25.Callsign, error) {
	ss, err := toStrings(v)
	if err != nil {
		return nil, err
	}
	var out []ax25.Callsign
	for _, s := range ss {
		c, err := ax25.ParseCallsign(s)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func toMode(v interface{}) (ax25ipd.Mode, error) {
	s, err := toString(v)
	if err == nil {
		switch s {
		case "digi":
			return ax25ipd.ModeDigi, nil
		case "tnc":
			return ax25ipd.ModeTNC, nil
		}
		return 0, fmt.Errorf("expect 'digi' or 'tnc'")
	}
	return 0, err
}

func toBeaconMode(v interface{}) (ax25ipd.BeaconMode, error) {
	s, err := toString(v)
	if err == nil {
		switch s {
		case "every":
			return ax25ipd.BeaconEvery, nil
		case "after":
			return ax25ipd.BeaconAfter, nil
		}
		return 0, fmt.Errorf("expect 'every' or 'after'")
	}
	return 0, err
}

func toSockets(v interface{}) (ax25ipd.Sockets, error) {
	var out ax25ipd.Sockets
	ss, err := toStrings(v)
	if err != nil {
		return 0, err
	}
	for _, s := range ss {
		switch s {
		case "ip":
			out |= ax25ipd.SocketIP
		case "udp":
			out |= ax25ipd.SocketUDP
		default:
			return 0, fmt.Errorf("expect 'ip' or 'udp'")
		}
	}
	return out, nil
}

func toRouteFlags(v interface{}) (route.Flags, error) {
	var out route.Flags
	ss, err := toStrings(v)
	if err != nil {
		return 0, err
	}
	for _, s := range ss {
		switch s {
		case "broadcast":
			out |= route.FlagBroadcast
		case "default":
			out |= route.FlagDefault
		default:
			return 0, fmt.Errorf("expect 'broadcast' or 'default'")
		}
	}
	return out, nil
}

// Host names are resolved once, at load time.
func toIPv4(v interface{}) ([4]byte, error) {
	var out [4]byte
	s, err := toString(v)
	if err != nil {
		return out, err
	}
	ip := net.ParseIP(s)
	if ip == nil {
		addr, err := net.ResolveIPAddr("ip4", s)
		if err != nil {
			return out, err
		}
		ip = addr.IP
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return out, fmt.Errorf("%v is not an IPv4 address", s)
	}
	copy(out[:], ip4)
	return out, nil
}

func (cfg *Config) loadBeacon(v interface{}) error {
	bmap, ok := v.(map[string]interface{})
	if !ok {
		return fmt.Errorf("beacon must be a table, e.g. '[beacon]'")
	}
	b := &cfg.Station.Beacon
	for k, v := range bmap {
		var err error
		switch k {
		case "interval":
			b.Interval, err = toDurationS(v)
		case "mode":
			b.Mode, err = toBeaconMode(v)
		case "text":
			b.Text, err = toString(v)
		default:
			return fmt.Errorf("unrecognised parameter '%v'", k)
		}
		if err != nil {
			return fmt.Errorf("failed to process %v: %v", k, err)
		}
	}
	return nil
}

func (cfg *Config) loadKISS(v interface{}) error {
	kmap, ok := v.(map[string]interface{})
	if !ok {
		return fmt.Errorf("kiss must be a table, e.g. '[kiss]'")
	}
	for k, v := range kmap {
		var cmd kiss.Command
		switch k {
		case "txdelay":
			cmd = kiss.CmdTxDelay
		case "persist":
			cmd = kiss.CmdPersist
		case "slottime":
			cmd = kiss.CmdSlotTime
		case "txtail":
			cmd = kiss.CmdTxTail
		case "fullduplex":
			cmd = kiss.CmdFullDuplex
		case "hardware":
			cmd = kiss.CmdSetHardware
		default:
			return fmt.Errorf("unrecognised parameter '%v'", k)
		}
		b, err := toByte(v)
		if err == nil {
			err = cfg.Station.KISS.Set(cmd, b)
		}
		if err != nil {
			return fmt.Errorf("failed to process %v: %v", k, err)
		}
	}
	return nil
}

func (cfg *Config) loadDNSSD(v interface{}) error {
	dmap, ok := v.(map[string]interface{})
	if !ok {
		return fmt.Errorf("dnssd must be a table, e.g. '[dnssd]'")
	}
	for k, v := range dmap {
		var err error
		switch k {
		case "name":
			cfg.DNSSDName, err = toString(v)
		default:
			return fmt.Errorf("unrecognised parameter '%v'", k)
		}
		if err != nil {
			return fmt.Errorf("failed to process %v: %v", k, err)
		}
	}
	return nil
}

func newRoute(name string, rcfg map[string]interface{}) (*NamedRoute, error) {
	nr := &NamedRoute{Name: name}
	var haveCall, haveAddr bool
	for k, v := range rcfg {
		var err error
		switch k {
		case "call":
			nr.Entry.Call, err = toCallsign(v)
			haveCall = true
		case "addr":
			nr.Entry.Addr, err = toIPv4(v)
			haveAddr = true
		case "udp_port":
			nr.Entry.Port, err = toUint16(v)
		case "flags":
			nr.Entry.Flags, err = toRouteFlags(v)
		default:
			return nil, fmt.Errorf("unrecognised parameter '%v'", k)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to process %v: %v", k, err)
		}
	}
	if !haveCall || !haveAddr {
		return nil, fmt.Errorf("call and addr must both be set")
	}
	return nr, nil
}

func (cfg *Config) loadRoutes(v interface{}) error {
	routes, ok := v.(map[string]interface{})
	if !ok {
		return fmt.Errorf("route instances must be named, e.g. '[route.myroute]'")
	}

	// Sort by name so that duplicate callsigns resolve the same way on
	// every load.
	names := make([]string, 0, len(routes))
	for name := range routes {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		rmap, ok := routes[name].(map[string]interface{})
		if !ok {
			return fmt.Errorf("route instances must be named, e.g. '[route.myroute]'")
		}
		r, err := newRoute(name, rmap)
		if err != nil {
			return fmt.Errorf("route %v: %v", name, err)
		}
		cfg.Routes = append(cfg.Routes, *r)
	}
	return nil
}

func (cfg *Config) load() error {
	for k, v := range cfg.Map {
		var err error
		switch k {
		case "mycall":
			cfg.Station.MyCall, err = toCallsign(v)
		case "myalias":
			cfg.Station.MyAlias, err = toCallsign(v)
		case "mycall2":
			cfg.Station.MyCall2, err = toCallsign(v)
		case "myalias2":
			cfg.Station.MyAlias2, err = toCallsign(v)
		case "mode":
			cfg.Station.Mode, err = toMode(v)
		case "dual_port":
			cfg.Station.DualPort, err = toBool(v)
		case "device":
			cfg.Station.Device, err = toString(v)
		case "speed":
			cfg.Station.Speed, err = toInt(v)
		case "pty_symlink":
			cfg.Station.PtySymlink, err = toString(v)
		case "socket":
			cfg.Station.Sockets, err = toSockets(v)
		case "udp_port":
			cfg.Station.UDPPort, err = toUint16(v)
		case "loglevel":
			cfg.LogLevel, err = toInt(v)
		case "broadcast":
			cfg.Broadcasts, err = toCallsigns(v)
		case "beacon":
			err = cfg.loadBeacon(v)
		case "kiss":
			err = cfg.loadKISS(v)
		case "dnssd":
			err = cfg.loadDNSSD(v)
		case "route":
			err = cfg.loadRoutes(v)
		default:
			return fmt.Errorf("unrecognised parameter '%v'", k)
		}
		if err != nil {
			return fmt.Errorf("failed to process %v: %v", k, err)
		}
	}
	return nil
}

func newConfig(tree *toml.Tree) (*Config, error) {
	cfg := &Config{
		Map:      tree.ToMap(),
		Station:  ax25ipd.DefaultConfig(),
		LogLevel: DefaultLogLevel,
	}
	err := cfg.load()
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}
	return cfg, nil
}

// LoadFile loads configuration from the specified file.
func LoadFile(path string) (*Config, error) {
	tree, err := toml.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %v", err)
	}
	return newConfig(tree)
}

// LoadString loads configuration from the specified string.
func LoadString(content string) (*Config, error) {
	tree, err := toml.Load(content)
	if err != nil {
		return nil, fmt.Errorf("failed to load config string: %v", err)
	}
	return newConfig(tree)
}
