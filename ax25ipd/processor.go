package ax25ipd

import (
	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"

	"github.com/katalix/go-ax25ipd/ax25"
	"github.com/katalix/go-ax25ipd/route"
)

// sender is the I/O side of the processor.
type sender interface {
	// SendIP sends a frame, FCS included, to a route's endpoint.
	SendIP(frame []byte, e *route.Entry) error
	// SendRadio sends a frame, without FCS, to the radio channel.
	SendRadio(port int, frame []byte) error
}

// LocalHandler is called with frames addressed to the gateway itself.
// The gateway has no AX.25 stack, so such frames are otherwise
// discarded once counted.
type LocalHandler func(port int, frame []byte)

// Processor applies the gateway's relay rules to frames from either side.
type Processor struct {
	cfg     *Config
	routes  *route.Store
	stats   *Stats
	logger  log.Logger
	out     sender
	onLocal LocalHandler
}

func newProcessor(cfg *Config, routes *route.Store, stats *Stats, out sender, logger log.Logger) *Processor {
	return &Processor{
		cfg:    cfg,
		routes: routes,
		stats:  stats,
		logger: logger,
		out:    out,
	}
}

// SetLocalHandler installs h to receive frames addressed to the gateway.
// It must be called before the dispatcher runs.
func (p *Processor) SetLocalHandler(h LocalHandler) {
	p.onLocal = h
}

// dumpFrame defers formatting a frame until a log line is emitted.
type dumpFrame []byte

func (f dumpFrame) String() string {
	return ax25.Dump(f)
}

// isMe reports whether an address group names the gateway on the given
// radio port.
func (p *Processor) isMe(group []byte, port int) bool {
	if port == 1 {
		return p.cfg.MyCall2.Matches(group) || p.cfg.MyAlias2.Matches(group)
	}
	return p.cfg.MyCall.Matches(group) || p.cfg.MyAlias.Matches(group)
}

// portFor returns the radio port on which group names the gateway,
// or -1.
func (p *Processor) portFor(group []byte) int {
	if p.isMe(group, 0) {
		return 0
	}
	if p.cfg.DualPort && p.isMe(group, 1) {
		return 1
	}
	return -1
}

type verdict int

const (
	verdictForward verdict = iota
	verdictLocal
	verdictNotForMe
)

// routeFromRadio decides the fate of a frame heard on the radio port and
// returns the address group it should be sent toward.  A pending
// digipeater slot naming us is marked repeated.
func (p *Processor) routeFromRadio(af *ax25.AddressField, port int) (verdict, int) {
	dest := af.Group(ax25.Destination)
	next := af.NextAddr()
	if next != ax25.Destination {
		if !p.isMe(af.Group(next), port) {
			if p.cfg.Digi() {
				return verdictNotForMe, next
			}
			return verdictForward, next
		}
		af.MarkRepeated(next)
		if next = af.NextAddr(); next != ax25.Destination {
			return verdictForward, next
		}
		if p.isMe(dest, port) {
			return verdictLocal, ax25.Destination
		}
		return verdictForward, ax25.Destination
	}
	if p.isMe(dest, port) {
		return verdictLocal, ax25.Destination
	}
	if p.cfg.Digi() && !p.routes.Load().IsBroadcastAddr(dest) {
		return verdictNotForMe, ax25.Destination
	}
	return verdictForward, ax25.Destination
}

// routeFromIP decides the fate of a frame received from the network and
// returns the radio port to send it on.  In TNC mode every frame goes to
// the radio channel: the station behind it may share our callsign.
func (p *Processor) routeFromIP(af *ax25.AddressField) (verdict, int) {
	next := af.NextAddr()
	if !p.cfg.Digi() {
		port := p.portFor(af.Group(next))
		if port < 0 {
			port = 0
		}
		return verdictForward, port
	}
	if next != ax25.Destination {
		port := p.portFor(af.Group(next))
		if port < 0 {
			return verdictNotForMe, 0
		}
		af.MarkRepeated(next)
		return verdictForward, port
	}
	dest := af.Group(ax25.Destination)
	if port := p.portFor(dest); port >= 0 {
		return verdictLocal, port
	}
	if p.routes.Load().IsBroadcastAddr(dest) {
		return verdictForward, 0
	}
	return verdictNotForMe, 0
}

// FromKISS handles a frame received on the radio channel.  Only errors
// from the I/O layer that end the gateway are returned.
func (p *Processor) FromKISS(port int, frame []byte) error {
	p.stats.KISSIn.Add(1)

	if len(frame) < ax25.MinFrameLen {
		p.stats.KISSTooshort.Add(1)
		level.Debug(p.logger).Log(
			"message", "dropped short frame from radio",
			"len", len(frame))
		return nil
	}
	af, err := ax25.ParseAddressField(frame)
	if err != nil {
		p.stats.KISSTooshort.Add(1)
		level.Debug(p.logger).Log(
			"message", "dropped malformed frame from radio",
			"error", err)
		return nil
	}

	level.Debug(p.logger).Log(
		"message", "frame from radio",
		"port", port,
		"frame", dumpFrame(frame))

	v, hop := p.routeFromRadio(af, port)
	switch v {
	case verdictNotForMe:
		p.stats.KISSNotForMe.Add(1)
		return nil
	case verdictLocal:
		p.stats.KISSIAmDest.Add(1)
		p.deliverLocal(port, frame)
		return nil
	}

	table := p.routes.Load()
	group := af.Group(hop)
	entry, routed := table.LookupAddr(group)
	bcast := table.IsBroadcastAddr(group)
	if !routed && !bcast {
		p.stats.KISSNoIPAddr.Add(1)
		level.Debug(p.logger).Log(
			"message", "no route",
			"call", af.Callsign(hop))
		return nil
	}

	frame = ax25.AddCRC(frame)
	if routed {
		if err := p.out.SendIP(frame, entry); err != nil {
			return err
		}
	}
	if bcast {
		for _, e := range table.BroadcastTargets() {
			if routed && e.Call == entry.Call {
				continue
			}
			if err := p.out.SendIP(frame, e); err != nil {
				return err
			}
		}
	}
	return nil
}

// FromIP handles a frame received from the IP side, FCS included and
// with any outer IP header already removed.
func (p *Processor) FromIP(frame []byte) error {
	if !ax25.OkCRC(frame) {
		p.stats.IPFailedCRC.Add(1)
		level.Debug(p.logger).Log(
			"message", "dropped frame with bad FCS",
			"len", len(frame))
		return nil
	}
	frame = frame[:len(frame)-ax25.FCSLen]

	if len(frame) < ax25.MinFrameLen {
		p.stats.IPTooshort.Add(1)
		return nil
	}
	af, err := ax25.ParseAddressField(frame)
	if err != nil {
		p.stats.IPTooshort.Add(1)
		level.Debug(p.logger).Log(
			"message", "dropped malformed frame from IP",
			"error", err)
		return nil
	}

	level.Debug(p.logger).Log(
		"message", "frame from IP",
		"frame", dumpFrame(frame))

	v, port := p.routeFromIP(af)
	switch v {
	case verdictNotForMe:
		p.stats.IPNotForMe.Add(1)
		return nil
	case verdictLocal:
		p.stats.IPIAmDest.Add(1)
		p.deliverLocal(port, frame)
		return nil
	}
	return p.out.SendRadio(port, frame)
}

// Beacon sends the identification beacon to the radio channel.
func (p *Processor) Beacon() error {
	frame := ax25.NewUIFrame(beaconDest, p.cfg.MyCall, ax25.PIDNoLayer3, []byte(p.cfg.Beacon.Text))
	p.stats.KISSBeaconOuts.Add(1)
	level.Debug(p.logger).Log(
		"message", "sending beacon",
		"frame", dumpFrame(frame))
	return p.out.SendRadio(0, frame)
}

var beaconDest = ax25.MustParseCallsign("ID")

func (p *Processor) deliverLocal(port int, frame []byte) {
	level.Debug(p.logger).Log(
		"message", "frame addressed to us",
		"port", port)
	if p.onLocal != nil {
		p.onLocal(port, frame)
	}
}
