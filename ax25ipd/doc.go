/*
Package ax25ipd is a gateway relaying AX.25 frames between a radio channel
and an IP network, letting packet radio stations link over the Internet.

On the radio side the gateway talks to a KISS TNC on a serial line, to a
KISS application through a pseudo terminal, or to an Ethernet interface
carrying BPQ frames.  On the IP side frames are carried either directly
over IP (protocol 93) or in UDP datagrams, with the AX.25 frame check
sequence appended.

Frames from the radio are relayed according to the next station they are
heading for, as found in a callsign routing table.  In digipeater mode the
gateway only relays frames that list it as the next digipeater, marking
its slot in the address field as repeated, and frames to broadcast
addresses, which are copied to every route flagged for broadcast.  Frames
from the network are checked and passed to the radio.

Currently package ax25ipd implements:

 * the frame processor applying the relay rules, with counters for every
   frame dropped,

 * a single goroutine event loop servicing the radio channel and the
   sockets, with bounded retry of transient I/O errors,

 * the identification beacon, sent periodically or after a quiet
   interval on the radio channel.

Usage

	import (
		"github.com/katalix/go-ax25ipd/ax25ipd"
		"github.com/katalix/go-ax25ipd/config"
		"github.com/katalix/go-ax25ipd/route"
	)

	# Note we're ignoring errors for brevity.

	cfg, _ := config.LoadFile("/etc/ax25ipd.toml")
	routes := route.NewStore(cfg.Table())
	stats := &ax25ipd.Stats{}

	d, _ := ax25ipd.NewDispatcher(&cfg.Station, routes, stats, logger)
	_ = d.Open()
	defer d.Close()

	# Run returns when Stop or Reload is called from another goroutine,
	# or on a fatal I/O error.
	err := d.Run()
*/
package ax25ipd

// Version is the gateway software version.
const Version = "1.2.0"
