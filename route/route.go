// Package route maps AX.25 callsigns to the IP endpoints that reach them.
//
// A Table is built once, from configuration, and is read-only after that.
// A Store holds the table currently in use and lets a reload publish a
// replacement without locking the relay path.
package route

import (
	"fmt"
	"net"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/katalix/go-ax25ipd/ax25"
)

// Flags modify how a route entry is used.
type Flags uint

const (
	// FlagBroadcast adds the entry to the set of endpoints receiving
	// copies of frames sent to a broadcast address.
	FlagBroadcast Flags = 1 << iota
	// FlagDefault makes the entry the fallback for callsigns with no
	// route of their own.
	FlagDefault
)

// String provides a human-readable representation of Flags.
func (f Flags) String() string {
	var s []string
	if f&FlagBroadcast != 0 {
		s = append(s, "broadcast")
	}
	if f&FlagDefault != 0 {
		s = append(s, "default")
	}
	return strings.Join(s, ",")
}

// Entry is a single route.
type Entry struct {
	Call ax25.Callsign
	Addr [4]byte
	// Port is the UDP destination port.  Zero selects raw IP
	// encapsulation.
	Port  uint16
	Flags Flags
}

// IsUDP reports whether frames for the entry are sent over UDP.
func (e *Entry) IsUDP() bool {
	return e.Port != 0
}

// IP returns the entry's address as a net.IP.
func (e *Entry) IP() net.IP {
	return net.IPv4(e.Addr[0], e.Addr[1], e.Addr[2], e.Addr[3])
}

func (e *Entry) String() string {
	proto := "ip"
	if e.IsUDP() {
		proto = fmt.Sprintf("udp:%d", e.Port)
	}
	s := fmt.Sprintf("%v -> %v (%s)", e.Call, e.IP(), proto)
	if e.Flags != 0 {
		s += " " + e.Flags.String()
	}
	return s
}

// Table is a callsign to endpoint routing table together with the set of
// broadcast addresses.
type Table struct {
	entries    map[ax25.Callsign]*Entry
	def        *Entry
	broadcasts map[ax25.Callsign]struct{}
}

// NewTable returns an empty table.
func NewTable() *Table {
	return &Table{
		entries:    make(map[ax25.Callsign]*Entry),
		broadcasts: make(map[ax25.Callsign]struct{}),
	}
}

// Add inserts or replaces the route for call.  If flags includes
// FlagDefault the entry becomes the default route, replacing any
// earlier default.
func (t *Table) Add(call ax25.Callsign, addr [4]byte, port uint16, flags Flags) *Entry {
	e := &Entry{Call: call, Addr: addr, Port: port, Flags: flags}
	t.entries[call] = e
	if flags&FlagDefault != 0 {
		t.def = e
	}
	return e
}

// AddBroadcast marks call as a broadcast address.
func (t *Table) AddBroadcast(call ax25.Callsign) {
	t.broadcasts[call] = struct{}{}
}

// Lookup returns the route for call, falling back to the default route.
func (t *Table) Lookup(call ax25.Callsign) (*Entry, bool) {
	if e, ok := t.entries[call]; ok {
		return e, true
	}
	if t.def != nil {
		return t.def, true
	}
	return nil, false
}

// LookupAddr is Lookup for an on-air address group.
func (t *Table) LookupAddr(group []byte) (*Entry, bool) {
	call, err := ax25.DecodeCallsign(group)
	if err != nil {
		return nil, false
	}
	return t.Lookup(call)
}

// IsBroadcast reports whether call is a broadcast address.
func (t *Table) IsBroadcast(call ax25.Callsign) bool {
	_, ok := t.broadcasts[call]
	return ok
}

// IsBroadcastAddr is IsBroadcast for an on-air address group.
func (t *Table) IsBroadcastAddr(group []byte) bool {
	call, err := ax25.DecodeCallsign(group)
	if err != nil {
		return false
	}
	return t.IsBroadcast(call)
}

// Default returns the default route, or nil.
func (t *Table) Default() *Entry {
	return t.def
}

// Entries returns every route, ordered by callsign.
func (t *Table) Entries() []*Entry {
	out := make([]*Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Call.String() < out[j].Call.String()
	})
	return out
}

// BroadcastTargets returns the entries flagged FlagBroadcast, ordered by
// callsign.
func (t *Table) BroadcastTargets() []*Entry {
	var out []*Entry
	for _, e := range t.Entries() {
		if e.Flags&FlagBroadcast != 0 {
			out = append(out, e)
		}
	}
	return out
}

// Broadcasts returns the broadcast addresses, ordered.
func (t *Table) Broadcasts() []ax25.Callsign {
	out := make([]ax25.Callsign, 0, len(t.broadcasts))
	for c := range t.broadcasts {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

// Store publishes the table in use.  Loads and swaps are safe from any
// goroutine.
type Store struct {
	p atomic.Pointer[Table]
}

// NewStore returns a store holding t.  A nil t is replaced by an empty
// table.
func NewStore(t *Table) *Store {
	s := &Store{}
	s.Swap(t)
	return s
}

// Load returns the current table.
func (s *Store) Load() *Table {
	return s.p.Load()
}

// Swap installs t and returns the table it replaced.
func (s *Store) Swap(t *Table) *Table {
	if t == nil {
		t = NewTable()
	}
	return s.p.Swap(t)
}
