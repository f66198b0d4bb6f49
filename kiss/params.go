package kiss

import (
	"fmt"
	"sort"
)

// Params holds the TNC configuration values to send when the radio
// channel is opened.
type Params struct {
	values map[Command]byte
}

// Set records a parameter value.  Only the TNC configuration commands
// are accepted.
func (p *Params) Set(c Command, value byte) error {
	if !c.IsParam() {
		return fmt.Errorf("%v (0x%02x) is not a KISS parameter", c, uint8(c))
	}
	if p.values == nil {
		p.values = make(map[Command]byte)
	}
	p.values[c] = value
	return nil
}

// Get returns the value recorded for c, if any.
func (p *Params) Get(c Command) (byte, bool) {
	v, ok := p.values[c]
	return v, ok
}

// Len returns the number of parameters set.
func (p *Params) Len() int {
	return len(p.values)
}

// Commands returns the parameters set, in command order.
func (p *Params) Commands() []Command {
	cmds := make([]Command, 0, len(p.values))
	for c := range p.values {
		cmds = append(cmds, c)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i] < cmds[j] })
	return cmds
}

// Frames returns the encoded KISS frames configuring port.
func (p *Params) Frames(port int) [][]byte {
	var out [][]byte
	for _, c := range p.Commands() {
		out = append(out, Encode(TypeByte(port, c), []byte{p.values[c]}))
	}
	return out
}
