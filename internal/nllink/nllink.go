// Package nllink is a minimal rtnetlink client for querying network
// interfaces and setting them administratively up.
package nllink

import (
	"errors"
	"fmt"
	"net"

	"github.com/mdlayher/netlink"
	"github.com/mdlayher/netlink/nlenc"
	"golang.org/x/sys/unix"
)

// Link describes a network interface.
type Link struct {
	Index        int
	Name         string
	Flags        uint32
	MTU          uint32
	HardwareAddr net.HardwareAddr
}

// Up reports whether the link is administratively up.
func (l *Link) Up() bool {
	return l.Flags&FlagUp != 0
}

// Running reports whether the link has carrier.
func (l *Link) Running() bool {
	return l.Flags&FlagRunning != 0
}

// ifInfoMsg mirrors struct ifinfomsg.
type ifInfoMsg struct {
	Family uint8
	Type   uint16
	Index  int32
	Flags  uint32
	Change uint32
}

func (m *ifInfoMsg) marshal() []byte {
	b := make([]byte, ifInfoMsgLen)
	b[0] = m.Family
	nlenc.PutUint16(b[2:4], m.Type)
	nlenc.PutInt32(b[4:8], m.Index)
	nlenc.PutUint32(b[8:12], m.Flags)
	nlenc.PutUint32(b[12:16], m.Change)
	return b
}

func (m *ifInfoMsg) unmarshal(b []byte) error {
	if len(b) < ifInfoMsgLen {
		return errors.New("ifinfomsg too short")
	}
	m.Family = b[0]
	m.Type = nlenc.Uint16(b[2:4])
	m.Index = nlenc.Int32(b[4:8])
	m.Flags = nlenc.Uint32(b[8:12])
	m.Change = nlenc.Uint32(b[12:16])
	return nil
}

func parseLink(b []byte) (*Link, error) {
	var ifi ifInfoMsg
	if err := ifi.unmarshal(b); err != nil {
		return nil, err
	}
	l := &Link{
		Index: int(ifi.Index),
		Flags: ifi.Flags,
	}
	ad, err := netlink.NewAttributeDecoder(b[ifInfoMsgLen:])
	if err != nil {
		return nil, fmt.Errorf("failed to decode attributes: %v", err)
	}
	for ad.Next() {
		switch ad.Type() {
		case unix.IFLA_IFNAME:
			l.Name = ad.String()
		case unix.IFLA_MTU:
			l.MTU = ad.Uint32()
		case unix.IFLA_ADDRESS:
			l.HardwareAddr = net.HardwareAddr(ad.Bytes())
		}
	}
	if err := ad.Err(); err != nil {
		return nil, fmt.Errorf("failed to decode attributes: %v", err)
	}
	return l, nil
}

// Conn is an rtnetlink connection.
type Conn struct {
	c *netlink.Conn
}

// Dial opens an rtnetlink connection.
func Dial() (conn *Conn, err error) {
	c, err := netlink.Dial(unix.NETLINK_ROUTE, nil)
	if err != nil {
		return
	}
	conn = &Conn{c: c}
	return
}

// Close closes the connection.
func (conn *Conn) Close() {
	conn.c.Close()
}

// LinkByName looks up an interface by name.
func (conn *Conn) LinkByName(name string) (*Link, error) {
	if name == "" {
		return nil, fmt.Errorf("interface name must be specified")
	}

	ae := netlink.NewAttributeEncoder()
	ae.String(unix.IFLA_IFNAME, name)
	attrs, err := ae.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode attributes: %v", err)
	}

	ifi := ifInfoMsg{Family: unix.AF_UNSPEC}
	req := netlink.Message{
		Header: netlink.Header{
			Type:  unix.RTM_GETLINK,
			Flags: netlink.Request,
		},
		Data: append(ifi.marshal(), attrs...),
	}

	msgs, err := conn.c.Execute(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get link %v: %v", name, err)
	}
	for _, m := range msgs {
		if m.Header.Type != unix.RTM_NEWLINK {
			continue
		}
		return parseLink(m.Data)
	}
	return nil, fmt.Errorf("no link %v", name)
}

// SetUp sets the interface with the given index administratively up.
func (conn *Conn) SetUp(index int) error {
	if index <= 0 {
		return fmt.Errorf("interface index must be positive")
	}

	ifi := ifInfoMsg{
		Family: unix.AF_UNSPEC,
		Index:  int32(index),
		Flags:  FlagUp,
		Change: FlagUp,
	}
	req := netlink.Message{
		Header: netlink.Header{
			Type:  unix.RTM_NEWLINK,
			Flags: netlink.Request | netlink.Acknowledge,
		},
		Data: ifi.marshal(),
	}

	_, err := conn.c.Execute(req)
	return err
}
