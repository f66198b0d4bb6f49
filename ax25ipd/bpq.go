package ax25ipd

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"golang.org/x/sys/unix"

	"github.com/katalix/go-ax25ipd/internal/nllink"
)

// EthTypeBPQ is the ethertype of BPQ Ethernet frames.
const EthTypeBPQ = 0x08ff

const (
	ethHeaderLen = 14
	bpqHeaderLen = ethHeaderLen + 2
	// The BPQ length field counts itself and three further bytes
	// in addition to the payload.
	bpqLenBias = 5
)

var ethBroadcast = [6]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// bpqChannel is a packet socket bound to the BPQ ethertype on one
// interface.
type bpqChannel struct {
	fd     int
	ifname string
	hwaddr [6]byte
}

func (c *bpqChannel) Fd() int {
	return c.fd
}

func (c *bpqChannel) Read(p []byte) (int, error) {
	n, _, err := unix.Recvfrom(c.fd, p, 0)
	return n, err
}

func (c *bpqChannel) Write(p []byte) (int, error) {
	return unix.Write(c.fd, p)
}

func (c *bpqChannel) Close() (err error) {
	if c.fd >= 0 {
		err = unix.Close(c.fd)
		c.fd = -1
	}
	return
}

func newPacketSocket(protocol int) (fd int, err error) {

	// raw socket since we want to read/write link-level packets
	fd, err = unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, protocol)
	if err != nil {
		return -1, fmt.Errorf("socket: %v", err)
	}

	if err = unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("failed to set socket nonblocking: %v", err)
	}

	// set the socket CLOEXEC to prevent passing it to child processes
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFD, 0)
	if err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("fcntl(F_GETFD): %v", err)
	}

	_, err = unix.FcntlInt(uintptr(fd), unix.F_SETFD, flags|unix.FD_CLOEXEC)
	if err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("fcntl(F_SETFD, FD_CLOEXEC): %v", err)
	}

	// allow broadcast
	err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	if err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("setsockopt(SO_BROADCAST): %v", err)
	}

	return
}

// openBPQ brings ifname up and opens a BPQ packet socket on it.
func openBPQ(ifname string, logger log.Logger) (*bpqChannel, error) {
	nl, err := nllink.Dial()
	if err != nil {
		return nil, fmt.Errorf("failed to open rtnetlink connection: %v", err)
	}
	defer nl.Close()

	link, err := nl.LinkByName(ifname)
	if err != nil {
		return nil, fmt.Errorf("failed to obtain details of interface \"%s\": %v", ifname, err)
	}
	if link.Up() && !link.Running() {
		level.Warn(logger).Log(
			"message", "interface has no carrier",
			"interface", ifname)
	}
	if !link.Up() {
		level.Info(logger).Log(
			"message", "bringing interface up",
			"interface", ifname)
		if err := nl.SetUp(link.Index); err != nil {
			return nil, fmt.Errorf("failed to bring interface \"%s\" up: %v", ifname, err)
		}
	}

	proto := htons(EthTypeBPQ)
	fd, err := newPacketSocket(int(proto))
	if err != nil {
		return nil, fmt.Errorf("failed to create packet socket: %v", err)
	}

	// bind to the interface specified
	sa := unix.SockaddrLinklayer{
		Protocol: proto,
		Ifindex:  link.Index,
	}
	if err := unix.Bind(fd, &sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to bind socket: %v", err)
	}

	c := &bpqChannel{fd: fd, ifname: ifname}
	copy(c.hwaddr[:], link.HardwareAddr)
	return c, nil
}

// bpqFramer carries AX.25 frames in BPQ Ethernet frames.  Outgoing
// frames are broadcast from the interface's own address.
type bpqFramer struct {
	src  [6]byte
	proc *Processor
}

func (bf *bpqFramer) input(p []byte) error {
	frame, err := bpqDecode(p)
	if err != nil {
		bf.proc.stats.KISSBadtype.Add(1)
		level.Debug(bf.proc.logger).Log(
			"message", "dropped BPQ frame",
			"error", err)
		return nil
	}
	return bf.proc.FromKISS(0, frame)
}

func (bf *bpqFramer) output(port int, frame []byte) []byte {
	return bpqEncode(ethBroadcast, bf.src, frame)
}

func (bf *bpqFramer) params(cfg *Config) [][]byte {
	return nil
}

func bpqEncode(dst, src [6]byte, frame []byte) []byte {
	b := make([]byte, bpqHeaderLen, bpqHeaderLen+len(frame))
	copy(b[0:6], dst[:])
	copy(b[6:12], src[:])
	binary.BigEndian.PutUint16(b[12:14], EthTypeBPQ)
	binary.LittleEndian.PutUint16(b[14:16], uint16(len(frame)+bpqLenBias))
	return append(b, frame...)
}

// bpqDecode returns a copy of the AX.25 frame carried in p, with room
// for an FCS to be appended.
func bpqDecode(p []byte) ([]byte, error) {
	if len(p) < bpqHeaderLen {
		return nil, fmt.Errorf("frame too short: %d bytes", len(p))
	}
	if typ := binary.BigEndian.Uint16(p[12:14]); typ != EthTypeBPQ {
		return nil, fmt.Errorf("unexpected ethertype 0x%04x", typ)
	}
	n := int(binary.LittleEndian.Uint16(p[14:16])) - bpqLenBias
	if n < 0 {
		return nil, fmt.Errorf("bad BPQ length %d", n+bpqLenBias)
	}
	payload := p[bpqHeaderLen:]
	// Ethernet pads short frames, so the length field wins when it is
	// the smaller of the two.
	if n < len(payload) {
		payload = payload[:n]
	}
	frame := make([]byte, len(payload), len(payload)+2)
	copy(frame, payload)
	return frame, nil
}

func hwaddrString(a [6]byte) string {
	return net.HardwareAddr(a[:]).String()
}
