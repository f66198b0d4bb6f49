package ax25ipd

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// IPProtoAX25 is the IP protocol number for AX.25 encapsulation.
const IPProtoAX25 = 93

// packetConn is a datagram socket on the IP side.
type packetConn interface {
	Fd() int
	RecvFrom(p []byte) (int, unix.Sockaddr, error)
	SendTo(p []byte, to unix.Sockaddr) (int, error)
	Close() error
}

type ipSocket struct {
	fd int
}

func (s *ipSocket) Fd() int {
	return s.fd
}

func (s *ipSocket) RecvFrom(p []byte) (int, unix.Sockaddr, error) {
	return unix.Recvfrom(s.fd, p, 0)
}

func (s *ipSocket) SendTo(p []byte, to unix.Sockaddr) (int, error) {
	if err := unix.Sendto(s.fd, p, unix.MSG_NOSIGNAL, to); err != nil {
		return -1, err
	}
	return len(p), nil
}

func (s *ipSocket) Close() (err error) {
	if s.fd >= 0 {
		err = unix.Close(s.fd)
		s.fd = -1
	}
	return
}

func gatewaySocket(typ, protocol int) (fd int, err error) {

	fd, err = unix.Socket(unix.AF_INET, typ, protocol)
	if err != nil {
		return -1, fmt.Errorf("socket: %v", err)
	}

	if err = unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return -1, fmt.Errorf("failed to set socket nonblocking: %v", err)
	}

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

	return fd, nil
}

// newUDPSocket opens the AXUDP socket bound to port on all addresses.
func newUDPSocket(port uint16) (*ipSocket, error) {
	fd, err := gatewaySocket(unix.SOCK_DGRAM, unix.IPPROTO_UDP)
	if err != nil {
		return nil, err
	}
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: int(port)}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to bind udp port %d: %v", port, err)
	}
	return &ipSocket{fd: fd}, nil
}

// newRawIPSocket opens a raw socket for IP protocol 93.  Received
// datagrams include the IP header.
func newRawIPSocket() (*ipSocket, error) {
	fd, err := gatewaySocket(unix.SOCK_RAW, IPProtoAX25)
	if err != nil {
		return nil, err
	}
	return &ipSocket{fd: fd}, nil
}

// ipHeaderLen returns the length of the IPv4 header at the start of b,
// or 0 if b does not hold a complete header.
func ipHeaderLen(b []byte) int {
	if len(b) < 20 || b[0]>>4 != 4 {
		return 0
	}
	n := int(b[0]&0x0f) * 4
	if n < 20 || n > len(b) {
		return 0
	}
	return n
}

func sockaddrString(addr unix.Sockaddr) string {
	switch sa := addr.(type) {
	case *unix.SockaddrInet4:
		ip := net.IP{sa.Addr[0], sa.Addr[1], sa.Addr[2], sa.Addr[3]}
		if sa.Port == 0 {
			return ip.String()
		}
		return (&net.UDPAddr{IP: ip, Port: sa.Port}).String()
	case nil:
		return "<nil>"
	}
	return fmt.Sprintf("%T", addr)
}
