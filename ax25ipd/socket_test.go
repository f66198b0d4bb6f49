package ax25ipd

import (
	"encoding/binary"
	"strconv"
	"testing"

	"github.com/mdlayher/netlink/nlenc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestIPHeaderLen(t *testing.T) {
	hdr := func(b0 byte, n int) []byte {
		b := make([]byte, n)
		b[0] = b0
		return b
	}
	cases := []struct {
		name string
		in   []byte
		want int
	}{
		{"minimal", hdr(0x45, 40), 20},
		{"with options", hdr(0x46, 40), 24},
		{"header only", hdr(0x45, 20), 20},
		{"truncated", hdr(0x45, 19), 0},
		{"options beyond datagram", hdr(0x4f, 40), 0},
		{"ihl too small", hdr(0x44, 40), 0},
		{"ipv6", hdr(0x60, 40), 0},
		{"empty", nil, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, ipHeaderLen(c.in))
		})
	}
}

func TestSockaddrString(t *testing.T) {
	assert.Equal(t, "192.0.2.1:10093", sockaddrString(&unix.SockaddrInet4{Addr: [4]byte{192, 0, 2, 1}, Port: 10093}))
	assert.Equal(t, "192.0.2.1", sockaddrString(&unix.SockaddrInet4{Addr: [4]byte{192, 0, 2, 1}}))
	assert.Equal(t, "<nil>", sockaddrString(nil))
}

func TestHtons(t *testing.T) {
	b := make([]byte, 2)
	nlenc.PutUint16(b, htons(EthTypeBPQ))
	assert.Equal(t, uint16(EthTypeBPQ), binary.BigEndian.Uint16(b))
}

func TestUDPSocket(t *testing.T) {
	s, err := newUDPSocket(0)
	require.NoError(t, err)
	defer s.Close()

	sa, err := unix.Getsockname(s.Fd())
	require.NoError(t, err)
	port := sa.(*unix.SockaddrInet4).Port

	flags, err := unix.FcntlInt(uintptr(s.Fd()), unix.F_GETFD, 0)
	require.NoError(t, err)
	assert.NotZero(t, flags&unix.FD_CLOEXEC)

	// Nothing queued: a nonblocking socket reports EAGAIN.
	buf := make([]byte, 64)
	_, _, err = s.RecvFrom(buf)
	assert.Equal(t, unix.EAGAIN, err)

	to := &unix.SockaddrInet4{Addr: [4]byte{127, 0, 0, 1}, Port: port}
	n, err := s.SendTo([]byte("frame"), to)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	fds := []unix.PollFd{{Fd: int32(s.Fd()), Events: unix.POLLIN}}
	_, err = unix.Poll(fds, 1000)
	require.NoError(t, err)

	n, from, err := s.RecvFrom(buf)
	require.NoError(t, err)
	assert.Equal(t, "frame", string(buf[:n]))
	assert.Equal(t, "127.0.0.1:"+strconv.Itoa(port), sockaddrString(from))

	require.NoError(t, s.Close())
	assert.Equal(t, -1, s.Fd())
	assert.NoError(t, s.Close())
}
