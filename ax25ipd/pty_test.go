package ax25ipd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestReplaceSymlink(t *testing.T) {
	dir := t.TempDir()
	link := filepath.Join(dir, "axip")

	require.NoError(t, replaceSymlink("/dev/pts/7", link))
	got, err := os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, "/dev/pts/7", got)

	// A stale link from an earlier run is replaced.
	require.NoError(t, replaceSymlink("/dev/pts/9", link))
	got, err = os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, "/dev/pts/9", got)

	regular := filepath.Join(dir, "regular")
	require.NoError(t, os.WriteFile(regular, []byte("keep"), 0644))
	err = replaceSymlink("/dev/pts/9", regular)
	assert.ErrorContains(t, err, "not a symlink")
	b, err := os.ReadFile(regular)
	require.NoError(t, err)
	assert.Equal(t, "keep", string(b))
}

func TestOpenPty(t *testing.T) {
	link := filepath.Join(t.TempDir(), "axip")
	c, err := openPty(link)
	if err != nil {
		t.Skipf("pseudo terminals unavailable: %v", err)
	}
	defer c.Close()

	assert.True(t, strings.HasPrefix(c.SlaveName(), "/dev/"), c.SlaveName())
	target, err := os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, c.SlaveName(), target)

	// The line is raw: bytes reach the master unmodified and at once.
	msg := []byte{0xc0, 0x00, '\r', '\n', 0x03, 0xc0}
	_, err = c.slave.Write(msg)
	require.NoError(t, err)

	fds := []unix.PollFd{{Fd: int32(c.Fd()), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, 1000)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	buf := make([]byte, 64)
	n, err = c.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, msg, buf[:n])
}
