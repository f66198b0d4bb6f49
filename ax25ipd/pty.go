package ax25ipd

import (
	"errors"
	"fmt"
	"os"

	"github.com/creack/pty"
	"golang.org/x/sys/unix"
)

// ptyChannel is the master side of a pseudo terminal.  The slave is held
// open so that reads on the master do not fail with EIO while no KISS
// application is attached.
type ptyChannel struct {
	fdChannel
	master *os.File
	slave  *os.File
}

func (c *ptyChannel) SlaveName() string {
	return c.slave.Name()
}

func (c *ptyChannel) Close() error {
	c.fdChannel.fd = -1
	merr := c.master.Close()
	serr := c.slave.Close()
	if merr != nil {
		return merr
	}
	return serr
}

// openPty allocates a pseudo terminal and points symlink, if set, at the
// slave.
func openPty(symlink string) (*ptyChannel, error) {
	master, slave, err := pty.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate pseudo terminal: %v", err)
	}

	// Fd() switches the file to blocking mode, so the descriptor is put
	// back to nonblocking afterwards.
	fd := int(master.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		master.Close()
		slave.Close()
		return nil, fmt.Errorf("failed to set pseudo terminal nonblocking: %v", err)
	}
	if err := makeRaw(int(slave.Fd()), 0); err != nil {
		master.Close()
		slave.Close()
		return nil, fmt.Errorf("failed to configure pseudo terminal: %v", err)
	}

	c := &ptyChannel{
		fdChannel: fdChannel{fd: fd},
		master:    master,
		slave:     slave,
	}
	if symlink != "" {
		if err := replaceSymlink(c.SlaveName(), symlink); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

// replaceSymlink creates link pointing at target.  An existing link is
// replaced but any other file at that path is left alone.
func replaceSymlink(target, link string) error {
	fi, err := os.Lstat(link)
	switch {
	case err == nil:
		if fi.Mode()&os.ModeSymlink == 0 {
			return fmt.Errorf("%v exists and is not a symlink", link)
		}
		if err := os.Remove(link); err != nil {
			return fmt.Errorf("failed to remove old symlink %v: %v", link, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("failed to stat %v: %v", link, err)
	}
	if err := os.Symlink(target, link); err != nil {
		return fmt.Errorf("failed to create symlink %v: %v", link, err)
	}
	return nil
}
