package ax25ipd

import (
	"fmt"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

var baudRates = map[int]uint32{
	1200:   unix.B1200,
	2400:   unix.B2400,
	4800:   unix.B4800,
	9600:   unix.B9600,
	19200:  unix.B19200,
	38400:  unix.B38400,
	57600:  unix.B57600,
	115200: unix.B115200,
	230400: unix.B230400,
}

func baudRate(speed int) (uint32, error) {
	if b, ok := baudRates[speed]; ok {
		return b, nil
	}
	return 0, fmt.Errorf("unsupported serial speed %d", speed)
}

// fdChannel is a radio channel on a character device.
type fdChannel struct {
	fd int
}

func (c *fdChannel) Fd() int {
	return c.fd
}

func (c *fdChannel) Read(p []byte) (int, error) {
	return unix.Read(c.fd, p)
}

func (c *fdChannel) Write(p []byte) (int, error) {
	return unix.Write(c.fd, p)
}

func (c *fdChannel) Close() (err error) {
	if c.fd >= 0 {
		err = unix.Close(c.fd)
		c.fd = -1
	}
	return
}

// makeRaw puts the terminal on fd into raw 8 bit mode.  If speed is
// nonzero the line rate is set too.
func makeRaw(fd int, speed uint32) error {
	var attr unix.Termios
	if err := termios.Tcgetattr(uintptr(fd), &attr); err != nil {
		return fmt.Errorf("tcgetattr: %v", err)
	}
	termios.Cfmakeraw(&attr)
	attr.Cflag |= unix.CLOCAL | unix.CREAD
	attr.Cc[unix.VMIN] = 1
	attr.Cc[unix.VTIME] = 0
	if speed != 0 {
		attr.Cflag = attr.Cflag&^unix.CBAUD | speed
		attr.Ispeed = speed
		attr.Ospeed = speed
	}
	if err := termios.Tcsetattr(uintptr(fd), termios.TCSANOW, &attr); err != nil {
		return fmt.Errorf("tcsetattr: %v", err)
	}
	return nil
}

// openSerial opens a KISS TNC on a serial device.
func openSerial(device string, speed int) (*fdChannel, error) {
	rate, err := baudRate(speed)
	if err != nil {
		return nil, err
	}
	fd, err := unix.Open(device, unix.O_RDWR|unix.O_NOCTTY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open %v: %v", device, err)
	}
	if err := makeRaw(fd, rate); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to configure %v: %v", device, err)
	}
	return &fdChannel{fd: fd}, nil
}
