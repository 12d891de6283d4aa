//go:build linux

package device

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// SerialPort is the CDC-ACM tty exposed by the bootloader, in raw mode.
// Reads return after at most the configured timeout; a timeout with no data
// surfaces as io.EOF.
type SerialPort struct {
	file *os.File
	path string
}

// OpenSerial opens path and switches it to raw 8N1 with VMIN=0 and VTIME set
// from timeout (clamped to 0.1s..25.5s).
func OpenSerial(path string, timeout time.Duration) (*SerialPort, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}

	if err := makeRaw(fd, timeout); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to configure serial port %s: %w", path, err)
	}

	// Drop anything a previous session left in the buffers.
	if err := unix.IoctlSetInt(fd, unix.TCFLSH, unix.TCIOFLUSH); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("failed to flush serial port %s: %w", path, err)
	}

	return &SerialPort{file: os.NewFile(uintptr(fd), path), path: path}, nil
}

func makeRaw(fd int, timeout time.Duration) error {
	t, err := unix.IoctlGetTermios(fd, unix.TCGETS)
	if err != nil {
		return err
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP | unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = vtime(timeout)

	return unix.IoctlSetTermios(fd, unix.TCSETS, t)
}

// vtime converts a timeout to tenths of a second for VTIME.
func vtime(timeout time.Duration) uint8 {
	ds := timeout / (100 * time.Millisecond)
	switch {
	case ds < 1:
		return 1
	case ds > 255:
		return 255
	default:
		return uint8(ds)
	}
}

// Read implements io.Reader.
func (s *SerialPort) Read(p []byte) (int, error) {
	return s.file.Read(p)
}

// Write implements io.Writer.
func (s *SerialPort) Write(p []byte) (int, error) {
	return s.file.Write(p)
}

// Close closes the port.
func (s *SerialPort) Close() error {
	return s.file.Close()
}

// String returns the device path.
func (s *SerialPort) String() string {
	return s.path
}
