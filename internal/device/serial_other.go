//go:build !linux

package device

import (
	"fmt"
	"runtime"
	"time"
)

// SerialPort is unavailable on this platform.
type SerialPort struct{}

// OpenSerial always fails outside Linux; use the tcp transport instead.
func OpenSerial(path string, timeout time.Duration) (*SerialPort, error) {
	return nil, fmt.Errorf("serial transport is not supported on %s", runtime.GOOS)
}

func (s *SerialPort) Read(p []byte) (int, error)  { return 0, fmt.Errorf("serial port not open") }
func (s *SerialPort) Write(p []byte) (int, error) { return 0, fmt.Errorf("serial port not open") }
func (s *SerialPort) Close() error                { return nil }
