package device

import (
	"fmt"
	"net"
	"time"
)

// TCPTransport talks to a USB proxy that relays the bulk endpoints over TCP.
// Every read and write carries its own deadline.
type TCPTransport struct {
	conn    net.Conn
	addr    string
	timeout time.Duration
}

// DialTCP connects to the proxy at addr.
func DialTCP(addr string, timeout time.Duration) (*TCPTransport, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to USB proxy at %s: %w", addr, err)
	}
	return &TCPTransport{conn: conn, addr: addr, timeout: timeout}, nil
}

// Read implements io.Reader.
func (t *TCPTransport) Read(p []byte) (int, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(t.timeout)); err != nil {
		return 0, err
	}
	return t.conn.Read(p)
}

// Write implements io.Writer.
func (t *TCPTransport) Write(p []byte) (int, error) {
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
		return 0, err
	}
	return t.conn.Write(p)
}

// Close disconnects from the proxy.
func (t *TCPTransport) Close() error {
	return t.conn.Close()
}

// String returns the proxy address.
func (t *TCPTransport) String() string {
	return t.addr
}
