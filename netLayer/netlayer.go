/*
Package netLayer contains definitions in network layer AND transport layer.

本包有 sniff, relay, dial, listen, sockopt 等相关功能。

The relay path of one client connection is:

	ListenAndAccept -> (handshake in httpLayer / advLayer) -> Sniff -> DialBackend -> Relay
*/
package netLayer

import (
	"bufio"
	"net"
	"time"
)

const (
	DefaultDialTimeout  = time.Second * 5
	DefaultSniffTimeout = time.Second
	DefaultSniffWindow  = 1024
)

type ReadDeadliner interface {
	SetReadDeadline(t time.Time) error
}

// CloseWriter is implemented by *net.TCPConn and by our own conns that can half-close.
type CloseWriter interface {
	CloseWrite() error
}

// BufferedConn reads through R, so bytes peeked or buffered during the handshake
// and sniffing stages are read again before anything new from the socket.
type BufferedConn struct {
	net.Conn
	R *bufio.Reader
}

// NewBufferedConn wraps c with a reader of at least size bytes.
func NewBufferedConn(c net.Conn, size int) *BufferedConn {
	return &BufferedConn{Conn: c, R: bufio.NewReaderSize(c, size)}
}

func (bc *BufferedConn) Read(p []byte) (int, error) {
	return bc.R.Read(p)
}

func (bc *BufferedConn) CloseWrite() error {
	if cw, ok := bc.Conn.(CloseWriter); ok {
		return cw.CloseWrite()
	}
	return nil
}

// IsTCP returns the *net.TCPConn under r, or nil.
func IsTCP(r any) *net.TCPConn {
	switch v := r.(type) {
	case *net.TCPConn:
		return v
	case *BufferedConn:
		return IsTCP(v.Conn)
	}
	return nil
}
