package ws

import (
	"errors"
	"io"
	"net"
	"sync"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// Conn carries a byte stream inside binary websocket frames, server side.
//
// Read unwraps binary and continuation frames, answers pings and turns a close
// frame into io.EOF. Text frames are dropped. Write sends each p as one binary
// frame. Data frames, pongs and close frames share one write lock, so a pong
// never lands in the middle of a data frame.
type Conn struct {
	net.Conn

	r       *wsutil.Reader
	ctrl    wsutil.FrameHandlerFunc
	inFrame bool

	wmu       sync.Mutex
	closeSent bool
}

// NewServerConn wraps c. Frames are read from r, which should be the reader
// the handshake was read from, so no buffered byte is lost.
func NewServerConn(c net.Conn, r io.Reader) *Conn {
	if r == nil {
		r = c
	}
	wc := &Conn{Conn: c}
	wc.ctrl = wsutil.ControlFrameHandler(lockedWriter{wc}, ws.StateServerSide)
	wc.r = wsutil.NewServerSideReader(r)
	wc.r.OnIntermediate = wc.ctrl
	return wc
}

type lockedWriter struct{ c *Conn }

func (lw lockedWriter) Write(p []byte) (int, error) {
	lw.c.wmu.Lock()
	defer lw.c.wmu.Unlock()
	return lw.c.Conn.Write(p)
}

// Read websocket binary frames
func (c *Conn) Read(p []byte) (int, error) {
	for {
		if c.inFrame {
			n, err := c.r.Read(p)
			if err == io.EOF {
				c.inFrame = false
				err = nil
			}
			if err != nil {
				return n, closedToEOF(err)
			}
			if n == 0 {
				continue
			}
			return n, nil
		}

		h, err := c.r.NextFrame()
		if err != nil {
			return 0, closedToEOF(err)
		}

		if h.OpCode.IsControl() {
			if err := c.ctrl(h, c.r); err != nil {
				return 0, closedToEOF(err)
			}
			continue
		}

		switch h.OpCode {
		case ws.OpBinary, ws.OpContinuation:
			c.inFrame = true
		default:
			if err := c.r.Discard(); err != nil {
				return 0, closedToEOF(err)
			}
		}
	}
}

func closedToEOF(err error) error {
	var ce wsutil.ClosedError
	if errors.As(err, &ce) {
		return io.EOF
	}
	return err
}

// Write websocket binary frames
func (c *Conn) Write(p []byte) (n int, e error) {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	//WriteServerBinary 不分片, 也不缓存
	e = wsutil.WriteServerBinary(c.Conn, p)
	if e == nil {
		n = len(p)
	}
	return
}

// Ping sends an empty ping frame. It lets an idle relay keep the client path alive.
func (c *Conn) Ping() error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return ws.WriteHeader(c.Conn, ws.Header{Fin: true, OpCode: ws.OpPing})
}

// CloseWrite sends a normal close frame once. The underlying conn stays open
// for reading.
func (c *Conn) CloseWrite() error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	if c.closeSent {
		return nil
	}
	c.closeSent = true
	return ws.WriteFrame(c.Conn, ws.NewCloseFrame(ws.NewCloseFrameBody(ws.StatusNormalClosure, "")))
}
