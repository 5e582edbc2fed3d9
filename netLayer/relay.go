package netLayer

import (
	"io"
	"net"
	"time"

	"github.com/e1732a364fed/camoproxy/utils"
	"go.uber.org/zap"
)

type Direction int

const (
	Upload   Direction = iota //client -> backend
	Download                  //backend -> client
)

func (d Direction) String() string {
	if d == Upload {
		return "client->backend"
	}
	return "backend->client"
}

// Pinger is implemented by client conns that have an in-band no-op,
// like the websocket ping frame.
type Pinger interface {
	Ping() error
}

type RelayOpts struct {
	// KeepAlive, if > 0, pings an idle client every KeepAlive.
	// Clients without Pinger get tcp keep-alive with this period instead.
	KeepAlive time.Duration

	Target string //only for logging
}

type RelayStats struct {
	Uploaded   int64
	Downloaded int64
	FirstDone  Direction
	Err        error //the error that ended the first direction, nil on EOF
	Duration   time.Duration
}

type copyResult struct {
	dir Direction
	n   int64
	err error
}

// Relay copies client -> backend and backend -> client concurrently.
//
// Each direction owns exactly one read half and one write half. The relay ends
// as soon as either direction ends: both conns are then closed, which unblocks
// the other direction. Data in flight at that moment is dropped.
// Relay returns after both directions have returned.
func Relay(client, backend net.Conn, opts RelayOpts) (stats RelayStats) {
	start := time.Now()

	pinger := asPinger(client)

	if opts.KeepAlive > 0 && pinger == nil {
		if tc := IsTCP(client); tc != nil {
			tc.SetKeepAlive(true)
			tc.SetKeepAlivePeriod(opts.KeepAlive)
		}
	}

	done := make(chan copyResult, 2)

	go func() {
		n, err := copyHalf(backend, client, nil, nil, 0)
		done <- copyResult{Upload, n, err}
	}()
	go func() {
		var ka time.Duration
		if pinger != nil {
			ka = opts.KeepAlive
		}
		n, err := copyHalf(client, backend, backend, pinger, ka)
		done <- copyResult{Download, n, err}
	}()

	first := <-done

	client.Close()
	backend.Close()

	second := <-done

	stats.FirstDone = first.dir
	stats.Err = first.err
	for _, r := range [2]copyResult{first, second} {
		if r.dir == Upload {
			stats.Uploaded = r.n
		} else {
			stats.Downloaded = r.n
		}
	}
	stats.Duration = time.Since(start)

	if ce := utils.CanLogDebug("relay end"); ce != nil {
		ce.Write(
			zap.String("target", opts.Target),
			zap.String("first", first.dir.String()),
			zap.Int64("up", stats.Uploaded),
			zap.Int64("down", stats.Downloaded),
			zap.Duration("duration", stats.Duration),
			zap.Error(first.err),
		)
	}
	return
}

// copyHalf reads src into a pooled 8k buffer and writes to dst until EOF or error.
// On EOF it half-closes dst if dst supports it, and returns a nil error.
//
// If ka > 0, reads on rd are bounded by ka; an idle tick pings dst through p.
// The ping failing ends the copy.
func copyHalf(dst io.Writer, src io.Reader, rd ReadDeadliner, p Pinger, ka time.Duration) (written int64, err error) {
	buf := utils.GetRelayBuf()
	defer utils.PutRelayBuf(buf)

	useKA := ka > 0 && rd != nil && p != nil

	for {
		if useKA {
			rd.SetReadDeadline(time.Now().Add(ka))
		}
		nr, er := src.Read(buf)
		if nr > 0 {
			nw, ew := dst.Write(buf[:nr])
			if nw > 0 {
				written += int64(nw)
			}
			if ew != nil {
				err = ew
				return
			}
			if nw != nr {
				err = io.ErrShortWrite
				return
			}
		}
		if er != nil {
			if er == io.EOF {
				if cw, ok := dst.(CloseWriter); ok {
					cw.CloseWrite()
				}
				return
			}
			if useKA && nr == 0 && utils.IsTimeout(er) {
				if ep := p.Ping(); ep != nil {
					err = utils.ErrInErr{ErrDesc: "keepalive failed", ErrDetail: ep}
					return
				}
				continue
			}
			err = er
			return
		}
	}
}

// asPinger looks through BufferedConn, which never pings by itself.
func asPinger(c net.Conn) Pinger {
	if bc, ok := c.(*BufferedConn); ok {
		c = bc.Conn
	}
	p, _ := c.(Pinger)
	return p
}
