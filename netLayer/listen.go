package netLayer

import (
	"net"
	"strings"
	"time"

	"github.com/e1732a364fed/camoproxy/utils"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"
)

const DefaultProxyHeaderTimeout = time.Second * 5

type ListenOpts struct {
	ProxyProtocol bool          //require a PROXY protocol header on every conn
	Filter        *SourceFilter //nil means no filter
	MaxConns      int           //0 means no limit
}

func loopAccept(listener net.Listener, filter *SourceFilter, acceptFunc func(net.Conn)) {
	for {
		newc, err := listener.Accept()
		if err != nil {
			errStr := err.Error()
			if strings.Contains(errStr, "closed") {
				if ce := utils.CanLogDebug("local connection closed"); ce != nil {
					ce.Write(zap.Error(err))
				}
				break
			}
			if ce := utils.CanLogWarn("failed to accept connection"); ce != nil {
				ce.Write(zap.Error(err))
			}
			if strings.Contains(errStr, "too many") {
				if ce := utils.CanLogWarn("To many incoming conn! Will Sleep."); ce != nil {
					ce.Write(zap.String("err", errStr))
				}
				time.Sleep(time.Millisecond * 500)
			}
			continue
		}

		// RemoteAddr of a PROXY protocol conn reads the header, so the filter
		// runs in the conn's own goroutine, never in the accept loop.
		go func(c net.Conn) {
			if !filter.Allowed(c.RemoteAddr()) {
				if ce := utils.CanLogInfo("source filtered"); ce != nil {
					ce.Write(zap.String("from", c.RemoteAddr().String()))
				}
				c.Close()
				return
			}
			acceptFunc(c)
		}(newc)
	}
}

// ListenAndAccept listens tcp on addr and calls acceptFunc in a new goroutine
// for each accepted conn.
//
// 非阻塞，在自己的goroutine中监听. Close the returned listener to stop accepting;
// conns already accepted are not affected.
func ListenAndAccept(addr string, opts ListenOpts, acceptFunc func(net.Conn)) (net.Listener, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	if opts.MaxConns > 0 {
		listener = netutil.LimitListener(listener, opts.MaxConns)
	}
	if opts.ProxyProtocol {
		listener = WrapProxyProtocolListener(listener, DefaultProxyHeaderTimeout)
	}

	go loopAccept(listener, opts.Filter, acceptFunc)
	return listener, nil
}
