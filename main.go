package camoproxy

import (
	"bufio"
	"io"
	"net"
	"runtime/debug"

	"github.com/e1732a364fed/camoproxy/advLayer/ws"
	"github.com/e1732a364fed/camoproxy/httpLayer"
	"github.com/e1732a364fed/camoproxy/netLayer"
	"github.com/e1732a364fed/camoproxy/proxy/udpgw"
	"github.com/e1732a364fed/camoproxy/utils"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	ActiveConnectionCount      atomic.Int32
	AllDownloadBytesSinceStart atomic.Uint64
	AllUploadBytesSinceStart   atomic.Uint64
	MuxSessionCount            atomic.Int32
)

// listenerGroup closes all its listeners.
type listenerGroup []net.Listener

func (lg listenerGroup) Close() (err error) {
	for _, l := range lg {
		err = multierr.Append(err, l.Close())
	}
	return
}

// ListenSer starts the main listener, and the udpgw listener if MuxListenPort is
// set. It does not block. conf must have passed SetDefaults and Validate, and
// must not change afterwards.
//
// Closing the returned io.Closer stops accepting; live connections go on.
func ListenSer(conf *Conf) (io.Closer, error) {
	filter, err := netLayer.NewSourceFilter(conf.AllowSources, conf.DenySources)
	if err != nil {
		return nil, err
	}

	opts := netLayer.ListenOpts{
		ProxyProtocol: conf.ProxyProtocol,
		Filter:        filter,
		MaxConns:      conf.MaxConns,
	}

	var lg listenerGroup

	l, err := netLayer.ListenAndAccept(conf.ListenAddr(), opts, func(c net.Conn) {
		handleNewIncomeConnection(conf, c)
	})
	if err != nil {
		return nil, err
	}
	lg = append(lg, l)

	if ce := utils.CanLogInfo("camoproxy listening"); ce != nil {
		ce.Write(
			zap.String("addr", l.Addr().String()),
			zap.String("handshake", conf.Handshake),
			zap.String("backends", conf.BackendsString()),
		)
	}

	if conf.MuxListenPort > 0 {
		mc := conf.muxConf()
		ml, err := netLayer.ListenAndAccept(conf.MuxListenAddr(), opts, func(c net.Conn) {
			handleNewMuxConnection(mc, c)
		})
		if err != nil {
			lg.Close()
			return nil, err
		}
		lg = append(lg, ml)

		if ce := utils.CanLogInfo("udpgw listening"); ce != nil {
			ce.Write(zap.String("addr", ml.Addr().String()))
		}
	}

	return lg, nil
}

// closeOnPanic recovers a panic of a connection handler, logs it and closes
// every non-nil conn that conns point to. It must be deferred directly.
func closeOnPanic(where string, conns ...*net.Conn) {
	r := recover()
	if r == nil {
		return
	}
	if ce := utils.CanLogErr(where + " panic"); ce != nil {
		ce.Write(zap.Any("err", r), zap.String("stack", string(debug.Stack())))
	}
	for _, pc := range conns {
		if pc != nil && *pc != nil {
			(*pc).Close()
		}
	}
}

// handleNewIncomeConnection owns c, and the backend once dialed, until it hands
// both to netLayer.Relay. Every return path closes them.
func handleNewIncomeConnection(conf *Conf, c net.Conn) {
	var backend net.Conn
	defer closeOnPanic("handleNewIncomeConnection", &c, &backend)

	ActiveConnectionCount.Inc()
	defer ActiveConnectionCount.Dec()

	from := c.RemoteAddr().String()

	if ce := utils.CanLogDebug("new connection"); ce != nil {
		ce.Write(zap.String("from", from))
	}

	bufSize := conf.SniffWindow
	if bufSize < httpLayer.MaxHeaderLen {
		bufSize = httpLayer.MaxHeaderLen
	}
	bc := netLayer.NewBufferedConn(c, bufSize)

	if err := handshake(conf, c, bc.R); err != nil {
		if ce := utils.CanLogWarn("handshake failed"); ce != nil {
			ce.Write(zap.String("from", from), zap.String("mode", conf.Handshake), zap.Error(err))
		}
		c.Close()
		return
	}

	client := bc
	if conf.WsFramed {
		client = netLayer.NewBufferedConn(ws.NewServerConn(c, bc.R), conf.SniffWindow)
	}

	tag := netLayer.Sniff(client.R, client, conf.SniffWindow, conf.sniffTimeout())
	target := Select(tag, conf)

	var err error
	backend, err = netLayer.DialBackend(target, conf.dialTimeout(), conf.Sockopt)
	if err != nil {
		if ce := utils.CanLogWarn("dial backend failed"); ce != nil {
			ce.Write(zap.String("from", from), zap.String("tag", tag.String()), zap.Error(err))
		}
		c.Close()
		return
	}

	if conf.BackendXver > 0 {
		if _, err := netLayer.WritePROXYprotocol(conf.BackendXver, c, backend); err != nil {
			if ce := utils.CanLogWarn("write PROXY header failed"); ce != nil {
				ce.Write(zap.String("target", target), zap.Error(err))
			}
			c.Close()
			backend.Close()
			return
		}
	}

	if ce := utils.CanLogInfo("relay start"); ce != nil {
		ce.Write(zap.String("from", from), zap.String("tag", tag.String()), zap.String("target", target))
	}

	stats := netLayer.Relay(client, backend, netLayer.RelayOpts{
		KeepAlive: conf.keepAlive(),
		Target:    target,
	})

	AllUploadBytesSinceStart.Add(uint64(stats.Uploaded))
	AllDownloadBytesSinceStart.Add(uint64(stats.Downloaded))

	if ce := utils.CanLogInfo("relay end"); ce != nil {
		ce.Write(
			zap.String("from", from),
			zap.String("target", target),
			zap.Int64("up", stats.Uploaded),
			zap.Int64("down", stats.Downloaded),
			zap.Stringer("first", stats.FirstDone),
			zap.Error(stats.Err),
		)
	}
}

// handshake runs the configured disguise. Bytes are read only through br, so
// the payload sent right after the handshake stays in br for sniffing.
func handshake(conf *Conf, c net.Conn, br *bufio.Reader) error {
	switch conf.Handshake {
	case HandshakeCosmetic:
		return httpLayer.CosmeticHandshake(c, br, conf.Status, false, 0)
	case HandshakeCosmeticDouble:
		return httpLayer.CosmeticHandshake(c, br, conf.Status, true, conf.sniffTimeout())
	case HandshakeWebsocket:
		return ws.HandshakeLenient(c, br)
	case HandshakeWebsocketStrict:
		return ws.HandshakeStrict(c, br, conf.WsPath)
	}
	return nil
}

func handleNewMuxConnection(mc udpgw.Conf, c net.Conn) {
	defer closeOnPanic("handleNewMuxConnection", &c)

	MuxSessionCount.Inc()
	defer MuxSessionCount.Dec()

	from := c.RemoteAddr().String()

	stats, err := udpgw.Serve(c, mc)
	if err != nil {
		if ce := utils.CanLogWarn("udpgw session failed"); ce != nil {
			ce.Write(zap.String("from", from), zap.Error(err))
		}
		return
	}
	if ce := utils.CanLogInfo("udpgw session end"); ce != nil {
		ce.Write(
			zap.String("from", from),
			zap.Int64("frames", stats.Frames),
			zap.Int64("replies", stats.Replies),
			zap.Int64("dropped", stats.Dropped),
			zap.Int("connIds", stats.ConnIDs),
		)
	}
}
