package netLayer

import (
	"io"
	"net"
	"strconv"
	"time"

	"github.com/e1732a364fed/camoproxy/utils"
	"github.com/pires/go-proxyproto"
)

var proxyProtocolListenPolicyFunc = func(upstream net.Addr) (proxyproto.Policy, error) { return proxyproto.REQUIRE, nil }

type NetAddresser interface {
	LocalAddr() net.Addr
	RemoteAddr() net.Addr
}

// WrapProxyProtocolListener makes every accepted conn require a PROXY protocol
// header (v1 or v2). RemoteAddr of the accepted conns then reports the real client.
func WrapProxyProtocolListener(ln net.Listener, readHeaderTimeout time.Duration) net.Listener {
	return &proxyproto.Listener{
		Listener:          ln,
		Policy:            proxyProtocolListenPolicyFunc,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// PROXY protocol。
// Reference： http://www.haproxy.org/download/1.8/doc/proxy-protocol.txt
//
// xver 必须是 1或者2. wlc 为监听的连接，wrc为转发的连接。only tcp is supported.
func WritePROXYprotocol(xver int, wlc NetAddresser, wrc io.Writer) (int64, error) {
	if xver != 1 && xver != 2 {
		return 0, utils.ErrInErr{ErrDesc: "invalid xver", ErrDetail: utils.ErrWrongParameter, Data: xver}
	}
	src, dst := tcpAddrOf(wlc.RemoteAddr()), tcpAddrOf(wlc.LocalAddr())

	h := &proxyproto.Header{
		Version:           byte(xver),
		Command:           proxyproto.PROXY,
		TransportProtocol: proxyproto.TCPv4,
		SourceAddr:        src,
		DestinationAddr:   dst,
	}
	if src.IP.To4() == nil {
		h.TransportProtocol = proxyproto.TCPv6
		dst.IP = dst.IP.To16()
	} else {
		src.IP = src.IP.To4()
		if ip4 := dst.IP.To4(); ip4 != nil {
			dst.IP = ip4
		}
	}
	return h.WriteTo(wrc)
}

func tcpAddrOf(a net.Addr) *net.TCPAddr {
	if ta, ok := a.(*net.TCPAddr); ok {
		return &net.TCPAddr{IP: ta.IP, Port: ta.Port, Zone: ta.Zone}
	}
	ta := &net.TCPAddr{IP: addrIP(a)}
	if a != nil {
		if _, p, err := net.SplitHostPort(a.String()); err == nil {
			ta.Port, _ = strconv.Atoi(p)
		}
	}
	if ta.IP == nil {
		ta.IP = net.IPv4zero
	}
	return ta
}
