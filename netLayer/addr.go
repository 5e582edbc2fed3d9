package netLayer

import (
	"math/rand"
	"net"
	"runtime"
	"strconv"

	"github.com/e1732a364fed/camoproxy/utils"
)

var (
	randPortBase int = 60000
)

func init() {
	if runtime.GOOS == "windows" {
		randPortBase = 45000 //windows在测试中发现高于五万的端口经常被占用
	}
}

// if mustValid is true, a valid port is assured.
// isudp is used to determine whether you want to use udp.
// depth 填0 即可，用于递归。
func RandPort(mustValid, isudp bool, depth int) (p int) {
	p = rand.Intn(randPortBase) + 4096
	if !mustValid {
		return
	}
	var err error
	if isudp {
		var listener *net.UDPConn
		listener, err = net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(0, 0, 0, 0), Port: p})
		if listener != nil {
			listener.Close()
		}
	} else {
		var listener *net.TCPListener
		listener, err = net.ListenTCP("tcp", &net.TCPAddr{IP: net.IPv4(0, 0, 0, 0), Port: p})
		if listener != nil {
			listener.Close()
		}
	}
	if err != nil {
		if depth < 20 {
			if ce := utils.CanLogDebug("Get RandPort but got err, trying again"); ce != nil {
				ce.Write()
			}
			return RandPort(mustValid, isudp, depth+1)
		}
		if ce := utils.CanLogDebug("Get RandPort but got err, and depth reach limit, return directly"); ce != nil {
			ce.Write()
		}
	}
	return
}

func RandPortStr(mustValid, isudp bool) string {
	return strconv.Itoa(RandPort(mustValid, isudp, 0))
}

// HostPort joins host and port; an empty host means 127.0.0.1.
func HostPort(host string, port int) string {
	if host == "" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}
