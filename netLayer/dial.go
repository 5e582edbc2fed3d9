package netLayer

import (
	"errors"
	"net"
	"syscall"
	"time"

	"github.com/e1732a364fed/camoproxy/utils"
)

// ErrBackendUnreachable is returned by DialBackend, wrapped in a utils.ErrInErr.
// The caller closes the client; there is no retry and no fallback backend.
var ErrBackendUnreachable = errors.New("backend unreachable")

// DialBackend dials a tcp backend within timeout, applying sockopt if given.
// A timeout <= 0 means DefaultDialTimeout.
func DialBackend(address string, timeout time.Duration, sockopt *Sockopt) (net.Conn, error) {
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	dialer := &net.Dialer{
		Timeout: timeout,
	}

	if !sockopt.IsEmpty() {
		dialer.Control = func(network, address string, c syscall.RawConn) error {
			return c.Control(func(fd uintptr) {
				SetSockOpt(int(fd), sockopt)
			})
		}
	}

	conn, err := dialer.Dial("tcp", address)
	if err != nil {
		return nil, utils.ErrInErr{ErrDesc: address, ErrDetail: ErrBackendUnreachable, Data: err.Error()}
	}
	return conn, nil
}
