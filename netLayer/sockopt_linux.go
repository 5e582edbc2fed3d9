package netLayer

import (
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/e1732a364fed/camoproxy/utils"
)

// SetSockOpt applies sockopt to fd; failures are logged, never returned.
func SetSockOpt(fd int, sockopt *Sockopt) {
	if sockopt == nil {
		return
	}

	if sockopt.Somark != 0 {
		setSomark(fd, sockopt.Somark)
	}

	if sockopt.Device != "" {
		bindToDevice(fd, sockopt.Device)
	}
}

func bindToDevice(fd int, device string) {
	if err := unix.BindToDevice(fd, device); err != nil {
		if ce := utils.CanLogErr("BindToDevice failed"); ce != nil {
			ce.Write(zap.Error(err))
		}
	}
}

func setSomark(fd int, somark int) {
	if err := unix.SetsockoptInt(fd, syscall.SOL_SOCKET, unix.SO_MARK, somark); err != nil {
		if ce := utils.CanLogErr("setSomark failed"); ce != nil {
			ce.Write(zap.Error(err))
		}
	}
}
