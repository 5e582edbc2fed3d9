//go:build !linux

package netLayer

import "github.com/e1732a364fed/camoproxy/utils"

func SetSockOpt(fd int, sockopt *Sockopt) {
	if sockopt.IsEmpty() {
		return
	}
	if ce := utils.CanLogWarn("sockopt is only supported on linux, ignored"); ce != nil {
		ce.Write()
	}
}
