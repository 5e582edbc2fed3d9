/*
Package main 读取配置文件和命令行参数, 然后开始监听和转发.

命令行参数请使用 --help / -h 查看详情，配置文件示例请参考 ../../examples/ .
Flags given on the command line override the config file.
*/
package main

import (
	"fmt"
	"io"
	"runtime"
)

const (
	desc      = "A disguised tunneling relay: fake web handshake, protocol sniffing, local backends\n"
	delimiter = "===============================\n"
)

var Version string = "[version_undefined]" //版本号可由 -ldflags "-X 'main.Version=v1.x.x'" 指定

func versionStr() string {
	return fmt.Sprintf("camoproxy %s, %s %s %s\n", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

func printVersion(w io.StringWriter) {
	w.WriteString(delimiter)
	w.WriteString(versionStr())
	w.WriteString(delimiter)
	w.WriteString(desc)
	w.WriteString(delimiter)
}
