/*
Package camoproxy accepts tcp connections on a public port, dresses them up as
web traffic, and relays them to the local service the client really speaks to.

# Structure 本项目结构

utils -> netLayer -> httpLayer -> advLayer/ws -> proxy/udpgw -> camoproxy -> cmd/camoproxy

根项目 camoproxy 仅研究实际转发过程. The building blocks live in the sub packages:
sniffing and relaying in netLayer, the fake status lines in httpLayer, the
websocket handshakes in advLayer/ws, and the udp gateway in proxy/udpgw.

# Chain

具体 转发过程 的 调用链 是

	ListenSer -> handleNewIncomeConnection -> handshake -> netLayer.Sniff -> Select -> netLayer.DialBackend -> netLayer.Relay

and, on the mux port,

	ListenSer -> handleNewMuxConnection -> udpgw.Serve

Each connection runs in its own goroutine and shares nothing but the read-only Conf
and a few atomic counters. Closing what ListenSer returns stops accepting; connections
already accepted keep going until they end by themselves.

使用方式可以阅读 tcp_test.go
*/
package camoproxy
