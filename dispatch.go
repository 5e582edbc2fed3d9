package camoproxy

import "github.com/e1732a364fed/camoproxy/netLayer"

// Select maps a sniffed tag to a backend address. SSH and Unknown go to the ssh
// backend; OpenVPN and WebSocketUpgrade go to their own backend when one is
// configured, and to the ssh backend otherwise.
func Select(tag netLayer.ProtocolTag, conf *Conf) string {
	ssh := conf.Backends[BackendSSH]

	switch tag {
	case netLayer.OpenVPN:
		if a := conf.Backends[BackendOpenVPN]; a != "" {
			return a
		}
	case netLayer.WebSocketUpgrade:
		if a := conf.Backends[BackendWebsocket]; a != "" {
			return a
		}
	}
	return ssh
}
