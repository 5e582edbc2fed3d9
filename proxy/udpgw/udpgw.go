/*
Package udpgw implements a udp gateway multiplexed over one tcp stream.

Each tcp read carries one frame:

	| connId u16 | flags u16 | addrLen u16 | addr (addrLen bytes) | port u16 | payload ... |

All integers are big endian. addrLen is 4 (ipv4) or 16 (ipv6). A port of 0 is
replaced by the configured default port.

For each frame the payload is sent from the session's single udp socket to
addr:port, and the first datagram received within the reply timeout is framed
back as {connId, 0, addrLen, addr, port, reply} onto the tcp stream.
Frames without a reply in time are dropped; the session goes on.
*/
package udpgw

import (
	"errors"
	"time"
)

const (
	DefaultReplyTimeout = time.Millisecond * 500

	// DefaultPortKey is the key of the fallback entry in Conf.DefaultPorts.
	DefaultPortKey = "default"
)

var (
	ErrFrameTooShort   = errors.New("udpgw frame too short")
	ErrFrameMalformed  = errors.New("udpgw frame malformed")
	ErrUdpReplyTimeout = errors.New("udpgw udp reply timeout")
)

type Conf struct {
	ReplyTimeout time.Duration

	// DefaultPorts resolves port 0 in a frame. Only DefaultPortKey is looked up.
	DefaultPorts map[string]uint16

	// Reassemble keeps a too short chunk and prepends it to the next read,
	// instead of dropping it.
	Reassemble bool
}

func (c *Conf) replyTimeout() time.Duration {
	if c.ReplyTimeout > 0 {
		return c.ReplyTimeout
	}
	return DefaultReplyTimeout
}

func (c *Conf) defaultPort() uint16 {
	if c.DefaultPorts == nil {
		return 0
	}
	return c.DefaultPorts[DefaultPortKey]
}
