package netLayer

import (
	"bufio"
	"bytes"
	"time"

	"github.com/e1732a364fed/camoproxy/utils"
	"go.uber.org/zap"
)

// ProtocolTag is what the sniffer thinks the client speaks.
type ProtocolTag int

const (
	Unknown ProtocolTag = iota
	SSH
	OpenVPN
	WebSocketUpgrade
)

func (t ProtocolTag) String() string {
	switch t {
	case SSH:
		return "ssh"
	case OpenVPN:
		return "openvpn"
	case WebSocketUpgrade:
		return "websocket"
	}
	return "unknown"
}

var (
	sshPrefix     = []byte("SSH-")
	httpGetPrefix = []byte("GET ")
	wsUpgradeLow  = []byte("upgrade: websocket")
)

// Classify maps leading payload bytes to a ProtocolTag. It does no validation,
// the result is only used for coarse routing.
func Classify(bs []byte) ProtocolTag {
	switch {
	case len(bs) == 0:
		return Unknown
	case bytes.HasPrefix(bs, sshPrefix):
		return SSH
	case bytes.HasPrefix(bs, httpGetPrefix) || bytes.Contains(bytes.ToLower(bs), wsUpgradeLow):
		return WebSocketUpgrade
	}
	return OpenVPN
}

// Sniff peeks up to window bytes from br without consuming them and classifies
// them. It waits at most timeout for the first bytes; if d is given, the wait is
// bounded by a read deadline on d, which is cleared before returning.
//
// An idle client, an empty read or any read error gives Unknown.
func Sniff(br *bufio.Reader, d ReadDeadliner, window int, timeout time.Duration) ProtocolTag {
	if window <= 0 || window > br.Size() {
		window = br.Size()
	}

	if d != nil && timeout > 0 {
		d.SetReadDeadline(time.Now().Add(timeout))
		defer d.SetReadDeadline(time.Time{})
	}

	if _, err := br.Peek(1); err != nil {
		if ce := utils.CanLogDebug("sniff got nothing"); ce != nil {
			ce.Write(zap.Error(err))
		}
		return Unknown
	}

	n := br.Buffered()
	if n > window {
		n = window
	}
	bs, _ := br.Peek(n)

	//"SS" may arrive before "H-"; wait a little more within the same deadline.
	if len(bs) < len(sshPrefix) && bytes.HasPrefix(sshPrefix, bs) && window >= len(sshPrefix) {
		if more, err := br.Peek(len(sshPrefix)); err == nil {
			bs = more
		}
	}

	tag := Classify(bs)

	if ce := utils.CanLogDebug("sniffed"); ce != nil {
		ce.Write(zap.String("tag", tag.String()), zap.Int("peeked", len(bs)))
	}
	return tag
}
