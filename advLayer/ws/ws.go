/*
Package ws implements the websocket side of the handshake disguise.

Two server handshakes are provided:

	HandshakeLenient: only Sec-WebSocket-Key is required, the 101 reply is always the same.
	HandshakeStrict:  full RFC 6455 checks by gobwas/ws, with an optional path.

Both read the request header through the caller's bufio.Reader and nothing more,
so whatever the client sends right after the header is left for sniffing.

After either handshake, the client may be wrapped in a Conn, which reads and writes
binary websocket frames. Without the wrap, the rest of the stream is raw bytes.
*/
package ws

import (
	"crypto/sha1"
	"encoding/base64"
	"errors"
)

// 固定的 GUID, rfc6455 section 1.3
const acceptGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

const HeaderKey = "Sec-WebSocket-Key"

// ErrHandshakeMalformed is the detail of every handshake failure, wrapped in utils.ErrInErr.
var ErrHandshakeMalformed = errors.New("malformed websocket handshake")

// ComputeAcceptKey gives the Sec-WebSocket-Accept value for a Sec-WebSocket-Key.
func ComputeAcceptKey(key string) string {
	h := sha1.New()
	h.Write([]byte(key))
	h.Write([]byte(acceptGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
