package ws

import (
	"bufio"
	"bytes"
	"net"
	"net/http"

	"github.com/e1732a364fed/camoproxy/httpLayer"
	"github.com/e1732a364fed/camoproxy/utils"
	"github.com/gobwas/httphead"
	"github.com/gobwas/ws"
	"go.uber.org/zap"
)

var (
	badRequestResponse = []byte("HTTP/1.1 400 Bad Request\r\n\r\n")
	headerKeyBytes     = []byte(HeaderKey)
)

// HandshakeLenient reads the opening request from br, takes the first
// Sec-WebSocket-Key header (name matched case-insensitively) and writes the 101
// response with the computed accept value. Nothing else in the request is checked.
//
// Without a key it writes 400 Bad Request and returns an error wrapping
// ErrHandshakeMalformed; the caller then closes conn.
func HandshakeLenient(conn net.Conn, br *bufio.Reader) error {
	block, err := httpLayer.ReadHeaderBlock(br, httpLayer.MaxHeaderLen)
	if err != nil {
		conn.Write(badRequestResponse)
		return utils.ErrInErr{ErrDesc: "ws read header failed", ErrDetail: ErrHandshakeMalformed, Data: err.Error()}
	}

	key := findKey(block)
	if key == "" {
		conn.Write(badRequestResponse)
		return utils.ErrInErr{ErrDesc: "ws no " + HeaderKey, ErrDetail: ErrHandshakeMalformed}
	}

	var buf bytes.Buffer
	buf.WriteString("HTTP/1.1 101 Switching Protocols\r\nUpgrade: websocket\r\nConnection: Upgrade\r\nSec-WebSocket-Accept: ")
	buf.WriteString(ComputeAcceptKey(key))
	buf.WriteString("\r\n\r\n")

	if _, err := conn.Write(buf.Bytes()); err != nil {
		return err
	}

	if ce := utils.CanLogDebug("ws lenient handshake ok"); ce != nil {
		ce.Write(zap.String("from", conn.RemoteAddr().String()))
	}
	return nil
}

// findKey skips the request line and returns the value of the first key header.
func findKey(block []byte) string {
	lines := bytes.Split(block, []byte("\n"))
	if len(lines) < 2 {
		return ""
	}
	for _, line := range lines[1:] {
		line = bytes.TrimRight(line, "\r")
		if len(line) == 0 {
			break
		}
		k, v, ok := httphead.ParseHeaderLine(line)
		if !ok {
			continue
		}
		if bytes.EqualFold(k, headerKeyBytes) {
			return string(bytes.TrimSpace(v))
		}
	}
	return ""
}

// HandshakeStrict upgrades with gobwas/ws.Upgrader, so the request must be a
// complete RFC 6455 opening handshake. If path is not empty, the request uri
// (without query) must equal it.
//
// The upgrader writes its own 4xx response on failure.
func HandshakeStrict(conn net.Conn, br *bufio.Reader, path string) error {
	block, err := httpLayer.ReadHeaderBlock(br, httpLayer.MaxHeaderLen)
	if err != nil {
		conn.Write(badRequestResponse)
		return utils.ErrInErr{ErrDesc: "ws read header failed", ErrDetail: ErrHandshakeMalformed, Data: err.Error()}
	}

	theWrongPath := ""

	upgrader := ws.Upgrader{
		ReadBufferSize: httpLayer.MaxHeaderLen,

		OnRequest: func(uri []byte) error {
			if path == "" {
				return nil
			}
			if i := bytes.IndexByte(uri, '?'); i >= 0 {
				uri = uri[:i]
			}
			if string(uri) != path {
				//不在 response 里说明原因, 只给标准的 http 错误
				theWrongPath = string(uri)
				return ws.RejectConnectionError(ws.RejectionStatus(http.StatusNotFound))
			}
			return nil
		},
	}

	// the upgrader buffers its reader, so it only gets the header bytes
	rw := utils.RW{Reader: bytes.NewReader(block), Writer: conn}

	if _, err := upgrader.Upgrade(rw); err != nil {
		if theWrongPath != "" {
			if ce := utils.CanLogWarn("ws path not match"); ce != nil {
				ce.Write(zap.String("path", theWrongPath), zap.String("from", conn.RemoteAddr().String()))
			}
		}
		return utils.ErrInErr{ErrDesc: "ws upgrade failed", ErrDetail: ErrHandshakeMalformed, Data: err.Error()}
	}

	if ce := utils.CanLogDebug("ws strict handshake ok"); ce != nil {
		ce.Write(zap.String("from", conn.RemoteAddr().String()))
	}
	return nil
}
