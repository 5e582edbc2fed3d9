package httpLayer

import (
	"bufio"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/e1732a364fed/camoproxy/utils"
	"go.uber.org/zap"
)

// StatusLine gives "HTTP/1.1 <code> <banner>\r\n\r\n".
func StatusLine(code int, banner string) []byte {
	if banner == "" {
		banner = DefaultBanner
	}
	bs := make([]byte, 0, len(H11_Str)+len(banner)+9)
	bs = append(bs, H11_Str...)
	bs = append(bs, ' ')
	bs = strconv.AppendInt(bs, int64(code), 10)
	bs = append(bs, ' ')
	bs = append(bs, banner...)
	bs = append(bs, "\r\n\r\n"...)
	return bs
}

// CosmeticHandshake writes a fake 101 line. If double is set, it then consumes
// one read from the client through br, waiting at most timeout, and writes a
// fake 200 line. A timeout on that read is not an error.
//
// Nothing from the client is parsed; whatever it sent is dropped in the double case.
func CosmeticHandshake(conn net.Conn, br *bufio.Reader, banner string, double bool, timeout time.Duration) error {
	if _, err := conn.Write(StatusLine(101, banner)); err != nil {
		return err
	}
	if !double {
		return nil
	}

	if err := consumeOneRead(conn, br, timeout); err != nil {
		return err
	}

	_, err := conn.Write(StatusLine(200, banner))
	return err
}

func consumeOneRead(conn net.Conn, br *bufio.Reader, timeout time.Duration) error {
	if timeout > 0 {
		conn.SetReadDeadline(time.Now().Add(timeout))
		defer conn.SetReadDeadline(time.Time{})
	}

	//Peek fills the buffer with at most one read when it is empty.
	if _, err := br.Peek(1); err != nil {
		if utils.IsTimeout(err) {
			if ce := utils.CanLogDebug("cosmetic double: client sent nothing"); ce != nil {
				ce.Write(zap.String("from", conn.RemoteAddr().String()))
			}
			return nil
		}
		if err == io.EOF {
			return err
		}
		return utils.ErrInErr{ErrDesc: "cosmetic double read", ErrDetail: err}
	}
	n := br.Buffered()
	br.Discard(n)

	if ce := utils.CanLogDebug("cosmetic double: consumed"); ce != nil {
		ce.Write(zap.Int("n", n))
	}
	return nil
}
