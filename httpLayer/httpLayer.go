/*
Package httpLayer 提供http层的一些方法和定义.

Here it covers the cosmetic disguise (fake HTTP status lines written before the
real payload) and reading of a raw HTTP/1 header block from a bufio.Reader without
touching any byte after the blank line.
*/
package httpLayer

import (
	"bufio"
	"bytes"
	"errors"
)

const (
	H11_Str = "HTTP/1.1"

	// MaxHeaderLen bounds a request header block we are willing to buffer.
	MaxHeaderLen = 8 * 1024

	DefaultBanner = "Switching Protocols"
)

var (
	ErrHeaderTooLong = errors.New("http header too long")
	ErrNotHTTP       = errors.New("not http request")
)

var headerEnd = []byte("\r\n\r\n")

// ReadHeaderBlock reads lines from br until an empty line and returns the whole
// block including the terminating CRLF CRLF. Bytes after the block stay in br.
// A bare LF line end is accepted.
func ReadHeaderBlock(br *bufio.Reader, max int) ([]byte, error) {
	if max <= 0 {
		max = MaxHeaderLen
	}
	var block []byte
	for {
		line, err := br.ReadSlice('\n')
		if err != nil {
			if err == bufio.ErrBufferFull {
				return nil, ErrHeaderTooLong
			}
			return nil, err
		}
		block = append(block, line...)
		if len(block) > max {
			return nil, ErrHeaderTooLong
		}
		if len(bytes.TrimRight(line, "\r\n")) == 0 {
			if len(block) == len(line) {
				//leading empty line before a request line
				return nil, ErrNotHTTP
			}
			return block, nil
		}
	}
}

// HasHeaderEnd reports whether bs contains a full header block.
func HasHeaderEnd(bs []byte) bool {
	return bytes.Contains(bs, headerEnd)
}
