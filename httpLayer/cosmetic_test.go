package httpLayer

import (
	"bufio"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

func TestStatusLine(t *testing.T) {
	if s := string(StatusLine(101, "Hi")); s != "HTTP/1.1 101 Hi\r\n\r\n" {
		t.Log("got", s)
		t.FailNow()
	}
	if s := string(StatusLine(200, "")); s != "HTTP/1.1 200 Switching Protocols\r\n\r\n" {
		t.Log("got", s)
		t.FailNow()
	}
}

func TestReadHeaderBlockKeepsPayload(t *testing.T) {
	req := "GET / HTTP/1.1\r\nHost: a\r\nUpgrade: websocket\r\n\r\n"
	br := bufio.NewReader(strings.NewReader(req + "SSH-2.0-x"))

	block, err := ReadHeaderBlock(br, 0)
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	if string(block) != req {
		t.Log("got block", string(block))
		t.FailNow()
	}
	rest, _ := io.ReadAll(br)
	if string(rest) != "SSH-2.0-x" {
		t.Log("payload lost", string(rest))
		t.FailNow()
	}
}

func TestReadHeaderBlockTooLong(t *testing.T) {
	req := "GET / HTTP/1.1\r\nX: " + strings.Repeat("a", 200) + "\r\n\r\n"
	_, err := ReadHeaderBlock(bufio.NewReader(strings.NewReader(req)), 100)
	if err != ErrHeaderTooLong {
		t.Log("got", err)
		t.FailNow()
	}
}

func TestCosmeticDouble(t *testing.T) {
	c, s := net.Pipe()
	defer c.Close()
	defer s.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- CosmeticHandshake(s, bufio.NewReader(s), "ok", true, time.Second)
	}()

	cr := bufio.NewReader(c)
	first, err := ReadHeaderBlock(cr, 0)
	if err != nil || string(first) != "HTTP/1.1 101 ok\r\n\r\n" {
		t.Log("first line", string(first), err)
		t.FailNow()
	}

	c.Write([]byte("GET /again HTTP/1.1\r\n\r\n"))

	second, err := ReadHeaderBlock(cr, 0)
	if err != nil || string(second) != "HTTP/1.1 200 ok\r\n\r\n" {
		t.Log("second line", string(second), err)
		t.FailNow()
	}
	if err := <-errCh; err != nil {
		t.Log(err)
		t.FailNow()
	}
}

func TestCosmeticDoubleIdleClient(t *testing.T) {
	c, s := net.Pipe()
	defer c.Close()
	defer s.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- CosmeticHandshake(s, bufio.NewReader(s), "ok", true, time.Millisecond*100)
	}()

	cr := bufio.NewReader(c)
	ReadHeaderBlock(cr, 0)
	second, err := ReadHeaderBlock(cr, 0)
	if err != nil || string(second) != "HTTP/1.1 200 ok\r\n\r\n" {
		t.Log("second line", string(second), err)
		t.FailNow()
	}
	if err := <-errCh; err != nil {
		t.Log("timeout should be tolerated", err)
		t.FailNow()
	}
}
