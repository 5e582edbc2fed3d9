package netLayer

import (
	"bufio"
	"bytes"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

func TestListenProxyProtocol(t *testing.T) {
	got := make(chan string, 1)
	ln, err := ListenAndAccept("127.0.0.1:0", ListenOpts{ProxyProtocol: true}, func(c net.Conn) {
		defer c.Close()
		buf := make([]byte, 5)
		io.ReadFull(c, buf)
		got <- c.RemoteAddr().String() + " " + string(buf)
	})
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	defer ln.Close()

	c, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	defer c.Close()
	c.Write([]byte("PROXY TCP4 1.2.3.4 127.0.0.1 1111 2222\r\nhello"))

	select {
	case s := <-got:
		if s != "1.2.3.4:1111 hello" {
			t.Log("got", s)
			t.FailNow()
		}
	case <-time.After(time.Second * 2):
		t.Log("timeout")
		t.FailNow()
	}
}

func TestListenFilterCloses(t *testing.T) {
	sf, _ := NewSourceFilter(nil, []string{"127.0.0.1"})
	called := make(chan struct{}, 1)
	ln, err := ListenAndAccept("127.0.0.1:0", ListenOpts{Filter: sf, MaxConns: 2}, func(c net.Conn) {
		called <- struct{}{}
		c.Close()
	})
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	defer ln.Close()

	c, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	defer c.Close()

	c.SetReadDeadline(time.Now().Add(time.Second * 2))
	if _, err := c.Read(make([]byte, 1)); err == nil {
		t.Log("denied conn was not closed")
		t.FailNow()
	}
	select {
	case <-called:
		t.Log("acceptFunc called for a denied source")
		t.FailNow()
	default:
	}
}

func TestWritePROXYprotocol(t *testing.T) {
	a, b := tcpPair(t)
	defer a.Close()
	defer b.Close()

	var buf bytes.Buffer
	if _, err := WritePROXYprotocol(1, b, &buf); err != nil {
		t.Log(err)
		t.FailNow()
	}
	line, _ := bufio.NewReader(&buf).ReadString('\n')
	if !strings.HasPrefix(line, "PROXY TCP4 127.0.0.1 127.0.0.1 ") {
		t.Log("got", line)
		t.FailNow()
	}

	if _, err := WritePROXYprotocol(3, b, &buf); err == nil {
		t.Log("xver 3 accepted")
		t.FailNow()
	}
}
