package netLayer

import (
	"bufio"
	"io"
	"net"
	"testing"
	"time"
)

// tcpPair returns the two ends of a loopback tcp conn.
func tcpPair(t *testing.T) (client, server net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	defer ln.Close()

	ch := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			ch <- nil
			return
		}
		ch <- c
	}()

	client, err = net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Log(err)
		t.FailNow()
	}
	server = <-ch
	if server == nil {
		t.Log("accept failed")
		t.FailNow()
	}
	return
}

func TestClassify(t *testing.T) {
	cases := []struct {
		in   string
		want ProtocolTag
	}{
		{"SSH-2.0-OpenSSH_8.9\r\n", SSH},
		{"GET / HTTP/1.1\r\nHost: a\r\n\r\n", WebSocketUpgrade},
		{"POST /x HTTP/1.1\r\nUPGRADE: WebSocket\r\n\r\n", WebSocketUpgrade},
		{"\x00\x0e\x38\x01\x02", OpenVPN},
		{"hello", OpenVPN},
		{"", Unknown},
	}
	for _, c := range cases {
		if got := Classify([]byte(c.in)); got != c.want {
			t.Log("Classify", c.in, "got", got, "want", c.want)
			t.FailNow()
		}
	}
}

func TestSniffDoesNotConsume(t *testing.T) {
	c, s := tcpPair(t)
	defer c.Close()
	defer s.Close()

	const hello = "SSH-2.0-OpenSSH_8.9\r\n"
	c.Write([]byte(hello))

	bc := NewBufferedConn(s, DefaultSniffWindow)
	tag := Sniff(bc.R, s, DefaultSniffWindow, time.Second)
	if tag != SSH {
		t.Log("got", tag)
		t.FailNow()
	}

	buf := make([]byte, len(hello))
	if _, err := io.ReadFull(bc, buf); err != nil {
		t.Log(err)
		t.FailNow()
	}
	if string(buf) != hello {
		t.Log("sniffed bytes were consumed", string(buf))
		t.FailNow()
	}
}

func TestSniffSplitPrefix(t *testing.T) {
	c, s := tcpPair(t)
	defer c.Close()
	defer s.Close()

	go func() {
		c.Write([]byte("SS"))
		time.Sleep(time.Millisecond * 100)
		c.Write([]byte("H-2.0-x\r\n"))
	}()

	tag := Sniff(bufio.NewReaderSize(s, DefaultSniffWindow), s, DefaultSniffWindow, time.Second)
	if tag != SSH {
		t.Log("got", tag)
		t.FailNow()
	}
}

func TestSniffIdleClient(t *testing.T) {
	c, s := tcpPair(t)
	defer c.Close()
	defer s.Close()

	br := bufio.NewReaderSize(s, DefaultSniffWindow)

	start := time.Now()
	tag := Sniff(br, s, DefaultSniffWindow, time.Millisecond*200)
	if tag != Unknown {
		t.Log("got", tag)
		t.FailNow()
	}
	if time.Since(start) > time.Second {
		t.Log("sniff did not honor its timeout")
		t.FailNow()
	}

	//the deadline is cleared and the timeout error is not sticky
	c.Write([]byte("late"))
	buf := make([]byte, 4)
	if _, err := io.ReadFull(br, buf); err != nil {
		t.Log(err)
		t.FailNow()
	}
	if string(buf) != "late" {
		t.Log("got", string(buf))
		t.FailNow()
	}
}
