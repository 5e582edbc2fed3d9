package camoproxy

import (
	"io"
	"net"
	"testing"
	"time"
)

func TestCloseOnPanicClosesBackend(t *testing.T) {
	client, clientPeer := net.Pipe()
	backendSide, backendPeer := net.Pipe()

	func() {
		var backend net.Conn
		defer closeOnPanic("test handler", &client, &backend)
		backend = backendSide
		panic("after dial")
	}()

	for name, peer := range map[string]net.Conn{"client": clientPeer, "backend": backendPeer} {
		peer.SetReadDeadline(time.Now().Add(time.Second))
		if _, err := peer.Read(make([]byte, 1)); err != io.EOF {
			t.Log(name, "not closed after panic", err)
			t.FailNow()
		}
	}
}

func TestCloseOnPanicSkipsNilConn(t *testing.T) {
	client, clientPeer := net.Pipe()
	defer clientPeer.Close()

	func() {
		var backend net.Conn
		defer closeOnPanic("test handler", &client, &backend)
		panic("before dial")
	}()

	clientPeer.SetReadDeadline(time.Now().Add(time.Second))
	if _, err := clientPeer.Read(make([]byte, 1)); err != io.EOF {
		t.Log("client not closed after panic", err)
		t.FailNow()
	}
}
