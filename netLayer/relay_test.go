package netLayer

import (
	"bytes"
	"errors"
	"io"
	"math/rand"
	"net"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

// echo copies everything it reads back until EOF.
func echo(c net.Conn) {
	io.Copy(c, c)
	c.Close()
}

func TestRelayBothDirections(t *testing.T) {
	userSide, clientSide := tcpPair(t)
	backendSide, backendPeer := tcpPair(t)

	go echo(backendPeer)

	statsCh := make(chan RelayStats, 1)
	go func() {
		statsCh <- Relay(clientSide, backendSide, RelayOpts{Target: "echo"})
	}()

	payload := make([]byte, 20000)
	rand.Read(payload)

	go userSide.Write(payload)

	got := make([]byte, len(payload))
	if _, err := io.ReadFull(userSide, got); err != nil {
		t.Log(err)
		t.FailNow()
	}
	if !bytes.Equal(got, payload) {
		t.Log("payload mismatch")
		t.FailNow()
	}

	userSide.Close()

	select {
	case stats := <-statsCh:
		t.Log(stats.FirstDone, stats.Uploaded, stats.Downloaded)
		if stats.Uploaded != int64(len(payload)) {
			t.Log("uploaded", stats.Uploaded)
			t.FailNow()
		}
	case <-time.After(time.Second * 3):
		t.Log("relay did not end after client close")
		t.FailNow()
	}
}

func TestRelayEOFEndsWithSilentBackend(t *testing.T) {
	userSide, clientSide := tcpPair(t)
	backendSide, backendPeer := tcpPair(t)
	defer backendPeer.Close()

	//backend never writes

	done := make(chan struct{})
	go func() {
		Relay(clientSide, backendSide, RelayOpts{})
		close(done)
	}()

	userSide.Write([]byte("bye"))
	userSide.Close()

	select {
	case <-done:
	case <-time.After(time.Second * 3):
		t.Log("relay kept waiting on the silent backend")
		t.FailNow()
	}

	//the backend sees "bye" and then the end of the conn
	backendPeer.SetReadDeadline(time.Now().Add(time.Second * 2))
	got, err := io.ReadAll(backendPeer)
	if err != nil && !errors.Is(err, syscall.ECONNRESET) {
		t.Log("backend conn not closed", err)
		t.FailNow()
	}
	if err == nil && string(got) != "bye" {
		t.Log("backend got", string(got))
		t.FailNow()
	}
}

type pingCounter struct {
	net.Conn
	n int32
}

func (p *pingCounter) Ping() error {
	atomic.AddInt32(&p.n, 1)
	return nil
}

func TestRelayKeepAlivePings(t *testing.T) {
	userSide, clientSide := tcpPair(t)
	backendSide, backendPeer := tcpPair(t)
	defer userSide.Close()

	pc := &pingCounter{Conn: clientSide}

	done := make(chan struct{})
	go func() {
		Relay(pc, backendSide, RelayOpts{KeepAlive: time.Millisecond * 50})
		close(done)
	}()

	time.Sleep(time.Millisecond * 300)

	if atomic.LoadInt32(&pc.n) == 0 {
		t.Log("idle relay sent no ping")
		t.FailNow()
	}

	backendPeer.Close()
	select {
	case <-done:
	case <-time.After(time.Second * 3):
		t.Log("relay did not end after backend close")
		t.FailNow()
	}
}
