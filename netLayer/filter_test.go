package netLayer

import (
	"errors"
	"net"
	"testing"
	"time"
)

func TestSourceFilter(t *testing.T) {
	sf, err := NewSourceFilter([]string{"10.0.0.0/8", "2001:db8::1"}, []string{"10.1.0.0/16"})
	if err != nil {
		t.Log(err)
		t.FailNow()
	}

	cases := []struct {
		ip   string
		want bool
	}{
		{"10.2.3.4", true},
		{"10.1.3.4", false},
		{"192.168.1.1", false},
		{"2001:db8::1", true},
		{"2001:db8::2", false},
	}
	for _, c := range cases {
		addr := &net.TCPAddr{IP: net.ParseIP(c.ip), Port: 1234}
		if got := sf.Allowed(addr); got != c.want {
			t.Log(c.ip, "got", got, "want", c.want)
			t.FailNow()
		}
	}
}

func TestSourceFilterEmpty(t *testing.T) {
	sf, err := NewSourceFilter(nil, nil)
	if err != nil || sf != nil {
		t.Log("empty lists should give a nil filter", sf, err)
		t.FailNow()
	}
	if !sf.Allowed(&net.TCPAddr{IP: net.ParseIP("1.2.3.4")}) {
		t.Log("nil filter must allow")
		t.FailNow()
	}

	denyOnly, _ := NewSourceFilter(nil, []string{"1.2.3.4"})
	if denyOnly.Allowed(&net.TCPAddr{IP: net.ParseIP("1.2.3.4")}) {
		t.FailNow()
	}
	if !denyOnly.Allowed(&net.TCPAddr{IP: net.ParseIP("1.2.3.5")}) {
		t.FailNow()
	}

	if _, err := NewSourceFilter([]string{"not-an-ip"}, nil); err == nil {
		t.Log("bad cidr accepted")
		t.FailNow()
	}
}

func TestDialBackendUnreachable(t *testing.T) {
	port := RandPortStr(true, false)
	_, err := DialBackend("127.0.0.1:"+port, time.Second, nil)
	if err == nil {
		t.Log("dial to a closed port succeeded")
		t.FailNow()
	}
	if !errors.Is(err, ErrBackendUnreachable) {
		t.Log("wrong error", err)
		t.FailNow()
	}
}

func TestDialBackendTimeout(t *testing.T) {
	//unroutable, the dial either fails at once or hits the timeout
	start := time.Now()
	_, err := DialBackend("10.255.255.1:9", time.Millisecond*200, nil)
	if !errors.Is(err, ErrBackendUnreachable) {
		t.Log("want ErrBackendUnreachable, got", err)
		t.FailNow()
	}
	if d := time.Since(start); d > time.Second*2 {
		t.Log("dial timeout not applied", d)
		t.FailNow()
	}
}
