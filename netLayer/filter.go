package netLayer

import (
	"net"
	"strings"

	"github.com/yl2chen/cidranger"
)

// SourceFilter decides by client ip whether a conn is served.
// Deny wins over allow; an empty allow list allows everyone.
type SourceFilter struct {
	allow cidranger.Ranger
	deny  cidranger.Ranger

	hasAllow, hasDeny bool
}

// NewSourceFilter returns nil, nil if both lists are empty.
func NewSourceFilter(allow, deny []string) (*SourceFilter, error) {
	if len(allow) == 0 && len(deny) == 0 {
		return nil, nil
	}
	sf := &SourceFilter{
		allow:    cidranger.NewPCTrieRanger(),
		deny:     cidranger.NewPCTrieRanger(),
		hasAllow: len(allow) > 0,
		hasDeny:  len(deny) > 0,
	}
	if err := insertCIDRs(sf.allow, allow); err != nil {
		return nil, err
	}
	if err := insertCIDRs(sf.deny, deny); err != nil {
		return nil, err
	}
	return sf, nil
}

// single ips are accepted as /32 or /128
func insertCIDRs(r cidranger.Ranger, list []string) error {
	for _, s := range list {
		s = strings.TrimSpace(s)
		if !strings.Contains(s, "/") {
			if strings.Contains(s, ":") {
				s += "/128"
			} else {
				s += "/32"
			}
		}
		_, n, err := net.ParseCIDR(s)
		if err != nil {
			return err
		}
		if err := r.Insert(cidranger.NewBasicRangerEntry(*n)); err != nil {
			return err
		}
	}
	return nil
}

func (sf *SourceFilter) Allowed(addr net.Addr) bool {
	if sf == nil {
		return true
	}
	ip := addrIP(addr)
	if ip == nil {
		return !sf.hasAllow
	}
	if sf.hasDeny {
		if in, _ := sf.deny.Contains(ip); in {
			return false
		}
	}
	if sf.hasAllow {
		in, _ := sf.allow.Contains(ip)
		return in
	}
	return true
}

func addrIP(addr net.Addr) net.IP {
	switch a := addr.(type) {
	case *net.TCPAddr:
		return a.IP
	case *net.UDPAddr:
		return a.IP
	}
	if addr == nil {
		return nil
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return nil
	}
	return net.ParseIP(host)
}
