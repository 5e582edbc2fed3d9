package udpgw

import (
	"encoding/binary"
	"net"

	"github.com/e1732a364fed/camoproxy/utils"
)

// MinFrameLen is the fixed part of the minimum frame length. A frame is at
// least MinFrameLen + addrLen bytes long.
const MinFrameLen = 12

type Frame struct {
	ConnID  uint16
	Flags   uint16
	Addr    net.IP //4 or 16 bytes, as on the wire
	Port    uint16
	Payload []byte
}

func (f *Frame) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: f.Addr, Port: int(f.Port)}
}

// DecodeFrame parses bs. Payload and Addr alias bs.
//
// It returns ErrFrameTooShort when bs ends before the payload starts, and
// ErrFrameMalformed when addrLen is neither 4 nor 16.
func DecodeFrame(bs []byte) (f Frame, err error) {
	if len(bs) < 6 {
		err = utils.ErrInErr{ErrDesc: "header", ErrDetail: ErrFrameTooShort, Data: len(bs)}
		return
	}
	addrLen := int(binary.BigEndian.Uint16(bs[4:6]))
	if addrLen != net.IPv4len && addrLen != net.IPv6len {
		err = utils.ErrInErr{ErrDesc: "addrLen", ErrDetail: ErrFrameMalformed, Data: addrLen}
		return
	}
	if len(bs) < MinFrameLen+addrLen {
		err = utils.ErrInErr{ErrDesc: "body", ErrDetail: ErrFrameTooShort, Data: len(bs)}
		return
	}

	f.ConnID = binary.BigEndian.Uint16(bs[0:2])
	f.Flags = binary.BigEndian.Uint16(bs[2:4])
	f.Addr = net.IP(bs[6 : 6+addrLen])
	f.Port = binary.BigEndian.Uint16(bs[6+addrLen : 8+addrLen])
	f.Payload = bs[8+addrLen:]
	return
}

// AppendTo appends the wire form of f to dst. Addr is written with the length
// it has, so a reply keeps the addrLen of its request. An address of any other
// length than 4 or 16 is written in its 16 byte form.
func (f *Frame) AppendTo(dst []byte) []byte {
	addr := f.Addr
	if len(addr) != net.IPv4len && len(addr) != net.IPv6len {
		addr = addr.To16()
	}
	var h [6]byte
	binary.BigEndian.PutUint16(h[0:2], f.ConnID)
	binary.BigEndian.PutUint16(h[2:4], f.Flags)
	binary.BigEndian.PutUint16(h[4:6], uint16(len(addr)))
	dst = append(dst, h[:]...)
	dst = append(dst, addr...)
	dst = append(dst, byte(f.Port>>8), byte(f.Port))
	return append(dst, f.Payload...)
}

func (f *Frame) Encode() []byte {
	return f.AppendTo(make([]byte, 0, 8+net.IPv6len+len(f.Payload)))
}
