package udpgw

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/e1732a364fed/camoproxy/utils"
	"go.uber.org/zap"
)

type State int

const (
	AwaitFrameHeader State = iota
	FrameComplete
	AwaitUdpReply
	FrameSent
	Closed
)

func (s State) String() string {
	switch s {
	case AwaitFrameHeader:
		return "await_frame_header"
	case FrameComplete:
		return "frame_complete"
	case AwaitUdpReply:
		return "await_udp_reply"
	case FrameSent:
		return "frame_sent"
	}
	return "closed"
}

// ConnectionTable maps a connId to its last destination. Entries are
// overwritten on change and live as long as the session.
type ConnectionTable map[uint16]*net.UDPAddr

// SessionStats sums up one session.
type SessionStats struct {
	Frames    int64 //frames sent over udp
	Replies   int64 //response frames written back
	Dropped   int64 //too short, malformed, timed out, or udp error
	ConnIDs   int
	LastError error //the error that closed the session, nil on EOF
}

type session struct {
	conf Conf

	tcp net.Conn
	udp *net.UDPConn

	table   ConnectionTable
	state   State
	pending []byte

	stats SessionStats
}

// Serve runs one session on tcp until tcp reaches EOF or fails. Both tcp and
// the session's udp socket are closed when it returns.
func Serve(tcp net.Conn, conf Conf) (SessionStats, error) {
	defer tcp.Close()

	udp, err := net.ListenUDP("udp", nil)
	if err != nil {
		return SessionStats{}, err
	}
	defer udp.Close()

	//不设置缓存的话，会导致发送过快 而导致丢包
	udp.SetReadBuffer(utils.MaxPacketLen)
	udp.SetWriteBuffer(utils.MaxPacketLen)

	s := &session{
		conf:  conf,
		tcp:   tcp,
		udp:   udp,
		table: make(ConnectionTable),
	}
	s.loop()

	s.stats.ConnIDs = len(s.table)

	if ce := utils.CanLogDebug("udpgw session closed"); ce != nil {
		ce.Write(
			zap.String("from", tcp.RemoteAddr().String()),
			zap.Int64("frames", s.stats.Frames),
			zap.Int64("replies", s.stats.Replies),
			zap.Int64("dropped", s.stats.Dropped),
			zap.Error(s.stats.LastError),
		)
	}
	return s.stats, nil
}

func (s *session) loop() {
	readBuf := utils.GetPacket()
	defer utils.PutPacket(readBuf)
	replyBuf := utils.GetPacket()
	defer utils.PutPacket(replyBuf)

	for {
		s.state = AwaitFrameHeader

		n, err := s.tcp.Read(readBuf)
		if n > 0 {
			s.handleChunk(readBuf[:n], replyBuf)
		}
		if err != nil {
			s.state = Closed
			if err != io.EOF {
				s.stats.LastError = err
			}
			return
		}
	}
}

// handleChunk treats chunk as one frame candidate.
func (s *session) handleChunk(chunk, replyBuf []byte) {
	data := chunk
	if len(s.pending) > 0 {
		data = append(s.pending, chunk...)
		s.pending = nil
	}

	f, err := DecodeFrame(data)
	if err != nil {
		if s.conf.Reassemble && errors.Is(err, ErrFrameTooShort) && len(data) < utils.MaxPacketLen {
			s.pending = append([]byte(nil), data...)
			return
		}
		s.stats.Dropped++
		if ce := utils.CanLogDebug("udpgw drop frame"); ce != nil {
			ce.Write(zap.Error(err))
		}
		return
	}
	s.state = FrameComplete

	if err := s.forward(&f, replyBuf); err != nil {
		s.stats.Dropped++
		if ce := utils.CanLogDebug("udpgw frame dropped"); ce != nil {
			ce.Write(zap.Uint16("connId", f.ConnID), zap.Error(err))
		}
	}
}

// forward sends f over udp, waits for one reply and writes it back framed.
func (s *session) forward(f *Frame, replyBuf []byte) error {
	dst := s.resolve(f)
	if dst == nil {
		return utils.ErrInErr{ErrDesc: "port 0 without default port", ErrDetail: ErrFrameMalformed}
	}

	if old := s.table[f.ConnID]; old == nil || !old.IP.Equal(dst.IP) || old.Port != dst.Port {
		s.table[f.ConnID] = dst
	}

	if _, err := s.udp.WriteToUDP(f.Payload, dst); err != nil {
		return err
	}
	s.stats.Frames++
	s.state = AwaitUdpReply

	s.udp.SetReadDeadline(time.Now().Add(s.conf.replyTimeout()))
	n, _, err := s.udp.ReadFromUDP(replyBuf)
	s.udp.SetReadDeadline(time.Time{})
	if err != nil {
		if utils.IsTimeout(err) {
			return utils.ErrInErr{ErrDesc: dst.String(), ErrDetail: ErrUdpReplyTimeout}
		}
		return err
	}

	resp := Frame{
		ConnID:  f.ConnID,
		Addr:    dst.IP,
		Port:    uint16(dst.Port),
		Payload: replyBuf[:n],
	}
	if _, err := s.tcp.Write(resp.Encode()); err != nil {
		return err
	}
	s.stats.Replies++
	s.state = FrameSent
	return nil
}

func (s *session) resolve(f *Frame) *net.UDPAddr {
	port := f.Port
	if port == 0 {
		port = s.conf.defaultPort()
		if port == 0 {
			return nil
		}
	}
	ip := make(net.IP, len(f.Addr))
	copy(ip, f.Addr)
	return &net.UDPAddr{IP: ip, Port: int(port)}
}
