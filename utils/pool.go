package utils

import "sync"

var (
	relayBufPool sync.Pool //stores []byte of length RelayBufLen

	// udp can't be longer than 64k (65535-20-8), so MaxPacketLen covers any datagram.
	packetPool sync.Pool //stores []byte of length MaxPacketLen
)

// RelayBufLen is the buffer size of each relay direction.
const RelayBufLen = 8 * 1024

const MaxPacketLen = 64 * 1024

func init() {
	relayBufPool = sync.Pool{
		New: func() any {
			return make([]byte, RelayBufLen)
		},
	}

	packetPool = sync.Pool{
		New: func() any {
			return make([]byte, MaxPacketLen)
		},
	}
}

func GetRelayBuf() []byte {
	return relayBufPool.Get().([]byte)
}

func PutRelayBuf(bs []byte) {
	if cap(bs) < RelayBufLen {
		return
	}
	relayBufPool.Put(bs[:RelayBufLen])
}

// GetPacket returns a []byte that can hold any udp datagram.
func GetPacket() []byte {
	return packetPool.Get().([]byte)
}

// 放回用 GetPacket 获取的 []byte
func PutPacket(bs []byte) {
	if cap(bs) < MaxPacketLen {
		return
	}
	packetPool.Put(bs[:MaxPacketLen])
}
