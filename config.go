package camoproxy

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/asaskevich/govalidator"
	"github.com/e1732a364fed/camoproxy/httpLayer"
	"github.com/e1732a364fed/camoproxy/netLayer"
	"github.com/e1732a364fed/camoproxy/proxy/udpgw"
	"github.com/e1732a364fed/camoproxy/utils"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

const (
	HandshakeNone            = "none"
	HandshakeCosmetic        = "cosmetic"
	HandshakeCosmeticDouble  = "cosmetic_double"
	HandshakeWebsocket       = "websocket"
	HandshakeWebsocketStrict = "websocket_strict"
)

var HandshakeModes = []string{
	HandshakeNone,
	HandshakeCosmetic,
	HandshakeCosmeticDouble,
	HandshakeWebsocket,
	HandshakeWebsocketStrict,
}

// backend keys, same as netLayer.ProtocolTag.String()
const (
	BackendSSH       = "ssh"
	BackendOpenVPN   = "openvpn"
	BackendWebsocket = "websocket"
)

var backendKeys = []string{BackendSSH, BackendOpenVPN, BackendWebsocket}

const (
	DefaultListenHost = "0.0.0.0"
	DefaultListenPort = 80
	DefaultSSH        = "127.0.0.1:22"
	DefaultOpenVPN    = "127.0.0.1:1194"
)

// AppConf 配置 程序本身 的参数, not the relay.
type AppConf struct {
	LogLevel *int    `toml:"loglevel"` //需要为指针, 否则无法判断0到底是未给出的默认值还是 显式声明的0
	LogFile  *string `toml:"logfile"`
}

// Conf is read once at startup and never modified while serving.
//
// All *_timeout values are in milliseconds, keepalive_interval is in seconds.
type Conf struct {
	App *AppConf `toml:"app"`

	ListenHost string `toml:"listen_host"`
	ListenPort int    `toml:"listen_port"`

	Status    string `toml:"status"` //banner of the cosmetic status lines
	Handshake string `toml:"handshake"`
	WsFramed  bool   `toml:"ws_framed"`
	WsPath    string `toml:"ws_path"` //only checked in websocket_strict mode

	// Backends maps "ssh", "openvpn", "websocket" to a dial address.
	Backends map[string]string `toml:"backends"`

	SniffWindow       int `toml:"sniff_window"`
	SniffTimeout      int `toml:"sniff_timeout"`
	DialTimeout       int `toml:"dial_timeout"`
	KeepAliveInterval int `toml:"keepalive_interval"`

	MuxListenPort   int            `toml:"mux_listen_port"` //0 means off
	MuxReplyTimeout int            `toml:"mux_reply_timeout"`
	MuxDefaultPorts map[string]int `toml:"mux_default_ports"`
	MuxReassemble   bool           `toml:"mux_reassemble"`

	ProxyProtocol bool `toml:"proxy_protocol"`
	BackendXver   int  `toml:"backend_xver"`
	MaxConns      int  `toml:"max_conns"`

	AllowSources []string `toml:"allow_sources"`
	DenySources  []string `toml:"deny_sources"`

	Sockopt *netLayer.Sockopt `toml:"sockopt"`
}

func LoadTomlConfStr(str string) (c Conf, err error) {
	_, err = toml.Decode(str, &c)
	return
}

func LoadTomlConfFile(fileNamePath string) (Conf, error) {
	if cf, err := os.Open(fileNamePath); err == nil {
		defer cf.Close()
		var c Conf
		_, err = toml.NewDecoder(cf).Decode(&c)
		return c, err
	} else {
		return Conf{}, utils.ErrInErr{ErrDesc: "can't open config file", ErrDetail: err, Data: fileNamePath}
	}
}

// SetDefaults fills every zero field that has a default.
func (c *Conf) SetDefaults() {
	if c.ListenHost == "" {
		c.ListenHost = DefaultListenHost
	}
	if c.ListenPort == 0 {
		c.ListenPort = DefaultListenPort
	}
	if c.Status == "" {
		c.Status = httpLayer.DefaultBanner
	}
	if c.Handshake == "" {
		c.Handshake = HandshakeCosmetic
	}
	if c.Backends == nil {
		c.Backends = make(map[string]string)
	}
	if c.Backends[BackendSSH] == "" {
		c.Backends[BackendSSH] = DefaultSSH
	}
	if c.Backends[BackendOpenVPN] == "" {
		c.Backends[BackendOpenVPN] = DefaultOpenVPN
	}
	if c.SniffWindow <= 0 {
		c.SniffWindow = netLayer.DefaultSniffWindow
	}
	if c.SniffTimeout <= 0 {
		c.SniffTimeout = int(netLayer.DefaultSniffTimeout / time.Millisecond)
	}
	if c.DialTimeout <= 0 {
		c.DialTimeout = int(netLayer.DefaultDialTimeout / time.Millisecond)
	}
	if c.MuxReplyTimeout <= 0 {
		c.MuxReplyTimeout = int(udpgw.DefaultReplyTimeout / time.Millisecond)
	}
}

// Validate checks c after SetDefaults.
func (c *Conf) Validate() error {
	if !slices.Contains(HandshakeModes, c.Handshake) {
		return utils.ErrInErr{ErrDesc: "unknown handshake mode", ErrDetail: utils.ErrWrongParameter, Data: c.Handshake}
	}
	if err := checkPort("listen_port", c.ListenPort, false); err != nil {
		return err
	}
	if err := checkPort("mux_listen_port", c.MuxListenPort, true); err != nil {
		return err
	}
	if c.MuxListenPort != 0 && c.MuxListenPort == c.ListenPort {
		return utils.ErrInErr{ErrDesc: "mux_listen_port equals listen_port", ErrDetail: utils.ErrWrongParameter, Data: c.MuxListenPort}
	}

	keys := maps.Keys(c.Backends)
	slices.Sort(keys)
	for _, k := range keys {
		if !slices.Contains(backendKeys, k) {
			return utils.ErrInErr{ErrDesc: "unknown backend", ErrDetail: utils.ErrWrongParameter, Data: k}
		}
		addr := c.Backends[k]
		if addr == "" && k != BackendSSH {
			continue
		}
		if !govalidator.IsDialString(addr) {
			return utils.ErrInErr{ErrDesc: "invalid backend address", ErrDetail: utils.ErrWrongParameter, Data: k + "=" + addr}
		}
	}

	if c.BackendXver < 0 || c.BackendXver > 2 {
		return utils.ErrInErr{ErrDesc: "backend_xver must be 0, 1 or 2", ErrDetail: utils.ErrWrongParameter, Data: c.BackendXver}
	}
	if c.WsPath != "" && !strings.HasPrefix(c.WsPath, "/") {
		return utils.ErrInErr{ErrDesc: "ws_path must start with /", ErrDetail: utils.ErrWrongParameter, Data: c.WsPath}
	}
	if c.WsFramed && c.Handshake != HandshakeWebsocket && c.Handshake != HandshakeWebsocketStrict {
		return utils.ErrInErr{ErrDesc: "ws_framed needs a websocket handshake", ErrDetail: utils.ErrWrongParameter, Data: c.Handshake}
	}
	for k, p := range c.MuxDefaultPorts {
		if err := checkPort("mux_default_ports."+k, p, false); err != nil {
			return err
		}
	}
	if _, err := netLayer.NewSourceFilter(c.AllowSources, c.DenySources); err != nil {
		return utils.ErrInErr{ErrDesc: "invalid source cidr", ErrDetail: err}
	}
	return nil
}

func checkPort(name string, p int, zeroOK bool) error {
	if (p == 0 && zeroOK) || (p > 0 && p < 65536) {
		return nil
	}
	return utils.ErrInErr{ErrDesc: "invalid " + name, ErrDetail: utils.ErrWrongParameter, Data: p}
}

func (c *Conf) ListenAddr() string {
	return netLayer.HostPort(c.ListenHost, c.ListenPort)
}

func (c *Conf) MuxListenAddr() string {
	return netLayer.HostPort(c.ListenHost, c.MuxListenPort)
}

func (c *Conf) sniffTimeout() time.Duration {
	return time.Duration(c.SniffTimeout) * time.Millisecond
}

func (c *Conf) dialTimeout() time.Duration {
	return time.Duration(c.DialTimeout) * time.Millisecond
}

func (c *Conf) keepAlive() time.Duration {
	return time.Duration(c.KeepAliveInterval) * time.Second
}

func (c *Conf) muxConf() udpgw.Conf {
	mc := udpgw.Conf{
		ReplyTimeout: time.Duration(c.MuxReplyTimeout) * time.Millisecond,
		Reassemble:   c.MuxReassemble,
	}
	if len(c.MuxDefaultPorts) > 0 {
		mc.DefaultPorts = make(map[string]uint16, len(c.MuxDefaultPorts))
		for k, p := range c.MuxDefaultPorts {
			mc.DefaultPorts[k] = uint16(p)
		}
	}
	return mc
}

// BackendsString lists the backends in key order, for logging.
func (c *Conf) BackendsString() string {
	keys := maps.Keys(c.Backends)
	slices.Sort(keys)
	var sb strings.Builder
	for i, k := range keys {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s=%s", k, c.Backends[k])
	}
	return sb.String()
}
