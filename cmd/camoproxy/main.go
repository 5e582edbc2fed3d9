package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"strconv"

	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/e1732a364fed/camoproxy"
	"github.com/e1732a364fed/camoproxy/netLayer"
	"github.com/e1732a364fed/camoproxy/utils"
)

var (
	configFileName string
	startMProf     bool
	showVersion    bool

	listenPort  int
	status      string
	sshPort     int
	openvpnPort int
	target      string
	muxPort     int
	mode        string
)

const (
	defaultLogFile = "camoproxy_log"
	defaultConfFn  = "camoproxy.toml"
)

func init() {
	flag.StringVar(&configFileName, "c", defaultConfFn, "config file name")
	flag.BoolVar(&startMProf, "mp", false, "memory pprof")
	flag.BoolVar(&showVersion, "v", false, "print the version string and exit")

	flag.IntVar(&listenPort, "port", camoproxy.DefaultListenPort, "listen port; a bare first argument works too")
	flag.StringVar(&status, "status", "", "banner of the cosmetic status lines")
	flag.IntVar(&sshPort, "ssh-port", 22, "port of the local ssh backend")
	flag.IntVar(&openvpnPort, "openvpn-port", 1194, "port of the local openvpn backend")
	flag.StringVar(&target, "target", "", "backend address for websocket upgrade requests, host:port")
	flag.IntVar(&muxPort, "mux-port", 0, "udpgw listen port, 0 means off")
	flag.StringVar(&mode, "mode", camoproxy.HandshakeCosmetic, "handshake mode: none, cosmetic, cosmetic_double, websocket, websocket_strict")

	flag.IntVar(&utils.LogLevel, "ll", utils.DefaultLL, "log level,0=debug, 1=info, 2=warning, 3=error, 4=fatal")
	flag.StringVar(&utils.LogOutFileName, "lf", defaultLogFile, "output file for log; If empty, no log file will be used.")
}

func main() {
	os.Exit(mainFunc())
}

func mainFunc() (result int) {
	defer func() {
		if r := recover(); r != nil {
			if ce := utils.CanLogErr("Captured panic!"); ce != nil {
				stackStr := string(debug.Stack())
				ce.Write(
					zap.Any("err:", r),
					zap.String("stacktrace", stackStr),
				)
				log.Println(stackStr)
			} else {
				log.Println("panic captured!", r, "\n", string(debug.Stack()))
			}
			result = -3
		}
	}()

	utils.ParseFlags()

	if showVersion {
		fmt.Print(versionStr())
		return 0
	}
	printVersion(os.Stdout)

	if startMProf {
		//若不使用 NoShutdownHook, 则 我们ctrl+c退出时不会产生 pprof文件
		p := profile.Start(profile.MemProfile, profile.MemProfileRate(1), profile.NoShutdownHook)
		defer p.Stop()
	}

	conf, err := loadConf()
	if err != nil {
		log.Println("can not load config:", err)
		return -1
	}

	if appConf := conf.App; appConf != nil {
		if appConf.LogFile != nil && !utils.IsFlagGiven("lf") {
			utils.LogOutFileName = *appConf.LogFile
		}
		if appConf.LogLevel != nil && !utils.IsFlagGiven("ll") {
			utils.LogLevel = *appConf.LogLevel
		}
	}

	utils.InitLog("Program started")
	defer utils.Info("Program exited")

	applyFlags(&conf)
	conf.SetDefaults()

	if err := conf.Validate(); err != nil {
		if ce := utils.CanLogErr("invalid config"); ce != nil {
			ce.Write(zap.Error(err))
		}
		return -1
	}

	closer, err := camoproxy.ListenSer(&conf)
	if err != nil {
		if ce := utils.CanLogErr("can not listen"); ce != nil {
			ce.Write(zap.Error(err))
		}
		return -1
	}

	<-utils.GetSystemKillChan()

	closer.Close()

	if ce := utils.CanLogInfo("totals"); ce != nil {
		ce.Write(
			zap.Uint64("up", camoproxy.AllUploadBytesSinceStart.Load()),
			zap.Uint64("down", camoproxy.AllDownloadBytesSinceStart.Load()),
			zap.Int32("active", camoproxy.ActiveConnectionCount.Load()),
		)
	}
	return 0
}

// loadConf reads the config file if there is one. A missing default config
// file is fine, the flags alone are enough.
func loadConf() (camoproxy.Conf, error) {
	fpath := utils.GetFilePath(configFileName)
	if fpath == "" || !utils.FileExist(fpath) {
		if utils.IsFlagGiven("c") {
			return camoproxy.Conf{}, fmt.Errorf("-c provided but %q doesn't exist", configFileName)
		}
		log.Printf("No -c provided and default %q doesn't exist, using flags only", defaultConfFn)
		return camoproxy.Conf{}, nil
	}
	return camoproxy.LoadTomlConfFile(fpath)
}

// applyFlags writes explicitly given flags into conf. Flags that were not given
// only fill fields the config file left empty.
func applyFlags(conf *camoproxy.Conf) {
	if conf.Backends == nil {
		conf.Backends = make(map[string]string)
	}

	if !utils.IsFlagGiven("port") && flag.NArg() > 0 {
		if p, err := strconv.Atoi(flag.Arg(0)); err == nil {
			listenPort = p
			utils.GivenFlags["port"] = flag.Lookup("port")
		}
	}

	if utils.IsFlagGiven("port") || conf.ListenPort == 0 {
		conf.ListenPort = listenPort
	}
	if utils.IsFlagGiven("status") || conf.Status == "" {
		conf.Status = status
	}
	if utils.IsFlagGiven("mode") || conf.Handshake == "" {
		conf.Handshake = mode
	}
	if utils.IsFlagGiven("ssh-port") || conf.Backends[camoproxy.BackendSSH] == "" {
		conf.Backends[camoproxy.BackendSSH] = netLayer.HostPort("", sshPort)
	}
	if utils.IsFlagGiven("openvpn-port") || conf.Backends[camoproxy.BackendOpenVPN] == "" {
		conf.Backends[camoproxy.BackendOpenVPN] = netLayer.HostPort("", openvpnPort)
	}
	if utils.IsFlagGiven("target") {
		conf.Backends[camoproxy.BackendWebsocket] = target
	}
	if utils.IsFlagGiven("mux-port") {
		conf.MuxListenPort = muxPort
	}
}
