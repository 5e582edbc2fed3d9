package utils

import (
	"flag"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
)

// flag包没法一下子获取所有已经给出的参数, 只能遍历; so we extract them into a map once.
func GetGivenFlags() (m map[string]*flag.Flag) {
	m = make(map[string]*flag.Flag)
	flag.Visit(func(f *flag.Flag) {
		m[f.Name] = f
	})
	return
}

// GivenFlags holds the flags explicitly given on the command line. Given flags
// take precedence over values from the config file.
var GivenFlags map[string]*flag.Flag

// call flag.Parse() and assign given flags to GivenFlags.
func ParseFlags() {
	flag.Parse()
	GivenFlags = GetGivenFlags()
}

func IsFlagGiven(name string) bool {
	return GivenFlags[name] != nil
}

func GetSystemKillChan() <-chan os.Signal {
	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM) //os.Kill cannot be trapped
	return osSignals
}

func FileExist(path string) bool {
	_, err := os.Lstat(path)
	return !os.IsNotExist(err)
}

// GetFilePath searches fileName in the folder of the executable, then in the
// working folder. Absolute paths are returned directly. Returns "" if not found.
func GetFilePath(fileName string) string {
	if fileName == "" {
		return ""
	}
	if filepath.IsAbs(fileName) {
		return fileName
	}

	if execFile, err := os.Executable(); err == nil {
		p := filepath.Join(filepath.Dir(execFile), fileName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	if workingDir, err := os.Getwd(); err == nil {
		p := filepath.Join(workingDir, fileName)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

// 一种简单的组合. 在ws包中被用到.
type RW struct {
	io.Reader
	io.Writer
}
