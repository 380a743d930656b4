// Package power puts device into low power state between wake cycles.
package power

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/thermo/log2"
	"golang.org/x/sys/unix"
)

// Sleeper halts execution for duration. Nothing in process memory is expected to survive.
type Sleeper interface {
	DeepSleep(d time.Duration) error
}

const (
	DefaultRtcPath   = "/sys/class/rtc/rtc0/wakealarm"
	DefaultStatePath = "/sys/power/state"
)

// Delay simply blocks, useful on development hosts.
type Delay struct {
	Sleep func(time.Duration)
}

func (self Delay) DeepSleep(d time.Duration) error {
	sleep := self.Sleep
	if sleep == nil {
		sleep = time.Sleep
	}
	sleep(d)
	return nil
}

// Exit terminates process, external scheduler (systemd timer) starts next wake.
type Exit struct {
	Log  *log2.Log
	Exit func(code int)
}

func (self Exit) DeepSleep(d time.Duration) error {
	self.Log.Infof("power exit, next wake expected in %v", d)
	exit := self.Exit
	if exit == nil {
		exit = os.Exit
	}
	exit(0)
	return nil
}

// Suspend arms RTC wake alarm and suspends to RAM. Write to state blocks until resume.
type Suspend struct {
	Log       *log2.Log
	RtcPath   string
	StatePath string
	State     string // "mem" by default
}

func (self Suspend) DeepSleep(d time.Duration) error {
	rtcPath := defaultString(self.RtcPath, DefaultRtcPath)
	statePath := defaultString(self.StatePath, DefaultStatePath)
	sec := int64(d / time.Second)
	if sec < 1 {
		sec = 1
	}
	// kernel refuses new alarm while previous is armed
	if err := writeFile(rtcPath, "0"); err != nil {
		return errors.Annotate(err, "rtc clear")
	}
	if err := writeFile(rtcPath, "+"+strconv.FormatInt(sec, 10)); err != nil {
		return errors.Annotate(err, "rtc arm")
	}
	unix.Sync()
	self.Log.Debugf("power suspend state=%s wake=+%ds", defaultString(self.State, "mem"), sec)
	if err := writeFile(statePath, defaultString(self.State, "mem")); err != nil {
		return errors.Annotate(err, "suspend")
	}
	return nil
}

func writeFile(path, s string) error {
	return ioutil.WriteFile(filepath.Clean(path), []byte(s), 0644)
}

func defaultString(main, def string) string {
	if main == "" {
		return def
	}
	return main
}
