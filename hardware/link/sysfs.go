package link

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"

	"github.com/temoto/thermo/log2"
)

const DefaultSysfsRoot = "/sys/class/net"

// SysfsStack observes interface operstate. Association is managed by OS (wpa_supplicant, iwd).
type SysfsStack struct {
	Interface string
	Root      string
	Log       *log2.Log
}

func NewSysfsStack(iface string, log *log2.Log) *SysfsStack {
	return &SysfsStack{Interface: iface, Root: DefaultSysfsRoot, Log: log}
}

func (self *SysfsStack) Begin(ssid, password string) error {
	self.Log.Debugf("link sysfs iface=%s ssid=%s association managed by OS", self.Interface, ssid)
	return nil
}

func (self *SysfsStack) Status() Status {
	path := filepath.Join(self.Root, self.Interface, "operstate")
	b, err := ioutil.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return StatusNoInterface
		}
		self.Log.Errorf("link sysfs read %s err=%v", path, err)
		return StatusUnknown
	}
	return parseOperstate(string(b))
}

// https://www.kernel.org/doc/Documentation/networking/operstates.txt
func parseOperstate(s string) Status {
	switch strings.TrimSpace(s) {
	case "up":
		return StatusConnected
	case "down", "dormant", "lowerlayerdown":
		return StatusDisconnected
	case "notpresent":
		return StatusNoInterface
	}
	return StatusUnknown
}
