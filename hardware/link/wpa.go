package link

import (
	"bytes"
	"os/exec"
	"strconv"
	"strings"

	"github.com/juju/errors"
	"github.com/temoto/thermo/log2"
)

// RunFunc executes wpa_cli with args and returns combined output.
type RunFunc func(args ...string) ([]byte, error)

// WpaCliStack configures network via wpa_cli, status from sysfs operstate.
type WpaCliStack struct {
	SysfsStack
	Run RunFunc
}

func NewWpaCliStack(iface string, log *log2.Log) *WpaCliStack {
	s := &WpaCliStack{SysfsStack: *NewSysfsStack(iface, log)}
	s.Run = func(args ...string) ([]byte, error) {
		args = append([]string{"-i", iface}, args...)
		return exec.Command("wpa_cli", args...).CombinedOutput()
	}
	return s
}

func (self *WpaCliStack) Begin(ssid, password string) error {
	if ssid == "" {
		return errors.NotValidf("wpa_cli ssid=empty")
	}
	out, err := self.Run("add_network")
	if err != nil {
		return errors.Annotatef(err, "wpa_cli add_network output=%s", out)
	}
	id, err := strconv.Atoi(lastLine(out))
	if err != nil {
		return errors.Annotatef(err, "wpa_cli add_network parse output=%s", out)
	}
	sid := strconv.Itoa(id)
	steps := [][]string{
		{"set_network", sid, "ssid", strconv.Quote(ssid)},
	}
	if password == "" {
		steps = append(steps, []string{"set_network", sid, "key_mgmt", "NONE"})
	} else {
		steps = append(steps, []string{"set_network", sid, "psk", strconv.Quote(password)})
	}
	steps = append(steps, []string{"select_network", sid})
	for _, args := range steps {
		out, err = self.Run(args...)
		if err == nil && lastLine(out) != "OK" {
			err = errors.Errorf("unexpected output=%s", out)
		}
		if err != nil {
			// args may contain psk
			return errors.Annotatef(err, "wpa_cli %s network=%d", args[0], id)
		}
	}
	self.Log.Debugf("link wpa_cli iface=%s ssid=%s network=%d selected", self.Interface, ssid, id)
	return nil
}

func lastLine(b []byte) string {
	lines := bytes.Split(bytes.TrimSpace(b), []byte{'\n'})
	return strings.TrimSpace(string(lines[len(lines)-1]))
}
