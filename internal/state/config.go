package state

import (
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"
	"github.com/temoto/thermo/hardware/link"
	"github.com/temoto/thermo/hardware/sensor"
	"github.com/temoto/thermo/helpers"
	"github.com/temoto/thermo/internal/cycle"
	"github.com/temoto/thermo/internal/types"
	"github.com/temoto/thermo/log2"
	"github.com/temoto/thermo/tele"
	tele_config "github.com/temoto/thermo/tele/config"
)

const (
	DefaultWakeIntervalSec    = 300
	DefaultLinkMaxAttempts    = 6
	DefaultLinkAttemptDelayMs = 1000
	DefaultTeleMaxAttempts    = 6
	DefaultTeleAttemptDelayMs = 5000
	DefaultI2CBus             = "/dev/i2c-1"
	DefaultLinkInterface      = "wlan0"
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	DeviceID        string `hcl:"device_id"`
	WakeIntervalSec int    `hcl:"wake_interval_sec"`
	LogDebug        bool   `hcl:"log_debug"`

	Hardware struct {
		Sensor struct {
			Driver  string `hcl:"driver"` // sht3x|mock
			I2CBus  string `hcl:"i2c_bus"`
			Address int    `hcl:"address"`
		} `hcl:"sensor"`
		Indicator struct {
			Driver    string `hcl:"driver"` // gpio|mock
			PinChip   string `hcl:"pin_chip"`
			Pin       string `hcl:"pin"`
			ActiveLow bool   `hcl:"active_low"`
		} `hcl:"indicator"`
		Link struct {
			Driver         string `hcl:"driver"` // sysfs|wpa_cli|mock
			Interface      string `hcl:"interface"`
			SSID           string `hcl:"ssid"`
			Password       string `hcl:"password"`
			MaxAttempts    int    `hcl:"max_attempts"`
			AttemptDelayMs int    `hcl:"attempt_delay_ms"`
		} `hcl:"link"`
		Power struct {
			Driver string `hcl:"driver"` // suspend|exit|delay
			Rtc    string `hcl:"rtc"`
		} `hcl:"power"`
	} `hcl:"hardware"`

	Persist struct {
		Root string `hcl:"root"`
	} `hcl:"persist"`
	Tele tele_config.Config `hcl:"tele"`

	_copy_guard sync.Mutex //nolint:unused
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		*errs = append(*errs, errors.Errorf("config duplicate source=%s", source.Name))
		return
	}
	log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
		}
		return
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		// content may contain secrets, only source name goes into error
		err = errors.Annotatef(err, "config unmarshal source=%s", source.Name)
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

// ReadConfig loads sources in order, later values override earlier ones.
// Result is validated, defaults applied.
func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		log.Fatal("code error [Must]ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	if len(errs) == 0 {
		errs = c.validate(errs)
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatal(errors.ErrorStack(err))
	}
	return c
}

func (c *Config) validate(errs []error) []error {
	hw := &c.Hardware
	if c.DeviceID == "" {
		errs = append(errs, errors.NotValidf("config: device_id=empty"))
	}
	if c.WakeIntervalSec == 0 {
		c.WakeIntervalSec = DefaultWakeIntervalSec
	} else if c.WakeIntervalSec < 0 {
		errs = append(errs, errors.NotValidf("config: wake_interval_sec=%d", c.WakeIntervalSec))
	}

	hw.Sensor.Driver = defaultString(hw.Sensor.Driver, "sht3x")
	hw.Sensor.I2CBus = defaultString(hw.Sensor.I2CBus, DefaultI2CBus)
	if hw.Sensor.Address == 0 {
		hw.Sensor.Address = int(sensor.DefaultAddress)
	} else if hw.Sensor.Address < 0 || hw.Sensor.Address > 0x7f {
		errs = append(errs, errors.NotValidf("config: hardware.sensor.address=%#x", hw.Sensor.Address))
	}
	errs = checkChoice(errs, "hardware.sensor.driver", hw.Sensor.Driver, "sht3x", "mock")

	hw.Indicator.Driver = defaultString(hw.Indicator.Driver, "gpio")
	errs = checkChoice(errs, "hardware.indicator.driver", hw.Indicator.Driver, "gpio", "mock")
	if hw.Indicator.Driver == "gpio" && (hw.Indicator.PinChip == "" || hw.Indicator.Pin == "") {
		errs = append(errs, errors.NotValidf("config: hardware.indicator gpio requires pin_chip and pin"))
	}

	hw.Link.Driver = defaultString(hw.Link.Driver, "sysfs")
	hw.Link.Interface = defaultString(hw.Link.Interface, DefaultLinkInterface)
	errs = checkChoice(errs, "hardware.link.driver", hw.Link.Driver, "sysfs", "wpa_cli", "mock")
	if hw.Link.Driver == "wpa_cli" && hw.Link.SSID == "" {
		errs = append(errs, errors.NotValidf("config: hardware.link.ssid=empty"))
	}
	if hw.Link.MaxAttempts == 0 {
		hw.Link.MaxAttempts = DefaultLinkMaxAttempts
	}
	if hw.Link.AttemptDelayMs == 0 {
		hw.Link.AttemptDelayMs = DefaultLinkAttemptDelayMs
	}

	hw.Power.Driver = defaultString(hw.Power.Driver, "suspend")
	errs = checkChoice(errs, "hardware.power.driver", hw.Power.Driver, "suspend", "exit", "delay")

	t := &c.Tele
	t.Transport = defaultString(t.Transport, tele_config.TransportPaho)
	errs = checkChoice(errs, "tele.transport", t.Transport, tele_config.TransportPaho, tele_config.TransportGomqtt, tele_config.TransportNoop)
	if t.Host == "" && t.Transport != tele_config.TransportNoop {
		errs = append(errs, errors.NotValidf("config: tele.host=empty"))
	}
	if t.Port == 0 {
		t.Port = tele_config.DefaultPort
	} else if t.Port < 0 || t.Port > 65535 {
		errs = append(errs, errors.NotValidf("config: tele.port=%d", t.Port))
	}
	t.Topic = defaultString(t.Topic, tele_config.DefaultTopic)
	if t.Qos < 0 || t.Qos > 1 {
		errs = append(errs, errors.NotValidf("config: tele.qos=%d supported: 0, 1", t.Qos))
	}
	if t.MaxAttempts == 0 {
		t.MaxAttempts = DefaultTeleMaxAttempts
	}
	if t.AttemptDelayMs == 0 {
		t.AttemptDelayMs = DefaultTeleAttemptDelayMs
	}

	cc := c.CycleConfig()
	if err := cc.Validate(); err != nil {
		errs = append(errs, errors.Annotate(err, "config"))
	}
	return errs
}

func (c *Config) LinkBudget() types.RetryBudget {
	return types.RetryBudget{
		MaxAttempts:  c.Hardware.Link.MaxAttempts,
		AttemptDelay: helpers.IntMillisecondDefault(c.Hardware.Link.AttemptDelayMs, DefaultLinkAttemptDelayMs*time.Millisecond),
	}
}

func (c *Config) TeleBudget() types.RetryBudget {
	return types.RetryBudget{
		MaxAttempts:  c.Tele.MaxAttempts,
		AttemptDelay: helpers.IntMillisecondDefault(c.Tele.AttemptDelayMs, DefaultTeleAttemptDelayMs*time.Millisecond),
	}
}

func (c *Config) Duty() types.DutyCycle {
	return types.DutyCycle{SleepInterval: time.Duration(c.WakeIntervalSec) * time.Second}
}

func (c *Config) CycleConfig() cycle.Config {
	return cycle.Config{
		Credentials: link.Credentials{SSID: c.Hardware.Link.SSID, Password: c.Hardware.Link.Password},
		LinkBudget:  c.LinkBudget(),
		Endpoint: tele.Endpoint{
			Host:     c.Tele.Host,
			Port:     uint16(c.Tele.Port),
			ClientID: c.DeviceID,
			Token:    c.Tele.Token,
			Password: c.Tele.Password,
		},
		TeleBudget: c.TeleBudget(),
		Topic:      c.Tele.Topic,
		Duty:       c.Duty(),
	}
}

func checkChoice(errs []error, key, value string, valid ...string) []error {
	for _, v := range valid {
		if value == v {
			return errs
		}
	}
	return append(errs, errors.NotValidf("config: %s=%s valid: %s", key, value, strings.Join(valid, ", ")))
}

func defaultString(main, def string) string {
	if main == "" {
		return def
	}
	return main
}
