package state

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/thermo/hardware/indicator"
	"github.com/temoto/thermo/hardware/link"
	"github.com/temoto/thermo/hardware/power"
	"github.com/temoto/thermo/hardware/sensor"
)

// Hardware handles live for whole process. Tests may set fields before first access.
type hardware struct {
	Sensor struct {
		once
		Device sensor.Device
	}
	Indicator struct {
		once
		Output indicator.Output
	}
	Link struct {
		once
		Stack link.Stack
	}
	Power struct {
		once
		Sleeper power.Sleeper
	}
}

func (g *Global) SensorDevice() (sensor.Device, error) {
	x := &g.Hardware.Sensor // short alias
	_ = x.do(func() error {
		if x.Device != nil { // testing mode
			return nil
		}
		cfg := &g.Config.Hardware.Sensor
		switch cfg.Driver {
		case "sht3x":
			x.Device = sensor.NewSHT3x(cfg.I2CBus, g.Log)
		case "mock":
			x.Device = &sensor.MockDevice{T: 21.5, H: 47.2}
		default:
			return errors.NotValidf("config: hardware.sensor.driver=%s", cfg.Driver)
		}
		return nil
	})
	return x.Device, x.err
}

func (g *Global) IndicatorOutput() (indicator.Output, error) {
	x := &g.Hardware.Indicator // short alias
	_ = x.do(func() error {
		if x.Output != nil { // testing mode
			return nil
		}
		cfg := &g.Config.Hardware.Indicator
		switch cfg.Driver {
		case "gpio":
			out, err := indicator.OpenGpio(cfg.PinChip, cfg.Pin, cfg.ActiveLow)
			if err != nil {
				return errors.Annotatef(err, "config: hardware.indicator pin_chip=%s pin=%s", cfg.PinChip, cfg.Pin)
			}
			x.Output = out
		case "mock":
			x.Output = &indicator.MockOutput{}
		default:
			return errors.NotValidf("config: hardware.indicator.driver=%s", cfg.Driver)
		}
		return nil
	})
	return x.Output, x.err
}

func (g *Global) LinkStack() (link.Stack, error) {
	x := &g.Hardware.Link // short alias
	_ = x.do(func() error {
		if x.Stack != nil { // testing mode
			return nil
		}
		cfg := &g.Config.Hardware.Link
		switch cfg.Driver {
		case "sysfs":
			x.Stack = link.NewSysfsStack(cfg.Interface, g.Log)
		case "wpa_cli":
			x.Stack = link.NewWpaCliStack(cfg.Interface, g.Log)
		case "mock":
			x.Stack = &link.MockStack{Statuses: []link.Status{link.StatusConnected}}
		default:
			return errors.NotValidf("config: hardware.link.driver=%s", cfg.Driver)
		}
		return nil
	})
	return x.Stack, x.err
}

func (g *Global) Sleeper() (power.Sleeper, error) {
	x := &g.Hardware.Power // short alias
	_ = x.do(func() error {
		if x.Sleeper != nil { // testing mode
			return nil
		}
		cfg := &g.Config.Hardware.Power
		switch cfg.Driver {
		case "suspend":
			x.Sleeper = power.Suspend{Log: g.Log, RtcPath: cfg.Rtc}
		case "exit":
			x.Sleeper = power.Exit{Log: g.Log, Exit: g.exit}
		case "delay":
			x.Sleeper = power.Delay{Sleep: g.sleepAlive}
		default:
			return errors.NotValidf("config: hardware.power.driver=%s", cfg.Driver)
		}
		return nil
	})
	return x.Sleeper, x.err
}

// Releases hardware handles which support it.
func (g *Global) closeHardware() {
	type closer interface{ Close() error }
	for _, h := range []interface{}{g.Hardware.Sensor.Device, g.Hardware.Indicator.Output} {
		if c, ok := h.(closer); ok {
			if err := c.Close(); err != nil {
				g.Log.Errorf("hardware close err=%v", err)
			}
		}
	}
}

// sleepAlive is dev delay which ends early when process is stopping.
// Between cycles only, retry waits inside cycle always sleep full delay.
func (g *Global) sleepAlive(d time.Duration) {
	select {
	case <-time.After(d):
	case <-g.Alive.StopChan():
		g.Log.Debugf("sleep interrupted by stop")
	}
}

type once struct {
	sync.Mutex
	called uint32 // atomic bool
	err    error
}

func (o *once) done() bool {
	return atomic.LoadUint32(&o.called) == 1
}

func (o *once) do(f func() error) error {
	if o.done() { // fast path
		return o.err
	}
	o.Lock()
	defer o.Unlock()
	if o.done() {
		return o.err
	}
	o.err = f()
	atomic.StoreUint32(&o.called, 1)
	return o.err
}
