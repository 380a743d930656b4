// Package state owns process wide configuration, hardware handles and diagnostics.
// Cycle components are built fresh for every wake from these.
package state

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/alive/v2"
	"github.com/temoto/thermo/hardware/indicator"
	"github.com/temoto/thermo/hardware/link"
	"github.com/temoto/thermo/hardware/sensor"
	"github.com/temoto/thermo/internal/cycle"
	"github.com/temoto/thermo/internal/stats"
	"github.com/temoto/thermo/internal/types"
	"github.com/temoto/thermo/log2"
	"github.com/temoto/thermo/state/persist"
	"github.com/temoto/thermo/tele"
	tele_config "github.com/temoto/thermo/tele/config"
	tele_gomqtt "github.com/temoto/thermo/tele/gomqtt"
	tele_paho "github.com/temoto/thermo/tele/paho"
)

type Global struct {
	Alive        *alive.Alive
	BuildVersion string
	Config       *Config
	Hardware     hardware // hardware.go
	Log          *log2.Log
	Stats        *stats.Stats

	// Retry waits inside cycle. Never interrupted.
	Sleep types.SleepFunc
	// Transport for every cycle when set, testing mode.
	Transport tele.Transport
	// Called after each cycle before sleep.
	OnCycle func(ctx context.Context, r cycle.Report)

	exit    func(code int)
	persist persist.Persist

	_copy_guard sync.Mutex //nolint:unused
}

const ContextKey = "run/state-global"

func NewContext(log *log2.Log) (context.Context, *Global) {
	if log == nil {
		panic("code error NewContext() log=nil")
	}

	g := &Global{
		Alive: alive.NewAlive(),
		Log:   log,
		Sleep: time.Sleep,
		Stats: &stats.Stats{},
		exit:  os.Exit,
	}
	ctx := context.Background()
	ctx = context.WithValue(ctx, log2.ContextKey, log)
	ctx = context.WithValue(ctx, ContextKey, g)
	return ctx, g
}

func GetGlobal(ctx context.Context) *Global {
	v := ctx.Value(ContextKey)
	if v == nil {
		panic(fmt.Sprintf("context['%s'] is nil", ContextKey))
	}
	if g, ok := v.(*Global); ok {
		return g
	}
	panic(fmt.Sprintf("context['%s'] expected type *Global actual=%#v", ContextKey, v))
}

// If `Init` fails, consider `Global` is in broken state.
func (g *Global) Init(ctx context.Context, cfg *Config) error {
	g.Config = cfg
	g.Log.Infof("build version=%s device=%s", g.BuildVersion, cfg.DeviceID)
	if cfg.LogDebug {
		g.Log.SetLevel(log2.LDebug)
	}
	g.Log.SetErrorFunc(g.Stats.CountError)

	enabled := cfg.Persist.Root != ""
	if !enabled {
		g.Log.Infof("config: persist.root=empty, diagnostics kept in memory only")
	}
	if err := g.persist.Init("stats", g.Stats, cfg.Persist.Root, enabled, g.Log); err != nil {
		return errors.Annotate(err, "persist init")
	}
	// corrupt diagnostics must not stop reporting
	if err := g.persist.Load(); err != nil {
		g.Log.Errorf("stats load err=%v", errors.ErrorStack(err))
	}
	g.Log.Debugf("stats %s", g.Stats.String())

	if out, err := g.IndicatorOutput(); err != nil {
		g.Log.Errorf("indicator err=%v", err)
	} else {
		g.newIndicator(out).Off()
	}
	return nil
}

func (g *Global) MustInit(ctx context.Context, cfg *Config) {
	err := g.Init(ctx, cfg)
	if err != nil {
		g.Log.Fatal(errors.ErrorStack(err))
	}
}

func (g *Global) Error(err error, args ...interface{}) {
	if err != nil {
		if len(args) != 0 {
			msg := args[0].(string)
			args = args[1:]
			err = errors.Annotatef(err, msg, args...)
		}
		g.Log.Error(err)
	}
}

// NewTransport returns transport selected by config. Fresh instance per cycle.
func (g *Global) NewTransport() tele.Transport {
	if g.Transport != nil { // testing mode
		return g.Transport
	}
	cfg := &g.Config.Tele
	log := g.Log
	if cfg.LogDebug {
		log = g.Log.Clone(log2.LDebug)
	}
	timeout := time.Duration(cfg.NetworkTimeoutSec) * time.Second
	switch cfg.Transport {
	case tele_config.TransportGomqtt:
		return tele_gomqtt.New(tele_gomqtt.Options{
			NetworkTimeout: timeout,
			KeepaliveSec:   uint16(cfg.KeepaliveSec),
			Qos:            uint8(cfg.Qos),
			Log:            log,
		})
	case tele_config.TransportNoop:
		return &tele.Noop{Log: log}
	default:
		return tele_paho.New(tele_paho.Options{
			NetworkTimeout: timeout,
			KeepaliveSec:   cfg.KeepaliveSec,
			Quiesce:        time.Duration(cfg.QuiesceMs) * time.Millisecond,
			Qos:            byte(cfg.Qos),
			Log:            log,
			LogDebug:       cfg.LogDebug,
		})
	}
}

// Components builds fresh cycle drivers over process hardware handles.
// Hardware errors which belong to cycle outcome are not returned here.
func (g *Global) Components() (cycle.Components, error) {
	var c cycle.Components
	dev, err := g.SensorDevice()
	if err != nil {
		return c, errors.Annotate(err, "sensor")
	}
	stack, err := g.LinkStack()
	if err != nil {
		return c, errors.Annotate(err, "link")
	}
	sleeper, err := g.Sleeper()
	if err != nil {
		return c, errors.Annotate(err, "power")
	}
	out, err := g.IndicatorOutput()
	if err != nil {
		// indicator never fails cycle
		g.Log.Errorf("indicator unavailable err=%v", err)
		out = &indicator.MockOutput{}
	}

	c = cycle.Components{
		Sensor:    sensor.NewReader(dev, uint16(g.Config.Hardware.Sensor.Address), g.Log),
		Link:      link.NewManager(stack, g.Sleep, g.Log),
		Tele:      tele.NewClient(g.NewTransport(), g.Sleep, g.Log),
		Indicator: g.newIndicator(out),
		Sleeper:   sleeper,
	}
	return c, nil
}

func (g *Global) NewCycle() (*cycle.Controller, error) {
	c, err := g.Components()
	if err != nil {
		return nil, err
	}
	ctl, err := cycle.New(g.Config.CycleConfig(), c, g.Log)
	if err != nil {
		return nil, err
	}
	ctl.OnDone = g.onCycleDone
	return ctl, nil
}

func (g *Global) RunCycle(ctx context.Context) (types.Outcome, error) {
	ctl, err := g.NewCycle()
	if err != nil {
		return types.OutcomeInvalid, errors.Annotate(err, "cycle")
	}
	return ctl.Run(ctx), nil
}

func (g *Global) onCycleDone(ctx context.Context, r cycle.Report) {
	g.Stats.Record(r.Outcome, r.Active)
	if err := g.persist.Store(); err != nil {
		g.Log.Errorf("stats store err=%v", err)
	}
	if g.OnCycle != nil {
		g.OnCycle(ctx, r)
	}
}

func (g *Global) newIndicator(out indicator.Output) *indicator.Indicator {
	sleep := types.SleepFunc(time.Sleep)
	if m, ok := out.(*indicator.MockOutput); ok {
		sleep = m.Sleep
	}
	return indicator.New(out, sleep, g.Log)
}

func (g *Global) Stop() {
	g.Alive.Stop()
}

// Close releases hardware. Call after last cycle.
func (g *Global) Close() {
	g.closeHardware()
}
