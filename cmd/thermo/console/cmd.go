// Interactive bench console, exercises each stage separately.
package console

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/c-bata/go-prompt"
	"github.com/juju/errors"
	"github.com/temoto/thermo/cmd/thermo/subcmd"
	"github.com/temoto/thermo/hardware/power"
	"github.com/temoto/thermo/helpers/cli"
	"github.com/temoto/thermo/internal/cycle"
	"github.com/temoto/thermo/internal/state"
	"github.com/temoto/thermo/internal/types"
	"github.com/temoto/thermo/log2"
)

const modName = "console"

const usage = `commands:
- read             sensor reading
- link             wireless association with configured budget
- publish          read, link, connect, publish (no signal, no sleep)
- blink [ok|fail]  indicator pattern
- cycle            full wake cycle including configured sleep
- stats            diagnostics counters
- log=yes|no       debug logging
- help`

var Mod = subcmd.Mod{Name: modName, Usage: "interactive bench console", Main: Main}

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	defer g.Close()

	g.Log.Infof(usage)
	cli.MainLoop("thermo-"+modName, newExecutor(ctx), newCompleter(), func(s os.Signal) {
		g.Log.Infof("signal=%v", s)
		g.Close()
		os.Exit(1)
	})
	return nil
}

func newCompleter() func(d prompt.Document) []prompt.Suggest {
	suggests := []prompt.Suggest{
		{Text: "read", Description: "sensor reading"},
		{Text: "link", Description: "wireless association"},
		{Text: "publish", Description: "read, link, connect, publish"},
		{Text: "blink", Description: "indicator pattern ok|fail"},
		{Text: "cycle", Description: "full wake cycle with sleep"},
		{Text: "stats", Description: "diagnostics counters"},
		{Text: "log=yes", Description: "enable debug logging"},
		{Text: "log=no", Description: "disable debug logging"},
		{Text: "help"},
	}
	return func(d prompt.Document) []prompt.Suggest {
		return prompt.FilterFuzzy(suggests, d.GetWordBeforeCursor(), true)
	}
}

func newExecutor(ctx context.Context) func(string) {
	g := state.GetGlobal(ctx)
	return func(line string) {
		if err := Exec(ctx, line); err != nil {
			g.Log.Errorf("%s", errors.ErrorStack(err))
		}
	}
}

// Exec runs one console command line.
func Exec(ctx context.Context, line string) error {
	g := state.GetGlobal(ctx)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	switch fields[0] {
	case "help":
		g.Log.Infof(usage)
		return nil

	case "log=yes":
		g.Log.SetLevel(log2.LDebug)
		return nil

	case "log=no":
		g.Log.SetLevel(log2.LInfo)
		return nil

	case "stats":
		g.Log.Infof("stats %s", g.Stats.String())
		return nil

	case "read":
		c, err := g.Components()
		if err != nil {
			return err
		}
		r, err := c.Sensor.Read()
		if err != nil {
			return err
		}
		g.Log.Infof("reading %s", r.String())
		return nil

	case "link":
		c, err := g.Components()
		if err != nil {
			return err
		}
		cc := g.Config.CycleConfig()
		tbegin := time.Now()
		err = c.Link.Connect(cc.Credentials, cc.LinkBudget)
		g.Log.Infof("link duration=%v", time.Since(tbegin))
		return err

	case "publish":
		c, err := g.Components()
		if err != nil {
			return err
		}
		// skip indicator and sleep, report outcome to console only
		c.Indicator = signalFunc(func(o types.Outcome) { g.Log.Infof("publish outcome=%s", o.String()) })
		c.Sleeper = power.Delay{Sleep: func(time.Duration) {}}
		ctl, err := cycle.New(g.Config.CycleConfig(), c, g.Log)
		if err != nil {
			return err
		}
		if o := ctl.Run(ctx); !o.Success() {
			return errors.Errorf("publish outcome=%s", o.String())
		}
		return nil

	case "blink":
		c, err := g.Components()
		if err != nil {
			return err
		}
		o := types.OutcomeSuccess
		if len(fields) > 1 {
			switch fields[1] {
			case "ok":
			case "fail":
				o = types.OutcomePublishFailure
			default:
				return errors.NotValidf("blink %s, expected ok|fail", fields[1])
			}
		}
		c.Indicator.Signal(o)
		return nil

	case "cycle":
		outcome, err := g.RunCycle(ctx)
		if err != nil {
			return err
		}
		g.Log.Infof("cycle outcome=%s", outcome.String())
		return nil
	}
	return errors.NotSupportedf("command=%s (try help)", fields[0])
}

type signalFunc func(types.Outcome)

func (f signalFunc) Signal(o types.Outcome) { f(o) }
