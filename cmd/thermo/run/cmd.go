// Unattended modes of operation.
package run

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coreos/go-systemd/daemon"
	"github.com/juju/errors"
	"github.com/temoto/thermo/cmd/thermo/subcmd"
	"github.com/temoto/thermo/internal/cycle"
	"github.com/temoto/thermo/internal/state"
)

var Mod = subcmd.Mod{Name: "run", Usage: "wake cycles until SIGTERM", Main: Main}
var OnceMod = subcmd.Mod{Name: "once", Usage: "single wake cycle, then sleep", Main: OnceMain}

func Main(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	defer g.Close()
	g.OnCycle = notifyStatus
	stopOnSignal(g)

	subcmd.SdNotify(daemon.SdNotifyReady)
	g.Log.Debugf("run init complete")
	for g.Alive.Add(1) {
		outcome, err := g.RunCycle(ctx)
		g.Alive.Done()
		if err != nil {
			g.Stop()
			return errors.Annotate(err, "run")
		}
		cycles, _ := g.Stats.Totals()
		g.Log.Debugf("run cycle=%d outcome=%s", cycles, outcome.String())
	}

	subcmd.SdNotify(daemon.SdNotifyStopping)
	g.Log.Infof("run stopping")
	g.Alive.Wait()
	return nil
}

func OnceMain(ctx context.Context, config *state.Config) error {
	g := state.GetGlobal(ctx)
	g.MustInit(ctx, config)
	defer g.Close()
	g.OnCycle = notifyStatus

	subcmd.SdNotify(daemon.SdNotifyReady)
	outcome, err := g.RunCycle(ctx)
	if err != nil {
		return errors.Annotate(err, "once")
	}
	g.Log.Infof("once outcome=%s", outcome.String())
	return nil
}

func notifyStatus(ctx context.Context, r cycle.Report) {
	g := state.GetGlobal(ctx)
	cycles, consecutive := g.Stats.Totals()
	subcmd.SdNotify(fmt.Sprintf("STATUS=last=%s cycles=%d consecutive_failures=%d",
		r.Outcome.String(), cycles, consecutive))
}

// Current cycle always completes, stop applies between cycles.
func stopOnSignal(g *state.Global) {
	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigch
		g.Log.Infof("signal=%v stopping after current cycle", s)
		g.Stop()
	}()
}
