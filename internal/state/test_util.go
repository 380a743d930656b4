package state

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/temoto/thermo/hardware/power"
	"github.com/temoto/thermo/log2"
)

// NewTestContext returns initialized Global without real waits or deep sleep.
// Drivers not replaced here come from confString.
func NewTestContext(t testing.TB, confString string) (context.Context, *Global) {
	fs := NewMockFullReader(map[string]string{
		"test-inline": confString,
	})

	var log *log2.Log
	if os.Getenv("thermo_test_log_stderr") == "1" {
		log = log2.NewStderr(log2.LDebug) // useful with panics
	} else {
		log = log2.NewTest(t, log2.LDebug)
	}
	log.SetFlags(log2.LTestFlags)
	ctx, g := NewContext(log)
	g.BuildVersion = "test"
	g.Sleep = func(time.Duration) {}
	g.Hardware.Power.Sleeper = &power.MockSleeper{}
	g.MustInit(ctx, MustReadConfig(log, fs, "test-inline"))
	return ctx, g
}
