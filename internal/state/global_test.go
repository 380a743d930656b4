package state

import (
	"context"
	"io/ioutil"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/thermo/hardware/link"
	"github.com/temoto/thermo/hardware/power"
	"github.com/temoto/thermo/internal/cycle"
	"github.com/temoto/thermo/internal/types"
	"github.com/temoto/thermo/log2"
	"github.com/temoto/thermo/tele"
	tele_gomqtt "github.com/temoto/thermo/tele/gomqtt"
	tele_paho "github.com/temoto/thermo/tele/paho"
)

func TestRunCycle(t *testing.T) {
	t.Parallel()

	dir, err := ioutil.TempDir("", "thermo-state")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	conf := testConfigBase + `
persist { root = "` + dir + `" }
hardware { sensor { driver = "mock" } link { driver = "mock" } }`
	ctx, g := NewTestContext(t, conf)
	mt := tele.NewMockTransport(true, false, false)
	g.Transport = mt
	var reports []cycle.Report
	g.OnCycle = func(_ context.Context, r cycle.Report) { reports = append(reports, r) }

	outcome, err := g.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeSuccess, outcome)
	require.Len(t, mt.Published, 1)
	assert.Equal(t, `{"temperature":21.5,"humidity":47.2}`, string(mt.Published[0].Payload))

	// mock transport script exhausted, every next connect fails
	outcome, err = g.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeConnectFailure, outcome)

	sleeper := g.Hardware.Power.Sleeper.(*power.MockSleeper)
	assert.Equal(t, []time.Duration{300 * time.Second, 300 * time.Second}, sleeper.Calls)
	require.Len(t, reports, 2)
	assert.Equal(t, uint64(2), g.Stats.Cycles)
	assert.Equal(t, uint64(1), g.Stats.ConsecutiveFailures)

	// next process start sees stored diagnostics
	_, g2 := NewTestContext(t, conf)
	assert.Equal(t, uint64(2), g2.Stats.Cycles)
	assert.Equal(t, types.OutcomeConnectFailure, g2.Stats.LastOutcome)
	assert.True(t, g2.Stats.LoggedErrors() > 0)
}

func TestRunCycleLinkFailure(t *testing.T) {
	t.Parallel()

	ctx, g := NewTestContext(t, testConfigBase+`hardware { sensor { driver = "mock" } }`)
	stack := &link.MockStack{}
	g.Hardware.Link.Stack = stack
	mt := tele.NewMockTransport(true)
	g.Transport = mt

	outcome, err := g.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.OutcomeLinkFailure, outcome)
	assert.Equal(t, 6, stack.StatusCalls)
	assert.Equal(t, 0, mt.ConnectCalls)
}

func TestNewTransport(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		conf   string
		expect interface{}
	}{
		{"paho", "", &tele_paho.Transport{}},
		{"gomqtt", `tele { transport = "gomqtt" }`, &tele_gomqtt.Transport{}},
		{"noop", `tele { transport = "noop" }`, &tele.Noop{}},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			_, g := NewTestContext(t, testConfigBase+c.conf)
			assert.IsType(t, c.expect, g.NewTransport())
		})
	}
}

func TestGetGlobal(t *testing.T) {
	t.Parallel()

	ctx, g := NewContext(log2.NewTest(t, log2.LDebug))
	assert.Equal(t, g, GetGlobal(ctx))
	assert.Panics(t, func() { GetGlobal(context.Background()) })
}
