package tele

import (
	"math"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/thermo/internal/types"
	"github.com/temoto/thermo/log2"
)

func TestPayload(t *testing.T) {
	t.Parallel()

	b, err := EncodeReading(types.Reading{Temperature: 21.5, Humidity: 47.2})
	require.NoError(t, err)
	assert.Equal(t, `{"temperature":21.5,"humidity":47.2}`, string(b))
	r, err := DecodeReading(b)
	require.NoError(t, err)
	assert.Equal(t, types.Reading{Temperature: 21.5, Humidity: 47.2}, r)

	for _, bad := range []types.Reading{
		{Temperature: math.NaN(), Humidity: 1},
		{Temperature: 1, Humidity: math.Inf(-1)},
	} {
		_, err = EncodeReading(bad)
		assert.True(t, errors.IsNotValid(err), "reading=%s err=%v", bad.String(), err)
	}
	_, err = DecodeReading([]byte(`{"temperature":`))
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	t.Parallel()

	ep := Endpoint{Host: "tele.local", Port: 1883, ClientID: "dev1", Token: "secret"}
	budget := types.RetryBudget{MaxAttempts: 6, AttemptDelay: 5 * time.Second}
	cases := []struct {
		name     string
		script   []bool
		budget   types.RetryBudget
		expectOK bool
		calls    int
		sleeps   int
	}{
		{"first", []bool{true}, budget, true, 1, 0},
		{"third", []bool{false, false, true}, budget, true, 3, 2},
		{"last", []bool{false, false, false, false, false, true}, budget, true, 6, 5},
		{"never", nil, budget, false, 6, 5},
		{"single-attempt", nil, types.RetryBudget{MaxAttempts: 1, AttemptDelay: time.Second}, false, 1, 0},
		{"invalid-budget", []bool{true}, types.RetryBudget{MaxAttempts: 0}, false, 0, 0},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			mt := NewMockTransport(c.script...)
			mt.FailState = StateUnauthorized
			var slept []time.Duration
			client := NewClient(mt, func(d time.Duration) { slept = append(slept, d) }, log2.NewTest(t, log2.LDebug))

			s, err := client.Connect(ep, c.budget)
			assert.Equal(t, c.calls, mt.ConnectCalls)
			assert.Len(t, slept, c.sleeps)
			for _, d := range slept {
				assert.Equal(t, c.budget.AttemptDelay, d)
			}
			if c.expectOK {
				require.NoError(t, err)
				require.NotNil(t, s)
				assert.Equal(t, "tele.local", mt.Host)
				assert.Equal(t, uint16(1883), mt.Port)
				s.Close()
				s.Close()
				assert.Equal(t, 1, mt.CloseCalls)
			} else {
				require.Error(t, err)
				assert.Nil(t, s)
				assert.Equal(t, types.ErrConnectFailure, errors.Cause(err))
				if c.calls > 0 {
					assert.Contains(t, err.Error(), "rc=5")
				}
			}
		})
	}
}

func TestPublish(t *testing.T) {
	t.Parallel()

	const topic = "v1/devices/me/telemetry"
	cases := []struct {
		name      string
		publishOK bool
		reading   types.Reading
		closed    bool
		expect    string
	}{
		{"ok", true, types.Reading{Temperature: 21.5, Humidity: 47.2}, false, `{"temperature":21.5,"humidity":47.2}`},
		{"rejected", false, types.Reading{Temperature: 21.5, Humidity: 47.2}, false, ""},
		{"nan", true, types.Reading{Temperature: math.NaN(), Humidity: 47.2}, false, ""},
		{"closed", true, types.Reading{Temperature: 21.5, Humidity: 47.2}, true, ""},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			mt := NewMockTransport(true)
			mt.PublishOK = c.publishOK
			client := NewClient(mt, func(time.Duration) {}, log2.NewTest(t, log2.LDebug))
			s, err := client.Connect(Endpoint{Host: "h", Port: 1}, types.RetryBudget{MaxAttempts: 1})
			require.NoError(t, err)
			if c.closed {
				s.Close()
			}

			err = client.Publish(s, topic, c.reading)
			if c.expect != "" {
				require.NoError(t, err)
				require.Len(t, mt.Published, 1)
				assert.Equal(t, topic, mt.Published[0].Topic)
				assert.Equal(t, c.expect, string(mt.Published[0].Payload))
			} else {
				assert.Equal(t, types.ErrPublishFailure, errors.Cause(err))
				assert.Len(t, mt.Published, 0)
			}
		})
	}
}

func TestNoop(t *testing.T) {
	t.Parallel()

	client := NewClient(&Noop{Log: log2.NewTest(t, log2.LDebug)}, nil, log2.NewTest(t, log2.LDebug))
	s, err := client.Connect(Endpoint{Host: "h", Port: 1}, types.RetryBudget{MaxAttempts: 1})
	require.NoError(t, err)
	assert.NoError(t, client.Publish(s, "t", types.Reading{Temperature: 1, Humidity: 2}))
	s.Close()
}

func TestStateCodeString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "connect_failed", StateConnectFailed.String())
	assert.Equal(t, "unauthorized", StateUnauthorized.String())
	assert.Equal(t, "StateCode(42)", StateCode(42).String())
}
