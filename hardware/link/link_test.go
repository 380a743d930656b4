package link

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/thermo/internal/types"
	"github.com/temoto/thermo/log2"
)

type sleepRecorder struct{ calls []time.Duration }

func (self *sleepRecorder) Sleep(d time.Duration) { self.calls = append(self.calls, d) }

func TestManagerConnect(t *testing.T) {
	t.Parallel()

	budget := types.RetryBudget{MaxAttempts: 6, AttemptDelay: 1000 * time.Millisecond}
	cases := []struct {
		name         string
		stack        *MockStack
		budget       types.RetryBudget
		expectErr    bool
		expectStatus int
		expectSleeps int
	}{
		{"immediate", &MockStack{Statuses: []Status{StatusConnected}}, budget, false, 1, 0},
		{"third", &MockStack{Statuses: []Status{StatusDisconnected, StatusUnknown, StatusConnected}}, budget, false, 3, 2},
		{"last-attempt", &MockStack{Statuses: []Status{0, 0, 0, 0, 0, StatusConnected}}, budget, false, 6, 5},
		{"never", &MockStack{Statuses: []Status{StatusDisconnected}}, budget, true, 6, 5},
		{"no-interface", &MockStack{Statuses: []Status{StatusNoInterface}}, budget, true, 6, 5},
		{"begin-error-then-up", &MockStack{BeginErr: fmt.Errorf("busy"), Statuses: []Status{StatusConnected}}, budget, false, 1, 0},
		{"single-attempt", &MockStack{}, types.RetryBudget{MaxAttempts: 1, AttemptDelay: time.Second}, true, 1, 0},
		{"invalid-budget", &MockStack{}, types.RetryBudget{}, true, 0, 0},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			rec := &sleepRecorder{}
			m := NewManager(c.stack, rec.Sleep, log2.NewTest(t, log2.LDebug))
			err := m.Connect(Credentials{SSID: "ap", Password: "secret"}, c.budget)
			if c.expectErr {
				require.Error(t, err)
				assert.Equal(t, types.ErrLinkFailure, errors.Cause(err))
				assert.NotContains(t, err.Error(), "secret")
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, c.expectStatus, c.stack.StatusCalls, "status checks")
			assert.Equal(t, c.expectSleeps, len(rec.calls), "sleeps")
			for _, d := range rec.calls {
				assert.Equal(t, c.budget.AttemptDelay, d)
			}
		})
	}
}

func TestSysfsStatus(t *testing.T) {
	t.Parallel()

	dir, err := ioutil.TempDir("", "thermo-link")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "wlan0"), 0755))
	write := func(s string) {
		require.NoError(t, ioutil.WriteFile(filepath.Join(dir, "wlan0", "operstate"), []byte(s+"\n"), 0644))
	}

	s := NewSysfsStack("wlan0", log2.NewTest(t, log2.LDebug))
	s.Root = dir
	require.NoError(t, s.Begin("ap", ""))
	write("dormant")
	assert.Equal(t, StatusDisconnected, s.Status())
	write("up")
	assert.Equal(t, StatusConnected, s.Status())
	write("testing")
	assert.Equal(t, StatusUnknown, s.Status())

	s.Interface = "wlan9"
	assert.Equal(t, StatusNoInterface, s.Status())
}

func TestWpaCliBegin(t *testing.T) {
	t.Parallel()

	calls := make([]string, 0, 8)
	s := NewWpaCliStack("wlan0", log2.NewTest(t, log2.LDebug))
	s.Run = func(args ...string) ([]byte, error) {
		calls = append(calls, strings.Join(args, " "))
		if args[0] == "add_network" {
			return []byte("Selected interface 'wlan0'\n3\n"), nil
		}
		return []byte("OK\n"), nil
	}
	require.NoError(t, s.Begin("home", "pass word"))
	assert.Equal(t, []string{
		"add_network",
		`set_network 3 ssid "home"`,
		`set_network 3 psk "pass word"`,
		"select_network 3",
	}, calls)

	calls = calls[:0]
	require.NoError(t, s.Begin("open", ""))
	assert.Equal(t, `set_network 3 key_mgmt NONE`, calls[2])

	s.Run = func(args ...string) ([]byte, error) {
		if args[0] == "add_network" {
			return []byte("0\n"), nil
		}
		return []byte("FAIL\n"), nil
	}
	err := s.Begin("home", "topsecret")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "topsecret")

	assert.True(t, errors.IsNotValid(s.Begin("", "")))
}
