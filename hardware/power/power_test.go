package power

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/thermo/log2"
)

func TestDelay(t *testing.T) {
	t.Parallel()

	var slept time.Duration
	require.NoError(t, Delay{Sleep: func(d time.Duration) { slept += d }}.DeepSleep(3*time.Second))
	assert.Equal(t, 3*time.Second, slept)
}

func TestExit(t *testing.T) {
	t.Parallel()

	code := -1
	s := Exit{Log: log2.NewTest(t, log2.LDebug), Exit: func(c int) { code = c }}
	require.NoError(t, s.DeepSleep(time.Minute))
	assert.Equal(t, 0, code)
}

func TestSuspend(t *testing.T) {
	t.Parallel()

	dir, err := ioutil.TempDir("", "thermo-power")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	s := Suspend{
		Log:       log2.NewTest(t, log2.LDebug),
		RtcPath:   filepath.Join(dir, "wakealarm"),
		StatePath: filepath.Join(dir, "state"),
	}
	require.NoError(t, s.DeepSleep(300*time.Second))
	b, err := ioutil.ReadFile(s.RtcPath)
	require.NoError(t, err)
	assert.Equal(t, "+300", string(b))
	b, err = ioutil.ReadFile(s.StatePath)
	require.NoError(t, err)
	assert.Equal(t, "mem", string(b))

	s.RtcPath = filepath.Join(dir, "absent", "wakealarm")
	assert.Error(t, s.DeepSleep(time.Second))
}
