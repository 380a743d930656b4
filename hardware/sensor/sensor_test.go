package sensor

import (
	"fmt"
	"math"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/thermo/crc"
	"github.com/temoto/thermo/internal/types"
	"github.com/temoto/thermo/log2"
)

func TestReader(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		dev       *MockDevice
		expect    types.Reading
		expectErr bool
	}{
		{"ok", &MockDevice{T: 21.5, H: 47.2}, types.Reading{Temperature: 21.5, Humidity: 47.2}, false},
		{"nan-temperature", &MockDevice{T: math.NaN(), H: 47.2}, types.Reading{}, true},
		{"nan-humidity", &MockDevice{T: 21.5, H: math.NaN()}, types.Reading{}, true},
		{"init", &MockDevice{InitErr: fmt.Errorf("no ack")}, types.Reading{}, true},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			r := NewReader(c.dev, DefaultAddress, log2.NewTest(t, log2.LDebug))
			reading, err := r.Read()
			if c.expectErr {
				require.Error(t, err)
				assert.Equal(t, types.ErrSensorFailure, errors.Cause(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.expect, reading)
		})
	}
}

func TestReaderInitOnce(t *testing.T) {
	t.Parallel()

	dev := &MockDevice{T: 1, H: 2}
	r := NewReader(dev, DefaultAddress, log2.NewTest(t, log2.LDebug))
	_, err := r.Read()
	require.NoError(t, err)
	_, err = r.Read()
	require.NoError(t, err)
	// init + 2*(temperature+humidity)
	assert.Equal(t, 5, dev.Calls())
}

type fakeBus struct {
	t       testing.TB
	status  [2]byte
	measure [6]byte
	last    []byte
	writes  [][]byte
	err     error
}

func (self *fakeBus) Tx(w, r []byte) error {
	if self.err != nil {
		return self.err
	}
	if w != nil {
		self.writes = append(self.writes, append([]byte(nil), w...))
		self.last = w
	}
	if r == nil {
		return nil
	}
	switch {
	case string(self.last) == string(cmdReadStatus):
		copy(r, self.status[:])
		r[2] = crc.Sensirion(self.status[:])
	case string(self.last) == string(cmdSingleHighRep):
		copy(r, self.measure[:])
	default:
		self.t.Errorf("unexpected read after write=%x", self.last)
	}
	return nil
}

func newMeasure(rawT, rawH uint16) [6]byte {
	var b [6]byte
	b[0], b[1] = byte(rawT>>8), byte(rawT)
	b[2] = crc.Sensirion(b[0:2])
	b[3], b[4] = byte(rawH>>8), byte(rawH)
	b[5] = crc.Sensirion(b[3:5])
	return b
}

func TestSHT3x(t *testing.T) {
	t.Parallel()

	bus := &fakeBus{t: t, status: [2]byte{0x80, 0x10}, measure: newMeasure(0x6666, 0x8000)}
	dev := NewSHT3xTx(bus.Tx, log2.NewTest(t, log2.LDebug))
	require.NoError(t, dev.Init(DefaultAddress))
	assert.InDelta(t, 25.0, dev.Temperature(), 0.01)
	assert.InDelta(t, 50.0, dev.Humidity(), 0.01)
	require.True(t, len(bus.writes) >= 2)
	assert.Equal(t, cmdSoftReset, bus.writes[0])
	assert.Equal(t, cmdReadStatus, bus.writes[1])
	assert.Equal(t, cmdSingleHighRep, bus.writes[len(bus.writes)-1])
}

func TestSHT3xErrors(t *testing.T) {
	t.Parallel()

	t.Run("absent", func(t *testing.T) {
		bus := &fakeBus{t: t, status: [2]byte{0xff, 0xff}}
		dev := NewSHT3xTx(bus.Tx, log2.NewTest(t, log2.LDebug))
		err := dev.Init(DefaultAddress)
		require.Error(t, err)
		assert.True(t, errors.IsNotFound(err))
	})
	t.Run("crc", func(t *testing.T) {
		bus := &fakeBus{t: t, measure: newMeasure(0x6666, 0x8000)}
		bus.measure[5] ^= 0xff
		dev := NewSHT3xTx(bus.Tx, log2.NewTest(t, log2.LDebug))
		require.NoError(t, dev.Init(DefaultAddress))
		assert.True(t, math.IsNaN(dev.Temperature()))
		assert.True(t, math.IsNaN(dev.Humidity()))
	})
	t.Run("bus", func(t *testing.T) {
		bus := &fakeBus{t: t}
		dev := NewSHT3xTx(bus.Tx, log2.NewTest(t, log2.LDebug))
		require.NoError(t, dev.Init(DefaultAddress))
		bus.err = fmt.Errorf("remote I/O error")
		assert.True(t, math.IsNaN(dev.Temperature()))
	})
	t.Run("no-init", func(t *testing.T) {
		dev := &SHT3x{Log: log2.NewTest(t, log2.LDebug)}
		assert.True(t, math.IsNaN(dev.Temperature()))
	})
}
