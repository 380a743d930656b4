package stats

import (
	"sync"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/thermo/internal/types"
	"github.com/temoto/thermo/log2"
)

func TestRecord(t *testing.T) {
	t.Parallel()

	var s Stats
	s.Record(types.OutcomeSuccess, time.Second)
	s.Record(types.OutcomeConnectFailure, 2*time.Second)
	s.Record(types.OutcomeConnectFailure, 3*time.Second)
	assert.Equal(t, uint64(3), s.Cycles)
	assert.Equal(t, uint64(2), s.ConsecutiveFailures)
	assert.Equal(t, uint64(1), s.Count(types.OutcomeSuccess))
	assert.Equal(t, uint64(2), s.Count(types.OutcomeConnectFailure))
	assert.Equal(t, uint64(0), s.Count(types.OutcomeInvalid))
	s.Record(types.OutcomeSuccess, time.Second)
	assert.Equal(t, uint64(0), s.ConsecutiveFailures)
	assert.Equal(t, types.OutcomeSuccess, s.LastOutcome)
	assert.Contains(t, s.String(), "cycles=4 last=Success")

	assert.Panics(t, func() { s.Record(types.OutcomeInvalid, 0) })
}

func TestTotals(t *testing.T) {
	t.Parallel()

	const N = 100
	var s Stats
	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < N; i++ {
			s.Record(types.OutcomeLinkFailure, time.Millisecond)
		}
	}()
	for i := 0; i < N; i++ {
		cycles, consecutive := s.Totals()
		require.Equal(t, cycles, consecutive)
	}
	wg.Wait()
	cycles, consecutive := s.Totals()
	assert.Equal(t, uint64(N), cycles)
	assert.Equal(t, uint64(N), consecutive)

	s.Record(types.OutcomeSuccess, time.Millisecond)
	cycles, consecutive = s.Totals()
	assert.Equal(t, uint64(N+1), cycles)
	assert.Equal(t, uint64(0), consecutive)
}

func TestCountError(t *testing.T) {
	t.Parallel()

	var s Stats
	log := log2.NewTest(t, log2.LDebug)
	log.SetErrorFunc(s.CountError)
	log.Errorf("first")
	log.Error(errors.New("second"))
	log.Clone(log2.LError).Errorf("third")
	assert.Equal(t, uint64(3), s.LoggedErrors())
}

func TestBinary(t *testing.T) {
	t.Parallel()

	var s1 Stats
	for _, o := range types.Outcomes {
		s1.Record(o, 1500*time.Millisecond)
	}
	s1.CountError(nil)
	b, err := s1.MarshalBinary()
	require.NoError(t, err)

	var s2 Stats
	require.NoError(t, s2.UnmarshalBinary(b))
	assert.Equal(t, s1.String(), s2.String())
	assert.Equal(t, uint64(5), s2.Cycles)
	assert.Equal(t, 1500*time.Millisecond, s2.LastActive)

	cases := []struct {
		name  string
		input []byte
		check func(error) bool
	}{
		{"empty", []byte{}, errors.IsNotValid},
		{"version", []byte{0x02}, errors.IsNotSupported},
		{"truncated", b[:len(b)-1], errors.IsNotValid},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			var s Stats
			err := s.UnmarshalBinary(c.input)
			assert.True(t, c.check(err), "err=%v", err)
		})
	}
}
