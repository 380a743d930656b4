// Package stats keeps cycle diagnostics across deep sleep.
// Readings are never stored, only counters.
package stats

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/juju/errors"
	"github.com/temoto/thermo/internal/types"
)

const formatVersion = 1

type Stats struct {
	sync.Mutex
	Cycles              uint64
	Outcomes            [len(outcomeIndex)]uint64
	ConsecutiveFailures uint64
	LastOutcome         types.Outcome
	LastActive          time.Duration
	loggedErrors        uint64 // atomic
}

// slot per valid outcome, Invalid is never recorded
var outcomeIndex = [...]types.Outcome{
	types.OutcomeSuccess,
	types.OutcomeSensorFailure,
	types.OutcomeLinkFailure,
	types.OutcomeConnectFailure,
	types.OutcomePublishFailure,
}

func slot(o types.Outcome) int {
	for i, x := range outcomeIndex {
		if x == o {
			return i
		}
	}
	return -1
}

func (self *Stats) Record(o types.Outcome, active time.Duration) {
	i := slot(o)
	if i < 0 {
		panic(fmt.Sprintf("code error stats.Record outcome=%d", o))
	}
	self.Lock()
	defer self.Unlock()
	self.Cycles++
	self.Outcomes[i]++
	self.LastOutcome = o
	self.LastActive = active
	if o.Success() {
		self.ConsecutiveFailures = 0
	} else {
		self.ConsecutiveFailures++
	}
}

func (self *Stats) Count(o types.Outcome) uint64 {
	i := slot(o)
	if i < 0 {
		return 0
	}
	self.Lock()
	defer self.Unlock()
	return self.Outcomes[i]
}

// Totals is consistent pair for status reports, safe while other goroutine records.
func (self *Stats) Totals() (cycles, consecutiveFailures uint64) {
	self.Lock()
	defer self.Unlock()
	return self.Cycles, self.ConsecutiveFailures
}

// CountError fits log2.ErrorFunc.
func (self *Stats) CountError(error) { atomic.AddUint64(&self.loggedErrors, 1) }

func (self *Stats) LoggedErrors() uint64 { return atomic.LoadUint64(&self.loggedErrors) }

func (self *Stats) String() string {
	self.Lock()
	defer self.Unlock()
	var b strings.Builder
	fmt.Fprintf(&b, "cycles=%d last=%s active=%v consecutive_failures=%d errors=%d",
		self.Cycles, self.LastOutcome.String(), self.LastActive, self.ConsecutiveFailures, self.LoggedErrors())
	for i, o := range outcomeIndex {
		fmt.Fprintf(&b, " %s=%d", o.String(), self.Outcomes[i])
	}
	return b.String()
}

// Binary format: sequence of varints, first is format version.
func (self *Stats) MarshalBinary() ([]byte, error) {
	self.Lock()
	defer self.Unlock()
	buf := proto.NewBuffer(make([]byte, 0, 64))
	values := []uint64{
		formatVersion,
		self.Cycles,
		self.ConsecutiveFailures,
		uint64(self.LastOutcome),
		uint64(self.LastActive),
		self.LoggedErrors(),
		uint64(len(self.Outcomes)),
	}
	values = append(values, self.Outcomes[:]...)
	for _, v := range values {
		if err := buf.EncodeVarint(v); err != nil {
			return nil, errors.Annotate(err, "stats marshal")
		}
	}
	return buf.Bytes(), nil
}

func (self *Stats) UnmarshalBinary(b []byte) error {
	buf := proto.NewBuffer(b)
	read := func(dst []uint64) error {
		for i := range dst {
			v, err := buf.DecodeVarint()
			if err != nil {
				return errors.NotValidf("stats data len=%d (%v)", len(b), err)
			}
			dst[i] = v
		}
		return nil
	}
	header := make([]uint64, 7)
	if err := read(header[:1]); err != nil {
		return err
	}
	if header[0] != formatVersion {
		return errors.NotSupportedf("stats format version=%d", header[0])
	}
	if err := read(header[1:]); err != nil {
		return err
	}
	if header[6] > 64 {
		return errors.NotValidf("stats outcome slots=%d", header[6])
	}
	counters := make([]uint64, header[6])
	if err := read(counters); err != nil {
		return err
	}

	self.Lock()
	defer self.Unlock()
	self.Cycles = header[1]
	self.ConsecutiveFailures = header[2]
	self.LastOutcome = types.Outcome(header[3])
	self.LastActive = time.Duration(header[4])
	atomic.StoreUint64(&self.loggedErrors, header[5])
	self.Outcomes = [len(outcomeIndex)]uint64{}
	copy(self.Outcomes[:], counters)
	return nil
}
