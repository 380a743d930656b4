// Package indicator blinks cycle outcome on a single binary output (LED).
package indicator

import (
	"time"

	"github.com/temoto/thermo/internal/types"
	"github.com/temoto/thermo/log2"
)

// Output is logical: on=true means lit, regardless of wiring polarity.
type Output interface {
	Set(on bool) error
}

type Step struct {
	On       bool
	Duration time.Duration
}

type Pattern []Step

const (
	slow     = 500 * time.Millisecond
	fastOn   = 50 * time.Millisecond
	fastOff  = 200 * time.Millisecond
	finalOff = 0
)

// "- -"
var PatternSuccess = Pattern{
	{true, slow}, {false, slow},
	{true, slow}, {false, finalOff},
}

// "- ..."
var PatternFailure = Pattern{
	{true, slow}, {false, slow},
	{true, fastOn}, {false, fastOff},
	{true, fastOn}, {false, fastOff},
	{true, fastOn}, {false, finalOff},
}

func PatternFor(o types.Outcome) Pattern {
	if o.Success() {
		return PatternSuccess
	}
	return PatternFailure
}

// Total time pattern occupies.
func (p Pattern) Duration() time.Duration {
	var d time.Duration
	for _, s := range p {
		d += s.Duration
	}
	return d
}

func (p Pattern) Pulses() int {
	n := 0
	for _, s := range p {
		if s.On {
			n++
		}
	}
	return n
}

type Indicator struct {
	log   *log2.Log
	out   Output
	sleep types.SleepFunc
}

func New(out Output, sleep types.SleepFunc, log *log2.Log) *Indicator {
	if out == nil {
		panic("code error indicator.New out=nil")
	}
	return &Indicator{out: out, sleep: sleep, log: log}
}

// Signal never fails, output errors are logged and pattern continues.
func (self *Indicator) Signal(o types.Outcome) {
	p := PatternFor(o)
	self.log.Debugf("indicator outcome=%s pulses=%d", o, p.Pulses())
	for i, step := range p {
		if err := self.out.Set(step.On); err != nil {
			self.log.Errorf("indicator step=%d on=%t err=%v", i, step.On, err)
		}
		if step.Duration > 0 {
			self.sleep(step.Duration)
		}
	}
}

// Off is used on startup, indicator must not stay lit through sleep.
func (self *Indicator) Off() {
	if err := self.out.Set(false); err != nil {
		self.log.Errorf("indicator off err=%v", err)
	}
}
