// Package cycle runs one wake cycle: read, link, connect, publish, signal, sleep.
//
// Controller contract:
// - exactly one Outcome per Run
// - never proceed past failed stage, no retries across stages
// - Sleeper.DeepSleep called exactly once with DutyCycle.SleepInterval, whatever the outcome
// - driver panic in active state becomes that state failure outcome
// - telemetry session is closed before sleep
package cycle

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/atomic_clock"
	"github.com/temoto/thermo/hardware/link"
	"github.com/temoto/thermo/helpers"
	"github.com/temoto/thermo/internal/types"
	"github.com/temoto/thermo/log2"
	"github.com/temoto/thermo/tele"
)

type SensorReader interface {
	Read() (types.Reading, error)
}

type Linker interface {
	Connect(creds link.Credentials, budget types.RetryBudget) error
}

type Telemetry interface {
	Connect(ep tele.Endpoint, budget types.RetryBudget) (*tele.Session, error)
	Publish(s *tele.Session, topic string, r types.Reading) error
}

type Signaler interface {
	Signal(o types.Outcome)
}

type Sleeper interface {
	DeepSleep(d time.Duration) error
}

// Fixed per process, loaded from config.
type Config struct {
	Credentials link.Credentials
	LinkBudget  types.RetryBudget
	Endpoint    tele.Endpoint
	TeleBudget  types.RetryBudget
	Topic       string
	Duty        types.DutyCycle
}

func (self *Config) Validate() error {
	errs := make([]error, 0, 4)
	if err := self.LinkBudget.Validate(); err != nil {
		errs = append(errs, errors.Annotate(err, "link"))
	}
	if err := self.TeleBudget.Validate(); err != nil {
		errs = append(errs, errors.Annotate(err, "tele"))
	}
	if err := self.Duty.Validate(); err != nil {
		errs = append(errs, err)
	}
	if self.Topic == "" {
		errs = append(errs, errors.NotValidf("tele topic=empty"))
	}
	return helpers.FoldErrors(errs)
}

// Fresh set of drivers for one cycle.
type Components struct {
	Sensor    SensorReader
	Link      Linker
	Tele      Telemetry
	Indicator Signaler
	Sleeper   Sleeper
}

// Report of finished cycle, passed to OnDone before sleep.
type Report struct {
	Outcome types.Outcome
	Reading types.Reading
	Err     error
	Active  time.Duration
}

type Controller struct {
	config Config
	c      Components
	log    *log2.Log

	// optional hooks
	OnState func(ctx context.Context, s types.State)
	OnDone  func(ctx context.Context, r Report)
}

func New(config Config, c Components, log *log2.Log) (*Controller, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.Annotate(err, "cycle config")
	}
	if c.Sensor == nil || c.Link == nil || c.Tele == nil || c.Indicator == nil || c.Sleeper == nil {
		panic(fmt.Sprintf("code error cycle.New components=%#v", c))
	}
	return &Controller{config: config, c: c, log: log}, nil
}

func (self *Controller) Run(ctx context.Context) types.Outcome {
	start := atomic_clock.Now()
	var session *tele.Session
	var reading types.Reading
	outcome, err := self.active(ctx, &session, &reading)
	self.call(types.StateSignaling, func() error {
		session.Close()
		return nil
	})
	if err != nil {
		self.log.Errorf("cycle outcome=%s err=%v", outcome.String(), err)
	} else {
		self.log.Infof("cycle outcome=%s reading=%s", outcome.String(), reading.String())
	}

	self.enter(ctx, types.StateSignaling)
	self.call(types.StateSignaling, func() error {
		self.c.Indicator.Signal(outcome)
		return nil
	})

	active := atomic_clock.Now().Sub(start)
	if self.OnDone != nil {
		self.call(types.StateSignaling, func() error {
			self.OnDone(ctx, Report{Outcome: outcome, Reading: reading, Err: err, Active: active})
			return nil
		})
	}

	self.enter(ctx, types.StateSleeping)
	self.log.Debugf("cycle active=%v sleep=%v", active, self.config.Duty.SleepInterval)
	if err := self.call(types.StateSleeping, func() error {
		return self.c.Sleeper.DeepSleep(self.config.Duty.SleepInterval)
	}); err != nil {
		self.log.Errorf("cycle sleep err=%v", err)
	}
	return outcome
}

func (self *Controller) active(ctx context.Context, session **tele.Session, reading *types.Reading) (types.Outcome, error) {
	steps := []struct {
		state types.State
		fun   func() error
	}{
		{types.StateReadingSensor, func() (err error) {
			*reading, err = self.c.Sensor.Read()
			if err == nil && !reading.Valid() {
				err = errors.Annotatef(types.ErrSensorFailure, "reading=%s", reading.String())
			}
			return err
		}},
		{types.StateLinking, func() error {
			return self.c.Link.Connect(self.config.Credentials, self.config.LinkBudget)
		}},
		{types.StateConnectingTelemetry, func() (err error) {
			*session, err = self.c.Tele.Connect(self.config.Endpoint, self.config.TeleBudget)
			return err
		}},
		{types.StatePublishing, func() error {
			return self.c.Tele.Publish(*session, self.config.Topic, *reading)
		}},
	}
	for _, step := range steps {
		self.enter(ctx, step.state)
		if err := self.call(step.state, step.fun); err != nil {
			return types.OutcomeOf(err, step.state.FailureOutcome()), err
		}
	}
	return types.OutcomeSuccess, nil
}

func (self *Controller) enter(ctx context.Context, s types.State) {
	self.log.Debugf("cycle state=%s", s.String())
	if self.OnState != nil {
		self.OnState(ctx, s)
	}
}

// call converts driver panic into error of state.
func (self *Controller) call(s types.State, fun func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Annotatef(failureError(s), "state=%s panic: %v", s.String(), r)
			self.log.Errorf("cycle %v", err)
		}
	}()
	return fun()
}

func failureError(s types.State) error {
	switch s.FailureOutcome() {
	case types.OutcomeSensorFailure:
		return types.ErrSensorFailure
	case types.OutcomeLinkFailure:
		return types.ErrLinkFailure
	case types.OutcomeConnectFailure:
		return types.ErrConnectFailure
	case types.OutcomePublishFailure:
		return types.ErrPublishFailure
	}
	return errors.Errorf("state=%s failed", s.String())
}
