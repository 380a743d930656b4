package types

import (
	"time"

	"github.com/juju/errors"
)

// RetryBudget bounds one retry stage: fixed delay, linear attempts, no backoff.
type RetryBudget struct {
	MaxAttempts  int
	AttemptDelay time.Duration
}

func (b RetryBudget) Validate() error {
	if b.MaxAttempts < 1 {
		return errors.NotValidf("retry max_attempts=%d must be >= 1", b.MaxAttempts)
	}
	if b.AttemptDelay < 0 {
		return errors.NotValidf("retry attempt_delay=%v must be >= 0", b.AttemptDelay)
	}
	return nil
}

// Upper bound of time spent waiting between attempts.
func (b RetryBudget) WorstCase() time.Duration {
	return time.Duration(b.MaxAttempts) * b.AttemptDelay
}

// DutyCycle sleep length is the same after every cycle, whatever the outcome.
type DutyCycle struct {
	SleepInterval time.Duration
}

func (d DutyCycle) Validate() error {
	if d.SleepInterval <= 0 {
		return errors.NotValidf("wake interval=%v must be > 0", d.SleepInterval)
	}
	return nil
}

// SleepFunc blocks for full duration. Retry waits are never canceled.
type SleepFunc func(time.Duration)
