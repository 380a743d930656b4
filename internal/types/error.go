package types

import (
	"fmt"

	"github.com/juju/errors"
)

// Terminal for cycle, never fatal for process.
var (
	ErrSensorFailure  = fmt.Errorf("sensor failure")
	ErrLinkFailure    = fmt.Errorf("link failure")
	ErrConnectFailure = fmt.Errorf("connect failure")
	ErrPublishFailure = fmt.Errorf("publish failure")
)

// OutcomeOf maps error (possibly annotated) to cycle outcome.
// Unknown errors map to fallback.
func OutcomeOf(err error, fallback Outcome) Outcome {
	switch errors.Cause(err) {
	case nil:
		return OutcomeSuccess
	case ErrSensorFailure:
		return OutcomeSensorFailure
	case ErrLinkFailure:
		return OutcomeLinkFailure
	case ErrConnectFailure:
		return OutcomeConnectFailure
	case ErrPublishFailure:
		return OutcomePublishFailure
	}
	return fallback
}
