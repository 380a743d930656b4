package types

// Outcome is produced exactly once per wake cycle.
type Outcome uint8

const (
	OutcomeInvalid Outcome = iota
	OutcomeSuccess
	OutcomeSensorFailure
	OutcomeLinkFailure
	OutcomeConnectFailure
	OutcomePublishFailure
)

var outcomeNames = [...]string{
	OutcomeInvalid:        "Invalid",
	OutcomeSuccess:        "Success",
	OutcomeSensorFailure:  "SensorFailure",
	OutcomeLinkFailure:    "LinkFailure",
	OutcomeConnectFailure: "ConnectFailure",
	OutcomePublishFailure: "PublishFailure",
}

// All valid outcomes in declaration order, handy for tests and stats.
var Outcomes = []Outcome{
	OutcomeSuccess,
	OutcomeSensorFailure,
	OutcomeLinkFailure,
	OutcomeConnectFailure,
	OutcomePublishFailure,
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "Outcome(?)"
}

func (o Outcome) Success() bool { return o == OutcomeSuccess }

// State of the wake cycle controller.
type State uint8

const (
	StateInvalid State = iota
	StateReadingSensor
	StateLinking
	StateConnectingTelemetry
	StatePublishing
	StateSignaling
	StateSleeping
)

var stateNames = [...]string{
	StateInvalid:             "Invalid",
	StateReadingSensor:       "ReadingSensor",
	StateLinking:             "Linking",
	StateConnectingTelemetry: "ConnectingTelemetry",
	StatePublishing:          "Publishing",
	StateSignaling:           "Signaling",
	StateSleeping:            "Sleeping",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(?)"
}

// Failure outcome of an active state. Signaling and Sleeping can not fail.
func (s State) FailureOutcome() Outcome {
	switch s {
	case StateReadingSensor:
		return OutcomeSensorFailure
	case StateLinking:
		return OutcomeLinkFailure
	case StateConnectingTelemetry:
		return OutcomeConnectFailure
	case StatePublishing:
		return OutcomePublishFailure
	}
	return OutcomeInvalid
}
