package tele

import "strconv"

// StateCode of transport session. Negative values are client side conditions,
// positive values are broker CONNACK refusal codes.
type StateCode int

const (
	StateConnectionTimeout StateCode = -4
	StateConnectionLost    StateCode = -3
	StateConnectFailed     StateCode = -2
	StateDisconnected      StateCode = -1
	StateConnected         StateCode = 0
	StateBadProtocol       StateCode = 1
	StateBadClientID       StateCode = 2
	StateUnavailable       StateCode = 3
	StateBadCredentials    StateCode = 4
	StateUnauthorized      StateCode = 5
)

func (self StateCode) String() string {
	switch self {
	case StateConnectionTimeout:
		return "connection_timeout"
	case StateConnectionLost:
		return "connection_lost"
	case StateConnectFailed:
		return "connect_failed"
	case StateDisconnected:
		return "disconnected"
	case StateConnected:
		return "connected"
	case StateBadProtocol:
		return "bad_protocol"
	case StateBadClientID:
		return "bad_client_id"
	case StateUnavailable:
		return "unavailable"
	case StateBadCredentials:
		return "bad_credentials"
	case StateUnauthorized:
		return "unauthorized"
	}
	return "StateCode(" + strconv.Itoa(int(self)) + ")"
}
