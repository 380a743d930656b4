package tele

// Transport contract:
// - SetEndpoint only stores address, no network IO
// - Connect blocks at most transport network timeout, result is final for this attempt
// - Publish is single attempt, true means handed to network (QoS 0) or acknowledged (QoS 1)
// - State is valid after any call, used only for diagnostics
// - Close is idempotent and waits bounded time for outgoing data
type Transport interface {
	SetEndpoint(host string, port uint16)
	Connect(clientID, token, password string) bool
	Publish(topic string, payload []byte) bool
	State() StateCode
	Close()
}
