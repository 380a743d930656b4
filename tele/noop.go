package tele

import "github.com/temoto/thermo/log2"

// Noop transport accepts everything and only logs. Dry run on bench without broker.
type Noop struct {
	Log   *log2.Log
	state StateCode
}

var _ Transport = &Noop{} // compile-time interface test

func (self *Noop) SetEndpoint(host string, port uint16) {
	self.Log.Debugf("tele noop endpoint=%s:%d", host, port)
}

func (self *Noop) Connect(clientID, token, password string) bool {
	self.state = StateConnected
	return true
}

func (self *Noop) Publish(topic string, payload []byte) bool {
	self.Log.Infof("tele noop topic=%s payload=%s", topic, payload)
	return self.state == StateConnected
}

func (self *Noop) State() StateCode { return self.state }

func (self *Noop) Close() { self.state = StateDisconnected }
