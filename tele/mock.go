package tele

import "sync"

// MockTransport replays scripted connect results. Missing script entries mean failure.
type MockTransport struct {
	sync.Mutex
	ConnectResults []bool
	FailState      StateCode
	PublishOK      bool

	Host         string
	Port         uint16
	ConnectCalls int
	CloseCalls   int
	Published    []MockMessage

	state StateCode
}

type MockMessage struct {
	Topic   string
	Payload []byte
}

func NewMockTransport(connect ...bool) *MockTransport {
	return &MockTransport{ConnectResults: connect, FailState: StateConnectFailed, PublishOK: true, state: StateDisconnected}
}

func (self *MockTransport) SetEndpoint(host string, port uint16) {
	self.Lock()
	defer self.Unlock()
	self.Host, self.Port = host, port
}

func (self *MockTransport) Connect(clientID, token, password string) bool {
	self.Lock()
	defer self.Unlock()
	ok := self.ConnectCalls < len(self.ConnectResults) && self.ConnectResults[self.ConnectCalls]
	self.ConnectCalls++
	if ok {
		self.state = StateConnected
	} else {
		self.state = self.FailState
	}
	return ok
}

func (self *MockTransport) Publish(topic string, payload []byte) bool {
	self.Lock()
	defer self.Unlock()
	if !self.PublishOK || self.state != StateConnected {
		return false
	}
	self.Published = append(self.Published, MockMessage{Topic: topic, Payload: append([]byte(nil), payload...)})
	return true
}

func (self *MockTransport) State() StateCode {
	self.Lock()
	defer self.Unlock()
	return self.state
}

func (self *MockTransport) Close() {
	self.Lock()
	defer self.Unlock()
	self.CloseCalls++
	self.state = StateDisconnected
}
