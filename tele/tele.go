// Package tele delivers readings to remote telemetry endpoint.
//
// Client contract:
// - Connect retries at most RetryBudget.MaxAttempts with fixed delay
// - Publish is single attempt, no offline buffering
// - Session.Close() must be called on every path before device sleeps
package tele

import (
	"fmt"
	"sync"

	"github.com/juju/errors"
	"github.com/temoto/thermo/internal/types"
	"github.com/temoto/thermo/log2"
)

type Endpoint struct {
	Host     string
	Port     uint16
	ClientID string
	Token    string
	Password string
}

func (self Endpoint) String() string { return fmt.Sprintf("%s:%d", self.Host, self.Port) }

type Client struct {
	transport Transport
	sleep     types.SleepFunc
	log       *log2.Log
}

func NewClient(transport Transport, sleep types.SleepFunc, log *log2.Log) *Client {
	if transport == nil {
		panic("code error tele.NewClient transport=nil")
	}
	return &Client{transport: transport, sleep: sleep, log: log}
}

// Connect makes at most budget.MaxAttempts transport connect attempts.
// Failed attempt status code goes into log and final error annotation.
func (self *Client) Connect(ep Endpoint, budget types.RetryBudget) (*Session, error) {
	if err := budget.Validate(); err != nil {
		return nil, errors.Annotate(types.ErrConnectFailure, err.Error())
	}

	self.transport.SetEndpoint(ep.Host, ep.Port)
	for attempt := 1; ; attempt++ {
		if self.transport.Connect(ep.ClientID, ep.Token, ep.Password) {
			self.log.Infof("tele connected endpoint=%s attempt=%d", ep.String(), attempt)
			return &Session{transport: self.transport, log: self.log}, nil
		}
		rc := self.transport.State()
		self.log.Errorf("tele connect endpoint=%s attempt=%d/%d rc=%d (%s)", ep.String(), attempt, budget.MaxAttempts, rc, rc.String())
		if attempt >= budget.MaxAttempts {
			self.transport.Close()
			return nil, errors.Annotatef(types.ErrConnectFailure, "endpoint=%s rc=%d attempts=%d", ep.String(), rc, attempt)
		}
		self.sleep(budget.AttemptDelay)
	}
}

// Publish encodes reading and sends it once.
func (self *Client) Publish(s *Session, topic string, r types.Reading) error {
	b, err := EncodeReading(r)
	if err != nil {
		return errors.Annotate(types.ErrPublishFailure, err.Error())
	}
	if s == nil || s.isClosed() {
		return errors.Annotate(types.ErrPublishFailure, "no session")
	}
	self.log.Debugf("tele publish topic=%s payload=%s", topic, b)
	if !s.transport.Publish(topic, b) {
		rc := s.transport.State()
		return errors.Annotatef(types.ErrPublishFailure, "topic=%s rc=%d", topic, rc)
	}
	return nil
}

// Session is live transport connection, valid for one wake cycle.
type Session struct {
	mu        sync.Mutex
	closed    bool
	log       *log2.Log
	transport Transport
}

func (self *Session) Close() {
	if self == nil {
		return
	}
	self.mu.Lock()
	defer self.mu.Unlock()
	if self.closed {
		return
	}
	self.closed = true
	self.transport.Close()
	self.log.Debugf("tele session closed")
}

func (self *Session) isClosed() bool {
	self.mu.Lock()
	defer self.mu.Unlock()
	return self.closed
}
