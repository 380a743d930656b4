// Package link brings up wireless network association with bounded retries.
package link

import (
	"github.com/juju/errors"
	"github.com/temoto/thermo/internal/types"
	"github.com/temoto/thermo/log2"
)

type Status uint8

const (
	StatusUnknown Status = iota
	StatusConnected
	StatusDisconnected
	StatusNoInterface
)

func (s Status) String() string {
	switch s {
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	case StatusNoInterface:
		return "no-interface"
	}
	return "unknown"
}

// Stack is the wireless link driver contract.
type Stack interface {
	Begin(ssid, password string) error
	Status() Status
}

type Credentials struct {
	SSID     string
	Password string // secret
}

type Manager struct {
	log   *log2.Log
	sleep types.SleepFunc
	stack Stack
}

func NewManager(stack Stack, sleep types.SleepFunc, log *log2.Log) *Manager {
	if stack == nil {
		panic("code error link.NewManager stack=nil")
	}
	return &Manager{stack: stack, sleep: sleep, log: log}
}

// Connect polls link status at most budget.MaxAttempts times with fixed delay between polls.
func (self *Manager) Connect(creds Credentials, budget types.RetryBudget) error {
	if err := budget.Validate(); err != nil {
		return errors.Annotate(types.ErrLinkFailure, err.Error())
	}

	if err := self.stack.Begin(creds.SSID, creds.Password); err != nil {
		// association may already be configured by OS, link status decides
		self.log.Errorf("link begin ssid=%s err=%v", creds.SSID, err)
	}

	for attempt := 1; ; attempt++ {
		status := self.stack.Status()
		if status == StatusConnected {
			self.log.Infof("link ssid=%s connected attempt=%d", creds.SSID, attempt)
			return nil
		}
		self.log.Debugf("link ssid=%s status=%s attempt=%d/%d", creds.SSID, status, attempt, budget.MaxAttempts)
		if attempt >= budget.MaxAttempts {
			return errors.Annotatef(types.ErrLinkFailure, "ssid=%s status=%s attempts=%d", creds.SSID, status, attempt)
		}
		self.sleep(budget.AttemptDelay)
	}
}
