// Package paho is telemetry transport over eclipse/paho.mqtt.golang.
package paho

import (
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/temoto/thermo/log2"
	"github.com/temoto/thermo/tele"
)

const (
	DefaultNetworkTimeout = 30 * time.Second
	DefaultQuiesce        = 250 * time.Millisecond
)

type Options struct {
	NetworkTimeout time.Duration
	KeepaliveSec   int
	Quiesce        time.Duration
	Qos            byte
	Log            *log2.Log
	LogDebug       bool
}

type Transport struct {
	sync.Mutex
	opt    Options
	broker string
	m      mqtt.Client
	state  tele.StateCode
}

var _ tele.Transport = &Transport{} // compile-time interface test

func New(opt Options) *Transport {
	if opt.NetworkTimeout == 0 {
		opt.NetworkTimeout = DefaultNetworkTimeout
	}
	if opt.Quiesce == 0 {
		opt.Quiesce = DefaultQuiesce
	}
	// paho loggers are package globals
	mqtt.ERROR = logger{opt.Log, log2.LInfo, "paho error: "}
	mqtt.CRITICAL = logger{opt.Log, log2.LInfo, "paho critical: "}
	mqtt.WARN = logger{opt.Log, log2.LDebug, "paho warn: "}
	if opt.LogDebug {
		mqtt.DEBUG = logger{opt.Log, log2.LDebug, "paho debug: "}
	}
	return &Transport{opt: opt, state: tele.StateDisconnected}
}

func (self *Transport) SetEndpoint(host string, port uint16) {
	self.Lock()
	defer self.Unlock()
	self.broker = fmt.Sprintf("tcp://%s:%d", host, port)
}

func (self *Transport) Connect(clientID, token, password string) bool {
	self.Lock()
	defer self.Unlock()
	self.closeLocked()

	mopt := mqtt.NewClientOptions().
		AddBroker(self.broker).
		SetClientID(clientID).
		SetUsername(token).
		SetPassword(password).
		SetCleanSession(true).
		SetAutoReconnect(false).
		SetProtocolVersion(4).
		SetConnectTimeout(self.opt.NetworkTimeout).
		SetKeepAlive(time.Duration(self.opt.KeepaliveSec) * time.Second).
		SetPingTimeout(self.opt.NetworkTimeout)
	m := mqtt.NewClient(mopt)
	t := m.Connect()
	if !waitToken(t, self.opt.NetworkTimeout+time.Second) {
		self.state = tele.StateConnectionTimeout
		m.Disconnect(0)
		return false
	}
	if err := t.Error(); err != nil {
		self.opt.Log.Debugf("paho connect broker=%s err=%v", self.broker, err)
		self.state = tele.StateConnectFailed
		if ct, ok := t.(*mqtt.ConnectToken); ok && ct.ReturnCode() != 0 {
			self.state = tele.StateCode(ct.ReturnCode())
		}
		return false
	}
	self.m = m
	self.state = tele.StateConnected
	return true
}

func (self *Transport) Publish(topic string, payload []byte) bool {
	self.Lock()
	defer self.Unlock()
	if self.m == nil {
		return false
	}
	if !self.m.IsConnected() {
		self.state = tele.StateConnectionLost
		return false
	}
	t := self.m.Publish(topic, self.opt.Qos, false, payload)
	if !waitToken(t, self.opt.NetworkTimeout) {
		self.opt.Log.Errorf("paho publish topic=%s timeout", topic)
		self.state = tele.StateConnectionTimeout
		return false
	}
	if err := t.Error(); err != nil {
		self.opt.Log.Errorf("paho publish topic=%s err=%v", topic, err)
		self.state = tele.StateConnectionLost
		return false
	}
	return true
}

func (self *Transport) State() tele.StateCode {
	self.Lock()
	defer self.Unlock()
	return self.state
}

func (self *Transport) Close() {
	self.Lock()
	defer self.Unlock()
	self.closeLocked()
}

func (self *Transport) closeLocked() {
	self.state = tele.StateDisconnected
	if self.m == nil {
		return
	}
	self.m.Disconnect(uint(self.opt.Quiesce / time.Millisecond))
	self.m = nil
}

// waitToken returns false if token is not complete after d.
// Not Token.WaitTimeout: it holds token lock that failed connect needs to complete.
func waitToken(t mqtt.Token, d time.Duration) bool {
	done := make(chan struct{})
	go func() {
		t.Wait()
		close(done)
	}()
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-done:
		return true
	case <-timer.C:
		return false
	}
}

// logger adapts log2 to mqtt.Logger.
// Transport reports failures itself, so paho errors never reach error counter.
type logger struct {
	log    *log2.Log
	level  log2.Level
	prefix string
}

func (self logger) Println(v ...interface{}) {
	self.log.Log(self.level, self.prefix+fmt.Sprint(v...))
}
func (self logger) Printf(format string, v ...interface{}) {
	self.log.Logf(self.level, self.prefix+format, v...)
}
