// Package gomqtt is synchronous MQTT 3.1.1 telemetry transport over 256dpi/gomqtt.
// One connection per wake cycle: dial, CONNECT, wait CONNACK, publish, DISCONNECT.
// No background goroutines, no reconnects.
package gomqtt

import (
	"fmt"
	"sync"
	"time"

	"github.com/256dpi/gomqtt/client"
	"github.com/256dpi/gomqtt/packet"
	"github.com/256dpi/gomqtt/transport"
	"github.com/juju/errors"
	"github.com/temoto/thermo/log2"
	"github.com/temoto/thermo/tele"
)

const DefaultNetworkTimeout = 30 * time.Second

type Options struct {
	NetworkTimeout time.Duration
	KeepaliveSec   uint16
	Qos            uint8
	Log            *log2.Log
}

type Transport struct {
	sync.Mutex
	opt    Options
	url    string
	dialer *transport.Dialer
	conn   transport.Conn
	lastID packet.ID
	state  tele.StateCode
}

var _ tele.Transport = &Transport{} // compile-time interface test

func New(opt Options) *Transport {
	if opt.NetworkTimeout == 0 {
		opt.NetworkTimeout = DefaultNetworkTimeout
	}
	if opt.Qos > 1 {
		panic("code error gomqtt QOS ExactlyOnce not implemented")
	}
	return &Transport{
		opt:   opt,
		state: tele.StateDisconnected,
		dialer: transport.NewDialer(transport.DialConfig{
			Timeout: opt.NetworkTimeout,
		}),
	}
}

func (self *Transport) SetEndpoint(host string, port uint16) {
	self.Lock()
	defer self.Unlock()
	self.url = fmt.Sprintf("tcp://%s:%d", host, port)
}

func (self *Transport) Connect(clientID, token, password string) bool {
	self.Lock()
	defer self.Unlock()
	self.closeLocked()

	conn, err := self.dialer.Dial(self.url)
	if err != nil {
		self.opt.Log.Debugf("gomqtt dial broker=%s err=%v", self.url, err)
		self.state = classify(err, tele.StateConnectFailed)
		return false
	}
	conpkt := packet.NewConnect()
	conpkt.ClientID = clientID
	conpkt.KeepAlive = self.opt.KeepaliveSec
	conpkt.CleanSession = true
	conpkt.Username = token
	conpkt.Password = password
	if err = conn.Send(conpkt, false); err != nil {
		self.opt.Log.Debugf("gomqtt send CONNECT err=%v", err)
		_ = conn.Close()
		self.state = classify(err, tele.StateConnectFailed)
		return false
	}

	// expect CONNACK
	conn.SetReadTimeout(self.opt.NetworkTimeout)
	pkt, err := conn.Receive()
	if err != nil {
		self.opt.Log.Debugf("gomqtt expect CONNACK err=%v", err)
		_ = conn.Close()
		self.state = classify(err, tele.StateConnectFailed)
		return false
	}
	connack, ok := pkt.(*packet.Connack)
	if !ok {
		self.opt.Log.Errorf("gomqtt %v pkt=%s", client.ErrClientExpectedConnack, pkt.String())
		_ = conn.Close()
		self.state = tele.StateConnectFailed
		return false
	}
	self.opt.Log.Debugf("gomqtt CONNACK=%s", connack.String())
	if connack.ReturnCode != packet.ConnectionAccepted {
		_ = conn.Close()
		self.state = tele.StateCode(connack.ReturnCode)
		return false
	}
	self.conn = conn
	self.state = tele.StateConnected
	return true
}

func (self *Transport) Publish(topic string, payload []byte) bool {
	self.Lock()
	defer self.Unlock()
	if self.conn == nil {
		return false
	}

	publish := packet.NewPublish()
	publish.Message = packet.Message{
		Topic:   topic,
		Payload: payload,
		QOS:     packet.QOS(self.opt.Qos),
	}
	if publish.Message.QOS >= packet.QOSAtLeastOnce {
		self.lastID++
		if self.lastID == 0 {
			self.lastID = 1
		}
		publish.ID = self.lastID
	}
	if err := self.conn.Send(publish, false); err != nil {
		self.lost(errors.Annotate(err, "send PUBLISH"))
		return false
	}
	if publish.Message.QOS == packet.QOSAtMostOnce {
		return true
	}

	self.conn.SetReadTimeout(self.opt.NetworkTimeout)
	for {
		pkt, err := self.conn.Receive()
		if err != nil {
			self.lost(errors.Annotate(err, "expect PUBACK"))
			return false
		}
		switch pt := pkt.(type) {
		case *packet.Puback:
			if pt.ID != publish.ID {
				self.lost(errors.Errorf("PUBACK id=%d expected=%d", pt.ID, publish.ID))
				return false
			}
			return true
		case *packet.Pingresp:
		default:
			self.opt.Log.Debugf("gomqtt ignore pkt=%s", pkt.String())
		}
	}
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
	if self.conn == nil {
		return
	}
	if err := self.conn.Send(packet.NewDisconnect(), false); err != nil {
		self.opt.Log.Debugf("gomqtt send DISCONNECT err=%v", err)
	}
	_ = self.conn.Close()
	self.conn = nil
}

func (self *Transport) lost(err error) {
	self.opt.Log.Errorf("gomqtt %v", err)
	_ = self.conn.Close()
	self.conn = nil
	self.state = classify(err, tele.StateConnectionLost)
}

func classify(err error, fallback tele.StateCode) tele.StateCode {
	type timeout interface{ Timeout() bool }
	if t, ok := errors.Cause(err).(timeout); ok && t.Timeout() {
		return tele.StateConnectionTimeout
	}
	return fallback
}
