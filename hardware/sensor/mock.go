package sensor

import "sync/atomic"

// MockDevice returns configured values, counts calls.
type MockDevice struct {
	T       float64
	H       float64
	InitErr error

	calls int32
}

func (self *MockDevice) Init(uint16) error {
	atomic.AddInt32(&self.calls, 1)
	return self.InitErr
}

func (self *MockDevice) Temperature() float64 {
	atomic.AddInt32(&self.calls, 1)
	return self.T
}

func (self *MockDevice) Humidity() float64 {
	atomic.AddInt32(&self.calls, 1)
	return self.H
}

func (self *MockDevice) Calls() int { return int(atomic.LoadInt32(&self.calls)) }
