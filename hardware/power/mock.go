package power

import "time"

type MockSleeper struct {
	Err   error
	Calls []time.Duration
}

func (self *MockSleeper) DeepSleep(d time.Duration) error {
	self.Calls = append(self.Calls, d)
	return self.Err
}
