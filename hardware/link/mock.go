package link

// MockStack replays Statuses, last item repeats forever.
type MockStack struct {
	BeginErr error
	Statuses []Status

	BeginCalls  int
	StatusCalls int
}

func (self *MockStack) Begin(ssid, password string) error {
	self.BeginCalls++
	return self.BeginErr
}

func (self *MockStack) Status() Status {
	self.StatusCalls++
	if len(self.Statuses) == 0 {
		return StatusDisconnected
	}
	i := self.StatusCalls - 1
	if i >= len(self.Statuses) {
		i = len(self.Statuses) - 1
	}
	return self.Statuses[i]
}
