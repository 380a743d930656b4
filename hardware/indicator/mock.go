package indicator

import (
	"time"
)

type Event struct {
	At time.Duration // virtual time since mock creation
	On bool
}

// MockOutput records toggles against virtual clock advanced by its Sleep.
type MockOutput struct {
	Err    error
	Events []Event
	Now    time.Duration
}

func (self *MockOutput) Set(on bool) error {
	self.Events = append(self.Events, Event{At: self.Now, On: on})
	return self.Err
}

func (self *MockOutput) Sleep(d time.Duration) { self.Now += d }
