// Package sensor reads temperature and humidity once per wake cycle.
package sensor

import (
	"math"

	"github.com/juju/errors"
	"github.com/temoto/thermo/internal/types"
	"github.com/temoto/thermo/log2"
)

// Device is the sensor driver contract.
// Temperature and Humidity return NaN when reading is invalid.
type Device interface {
	Init(address uint16) error
	Temperature() float64
	Humidity() float64
}

// Reader produces one Reading or ErrSensorFailure. No retries.
type Reader struct {
	address uint16
	dev     Device
	inited  bool
	log     *log2.Log
}

func NewReader(dev Device, address uint16, log *log2.Log) *Reader {
	if dev == nil {
		panic("code error sensor.NewReader dev=nil")
	}
	return &Reader{dev: dev, address: address, log: log}
}

func (self *Reader) Read() (types.Reading, error) {
	if !self.inited {
		if err := self.dev.Init(self.address); err != nil {
			err = errors.Annotatef(err, "sensor init address=0x%02x", self.address)
			self.log.Errorf("%v", err)
			return types.Reading{}, errors.Annotate(types.ErrSensorFailure, err.Error())
		}
		self.inited = true
	}

	r := types.Reading{
		Temperature: self.dev.Temperature(),
		Humidity:    self.dev.Humidity(),
	}
	if !r.Valid() {
		self.log.Errorf("sensor invalid %s", r.String())
		return r, errors.Annotatef(types.ErrSensorFailure, "invalid %s", r.String())
	}
	self.log.Debugf("sensor %s", r.String())
	return r, nil
}

// NaN helper for drivers.
func invalid() float64 { return math.NaN() }
