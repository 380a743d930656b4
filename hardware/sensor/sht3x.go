package sensor

import (
	"time"

	"github.com/juju/errors"
	"github.com/temoto/thermo/crc"
	"github.com/temoto/thermo/log2"
	"periph.io/x/periph/conn/i2c"
	"periph.io/x/periph/conn/i2c/i2creg"
	"periph.io/x/periph/host"
)

const DefaultAddress uint16 = 0x45

// as defined in Sensirion SHT3x-DIS datasheet
var (
	cmdSoftReset     = []byte{0x30, 0xa2}
	cmdReadStatus    = []byte{0xf3, 0x2d}
	cmdSingleHighRep = []byte{0x24, 0x00} // clock stretching disabled
)

const (
	durationReset   = 10 * time.Millisecond
	durationMeasure = 20 * time.Millisecond
)

type TxFunc func(w, r []byte) error

// SHT3x over Linux I2C via periph.
// Every Temperature/Humidity call does fresh single shot measurement.
type SHT3x struct {
	BusName string
	Log     *log2.Log
	Sleep   func(time.Duration)

	bus i2c.BusCloser
	tx  TxFunc
}

func NewSHT3x(busName string, log *log2.Log) *SHT3x {
	return &SHT3x{BusName: busName, Log: log, Sleep: time.Sleep}
}

// NewSHT3xTx is used by tests and alternative bus implementations.
func NewSHT3xTx(tx TxFunc, log *log2.Log) *SHT3x {
	return &SHT3x{Log: log, Sleep: func(time.Duration) {}, tx: tx}
}

func (self *SHT3x) Init(address uint16) error {
	if self.tx == nil {
		if _, err := host.Init(); err != nil {
			return errors.Annotate(err, "periph/init")
		}
		bus, err := i2creg.Open(self.BusName)
		if err != nil {
			return errors.Annotatef(err, "I2C Open bus=%s", self.BusName)
		}
		self.bus = bus
		dev := &i2c.Dev{Bus: bus, Addr: address}
		self.tx = dev.Tx
	}

	if err := self.tx(cmdSoftReset, nil); err != nil {
		return errors.Annotate(err, "sht3x soft reset")
	}
	self.Sleep(durationReset)

	var status [3]byte
	if err := self.tx(cmdReadStatus, status[:]); err != nil {
		return errors.Annotate(err, "sht3x read status")
	}
	if status[0] == 0xff && status[1] == 0xff {
		return errors.NotFoundf("sht3x address=0x%02x status=ffff", address)
	}
	if x := crc.Sensirion(status[:2]); x != status[2] {
		return errors.Errorf("sht3x status crc=%02x expected=%02x", status[2], x)
	}
	self.Log.Debugf("sht3x status=%02x%02x", status[0], status[1])
	return nil
}

func (self *SHT3x) Close() error {
	if self.bus != nil {
		return self.bus.Close()
	}
	return nil
}

func (self *SHT3x) Temperature() float64 {
	t, _, err := self.measure()
	if err != nil {
		self.Log.Errorf("sht3x temperature err=%v", err)
		return invalid()
	}
	return t
}

func (self *SHT3x) Humidity() float64 {
	_, h, err := self.measure()
	if err != nil {
		self.Log.Errorf("sht3x humidity err=%v", err)
		return invalid()
	}
	return h
}

func (self *SHT3x) measure() (float64, float64, error) {
	if self.tx == nil {
		return 0, 0, errors.Errorf("code error sht3x Init() not called")
	}
	if err := self.tx(cmdSingleHighRep, nil); err != nil {
		return 0, 0, errors.Annotate(err, "measure command")
	}
	self.Sleep(durationMeasure)

	var buf [6]byte
	if err := self.tx(nil, buf[:]); err != nil {
		return 0, 0, errors.Annotate(err, "measure read")
	}
	return parseMeasurement(buf)
}

func parseMeasurement(buf [6]byte) (float64, float64, error) {
	if x := crc.Sensirion(buf[0:2]); x != buf[2] {
		return 0, 0, errors.Errorf("temperature crc=%02x expected=%02x", buf[2], x)
	}
	if x := crc.Sensirion(buf[3:5]); x != buf[5] {
		return 0, 0, errors.Errorf("humidity crc=%02x expected=%02x", buf[5], x)
	}
	rawT := uint16(buf[0])<<8 | uint16(buf[1])
	rawH := uint16(buf[3])<<8 | uint16(buf[4])
	t := -45 + 175*float64(rawT)/65535
	h := 100 * float64(rawH) / 65535
	return t, h, nil
}
