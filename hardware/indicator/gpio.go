package indicator

import (
	"strconv"

	"github.com/juju/errors"
	gpio "github.com/temoto/gpio-cdev-go"
	"github.com/temoto/thermo/helpers"
)

const consumerLabel = "thermo-led"

type GpioOutput struct {
	chip  gpio.Chiper  // only for resource cleanup
	lines gpio.Lineser // used
	set   gpio.LineSetFunc
}

// OpenGpio requests single output line. Active low wiring is inverted by kernel.
func OpenGpio(chipName string, pinName string, activeLow bool) (*GpioOutput, error) {
	line, err := strconv.ParseUint(pinName, 10, 32)
	if err != nil {
		return nil, errors.Annotate(err, "led pin must be number")
	}
	chip, err := gpio.Open(chipName, consumerLabel)
	if err != nil {
		return nil, errors.Annotatef(err, "led open chip=%s", chipName)
	}
	flag := gpio.GPIOHANDLE_REQUEST_OUTPUT
	if activeLow {
		flag |= gpio.GPIOHANDLE_REQUEST_ACTIVE_LOW
	}
	lines, err := chip.OpenLines(flag, consumerLabel, uint32(line))
	if err != nil {
		_ = chip.Close()
		return nil, errors.Annotatef(err, "led open line=%d", line)
	}
	o := NewGpioOutput(lines, uint32(line))
	o.chip = chip
	return o, nil
}

func NewGpioOutput(lines gpio.Lineser, line uint32) *GpioOutput {
	return &GpioOutput{lines: lines, set: lines.SetFunc(line)}
}

func (self *GpioOutput) Set(on bool) error {
	var v byte
	if on {
		v = 1
	}
	self.set(v)
	return errors.Annotate(self.lines.Flush(), "led flush")
}

func (self *GpioOutput) Close() error {
	errs := make([]error, 0, 2)
	if self.lines != nil {
		errs = append(errs, self.lines.Close())
	}
	if self.chip != nil {
		errs = append(errs, self.chip.Close())
	}
	return helpers.FoldErrors(errs)
}
