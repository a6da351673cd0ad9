package adc

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/physic"
)

// Options selects and configures the ADC back-end.
type Options struct {
	Driver  string // DriverSPIDev or DriverBitBang
	Device  string // spidev port, e.g. /dev/spidev0.0
	SpeedHz int64
	Pins    BitBangPins
	Clock   time.Duration
}

// Open returns the ADC described by opts.
func Open(opts Options) (ADC, error) {
	switch opts.Driver {
	case DriverSPIDev, "":
		dev := opts.Device
		if dev == "" {
			dev = DefaultSPIDevice
		}
		speed := DefaultSPISpeed
		if opts.SpeedHz > 0 {
			speed = physic.Frequency(opts.SpeedHz) * physic.Hertz
		}
		d, err := OpenSPIDev(dev, speed)
		if err != nil {
			return nil, err
		}
		return d, nil
	case DriverBitBang:
		clk := opts.Clock
		if clk <= 0 {
			clk = DefaultBitBangClock
		}
		b, err := OpenBitBang(opts.Pins, clk)
		if err != nil {
			return nil, err
		}
		return b, nil
	}
	return nil, fmt.Errorf("adc: unknown driver %q", opts.Driver)
}
