//go:build linux

package adc

import (
	"fmt"
	"time"

	"github.com/warthog618/gpio"
	"github.com/warthog618/gpio/spi/mcp3w0c"
)

// BitBangPins are the BCM pins used to clock the MCP3008 in software.
// Mosi and Miso may be the same pin.
type BitBangPins struct {
	Sclk int
	Ssz  int
	Mosi int
	Miso int
}

// DefaultBitBangClock is the half-period of the software SPI clock.
const DefaultBitBangClock = 500 * time.Nanosecond

// BitBang drives an MCP3008 over GPIO when no spidev port is available.
type BitBang struct {
	dev     *mcp3w0c.MCP3w0c
	ch      uint8
	pending bool
	result  uint16
}

// OpenBitBang maps the GPIO block and prepares the software SPI lines.
func OpenBitBang(pins BitBangPins, tclk time.Duration) (*BitBang, error) {
	if err := gpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio mem: %w", err)
	}
	return &BitBang{
		dev: mcp3w0c.NewMCP3008(tclk, pins.Sclk, pins.Ssz, pins.Mosi, pins.Miso),
	}, nil
}

// SelectInput latches the channel used by the next conversion.
func (b *BitBang) SelectInput(ch uint8) error {
	if ch >= Channels {
		return fmt.Errorf("%w: %d", ErrChannel, ch)
	}
	b.ch = ch
	return nil
}

// StartConversion clocks a full single-ended read out of the device.
func (b *BitBang) StartConversion() error {
	b.result = b.dev.Read(int(b.ch)) & MaxValue
	b.pending = true
	return nil
}

// ReadSample returns the value captured by the last conversion.
func (b *BitBang) ReadSample() (uint16, error) {
	if !b.pending {
		return 0, ErrNoConversion
	}
	b.pending = false
	return b.result, nil
}

// Close releases the SPI lines and unmaps the GPIO block.
func (b *BitBang) Close() error {
	b.dev.Close()
	if err := gpio.Close(); err != nil {
		return fmt.Errorf("close gpio mem: %w", err)
	}
	return nil
}
