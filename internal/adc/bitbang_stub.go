//go:build !linux

package adc

import (
	"errors"
	"time"
)

// BitBangPins are the BCM pins used to clock the MCP3008 in software.
type BitBangPins struct {
	Sclk int
	Ssz  int
	Mosi int
	Miso int
}

// DefaultBitBangClock is the half-period of the software SPI clock.
const DefaultBitBangClock = 500 * time.Nanosecond

// BitBang is not available on non-Linux platforms.
type BitBang struct{}

// OpenBitBang returns an error on non-Linux platforms.
func OpenBitBang(pins BitBangPins, tclk time.Duration) (*BitBang, error) {
	return nil, errors.New("adc: bitbang not supported on this platform (requires Linux)")
}

// SelectInput is not implemented on non-Linux platforms.
func (b *BitBang) SelectInput(ch uint8) error {
	return errors.New("adc: not supported")
}

// StartConversion is not implemented on non-Linux platforms.
func (b *BitBang) StartConversion() error {
	return errors.New("adc: not supported")
}

// ReadSample is not implemented on non-Linux platforms.
func (b *BitBang) ReadSample() (uint16, error) {
	return 0, errors.New("adc: not supported")
}

// Close is not implemented on non-Linux platforms.
func (b *BitBang) Close() error {
	return nil
}
