// Package adc provides access to the multiplexed ADC that samples the rails.
// The real implementations drive an MCP3008 either through the Linux spidev
// interface or by bit-banging GPIO. The fake implementation allows testing
// without hardware.
package adc

import "errors"

// ADC is a single converter with an input multiplexer.
// Conversions are synchronous: ReadSample blocks until the conversion
// started by StartConversion has completed.
type ADC interface {
	// SelectInput routes the given channel to the converter.
	SelectInput(ch uint8) error

	// StartConversion begins a conversion on the selected input.
	StartConversion() error

	// ReadSample returns the result of the last conversion, right-aligned.
	ReadSample() (uint16, error)

	// Close releases ADC resources.
	Close() error
}

// MCP3008 geometry.
const (
	Channels = 8
	Bits     = 10
	MaxValue = 1<<Bits - 1
)

// Driver names accepted by Open.
const (
	DriverSPIDev  = "spidev"
	DriverBitBang = "bitbang"
)

var (
	// ErrNoConversion is returned by ReadSample when no conversion is pending.
	ErrNoConversion = errors.New("adc: no conversion started")

	// ErrChannel is returned by SelectInput for inputs the device lacks.
	ErrChannel = errors.New("adc: channel out of range")
)

// mcp3008Request builds the 3-byte single-ended read frame for ch.
// Byte 0 carries the start bit; byte 1 the SGL/DIFF flag and channel.
func mcp3008Request(ch uint8) [3]byte {
	return [3]byte{0x01, 0x80 | (ch&0x07)<<4, 0x00}
}

// mcp3008Value extracts the 10-bit result from a response frame.
func mcp3008Value(r [3]byte) uint16 {
	return uint16(r[1]&0x03)<<8 | uint16(r[2])
}
