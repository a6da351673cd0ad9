// Package gpio provides the host signalling pins with hardware abstraction.
// The real implementation uses Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Port is the test pod's host interface: one mode input driven by the FPGA
// and three status outputs read back by it.
type Port interface {
	// ReadMode returns true when the mode pin is high (direct reporting).
	ReadMode() (bool, error)

	// WriteStatus drives bits 0..2 onto the status pins.
	// Bit 0 = 5V, bit 1 = VIO, bit 2 = 3.3V.
	WriteStatus(bits uint8) error

	// Close releases GPIO resources.
	Close() error
}

// Pin definitions (BCM numbering)
const (
	DefaultPinMode = 4  // TEST_MODE_0, input from host
	DefaultPin5V   = 17 // TEST_MODE_3
	DefaultPinVIO  = 27 // TEST_MODE_2
	DefaultPin3V3  = 22 // TEST_MODE_1
)

// DefaultChip is the GPIO character device on the Pi header.
const DefaultChip = "gpiochip0"

// Pins groups the line offsets used by a Port.
type Pins struct {
	Mode   int
	Status [3]int // indexed by status bit
}

// DefaultPins returns the standard test pod wiring.
func DefaultPins() Pins {
	return Pins{
		Mode:   DefaultPinMode,
		Status: [3]int{DefaultPin5V, DefaultPinVIO, DefaultPin3V3},
	}
}

// bitValues expands the low three bits into per-line values.
func bitValues(bits uint8) []int {
	v := make([]int, 3)
	for i := range v {
		v[i] = int(bits>>uint(i)) & 1
	}
	return v
}
