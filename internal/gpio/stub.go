//go:build !linux

package gpio

import "errors"

// RealPort is not available on non-Linux platforms.
type RealPort struct{}

// NewRealPort returns an error on non-Linux platforms.
func NewRealPort(chipName string, pins Pins) (*RealPort, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// ReadMode is not implemented on non-Linux platforms.
func (p *RealPort) ReadMode() (bool, error) {
	return false, errors.New("gpio: not supported")
}

// WriteStatus is not implemented on non-Linux platforms.
func (p *RealPort) WriteStatus(bits uint8) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (p *RealPort) Close() error {
	return nil
}
