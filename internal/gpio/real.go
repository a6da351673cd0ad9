//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// RealPort drives the host pins using the Linux GPIO character device.
type RealPort struct {
	chip   *gpiocdev.Chip
	mode   *gpiocdev.Line
	status *gpiocdev.Lines
}

// NewRealPort requests the mode line as input and the status lines as
// outputs, initially driven low.
func NewRealPort(chipName string, pins Pins) (*RealPort, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer("testpod-monitor"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	// The host drives the mode pin; pull down so a missing host reads as
	// inverted mode.
	mode, err := chip.RequestLine(pins.Mode, gpiocdev.AsInput, gpiocdev.WithPullDown)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request mode pin %d: %w", pins.Mode, err)
	}

	status, err := chip.RequestLines(pins.Status[:], gpiocdev.AsOutput(0, 0, 0))
	if err != nil {
		mode.Close()
		chip.Close()
		return nil, fmt.Errorf("request status pins %v: %w", pins.Status, err)
	}

	return &RealPort{
		chip:   chip,
		mode:   mode,
		status: status,
	}, nil
}

// ReadMode returns the level of the mode pin.
func (p *RealPort) ReadMode() (bool, error) {
	v, err := p.mode.Value()
	if err != nil {
		return false, fmt.Errorf("read mode pin: %w", err)
	}
	return v != 0, nil
}

// WriteStatus sets all three status lines in one request.
func (p *RealPort) WriteStatus(bits uint8) error {
	if err := p.status.SetValues(bitValues(bits)); err != nil {
		return fmt.Errorf("set status pins: %w", err)
	}
	return nil
}

// Close releases GPIO resources.
// Status lines are returned to input with pull-down (matching Pi boot
// defaults) so the host sees them released rather than held.
func (p *RealPort) Close() error {
	var errs []error

	if p.status != nil {
		if err := p.status.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure status pins: %w", err))
		}
		if err := p.status.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close status pins: %w", err))
		}
	}
	if p.mode != nil {
		if err := p.mode.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close mode pin: %w", err))
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
