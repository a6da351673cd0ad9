package monitor

import "fmt"

// ADC is the converter the engine samples rails through.
type ADC interface {
	SelectInput(ch uint8) error
	StartConversion() error
	ReadSample() (uint16, error)
}

// Pins is the host-facing signalling interface: one mode input and the
// three status outputs.
type Pins interface {
	// ReadMode returns true when the host requests direct reporting.
	ReadMode() (bool, error)
	// WriteStatus drives the low three bits onto the status pins.
	WriteStatus(bits uint8) error
}

// Channels maps each rail to its ADC input.
type Channels [NumRails]uint8

// DefaultChannels matches the test pod wiring: RGA on 0, rails on 1..3.
var DefaultChannels = Channels{Rail5V: 1, RailVIO: 2, Rail3V3: 3}

// Engine runs the sample, classify and report cycle.
// It holds all monitoring state for the life of the process and is driven
// from a single goroutine.
type Engine struct {
	adc      ADC
	pins     Pins
	channels Channels

	acc        *Accumulator
	status     StatusField
	readings   [NumRails]Reading
	iterations uint64
}

// NewEngine creates an engine with empty windows and an all-bad status field.
func NewEngine(adc ADC, pins Pins, channels Channels) *Engine {
	e := &Engine{
		adc:      adc,
		pins:     pins,
		channels: channels,
		acc:      NewAccumulator(),
	}
	for _, r := range Rails {
		e.readings[r].Rail = r
	}
	return e
}

// Sample performs one blocking conversion on the given input.
func Sample(adc ADC, ch uint8) (uint16, error) {
	if err := adc.SelectInput(ch); err != nil {
		return 0, fmt.Errorf("select input %d: %w", ch, err)
	}
	if err := adc.StartConversion(); err != nil {
		return 0, fmt.Errorf("start conversion: %w", err)
	}
	raw, err := adc.ReadSample()
	if err != nil {
		return 0, fmt.Errorf("read sample: %w", err)
	}
	return raw, nil
}

// Step runs one iteration: sample every rail, reclassify ready rails,
// latch the status onto the pins according to the mode pin, then advance
// the shared cursor.
// On any I/O error the iteration is abandoned before the cursor moves and
// before the status field changes, so the next Step rewrites the same slot.
func (e *Engine) Step() (Report, error) {
	status := e.status
	readings := e.readings
	for _, r := range Rails {
		raw, err := Sample(e.adc, e.channels[r])
		if err != nil {
			return Report{}, fmt.Errorf("sample %s rail: %w", r, err)
		}

		avg, ok := e.acc.Record(r, raw)
		if !ok {
			continue
		}
		good := Classify(r, avg)
		status.Set(r, good)
		readings[r] = Reading{
			Rail:       r,
			Average:    avg,
			Millivolts: Millivolts(avg),
			InSpec:     good,
			Valid:      true,
		}
	}

	direct, err := e.pins.ReadMode()
	if err != nil {
		return Report{}, fmt.Errorf("read mode pin: %w", err)
	}
	bits := status.Encode(direct)
	if err := e.pins.WriteStatus(bits); err != nil {
		return Report{}, fmt.Errorf("write status pins: %w", err)
	}

	ready := e.acc.Ready()
	e.acc.Advance()
	e.status = status
	e.readings = readings
	e.iterations++

	return Report{
		Status:   e.status,
		Pins:     bits,
		Direct:   direct,
		Ready:    ready,
		Readings: e.readings,
	}, nil
}

// Status returns the current status field.
func (e *Engine) Status() StatusField {
	return e.status
}

// Iterations returns the number of completed iterations.
func (e *Engine) Iterations() uint64 {
	return e.iterations
}
