package adc

import "errors"

// Fake is a test double that returns scripted samples per channel.
type Fake struct {
	// Samples contains the scripted values for each channel.
	// Each conversion consumes the next value; once exhausted, the last
	// value repeats.
	Samples map[uint8][]uint16

	// ReadError, if set, will be returned by ReadSample.
	ReadError error

	// Selected records the channel of every SelectInput call.
	Selected []uint8

	// Closed tracks if Close was called.
	Closed bool

	ch      uint8
	pending bool
	index   map[uint8]int
}

// NewFake creates a Fake with the given per-channel samples.
func NewFake(samples map[uint8][]uint16) *Fake {
	if samples == nil {
		samples = map[uint8][]uint16{}
	}
	return &Fake{Samples: samples, index: map[uint8]int{}}
}

// Set replaces the script for one channel and rewinds it.
func (f *Fake) Set(ch uint8, samples ...uint16) {
	f.Samples[ch] = samples
	f.index[ch] = 0
}

// SelectInput records and latches the channel.
func (f *Fake) SelectInput(ch uint8) error {
	if ch >= Channels {
		return ErrChannel
	}
	f.ch = ch
	f.Selected = append(f.Selected, ch)
	return nil
}

// StartConversion marks a conversion pending.
func (f *Fake) StartConversion() error {
	f.pending = true
	return nil
}

// ReadSample returns the next scripted value for the selected channel.
func (f *Fake) ReadSample() (uint16, error) {
	if !f.pending {
		return 0, ErrNoConversion
	}
	f.pending = false

	if f.ReadError != nil {
		return 0, f.ReadError
	}

	samples := f.Samples[f.ch]
	if len(samples) == 0 {
		return 0, errors.New("no samples configured")
	}
	i := f.index[f.ch]
	if i < len(samples)-1 {
		f.index[f.ch]++
	}
	return samples[i], nil
}

// Close marks the ADC as closed.
func (f *Fake) Close() error {
	f.Closed = true
	return nil
}
