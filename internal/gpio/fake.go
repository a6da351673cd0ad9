package gpio

import "errors"

// FakePort is a test double with a scripted mode pin that records status
// writes.
type FakePort struct {
	// Modes contains scripted mode pin levels (true = high).
	// Each call to ReadMode() consumes the next level.
	Modes []bool

	// index tracks current position in Modes
	index int

	// Writes records every value passed to WriteStatus.
	Writes []uint8

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by ReadMode()
	ReadError error

	// WriteError, if set, will be returned by WriteStatus()
	WriteError error
}

// NewFakePort creates a FakePort with the given mode pin levels.
func NewFakePort(modes ...bool) *FakePort {
	return &FakePort{Modes: modes}
}

// ReadMode returns the next scripted level.
// If levels are exhausted, returns the last level repeatedly.
func (f *FakePort) ReadMode() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Modes) == 0 {
		return false, errors.New("no mode levels configured")
	}

	level := f.Modes[f.index]
	if f.index < len(f.Modes)-1 {
		f.index++
	}

	return level, nil
}

// WriteStatus records the value.
func (f *FakePort) WriteStatus(bits uint8) error {
	if f.WriteError != nil {
		return f.WriteError
	}
	f.Writes = append(f.Writes, bits&0x7)
	return nil
}

// Last returns the most recent status write, or false if none.
func (f *FakePort) Last() (uint8, bool) {
	if len(f.Writes) == 0 {
		return 0, false
	}
	return f.Writes[len(f.Writes)-1], true
}

// Close marks the port as closed.
func (f *FakePort) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the port to the beginning of its script.
func (f *FakePort) Reset() {
	f.index = 0
	f.Writes = nil
	f.Closed = false
}
