package monitor

// WindowSize is the number of samples averaged per rail.
const WindowSize = 10

// Accumulator keeps a fixed ring of recent raw samples for every rail.
// All rails share one write cursor, so they fill and become ready together.
// Not safe for concurrent use; the engine owns it.
type Accumulator struct {
	buf     [NumRails][WindowSize]uint16
	cursor  int  // next write slot, shared by all rails
	wrapped bool // cursor has completed at least one pass
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Ready reports whether a write at the current cursor completes a full
// window. Computed once from the shared cursor, so it holds for every rail.
func (a *Accumulator) Ready() bool {
	return a.wrapped || a.cursor == WindowSize-1
}

// Record stores raw at the cursor in the rail's ring, overwriting the oldest
// sample once the ring is full. It returns the truncated integer mean of the
// window, or ok=false while the window is still filling.
func (a *Accumulator) Record(r Rail, raw uint16) (avg uint16, ok bool) {
	a.buf[r][a.cursor] = raw
	if !a.Ready() {
		return 0, false
	}

	var sum uint32
	for _, s := range a.buf[r] {
		sum += uint32(s)
	}
	return uint16(sum / WindowSize), true
}

// Advance moves the shared cursor to the next slot. Called once per
// iteration, after every rail has been recorded.
func (a *Accumulator) Advance() {
	a.cursor++
	if a.cursor == WindowSize {
		a.cursor = 0
		a.wrapped = true
	}
}

// Cursor returns the slot the next Record call will write.
func (a *Accumulator) Cursor() int {
	return a.cursor
}

// Window returns a copy of a rail's ring in slot order.
func (a *Accumulator) Window(r Rail) [WindowSize]uint16 {
	return a.buf[r]
}
