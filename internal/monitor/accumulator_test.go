package monitor

import "testing"

func TestAccumulatorWarmUp(t *testing.T) {
	a := NewAccumulator()

	for i := 0; i < WindowSize-1; i++ {
		for _, r := range Rails {
			if _, ok := a.Record(r, 500); ok {
				t.Fatalf("iteration %d rail %s: expected not ready during warm-up", i, r)
			}
		}
		a.Advance()
	}

	// The N-th write completes the window for every rail at once
	for _, r := range Rails {
		avg, ok := a.Record(r, 500)
		if !ok {
			t.Fatalf("rail %s: expected ready after %d writes", r, WindowSize)
		}
		if avg != 500 {
			t.Errorf("rail %s: avg got %d, want 500", r, avg)
		}
	}
}

func TestAccumulatorTruncatingMean(t *testing.T) {
	a := NewAccumulator()
	samples := []uint16{305, 306, 307, 308, 309, 310, 311, 312, 313, 318}
	// sum = 3099, mean 309.9 truncates to 309

	var avg uint16
	var ok bool
	for _, s := range samples {
		avg, ok = a.Record(Rail5V, s)
		a.Advance()
	}
	if !ok {
		t.Fatal("expected ready after a full window")
	}
	if avg != 309 {
		t.Errorf("avg: got %d, want 309", avg)
	}
}

func TestAccumulatorNoOverflow(t *testing.T) {
	a := NewAccumulator()

	var avg uint16
	for i := 0; i < WindowSize; i++ {
		avg, _ = a.Record(Rail3V3, 0xFFFF)
		a.Advance()
	}
	if avg != 0xFFFF {
		t.Errorf("avg: got %d, want %d", avg, 0xFFFF)
	}
}

func TestAccumulatorRingOverwritesOldest(t *testing.T) {
	a := NewAccumulator()

	// Fill with 100..109 (mean 104)
	for i := 0; i < WindowSize; i++ {
		a.Record(RailVIO, uint16(100+i))
		a.Advance()
	}
	if a.Cursor() != 0 {
		t.Fatalf("cursor: got %d, want 0 after a full pass", a.Cursor())
	}

	// 11th sample replaces slot 0 (the 100)
	avg, ok := a.Record(RailVIO, 200)
	if !ok {
		t.Fatal("expected ready")
	}
	// (200 + 101..109) = 1145 -> 114
	if avg != 114 {
		t.Errorf("avg: got %d, want 114", avg)
	}

	w := a.Window(RailVIO)
	if w[0] != 200 {
		t.Errorf("slot 0: got %d, want 200", w[0])
	}
	for i := 1; i < WindowSize; i++ {
		if w[i] != uint16(100+i) {
			t.Errorf("slot %d: got %d, want %d", i, w[i], 100+i)
		}
	}
}

func TestAccumulatorRailsIndependent(t *testing.T) {
	a := NewAccumulator()

	var avg5, avgVIO, avg3 uint16
	for i := 0; i < WindowSize; i++ {
		avg5, _ = a.Record(Rail5V, 310)
		avgVIO, _ = a.Record(RailVIO, 113)
		avg3, _ = a.Record(Rail3V3, 205)
		a.Advance()
	}

	if avg5 != 310 || avgVIO != 113 || avg3 != 205 {
		t.Errorf("averages: got (%d, %d, %d), want (310, 113, 205)", avg5, avgVIO, avg3)
	}
}

func TestAccumulatorCursorWraps(t *testing.T) {
	a := NewAccumulator()

	for i := 0; i < 3*WindowSize+4; i++ {
		if a.Cursor() != i%WindowSize {
			t.Fatalf("step %d: cursor got %d, want %d", i, a.Cursor(), i%WindowSize)
		}
		a.Advance()
	}
	if !a.Ready() {
		t.Error("expected ready after wrapping")
	}
}
