// Package monitor contains the rail monitoring engine: sample averaging,
// threshold classification and status pin encoding.
// This package has NO hardware dependencies. The ADC and pins are injected
// through small interfaces, and time is always passed in as a parameter.
package monitor

import "time"

// Rail identifies one of the monitored supply rails.
// The numeric value is the rail's bit position in the status field and is
// part of the contract with the host FPGA.
type Rail uint8

const (
	Rail5V  Rail = 0
	RailVIO Rail = 1
	Rail3V3 Rail = 2
)

// NumRails is the number of monitored rails.
const NumRails = 3

// Rails lists the rails in sampling order.
var Rails = [NumRails]Rail{Rail5V, RailVIO, Rail3V3}

// String returns the rail name used in logs and payloads.
func (r Rail) String() string {
	switch r {
	case Rail5V:
		return "5V"
	case RailVIO:
		return "VIO"
	case Rail3V3:
		return "3V3"
	}
	return "UNKNOWN"
}

// Bit returns the rail's mask in the status field.
func (r Rail) Bit() StatusField {
	return StatusField(1) << r
}

// StatusField is the 3-bit rail health field. A set bit means the rail is in spec.
type StatusField uint8

// StatusMask covers the three rail bits.
const StatusMask StatusField = 0x7

// Set marks a rail good or bad, leaving the other bits untouched.
func (s *StatusField) Set(r Rail, good bool) {
	if good {
		*s |= r.Bit()
	} else {
		*s &^= r.Bit()
	}
}

// Good reports whether the rail's bit is set.
func (s StatusField) Good(r Rail) bool {
	return s&r.Bit() != 0
}

// Encode returns the value to drive onto the status pins.
// In direct mode the field is driven verbatim (set = good); otherwise the
// complement is driven (set = bad).
func (s StatusField) Encode(direct bool) uint8 {
	if direct {
		return uint8(s & StatusMask)
	}
	return uint8(^s & StatusMask)
}

// Reading is the most recent averaged measurement of a rail.
type Reading struct {
	Rail       Rail
	Average    uint16 // averaged raw ADC counts
	Millivolts uint32 // after the ADC scale, i.e. at the divider output
	InSpec     bool
	Valid      bool // false until the rail's window has filled
}

// Report is the outcome of one engine iteration.
type Report struct {
	Status   StatusField
	Pins     uint8 // value written to the status pins
	Direct   bool  // mode pin level at report time
	Ready    bool  // windows have filled and Status reflects measurements
	Readings [NumRails]Reading
}

// EventType represents a rail health transition.
type EventType string

const (
	EventRailGood EventType = "RAIL_GOOD"
	EventRailBad  EventType = "RAIL_BAD"
)

// Event represents a rail transition to be published.
type Event struct {
	Timestamp  time.Time
	Type       EventType
	Rail       Rail
	Millivolts uint32
	Status     StatusField
}

// EventCounts tracks transitions per rail since startup.
type EventCounts struct {
	Good [NumRails]int
	Bad  [NumRails]int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
