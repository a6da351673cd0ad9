// Package dna brings up the SYZYGY secondary channel: the I2C slave that
// exposes the pod's DNA registers to the carrier at an address derived from
// the geographical address (RGA) resistor.
package dna

import "github.com/sweeney/testpod-monitor/internal/monitor"

// gaBufferMV is the accepted deviation around each GA voltage.
const gaBufferMV = 50

// gaMillivolts are the RGA pin voltages for each geographical address,
// assuming a 3.3V reference and a 10k pull-up on the peripheral.
var gaMillivolts = [16]uint32{
	3147, 2944, 2740, 2538, 2341, 2135, 1926, 1734,
	1535, 1341, 1137, 933, 738, 541, 342, 153,
}

// BaseAddress is the 7-bit I2C address of GA slot 0. Slot i answers at
// BaseAddress+i.
const BaseAddress = 0x30

// AddressFromReading maps a raw RGA reading to a SYZYGY I2C address.
// It returns 0 when the reading matches no slot.
func AddressFromReading(raw uint16) uint8 {
	mv := monitor.Millivolts(raw)
	for i, ga := range gaMillivolts {
		if mv > ga-gaBufferMV && mv < ga+gaBufferMV {
			return BaseAddress + uint8(i)
		}
	}
	return 0
}
