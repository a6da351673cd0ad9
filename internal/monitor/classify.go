package monitor

// ADC transfer constants: a 10-bit converter referenced to 3.3V, roughly
// 3.2mV per count.
const (
	ADCMillivolts = 3300
	ADCBits       = 10
)

// Window is a rail's in-spec range in millivolts at the ADC input, i.e.
// after the board's resistor divider. Both bounds are exclusive.
type Window struct {
	Low  uint32
	High uint32
}

// Contains reports whether mv lies strictly inside the window.
func (w Window) Contains(mv uint32) bool {
	return mv > w.Low && mv < w.High
}

// Windows holds the SYZYGY tolerance bands per rail:
// 5V at +/-10%, VIO (1.8V nominal) and 3.3V at +/-5%.
var Windows = [NumRails]Window{
	Rail5V:  {Low: 897, High: 1096},
	RailVIO: {Low: 340, High: 376},
	Rail3V3: {Low: 624, High: 690},
}

// Millivolts converts raw ADC counts to millivolts using integer arithmetic.
func Millivolts(raw uint16) uint32 {
	return (uint32(raw) * ADCMillivolts) >> ADCBits
}

// Classify reports whether an averaged reading puts the rail in spec.
func Classify(r Rail, avg uint16) bool {
	return Windows[r].Contains(Millivolts(avg))
}
