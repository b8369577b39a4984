package format

// multipliers maps FMTU MultIds characters to the scale they denote,
// per the ArduPilot log structure tables. 0 means "no unit
// information" (the field code's implicit scale still applies) and 1
// means "already in base units" (the raw value is emitted unscaled).
var multipliers = map[byte]float64{
	'-': 0,
	'?': 1,
	'2': 1e2,
	'1': 1e1,
	'0': 1e0,
	'A': 1e-1,
	'B': 1e-2,
	'C': 1e-3,
	'D': 1e-4,
	'E': 1e-5,
	'F': 1e-6,
	'G': 1e-7,
	'!': 3.6,  // m/s to km/h
	'/': 3600, // hours to seconds
}

// MultiplierFor resolves a MultIds character; unknown characters map
// to 0 (no information).
func MultiplierFor(ch byte) float64 {
	return multipliers[ch]
}
