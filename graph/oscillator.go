package graph

import "math"

// Waveform selects the function that maps oscillator phase to a sample.
type Waveform uint8

const (
	// Sine is sin(2π·phase).
	Sine Waveform = iota
	// Square is +1 for the first half of the cycle and -1 for the second.
	Square
	// Saw rises linearly from -1 to 1 over the cycle.
	Saw
	// Triangle rises from -1 to 1 in the first half and falls back in the second.
	Triangle
)

func (w Waveform) String() string {
	switch w {
	case Sine:
		return "sine"
	case Square:
		return "square"
	case Saw:
		return "saw"
	case Triangle:
		return "triangle"
	}
	return "unknown"
}

// at returns the waveform value for phase in [0, 1).
func (w Waveform) at(phase float64) float64 {
	switch w {
	case Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case Saw:
		return 2*phase - 1
	case Triangle:
		return 1 - 4*math.Abs(phase-0.5)
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}

// oscillator is a phase accumulator.
type oscillator struct {
	wave  Waveform
	freq  float64
	input Node // frequency input, noNode if frequency is fixed
	phase float64
}

// next returns the sample for the current phase and advances the phase by
// one sample of provided frequency. Phase always stays in [0, 1), negative
// frequencies wrap backwards.
func (o *oscillator) next(freq, sampleRate float64) float64 {
	v := o.wave.at(o.phase)
	o.phase += freq / sampleRate
	if o.phase >= 1 || o.phase < 0 {
		o.phase -= math.Floor(o.phase)
		// floor of tiny negative values rounds the sum up to exactly 1.
		if o.phase >= 1 {
			o.phase = 0
		}
	}
	return v
}
