package graph

import "time"

// Stage is a stage of an envelope.
type Stage uint8

const (
	// Attack ramps the level up to 1.
	Attack Stage = iota
	// Decay ramps the level from 1 down to the sustain level.
	Decay
	// Sustain holds the sustain level until release.
	Sustain
	// Release ramps the level down to 0.
	Release
	// Idle outputs 0 until the next note on.
	Idle
)

func (s Stage) String() string {
	switch s {
	case Attack:
		return "attack"
	case Decay:
		return "decay"
	case Sustain:
		return "sustain"
	case Release:
		return "release"
	case Idle:
		return "idle"
	}
	return "unknown"
}

// Shape selects the stages an envelope goes through.
type Shape uint8

const (
	// ShapeADSR goes through attack, decay and sustain, and waits for a
	// note off to release.
	ShapeADSR Shape = iota
	// ShapeAR releases as soon as attack is complete.
	ShapeAR
)

// Envelope describes an amplitude envelope.
type Envelope struct {
	Shape   Shape
	Attack  time.Duration
	Decay   time.Duration
	Sustain float64 // level in [0, 1]
	Release time.Duration
	// Idle makes the envelope wait for a note on instead of starting in
	// attack stage.
	Idle bool
}

// gate requests delivered to envelopes.
const (
	gateNone uint32 = iota
	gateOn
	gateOff
)

// envelope is a piecewise linear function of the samples elapsed in stage.
// Zero length stages complete on the sample they start.
type envelope struct {
	shape   Shape
	attack  int
	decay   int
	release int
	sustain float64

	stage   Stage
	elapsed int
	level   float64 // last output value
	from    float64 // level the current ramp started at
	gate    int     // index of the gate request slot
	initial Stage
}

func (e *envelope) reset() {
	e.stage = e.initial
	e.elapsed = 0
	e.level = 0
	e.from = 0
}

// noteOn restarts attack from the current level.
func (e *envelope) noteOn() {
	e.enter(Attack, e.level)
}

// noteOff starts release from the current level.
func (e *envelope) noteOff() {
	if e.stage == Idle || e.stage == Release {
		return
	}
	e.enter(Release, e.level)
}

func (e *envelope) enter(s Stage, from float64) {
	e.stage = s
	e.elapsed = 0
	e.from = from
}

// next returns the level for the current sample and advances the envelope.
func (e *envelope) next() float64 {
	for {
		var v float64
		switch e.stage {
		case Attack:
			if e.elapsed >= e.attack {
				if e.shape == ShapeAR {
					e.enter(Release, 1)
				} else {
					e.enter(Decay, 1)
				}
				continue
			}
			v = e.from + (1-e.from)*float64(e.elapsed)/float64(e.attack)
		case Decay:
			if e.elapsed >= e.decay {
				e.enter(Sustain, e.sustain)
				continue
			}
			v = 1 - (1-e.sustain)*float64(e.elapsed)/float64(e.decay)
		case Sustain:
			v = e.sustain
		case Release:
			if e.elapsed >= e.release {
				e.enter(Idle, 0)
				continue
			}
			v = e.from * (1 - float64(e.elapsed)/float64(e.release))
		default:
			v = 0
		}
		if e.stage != Sustain && e.stage != Idle {
			e.elapsed++
		}
		e.level = v
		return v
	}
}
