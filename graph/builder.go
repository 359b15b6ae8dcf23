package graph

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/dudk/tone/signal"
)

// Builder constructs a graph from primitives and combinators. Nodes can only
// reference nodes created before them, so a built graph has no cycles.
// Builder is not safe for concurrent use.
type Builder struct {
	sampleRate int
	slots      []slot
	envelopes  []Node
	errs       Errors
}

// NewBuilder returns a builder for graphs evaluated at provided sample rate.
func NewBuilder(sampleRate int) *Builder {
	b := &Builder{sampleRate: sampleRate}
	if sampleRate <= 0 {
		b.fail("sample rate %d", sampleRate)
	}
	return b
}

// SampleRate returns the sample rate of built graphs.
func (b *Builder) SampleRate() int {
	return b.sampleRate
}

// Constant returns a node producing a fixed value.
func (b *Builder) Constant(value float64) Node {
	if !finite(value) {
		b.fail("constant %v", value)
	}
	return b.add(slot{kind: kindConstant, value: value})
}

// Oscillator returns a node producing the waveform at fixed frequency.
// Frequency must be in [0, sampleRate/2].
func (b *Builder) Oscillator(wave Waveform, hz float64) Node {
	if !finite(hz) || hz < 0 || (b.sampleRate > 0 && hz > float64(b.sampleRate)/2) {
		b.fail("%v oscillator frequency %v", wave, hz)
	}
	b.checkWaveform(wave)
	return b.add(slot{
		kind: kindOscillator,
		osc:  oscillator{wave: wave, freq: hz, input: noNode},
	})
}

// Sine returns a sine oscillator.
func (b *Builder) Sine(hz float64) Node {
	return b.Oscillator(Sine, hz)
}

// Square returns a square oscillator.
func (b *Builder) Square(hz float64) Node {
	return b.Oscillator(Square, hz)
}

// Saw returns a saw oscillator.
func (b *Builder) Saw(hz float64) Node {
	return b.Oscillator(Saw, hz)
}

// Triangle returns a triangle oscillator.
func (b *Builder) Triangle(hz float64) Node {
	return b.Oscillator(Triangle, hz)
}

// FM returns an oscillator which reads its frequency in Hz from the freq
// node on every sample.
func (b *Builder) FM(wave Waveform, freq Node) Node {
	b.check(freq)
	b.checkWaveform(wave)
	return b.add(slot{
		kind: kindOscillator,
		osc:  oscillator{wave: wave, input: freq},
	})
}

// Mod returns a frequency modulated sine voice: the carrier frequency is
// deviated by hz·index with a modulator running at hz·ratio.
func (b *Builder) Mod(hz, ratio, index float64) Node {
	if !finite(index) || index < 0 {
		b.fail("modulation index %v", index)
	}
	modulator := b.Sine(hz * ratio)
	return b.FM(Sine, b.Offset(b.Gain(modulator, hz*index), hz))
}

// Envelope returns an envelope node.
func (b *Builder) Envelope(e Envelope) Node {
	if e.Attack < 0 || e.Decay < 0 || e.Release < 0 {
		b.fail("envelope durations %v/%v/%v", e.Attack, e.Decay, e.Release)
	}
	if !finite(e.Sustain) || e.Sustain < 0 || e.Sustain > 1 {
		b.fail("envelope sustain level %v", e.Sustain)
	}
	if e.Shape != ShapeADSR && e.Shape != ShapeAR {
		b.fail("envelope shape %d", e.Shape)
	}
	initial := Attack
	if e.Idle {
		initial = Idle
	}
	env := envelope{
		shape:   e.Shape,
		attack:  b.samples(e.Attack),
		decay:   b.samples(e.Decay),
		release: b.samples(e.Release),
		sustain: e.Sustain,
		gate:    len(b.envelopes),
		initial: initial,
	}
	env.reset()
	n := b.add(slot{kind: kindEnvelope, env: env})
	b.envelopes = append(b.envelopes, n)
	return n
}

// ADSR returns an attack-decay-sustain-release envelope.
func (b *Builder) ADSR(attack, decay time.Duration, sustain float64, release time.Duration) Node {
	return b.Envelope(Envelope{
		Shape:   ShapeADSR,
		Attack:  attack,
		Decay:   decay,
		Sustain: sustain,
		Release: release,
	})
}

// AR returns an attack-release envelope.
func (b *Builder) AR(attack, release time.Duration) Node {
	return b.Envelope(Envelope{
		Shape:   ShapeAR,
		Attack:  attack,
		Release: release,
	})
}

// Sum returns a node producing the sum of children.
func (b *Builder) Sum(children ...Node) Node {
	return b.combine(kindSum, children)
}

// Product returns a node producing the product of children.
func (b *Builder) Product(children ...Node) Node {
	return b.combine(kindProduct, children)
}

// Gain returns a node producing the child scaled by factor.
func (b *Builder) Gain(child Node, factor float64) Node {
	b.check(child)
	if !finite(factor) {
		b.fail("gain factor %v", factor)
	}
	return b.add(slot{kind: kindGain, value: factor, children: []Node{child}})
}

// Offset returns a node producing the child shifted by offset.
func (b *Builder) Offset(child Node, offset float64) Node {
	b.check(child)
	if !finite(offset) {
		b.fail("offset %v", offset)
	}
	return b.add(slot{kind: kindOffset, value: offset, children: []Node{child}})
}

// Mix returns the sum of children scaled by 1/len(children), so that mixing
// full scale signals never clips.
func (b *Builder) Mix(children ...Node) Node {
	if len(children) == 0 {
		return b.Sum()
	}
	return b.Gain(b.Sum(children...), 1/float64(len(children)))
}

// Clone copies the subtree of n with independent state. Nodes shared inside
// the subtree stay shared in the copy.
func (b *Builder) Clone(n Node) Node {
	if !b.check(n) {
		return n
	}
	return b.clone(n, make(map[Node]Node))
}

func (b *Builder) clone(n Node, copies map[Node]Node) Node {
	if c, ok := copies[n]; ok {
		return c
	}
	s := b.slots[n]
	if s.children != nil {
		children := make([]Node, len(s.children))
		for i, child := range s.children {
			children[i] = b.clone(child, copies)
		}
		s.children = children
	}
	if s.kind == kindOscillator && s.osc.input != noNode {
		s.osc.input = b.clone(s.osc.input, copies)
	}
	var c Node
	if s.kind == kindEnvelope {
		s.env.gate = len(b.envelopes)
		s.env.reset()
		c = b.add(s)
		b.envelopes = append(b.envelopes, c)
	} else {
		s.osc.phase = 0
		c = b.add(s)
	}
	copies[n] = c
	return c
}

// Build returns the graph with provided roots, one per channel. All errors
// collected during construction are returned.
func (b *Builder) Build(roots ...Node) (*Graph, error) {
	if len(roots) == 0 {
		b.fail("graph without roots")
	}
	for _, r := range roots {
		b.check(r)
	}
	if err := b.errs.ret(); err != nil {
		return nil, err
	}
	g := &Graph{
		sampleRate: b.sampleRate,
		rate:       float64(b.sampleRate),
		slots:      make([]slot, len(b.slots)),
		roots:      append([]Node(nil), roots...),
		envelopes:  append([]Node(nil), b.envelopes...),
		gates:      make([]atomic.Uint32, len(b.envelopes)),
	}
	copy(g.slots, b.slots)
	return g, nil
}

func (b *Builder) add(s slot) Node {
	b.slots = append(b.slots, s)
	return Node(len(b.slots) - 1)
}

func (b *Builder) combine(k kind, children []Node) Node {
	if len(children) == 0 {
		b.fail("%v without children", k)
	}
	for _, c := range children {
		b.check(c)
	}
	return b.add(slot{kind: k, children: append([]Node(nil), children...)})
}

// check records an error if node doesn't belong to this builder.
func (b *Builder) check(n Node) bool {
	if n < 0 || int(n) >= len(b.slots) {
		b.fail("unknown node %d", n)
		return false
	}
	return true
}

func (b *Builder) checkWaveform(w Waveform) {
	if w > Triangle {
		b.fail("waveform %d", w)
	}
}

func (b *Builder) samples(d time.Duration) int {
	if d <= 0 || b.sampleRate <= 0 {
		return 0
	}
	return signal.SamplesOf(b.sampleRate, d)
}

func (b *Builder) fail(format string, args ...interface{}) {
	b.errs = append(b.errs, fmt.Errorf("%w: "+format, append([]interface{}{ErrInvalidParameter}, args...)...))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
