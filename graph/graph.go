package graph

import (
	"fmt"
	"sync/atomic"

	"github.com/dudk/tone/signal"
)

// Node is a handle of a node in the graph arena.
type Node int32

// noNode marks an absent node reference.
const noNode Node = -1

// kind tags the variant of a node.
type kind uint8

const (
	kindConstant kind = iota
	kindOscillator
	kindEnvelope
	kindSum
	kindProduct
	kindGain
	kindOffset
)

func (k kind) String() string {
	switch k {
	case kindConstant:
		return "constant"
	case kindOscillator:
		return "oscillator"
	case kindEnvelope:
		return "envelope"
	case kindSum:
		return "sum"
	case kindProduct:
		return "product"
	case kindGain:
		return "gain"
	case kindOffset:
		return "offset"
	}
	return "unknown"
}

// slot holds a node variant with its state and the value memoised for the
// last evaluated sample index.
type slot struct {
	kind     kind
	value    float64 // constant value, gain factor or offset
	children []Node
	osc      oscillator
	env      envelope

	evaluated bool
	index     uint64
	out       float64
}

// Graph is a built signal graph. It is not safe for concurrent evaluation,
// only NoteOn and NoteOff can be called from other goroutines.
type Graph struct {
	sampleRate int
	rate       float64
	slots      []slot
	roots      []Node
	envelopes  []Node
	gates      []atomic.Uint32
}

// SampleRate returns the sample rate the graph was built for.
func (g *Graph) SampleRate() int {
	return g.sampleRate
}

// NumChannels returns the number of roots of the graph. Each root produces
// one channel.
func (g *Graph) NumChannels() int {
	return len(g.roots)
}

// Len returns number of nodes in the arena.
func (g *Graph) Len() int {
	return len(g.slots)
}

// Next evaluates the first root for the sample index.
func (g *Graph) Next(index uint64) float64 {
	return g.eval(g.roots[0], index)
}

// Value evaluates any node of the graph for the sample index. Evaluating a
// node advances its state the same way as evaluating it through a parent.
func (g *Graph) Value(n Node, index uint64) float64 {
	return g.eval(n, index)
}

// Render evaluates consecutive sample indices starting at index and writes
// them into buf. If the graph has a single root, its output is copied to all
// channels of buf. Otherwise channel i is produced by root i modulo number
// of roots.
func (g *Graph) Render(index uint64, buf signal.Float64) {
	numChannels := buf.NumChannels()
	size := buf.Size()
	if len(g.roots) == 1 {
		root := g.roots[0]
		for i := 0; i < size; i++ {
			v := g.eval(root, index+uint64(i))
			for c := 0; c < numChannels; c++ {
				buf[c][i] = v
			}
		}
		return
	}
	for i := 0; i < size; i++ {
		for c := 0; c < numChannels; c++ {
			buf[c][i] = g.eval(g.roots[c%len(g.roots)], index+uint64(i))
		}
	}
}

// eval is the single dispatch point for all node variants. Every node is
// evaluated at most once per sample index.
func (g *Graph) eval(n Node, index uint64) float64 {
	s := &g.slots[n]
	if s.evaluated && s.index == index {
		return s.out
	}
	var v float64
	switch s.kind {
	case kindConstant:
		v = s.value
	case kindOscillator:
		freq := s.osc.freq
		if s.osc.input != noNode {
			freq = g.eval(s.osc.input, index)
		}
		v = s.osc.next(freq, g.rate)
	case kindEnvelope:
		if g.gates[s.env.gate].Load() != gateNone {
			switch g.gates[s.env.gate].Swap(gateNone) {
			case gateOn:
				s.env.noteOn()
			case gateOff:
				s.env.noteOff()
			}
		}
		v = s.env.next()
	case kindSum:
		for _, c := range s.children {
			v += g.eval(c, index)
		}
	case kindProduct:
		v = 1
		for _, c := range s.children {
			v *= g.eval(c, index)
		}
	case kindGain:
		v = g.eval(s.children[0], index) * s.value
	case kindOffset:
		v = g.eval(s.children[0], index) + s.value
	}
	s.evaluated, s.index, s.out = true, index, v
	return v
}

// NoteOn requests the envelope to restart its attack. Safe to call from any
// goroutine.
func (g *Graph) NoteOn(n Node) error {
	return g.gate(n, gateOn)
}

// NoteOff requests the envelope to release. Safe to call from any goroutine.
func (g *Graph) NoteOff(n Node) error {
	return g.gate(n, gateOff)
}

// NoteOnAll requests all envelopes of the graph to restart.
func (g *Graph) NoteOnAll() {
	for i := range g.gates {
		g.gates[i].Store(gateOn)
	}
}

// NoteOffAll requests all envelopes of the graph to release.
func (g *Graph) NoteOffAll() {
	for i := range g.gates {
		g.gates[i].Store(gateOff)
	}
}

func (g *Graph) gate(n Node, request uint32) error {
	if !g.valid(n) || g.slots[n].kind != kindEnvelope {
		return fmt.Errorf("%w: node %d is not an envelope", ErrInvalidParameter, n)
	}
	g.gates[g.slots[n].env.gate].Store(request)
	return nil
}

// Stage returns the current stage of the envelope node. It must be called
// from the goroutine that evaluates the graph.
func (g *Graph) Stage(n Node) (Stage, bool) {
	if !g.valid(n) || g.slots[n].kind != kindEnvelope {
		return Idle, false
	}
	return g.slots[n].env.stage, true
}

// Phase returns the current phase of the oscillator node. It must be called
// from the goroutine that evaluates the graph.
func (g *Graph) Phase(n Node) (float64, bool) {
	if !g.valid(n) || g.slots[n].kind != kindOscillator {
		return 0, false
	}
	return g.slots[n].osc.phase, true
}

// Envelopes returns handles of all envelopes in the graph.
func (g *Graph) Envelopes() []Node {
	return append([]Node(nil), g.envelopes...)
}

// Reset brings all nodes to their initial state. It must not be called
// while the graph is evaluated.
func (g *Graph) Reset() {
	for i := range g.slots {
		s := &g.slots[i]
		s.evaluated, s.index, s.out = false, 0, 0
		s.osc.phase = 0
		s.env.reset()
	}
	for i := range g.gates {
		g.gates[i].Store(gateNone)
	}
}

func (g *Graph) valid(n Node) bool {
	return n >= 0 && int(n) < len(g.slots)
}
