package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/dudk/tone/graph"
)

// C major triad.
var cMajor = []float64{261.6, 329.628, 391.995}

// hammond drawbar partials: harmonic ratio and level.
var drawbars = [][2]float64{
	{1, 1},
	{2, 0.5},
	{3, 0.35},
	{4, 0.25},
	{6, 0.15},
	{8, 0.1},
}

type preset struct {
	help  string
	build func(b *graph.Builder) graph.Node
}

var presets = map[string]preset{
	"sine440": {
		help: "sine wave at 440 Hz",
		build: func(b *graph.Builder) graph.Node {
			return b.Gain(b.Sine(440), 0.5)
		},
	},
	"cmajor": {
		help: "C major chord of sine waves",
		build: func(b *graph.Builder) graph.Node {
			voices := make([]graph.Node, len(cMajor))
			for i, hz := range cMajor {
				voices[i] = b.Sine(hz)
			}
			return b.Product(b.Mix(voices...), b.ADSR(20*time.Millisecond, 100*time.Millisecond, 0.8, 300*time.Millisecond))
		},
	},
	"hammond": {
		help: "C major chord of drawbar organ tones",
		build: func(b *graph.Builder) graph.Node {
			voices := make([]graph.Node, len(cMajor))
			for i, hz := range cMajor {
				voices[i] = hammond(b, hz)
			}
			return b.Product(b.Mix(voices...), b.ADSR(5*time.Millisecond, 50*time.Millisecond, 0.9, 100*time.Millisecond))
		},
	},
	"fm": {
		help: "frequency modulated sine at 440 Hz",
		build: func(b *graph.Builder) graph.Node {
			return b.Gain(b.Mod(440, 1, 5), 0.3)
		},
	},
	"pluck": {
		help: "sine at 440 Hz with attack-release envelope",
		build: func(b *graph.Builder) graph.Node {
			return b.Product(b.Sine(440), b.AR(10*time.Millisecond, 500*time.Millisecond))
		},
	},
}

// hammond returns the sum of drawbar partials normalized to full scale.
func hammond(b *graph.Builder, hz float64) graph.Node {
	var total float64
	partials := make([]graph.Node, 0, len(drawbars))
	for _, d := range drawbars {
		if hz*d[0] > float64(b.SampleRate())/2 {
			continue
		}
		partials = append(partials, b.Gain(b.Sine(hz*d[0]), d[1]))
		total += d[1]
	}
	return b.Gain(b.Sum(partials...), 1/total)
}

// buildPreset returns the graph of the named preset.
func buildPreset(name string, sampleRate int) (*graph.Graph, error) {
	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset %q", name)
	}
	b := graph.NewBuilder(sampleRate)
	return b.Build(p.build(b))
}

func presetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
