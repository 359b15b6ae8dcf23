package tone_test

import (
	"context"
	"fmt"
	"time"

	"github.com/go-audio/audio"

	"github.com/dudk/tone"
	"github.com/dudk/tone/graph"
	"github.com/dudk/tone/mock"
)

// Reads the first period of a plucked tone without an output device.
func Example() {
	b := graph.NewBuilder(44100)
	g, err := b.Build(b.Product(
		b.Sine(440),
		b.AR(10*time.Millisecond, 500*time.Millisecond),
	))
	if err != nil {
		fmt.Println(err)
		return
	}
	p, err := tone.New(g, tone.StreamConfig{
		Format:    audio.Format{SampleRate: 44100, NumChannels: 2},
		BlockSize: 441,
	})
	if err != nil {
		fmt.Println(err)
		return
	}
	p.Prefill()
	dst := make([]float32, 2*441)
	p.Read(dst)
	fmt.Println(p.State(), dst[0], dst[1])
	fmt.Println(p.Stats().Underruns)
	// Output:
	// steady 0 0
	// 0
}

// Plays a chord for half a second with a headless sink.
func ExamplePipeline_Play() {
	b := graph.NewBuilder(44100)
	g, err := b.Build(b.Mix(b.Sine(261.6), b.Sine(329.628), b.Sine(391.995)))
	if err != nil {
		fmt.Println(err)
		return
	}
	p, err := tone.New(g, tone.StreamConfig{
		Format:    audio.Format{SampleRate: 44100, NumChannels: 2},
		BlockSize: 512,
	}, tone.WithName("chord"))
	if err != nil {
		fmt.Println(err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	sink := &mock.Sink{Interval: 11 * time.Millisecond}
	if err := p.Play(ctx, sink); err != nil {
		fmt.Println(err)
	}
}
