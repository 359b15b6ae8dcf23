package metric_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dudk/tone/metric"
)

type (
	meteredSource struct{}
	meteredSink   struct{}
)

func TestMeter(t *testing.T) {
	sampleRate := 44100
	var tests = []struct {
		description       string
		component         interface{}
		routines          int
		blocks            int
		frames            int
		expectedBlocks    string
		expectedFrames    string
		expectedPipelines string
		expectedDuration  string
	}{
		{
			description:       "value component",
			component:         meteredSource{},
			routines:          2,
			blocks:            10,
			frames:            441,
			expectedBlocks:    "20",
			expectedFrames:    "8820",
			expectedPipelines: "2",
			expectedDuration:  `"200ms"`,
		},
		{
			description:       "pointer to the same type",
			component:         &meteredSource{},
			routines:          2,
			blocks:            10,
			frames:            441,
			expectedBlocks:    "40",
			expectedFrames:    "17640",
			expectedPipelines: "4",
			expectedDuration:  `"400ms"`,
		},
	}
	render := func(m *metric.Meter, wg *sync.WaitGroup, blocks, frames int) {
		for i := 0; i < blocks; i++ {
			m.Rendered(frames)
		}
		wg.Done()
	}

	for _, test := range tests {
		wg := &sync.WaitGroup{}
		wg.Add(test.routines)
		for i := 0; i < test.routines; i++ {
			go render(metric.NewMeter(test.component, sampleRate), wg, test.blocks, test.frames)
		}
		wg.Wait()
		values := metric.Get(test.component)
		assert.Equal(t, test.expectedBlocks, values[metric.BlockCounter], test.description)
		assert.Equal(t, test.expectedFrames, values[metric.FrameCounter], test.description)
		assert.Equal(t, test.expectedPipelines, values[metric.PipelineCounter], test.description)
		assert.Equal(t, test.expectedDuration, values[metric.DurationCounter], test.description)
		assert.NotEmpty(t, values[metric.GapCounter], test.description)
	}
}

func TestUnderrun(t *testing.T) {
	m := metric.NewMeter(meteredSink{}, 44100)
	m.Underrun(1, 192)
	m.Underrun(2, 64)

	values := metric.Get(&meteredSink{})
	assert.Equal(t, "3", values[metric.UnderrunCounter])
	assert.Equal(t, "256", values[metric.SilenceCounter])
	assert.Equal(t, "0", values[metric.FrameCounter])

	all := metric.GetAll()
	assert.Contains(t, all, "metric_test.meteredSink")
}
