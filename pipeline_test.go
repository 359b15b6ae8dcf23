package tone_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dudk/tone"
	"github.com/dudk/tone/graph"
	"github.com/dudk/tone/metric"
	"github.com/dudk/tone/mock"
)

const sampleRate = 44100

func streamConfig(numChannels, blockSize int) tone.StreamConfig {
	return tone.StreamConfig{
		Format:    audio.Format{NumChannels: numChannels, SampleRate: sampleRate},
		BlockSize: blockSize,
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		description string
		source      tone.Source
		cfg         tone.StreamConfig
		options     []tone.Option
		err         error
	}{
		{
			description: "valid mono",
			source:      &mock.Source{Rate: sampleRate, Channels: 1},
			cfg:         streamConfig(1, 64),
		},
		{
			description: "mono source to stereo stream",
			source:      &mock.Source{Rate: sampleRate, Channels: 1},
			cfg:         streamConfig(2, 64),
		},
		{
			description: "nil source",
			cfg:         streamConfig(1, 64),
			err:         tone.ErrInvalidConfig,
		},
		{
			description: "zero block size",
			source:      &mock.Source{Rate: sampleRate, Channels: 1},
			cfg:         streamConfig(1, 0),
			err:         tone.ErrInvalidConfig,
		},
		{
			description: "sample rate mismatch",
			source:      &mock.Source{Rate: 48000, Channels: 1},
			cfg:         streamConfig(1, 64),
			err:         tone.ErrInvalidConfig,
		},
		{
			description: "channels mismatch",
			source:      &mock.Source{Rate: sampleRate, Channels: 2},
			cfg:         streamConfig(3, 64),
			err:         tone.ErrInvalidConfig,
		},
		{
			description: "zero buffer periods",
			source:      &mock.Source{Rate: sampleRate, Channels: 1},
			cfg:         streamConfig(1, 64),
			options:     []tone.Option{tone.WithBufferPeriods(0)},
			err:         tone.ErrInvalidConfig,
		},
		{
			description: "prefill exceeds buffer",
			source:      &mock.Source{Rate: sampleRate, Channels: 1},
			cfg:         streamConfig(1, 64),
			options:     []tone.Option{tone.WithBufferPeriods(2), tone.WithPrefill(3)},
			err:         tone.ErrInvalidConfig,
		},
		{
			description: "negative low water",
			source:      &mock.Source{Rate: sampleRate, Channels: 1},
			cfg:         streamConfig(1, 64),
			options:     []tone.Option{tone.WithLowWater(-1)},
			err:         tone.ErrInvalidConfig,
		},
	}
	for _, test := range tests {
		p, err := tone.New(test.source, test.cfg, test.options...)
		if test.err != nil {
			assert.True(t, errors.Is(err, test.err), test.description)
			assert.Nil(t, p, test.description)
			continue
		}
		require.NoError(t, err, test.description)
		assert.Equal(t, tone.Filling, p.State(), test.description)
		assert.NotEmpty(t, p.ID(), test.description)
	}
}

func TestPrefill(t *testing.T) {
	source := &mock.Source{Rate: sampleRate, Channels: 2}
	p, err := tone.New(source, streamConfig(2, 64), tone.WithName("prefill"))
	require.NoError(t, err)
	assert.Equal(t, tone.Filling, p.State())

	n := p.Prefill()
	assert.Equal(t, 3*64*2, n)
	assert.Equal(t, 3*64*2, p.Buffered())
	assert.Equal(t, tone.Steady, p.State())
	assert.True(t, strings.HasPrefix(p.String(), "prefill "))

	// fill tops up to the capacity of 8 periods.
	n = p.Fill()
	assert.Equal(t, 5*64*2, n)
	assert.Equal(t, 8*64*2, p.Buffered())
	assert.Equal(t, 0, p.Fill())
}

func TestUnderrun(t *testing.T) {
	defer goleak.VerifyNone(t)
	logger, hook := logtest.NewNullLogger()
	source := &mock.Source{Rate: sampleRate, Channels: 1}
	p, err := tone.New(source, streamConfig(1, 64),
		tone.WithPrefill(1),
		tone.WithLowWater(0),
		tone.WithLogger(logger),
	)
	require.NoError(t, err)
	p.Prefill()
	require.Equal(t, 64, p.Buffered())

	// producer is stalled in the middle of rendering.
	source.Stall()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() {
		errc <- p.Run(ctx)
	}()

	dst := make([]float32, 256)
	p.Read(dst)
	for i := 0; i < 64; i++ {
		assert.Equal(t, mock.Ramp(uint64(i)), dst[i])
	}
	assert.Equal(t, make([]float32, 192), dst[64:])
	assert.Equal(t, tone.Underrun, p.State())
	stats := p.Stats()
	assert.Equal(t, uint64(1), stats.Underruns)
	assert.Equal(t, uint64(192), stats.Silence)
	assert.Equal(t, uint64(64), stats.Delivered)

	// producer catches up.
	source.Resume()
	assert.Eventually(t, func() bool {
		return p.Buffered() >= 256
	}, time.Second, time.Millisecond)
	p.Read(dst)
	for i := range dst {
		assert.Equal(t, mock.Ramp(uint64(64+i)), dst[i])
	}
	assert.Equal(t, tone.Steady, p.State())
	assert.Equal(t, uint64(1), p.Stats().Underruns)

	assert.Eventually(t, func() bool {
		for _, e := range hook.AllEntries() {
			if e.Level == logrus.WarnLevel && strings.Contains(e.Message, "underrun") {
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, <-errc)
	require.NoError(t, p.Close())
}

func TestInlineFill(t *testing.T) {
	source := &mock.Source{Rate: sampleRate, Channels: 1}
	p, err := tone.New(source, streamConfig(1, 64))
	require.NoError(t, err)
	p.Prefill()

	dst := make([]float32, 64)
	var index uint64
	for block := 0; block < 100; block++ {
		p.Read(dst)
		for i := range dst {
			assert.Equal(t, mock.Ramp(index), dst[i])
			index++
		}
	}
	assert.Equal(t, tone.Steady, p.State())
	stats := p.Stats()
	assert.Equal(t, uint64(0), stats.Underruns)
	assert.Equal(t, uint64(6400), stats.Delivered)
	assert.True(t, stats.Generated >= stats.Delivered)
	assert.True(t, stats.Generated-stats.Delivered <= 8*64)
}

func TestInlineRecovery(t *testing.T) {
	source := &mock.Source{Rate: sampleRate, Channels: 1}
	p, err := tone.New(source, streamConfig(1, 64),
		tone.WithBufferPeriods(2),
		tone.WithPrefill(1),
		tone.WithLowWater(1),
	)
	require.NoError(t, err)

	// request doesn't fit the buffer.
	dst := make([]float32, 256)
	p.Read(dst)
	assert.Equal(t, mock.Ramp(127), dst[127])
	assert.Equal(t, make([]float32, 128), dst[128:])
	assert.Equal(t, tone.Underrun, p.State())

	// next request is served after refill.
	dst = dst[:64]
	p.Read(dst)
	for i := range dst {
		assert.Equal(t, mock.Ramp(uint64(128+i)), dst[i])
	}
	assert.Equal(t, tone.Steady, p.State())
	assert.Equal(t, uint64(1), p.Stats().Underruns)
}

func TestClose(t *testing.T) {
	defer goleak.VerifyNone(t)
	source := &mock.Source{Rate: sampleRate, Channels: 1}
	p, err := tone.New(source, streamConfig(1, 441))
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		errc <- p.Run(context.Background())
	}()
	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("producer is not released by close")
	}

	// closed pipeline delivers silence.
	dst := []float32{1, 1, 1}
	p.Read(dst)
	assert.Equal(t, []float32{0, 0, 0}, dst)
	assert.True(t, errors.Is(p.Play(context.Background(), &mock.Sink{}), tone.ErrInvalidState))
}

func TestPlay(t *testing.T) {
	defer goleak.VerifyNone(t)
	const limit = 200
	source := &mock.Source{Rate: sampleRate, Channels: 2}
	sink := &mock.Sink{Limit: limit, Interval: 500 * time.Microsecond}
	p, err := tone.New(source, streamConfig(2, 64), tone.WithMetric(), tone.WithName("play"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() {
		errc <- p.Play(ctx, sink)
	}()
	assert.Eventually(t, func() bool {
		messages, _ := sink.Count()
		return messages == limit
	}, 10*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-errc)
	assert.Equal(t, p.ID(), sink.PipeID())

	// rendered samples are delivered in order, gaps are silence.
	data := sink.Buffer().Data
	require.Equal(t, limit*64*2, len(data))
	var index uint64
	for f := 0; f < len(data)/2; f++ {
		v := data[2*f]
		if v == 0 {
			continue
		}
		if !assert.Equal(t, mock.Ramp(index), v) {
			break
		}
		assert.Equal(t, v, data[2*f+1])
		index++
	}
	stats := p.Stats()
	assert.Equal(t, 2*index, stats.Delivered)
	assert.Equal(t, uint64(len(data)), stats.Delivered+stats.Silence)

	values := metric.Get(p)
	assert.NotEmpty(t, values[metric.FrameCounter])
	assert.True(t, errors.Is(p.Play(ctx, sink), tone.ErrInvalidState))
}

// drainingSink requests a full buffer from the pipeline when it's closed.
type drainingSink struct {
	callback  tone.Callback
	size      int
	generated func() uint64
	rendered  bool
	silent    bool
}

func (s *drainingSink) Open(pipeID string, cfg tone.StreamConfig, cb tone.Callback) error {
	s.callback = cb
	return nil
}

func (s *drainingSink) Close() error {
	// let the producer stop first.
	time.Sleep(50 * time.Millisecond)
	before := s.generated()
	dst := make([]float32, s.size)
	s.callback(dst)
	s.callback(dst)
	s.rendered = s.generated() != before
	s.silent = dst[0] == 0 && dst[len(dst)-1] == 0
	return nil
}

func TestPlayStopDoesNotRenderOnDevice(t *testing.T) {
	defer goleak.VerifyNone(t)
	source := &mock.Source{Rate: sampleRate, Channels: 1}
	p, err := tone.New(source, streamConfig(1, 64))
	require.NoError(t, err)
	sink := &drainingSink{
		size:      8 * 64,
		generated: func() uint64 { return p.Stats().Generated },
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, p.Play(ctx, sink))
	assert.False(t, sink.rendered)
	assert.True(t, sink.silent)
	stats := p.Stats()
	assert.Equal(t, uint64(3*64), stats.Generated)
	assert.Equal(t, stats.Generated, stats.Delivered)
}

func TestPlayDeviceUnavailable(t *testing.T) {
	defer goleak.VerifyNone(t)
	source := &mock.Source{Rate: sampleRate, Channels: 1}
	p, err := tone.New(source, streamConfig(1, 64))
	require.NoError(t, err)

	err = p.Play(context.Background(), &mock.Sink{Err: errors.New("no device")})
	assert.True(t, errors.Is(err, tone.ErrDeviceUnavailable))
	require.NoError(t, p.Close())
}

func TestSineTimesAttackRelease(t *testing.T) {
	build := func() *graph.Graph {
		b := graph.NewBuilder(sampleRate)
		g, err := b.Build(b.Product(
			b.Sine(440),
			b.AR(10*time.Millisecond, 500*time.Millisecond),
		))
		require.NoError(t, err)
		return g
	}
	g, expected := build(), build()
	p, err := tone.New(g, streamConfig(1, 441))
	require.NoError(t, err)
	p.Prefill()

	dst := make([]float32, 441)
	for block := 0; block < 4; block++ {
		p.Read(dst)
		for i := range dst {
			index := uint64(block*441 + i)
			assert.Equal(t, float32(expected.Next(index)), dst[i])
		}
	}
	assert.Equal(t, tone.Steady, p.State())
	assert.Equal(t, uint64(0), p.Stats().Underruns)
}
