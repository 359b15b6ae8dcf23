// Package mock provides test doubles for tone pipelines: a headless sink
// that pulls blocks on a ticker and a source that renders a ramp of sample
// indices.
package mock

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-audio/audio"

	"github.com/dudk/tone"
	"github.com/dudk/tone/signal"
)

// rampPeriod is the number of distinct ramp values.
const rampPeriod = 1000

// Ramp returns the value rendered by Source for the sample index. The value
// is never zero, so silence can be told apart from rendered samples.
func Ramp(index uint64) float32 {
	return float32(float64(index%rampPeriod+1) / (rampPeriod + 1))
}

// counter counts blocks and samples.
type counter struct {
	m        sync.Mutex
	messages int64
	samples  int64
}

func (c *counter) advance(samples int) {
	c.m.Lock()
	c.messages++
	c.samples += int64(samples)
	c.m.Unlock()
}

// Count returns number of blocks and samples.
func (c *counter) Count() (int64, int64) {
	c.m.Lock()
	defer c.m.Unlock()
	return c.messages, c.samples
}

// Source renders Ramp values into every channel. It can be stalled to
// simulate a producer that doesn't keep up.
type Source struct {
	Rate     int
	Channels int
	counter

	stalled atomic.Bool
	mu      sync.Mutex
	resume  chan struct{}
}

// SampleRate returns the sample rate of the source.
func (s *Source) SampleRate() int {
	return s.Rate
}

// NumChannels returns the number of channels of the source.
func (s *Source) NumChannels() int {
	return s.Channels
}

// Render writes ramp values starting at index. If the source is stalled,
// Render blocks until Resume is called.
func (s *Source) Render(index uint64, buf signal.Float64) {
	if s.stalled.Load() {
		s.mu.Lock()
		resume := s.resume
		s.mu.Unlock()
		if resume != nil {
			<-resume
		}
	}
	for i := 0; i < buf.Size(); i++ {
		v := float64(Ramp(index + uint64(i)))
		for c := range buf {
			buf[c][i] = v
		}
	}
	s.advance(buf.Size())
}

// Stall makes following Render calls block.
func (s *Source) Stall() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resume == nil {
		s.resume = make(chan struct{})
	}
	s.stalled.Store(true)
}

// Resume releases blocked Render calls.
func (s *Source) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stalled.Store(false)
	if s.resume != nil {
		close(s.resume)
		s.resume = nil
	}
}

// Sink is a headless output device. After Open it calls the callback with
// a block of one period every Interval, or as fast as possible if Interval
// is zero, until Limit blocks are pulled or Close is called. All pulled
// samples are captured into Buffer.
type Sink struct {
	Interval time.Duration
	Limit    int
	// Err makes Open fail as if no device is available.
	Err error
	counter

	mu       sync.Mutex
	buffer   *audio.Float32Buffer
	pipeID   string
	done     chan struct{}
	finished chan struct{}
	wg       sync.WaitGroup
}

// Open starts pulling blocks from the callback.
func (s *Sink) Open(pipeID string, cfg tone.StreamConfig, cb tone.Callback) error {
	if s.Err != nil {
		return fmt.Errorf("%w: %v", tone.ErrDeviceUnavailable, s.Err)
	}
	s.mu.Lock()
	s.pipeID = pipeID
	s.buffer = &audio.Float32Buffer{
		Format: &audio.Format{
			NumChannels: cfg.Format.NumChannels,
			SampleRate:  cfg.Format.SampleRate,
		},
		Data:           make([]float32, 0, s.Limit*cfg.PeriodSamples()),
		SourceBitDepth: 32,
	}
	s.done = make(chan struct{})
	s.finished = make(chan struct{})
	s.mu.Unlock()

	block := make([]float32, cfg.PeriodSamples())
	s.wg.Add(1)
	go s.pull(cb, block, s.done, s.finished)
	return nil
}

func (s *Sink) pull(cb tone.Callback, block []float32, done, finished chan struct{}) {
	defer s.wg.Done()
	var tick <-chan time.Time
	if s.Interval > 0 {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for n := 0; s.Limit == 0 || n < s.Limit; n++ {
		if tick != nil {
			select {
			case <-done:
				return
			case <-tick:
			}
		} else {
			select {
			case <-done:
				return
			default:
			}
		}
		cb(block)
		s.capture(block)
	}
	close(finished)
}

func (s *Sink) capture(block []float32) {
	s.mu.Lock()
	s.buffer.Data = append(s.buffer.Data, block...)
	s.mu.Unlock()
	s.advance(len(block))
}

// Close stops pulling and waits until the callback isn't called anymore.
func (s *Sink) Close() error {
	s.mu.Lock()
	done := s.done
	s.done = nil
	s.mu.Unlock()
	if done == nil {
		return nil
	}
	close(done)
	s.wg.Wait()
	return nil
}

// Finished returns a channel which is closed when Limit blocks are pulled.
// It must be called after Open.
func (s *Sink) Finished() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.finished
}

// Buffer returns captured samples.
func (s *Sink) Buffer() *audio.Float32Buffer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buffer
}

// PipeID returns the id of the pipeline which opened the sink.
func (s *Sink) PipeID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pipeID
}
