// Package oto plays tone pipelines with the default output device through
// ebitengine/oto.
package oto

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"

	"github.com/dudk/tone"
	"github.com/dudk/tone/signal"
)

// oto supports a single context per process, it's created by the first
// opened sink and shared by the following ones.
var shared struct {
	sync.Mutex
	context     *oto.Context
	sampleRate  int
	numChannels int
	format      signal.Format
}

func otoFormat(f signal.Format) oto.Format {
	switch f {
	case signal.Int16LE:
		return oto.FormatSignedInt16LE
	case signal.Uint8:
		return oto.FormatUnsignedInt8
	}
	return oto.FormatFloat32LE
}

func context(cfg tone.StreamConfig, format signal.Format) (*oto.Context, error) {
	shared.Lock()
	defer shared.Unlock()
	if shared.context != nil {
		if shared.sampleRate != cfg.Format.SampleRate || shared.numChannels != cfg.Format.NumChannels || shared.format != format {
			return nil, fmt.Errorf("context is already created for %d Hz %d channels %v", shared.sampleRate, shared.numChannels, shared.format)
		}
		return shared.context, nil
	}
	if n := cfg.Format.NumChannels; n != 1 && n != 2 {
		return nil, fmt.Errorf("unsupported number of channels %d", n)
	}
	c, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   cfg.Format.SampleRate,
		ChannelCount: cfg.Format.NumChannels,
		Format:       otoFormat(format),
		BufferSize:   signal.DurationOf(cfg.Format.SampleRate, int64(2*cfg.BlockSize)),
	})
	if err != nil {
		return nil, err
	}
	<-ready
	shared.context = c
	shared.sampleRate = cfg.Format.SampleRate
	shared.numChannels = cfg.Format.NumChannels
	shared.format = format
	return c, nil
}

// Sink plays samples with the default output device.
type Sink struct {
	// Format is the sample format sent to the device. Float32LE is used
	// by default.
	Format signal.Format

	mu     sync.Mutex
	player *oto.Player
	reader *reader
}

// NewSink returns new sink which sends float32 samples to the device.
func NewSink() *Sink {
	return &Sink{Format: signal.Float32LE}
}

// Open creates a player which pulls samples from the callback and starts
// playing.
func (s *Sink) Open(pipeID string, cfg tone.StreamConfig, cb tone.Callback) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player != nil {
		return fmt.Errorf("sink is already opened")
	}
	c, err := context(cfg, s.Format)
	if err != nil {
		return fmt.Errorf("%w: %v", tone.ErrDeviceUnavailable, err)
	}
	if err := c.Err(); err != nil {
		return fmt.Errorf("%w: %v", tone.ErrDeviceUnavailable, err)
	}
	s.reader = newReader(cb, s.Format, cfg.Format.NumChannels, cfg.PeriodSamples())
	s.player = c.NewPlayer(s.reader)
	s.player.SetBufferSize(2 * cfg.PeriodSamples() * s.Format.BytesPerSample())
	s.player.Play()
	return nil
}

// Close pauses the player and detaches the callback.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.player == nil {
		return nil
	}
	s.reader.detach()
	s.player.Pause()
	err := s.player.Err()
	s.player, s.reader = nil, nil
	return err
}

// reader adapts the callback to io.Reader consumed by the player. Read
// doesn't allocate.
type reader struct {
	cb          atomic.Pointer[tone.Callback]
	format      signal.Format
	numChannels int
	samples     []float32
}

func newReader(cb tone.Callback, format signal.Format, numChannels, size int) *reader {
	r := &reader{
		format:      format,
		numChannels: numChannels,
		samples:     make([]float32, size),
	}
	r.cb.Store(&cb)
	return r
}

func (r *reader) detach() {
	r.cb.Store(nil)
}

// Read fills p with whole frames. Silence is returned after the reader is
// detached.
func (r *reader) Read(p []byte) (int, error) {
	frameSize := r.format.BytesPerSample() * r.numChannels
	n := len(p) / frameSize * frameSize
	cb := r.cb.Load()
	if cb == nil {
		clear(p[:n])
		return n, nil
	}
	bps := r.format.BytesPerSample()
	for offset := 0; offset < n; {
		size := (n - offset) / bps
		if size > len(r.samples) {
			size = len(r.samples)
		}
		samples := r.samples[:size]
		(*cb)(samples)
		offset += signal.Encode(r.format, samples, p[offset:n]) * bps
	}
	return n, nil
}
