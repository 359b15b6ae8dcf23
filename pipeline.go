package tone

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dudk/tone/clock"
	"github.com/dudk/tone/metric"
	"github.com/dudk/tone/ring"
	"github.com/dudk/tone/signal"
)

const (
	defaultBufferPeriods = 8
	defaultPrefill       = 3
	defaultLowWater      = 2
)

// Pipeline delivers samples of the source to a sink through a ring buffer.
// Read is the only method which can be called from the device thread.
type Pipeline struct {
	uid    string
	name   string
	source Source
	cfg    StreamConfig
	period time.Duration

	bufferPeriods   int
	prefillPeriods  int
	lowWaterPeriods int
	prefill         int // samples
	lowWater        int // samples

	clock       *clock.Clock
	ring        *ring.Buffer
	block       signal.Float64 // render buffer of one period
	part        signal.Float64 // view of block for partial periods
	interleaved []float32

	state     atomic.Uint32
	producing atomic.Bool
	closed    atomic.Bool
	demand    chan struct{}
	done      chan struct{}
	closeOnce sync.Once

	generated atomic.Uint64
	delivered atomic.Uint64
	silence   atomic.Uint64
	underruns atomic.Uint64
	fills     atomic.Uint64

	reportMu        sync.Mutex
	reported        uint64
	reportedSilence uint64

	metered bool
	meter   *metric.Meter

	log Logger
}

// Stats holds counters of the pipeline. All sample counts are interleaved
// samples.
type Stats struct {
	Generated uint64 // rendered into the ring buffer
	Delivered uint64 // copied from the ring buffer to the sink
	Silence   uint64 // substituted with zeros
	Underruns uint64
	Fills     uint64
	Elapsed   time.Duration // duration of rendered signal
}

// New creates a new pipeline and applies provided options. The ring buffer
// and render buffers are allocated here, nothing is allocated afterwards.
// Returned pipeline is in Filling state.
func New(source Source, cfg StreamConfig, options ...Option) (*Pipeline, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: nil source", ErrInvalidConfig)
	}
	if cfg.BlockSize <= 0 || cfg.Format.NumChannels <= 0 || cfg.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d frames of %d channels at %d Hz", ErrInvalidConfig, cfg.BlockSize, cfg.Format.NumChannels, cfg.Format.SampleRate)
	}
	if source.SampleRate() != cfg.Format.SampleRate {
		return nil, fmt.Errorf("%w: source sample rate %d doesn't match stream %d", ErrInvalidConfig, source.SampleRate(), cfg.Format.SampleRate)
	}
	if n := source.NumChannels(); n > 1 && n != cfg.Format.NumChannels {
		return nil, fmt.Errorf("%w: source channels %d doesn't match stream %d", ErrInvalidConfig, n, cfg.Format.NumChannels)
	}
	p := &Pipeline{
		uid:             newUID(),
		source:          source,
		cfg:             cfg,
		bufferPeriods:   defaultBufferPeriods,
		prefillPeriods:  defaultPrefill,
		lowWaterPeriods: defaultLowWater,
		demand:          make(chan struct{}, 1),
		done:            make(chan struct{}),
		log:             defaultLogger,
	}
	for _, option := range options {
		if err := option(p); err != nil {
			return nil, err
		}
	}
	if p.prefillPeriods > p.bufferPeriods || p.lowWaterPeriods > p.bufferPeriods {
		return nil, fmt.Errorf("%w: prefill %d and low water %d periods must fit %d buffer periods", ErrInvalidConfig, p.prefillPeriods, p.lowWaterPeriods, p.bufferPeriods)
	}

	numChannels := cfg.Format.NumChannels
	periodSamples := cfg.PeriodSamples()
	p.prefill = p.prefillPeriods * periodSamples
	p.lowWater = p.lowWaterPeriods * periodSamples
	p.period = signal.DurationOf(cfg.Format.SampleRate, int64(cfg.BlockSize))
	p.clock = clock.New(cfg.Format.SampleRate)
	p.ring = ring.New(p.bufferPeriods * periodSamples)
	p.block = signal.EmptyFloat64(numChannels, cfg.BlockSize)
	p.part = make(signal.Float64, numChannels)
	p.interleaved = make([]float32, periodSamples)
	if p.metered {
		p.meter = metric.NewMeter(p, cfg.Format.SampleRate)
	}
	p.log.Debug(fmt.Sprintf("%v created: %d periods of %d frames", p, p.bufferPeriods, cfg.BlockSize))
	return p, nil
}

func (p *Pipeline) String() string {
	if p.name == "" {
		return p.uid
	}
	return fmt.Sprintf("%s %s", p.name, p.uid)
}

// ID returns the unique id of the pipeline.
func (p *Pipeline) ID() string {
	return p.uid
}

// Config returns the stream config of the pipeline.
func (p *Pipeline) Config() StreamConfig {
	return p.cfg
}

// State returns the current delivery state.
func (p *Pipeline) State() State {
	return State(p.state.Load())
}

// Buffered returns the number of samples available for the next request.
func (p *Pipeline) Buffered() int {
	return p.ring.Len()
}

// Prefill renders ahead until the prefill target is buffered and moves the
// pipeline out of Filling. It returns the number of rendered samples.
func (p *Pipeline) Prefill() int {
	n := p.fill(p.prefill)
	p.state.CompareAndSwap(uint32(Filling), uint32(Steady))
	p.log.Debug(fmt.Sprintf("%v prefilled %d samples", p, p.ring.Len()))
	return n
}

// Fill renders the source into the ring buffer until it's full and returns
// the number of rendered samples. Fill is the producer step: it must not be
// called concurrently with Run or with itself.
func (p *Pipeline) Fill() int {
	return p.fill(p.ring.Cap())
}

// fill renders whole frames, at most one period at a time, until target
// samples are buffered or the ring is full.
func (p *Pipeline) fill(target int) int {
	numChannels := p.cfg.Format.NumChannels
	written := 0
	for p.ring.Len() < target {
		frames := p.ring.Free() / numChannels
		if frames == 0 {
			break
		}
		if frames > p.cfg.BlockSize {
			frames = p.cfg.BlockSize
		}
		for c := range p.block {
			p.part[c] = p.block[c][:frames]
		}
		p.source.Render(p.clock.Advance(frames), p.part)
		n := p.part.Interleave(p.interleaved, frames)
		written += p.ring.Write(p.interleaved[:n])
		if p.meter != nil {
			p.meter.Rendered(frames)
		}
	}
	if written > 0 {
		p.fills.Add(1)
		p.generated.Add(uint64(written))
	}
	return written
}

// Read fills dst with buffered samples. It's the callback of the sink and
// is safe to call from the device thread: it never blocks, allocates or
// logs. If not enough samples are buffered, the rest of dst is filled with
// zeros and the underrun is counted. After Close, dst is filled with zeros.
func (p *Pipeline) Read(dst []float32) {
	if p.closed.Load() {
		clear(dst)
		return
	}
	producing := p.producing.Load()
	if !producing && p.lowWater > 0 {
		if l := p.ring.Len(); l < p.lowWater || l < len(dst) {
			p.fill(p.ring.Cap())
		}
	}
	n := p.ring.Read(dst)
	p.delivered.Add(uint64(n))
	if n < len(dst) {
		clear(dst[n:])
		p.silence.Add(uint64(len(dst) - n))
		p.underruns.Add(1)
	}
	p.state.Store(uint32(served(n, len(dst))))
	if producing {
		select {
		case p.demand <- struct{}{}:
		default:
		}
	}
}

// Run starts the producer loop. It keeps the ring buffer full, waking up
// after every request of the sink or once per period, and reports
// underruns. Run returns nil when the context is done or the pipeline is
// closed. It must be started before the sink is opened.
func (p *Pipeline) Run(ctx context.Context) error {
	if !p.producing.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: producer is already running", ErrInvalidState)
	}
	defer p.producing.Store(false)
	return p.run(ctx)
}

func (p *Pipeline) run(ctx context.Context) error {
	ticker := time.NewTicker(p.period)
	defer ticker.Stop()
	p.log.Debug(fmt.Sprintf("%v producer started", p))
	defer p.log.Debug(fmt.Sprintf("%v producer stopped", p))
	for {
		select {
		case <-ctx.Done():
			p.report()
			return nil
		case <-p.done:
			p.report()
			return nil
		default:
		}
		p.fill(p.ring.Cap())
		p.report()
		select {
		case <-ctx.Done():
		case <-p.done:
		case <-p.demand:
		case <-ticker.C:
		}
	}
}

// report logs underruns that happened since the last report.
func (p *Pipeline) report() {
	p.reportMu.Lock()
	defer p.reportMu.Unlock()
	underruns := p.underruns.Load()
	if underruns == p.reported {
		return
	}
	silence := p.silence.Load()
	events, zeros := underruns-p.reported, silence-p.reportedSilence
	p.reported, p.reportedSilence = underruns, silence
	if p.meter != nil {
		p.meter.Underrun(int(events), int(zeros))
	}
	p.log.Warn(fmt.Sprintf("%v underrun: %d requests completed with %d samples of silence", p, events, zeros))
}

// Close releases the producer and makes further requests return silence.
// Consequent calls do nothing.
func (p *Pipeline) Close() error {
	p.closeOnce.Do(func() {
		p.closed.Store(true)
		close(p.done)
		p.report()
		s := p.Stats()
		p.log.Info(fmt.Sprintf("%v closed: delivered %d samples with %d underruns", p, s.Delivered, s.Underruns))
	})
	return nil
}

// Play prefills the buffer, starts the producer and opens the sink. It
// keeps playing until the context is done or the pipeline is closed, then
// closes the sink and the pipeline. Errors of the sink are returned.
func (p *Pipeline) Play(ctx context.Context, sink Sink) error {
	if p.closed.Load() {
		return fmt.Errorf("%w: pipeline is closed", ErrInvalidState)
	}
	if !p.producing.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: producer is already running", ErrInvalidState)
	}
	// the device thread must not render until the sink is closed.
	defer p.producing.Store(false)
	p.Prefill()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return p.run(ctx)
	})
	if err := sink.Open(p.uid, p.cfg, p.Read); err != nil {
		cancel()
		_ = g.Wait()
		return err
	}
	p.log.Info(fmt.Sprintf("%v playing %d Hz %d channels", p, p.cfg.Format.SampleRate, p.cfg.Format.NumChannels))
	g.Go(func() error {
		select {
		case <-ctx.Done():
		case <-p.done:
		}
		err := sink.Close()
		p.Close()
		return err
	})
	return g.Wait()
}

// Stats returns the current counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		Generated: p.generated.Load(),
		Delivered: p.delivered.Load(),
		Silence:   p.silence.Load(),
		Underruns: p.underruns.Load(),
		Fills:     p.fills.Load(),
		Elapsed:   p.clock.Elapsed(),
	}
}
