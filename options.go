package tone

import "fmt"

// Option provides a way to set functional parameters to pipeline.
type Option func(p *Pipeline) error

// WithLogger sets logger to Pipeline. If this option is not provided, silent logger is used.
func WithLogger(logger Logger) Option {
	return func(p *Pipeline) error {
		p.log = logger
		return nil
	}
}

// WithName sets name to Pipeline.
func WithName(n string) Option {
	return func(p *Pipeline) error {
		p.name = n
		return nil
	}
}

// WithMetric enables metrics for this pipeline. Counters are published
// with the metric package.
func WithMetric() Option {
	return func(p *Pipeline) error {
		p.metered = true
		return nil
	}
}

// WithBufferPeriods sets the capacity of the ring buffer in device periods.
// It also bounds how far ahead of the device the producer may run.
func WithBufferPeriods(n int) Option {
	return func(p *Pipeline) error {
		if n < 1 {
			return fmt.Errorf("%w: buffer periods %d", ErrInvalidConfig, n)
		}
		p.bufferPeriods = n
		return nil
	}
}

// WithPrefill sets how many periods Prefill renders ahead.
func WithPrefill(n int) Option {
	return func(p *Pipeline) error {
		if n < 0 {
			return fmt.Errorf("%w: prefill periods %d", ErrInvalidConfig, n)
		}
		p.prefillPeriods = n
		return nil
	}
}

// WithLowWater sets the occupancy in periods below which Read tops the
// buffer up when no producer is running. Zero disables inline rendering.
func WithLowWater(n int) Option {
	return func(p *Pipeline) error {
		if n < 0 {
			return fmt.Errorf("%w: low water periods %d", ErrInvalidConfig, n)
		}
		p.lowWaterPeriods = n
		return nil
	}
}
