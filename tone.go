package tone

import (
	"errors"

	"github.com/go-audio/audio"
	"github.com/rs/xid"

	"github.com/dudk/tone/signal"
)

var (
	// ErrDeviceUnavailable is returned by sinks when no output device can
	// be opened.
	ErrDeviceUnavailable = errors.New("device unavailable")
	// ErrInvalidConfig is returned when the stream config doesn't match
	// the source or has non-positive dimensions.
	ErrInvalidConfig = errors.New("invalid stream config")
	// ErrInvalidState is returned if pipeline method cannot be executed at
	// this moment.
	ErrInvalidState = errors.New("invalid state")
)

// Source renders consecutive frames starting at provided sample index into
// the buffer. It's called only by the producer and must not allocate.
// graph.Graph implements this interface.
type Source interface {
	SampleRate() int
	NumChannels() int
	Render(index uint64, buf signal.Float64)
}

// StreamConfig describes the stream negotiated with an output device.
type StreamConfig struct {
	Format audio.Format
	// BlockSize is the number of frames in a single device period.
	BlockSize int
}

// PeriodSamples returns the number of interleaved samples in one period.
func (c StreamConfig) PeriodSamples() int {
	return c.BlockSize * c.Format.NumChannels
}

// Callback fills dst with interleaved samples. It's called from the device
// thread and never blocks.
type Callback func(dst []float32)

// Sink is an output device. Open must start pulling samples through the
// callback and return. After Close returns, the callback is not called
// anymore.
type Sink interface {
	Open(pipeID string, cfg StreamConfig, cb Callback) error
	Close() error
}

// Logger is a global interface for pipeline loggers.
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
	Warn(...interface{})
}

// newUID returns new unique id value.
func newUID() string {
	return xid.New().String()
}

type silentLogger struct{}

func (silentLogger) Debug(args ...interface{}) {}

func (silentLogger) Info(args ...interface{}) {}

func (silentLogger) Warn(args ...interface{}) {}

var defaultLogger silentLogger
