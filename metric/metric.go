// Package metric publishes counters of running components with expvar.
//
// Counters are grouped by the type of the measured component, so all
// pipelines add up to the same counters. Recording never allocates.
package metric

import (
	"expvar"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dudk/tone/signal"
)

const componentsLabel = "tone.components"

const (
	// BlockCounter counts rendered blocks.
	BlockCounter = "Blocks"
	// FrameCounter counts rendered frames.
	FrameCounter = "Frames"
	// GapCounter holds the wall time between the last two rendered blocks.
	GapCounter = "Gap"
	// DurationCounter holds the duration of rendered signal.
	DurationCounter = "Duration"
	// PipelineCounter counts meters created for the component type.
	PipelineCounter = "Pipelines"
	// UnderrunCounter counts requests that could not be fully served.
	UnderrunCounter = "Underruns"
	// SilenceCounter counts samples substituted with silence.
	SilenceCounter = "Silence"
)

var (
	components = metrics{
		m: make(map[string]metric),
	}

	counters = []string{
		BlockCounter,
		FrameCounter,
		GapCounter,
		DurationCounter,
		PipelineCounter,
		UnderrunCounter,
		SilenceCounter,
	}
)

// Get metrics values for provided component type.
func Get(component interface{}) map[string]string {
	return getCounters(getType(component))
}

// GetAll returns counters for all measured components.
func GetAll() map[string]map[string]string {
	m := make(map[string]map[string]string)
	components.Lock()
	defer components.Unlock()
	for component := range components.m {
		m[component] = getCounters(component)
	}
	return m
}

func getCounters(componentType string) map[string]string {
	m := make(map[string]string)
	for _, counter := range counters {
		v := expvar.Get(key(componentType, counter))
		if v != nil {
			m[counter] = v.String()
		}
	}
	return m
}

// Meter records counters of a single pipeline into the counters of its type.
// Rendered must be called by the producer only, Underrun can be called by
// any goroutine.
type Meter struct {
	metric     metric
	sampleRate int
	renderedAt time.Time
}

// NewMeter returns a meter for the component rendering at provided sample
// rate.
func NewMeter(component interface{}, sampleRate int) *Meter {
	m := components.get(getType(component))
	m.pipelines.Add(1)
	return &Meter{
		metric:     m,
		sampleRate: sampleRate,
	}
}

// Rendered records a block of frames written to the buffer.
func (m *Meter) Rendered(frames int) {
	now := time.Now()
	if !m.renderedAt.IsZero() {
		m.metric.gap.set(now.Sub(m.renderedAt))
	}
	m.renderedAt = now
	m.metric.blocks.Add(1)
	m.metric.frames.Add(int64(frames))
	m.metric.duration.add(signal.DurationOf(m.sampleRate, int64(frames)))
}

// Underrun records underrun events and the number of samples that were
// substituted with silence.
func (m *Meter) Underrun(events, silence int) {
	m.metric.underruns.Add(int64(events))
	m.metric.silence.Add(int64(silence))
}

type metrics struct {
	sync.Mutex
	m map[string]metric
}

func (m *metrics) get(componentType string) metric {
	m.Lock()
	defer m.Unlock()
	if metric, ok := m.m[componentType]; ok {
		return metric
	}
	metric := newMetric(componentType)
	m.m[componentType] = metric
	return metric
}

type metric struct {
	pipelines *expvar.Int
	blocks    *expvar.Int
	frames    *expvar.Int
	underruns *expvar.Int
	silence   *expvar.Int
	gap       *duration
	duration  *duration
}

func newMetric(componentType string) metric {
	m := metric{
		pipelines: expvar.NewInt(key(componentType, PipelineCounter)),
		blocks:    expvar.NewInt(key(componentType, BlockCounter)),
		frames:    expvar.NewInt(key(componentType, FrameCounter)),
		underruns: expvar.NewInt(key(componentType, UnderrunCounter)),
		silence:   expvar.NewInt(key(componentType, SilenceCounter)),
		gap:       &duration{},
		duration:  &duration{},
	}
	expvar.Publish(key(componentType, GapCounter), m.gap)
	expvar.Publish(key(componentType, DurationCounter), m.duration)
	return m
}

func key(componentType, counter string) string {
	return fmt.Sprintf("%s.%s.%s", componentsLabel, componentType, counter)
}

func getType(component interface{}) string {
	rv := reflect.ValueOf(component)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	return rv.Type().String()
}

// duration allows to format time.Duration metric values.
type duration struct {
	d atomic.Int64
}

func (v *duration) String() string {
	return fmt.Sprintf("%q", time.Duration(v.d.Load()).String())
}

func (v *duration) add(delta time.Duration) {
	v.d.Add(int64(delta))
}

func (v *duration) set(value time.Duration) {
	v.d.Store(int64(value))
}
