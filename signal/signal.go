// Package signal provides the sample domain shared by the graph, the pipeline
// and the sinks. It allows to:
//	- hold non-interleaved float64 blocks rendered by the graph
//	- clamp and interleave them into float32 device buffers
//	- encode device buffers into integer or float byte formats
package signal

import (
	"encoding/binary"
	"math"
	"time"
)

// Float64 is a non-interleaved float64 signal.
type Float64 [][]float64

const (
	// BitDepth8 is 8 bit depth.
	BitDepth8 = BitDepth(8)
	// BitDepth16 is 16 bit depth.
	BitDepth16 = BitDepth(16)
	// BitDepth32 is 32 bit depth.
	BitDepth32 = BitDepth(32)
)

// BitDepth contains values required for float-to-int conversion.
type BitDepth int

// multiplier is used when float to int conversion is done.
func (bitDepth BitDepth) multiplier() float64 {
	switch bitDepth {
	case BitDepth8:
		return math.MaxInt8
	case BitDepth16:
		return math.MaxInt16
	case BitDepth32:
		return math.MaxInt32
	default:
		return 1
	}
}

// Format is a sample encoding accepted by output devices.
type Format int

const (
	// Float32LE is a little-endian IEEE 754 float, 4 bytes per sample.
	Float32LE Format = iota
	// Int16LE is a little-endian signed 16 bit integer, 2 bytes per sample.
	Int16LE
	// Uint8 is an unsigned 8 bit integer with 128 as silence.
	Uint8
)

// BytesPerSample returns the encoded size of one sample.
func (f Format) BytesPerSample() int {
	switch f {
	case Int16LE:
		return 2
	case Uint8:
		return 1
	default:
		return 4
	}
}

// BitDepth returns the integer depth samples are scaled to. Float formats
// return BitDepth32.
func (f Format) BitDepth() BitDepth {
	switch f {
	case Int16LE:
		return BitDepth16
	case Uint8:
		return BitDepth8
	default:
		return BitDepth32
	}
}

func (f Format) String() string {
	switch f {
	case Float32LE:
		return "f32le"
	case Int16LE:
		return "s16le"
	case Uint8:
		return "u8"
	}
	return "unknown"
}

// Clamp limits the sample to the [-1, 1] range. NaN is mapped to silence.
func Clamp(v float64) float64 {
	switch {
	case v != v:
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}

// DurationOf returns time duration of passed samples for this sample rate.
func DurationOf(sampleRate int, samples int64) time.Duration {
	return time.Duration(float64(samples) / float64(sampleRate) * float64(time.Second))
}

// SamplesOf returns number of samples closest to the duration at this sample rate.
func SamplesOf(sampleRate int, d time.Duration) int {
	return int(math.Round(d.Seconds() * float64(sampleRate)))
}

// EmptyFloat64 returns an empty buffer of specified dimentions.
func EmptyFloat64(numChannels int, bufferSize int) Float64 {
	result := make([][]float64, numChannels)
	for i := range result {
		result[i] = make([]float64, bufferSize)
	}
	return result
}

// NumChannels returns number of channels in this sample slice
func (floats Float64) NumChannels() int {
	return len(floats)
}

// Size returns number of samples in single block in this sample slice
func (floats Float64) Size() int {
	if floats.NumChannels() == 0 {
		return 0
	}
	return len(floats[0])
}

// Interleave clamps the first frames of the signal and writes them
// interleaved into dst. It returns the number of samples written, which is
// limited by both the signal size and the dst capacity. No allocation happens.
func (floats Float64) Interleave(dst []float32, frames int) int {
	numChannels := floats.NumChannels()
	if numChannels == 0 {
		return 0
	}
	if s := floats.Size(); frames > s {
		frames = s
	}
	if f := len(dst) / numChannels; frames > f {
		frames = f
	}
	for i := 0; i < frames; i++ {
		for j := range floats {
			dst[i*numChannels+j] = float32(Clamp(floats[j][i]))
		}
	}
	return frames * numChannels
}

// Encode writes src samples into dst using provided format. It returns the
// number of samples encoded, limited by the dst size. No allocation happens.
func Encode(format Format, src []float32, dst []byte) int {
	bps := format.BytesPerSample()
	n := len(dst) / bps
	if n > len(src) {
		n = len(src)
	}
	multiplier := format.BitDepth().multiplier()
	switch format {
	case Int16LE:
		for i := 0; i < n; i++ {
			v := int16(Clamp(float64(src[i])) * multiplier)
			binary.LittleEndian.PutUint16(dst[i*2:], uint16(v))
		}
	case Uint8:
		for i := 0; i < n; i++ {
			dst[i] = uint8(math.Round(Clamp(float64(src[i]))*multiplier) + 128)
		}
	default:
		for i := 0; i < n; i++ {
			binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(src[i]))
		}
	}
	return n
}
