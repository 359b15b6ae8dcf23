// Package ring provides a fixed-capacity single-producer/single-consumer
// circular buffer of samples.
//
// The producer only advances the write cursor and the consumer only advances
// the read cursor. Both cursors grow monotonically and are published with
// atomics, so neither side takes a lock. The write cursor never runs ahead
// of the read cursor by more than the capacity, and the consumer never sees
// samples that are not written yet.
package ring

import "sync/atomic"

// Buffer is a lock-free SPSC ring of interleaved float32 samples.
type Buffer struct {
	data  []float32
	size  uint64
	read  atomic.Uint64
	write atomic.Uint64
}

// New allocates a buffer that holds up to capacity samples.
func New(capacity int) *Buffer {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer{
		data: make([]float32, capacity),
		size: uint64(capacity),
	}
}

// Cap returns the capacity of the buffer in samples.
func (b *Buffer) Cap() int {
	return int(b.size)
}

// Len returns the number of samples available to the consumer.
func (b *Buffer) Len() int {
	return int(b.write.Load() - b.read.Load())
}

// Free returns the number of samples the producer can write.
func (b *Buffer) Free() int {
	return int(b.size - (b.write.Load() - b.read.Load()))
}

// Written returns the total number of samples ever written.
func (b *Buffer) Written() uint64 {
	return b.write.Load()
}

// Consumed returns the total number of samples ever read.
func (b *Buffer) Consumed() uint64 {
	return b.read.Load()
}

// Write copies as many samples from src as fit and returns their number.
// Must only be called by the producer.
func (b *Buffer) Write(src []float32) int {
	w := b.write.Load()
	free := b.size - (w - b.read.Load())
	n := uint64(len(src))
	if n > free {
		n = free
	}
	if n == 0 {
		return 0
	}
	pos := w % b.size
	first := copy(b.data[pos:], src[:n])
	copy(b.data, src[first:n])
	b.write.Store(w + n)
	return int(n)
}

// Read copies up to len(dst) available samples into dst and returns their
// number. Must only be called by the consumer.
func (b *Buffer) Read(dst []float32) int {
	r := b.read.Load()
	available := b.write.Load() - r
	n := uint64(len(dst))
	if n > available {
		n = available
	}
	if n == 0 {
		return 0
	}
	pos := r % b.size
	end := pos + n
	if end <= b.size {
		copy(dst, b.data[pos:end])
	} else {
		first := copy(dst, b.data[pos:])
		copy(dst[first:n], b.data[:end-b.size])
	}
	b.read.Store(r + n)
	return int(n)
}

// Reset drops all buffered samples. It must not be called while the
// producer or the consumer is active.
func (b *Buffer) Reset() {
	b.read.Store(0)
	b.write.Store(0)
}
