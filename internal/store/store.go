// Package store holds the per-channel ring buffers EEG samples are
// written into and read back from as chronological windows.
package store

import (
	"sync"

	"github.com/GiovanniFerrara/thebox/internal/transport"
)

// RingBuffer is a fixed-capacity chronological window of the most
// recent samples for one channel. It is safe for one writer and one
// reader to use concurrently (spec.md §5): a single mutex guards the
// backing array, held only for the duration of the copy.
type RingBuffer struct {
	mu       sync.Mutex
	data     []float64
	writePos int
	count    int // number of valid samples, capped at capacity
}

// NewRingBuffer allocates a ring buffer with room for capacity
// samples. capacity must be at least 1.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &RingBuffer{data: make([]float64, capacity)}
}

// Append writes samples into the ring in order, evicting the oldest
// samples once capacity is exceeded. If samples is longer than the
// buffer's capacity, only the trailing capacity samples are kept.
func (r *RingBuffer) Append(samples []float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	capacity := len(r.data)
	n := len(samples)
	if n == 0 {
		return
	}

	if n >= capacity {
		copy(r.data, samples[n-capacity:])
		r.writePos = 0
		r.count = capacity
		return
	}

	end := r.writePos + n
	if end <= capacity {
		copy(r.data[r.writePos:end], samples)
	} else {
		first := capacity - r.writePos
		copy(r.data[r.writePos:], samples[:first])
		copy(r.data[:n-first], samples[first:])
	}

	r.writePos = end % capacity
	if r.count+n > capacity {
		r.count = capacity
	} else {
		r.count += n
	}
}

// Window returns a contiguous, chronologically ordered copy of the
// last n samples (or every available sample if fewer than n have
// ever been written).
func (r *RingBuffer) Window(n int) []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n > r.count {
		n = r.count
	}
	if n <= 0 {
		return []float64{}
	}

	capacity := len(r.data)
	start := ((r.writePos-n)%capacity + capacity) % capacity

	out := make([]float64, n)
	if start+n <= capacity {
		copy(out, r.data[start:start+n])
		return out
	}
	first := capacity - start
	copy(out, r.data[start:])
	copy(out[first:], r.data[:n-first])
	return out
}

// Len returns the number of samples currently buffered.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Store owns one RingBuffer per EEG channel.
type Store struct {
	sampleRate int
	buffers    map[transport.ChannelID]*RingBuffer
}

// New creates a Store whose ring buffers each hold
// ceil(bufferSeconds * sampleRate) samples.
func New(bufferSeconds float64, sampleRate int) *Store {
	capacity := int(bufferSeconds*float64(sampleRate) + 0.999999)
	buffers := make(map[transport.ChannelID]*RingBuffer, len(transport.Channels))
	for _, ch := range transport.Channels {
		buffers[ch] = NewRingBuffer(capacity)
	}
	return &Store{sampleRate: sampleRate, buffers: buffers}
}

func (s *Store) ring(ch transport.ChannelID) *RingBuffer {
	r, ok := s.buffers[ch]
	if !ok {
		panic("store: unknown channel " + ch.String())
	}
	return r
}

// Append appends samples to the named channel's ring buffer.
func (s *Store) Append(ch transport.ChannelID, samples []float64) {
	s.ring(ch).Append(samples)
}

// Window returns the last floor(seconds*sampleRate) samples of the
// channel in chronological order, or all available samples if fewer
// exist.
func (s *Store) Window(ch transport.ChannelID, seconds float64) []float64 {
	n := int(seconds * float64(s.sampleRate))
	return s.ring(ch).Window(n)
}

// SampleCount returns the number of samples currently buffered for a
// channel.
func (s *Store) SampleCount(ch transport.ChannelID) int {
	return s.ring(ch).Len()
}

// TotalSamples returns the sum of SampleCount across every channel.
func (s *Store) TotalSamples() int {
	total := 0
	for _, ch := range transport.Channels {
		total += s.SampleCount(ch)
	}
	return total
}
