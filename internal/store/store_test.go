package store

import (
	"testing"

	"github.com/GiovanniFerrara/thebox/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestRingBufferReturnsWrittenSamplesInOrder(t *testing.T) {
	r := NewRingBuffer(256)
	samples := make([]float64, 200)
	for i := range samples {
		samples[i] = float64(i)
	}
	r.Append(samples)

	got := r.Window(200)
	require.Equal(t, samples, got)
}

func TestRingBufferWrapKeepsOnlyMostRecent(t *testing.T) {
	r := NewRingBuffer(256)
	for i := 0; i < 30; i++ {
		batch := make([]float64, 12)
		for j := range batch {
			batch[j] = float64(i)
		}
		r.Append(batch)
	}

	got := r.Window(256)
	require.Len(t, got, 256)
	assert.Equal(t, float64(29), got[len(got)-1])
	for _, v := range got {
		assert.NotEqual(t, 0.0, v) // no zero-valued stale slot (the window holds batches 8..29)
	}
}

func TestRingBufferFewerThanRequestedReturnsAll(t *testing.T) {
	r := NewRingBuffer(100)
	r.Append([]float64{1, 2, 3})
	got := r.Window(50)
	assert.Equal(t, []float64{1, 2, 3}, got)
}

func TestRingBufferLen(t *testing.T) {
	r := NewRingBuffer(10)
	assert.Equal(t, 0, r.Len())
	r.Append([]float64{1, 2, 3})
	assert.Equal(t, 3, r.Len())
	r.Append(make([]float64, 20))
	assert.Equal(t, 10, r.Len())
}

func TestStoreWindowBySeconds(t *testing.T) {
	s := New(10, 256)
	samples := make([]float64, 256)
	for i := range samples {
		samples[i] = 1000.0
	}
	s.Append(transport.AF7, samples)

	got := s.Window(transport.AF7, 1.0)
	require.Len(t, got, 256)
	for _, v := range got {
		assert.InDelta(t, 1000.0, v, 0.01)
	}
}

func TestStoreTotalSamples(t *testing.T) {
	s := New(10, 256)
	s.Append(transport.TP9, make([]float64, 5))
	s.Append(transport.AF7, make([]float64, 7))
	assert.Equal(t, 5, s.SampleCount(transport.TP9))
	assert.Equal(t, 12, s.TotalSamples())
}

func TestStoreUnknownChannelPanics(t *testing.T) {
	s := New(10, 256)
	assert.Panics(t, func() {
		s.Append(transport.ChannelID(99), []float64{1})
	})
}

func TestRingBufferWindowIsChronologicalPrefixOfAppends(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(4, 64).Draw(t, "capacity")
		r := NewRingBuffer(capacity)

		var all []float64
		batches := rapid.IntRange(1, 10).Draw(t, "batches")
		for i := 0; i < batches; i++ {
			batchLen := rapid.IntRange(0, capacity).Draw(t, "batchLen")
			batch := make([]float64, batchLen)
			for j := range batch {
				batch[j] = rapid.Float64().Draw(t, "v")
			}
			r.Append(batch)
			all = append(all, batch...)
		}

		if len(all) > capacity {
			all = all[len(all)-capacity:]
		}

		got := r.Window(len(all))
		require.Equal(t, len(all), len(got))
		for i := range all {
			assert.Equal(t, all[i], got[i])
		}
	})
}
