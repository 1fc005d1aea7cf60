package mapper

import (
	"math"
	"testing"

	"github.com/GiovanniFerrara/thebox/internal/events"
	"github.com/GiovanniFerrara/thebox/internal/store"
	"github.com/GiovanniFerrara/thebox/internal/transport"
	"github.com/stretchr/testify/assert"
)

const sampleRate = 256.0

func feedSine(s *store.Store, ch transport.ChannelID, freq, seconds float64) {
	n := int(seconds * sampleRate)
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}
	s.Append(ch, samples)
}

func TestHandleEventSetsTriggersAndAlphaState(t *testing.T) {
	m := New(sampleRate)

	m.HandleEvent(events.Event{Type: events.Blink})
	assert.Equal(t, 1.0, m.Params.BlinkTrigger)

	m.HandleEvent(events.Event{Type: events.Clench})
	assert.Equal(t, 1.0, m.Params.ClenchTrigger)

	m.HandleEvent(events.Event{Type: events.AlphaBurstStart})
	assert.True(t, m.Params.AlphaState)

	m.HandleEvent(events.Event{Type: events.AlphaBurstEnd})
	assert.False(t, m.Params.AlphaState)
}

func TestDecayTriggersRelaxesToZero(t *testing.T) {
	m := New(sampleRate)
	m.Params.BlinkTrigger = 1.0
	m.Params.ClenchTrigger = 1.0

	for i := 0; i < 100; i++ {
		m.DecayTriggers(0.05)
	}

	assert.Equal(t, 0.0, m.Params.BlinkTrigger)
	assert.Equal(t, 0.0, m.Params.ClenchTrigger)
}

func TestDecayTriggersIsMonotonicallyNonIncreasing(t *testing.T) {
	m := New(sampleRate)
	m.Params.BlinkTrigger = 1.0
	prev := m.Params.BlinkTrigger
	for i := 0; i < 5; i++ {
		m.DecayTriggers(0.01)
		assert.LessOrEqual(t, m.Params.BlinkTrigger, prev)
		prev = m.Params.BlinkTrigger
	}
}

func TestUpdateContinuousSkipsShortWindow(t *testing.T) {
	m := New(sampleRate)
	before := m.Params
	s := store.New(5, int(sampleRate))
	s.Append(transport.AF7, make([]float64, 10))

	m.UpdateContinuous(s, 1.0)
	assert.Equal(t, before, m.Params)
}

func TestUpdateContinuousNormalizedPowersSumToOne(t *testing.T) {
	m := New(sampleRate)
	s := store.New(5, int(sampleRate))
	feedSine(s, transport.AF7, 10, 2.0)

	m.UpdateContinuous(s, 1.0)

	sum := m.Params.Alpha + m.Params.Beta + m.Params.Theta + m.Params.Delta + m.Params.Gamma
	assert.InDelta(t, 1.0, sum, 1e-6)
	assert.Greater(t, m.Params.Alpha, m.Params.Beta)
}

func TestUpdateContinuousIsIdempotentOnUnchangedStore(t *testing.T) {
	m := New(sampleRate)
	s := store.New(5, int(sampleRate))
	feedSine(s, transport.AF7, 10, 2.0)

	m.UpdateContinuous(s, 1.0)
	first := m.Params

	m.UpdateContinuous(s, 1.0)
	assert.Equal(t, first, m.Params)
}

func TestUpdateContinuousDerivedParamsStayInRange(t *testing.T) {
	m := New(sampleRate)
	s := store.New(5, int(sampleRate))
	feedSine(s, transport.AF7, 35, 2.0)

	m.UpdateContinuous(s, 1.0)

	assert.GreaterOrEqual(t, m.Params.Amplitude, 0.05)
	assert.LessOrEqual(t, m.Params.Amplitude, 0.9)
	assert.GreaterOrEqual(t, m.Params.BaseFrequency, m.FrequencyRange.Low)
	assert.LessOrEqual(t, m.Params.BaseFrequency, m.FrequencyRange.High)
	assert.GreaterOrEqual(t, m.Params.Brightness, 0.0)
	assert.LessOrEqual(t, m.Params.Brightness, 1.0)
	assert.GreaterOrEqual(t, m.Params.NoiseGain, 0.0)
	assert.LessOrEqual(t, m.Params.NoiseGain, 1.0)
}
