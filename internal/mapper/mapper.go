// Package mapper turns detected events and ongoing band-power
// estimates into the SoundParameters the audio engine renders from
// (spec.md §4.5).
package mapper

import (
	"math"

	"github.com/GiovanniFerrara/thebox/internal/dsp"
	"github.com/GiovanniFerrara/thebox/internal/events"
	"github.com/GiovanniFerrara/thebox/internal/store"
	"github.com/GiovanniFerrara/thebox/internal/transport"
)

// SoundParameters is the bridge between EEG processing and the audio
// engine: it is updated once per tick and read by the renderer.
type SoundParameters struct {
	// Normalized band powers (0-1).
	Alpha, Beta, Theta, Delta, Gamma float64

	// Derived parameters.
	Amplitude     float64 // driven by alpha power
	BaseFrequency float64 // driven by beta/alpha ratio
	Brightness    float64 // driven by theta (lower = warmer, less saw)
	NoiseGain     float64 // driven by gamma

	// Event triggers, decaying over time.
	BlinkTrigger  float64
	ClenchTrigger float64
	AlphaState    bool // true for the duration of an alpha burst
}

// NewSoundParameters returns the resting-state defaults thebox starts
// from before any EEG data has arrived.
func NewSoundParameters() SoundParameters {
	return SoundParameters{
		Amplitude:     0.3,
		BaseFrequency: 220.0,
		Brightness:    0.1,
		NoiseGain:     0.05,
	}
}

// FrequencyRange is the [low, high] Hz range BaseFrequency is mapped
// into by the beta/alpha ratio.
type FrequencyRange struct {
	Low, High float64
}

// Mapper owns the current SoundParameters and the config needed to
// update them.
type Mapper struct {
	Params SoundParameters

	SampleRate      float64
	FrequencyRange  FrequencyRange
	BlinkDecay      float64
	ClenchDecay     float64
}

// New returns a Mapper configured with thebox's defaults.
func New(sampleRate float64) *Mapper {
	return &Mapper{
		Params:         NewSoundParameters(),
		SampleRate:     sampleRate,
		FrequencyRange: FrequencyRange{Low: 110.0, High: 880.0},
		BlinkDecay:     0.2,
		ClenchDecay:    0.3,
	}
}

// HandleEvent applies the instantaneous effect an event has on
// SoundParameters: blink/clench set their trigger to 1.0 (it then
// decays via DecayTriggers), alpha burst start/end toggle AlphaState.
func (m *Mapper) HandleEvent(e events.Event) {
	switch e.Type {
	case events.Blink:
		m.Params.BlinkTrigger = 1.0
	case events.Clench:
		m.Params.ClenchTrigger = 1.0
	case events.AlphaBurstStart:
		m.Params.AlphaState = true
	case events.AlphaBurstEnd:
		m.Params.AlphaState = false
	}
}

// UpdateContinuous recomputes the band-power-derived parameters from
// a 2-second window on the AF7 channel (frontal, representative).
// Windows shorter than one second of samples are left unchanged.
func (m *Mapper) UpdateContinuous(s *store.Store, now float64) {
	window := s.Window(transport.AF7, 2.0)
	if float64(len(window)) < m.SampleRate {
		return
	}

	powers := dsp.ComputeBandPowers(window, dsp.StandardBands, m.SampleRate)
	norm := dsp.NormalizeBandPowers(powers)

	m.Params.Alpha = norm["alpha"]
	m.Params.Beta = norm["beta"]
	m.Params.Theta = norm["theta"]
	m.Params.Delta = norm["delta"]
	m.Params.Gamma = norm["gamma"]

	m.Params.Amplitude = clip(0.1+m.Params.Alpha*0.8, 0.05, 0.9)

	betaAlpha := m.Params.Beta / math.Max(m.Params.Alpha, 0.01)
	span := m.FrequencyRange.High - m.FrequencyRange.Low
	m.Params.BaseFrequency = m.FrequencyRange.Low + clip(betaAlpha/3.0, 0.0, 1.0)*span

	m.Params.Brightness = clip(1.0-m.Params.Theta*2.0, 0.0, 1.0)
	m.Params.NoiseGain = clip(m.Params.Gamma*3.0, 0.0, 1.0)
}

// DecayTriggers exponentially relaxes the blink/clench triggers
// toward zero, snapping to exactly zero once a trigger falls below a
// small floor so oscillator clicks and noise bursts cleanly stop.
func (m *Mapper) DecayTriggers(dt float64) {
	if m.Params.BlinkTrigger > 0 {
		m.Params.BlinkTrigger *= math.Max(0, 1.0-dt/m.BlinkDecay)
		if m.Params.BlinkTrigger < 0.01 {
			m.Params.BlinkTrigger = 0.0
		}
	}
	if m.Params.ClenchTrigger > 0 {
		m.Params.ClenchTrigger *= math.Max(0, 1.0-dt/m.ClenchDecay)
		if m.Params.ClenchTrigger < 0.01 {
			m.Params.ClenchTrigger = 0.0
		}
	}
}

func clip(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
