// Package audioengine renders SoundParameters into audio blocks and
// drives them to an output device (spec.md §4.6): an Oscillator and a
// NoiseSource are summed by a Mixer and soft-clipped, then written to
// either a real PortAudio stream or, for tests and offline replay, a
// NullEngine that plays nothing and only tracks what was written.
package audioengine

import (
	"math"
	"math/rand"

	"github.com/GiovanniFerrara/thebox/internal/mapper"
)

// SoundSource generates n_frames of mono audio, as float64, from the
// current SoundParameters. Sources do not clip: a blink click or a
// clench burst can push samples outside [-1, 1], and it is the
// Mixer's tanh that brings the summed block back into range.
type SoundSource interface {
	Generate(params mapper.SoundParameters, nFrames int) []float64
}

// Oscillator is a phase-accumulating tone generator whose frequency,
// amplitude and sine/sawtooth blend are driven by SoundParameters. A
// blink trigger overlays a short percussive click at the start of the
// block.
type Oscillator struct {
	SampleRate float64
	phase      float64
}

// NewOscillator returns an Oscillator at rest (zero phase).
func NewOscillator(sampleRate float64) *Oscillator {
	return &Oscillator{SampleRate: sampleRate}
}

func (o *Oscillator) Generate(params mapper.SoundParameters, nFrames int) []float64 {
	out := make([]float64, nFrames)
	if nFrames == 0 {
		return out
	}

	phaseInc := 2.0 * math.Pi * params.BaseFrequency / o.SampleRate
	brightness := clip(params.Brightness, 0, 1)

	phase := o.phase
	for i := range out {
		sine := math.Sin(phase)
		sawPhase := math.Mod(phase/(2*math.Pi), 1.0)
		if sawPhase < 0 {
			sawPhase++
		}
		saw := 2.0*sawPhase - 1.0
		out[i] = (1.0-brightness)*sine + brightness*saw
		phase += phaseInc
	}
	o.phase = math.Mod(phase, 2*math.Pi)

	if params.BlinkTrigger > 0.01 {
		clickLen := int(0.01 * o.SampleRate)
		if clickLen > nFrames {
			clickLen = nFrames
		}
		for i := 0; i < clickLen; i++ {
			t := float64(i) / o.SampleRate
			out[i] += params.BlinkTrigger * math.Sin(2*math.Pi*1000*t) * math.Exp(-t*50)
		}
	}

	for i := range out {
		out[i] *= params.Amplitude
	}
	return out
}

// NoiseSource generates Gaussian noise whose level is driven by gamma
// power, with a decaying burst overlaid on a jaw clench trigger.
type NoiseSource struct {
	SampleRate float64
	rng        *rand.Rand
}

// NewNoiseSource returns a NoiseSource seeded from seed (pass a
// time-derived seed in production, a fixed value in tests).
func NewNoiseSource(sampleRate float64, seed int64) *NoiseSource {
	return &NoiseSource{SampleRate: sampleRate, rng: rand.New(rand.NewSource(seed))}
}

func (n *NoiseSource) Generate(params mapper.SoundParameters, nFrames int) []float64 {
	out := make([]float64, nFrames)
	for i := range out {
		out[i] = n.rng.NormFloat64()
	}

	level := params.NoiseGain * 0.3
	if params.ClenchTrigger > 0.01 {
		burstLen := int(0.02 * n.SampleRate)
		if burstLen > nFrames {
			burstLen = nFrames
		}
		for i := 0; i < burstLen; i++ {
			t := float64(i) / n.SampleRate
			envelope := params.ClenchTrigger * math.Exp(-t*30)
			out[i] = out[i]*envelope + out[i]
		}
		level = math.Max(level, params.ClenchTrigger*0.5)
	}

	for i := range out {
		out[i] *= level
	}
	return out
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
