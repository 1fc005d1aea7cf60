package audioengine

import (
	"math"
	"testing"

	"github.com/GiovanniFerrara/thebox/internal/mapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRate = 44100.0

func TestOscillatorGeneratesRequestedLength(t *testing.T) {
	osc := NewOscillator(sampleRate)
	params := mapper.NewSoundParameters()
	out := osc.Generate(params, 512)
	require.Len(t, out, 512)
}

func TestOscillatorStaysWithinUnitRangeForModerateAmplitude(t *testing.T) {
	osc := NewOscillator(sampleRate)
	params := mapper.NewSoundParameters()
	params.Amplitude = 0.5
	out := osc.Generate(params, samplesForSeconds(1))
	for _, v := range out {
		assert.LessOrEqual(t, math.Abs(v), 1.0)
	}
}

func samplesForSeconds(seconds int) int {
	return int(sampleRate) * seconds
}

func TestOscillatorPhaseIsContinuousAcrossBlocks(t *testing.T) {
	osc := NewOscillator(sampleRate)
	params := mapper.NewSoundParameters()
	params.Brightness = 0
	params.Amplitude = 1

	whole := NewOscillator(sampleRate).Generate(params, 200)
	a := osc.Generate(params, 100)
	b := osc.Generate(params, 100)
	pieced := append(a, b...)

	for i := range whole {
		assert.InDelta(t, whole[i], pieced[i], 1e-9)
	}
}

func TestOscillatorAddsClickOnBlinkTrigger(t *testing.T) {
	osc := NewOscillator(sampleRate)
	params := mapper.NewSoundParameters()
	params.BlinkTrigger = 1.0
	params.Amplitude = 1.0

	withClick := osc.Generate(params, 64)

	osc2 := NewOscillator(sampleRate)
	params.BlinkTrigger = 0
	withoutClick := osc2.Generate(params, 64)

	// The click is a sine burst starting at zero phase, so sample 0 is
	// unchanged; sample 10 lies near its first peak.
	assert.NotEqual(t, withClick[10], withoutClick[10])
}

func TestNoiseSourceLevelScalesWithGammaGain(t *testing.T) {
	n := NewNoiseSource(sampleRate, 42)
	quiet := mapper.NewSoundParameters()
	quiet.NoiseGain = 0.0
	loud := mapper.NewSoundParameters()
	loud.NoiseGain = 1.0

	quietOut := n.Generate(quiet, 1000)
	loudOut := NewNoiseSource(sampleRate, 42).Generate(loud, 1000)

	rms := func(xs []float64) float64 {
		var s float64
		for _, v := range xs {
			s += v * v
		}
		return math.Sqrt(s / float64(len(xs)))
	}
	assert.Less(t, rms(quietOut), rms(loudOut))
}

func TestMixerSoftClipsToUnitRange(t *testing.T) {
	mixer := NewMixer(1.0)
	mixer.AddSource(loudSource{}, 1.0)
	out := mixer.Generate(mapper.NewSoundParameters(), 100)
	for _, v := range out {
		assert.LessOrEqual(t, math.Abs(v), 1.0)
	}
}

type loudSource struct{}

func (loudSource) Generate(params mapper.SoundParameters, nFrames int) []float64 {
	out := make([]float64, nFrames)
	for i := range out {
		out[i] = 10
	}
	return out
}

func TestNullEngineTracksWrittenBlocks(t *testing.T) {
	e := &NullEngine{}
	require.NoError(t, e.Start())
	e.Write([]float64{1, 2, 3})
	e.Write([]float64{4, 5})
	assert.Equal(t, 2, e.BlocksWritten())
	assert.Equal(t, []float64{4, 5}, e.LastBlock())
	require.NoError(t, e.Stop())
}
