package audioengine

import (
	"math"

	"github.com/GiovanniFerrara/thebox/internal/mapper"
)

type weightedSource struct {
	source SoundSource
	gain   float64
}

// Mixer sums weighted SoundSources into one mono block and soft-clips
// the result to [-1, 1] with tanh, scaled by a master volume.
type Mixer struct {
	MasterVolume float64
	sources      []weightedSource
}

// NewMixer returns an empty Mixer at the given master volume.
func NewMixer(masterVolume float64) *Mixer {
	return &Mixer{MasterVolume: masterVolume}
}

// AddSource registers source to be summed into every generated block,
// scaled by gain.
func (m *Mixer) AddSource(source SoundSource, gain float64) {
	m.sources = append(m.sources, weightedSource{source: source, gain: gain})
}

// Generate produces one mixed, soft-clipped block of nFrames samples.
func (m *Mixer) Generate(params mapper.SoundParameters, nFrames int) []float64 {
	mixed := make([]float64, nFrames)
	for _, ws := range m.sources {
		block := ws.source.Generate(params, nFrames)
		for i, v := range block {
			mixed[i] += v * ws.gain
		}
	}
	for i, v := range mixed {
		mixed[i] = math.Tanh(v * m.MasterVolume)
	}
	return mixed
}
