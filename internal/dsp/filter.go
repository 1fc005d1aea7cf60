package dsp

// StreamingFilter is a causal, stateful application of an SOS cascade,
// used by the detector path (spec.md §4.4): each call to Apply
// continues from the delay state left by the previous call, so a
// filter can be fed a live stream of chunks without discontinuities
// at chunk boundaries.
type StreamingFilter struct {
	sos   SOS
	state [][2]float64 // one (z1, z2) pair per section, Direct Form II Transposed
}

// NewStreamingFilter returns a StreamingFilter in its zero (quiescent)
// state.
func NewStreamingFilter(sos SOS) *StreamingFilter {
	f := &StreamingFilter{sos: sos}
	f.Reset()
	return f
}

// Reset clears the filter's delay state, as if it had never seen any
// samples.
func (f *StreamingFilter) Reset() {
	f.state = make([][2]float64, len(f.sos.Sections))
}

// Apply filters in with the filter's current delay state and returns
// the filtered output, leaving the state ready for the next call.
func (f *StreamingFilter) Apply(in []float64) []float64 {
	out := make([]float64, len(in))
	copy(out, in)
	for i, section := range f.sos.Sections {
		st := &f.state[i]
		for n, x := range out {
			y := section.B[0]*x + st[0]
			st[0] = section.B[1]*x - section.A[1]*y + st[1]
			st[1] = section.B[2]*x - section.A[2]*y
			out[n] = y
		}
	}
	return out
}

// FiltFilt applies sos to data once forward and once backward,
// producing a zero-phase result of identical length (spec.md §4.3).
// Edges are padded with a short mirror reflection to reduce the
// transient a fresh filter state would otherwise inject at the start
// and end of the signal; the padding is trimmed from the result.
func FiltFilt(sos SOS, data []float64) []float64 {
	if len(data) == 0 {
		return []float64{}
	}

	padLen := 3 * 2 * len(sos.Sections)
	if padLen > len(data)-1 {
		padLen = len(data) - 1
	}
	if padLen < 0 {
		padLen = 0
	}

	padded := make([]float64, 0, len(data)+2*padLen)
	for i := padLen; i >= 1; i-- {
		padded = append(padded, data[i])
	}
	padded = append(padded, data...)
	for i := 0; i < padLen; i++ {
		padded = append(padded, data[len(data)-2-i])
	}

	forward := NewStreamingFilter(sos).Apply(padded)
	reverse(forward)
	backward := NewStreamingFilter(sos).Apply(forward)
	reverse(backward)

	return backward[padLen : padLen+len(data)]
}

func reverse(xs []float64) {
	for i, j := 0, len(xs)-1; i < j; i, j = i+1, j-1 {
		xs[i], xs[j] = xs[j], xs[i]
	}
}
