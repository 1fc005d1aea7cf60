package dsp

import (
	"math"
	"math/cmplx"
	"sort"
)

// Band is a named frequency range in Hz, e.g. alpha = [8, 13].
type Band struct {
	Name string
	Low  float64
	High float64
}

// StandardBands are the five EEG bands thebox tracks (spec.md §4.1).
var StandardBands = []Band{
	{Name: "delta", Low: 0.5, High: 4},
	{Name: "theta", Low: 4, High: 8},
	{Name: "alpha", Low: 8, High: 13},
	{Name: "beta", Low: 13, High: 30},
	{Name: "gamma", Low: 30, High: 45},
}

// BandPowerRMS filters window through a fresh causal Butterworth
// band-pass for [low, high] and returns the RMS of the filtered
// signal. Per spec.md §4.3, a window shorter than one second of
// samples is considered insufficient and yields 0.
func BandPowerRMS(window []float64, low, high, sampleRate float64) float64 {
	if float64(len(window)) < sampleRate {
		return 0
	}
	filtered := NewStreamingFilter(DesignBandpass(low, high, sampleRate, DefaultOrder)).Apply(window)

	var sumSq float64
	for _, v := range filtered {
		sumSq += v * v
	}
	return math.Sqrt(sumSq / float64(len(filtered)))
}

// ComputeBandPowers estimates power in each of bands via Welch's
// method: the window is split into overlapping, Hann-windowed
// segments of length min(len(window), 2*sampleRate) with 50% overlap,
// periodograms are averaged into a power spectral density estimate,
// and each band's power is the PSD integrated (trapezoidal) over its
// frequency range. Per spec.md §4.3, a window shorter than one second
// of samples yields all-zero powers.
func ComputeBandPowers(window []float64, bands []Band, sampleRate float64) map[string]float64 {
	powers := make(map[string]float64, len(bands))
	if float64(len(window)) < sampleRate {
		for _, b := range bands {
			powers[b.Name] = 0
		}
		return powers
	}

	nperseg := len(window)
	if maxSeg := int(2 * sampleRate); nperseg > maxSeg {
		nperseg = maxSeg
	}
	step := nperseg / 2
	if step < 1 {
		step = 1
	}

	win := hannWindow(nperseg)
	winSumSq := 0.0
	for _, w := range win {
		winSumSq += w * w
	}

	freqBins := nperseg/2 + 1
	psdSum := make([]float64, freqBins)
	segments := 0

	for start := 0; start+nperseg <= len(window); start += step {
		segment := window[start : start+nperseg]
		windowed := make([]float64, nperseg)
		for i, v := range segment {
			windowed[i] = v * win[i]
		}
		spectrum := dft(windowed)
		for k := 0; k < freqBins; k++ {
			mag2 := cmplx.Abs(spectrum[k]) * cmplx.Abs(spectrum[k])
			scale := 1.0 / (sampleRate * winSumSq)
			if k != 0 && !(nperseg%2 == 0 && k == freqBins-1) {
				scale *= 2
			}
			psdSum[k] += mag2 * scale
		}
		segments++
	}
	if segments == 0 {
		for _, b := range bands {
			powers[b.Name] = 0
		}
		return powers
	}

	freqs := make([]float64, freqBins)
	psd := make([]float64, freqBins)
	for k := range psd {
		freqs[k] = float64(k) * sampleRate / float64(nperseg)
		psd[k] = psdSum[k] / float64(segments)
	}

	for _, b := range bands {
		powers[b.Name] = bandIntegral(freqs, psd, b.Low, b.High)
	}
	return powers
}

// NormalizeBandPowers scales powers so they sum to 1, or returns an
// all-zero map (same keys) if the input sums to zero.
func NormalizeBandPowers(powers map[string]float64) map[string]float64 {
	// Sum in sorted key order so the same input always yields
	// bit-identical output (map iteration order is random).
	keys := make([]string, 0, len(powers))
	for k := range powers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	total := 0.0
	for _, k := range keys {
		total += powers[k]
	}
	out := make(map[string]float64, len(powers))
	if total == 0 {
		for k := range powers {
			out[k] = 0
		}
		return out
	}
	for k, v := range powers {
		out[k] = v / total
	}
	return out
}

func bandIntegral(freqs, psd []float64, low, high float64) float64 {
	total := 0.0
	for i := 1; i < len(freqs); i++ {
		f0, f1 := freqs[i-1], freqs[i]
		if f1 < low || f0 > high {
			continue
		}
		lo := math.Max(f0, low)
		hi := math.Min(f1, high)
		if hi <= lo {
			continue
		}
		p0 := interp(freqs[i-1], freqs[i], psd[i-1], psd[i], lo)
		p1 := interp(freqs[i-1], freqs[i], psd[i-1], psd[i], hi)
		total += (p0 + p1) / 2 * (hi - lo)
	}
	return total
}

func interp(x0, x1, y0, y1, x float64) float64 {
	if x1 == x0 {
		return y0
	}
	t := (x - x0) / (x1 - x0)
	return y0 + t*(y1-y0)
}

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// dft computes the discrete Fourier transform of a real-valued signal
// directly (O(n^2)); segment lengths here are small enough (at most
// 2*sampleRate samples) that this is simpler than a size-restricted
// FFT and not a bottleneck.
func dft(x []float64) []complex128 {
	n := len(x)
	out := make([]complex128, n)
	for k := 0; k < n; k++ {
		var sum complex128
		for t, v := range x {
			angle := -2 * math.Pi * float64(k) * float64(t) / float64(n)
			sum += complex(v, 0) * cmplx.Exp(complex(0, angle))
		}
		out[k] = sum
	}
	return out
}
