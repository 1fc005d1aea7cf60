// Package dsp implements the Filter Layer and Spectral Estimator:
// offline zero-phase and streaming causal Butterworth band-pass
// filters, plus Welch-style band power estimation. No filter-design
// or FFT library appears anywhere in the retrieval pack (see
// DESIGN.md), so both are implemented directly on math/math/cmplx.
package dsp

import (
	"math"
	"math/cmplx"
)

// DefaultOrder is the Butterworth prototype order used throughout
// thebox, per spec.md §4.3 ("4th-order Butterworth band-pass").
const DefaultOrder = 4

// Section is one second-order section (biquad) of a cascaded IIR
// filter: b are numerator coefficients, a are denominator
// coefficients, both with a[0] normalized to 1.
type Section struct {
	B [3]float64
	A [3]float64
}

// SOS is a Butterworth band-pass filter expressed as a cascade of
// second-order sections.
type SOS struct {
	Sections []Section
}

// clampBand enforces spec.md §4.3's edge policy: low/high must stay
// strictly inside (0, nyquist).
func clampBand(low, high, sampleRate float64) (float64, float64) {
	nyquist := sampleRate / 2
	const eps = 1e-6
	if low < eps {
		low = eps
	}
	if high > nyquist-eps {
		high = nyquist - eps
	}
	if low >= high {
		// Degenerate request: fall back to the widest valid band,
		// (eps, nyquist-eps), rather than producing a filter with
		// crossed edges.
		low = eps
		high = nyquist - eps
	}
	return low, high
}

// DesignBandpass builds an order-N Butterworth band-pass filter for
// [low, high] Hz at the given sample rate, expressed as cascaded
// second-order sections.
func DesignBandpass(low, high, sampleRate float64, order int) SOS {
	low, high = clampBand(low, high, sampleRate)

	warp := func(f float64) float64 {
		return 2 * sampleRate * math.Tan(math.Pi*f/sampleRate)
	}
	wLow, wHigh := warp(low), warp(high)
	wo := math.Sqrt(wLow * wHigh)
	bw := wHigh - wLow

	protoPoles := buttap(order)
	bpPoles, gain := lp2bp(protoPoles, wo, bw)
	digitalPoles, digitalGain := bilinearPoles(bpPoles, order, gain, sampleRate)

	pairs := pairConjugates(digitalPoles)

	sections := make([]Section, len(pairs))
	for i, pair := range pairs {
		p1, p2 := pair[0], pair[1]
		a1 := -real(p1 + p2)
		a2 := real(p1 * p2)
		b := [3]float64{1, 0, -1}
		if i == 0 {
			b[0] *= digitalGain
			b[2] *= digitalGain
		}
		sections[i] = Section{B: b, A: [3]float64{1, a1, a2}}
	}
	return SOS{Sections: sections}
}

// buttap returns the poles of the analog Butterworth lowpass
// prototype of order n, normalized to unit cutoff frequency.
func buttap(n int) []complex128 {
	poles := make([]complex128, n)
	for k := 0; k < n; k++ {
		m := float64(-n + 1 + 2*k)
		theta := math.Pi * m / (2 * float64(n))
		poles[k] = -cmplx.Exp(complex(0, theta))
	}
	return poles
}

// lp2bp transforms an analog lowpass prototype (poles only, zeros
// all at infinity) into a bandpass prototype centered at wo with
// bandwidth bw, both in rad/s. Returns the 2*len(poles) bandpass
// poles and the associated gain (the N zeros at the origin are not
// returned explicitly: callers treat the resulting filter as having
// N zeros at s=0, which the bilinear transform turns into N digital
// zeros at z=1, with the remaining N "at infinity" zeros mapping to
// z=-1).
func lp2bp(poles []complex128, wo, bw float64) ([]complex128, float64) {
	n := len(poles)
	out := make([]complex128, 0, 2*n)
	for _, p := range poles {
		pLp := p * complex(bw/2, 0)
		disc := cmplx.Sqrt(pLp*pLp - complex(wo*wo, 0))
		out = append(out, pLp+disc, pLp-disc)
	}
	gain := math.Pow(bw, float64(n))
	return out, gain
}

// bilinearPoles applies the bilinear transform to the analog
// bandpass poles (2*order of them, order zeros implicitly at s=0,
// order zeros implicitly at infinity) and folds the resulting gain
// correction (including the zero contributions) into a single scalar
// gain applied to the digital filter's numerator.
func bilinearPoles(poles []complex128, order int, gain, sampleRate float64) ([]complex128, float64) {
	fs2 := complex(2*sampleRate, 0)

	digitalPoles := make([]complex128, len(poles))
	denProd := complex(1, 0)
	for i, p := range poles {
		digitalPoles[i] = (fs2 + p) / (fs2 - p)
		denProd *= fs2 - p
	}
	// order analog zeros sit at s=0, contributing (fs2-0)=fs2 each.
	numProd := cmplx.Pow(fs2, complex(float64(order), 0))

	k := gain * real(numProd/denProd)
	return digitalPoles, k
}

// pairConjugates groups poles into conjugate (or, for an odd leftover,
// self-paired real) pairs by matching each pole to the remaining pole
// closest to its conjugate. This is robust to however the poles were
// ordered by the preceding transform steps.
func pairConjugates(poles []complex128) [][2]complex128 {
	used := make([]bool, len(poles))
	pairs := make([][2]complex128, 0, (len(poles)+1)/2)

	for i, p := range poles {
		if used[i] {
			continue
		}
		used[i] = true
		best := -1
		bestDist := math.Inf(1)
		target := cmplx.Conj(p)
		for j := i + 1; j < len(poles); j++ {
			if used[j] {
				continue
			}
			d := cmplx.Abs(poles[j] - target)
			if d < bestDist {
				bestDist = d
				best = j
			}
		}
		if best == -1 {
			pairs = append(pairs, [2]complex128{p, p})
			continue
		}
		used[best] = true
		pairs = append(pairs, [2]complex128{p, poles[best]})
	}
	return pairs
}
