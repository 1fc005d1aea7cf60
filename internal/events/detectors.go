package events

import (
	"math"
	"sort"

	"github.com/GiovanniFerrara/thebox/internal/dsp"
	"github.com/GiovanniFerrara/thebox/internal/store"
	"github.com/GiovanniFerrara/thebox/internal/transport"
)

// Detector examines the sample store on each processing tick and
// returns any events it has newly detected. Detectors keep their own
// internal debounce/hysteresis state between calls.
type Detector interface {
	Detect(s *store.Store, now float64) []Event
}

// minSamplesForWindow mirrors the Python detectors' np-level window
// length guards: below this many samples a window is too short to
// trust.
const minSamplesForWindow = 10

// BlinkDetector fires when peak-to-peak amplitude on AF7 or AF8
// exceeds a threshold within a short window (spec.md §4.4).
type BlinkDetector struct {
	Threshold float64
	Window    float64
	Debounce  float64

	lastBlink float64
}

// NewBlinkDetector returns a BlinkDetector with thebox's defaults.
func NewBlinkDetector() *BlinkDetector {
	return &BlinkDetector{Threshold: 200.0, Window: 0.2, Debounce: 0.3}
}

func (d *BlinkDetector) Detect(s *store.Store, now float64) []Event {
	if now-d.lastBlink < d.Debounce {
		return nil
	}

	af7 := s.Window(transport.AF7, d.Window)
	af8 := s.Window(transport.AF8, d.Window)
	if len(af7) < minSamplesForWindow || len(af8) < minSamplesForWindow {
		return nil
	}

	peak := math.Max(peakToPeak(af7), peakToPeak(af8))
	if peak <= d.Threshold {
		return nil
	}

	d.lastBlink = now
	return []Event{{Type: Blink, Timestamp: now, Value: peak}}
}

func peakToPeak(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	lo, hi := xs[0], xs[0]
	for _, v := range xs[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return hi - lo
}

// ClenchDetector fires on high-frequency (20-50 Hz) RMS bursts on the
// temporal channels, characteristic of jaw muscle activity (spec.md
// §4.4).
type ClenchDetector struct {
	Threshold float64
	Window    float64
	Debounce  float64

	lastClench float64
	filterTP9  *dsp.StreamingFilter
	filterTP10 *dsp.StreamingFilter
}

// NewClenchDetector returns a ClenchDetector with thebox's defaults,
// at the given EEG sample rate.
func NewClenchDetector(sampleRate float64) *ClenchDetector {
	sos := dsp.DesignBandpass(20.0, 50.0, sampleRate, dsp.DefaultOrder)
	return &ClenchDetector{
		Threshold:  30.0,
		Window:     0.5,
		Debounce:   0.5,
		filterTP9:  dsp.NewStreamingFilter(sos),
		filterTP10: dsp.NewStreamingFilter(sos),
	}
}

func (d *ClenchDetector) Detect(s *store.Store, now float64) []Event {
	if now-d.lastClench < d.Debounce {
		return nil
	}

	tp9 := s.Window(transport.TP9, d.Window)
	tp10 := s.Window(transport.TP10, d.Window)
	if len(tp9) < minSamplesForWindow || len(tp10) < minSamplesForWindow {
		return nil
	}

	rms9 := rms(d.filterTP9.Apply(tp9))
	rms10 := rms(d.filterTP10.Apply(tp10))
	value := math.Max(rms9, rms10)
	if value <= d.Threshold {
		return nil
	}

	d.lastClench = now
	return []Event{{Type: Clench, Timestamp: now, Value: value}}
}

func rms(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sumSq float64
	for _, v := range xs {
		sumSq += v * v
	}
	return math.Sqrt(sumSq / float64(len(xs)))
}

// AlphaBurstDetector tracks a rolling median baseline of frontal
// alpha power and fires start/end events when the current alpha power
// crosses asymmetric thresholds relative to that baseline (spec.md
// §4.4): entry requires ratio > RatioThreshold, exit requires
// ratio < RatioExit, so a burst in progress is not immediately
// cancelled by a small dip.
type AlphaBurstDetector struct {
	RatioThreshold  float64
	RatioExit       float64
	BaselineSeconds float64
	AnalysisWindow  float64
	UpdateInterval  float64
	SampleRate      float64

	baseline   []float64 // rolling window, oldest first, capped at BaselineSeconds/UpdateInterval
	inBurst    bool
	lastUpdate float64
}

// NewAlphaBurstDetector returns an AlphaBurstDetector with thebox's
// defaults, at the given EEG sample rate.
func NewAlphaBurstDetector(sampleRate float64) *AlphaBurstDetector {
	return &AlphaBurstDetector{
		RatioThreshold:  1.5,
		RatioExit:       1.0,
		BaselineSeconds: 10.0,
		AnalysisWindow:  1.0,
		UpdateInterval:  0.5,
		SampleRate:      sampleRate,
	}
}

func (d *AlphaBurstDetector) baselineCap() int {
	return int(d.BaselineSeconds / d.UpdateInterval)
}

func (d *AlphaBurstDetector) Detect(s *store.Store, now float64) []Event {
	if now-d.lastUpdate < d.UpdateInterval {
		return nil
	}
	d.lastUpdate = now

	af7 := s.Window(transport.AF7, d.AnalysisWindow)
	af8 := s.Window(transport.AF8, d.AnalysisWindow)
	if len(af7) < 128 || len(af8) < 128 {
		return nil
	}

	alphaBand := []dsp.Band{{Name: "alpha", Low: 8, High: 13}}
	p7 := dsp.ComputeBandPowers(af7, alphaBand, d.SampleRate)
	p8 := dsp.ComputeBandPowers(af8, alphaBand, d.SampleRate)
	alphaPower := (p7["alpha"] + p8["alpha"]) / 2

	d.baseline = append(d.baseline, alphaPower)
	if cap := d.baselineCap(); len(d.baseline) > cap {
		d.baseline = d.baseline[len(d.baseline)-cap:]
	}
	if len(d.baseline) < 4 {
		return nil
	}

	baseline := median(d.baseline)
	if baseline <= 0 {
		return nil
	}

	ratio := alphaPower / baseline
	meta := map[string]float64{"alpha_power": alphaPower, "baseline": baseline}

	switch {
	case !d.inBurst && ratio > d.RatioThreshold:
		d.inBurst = true
		return []Event{{Type: AlphaBurstStart, Timestamp: now, Value: ratio, Metadata: meta}}
	case d.inBurst && ratio < d.RatioExit:
		d.inBurst = false
		return []Event{{Type: AlphaBurstEnd, Timestamp: now, Value: ratio, Metadata: meta}}
	default:
		return nil
	}
}

func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
