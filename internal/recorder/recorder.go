// Package recorder persists a session's generated audio (and,
// optionally, raw per-channel EEG) to WAV files for offline
// inspection (spec.md's Session Recorder, SPEC_FULL.md §4.13). A
// recorder is strictly an observer: nothing it does feeds back into
// the processing loop, and its failures are logged, never fatal.
package recorder

import (
	"math"
	"os"

	"github.com/GiovanniFerrara/thebox/internal/telemetry"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVRecorder appends audio blocks to a 16-bit PCM mono WAV file as
// they are generated.
type WAVRecorder struct {
	sampleRate int
	log        telemetry.Logger

	file    *os.File
	encoder *wav.Encoder
}

// NewWAVRecorder creates (or truncates) path and prepares it to
// receive audio at sampleRate. The returned recorder must be closed
// with Close to finalize the WAV header.
func NewWAVRecorder(path string, sampleRate int, log telemetry.Logger) (*WAVRecorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	enc := wav.NewEncoder(f, sampleRate, 16, 1, 1)
	return &WAVRecorder{sampleRate: sampleRate, log: log, file: f, encoder: enc}, nil
}

// Write appends one block of float64 samples in [-1, 1], converting
// them to 16-bit PCM. A write failure is logged and swallowed rather
// than propagated, so a full disk cannot interrupt the session.
func (r *WAVRecorder) Write(block []float64) {
	if r == nil || r.encoder == nil {
		return
	}
	ints := make([]int, len(block))
	for i, v := range block {
		ints[i] = int(math.Round(clip(v, -1, 1) * 32767))
	}
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: r.sampleRate},
		Data:           ints,
		SourceBitDepth: 16,
	}
	if err := r.encoder.Write(buf); err != nil && r.log != nil {
		r.log.Error("failed to write audio recording block", "err", err)
	}
}

// Close finalizes the WAV header and closes the underlying file.
func (r *WAVRecorder) Close() error {
	if r == nil || r.encoder == nil {
		return nil
	}
	if err := r.encoder.Close(); err != nil {
		return err
	}
	return r.file.Close()
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

// RawChannelRecorder persists one EEG channel's raw microvolt samples
// to a WAV file by scaling them into the [-1, 1] range a WAV
// container expects, purely for later offline re-analysis (spec.md's
// explicit non-goal of a plotting UI is unaffected: this writes
// samples, it does not render them).
type RawChannelRecorder struct {
	*WAVRecorder
	scale float64
}

// NewRawChannelRecorder wraps NewWAVRecorder, scaling raw microvolt
// samples (transport.Decode yields 0 to about 2000 µV) into [-1, 1]
// before encoding, by dividing by 2000.
func NewRawChannelRecorder(path string, sampleRate int, log telemetry.Logger) (*RawChannelRecorder, error) {
	w, err := NewWAVRecorder(path, sampleRate, log)
	if err != nil {
		return nil, err
	}
	return &RawChannelRecorder{WAVRecorder: w, scale: 1.0 / 2000.0}, nil
}

// WriteSamples appends a block of raw microvolt samples.
func (r *RawChannelRecorder) WriteSamples(samples []float64) {
	scaled := make([]float64, len(samples))
	for i, v := range samples {
		scaled[i] = v * r.scale
	}
	r.Write(scaled)
}
