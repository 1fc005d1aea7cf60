// Package config holds thebox's tunables, with thebox's own defaults
// (spec.md §6), a YAML overlay file, and a command-line flag overlay,
// mirroring the teacher's layering of tocalls.yaml data and pflag
// command-line options.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds every tunable thebox exposes.
type Config struct {
	// BLE / transport.
	DeviceName     string  `yaml:"device_name"`
	ScanTimeout    float64 `yaml:"scan_timeout"`
	ConnectTimeout float64 `yaml:"connect_timeout"`
	MaxRetries     int     `yaml:"max_retries"`
	RetryDelay     float64 `yaml:"retry_delay"`

	// EEG.
	EEGSampleRate     int     `yaml:"eeg_sample_rate"`
	EEGBufferSeconds  float64 `yaml:"eeg_buffer_seconds"`
	ControlInterval   float64 `yaml:"control_interval_seconds"`

	// Event detection.
	BlinkThresholdUV     float64 `yaml:"blink_threshold_uv"`
	BlinkWindowSeconds   float64 `yaml:"blink_window_seconds"`
	BlinkDebounceSeconds float64 `yaml:"blink_debounce_seconds"`

	ClenchThresholdUVRMS  float64 `yaml:"clench_threshold_uv_rms"`
	ClenchWindowSeconds   float64 `yaml:"clench_window_seconds"`
	ClenchDebounceSeconds float64 `yaml:"clench_debounce_seconds"`

	AlphaBurstRatioEntry float64 `yaml:"alpha_burst_ratio_entry"`
	AlphaBurstRatioExit  float64 `yaml:"alpha_burst_ratio_exit"`
	AlphaBaselineSeconds float64 `yaml:"alpha_baseline_seconds"`
	AlphaUpdateSeconds   float64 `yaml:"alpha_update_seconds"`

	// Sound.
	BaseFrequencyLowHz  float64 `yaml:"base_frequency_low_hz"`
	BaseFrequencyHighHz float64 `yaml:"base_frequency_high_hz"`
	BlinkDecaySeconds   float64 `yaml:"blink_decay_seconds"`
	ClenchDecaySeconds  float64 `yaml:"clench_decay_seconds"`

	AudioSampleRate int     `yaml:"audio_sample_rate"`
	AudioBlockSize  int     `yaml:"audio_block_frames"`
	AudioChannels   int     `yaml:"audio_channels"`
	MasterVolume    float64 `yaml:"master_volume"`

	// Recording (SPEC_FULL.md §4.13, not present in spec.md §6).
	RecordAudioPath string `yaml:"record_audio_path"`
	RecordRawPath   string `yaml:"record_raw_path"`
}

// Default returns thebox's configuration defaults, per spec.md §6.
func Default() *Config {
	return &Config{
		DeviceName:     "Muse-31A9",
		ScanTimeout:    10.0,
		ConnectTimeout: 30.0,
		MaxRetries:     3,
		RetryDelay:     2.0,

		EEGSampleRate:    256,
		EEGBufferSeconds: 10.0,
		ControlInterval:  0.05,

		BlinkThresholdUV:     200.0,
		BlinkWindowSeconds:   0.2,
		BlinkDebounceSeconds: 0.3,

		ClenchThresholdUVRMS:  30.0,
		ClenchWindowSeconds:   0.5,
		ClenchDebounceSeconds: 0.5,

		AlphaBurstRatioEntry: 1.5,
		AlphaBurstRatioExit:  1.0,
		AlphaBaselineSeconds: 10.0,
		AlphaUpdateSeconds:   0.5,

		BaseFrequencyLowHz:  110.0,
		BaseFrequencyHighHz: 880.0,
		BlinkDecaySeconds:   0.2,
		ClenchDecaySeconds:  0.3,

		AudioSampleRate: 44100,
		AudioBlockSize:  2205,
		AudioChannels:   1,
		MasterVolume:    0.5,
	}
}

// Load starts from Default and overlays a YAML file at path, if one
// exists. A missing file is not an error; fields absent from the file
// keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	return cfg, nil
}

// ParseFlags overlays command-line flags onto the result of
// Load(configPathFlag), so that `--config` selects the YAML file and
// any other flag overrides a single field.
func ParseFlags(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("thebox", pflag.ContinueOnError)
	configPath := fs.StringP("config", "c", "", "path to a YAML configuration overlay")
	deviceName := fs.String("device-name", "", "override the Muse device name to scan for")
	audioSampleRate := fs.Int("audio-sample-rate", 0, "override the audio output sample rate")
	recordAudio := fs.String("record-audio", "", "write generated audio to this WAV file")
	recordRaw := fs.String("record-raw", "", "write raw EEG samples to this WAV file")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := Load(*configPath)
	if err != nil {
		return nil, err
	}
	if *deviceName != "" {
		cfg.DeviceName = *deviceName
	}
	if *audioSampleRate != 0 {
		cfg.AudioSampleRate = *audioSampleRate
	}
	if *recordAudio != "" {
		cfg.RecordAudioPath = *recordAudio
	}
	if *recordRaw != "" {
		cfg.RecordRawPath = *recordRaw
	}
	return cfg, nil
}

// ValidationError names the offending field for a rejected
// configuration (spec.md §7's "configuration fault").
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Reason)
}

// Validate rejects any threshold, window, debounce, or sample-rate
// value set outside its admissible range.
func (c *Config) Validate() error {
	positive := map[string]float64{
		"eeg_sample_rate":          float64(c.EEGSampleRate),
		"eeg_buffer_seconds":       c.EEGBufferSeconds,
		"control_interval_seconds": c.ControlInterval,
		"blink_threshold_uv":       c.BlinkThresholdUV,
		"blink_window_seconds":     c.BlinkWindowSeconds,
		"blink_debounce_seconds":   c.BlinkDebounceSeconds,
		"clench_threshold_uv_rms":  c.ClenchThresholdUVRMS,
		"clench_window_seconds":    c.ClenchWindowSeconds,
		"clench_debounce_seconds":  c.ClenchDebounceSeconds,
		"alpha_baseline_seconds":   c.AlphaBaselineSeconds,
		"alpha_update_seconds":     c.AlphaUpdateSeconds,
		"blink_decay_seconds":      c.BlinkDecaySeconds,
		"clench_decay_seconds":     c.ClenchDecaySeconds,
		"audio_sample_rate":        float64(c.AudioSampleRate),
		"audio_block_frames":       float64(c.AudioBlockSize),
		"audio_channels":           float64(c.AudioChannels),
	}
	for field, v := range positive {
		if v <= 0 {
			return &ValidationError{Field: field, Reason: "must be positive"}
		}
	}

	if c.AlphaBurstRatioEntry <= c.AlphaBurstRatioExit {
		return &ValidationError{Field: "alpha_burst_ratio_entry", Reason: "must exceed alpha_burst_ratio_exit"}
	}
	if c.BaseFrequencyLowHz <= 0 || c.BaseFrequencyHighHz <= c.BaseFrequencyLowHz {
		return &ValidationError{Field: "base_frequency_range_hz", Reason: "low must be positive and less than high"}
	}
	if c.BaseFrequencyHighHz >= float64(c.AudioSampleRate)/2 {
		return &ValidationError{Field: "base_frequency_range_hz", Reason: "high must be below the audio Nyquist frequency"}
	}
	if c.MasterVolume < 0 || c.MasterVolume > 1 {
		return &ValidationError{Field: "master_volume", Reason: "must be in [0, 1]"}
	}
	if c.MaxRetries < 0 {
		return &ValidationError{Field: "max_retries", Reason: "must be non-negative"}
	}
	return nil
}
