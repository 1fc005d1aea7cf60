package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	assert.NoError(t, Default().Validate())
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thebox.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device_name: Muse-FFFF\nmaster_volume: 0.8\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Muse-FFFF", cfg.DeviceName)
	assert.Equal(t, 0.8, cfg.MasterVolume)
	assert.Equal(t, Default().EEGSampleRate, cfg.EEGSampleRate)
}

func TestParseFlagsOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thebox.yaml")
	require.NoError(t, os.WriteFile(path, []byte("device_name: Muse-FFFF\n"), 0o644))

	cfg, err := ParseFlags([]string{"--config", path, "--device-name", "Muse-0001"})
	require.NoError(t, err)
	assert.Equal(t, "Muse-0001", cfg.DeviceName)
}

func TestValidateRejectsNonPositiveThreshold(t *testing.T) {
	cfg := Default()
	cfg.BlinkThresholdUV = 0
	var verr *ValidationError
	require.ErrorAs(t, cfg.Validate(), &verr)
	assert.Equal(t, "blink_threshold_uv", verr.Field)
}

func TestValidateRejectsInvertedAlphaRatios(t *testing.T) {
	cfg := Default()
	cfg.AlphaBurstRatioEntry = 0.5
	cfg.AlphaBurstRatioExit = 1.0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangeMasterVolume(t *testing.T) {
	cfg := Default()
	cfg.MasterVolume = 1.5
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsCrossedFrequencyRange(t *testing.T) {
	cfg := Default()
	cfg.BaseFrequencyLowHz = 900
	cfg.BaseFrequencyHighHz = 880
	assert.Error(t, cfg.Validate())
}
