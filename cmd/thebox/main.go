// Command thebox streams EEG through event detection and a parameter
// mapper into a live synthesized audio output, per spec.md. No BLE
// client is built in: the EEG comes from a simulated headband that
// feeds a flat signal on every channel. It runs until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/GiovanniFerrara/thebox/internal/audioengine"
	"github.com/GiovanniFerrara/thebox/internal/config"
	"github.com/GiovanniFerrara/thebox/internal/events"
	"github.com/GiovanniFerrara/thebox/internal/mapper"
	"github.com/GiovanniFerrara/thebox/internal/orchestrator"
	"github.com/GiovanniFerrara/thebox/internal/recorder"
	"github.com/GiovanniFerrara/thebox/internal/store"
	"github.com/GiovanniFerrara/thebox/internal/telemetry"
	"github.com/GiovanniFerrara/thebox/internal/transport"
)

func main() {
	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger := telemetry.New(os.Stderr, log.InfoLevel, "thebox")

	if err := run(cfg, logger); err != nil {
		logger.Error("exiting", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger telemetry.Logger) error {
	s := store.New(cfg.EEGBufferSeconds, cfg.EEGSampleRate)

	var rawRec *recorder.RawChannelRecorder
	if cfg.RecordRawPath != "" {
		r, err := recorder.NewRawChannelRecorder(cfg.RecordRawPath, cfg.EEGSampleRate, logger)
		if err != nil {
			logger.Error("could not open raw recording file, continuing without it", "err", err)
		} else {
			defer r.Close()
			rawRec = r
		}
	}

	// No BLE GATT client exists in this module (spec.md §6 treats the
	// transport as an external collaborator); thebox drives itself off
	// a simulated source here until a real transport is wired in.
	sim := transport.NewSimTransport()
	sim.OnFrame(func(ch transport.ChannelID, frame transport.Frame, _ float64) {
		samples, err := transport.Decode(frame[:])
		if err != nil {
			logger.Warn("dropping malformed frame", "channel", ch, "err", err)
			return
		}
		s.Append(ch, samples[:])
		if rawRec != nil && ch == transport.AF7 {
			rawRec.WriteSamples(samples[:])
		}
	})
	go simulateHeadband(sim, cfg.EEGSampleRate)

	blinkDetector := events.NewBlinkDetector()
	blinkDetector.Threshold = cfg.BlinkThresholdUV
	blinkDetector.Window = cfg.BlinkWindowSeconds
	blinkDetector.Debounce = cfg.BlinkDebounceSeconds

	clenchDetector := events.NewClenchDetector(float64(cfg.EEGSampleRate))
	clenchDetector.Threshold = cfg.ClenchThresholdUVRMS
	clenchDetector.Window = cfg.ClenchWindowSeconds
	clenchDetector.Debounce = cfg.ClenchDebounceSeconds

	alphaDetector := events.NewAlphaBurstDetector(float64(cfg.EEGSampleRate))
	alphaDetector.RatioThreshold = cfg.AlphaBurstRatioEntry
	alphaDetector.RatioExit = cfg.AlphaBurstRatioExit
	alphaDetector.BaselineSeconds = cfg.AlphaBaselineSeconds
	alphaDetector.UpdateInterval = cfg.AlphaUpdateSeconds

	detectors := []events.Detector{blinkDetector, clenchDetector, alphaDetector}

	bus := events.NewBus(logger)
	bus.SubscribeAll(func(e events.Event) {
		logger.Info("event", "type", e.Type, "value", e.Value)
	})

	m := mapper.New(float64(cfg.EEGSampleRate))
	m.FrequencyRange = mapper.FrequencyRange{Low: cfg.BaseFrequencyLowHz, High: cfg.BaseFrequencyHighHz}
	m.BlinkDecay = cfg.BlinkDecaySeconds
	m.ClenchDecay = cfg.ClenchDecaySeconds

	mixer := audioengine.NewMixer(cfg.MasterVolume)
	mixer.AddSource(audioengine.NewOscillator(float64(cfg.AudioSampleRate)), 0.7)
	mixer.AddSource(audioengine.NewNoiseSource(float64(cfg.AudioSampleRate), time.Now().UnixNano()), 0.3)

	var engine orchestrator.AudioSink = audioengine.NewPortAudioEngine(
		float64(cfg.AudioSampleRate), cfg.AudioBlockSize, cfg.AudioChannels, 8, logger,
	)

	orchCfg := orchestrator.Config{
		ControlInterval: time.Duration(cfg.ControlInterval * float64(time.Second)),
		AudioBlockSize:  cfg.AudioBlockSize,
		MaxRetries:      cfg.MaxRetries,
		RetryDelay:      time.Duration(cfg.RetryDelay * float64(time.Second)),
	}
	orch := orchestrator.New(orchCfg, sim, s, detectors, bus, m, mixer, engine, logger)

	if cfg.RecordAudioPath != "" {
		rec, err := recorder.NewWAVRecorder(cfg.RecordAudioPath, cfg.AudioSampleRate, logger)
		if err != nil {
			logger.Error("could not open audio recording file, continuing without it", "err", err)
		} else {
			defer rec.Close()
			orch.OnBlock(rec.Write)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger.Info("starting", "device", cfg.DeviceName, "eeg_sample_rate", cfg.EEGSampleRate)
	return orch.Run(ctx)
}

// simulateHeadband feeds a quiet, flat signal to every channel so the
// pipeline has something to process in the absence of a real BLE
// transport. It runs for the life of the process; frames delivered
// before Connect or after Disconnect are harmless, since the store
// only ever reflects the most recent samples.
func simulateHeadband(sim *transport.SimTransport, sampleRate int) {
	frameDuration := time.Duration(float64(transport.SamplesPerFrame) / float64(sampleRate) * float64(time.Second))
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()
	for range ticker.C {
		for _, ch := range transport.Channels {
			sim.FeedConstant(ch, 2048, 1, sampleRate, time.Now())
		}
	}
}
