// Command thebox-replay drives thebox's pipeline from a synthetic EEG
// source instead of a live headband, runs it for a fixed duration, and
// prints every detected event plus the final sound parameters. It is
// the offline counterpart to cmd/thebox, useful for smoke-testing
// detector thresholds without hardware.
package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/GiovanniFerrara/thebox/internal/audioengine"
	"github.com/GiovanniFerrara/thebox/internal/events"
	"github.com/GiovanniFerrara/thebox/internal/mapper"
	"github.com/GiovanniFerrara/thebox/internal/orchestrator"
	"github.com/GiovanniFerrara/thebox/internal/store"
	"github.com/GiovanniFerrara/thebox/internal/telemetry"
	"github.com/GiovanniFerrara/thebox/internal/transport"
)

const eegSampleRate = 256

func main() {
	duration := pflag.DurationP("duration", "d", 5*time.Second, "how long to replay the synthetic source for")
	alphaHz := pflag.Float64("alpha-hz", 10.0, "frequency of the dominant sine fed to AF7/AF8, to exercise alpha-burst detection")
	blinkAt := pflag.DurationP("blink-at", "b", 0, "inject a single eyeblink-sized spike at this offset into the run; 0 disables it")
	quiet := pflag.BoolP("quiet", "q", false, "suppress per-event log lines, print only the final summary")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "thebox-replay - run thebox's pipeline against a synthetic EEG source.\n\n")
		fmt.Fprintf(os.Stderr, "Usage: thebox-replay [options]\n")
		pflag.PrintDefaults()
	}
	pflag.Parse()

	level := log.InfoLevel
	if *quiet {
		level = log.WarnLevel
	}
	logger := telemetry.New(os.Stderr, level, "thebox-replay")

	m, finalBlocks, err := replay(*duration, *alphaHz, *blinkAt, logger)
	if err != nil {
		logger.Error("replay failed", "err", err)
		os.Exit(1)
	}

	fmt.Printf("audio blocks rendered: %d\n", finalBlocks)
	fmt.Printf("final amplitude:       %.3f\n", m.Params.Amplitude)
	fmt.Printf("final base frequency:  %.1f Hz\n", m.Params.BaseFrequency)
	fmt.Printf("final brightness:      %.3f\n", m.Params.Brightness)
	fmt.Printf("final noise gain:      %.3f\n", m.Params.NoiseGain)
	fmt.Printf("alpha burst active:    %v\n", m.Params.AlphaState)
}

func replay(duration time.Duration, alphaHz float64, blinkAt time.Duration, logger telemetry.Logger) (*mapper.Mapper, int, error) {
	s := store.New(10, eegSampleRate)
	sim := transport.NewSimTransport()
	sim.OnFrame(func(ch transport.ChannelID, frame transport.Frame, _ float64) {
		samples, err := transport.Decode(frame[:])
		if err != nil {
			return
		}
		s.Append(ch, samples[:])
	})

	detectors := []events.Detector{
		events.NewBlinkDetector(),
		events.NewClenchDetector(eegSampleRate),
		events.NewAlphaBurstDetector(eegSampleRate),
	}
	bus := events.NewBus(logger)
	bus.SubscribeAll(func(e events.Event) {
		logger.Info("event", "type", e.Type, "value", e.Value)
	})

	m := mapper.New(eegSampleRate)
	mixer := audioengine.NewMixer(0.5)
	mixer.AddSource(audioengine.NewOscillator(44100), 0.7)
	mixer.AddSource(audioengine.NewNoiseSource(44100, 1), 0.3)
	engine := &audioengine.NullEngine{}

	cfg := orchestrator.Config{
		ControlInterval: 50 * time.Millisecond,
		AudioBlockSize:  2205,
		MaxRetries:      0,
		RetryDelay:      time.Second,
	}
	orch := orchestrator.New(cfg, sim, s, detectors, bus, m, mixer, engine, logger)

	stop := make(chan struct{})
	go feedSyntheticEEG(sim, alphaHz, blinkAt, duration, stop)

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	if err := orch.Run(ctx); err != nil {
		return nil, 0, err
	}
	<-stop
	return m, engine.BlocksWritten(), nil
}

// feedSyntheticEEG plays a dominant sine into AF7/AF8 (to exercise
// alpha band detection) and a flat baseline into TP9/TP10, optionally
// injecting a single blink-sized spike partway through.
func feedSyntheticEEG(sim *transport.SimTransport, alphaHz float64, blinkAt, duration time.Duration, done chan struct{}) {
	defer close(done)

	frameDuration := time.Duration(float64(transport.SamplesPerFrame) / float64(eegSampleRate) * float64(time.Second))
	ticker := time.NewTicker(frameDuration)
	defer ticker.Stop()

	start := time.Now()
	t := 0.0
	for now := range ticker.C {
		elapsed := now.Sub(start)
		if elapsed > duration {
			return
		}

		blinking := blinkAt > 0 && elapsed >= blinkAt && elapsed < blinkAt+frameDuration

		var samples [transport.SamplesPerFrame]uint16
		for i := range samples {
			v := 40.0*math.Sin(2*math.Pi*alphaHz*t) + 2048
			if blinking && i%2 == 0 {
				v += 400 // blink-sized spike, alternated to raise peak-to-peak
			} else if blinking {
				v -= 400
			}
			samples[i] = clampRaw12(v)
			t += 1.0 / eegSampleRate
		}
		alphaFrame := transport.EncodeSamples(samples)
		sim.FeedFrame(transport.AF7, alphaFrame, 1, eegSampleRate, now)
		sim.FeedFrame(transport.AF8, alphaFrame, 1, eegSampleRate, now)

		sim.FeedConstant(transport.TP9, 2048, 1, eegSampleRate, now)
		sim.FeedConstant(transport.TP10, 2048, 1, eegSampleRate, now)
	}
}

func clampRaw12(v float64) uint16 {
	if v < 0 {
		return 0
	}
	if v > 4095 {
		return 4095
	}
	return uint16(v)
}
