package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/GiovanniFerrara/thebox/internal/audioengine"
	"github.com/GiovanniFerrara/thebox/internal/events"
	"github.com/GiovanniFerrara/thebox/internal/mapper"
	"github.com/GiovanniFerrara/thebox/internal/store"
	"github.com/GiovanniFerrara/thebox/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const eegSampleRate = 256

func buildOrchestrator(t *testing.T, interval time.Duration) (*Orchestrator, *transport.SimTransport, *mapper.Mapper, *audioengine.NullEngine) {
	t.Helper()

	s := store.New(10, eegSampleRate)
	sim := transport.NewSimTransport()
	sim.OnFrame(func(ch transport.ChannelID, frame transport.Frame, ts float64) {
		samples, err := transport.Decode(frame[:])
		require.NoError(t, err)
		s.Append(ch, samples[:])
	})

	detectors := []events.Detector{
		events.NewBlinkDetector(),
		events.NewClenchDetector(eegSampleRate),
		events.NewAlphaBurstDetector(eegSampleRate),
	}
	bus := events.NewBus(nil)
	m := mapper.New(eegSampleRate)

	mixer := audioengine.NewMixer(0.5)
	mixer.AddSource(audioengine.NewOscillator(44100), 0.7)
	mixer.AddSource(audioengine.NewNoiseSource(44100, 1), 0.3)
	engine := &audioengine.NullEngine{}

	cfg := Config{
		ControlInterval: interval,
		AudioBlockSize:  64,
		MaxRetries:      1,
		RetryDelay:      time.Millisecond,
	}
	orch := New(cfg, sim, s, detectors, bus, m, mixer, engine, nil)
	return orch, sim, m, engine
}

func TestOrchestratorProducesInRangeParametersOnZeroInput(t *testing.T) {
	orch, sim, m, engine := buildOrchestrator(t, 5*time.Millisecond)

	stop := make(chan struct{})
	go func() {
		defer close(stop)
		for i := 0; i < 60; i++ {
			for _, ch := range transport.Channels {
				sim.FeedConstant(ch, 0, 12, eegSampleRate, time.Now())
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 320*time.Millisecond)
	defer cancel()

	err := orch.Run(ctx)
	require.NoError(t, err)
	<-stop

	assert.GreaterOrEqual(t, m.Params.Amplitude, 0.05)
	assert.LessOrEqual(t, m.Params.Amplitude, 0.9)
	assert.GreaterOrEqual(t, m.Params.BaseFrequency, m.FrequencyRange.Low)
	assert.LessOrEqual(t, m.Params.BaseFrequency, m.FrequencyRange.High)
	assert.GreaterOrEqual(t, m.Params.Brightness, 0.0)
	assert.LessOrEqual(t, m.Params.Brightness, 1.0)
	assert.GreaterOrEqual(t, m.Params.NoiseGain, 0.0)
	assert.LessOrEqual(t, m.Params.NoiseGain, 1.0)
	assert.Equal(t, 0.0, m.Params.BlinkTrigger)
	assert.Equal(t, 0.0, m.Params.ClenchTrigger)
	assert.Greater(t, engine.BlocksWritten(), 0)
}

func TestOrchestratorStopIsIdempotentAndFast(t *testing.T) {
	orch, _, _, _ := buildOrchestrator(t, 5*time.Millisecond)

	ctx := context.Background()
	done := make(chan error, 1)
	go func() { done <- orch.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	orch.Stop()
	orch.Stop() // must not panic or block

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("orchestrator did not stop promptly")
	}
}

func TestOrchestratorDisconnectsTransportOnStop(t *testing.T) {
	orch, sim, _, _ := buildOrchestrator(t, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- orch.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	assert.True(t, sim.Connected())
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("orchestrator did not stop promptly")
	}
	assert.False(t, sim.Connected())
}
