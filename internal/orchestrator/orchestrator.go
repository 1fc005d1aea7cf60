// Package orchestrator runs thebox's fixed-order control loop
// (spec.md §4.8): each tick, detectors run and publish events, the
// mapper updates continuous parameters, triggers decay by measured
// dt, and the audio engine renders and emits one block.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/GiovanniFerrara/thebox/internal/audioengine"
	"github.com/GiovanniFerrara/thebox/internal/events"
	"github.com/GiovanniFerrara/thebox/internal/mapper"
	"github.com/GiovanniFerrara/thebox/internal/store"
	"github.com/GiovanniFerrara/thebox/internal/telemetry"
	"github.com/GiovanniFerrara/thebox/internal/transport"
	"golang.org/x/sync/errgroup"
)

// AudioSink is the subset of an audio engine the orchestrator drives.
type AudioSink interface {
	Start() error
	Write(block []float64)
	Stop() error
}

// Config bundles the timing knobs the orchestrator needs, independent
// of the rest of config.Config.
type Config struct {
	ControlInterval time.Duration
	AudioBlockSize  int
	MaxRetries      int
	RetryDelay      time.Duration
}

// Orchestrator wires the store, detectors, bus, mapper, and audio
// engine into the fixed-order processing loop.
type Orchestrator struct {
	cfg       Config
	transport transport.Transport
	store     *store.Store
	detectors []events.Detector
	bus       *events.Bus
	mapper    *mapper.Mapper
	mixer     *audioengine.Mixer
	engine    AudioSink
	log       telemetry.Logger

	onBlock func([]float64) // optional observer, e.g. a recorder

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New assembles an Orchestrator from its collaborators.
func New(
	cfg Config,
	t transport.Transport,
	s *store.Store,
	detectors []events.Detector,
	bus *events.Bus,
	m *mapper.Mapper,
	mixer *audioengine.Mixer,
	engine AudioSink,
	log telemetry.Logger,
) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		transport: t,
		store:     s,
		detectors: detectors,
		bus:       bus,
		mapper:    m,
		mixer:     mixer,
		engine:    engine,
		log:       log,
		stopCh:    make(chan struct{}),
	}
}

// OnBlock registers an observer called with every rendered audio
// block, in addition to it being written to the audio engine. Used to
// feed a session recorder without coupling it into the render path.
func (o *Orchestrator) OnBlock(fn func([]float64)) {
	o.onBlock = fn
}

// Stop requests the loop exit at the next iteration boundary. It is
// idempotent and safe to call from any goroutine, any number of
// times.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() { close(o.stopCh) })
}

// Run connects the transport (with bounded retries), starts the audio
// engine, and runs the tick loop until ctx is cancelled or Stop is
// called, then shuts everything down. Only a transport connection
// failure after exhausting retries is returned as a fatal error;
// rendering and disconnection failures are logged and swallowed.
func (o *Orchestrator) Run(ctx context.Context) error {
	if err := o.connectWithRetry(ctx); err != nil {
		return err
	}

	renderingEnabled := true
	if err := o.engine.Start(); err != nil {
		if o.log != nil {
			o.log.Error("audio engine failed to start, running without audio output", "err", err)
		}
		renderingEnabled = false
	}

	start := time.Now()
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return o.tickLoop(gctx, start, renderingEnabled)
	})
	group.Go(func() error {
		select {
		case <-gctx.Done():
		case <-o.stopCh:
		}
		o.Stop()
		return nil
	})

	err := group.Wait()

	if stopErr := o.engine.Stop(); stopErr != nil && o.log != nil {
		o.log.Error("audio engine failed to stop cleanly", "err", stopErr)
	}
	if discErr := o.transport.Disconnect(context.Background()); discErr != nil && o.log != nil {
		o.log.Error("transport failed to disconnect cleanly", "err", discErr)
	}
	return err
}

func (o *Orchestrator) connectWithRetry(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt <= o.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if o.log != nil {
				o.log.Warn("retrying transport connection", "attempt", attempt, "err", lastErr)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(o.cfg.RetryDelay):
			}
		}
		if err := o.transport.Connect(ctx); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return lastErr
}

func (o *Orchestrator) tickLoop(ctx context.Context, start time.Time, renderingEnabled bool) error {
	ticker := time.NewTicker(o.cfg.ControlInterval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-o.stopCh:
			return nil
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			o.tick(now, start, dt, renderingEnabled)
		}
	}
}

// tick runs one iteration of the control loop. nowSeconds is derived
// from the monotonic clock reading carried on now/start (time.Time's
// Sub uses it when both values have one), per spec.md §3's requirement
// that event timestamps never go backward on a wall-clock step.
func (o *Orchestrator) tick(now, start time.Time, dt float64, renderingEnabled bool) {
	nowSeconds := now.Sub(start).Seconds()

	for _, d := range o.detectors {
		for _, e := range d.Detect(o.store, nowSeconds) {
			o.mapper.HandleEvent(e)
			o.bus.Publish(e)
		}
	}

	o.mapper.UpdateContinuous(o.store, nowSeconds)
	o.mapper.DecayTriggers(dt)

	if !renderingEnabled {
		return
	}
	block := o.mixer.Generate(o.mapper.Params, o.cfg.AudioBlockSize)
	o.engine.Write(block)
	if o.onBlock != nil {
		o.onBlock(block)
	}
}
