package audioengine

import (
	"sync"

	"github.com/GiovanniFerrara/thebox/internal/telemetry"
	"github.com/gordonklaus/portaudio"
)

// Engine is the output sink a rendered audio block is written to.
type Engine interface {
	Start() error
	Write(block []float64)
	Stop() error
}

// PortAudioEngine drives a real output device via PortAudio. Blocks
// handed to Write are queued into a bounded ring and drained by the
// PortAudio callback; once the queue is full, the oldest queued block
// is dropped to make room (spec.md §5's drop-tail back-pressure
// policy).
type PortAudioEngine struct {
	SampleRate float64
	BlockSize  int
	Channels   int

	log telemetry.Logger

	mu       sync.Mutex
	queue    [][]float64
	maxDepth int

	stream *portaudio.Stream
}

// NewPortAudioEngine returns a PortAudioEngine that has not yet
// opened a device; call Start to do so. maxDepth bounds how many
// blocks may be queued before the oldest is dropped.
func NewPortAudioEngine(sampleRate float64, blockSize, channels, maxDepth int, log telemetry.Logger) *PortAudioEngine {
	return &PortAudioEngine{
		SampleRate: sampleRate,
		BlockSize:  blockSize,
		Channels:   channels,
		maxDepth:   maxDepth,
		log:        log,
	}
}

func (e *PortAudioEngine) Start() error {
	if err := portaudio.Initialize(); err != nil {
		return err
	}
	stream, err := portaudio.OpenDefaultStream(0, e.Channels, e.SampleRate, e.BlockSize, e.callback)
	if err != nil {
		_ = portaudio.Terminate()
		return err
	}
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		_ = portaudio.Terminate()
		return err
	}
	e.stream = stream
	return nil
}

func (e *PortAudioEngine) callback(out []float32) {
	e.mu.Lock()
	var block []float64
	if len(e.queue) > 0 {
		block = e.queue[0]
		e.queue = e.queue[1:]
	}
	e.mu.Unlock()

	for i := range out {
		if i < len(block) {
			out[i] = float32(block[i])
		} else {
			out[i] = 0
		}
	}
}

// Write queues block for playback, dropping the oldest queued block
// first if the queue is already at capacity.
func (e *PortAudioEngine) Write(block []float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.queue) >= e.maxDepth {
		e.queue = e.queue[1:]
		if e.log != nil {
			e.log.Warn("audio output queue full, dropping oldest block")
		}
	}
	cp := make([]float64, len(block))
	copy(cp, block)
	e.queue = append(e.queue, cp)
}

func (e *PortAudioEngine) Stop() error {
	if e.stream == nil {
		return nil
	}
	if err := e.stream.Stop(); err != nil {
		return err
	}
	if err := e.stream.Close(); err != nil {
		return err
	}
	e.stream = nil
	e.mu.Lock()
	e.queue = nil
	e.mu.Unlock()
	return portaudio.Terminate()
}

// NullEngine plays nothing: it counts the blocks written to it and
// keeps a reference to the most recent one. Used for headless replay
// and tests where no physical audio output exists.
type NullEngine struct {
	mu     sync.Mutex
	blocks int
	last   []float64
}

func (e *NullEngine) Start() error { return nil }

func (e *NullEngine) Write(block []float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.blocks++
	e.last = block
}

func (e *NullEngine) Stop() error { return nil }

// BlocksWritten returns how many blocks have been written so far.
func (e *NullEngine) BlocksWritten() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.blocks
}

// LastBlock returns the most recently written block, or nil if none
// has been written yet.
func (e *NullEngine) LastBlock() []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}
