package transport

import (
	"context"
	"sync"
	"time"
)

// FrameCallback is invoked once per received frame, identifying which
// channel it arrived on and when. The transport is responsible for
// delivering frames for a single channel in the order it received
// them; it never reorders.
type FrameCallback func(ch ChannelID, frame Frame, timestampSeconds float64)

// Transport is the collaborator that owns the physical link to the
// headband. A real implementation is a BLE GATT client and lives
// outside this module (spec.md §6); thebox depends only on this
// interface.
type Transport interface {
	// Connect establishes the link and starts delivering frames to
	// whichever callback was registered with OnFrame.
	Connect(ctx context.Context) error
	// Disconnect halts streaming and releases the link. Disconnect
	// must be safe to call even if Connect failed or was never
	// called.
	Disconnect(ctx context.Context) error
	// OnFrame registers the callback invoked for each received
	// frame. Must be called before Connect.
	OnFrame(cb FrameCallback)
	// SendControl sends an opaque command sequence (ControlResume,
	// ControlHalt) to the device.
	SendControl(cmd []byte) error
}

// SimTransport is a deterministic, in-process Transport used by
// tests, cmd/thebox-replay, and local demos. It never touches real
// hardware: callers push either a constant raw value (FeedConstant) or
// an already-encoded frame (FeedFrame) for a channel, and SimTransport
// delivers the frames to the registered callback immediately, on the
// caller's goroutine. Pacing is left to the caller.
type SimTransport struct {
	mu        sync.Mutex
	cb        FrameCallback
	connected bool
	controls  [][]byte
}

// NewSimTransport constructs an idle simulated transport.
func NewSimTransport() *SimTransport {
	return &SimTransport{}
}

func (s *SimTransport) OnFrame(cb FrameCallback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cb = cb
}

func (s *SimTransport) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = true
	return nil
}

func (s *SimTransport) Disconnect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *SimTransport) SendControl(cmd []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(cmd))
	copy(cp, cmd)
	s.controls = append(s.controls, cp)
	return nil
}

// Controls returns every control command sent so far, for test
// assertions.
func (s *SimTransport) Controls() [][]byte {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]byte, len(s.controls))
	copy(out, s.controls)
	return out
}

// Connected reports whether Connect has been called more recently
// than Disconnect.
func (s *SimTransport) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// EncodeConstant builds a 20-byte frame whose 12 samples are all the
// given raw 12-bit value. Used by tests and FeedConstant.
func EncodeConstant(raw12 uint16) Frame {
	return EncodeSamples([SamplesPerFrame]uint16{raw12, raw12, raw12, raw12, raw12, raw12, raw12, raw12, raw12, raw12, raw12, raw12})
}

// EncodeSamples packs 12 raw 12-bit values MSB-first into a frame
// with a zero header, inverse of Decode (up to the fixed ScaleFactor
// quantization).
func EncodeSamples(raw [SamplesPerFrame]uint16) Frame {
	var f Frame
	var bitBuf uint64
	var bitCount uint
	pos := 2
	for _, v := range raw {
		bitBuf = (bitBuf << 12) | uint64(v&0xFFF)
		bitCount += 12
		for bitCount >= 8 {
			bitCount -= 8
			f[pos] = byte(bitBuf >> bitCount)
			pos++
		}
	}
	if bitCount > 0 {
		f[pos] = byte(bitBuf << (8 - bitCount))
	}
	return f
}

// FeedConstant delivers n frames of a constant raw 12-bit value to
// the given channel, each SamplesPerFrame/sampleRate seconds apart in
// its reported timestamp, without actually sleeping.
func (s *SimTransport) FeedConstant(ch ChannelID, raw12 uint16, frames int, sampleRate int, start time.Time) {
	frame := EncodeConstant(raw12)
	s.feedFrames(ch, frame, frames, sampleRate, start)
}

// FeedFrame delivers a single already-encoded frame n times.
func (s *SimTransport) FeedFrame(ch ChannelID, frame Frame, frames int, sampleRate int, start time.Time) {
	s.feedFrames(ch, frame, frames, sampleRate, start)
}

func (s *SimTransport) feedFrames(ch ChannelID, frame Frame, frames int, sampleRate int, start time.Time) {
	s.mu.Lock()
	cb := s.cb
	s.mu.Unlock()
	if cb == nil {
		return
	}
	frameDuration := float64(SamplesPerFrame) / float64(sampleRate)
	for i := 0; i < frames; i++ {
		ts := start.Add(time.Duration(float64(i) * frameDuration * float64(time.Second))).Sub(start).Seconds()
		cb(ch, frame, ts)
	}
}
