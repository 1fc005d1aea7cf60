// Package events implements the detector layer and the pub/sub bus
// that carries detected events to the parameter mapper (spec.md §4.4,
// §4.5): blink, clench and alpha-burst detectors run each tick against
// the sample store, and any events they return are published on a
// synchronous, typed event bus.
package events

import "fmt"

// EventType enumerates the kinds of event a detector can raise.
type EventType int

const (
	Blink EventType = iota
	Clench
	AlphaBurstStart
	AlphaBurstEnd
)

func (t EventType) String() string {
	switch t {
	case Blink:
		return "BLINK"
	case Clench:
		return "CLENCH"
	case AlphaBurstStart:
		return "ALPHA_BURST_START"
	case AlphaBurstEnd:
		return "ALPHA_BURST_END"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is one detection: Value carries a detector-specific magnitude
// (peak-to-peak amplitude, RMS, or baseline ratio) and Metadata holds
// any additional detector-specific detail.
type Event struct {
	Type      EventType
	Timestamp float64
	Value     float64
	Metadata  map[string]float64
}

func (e Event) String() string {
	return fmt.Sprintf("Event(%s, value=%.1f)", e.Type, e.Value)
}
