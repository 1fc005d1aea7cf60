// Package transport decodes the Muse-style bit-packed EEG transport
// frame and defines the Transport collaborator the orchestrator talks
// to. The real BLE GATT client that actually delivers frames over the
// air is an external collaborator (spec.md §6) and is not implemented
// here; SimTransport is a deterministic stand-in used by tests, the
// replay CLI, and local demos.
package transport

import "fmt"

// ChannelID is the closed set of EEG channel identifiers a Muse 2
// headband exposes. Unknown channels are a programming error, never a
// runtime condition to recover from.
type ChannelID int

const (
	TP9 ChannelID = iota
	AF7
	AF8
	TP10
)

// Channels lists the four channel identifiers in a stable order,
// useful for iterating every channel of a Store.
var Channels = [4]ChannelID{TP9, AF7, AF8, TP10}

func (c ChannelID) String() string {
	switch c {
	case TP9:
		return "TP9"
	case AF7:
		return "AF7"
	case AF8:
		return "AF8"
	case TP10:
		return "TP10"
	default:
		panic(fmt.Sprintf("transport: unknown channel id %d", int(c)))
	}
}

// FrameLen is the fixed length in bytes of a transport frame.
const FrameLen = 20

// SamplesPerFrame is the number of 12-bit samples packed into a frame
// once the 2-byte header is discarded.
const SamplesPerFrame = 12

// ScaleFactor converts a raw 12-bit unsigned sample into microvolts:
// 2000 / 4096.
const ScaleFactor = 0.48828125

// Frame is an opaque 20-byte transport frame.
type Frame [FrameLen]byte

// ControlResume and ControlHalt are the opaque command byte sequences
// the orchestrator sends to the transport to start/stop streaming.
var (
	ControlResume = []byte{0x02, 0x64, 0x0A}
	ControlHalt   = []byte{0x02, 0x68, 0x0A}
)

// CharacteristicUUIDs maps each channel (plus the control
// characteristic) to its GATT characteristic UUID. Listed for
// completeness per spec.md §6; consumed only by a real BLE transport.
var CharacteristicUUIDs = map[string]string{
	"TP9":  "273e0003-4c4d-454d-96be-f03bac821358",
	"AF7":  "273e0004-4c4d-454d-96be-f03bac821358",
	"AF8":  "273e0005-4c4d-454d-96be-f03bac821358",
	"TP10": "273e0006-4c4d-454d-96be-f03bac821358",
	"CTRL": "273e0001-4c4d-454d-96be-f03bac821358",
}

// DecodeError reports a malformed frame.
type DecodeError struct {
	Len int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("transport: frame has %d bytes, want %d", e.Len, FrameLen)
}

// Decode decodes a transport frame into 12 microvolt samples in
// stream order. Bytes 0-1 are a header and are discarded; the
// remaining 18 bytes hold 12 twelve-bit unsigned samples packed
// MSB-first, big-endian across bytes. Decode is purely functional:
// the same input always yields the same output.
func Decode(raw []byte) ([SamplesPerFrame]float64, error) {
	var out [SamplesPerFrame]float64
	if len(raw) != FrameLen {
		return out, &DecodeError{Len: len(raw)}
	}

	var bitBuf uint32
	var bitCount uint
	idx := 0
	for _, b := range raw[2:] {
		bitBuf = (bitBuf << 8) | uint32(b)
		bitCount += 8
		for bitCount >= 12 {
			bitCount -= 12
			raw12 := (bitBuf >> bitCount) & 0xFFF
			out[idx] = float64(raw12) * ScaleFactor
			idx++
		}
	}
	return out, nil
}
