package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDecodeRejectsShortFrame(t *testing.T) {
	_, err := Decode(make([]byte, 19))
	require.Error(t, err)
	var decErr *DecodeError
	require.ErrorAs(t, err, &decErr)
	assert.Equal(t, 19, decErr.Len)
}

func TestDecodeAllZero(t *testing.T) {
	samples, err := Decode(make([]byte, FrameLen))
	require.NoError(t, err)
	for _, s := range samples {
		assert.Equal(t, 0.0, s)
	}
}

func TestDecodeAllOnes(t *testing.T) {
	raw := make([]byte, FrameLen)
	for i := range raw {
		raw[i] = 0xFF
	}
	samples, err := Decode(raw)
	require.NoError(t, err)
	for _, s := range samples {
		assert.InDelta(t, 4095*ScaleFactor, s, 1e-9)
	}
}

func TestDecodeHeaderIgnored(t *testing.T) {
	payload := make([]byte, 18)
	for i := range payload {
		payload[i] = byte(i * 7)
	}

	withZeroHeader := append([]byte{0x00, 0x00}, payload...)
	withFFHeader := append([]byte{0xFF, 0xFF}, payload...)

	a, err := Decode(withZeroHeader)
	require.NoError(t, err)
	b, err := Decode(withFFHeader)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecodeKnownPattern(t *testing.T) {
	payload := make([]byte, 0, 18)
	for i := 0; i < 6; i++ {
		payload = append(payload, 0x80, 0x08, 0x00)
	}
	raw := append([]byte{0x00, 0x00}, payload...)

	samples, err := Decode(raw)
	require.NoError(t, err)
	assert.InDelta(t, 1000.0, samples[0], 0.01)
}

func TestDecodeAlwaysTwelveSamples(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.SliceOfN(rapid.Byte(), FrameLen, FrameLen).Draw(t, "frame")
		samples, err := Decode(raw)
		require.NoError(t, err)
		assert.Len(t, samples, SamplesPerFrame)
	})
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		var raw [SamplesPerFrame]uint16
		for i := range raw {
			raw[i] = uint16(rapid.IntRange(0, 4095).Draw(t, "sample"))
		}
		frame := EncodeSamples(raw)
		decoded, err := Decode(frame[:])
		require.NoError(t, err)
		for i, want := range raw {
			assert.InDelta(t, float64(want)*ScaleFactor, decoded[i], 1e-9)
		}
	})
}
