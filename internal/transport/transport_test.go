package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimTransportDeliversFramesInOrder(t *testing.T) {
	sim := NewSimTransport()
	var got []float64
	sim.OnFrame(func(ch ChannelID, frame Frame, ts float64) {
		require.Equal(t, AF7, ch)
		got = append(got, ts)
	})
	require.NoError(t, sim.Connect(context.Background()))

	sim.FeedConstant(AF7, 0x800, 3, 256, time.Now())

	require.Len(t, got, 3)
	assert.Equal(t, 0.0, got[0])
	assert.Less(t, got[0], got[1])
	assert.Less(t, got[1], got[2])
}

func TestSimTransportRecordsControls(t *testing.T) {
	sim := NewSimTransport()
	require.NoError(t, sim.SendControl(ControlResume))
	require.NoError(t, sim.SendControl(ControlHalt))
	assert.Equal(t, [][]byte{ControlResume, ControlHalt}, sim.Controls())
}

func TestSimTransportConnectedFlag(t *testing.T) {
	sim := NewSimTransport()
	assert.False(t, sim.Connected())
	require.NoError(t, sim.Connect(context.Background()))
	assert.True(t, sim.Connected())
	require.NoError(t, sim.Disconnect(context.Background()))
	assert.False(t, sim.Connected())
}
