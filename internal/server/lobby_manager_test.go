package server

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"kartnet/pkg/core"
	"kartnet/pkg/protocol"
)

func TestLobbyManagerLifecycle(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := newCapture()
	m := NewLobbyManager(context.Background(), testLobbyOptions(c, false))
	defer m.Shutdown()

	assert.ErrorIs(t, m.Create(1, "  ", "oval"), ErrInvalidLobbyName)
	assert.ErrorIs(t, m.Create(1, "alpha", "moon"), core.ErrUnknownTrack)
	require.NoError(t, m.Create(1, " alpha ", "oval"))
	assert.ErrorIs(t, m.Create(1, "beta", "oval"), ErrAlreadyInLobby)
	assert.ErrorIs(t, m.Create(2, "alpha", "oval"), ErrLobbyExists)

	name, ok := m.LobbyOf(1)
	require.True(t, ok)
	assert.Equal(t, "alpha", name)

	assert.ErrorIs(t, m.Join(2, "nowhere"), ErrLobbyNotFound)
	require.NoError(t, m.Join(2, "alpha"))
	assert.ErrorIs(t, m.Join(2, "alpha"), ErrAlreadyInLobby)
	require.NoError(t, m.Create(3, "beta", ""))

	assert.Equal(t, []protocol.LobbyInfo{
		{Name: "alpha", Players: 2, Map: "oval"},
		{Name: "beta", Players: 1, Map: core.TrackNames()[0]},
	}, m.List())
	assert.Equal(t, []int32{1, 2}, m.Members("alpha"))

	assert.ErrorIs(t, m.Start(2, "alpha"), ErrNotHost)
	assert.ErrorIs(t, m.Start(3, "alpha"), ErrNotInLobby)
	assert.ErrorIs(t, m.Start(1, "gamma"), ErrLobbyNotFound)
	require.NoError(t, m.Start(1, "alpha"))
	assert.True(t, m.EnqueueInput(1, []protocol.InputData{{Sequence: 0}}))
	assert.False(t, m.EnqueueInput(4, []protocol.InputData{{Sequence: 0}}), "不在大厅中")
	assert.False(t, m.EnqueueInput(1, nil))

	// 房主离开，房主转移给 2
	left, err := m.Leave(1)
	require.NoError(t, err)
	assert.Equal(t, "alpha", left)
	_, err = m.Leave(1)
	assert.ErrorIs(t, err, ErrNotInLobby)
	assert.Equal(t, []int32{2}, m.Members("alpha"))

	// 最后一人离开后大厅被删除，名字可以复用
	_, err = m.Leave(2)
	require.NoError(t, err)
	assert.Equal(t, []protocol.LobbyInfo{{Name: "beta", Players: 1, Map: core.TrackNames()[0]}}, m.List())
	assert.Nil(t, m.Members("alpha"))
	require.NoError(t, m.Create(2, "alpha", "canyon"))
}
