package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"kartnet/pkg/ai"
	"kartnet/pkg/protocol"
)

// capture 记录发给每个玩家的消息
type capture struct {
	mu        sync.Mutex
	msgs      map[int32][]any
	published int
}

func newCapture() *capture {
	return &capture{msgs: make(map[int32][]any)}
}

func (c *capture) send(id int32, data []byte) {
	msg, err := protocol.DecodeServerMessage(data)
	if err != nil {
		panic(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs[id] = append(c.msgs[id], msg)
}

func (c *capture) publish(string, []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.published++
}

func (c *capture) confirmations(id int32) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []string
	for _, msg := range c.msgs[id] {
		if conf, ok := msg.(*protocol.Confirmation); ok {
			out = append(out, conf.Message)
		}
	}
	return out
}

func (c *capture) lastUpdate(id int32) (*protocol.GameStateUpdate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	msgs := c.msgs[id]
	for i := len(msgs) - 1; i >= 0; i-- {
		if update, ok := msgs[i].(*protocol.GameStateUpdate); ok {
			return update, true
		}
	}
	return nil, false
}

func (c *capture) count(id int32, match func(any) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, msg := range c.msgs[id] {
		if match(msg) {
			n++
		}
	}
	return n
}

func isGameStarted(msg any) bool {
	_, ok := msg.(*protocol.GameStarted)
	return ok
}

func testLobbyOptions(c *capture, enableAI bool) lobbyOptions {
	var mu sync.Mutex
	next := int32(100)
	return lobbyOptions{
		tick:     time.Hour,
		enableAI: enableAI,
		aiConfig: &ai.AIConfigNormal,
		maxQueue: 240,
		send:     c.send,
		publish:  c.publish,
		allocID: func() int32 {
			mu.Lock()
			defer mu.Unlock()
			next++
			return next
		},
	}
}

func newTestLobby(t *testing.T, host int32, enableAI bool, c *capture) *Lobby {
	t.Helper()
	return newLobby(context.Background(), "alpha", "oval", loadTrack(t, "oval"), host, testLobbyOptions(c, enableAI))
}

func playerState(update *protocol.GameStateUpdate, id int32) (protocol.PlayerState, bool) {
	for _, p := range update.Players {
		if p.ID == id {
			return p, true
		}
	}
	return protocol.PlayerState{}, false
}

func TestLobbyJoinRules(t *testing.T) {
	l := newTestLobby(t, 1, true, newCapture())

	for _, id := range []int32{2, 3, 4} {
		require.NoError(t, l.join(id))
	}
	assert.ErrorIs(t, l.join(5), ErrLobbyFull)
	assert.ErrorIs(t, l.join(2), ErrAlreadyInLobby)

	snap := l.Snapshot()
	assert.Equal(t, LobbyForming, snap.State)
	assert.Equal(t, int32(1), snap.Host)
	assert.Equal(t, []int32{1, 2, 3, 4}, snap.Members)
	assert.Equal(t, protocol.LobbyInfo{Name: "alpha", Players: 4, Map: "oval"}, snap.Info)
}

func TestLobbyStartAssignsSpawnsAndFillsAI(t *testing.T) {
	c := newCapture()
	l := newTestLobby(t, 1, true, c)
	require.NoError(t, l.join(2))

	assert.ErrorIs(t, l.start(2), ErrNotHost)
	assert.ErrorIs(t, l.start(7), ErrNotInLobby)
	require.NoError(t, l.start(1))

	assert.ErrorIs(t, l.start(1), ErrLobbyStarted)
	assert.ErrorIs(t, l.join(3), ErrLobbyStarted)
	assert.Equal(t, LobbyStarted, l.Snapshot().State)
	assert.True(t, l.Snapshot().Info.Started)

	// 人类玩家按 ID 占前面的出生点，AI 补满剩下的
	assert.Equal(t, []int32{1, 2, 101, 102}, l.order)
	for slot, id := range l.order {
		s, ok := l.session(id)
		require.True(t, ok)
		assert.Equal(t, l.track.SpawnState(slot), s.State())
		assert.Equal(t, id > 100, s.IsAI())
	}

	assert.Equal(t, 1, c.count(1, isGameStarted))
	assert.Equal(t, 1, c.count(2, isGameStarted))
	assert.Zero(t, c.count(101, isGameStarted), "AI 没有地址")
}

func TestLobbyStartWithoutAI(t *testing.T) {
	l := newTestLobby(t, 1, false, newCapture())
	require.NoError(t, l.start(1))
	assert.Equal(t, []int32{1}, l.order)
}

func TestLobbyHostReassignment(t *testing.T) {
	c := newCapture()
	l := newTestLobby(t, 1, true, c)
	require.NoError(t, l.join(3))
	require.NoError(t, l.join(2))

	res := l.leave(1)
	assert.True(t, res.removed)
	assert.False(t, res.destroyed)
	assert.Equal(t, int32(2), l.Snapshot().Host, "最小 ID 成为房主")
	assert.Equal(t, []string{protocol.ConfirmHostAssigned}, c.confirmations(2))
	assert.Empty(t, c.confirmations(3))

	// 非房主离开不改变房主
	res = l.leave(3)
	assert.True(t, res.removed)
	assert.Equal(t, int32(2), l.Snapshot().Host)

	assert.False(t, l.leave(42).removed)

	res = l.leave(2)
	assert.True(t, res.destroyed)
	assert.Equal(t, LobbyDestroyed, l.Snapshot().State)
	assert.Empty(t, l.Snapshot().Members)
	select {
	case <-l.Done():
	default:
		t.Fatal("销毁后大厅上下文应已取消")
	}
	assert.ErrorIs(t, l.join(5), ErrLobbyNotFound)
}

func TestLobbyStepDrainsAndBroadcasts(t *testing.T) {
	c := newCapture()
	l := newTestLobby(t, 1, true, c)
	require.NoError(t, l.join(2))

	// 开始前的输入被忽略
	l.enqueue(inputEvent{playerID: 1, inputs: []protocol.InputData{inputFor(0)}})
	require.NoError(t, l.start(1))
	s1, _ := l.session(1)
	assert.Zero(t, s1.Pending())

	l.enqueue(inputEvent{playerID: 1, inputs: []protocol.InputData{
		inputFor(4), inputFor(2), inputFor(3), inputFor(0), inputFor(1), inputFor(2),
	}})
	l.enqueue(inputEvent{playerID: 101, inputs: []protocol.InputData{inputFor(0)}})
	assert.Equal(t, 5, s1.Pending())

	l.step()

	update, ok := c.lastUpdate(2)
	require.True(t, ok)
	assert.Equal(t, uint64(1), update.Tick)
	require.Len(t, update.Players, 4)

	p1, ok := playerState(update, 1)
	require.True(t, ok)
	assert.Equal(t, int64(4), p1.LastProcessedSequence)
	p2, _ := playerState(update, 2)
	assert.Equal(t, protocol.NoSequence, p2.LastProcessedSequence)
	bot, _ := playerState(update, 101)
	assert.True(t, bot.AI)

	// 迟到的旧输入不改变任何东西
	before := s1.State()
	l.enqueue(inputEvent{playerID: 1, inputs: []protocol.InputData{inputFor(3)}})
	l.step()
	assert.Equal(t, before, s1.State())
	update, _ = c.lastUpdate(1)
	p1, _ = playerState(update, 1)
	assert.Equal(t, int64(4), p1.LastProcessedSequence)
	assert.Equal(t, uint64(2), update.Tick)
	assert.Equal(t, 2, c.published)
}

func TestLobbyLeaveDuringRace(t *testing.T) {
	c := newCapture()
	l := newTestLobby(t, 1, false, c)
	require.NoError(t, l.join(2))
	require.NoError(t, l.start(1))

	l.leave(2)
	l.step()
	update, ok := c.lastUpdate(1)
	require.True(t, ok)
	_, found := playerState(update, 2)
	assert.False(t, found)
	assert.Len(t, update.Players, 1)
}

func TestLobbyActor(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	c := newCapture()
	opts := testLobbyOptions(c, false)
	opts.tick = 5 * time.Millisecond
	l := newLobby(context.Background(), "beta", "canyon", loadTrack(t, "canyon"), 1, opts)

	var wg sync.WaitGroup
	wg.Add(1)
	go l.Run(&wg)

	require.NoError(t, l.Join(2))
	assert.ErrorIs(t, l.Start(2), ErrNotHost)
	require.NoError(t, l.Start(1))
	require.True(t, l.EnqueueInput(2, []protocol.InputData{inputFor(0), inputFor(1), inputFor(2)}))

	require.Eventually(t, func() bool {
		update, ok := c.lastUpdate(2)
		if !ok {
			return false
		}
		p, ok := playerState(update, 2)
		return ok && p.LastProcessedSequence == 2
	}, 2*time.Second, 5*time.Millisecond)

	removed, destroyed := l.Leave(1)
	assert.True(t, removed)
	assert.False(t, destroyed)
	removed, destroyed = l.Leave(2)
	assert.True(t, removed)
	assert.True(t, destroyed)

	wg.Wait()
	assert.ErrorIs(t, l.Join(3), ErrLobbyNotFound)
	assert.False(t, l.EnqueueInput(1, []protocol.InputData{inputFor(9)}))
}
