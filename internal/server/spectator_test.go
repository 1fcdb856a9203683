package server

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kartnet/pkg/protocol"
)

func newTestHub() (*SpectatorHub, *httptest.Server) {
	hub := NewSpectatorHub(func() []protocol.LobbyInfo {
		return []protocol.LobbyInfo{{Name: "alpha", Players: 2, Map: "oval", Started: true}}
	})
	return hub, httptest.NewServer(hub.Handler())
}

func TestSpectatorLobbies(t *testing.T) {
	hub, srv := newTestHub()
	defer srv.Close()
	defer hub.Close()

	resp, err := http.Get(srv.URL + "/lobbies")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var list protocol.ActiveLobbies
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Equal(t, protocol.TypeActiveLobbies, list.Type)
	assert.Equal(t, []protocol.LobbyInfo{{Name: "alpha", Players: 2, Map: "oval", Started: true}}, list.Lobbies)
}

func TestSpectatorMissingLobby(t *testing.T) {
	hub, srv := newTestHub()
	defer srv.Close()
	defer hub.Close()

	resp, err := http.Get(srv.URL + "/spectate")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "missing lobby")
}

func TestSpectatorReceivesBroadcasts(t *testing.T) {
	hub, srv := newTestHub()
	defer srv.Close()
	defer hub.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/spectate?lobby=alpha"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Count("alpha") == 1 }, 2*time.Second, 5*time.Millisecond)

	update, err := protocol.Marshal(protocol.NewGameStateUpdate(3, []protocol.PlayerState{{ID: 1, X: 10}}))
	require.NoError(t, err)
	hub.Publish("beta", []byte("其他大厅\n"))
	hub.Publish("alpha", update)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	typ, data, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, typ)
	assert.Equal(t, strings.TrimSuffix(string(update), "\n"), string(data))

	msg, err := protocol.DecodeServerMessage(data)
	require.NoError(t, err)
	got, ok := msg.(*protocol.GameStateUpdate)
	require.True(t, ok)
	assert.Equal(t, uint64(3), got.Tick)

	// 观众断开后取消订阅
	conn.Close()
	require.Eventually(t, func() bool { return hub.Count("alpha") == 0 }, 2*time.Second, 5*time.Millisecond)
}
