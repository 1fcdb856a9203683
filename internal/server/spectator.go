package server

import (
	"bytes"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"kartnet/pkg/protocol"
)

const (
	spectatorWriteWait  = 5 * time.Second
	spectatorBufferSize = 64
)

type spectator struct {
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
	once   sync.Once
}

func (s *spectator) close() {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
	})
}

// SpectatorHub 观战推送：每个大厅的状态广播转发给 WebSocket 观众
type SpectatorHub struct {
	mu       sync.Mutex
	subs     map[string]map[*spectator]struct{}
	lobbies  func() []protocol.LobbyInfo
	upgrader websocket.Upgrader
}

// NewSpectatorHub 创建观战中心，lobbies 提供大厅列表
func NewSpectatorHub(lobbies func() []protocol.LobbyInfo) *SpectatorHub {
	return &SpectatorHub{
		subs:    make(map[string]map[*spectator]struct{}),
		lobbies: lobbies,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// Handler 返回 HTTP 路由：/lobbies 与 /spectate?lobby=NAME
func (h *SpectatorHub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/lobbies", h.serveLobbies)
	mux.HandleFunc("/spectate", h.serveSpectate)
	return mux
}

func (h *SpectatorHub) serveLobbies(w http.ResponseWriter, r *http.Request) {
	data, err := json.Marshal(protocol.NewActiveLobbies(h.lobbies()))
	if err != nil {
		http.Error(w, "failed to encode", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (h *SpectatorHub) serveSpectate(w http.ResponseWriter, r *http.Request) {
	lobby := r.URL.Query().Get("lobby")
	if lobby == "" {
		http.Error(w, "missing lobby", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("观战连接升级失败 (%s): %v", lobby, err)
		return
	}

	sub := &spectator{
		conn:   conn,
		sendCh: make(chan []byte, spectatorBufferSize),
		done:   make(chan struct{}),
	}
	h.subscribe(lobby, sub)
	defer h.unsubscribe(lobby, sub)
	log.Printf("观众 %s 开始观看大厅 %s", conn.RemoteAddr(), lobby)

	// 观众不发消息，读循环只用来感知断开
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sub.close()
				return
			}
		}
	}()

	for {
		select {
		case <-sub.done:
			return
		case data := <-sub.sendCh:
			conn.SetWriteDeadline(time.Now().Add(spectatorWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Printf("观战推送失败 (%s): %v", lobby, err)
				sub.close()
				return
			}
		}
	}
}

func (h *SpectatorHub) subscribe(lobby string, sub *spectator) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[lobby]
	if !ok {
		set = make(map[*spectator]struct{})
		h.subs[lobby] = set
	}
	set[sub] = struct{}{}
}

func (h *SpectatorHub) unsubscribe(lobby string, sub *spectator) {
	h.mu.Lock()
	if set, ok := h.subs[lobby]; ok {
		delete(set, sub)
		if len(set) == 0 {
			delete(h.subs, lobby)
		}
	}
	h.mu.Unlock()
	sub.close()
}

// Publish 推送一条大厅广播，观众跟不上时丢弃
func (h *SpectatorHub) Publish(lobby string, data []byte) {
	data = bytes.TrimRight(data, "\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[lobby] {
		select {
		case sub.sendCh <- data:
		default:
		}
	}
}

// Count 正在观看某个大厅的人数
func (h *SpectatorHub) Count(lobby string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[lobby])
}

// Close 断开所有观众
func (h *SpectatorHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.subs {
		for sub := range set {
			sub.close()
		}
	}
}
