package client

import (
	"log"
	"time"

	"kartnet/pkg/protocol"
)

// LobbyCommands 大厅相关的请求
type LobbyCommands interface {
	CreateLobby(name, mapChoice string) error
	JoinLobby(name string) error
	LeaveLobby(name string) error
	ListLobbies() error
	StartLobby(name string) error
}

// LobbyClient 跟踪大厅列表、当前大厅和开局状态
// 与渲染无关，由帧循环把服务器消息交给 Apply。
type LobbyClient struct {
	network LobbyCommands

	lobbies       []protocol.LobbyInfo
	current       string
	pending       string // 已发出创建/加入请求、等待确认的大厅名
	host          bool
	started       *protocol.GameStarted
	lastError     string
	lastListFetch time.Time
}

func NewLobbyClient(network LobbyCommands) *LobbyClient {
	return &LobbyClient{network: network}
}

// Create 创建大厅（创建者成为房主）
func (lc *LobbyClient) Create(name, mapChoice string) error {
	lc.pending = name
	lc.lastError = ""
	return lc.network.CreateLobby(name, mapChoice)
}

// Join 加入大厅
func (lc *LobbyClient) Join(name string) error {
	lc.pending = name
	lc.lastError = ""
	return lc.network.JoinLobby(name)
}

// Leave 离开当前大厅
func (lc *LobbyClient) Leave() error {
	if lc.current == "" {
		return nil
	}
	return lc.network.LeaveLobby(lc.current)
}

// Start 房主开始游戏
func (lc *LobbyClient) Start() error {
	if lc.current == "" || !lc.host {
		return nil
	}
	return lc.network.StartLobby(lc.current)
}

// Refresh 每秒最多请求一次大厅列表
func (lc *LobbyClient) Refresh(now time.Time, force bool) {
	if !force && now.Sub(lc.lastListFetch) < time.Second {
		return
	}
	lc.lastListFetch = now
	if err := lc.network.ListLobbies(); err != nil {
		log.Printf("请求大厅列表失败: %v", err)
	}
}

// Apply 处理大厅相关消息，返回是否已处理
func (lc *LobbyClient) Apply(msg any) bool {
	switch m := msg.(type) {
	case *protocol.ActiveLobbies:
		lc.lobbies = m.Lobbies
	case *protocol.Confirmation:
		lc.applyConfirmation(m.Message)
	case *protocol.Error:
		lc.lastError = m.Message
		lc.pending = ""
		log.Printf("服务器错误: %s", m.Message)
	case *protocol.GameStarted:
		lc.current = m.Lobby
		lc.started = m
		log.Printf("大厅 %s: 游戏开始，赛道 %s", m.Lobby, m.MapChoice)
	default:
		return false
	}
	return true
}

func (lc *LobbyClient) applyConfirmation(message string) {
	lc.lastError = ""
	switch message {
	case protocol.ConfirmLobbyCreated:
		lc.current, lc.pending = lc.pending, ""
		lc.host = true
		lc.started = nil
	case protocol.ConfirmLobbyJoined:
		lc.current, lc.pending = lc.pending, ""
		lc.host = false
		lc.started = nil
	case protocol.ConfirmLobbyLeft:
		lc.current = ""
		lc.host = false
		lc.started = nil
	case protocol.ConfirmHostAssigned:
		lc.host = true
	}
}

// Lobbies 最近一次收到的大厅列表
func (lc *LobbyClient) Lobbies() []protocol.LobbyInfo { return lc.lobbies }

// Current 当前所在大厅，空字符串表示不在大厅中
func (lc *LobbyClient) Current() string { return lc.current }

// IsHost 是否为当前大厅房主
func (lc *LobbyClient) IsHost() bool { return lc.host }

// Started 已开始的游戏信息
func (lc *LobbyClient) Started() (*protocol.GameStarted, bool) {
	return lc.started, lc.started != nil
}

// LastError 最近一次服务器错误
func (lc *LobbyClient) LastError() string { return lc.lastError }
