package server

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"

	"kartnet/pkg/core"
	"kartnet/pkg/protocol"
)

// LobbyManager 大厅表和玩家所在大厅表
// 锁只保护两张表，等待大厅回复时不持有锁。
type LobbyManager struct {
	ctx  context.Context
	opts lobbyOptions

	mu          sync.RWMutex
	lobbies     map[string]*Lobby // 大厅名 -> 大厅
	playerLobby map[int32]string  // 玩家 ID -> 大厅名

	wg sync.WaitGroup
}

// NewLobbyManager 创建新的大厅管理器
func NewLobbyManager(ctx context.Context, opts lobbyOptions) *LobbyManager {
	return &LobbyManager{
		ctx:         ctx,
		opts:        opts,
		lobbies:     make(map[string]*Lobby),
		playerLobby: make(map[int32]string),
	}
}

// Create 创建大厅，创建者成为房主
func (m *LobbyManager) Create(playerID int32, name, mapChoice string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > MaxLobbyName {
		return ErrInvalidLobbyName
	}
	if mapChoice == "" {
		mapChoice = core.TrackNames()[0]
	}
	track, err := core.LoadTrack(mapChoice)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, in := m.playerLobby[playerID]; in {
		return ErrAlreadyInLobby
	}
	if existing, ok := m.lobbies[name]; ok && existing.Snapshot().State != LobbyDestroyed {
		return ErrLobbyExists
	}

	lobby := newLobby(m.ctx, name, mapChoice, track, playerID, m.opts)
	m.lobbies[name] = lobby
	m.playerLobby[playerID] = name

	m.wg.Add(1)
	go lobby.Run(&m.wg)

	log.Printf("玩家 %d 创建大厅 %s (地图 %s)", playerID, name, mapChoice)
	return nil
}

// Join 加入已有大厅
func (m *LobbyManager) Join(playerID int32, name string) error {
	m.mu.RLock()
	_, in := m.playerLobby[playerID]
	lobby := m.lobbies[name]
	m.mu.RUnlock()

	if in {
		return ErrAlreadyInLobby
	}
	if lobby == nil {
		return ErrLobbyNotFound
	}
	if err := lobby.Join(playerID); err != nil {
		return err
	}

	m.mu.Lock()
	m.playerLobby[playerID] = name
	m.mu.Unlock()
	return nil
}

// Leave 离开当前大厅，返回离开的大厅名
func (m *LobbyManager) Leave(playerID int32) (string, error) {
	m.mu.Lock()
	name, ok := m.playerLobby[playerID]
	delete(m.playerLobby, playerID)
	lobby := m.lobbies[name]
	m.mu.Unlock()

	if !ok {
		return "", ErrNotInLobby
	}
	if lobby == nil {
		return name, nil
	}

	_, destroyed := lobby.Leave(playerID)
	if destroyed {
		m.mu.Lock()
		if m.lobbies[name] == lobby {
			delete(m.lobbies, name)
			log.Printf("大厅 %s 已清理", name)
		}
		m.mu.Unlock()
	}
	return name, nil
}

// Start 房主开始比赛
func (m *LobbyManager) Start(playerID int32, name string) error {
	m.mu.RLock()
	current, in := m.playerLobby[playerID]
	lobby := m.lobbies[name]
	m.mu.RUnlock()

	if lobby == nil {
		return ErrLobbyNotFound
	}
	if !in || current != name {
		return ErrNotInLobby
	}
	return lobby.Start(playerID)
}

// EnqueueInput 把输入放入玩家所在大厅的队列，不在大厅中的输入直接丢弃
func (m *LobbyManager) EnqueueInput(playerID int32, inputs []protocol.InputData) bool {
	if len(inputs) == 0 {
		return false
	}
	m.mu.RLock()
	lobby := m.lobbies[m.playerLobby[playerID]]
	m.mu.RUnlock()

	if lobby == nil {
		return false
	}
	return lobby.EnqueueInput(playerID, inputs)
}

// LobbyOf 玩家当前所在大厅
func (m *LobbyManager) LobbyOf(playerID int32) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.playerLobby[playerID]
	return name, ok
}

// Members 大厅当前成员
func (m *LobbyManager) Members(name string) []int32 {
	m.mu.RLock()
	lobby := m.lobbies[name]
	m.mu.RUnlock()
	if lobby == nil {
		return nil
	}
	return lobby.Snapshot().Members
}

// List 所有存活大厅，按名字排序
func (m *LobbyManager) List() []protocol.LobbyInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := make([]protocol.LobbyInfo, 0, len(m.lobbies))
	for _, lobby := range m.lobbies {
		snap := lobby.Snapshot()
		if snap.State == LobbyDestroyed {
			continue
		}
		list = append(list, snap.Info)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Shutdown 关闭所有大厅
func (m *LobbyManager) Shutdown() {
	m.mu.Lock()
	log.Printf("关闭 %d 个大厅...", len(m.lobbies))
	for _, lobby := range m.lobbies {
		lobby.Shutdown()
	}
	m.mu.Unlock()

	// 等待所有大厅结束
	m.wg.Wait()

	log.Println("所有大厅已关闭")
}
