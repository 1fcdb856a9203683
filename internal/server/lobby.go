package server

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"kartnet/pkg/ai"
	"kartnet/pkg/core"
	"kartnet/pkg/protocol"
)

// 错误文本即下发给客户端的错误码
var (
	ErrLobbyFull        = errors.New("lobby_full")
	ErrLobbyStarted     = errors.New("lobby_started")
	ErrLobbyNotFound    = errors.New("lobby_not_found")
	ErrLobbyExists      = errors.New("lobby_exists")
	ErrAlreadyInLobby   = errors.New("already_in_lobby")
	ErrNotInLobby       = errors.New("not_in_lobby")
	ErrNotHost          = errors.New("not_host")
	ErrInvalidLobbyName = errors.New("invalid_lobby_name")
)

// LobbyState 大厅状态：Forming -> Started -> Destroyed
type LobbyState int

const (
	LobbyForming LobbyState = iota
	LobbyStarted
	LobbyDestroyed
)

func (s LobbyState) String() string {
	switch s {
	case LobbyForming:
		return "forming"
	case LobbyStarted:
		return "started"
	case LobbyDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Sender 把已序列化的消息发给某个玩家，不等待确认
type Sender func(playerID int32, data []byte)

type lobbyOptions struct {
	tick     time.Duration
	enableAI bool
	aiConfig *ai.AIConfig
	maxQueue int

	send    Sender
	publish func(lobby string, data []byte) // 观战推送，可为空
	allocID func() int32                    // AI 车手 ID
}

// LobbySnapshot 大厅对外可见的状态，每次变化后由大厅协程发布
type LobbySnapshot struct {
	Info    protocol.LobbyInfo
	State   LobbyState
	Host    int32
	Members []int32
}

// Lobby 一场比赛的权威状态
// 所有状态只在 Run 协程内修改，外部通过通道发送请求。
type Lobby struct {
	ctx    context.Context
	cancel context.CancelFunc

	name      string
	mapChoice string
	track     *core.Track
	opts      lobbyOptions

	state    LobbyState
	host     int32
	members  map[int32]struct{}
	sessions map[int32]*PlayerSession
	order    []int32
	tick     uint64

	snapshot atomic.Value // LobbySnapshot

	joinCh  chan lobbyRequest
	leaveCh chan leaveRequest
	startCh chan lobbyRequest
	inputCh chan inputEvent
}

type lobbyRequest struct {
	playerID int32
	respCh   chan error
}

type leaveRequest struct {
	playerID int32
	respCh   chan leaveResult
}

type leaveResult struct {
	removed   bool
	destroyed bool
}

type inputEvent struct {
	playerID int32
	inputs   []protocol.InputData
}

func newLobby(parent context.Context, name, mapChoice string, track *core.Track, host int32, opts lobbyOptions) *Lobby {
	ctx, cancel := context.WithCancel(parent)
	if opts.tick <= 0 {
		opts.tick = time.Second / core.ServerTPS
	}

	l := &Lobby{
		ctx:       ctx,
		cancel:    cancel,
		name:      name,
		mapChoice: mapChoice,
		track:     track,
		opts:      opts,
		state:     LobbyForming,
		host:      host,
		members:   map[int32]struct{}{host: {}},
		sessions:  make(map[int32]*PlayerSession),
		joinCh:    make(chan lobbyRequest),
		leaveCh:   make(chan leaveRequest),
		startCh:   make(chan lobbyRequest),
		inputCh:   make(chan inputEvent, inputQueueSize),
	}
	l.publishSnapshot()
	return l
}

// Name 大厅名
func (l *Lobby) Name() string { return l.name }

// Snapshot 最近一次发布的大厅状态
func (l *Lobby) Snapshot() LobbySnapshot {
	return l.snapshot.Load().(LobbySnapshot)
}

// Done 大厅协程退出后关闭
func (l *Lobby) Done() <-chan struct{} {
	return l.ctx.Done()
}

func (l *Lobby) Run(wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(l.opts.tick)
	defer ticker.Stop()

	log.Printf("大厅 %s: 循环启动, 地图 %s, 房主 %d", l.name, l.mapChoice, l.host)

	for {
		select {
		case <-l.ctx.Done():
			log.Printf("大厅 %s: 循环停止", l.name)
			return

		case req := <-l.joinCh:
			req.respCh <- l.join(req.playerID)

		case req := <-l.leaveCh:
			req.respCh <- l.leave(req.playerID)

		case req := <-l.startCh:
			req.respCh <- l.start(req.playerID)

		case ev := <-l.inputCh:
			l.enqueue(ev)

		case <-ticker.C:
			l.step()
		}
	}
}

func (l *Lobby) Shutdown() {
	l.cancel()
}

// await 等待大厅回复；大厅在回复后立即关闭时仍然取到回复
func await[T any](ctx context.Context, ch chan T) (T, bool) {
	select {
	case v := <-ch:
		return v, true
	case <-ctx.Done():
		select {
		case v := <-ch:
			return v, true
		default:
			var zero T
			return zero, false
		}
	}
}

func (l *Lobby) request(ch chan lobbyRequest, playerID int32) error {
	respCh := make(chan error, 1)
	select {
	case <-l.ctx.Done():
		return ErrLobbyNotFound
	case ch <- lobbyRequest{playerID: playerID, respCh: respCh}:
	}
	err, ok := await(l.ctx, respCh)
	if !ok {
		return ErrLobbyNotFound
	}
	return err
}

// Join 加入大厅（只在组队阶段）
func (l *Lobby) Join(playerID int32) error {
	return l.request(l.joinCh, playerID)
}

// Start 房主开始比赛
func (l *Lobby) Start(playerID int32) error {
	return l.request(l.startCh, playerID)
}

// Leave 离开大厅，返回大厅是否因此销毁
func (l *Lobby) Leave(playerID int32) (removed, destroyed bool) {
	respCh := make(chan leaveResult, 1)
	select {
	case <-l.ctx.Done():
		return false, true
	case l.leaveCh <- leaveRequest{playerID: playerID, respCh: respCh}:
	}
	res, ok := await(l.ctx, respCh)
	if !ok {
		return false, true
	}
	return res.removed, res.destroyed
}

// EnqueueInput 转交一批输入，不阻塞读协程
func (l *Lobby) EnqueueInput(playerID int32, inputs []protocol.InputData) bool {
	if l.ctx.Err() != nil {
		return false
	}
	select {
	case <-l.ctx.Done():
		return false
	case l.inputCh <- inputEvent{playerID: playerID, inputs: inputs}:
		return true
	default:
		log.Printf("大厅 %s: 输入通道满，丢弃玩家 %d 的 %d 个输入", l.name, playerID, len(inputs))
		return false
	}
}

// ========== 以下方法只在大厅协程中调用 ==========

func (l *Lobby) join(playerID int32) error {
	switch l.state {
	case LobbyStarted:
		return ErrLobbyStarted
	case LobbyDestroyed:
		return ErrLobbyNotFound
	}
	if _, ok := l.members[playerID]; ok {
		return ErrAlreadyInLobby
	}
	if len(l.members) >= MaxPlayers {
		return ErrLobbyFull
	}

	l.members[playerID] = struct{}{}
	log.Printf("大厅 %s: 玩家 %d 加入，当前人数 %d/%d", l.name, playerID, len(l.members), MaxPlayers)
	l.publishSnapshot()
	return nil
}

func (l *Lobby) leave(playerID int32) leaveResult {
	if _, ok := l.members[playerID]; !ok {
		return leaveResult{destroyed: l.state == LobbyDestroyed}
	}

	delete(l.members, playerID)
	if _, ok := l.sessions[playerID]; ok {
		delete(l.sessions, playerID)
		l.rebuildOrder()
	}
	log.Printf("大厅 %s: 玩家 %d 离开，剩余 %d 人", l.name, playerID, len(l.members))

	if len(l.members) == 0 {
		l.destroy()
		return leaveResult{removed: true, destroyed: true}
	}

	if playerID == l.host {
		l.host = l.lowestMember()
		log.Printf("大厅 %s: 房主变更为玩家 %d", l.name, l.host)
		l.sendTo(l.host, protocol.NewConfirmation(protocol.ConfirmHostAssigned))
	}
	l.publishSnapshot()
	return leaveResult{removed: true}
}

func (l *Lobby) start(playerID int32) error {
	switch l.state {
	case LobbyStarted:
		return ErrLobbyStarted
	case LobbyDestroyed:
		return ErrLobbyNotFound
	}
	if _, ok := l.members[playerID]; !ok {
		return ErrNotInLobby
	}
	if playerID != l.host {
		return ErrNotHost
	}

	// 按 ID 顺序分配出生点，剩余位置由 AI 补满
	slot := 0
	for _, id := range l.sortedMembers() {
		l.sessions[id] = NewPlayerSession(id, l.track.SpawnState(slot), l.opts.maxQueue)
		slot++
	}
	if l.opts.enableAI && l.opts.allocID != nil {
		for ; slot < MaxPlayers && slot < len(l.track.Spawns); slot++ {
			id := l.opts.allocID()
			driver := ai.NewDriverWithConfig(id, l.track, l.opts.aiConfig)
			l.sessions[id] = NewAISession(id, l.track.SpawnState(slot), driver)
			log.Printf("大厅 %s: AI 车手 %d 加入，出生点 %d", l.name, id, slot)
		}
	}
	l.rebuildOrder()
	l.state = LobbyStarted

	log.Printf("大厅 %s: 比赛开始，%d 名玩家，%d 辆车", l.name, len(l.members), len(l.sessions))
	l.broadcast(protocol.NewGameStarted(l.name, l.mapChoice, time.Now().UnixMilli()))
	l.publishSnapshot()
	return nil
}

func (l *Lobby) enqueue(ev inputEvent) {
	if l.state != LobbyStarted {
		return
	}
	s, ok := l.sessions[ev.playerID]
	if !ok || s.IsAI() {
		return
	}
	for _, in := range ev.inputs {
		s.Admit(in)
	}
}

// step 一个权威 tick：回放所有待处理输入，推进 AI，然后广播
func (l *Lobby) step() {
	if l.state != LobbyStarted {
		return
	}
	if len(l.members) == 0 {
		log.Printf("大厅 %s: 比赛中没有任何成员，销毁", l.name)
		l.destroy()
		return
	}

	for _, id := range l.order {
		s := l.sessions[id]
		if s.IsAI() {
			s.StepAI(l.track)
		} else {
			s.Drain(l.track)
		}
	}
	l.tick++
	l.broadcastState()
}

func (l *Lobby) broadcastState() {
	players := make([]protocol.PlayerState, 0, len(l.order))
	for _, id := range l.order {
		players = append(players, l.sessions[id].Snapshot())
	}

	data, err := protocol.Marshal(protocol.NewGameStateUpdate(l.tick, players))
	if err != nil {
		log.Printf("大厅 %s: 序列化状态失败: %v", l.name, err)
		return
	}
	for id := range l.members {
		l.opts.send(id, data)
	}
	if l.opts.publish != nil {
		l.opts.publish(l.name, data)
	}
}

func (l *Lobby) broadcast(msg any) {
	data, err := protocol.Marshal(msg)
	if err != nil {
		log.Printf("大厅 %s: 序列化消息失败: %v", l.name, err)
		return
	}
	for id := range l.members {
		l.opts.send(id, data)
	}
}

func (l *Lobby) sendTo(playerID int32, msg any) {
	data, err := protocol.Marshal(msg)
	if err != nil {
		log.Printf("大厅 %s: 序列化消息失败: %v", l.name, err)
		return
	}
	l.opts.send(playerID, data)
}

func (l *Lobby) destroy() {
	l.state = LobbyDestroyed
	l.members = make(map[int32]struct{})
	l.sessions = make(map[int32]*PlayerSession)
	l.order = nil
	l.publishSnapshot()
	l.cancel()
	log.Printf("大厅 %s: 已销毁", l.name)
}

func (l *Lobby) sortedMembers() []int32 {
	ids := make([]int32, 0, len(l.members))
	for id := range l.members {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (l *Lobby) lowestMember() int32 {
	ids := l.sortedMembers()
	if len(ids) == 0 {
		return -1
	}
	return ids[0]
}

func (l *Lobby) rebuildOrder() {
	l.order = l.order[:0]
	for id := range l.sessions {
		l.order = append(l.order, id)
	}
	sort.Slice(l.order, func(i, j int) bool { return l.order[i] < l.order[j] })
}

func (l *Lobby) session(playerID int32) (*PlayerSession, bool) {
	s, ok := l.sessions[playerID]
	return s, ok
}

func (l *Lobby) publishSnapshot() {
	members := l.sortedMembers()
	l.snapshot.Store(LobbySnapshot{
		Info: protocol.LobbyInfo{
			Name:    l.name,
			Players: len(members),
			Map:     l.mapChoice,
			Started: l.state == LobbyStarted,
		},
		State:   l.state,
		Host:    l.host,
		Members: members,
	})
}
