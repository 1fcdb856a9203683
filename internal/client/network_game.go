package client

import (
	"log"
	"sort"
	"time"

	"kartnet/pkg/core"
	"kartnet/pkg/protocol"
)

// GameTransport 联机游戏需要的网络能力，由 NetworkClient 实现
type GameTransport interface {
	InputSender
	LobbyCommands
	Receive() (Inbound, bool)
	PlayerID() int32
}

// KartView 一辆车的渲染状态
type KartView struct {
	ID       int32
	State    core.KinematicState
	Boosting bool
	AI       bool
	Local    bool
}

// NetStats 网络调试信息
type NetStats struct {
	Delay       float64
	Pending     int
	LastAck     int64
	Corrections int
	LastError   float64
	Tick        uint64
}

// NetworkGameClient 联机游戏客户端（与渲染无关）
// 每帧：应用服务器消息 -> 采集输入并预测 -> 推进视觉纠错 -> 远端插值。
type NetworkGameClient struct {
	network           GameTransport
	lobby             *LobbyClient
	predictionEnabled bool

	track     *core.Track
	predictor *Predictor
	remotes   map[int32]*RemoteSmoother
	views     map[int32]KartView
	delay     *AdaptiveDelay

	epoch     time.Time
	lastFrame float64
	spawned   bool
	boosting  bool
	tick      uint64
}

// NewNetworkGameClient 创建联机游戏客户端
func NewNetworkGameClient(network GameTransport, predictionEnabled bool) *NetworkGameClient {
	return &NetworkGameClient{
		network:           network,
		lobby:             NewLobbyClient(network),
		predictionEnabled: predictionEnabled,
		remotes:           make(map[int32]*RemoteSmoother),
		views:             make(map[int32]KartView),
		delay:             NewAdaptiveDelay(),
		epoch:             time.Now(),
		lastFrame:         -1,
	}
}

// Lobby 大厅状态
func (ngc *NetworkGameClient) Lobby() *LobbyClient { return ngc.lobby }

// Track 当前赛道，未开局时为 nil
func (ngc *NetworkGameClient) Track() *core.Track { return ngc.track }

// InGame 是否已开局
func (ngc *NetworkGameClient) InGame() bool { return ngc.track != nil }

// Spawned 是否已收到本地玩家的第一个权威状态
func (ngc *NetworkGameClient) Spawned() bool { return ngc.spawned }

func (ngc *NetworkGameClient) seconds(t time.Time) float64 {
	return t.Sub(ngc.epoch).Seconds()
}

// Update 更新一帧
func (ngc *NetworkGameClient) Update(input core.PhysicsInput, now time.Time) {
	t := ngc.seconds(now)
	dt := core.ClientTimestep
	if ngc.lastFrame >= 0 {
		dt = t - ngc.lastFrame
	}
	ngc.lastFrame = t

	// 1. 接收服务器消息
	ngc.drainInbound()
	if !ngc.InGame() {
		return
	}

	// 2. 本地预测并发送输入
	if ngc.spawned {
		ngc.predictor.Tick(input, t)
	}

	// 3. 视觉纠错
	ngc.predictor.UpdateCorrection(dt)

	// 4. 远端插值与延迟自适应
	ngc.sampleRemotes(t)
}

func (ngc *NetworkGameClient) drainInbound() {
	for {
		in, ok := ngc.network.Receive()
		if !ok {
			return
		}

		switch m := in.Message.(type) {
		case *protocol.GameStateUpdate:
			ngc.applyServerState(m, ngc.seconds(in.ReceivedAt))
		case *protocol.GameStarted:
			ngc.lobby.Apply(m)
			ngc.startGame(m)
		default:
			ngc.lobby.Apply(m)
			if ngc.InGame() && ngc.lobby.Current() == "" {
				ngc.endGame()
			}
		}
	}
}

func (ngc *NetworkGameClient) startGame(m *protocol.GameStarted) {
	track, err := core.LoadTrack(m.MapChoice)
	if err != nil {
		log.Printf("无法加载赛道 %q: %v", m.MapChoice, err)
		return
	}
	ngc.track = track
	ngc.predictor = NewPredictor(track, ngc.network, ngc.predictionEnabled)
	ngc.remotes = make(map[int32]*RemoteSmoother)
	ngc.views = make(map[int32]KartView)
	ngc.delay = NewAdaptiveDelay()
	ngc.spawned = false
}

func (ngc *NetworkGameClient) endGame() {
	log.Printf("离开游戏")
	ngc.track = nil
	ngc.predictor = nil
	ngc.remotes = make(map[int32]*RemoteSmoother)
	ngc.views = make(map[int32]KartView)
	ngc.spawned = false
}

// applyServerState 应用服务器广播
func (ngc *NetworkGameClient) applyServerState(update *protocol.GameStateUpdate, arrival float64) {
	if !ngc.InGame() {
		return
	}
	ngc.delay.OnSnapshot(arrival)
	ngc.tick = update.Tick

	self := ngc.network.PlayerID()
	active := make(map[int32]struct{}, len(update.Players))
	for _, p := range update.Players {
		active[p.ID] = struct{}{}
		snap := SnapshotFromPlayerState(p, arrival)

		if p.ID == self {
			ngc.boosting = p.Boosting
			if !ngc.spawned {
				ngc.predictor.Resync(snap)
				ngc.spawned = true
				log.Printf("玩家 %d: 出生于 (%.0f, %.0f)", self, p.X, p.Y)
			} else {
				ngc.predictor.ApplyServerState(snap)
			}
			if ngc.predictionEnabled {
				continue
			}
			// 关闭预测时本地玩家也走插值
		}

		smoother, ok := ngc.remotes[p.ID]
		if !ok {
			smoother = NewRemoteSmoother()
			ngc.remotes[p.ID] = smoother
		}
		smoother.Push(snap)
		smoother.SetFlags(p.Boosting, p.AI)
	}

	// 移除已不存在的玩家
	for id := range ngc.remotes {
		if _, ok := active[id]; !ok {
			delete(ngc.remotes, id)
			delete(ngc.views, id)
			log.Printf("玩家 %d 离开（状态同步）", id)
		}
	}
}

// sampleRemotes 按 now - delay 采样所有远端玩家
// 每帧只向延迟控制器提交一次 alpha：取所有远端实体中最大的。
func (ngc *NetworkGameClient) sampleRemotes(now float64) {
	renderTime := now - ngc.delay.Delay()
	maxAlpha := -1.0
	for id, smoother := range ngc.remotes {
		state, alpha, ok := smoother.Sample(renderTime)
		if !ok {
			continue
		}
		ngc.views[id] = KartView{ID: id, State: state, Boosting: smoother.Boosting(), AI: smoother.AI()}
		if smoother.HasPair() && alpha > maxAlpha {
			maxAlpha = alpha
		}
	}
	if maxAlpha >= 0 {
		ngc.delay.ObserveAlpha(maxAlpha)
	}
	ngc.delay.Update()
}

// LocalKart 本地玩家渲染状态（含视觉纠错偏移）
func (ngc *NetworkGameClient) LocalKart() (KartView, bool) {
	if !ngc.InGame() || !ngc.spawned {
		return KartView{}, false
	}
	self := ngc.network.PlayerID()
	if !ngc.predictionEnabled {
		view, ok := ngc.views[self]
		view.Local = true
		return view, ok
	}
	return KartView{ID: self, State: ngc.predictor.RenderState(), Boosting: ngc.boosting, Local: true}, true
}

// RemoteKarts 远端玩家渲染状态，按 ID 排序
func (ngc *NetworkGameClient) RemoteKarts() []KartView {
	self := ngc.network.PlayerID()
	out := make([]KartView, 0, len(ngc.views))
	for id, view := range ngc.views {
		if id == self {
			continue
		}
		out = append(out, view)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Stats 网络调试信息
func (ngc *NetworkGameClient) Stats() NetStats {
	stats := NetStats{Delay: ngc.delay.Delay(), Tick: ngc.tick, LastAck: protocol.NoSequence}
	if ngc.predictor != nil {
		stats.Pending = ngc.predictor.Pending()
		stats.LastAck = ngc.predictor.LastAck()
		stats.Corrections = ngc.predictor.Corrections()
		stats.LastError = ngc.predictor.LastResult().ErrorMagnitude
	}
	return stats
}
