package client

import (
	"log"

	"kartnet/pkg/core"
	"kartnet/pkg/protocol"
)

// StateSnapshot 运动学状态及其对应的输入序号和时间
type StateSnapshot struct {
	Position  core.Vec2
	Velocity  core.Vec2
	Angle     float64
	Sequence  int64   // protocol.NoSequence 表示尚无输入
	Timestamp float64 // 秒
}

// Kinematic 转换为运动学状态
func (s StateSnapshot) Kinematic() core.KinematicState {
	return core.KinematicState{Position: s.Position, Velocity: s.Velocity, Angle: s.Angle}
}

// SnapshotFromState 从运动学状态构造快照
func SnapshotFromState(state core.KinematicState, seq int64, timestamp float64) StateSnapshot {
	return StateSnapshot{
		Position:  state.Position,
		Velocity:  state.Velocity,
		Angle:     state.Angle,
		Sequence:  seq,
		Timestamp: timestamp,
	}
}

// SnapshotFromPlayerState 服务器广播中的玩家状态转换为快照
func SnapshotFromPlayerState(p protocol.PlayerState, arrival float64) StateSnapshot {
	return SnapshotFromState(p.Kinematic(), p.LastProcessedSequence, arrival)
}

// InputSender 把未确认的输入发往服务器
type InputSender interface {
	SendInputs(inputs []protocol.InputData) error
}

// Predictor 本地玩家的客户端预测
// 每个本地帧：记录输入 -> 立即模拟 -> 保存快照 -> 发送未确认的输入。
type Predictor struct {
	enabled bool
	dt      float64
	terrain core.Terrain
	sender  InputSender

	state   core.KinematicState
	inputs  *InputBuffer
	records *PredictionBuffer
	history map[uint64]StateSnapshot

	correction *SmoothCorrection
	lastAck    int64

	corrections int
	lastResult  ReconcileResult
}

// NewPredictor 创建预测器，enabled=false 时只发送输入，本地状态完全由服务器决定
func NewPredictor(terrain core.Terrain, sender InputSender, enabled bool) *Predictor {
	return &Predictor{
		enabled:    enabled,
		dt:         core.ClientTimestep,
		terrain:    terrain,
		sender:     sender,
		inputs:     NewInputBuffer(InputBufferSize),
		records:    NewPredictionBuffer(PredictionBufferSize),
		history:    make(map[uint64]StateSnapshot),
		correction: NewSmoothCorrection(),
		lastAck:    protocol.NoSequence,
	}
}

// Enabled 是否开启本地预测
func (p *Predictor) Enabled() bool { return p.enabled }

// SetTerrain 切换赛道（游戏开始时）
func (p *Predictor) SetTerrain(terrain core.Terrain) { p.terrain = terrain }

// Reset 直接采用给定状态，清除视觉偏移
func (p *Predictor) Reset(state core.KinematicState) {
	p.state = state
	p.correction.Reset()
}

// Tick 处理一个本地帧，返回分配的输入序号
func (p *Predictor) Tick(input core.PhysicsInput, now float64) uint64 {
	seq := p.inputs.Add(input, now)

	if p.enabled {
		p.state = core.Advance(p.state, input, p.dt, p.terrain)
		p.history[seq] = SnapshotFromState(p.state, int64(seq), now)
		p.pruneHistory(seq)
		p.records.Push(PredictionRecord{
			Sequence: seq,
			Input:    input,
			State:    p.state,
			Drifting: input.Drifting(),
		})
	}

	p.transmit()
	return seq
}

// pruneHistory 只保留最近 SnapshotHistorySize 个序号的快照
func (p *Predictor) pruneHistory(latest uint64) {
	if latest < SnapshotHistorySize {
		return
	}
	threshold := latest - SnapshotHistorySize + 1
	for seq := range p.history {
		if seq < threshold {
			delete(p.history, seq)
		}
	}
}

// transmit 发送最近的未确认输入（最多 InputSendWindow 个）
func (p *Predictor) transmit() {
	if p.sender == nil {
		return
	}
	pending := p.inputs.GetFromSequence(p.firstUnacked())
	if len(pending) > InputSendWindow {
		pending = pending[len(pending)-InputSendWindow:]
	}
	if len(pending) == 0 {
		return
	}

	batch := make([]protocol.InputData, 0, len(pending))
	for _, in := range pending {
		batch = append(batch, protocol.CoreInputToData(in.Sequence, in.Input))
	}
	if err := p.sender.SendInputs(batch); err != nil {
		log.Printf("发送输入失败: %v", err)
	}
}

func (p *Predictor) firstUnacked() uint64 {
	if p.lastAck < 0 {
		return 0
	}
	return uint64(p.lastAck) + 1
}

// ApplyServerState 应用服务器对本地玩家的权威状态
// 乱序到达的旧快照被忽略，返回 false。
func (p *Predictor) ApplyServerState(server StateSnapshot) (ReconcileResult, bool) {
	if server.Sequence < p.lastAck {
		return ReconcileResult{}, false
	}

	var result ReconcileResult
	if p.enabled {
		predicted := p.state
		result = Reconcile(server, p.inputs, predicted, p.terrain, p.dt)
		p.state = result.State
		if result.Corrected {
			// 渲染位置保持连续：偏移 = 预测位置 - 纠正后位置
			p.correction.Start(predicted.Position.Sub(result.State.Position))
			p.corrections++
		}
	} else {
		p.state = server.Kinematic()
		result = ReconcileResult{State: p.state}
	}

	if server.Sequence >= 0 {
		ack := uint64(server.Sequence)
		p.inputs.ClearBefore(ack + 1)
		p.records.Acknowledge(ack)
	}
	p.lastAck = server.Sequence
	p.lastResult = result
	return result, true
}

// Resync 采用服务器状态并重放未确认输入，不产生视觉纠错（首次出生时使用）
func (p *Predictor) Resync(server StateSnapshot) {
	p.correction.Reset()
	if p.enabled {
		result := Reconcile(server, p.inputs, server.Kinematic(), p.terrain, p.dt)
		p.state = result.State
	} else {
		p.state = server.Kinematic()
	}
	if server.Sequence >= 0 {
		p.inputs.ClearBefore(uint64(server.Sequence) + 1)
		p.records.Acknowledge(uint64(server.Sequence))
	}
	p.lastAck = server.Sequence
}

// UpdateCorrection 推进视觉纠错
func (p *Predictor) UpdateCorrection(dt float64) core.Vec2 {
	return p.correction.Update(dt)
}

// State 物理状态（不含视觉偏移）
func (p *Predictor) State() core.KinematicState { return p.state }

// RenderState 渲染用状态：物理位置加上视觉偏移
func (p *Predictor) RenderState() core.KinematicState {
	s := p.state
	s.Position = s.Position.Add(p.correction.Offset())
	return s
}

// Snapshot 查询某一序号的预测快照
func (p *Predictor) Snapshot(seq uint64) (StateSnapshot, bool) {
	s, ok := p.history[seq]
	return s, ok
}

// HistoryLen 保存的预测快照数量
func (p *Predictor) HistoryLen() int { return len(p.history) }

// Pending 未确认的输入数量
func (p *Predictor) Pending() int { return p.inputs.Len() }

// LastAck 服务器最后处理的序号
func (p *Predictor) LastAck() int64 { return p.lastAck }

// Corrections 触发视觉纠错的次数
func (p *Predictor) Corrections() int { return p.corrections }

// LastResult 最近一次对账结果
func (p *Predictor) LastResult() ReconcileResult { return p.lastResult }

// Records 预测记录缓冲
func (p *Predictor) Records() *PredictionBuffer { return p.records }

// Inputs 输入缓冲
func (p *Predictor) Inputs() *InputBuffer { return p.inputs }
