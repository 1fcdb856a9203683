package ai

import (
	"math"

	"kartnet/pkg/core"
)

// BehaviorKind AI 行为种类
type BehaviorKind int

const (
	BehaviorRace    BehaviorKind = iota // 沿检查点行驶
	BehaviorRecover                     // 倒车脱困
)

func (k BehaviorKind) String() string {
	switch k {
	case BehaviorRace:
		return "race"
	case BehaviorRecover:
		return "recover"
	default:
		return "unknown"
	}
}

// Behavior 行为状态，各种类的数据直接内联
type Behavior struct {
	Kind          BehaviorKind
	Checkpoint    int // 下一个检查点下标
	StuckFrames   int // Race: 连续低速帧数
	RecoverFrames int // Recover: 剩余倒车帧数
}

// Observation 每帧给行为的观测
type Observation struct {
	State   core.KinematicState
	Target  core.Vec2 // 当前寻路目标（像素）
	Reached bool      // 是否到达当前检查点
}

// Transition 根据观测计算下一个行为状态
func Transition(b Behavior, obs Observation, cfg *AIConfig, checkpoints int) Behavior {
	switch b.Kind {
	case BehaviorRace:
		if obs.Reached && checkpoints > 0 {
			b.Checkpoint = (b.Checkpoint + 1) % checkpoints
		}
		if obs.State.Velocity.Len() < cfg.StuckSpeed {
			b.StuckFrames++
		} else {
			b.StuckFrames = 0
		}
		if b.StuckFrames >= cfg.StuckFrames {
			return Behavior{Kind: BehaviorRecover, Checkpoint: b.Checkpoint, RecoverFrames: cfg.RecoverFrames}
		}
		return b

	case BehaviorRecover:
		b.RecoverFrames--
		if b.RecoverFrames <= 0 {
			return Behavior{Kind: BehaviorRace, Checkpoint: b.Checkpoint}
		}
		return b
	}
	return Behavior{Kind: BehaviorRace, Checkpoint: b.Checkpoint}
}

// Input 当前行为在观测下产生的操作
func (b Behavior) Input(obs Observation, cfg *AIConfig) core.PhysicsInput {
	toTarget := obs.Target.Sub(obs.State.Position)
	var diff float64
	if !toTarget.IsZero() {
		diff = core.AngleDiff(obs.State.Angle, math.Atan2(toTarget.Y, toTarget.X))
	}

	in := core.PhysicsInput{
		Left:  diff < -cfg.SteerDeadzone,
		Right: diff > cfg.SteerDeadzone,
	}

	switch b.Kind {
	case BehaviorRecover:
		in.Backward = true
	default:
		in.Forward = true
		in.Drift = math.Abs(diff) > cfg.DriftAngle
		in.Boost = cfg.BoostOnStraight && math.Abs(diff) < 0.1 && obs.State.Velocity.Len() > 200
	}
	return in
}

// Driver AI 车手，服务器为空位补充
type Driver struct {
	PlayerID int32
	config   *AIConfig
	track    *core.Track
	behavior Behavior

	thinkCounter int
	target       core.Vec2
}

// NewDriver 创建 AI 车手，使用默认配置（普通难度）
func NewDriver(playerID int32, track *core.Track) *Driver {
	return NewDriverWithConfig(playerID, track, &AIConfigNormal)
}

// NewDriverWithConfig 创建 AI 车手，使用指定配置
func NewDriverWithConfig(playerID int32, track *core.Track, config *AIConfig) *Driver {
	if config == nil {
		config = &AIConfigNormal
	}
	return &Driver{
		PlayerID: playerID,
		config:   config,
		track:    track,
		behavior: Behavior{Kind: BehaviorRace},
	}
}

// Behavior 当前行为
func (d *Driver) Behavior() Behavior {
	return d.behavior
}

// Decide 根据当前状态给出本帧输入
func (d *Driver) Decide(state core.KinematicState) core.PhysicsInput {
	if d.track == nil || len(d.track.Checkpoints) == 0 {
		return core.PhysicsInput{}
	}

	cell := core.WorldToGrid(state.Position)
	checkpoint := d.track.Checkpoints[d.behavior.Checkpoint]
	reached := cell == checkpoint

	if reached || d.thinkCounter <= 0 {
		d.thinkCounter = d.config.ThinkIntervalFrames
		d.target = d.plan(cell, reached)
	}
	d.thinkCounter--

	obs := Observation{State: state, Target: d.target, Reached: reached}
	d.behavior = Transition(d.behavior, obs, d.config, len(d.track.Checkpoints))
	return d.behavior.Input(obs, d.config)
}

// plan 找到通往下一个检查点路径上的下一个格子
func (d *Driver) plan(cell core.GridPos, reached bool) core.Vec2 {
	idx := d.behavior.Checkpoint
	if reached {
		idx = (idx + 1) % len(d.track.Checkpoints)
	}
	goal := d.track.Checkpoints[idx]
	next, ok := nextStepToward(d.track, cell, goal)
	if !ok {
		return core.GridCenter(goal)
	}
	return core.GridCenter(next)
}
