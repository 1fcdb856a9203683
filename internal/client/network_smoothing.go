package client

import "kartnet/pkg/core"

// RemoteSmoother 远端玩家插值缓冲：只保留上一个和当前两个快照
// 快照时间戳使用本地到达时间（秒）。
type RemoteSmoother struct {
	prev, curr  StateSnapshot
	count       int // 已收到的快照数，最多记到 2
	boosting    bool
	ai          bool
	initialized bool
}

// NewRemoteSmoother 创建插值缓冲器
func NewRemoteSmoother() *RemoteSmoother {
	return &RemoteSmoother{}
}

// Push 添加快照，时间戳不晚于当前快照的乱序包被丢弃
func (s *RemoteSmoother) Push(snap StateSnapshot) {
	if s.initialized && snap.Timestamp <= s.curr.Timestamp {
		return
	}
	s.prev = s.curr
	s.curr = snap
	if s.count < 2 {
		s.count++
	}
	s.initialized = true
}

// SetFlags 记录广播中的附加状态
func (s *RemoteSmoother) SetFlags(boosting, ai bool) {
	s.boosting = boosting
	s.ai = ai
}

func (s *RemoteSmoother) Boosting() bool { return s.boosting }

func (s *RemoteSmoother) AI() bool { return s.ai }

// Initialized 是否已收到至少一个快照
func (s *RemoteSmoother) Initialized() bool { return s.initialized }

// HasPair 是否已有两个快照可供插值
func (s *RemoteSmoother) HasPair() bool { return s.count == 2 }

// Latest 最新快照
func (s *RemoteSmoother) Latest() StateSnapshot { return s.curr }

// Alpha 渲染时间在两快照之间的位置，夹到 [0, 1]
func (s *RemoteSmoother) Alpha(renderTime float64) float64 {
	if s.count < 2 {
		return 1
	}
	interval := s.curr.Timestamp - s.prev.Timestamp
	if interval <= 0 {
		return 1
	}
	return core.Clamp((renderTime-s.prev.Timestamp)/interval, 0, 1)
}

// Sample 在 renderTime 处采样，返回状态和 alpha
// 只有一个快照时原样返回该快照。
func (s *RemoteSmoother) Sample(renderTime float64) (core.KinematicState, float64, bool) {
	if !s.initialized {
		return core.KinematicState{}, 0, false
	}
	if s.count < 2 {
		return s.curr.Kinematic(), 1, true
	}

	alpha := s.Alpha(renderTime)
	interval := s.curr.Timestamp - s.prev.Timestamp
	if interval <= 0 {
		return s.curr.Kinematic(), alpha, true
	}

	return core.KinematicState{
		Position: hermite(s.prev.Position, s.curr.Position, s.prev.Velocity.Scale(interval), s.curr.Velocity.Scale(interval), alpha),
		Velocity: s.prev.Velocity.Add(s.curr.Velocity.Sub(s.prev.Velocity).Scale(alpha)),
		Angle:    core.LerpAngle(s.prev.Angle, s.curr.Angle, alpha),
	}, alpha, true
}

// hermite 三次 Hermite 插值，m0/m1 为按快照间隔缩放后的切线
func hermite(p0, p1, m0, m1 core.Vec2, t float64) core.Vec2 {
	t2 := t * t
	t3 := t2 * t
	h00 := 2*t3 - 3*t2 + 1
	h10 := t3 - 2*t2 + t
	h01 := -2*t3 + 3*t2
	h11 := t3 - t2
	return p0.Scale(h00).Add(m0.Scale(h10)).Add(p1.Scale(h01)).Add(m1.Scale(h11))
}
