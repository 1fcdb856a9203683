package server

import (
	"sort"

	"kartnet/pkg/ai"
	"kartnet/pkg/core"
	"kartnet/pkg/protocol"
)

// PlayerSession 大厅内一辆车的权威状态
// 只由所属大厅的协程读写。
type PlayerSession struct {
	ID int32

	state         core.KinematicState
	lastProcessed int64
	pending       []protocol.InputData
	queued        map[uint64]struct{}
	maxQueue      int

	// 最近一次处理的输入是否按下加速
	boosting bool

	driver *ai.Driver
}

// NewPlayerSession 创建玩家会话
func NewPlayerSession(id int32, spawn core.KinematicState, maxQueue int) *PlayerSession {
	if maxQueue <= 0 {
		maxQueue = 240
	}
	return &PlayerSession{
		ID:            id,
		state:         spawn,
		lastProcessed: protocol.NoSequence,
		queued:        make(map[uint64]struct{}),
		maxQueue:      maxQueue,
	}
}

// NewAISession 创建由 AI 驾驶的会话
func NewAISession(id int32, spawn core.KinematicState, driver *ai.Driver) *PlayerSession {
	s := NewPlayerSession(id, spawn, 1)
	s.driver = driver
	return s
}

// IsAI 是否 AI 车手
func (s *PlayerSession) IsAI() bool {
	return s.driver != nil
}

// Admit 输入准入：序号必须大于已处理序号且不在队列中
// 重复或迟到的数据报因此是幂等的空操作。
func (s *PlayerSession) Admit(in protocol.InputData) bool {
	if s.IsAI() {
		return false
	}
	if int64(in.Sequence) <= s.lastProcessed {
		return false
	}
	if _, dup := s.queued[in.Sequence]; dup {
		return false
	}
	if len(s.pending) >= s.maxQueue {
		return false
	}
	s.pending = append(s.pending, in)
	s.queued[in.Sequence] = struct{}{}
	return true
}

// Drain 按序号顺序回放所有待处理输入，每个输入是客户端的一帧
func (s *PlayerSession) Drain(track *core.Track) int {
	if len(s.pending) == 0 {
		return 0
	}
	sort.Slice(s.pending, func(i, j int) bool {
		return s.pending[i].Sequence < s.pending[j].Sequence
	})

	n := len(s.pending)
	for _, in := range s.pending {
		phys := in.ToCore()
		s.state = core.Advance(s.state, phys, core.ClientTimestep, track)
		s.lastProcessed = int64(in.Sequence)
		s.boosting = phys.Boost
	}
	s.pending = s.pending[:0]
	clear(s.queued)
	return n
}

// StepAI AI 车手按服务器步长前进一步
func (s *PlayerSession) StepAI(track *core.Track) {
	if s.driver == nil {
		return
	}
	in := s.driver.Decide(s.state)
	s.state = core.Advance(s.state, in, core.ServerTimestep, track)
	s.boosting = in.Boost
}

// State 当前运动学状态
func (s *PlayerSession) State() core.KinematicState {
	return s.state
}

// LastProcessed 最后处理的输入序号，未处理过为 -1
func (s *PlayerSession) LastProcessed() int64 {
	return s.lastProcessed
}

// Pending 队列中的输入数
func (s *PlayerSession) Pending() int {
	return len(s.pending)
}

// Snapshot 广播用的状态
func (s *PlayerSession) Snapshot() protocol.PlayerState {
	ps := protocol.CorePlayerToState(s.ID, s.state, s.lastProcessed)
	ps.Boosting = s.boosting
	ps.AI = s.IsAI()
	return ps
}
