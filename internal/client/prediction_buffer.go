package client

import "kartnet/pkg/core"

// PredictionRecord 一次本地预测：输入及其产生的状态
type PredictionRecord struct {
	Sequence uint64
	Input    core.PhysicsInput
	State    core.KinematicState
	Drifting bool
}

// PredictionBuffer 按序号递增的预测记录，先进先出
type PredictionBuffer struct {
	records  []PredictionRecord
	capacity int
}

func NewPredictionBuffer(capacity int) *PredictionBuffer {
	if capacity <= 0 {
		capacity = PredictionBufferSize
	}
	return &PredictionBuffer{
		records:  make([]PredictionRecord, 0, capacity),
		capacity: capacity,
	}
}

// Push 追加记录，序号必须严格递增，否则拒绝
func (pb *PredictionBuffer) Push(r PredictionRecord) bool {
	if n := len(pb.records); n > 0 && r.Sequence <= pb.records[n-1].Sequence {
		return false
	}
	if len(pb.records) == pb.capacity {
		copy(pb.records, pb.records[1:])
		pb.records = pb.records[:len(pb.records)-1]
	}
	pb.records = append(pb.records, r)
	return true
}

// Acknowledge 丢弃序号 <= seq 的记录
func (pb *PredictionBuffer) Acknowledge(seq uint64) {
	idx := 0
	for idx < len(pb.records) && pb.records[idx].Sequence <= seq {
		idx++
	}
	if idx == 0 {
		return
	}
	n := copy(pb.records, pb.records[idx:])
	pb.records = pb.records[:n]
}

// Get 按序号查找
func (pb *PredictionBuffer) Get(seq uint64) (PredictionRecord, bool) {
	for _, r := range pb.records {
		if r.Sequence == seq {
			return r, true
		}
	}
	return PredictionRecord{}, false
}

// PredictionError 某一序号的预测位置与服务器位置的距离
func (pb *PredictionBuffer) PredictionError(seq uint64, server core.Vec2) (float64, bool) {
	r, ok := pb.Get(seq)
	if !ok {
		return 0, false
	}
	return r.State.Position.Dist(server), true
}

func (pb *PredictionBuffer) Len() int { return len(pb.records) }

// Records 返回记录副本
func (pb *PredictionBuffer) Records() []PredictionRecord {
	return append([]PredictionRecord(nil), pb.records...)
}
