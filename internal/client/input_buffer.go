package client

import "kartnet/pkg/core"

// TimestampedInput 带序号和采集时间的输入，创建后不可变
type TimestampedInput struct {
	Sequence    uint64
	Input       core.PhysicsInput
	CaptureTime float64
}

// InputBuffer 客户端输入环形缓冲区
// 序号从 0 开始单调递增，从不复用；超出容量时静默丢弃最旧的输入。
type InputBuffer struct {
	items   []TimestampedInput
	head    int // 最旧元素下标
	count   int
	nextSeq uint64
}

// NewInputBuffer 创建指定容量的输入缓冲区
func NewInputBuffer(capacity int) *InputBuffer {
	if capacity <= 0 {
		capacity = InputBufferSize
	}
	return &InputBuffer{items: make([]TimestampedInput, capacity)}
}

// Add 追加输入，返回分配的序号
func (b *InputBuffer) Add(input core.PhysicsInput, timestamp float64) uint64 {
	seq := b.nextSeq
	b.nextSeq++

	tail := (b.head + b.count) % len(b.items)
	b.items[tail] = TimestampedInput{Sequence: seq, Input: input, CaptureTime: timestamp}
	if b.count == len(b.items) {
		// 覆盖最旧的
		b.head = (b.head + 1) % len(b.items)
	} else {
		b.count++
	}
	return seq
}

func (b *InputBuffer) at(i int) TimestampedInput {
	return b.items[(b.head+i)%len(b.items)]
}

// GetFromSequence 返回序号 >= n 的所有输入（按序号升序）
func (b *InputBuffer) GetFromSequence(n uint64) []TimestampedInput {
	var out []TimestampedInput
	for i := 0; i < b.count; i++ {
		item := b.at(i)
		if item.Sequence >= n {
			out = append(out, item)
		}
	}
	return out
}

// ClearBefore 丢弃序号 < n 的输入
func (b *InputBuffer) ClearBefore(n uint64) {
	for b.count > 0 && b.at(0).Sequence < n {
		b.head = (b.head + 1) % len(b.items)
		b.count--
	}
}

// Len 当前缓冲的输入数量
func (b *InputBuffer) Len() int { return b.count }

// Capacity 缓冲区容量
func (b *InputBuffer) Capacity() int { return len(b.items) }

// NextSequence 下一个将要分配的序号
func (b *InputBuffer) NextSequence() uint64 { return b.nextSeq }

// Sequences 当前缓冲中的所有序号（调试用）
func (b *InputBuffer) Sequences() []uint64 {
	seqs := make([]uint64, 0, b.count)
	for i := 0; i < b.count; i++ {
		seqs = append(seqs, b.at(i).Sequence)
	}
	return seqs
}
