package client

import "kartnet/pkg/core"

// SmoothCorrection 把服务器纠错产生的位置跳变分摊到若干帧内
// 渲染位置 = 物理位置 + Offset()。偏移按三次缓出衰减，结束时精确归零。
type SmoothCorrection struct {
	start    core.Vec2
	offset   core.Vec2
	elapsed  float64
	duration float64
	active   bool
}

func NewSmoothCorrection() *SmoothCorrection {
	return &SmoothCorrection{duration: CorrectionDuration}
}

// Start 开始一次纠错；若上一次尚未结束，剩余偏移叠加到新偏移上
func (c *SmoothCorrection) Start(offset core.Vec2) {
	if c.active {
		offset = offset.Add(c.offset)
	}
	c.start = offset
	c.offset = offset
	c.elapsed = 0
	c.active = !offset.IsZero()
}

// Update 推进 dt 秒，返回当前偏移
func (c *SmoothCorrection) Update(dt float64) core.Vec2 {
	if !c.active {
		return c.offset
	}
	c.elapsed += dt
	if c.elapsed >= c.duration {
		c.Reset()
		return c.offset
	}
	t := c.elapsed / c.duration
	remain := (1 - t) * (1 - t) * (1 - t)
	c.offset = c.start.Scale(remain)
	return c.offset
}

// Offset 当前视觉偏移
func (c *SmoothCorrection) Offset() core.Vec2 {
	return c.offset
}

// IsComplete 没有进行中的纠错
func (c *SmoothCorrection) IsComplete() bool {
	return !c.active
}

// Reset 立即结束纠错
func (c *SmoothCorrection) Reset() {
	c.start = core.Vec2{}
	c.offset = core.Vec2{}
	c.elapsed = 0
	c.active = false
}
