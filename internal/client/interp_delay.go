package client

import "kartnet/pkg/core"

// AdaptiveDelay 所有远端实体共享的自适应插值延迟（秒）
// 反应式：根据渲染 alpha 判断缓冲见底或过多；
// 预测式：每帧向 1.5 倍平均包间隔靠拢 5%。
type AdaptiveDelay struct {
	delay float64

	intervals   [IntervalSamples]float64
	next        int
	filled      int
	lastArrival float64
	hasArrival  bool

	underrunFrames int
	overrunFrames  int
}

// NewAdaptiveDelay 以默认延迟创建
func NewAdaptiveDelay() *AdaptiveDelay {
	return &AdaptiveDelay{delay: DefaultInterpolationDelay}
}

// Delay 当前延迟
func (d *AdaptiveDelay) Delay() float64 { return d.delay }

// OnSnapshot 记录一个快照的到达时间
func (d *AdaptiveDelay) OnSnapshot(arrival float64) {
	if d.hasArrival {
		if interval := arrival - d.lastArrival; interval > 0 {
			d.intervals[d.next] = interval
			d.next = (d.next + 1) % IntervalSamples
			if d.filled < IntervalSamples {
				d.filled++
			}
		}
	}
	d.lastArrival = arrival
	d.hasArrival = true
}

// AverageInterval 最近包间隔的平均值
func (d *AdaptiveDelay) AverageInterval() (float64, bool) {
	if d.filled == 0 {
		return 0, false
	}
	var sum float64
	for i := 0; i < d.filled; i++ {
		sum += d.intervals[i]
	}
	return sum / float64(d.filled), true
}

// ObserveAlpha 每帧观测一次渲染 alpha
func (d *AdaptiveDelay) ObserveAlpha(alpha float64) {
	switch {
	case alpha >= UnderrunAlpha:
		d.underrunFrames++
		d.overrunFrames = 0
		if d.underrunFrames >= UnderrunFrames {
			d.delay += InterpolationDelayStep
			d.underrunFrames = 0
		}
	case alpha < OverrunAlpha:
		d.overrunFrames++
		d.underrunFrames = 0
		if d.overrunFrames >= OverrunFrames {
			d.delay -= InterpolationDelayStep
			d.overrunFrames = 0
		}
	default:
		d.underrunFrames = 0
		d.overrunFrames = 0
	}
	d.delay = core.Clamp(d.delay, MinInterpolationDelay, MaxInterpolationDelay)
}

// Update 每帧把延迟拉向抖动估计值
func (d *AdaptiveDelay) Update() float64 {
	if avg, ok := d.AverageInterval(); ok {
		target := avg * JitterTargetFactor
		d.delay += (target - d.delay) * JitterBlend
	}
	d.delay = core.Clamp(d.delay, MinInterpolationDelay, MaxInterpolationDelay)
	return d.delay
}

// Counters 当前连续帧计数（调试用）
func (d *AdaptiveDelay) Counters() (underrun, overrun int) {
	return d.underrunFrames, d.overrunFrames
}
