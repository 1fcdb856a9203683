package client

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"kartnet/pkg/core"
)

func TestRemoteSmootherSingleSnapshot(t *testing.T) {
	s := NewRemoteSmoother()
	_, _, ok := s.Sample(0)
	assert.False(t, ok)

	s.Push(StateSnapshot{Position: core.Vec2{X: 10, Y: 20}, Angle: 1, Timestamp: 1})
	state, alpha, ok := s.Sample(0.5)
	require.True(t, ok)
	assert.Equal(t, core.Vec2{X: 10, Y: 20}, state.Position)
	assert.Equal(t, 1.0, state.Angle)
	assert.Equal(t, 1.0, alpha)
	assert.False(t, s.HasPair())
}

func TestRemoteSmootherHermite(t *testing.T) {
	s := NewRemoteSmoother()
	s.Push(StateSnapshot{Position: core.Vec2{}, Velocity: core.Vec2{X: 100}, Timestamp: 0})
	s.Push(StateSnapshot{Position: core.Vec2{X: 10}, Velocity: core.Vec2{X: 100}, Timestamp: 0.1})
	require.True(t, s.HasPair())

	state, alpha, _ := s.Sample(0)
	assert.Equal(t, 0.0, alpha)
	assert.InDelta(t, 0.0, state.Position.X, 1e-9)

	// 匀速运动时 Hermite 退化为线性
	state, alpha, _ = s.Sample(0.05)
	assert.InDelta(t, 0.5, alpha, 1e-9)
	assert.InDelta(t, 5.0, state.Position.X, 1e-9)

	state, alpha, _ = s.Sample(0.1)
	assert.InDelta(t, 1.0, alpha, 1e-9)
	assert.InDelta(t, 10.0, state.Position.X, 1e-9)

	// alpha 夹到 [0, 1]
	_, alpha, _ = s.Sample(-3)
	assert.Equal(t, 0.0, alpha)
	state, alpha, _ = s.Sample(7)
	assert.Equal(t, 1.0, alpha)
	assert.InDelta(t, 10.0, state.Position.X, 1e-9)
}

func TestRemoteSmootherShortestAngle(t *testing.T) {
	s := NewRemoteSmoother()
	s.Push(StateSnapshot{Angle: 3.0, Timestamp: 0})
	s.Push(StateSnapshot{Angle: -3.0, Timestamp: 1})

	state, _, _ := s.Sample(0.5)
	assert.InDelta(t, math.Pi, state.Angle, 1e-6)
}

func TestRemoteSmootherDropsReordered(t *testing.T) {
	s := NewRemoteSmoother()
	s.Push(StateSnapshot{Position: core.Vec2{X: 1}, Timestamp: 1})
	s.Push(StateSnapshot{Position: core.Vec2{X: 2}, Timestamp: 2})
	s.Push(StateSnapshot{Position: core.Vec2{X: 9}, Timestamp: 1.5})
	assert.Equal(t, 2.0, s.Latest().Position.X)
}

func TestAdaptiveDelayUnderrun(t *testing.T) {
	d := NewAdaptiveDelay()
	for i := 0; i < UnderrunFrames-1; i++ {
		d.ObserveAlpha(1)
	}
	assert.Equal(t, DefaultInterpolationDelay, d.Delay())
	d.ObserveAlpha(0.97)
	assert.InDelta(t, DefaultInterpolationDelay+InterpolationDelayStep, d.Delay(), 1e-12)

	under, over := d.Counters()
	assert.Zero(t, under)
	assert.Zero(t, over)
}

func TestAdaptiveDelayOverrun(t *testing.T) {
	d := NewAdaptiveDelay()
	for i := 0; i < OverrunFrames-1; i++ {
		d.ObserveAlpha(0.1)
	}
	assert.Equal(t, DefaultInterpolationDelay, d.Delay())
	d.ObserveAlpha(0.1)
	assert.InDelta(t, DefaultInterpolationDelay-InterpolationDelayStep, d.Delay(), 1e-12)
}

func TestAdaptiveDelayCountersReset(t *testing.T) {
	d := NewAdaptiveDelay()
	for round := 0; round < 3; round++ {
		for i := 0; i < UnderrunFrames-1; i++ {
			d.ObserveAlpha(1)
		}
		d.ObserveAlpha(0.5)
	}
	assert.Equal(t, DefaultInterpolationDelay, d.Delay())
}

func TestAdaptiveDelayFollowsJitter(t *testing.T) {
	d := NewAdaptiveDelay()
	assert.Equal(t, DefaultInterpolationDelay, d.Update(), "没有包间隔样本时保持不变")

	for i := 0; i <= IntervalSamples; i++ {
		d.OnSnapshot(float64(i) * 0.04)
	}
	avg, ok := d.AverageInterval()
	require.True(t, ok)
	assert.InDelta(t, 0.04, avg, 1e-9)

	for i := 0; i < 1000; i++ {
		d.Update()
	}
	assert.InDelta(t, 0.06, d.Delay(), 1e-6)
}

func TestAdaptiveDelayStaysInBounds(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		d := NewAdaptiveDelay()
		now := 0.0
		frames := rapid.IntRange(1, 500).Draw(t, "frames")
		for i := 0; i < frames; i++ {
			if rapid.Bool().Draw(t, "snapshot") {
				now += rapid.Float64Range(0, 2).Draw(t, "interval")
				d.OnSnapshot(now)
			}
			d.ObserveAlpha(rapid.Float64Range(0, 1).Draw(t, "alpha"))
			delay := d.Update()
			if delay < MinInterpolationDelay || delay > MaxInterpolationDelay {
				t.Fatalf("delay %v out of bounds", delay)
			}
		}
	})
}
