package ai

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kartnet/pkg/core"
)

func chebyshev(a, b core.GridPos) int {
	dx := a.GridX - b.GridX
	if dx < 0 {
		dx = -dx
	}
	dy := a.GridY - b.GridY
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

func TestNextStepToward(t *testing.T) {
	track, err := core.LoadTrack("oval")
	require.NoError(t, err)

	start := core.GridPos{GridX: 5, GridY: 2}
	goal := core.GridPos{GridX: 17, GridY: 2}
	next, ok := nextStepToward(track, start, goal)
	require.True(t, ok)
	assert.Equal(t, 1, chebyshev(start, next))
	assert.True(t, track.Walkable(next.GridX, next.GridY))
	assert.Equal(t, chebyshev(start, goal)-1, chebyshev(next, goal))

	same, ok := nextStepToward(track, goal, goal)
	assert.True(t, ok)
	assert.Equal(t, goal, same)

	// 内场被护栏围住，无法到达
	_, ok = nextStepToward(track, start, core.GridPos{GridX: 9, GridY: 7})
	assert.False(t, ok)
}

func TestTransitionRaceToRecoverAndBack(t *testing.T) {
	cfg := &AIConfig{StuckSpeed: 10, StuckFrames: 3, RecoverFrames: 2}
	b := Behavior{Kind: BehaviorRace, Checkpoint: 2}
	stuck := Observation{State: core.KinematicState{}}

	for i := 0; i < 2; i++ {
		b = Transition(b, stuck, cfg, 4)
		assert.Equal(t, BehaviorRace, b.Kind)
	}
	b = Transition(b, stuck, cfg, 4)
	require.Equal(t, BehaviorRecover, b.Kind)
	assert.Equal(t, 2, b.RecoverFrames)
	assert.Equal(t, 2, b.Checkpoint)

	b = Transition(b, stuck, cfg, 4)
	assert.Equal(t, BehaviorRecover, b.Kind)
	b = Transition(b, stuck, cfg, 4)
	assert.Equal(t, Behavior{Kind: BehaviorRace, Checkpoint: 2}, b)
}

func TestTransitionAdvancesCheckpoint(t *testing.T) {
	cfg := &AIConfigNormal
	moving := core.KinematicState{Velocity: core.Vec2{X: 100}}

	b := Transition(Behavior{Kind: BehaviorRace, Checkpoint: 3}, Observation{State: moving, Reached: true}, cfg, 4)
	assert.Equal(t, 0, b.Checkpoint)
	assert.Equal(t, 0, b.StuckFrames)
}

func TestBehaviorInputSteersTowardTarget(t *testing.T) {
	cfg := &AIConfigNormal
	state := core.KinematicState{Position: core.Vec2{X: 100, Y: 100}}

	ahead := Behavior{Kind: BehaviorRace}.Input(Observation{State: state, Target: core.Vec2{X: 300, Y: 100}}, cfg)
	assert.Equal(t, core.PhysicsInput{Forward: true}, ahead)

	// y 轴向下，目标在下方需要向右打方向
	below := Behavior{Kind: BehaviorRace}.Input(Observation{State: state, Target: core.Vec2{X: 150, Y: 300}}, cfg)
	assert.True(t, below.Right)
	assert.False(t, below.Left)
	assert.True(t, below.Forward)

	behind := Behavior{Kind: BehaviorRace}.Input(Observation{State: state, Target: core.Vec2{X: 0, Y: 90}}, cfg)
	assert.True(t, behind.Drift)

	recover := Behavior{Kind: BehaviorRecover}.Input(Observation{State: state, Target: core.Vec2{X: 300, Y: 100}}, cfg)
	assert.True(t, recover.Backward)
	assert.False(t, recover.Forward)
}

func TestDriverReachesFirstCheckpoint(t *testing.T) {
	track, err := core.LoadTrack("oval")
	require.NoError(t, err)

	d := NewDriver(9, track)
	state := track.SpawnState(0)
	for i := 0; i < 10*core.ServerTPS && d.Behavior().Checkpoint == 0; i++ {
		state = core.Advance(state, d.Decide(state), core.ServerTimestep, track)
		require.False(t, math.IsNaN(state.Position.X))
	}
	assert.Equal(t, 1, d.Behavior().Checkpoint)
}
