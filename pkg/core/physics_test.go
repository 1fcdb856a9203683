package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func genInput(t *rapid.T) PhysicsInput {
	return PhysicsInput{
		Forward:   rapid.Bool().Draw(t, "forward"),
		Backward:  rapid.Bool().Draw(t, "backward"),
		Left:      rapid.Bool().Draw(t, "left"),
		Right:     rapid.Bool().Draw(t, "right"),
		Drift:     rapid.Bool().Draw(t, "drift"),
		EasyDrift: rapid.Bool().Draw(t, "easyDrift"),
		Boost:     rapid.Bool().Draw(t, "boost"),
	}
}

func genState(t *rapid.T) KinematicState {
	return KinematicState{
		Position: Vec2{rapid.Float64Range(-2000, 2000).Draw(t, "px"), rapid.Float64Range(-2000, 2000).Draw(t, "py")},
		Velocity: Vec2{rapid.Float64Range(-800, 800).Draw(t, "vx"), rapid.Float64Range(-800, 800).Draw(t, "vy")},
		Angle:    rapid.Float64Range(-20, 20).Draw(t, "angle"),
	}
}

func genMods(t *rapid.T) TerrainModifiers {
	return TerrainModifiers{
		Speed:    rapid.Float64Range(0.1, 2).Draw(t, "speed"),
		Friction: rapid.Float64Range(0, 3).Draw(t, "friction"),
		Turn:     rapid.Float64Range(0, 2).Draw(t, "turn"),
		Decel:    rapid.Float64Range(0, 5).Draw(t, "decel"),
	}
}

func sameBits(a, b KinematicState) bool {
	return math.Float64bits(a.Position.X) == math.Float64bits(b.Position.X) &&
		math.Float64bits(a.Position.Y) == math.Float64bits(b.Position.Y) &&
		math.Float64bits(a.Velocity.X) == math.Float64bits(b.Velocity.X) &&
		math.Float64bits(a.Velocity.Y) == math.Float64bits(b.Velocity.Y) &&
		math.Float64bits(a.Angle) == math.Float64bits(b.Angle)
}

func TestStepIsDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		state := genState(t)
		in := genInput(t)
		mods := genMods(t)
		dt := rapid.Float64Range(0.001, 0.1).Draw(t, "dt")

		a := Step(state, in, dt, mods)
		b := Step(state, in, dt, mods)
		if !sameBits(a, b) {
			t.Fatalf("Step 结果不一致: %+v != %+v", a, b)
		}
	})
}

func TestStepForwardFromRest(t *testing.T) {
	s := Step(KinematicState{}, PhysicsInput{Forward: true}, ClientTimestep, DefaultTerrain)

	assert.InDelta(t, Acceleration*ClientTimestep, s.Velocity.X, 1e-9)
	assert.Equal(t, 0.0, s.Velocity.Y)
	assert.InDelta(t, Acceleration*ClientTimestep*ClientTimestep, s.Position.X, 1e-9)
	assert.Equal(t, 0.0, s.Angle)
}

func TestStepClampsToMaxSpeed(t *testing.T) {
	s := Step(KinematicState{Velocity: Vec2{1000, 0}}, PhysicsInput{Forward: true}, ClientTimestep, DefaultTerrain)
	assert.InDelta(t, MaxSpeed, s.Velocity.Len(), 1e-6)

	boosted := Step(KinematicState{Velocity: Vec2{1000, 0}}, PhysicsInput{Forward: true, Boost: true}, ClientTimestep, DefaultTerrain)
	assert.InDelta(t, MaxSpeed*BoostSpeedMultiplier, boosted.Velocity.Len(), 1e-6)

	grass := TerrainModifiers{Speed: 0.5, Friction: 1, Turn: 1, Decel: 1}
	slow := Step(KinematicState{Velocity: Vec2{1000, 0}}, PhysicsInput{Forward: true}, ClientTimestep, grass)
	assert.InDelta(t, MaxSpeed*0.5, slow.Velocity.Len(), 1e-6)
}

func TestStepBackwardHalfTopSpeed(t *testing.T) {
	s := Step(KinematicState{Velocity: Vec2{-1000, 0}}, PhysicsInput{Backward: true}, ClientTimestep, DefaultTerrain)
	assert.InDelta(t, MaxSpeed*BackwardSpeedFactor, s.Velocity.Len(), 1e-6)
	assert.Less(t, s.Velocity.X, 0.0)

	fromRest := Step(KinematicState{}, PhysicsInput{Backward: true}, ClientTimestep, DefaultTerrain)
	assert.InDelta(t, -Acceleration*BackwardAccelFactor*ClientTimestep, fromRest.Velocity.X, 1e-9)
}

func TestStepCoastSnapsToZero(t *testing.T) {
	s := Step(KinematicState{Position: Vec2{10, 10}, Velocity: Vec2{1, 0}}, PhysicsInput{}, ClientTimestep, DefaultTerrain)
	assert.Equal(t, Vec2{}, s.Velocity)
	assert.Equal(t, Vec2{10, 10}, s.Position)
}

func TestStepZeroVelocityStaysFinite(t *testing.T) {
	s := Step(KinematicState{}, PhysicsInput{Drift: true, Left: true}, ClientTimestep, DefaultTerrain)
	assert.False(t, math.IsNaN(s.Velocity.X) || math.IsNaN(s.Velocity.Y))
	assert.Equal(t, Vec2{}, s.Velocity)
}

func TestStepDriftKeepsLateralVelocity(t *testing.T) {
	start := KinematicState{Velocity: Vec2{0, 100}}

	grip := Step(start, PhysicsInput{}, ClientTimestep, DefaultTerrain)
	drift := Step(start, PhysicsInput{Drift: true}, ClientTimestep, DefaultTerrain)
	easy := Step(start, PhysicsInput{EasyDrift: true}, ClientTimestep, DefaultTerrain)

	assert.Less(t, grip.Velocity.Y, drift.Velocity.Y)
	assert.InDelta(t, drift.Velocity.Y, easy.Velocity.Y, 1e-12)
}

func TestStepEasyDriftTurnsFaster(t *testing.T) {
	normal := Step(KinematicState{}, PhysicsInput{Right: true}, ClientTimestep, DefaultTerrain)
	assisted := Step(KinematicState{}, PhysicsInput{Right: true, EasyDrift: true}, ClientTimestep, DefaultTerrain)

	assert.InDelta(t, TurnSpeed*ClientTimestep, normal.Angle, 1e-12)
	assert.InDelta(t, TurnSpeed*DriftAssistMultiplier*ClientTimestep, assisted.Angle, 1e-12)
}

func TestStepAngleIsNotWrapped(t *testing.T) {
	s := KinematicState{}
	for i := 0; i < 3*ClientTPS; i++ {
		s = Step(s, PhysicsInput{Right: true}, ClientTimestep, DefaultTerrain)
	}
	assert.Greater(t, s.Angle, 2*math.Pi)
	assert.InDelta(t, 3*TurnSpeed, s.Angle, 1e-9)
}

func TestClampToBounds(t *testing.T) {
	s := ClampToBounds(KinematicState{Position: Vec2{-5, 50}, Velocity: Vec2{-10, 3}}, Vec2{}, Vec2{100, 100})
	assert.Equal(t, Vec2{0, 50}, s.Position)
	assert.Equal(t, Vec2{0, 3}, s.Velocity)

	s = ClampToBounds(KinematicState{Position: Vec2{50, 120}, Velocity: Vec2{1, 8}}, Vec2{}, Vec2{100, 100})
	assert.Equal(t, Vec2{50, 100}, s.Position)
	assert.Equal(t, Vec2{1, 0}, s.Velocity)
}

func TestAdvanceUsesTerrainAtCurrentPosition(t *testing.T) {
	track, err := LoadTrack("oval")
	require.NoError(t, err)

	// 第 1 行是草地，第 2 行是沥青
	onGrass := KinematicState{Position: GridCenter(GridPos{5, 1}), Velocity: Vec2{1000, 0}}
	onRoad := KinematicState{Position: GridCenter(GridPos{5, 2}), Velocity: Vec2{1000, 0}}

	g := Advance(onGrass, PhysicsInput{Forward: true}, ClientTimestep, track)
	r := Advance(onRoad, PhysicsInput{Forward: true}, ClientTimestep, track)
	assert.Less(t, g.Velocity.Len(), r.Velocity.Len())
}

func TestNormalizeAngle(t *testing.T) {
	assert.InDelta(t, 0.0, NormalizeAngle(2*math.Pi), 1e-12)
	assert.InDelta(t, math.Pi, NormalizeAngle(-math.Pi), 1e-12)
	assert.InDelta(t, -math.Pi/2, NormalizeAngle(3*math.Pi/2), 1e-12)
	assert.InDelta(t, 0.2, AngleDiff(2*math.Pi-0.1, 0.1), 1e-12)
	assert.InDelta(t, 2*math.Pi+0.05, LerpAngle(2*math.Pi-0.05, 0.05, 1), 1e-9)
}
