package core

import "math"

// KinematicState 车辆运动学状态
// 角度不做归一化，需要最短转向的调用方自行调用 NormalizeAngle。
type KinematicState struct {
	Position Vec2
	Velocity Vec2
	Angle    float64
}

// TerrainModifiers 地形修正系数，由赛道按位置查询
type TerrainModifiers struct {
	Speed    float64
	Friction float64
	Turn     float64
	Decel    float64
}

// DefaultTerrain 标准路面
var DefaultTerrain = TerrainModifiers{Speed: 1, Friction: 1, Turn: 1, Decel: 1}

// Terrain 按位置查询地形，并给出可行驶边界
type Terrain interface {
	ModifiersAt(pos Vec2) TerrainModifiers
	Bounds() (min, max Vec2)
}

// Step 推进一辆车一个时间步。
// 纯函数：相同的输入永远得到相同的输出，客户端预测与服务器权威共用这一实现，
// 运算顺序不能随意调整。
func Step(state KinematicState, in PhysicsInput, dt float64, mods TerrainModifiers) KinematicState {
	accel := Acceleration * mods.Speed
	maxSpeed := MaxSpeed * mods.Speed
	turnRate := TurnSpeed * mods.Turn
	lateralFriction := LateralFriction * mods.Friction

	if in.Boost {
		accel *= BoostSpeedMultiplier
		maxSpeed *= BoostSpeedMultiplier
		turnRate *= BoostTurnMultiplier
		lateralFriction *= BoostFrictionMultiplier
	}

	// 转向
	steer := in.Steer()
	if in.EasyDrift && steer != 0 {
		turnRate *= DriftAssistMultiplier
	}
	state.Angle += steer * turnRate * dt

	forward := Heading(state.Angle)

	// 油门 / 倒车
	if in.Forward {
		state.Velocity = state.Velocity.Add(forward.Scale(accel * dt))
	}
	if in.Backward {
		state.Velocity = state.Velocity.Sub(forward.Scale(accel * BackwardAccelFactor * dt))
	}

	// 限速：倒车时最高速度减半
	limit := maxSpeed
	if state.Velocity.Dot(forward) < 0 {
		limit *= BackwardSpeedFactor
	}
	speed := state.Velocity.Len()
	if speed > limit && speed > 0 {
		state.Velocity = state.Velocity.Scale(limit / speed)
		speed = limit
	}

	// 滑行减速，减到零为止，不会反向
	if !in.Thrusting() && speed > 0 {
		newSpeed := speed - Deceleration*mods.Decel*dt
		if newSpeed <= 0 {
			state.Velocity = Vec2{}
		} else {
			state.Velocity = state.Velocity.Scale(newSpeed / speed)
		}
	}

	// 非漂移时衰减侧向速度
	if !in.Drifting() {
		lateral := Vec2{-forward.Y, forward.X}
		forwardSpeed := state.Velocity.Dot(forward)
		lateralSpeed := state.Velocity.Dot(lateral)
		damping := math.Max(0, 1-lateralFriction*dt)
		state.Velocity = forward.Scale(forwardSpeed).Add(lateral.Scale(lateralSpeed * damping))
	}

	state.Position = state.Position.Add(state.Velocity.Scale(dt))
	return state
}

// Advance 查询当前位置的地形后推进一步，并把结果限制在赛道边界内。
// 服务器模拟、客户端预测和回放都通过这里推进，保证运算顺序一致。
func Advance(state KinematicState, in PhysicsInput, dt float64, terrain Terrain) KinematicState {
	mods := DefaultTerrain
	if terrain != nil {
		mods = terrain.ModifiersAt(state.Position)
	}
	next := Step(state, in, dt, mods)
	if terrain != nil {
		min, max := terrain.Bounds()
		next = ClampToBounds(next, min, max)
	}
	return next
}

// ClampToBounds 把位置限制在边界内，同时清掉指向边界外的速度分量
func ClampToBounds(state KinematicState, min, max Vec2) KinematicState {
	if state.Position.X < min.X {
		state.Position.X = min.X
		if state.Velocity.X < 0 {
			state.Velocity.X = 0
		}
	} else if state.Position.X > max.X {
		state.Position.X = max.X
		if state.Velocity.X > 0 {
			state.Velocity.X = 0
		}
	}
	if state.Position.Y < min.Y {
		state.Position.Y = min.Y
		if state.Velocity.Y < 0 {
			state.Velocity.Y = 0
		}
	} else if state.Position.Y > max.Y {
		state.Position.Y = max.Y
		if state.Velocity.Y > 0 {
			state.Velocity.Y = 0
		}
	}
	return state
}
