package protocol

import "kartnet/pkg/core"

// ToCore 转换为物理输入
func (in InputData) ToCore() core.PhysicsInput {
	return core.PhysicsInput{
		Forward:   in.Forward,
		Backward:  in.Backward,
		Left:      in.Left,
		Right:     in.Right,
		Drift:     in.Drift,
		EasyDrift: in.EasyDrift,
		Boost:     in.Boost,
	}
}

// CoreInputToData 物理输入加上序号转换为线上格式
func CoreInputToData(seq uint64, in core.PhysicsInput) InputData {
	return InputData{
		Sequence:  seq,
		Forward:   in.Forward,
		Backward:  in.Backward,
		Left:      in.Left,
		Right:     in.Right,
		Drift:     in.Drift,
		EasyDrift: in.EasyDrift,
		Boost:     in.Boost,
	}
}

// Kinematic 广播状态转换为运动学状态
func (p PlayerState) Kinematic() core.KinematicState {
	return core.KinematicState{
		Position: core.Vec2{X: p.X, Y: p.Y},
		Velocity: core.Vec2{X: p.VX, Y: p.VY},
		Angle:    p.Angle,
	}
}

// CorePlayerToState 运动学状态转换为广播格式
func CorePlayerToState(id int32, s core.KinematicState, lastProcessed int64) PlayerState {
	return PlayerState{
		ID:                    id,
		X:                     s.Position.X,
		Y:                     s.Position.Y,
		VX:                    s.Velocity.X,
		VY:                    s.Velocity.Y,
		Angle:                 s.Angle,
		LastProcessedSequence: lastProcessed,
	}
}
