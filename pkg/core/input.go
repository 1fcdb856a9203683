package core

// PhysicsInput 表示一帧内车辆的操作意图
type PhysicsInput struct {
	Forward   bool
	Backward  bool
	Left      bool
	Right     bool
	Drift     bool
	EasyDrift bool
	Boost     bool
}

// Thrusting 是否按下了油门或倒车
func (in PhysicsInput) Thrusting() bool {
	return in.Forward || in.Backward
}

// Steer 转向方向：-1 左，1 右，0 不转
func (in PhysicsInput) Steer() float64 {
	steer := 0.0
	if in.Left {
		steer -= 1
	}
	if in.Right {
		steer += 1
	}
	return steer
}

// Drifting 是否处于漂移（手动或辅助）
func (in PhysicsInput) Drifting() bool {
	return in.Drift || in.EasyDrift
}
