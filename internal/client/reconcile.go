package client

import "kartnet/pkg/core"

// ReconcileResult 一次服务器对账的结果
type ReconcileResult struct {
	State          core.KinematicState // 以服务器状态为基准重放后的状态
	Corrected      bool                // 是否超过纠错阈值
	ErrorMagnitude float64             // 与本地预测的位置误差
	VelocityError  float64
	Replayed       int // 重放的输入数量
}

// NeedsCorrection 判断预测与重放结果的差异是否需要纠正
// 位置误差 >= 5 像素或速度误差 >= 50 像素/秒即视为预测错误。
func NeedsCorrection(predicted, replayed core.KinematicState) (bool, float64, float64) {
	posErr := predicted.Position.Dist(replayed.Position)
	velErr := predicted.Velocity.Dist(replayed.Velocity)
	needs := posErr >= CorrectionPositionThreshold || velErr >= CorrectionVelocityThreshold
	return needs, posErr, velErr
}

// Reconcile 从服务器权威状态出发重放所有未确认输入，并与本地预测比较
// 结果总是采用服务器基准；Corrected 只决定是否需要视觉平滑。
func Reconcile(server StateSnapshot, inputs *InputBuffer, predicted core.KinematicState, terrain core.Terrain, dt float64) ReconcileResult {
	state := server.Kinematic()

	var from uint64
	if server.Sequence >= 0 {
		from = uint64(server.Sequence) + 1
	}
	pending := inputs.GetFromSequence(from)
	for _, in := range pending {
		state = core.Advance(state, in.Input, dt, terrain)
	}

	needs, posErr, velErr := NeedsCorrection(predicted, state)
	return ReconcileResult{
		State:          state,
		Corrected:      needs,
		ErrorMagnitude: posErr,
		VelocityError:  velErr,
		Replayed:       len(pending),
	}
}
