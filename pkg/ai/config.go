package ai

// AIConfig 定义 AI 车手的驾驶参数
type AIConfig struct {
	// ThinkIntervalFrames 重新寻路的间隔（帧），值越小反应越快
	ThinkIntervalFrames int

	// SteerDeadzone 朝向误差小于此值（弧度）时不打方向
	SteerDeadzone float64

	// DriftAngle 朝向误差超过此值（弧度）时拉漂移
	DriftAngle float64

	// BoostOnStraight 直道上是否使用加速
	BoostOnStraight bool

	// StuckSpeed 低于此速度（像素/秒）视为卡住
	StuckSpeed float64

	// StuckFrames 连续卡住多少帧后开始倒车脱困
	StuckFrames int

	// RecoverFrames 倒车脱困持续帧数
	RecoverFrames int
}

// 预设配置：普通难度
var AIConfigNormal = AIConfig{
	ThinkIntervalFrames: 15,
	SteerDeadzone:       0.08,
	DriftAngle:          1.1,
	BoostOnStraight:     false,
	StuckSpeed:          15,
	StuckFrames:         45,
	RecoverFrames:       30,
}

// 预设配置：困难难度
var AIConfigHard = AIConfig{
	ThinkIntervalFrames: 5,
	SteerDeadzone:       0.04,
	DriftAngle:          0.9,
	BoostOnStraight:     true,
	StuckSpeed:          15,
	StuckFrames:         30,
	RecoverFrames:       24,
}
