package core

// 时间步长配置
// 客户端按固定步长采集输入并回放，服务器按独立的权威 tick 运行。
// 两边回放同一份输入时都使用 ClientTimestep，保证确定性。
const (
	ClientTPS      = 60
	ClientTimestep = 1.0 / ClientTPS

	ServerTPS      = 30
	ServerTimestep = 1.0 / ServerTPS
)

// 车辆物理参数（像素 / 秒）
const (
	MaxSpeed        = 420.0 // 最高速度
	Acceleration    = 520.0 // 油门加速度
	Deceleration    = 260.0 // 松油门时的滑行减速度
	TurnSpeed       = 3.2   // 转向角速度（弧度/秒）
	LateralFriction = 9.0   // 侧向摩擦系数，抑制侧滑

	BackwardAccelFactor = 0.5 // 倒车加速度比例
	BackwardSpeedFactor = 0.5 // 倒车最高速度比例

	BoostSpeedMultiplier    = 1.5 // 加速时速度/加速度倍率
	BoostTurnMultiplier     = 0.8 // 加速时转向倍率
	BoostFrictionMultiplier = 0.7 // 加速时侧向摩擦倍率

	DriftAssistMultiplier = 1.35 // 辅助漂移时的转向倍率
)

// 赛道配置
const (
	TileSize = 64 // 每个格子的像素大小
)
