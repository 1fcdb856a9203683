package client

// ===== 网络插值与预测配置（客户端专用）=====
const (
	// 输入缓冲区大小：约 2 秒（60Hz）的未确认输入
	InputBufferSize = 120

	// 预测记录缓冲区大小
	PredictionBufferSize = 120

	// 预测快照保留数量（按序号裁剪）
	SnapshotHistorySize = 60

	// 每次最多发送的未确认输入数，冗余发送以对抗丢包
	InputSendWindow = 20

	// 客户端预测：位置误差阈值（像素），低于此值视为浮点漂移
	CorrectionPositionThreshold = 5.0

	// 客户端预测：速度误差阈值（像素/秒）
	CorrectionVelocityThreshold = 50.0

	// 平滑纠错持续时间（秒）
	CorrectionDuration = 0.120
)

// ===== 自适应插值延迟（秒）=====
const (
	MinInterpolationDelay     = 0.016
	MaxInterpolationDelay     = 0.100
	DefaultInterpolationDelay = 0.050
	InterpolationDelayStep    = 0.005

	// 记录最近 N 个包间隔
	IntervalSamples = 10

	// alpha 连续 >= 0.95 达到 5 帧：缓冲见底，增加延迟
	UnderrunAlpha  = 0.95
	UnderrunFrames = 5

	// alpha 连续 < 0.3 达到 30 帧：缓冲过多，减少延迟
	OverrunAlpha  = 0.3
	OverrunFrames = 30

	// 每帧把延迟向 1.5 倍平均包间隔拉近 5%
	JitterTargetFactor = 1.5
	JitterBlend        = 0.05
)
