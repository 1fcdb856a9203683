package server

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"kartnet/pkg/ai"
	"kartnet/pkg/core"
)

const (
	MaxPlayers     = 4  // 每个大厅最多玩家数（含 AI）
	MaxLobbyName   = 32 // 大厅名最大长度
	MaxPacketSize  = 64 * 1024
	inputQueueSize = 256 // 大厅输入通道缓冲
)

// Config 服务器配置
type Config struct {
	Addr  string // 监听地址
	Proto string // udp 或 kcp

	TickRate       int           // 权威模拟频率
	SessionTimeout time.Duration // 超过此时间没有任何数据报视为断开
	SweepInterval  time.Duration // 超时扫描间隔

	EnableAI     bool   // 开局时用 AI 补满空位
	AIDifficulty string // normal 或 hard

	SpectateAddr string // 观战 WebSocket 监听地址，空字符串表示关闭

	RateLimit      float64 // 每个连接每秒允许的数据报数
	RateBurst      int
	InputQueueSize int // 每个玩家待处理输入上限

	DSCP bool // UDP 报文标记 AF31
}

// DefaultConfig 默认配置
func DefaultConfig() Config {
	return Config{
		Addr:           ":9000",
		Proto:          "udp",
		TickRate:       core.ServerTPS,
		SessionTimeout: 10 * time.Second,
		SweepInterval:  time.Second,
		EnableAI:       true,
		AIDifficulty:   "normal",
		RateLimit:      240,
		RateBurst:      480,
		InputQueueSize: 240,
		DSCP:           true,
	}
}

// Validate 检查配置
func (c Config) Validate() error {
	switch c.Proto {
	case "udp", "kcp":
	default:
		return fmt.Errorf("不支持的协议: %s", c.Proto)
	}
	if c.TickRate <= 0 {
		return errors.New("tick 频率必须大于 0")
	}
	if c.SessionTimeout <= 0 || c.SweepInterval <= 0 {
		return errors.New("超时和扫描间隔必须大于 0")
	}
	if c.InputQueueSize <= 0 {
		return errors.New("输入队列长度必须大于 0")
	}
	switch c.AIDifficulty {
	case "", "normal", "hard":
	default:
		return fmt.Errorf("未知的 AI 难度: %s", c.AIDifficulty)
	}
	return nil
}

func (c Config) tickDuration() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

func (c Config) aiConfig() *ai.AIConfig {
	if c.AIDifficulty == "hard" {
		return &ai.AIConfigHard
	}
	return &ai.AIConfigNormal
}

func (c Config) rateLimit() rate.Limit {
	if c.RateLimit <= 0 {
		return rate.Inf
	}
	return rate.Limit(c.RateLimit)
}
