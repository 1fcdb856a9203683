package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"kartnet/internal/server"
)

func main() {
	cfg := server.DefaultConfig()

	// 命令行参数
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "服务器监听地址")
	flag.StringVar(&cfg.Proto, "proto", cfg.Proto, "传输协议: udp 或 kcp")
	flag.IntVar(&cfg.TickRate, "tick", cfg.TickRate, "权威模拟频率 (TPS)")
	flag.DurationVar(&cfg.SessionTimeout, "timeout", cfg.SessionTimeout, "无数据超时断开时间")
	flag.BoolVar(&cfg.EnableAI, "ai", cfg.EnableAI, "开局时用 AI 补满空位")
	flag.StringVar(&cfg.AIDifficulty, "difficulty", cfg.AIDifficulty, "AI 难度: normal 或 hard")
	flag.StringVar(&cfg.SpectateAddr, "spectate", cfg.SpectateAddr, "观战 WebSocket 监听地址（空表示关闭）")
	flag.Float64Var(&cfg.RateLimit, "rate", cfg.RateLimit, "每个连接每秒允许的数据报数（<=0 不限）")
	flag.BoolVar(&cfg.DSCP, "dscp", cfg.DSCP, "UDP 报文标记 DSCP AF31")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("配置无效: %v", err)
	}

	// 创建服务器
	gameServer := server.NewGameServer(cfg)

	// 启动服务器（在新的 goroutine 中）
	go func() {
		if err := gameServer.Start(); err != nil {
			log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	log.Println("========================================")
	log.Println("  Kart 联机服务器")
	log.Println("========================================")
	log.Printf("监听地址: %s (%s)", cfg.Addr, cfg.Proto)
	log.Printf("每个大厅最大玩家数: %d", server.MaxPlayers)
	log.Printf("服务器 TPS: %d", cfg.TickRate)
	log.Printf("AI 补位: %v (%s)", cfg.EnableAI, cfg.AIDifficulty)
	if cfg.SpectateAddr != "" {
		log.Printf("观战地址: %s", cfg.SpectateAddr)
	}
	log.Println("========================================")
	log.Println("服务器正在运行...")
	log.Println("按 Ctrl+C 停止服务器")

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	gameServer.Shutdown()

	log.Println("服务器已关闭，再见！")
}
