package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"sync"
	"time"

	"kartnet/pkg/protocol"
)

// GameServer 游戏服务器
// 一个读协程独占套接字，只做身份查找和命令分发；模拟由各大厅协程完成。
type GameServer struct {
	cfg Config

	// 网络
	transport    PacketTransport
	registry     *ConnectionRegistry
	lobbies      *LobbyManager
	spectators   *SpectatorHub
	httpServer   *http.Server
	spectateAddr net.Addr

	// 控制
	ctx          context.Context
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	shutdown     chan struct{}
	shutdownOnce sync.Once
}

// NewGameServer 创建新的游戏服务器
func NewGameServer(cfg Config) *GameServer {
	ctx, cancel := context.WithCancel(context.Background())

	return &GameServer{
		cfg:      cfg,
		ctx:      ctx,                 // 上下文
		cancel:   cancel,              // 取消函数
		shutdown: make(chan struct{}), // 关闭信号
	}
}

// Start 启动服务器并阻塞到 Shutdown
func (s *GameServer) Start() error {
	if err := s.Listen(); err != nil {
		return err
	}

	// 等待关闭信号
	<-s.shutdown

	log.Println("服务器正在关闭...")
	return nil
}

// Listen 打开监听并启动后台协程，不阻塞
func (s *GameServer) Listen() error {
	log.Printf("启动游戏服务器: %s (%s)", s.cfg.Addr, s.cfg.Proto)

	transport, err := newTransport(s.cfg.Proto, s.cfg.Addr, s.cfg.DSCP)
	if err != nil {
		return fmt.Errorf("监听失败: %w", err)
	}
	s.transport = transport
	s.registry = NewConnectionRegistry(s.cfg.rateLimit(), s.cfg.RateBurst)

	opts := lobbyOptions{
		tick:     s.cfg.tickDuration(),
		enableAI: s.cfg.EnableAI,
		aiConfig: s.cfg.aiConfig(),
		maxQueue: s.cfg.InputQueueSize,
		send:     s.sendData,
		allocID:  s.registry.ReserveID,
	}

	var spectateLn net.Listener
	if s.cfg.SpectateAddr != "" {
		ln, err := net.Listen("tcp", s.cfg.SpectateAddr)
		if err != nil {
			transport.Close()
			return fmt.Errorf("观战服务监听失败: %w", err)
		}
		spectateLn = ln
		s.spectateAddr = ln.Addr()
		s.spectators = NewSpectatorHub(func() []protocol.LobbyInfo { return s.lobbies.List() })
		opts.publish = s.spectators.Publish
	}

	s.lobbies = NewLobbyManager(s.ctx, opts)

	if spectateLn != nil {
		s.httpServer = &http.Server{Handler: s.spectators.Handler()}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.httpServer.Serve(spectateLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("观战服务异常退出: %v", err)
			}
		}()
		log.Printf("观战服务监听中: %s", spectateLn.Addr())
	}

	s.wg.Add(2)
	go s.readLoop()
	go s.sweepLoop()

	log.Printf("服务器监听中: %s", transport.LocalAddr())
	return nil
}

// Addr 实际监听地址
func (s *GameServer) Addr() net.Addr {
	if s.transport == nil {
		return nil
	}
	return s.transport.LocalAddr()
}

// SpectateAddr 观战服务地址，未开启时为 nil
func (s *GameServer) SpectateAddr() net.Addr {
	return s.spectateAddr
}

// Shutdown 优雅关闭服务器
func (s *GameServer) Shutdown() {
	s.shutdownOnce.Do(func() {
		log.Println("正在关闭服务器...")

		// 取消上下文
		s.cancel()

		if s.lobbies != nil {
			s.lobbies.Shutdown()
		}
		if s.transport != nil {
			s.transport.Close()
		}
		if s.httpServer != nil {
			s.httpServer.Close()
		}
		if s.spectators != nil {
			s.spectators.Close()
		}

		close(s.shutdown)

		// 等待所有 goroutine 结束
		s.wg.Wait()

		log.Println("服务器已关闭")
	})
}

// readLoop 唯一的读协程
func (s *GameServer) readLoop() {
	defer s.wg.Done()

	buf := make([]byte, MaxPacketSize)
	for {
		n, addr, err := s.transport.ReadFrom(buf)
		if err != nil {
			if s.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				log.Println("停止接收数据")
				return
			}
			log.Printf("读取数据失败: %v", err)
			continue
		}
		s.handleDatagram(addr, buf[:n], time.Now())
	}
}

// sweepLoop 定期断开长时间没有数据的玩家
func (s *GameServer) sweepLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case now := <-ticker.C:
			for _, c := range s.registry.sweep(now, s.cfg.SessionTimeout) {
				log.Printf("玩家 %d: 超时断开 (%s)", c.id, c.addr)
				s.disconnect(c)
			}
		}
	}
}

// disconnect 与主动离开相同的清理
func (s *GameServer) disconnect(c connection) {
	if name, err := s.lobbies.Leave(c.id); err == nil {
		s.broadcastLobbyList(name)
	}
	if closer, ok := s.transport.(addrCloser); ok {
		closer.CloseAddr(c.addr)
	}
}

func (s *GameServer) handleDatagram(addr net.Addr, data []byte, now time.Time) {
	events := DecodeDatagram(data)

	id, known := s.registry.Lookup(addr)
	if !known {
		var resumed bool
		id, resumed = s.admit(addr, events, now)
		if resumed {
			events = events[1:]
		}
	}

	// 超出限速的数据报只刷新活跃时间
	if !s.registry.Touch(id, now) {
		return
	}
	for _, ev := range events {
		s.handleEvent(id, ev, now)
	}
}

// admit 新地址：尝试用 Token 恢复身份，否则分配新 ID
func (s *GameServer) admit(addr net.Addr, events []ServerEvent, now time.Time) (int32, bool) {
	if len(events) > 0 && events[0].Kind == EventResume {
		id, err := s.resume(addr, events[0].Resume.SessionToken, now)
		if err == nil {
			return id, true
		}
		log.Printf("来自 %s 的会话恢复失败: %v", addr, err)
	}

	id := s.registry.Register(addr, now)
	log.Printf("玩家 %d: 新连接来自 %s", id, addr)
	s.sendRaw(addr, protocol.FormatWelcome(id))
	s.issueToken(id, "")
	return id, false
}

func (s *GameServer) resume(addr net.Addr, token string, now time.Time) (int32, error) {
	id, _, err := VerifySessionToken(token)
	if err != nil {
		return 0, err
	}
	if !s.registry.Rebind(id, addr, now) {
		return 0, fmt.Errorf("%w: 玩家 %d 不在线", ErrInvalidToken, id)
	}

	lobby, _ := s.lobbies.LobbyOf(id)
	log.Printf("玩家 %d: 会话恢复，新地址 %s", id, addr)
	s.sendRaw(addr, protocol.FormatWelcome(id))
	s.issueToken(id, lobby)
	s.sendTo(id, protocol.NewConfirmation(protocol.ConfirmSessionResume))
	return id, nil
}

// handleEvent 处理一条客户端消息
func (s *GameServer) handleEvent(id int32, ev ServerEvent, now time.Time) {
	switch ev.Kind {
	case EventMalformed:
		log.Printf("玩家 %d: 消息解析失败: %v", id, ev.Err)
		s.sendError(id, ev.Err)

	case EventPing:
		s.sendTo(id, protocol.NewPong(ev.Ping.ClientTime, now.UnixMilli()))

	case EventCreateLobby:
		if err := s.lobbies.Create(id, ev.Lobby.Name, ev.Lobby.Map); err != nil {
			log.Printf("玩家 %d: 创建大厅失败: %v", id, err)
			s.sendError(id, err)
			return
		}
		name, _ := s.lobbies.LobbyOf(id)
		s.sendTo(id, protocol.NewConfirmation(protocol.ConfirmLobbyCreated))
		s.issueToken(id, name)
		s.broadcastLobbyList(name)

	case EventJoinLobby:
		if err := s.lobbies.Join(id, ev.Lobby.Name); err != nil {
			log.Printf("玩家 %d: 加入大厅 %s 失败: %v", id, ev.Lobby.Name, err)
			s.sendError(id, err)
			return
		}
		s.sendTo(id, protocol.NewConfirmation(protocol.ConfirmLobbyJoined))
		s.issueToken(id, ev.Lobby.Name)
		s.broadcastLobbyList(ev.Lobby.Name)

	case EventLeaveLobby:
		current, ok := s.lobbies.LobbyOf(id)
		if !ok || (ev.Lobby.Name != "" && ev.Lobby.Name != current) {
			s.sendError(id, ErrNotInLobby)
			return
		}
		name, err := s.lobbies.Leave(id)
		if err != nil {
			s.sendError(id, err)
			return
		}
		s.sendTo(id, protocol.NewConfirmation(protocol.ConfirmLobbyLeft))
		s.issueToken(id, "")
		s.broadcastLobbyList(name)

	case EventListLobbies:
		s.sendTo(id, protocol.NewActiveLobbies(s.lobbies.List()))

	case EventStartLobby:
		if err := s.lobbies.Start(id, ev.Lobby.Name); err != nil {
			log.Printf("玩家 %d: 开始比赛失败: %v", id, err)
			s.sendError(id, err)
			return
		}
		s.sendTo(id, protocol.NewConfirmation(protocol.ConfirmGameStarting))

	case EventInput:
		s.lobbies.EnqueueInput(id, ev.Input.Inputs)

	case EventResume:
		// 已知地址上的重复恢复请求（客户端握手重发）
		tokenID, _, err := VerifySessionToken(ev.Resume.SessionToken)
		if err != nil || tokenID != id {
			s.sendError(id, ErrInvalidToken)
			return
		}
		s.sendTo(id, protocol.NewConfirmation(protocol.ConfirmSessionResume))

	default:
		log.Printf("玩家 %d: 未知事件 %s", id, ev.Kind)
	}
}

// broadcastLobbyList 成员变化后把大厅列表推送给该大厅剩余成员
func (s *GameServer) broadcastLobbyList(name string) {
	members := s.lobbies.Members(name)
	if len(members) == 0 {
		return
	}
	data, err := protocol.Marshal(protocol.NewActiveLobbies(s.lobbies.List()))
	if err != nil {
		log.Printf("序列化大厅列表失败: %v", err)
		return
	}
	for _, id := range members {
		s.sendData(id, data)
	}
}

func (s *GameServer) issueToken(id int32, lobby string) {
	token, err := GenerateSessionToken(id, lobby)
	if err != nil {
		log.Printf("玩家 %d: 生成会话 Token 失败: %v", id, err)
		return
	}
	s.sendTo(id, protocol.NewSessionToken(token))
}

func (s *GameServer) sendError(id int32, err error) {
	s.sendTo(id, protocol.NewError(errorCode(err)))
}

func (s *GameServer) sendTo(id int32, msg any) {
	data, err := protocol.Marshal(msg)
	if err != nil {
		log.Printf("玩家 %d: 序列化消息失败: %v", id, err)
		return
	}
	s.sendData(id, data)
}

// sendData 发送给玩家当前地址；AI 和已断开的玩家没有地址
func (s *GameServer) sendData(id int32, data []byte) {
	addr, ok := s.registry.Addr(id)
	if !ok {
		return
	}
	s.sendRaw(addr, data)
}

func (s *GameServer) sendRaw(addr net.Addr, data []byte) {
	if err := s.transport.WriteTo(data, addr); err != nil {
		log.Printf("发送到 %s 失败: %v", addr, err)
	}
}
