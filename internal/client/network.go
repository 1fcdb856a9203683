package client

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"kartnet/pkg/protocol"

	kcp "github.com/xtaci/kcp-go/v5"
)

const (
	MaxPacketSize = 64 * 1024

	handshakeTimeout = 5 * time.Second
	helloInterval    = 500 * time.Millisecond
	pingInterval     = time.Second
)

var (
	ErrSendQueueFull    = errors.New("发送队列满")
	ErrNotConnected     = errors.New("未连接")
	ErrHandshakeTimeout = errors.New("等待服务器欢迎消息超时")
	ErrNoSessionToken   = errors.New("没有会话 Token")
)

// Inbound 后台接收协程解析出的一条服务器消息
type Inbound struct {
	Message    any
	ReceivedAt time.Time
}

// NetworkClient 网络客户端
// 接收协程只负责反序列化，然后通过单生产者单消费者通道交给帧循环。
type NetworkClient struct {
	serverAddr string
	proto      string

	mu     sync.Mutex
	conn   net.Conn
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	playerID  atomic.Int32
	connected atomic.Bool
	token     atomic.Value // string
	rtt       atomic.Int64 // 纳秒

	inbound   chan Inbound
	sendChan  chan []byte
	welcomeCh chan int32
	errChan   chan error
}

// NewNetworkClient 创建网络客户端，proto 为 "udp"（默认）或 "kcp"
func NewNetworkClient(serverAddr, proto string) *NetworkClient {
	nc := &NetworkClient{
		serverAddr: serverAddr,
		proto:      proto,
		inbound:    make(chan Inbound, 256),
		sendChan:   make(chan []byte, 256),
		welcomeCh:  make(chan int32, 1),
		errChan:    make(chan error, 1),
	}
	nc.playerID.Store(-1)
	nc.token.Store("")
	return nc
}

// Connect 连接到服务器并等待分配玩家 ID
func (nc *NetworkClient) Connect() error {
	log.Printf("连接到服务器: %s (%s)", nc.serverAddr, nc.protoName())

	hello, err := protocol.Marshal(protocol.NewPing(time.Now().UnixMilli()))
	if err != nil {
		return err
	}
	return nc.open(hello)
}

// Reconnect 从新的本地地址重新连接，并用会话 Token 恢复原来的玩家身份
func (nc *NetworkClient) Reconnect() error {
	token := nc.SessionToken()
	if token == "" {
		return ErrNoSessionToken
	}
	nc.stop()

	hello, err := protocol.Marshal(protocol.NewResume(token))
	if err != nil {
		return err
	}
	previous := nc.PlayerID()
	if err := nc.open(hello); err != nil {
		return err
	}
	if id := nc.PlayerID(); id != previous {
		log.Printf("会话恢复失败，服务器分配了新 ID: %d -> %d", previous, id)
	}
	return nil
}

func (nc *NetworkClient) open(hello []byte) error {
	conn, err := nc.dial()
	if err != nil {
		return fmt.Errorf("连接服务器失败: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	nc.mu.Lock()
	nc.conn = conn
	nc.ctx = ctx
	nc.cancel = cancel
	nc.mu.Unlock()
	nc.connected.Store(true)

	log.Printf("已连接到服务器: %s", conn.RemoteAddr())

	// 启动接收/发送循环
	nc.wg.Add(2)
	go nc.receiveLoop(ctx, conn)
	go nc.sendLoop(ctx, conn)

	if err := nc.handshake(ctx, hello); err != nil {
		nc.Close()
		return err
	}

	nc.wg.Add(1)
	go nc.pingLoop(ctx)
	return nil
}

// handshake 反复发送 hello 直到收到欢迎行（UDP 可能丢包）
func (nc *NetworkClient) handshake(ctx context.Context, hello []byte) error {
	// 清掉上一次连接遗留的欢迎消息
	select {
	case <-nc.welcomeCh:
	default:
	}

	deadline := time.NewTimer(handshakeTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(helloInterval)
	defer ticker.Stop()

	if err := nc.sendMessage(hello); err != nil {
		return err
	}
	for {
		select {
		case id := <-nc.welcomeCh:
			log.Printf("玩家 ID: %d", id)
			return nil
		case err := <-nc.errChan:
			return err
		case <-ticker.C:
			if err := nc.sendMessage(hello); err != nil {
				log.Printf("发送握手消息失败: %v", err)
			}
		case <-deadline.C:
			return ErrHandshakeTimeout
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (nc *NetworkClient) protoName() string {
	if nc.proto == "" {
		return "udp"
	}
	return nc.proto
}

func (nc *NetworkClient) dial() (net.Conn, error) {
	switch nc.protoName() {
	case "udp":
		return net.DialTimeout("udp", nc.serverAddr, 5*time.Second)
	case "kcp":
		conn, err := kcp.DialWithOptions(nc.serverAddr, nil, 0, 0)
		if err != nil {
			return nil, err
		}
		conn.SetStreamMode(true)
		conn.SetNoDelay(1, 10, 2, 1)
		return conn, nil
	default:
		return nil, fmt.Errorf("不支持的协议: %s", nc.proto)
	}
}

// stop 停止当前连接的所有协程，保留玩家信息
func (nc *NetworkClient) stop() {
	nc.mu.Lock()
	cancel, conn := nc.cancel, nc.conn
	nc.mu.Unlock()

	nc.connected.Store(false)
	if cancel != nil {
		cancel()
	}
	if conn != nil {
		conn.Close()
	}
	nc.wg.Wait()
}

// Close 关闭连接
func (nc *NetworkClient) Close() {
	if !nc.connected.Load() {
		return
	}
	nc.stop()
	log.Printf("网络客户端已关闭")
}

// PlayerID 服务器分配的玩家 ID，未连接时为 -1
func (nc *NetworkClient) PlayerID() int32 {
	return nc.playerID.Load()
}

// IsConnected 检查是否已连接
func (nc *NetworkClient) IsConnected() bool {
	return nc.connected.Load()
}

// SessionToken 服务器签发的会话 Token
func (nc *NetworkClient) SessionToken() string {
	return nc.token.Load().(string)
}

// RTT 最近一次 Ping 往返时间
func (nc *NetworkClient) RTT() time.Duration {
	return time.Duration(nc.rtt.Load())
}

// ========== 消息接收 ==========

// receiveLoop 接收循环：UDP 每个数据报一条或多条消息，KCP 为换行分隔的流
func (nc *NetworkClient) receiveLoop(ctx context.Context, conn net.Conn) {
	defer nc.wg.Done()

	if nc.protoName() == "kcp" {
		scanner := bufio.NewScanner(conn)
		scanner.Buffer(make([]byte, 4096), MaxPacketSize)
		for scanner.Scan() {
			nc.handleLine(scanner.Bytes())
		}
		if err := scanner.Err(); err != nil && ctx.Err() == nil {
			nc.reportError(fmt.Errorf("读取数据失败: %w", err))
		}
		return
	}

	buf := make([]byte, MaxPacketSize)
	for {
		n, err := conn.Read(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			// UDP 上的 ICMP 不可达等错误不影响后续接收
			log.Printf("读取数据失败: %v", err)
			continue
		}
		for _, line := range bytes.Split(buf[:n], []byte{'\n'}) {
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			nc.handleLine(line)
		}
	}
}

func (nc *NetworkClient) reportError(err error) {
	select {
	case nc.errChan <- err:
	default:
	}
}

// handleLine 处理一行服务器消息
func (nc *NetworkClient) handleLine(line []byte) {
	if id, ok := protocol.ParseWelcome(line); ok {
		nc.playerID.Store(id)
		select {
		case nc.welcomeCh <- id:
		default:
		}
		return
	}

	msg, err := protocol.DecodeServerMessage(line)
	if err != nil {
		log.Printf("处理消息失败: %v", err)
		return
	}

	switch m := msg.(type) {
	case *protocol.Pong:
		if m.ClientTime > 0 {
			rtt := time.Since(time.UnixMilli(m.ClientTime))
			nc.rtt.Store(int64(rtt))
		}
		return
	case *protocol.SessionToken:
		nc.token.Store(m.Token)
		return
	}

	select {
	case nc.inbound <- Inbound{Message: msg, ReceivedAt: time.Now()}:
	default:
		// 帧循环跟不上，丢弃
		log.Printf("接收队列满，丢弃消息 %T", msg)
	}
}

// Receive 取出一条消息（非阻塞）
func (nc *NetworkClient) Receive() (Inbound, bool) {
	select {
	case in := <-nc.inbound:
		return in, true
	default:
		return Inbound{}, false
	}
}

// ========== 消息发送 ==========

// sendLoop 发送循环
func (nc *NetworkClient) sendLoop(ctx context.Context, conn net.Conn) {
	defer nc.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return

		case data := <-nc.sendChan:
			if _, err := conn.Write(data); err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Printf("发送数据失败: %v", err)
			}
		}
	}
}

// pingLoop 定期 Ping，既测量 RTT 也保持服务器端的活跃时间
func (nc *NetworkClient) pingLoop(ctx context.Context) {
	defer nc.wg.Done()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := nc.Send(protocol.NewPing(time.Now().UnixMilli())); err != nil {
				log.Printf("发送 Ping 失败: %v", err)
			}
		}
	}
}

// sendMessage 发送已序列化的消息
func (nc *NetworkClient) sendMessage(data []byte) error {
	select {
	case nc.sendChan <- data:
		return nil
	default:
		return ErrSendQueueFull
	}
}

// Send 序列化并发送一条消息
func (nc *NetworkClient) Send(msg any) error {
	if !nc.connected.Load() {
		return ErrNotConnected
	}
	data, err := protocol.Marshal(msg)
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}
	return nc.sendMessage(data)
}

// SendInputs 批量发送输入
func (nc *NetworkClient) SendInputs(inputs []protocol.InputData) error {
	return nc.Send(protocol.NewPlayerInputBuffer(inputs))
}

// ========== 大厅 ==========

func (nc *NetworkClient) CreateLobby(name, mapChoice string) error {
	return nc.Send(protocol.NewCreateLobby(name, mapChoice))
}

func (nc *NetworkClient) JoinLobby(name string) error {
	return nc.Send(protocol.NewJoinLobby(name))
}

func (nc *NetworkClient) LeaveLobby(name string) error {
	return nc.Send(protocol.NewLeaveLobby(name))
}

func (nc *NetworkClient) ListLobbies() error {
	return nc.Send(protocol.NewListLobbies())
}

func (nc *NetworkClient) StartLobby(name string) error {
	return nc.Send(protocol.NewStartLobby(name))
}
