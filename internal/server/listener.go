package server

import (
	"bufio"
	"fmt"
	"log"
	"net"
	"sync"

	kcp "github.com/xtaci/kcp-go/v5"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// AF31 = 26 << 2
const dscpAF31 = 0x68

// PacketTransport 面向数据报的传输层，只允许一个读协程
type PacketTransport interface {
	ReadFrom(buf []byte) (int, net.Addr, error)
	WriteTo(data []byte, addr net.Addr) error
	Close() error
	LocalAddr() net.Addr
}

// addrCloser 可以主动断开单个地址的传输层（KCP 会话）
type addrCloser interface {
	CloseAddr(addr net.Addr)
}

func newTransport(proto, addr string, dscp bool) (PacketTransport, error) {
	switch proto {
	case "udp":
		return newUDPTransport(addr, dscp)
	case "kcp":
		return newKCPTransport(addr)
	default:
		return nil, fmt.Errorf("不支持的协议: %s", proto)
	}
}

// ========== UDP ==========

type udpTransport struct {
	conn *net.UDPConn
}

func newUDPTransport(addr string, dscp bool) (*udpTransport, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, err
	}

	if err := conn.SetReadBuffer(128 * 1024); err != nil {
		log.Printf("设置 UDP 读缓冲失败: %v", err)
	}
	if err := conn.SetWriteBuffer(128 * 1024); err != nil {
		log.Printf("设置 UDP 写缓冲失败: %v", err)
	}
	if dscp {
		markAF31(conn, udpAddr)
	}
	return &udpTransport{conn: conn}, nil
}

// markAF31 给游戏流量打上 AF31 优先级
func markAF31(conn *net.UDPConn, addr *net.UDPAddr) {
	if err := ipv4.NewConn(conn).SetTOS(dscpAF31); err != nil {
		log.Printf("设置 IPv4 DSCP AF31 失败: %v", err)
	}
	if addr.IP != nil && addr.IP.To4() != nil {
		return
	}
	if err := ipv6.NewConn(conn).SetTrafficClass(dscpAF31); err != nil {
		log.Printf("设置 IPv6 DSCP AF31 失败: %v", err)
	}
}

func (t *udpTransport) ReadFrom(buf []byte) (int, net.Addr, error) {
	return t.conn.ReadFrom(buf)
}

func (t *udpTransport) WriteTo(data []byte, addr net.Addr) error {
	_, err := t.conn.WriteTo(data, addr)
	return err
}

func (t *udpTransport) Close() error {
	return t.conn.Close()
}

func (t *udpTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// ========== KCP ==========

type kcpPacket struct {
	addr net.Addr
	data []byte
}

// kcpTransport 把每个 KCP 会话的换行分隔流转换成数据报
type kcpTransport struct {
	listener *kcp.Listener
	inbound  chan kcpPacket

	mu       sync.Mutex
	sessions map[string]*kcp.UDPSession

	closed    chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func newKCPTransport(addr string) (*kcpTransport, error) {
	listener, err := kcp.ListenWithOptions(addr, nil, 0, 0)
	if err != nil {
		return nil, err
	}
	t := &kcpTransport{
		listener: listener,
		inbound:  make(chan kcpPacket, 1024),
		sessions: make(map[string]*kcp.UDPSession),
		closed:   make(chan struct{}),
	}
	t.wg.Add(1)
	go t.acceptLoop()
	return t, nil
}

func (t *kcpTransport) acceptLoop() {
	defer t.wg.Done()

	for {
		session, err := t.listener.AcceptKCP()
		if err != nil {
			select {
			case <-t.closed:
			default:
				log.Printf("接受 KCP 会话失败: %v", err)
			}
			return
		}
		session.SetStreamMode(true)
		session.SetNoDelay(1, 10, 2, 1)

		t.mu.Lock()
		t.sessions[session.RemoteAddr().String()] = session
		t.mu.Unlock()

		t.wg.Add(1)
		go t.readSession(session)
	}
}

func (t *kcpTransport) readSession(session *kcp.UDPSession) {
	defer t.wg.Done()
	addr := session.RemoteAddr()
	defer func() {
		t.mu.Lock()
		if t.sessions[addr.String()] == session {
			delete(t.sessions, addr.String())
		}
		t.mu.Unlock()
		session.Close()
	}()

	scanner := bufio.NewScanner(session)
	scanner.Buffer(make([]byte, 4096), MaxPacketSize)
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		select {
		case t.inbound <- kcpPacket{addr: addr, data: line}:
		case <-t.closed:
			return
		}
	}
}

func (t *kcpTransport) ReadFrom(buf []byte) (int, net.Addr, error) {
	select {
	case p := <-t.inbound:
		return copy(buf, p.data), p.addr, nil
	case <-t.closed:
		return 0, nil, net.ErrClosed
	}
}

func (t *kcpTransport) WriteTo(data []byte, addr net.Addr) error {
	t.mu.Lock()
	session := t.sessions[addr.String()]
	t.mu.Unlock()
	if session == nil {
		return fmt.Errorf("KCP 会话不存在: %s", addr)
	}
	_, err := session.Write(data)
	return err
}

// CloseAddr 玩家超时后关闭对应会话
func (t *kcpTransport) CloseAddr(addr net.Addr) {
	t.mu.Lock()
	session := t.sessions[addr.String()]
	t.mu.Unlock()
	if session != nil {
		session.Close()
	}
}

func (t *kcpTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closed)
		err = t.listener.Close()

		t.mu.Lock()
		for _, session := range t.sessions {
			session.Close()
		}
		t.mu.Unlock()

		t.wg.Wait()
	})
	return err
}

func (t *kcpTransport) LocalAddr() net.Addr {
	return t.listener.Addr()
}
