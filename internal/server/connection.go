package server

import (
	"net"
	"sort"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// connection 一个已知客户端地址
type connection struct {
	id       int32
	addr     net.Addr
	lastSeen time.Time
	limiter  *rate.Limiter
}

// ConnectionRegistry 地址 <-> 玩家 ID 表
// 只在读协程和超时扫描中修改，锁内不做任何 I/O。
type ConnectionRegistry struct {
	mu     sync.Mutex
	byAddr map[string]int32
	byID   map[int32]*connection
	nextID int32

	limit rate.Limit
	burst int
}

// NewConnectionRegistry 创建连接表，limit/burst 为每个连接的数据报限速
func NewConnectionRegistry(limit rate.Limit, burst int) *ConnectionRegistry {
	if burst <= 0 {
		burst = 1
	}
	return &ConnectionRegistry{
		byAddr: make(map[string]int32),
		byID:   make(map[int32]*connection),
		nextID: 1,
		limit:  limit,
		burst:  burst,
	}
}

// ReserveID 分配一个不绑定地址的 ID（AI 车手）
func (r *ConnectionRegistry) ReserveID() int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.nextID
	r.nextID++
	return id
}

// Register 新地址首次出现时分配玩家 ID
func (r *ConnectionRegistry) Register(addr net.Addr, now time.Time) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byAddr[addr.String()]; ok {
		r.byID[id].lastSeen = now
		return id
	}

	id := r.nextID
	r.nextID++
	r.byAddr[addr.String()] = id
	r.byID[id] = &connection{
		id:       id,
		addr:     addr,
		lastSeen: now,
		limiter:  rate.NewLimiter(r.limit, r.burst),
	}
	return id
}

// Lookup 按地址查玩家 ID
func (r *ConnectionRegistry) Lookup(addr net.Addr) (int32, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byAddr[addr.String()]
	return id, ok
}

// Addr 按玩家 ID 查地址
func (r *ConnectionRegistry) Addr(id int32) (net.Addr, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	return c.addr, true
}

// Touch 刷新最后活跃时间，并按限速决定是否处理这个数据报
func (r *ConnectionRegistry) Touch(id int32, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return false
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// Rebind 会话恢复：把已存在的玩家 ID 绑定到新地址
func (r *ConnectionRegistry) Rebind(id int32, addr net.Addr, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.byID[id]
	if !ok {
		return false
	}
	if other, taken := r.byAddr[addr.String()]; taken && other != id {
		return false
	}
	delete(r.byAddr, c.addr.String())
	c.addr = addr
	c.lastSeen = now
	r.byAddr[addr.String()] = id
	return true
}

// Remove 删除玩家
func (r *ConnectionRegistry) Remove(id int32) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)
	delete(r.byAddr, c.addr.String())
	return true
}

// sweep 移除超过 timeout 没有活动的玩家，返回被移除的 ID 和地址（按 ID 排序）
func (r *ConnectionRegistry) sweep(now time.Time, timeout time.Duration) []connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []connection
	for id, c := range r.byID {
		if now.Sub(c.lastSeen) > timeout {
			expired = append(expired, *c)
			delete(r.byID, id)
			delete(r.byAddr, c.addr.String())
		}
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].id < expired[j].id })
	return expired
}

// Len 当前连接数
func (r *ConnectionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}
