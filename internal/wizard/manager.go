package wizard

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// session 带创建时间的向导实例
type session struct {
	machine   *Machine
	createdAt time.Time
}

// Manager 按会话 ID 管理向导实例
// 注册页是公开的，会话不要求登录；过期会话由 Sweep 定期清理
type Manager struct {
	mu       sync.RWMutex
	api      RegistrationAPI
	sessions map[string]*session
	ttl      time.Duration
}

// DefaultSessionTTL 向导会话的默认存活时间
const DefaultSessionTTL = 30 * time.Minute

// NewManager 创建管理器
func NewManager(api RegistrationAPI, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Manager{
		api:      api,
		sessions: make(map[string]*session),
		ttl:      ttl,
	}
}

// Create 新建向导会话，返回会话 ID
func (m *Manager) Create() (string, *Machine) {
	id := uuid.NewString()
	machine := NewMachine(m.api)

	m.mu.Lock()
	m.sessions[id] = &session{machine: machine, createdAt: time.Now()}
	m.mu.Unlock()

	return id, machine
}

// Get 获取向导会话
func (m *Manager) Get(id string) (*Machine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	return s.machine, true
}

// Remove 移除向导会话
func (m *Manager) Remove(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Sweep 清理过期会话，返回清理数量
func (m *Manager) Sweep() int {
	cutoff := time.Now().Add(-m.ttl)

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, s := range m.sessions {
		if s.createdAt.Before(cutoff) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Count 当前会话数
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
