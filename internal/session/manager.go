package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mandala/internal/generate"
	"mandala/internal/store"
)

// Manager 按成员缓存打开的会话。同一成员的并发打开共享同一个
// Session 实例，保证网格更新只有一条串行路径。
type Manager struct {
	store  store.Store
	gen    generate.Generator
	logger *slog.Logger

	debounce time.Duration
	settle   time.Duration

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager 创建会话管理器。debounce 为编辑后的落盘防抖窗口，
// settle 为装载后的静默期（期间编辑不触发保存）。
func NewManager(st store.Store, gen generate.Generator, logger *slog.Logger, debounce, settle time.Duration) *Manager {
	return &Manager{
		store:    st,
		gen:      gen,
		logger:   logger,
		debounce: debounce,
		settle:   settle,
		sessions: make(map[string]*Session),
	}
}

// Open 返回该成员的会话，不存在则装载一个新的。
func (m *Manager) Open(ctx context.Context, user store.User) *Session {
	m.mu.Lock()
	if s, ok := m.sessions[user.ID]; ok {
		m.mu.Unlock()
		return s
	}
	s := newSession(user.ID, m.store, m.gen, m.logger, m.debounce)
	m.sessions[user.ID] = s
	m.mu.Unlock()

	s.load(ctx, user, m.settle)
	return s
}

// Get 返回已打开的会话。
func (m *Manager) Get(userID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[userID]
	return s, ok
}

// Close 冲刷并移除该成员的会话。不存在时为 no-op。
func (m *Manager) Close(userID string) {
	m.mu.Lock()
	s, ok := m.sessions[userID]
	if ok {
		delete(m.sessions, userID)
	}
	m.mu.Unlock()

	if ok {
		s.Flush()
	}
}

// FindByMessage 返回持有该留言的会话（按留言 ID 在已打开的会话里检索）。
func (m *Manager) FindByMessage(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.HasMessage(id) {
			return s, true
		}
	}
	return nil, false
}
