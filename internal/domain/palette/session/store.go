package session

import (
	"log/slog"
	"sync"

	applog "nodepalette/internal/platform/log"
)

// Store 会话注册表。preload 与 start 传入相同会话 id 时复用同一会话；
// 会话只存在于内存中，取消/完成/销毁即消失。
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	logger   *slog.Logger
}

// NewStore 创建会话注册表
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		logger:   applog.With("component", "session_store"),
	}
}

// Get 查会话
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// GetOrCreate 复用同 id 的存活会话，否则用 create 建立新会话
func (s *Store) GetOrCreate(id string, create func() *Session) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[id]; ok {
		s.logger.Debug("reusing live session", "session_id", id)
		return sess, false
	}
	sess := create()
	s.sessions[id] = sess
	return sess, true
}

// Destroy 销毁会话
func (s *Store) Destroy(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; ok {
		delete(s.sessions, id)
		s.logger.Debug("session destroyed", "session_id", id)
	}
}

// Len 存活会话数
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
