package service

import (
	"sync"
	"time"

	"docqa-go/internal/model"
	"docqa-go/pkg/log"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Session 是一个会话的有序消息日志。调用方在「读历史 -> 生成 -> 追加」期间持有 Lock，
// 因此同一会话的两轮对话不会交错。
type Session struct {
	sync.Mutex
	history []model.ChatMessage
}

// History 返回历史的副本，调用方须持有锁。
func (s *Session) History() []model.ChatMessage {
	out := make([]model.ChatMessage, len(s.history))
	copy(out, s.history)
	return out
}

// AppendTurn 追加一轮 user/assistant 消息，调用方须持有锁。
func (s *Session) AppendTurn(query, answer string) {
	now := time.Now()
	s.history = append(s.history,
		model.ChatMessage{Role: model.RoleUser, Content: query, Timestamp: now},
		model.ChatMessage{Role: model.RoleAssistant, Content: answer, Timestamp: now},
	)
}

// SessionStore 按会话 ID 保存会话，带容量上限与空闲过期。
type SessionStore struct {
	mu    sync.Mutex
	cache *expirable.LRU[string, *Session]
}

// NewSessionStore maxSessions 为 0 表示不限容量，ttl 为 0 表示不过期。
func NewSessionStore(maxSessions int, ttl time.Duration) *SessionStore {
	onEvict := func(id string, _ *Session) {
		log.Debugf("[SessionStore] 会话被淘汰: %s", id)
	}
	return &SessionStore{cache: expirable.NewLRU[string, *Session](maxSessions, onEvict, ttl)}
}

// GetOrCreate 返回会话，不存在时创建一个空会话；每次访问都会刷新过期时间。
func (s *SessionStore) GetOrCreate(id string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.cache.Get(id)
	if !ok {
		sess = &Session{}
	}
	s.cache.Add(id, sess)
	return sess
}

// Start 创建会话，已存在时清空其日志。
func (s *SessionStore) Start(id string) {
	sess := s.GetOrCreate(id)
	sess.Lock()
	sess.history = nil
	sess.Unlock()
}

// Clear 清空已存在会话的日志并保留会话，返回会话是否存在。
func (s *SessionStore) Clear(id string) bool {
	s.mu.Lock()
	sess, ok := s.cache.Get(id)
	s.mu.Unlock()
	if !ok {
		return false
	}
	sess.Lock()
	sess.history = nil
	sess.Unlock()
	return true
}

// Len 返回当前保存的会话数。
func (s *SessionStore) Len() int {
	return s.cache.Len()
}
