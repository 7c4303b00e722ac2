package service

import (
	"context"
	"sync"
	"time"

	"github.com/TIANLI0/LeafScan/utils"
	"go.uber.org/zap"
)

type session struct {
	controller *Controller
	lastSeen   time.Time
}

// SessionStore 每个浏览器会话一个 Controller，空闲超时后关闭
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]*session

	ttl     time.Duration
	factory func() *Controller
	now     func() time.Time
}

func NewSessionStore(ttl time.Duration, factory func() *Controller) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*session),
		ttl:      ttl,
		factory:  factory,
		now:      time.Now,
	}
}

// Get 返回会话的 Controller，ID 无效或已过期时新建会话并返回新 ID
func (s *SessionStore) Get(id string) (*Controller, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	if sess, ok := s.sessions[id]; ok {
		if !s.expired(sess, now) {
			sess.lastSeen = now
			return sess.controller, id
		}
		delete(s.sessions, id)
		sess.controller.Close()
	}

	id = utils.NewID()
	s.sessions[id] = &session{
		controller: s.factory(),
		lastSeen:   now,
	}

	utils.Logger.Debug("session created", zap.String("session", id))
	return s.sessions[id].controller, id
}

// Lookup 只查找，不新建
func (s *SessionStore) Lookup(id string) (*Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if !ok || s.expired(sess, s.now()) {
		return nil, false
	}
	return sess.controller, true
}

// Sweep 关闭并移除过期会话，返回移除数量
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	var expired []*Controller
	now := s.now()
	for id, sess := range s.sessions {
		if s.expired(sess, now) {
			expired = append(expired, sess.controller)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, c := range expired {
		c.Close()
	}

	if len(expired) > 0 {
		utils.Logger.Info("sessions expired", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Run 定期清理过期会话，ctx 结束时关闭全部会话
func (s *SessionStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Sweep()
		case <-ctx.Done():
			s.CloseAll()
			return
		}
	}
}

func (s *SessionStore) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.controller.Close()
	}
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.sessions)
}

func (s *SessionStore) expired(sess *session, now time.Time) bool {
	return s.ttl > 0 && now.Sub(sess.lastSeen) > s.ttl
}
