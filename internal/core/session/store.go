// Package session 进程内的服务端会话表。
package session

import (
	"sync"
	"time"
)

// Session 绑定唯一一个管理员；过期时间为签发时刻 + TTL（不滑动续期）
type Session struct {
	ID         string
	AdminID    uint
	CSRFToken  string
	Persistent bool // true: Cookie 带 Max-Age，浏览器关闭后仍保留
	IssuedAt   time.Time
	ExpiresAt  time.Time
}

func (s Session) Expired(now time.Time) bool { return !now.Before(s.ExpiresAt) }

type Store struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{sessions: make(map[string]Session), now: now}
}

func (s *Store) Put(sess Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
}

// Get 过期的会话顺手删除；第二个返回值表示是否存在，第三个表示是否已过期
func (s *Store) Get(id string) (Session, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return Session{}, false, false
	}
	if sess.Expired(s.now()) {
		delete(s.sessions, id)
		return sess, true, true
	}
	return sess, true, false
}

func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// Sweep 清理所有过期会话，返回清理数量
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for id, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) Reset() {
	s.mu.Lock()
	s.sessions = make(map[string]Session)
	s.mu.Unlock()
}
