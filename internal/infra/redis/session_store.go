package redis

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-mastery-service/internal/app"
)

// SessionStore is a Redis-aware implementation of SessionRepository.
// Notes:
//   - It still keeps a local in-memory map of sessions to reuse the existing
//     in-process broadcast logic.
//   - Redis is used to mark session liveness (and could be extended to share
//     snapshots or route cross-instance pub/sub).
//   - For true distribution you'd pair this with a pub/sub projector that fans out updates.
type SessionStore struct {
	client   *redis.Client
	ttl      time.Duration
	mu       sync.RWMutex
	sessions map[string]*app.GameSession
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[string]*app.GameSession),
	}
}

func (s *SessionStore) GetOrCreate(setID string) *app.GameSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[setID]; ok {
		return session
	}
	session := app.NewSession(setID)
	s.sessions[setID] = session
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(setID), "1", s.ttl).Err()
	return session
}

func (s *SessionStore) Get(setID string) (*app.GameSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[setID]
	return session, ok
}

func (s *SessionStore) DeleteIfEmpty(setID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[setID]
	if !ok {
		return
	}
	if session.IsEmpty() {
		delete(s.sessions, setID)
		_ = s.client.Del(context.Background(), s.key(setID)).Err()
	}
}

func (s *SessionStore) key(setID string) string {
	return "game:session:" + setID
}
