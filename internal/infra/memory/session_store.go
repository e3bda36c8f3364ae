package memory

import (
	"sync"

	"quiz-mastery-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.GameSession
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
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
	}
}
