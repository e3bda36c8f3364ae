package app

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-mastery-service/internal/domain"
)

// GameSession is the in-memory state of one question set being played.
type GameSession struct {
	id           string
	createdAt    time.Time
	now          func() time.Time
	mu           sync.RWMutex
	participants map[string]*domain.Participant
	subscribers  map[chan domain.Scoreboard]struct{}
}

func newSession(id string) *GameSession {
	return newSessionWithClock(id, time.Now)
}

// newSessionWithClock allows deterministic timestamps in tests.
func newSessionWithClock(id string, now func() time.Time) *GameSession {
	return &GameSession{
		id:           id,
		createdAt:    now(),
		now:          now,
		participants: make(map[string]*domain.Participant),
		subscribers:  make(map[chan domain.Scoreboard]struct{}),
	}
}

func (s *GameSession) join(userID, displayName string) domain.Scoreboard {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if participant, ok := s.participants[userID]; ok {
		participant.DisplayName = displayName
		participant.LastUpdated = now
	} else {
		s.participants[userID] = &domain.Participant{
			UserID:      userID,
			DisplayName: displayName,
			GameID:      uuid.NewString(),
			LastUpdated: now,
		}
	}
	return s.broadcastLocked()
}

func (s *GameSession) applyAnswer(userID string, graded domain.GradedAnswer) (domain.Scoreboard, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	participant, ok := s.participants[userID]
	if !ok {
		return domain.Scoreboard{}, 0, domain.ErrParticipantNotFound
	}

	participant.Graded = append(participant.Graded, graded)
	participant.Score += graded.Awarded
	participant.LastUpdated = s.now()

	return s.broadcastLocked(), participant.Score, nil
}

// snapshot returns a copy of the participant's state without removing them.
// Completion persists from the copy and removes the participant only once the
// stores have accepted the game, so a failed completion can be retried.
func (s *GameSession) snapshot(userID string) (domain.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	participant, ok := s.participants[userID]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	participant.LastUpdated = s.now()
	final := *participant
	final.Graded = append([]domain.GradedAnswer(nil), participant.Graded...)
	return final, nil
}

func (s *GameSession) leave(userID string) domain.Scoreboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.participants, userID)
	return s.broadcastLocked()
}

func (s *GameSession) isEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.participants) == 0
}

// IsEmpty reports whether the session has no participants.
func (s *GameSession) IsEmpty() bool {
	return s.isEmpty()
}

func (s *GameSession) subscribe() (<-chan domain.Scoreboard, func()) {
	ch := make(chan domain.Scoreboard, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	initial := s.snapshotLocked()
	s.mu.Unlock()

	ch <- initial

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *GameSession) broadcastLocked() domain.Scoreboard {
	board := s.snapshotLocked()
	for ch := range s.subscribers {
		select {
		case ch <- board:
		default:
			// Drop the stale update so a slow client never blocks the broadcast.
			select {
			case <-ch:
			default:
			}
			ch <- board
		}
	}
	return board
}

func (s *GameSession) snapshotLocked() domain.Scoreboard {
	entries := make([]domain.ScoreboardEntry, 0, len(s.participants))
	for _, participant := range s.participants {
		entries = append(entries, domain.ScoreboardEntry{
			UserID:      participant.UserID,
			DisplayName: participant.DisplayName,
			Score:       participant.Score,
		})
	}

	// Live standings: score desc, then whoever reached it earlier, then name.
	// The persisted leaderboard applies its own tie-break in the ranker.
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		pi := s.participants[entries[i].UserID]
		pj := s.participants[entries[j].UserID]
		if pi != nil && pj != nil && !pi.LastUpdated.Equal(pj.LastUpdated) {
			return pi.LastUpdated.Before(pj.LastUpdated)
		}
		return entries[i].DisplayName < entries[j].DisplayName
	})

	return domain.Scoreboard{
		SetID:     s.id,
		Entries:   entries,
		UpdatedAt: s.now(),
	}
}
