package memory

import (
	"context"
	"sync"
	"time"

	"quiz-miniapp/internal/app"
	"quiz-miniapp/internal/domain"
)

var _ app.AttemptRegistry = (*AttemptStore)(nil)

// AttemptStore is an in-memory implementation of app.AttemptRegistry.
// Claims expire after their hold plus ttl so an abandoned attempt cannot
// block a user forever.
type AttemptStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu       sync.Mutex
	attempts map[string]attemptClaim
}

type attemptClaim struct {
	id        string
	expiresAt time.Time
}

func NewAttemptStore(ttl time.Duration) *AttemptStore {
	return &AttemptStore{
		ttl:      ttl,
		clock:    time.Now,
		attempts: make(map[string]attemptClaim),
	}
}

func (s *AttemptStore) Begin(_ context.Context, userID, quizID int64, attemptID string, hold time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := app.AttemptKey(userID, quizID)
	now := s.clock()
	if claim, ok := s.attempts[key]; ok && claim.id != attemptID && (s.ttl <= 0 || claim.expiresAt.After(now)) {
		return domain.ErrAttemptInProgress
	}
	s.attempts[key] = attemptClaim{id: attemptID, expiresAt: now.Add(hold + s.ttl)}
	return nil
}

func (s *AttemptStore) End(_ context.Context, userID, quizID int64, attemptID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := app.AttemptKey(userID, quizID)
	if claim, ok := s.attempts[key]; ok && claim.id == attemptID {
		delete(s.attempts, key)
	}
	return nil
}

// Active reports whether any attempt holds the slot.
func (s *AttemptStore) Active(userID, quizID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	claim, ok := s.attempts[app.AttemptKey(userID, quizID)]
	return ok && (s.ttl <= 0 || claim.expiresAt.After(s.clock()))
}
