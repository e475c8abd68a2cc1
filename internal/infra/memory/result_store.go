package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-miniapp/internal/app"
	"quiz-miniapp/internal/domain"
)

var _ app.ResultRepository = (*ResultStore)(nil)

// ResultStore keeps quiz results in memory, one per user and quiz.
type ResultStore struct {
	mu      sync.RWMutex
	nextID  int64
	results map[string]domain.Result
}

func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string]domain.Result)}
}

func (s *ResultStore) GetResult(_ context.Context, userID, quizID int64) (domain.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[app.AttemptKey(userID, quizID)]
	if !ok {
		return domain.Result{}, domain.ErrResultNotFound
	}
	return r, nil
}

func (s *ResultStore) InsertResult(_ context.Context, result domain.Result) (domain.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	result.ID = s.nextID
	s.results[app.AttemptKey(result.UserID, result.QuizID)] = result
	return result, nil
}

func (s *ResultStore) UpdateResult(_ context.Context, result domain.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := app.AttemptKey(result.UserID, result.QuizID)
	if _, ok := s.results[key]; !ok {
		return domain.ErrResultNotFound
	}
	s.results[key] = result
	return nil
}

func (s *ResultStore) ListResults(_ context.Context) ([]domain.Result, error) {
	return s.list(func(domain.Result) bool { return true }), nil
}

func (s *ResultStore) ListUserResults(_ context.Context, userID int64) ([]domain.Result, error) {
	return s.list(func(r domain.Result) bool { return r.UserID == userID }), nil
}

func (s *ResultStore) list(keep func(domain.Result) bool) []domain.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Result, 0, len(s.results))
	for _, r := range s.results {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
