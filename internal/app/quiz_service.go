package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"quiz-miniapp/internal/domain"
)

// QuizRepository loads quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
}

// QuizCatalog lists and stores quizzes.
type QuizCatalog interface {
	ListQuizzes(ctx context.Context) ([]domain.Quiz, error)
	CreateQuiz(ctx context.Context, quiz domain.Quiz) (int64, error)
}

// ResultRepository persists one result per user and quiz.
type ResultRepository interface {
	// GetResult returns domain.ErrResultNotFound when the user has no result.
	GetResult(ctx context.Context, userID, quizID int64) (domain.Result, error)
	InsertResult(ctx context.Context, result domain.Result) (domain.Result, error)
	UpdateResult(ctx context.Context, result domain.Result) error
	ListResults(ctx context.Context) ([]domain.Result, error)
	ListUserResults(ctx context.Context, userID int64) ([]domain.Result, error)
}

const (
	msgSaved            = "Quiz result saved successfully"
	msgAlreadyCompleted = "Quiz already completed"
)

// QuizService contains the core quiz use cases.
type QuizService struct {
	quizzes  QuizRepository
	catalog  QuizCatalog
	results  ResultRepository
	attempts AttemptRegistry

	shuffle  bool
	now      func() time.Time
	validate *validator.Validate

	rndMu sync.Mutex
	rnd   *rand.Rand

	locks keyedMutex
}

type Option func(*QuizService)

// WithShuffle toggles per-attempt question and option shuffling.
func WithShuffle(enabled bool) Option {
	return func(s *QuizService) { s.shuffle = enabled }
}

// WithRand is test-only for deterministic shuffles.
func WithRand(rnd *rand.Rand) Option {
	return func(s *QuizService) { s.rnd = rnd }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *QuizService) { s.now = now }
}

func NewQuizService(quizzes QuizRepository, catalog QuizCatalog, results ResultRepository, attempts AttemptRegistry, opts ...Option) *QuizService {
	s := &QuizService{
		quizzes:  quizzes,
		catalog:  catalog,
		results:  results,
		attempts: attempts,
		shuffle:  true,
		now:      time.Now,
		validate: validator.New(),
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListForUser returns the carousel with each quiz's stored score for userID.
func (s *QuizService) ListForUser(ctx context.Context, userID int64) ([]domain.QuizSummary, error) {
	quizzes, err := s.catalog.ListQuizzes(ctx)
	if err != nil {
		return nil, err
	}
	results, err := s.results.ListUserResults(ctx, userID)
	if err != nil {
		return nil, err
	}
	scores := make(map[int64]domain.Result, len(results))
	for _, r := range results {
		if prev, ok := scores[r.QuizID]; !ok || r.CompletedAt.After(prev.CompletedAt) {
			scores[r.QuizID] = r
		}
	}

	out := make([]domain.QuizSummary, 0, len(quizzes))
	for _, q := range quizzes {
		out = append(out, domain.QuizSummary{
			ID:           q.ID,
			Title:        q.Title,
			Description:  q.Description,
			UserScore:    scores[q.ID].Score,
			IsRepassable: q.IsRepassable,
		})
	}
	return out, nil
}

// GetForAttempt loads a quiz for play. Question order and multiple-choice
// option order are shuffled per call, with answer keys remapped, and the
// quiz carries the Layout to submit its answers with.
func (s *QuizService) GetForAttempt(ctx context.Context, quizID int64) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if !s.shuffle {
		return quiz, nil
	}

	seed := s.nextSeed()
	quiz.Questions, _ = arrange(quiz.Questions, seed)
	quiz.Layout = formatLayout(seed)
	return quiz, nil
}

func (s *QuizService) nextSeed() int64 {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	for {
		if seed := s.rnd.Int63(); seed != 0 {
			return seed
		}
	}
}

// Submit records a finished attempt. A first submission is stored; a repeat
// on a quiz that is not repassable leaves the stored result untouched; a
// repeat on a repassable quiz keeps the higher score. Answers submitted with
// a Layout are stored in the quiz's own order.
func (s *QuizService) Submit(ctx context.Context, quizID int64, sub domain.Submission) (domain.SubmitOutcome, error) {
	if sub.UserID == 0 {
		return domain.SubmitOutcome{}, fmt.Errorf("%w: user_id is required", domain.ErrInvalidInput)
	}
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.SubmitOutcome{}, err
	}
	score := float64(clampScore(sub.Score))
	answers := sub.Answers
	if sub.Layout != "" {
		if answers, err = storedOrder(quiz.Questions, sub.Layout, answers); err != nil {
			return domain.SubmitOutcome{}, err
		}
	}
	if len(answers) == 0 {
		answers = []byte("[]")
	}

	unlock := s.locks.lock(fmt.Sprintf("%d:%d", sub.UserID, quizID))
	defer unlock()

	existing, err := s.results.GetResult(ctx, sub.UserID, quizID)
	switch {
	case errors.Is(err, domain.ErrResultNotFound):
		_, err := s.results.InsertResult(ctx, domain.Result{
			UserID:      sub.UserID,
			QuizID:      quizID,
			Score:       score,
			Answers:     answers,
			CompletedAt: s.now().UTC(),
		})
		if err != nil {
			return domain.SubmitOutcome{}, err
		}
		return domain.SubmitOutcome{Message: msgSaved, Score: score, IsRepassable: quiz.IsRepassable, Status: domain.SubmitSaved}, nil
	case err != nil:
		return domain.SubmitOutcome{}, err
	}

	if !quiz.IsRepassable {
		return domain.SubmitOutcome{
			Message:      msgAlreadyCompleted,
			Score:        existing.Score,
			IsRepassable: false,
			Status:       domain.SubmitAlreadyCompleted,
		}, nil
	}

	status := domain.SubmitKept
	if score > existing.Score {
		existing.Score = score
		existing.Answers = answers
		existing.CompletedAt = s.now().UTC()
		if err := s.results.UpdateResult(ctx, existing); err != nil {
			return domain.SubmitOutcome{}, err
		}
		status = domain.SubmitImproved
	}
	return domain.SubmitOutcome{Message: msgSaved, Score: score, IsRepassable: true, Status: status}, nil
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// CreateQuizRequest is the payload of the create endpoint.
type CreateQuizRequest struct {
	Title        string           `json:"title" validate:"required,max=100"`
	Description  *string          `json:"description" validate:"required,max=500"`
	Questions    domain.Questions `json:"questions" validate:"required,min=1"`
	IsRepassable *bool            `json:"is_repassable"`
}

// Create validates and stores a new quiz. Quizzes are repassable unless the
// request says otherwise.
func (s *QuizService) Create(ctx context.Context, req CreateQuizRequest) (int64, error) {
	if err := s.validate.Struct(req); err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	for _, q := range req.Questions {
		if err := q.Validate(); err != nil {
			return 0, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
	}
	repassable := true
	if req.IsRepassable != nil {
		repassable = *req.IsRepassable
	}
	return s.catalog.CreateQuiz(ctx, domain.Quiz{
		Title:        req.Title,
		Description:  *req.Description,
		Questions:    req.Questions,
		IsRepassable: repassable,
		CreatedAt:    s.now().UTC(),
	})
}

// Export dumps every quiz and result.
func (s *QuizService) Export(ctx context.Context) (domain.Export, error) {
	quizzes, err := s.catalog.ListQuizzes(ctx)
	if err != nil {
		return domain.Export{}, err
	}
	results, err := s.results.ListResults(ctx)
	if err != nil {
		return domain.Export{}, err
	}
	if quizzes == nil {
		quizzes = []domain.Quiz{}
	}
	if results == nil {
		results = []domain.Result{}
	}
	return domain.Export{Quizzes: quizzes, Results: results}, nil
}

// keyedMutex serializes submissions per user and quiz.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedEntry)
	}
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
