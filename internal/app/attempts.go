package app

import (
	"context"
	"fmt"
	"time"

	"quiz-miniapp/internal/domain"
)

// AttemptRegistry abstracts where live play attempts are tracked (in-memory, Redis, etc).
type AttemptRegistry interface {
	// Begin claims the (user, quiz) slot for attemptID for at least hold. It
	// returns domain.ErrAttemptInProgress while another attempt holds it.
	Begin(ctx context.Context, userID, quizID int64, attemptID string, hold time.Duration) error
	// End releases the slot if attemptID still holds it.
	End(ctx context.Context, userID, quizID int64, attemptID string) error
}

// AttemptKey names the (user, quiz) slot in stores.
func AttemptKey(userID, quizID int64) string {
	return fmt.Sprintf("%d:%d", quizID, userID)
}

// BeginAttempt claims a live play slot and loads the quiz for it. The claim
// covers the longest the attempt can run at questionTime per question. The
// returned release function must be called when the attempt ends.
func (s *QuizService) BeginAttempt(ctx context.Context, userID, quizID int64, attemptID string, questionTime time.Duration) (domain.Quiz, func(), error) {
	quiz, err := s.GetForAttempt(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, nil, err
	}
	if s.attempts == nil {
		return quiz, func() {}, nil
	}
	hold := time.Duration(len(quiz.Questions)) * questionTime
	if err := s.attempts.Begin(ctx, userID, quizID, attemptID, hold); err != nil {
		return domain.Quiz{}, nil, err
	}
	release := func() {
		_ = s.attempts.End(context.Background(), userID, quizID, attemptID)
	}
	return quiz, release, nil
}
