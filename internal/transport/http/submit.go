package http

import (
	"context"

	"quiz-miniapp/internal/app"
	"quiz-miniapp/internal/domain"
	"quiz-miniapp/internal/metrics"
)

// submissions is the one path results take into the service, from REST and
// from live play alike: per-user limit first, then the outcome is counted.
type submissions struct {
	service *app.QuizService
	limiter *submitLimiter
	metrics *metrics.Metrics
}

func newSubmissions(service *app.QuizService, s settings) *submissions {
	return &submissions{
		service: service,
		limiter: newSubmitLimiter(s.submitPerMinute, s.submitBurst),
		metrics: s.metrics,
	}
}

func (s *submissions) record(ctx context.Context, sub domain.Submission) (domain.SubmitOutcome, error) {
	if !s.limiter.Allow(sub.UserID) {
		s.observe(metrics.SubmissionRejected)
		return domain.SubmitOutcome{}, errRateLimited
	}
	outcome, err := s.service.Submit(ctx, sub.QuizID, sub)
	if err != nil {
		s.observe(metrics.SubmissionRejected)
		return domain.SubmitOutcome{}, err
	}
	s.observe(string(outcome.Status))
	return outcome, nil
}

// Submit lets a live play session hand its result to the same path.
func (s *submissions) Submit(ctx context.Context, sub domain.Submission) error {
	_, err := s.record(ctx, sub)
	return err
}

func (s *submissions) observe(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveSubmission(outcome)
	}
}
