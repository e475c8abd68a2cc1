package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"quiz-miniapp/internal/domain"
)

// ErrClosed is returned when sending to a runner that has stopped.
var ErrClosed = errors.New("session runner closed")

// Submitter receives the finished session. Implementations may be remote.
type Submitter interface {
	Submit(ctx context.Context, sub domain.Submission) error
}

// Event is a user interaction delivered to a Runner.
type Event interface {
	apply(c *Controller) error
}

// Select picks a single-select option.
type Select struct{ Index int }

// Toggle flips a multi-select option.
type Toggle struct{ Index int }

// Place drops option Text into Blank.
type Place struct {
	Blank int
	Text  string
}

// Clear empties Blank.
type Clear struct{ Blank int }

// Next is the manual advance for the question identified by Turn.
type Next struct{ Turn uint64 }

func (e Select) apply(c *Controller) error { return c.SelectSingle(e.Index) }
func (e Toggle) apply(c *Controller) error { return c.ToggleMulti(e.Index) }
func (e Place) apply(c *Controller) error { return c.PlaceInBlank(e.Blank, e.Text) }
func (e Clear) apply(c *Controller) error { return c.ClearBlank(e.Blank) }

func (e Next) apply(c *Controller) error {
	_, err := c.Advance(e.Turn)
	return err
}

// Wakeup schedules a one-shot wake-up after d. The returned stop function
// cancels it if it has not fired.
type Wakeup func(d time.Duration) (<-chan time.Time, func() bool)

func timerWakeup(d time.Duration) (<-chan time.Time, func() bool) {
	t := time.NewTimer(d)
	return t.C, t.Stop
}

// Runner owns a Controller on a single goroutine. It serializes user events and
// countdown wake-ups, so no two transitions can race.
type Runner struct {
	ctrl    *Controller
	events  chan Event
	updates chan Snapshot
	done    chan struct{}

	interval      time.Duration
	wakeup        Wakeup
	submitter     Submitter
	userID        int64
	submitTimeout time.Duration
	logger        *zap.Logger

	submissions sync.WaitGroup
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSubmitter hands the finished session of userID to s.
func WithSubmitter(s Submitter, userID int64) RunnerOption {
	return func(r *Runner) {
		r.submitter = s
		r.userID = userID
	}
}

// WithInterval sets the length of one countdown second. Tests shorten it.
func WithInterval(d time.Duration) RunnerOption {
	return func(r *Runner) { r.interval = d }
}

// WithWakeup replaces the wake-up scheduler.
func WithWakeup(w Wakeup) RunnerOption {
	return func(r *Runner) { r.wakeup = w }
}

func WithSubmitTimeout(d time.Duration) RunnerOption {
	return func(r *Runner) { r.submitTimeout = d }
}

func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// NewRunner wraps a loaded controller.
func NewRunner(ctrl *Controller, opts ...RunnerOption) *Runner {
	r := &Runner{
		ctrl:          ctrl,
		events:        make(chan Event),
		updates:       make(chan Snapshot, 1),
		done:          make(chan struct{}),
		interval:      time.Second,
		wakeup:        timerWakeup,
		submitTimeout: 10 * time.Second,
		logger:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	ctrl.OnFinish(r.submit)
	return r
}

// Send delivers ev to the runner goroutine.
func (r *Runner) Send(ctx context.Context, ev Event) error {
	select {
	case r.events <- ev:
		return nil
	case <-r.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Updates yields snapshots after every change. Only the latest unread
// snapshot is kept. The channel is closed when Run returns.
func (r *Runner) Updates() <-chan Snapshot { return r.updates }

// Done is closed when Run returns.
func (r *Runner) Done() <-chan struct{} { return r.done }

// Wait blocks until any in-flight submission has completed.
func (r *Runner) Wait() { r.submissions.Wait() }

// Run drives the session until it finishes or ctx is canceled. Cancellation
// drops the pending wake-up so nothing mutates the session afterwards.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.updates)
	defer close(r.done)

	if r.ctrl.Phase() != InProgress {
		return ErrNotInProgress
	}

	turn := r.ctrl.Turn()
	wake, stop := r.wakeup(r.interval)
	r.publish(r.ctrl.Snapshot())

	for {
		var evErr error
		select {
		case <-ctx.Done():
			stop()
			return ctx.Err()
		case <-wake:
			wake = nil
			r.ctrl.Tick()
		case ev := <-r.events:
			evErr = ev.apply(r.ctrl)
		}

		snap := r.ctrl.Snapshot()
		if evErr != nil {
			snap.Error = evErr.Error()
		}
		if r.ctrl.Phase() == Finished {
			stop()
			r.publish(snap)
			return nil
		}
		// A new question gets a fresh wake-up; the old one must not fire into it.
		if wake == nil || r.ctrl.Turn() != turn {
			stop()
			turn = r.ctrl.Turn()
			wake, stop = r.wakeup(r.interval)
		}
		r.publish(snap)
	}
}

func (r *Runner) publish(s Snapshot) {
	select {
	case r.updates <- s:
		return
	default:
	}
	select {
	case <-r.updates:
	default:
	}
	select {
	case r.updates <- s:
	default:
	}
}

func (r *Runner) submit(res Result) {
	if r.submitter == nil {
		return
	}
	sub, err := domain.NewSubmission(r.userID, res.QuizID, res.Percentage, res.Answers)
	if err != nil {
		r.logger.Warn("encode submission", zap.Error(err))
		return
	}
	sub.Layout = res.Layout
	r.submissions.Add(1)
	go func() {
		defer r.submissions.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.submitTimeout)
		defer cancel()
		if err := r.submitter.Submit(ctx, sub); err != nil {
			r.logger.Warn("submit quiz result",
				zap.Int64("quiz_id", sub.QuizID),
				zap.Int64("user_id", sub.UserID),
				zap.Error(err))
			return
		}
		r.logger.Info("quiz result submitted",
			zap.Int64("quiz_id", sub.QuizID),
			zap.Int64("user_id", sub.UserID),
			zap.Int("score", sub.Score))
	}()
}
