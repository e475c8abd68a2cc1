package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quiz-miniapp/internal/domain"
)

// manualWakeup hands out wake-up channels that fire only when the test says so.
type manualWakeup struct {
	mu      sync.Mutex
	current chan time.Time
	armed   int
	stopped int
}

func (m *manualWakeup) schedule(time.Duration) (<-chan time.Time, func() bool) {
	ch := make(chan time.Time, 1)
	m.mu.Lock()
	m.current = ch
	m.armed++
	m.mu.Unlock()
	return ch, func() bool {
		m.mu.Lock()
		m.stopped++
		m.mu.Unlock()
		return true
	}
}

func (m *manualWakeup) fire() {
	m.mu.Lock()
	ch := m.current
	m.mu.Unlock()
	ch <- time.Now()
}

type recordingSubmitter struct {
	mu   sync.Mutex
	subs []domain.Submission
	err  error
}

func (s *recordingSubmitter) Submit(_ context.Context, sub domain.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, sub)
	return s.err
}

func next(t *testing.T, r *Runner) Snapshot {
	t.Helper()
	select {
	case snap, ok := <-r.Updates():
		require.True(t, ok, "updates closed")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatalf("no snapshot")
	}
	return Snapshot{}
}

func startRunner(t *testing.T, budget int, opts ...RunnerOption) (*Runner, *manualWakeup, context.CancelFunc, chan error) {
	t.Helper()
	wake := &manualWakeup{}
	c := NewController(budget)
	require.NoError(t, c.Load(sampleQuiz()))
	r := NewRunner(c, append([]RunnerOption{WithWakeup(wake.schedule)}, opts...)...)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- r.Run(ctx) }()
	return r, wake, cancel, errc
}

func TestRunnerPlaysToCompletionAndSubmits(t *testing.T) {
	sub := &recordingSubmitter{}
	r, wake, cancel, errc := startRunner(t, 2, WithSubmitter(sub, 42))
	defer cancel()
	ctx := context.Background()

	snap := next(t, r)
	assert.Equal(t, 2, snap.Remaining)

	require.NoError(t, r.Send(ctx, Select{Index: 0}))
	snap = next(t, r)
	require.True(t, snap.CanAdvance)
	require.NoError(t, r.Send(ctx, Next{Turn: snap.Turn}))
	snap = next(t, r)
	assert.Equal(t, 1, snap.Index)

	// Let the multi-select question time out.
	wake.fire()
	snap = next(t, r)
	assert.Equal(t, 1, snap.Remaining)
	wake.fire()
	snap = next(t, r)
	assert.Equal(t, 2, snap.Index)
	assert.Equal(t, 2, snap.Remaining)

	require.NoError(t, r.Send(ctx, Place{Blank: 0, Text: "JavaScript"}))
	next(t, r)
	require.NoError(t, r.Send(ctx, Place{Blank: 1, Text: "user"}))
	snap = next(t, r)
	require.NoError(t, r.Send(ctx, Next{Turn: snap.Turn}))
	snap = next(t, r)

	require.Equal(t, Finished, snap.Phase)
	require.NotNil(t, snap.Result)
	assert.Equal(t, 50, snap.Result.Percentage)
	require.NoError(t, <-errc)

	r.Wait()
	require.Len(t, sub.subs, 1)
	assert.Equal(t, int64(42), sub.subs[0].UserID)
	assert.Equal(t, int64(1), sub.subs[0].QuizID)
	assert.Equal(t, 50, sub.subs[0].Score)
	assert.JSONEq(t, `[0, [], ["JavaScript", "user"]]`, string(sub.subs[0].Answers))

	assert.ErrorIs(t, r.Send(ctx, Select{Index: 0}), ErrClosed)
}

func TestRunnerManualAdvanceReschedulesWakeup(t *testing.T) {
	r, wake, cancel, _ := startRunner(t, 30)
	defer cancel()
	ctx := context.Background()

	snap := next(t, r)
	require.NoError(t, r.Send(ctx, Select{Index: 1}))
	next(t, r)
	require.NoError(t, r.Send(ctx, Next{Turn: snap.Turn}))
	next(t, r)

	wake.mu.Lock()
	defer wake.mu.Unlock()
	assert.Equal(t, 2, wake.armed)
	assert.Equal(t, 1, wake.stopped)
}

func TestRunnerReportsRejectedEvents(t *testing.T) {
	r, _, cancel, _ := startRunner(t, 30)
	defer cancel()
	snap := next(t, r)

	require.NoError(t, r.Send(context.Background(), Next{Turn: snap.Turn}))
	snap = next(t, r)
	assert.Equal(t, ErrIncomplete.Error(), snap.Error)
	assert.Equal(t, 0, snap.Index)

	require.NoError(t, r.Send(context.Background(), Toggle{Index: 1}))
	snap = next(t, r)
	assert.Equal(t, ErrWrongKind.Error(), snap.Error)
}

func TestRunnerCancelStopsWakeups(t *testing.T) {
	sub := &recordingSubmitter{}
	r, wake, cancel, errc := startRunner(t, 30, WithSubmitter(sub, 1))
	next(t, r)
	cancel()

	err := <-errc
	assert.True(t, errors.Is(err, context.Canceled))
	wake.mu.Lock()
	assert.Equal(t, 1, wake.stopped)
	wake.mu.Unlock()

	_, ok := <-r.Updates()
	assert.False(t, ok)
	r.Wait()
	assert.Empty(t, sub.subs)
}

func TestRunnerSubmissionFailureIsSwallowed(t *testing.T) {
	sub := &recordingSubmitter{err: errors.New("backend down")}
	wake := &manualWakeup{}
	c := NewController(1)
	require.NoError(t, c.Load(sampleQuiz()))
	r := NewRunner(c, WithWakeup(wake.schedule), WithSubmitter(sub, 5))

	errc := make(chan error, 1)
	go func() { errc <- r.Run(context.Background()) }()
	next(t, r)
	for i := 0; i < 3; i++ {
		wake.fire()
		next(t, r)
	}
	require.NoError(t, <-errc)
	r.Wait()

	res, ok := c.Result()
	require.True(t, ok)
	assert.Equal(t, 0, res.Percentage)
	assert.Len(t, sub.subs, 1)
}

func TestRunnerRequiresLoadedController(t *testing.T) {
	r := NewRunner(NewController(5))
	assert.ErrorIs(t, r.Run(context.Background()), ErrNotInProgress)
}

func TestRunnerSubmitsWithAttemptLayout(t *testing.T) {
	sub := &recordingSubmitter{}
	wake := &manualWakeup{}
	c := NewController(1)
	quiz := sampleQuiz()
	quiz.Layout = "k3"
	require.NoError(t, c.Load(quiz))
	r := NewRunner(c, WithWakeup(wake.schedule), WithSubmitter(sub, 5))

	errc := make(chan error, 1)
	go func() { errc <- r.Run(context.Background()) }()
	next(t, r)
	for i := 0; i < 3; i++ {
		wake.fire()
		next(t, r)
	}
	require.NoError(t, <-errc)
	r.Wait()

	require.Len(t, sub.subs, 1)
	assert.Equal(t, "k3", sub.subs[0].Layout)
}
