// Package session runs one quiz attempt: the per-question countdown, the
// interaction state of the current question, and the transitions that freeze
// it into a scored, append-only answer log.
package session

import (
	"errors"

	"quiz-miniapp/internal/domain"
	"quiz-miniapp/internal/scoring"
)

var (
	// ErrNotInProgress is returned for interactions outside the InProgress phase.
	ErrNotInProgress = errors.New("session is not in progress")
	// ErrWrongKind is returned when an interaction does not fit the current question.
	ErrWrongKind = errors.New("interaction does not match question type")
	// ErrIncomplete is returned when advancing before the current answer is complete.
	ErrIncomplete = errors.New("answer is incomplete")
	// ErrBlankOutOfRange is returned for a blank position the question does not have.
	ErrBlankOutOfRange = errors.New("blank position out of range")
	// ErrUnknownOption is returned when placing text that is not one of the options.
	ErrUnknownOption = errors.New("unknown option")
)

// Phase is the controller lifecycle: Loading → InProgress → Finished.
type Phase int

const (
	Loading Phase = iota
	InProgress
	Finished
)

func (p Phase) String() string {
	switch p {
	case InProgress:
		return "in_progress"
	case Finished:
		return "finished"
	default:
		return "loading"
	}
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Result is the final outcome handed to the reporter and the submission collaborator.
type Result struct {
	QuizID     int64             `json:"quizId"`
	Percentage int               `json:"percentage"`
	Earned     float64           `json:"earned"`
	Possible   float64           `json:"possible"`
	Answers    []domain.Answer   `json:"answers"`
	Outcomes   []scoring.Outcome `json:"outcomes"`
	Layout     string            `json:"-"`
}

// Controller is the session state machine. It is not safe for concurrent use:
// exactly one goroutine (normally a Runner) owns it.
type Controller struct {
	phase    Phase
	quiz     domain.Quiz
	index    int
	turn     uint64
	timer    *Timer
	state    Interaction
	score    float64
	answers  []domain.Answer
	outcomes []scoring.Outcome
	result   *Result
	err      error
	onFinish []func(Result)
}

// NewController returns a controller in the Loading phase with the given
// per-question budget in seconds.
func NewController(budget int) *Controller {
	return &Controller{timer: NewTimer(budget)}
}

// OnFinish registers fn to receive the result. Hooks run once, on the transition into Finished.
func (c *Controller) OnFinish(fn func(Result)) {
	c.onFinish = append(c.onFinish, fn)
}

// Load starts the attempt at the first question. A quiz without questions
// leaves the controller in Loading.
func (c *Controller) Load(quiz domain.Quiz) error {
	if c.phase != Loading {
		return ErrNotInProgress
	}
	if len(quiz.Questions) == 0 {
		c.err = domain.ErrEmptyQuiz
		return domain.ErrEmptyQuiz
	}
	c.quiz = quiz
	c.err = nil
	c.phase = InProgress
	c.index = 0
	c.turn = 1
	c.timer.Reset()
	c.state = NewInteraction(quiz.Questions[0])
	c.answers = make([]domain.Answer, 0, len(quiz.Questions))
	c.outcomes = make([]scoring.Outcome, 0, len(quiz.Questions))
	return nil
}

// Fail records a load failure. The controller stays in Loading.
func (c *Controller) Fail(err error) {
	if c.phase == Loading {
		c.err = err
	}
}

// Err is the last load failure, if any.
func (c *Controller) Err() error { return c.err }

func (c *Controller) Phase() Phase { return c.phase }

func (c *Controller) Quiz() domain.Quiz { return c.quiz }

// Index is the 0-based current question index; len(questions) once finished.
func (c *Controller) Index() int { return c.index }

// Turn identifies the current question transition. Advances carrying an old
// turn are ignored.
func (c *Controller) Turn() uint64 { return c.turn }

func (c *Controller) Remaining() int { return c.timer.Remaining() }

// Score is the running total of earned points.
func (c *Controller) Score() float64 { return c.score }

// Current is the question being answered, nil outside InProgress.
func (c *Controller) Current() domain.Question {
	if c.phase != InProgress {
		return nil
	}
	return c.quiz.Questions[c.index]
}

// Interaction is the current question's answer state, nil outside InProgress.
func (c *Controller) Interaction() Interaction { return c.state }

// Answers returns a copy of the recorded answer log.
func (c *Controller) Answers() []domain.Answer {
	return append([]domain.Answer(nil), c.answers...)
}

// Result is available once the controller is Finished.
func (c *Controller) Result() (Result, bool) {
	if c.result == nil {
		return Result{}, false
	}
	return *c.result, true
}

func (c *Controller) SelectSingle(i int) error {
	s, err := interactionAs[*SingleChoice](c)
	if err != nil {
		return err
	}
	s.Select(i)
	return nil
}

func (c *Controller) ToggleMulti(i int) error {
	m, err := interactionAs[*MultiChoice](c)
	if err != nil {
		return err
	}
	m.Toggle(i)
	return nil
}

func (c *Controller) PlaceInBlank(pos int, text string) error {
	b, err := interactionAs[*Blanks](c)
	if err != nil {
		return err
	}
	return b.Place(pos, text)
}

func (c *Controller) ClearBlank(pos int) error {
	b, err := interactionAs[*Blanks](c)
	if err != nil {
		return err
	}
	return b.Clear(pos)
}

// CanAdvance reports whether a manual advance would be accepted now.
func (c *Controller) CanAdvance() bool {
	return c.phase == InProgress && c.state.Complete()
}

// Advance is the manual "next" action for the question identified by turn.
// It reports whether a transition happened; a stale or repeated turn is a no-op.
func (c *Controller) Advance(turn uint64) (bool, error) {
	if c.phase != InProgress || turn != c.turn {
		return false, nil
	}
	if !c.state.Complete() {
		return false, ErrIncomplete
	}
	c.transition()
	return true, nil
}

// Tick consumes one second of the current question's budget. On expiry the
// current state, complete or not, is recorded and the session advances.
// It reports whether a transition happened.
func (c *Controller) Tick() bool {
	if c.phase != InProgress {
		return false
	}
	if !c.timer.Tick() {
		return false
	}
	c.transition()
	return true
}

func (c *Controller) transition() {
	q := c.quiz.Questions[c.index]
	answer := c.state.Freeze()
	outcome := scoring.Score(q, answer)

	c.score += outcome.Points
	c.answers = append(c.answers, answer)
	c.outcomes = append(c.outcomes, outcome)
	c.index++
	c.turn++

	if c.index >= len(c.quiz.Questions) {
		c.finish()
		return
	}
	c.timer.Reset()
	c.state = NewInteraction(c.quiz.Questions[c.index])
}

func (c *Controller) finish() {
	c.phase = Finished
	c.state = nil
	possible := scoring.PossibleTotal(c.quiz.Questions)
	c.result = &Result{
		QuizID:     c.quiz.ID,
		Percentage: scoring.Percentage(c.score, possible),
		Earned:     c.score,
		Possible:   possible,
		Answers:    c.Answers(),
		Outcomes:   append([]scoring.Outcome(nil), c.outcomes...),
		Layout:     c.quiz.Layout,
	}
	for _, fn := range c.onFinish {
		fn(*c.result)
	}
}

func interactionAs[T Interaction](c *Controller) (T, error) {
	var zero T
	if c.phase != InProgress {
		return zero, ErrNotInProgress
	}
	s, ok := c.state.(T)
	if !ok {
		return zero, ErrWrongKind
	}
	return s, nil
}

// Snapshot is a read-only view of the controller for renderers.
type Snapshot struct {
	Phase           Phase           `json:"phase"`
	QuizID          int64           `json:"quizId"`
	Index           int             `json:"index"`
	Total           int             `json:"total"`
	Turn            uint64          `json:"turn"`
	Remaining       int             `json:"remaining"`
	Budget          int             `json:"budget"`
	Question        domain.Question `json:"question,omitempty"`
	Selected        *int            `json:"selected,omitempty"`
	SelectedIndices []int           `json:"selectedIndices,omitempty"`
	Blanks          []string        `json:"blanks,omitempty"`
	Available       []string        `json:"available,omitempty"`
	CanAdvance      bool            `json:"canAdvance"`
	Score           float64         `json:"score"`
	Result          *Result         `json:"result,omitempty"`
	Error           string          `json:"error,omitempty"`
}

func (c *Controller) Snapshot() Snapshot {
	snap := Snapshot{
		Phase:     c.phase,
		QuizID:    c.quiz.ID,
		Index:     c.index,
		Total:     len(c.quiz.Questions),
		Turn:      c.turn,
		Remaining: c.timer.Remaining(),
		Budget:    c.timer.Budget(),
		Score:     c.score,
	}
	if c.err != nil {
		snap.Error = c.err.Error()
	}
	switch c.phase {
	case InProgress:
		snap.Question = c.Current()
		snap.CanAdvance = c.CanAdvance()
		switch s := c.state.(type) {
		case *SingleChoice:
			if i, ok := s.Selected(); ok {
				snap.Selected = &i
			}
		case *MultiChoice:
			snap.SelectedIndices = s.Selected()
		case *Blanks:
			snap.Blanks = s.Values()
			snap.Available = s.Available()
		}
	case Finished:
		res := *c.result
		snap.Result = &res
	}
	return snap
}
