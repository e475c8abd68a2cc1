package session

// DefaultBudget is the per-question countdown, in seconds.
const DefaultBudget = 30

// TimerState is Running or Expired.
type TimerState int

const (
	TimerRunning TimerState = iota
	TimerExpired
)

func (s TimerState) String() string {
	if s == TimerExpired {
		return "expired"
	}
	return "running"
}

// Timer counts down whole seconds for a single question. It has no clock of
// its own: the owner calls Tick once per elapsed second.
type Timer struct {
	budget    int
	remaining int
}

// NewTimer returns a running timer; a non-positive budget falls back to DefaultBudget.
func NewTimer(budget int) *Timer {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Timer{budget: budget, remaining: budget}
}

// Reset restarts the countdown from the full budget.
func (t *Timer) Reset() {
	t.remaining = t.budget
}

// Tick consumes one second and reports whether this tick expired the timer.
// Ticks after expiry are ignored and never report expiry again.
func (t *Timer) Tick() bool {
	if t.remaining == 0 {
		return false
	}
	t.remaining--
	return t.remaining == 0
}

func (t *Timer) Remaining() int { return t.remaining }

func (t *Timer) Budget() int { return t.budget }

func (t *Timer) State() TimerState {
	if t.remaining == 0 {
		return TimerExpired
	}
	return TimerRunning
}
