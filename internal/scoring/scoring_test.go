package scoring_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"quiz-miniapp/internal/domain"
	"quiz-miniapp/internal/scoring"
)

var (
	single = domain.MultipleChoice{ID: 1, Question: "What is JavaScript?", Options: []string{"lang", "markup", "style", "db"}, CorrectAnswer: 0}
	multi  = domain.MultipleChoice{ID: 2, Question: "Frameworks?", Options: []string{"React", "Vue", "Angular", "Django"}, MultiSelect: true, CorrectAnswers: []int{0, 1, 2}}
	blank  = domain.FillBlank{ID: 3, Question: "Complete", Text: "React is a [BLANK] library for [BLANK] interfaces", Options: []string{"JavaScript", "Python", "user", "library"}, CorrectAnswers: []string{"JavaScript", "user"}}
)

func TestSingleSelect(t *testing.T) {
	assert.Equal(t, scoring.Outcome{Points: 1, Correct: true}, scoring.Score(single, domain.SingleAnswer{Index: 0}))
	assert.Equal(t, scoring.Outcome{}, scoring.Score(single, domain.SingleAnswer{Index: 2}))
	assert.Equal(t, scoring.Outcome{}, scoring.Score(single, domain.SingleAnswer{Index: domain.Unanswered}))
}

func TestSingleSelectNeverMatchesUnansweredSentinel(t *testing.T) {
	q := single
	q.CorrectAnswer = domain.Unanswered
	assert.Zero(t, scoring.Score(q, domain.SingleAnswer{Index: domain.Unanswered}).Points)
}

func TestMultiSelectPartialCredit(t *testing.T) {
	cases := []struct {
		name     string
		selected []int
		points   float64
	}{
		{"one key and one wrong option cancel out", []int{0, 3}, 0},
		{"all keys", []int{0, 1, 2}, 3},
		{"two keys", []int{0, 2}, 2},
		{"over-selection balanced by keys", []int{0, 1, 2, 3}, 2},
		{"only wrong floors at zero", []int{3}, 0},
		{"nothing", nil, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := scoring.Score(multi, domain.MultiAnswer{Indices: tc.selected})
			assert.Equal(t, tc.points, out.Points)
			assert.Equal(t, tc.points > 0, out.Correct)
		})
	}
}

func TestMultiSelectMatchesSetFormula(t *testing.T) {
	keys := map[int]bool{0: true, 1: true, 2: true}
	subsets := [][]int{{}, {0}, {3}, {0, 3}, {1, 2, 3}, {0, 1, 2, 3}, {2}, {1, 3}}
	for _, s := range subsets {
		hit, miss := 0, 0
		for _, i := range s {
			if keys[i] {
				hit++
			} else {
				miss++
			}
		}
		want := float64(max(0, hit-miss))
		assert.Equal(t, want, scoring.Score(multi, domain.MultiAnswer{Indices: s}).Points, "selection %v", s)
	}
}

func TestFillBlankPerPosition(t *testing.T) {
	// One of two blanks right still counts as correct.
	out := scoring.Score(blank, domain.BlankAnswer{Values: []string{"JavaScript", "library"}})
	assert.Equal(t, 1.0, out.Points)
	assert.True(t, out.Correct)

	assert.Equal(t, 2.0, scoring.Score(blank, domain.BlankAnswer{Values: []string{"JavaScript", "user"}}).Points)
	assert.Equal(t, 0.0, scoring.Score(blank, domain.BlankAnswer{Values: []string{"", ""}}).Points)
	assert.Equal(t, 0.0, scoring.Score(blank, domain.BlankAnswer{Values: []string{"user", "JavaScript"}}).Points)
	assert.Equal(t, 1.0, scoring.Score(blank, domain.BlankAnswer{Values: []string{"JavaScript"}}).Points)
}

func TestMismatchedAnswerVariantScoresZero(t *testing.T) {
	assert.Zero(t, scoring.Score(single, domain.MultiAnswer{Indices: []int{0}}).Points)
	assert.Zero(t, scoring.Score(multi, domain.SingleAnswer{Index: 0}).Points)
	assert.Zero(t, scoring.Score(blank, nil).Points)
}

func TestPossible(t *testing.T) {
	assert.Equal(t, 1.0, scoring.Possible(single))
	assert.Equal(t, 3.0, scoring.Possible(multi))
	assert.Equal(t, 2.0, scoring.Possible(blank))
	assert.Equal(t, 6.0, scoring.PossibleTotal([]domain.Question{single, multi, blank}))
}

func TestReduceAllCorrect(t *testing.T) {
	tally, outcomes := scoring.Reduce(
		[]domain.Question{single, blank},
		[]domain.Answer{domain.SingleAnswer{Index: 0}, domain.BlankAnswer{Values: []string{"JavaScript", "user"}}},
	)
	assert.Equal(t, scoring.Tally{Earned: 3, Possible: 3, Percentage: 100}, tally)
	assert.Len(t, outcomes, 2)
}

func TestReduceMissingAnswersScoreZero(t *testing.T) {
	tally, outcomes := scoring.Reduce([]domain.Question{single, multi, blank}, []domain.Answer{domain.SingleAnswer{Index: 0}})
	assert.Equal(t, 1.0, tally.Earned)
	assert.Equal(t, 6.0, tally.Possible)
	assert.Equal(t, 17, tally.Percentage)
	assert.False(t, outcomes[2].Correct)
}

func TestPercentageRoundsAndClamps(t *testing.T) {
	assert.Equal(t, 0, scoring.Percentage(0, 0))
	assert.Equal(t, 67, scoring.Percentage(2, 3))
	assert.Equal(t, 33, scoring.Percentage(1, 3))
	assert.Equal(t, 100, scoring.Percentage(5, 3))
	assert.Equal(t, 0, scoring.Percentage(-1, 3))
}
