// Package scoring turns recorded answers into points. Every function is pure,
// so a live running total and an after-the-fact recomputation over the same
// answer log always agree.
package scoring

import (
	"math"

	"quiz-miniapp/internal/domain"
)

// Outcome is the scored result of one recorded answer.
type Outcome struct {
	Points float64 `json:"points"`
	// Correct is true iff Points > 0, so partial multi-select credit reads as correct.
	Correct bool `json:"correct"`
}

// Tally aggregates outcomes over a whole quiz.
type Tally struct {
	Earned     float64 `json:"earned"`
	Possible   float64 `json:"possible"`
	Percentage int     `json:"percentage"`
}

// Score evaluates answer a against the answer key of q.
// An answer of the wrong variant scores zero.
func Score(q domain.Question, a domain.Answer) Outcome {
	var points float64
	switch q := q.(type) {
	case domain.MultipleChoice:
		if q.MultiSelect {
			if ans, ok := a.(domain.MultiAnswer); ok {
				points = multiPoints(q, ans.Indices)
			}
		} else if ans, ok := a.(domain.SingleAnswer); ok {
			if ans.Answered() && ans.Index == q.CorrectAnswer {
				points = 1
			}
		}
	case domain.FillBlank:
		if ans, ok := a.(domain.BlankAnswer); ok {
			points = blankPoints(q, ans.Values)
		}
	}
	return Outcome{Points: points, Correct: points > 0}
}

// multiPoints is +1 per selected key, -1 per selected non-key, floored at zero.
func multiPoints(q domain.MultipleChoice, selected []int) float64 {
	sum := 0
	for _, i := range selected {
		if q.IsKey(i) {
			sum++
		} else {
			sum--
		}
	}
	if sum < 0 {
		return 0
	}
	return float64(sum)
}

func blankPoints(q domain.FillBlank, values []string) float64 {
	matched := 0
	for i, expected := range q.CorrectAnswers {
		if i >= len(values) {
			break
		}
		if values[i] != "" && values[i] == expected {
			matched++
		}
	}
	return float64(matched)
}

// Possible is the maximum points q can award.
func Possible(q domain.Question) float64 {
	switch q := q.(type) {
	case domain.MultipleChoice:
		if q.MultiSelect {
			return float64(len(q.CorrectAnswers))
		}
		return 1
	case domain.FillBlank:
		return float64(q.BlankCount())
	}
	return 0
}

// PossibleTotal sums Possible over questions.
func PossibleTotal(questions []domain.Question) float64 {
	var total float64
	for _, q := range questions {
		total += Possible(q)
	}
	return total
}

// Percentage is round(100*earned/possible) clamped to [0,100]; zero when nothing is possible.
func Percentage(earned, possible float64) int {
	if possible <= 0 {
		return 0
	}
	pct := int(math.Round(100 * earned / possible))
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// Reduce scores an answer log index-aligned with questions.
// Questions without a recorded answer score zero.
func Reduce(questions []domain.Question, answers []domain.Answer) (Tally, []Outcome) {
	outcomes := make([]Outcome, len(questions))
	var earned float64
	for i, q := range questions {
		var a domain.Answer
		if i < len(answers) {
			a = answers[i]
		}
		outcomes[i] = Score(q, a)
		earned += outcomes[i].Points
	}
	possible := PossibleTotal(questions)
	return Tally{
		Earned:     earned,
		Possible:   possible,
		Percentage: Percentage(earned, possible),
	}, outcomes
}
