// Package report renders a finished session for review. It classifies what was
// presented against the answer keys and takes points from the session result;
// nothing is rescored here.
package report

import (
	"fmt"
	"io"
	"strings"

	"quiz-miniapp/internal/domain"
	"quiz-miniapp/internal/scoring"
	"quiz-miniapp/internal/session"
)

// Mark is the visual classification of one option or blank.
type Mark int

const (
	Neutral Mark = iota
	CorrectSelected
	CorrectMissed
	IncorrectSelected
)

func (m Mark) String() string {
	switch m {
	case CorrectSelected:
		return "correct"
	case CorrectMissed:
		return "missed"
	case IncorrectSelected:
		return "incorrect"
	default:
		return "neutral"
	}
}

func (m Mark) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Band is the headline grade shown with the percentage.
type Band string

const (
	BandGood Band = "good"
	BandFair Band = "fair"
	BandPoor Band = "poor"
)

// BandFor grades a percentage: good from 70, fair from 50.
func BandFor(percentage int) Band {
	switch {
	case percentage >= 70:
		return BandGood
	case percentage >= 50:
		return BandFair
	default:
		return BandPoor
	}
}

type OptionReview struct {
	Text string `json:"text"`
	Mark Mark   `json:"mark"`
}

type BlankReview struct {
	Placed   string `json:"placed"`
	Expected string `json:"expected"`
	Mark     Mark   `json:"mark"`
}

// QuestionReview is one row of the breakdown.
type QuestionReview struct {
	ID       int                 `json:"id"`
	Kind     domain.QuestionKind `json:"type"`
	Prompt   string              `json:"question"`
	Points   float64             `json:"points"`
	Possible float64             `json:"possible"`
	Correct  bool                `json:"correct"`
	Answered bool                `json:"answered"`

	Options  []OptionReview `json:"options,omitempty"`
	Segments []string       `json:"segments,omitempty"`
	Blanks   []BlankReview  `json:"blanks,omitempty"`
}

// Report is the full results screen.
type Report struct {
	QuizID     int64            `json:"quizId"`
	Percentage int              `json:"percentage"`
	Band       Band             `json:"band"`
	Earned     float64          `json:"earned"`
	Possible   float64          `json:"possible"`
	Questions  []QuestionReview `json:"questions"`
}

// Build pairs each question with its recorded answer and outcome.
func Build(questions []domain.Question, res session.Result) Report {
	rep := Report{
		QuizID:     res.QuizID,
		Percentage: res.Percentage,
		Band:       BandFor(res.Percentage),
		Earned:     res.Earned,
		Possible:   res.Possible,
		Questions:  make([]QuestionReview, 0, len(questions)),
	}
	for i, q := range questions {
		var a domain.Answer
		if i < len(res.Answers) {
			a = res.Answers[i]
		}
		if a == nil {
			a = domain.EmptyAnswer(q)
		}
		review := QuestionReview{
			ID:     q.QuestionID(),
			Kind:   q.Kind(),
			Prompt: q.Prompt(),
		}
		if i < len(res.Outcomes) {
			review.Points = res.Outcomes[i].Points
			review.Correct = res.Outcomes[i].Correct
		}
		review.Possible = scoring.Possible(q)
		switch q := q.(type) {
		case domain.MultipleChoice:
			review.Options, review.Answered = reviewOptions(q, a)
		case domain.FillBlank:
			review.Segments = q.Segments()
			review.Blanks, review.Answered = reviewBlanks(q, a)
		}
		rep.Questions = append(rep.Questions, review)
	}
	return rep
}

func reviewOptions(q domain.MultipleChoice, a domain.Answer) ([]OptionReview, bool) {
	selected := make(map[int]bool)
	switch a := a.(type) {
	case domain.SingleAnswer:
		if a.Answered() {
			selected[a.Index] = true
		}
	case domain.MultiAnswer:
		for _, i := range a.Indices {
			selected[i] = true
		}
	}
	out := make([]OptionReview, len(q.Options))
	for i, text := range q.Options {
		out[i] = OptionReview{Text: text, Mark: classify(q.IsKey(i), selected[i])}
	}
	return out, len(selected) > 0
}

func classify(key, selected bool) Mark {
	switch {
	case key && selected:
		return CorrectSelected
	case key:
		return CorrectMissed
	case selected:
		return IncorrectSelected
	default:
		return Neutral
	}
}

func reviewBlanks(q domain.FillBlank, a domain.Answer) ([]BlankReview, bool) {
	var values []string
	if b, ok := a.(domain.BlankAnswer); ok {
		values = b.Values
	}
	answered := false
	out := make([]BlankReview, q.BlankCount())
	for i := range out {
		var placed, expected string
		if i < len(values) {
			placed = values[i]
		}
		if i < len(q.CorrectAnswers) {
			expected = q.CorrectAnswers[i]
		}
		mark := CorrectMissed
		if placed != "" {
			answered = true
			mark = IncorrectSelected
			if placed == expected {
				mark = CorrectSelected
			}
		}
		out[i] = BlankReview{Placed: placed, Expected: expected, Mark: mark}
	}
	return out, answered
}

var symbols = map[Mark]string{
	Neutral:           " ",
	CorrectSelected:   "+",
	CorrectMissed:     "o",
	IncorrectSelected: "x",
}

// Render writes a plain-text breakdown of rep to w.
func Render(w io.Writer, rep Report) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Score: %d%% (%s), %s of %s points\n\n",
		rep.Percentage, rep.Band, formatPoints(rep.Earned), formatPoints(rep.Possible))

	for i, q := range rep.Questions {
		status := "wrong"
		switch {
		case !q.Answered:
			status = "not answered"
		case q.Correct:
			status = "correct"
		}
		fmt.Fprintf(&b, "%d. %s [%s, %s/%s]\n", i+1, q.Prompt, status,
			formatPoints(q.Points), formatPoints(q.Possible))

		for _, o := range q.Options {
			fmt.Fprintf(&b, "   [%s] %s\n", symbols[o.Mark], o.Text)
		}
		if len(q.Blanks) > 0 {
			b.WriteString("   ")
			for j, seg := range q.Segments {
				b.WriteString(seg)
				if j < len(q.Blanks) {
					b.WriteString(renderBlank(q.Blanks[j]))
				}
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func renderBlank(bl BlankReview) string {
	switch bl.Mark {
	case CorrectSelected:
		return "[" + bl.Placed + " +]"
	case IncorrectSelected:
		return "[" + bl.Placed + " x " + bl.Expected + "]"
	default:
		return "[___ " + bl.Expected + "]"
	}
}

func formatPoints(p float64) string {
	if p == float64(int64(p)) {
		return fmt.Sprintf("%d", int64(p))
	}
	return fmt.Sprintf("%.1f", p)
}
