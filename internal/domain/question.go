package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// QuestionKind is the wire tag that selects a question variant.
type QuestionKind string

const (
	KindMultipleChoice QuestionKind = "multiple-choice"
	KindFillBlank      QuestionKind = "drag-drop"
)

// BlankMarker marks one fill-in position inside a FillBlank template.
const BlankMarker = "[BLANK]"

// Question is a closed sum type: every value is a MultipleChoice or a FillBlank.
type Question interface {
	Kind() QuestionKind
	QuestionID() int
	Prompt() string
	// Validate reports answer-key inconsistencies. Scoring never calls it.
	Validate() error
	isQuestion()
}

// MultipleChoice is a single-select or multi-select question over indexed options.
type MultipleChoice struct {
	ID          int      `json:"id"`
	Question    string   `json:"question"`
	Options     []string `json:"options"`
	MultiSelect bool     `json:"multiSelect"`
	// CorrectAnswer is the answer key of a single-select question.
	CorrectAnswer int `json:"correctAnswer"`
	// CorrectAnswers is the answer key of a multi-select question.
	CorrectAnswers []int `json:"correctAnswers,omitempty"`
}

func (MultipleChoice) Kind() QuestionKind { return KindMultipleChoice }
func (q MultipleChoice) QuestionID() int { return q.ID }
func (q MultipleChoice) Prompt() string { return q.Question }
func (MultipleChoice) isQuestion() {}

// IsKey reports whether option index i belongs to the answer key.
func (q MultipleChoice) IsKey(i int) bool {
	if !q.MultiSelect {
		return q.CorrectAnswer == i
	}
	for _, k := range q.CorrectAnswers {
		if k == i {
			return true
		}
	}
	return false
}

func (q MultipleChoice) Validate() error {
	if len(q.Options) == 0 {
		return fmt.Errorf("%w: question %d has no options", ErrInvalidQuestion, q.ID)
	}
	if !q.MultiSelect {
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return fmt.Errorf("%w: question %d answer key %d out of range", ErrInvalidQuestion, q.ID, q.CorrectAnswer)
		}
		return nil
	}
	if len(q.CorrectAnswers) == 0 {
		return fmt.Errorf("%w: question %d has an empty answer key", ErrInvalidQuestion, q.ID)
	}
	seen := make(map[int]struct{}, len(q.CorrectAnswers))
	for _, k := range q.CorrectAnswers {
		if k < 0 || k >= len(q.Options) {
			return fmt.Errorf("%w: question %d answer key %d out of range", ErrInvalidQuestion, q.ID, k)
		}
		if _, dup := seen[k]; dup {
			return fmt.Errorf("%w: question %d repeats answer key %d", ErrInvalidQuestion, q.ID, k)
		}
		seen[k] = struct{}{}
	}
	return nil
}

func (q MultipleChoice) MarshalJSON() ([]byte, error) {
	out := struct {
		Type           QuestionKind `json:"type"`
		ID             int          `json:"id"`
		Question       string       `json:"question"`
		Options        []string     `json:"options"`
		MultiSelect    bool         `json:"multiSelect"`
		CorrectAnswer  *int         `json:"correctAnswer,omitempty"`
		CorrectAnswers []int        `json:"correctAnswers,omitempty"`
	}{
		Type:        KindMultipleChoice,
		ID:          q.ID,
		Question:    q.Question,
		Options:     nonNil(q.Options),
		MultiSelect: q.MultiSelect,
	}
	if q.MultiSelect {
		out.CorrectAnswers = q.CorrectAnswers
	} else {
		key := q.CorrectAnswer
		out.CorrectAnswer = &key
	}
	return json.Marshal(out)
}

// FillBlank is a drag-drop question: options are dragged into the blanks of Text.
type FillBlank struct {
	ID       int    `json:"id"`
	Question string `json:"question"`
	// Text holds the sentence with one BlankMarker per blank.
	Text           string   `json:"text"`
	Options        []string `json:"options"`
	CorrectAnswers []string `json:"correctAnswers"`
}

func (FillBlank) Kind() QuestionKind { return KindFillBlank }
func (q FillBlank) QuestionID() int { return q.ID }
func (q FillBlank) Prompt() string { return q.Question }
func (FillBlank) isQuestion() {}

// BlankCount is the number of blanks in the template.
func (q FillBlank) BlankCount() int {
	return strings.Count(q.Text, BlankMarker)
}

// Segments splits the template around its blanks; len(Segments()) == BlankCount()+1.
func (q FillBlank) Segments() []string {
	return strings.Split(q.Text, BlankMarker)
}

func (q FillBlank) Validate() error {
	blanks := q.BlankCount()
	if blanks == 0 {
		return fmt.Errorf("%w: question %d has no blanks", ErrInvalidQuestion, q.ID)
	}
	if len(q.CorrectAnswers) != blanks {
		return fmt.Errorf("%w: question %d has %d blanks but %d answers", ErrInvalidQuestion, q.ID, blanks, len(q.CorrectAnswers))
	}
	options := make(map[string]struct{}, len(q.Options))
	for _, o := range q.Options {
		options[o] = struct{}{}
	}
	for _, a := range q.CorrectAnswers {
		if _, ok := options[a]; !ok {
			return fmt.Errorf("%w: question %d answer %q is not an option", ErrInvalidQuestion, q.ID, a)
		}
	}
	return nil
}

func (q FillBlank) MarshalJSON() ([]byte, error) {
	type plain FillBlank
	p := plain(q)
	p.Options = nonNil(p.Options)
	p.CorrectAnswers = nonNil(p.CorrectAnswers)
	return json.Marshal(struct {
		Type QuestionKind `json:"type"`
		plain
		Blanks int `json:"blanks"`
	}{KindFillBlank, p, q.BlankCount()})
}

// Questions is an ordered question list; order is presentation and scoring order.
type Questions []Question

func (qs Questions) MarshalJSON() ([]byte, error) {
	if qs == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Question(qs))
}

func (qs *Questions) UnmarshalJSON(data []byte) error {
	var raws []json.RawMessage
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Questions, 0, len(raws))
	for i, raw := range raws {
		q, err := DecodeQuestion(raw)
		if err != nil {
			return fmt.Errorf("question %d: %w", i, err)
		}
		out = append(out, q)
	}
	*qs = out
	return nil
}

// DecodeQuestion dispatches on the "type" tag of a JSON question.
func DecodeQuestion(raw json.RawMessage) (Question, error) {
	var head struct {
		Type QuestionKind `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	switch head.Type {
	case KindMultipleChoice:
		var q MultipleChoice
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, err
		}
		return q, nil
	case KindFillBlank:
		var q FillBlank
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, err
		}
		return q, nil
	default:
		return nil, fmt.Errorf("%w: unknown question type %q", ErrInvalidQuestion, head.Type)
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
