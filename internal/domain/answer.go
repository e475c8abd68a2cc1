package domain

import (
	"encoding/json"
	"fmt"
)

// Unanswered is the recorded index of a single-select question left without a selection.
const Unanswered = -1

// Answer is the frozen snapshot of one question's interaction state.
// It is a closed sum type: SingleAnswer, MultiAnswer or BlankAnswer.
type Answer interface {
	isAnswer()
}

// SingleAnswer records a single-select choice, or Unanswered.
type SingleAnswer struct {
	Index int
}

// MultiAnswer records the selected indices of a multi-select question, ascending.
type MultiAnswer struct {
	Indices []int
}

// BlankAnswer records the value placed in each blank; "" means unset.
type BlankAnswer struct {
	Values []string
}

func (SingleAnswer) isAnswer() {}
func (MultiAnswer) isAnswer() {}
func (BlankAnswer) isAnswer() {}

// Answered reports whether a selection was made.
func (a SingleAnswer) Answered() bool { return a.Index != Unanswered }

func (a SingleAnswer) MarshalJSON() ([]byte, error) { return json.Marshal(a.Index) }
func (a MultiAnswer) MarshalJSON() ([]byte, error) { return json.Marshal(nonNil(a.Indices)) }
func (a BlankAnswer) MarshalJSON() ([]byte, error) { return json.Marshal(nonNil(a.Values)) }

// EmptyAnswer is the answer recorded for q when nothing was entered.
func EmptyAnswer(q Question) Answer {
	switch q := q.(type) {
	case MultipleChoice:
		if q.MultiSelect {
			return MultiAnswer{Indices: []int{}}
		}
		return SingleAnswer{Index: Unanswered}
	case FillBlank:
		return BlankAnswer{Values: make([]string, q.BlankCount())}
	}
	return nil
}

// DecodeAnswer reads a stored answer using its question to pick the variant.
// A JSON null decodes to the empty answer.
func DecodeAnswer(q Question, raw json.RawMessage) (Answer, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return EmptyAnswer(q), nil
	}
	switch q := q.(type) {
	case MultipleChoice:
		if q.MultiSelect {
			var indices []int
			if err := json.Unmarshal(raw, &indices); err != nil {
				return nil, fmt.Errorf("question %d: %w", q.ID, err)
			}
			return MultiAnswer{Indices: indices}, nil
		}
		var index int
		if err := json.Unmarshal(raw, &index); err != nil {
			return nil, fmt.Errorf("question %d: %w", q.ID, err)
		}
		return SingleAnswer{Index: index}, nil
	case FillBlank:
		var values []string
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("question %d: %w", q.ID, err)
		}
		return BlankAnswer{Values: values}, nil
	}
	return nil, fmt.Errorf("%w: unsupported question %T", ErrInvalidQuestion, q)
}

// DecodeAnswers decodes a stored answer log index-aligned with questions.
// Missing trailing entries decode to empty answers.
func DecodeAnswers(questions []Question, raw json.RawMessage) ([]Answer, error) {
	var items []json.RawMessage
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, err
		}
	}
	answers := make([]Answer, len(questions))
	for i, q := range questions {
		var item json.RawMessage
		if i < len(items) {
			item = items[i]
		}
		a, err := DecodeAnswer(q, item)
		if err != nil {
			return nil, err
		}
		answers[i] = a
	}
	return answers, nil
}
