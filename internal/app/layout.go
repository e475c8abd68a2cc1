package app

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"slices"
	"strconv"

	"quiz-miniapp/internal/domain"
)

// arrangement records how an attempt presents a quiz. order[pos] is the
// stored index of the question shown at pos; options[pos][shown] is the
// stored index of a multiple-choice option, nil when options keep their order.
type arrangement struct {
	order   []int
	options [][]int
}

// arrange shuffles questions and multiple-choice options from seed, with
// answer keys remapped. Drag-drop options keep their order. The same seed
// always yields the same arrangement.
func arrange(questions domain.Questions, seed int64) (domain.Questions, arrangement) {
	rnd := rand.New(rand.NewSource(seed))
	arr := arrangement{
		order:   rnd.Perm(len(questions)),
		options: make([][]int, len(questions)),
	}
	out := make(domain.Questions, len(questions))
	for pos, stored := range arr.order {
		out[pos] = questions[stored]
	}

	for pos, q := range out {
		mc, ok := q.(domain.MultipleChoice)
		if !ok {
			continue
		}
		order := rnd.Perm(len(mc.Options))
		newIndex := make(map[int]int, len(order))
		options := make([]string, len(order))
		for shown, old := range order {
			options[shown] = mc.Options[old]
			newIndex[old] = shown
		}
		mc.Options = options
		if mc.MultiSelect {
			keys := make([]int, len(mc.CorrectAnswers))
			for k, old := range mc.CorrectAnswers {
				keys[k] = remap(newIndex, old)
			}
			mc.CorrectAnswers = keys
		} else {
			mc.CorrectAnswer = remap(newIndex, mc.CorrectAnswer)
		}
		out[pos] = mc
		arr.options[pos] = order
	}
	return out, arr
}

// remap leaves out-of-range keys alone so malformed questions stay unscorable.
func remap(newIndex map[int]int, old int) int {
	if pos, ok := newIndex[old]; ok {
		return pos
	}
	return old
}

func formatLayout(seed int64) string {
	return strconv.FormatInt(seed, 36)
}

func parseLayout(layout string) (int64, error) {
	seed, err := strconv.ParseInt(layout, 36, 64)
	if err != nil || seed == 0 {
		return 0, fmt.Errorf("%w: unknown layout %q", domain.ErrInvalidInput, layout)
	}
	return seed, nil
}

// storedOrder rewrites an answer log recorded against the layout into the
// stored question and option order.
func storedOrder(questions domain.Questions, layout string, raw json.RawMessage) (json.RawMessage, error) {
	seed, err := parseLayout(layout)
	if err != nil {
		return nil, err
	}
	shown, arr := arrange(questions, seed)
	answers, err := domain.DecodeAnswers(shown, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	out := make([]domain.Answer, len(questions))
	for pos, a := range answers {
		out[arr.order[pos]] = restoreOptions(a, arr.options[pos])
	}
	return json.Marshal(out)
}

func restoreOptions(a domain.Answer, order []int) domain.Answer {
	if order == nil {
		return a
	}
	stored := func(i int) int {
		if i >= 0 && i < len(order) {
			return order[i]
		}
		return i
	}
	switch a := a.(type) {
	case domain.SingleAnswer:
		if !a.Answered() {
			return a
		}
		return domain.SingleAnswer{Index: stored(a.Index)}
	case domain.MultiAnswer:
		indices := make([]int, len(a.Indices))
		for k, i := range a.Indices {
			indices[k] = stored(i)
		}
		slices.Sort(indices)
		return domain.MultiAnswer{Indices: indices}
	}
	return a
}
