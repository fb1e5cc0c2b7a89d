package engine

import (
	"slices"
	"sort"
	"strings"

	"github.com/tikuhub/tikuhub/internal/matcher"
	"github.com/tikuhub/tikuhub/internal/qa"
)

// UnifiedAnswer is the aggregator's single best guess across all providers,
// expressed in the equivalent key, index and text encodings. All fields are
// empty when no provider succeeded.
type UnifiedAnswer struct {
	AnswerKey     []string `json:"answerKey"`
	AnswerKeyText string   `json:"answerKeyText"`
	AnswerIndex   []int    `json:"answerIndex"`
	AnswerText    string   `json:"answerText"`
	BestAnswer    []string `json:"bestAnswer"`
}

func emptyUnified() UnifiedAnswer {
	return UnifiedAnswer{
		AnswerKey:   []string{},
		AnswerIndex: []int{},
		BestAnswer:  []string{},
	}
}

// Aggregate votes over the successful per-provider answers. The modal answer
// tuple wins; ties break toward the earlier arrival. Aggregation is
// associative over the answer multiset, so adapter completion order never
// changes the outcome beyond documented tie-breaking.
func Aggregate(query *qa.Query, answers []*qa.Answer) UnifiedAnswer {
	var successes []*qa.Answer
	for _, a := range answers {
		if a != nil && a.Success {
			successes = append(successes, a)
		}
	}
	if len(successes) == 0 {
		return emptyUnified()
	}

	switch {
	case query.Type.IsChoice():
		return aggregateChoice(query, successes)
	case query.Type == qa.TypeJudgement:
		return aggregateJudgement(successes)
	default:
		return aggregateText(successes)
	}
}

// choiceKeys extracts a validated key tuple from one answer. Providers that
// answered a choice question with prose get their text run through the
// matcher here, so voting always happens in key space.
func choiceKeys(query *qa.Query, a *qa.Answer) []string {
	if len(a.Choice) > 0 {
		var keys []string
		for _, k := range a.Choice {
			k = strings.ToUpper(strings.TrimSpace(k))
			if qa.OptionIndex(k, len(query.Options)) >= 0 {
				keys = append(keys, k)
			}
		}
		return keys
	}
	if len(a.Text) == 1 {
		matched := matcher.BuildChoiceAnswer(a.Provider, a.Text[0], query.Options, query.Type)
		if matched.Success {
			return matched.Choice
		}
		return nil
	}
	if len(a.Text) > 1 {
		// Fragments are matched one at a time and the keys unioned; joining
		// them first dilutes every per-option score below the match floor.
		var keys []string
		for _, part := range a.Text {
			matched := matcher.BuildChoiceAnswer(a.Provider, part, query.Options, qa.TypeSingle)
			if !matched.Success {
				continue
			}
			for _, k := range matched.Choice {
				if !slices.Contains(keys, k) {
					keys = append(keys, k)
				}
			}
		}
		return keys
	}
	return nil
}

type vote struct {
	count int
	order int // arrival position of the first occurrence
	tuple []string
}

// tally counts votes per canonical tuple, preserving first-arrival order for
// tie-breaking, and returns the winner.
func tally(tuples [][]string) []string {
	votes := make(map[string]*vote)
	for i, tuple := range tuples {
		if len(tuple) == 0 {
			continue
		}
		key := strings.Join(tuple, "\x1f")
		if v, ok := votes[key]; ok {
			v.count++
		} else {
			votes[key] = &vote{count: 1, order: i, tuple: tuple}
		}
	}
	var winner *vote
	for _, v := range votes {
		if winner == nil || v.count > winner.count || (v.count == winner.count && v.order < winner.order) {
			winner = v
		}
	}
	if winner == nil {
		return nil
	}
	return winner.tuple
}

func aggregateChoice(query *qa.Query, successes []*qa.Answer) UnifiedAnswer {
	tuples := make([][]string, 0, len(successes))
	for _, a := range successes {
		keys := choiceKeys(query, a)
		if len(keys) == 0 {
			continue
		}
		sorted := append([]string(nil), keys...)
		sort.Strings(sorted)
		tuples = append(tuples, sorted)
	}

	keys := tally(tuples)
	if len(keys) == 0 {
		return emptyUnified()
	}

	indexes := make([]int, 0, len(keys))
	best := make([]string, 0, len(keys))
	for _, k := range keys {
		idx := qa.OptionIndex(k, len(query.Options))
		indexes = append(indexes, idx)
		best = append(best, query.Options[idx])
	}
	return UnifiedAnswer{
		AnswerKey:     keys,
		AnswerKeyText: strings.Join(keys, ""),
		AnswerIndex:   indexes,
		AnswerText:    strings.Join(best, qa.TextDelimiter),
		BestAnswer:    best,
	}
}

func aggregateJudgement(successes []*qa.Answer) UnifiedAnswer {
	var trueVotes, falseVotes int
	firstValue, haveFirst := false, false
	for _, a := range successes {
		var v bool
		switch {
		case a.Judgement != nil:
			v = *a.Judgement
		case len(a.Text) > 0:
			parsed, ok := qa.JudgementFromText(a.Text[0])
			if !ok {
				continue
			}
			v = parsed
		default:
			continue
		}
		if !haveFirst {
			firstValue, haveFirst = v, true
		}
		if v {
			trueVotes++
		} else {
			falseVotes++
		}
	}
	if trueVotes == 0 && falseVotes == 0 {
		return emptyUnified()
	}

	value := firstValue
	if trueVotes != falseVotes {
		value = trueVotes > falseVotes
	}
	text := qa.JudgementText(value)
	u := emptyUnified()
	u.AnswerText = text
	u.BestAnswer = []string{text}
	return u
}

func aggregateText(successes []*qa.Answer) UnifiedAnswer {
	tuples := make([][]string, 0, len(successes))
	for _, a := range successes {
		if len(a.Text) > 0 {
			tuples = append(tuples, a.Text)
		}
	}
	best := tally(tuples)
	if len(best) == 0 {
		return emptyUnified()
	}
	u := emptyUnified()
	u.AnswerText = strings.Join(best, qa.TextDelimiter)
	u.BestAnswer = best
	return u
}
