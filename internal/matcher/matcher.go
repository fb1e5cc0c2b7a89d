// Package matcher maps free-text answers back to a question's option list.
//
// Upstreams frequently return prose instead of option keys, and the prose is
// rarely a verbatim copy of an option ("帝国主义战争和无产阶级革命" vs the
// option "帝国主义战争与无产阶级革命成为时代主题"). The matcher scores each
// option against the answer text and selects the option(s) that clear a
// threshold, producing a uniform choice answer or a match_error failure.
package matcher

import (
	"fmt"
	"strings"

	"github.com/tikuhub/tikuhub/internal/normalize"
	"github.com/tikuhub/tikuhub/internal/qa"
)

// DefaultThreshold is the baseline acceptance score. Single-select and the
// multi-select fallback accept down to 0.6x this value.
const DefaultThreshold = 0.5

// normalizeForMatch extends cache normalization with connective unification:
// 与/及/以及 all become 和 so that "A与B" matches "A和B".
func normalizeForMatch(s string) string {
	s = normalize.Text(s)
	s = strings.ReplaceAll(s, "以及", "和")
	s = strings.ReplaceAll(s, "与", "和")
	s = strings.ReplaceAll(s, "及", "和")
	return s
}

// Score computes the similarity of an answer text to one option, in [0, 1].
//
//   - exact equality of normalized forms scores 1.0
//   - containment scores the length ratio of the shorter to the longer,
//     scaled by 0.95 (answer inside option) or 0.9 (option inside answer)
//   - otherwise 0.4*Jaccard(character sets) + 0.6*(LCS length / longer length)
func Score(answer, option string) float64 {
	if answer == "" || option == "" {
		return 0
	}
	a := []rune(normalizeForMatch(answer))
	o := []rune(normalizeForMatch(option))
	if len(a) == 0 || len(o) == 0 {
		return 0
	}
	as, os := string(a), string(o)
	if as == os {
		return 1.0
	}
	if strings.Contains(os, as) {
		return float64(len(a)) / float64(len(o)) * 0.95
	}
	if strings.Contains(as, os) {
		return float64(len(o)) / float64(len(a)) * 0.9
	}

	jaccard := runeSetJaccard(a, o)
	longer := len(a)
	if len(o) > longer {
		longer = len(o)
	}
	lcsRatio := float64(longestCommonSubstring(a, o)) / float64(longer)
	return 0.4*jaccard + 0.6*lcsRatio
}

func runeSetJaccard(a, b []rune) float64 {
	set := make(map[rune]uint8, len(a)+len(b))
	for _, r := range a {
		set[r] |= 1
	}
	for _, r := range b {
		set[r] |= 2
	}
	var inter, union int
	for _, m := range set {
		union++
		if m == 3 {
			inter++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// longestCommonSubstring uses the rolling two-row DP; option lists are short
// so quadratic time is fine.
func longestCommonSubstring(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	best := 0
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > best {
					best = curr[j]
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
		for j := range curr {
			curr[j] = 0
		}
	}
	return best
}

type scored struct {
	index int
	key   string
	score float64
}

// matchTextToOptions scores every option and applies the selection policy.
// Multi-select takes every option at or above threshold, falling back to the
// single best when it clears 0.6x threshold. Single-select takes the best
// when it clears 0.6x threshold.
func matchTextToOptions(text string, options []string, threshold float64, multiple bool) ([]string, float64, error) {
	if text == "" || len(options) == 0 {
		return nil, 0, fmt.Errorf("answer text or options empty")
	}

	scores := make([]scored, len(options))
	for i, opt := range options {
		scores[i] = scored{index: i, key: qa.OptionKey(i), score: Score(text, opt)}
	}

	best := scores[0]
	for _, s := range scores[1:] {
		if s.score > best.score {
			best = s
		}
	}

	var matched []scored
	if multiple {
		for _, s := range scores {
			if s.score >= threshold {
				matched = append(matched, s)
			}
		}
		if len(matched) == 0 && best.score >= threshold*0.6 {
			matched = []scored{best}
		}
	} else {
		if best.score >= threshold*0.6 {
			matched = []scored{best}
		}
	}

	if len(matched) == 0 {
		return nil, best.score, fmt.Errorf("no option matched, best score %.2f", best.score)
	}

	// matched is already in option order for the multi path; the single path
	// holds one element.
	keys := make([]string, len(matched))
	var sum float64
	for i, m := range matched {
		keys[i] = m.key
		sum += m.score
	}
	return keys, sum / float64(len(matched)), nil
}

// BuildChoiceAnswer matches answerText against options and returns a uniform
// choice answer, or a match_error failure when nothing clears the threshold.
// The answer's type is recomputed from the number of matched keys.
func BuildChoiceAnswer(provider, answerText string, options []string, qtype qa.QuestionType) *qa.Answer {
	return buildChoiceAnswer(provider, answerText, options, qtype, DefaultThreshold)
}

func buildChoiceAnswer(provider, answerText string, options []string, qtype qa.QuestionType, threshold float64) *qa.Answer {
	if len(options) == 0 {
		return qa.Failure(provider, qtype, qa.ErrMatch, "question has no options to match against")
	}
	if answerText == "" {
		return qa.Failure(provider, qtype, qa.ErrMatch, "answer text is empty")
	}

	keys, _, err := matchTextToOptions(answerText, options, threshold, qtype == qa.TypeMulti)
	if err != nil {
		return qa.Failure(provider, qtype, qa.ErrMatch, err.Error())
	}
	return qa.ChoiceAnswer(provider, keys)
}

// BuildChoiceAnswerFromKeys validates upstream-supplied option keys and
// returns them directly when any are valid; otherwise it falls back to text
// matching on fallbackText (or the joined keys when no fallback exists).
func BuildChoiceAnswerFromKeys(provider string, keys []string, fallbackText string, options []string, qtype qa.QuestionType) *qa.Answer {
	if len(options) == 0 {
		return qa.Failure(provider, qtype, qa.ErrMatch, "question has no options to match against")
	}

	var valid []string
	for _, k := range keys {
		k = strings.ToUpper(strings.TrimSpace(k))
		if qa.OptionIndex(k, len(options)) >= 0 {
			valid = append(valid, k)
		}
	}
	if len(valid) > 0 {
		return qa.ChoiceAnswer(provider, valid)
	}

	text := fallbackText
	if text == "" {
		text = strings.Join(keys, " ")
	}
	return buildChoiceAnswer(provider, text, options, qtype, DefaultThreshold)
}
