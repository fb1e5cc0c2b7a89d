package qa

import "strings"

// Synonym sets for judgement answers returned as prose. Upstreams are wildly
// inconsistent here: ticks, single latin letters, regional slang.
var (
	trueWords = []string{
		"1", "正确", "对", "✓", "√", "v", "是", "t", "y", "中", "true",
	}
	falseWords = []string{
		"0", "错误", "错", "✗", "叉", "×", "否", "不对", "不正确", "f", "n",
		"否定", "不中", "false",
	}
)

// JudgementFromText canonicalizes a prose judgement answer. The second
// return value is false when the text matches neither synonym set.
func JudgementFromText(s string) (value, ok bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return false, false
	}
	for _, w := range trueWords {
		if s == w {
			return true, true
		}
	}
	for _, w := range falseWords {
		if s == w {
			return false, true
		}
	}
	return false, false
}

// JudgementText renders a judgement value the way the unified answer
// expresses it.
func JudgementText(value bool) string {
	if value {
		return "对"
	}
	return "错"
}
