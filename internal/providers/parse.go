package providers

import (
	"fmt"

	"github.com/tikuhub/tikuhub/internal/matcher"
	"github.com/tikuhub/tikuhub/internal/qa"
)

// parseAnswerText converts one prose answer string into a uniform Answer,
// directed by the question type. Question banks that return a single answer
// string ("A", "劳动#光荣", "正确") all funnel through here.
func parseAnswerText(provider, raw string, query *qa.Query) *qa.Answer {
	switch {
	case query.Type.IsChoice():
		if keys := extractChoiceKeys(raw); len(keys) > 0 {
			return matcher.BuildChoiceAnswerFromKeys(provider, keys, raw, query.Options, query.Type)
		}
		return matcher.BuildChoiceAnswer(provider, raw, query.Options, query.Type)

	case query.Type == qa.TypeJudgement:
		if v, ok := qa.JudgementFromText(raw); ok {
			return qa.JudgementAnswer(provider, v)
		}
		return qa.Failure(provider, query.Type, qa.ErrParse,
			fmt.Sprintf("无法解析判断题答案: %q", raw))

	default: // blank, essay
		parts := splitTextAnswer(raw)
		if len(parts) == 0 {
			return qa.Failure(provider, query.Type, qa.ErrParse, "答案内容为空")
		}
		return qa.TextAnswer(provider, query.Type, parts)
	}
}

// parseTextList is parseAnswerText for upstreams that already return a list
// of answer fragments.
func parseTextList(provider string, parts []string, query *qa.Query) *qa.Answer {
	if len(parts) == 0 {
		return qa.Failure(provider, query.Type, qa.ErrParse, "答案内容为空")
	}
	if len(parts) == 1 {
		return parseAnswerText(provider, parts[0], query)
	}
	switch {
	case query.Type.IsChoice():
		// Multiple fragments on a choice question: match each fragment to an
		// option and union the keys.
		var keys []string
		for _, p := range parts {
			ans := matcher.BuildChoiceAnswer(provider, p, query.Options, qa.TypeSingle)
			if ans.Success {
				keys = appendUnique(keys, ans.Choice...)
			}
		}
		if len(keys) == 0 {
			return qa.Failure(provider, query.Type, qa.ErrMatch, "答案片段均无法匹配到选项")
		}
		return qa.ChoiceAnswer(provider, keys)
	case query.Type == qa.TypeJudgement:
		return parseAnswerText(provider, parts[0], query)
	default:
		return qa.TextAnswer(provider, query.Type, parts)
	}
}

func appendUnique(dst []string, vals ...string) []string {
	for _, v := range vals {
		found := false
		for _, d := range dst {
			if d == v {
				found = true
				break
			}
		}
		if !found {
			dst = append(dst, v)
		}
	}
	return dst
}
