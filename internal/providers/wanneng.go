package providers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/tikuhub/tikuhub/internal/qa"
)

// wanneng queries the 万能 question bank. The upstream returns option
// indices (not letters) when it matched the exact question, and a list of
// similar-question answer texts when it did not.
type wanneng struct {
	http *http.Client
	url  string
}

func newWanneng(client *http.Client) *wanneng {
	return &wanneng{http: client, url: "http://lyck6.cn/scriptService/api/autoAnswer/"}
}

func (a *wanneng) Descriptor() Descriptor {
	return Descriptor{
		Name:      "万能题库",
		Home:      "https://lyck6.cn/pay",
		Free:      true,
		Pay:       true,
		Cacheable: true,
		Schema: Schema{
			{Name: "token", Type: FieldString, Title: "token密钥", Description: "用于认证的token密钥", Required: true},
			{Name: "location", Type: FieldString, Title: "题目来源", Description: "题目来源URL（可选）", Required: false},
		},
	}
}

func (a *wanneng) Search(ctx context.Context, query *qa.Query, provider *qa.Provider) *qa.Answer {
	d := a.Descriptor()
	if fail := validateConfig(d, query, provider); fail != nil {
		return fail
	}

	body := map[string]any{
		"question": query.Content,
		"options":  query.Options,
		"type":     int(query.Type),
		"location": provider.Config.String("location"),
	}

	var resp struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Result  struct {
			Success bool `json:"success"`
			// Indices on an exact hit, answer strings (or nested lists of
			// them) on a similar-question hit.
			Answers []json.RawMessage `json:"answers"`
		} `json:"result"`
	}
	url := a.url + provider.Config.String("token")
	if fail := postJSON(ctx, a.http, url, body, nil, &resp); fail != nil {
		return fail.answer(d.Name, query.Type)
	}

	if resp.Code != 0 {
		msg := resp.Message
		if msg == "" {
			msg = "API返回错误"
		}
		return qa.Failure(d.Name, query.Type, qa.ErrAPI, msg)
	}
	if len(resp.Result.Answers) == 0 {
		return qa.Failure(d.Name, query.Type, qa.ErrAPI, "未找到答案")
	}

	if resp.Result.Success {
		return a.parseExact(d.Name, resp.Result.Answers, query)
	}
	return a.parseSimilar(d.Name, resp.Result.Answers, query)
}

// parseExact handles success=true responses: choice answers arrive as
// 0-based option indices.
func (a *wanneng) parseExact(name string, raws []json.RawMessage, query *qa.Query) *qa.Answer {
	if query.Type.IsChoice() {
		var keys []string
		for _, raw := range raws {
			var idx int
			if err := json.Unmarshal(raw, &idx); err != nil {
				return qa.Failure(name, query.Type, qa.ErrParse, "选项下标格式错误")
			}
			if k := qa.OptionKey(idx); k != "" && idx < len(query.Options) {
				keys = append(keys, k)
			}
		}
		if len(keys) == 0 {
			return qa.Failure(name, query.Type, qa.ErrParse, "选项下标超出范围")
		}
		return qa.ChoiceAnswer(name, keys)
	}

	parts := decodeStringList(raws)
	if query.Type == qa.TypeJudgement {
		return a.parseJudgement(name, raws, parts)
	}
	return parseTextList(name, parts, query)
}

// parseSimilar handles success=false responses: the first element is the
// answer of the most similar question, as text.
func (a *wanneng) parseSimilar(name string, raws []json.RawMessage, query *qa.Query) *qa.Answer {
	var first []json.RawMessage
	if err := json.Unmarshal(raws[0], &first); err != nil {
		// Flat list of strings rather than nested.
		first = raws
	}
	parts := decodeStringList(first)
	if query.Type == qa.TypeJudgement {
		return a.parseJudgement(name, first, parts)
	}
	return parseTextList(name, parts, query)
}

func (a *wanneng) parseJudgement(name string, raws []json.RawMessage, parts []string) *qa.Answer {
	if len(raws) > 0 {
		var b bool
		if err := json.Unmarshal(raws[0], &b); err == nil {
			return qa.JudgementAnswer(name, b)
		}
		var n int
		if err := json.Unmarshal(raws[0], &n); err == nil {
			return qa.JudgementAnswer(name, n != 0)
		}
	}
	if len(parts) > 0 {
		if v, ok := qa.JudgementFromText(parts[0]); ok {
			return qa.JudgementAnswer(name, v)
		}
	}
	return qa.Failure(name, qa.TypeJudgement, qa.ErrParse, "无法解析判断题答案")
}

func decodeStringList(raws []json.RawMessage) []string {
	var out []string
	for _, raw := range raws {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			out = append(out, s)
		}
	}
	return out
}
