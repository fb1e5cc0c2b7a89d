package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tikuhub/tikuhub/internal/matcher"
	"github.com/tikuhub/tikuhub/internal/qa"
)

// likeTypePrefix labels the question type inside the query string; the
// upstream is LLM-backed and relies on the label.
var likeTypePrefix = map[qa.QuestionType]string{
	qa.TypeSingle:    "【单选题】：",
	qa.TypeMulti:     "【多选题】：",
	qa.TypeBlank:     "【填空题】：",
	qa.TypeJudgement: "【判断题】：",
	qa.TypeEssay:     "【问答题】：",
}

// like queries the Like 知识库, an LLM-backed answering service.
type like struct {
	http *http.Client
	url  string
}

func newLike(client *http.Client) *like {
	return &like{http: client, url: "https://app.datam.site/api/v1/query"}
}

func (a *like) Descriptor() Descriptor {
	return Descriptor{
		Name:      "Like知识库",
		Home:      "https://www.datam.site/",
		Free:      false,
		Pay:       true,
		Cacheable: true,
		Schema: Schema{
			{Name: "key", Type: FieldString, Title: "API密钥", Description: "用于认证的API密钥", Required: true},
			{Name: "llm_model", Type: FieldString, Title: "大语言模型", Description: "指定使用的大语言模型", Required: false},
			{Name: "search", Type: FieldBoolean, Title: "联网搜索", Description: "是否启用联网搜索", Required: false},
			{Name: "vision", Type: FieldBoolean, Title: "视觉理解", Description: "是否启用视觉理解", Required: false},
		},
	}
}

func (a *like) Search(ctx context.Context, query *qa.Query, provider *qa.Provider) *qa.Answer {
	d := a.Descriptor()
	if fail := validateConfig(d, query, provider); fail != nil {
		return fail
	}

	body := map[string]any{
		"query": likeTypePrefix[query.Type] + query.Content + fmt.Sprintf("%v", query.Options),
	}
	if m := provider.Config.String("llm_model"); m != "" {
		body["model"] = m
	}
	if _, ok := provider.Config["search"]; ok {
		body["search"] = provider.Config.Bool("search")
	}
	headers := map[string]string{"Authorization": "Bearer " + provider.Config.String("key")}

	var resp struct {
		Message string `json:"message"`
		Results struct {
			Output struct {
				QuestionType string `json:"questionType"`
				Answer       struct {
					SelectedOptions []string `json:"selectedOptions"`
					Blanks          []string `json:"blanks"`
					IsCorrect       *bool    `json:"isCorrect"`
				} `json:"answer"`
			} `json:"output"`
		} `json:"results"`
	}
	if fail := postJSON(ctx, a.http, a.url, body, headers, &resp); fail != nil {
		return fail.answer(d.Name, query.Type)
	}

	if resp.Message != "查询成功" {
		msg := resp.Message
		if msg == "" {
			msg = "API返回错误"
		}
		return qa.Failure(d.Name, query.Type, qa.ErrAPI, msg)
	}

	out := resp.Results.Output
	switch out.QuestionType {
	case "CHOICE":
		if len(out.Answer.SelectedOptions) == 0 {
			return qa.Failure(d.Name, query.Type, qa.ErrAPI, "未找到选项答案")
		}
		// selectedOptions may be letters or option texts depending on the
		// model; the key path validates and falls back to matching.
		return matcher.BuildChoiceAnswerFromKeys(d.Name, out.Answer.SelectedOptions, "", query.Options, query.Type)
	case "FILL_IN_BLANK":
		if len(out.Answer.Blanks) == 0 {
			return qa.Failure(d.Name, query.Type, qa.ErrAPI, "未找到填空答案")
		}
		return qa.TextAnswer(d.Name, query.Type, out.Answer.Blanks)
	case "JUDGMENT":
		if out.Answer.IsCorrect == nil {
			return qa.Failure(d.Name, query.Type, qa.ErrAPI, "未找到判断答案")
		}
		return qa.JudgementAnswer(d.Name, *out.Answer.IsCorrect)
	default:
		return qa.Failure(d.Name, query.Type, qa.ErrAPI,
			fmt.Sprintf("不支持的题目类型: %q", out.QuestionType))
	}
}
