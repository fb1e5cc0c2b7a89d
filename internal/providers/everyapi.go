package providers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tikuhub/tikuhub/internal/matcher"
	"github.com/tikuhub/tikuhub/internal/qa"
)

// everyAPICorrect is one element of the upstream's correct-answer array.
type everyAPICorrect struct {
	Option  string `json:"option"`
	Content string `json:"content"`
}

// everyAPI queries the everyAPI question bank. The question rides in the
// URL path; answers come back as (option letter, content) pairs.
type everyAPI struct {
	http *http.Client
	url  string
}

func newEveryAPI(client *http.Client) *everyAPI {
	return &everyAPI{http: client, url: "https://www.everyapi.com/api/v1/q/"}
}

func (a *everyAPI) Descriptor() Descriptor {
	return Descriptor{
		Name:      "everyAPI题库",
		Home:      "https://www.everyapi.com/",
		Free:      true,
		Pay:       true,
		Cacheable: true,
		Schema: Schema{
			{Name: "token", Type: FieldString, Title: "授权token", Description: "API授权token", Required: true},
		},
	}
}

func (a *everyAPI) Search(ctx context.Context, query *qa.Query, provider *qa.Provider) *qa.Answer {
	d := a.Descriptor()
	if fail := validateConfig(d, query, provider); fail != nil {
		return fail
	}

	reqURL := a.url + url.PathEscape(query.Content)
	params := url.Values{}
	params.Set("simple", "0")
	headers := map[string]string{"Authorization": "Bearer " + provider.Config.String("token")}

	var resp struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			Type    int               `json:"type"`
			Correct []everyAPICorrect `json:"correct"`
		} `json:"data"`
	}
	if fail := getJSON(ctx, a.http, reqURL, params, headers, &resp); fail != nil {
		return fail.answer(d.Name, query.Type)
	}

	if resp.Code != 0 {
		msg := resp.Msg
		if msg == "" {
			msg = "未找到答案"
		}
		return qa.Failure(d.Name, query.Type, qa.ErrAPI, msg)
	}
	if len(resp.Data.Correct) == 0 {
		return qa.Failure(d.Name, query.Type, qa.ErrAPI, "未找到答案")
	}

	switch qa.QuestionType(resp.Data.Type) {
	case qa.TypeSingle, qa.TypeMulti:
		var keys, contents []string
		for _, c := range resp.Data.Correct {
			if c.Option != "" {
				keys = append(keys, c.Option)
			}
			if c.Content != "" {
				contents = append(contents, c.Content)
			}
		}
		if len(keys) > 0 {
			fallback := ""
			if len(contents) > 0 {
				fallback = contents[0]
			}
			return matcher.BuildChoiceAnswerFromKeys(d.Name, keys, fallback, query.Options, query.Type)
		}
		return parseTextList(d.Name, contents, query)
	case qa.TypeJudgement:
		if v, ok := qa.JudgementFromText(resp.Data.Correct[0].Content); ok {
			return qa.JudgementAnswer(d.Name, v)
		}
		return qa.Failure(d.Name, query.Type, qa.ErrParse, "无法解析判断题答案")
	default:
		var contents []string
		for _, c := range resp.Data.Correct {
			if c.Content != "" {
				contents = append(contents, c.Content)
			}
		}
		if len(contents) == 0 {
			return qa.Failure(d.Name, query.Type, qa.ErrParse, "答案内容为空")
		}
		return qa.TextAnswer(d.Name, query.Type, contents)
	}
}
