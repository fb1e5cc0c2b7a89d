package providers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tikuhub/tikuhub/internal/matcher"
	"github.com/tikuhub/tikuhub/internal/qa"
)

// icodef queries the icodef question bank. The upstream numbers question
// types 1..5 where we use 0..4, and sends the token as a bare Authorization
// value rather than a bearer scheme.
type icodef struct {
	http *http.Client
	url  string
}

func newIcodef(client *http.Client) *icodef {
	return &icodef{http: client, url: "https://q.icodef.com/api/v1/q/"}
}

func (a *icodef) Descriptor() Descriptor {
	return Descriptor{
		Name:      "icodef题库",
		Home:      "https://q.icodef.com/",
		Free:      true,
		Pay:       true,
		Cacheable: true,
		Schema: Schema{
			{Name: "token", Type: FieldString, Title: "授权token", Description: "API授权token", Required: true},
		},
	}
}

func (a *icodef) Search(ctx context.Context, query *qa.Query, provider *qa.Provider) *qa.Answer {
	d := a.Descriptor()
	if fail := validateConfig(d, query, provider); fail != nil {
		return fail
	}

	reqURL := a.url + url.PathEscape(query.Content)
	params := url.Values{}
	params.Set("simple", "false")
	headers := map[string]string{"Authorization": provider.Config.String("token")}

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

	var contents []string
	for _, c := range resp.Data.Correct {
		if c.Content != "" {
			contents = append(contents, c.Content)
		}
	}

	switch qa.QuestionType(resp.Data.Type - 1) {
	case qa.TypeSingle, qa.TypeMulti:
		if len(contents) == 1 {
			return matcher.BuildChoiceAnswer(d.Name, contents[0], query.Options, query.Type)
		}
		return parseTextList(d.Name, contents, query)
	case qa.TypeJudgement:
		if len(contents) > 0 {
			if v, ok := qa.JudgementFromText(contents[0]); ok {
				return qa.JudgementAnswer(d.Name, v)
			}
		}
		return qa.Failure(d.Name, query.Type, qa.ErrParse, "无法解析判断题答案")
	default:
		if len(contents) == 0 {
			return qa.Failure(d.Name, query.Type, qa.ErrParse, "答案内容为空")
		}
		return qa.TextAnswer(d.Name, query.Type, contents)
	}
}
