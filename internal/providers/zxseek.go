package providers

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tikuhub/tikuhub/internal/matcher"
	"github.com/tikuhub/tikuhub/internal/qa"
)

// zxseek queries the 网课 question bank, a free service with a fixed public
// token and no configuration. Choice answers come back as option letters.
type zxseek struct {
	http *http.Client
	url  string
}

func newZxseek(client *http.Client) *zxseek {
	return &zxseek{http: client, url: "http://api.wkexam.com/api"}
}

func (a *zxseek) Descriptor() Descriptor {
	return Descriptor{
		Name:      "网课题库",
		Home:      "http://api.wkexam.com/",
		Free:      true,
		Pay:       false,
		Cacheable: true,
		Schema:    Schema{},
	}
}

func (a *zxseek) Search(ctx context.Context, query *qa.Query, provider *qa.Provider) *qa.Answer {
	d := a.Descriptor()

	params := url.Values{}
	params.Set("token", "qqqqq")
	params.Set("q", query.Content)

	var resp struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			Answer []string `json:"answer"`
		} `json:"data"`
	}
	if fail := getJSON(ctx, a.http, a.url, params, nil, &resp); fail != nil {
		return fail.answer(d.Name, query.Type)
	}

	if resp.Code != 1 {
		msg := resp.Msg
		if msg == "" {
			msg = "未找到答案"
		}
		return qa.Failure(d.Name, query.Type, qa.ErrAPI, msg)
	}
	if len(resp.Data.Answer) == 0 {
		return qa.Failure(d.Name, query.Type, qa.ErrAPI, "API返回数据为空")
	}

	if query.Type.IsChoice() {
		return matcher.BuildChoiceAnswerFromKeys(d.Name, resp.Data.Answer, "", query.Options, query.Type)
	}
	return parseTextList(d.Name, resp.Data.Answer, query)
}
