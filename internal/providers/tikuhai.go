package providers

import (
	"context"
	"net/http"
	"strings"

	"github.com/tikuhub/tikuhub/internal/qa"
)

// tikuhai queries the 题库海 question bank.
type tikuhai struct {
	http *http.Client
	url  string
}

func newTikuhai(client *http.Client) *tikuhai {
	return &tikuhai{http: client, url: "https://api.tikuhai.com/search"}
}

func (a *tikuhai) Descriptor() Descriptor {
	return Descriptor{
		Name:      "题库海",
		Home:      "https://www.tikuhai.com/",
		Free:      false,
		Pay:       true,
		Cacheable: true,
		Schema: Schema{
			{Name: "key", Type: FieldString, Title: "查询密钥", Description: "题库海查询key", Required: true},
		},
	}
}

func (a *tikuhai) Search(ctx context.Context, query *qa.Query, provider *qa.Provider) *qa.Answer {
	d := a.Descriptor()
	if fail := validateConfig(d, query, provider); fail != nil {
		return fail
	}

	body := map[string]any{
		"question":     query.Content,
		"options":      query.Options,
		"type":         int(query.Type),
		"key":          provider.Config.String("key"),
		"questionData": "",
	}
	headers := map[string]string{"User-Agent": "tikuhub/1.0.0", "v": "1.0.0"}

	var resp struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			Answer string `json:"answer"`
		} `json:"data"`
	}
	if fail := postJSON(ctx, a.http, a.url, body, headers, &resp); fail != nil {
		return fail.answer(d.Name, query.Type)
	}

	if resp.Code != 200 {
		// The upstream distinguishes "answer exists but needs payment" in
		// the message text only.
		if strings.Contains(resp.Msg, "有答案") {
			return qa.Failure(d.Name, query.Type, qa.ErrConfig, resp.Msg)
		}
		msg := resp.Msg
		if msg == "" {
			msg = "未找到答案"
		}
		return qa.Failure(d.Name, query.Type, qa.ErrAPI, msg)
	}
	if resp.Data.Answer == "" {
		return qa.Failure(d.Name, query.Type, qa.ErrAPI, "API返回数据为空")
	}
	return parseAnswerText(d.Name, resp.Data.Answer, query)
}
