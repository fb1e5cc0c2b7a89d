package providers

import (
	"context"
	"net/http"
	"strings"

	"github.com/tikuhub/tikuhub/internal/qa"
)

// lemon queries the 柠檬 question bank. query_type selects the free (1) or
// paid (2) endpoint; the paid endpoint requires a token.
type lemon struct {
	http *http.Client
	base string
}

func newLemon(client *http.Client) *lemon {
	return &lemon{http: client, base: "https://api.vanse.top"}
}

func (a *lemon) Descriptor() Descriptor {
	return Descriptor{
		Name:      "柠檬题库",
		Home:      "https://api.vanse.top/",
		Free:      true,
		Pay:       true,
		Cacheable: true,
		Schema: Schema{
			{Name: "token", Type: FieldString, Title: "访问令牌", Description: "付费接口必填，免费接口可选", Required: false},
			{Name: "query_type", Type: FieldInteger, Title: "查询模式", Description: "1为免费查询，2为付费查询", Required: false, Default: 1},
		},
	}
}

func (a *lemon) Search(ctx context.Context, query *qa.Query, provider *qa.Provider) *qa.Answer {
	d := a.Descriptor()
	if fail := validateConfig(d, query, provider); fail != nil {
		return fail
	}

	token := provider.Config.String("token")
	headers := map[string]string{}
	var url string
	if provider.Config.Int("query_type") == 2 {
		if token == "" {
			return qa.Failure(d.Name, query.Type, qa.ErrConfig, "付费查询需要token")
		}
		url = a.base + "/api/v1/mcx"
	} else {
		url = a.base + "/api/v1/cx"
		if token != "" {
			headers["Authorization"] = "Bearer " + token
		}
	}

	body := map[string]any{
		"v":        "1.0",
		"question": query.Content,
		"options":  query.Options,
		"type":     int(query.Type),
	}

	var resp struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			Answer string `json:"answer"`
		} `json:"data"`
	}
	if fail := postJSON(ctx, a.http, url, body, headers, &resp); fail != nil {
		return fail.answer(d.Name, query.Type)
	}

	if resp.Code != 1000 {
		msg := resp.Msg
		if msg == "" {
			msg = "API返回错误"
		}
		return qa.Failure(d.Name, query.Type, qa.ErrAPI, msg)
	}
	answer := strings.TrimSpace(resp.Data.Answer)
	if answer == "" {
		return qa.Failure(d.Name, query.Type, qa.ErrAPI, "API返回数据为空")
	}
	return parseAnswerText(d.Name, answer, query)
}
