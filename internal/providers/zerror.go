package providers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/tikuhub/tikuhub/internal/qa"
)

var zerrorTypeNames = map[qa.QuestionType]string{
	qa.TypeSingle:    "single",
	qa.TypeMulti:     "multiple",
	qa.TypeBlank:     "completion",
	qa.TypeJudgement: "judgement",
	qa.TypeEssay:     "completion",
}

// zerror queries the 在这学 question bank.
type zerror struct {
	http *http.Client
	url  string
}

func newZerror(client *http.Client) *zerror {
	return &zerror{http: client, url: "https://api.zaizhexue.top/api/query"}
}

func (a *zerror) Descriptor() Descriptor {
	return Descriptor{
		Name:      "在这学",
		Home:      "https://api.zaizhexue.top/",
		Free:      true,
		Pay:       false,
		Cacheable: true,
		Schema: Schema{
			{Name: "token", Type: FieldString, Title: "访问令牌", Description: "用于认证的token", Required: true},
		},
	}
}

func (a *zerror) Search(ctx context.Context, query *qa.Query, provider *qa.Provider) *qa.Answer {
	d := a.Descriptor()
	if fail := validateConfig(d, query, provider); fail != nil {
		return fail
	}

	body := map[string]any{
		"title":   query.Content,
		"options": fmt.Sprintf("%v", query.Options),
		"type":    zerrorTypeNames[query.Type],
	}
	headers := map[string]string{"Authorization": "Bearer " + provider.Config.String("token")}

	var resp struct {
		Data struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
			Data string `json:"data"`
		} `json:"data"`
	}
	if fail := postJSON(ctx, a.http, a.url, body, headers, &resp); fail != nil {
		return fail.answer(d.Name, query.Type)
	}

	if resp.Data.Code != 1 {
		msg := resp.Data.Msg
		if msg == "" {
			msg = "未找到答案"
		}
		return qa.Failure(d.Name, query.Type, qa.ErrAPI, msg)
	}
	answer := strings.TrimSpace(resp.Data.Data)
	if answer == "" {
		return qa.Failure(d.Name, query.Type, qa.ErrAPI, "API返回数据为空")
	}
	return parseAnswerText(d.Name, answer, query)
}
