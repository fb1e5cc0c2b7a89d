package providers

import (
	"context"
	"net/http"
	"strings"

	"github.com/tikuhub/tikuhub/internal/qa"
)

// axe queries the 万卷 question bank. Essay questions are sent with the
// fill-in-blank type code because the upstream has no essay type; blank and
// essay answers come back joined with "#!#", everything else with "#".
type axe struct {
	http *http.Client
	url  string
}

func newAxe(client *http.Client) *axe {
	return &axe{http: client, url: "http://tk.wanjuantiku.com/api/query"}
}

func (a *axe) Descriptor() Descriptor {
	return Descriptor{
		Name:      "万卷题库",
		Home:      "http://tk.wanjuantiku.com/",
		Free:      false,
		Pay:       true,
		Cacheable: true,
		Schema: Schema{
			{Name: "token", Type: FieldString, Title: "访问令牌", Description: "用于认证的token", Required: true},
			{Name: "wid", Type: FieldString, Title: "题单ID", Description: "题单标识（可选）", Required: false},
			{Name: "cid", Type: FieldString, Title: "课程ID", Description: "课程标识（可选）", Required: false},
		},
	}
}

func (a *axe) Search(ctx context.Context, query *qa.Query, provider *qa.Provider) *qa.Answer {
	d := a.Descriptor()
	if fail := validateConfig(d, query, provider); fail != nil {
		return fail
	}

	wireType := int(query.Type)
	if query.Type == qa.TypeEssay {
		wireType = int(qa.TypeBlank)
	}
	body := map[string]any{
		"tm":      query.Content,
		"options": query.Options,
		"type":    wireType,
		"token":   provider.Config.String("token"),
		"wid":     provider.Config.String("wid"),
		"cid":     provider.Config.String("cid"),
	}

	var resp struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data string `json:"data"`
	}
	if fail := postJSON(ctx, a.http, a.url, body, nil, &resp); fail != nil {
		return fail.answer(d.Name, query.Type)
	}

	if resp.Code != 1 {
		msg := resp.Msg
		if msg == "" {
			msg = "未找到答案"
		}
		return qa.Failure(d.Name, query.Type, qa.ErrAPI, msg)
	}
	if resp.Data == "" {
		return qa.Failure(d.Name, query.Type, qa.ErrAPI, "API返回数据为空")
	}

	sep := "#"
	if wireType == int(qa.TypeBlank) {
		sep = "#!#"
	}
	var parts []string
	for _, p := range strings.Split(resp.Data, sep) {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parseTextList(d.Name, parts, query)
}
