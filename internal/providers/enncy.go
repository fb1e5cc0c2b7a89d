package providers

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/tikuhub/tikuhub/internal/qa"
)

// enncyTypeNames maps the internal type codes to the upstream's type names.
// The upstream has no essay type; essays go out as completion.
var enncyTypeNames = map[qa.QuestionType]string{
	qa.TypeSingle:    "single",
	qa.TypeMulti:     "multiple",
	qa.TypeBlank:     "completion",
	qa.TypeJudgement: "judgement",
	qa.TypeEssay:     "completion",
}

// enncy queries the 言溪 question bank.
type enncy struct {
	http *http.Client
	url  string
}

func newEnncy(client *http.Client) *enncy {
	return &enncy{http: client, url: "https://tk.enncy.cn/query"}
}

func (a *enncy) Descriptor() Descriptor {
	return Descriptor{
		Name:      "言溪题库",
		Home:      "https://tk.enncy.cn/",
		Free:      true,
		Pay:       true,
		Cacheable: true,
		Schema: Schema{
			{Name: "token", Type: FieldString, Title: "用户凭证", Description: "用户token，从题库个人中心获取", Required: true},
		},
	}
}

func (a *enncy) Search(ctx context.Context, query *qa.Query, provider *qa.Provider) *qa.Answer {
	d := a.Descriptor()
	if fail := validateConfig(d, query, provider); fail != nil {
		return fail
	}

	params := url.Values{}
	params.Set("token", provider.Config.String("token"))
	params.Set("title", query.Content)
	params.Set("type", enncyTypeNames[query.Type])
	if len(query.Options) > 0 {
		params.Set("options", strings.Join(query.Options, "\n"))
	}

	var resp struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			Answer string `json:"answer"`
		} `json:"data"`
	}
	if fail := getJSON(ctx, a.http, a.url, params, nil, &resp); fail != nil {
		return fail.answer(d.Name, query.Type)
	}

	if resp.Code != 1 {
		msg := resp.Message
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
