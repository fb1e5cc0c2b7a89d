package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/tikuhub/tikuhub/internal/qa"
)

const siliconFlowSystemPrompt = "你是一个答题助手，请严格按JSON格式输出答案，不要包含任何额外信息，" +
	"即使选项有ABCD还是输出选项文本。示例格式：{\"Answer\": [\"答案内容\"]}"

var siliconFlowPrompts = map[qa.QuestionType]string{
	qa.TypeSingle:    "题目：%s\n选项：%s\n这是单选题，请选择唯一正确答案",
	qa.TypeMulti:     "题目：%s\n选项：%s\n这是多选题，请选择所有正确选项",
	qa.TypeBlank:     "题目：%s%s\n这是填空题，请直接给出填空内容",
	qa.TypeJudgement: "题目：%s\n选项：%s\n这是判断题，请回答'正确'或'错误'",
	qa.TypeEssay:     "题目：%s%s\n这是简答题，请直接给出答案内容",
}

// siliconFlow answers questions with an OpenAI-compatible chat completion in
// JSON mode. The prompt instructs the model to return option text, never
// letters, so the choice path always goes through the matcher.
type siliconFlow struct {
	http *http.Client
}

func newSiliconFlow(client *http.Client) *siliconFlow {
	return &siliconFlow{http: client}
}

func (a *siliconFlow) Descriptor() Descriptor {
	return Descriptor{
		Name:      "硅基流动",
		Home:      "https://siliconflow.cn/",
		Free:      false,
		Pay:       true,
		Cacheable: true,
		Schema: Schema{
			{Name: "token", Type: FieldString, Title: "API密钥", Description: "硅基流动平台的API key", Required: true},
			{Name: "model", Type: FieldString, Title: "模型名称", Description: "如 Qwen/Qwen2.5-72B-Instruct", Required: true},
			{Name: "base_url", Type: FieldString, Title: "接口地址", Description: "OpenAI兼容接口地址", Required: false, Default: "https://api.siliconflow.cn/v1"},
		},
	}
}

func (a *siliconFlow) Search(ctx context.Context, query *qa.Query, provider *qa.Provider) *qa.Answer {
	d := a.Descriptor()
	if fail := validateConfig(d, query, provider); fail != nil {
		return fail
	}

	baseURL := provider.Config.String("base_url")
	if baseURL == "" {
		baseURL = "https://api.siliconflow.cn/v1"
	}
	prompt := fmt.Sprintf(siliconFlowPrompts[query.Type], query.Content, formatOptions(query.Options))

	body := map[string]any{
		"model": provider.Config.String("model"),
		"messages": []map[string]string{
			{"role": "system", "content": siliconFlowSystemPrompt},
			{"role": "user", "content": prompt},
		},
		"response_format": map[string]string{"type": "json_object"},
		"max_tokens":      4096,
		"temperature":     0.7,
		"top_p":           0.7,
	}
	headers := map[string]string{"Authorization": "Bearer " + provider.Config.String("token")}

	var resp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	url := strings.TrimSuffix(baseURL, "/") + "/chat/completions"
	if fail := postJSON(ctx, a.http, url, body, headers, &resp); fail != nil {
		return fail.answer(d.Name, query.Type)
	}
	if len(resp.Choices) == 0 {
		return qa.Failure(d.Name, query.Type, qa.ErrAPI, "模型未返回任何输出")
	}

	var parsed struct {
		Answer json.RawMessage `json:"Answer"`
	}
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return qa.Failure(d.Name, query.Type, qa.ErrParse,
			fmt.Sprintf("模型输出不是合法JSON: %v", err))
	}

	var parts []string
	if err := json.Unmarshal(parsed.Answer, &parts); err != nil {
		var single string
		if err := json.Unmarshal(parsed.Answer, &single); err != nil {
			return qa.Failure(d.Name, query.Type, qa.ErrParse, "Answer字段格式错误")
		}
		parts = []string{single}
	}
	return parseTextList(d.Name, parts, query)
}

func formatOptions(options []string) string {
	if len(options) == 0 {
		return ""
	}
	var b strings.Builder
	for i, opt := range options {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(qa.OptionKey(i))
		b.WriteString(". ")
		b.WriteString(opt)
	}
	return b.String()
}
