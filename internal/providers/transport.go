package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/tikuhub/tikuhub/internal/qa"
)

// callFailure classifies one failed upstream call.
type callFailure struct {
	kind qa.ErrorKind
	msg  string
}

// answer converts the failure into a uniform failure Answer.
func (f *callFailure) answer(provider string, qtype qa.QuestionType) *qa.Answer {
	return qa.Failure(provider, qtype, f.kind, f.msg)
}

// getJSON performs a GET with query params and decodes the JSON body into
// out. Transport failures map to network_error, non-2xx to api_error and an
// un-decodable body to parse_error.
func getJSON(ctx context.Context, client *http.Client, rawURL string, params url.Values, headers map[string]string, out any) *callFailure {
	u := rawURL
	if len(params) > 0 {
		u = rawURL + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return &callFailure{qa.ErrUnknown, fmt.Sprintf("构造请求失败: %v", err)}
	}
	return doJSON(client, req, headers, out)
}

// postJSON performs a POST with a JSON body and decodes the JSON response
// into out.
func postJSON(ctx context.Context, client *http.Client, rawURL string, body any, headers map[string]string, out any) *callFailure {
	payload, err := json.Marshal(body)
	if err != nil {
		return &callFailure{qa.ErrUnknown, fmt.Sprintf("编码请求失败: %v", err)}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(payload))
	if err != nil {
		return &callFailure{qa.ErrUnknown, fmt.Sprintf("构造请求失败: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	return doJSON(client, req, headers, out)
}

func doJSON(client *http.Client, req *http.Request, headers map[string]string, out any) *callFailure {
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		return &callFailure{qa.ErrNetwork, fmt.Sprintf("网络请求失败: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &callFailure{qa.ErrAPI, "请求频率超限 (HTTP 429)"}
	}
	if resp.StatusCode != http.StatusOK {
		return &callFailure{qa.ErrAPI, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.Status)}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &callFailure{qa.ErrNetwork, fmt.Sprintf("读取响应失败: %v", err)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &callFailure{qa.ErrParse, fmt.Sprintf("响应解析失败: %v", err)}
	}
	return nil
}

var choiceKeyPattern = regexp.MustCompile(`[A-Z]`)
var choicePrefixPattern = regexp.MustCompile(`^(答案|正确答案)[：:]\s*`)

// extractChoiceKeys pulls option letters out of a prose answer string:
// "答案：A、C" yields ["A","C"]. Returns nil when the string carries no
// letters at all, in which case the caller falls back to text matching.
func extractChoiceKeys(answer string) []string {
	answer = choicePrefixPattern.ReplaceAllString(strings.TrimSpace(answer), "")
	found := choiceKeyPattern.FindAllString(strings.ToUpper(answer), -1)
	var keys []string
	seen := make(map[string]bool, len(found))
	for _, k := range found {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

// textSeparators are tried in order when splitting a multi-part text answer.
// The first separator actually present in the string wins.
var textSeparators = []string{qa.TextDelimiter, "#!#", "#", "|", ";", "；", "、"}

// splitTextAnswer splits a blank/essay answer on the first recognized
// separator, trimming fragments and dropping empties.
func splitTextAnswer(answer string) []string {
	for _, sep := range textSeparators {
		if !strings.Contains(answer, sep) {
			continue
		}
		var parts []string
		for _, p := range strings.Split(answer, sep) {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	if answer = strings.TrimSpace(answer); answer != "" {
		return []string{answer}
	}
	return nil
}
