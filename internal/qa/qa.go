// Package qa defines the request-scoped question/answer model shared by the
// cache, the provider adapters, the fan-out engine and the HTTP layer.
//
// Question types are wire-stable integers:
//
//	0 single-choice, 1 multi-choice, 2 fill-in-blank, 3 judgement, 4 essay
//
// Every adapter invocation produces exactly one Answer: either a success with
// one payload field populated (Choice, Judgement or Text, selected by Type),
// or a failure carrying one ErrorKind and a human-readable message. Adapter
// failures are data, never Go errors; nothing an upstream does may propagate
// past the adapter boundary.
package qa

import "strings"

// QuestionType classifies a question. The integer values are part of the
// wire format and must not be reordered.
type QuestionType int

const (
	TypeSingle    QuestionType = 0
	TypeMulti     QuestionType = 1
	TypeBlank     QuestionType = 2
	TypeJudgement QuestionType = 3
	TypeEssay     QuestionType = 4
)

// Valid reports whether t is one of the five known question types.
func (t QuestionType) Valid() bool {
	return t >= TypeSingle && t <= TypeEssay
}

// IsChoice reports whether answers to this type are option keys.
func (t QuestionType) IsChoice() bool {
	return t == TypeSingle || t == TypeMulti
}

// TextDelimiter joins multi-valued answer text in the unified response.
// Chosen because it is extremely unlikely to occur inside question text.
const TextDelimiter = "#@#"

// MaxOptions is the largest option list a request may carry; option keys are
// single uppercase letters so the alphabet is the hard ceiling.
const MaxOptions = 26

// Query is the request-scoped question being searched.
type Query struct {
	Content string       `json:"content"`
	Type    QuestionType `json:"type"`
	Options []string     `json:"options,omitempty"`
}

// Config is an opaque provider configuration map. Values arrive as decoded
// JSON, so numbers are float64 unless a caller already coerced them.
type Config map[string]any

// String returns the string value for key, or "" when absent or mistyped.
func (c Config) String(key string) string {
	s, _ := c[key].(string)
	return s
}

// Bool returns the boolean value for key, or false when absent or mistyped.
func (c Config) Bool(key string) bool {
	b, _ := c[key].(bool)
	return b
}

// Int returns the integer value for key, accepting both int and float64
// (the JSON decoder produces the latter), or 0 when absent.
func (c Config) Int(key string) int {
	switch v := c[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
}

// Provider is the caller's request-scoped choice of an adapter plus its
// configuration for this request.
type Provider struct {
	Name     string `json:"name"`
	Priority int    `json:"priority,omitempty"`
	Config   Config `json:"config,omitempty"`
}

// LocalProviderName is the registered name of the cache-backed adapter. It
// lives here so the engine's bypass split and the adapter's descriptor agree
// on one literal.
const LocalProviderName = "Local"

// IsLocal reports whether the provider names the local-cache adapter, which
// bypasses the batched cache lookup.
func (p Provider) IsLocal() bool {
	return strings.EqualFold(p.Name, LocalProviderName)
}

// ErrorKind is the closed taxonomy at the adapter boundary.
type ErrorKind string

const (
	ErrConfig    ErrorKind = "config_error"
	ErrAPI       ErrorKind = "api_error"
	ErrNetwork   ErrorKind = "network_error"
	ErrParse     ErrorKind = "parse_error"
	ErrMatch     ErrorKind = "match_error"
	ErrCacheMiss ErrorKind = "cache_miss"
	ErrUnknown   ErrorKind = "unknown"
)

// Answer is the uniform in-flight answer shape produced by every adapter
// invocation and consumed by the aggregator. On Success exactly one of
// Choice, Judgement and Text is populated, determined by Type.
type Answer struct {
	Provider  string       `json:"provider,omitempty"`
	Type      QuestionType `json:"type"`
	Choice    []string     `json:"choice,omitempty"`
	Judgement *bool        `json:"judgement,omitempty"`
	Text      []string     `json:"text,omitempty"`

	Success      bool      `json:"success"`
	ErrorType    ErrorKind `json:"error_type,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// ChoiceAnswer builds a successful choice answer. The type is recomputed
// from the number of keys: one key is single-select, more is multi-select,
// regardless of what the request asked for. Upstreams misclassify.
func ChoiceAnswer(provider string, keys []string) *Answer {
	t := TypeSingle
	if len(keys) > 1 {
		t = TypeMulti
	}
	return &Answer{Provider: provider, Type: t, Choice: keys, Success: true}
}

// TextAnswer builds a successful blank/essay answer.
func TextAnswer(provider string, qtype QuestionType, text []string) *Answer {
	return &Answer{Provider: provider, Type: qtype, Text: text, Success: true}
}

// JudgementAnswer builds a successful judgement answer.
func JudgementAnswer(provider string, value bool) *Answer {
	v := value
	return &Answer{Provider: provider, Type: TypeJudgement, Judgement: &v, Success: true}
}

// Failure builds a failure answer with the given kind and message.
func Failure(provider string, qtype QuestionType, kind ErrorKind, msg string) *Answer {
	return &Answer{
		Provider:     provider,
		Type:         qtype,
		Success:      false,
		ErrorType:    kind,
		ErrorMessage: msg,
	}
}
