package qa_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tikuhub/tikuhub/internal/qa"
)

func TestOptionKey(t *testing.T) {
	assert.Equal(t, "A", qa.OptionKey(0))
	assert.Equal(t, "D", qa.OptionKey(3))
	assert.Equal(t, "Z", qa.OptionKey(25))
	assert.Equal(t, "", qa.OptionKey(26))
	assert.Equal(t, "", qa.OptionKey(-1))
}

func TestOptionIndex(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		count int
		want  int
	}{
		{name: "first", key: "A", count: 4, want: 0},
		{name: "last", key: "D", count: 4, want: 3},
		{name: "lowercase", key: "c", count: 4, want: 2},
		{name: "out-of-range", key: "E", count: 4, want: -1},
		{name: "not-a-letter", key: "1", count: 4, want: -1},
		{name: "multi-char", key: "AB", count: 4, want: -1},
		{name: "empty", key: "", count: 4, want: -1},
		{name: "fourteen-options", key: "N", count: 14, want: 13},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, qa.OptionIndex(tt.key, tt.count))
		})
	}
}

func TestJudgementFromText(t *testing.T) {
	tests := []struct {
		in    string
		value bool
		ok    bool
	}{
		{in: "正确", value: true, ok: true},
		{in: "对", value: true, ok: true},
		{in: "T", value: true, ok: true},
		{in: "y", value: true, ok: true},
		{in: "√", value: true, ok: true},
		{in: " 是 ", value: true, ok: true},
		{in: "错", value: false, ok: true},
		{in: "错误", value: false, ok: true},
		{in: "×", value: false, ok: true},
		{in: "F", value: false, ok: true},
		{in: "不对", value: false, ok: true},
		{in: "maybe", value: false, ok: false},
		{in: "", value: false, ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, ok := qa.JudgementFromText(tt.in)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.value, v)
			}
		})
	}
}

func TestJudgementText(t *testing.T) {
	assert.Equal(t, "对", qa.JudgementText(true))
	assert.Equal(t, "错", qa.JudgementText(false))
}

func TestChoiceAnswerRecomputesType(t *testing.T) {
	single := qa.ChoiceAnswer("p", []string{"A"})
	assert.Equal(t, qa.TypeSingle, single.Type)

	multi := qa.ChoiceAnswer("p", []string{"A", "C"})
	assert.Equal(t, qa.TypeMulti, multi.Type)
}

func TestFailureHasNoPayload(t *testing.T) {
	a := qa.Failure("p", qa.TypeSingle, qa.ErrNetwork, "timeout")
	assert.False(t, a.Success)
	assert.Equal(t, qa.ErrNetwork, a.ErrorType)
	assert.Nil(t, a.Choice)
	assert.Nil(t, a.Judgement)
	assert.Nil(t, a.Text)
}

func TestConfigAccessors(t *testing.T) {
	c := qa.Config{"key": "abc", "search": true, "limit": float64(5), "n": 3}
	assert.Equal(t, "abc", c.String("key"))
	assert.Equal(t, "", c.String("missing"))
	assert.True(t, c.Bool("search"))
	assert.False(t, c.Bool("missing"))
	assert.Equal(t, 5, c.Int("limit"))
	assert.Equal(t, 3, c.Int("n"))
	assert.Equal(t, 0, c.Int("missing"))
}
