package engine

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tikuhub/tikuhub/internal/qa"
)

func textAnswer(provider string, qtype qa.QuestionType, parts ...string) *qa.Answer {
	return qa.TextAnswer(provider, qtype, parts)
}

func TestAggregateSingleChoiceFromText(t *testing.T) {
	query := &qa.Query{
		Content: "毛泽东思想形成的时代背景是( )",
		Type:    qa.TypeSingle,
		Options: []string{
			"帝国主义战争与无产阶级革命成为时代主题",
			"和平与发展成为时代主题",
			"世界多极化成为时代主题",
			"经济全球化成为时代主题",
		},
	}
	answers := []*qa.Answer{
		textAnswer("p1", qa.TypeSingle, "帝国主义战争与无产阶级革命成为时代主题"),
		textAnswer("p2", qa.TypeSingle, "帝国主义战争与无产阶级革命成为时代主题"),
		textAnswer("p3", qa.TypeSingle, "帝国主义战争与无产阶级革命成为时代主题"),
		textAnswer("p4", qa.TypeSingle, "帝国主义战争与无产阶级革命成为时代主题"),
		textAnswer("p5", qa.TypeSingle, "帝国主义战争和无产阶级革命"),
		textAnswer("p6", qa.TypeSingle, "战争与革命"),
	}

	u := Aggregate(query, answers)
	assert.Equal(t, []string{"A"}, u.AnswerKey)
	assert.Equal(t, "A", u.AnswerKeyText)
	assert.Equal(t, []int{0}, u.AnswerIndex)
	assert.Equal(t, []string{"帝国主义战争与无产阶级革命成为时代主题"}, u.BestAnswer)
}

func TestAggregateMultiChoiceMixedForms(t *testing.T) {
	query := &qa.Query{
		Content: "下列说法正确的是( )",
		Type:    qa.TypeMulti,
		Options: []string{"A劳动最光荣", "B劳动最崇高", "C劳动最伟大", "D劳动最美丽"},
	}
	all := []string{"A", "B", "C", "D"}
	answers := []*qa.Answer{
		qa.ChoiceAnswer("p1", all),
		qa.ChoiceAnswer("p2", all),
		textAnswer("p3", qa.TypeMulti, "A劳动最光荣", "B劳动最崇高", "C劳动最伟大", "D劳动最美丽"),
		qa.ChoiceAnswer("p4", []string{"D", "C", "B", "A"}),
		qa.ChoiceAnswer("p5", all),
		qa.ChoiceAnswer("p6", []string{"A", "B"}),
	}

	u := Aggregate(query, answers)
	assert.Equal(t, []string{"A", "B", "C", "D"}, u.AnswerKey)
	assert.Equal(t, "ABCD", u.AnswerKeyText)
	assert.Equal(t, []int{0, 1, 2, 3}, u.AnswerIndex)
	assert.Equal(t, query.Options, u.BestAnswer)
}

func TestAggregateMultiFragmentTextMatchesPerFragment(t *testing.T) {
	query := &qa.Query{
		Content: "下列说法正确的是( )",
		Type:    qa.TypeMulti,
		Options: []string{"A劳动最光荣", "B劳动最崇高", "C劳动最伟大", "D劳动最美丽"},
	}
	// A single provider returning each option's full text as its own
	// fragment must still vote the full key union.
	answers := []*qa.Answer{
		textAnswer("p1", qa.TypeMulti, "A劳动最光荣", "B劳动最崇高", "C劳动最伟大", "D劳动最美丽"),
	}

	u := Aggregate(query, answers)
	assert.Equal(t, []string{"A", "B", "C", "D"}, u.AnswerKey)
	assert.Equal(t, "ABCD", u.AnswerKeyText)
}

func TestAggregateJudgementMajority(t *testing.T) {
	query := &qa.Query{Content: "题目", Type: qa.TypeJudgement, Options: []string{"对", "错"}}
	answers := []*qa.Answer{
		qa.JudgementAnswer("p1", true),
		textAnswer("p2", qa.TypeJudgement, "正确"),
		textAnswer("p3", qa.TypeJudgement, "对"),
		textAnswer("p4", qa.TypeJudgement, "T"),
		textAnswer("p5", qa.TypeJudgement, "y"),
		qa.JudgementAnswer("p6", false),
	}

	u := Aggregate(query, answers)
	assert.Equal(t, []string{"对"}, u.BestAnswer)
	assert.Equal(t, "对", u.AnswerText)
	assert.Empty(t, u.AnswerKey)
}

func TestAggregateBlankModalTuple(t *testing.T) {
	query := &qa.Query{Content: "题目", Type: qa.TypeBlank}
	answers := []*qa.Answer{
		textAnswer("p1", qa.TypeBlank, "劳动", "光荣"),
		textAnswer("p2", qa.TypeBlank, "劳动", "光荣"),
		textAnswer("p3", qa.TypeBlank, "劳动"),
	}

	u := Aggregate(query, answers)
	assert.Equal(t, []string{"劳动", "光荣"}, u.BestAnswer)
	assert.Equal(t, "劳动#@#光荣", u.AnswerText)
}

func TestAggregateTieBreaksByArrival(t *testing.T) {
	query := &qa.Query{Content: "题目", Type: qa.TypeSingle, Options: []string{"甲", "乙"}}
	answers := []*qa.Answer{
		qa.ChoiceAnswer("p1", []string{"B"}),
		qa.ChoiceAnswer("p2", []string{"A"}),
	}

	u := Aggregate(query, answers)
	assert.Equal(t, []string{"B"}, u.AnswerKey)
}

func TestAggregateNoSuccessesIsEmptyNotError(t *testing.T) {
	query := &qa.Query{Content: "题目", Type: qa.TypeSingle, Options: []string{"甲", "乙"}}
	answers := []*qa.Answer{
		qa.Failure("p1", qa.TypeSingle, qa.ErrNetwork, "boom"),
		qa.Failure("p2", qa.TypeSingle, qa.ErrAPI, "nope"),
	}

	u := Aggregate(query, answers)
	assert.Empty(t, u.AnswerKey)
	assert.Empty(t, u.AnswerIndex)
	assert.Empty(t, u.BestAnswer)
	assert.Empty(t, u.AnswerText)
	assert.Empty(t, u.AnswerKeyText)
}

func TestAggregateDeterministicUnderShuffle(t *testing.T) {
	query := &qa.Query{Content: "题目", Type: qa.TypeSingle, Options: []string{"甲", "乙", "丙"}}
	answers := []*qa.Answer{
		qa.ChoiceAnswer("p1", []string{"B"}),
		qa.ChoiceAnswer("p2", []string{"B"}),
		qa.ChoiceAnswer("p3", []string{"B"}),
		qa.ChoiceAnswer("p4", []string{"A"}),
		qa.ChoiceAnswer("p5", []string{"C"}),
	}

	want := Aggregate(query, answers)
	require.Equal(t, []string{"B"}, want.AnswerKey)

	r := rand.New(rand.NewSource(11))
	for i := 0; i < 20; i++ {
		shuffled := append([]*qa.Answer(nil), answers...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		assert.Equal(t, want, Aggregate(query, shuffled))
	}
}

func TestAggregateIgnoresOutOfRangeKeys(t *testing.T) {
	query := &qa.Query{Content: "题目", Type: qa.TypeSingle, Options: []string{"甲", "乙"}}
	answers := []*qa.Answer{
		qa.ChoiceAnswer("p1", []string{"Z"}),
		qa.ChoiceAnswer("p2", []string{"A"}),
	}

	u := Aggregate(query, answers)
	assert.Equal(t, []string{"A"}, u.AnswerKey)
}
