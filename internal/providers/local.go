package providers

import (
	"context"
	"log/slog"

	"github.com/tikuhub/tikuhub/internal/cache"
	"github.com/tikuhub/tikuhub/internal/qa"
)

// AnswerCache is the slice of the cache store the local adapter needs.
type AnswerCache interface {
	FindQuestion(ctx context.Context, content string, qtype qa.QuestionType, options []string) (*cache.Question, error)
	AnyAnswer(ctx context.Context, questionID int64) (*qa.Answer, error)
}

// local serves answers from the cache store without any network round-trip.
// It returns any cached answer for the question regardless of which provider
// originally produced it, and is never written back through the cache.
type local struct {
	cache  AnswerCache
	logger *slog.Logger
}

func newLocal(c AnswerCache, logger *slog.Logger) *local {
	if logger == nil {
		logger = slog.Default()
	}
	return &local{cache: c, logger: logger}
}

func (a *local) Descriptor() Descriptor {
	return Descriptor{
		Name:      qa.LocalProviderName,
		Home:      "本地缓存",
		Free:      true,
		Pay:       false,
		Cacheable: false,
		Schema:    Schema{},
	}
}

func (a *local) Search(ctx context.Context, query *qa.Query, provider *qa.Provider) *qa.Answer {
	d := a.Descriptor()
	if a.cache == nil {
		return qa.Failure(d.Name, query.Type, qa.ErrCacheMiss, "缓存不可用")
	}

	question, err := a.cache.FindQuestion(ctx, query.Content, query.Type, query.Options)
	if err != nil {
		a.logger.Warn("local cache question lookup failed", "error", err)
		return qa.Failure(d.Name, query.Type, qa.ErrUnknown, err.Error())
	}
	if question == nil {
		return qa.Failure(d.Name, query.Type, qa.ErrCacheMiss, "缓存中未找到该题目")
	}

	ans, err := a.cache.AnyAnswer(ctx, question.ID)
	if err != nil {
		a.logger.Warn("local cache answer lookup failed", "question_id", question.ID, "error", err)
		return qa.Failure(d.Name, query.Type, qa.ErrUnknown, err.Error())
	}
	if ans == nil {
		return qa.Failure(d.Name, query.Type, qa.ErrCacheMiss, "缓存中未找到该题目的答案")
	}
	ans.Provider = d.Name
	return ans
}
