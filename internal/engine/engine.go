// Package engine runs one search request end to end: batched cache lookup,
// bounded concurrent fan-out over the provider adapters, fault isolation,
// asynchronous cache write-through and answer aggregation.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/tikuhub/tikuhub/internal/cache"
	"github.com/tikuhub/tikuhub/internal/providers"
	"github.com/tikuhub/tikuhub/internal/qa"
)

// DefaultMaxConcurrent bounds adapter calls in flight per request.
const DefaultMaxConcurrent = 20

const writeThroughTimeout = 30 * time.Second

// ErrNoProviders is returned when the resolved provider list is empty. It is
// the only engine condition that fails a whole request.
var ErrNoProviders = errors.New("no providers specified")

// Cache is the slice of the cache store the engine uses. Nil-able: a nil
// cache degrades to fan-out-only operation.
type Cache interface {
	FindQuestion(ctx context.Context, content string, qtype qa.QuestionType, options []string) (*cache.Question, error)
	CachedAnswers(ctx context.Context, questionID int64, providerNames []string) (map[string]*qa.Answer, error)
	SaveAnswers(ctx context.Context, query *qa.Query, pairs []cache.ProviderAnswer) error
}

// Result is the outcome of one search request. Answers lists cached entries
// first, then fan-out results in arrival order.
type Result struct {
	Query      *qa.Query
	Unified    UnifiedAnswer
	Answers    []*qa.Answer
	Successful int
	Failed     int
}

// Total returns the number of per-provider entries in the result.
func (r *Result) Total() int { return len(r.Answers) }

// Engine owns nothing persistent; it borrows the registry, the cache store
// and the logger for the process lifetime.
type Engine struct {
	registry      *providers.Registry
	cache         Cache
	logger        *slog.Logger
	maxConcurrent int64

	wg sync.WaitGroup // in-flight write-through tasks
}

// New creates an Engine. maxConcurrent <= 0 selects the default bound.
func New(registry *providers.Registry, cacheStore Cache, logger *slog.Logger, maxConcurrent int64) *Engine {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Engine{
		registry:      registry,
		cache:         cacheStore,
		logger:        logger,
		maxConcurrent: maxConcurrent,
	}
}

// Wait blocks until all detached write-through tasks have finished. Called
// during graceful shutdown.
func (e *Engine) Wait() { e.wg.Wait() }

type fanoutResult struct {
	provider  *qa.Provider
	cacheable bool
	answer    *qa.Answer
}

// Search runs one request. Local-cache providers bypass the batched lookup;
// everything else is checked against the cache first and only misses fan
// out. Write-through for successful cacheable answers is detached and never
// blocks the response.
func (e *Engine) Search(ctx context.Context, query *qa.Query, providerList []*qa.Provider) (*Result, error) {
	if len(providerList) == 0 {
		return nil, ErrNoProviders
	}

	var locals, others []*qa.Provider
	for _, p := range providerList {
		if p.IsLocal() {
			locals = append(locals, p)
		} else {
			others = append(others, p)
		}
	}

	cached, misses := e.lookupCache(ctx, query, others)
	toQuery := append(locals, misses...)

	arrived, toCache := e.fanOut(ctx, query, toQuery)

	if len(toCache) > 0 && e.cache != nil {
		e.scheduleWriteThrough(ctx, query, toCache)
	}

	answers := append(cached, arrived...)
	result := &Result{
		Query:   query,
		Unified: Aggregate(query, answers),
		Answers: answers,
	}
	for _, a := range answers {
		if a.Success {
			result.Successful++
		} else {
			result.Failed++
		}
	}
	return result, nil
}

// lookupCache resolves the question and fetches all cached answers in one
// round-trip. Any cache failure degrades to "everything missed"; the request
// proceeds on fan-out alone.
func (e *Engine) lookupCache(ctx context.Context, query *qa.Query, providerList []*qa.Provider) (cached []*qa.Answer, misses []*qa.Provider) {
	if e.cache == nil || len(providerList) == 0 {
		return nil, providerList
	}

	question, err := e.cache.FindQuestion(ctx, query.Content, query.Type, query.Options)
	if err != nil {
		e.logger.Warn("cache question lookup failed, treating as miss", "error", err)
		return nil, providerList
	}
	if question == nil {
		return nil, providerList
	}

	names := make([]string, len(providerList))
	for i, p := range providerList {
		names[i] = p.Name
	}
	answers, err := e.cache.CachedAnswers(ctx, question.ID, names)
	if err != nil {
		e.logger.Warn("cache answer lookup failed, treating as miss", "question_id", question.ID, "error", err)
		return nil, providerList
	}

	for _, p := range providerList {
		if ans := answers[p.Name]; ans != nil {
			e.logger.Debug("cache hit", "provider", p.Name, "question_id", question.ID)
			cached = append(cached, ans)
		} else {
			misses = append(misses, p)
		}
	}
	return cached, misses
}

// fanOut dispatches every provider concurrently under the per-request
// semaphore and collects answers in arrival order. Unknown provider names
// are warned about and omitted; they never produce a response entry.
func (e *Engine) fanOut(ctx context.Context, query *qa.Query, providerList []*qa.Provider) (arrived []*qa.Answer, toCache []cache.ProviderAnswer) {
	type dispatch struct {
		provider  *qa.Provider
		adapter   providers.Adapter
		cacheable bool
	}
	var dispatches []dispatch
	for _, p := range providerList {
		adapter := e.registry.Get(p.Name)
		if adapter == nil {
			e.logger.Warn("unknown provider, skipping", "provider", p.Name)
			continue
		}
		dispatches = append(dispatches, dispatch{p, adapter, adapter.Descriptor().Cacheable})
	}
	if len(dispatches) == 0 {
		return nil, nil
	}

	sem := semaphore.NewWeighted(e.maxConcurrent)
	results := make(chan fanoutResult, len(dispatches))
	for _, d := range dispatches {
		go func(d dispatch) {
			results <- fanoutResult{
				provider:  d.provider,
				cacheable: d.cacheable,
				answer:    e.callAdapter(ctx, sem, d.adapter, query, d.provider),
			}
		}(d)
	}

	for range dispatches {
		r := <-results
		arrived = append(arrived, r.answer)
		if r.answer.Success && r.cacheable {
			toCache = append(toCache, cache.ProviderAnswer{Provider: *r.provider, Answer: r.answer})
		}
	}
	return arrived, toCache
}

// callAdapter enforces the semaphore and the never-propagate contract: a
// panicking adapter yields an unknown-kind failure answer, nothing more.
func (e *Engine) callAdapter(ctx context.Context, sem *semaphore.Weighted, adapter providers.Adapter, query *qa.Query, p *qa.Provider) (ans *qa.Answer) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("adapter panicked", "provider", p.Name, "panic", r)
			ans = qa.Failure(p.Name, query.Type, qa.ErrUnknown, fmt.Sprintf("adapter panic: %v", r))
		}
	}()

	if err := sem.Acquire(ctx, 1); err != nil {
		return qa.Failure(p.Name, query.Type, qa.ErrUnknown, fmt.Sprintf("request cancelled: %v", err))
	}
	defer sem.Release(1)

	ans = adapter.Search(ctx, query, p)
	if ans == nil {
		return qa.Failure(p.Name, query.Type, qa.ErrUnknown, "adapter returned no answer")
	}
	if ans.Provider == "" {
		ans.Provider = p.Name
	}
	return ans
}

// scheduleWriteThrough persists successful cacheable answers on a detached
// task. The task survives client disconnect and uses its own pool session;
// failures log and discard.
func (e *Engine) scheduleWriteThrough(ctx context.Context, query *qa.Query, pairs []cache.ProviderAnswer) {
	e.wg.Add(1)
	detached := context.WithoutCancel(ctx)
	go func() {
		defer e.wg.Done()
		wctx, cancel := context.WithTimeout(detached, writeThroughTimeout)
		defer cancel()
		if err := e.cache.SaveAnswers(wctx, query, pairs); err != nil {
			e.logger.Warn("cache write-through failed", "error", err, "answers", len(pairs))
			return
		}
		e.logger.Debug("cache write-through complete", "answers", len(pairs))
	}()
}
