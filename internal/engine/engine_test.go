package engine

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tikuhub/tikuhub/internal/cache"
	"github.com/tikuhub/tikuhub/internal/providers"
	"github.com/tikuhub/tikuhub/internal/qa"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubAdapter is a scriptable adapter for engine tests.
type stubAdapter struct {
	name      string
	cacheable bool
	calls     atomic.Int64
	search    func(ctx context.Context, query *qa.Query, p *qa.Provider) *qa.Answer
}

func (s *stubAdapter) Descriptor() providers.Descriptor {
	return providers.Descriptor{Name: s.name, Cacheable: s.cacheable, Schema: providers.Schema{}}
}

func (s *stubAdapter) Search(ctx context.Context, query *qa.Query, p *qa.Provider) *qa.Answer {
	s.calls.Add(1)
	return s.search(ctx, query, p)
}

func answering(name string, keys ...string) *stubAdapter {
	return &stubAdapter{name: name, cacheable: true, search: func(_ context.Context, _ *qa.Query, _ *qa.Provider) *qa.Answer {
		return qa.ChoiceAnswer(name, keys)
	}}
}

func failing(name string, kind qa.ErrorKind) *stubAdapter {
	return &stubAdapter{name: name, cacheable: true, search: func(_ context.Context, q *qa.Query, _ *qa.Provider) *qa.Answer {
		return qa.Failure(name, q.Type, kind, "boom")
	}}
}

// stubStore is a scriptable engine.Cache.
type stubStore struct {
	mu       sync.Mutex
	question *cache.Question
	answers  map[string]*qa.Answer
	saved    [][]cache.ProviderAnswer
}

func (s *stubStore) FindQuestion(context.Context, string, qa.QuestionType, []string) (*cache.Question, error) {
	return s.question, nil
}

func (s *stubStore) CachedAnswers(_ context.Context, _ int64, names []string) (map[string]*qa.Answer, error) {
	out := make(map[string]*qa.Answer, len(names))
	for _, n := range names {
		out[n] = s.answers[n]
	}
	return out, nil
}

func (s *stubStore) SaveAnswers(_ context.Context, _ *qa.Query, pairs []cache.ProviderAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved = append(s.saved, pairs)
	return nil
}

func newTestRegistry(t *testing.T, adapters ...providers.Adapter) *providers.Registry {
	t.Helper()
	r := providers.NewRegistry()
	for _, a := range adapters {
		require.NoError(t, r.Register(a))
	}
	return r
}

func singleQuery() *qa.Query {
	return &qa.Query{Content: "题目", Type: qa.TypeSingle, Options: []string{"甲", "乙", "丙"}}
}

func TestSearchEmptyProviderListFails(t *testing.T) {
	e := New(providers.NewRegistry(), nil, testLogger(), 0)
	_, err := e.Search(context.Background(), singleQuery(), nil)
	assert.ErrorIs(t, err, ErrNoProviders)
}

func TestSearchFaultIsolation(t *testing.T) {
	reg := newTestRegistry(t, answering("good", "A"), failing("bad", qa.ErrNetwork))
	e := New(reg, nil, testLogger(), 0)

	res, err := e.Search(context.Background(), singleQuery(), []*qa.Provider{
		{Name: "good"}, {Name: "bad"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Total())
	assert.Equal(t, 1, res.Successful)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, []string{"A"}, res.Unified.AnswerKey)

	byName := make(map[string]*qa.Answer)
	for _, a := range res.Answers {
		byName[a.Provider] = a
	}
	require.Contains(t, byName, "bad")
	assert.Equal(t, qa.ErrNetwork, byName["bad"].ErrorType)
}

func TestSearchPanicBecomesUnknownFailure(t *testing.T) {
	panicky := &stubAdapter{name: "panicky", cacheable: true, search: func(context.Context, *qa.Query, *qa.Provider) *qa.Answer {
		panic("adapter bug")
	}}
	reg := newTestRegistry(t, panicky, answering("good", "B"))
	e := New(reg, nil, testLogger(), 0)

	res, err := e.Search(context.Background(), singleQuery(), []*qa.Provider{
		{Name: "panicky"}, {Name: "good"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Total())
	assert.Equal(t, 1, res.Successful)
	for _, a := range res.Answers {
		if a.Provider == "panicky" {
			assert.False(t, a.Success)
			assert.Equal(t, qa.ErrUnknown, a.ErrorType)
			assert.Contains(t, a.ErrorMessage, "panic")
		}
	}
}

func TestSearchUnknownProviderOmitted(t *testing.T) {
	reg := newTestRegistry(t, answering("good", "A"))
	e := New(reg, nil, testLogger(), 0)

	res, err := e.Search(context.Background(), singleQuery(), []*qa.Provider{
		{Name: "good"}, {Name: "没有这个题库"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total())
	assert.Equal(t, "good", res.Answers[0].Provider)
}

func TestSearchConcurrencyBound(t *testing.T) {
	const bound = 3
	var current, peak atomic.Int64

	var adapters []providers.Adapter
	var list []*qa.Provider
	for _, name := range []string{"a1", "a2", "a3", "a4", "a5", "a6", "a7", "a8"} {
		name := name
		adapters = append(adapters, &stubAdapter{name: name, cacheable: true, search: func(context.Context, *qa.Query, *qa.Provider) *qa.Answer {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			current.Add(-1)
			return qa.ChoiceAnswer(name, []string{"A"})
		}})
		list = append(list, &qa.Provider{Name: name})
	}

	e := New(newTestRegistry(t, adapters...), nil, testLogger(), bound)
	res, err := e.Search(context.Background(), singleQuery(), list)
	require.NoError(t, err)

	assert.Equal(t, 8, res.Total())
	assert.LessOrEqual(t, peak.Load(), int64(bound))
}

func TestSearchCacheHitSkipsDispatch(t *testing.T) {
	good := answering("good", "A")
	store := &stubStore{
		question: &cache.Question{ID: 1},
		answers: map[string]*qa.Answer{
			"good": {Provider: "good", Type: qa.TypeSingle, Choice: []string{"B"}, Success: true},
		},
	}
	e := New(newTestRegistry(t, good), store, testLogger(), 0)

	res, err := e.Search(context.Background(), singleQuery(), []*qa.Provider{{Name: "good"}})
	require.NoError(t, err)

	assert.Equal(t, int64(0), good.calls.Load())
	assert.Equal(t, 1, res.Total())
	assert.Equal(t, []string{"B"}, res.Unified.AnswerKey)
}

func TestSearchCachedEntriesPrecedeFanout(t *testing.T) {
	hit := answering("hit", "A")
	miss := answering("miss", "C")
	store := &stubStore{
		question: &cache.Question{ID: 1},
		answers: map[string]*qa.Answer{
			"hit": {Provider: "hit", Type: qa.TypeSingle, Choice: []string{"A"}, Success: true},
		},
	}
	e := New(newTestRegistry(t, hit, miss), store, testLogger(), 0)

	res, err := e.Search(context.Background(), singleQuery(), []*qa.Provider{
		{Name: "miss"}, {Name: "hit"},
	})
	require.NoError(t, err)

	require.Equal(t, 2, res.Total())
	assert.Equal(t, "hit", res.Answers[0].Provider)
	assert.Equal(t, "miss", res.Answers[1].Provider)
	assert.Equal(t, int64(0), hit.calls.Load())
	assert.Equal(t, int64(1), miss.calls.Load())
}

func TestSearchWriteThroughOnlyCacheable(t *testing.T) {
	cacheable := answering("bank", "A")
	uncacheable := &stubAdapter{name: "Local2", cacheable: false, search: func(context.Context, *qa.Query, *qa.Provider) *qa.Answer {
		return qa.ChoiceAnswer("Local2", []string{"A"})
	}}
	broken := failing("broken", qa.ErrAPI)

	store := &stubStore{}
	e := New(newTestRegistry(t, cacheable, uncacheable, broken), store, testLogger(), 0)

	_, err := e.Search(context.Background(), singleQuery(), []*qa.Provider{
		{Name: "bank"}, {Name: "Local2"}, {Name: "broken"},
	})
	require.NoError(t, err)
	e.Wait()

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.saved, 1)
	require.Len(t, store.saved[0], 1)
	assert.Equal(t, "bank", store.saved[0][0].Provider.Name)
}

func TestSearchLocalBypassesBatchLookup(t *testing.T) {
	localStub := &stubAdapter{name: "Local", cacheable: false, search: func(_ context.Context, q *qa.Query, _ *qa.Provider) *qa.Answer {
		return qa.Failure("Local", q.Type, qa.ErrCacheMiss, "缓存中未找到该题目")
	}}
	store := &stubStore{} // no question row: batched lookup would miss anyway
	e := New(newTestRegistry(t, localStub), store, testLogger(), 0)

	res, err := e.Search(context.Background(), singleQuery(), []*qa.Provider{{Name: "Local"}})
	require.NoError(t, err)

	assert.Equal(t, int64(1), localStub.calls.Load())
	require.Equal(t, 1, res.Total())
	assert.Equal(t, qa.ErrCacheMiss, res.Answers[0].ErrorType)
}
