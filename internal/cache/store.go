// Package cache implements the semantic answer cache.
//
// Lookup is two-tier: an exact match on the normalized question key
// (normalized content, type, sorted normalized options), then a cosine
// nearest-neighbor search over stored question embeddings. Reads for a
// request are batched into one round-trip per question; writes go through a
// single idempotent upsert path that deduplicates answers by payload shape.
//
// Option presence is matched bidirectionally: a question stored without
// options never satisfies a request that carries options, and vice versa.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/tikuhub/tikuhub/internal/embedding"
	"github.com/tikuhub/tikuhub/internal/normalize"
	"github.com/tikuhub/tikuhub/internal/qa"
)

// Tuning constants for the approximate lookup. Empirical, not contractual.
const (
	SimilarityThreshold = 0.82
	TopK                = 5
)

// Question is a cached question row.
type Question struct {
	ID                int64
	Content           string
	Type              qa.QuestionType
	Options           []string
	NormalizedOptions []string
}

// ProviderAnswer pairs a provider with the answer it produced, for
// write-through.
type ProviderAnswer struct {
	Provider qa.Provider
	Answer   *qa.Answer
}

// Store provides cache lookups and write-through over the shared pool.
// The embedding client may be nil, in which case the store runs in
// exact-match-only degraded mode.
type Store struct {
	pool   *pgxpool.Pool
	embed  *embedding.Client
	logger *slog.Logger
}

// New creates a Store. logger must not be nil.
func New(pool *pgxpool.Pool, embed *embedding.Client, logger *slog.Logger) *Store {
	return &Store{pool: pool, embed: embed, logger: logger}
}

// FindQuestion resolves a query to a cached question row, or nil on miss.
// Exact lookup runs first; the vector lookup only on an exact miss and only
// when the embedding client is available.
func (s *Store) FindQuestion(ctx context.Context, content string, qtype qa.QuestionType, options []string) (*Question, error) {
	q, err := s.findExact(ctx, content, qtype, options)
	if err != nil || q != nil {
		return q, err
	}
	return s.findByEmbedding(ctx, content, qtype, options)
}

func (s *Store) findExact(ctx context.Context, content string, qtype qa.QuestionType, options []string) (*Question, error) {
	normContent := normalize.Text(content)
	normOptions := normalize.Options(options)

	query := `
		SELECT id, content, type, options, normalized_options
		FROM questions
		WHERE normalized_content = $1 AND type = $2`
	args := []any{normContent, int(qtype)}

	if normOptions != nil {
		optJSON, err := json.Marshal(normOptions)
		if err != nil {
			return nil, fmt.Errorf("encode normalized options: %w", err)
		}
		query += ` AND normalized_options = $3::jsonb`
		args = append(args, string(optJSON))
	} else {
		query += ` AND normalized_options IS NULL`
	}
	query += ` LIMIT 1`

	row := s.pool.QueryRow(ctx, query, args...)
	q, err := scanQuestion(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return q, err
}

func (s *Store) findByEmbedding(ctx context.Context, content string, qtype qa.QuestionType, options []string) (*Question, error) {
	if s.embed == nil {
		return nil, nil
	}

	vec, err := s.embed.EmbedQuery(ctx, embedding.BuildText(content, options))
	if err != nil {
		// Degrade to exact-only rather than failing the lookup.
		s.logger.Warn("query embedding failed, skipping semantic lookup", "error", err)
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, content, type, options, normalized_options,
		       embedding <=> $1 AS distance
		FROM questions
		WHERE type = $2 AND embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $3`,
		pgvector.NewVector(vec), int(qtype), TopK)
	if err != nil {
		return nil, fmt.Errorf("semantic lookup: %w", err)
	}
	defer rows.Close()

	normOptions := normalize.Options(options)
	for rows.Next() {
		var (
			q        Question
			t        int
			optsJSON []byte
			normJSON []byte
			distance float64
		)
		if err := rows.Scan(&q.ID, &q.Content, &t, &optsJSON, &normJSON, &distance); err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		if 1-distance < SimilarityThreshold {
			// Candidates arrive in ascending distance order; once one falls
			// below the threshold the rest do too.
			break
		}
		q.Type = qa.QuestionType(t)
		if err := unmarshalStrings(optsJSON, &q.Options); err != nil {
			return nil, err
		}
		if err := unmarshalStrings(normJSON, &q.NormalizedOptions); err != nil {
			return nil, err
		}
		// Option presence must match bidirectionally, and present options
		// must be equal after normalization.
		if (q.NormalizedOptions == nil) != (normOptions == nil) {
			continue
		}
		if q.NormalizedOptions != nil && !slices.Equal(q.NormalizedOptions, normOptions) {
			continue
		}
		s.logger.Debug("semantic cache hit", "question_id", q.ID, "similarity", 1-distance)
		return &q, nil
	}
	return nil, rows.Err()
}

// CachedAnswers returns, in one round-trip, the cached answer of each named
// provider for the given question. The result key set equals the input name
// set; misses map to nil.
func (s *Store) CachedAnswers(ctx context.Context, questionID int64, providerNames []string) (map[string]*qa.Answer, error) {
	out := make(map[string]*qa.Answer, len(providerNames))
	for _, n := range providerNames {
		out[n] = nil
	}
	if len(providerNames) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT qpa.provider_name, a.type, a.choice, a.judgement, a.text
		FROM question_provider_answers qpa
		JOIN answers a ON a.id = qpa.answer_id
		WHERE qpa.question_id = $1 AND qpa.provider_name = ANY($2)`,
		questionID, providerNames)
	if err != nil {
		return nil, fmt.Errorf("batch answer lookup: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		name, ans, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		ans.Provider = name
		out[name] = ans
	}
	return out, rows.Err()
}

// AnyAnswer returns one cached answer for the question regardless of which
// provider produced it, or nil when none exists. Used by the local-cache
// adapter.
func (s *Store) AnyAnswer(ctx context.Context, questionID int64) (*qa.Answer, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT qpa.provider_name, a.type, a.choice, a.judgement, a.text
		FROM question_provider_answers qpa
		JOIN answers a ON a.id = qpa.answer_id
		WHERE qpa.question_id = $1
		LIMIT 1`,
		questionID)
	if err != nil {
		return nil, fmt.Errorf("cached answer lookup: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	_, ans, err := scanAnswer(rows)
	return ans, err
}

// SaveAnswers write-throughs a batch of provider answers for one query.
// The question is upserted once (with its passage embedding on creation),
// answers are deduplicated by payload shape, and each (question, provider)
// cell is replaced last-writer-wins. The whole batch is idempotent.
func (s *Store) SaveAnswers(ctx context.Context, query *qa.Query, pairs []ProviderAnswer) error {
	if len(pairs) == 0 {
		return nil
	}

	questionID, err := s.findOrCreateQuestion(ctx, query)
	if err != nil {
		return err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin write-through: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, pa := range pairs {
		answerID, err := findOrCreateAnswer(ctx, tx, pa.Answer)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO question_provider_answers (question_id, provider_name, answer_id)
			VALUES ($1, $2, $3)
			ON CONFLICT (question_id, provider_name)
			DO UPDATE SET answer_id = EXCLUDED.answer_id, updated_at = now()`,
			questionID, pa.Provider.Name, answerID)
		if err != nil {
			return fmt.Errorf("upsert answer for %s: %w", pa.Provider.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit write-through: %w", err)
	}
	return nil
}

func (s *Store) findOrCreateQuestion(ctx context.Context, query *qa.Query) (int64, error) {
	if q, err := s.FindQuestion(ctx, query.Content, query.Type, query.Options); err != nil {
		return 0, err
	} else if q != nil {
		return q.ID, nil
	}

	var vec *pgvector.Vector
	if s.embed != nil {
		raw, err := s.embed.EmbedPassage(ctx, embedding.BuildText(query.Content, query.Options))
		if err != nil {
			s.logger.Warn("passage embedding failed, storing question without vector", "error", err)
		} else {
			v := pgvector.NewVector(raw)
			vec = &v
		}
	}

	optJSON, err := marshalStrings(query.Options)
	if err != nil {
		return 0, err
	}
	normJSON, err := marshalStrings(normalize.Options(query.Options))
	if err != nil {
		return 0, err
	}

	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO questions (content, normalized_content, type, options, normalized_options, embedding)
		VALUES ($1, $2, $3, $4::jsonb, $5::jsonb, $6)
		ON CONFLICT (normalized_content, type, coalesce(normalized_options, 'null'::jsonb))
		DO NOTHING
		RETURNING id`,
		query.Content, normalize.Text(query.Content), int(query.Type), optJSON, normJSON, vec,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		// Lost the create race; the winner's row carries the dedup key.
		q, err := s.findExact(ctx, query.Content, query.Type, query.Options)
		if err != nil {
			return 0, err
		}
		if q == nil {
			return 0, errors.New("question vanished after insert conflict")
		}
		return q.ID, nil
	}
	if err != nil {
		return 0, fmt.Errorf("insert question: %w", err)
	}
	return id, nil
}

func findOrCreateAnswer(ctx context.Context, tx pgx.Tx, ans *qa.Answer) (int64, error) {
	choiceJSON, err := marshalStrings(ans.Choice)
	if err != nil {
		return 0, err
	}
	textJSON, err := marshalStrings(ans.Text)
	if err != nil {
		return 0, err
	}

	// Payload-shape dedup with null-aware equality. No semantic merging:
	// "对" and "正确" stay distinct rows; voting handles equivalence.
	var id int64
	err = tx.QueryRow(ctx, `
		SELECT id FROM answers
		WHERE type = $1
		  AND choice IS NOT DISTINCT FROM $2::jsonb
		  AND judgement IS NOT DISTINCT FROM $3
		  AND text IS NOT DISTINCT FROM $4::jsonb
		LIMIT 1`,
		int(ans.Type), choiceJSON, ans.Judgement, textJSON,
	).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("answer dedup lookup: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO answers (type, choice, judgement, text)
		VALUES ($1, $2::jsonb, $3, $4::jsonb)
		RETURNING id`,
		int(ans.Type), choiceJSON, ans.Judgement, textJSON,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert answer: %w", err)
	}
	return id, nil
}

func scanQuestion(row pgx.Row) (*Question, error) {
	var (
		q        Question
		t        int
		optsJSON []byte
		normJSON []byte
	)
	if err := row.Scan(&q.ID, &q.Content, &t, &optsJSON, &normJSON); err != nil {
		return nil, err
	}
	q.Type = qa.QuestionType(t)
	if err := unmarshalStrings(optsJSON, &q.Options); err != nil {
		return nil, err
	}
	if err := unmarshalStrings(normJSON, &q.NormalizedOptions); err != nil {
		return nil, err
	}
	return &q, nil
}

func scanAnswer(rows pgx.Rows) (string, *qa.Answer, error) {
	var (
		name       string
		t          int
		choiceJSON []byte
		judgement  *bool
		textJSON   []byte
	)
	if err := rows.Scan(&name, &t, &choiceJSON, &judgement, &textJSON); err != nil {
		return "", nil, fmt.Errorf("scan answer: %w", err)
	}
	ans := &qa.Answer{Type: qa.QuestionType(t), Judgement: judgement, Success: true}
	if err := unmarshalStrings(choiceJSON, &ans.Choice); err != nil {
		return "", nil, err
	}
	if err := unmarshalStrings(textJSON, &ans.Text); err != nil {
		return "", nil, err
	}
	return name, ans, nil
}

// marshalStrings renders a string slice as jsonb input, mapping nil and
// empty to SQL NULL so null-aware dedup works.
func marshalStrings(s []string) (*string, error) {
	if len(s) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode string list: %w", err)
	}
	out := string(b)
	return &out, nil
}

func unmarshalStrings(b []byte, dst *[]string) error {
	if len(b) == 0 {
		*dst = nil
		return nil
	}
	if err := json.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("decode string list: %w", err)
	}
	return nil
}
