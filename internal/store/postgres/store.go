// Package postgres provides a Postgres-backed ArticleStore.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/luanbrandao/newswatch/internal/news"
	"github.com/luanbrandao/newswatch/internal/store"
)

// Config controls the connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Close()
}

// Store writes article rows into Postgres. The articles table carries a
// UNIQUE constraint on url; SaveNew relies on ON CONFLICT DO NOTHING for
// race-safe dedupe.
type Store struct {
	pool querier
}

var _ store.ArticleStore = (*Store)(nil)

const schema = `
CREATE TABLE IF NOT EXISTS articles (
	id BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	title VARCHAR(500) NOT NULL,
	url VARCHAR(1000) NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_articles_created_at ON articles(created_at DESC);
`

// New connects a pool and ensures the schema exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &Store{pool: pool}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// NewWithPool constructs a Store from an existing pool (primarily for
// testing with pgxmock).
func NewWithPool(pool querier) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() error {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// SaveNew implements store.ArticleStore. A pre-select trims already-present
// urls from the batch as an optimization; correctness rests on the final
// conditional insert, whose RowsAffected is the returned count.
func (s *Store) SaveNew(ctx context.Context, candidates []news.Candidate) (int, error) {
	if len(candidates) == 0 {
		return 0, nil
	}

	urls := make([]string, len(candidates))
	for i, c := range candidates {
		urls[i] = c.URL
	}
	existing, err := s.existingURLs(ctx, urls)
	if err != nil {
		return 0, &store.PersistError{Op: "select existing", Err: err}
	}

	fresh := candidates[:0:0]
	for _, c := range candidates {
		if _, ok := existing[c.URL]; !ok {
			fresh = append(fresh, c)
		}
	}
	if len(fresh) == 0 {
		return 0, nil
	}

	query, args := buildInsert(fresh)
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, &store.PersistError{Op: "insert articles", Err: err}
	}
	return int(tag.RowsAffected()), nil
}

func (s *Store) existingURLs(ctx context.Context, urls []string) (map[string]struct{}, error) {
	rows, err := s.pool.Query(ctx, `SELECT url FROM articles WHERE url = ANY($1)`, urls)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	existing := make(map[string]struct{})
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		existing[u] = struct{}{}
	}
	return existing, rows.Err()
}

func buildInsert(candidates []news.Candidate) (string, []any) {
	var sb strings.Builder
	sb.WriteString("INSERT INTO articles (title, url) VALUES ")
	args := make([]any, 0, len(candidates)*2)
	for i, c := range candidates {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "($%d, $%d)", i*2+1, i*2+2)
		args = append(args, c.Title, c.URL)
	}
	sb.WriteString(" ON CONFLICT (url) DO NOTHING")
	return sb.String(), args
}

// List implements store.ArticleStore.
func (s *Store) List(ctx context.Context, limit, offset int) ([]news.Article, error) {
	if limit <= 0 {
		limit = store.DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, title, url, created_at
		FROM articles
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer rows.Close()

	articles := []news.Article{}
	for rows.Next() {
		var a news.Article
		if err := rows.Scan(&a.ID, &a.Title, &a.URL, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return articles, nil
}
