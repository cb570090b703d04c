// Package sqlite provides the default SQLite-backed ArticleStore.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/luanbrandao/newswatch/internal/news"
	"github.com/luanbrandao/newswatch/internal/store"
)

// Store persists articles in a single SQLite file. The url column carries a
// UNIQUE constraint and inserts use ON CONFLICT DO NOTHING, so the insert
// itself is the dedupe step.
type Store struct {
	db   *sql.DB
	path string
}

var _ store.ArticleStore = (*Store)(nil)

// Open opens or creates the database file, enabling WAL and creating the
// schema when missing. The parent directory is created as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite supports one writer; keep the pool at a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, path: path}
	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS articles (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		url TEXT NOT NULL UNIQUE,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_articles_created_at ON articles(created_at);
	`
	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveNew implements store.ArticleStore. All candidate rows go through one
// transaction; the per-row conditional insert reports via RowsAffected
// whether the url was new, which keeps the returned count correct even when
// another writer slipped in between.
func (s *Store) SaveNew(ctx context.Context, candidates []news.Candidate) (int, error) {
	if len(candidates) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, &store.PersistError{Op: "begin", Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO articles (title, url, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(url) DO NOTHING`)
	if err != nil {
		return 0, &store.PersistError{Op: "prepare insert", Err: err}
	}
	defer func() { _ = stmt.Close() }()

	now := time.Now().UTC()
	inserted := 0
	for _, c := range candidates {
		res, err := stmt.ExecContext(ctx, c.Title, c.URL, now)
		if err != nil {
			return 0, &store.PersistError{Op: "insert article", Err: err}
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, &store.PersistError{Op: "rows affected", Err: err}
		}
		inserted += int(affected)
	}

	if err := tx.Commit(); err != nil {
		return 0, &store.PersistError{Op: "commit", Err: err}
	}
	return inserted, nil
}

// List implements store.ArticleStore.
func (s *Store) List(ctx context.Context, limit, offset int) ([]news.Article, error) {
	if limit <= 0 {
		limit = store.DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, url, created_at
		FROM articles
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query articles: %w", err)
	}
	defer func() { _ = rows.Close() }()

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
