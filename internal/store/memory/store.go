// Package memory provides an in-memory ArticleStore for tests and local
// development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/luanbrandao/newswatch/internal/news"
	"github.com/luanbrandao/newswatch/internal/store"
)

// Store keeps articles in a url-keyed map guarded by a mutex. The map lookup
// and insert happen under one lock acquisition, which is this backend's
// equivalent of the SQL conditional insert.
type Store struct {
	mu     sync.Mutex
	byURL  map[string]news.Article
	nextID int64
	now    func() time.Time
}

var _ store.ArticleStore = (*Store)(nil)

// New builds an empty Store.
func New() *Store {
	return &Store{
		byURL:  make(map[string]news.Article),
		nextID: 1,
		now:    time.Now,
	}
}

// WithClock overrides the timestamp source. Test hook.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// SaveNew implements store.ArticleStore.
func (s *Store) SaveNew(_ context.Context, candidates []news.Candidate) (int, error) {
	if len(candidates) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inserted := 0
	for _, c := range candidates {
		if _, exists := s.byURL[c.URL]; exists {
			continue
		}
		s.byURL[c.URL] = news.Article{
			ID:        s.nextID,
			Title:     c.Title,
			URL:       c.URL,
			CreatedAt: s.now(),
		}
		s.nextID++
		inserted++
	}
	return inserted, nil
}

// List implements store.ArticleStore.
func (s *Store) List(_ context.Context, limit, offset int) ([]news.Article, error) {
	if limit <= 0 {
		limit = store.DefaultLimit
	}
	if offset < 0 {
		offset = 0
	}
	s.mu.Lock()
	all := make([]news.Article, 0, len(s.byURL))
	for _, a := range s.byURL {
		all = append(all, a)
	}
	s.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	if offset >= len(all) {
		return []news.Article{}, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], nil
}

// Close implements store.ArticleStore.
func (s *Store) Close() error { return nil }

// Len reports the number of stored articles. Test helper.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byURL)
}
