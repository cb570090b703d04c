// Package store defines the article persistence contract. Implementations
// must provide an atomic insert-if-absent on the unique url column so that
// concurrent savers can never insert the same url twice.
package store

import (
	"context"
	"fmt"

	"github.com/luanbrandao/newswatch/internal/news"
)

// DefaultLimit is the page size used when a caller does not specify one.
const DefaultLimit = 100

// ArticleStore persists extracted candidates and lists stored articles.
type ArticleStore interface {
	// SaveNew inserts candidates whose urls are not yet stored and returns
	// the count actually inserted. The count must reflect the conditional
	// insert itself, not a prior existence check, so overlapping concurrent
	// calls cannot both claim the same url. Empty input returns 0 without
	// touching storage.
	SaveNew(ctx context.Context, candidates []news.Candidate) (int, error)

	// List returns stored articles newest first.
	List(ctx context.Context, limit, offset int) ([]news.Article, error)

	Close() error
}

// PersistError wraps a storage engine failure during a save.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
