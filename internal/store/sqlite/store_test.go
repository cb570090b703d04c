package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luanbrandao/newswatch/internal/news"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "newswatch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveNew_FreshBatchInsertsAll(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	batch := []news.Candidate{
		{Title: "Manchete numero um do dia", URL: "https://g1.globo.com/1"},
		{Title: "Manchete numero dois do dia", URL: "https://g1.globo.com/2"},
	}

	n, err := s.SaveNew(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	articles, err := s.List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Len(t, articles, 2)
}

func TestSaveNew_OverlappingBatchCountsOnlyNew(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	_, err := s.SaveNew(ctx, []news.Candidate{
		{Title: "already there", URL: "https://g1.globo.com/old"},
	})
	require.NoError(t, err)

	n, err := s.SaveNew(ctx, []news.Candidate{
		{Title: "already there", URL: "https://g1.globo.com/old"},
		{Title: "brand new", URL: "https://g1.globo.com/new"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	articles, err := s.List(ctx, 10, 0)
	require.NoError(t, err)
	assert.Len(t, articles, 2)
}

func TestSaveNew_EmptyBatchDoesNotTouchStorage(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	n, err := s.SaveNew(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSaveNew_ConcurrentSharedURL(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	shared := news.Candidate{Title: "shared headline here", URL: "https://g1.globo.com/shared"}

	var wg sync.WaitGroup
	counts := make([]int, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			n, err := s.SaveNew(context.Background(), []news.Candidate{shared})
			require.NoError(t, err)
			counts[i] = n
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, counts[0]+counts[1], 1)

	articles, err := s.List(context.Background(), 10, 0)
	require.NoError(t, err)
	assert.Len(t, articles, 1, "unique url invariant holds under concurrency")
}

func TestList_OrderLimitOffset(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	ctx := context.Background()

	// Same created_at for all rows in this batch; id breaks the tie so
	// later inserts still list first.
	var batch []news.Candidate
	for i := 0; i < 5; i++ {
		batch = append(batch, news.Candidate{
			Title: fmt.Sprintf("Manchete de teste numero %d", i),
			URL:   fmt.Sprintf("https://g1.globo.com/%d", i),
		})
	}
	_, err := s.SaveNew(ctx, batch)
	require.NoError(t, err)

	page, err := s.List(ctx, 2, 1)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "https://g1.globo.com/3", page[0].URL)
	assert.Equal(t, "https://g1.globo.com/2", page[1].URL)
}

func TestList_DefaultLimit(t *testing.T) {
	t.Parallel()

	s := openTestStore(t)
	articles, err := s.List(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Empty(t, articles)
}
