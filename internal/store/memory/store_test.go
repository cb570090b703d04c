package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luanbrandao/newswatch/internal/news"
)

func TestSaveNew_InsertsAll(t *testing.T) {
	t.Parallel()

	s := New()
	batch := []news.Candidate{
		{Title: "first", URL: "https://g1.globo.com/1"},
		{Title: "second", URL: "https://g1.globo.com/2"},
		{Title: "third", URL: "https://g1.globo.com/3"},
	}

	n, err := s.SaveNew(context.Background(), batch)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, s.Len())
}

func TestSaveNew_SkipsExisting(t *testing.T) {
	t.Parallel()

	s := New()
	_, err := s.SaveNew(context.Background(), []news.Candidate{
		{Title: "first", URL: "https://g1.globo.com/1"},
	})
	require.NoError(t, err)

	n, err := s.SaveNew(context.Background(), []news.Candidate{
		{Title: "first", URL: "https://g1.globo.com/1"},
		{Title: "second", URL: "https://g1.globo.com/2"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 2, s.Len())
}

func TestSaveNew_EmptyBatch(t *testing.T) {
	t.Parallel()

	s := New()
	n, err := s.SaveNew(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSaveNew_ConcurrentOverlap(t *testing.T) {
	t.Parallel()

	s := New()
	shared := news.Candidate{Title: "shared", URL: "https://g1.globo.com/shared"}

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

	assert.Equal(t, 1, counts[0]+counts[1], "exactly one writer wins the shared url")
	assert.Equal(t, 1, s.Len())
}

func TestList_NewestFirst(t *testing.T) {
	t.Parallel()

	base := time.Unix(1700000000, 0)
	tick := 0
	s := New().WithClock(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	})

	for i := 0; i < 5; i++ {
		_, err := s.SaveNew(context.Background(), []news.Candidate{
			{Title: fmt.Sprintf("title %d", i), URL: fmt.Sprintf("https://g1.globo.com/%d", i)},
		})
		require.NoError(t, err)
	}

	articles, err := s.List(context.Background(), 3, 0)
	require.NoError(t, err)
	require.Len(t, articles, 3)
	assert.Equal(t, "https://g1.globo.com/4", articles[0].URL)
	assert.Equal(t, "https://g1.globo.com/3", articles[1].URL)
	assert.Equal(t, "https://g1.globo.com/2", articles[2].URL)
}

func TestList_OffsetBeyondEnd(t *testing.T) {
	t.Parallel()

	s := New()
	_, err := s.SaveNew(context.Background(), []news.Candidate{
		{Title: "only", URL: "https://g1.globo.com/only"},
	})
	require.NoError(t, err)

	articles, err := s.List(context.Background(), 10, 5)
	require.NoError(t, err)
	assert.Empty(t, articles)
}
