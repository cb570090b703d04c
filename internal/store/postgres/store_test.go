package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/luanbrandao/newswatch/internal/news"
	"github.com/luanbrandao/newswatch/internal/store"
)

func TestSaveNewInsertsFreshCandidates(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithPool(mock)
	require.NoError(t, err)

	candidates := []news.Candidate{
		{Title: "Economy grows in second quarter", URL: "https://g1.globo.com/economia/a"},
		{Title: "New vaccine rollout announced", URL: "https://g1.globo.com/saude/b"},
	}

	mock.ExpectQuery("SELECT url FROM articles").
		WithArgs([]string{candidates[0].URL, candidates[1].URL}).
		WillReturnRows(pgxmock.NewRows([]string{"url"}))

	mock.ExpectExec("INSERT INTO articles").
		WithArgs(candidates[0].Title, candidates[0].URL, candidates[1].Title, candidates[1].URL).
		WillReturnResult(pgxmock.NewResult("INSERT", 2))

	saved, err := s.SaveNew(context.Background(), candidates)
	require.NoError(t, err)
	require.Equal(t, 2, saved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveNewSkipsKnownURLs(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithPool(mock)
	require.NoError(t, err)

	candidates := []news.Candidate{
		{Title: "Economy grows in second quarter", URL: "https://g1.globo.com/economia/a"},
		{Title: "New vaccine rollout announced", URL: "https://g1.globo.com/saude/b"},
	}

	mock.ExpectQuery("SELECT url FROM articles").
		WithArgs([]string{candidates[0].URL, candidates[1].URL}).
		WillReturnRows(pgxmock.NewRows([]string{"url"}).AddRow(candidates[0].URL))

	mock.ExpectExec("INSERT INTO articles").
		WithArgs(candidates[1].Title, candidates[1].URL).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	saved, err := s.SaveNew(context.Background(), candidates)
	require.NoError(t, err)
	require.Equal(t, 1, saved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveNewAllKnownSkipsInsert(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithPool(mock)
	require.NoError(t, err)

	c := news.Candidate{Title: "Economy grows in second quarter", URL: "https://g1.globo.com/economia/a"}

	mock.ExpectQuery("SELECT url FROM articles").
		WithArgs([]string{c.URL}).
		WillReturnRows(pgxmock.NewRows([]string{"url"}).AddRow(c.URL))

	saved, err := s.SaveNew(context.Background(), []news.Candidate{c})
	require.NoError(t, err)
	require.Equal(t, 0, saved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveNewEmptyBatch(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithPool(mock)
	require.NoError(t, err)

	saved, err := s.SaveNew(context.Background(), nil)
	require.NoError(t, err)
	require.Equal(t, 0, saved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveNewConcurrentConflictCountsOnlyInserted(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithPool(mock)
	require.NoError(t, err)

	c := news.Candidate{Title: "Economy grows in second quarter", URL: "https://g1.globo.com/economia/a"}

	// Pre-select misses the row, but a concurrent writer wins the insert
	// race and ON CONFLICT drops ours.
	mock.ExpectQuery("SELECT url FROM articles").
		WithArgs([]string{c.URL}).
		WillReturnRows(pgxmock.NewRows([]string{"url"}))

	mock.ExpectExec("INSERT INTO articles").
		WithArgs(c.Title, c.URL).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	saved, err := s.SaveNew(context.Background(), []news.Candidate{c})
	require.NoError(t, err)
	require.Equal(t, 0, saved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveNewWrapsPersistError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithPool(mock)
	require.NoError(t, err)

	c := news.Candidate{Title: "Economy grows in second quarter", URL: "https://g1.globo.com/economia/a"}

	mock.ExpectQuery("SELECT url FROM articles").
		WithArgs([]string{c.URL}).
		WillReturnError(context.DeadlineExceeded)

	_, err = s.SaveNew(context.Background(), []news.Candidate{c})
	var perr *store.PersistError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "select existing", perr.Op)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestListReturnsNewestFirst(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithPool(mock)
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()

	mock.ExpectQuery("SELECT id, title, url, created_at").
		WithArgs(2, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "url", "created_at"}).
			AddRow(int64(2), "New vaccine rollout announced", "https://g1.globo.com/saude/b", now).
			AddRow(int64(1), "Economy grows in second quarter", "https://g1.globo.com/economia/a", now.Add(-time.Hour)))

	articles, err := s.List(context.Background(), 2, 0)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	require.Equal(t, int64(2), articles[0].ID)
	require.Equal(t, "New vaccine rollout announced", articles[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListDefaultsLimit(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	s, err := NewWithPool(mock)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, title, url, created_at").
		WithArgs(store.DefaultLimit, 0).
		WillReturnRows(pgxmock.NewRows([]string{"id", "title", "url", "created_at"}))

	articles, err := s.List(context.Background(), 0, -5)
	require.NoError(t, err)
	require.Empty(t, articles)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewWithPoolRequiresPool(t *testing.T) {
	t.Parallel()

	_, err := NewWithPool(nil)
	require.Error(t, err)
}
