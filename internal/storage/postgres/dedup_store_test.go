package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (pgxmock.PgxPoolIface, *DedupStore) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	store, err := NewDedupStoreWithPool(mock, "")
	require.NoError(t, err)
	store.now = func() time.Time { return time.Unix(1_700_000_000, 0).UTC() }
	return mock, store
}

func TestDedupStore_EnsureSchema(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	defer mock.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS sent_jobs").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))

	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDedupStore_Contains(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM sent_jobs WHERE url = \$1\)`).
		WithArgs("https://acme.example/careers/1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := store.Contains(context.Background(), "https://acme.example/careers/1")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDedupStore_AddInsertsRow(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO sent_jobs").
		WithArgs("https://acme.example/careers/1", time.Unix(1_700_000_000, 0).UTC()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Add(context.Background(), "https://acme.example/careers/1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDedupStore_AddPropagatesError(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	defer mock.Close()

	mock.ExpectExec("INSERT INTO sent_jobs").
		WithArgs("k", pgxmock.AnyArg()).
		WillReturnError(errors.New("connection refused"))

	err := store.Add(context.Background(), "k")
	require.ErrorContains(t, err, "connection refused")
}

func TestDedupStore_Len(t *testing.T) {
	t.Parallel()

	mock, store := newMockStore(t)
	defer mock.Close()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM sent_jobs`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(7)))

	n, err := store.Len(context.Background())
	require.NoError(t, err)
	require.Equal(t, 7, n)
}

func TestNewDedupStoreWithPool_Validation(t *testing.T) {
	t.Parallel()

	_, err := NewDedupStoreWithPool(nil, "")
	require.Error(t, err)

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()
	_, err = NewDedupStoreWithPool(mock, "sent_jobs; DROP TABLE x")
	require.Error(t, err)
}

func TestNewDedupStore_RequiresDSN(t *testing.T) {
	t.Parallel()

	_, err := NewDedupStore(context.Background(), Config{})
	require.Error(t, err)
}
