package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS records`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveUpsert(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	rec := sampleRecord("fourplex", "2207513", 1299000)
	rec.ID = "rec-1"

	mock.ExpectExec(`(?s)INSERT INTO records .+ON CONFLICT \(id\) DO UPDATE`).
		WithArgs("rec-1", "fourplex", "2207513", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.Save(context.Background(), rec))
	assert.False(t, rec.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveError(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO records`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(errors.New("connection lost"))

	err := s.Save(context.Background(), sampleRecord("x", "1", 1))
	require.Error(t, err)
	var se *StorageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "postgres", se.Backend)
	assert.Contains(t, err.Error(), "connection lost")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Load(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	rec := sampleRecord("fourplex", "2207513", 1299000)
	rec.ID = "rec-1"
	data, err := json.Marshal(rec)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT data FROM records WHERE id = \$1`).
		WithArgs("rec-1").
		WillReturnRows(mock.NewRows([]string{"data"}).AddRow(data))

	got, err := s.Load(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "fourplex", got.Name)
	assert.Equal(t, "2207513", got.Summary().MLSNumber)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LoadNotFound(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM records WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.Load(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	a, err := json.Marshal(sampleRecord("alpha", "100", 1))
	require.NoError(t, err)
	b, err := json.Marshal(sampleRecord("bravo", "200", 2))
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT data FROM records WHERE name ILIKE \$1 OR mls_number ILIKE \$1 ORDER BY updated_at DESC, id LIMIT \$2 OFFSET \$3`).
		WithArgs("%a%", 100, 0).
		WillReturnRows(mock.NewRows([]string{"data"}).AddRow(a).AddRow(b))

	list, err := s.List(context.Background(), ListFilter{Query: "a"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name)
	require.NotNil(t, list[1].Price)
	assert.InDelta(t, 2.0, *list[1].Price, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListNoFilter(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT data FROM records ORDER BY updated_at DESC, id LIMIT \$1 OFFSET \$2`).
		WithArgs(10, 20).
		WillReturnRows(mock.NewRows([]string{"data"}))

	list, err := s.List(context.Background(), ListFilter{Limit: 10, Offset: 20})
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`DELETE FROM records WHERE id = \$1`).
		WithArgs("rec-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM records WHERE id = \$1`).
		WithArgs("rec-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, s.Delete(context.Background(), "rec-1"))
	err := s.Delete(context.Background(), "rec-1")
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
