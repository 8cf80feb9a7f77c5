package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/dealmachine/internal/model"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore. pgxmock
// implements it for tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns, minConns := int32(4), int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS records (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	mls_number TEXT NOT NULL DEFAULT '',
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_records_updated_at ON records(updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_records_mls_number ON records(mls_number);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, rec *model.PropertyRecord) error {
	if err := stamp(rec); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal record")
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO records (id, name, mls_number, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			mls_number = EXCLUDED.mls_number,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`,
		rec.ID, rec.Name, mlsNumber(rec), data, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return &StorageError{Backend: "postgres", Op: "save " + rec.ID, Err: err}
	}
	zap.L().Debug("postgres: saved record", zap.String("id", rec.ID))
	return nil
}

func (s *PostgresStore) Load(ctx context.Context, id string) (*model.PropertyRecord, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM records WHERE id = $1`, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: load %s", id)
	}
	if err != nil {
		return nil, &StorageError{Backend: "postgres", Op: "load " + id, Err: err}
	}
	return decodeRecord("postgres", data)
}

func (s *PostgresStore) List(ctx context.Context, filter ListFilter) ([]model.RecordSummary, error) {
	query := `SELECT data FROM records`
	var args []any
	if filter.Query != "" {
		query += ` WHERE name ILIKE $1 OR mls_number ILIKE $1`
		args = append(args, "%"+filter.Query+"%")
	}
	args = append(args, filter.limit(), max(filter.Offset, 0))
	query += ` ORDER BY updated_at DESC, id LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Backend: "postgres", Op: "list", Err: err}
	}
	defer rows.Close()

	out := []model.RecordSummary{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, &StorageError{Backend: "postgres", Op: "list scan", Err: err}
		}
		rec, err := decodeRecord("postgres", data)
		if err != nil {
			return nil, err
		}
		out = append(out, rec.Summary())
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Backend: "postgres", Op: "list iterate", Err: err}
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM records WHERE id = $1`, id)
	if err != nil {
		return &StorageError{Backend: "postgres", Op: "delete " + id, Err: err}
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: delete %s", id)
	}
	return nil
}
