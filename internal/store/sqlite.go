package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/dealmachine/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS records (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	mls_number TEXT NOT NULL DEFAULT '',
	data       TEXT NOT NULL,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_records_updated_at ON records(updated_at);
CREATE INDEX IF NOT EXISTS idx_records_mls_number ON records(mls_number);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, rec *model.PropertyRecord) error {
	if err := stamp(rec); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal record")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (id, name, mls_number, data, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			mls_number = excluded.mls_number,
			data = excluded.data,
			updated_at = excluded.updated_at`,
		rec.ID, rec.Name, mlsNumber(rec), string(data), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return &StorageError{Backend: "sqlite", Op: "save " + rec.ID, Err: err}
	}
	zap.L().Debug("sqlite: saved record", zap.String("id", rec.ID))
	return nil
}

func (s *SQLiteStore) Load(ctx context.Context, id string) (*model.PropertyRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM records WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: load %s", id)
	}
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "load " + id, Err: err}
	}
	return decodeRecord("sqlite", []byte(data))
}

func (s *SQLiteStore) List(ctx context.Context, filter ListFilter) ([]model.RecordSummary, error) {
	query := `SELECT data FROM records`
	var args []any
	if filter.Query != "" {
		query += ` WHERE name LIKE ? OR mls_number LIKE ?`
		pattern := "%" + filter.Query + "%"
		args = append(args, pattern, pattern)
	}
	query += ` ORDER BY updated_at DESC, id LIMIT ? OFFSET ?`
	args = append(args, filter.limit(), max(filter.Offset, 0))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "list", Err: err}
	}
	defer rows.Close() //nolint:errcheck

	out := []model.RecordSummary{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, &StorageError{Backend: "sqlite", Op: "list scan", Err: err}
		}
		rec, err := decodeRecord("sqlite", []byte(data))
		if err != nil {
			return nil, err
		}
		out = append(out, rec.Summary())
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Backend: "sqlite", Op: "list iterate", Err: err}
	}
	return out, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return &StorageError{Backend: "sqlite", Op: "delete " + id, Err: err}
	}
	n, err := res.RowsAffected()
	if err != nil {
		return &StorageError{Backend: "sqlite", Op: "delete " + id, Err: err}
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: delete %s", id)
	}
	return nil
}

func decodeRecord(backend string, data []byte) (*model.PropertyRecord, error) {
	var rec model.PropertyRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, eris.Wrapf(err, "%s: unmarshal record", backend)
	}
	return &rec, nil
}
