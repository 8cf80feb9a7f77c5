// Package store persists property records. Each record is one JSON document
// keyed by id and written with a single upsert statement, so concurrent
// saves of one record never interleave.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/dealmachine/internal/config"
	"github.com/sells-group/dealmachine/internal/model"
)

// ErrNotFound is returned when no record has the requested id.
var ErrNotFound = eris.New("store: record not found")

// StorageError reports a failed backend operation.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return e.Backend + ": " + e.Op + ": " + e.Err.Error()
}

func (e *StorageError) Unwrap() error { return e.Err }

// ListFilter narrows List. Query matches the record name or MLS number.
type ListFilter struct {
	Query  string `json:"query,omitempty"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

func (f ListFilter) limit() int {
	if f.Limit <= 0 {
		return 100
	}
	return f.Limit
}

// Store defines record persistence.
type Store interface {
	// Save inserts or replaces rec. It assigns an id when rec has none and
	// stamps CreatedAt/UpdatedAt.
	Save(ctx context.Context, rec *model.PropertyRecord) error
	Load(ctx context.Context, id string) (*model.PropertyRecord, error)
	// List returns summaries, most recently updated first.
	List(ctx context.Context, filter ListFilter) ([]model.RecordSummary, error)
	Delete(ctx context.Context, id string) error

	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the backend named by cfg.Driver and migrates it.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case "sqlite", "":
		st, err = NewSQLite(cfg.Path)
	case "postgres":
		st, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, err
	}
	return st, nil
}

// stamp prepares rec for saving.
func stamp(rec *model.PropertyRecord) error {
	if rec == nil {
		return eris.New("store: nil record")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	return nil
}

// mlsNumber is the searchable MLS number column value.
func mlsNumber(rec *model.PropertyRecord) string {
	return rec.Summary().MLSNumber
}
