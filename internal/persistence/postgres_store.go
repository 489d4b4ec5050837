package persistence

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/petrijr/pipevine/pkg/api"
)

// PostgresStore is a Store backed by PostgreSQL.
//
// It expects an *sql.DB that uses a PostgreSQL driver (for example,
// "github.com/jackc/pgx/v5/stdlib" or "github.com/lib/pq").
//
// The caller is responsible for:
//   - importing the driver for its side effects, e.g.:
//     _ "github.com/jackc/pgx/v5/stdlib"
//   - providing a DSN via sql.Open.
type PostgresStore struct {
	db *sql.DB
}

// Ensure PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore initializes the required schema in the given database
// and returns a new PostgresStore.
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	s := &PostgresStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS pipelines (
			pkey TEXT PRIMARY KEY,
			app_name TEXT NOT NULL,
			data BYTEA,
			created TIMESTAMPTZ NOT NULL,
			updated TIMESTAMPTZ NOT NULL
		);
	`)
	return err
}

func (s *PostgresStore) Insert(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipelines (pkey, app_name, data, created, updated)
		VALUES ($1, $2, $3, $4, $5)`,
		rec.PKey,
		rec.AppName,
		rec.Data,
		rec.Created.UTC(),
		rec.Updated.UTC(),
	)
	if err != nil {
		// SQLSTATE 23505: unique_violation. Matched on message text so the
		// driver stays caller-supplied.
		if strings.Contains(err.Error(), "23505") ||
			strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return api.ErrKeyConflict
		}
		return err
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, pkey string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT pkey, app_name, data, created, updated
		FROM pipelines
		WHERE pkey = $1`,
		pkey,
	)

	var rec Record
	if err := row.Scan(&rec.PKey, &rec.AppName, &rec.Data, &rec.Created, &rec.Updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, api.ErrPipelineNotFound
		}
		return Record{}, err
	}

	return rec, nil
}

func (s *PostgresStore) Update(ctx context.Context, pkey string, data []byte, updated time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pipelines
		SET data = $1, updated = $2
		WHERE pkey = $3`,
		data,
		updated.UTC(),
		pkey,
	)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return api.ErrPipelineNotFound
	}

	return nil
}

func (s *PostgresStore) ScanKeys(ctx context.Context, appName, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pkey
		FROM pipelines
		WHERE app_name = $1`,
		appName,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var pkey string
		if err := rows.Scan(&pkey); err != nil {
			return nil, err
		}
		if strings.HasPrefix(pkey, prefix) {
			keys = append(keys, pkey)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Strings(keys)
	return keys, nil
}
