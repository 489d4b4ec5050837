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

// SQLiteStore is a Store backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing
// the driver, e.g.:
//
//	import _ "modernc.org/sqlite"
type SQLiteStore struct {
	db *sql.DB
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore initializes the required schema in the given database
// and returns a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS pipelines (
			pkey TEXT PRIMARY KEY,
			app_name TEXT NOT NULL,
			data BLOB,
			created TEXT NOT NULL,
			updated TEXT NOT NULL
		);`,
	)
	return err
}

func (s *SQLiteStore) Insert(ctx context.Context, rec Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pipelines (pkey, app_name, data, created, updated)
		VALUES (?, ?, ?, ?, ?)`,
		rec.PKey,
		rec.AppName,
		rec.Data,
		rec.Created.UTC().Format(time.RFC3339Nano),
		rec.Updated.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return api.ErrKeyConflict
		}
		return err
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, pkey string) (Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT pkey, app_name, data, created, updated
		FROM pipelines
		WHERE pkey = ?`,
		pkey,
	)

	var rec Record
	var created, updated string

	if err := row.Scan(&rec.PKey, &rec.AppName, &rec.Data, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, api.ErrPipelineNotFound
		}
		return Record{}, err
	}

	var err error
	if rec.Created, err = time.Parse(time.RFC3339Nano, created); err != nil {
		return Record{}, err
	}
	if rec.Updated, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return Record{}, err
	}

	return rec, nil
}

func (s *SQLiteStore) Update(ctx context.Context, pkey string, data []byte, updated time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE pipelines
		SET data = ?, updated = ?
		WHERE pkey = ?`,
		data,
		updated.UTC().Format(time.RFC3339Nano),
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

func (s *SQLiteStore) ScanKeys(ctx context.Context, appName, prefix string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pkey
		FROM pipelines
		WHERE app_name = ?`,
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
