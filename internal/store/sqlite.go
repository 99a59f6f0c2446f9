package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements StopTractStore using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var _ StopTractStore = (*SQLiteStore)(nil)

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
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS cache_runs (
	id         TEXT PRIMARY KEY,
	source     TEXT NOT NULL DEFAULT '',
	stops      INTEGER NOT NULL DEFAULT 0,
	misses     INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS stop_tracts (
	stop_id    INTEGER PRIMARY KEY,
	tract      TEXT NOT NULL,
	run_id     TEXT NOT NULL REFERENCES cache_runs(id),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_stop_tracts_tract ON stop_tracts(tract);
CREATE INDEX IF NOT EXISTS idx_cache_runs_created_at ON cache_runs(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Save(ctx context.Context, cache map[int64]string, run CacheRun) (*CacheRun, error) {
	run.ID = uuid.New().String()
	run.CreatedAt = time.Now().UTC()
	if run.Stops == 0 {
		run.Stops = len(cache)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cache_runs (id, source, stops, misses, created_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Source, run.Stops, run.Misses, run.CreatedAt,
	); err != nil {
		return nil, eris.Wrap(err, "sqlite: insert cache run")
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM stop_tracts`); err != nil {
		return nil, eris.Wrap(err, "sqlite: clear stop tracts")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO stop_tracts (stop_id, tract, run_id, updated_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for id, key := range cache {
		if _, err := stmt.ExecContext(ctx, id, key, run.ID, run.CreatedAt); err != nil {
			return nil, eris.Wrapf(err, "sqlite: insert stop %d", id)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit")
	}
	return &run, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (map[int64]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT stop_id, tract FROM stop_tracts`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query stop tracts")
	}
	defer rows.Close() //nolint:errcheck

	cache := make(map[int64]string)
	for rows.Next() {
		var id int64
		var key string
		if err := rows.Scan(&id, &key); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan stop tract")
		}
		cache[id] = key
	}
	return cache, eris.Wrap(rows.Err(), "sqlite: iterate stop tracts")
}

func (s *SQLiteStore) LastRun(ctx context.Context) (*CacheRun, error) {
	var r CacheRun
	err := s.db.QueryRowContext(ctx,
		`SELECT id, source, stops, misses, created_at FROM cache_runs ORDER BY created_at DESC LIMIT 1`,
	).Scan(&r.ID, &r.Source, &r.Stops, &r.Misses, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan cache run")
	}
	return &r, nil
}
