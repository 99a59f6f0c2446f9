// Package store persists the stop→tract cache in SQLite or CSV files.
package store

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/ridership-cli/internal/tract"
)

// CacheRun describes one stop2tract job that filled the cache.
type CacheRun struct {
	ID        string    `json:"id"`
	Source    string    `json:"source"`
	Stops     int       `json:"stops"`
	Misses    int       `json:"misses"`
	CreatedAt time.Time `json:"created_at"`
}

// StopTractStore persists stop→tract mappings.
type StopTractStore interface {
	// Save replaces the stored mappings with cache and records the run.
	Save(ctx context.Context, cache map[int64]string, run CacheRun) (*CacheRun, error)
	// Load returns every stored mapping.
	Load(ctx context.Context) (map[int64]string, error)
	// LastRun returns the most recent run, or nil when none was recorded.
	LastRun(ctx context.Context) (*CacheRun, error)
	Close() error
}

// IsDatabasePath reports whether path names a SQLite cache rather than a
// CSV file.
func IsDatabasePath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return true
	}
	return false
}

// LoadStopCache reads the cache at path from SQLite or CSV depending on the
// extension. A missing file returns (nil, nil).
func LoadStopCache(ctx context.Context, path string) (map[int64]string, error) {
	if !IsDatabasePath(path) {
		return tract.LoadStopCache(path)
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	st, err := NewSQLite(path)
	if err != nil {
		return nil, err
	}
	defer st.Close() //nolint:errcheck

	if err := st.Migrate(ctx); err != nil {
		return nil, err
	}
	return st.Load(ctx)
}

// SaveStopCache writes cache to path in SQLite or CSV form.
func SaveStopCache(ctx context.Context, path string, cache map[int64]string, run CacheRun) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "store: create dir %s", dir)
		}
	}

	if !IsDatabasePath(path) {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "store: create %s", path)
		}
		if err := tract.WriteStopCache(f, cache); err != nil {
			_ = f.Close()
			return err
		}
		return eris.Wrapf(f.Close(), "store: close %s", path)
	}

	st, err := NewSQLite(path)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	if err := st.Migrate(ctx); err != nil {
		return err
	}
	_, err = st.Save(ctx, cache, run)
	return err
}
