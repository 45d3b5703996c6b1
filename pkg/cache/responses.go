package cache

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/glorpus-work/scidd/pkg/errors"
	"github.com/glorpus-work/scidd/pkg/fsutil"
)

// ResponseCache is a persistent key/value store of metadata API responses,
// keyed by a canonical query signature and backed by a single-file SQLite
// database inside the cache root.
//
// The store is safe for multiple OS processes sharing one cache directory:
// writes go through a single autocommit connection with WAL enabled, and
// every read opens a dedicated read-only connection, so a writer in one
// process never blocks or corrupts readers in another.
type ResponseCache struct {
	dir  string
	name string

	mu sync.Mutex
	db *sql.DB // write handle; nil until first access
}

// NewResponseCache creates a response cache stored in dir. The directory is
// created if missing; a broken symlink or an unwritable directory at that
// path is a configuration error.
func NewResponseCache(dir string) (*ResponseCache, error) {
	if err := fsutil.EnsureDir(dir); err != nil {
		return nil, errors.Wrapf(err, "setting up response cache at %s", dir)
	}
	if err := fsutil.CheckWritableDir(dir); err != nil {
		return nil, err
	}
	return &ResponseCache{dir: dir, name: ResponseCacheFilename}, nil
}

// FilePath returns the full path of the database file.
func (rc *ResponseCache) FilePath() string {
	return filepath.Join(rc.dir, rc.name)
}

func (rc *ResponseCache) writeDSN() string {
	return "file:" + rc.FilePath() + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
}

func (rc *ResponseCache) readDSN() string {
	return "file:" + rc.FilePath() + "?mode=ro&_pragma=busy_timeout(5000)"
}

// ensure opens the write connection and (re)creates the schema when the
// database file is missing or zero-length. It is re-run on every access so a
// database deleted mid-run is rebuilt transparently instead of failing.
// Callers must hold rc.mu.
func (rc *ResponseCache) ensure() error {
	if err := fsutil.CheckBrokenSymlink(rc.dir); err != nil {
		return err
	}

	fi, err := os.Stat(rc.FilePath())
	fresh := err != nil || fi.Size() == 0

	if rc.db != nil && !fresh {
		return nil
	}
	if rc.db != nil {
		// file vanished under an open handle; start over
		_ = rc.db.Close()
		rc.db = nil
	}

	db, err := sql.Open("sqlite", rc.writeDSN())
	if err != nil {
		return errors.Wrapf(err, "opening response cache at %s", rc.FilePath())
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return errors.Wrapf(err, "initializing response cache at %s", rc.FilePath())
	}
	rc.db = db
	return nil
}

// initSchema creates the two response-cache tables. Creation is guarded so
// that two processes initializing the same file concurrently both succeed.
func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS metadata (
			id INTEGER PRIMARY KEY,
			date_created DATE,
			database_version INTEGER
		);`,
		fmt.Sprintf(`INSERT OR IGNORE INTO metadata (id, date_created, database_version)
			VALUES (1, CURRENT_TIMESTAMP, %d);`, DatabaseVersion),
		`CREATE TABLE IF NOT EXISTS cache (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			query TEXT UNIQUE,
			json_response TEXT
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS query_idx ON cache(query);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Get returns the cached value for key, or ErrCacheKeyNotFound when the key
// is absent. Each call reads through its own read-only connection.
func (rc *ResponseCache) Get(key string) ([]byte, error) {
	rc.mu.Lock()
	err := rc.ensure()
	rc.mu.Unlock()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", rc.readDSN())
	if err != nil {
		return nil, errors.Wrapf(err, "opening response cache for read at %s", rc.FilePath())
	}
	defer db.Close()

	var value string
	err = db.QueryRow(`SELECT json_response FROM cache WHERE query = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrCacheKeyNotFound, "%q", key)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "reading response cache key %q", key)
	}
	return []byte(value), nil
}

// Set stores value under key. Writes are upserts: a later Set for the same
// key replaces the earlier value.
func (rc *ResponseCache) Set(key string, value []byte) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if err := rc.ensure(); err != nil {
		return err
	}

	_, err := rc.db.Exec(`REPLACE INTO cache (query, json_response) VALUES (?, ?);`, key, string(value))
	if err != nil {
		return errors.Wrapf(err, "writing response cache key %q", key)
	}
	return nil
}

// Close releases the write connection. The cache reopens transparently on
// the next access.
func (rc *ResponseCache) Close() error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.db == nil {
		return nil
	}
	err := rc.db.Close()
	rc.db = nil
	return err
}
