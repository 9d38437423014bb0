package httpcache

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS responses (
	key TEXT PRIMARY KEY,
	body BLOB NOT NULL,
	stored_at INTEGER NOT NULL,
	accessed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_responses_accessed_at ON responses(accessed_at);
`

const (
	selectBody  = `SELECT body FROM responses WHERE key = ?`
	touchEntry  = `UPDATE responses SET accessed_at = ? WHERE key = ?`
	upsertEntry = `INSERT INTO responses (key, body, stored_at, accessed_at) VALUES (?, ?, ?, ?)
ON CONFLICT(key) DO UPDATE SET body = excluded.body, stored_at = excluded.stored_at, accessed_at = excluded.accessed_at`
	evictEntries = `DELETE FROM responses WHERE key NOT IN (SELECT key FROM responses ORDER BY accessed_at DESC LIMIT ?)`
)

// Disk is a sqlite-backed tier bounded by entry count.
type Disk struct {
	db       *sql.DB
	capacity int
	now      func() time.Time
}

// OpenDisk opens (creating if needed) the sqlite cache database at path.
func OpenDisk(path string, capacity int) (*Disk, error) {
	if path == "" {
		return nil, fmt.Errorf("disk cache path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open disk cache %s: %w", path, err)
	}
	// sqlite serializes writers; one connection avoids "database is locked".
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create disk cache schema: %w", err)
	}

	return NewDisk(db, capacity), nil
}

// NewDisk wraps an already prepared database handle.
func NewDisk(db *sql.DB, capacity int) *Disk {
	return &Disk{db: db, capacity: capacity, now: time.Now}
}

func (d *Disk) Get(key string) ([]byte, bool, error) {
	var body []byte
	err := d.db.QueryRow(selectBody, key).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached response: %w", err)
	}

	if _, err := d.db.Exec(touchEntry, d.now().UnixNano(), key); err != nil {
		return body, true, fmt.Errorf("failed to update cache access time: %w", err)
	}
	return body, true, nil
}

func (d *Disk) Put(key string, body []byte) error {
	ts := d.now().UnixNano()
	if _, err := d.db.Exec(upsertEntry, key, body, ts, ts); err != nil {
		return fmt.Errorf("failed to store cached response: %w", err)
	}
	if _, err := d.db.Exec(evictEntries, d.capacity); err != nil {
		return fmt.Errorf("failed to evict cached responses: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (d *Disk) Close() error {
	return d.db.Close()
}
