package db

import (
	"context"
	"database/sql"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`

// ErrNotFound is returned by Get when the key has never been written or was deleted.
var ErrNotFound = errors.New("key not found")

// KV is the durable key-value store the gateway writes through.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Database is a KV backed by a single SQLite table.
type Database struct {
	db     *sql.DB
	prefix string
}

type Option func(*Database)

// WithNamespace prefixes every key so several profiles can share one file.
func WithNamespace(ns string) Option {
	return func(d *Database) {
		if ns != "" {
			d.prefix = ns + ":"
		}
	}
}

// New opens dbPath with driver ("sqlite3" for mattn/go-sqlite3, "sqlite" for
// modernc.org/sqlite) and creates the kv table.
func New(driver, dbPath string, opts ...Option) (*Database, error) {
	db, err := sql.Open(driver, dbPath)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s database %s", driver, dbPath)
	}

	// Every connection to ":memory:" gets its own database.
	if dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory") {
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, multierr.Append(errors.Wrap(err, "creating kv table"), db.Close())
	}

	d := &Database{db: db}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

func (d *Database) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, d.prefix+key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", errors.Wrapf(err, "reading key %s", key)
	}
	return value, nil
}

func (d *Database) Set(ctx context.Context, key, value string) error {
	query := `
        INSERT INTO kv (key, value, updated_at)
        VALUES (?, ?, CURRENT_TIMESTAMP)
        ON CONFLICT(key) DO UPDATE SET
            value = excluded.value,
            updated_at = excluded.updated_at`

	if _, err := d.db.ExecContext(ctx, query, d.prefix+key, value); err != nil {
		return errors.Wrapf(err, "writing key %s", key)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (d *Database) Delete(ctx context.Context, key string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, d.prefix+key); err != nil {
		return errors.Wrapf(err, "deleting key %s", key)
	}
	return nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

var _ KV = (*Database)(nil)
