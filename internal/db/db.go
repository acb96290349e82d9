// Package db is the SQLCipher-backed key-value table behind the sqlite store
// backend. The database file is encrypted with a 32-byte key derived from the
// server master key.
package db

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// KeySize is the SQLCipher raw key size in bytes.
	KeySize = 32

	// MaxOpenConns is the maximum number of open connections.
	// SQLite is single-writer, so high connection counts are counterproductive.
	MaxOpenConns = 4

	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns = 2
)

// ErrNotFound is returned by Get when the key has never been written.
var ErrNotFound = errors.New("db: key not found")

// DB wraps an encrypted SQLite handle.
type DB struct {
	db  *sql.DB
	now func() time.Time
}

// Row is one stored slot.
type Row struct {
	Key       string
	Value     []byte
	Digest    string
	UpdatedAt int64
}

// Open opens (creating if needed) the encrypted database at path.
func Open(path string, key []byte) (*DB, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("database key must be exactly %d bytes, got %d", KeySize, len(key))
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	// Format: file.db?_pragma_key=x'HEX_KEY'&_pragma_cipher_page_size=4096
	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096", path, hex.EncodeToString(key))
	dsn = appendSQLiteParams(dsn, sqliteCommonParams())

	sqlDB, err := sql.Open(SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	sqlDB.SetMaxOpenConns(MaxOpenConns)
	sqlDB.SetMaxIdleConns(MaxIdleConns)

	return initialize(sqlDB)
}

// OpenInMemory opens a named, shared-cache in-memory database. Connections
// opened with the same name see the same data while at least one is open.
func OpenInMemory(name string, key []byte) (*DB, error) {
	if name == "" {
		name = "kv"
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("database key must be exactly %d bytes, got %d", KeySize, len(key))
	}
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma_key=x'%s'&_pragma_cipher_page_size=4096", name, hex.EncodeToString(key))

	sqlDB, err := sql.Open(SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open in-memory database: %w", err)
	}
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetMaxOpenConns(10)

	if err := applyFastSQLitePragmas(sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to apply fast SQLite pragmas: %w", err)
	}
	return initialize(sqlDB)
}

func initialize(sqlDB *sql.DB) (*DB, error) {
	// Verify the key: with a wrong key the first read fails.
	var sqliteVersion string
	if err := sqlDB.QueryRow("SELECT sqlite_version()").Scan(&sqliteVersion); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to verify database connection: %w", err)
	}
	if _, err := sqlDB.Exec(Schema); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &DB{db: sqlDB, now: time.Now}, nil
}

// SQL returns the underlying sql.DB for direct access when needed.
func (d *DB) SQL() *sql.DB {
	return d.db
}

// Get returns the row stored under key, or ErrNotFound.
func (d *DB) Get(ctx context.Context, key string) (Row, error) {
	row := Row{Key: key}
	err := d.db.QueryRowContext(ctx,
		`SELECT value, digest, updated_at FROM kv_entries WHERE key = ?`, key,
	).Scan(&row.Value, &row.Digest, &row.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Row{}, ErrNotFound
	}
	if err != nil {
		return Row{}, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return row, nil
}

// Set overwrites the value stored under key. The digest is the hex SHA3-256
// of the value, computed by the notebook_digest SQL function in the same
// statement.
func (d *DB) Set(ctx context.Context, key string, value []byte) (Row, error) {
	if value == nil {
		value = []byte{}
	}
	now := d.now().UnixMilli()
	row := Row{Key: key, Value: value, UpdatedAt: now}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return Row{}, fmt.Errorf("failed to begin write of %q: %w", key, err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO kv_entries (key, value, digest, updated_at)
		VALUES (?, ?, notebook_digest(?), ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			digest = excluded.digest,
			updated_at = excluded.updated_at
	`, key, value, value, now)
	if err != nil {
		return Row{}, fmt.Errorf("failed to write %q: %w", key, err)
	}
	if err := tx.QueryRowContext(ctx, `SELECT digest FROM kv_entries WHERE key = ?`, key).Scan(&row.Digest); err != nil {
		return Row{}, fmt.Errorf("failed to read back %q: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return Row{}, fmt.Errorf("failed to commit %q: %w", key, err)
	}
	return row, nil
}

// Keys lists stored keys in order.
func (d *DB) Keys(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, `SELECT key FROM kv_entries ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("failed to scan key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keys: %w", err)
	}
	return keys, nil
}

// Ping verifies the connection is usable.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close closes the connection.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

func sqliteCommonParams() string {
	// Production-safe defaults: WAL + NORMAL provides good throughput while preserving safety.
	return "_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
}

func appendSQLiteParams(dsn, params string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&" + params
	}
	return dsn + "?" + params
}

func applyFastSQLitePragmas(sqlDB *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=MEMORY",
		"PRAGMA synchronous=OFF",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA secure_delete=OFF",
	}
	for _, pragma := range pragmas {
		if _, err := sqlDB.Exec(pragma); err != nil {
			return err
		}
	}
	return nil
}
