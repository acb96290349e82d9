package kv

import (
	"context"
	"errors"

	"github.com/kuitang/notebook/internal/db"
)

// SQLite is a Store over an encrypted SQLCipher database.
type SQLite struct {
	db *db.DB
}

// NewSQLite wraps an open database. The store owns it and closes it on Close.
func NewSQLite(d *db.DB) *SQLite {
	return &SQLite{db: d}
}

func (s *SQLite) Get(ctx context.Context, key string) (Entry, error) {
	row, err := s.db.Get(ctx, key)
	if errors.Is(err, db.ErrNotFound) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	return Entry{Value: row.Value, Digest: row.Digest, UpdatedAt: row.UpdatedAt}, nil
}

func (s *SQLite) Put(ctx context.Context, key string, value []byte) (Entry, error) {
	row, err := s.db.Set(ctx, key, value)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Value: row.Value, Digest: row.Digest, UpdatedAt: row.UpdatedAt}, nil
}

func (s *SQLite) Ping(ctx context.Context) error { return s.db.Ping(ctx) }

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Backend() string { return "sqlite" }
