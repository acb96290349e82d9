package db

// Schema is the key-value store schema. Each row is one collection slot; the
// value is the raw JSON array the client last wrote.
const Schema = `
CREATE TABLE IF NOT EXISTS kv_entries (
    key TEXT PRIMARY KEY,
    value BLOB NOT NULL,
    digest TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`
