package localstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteKV is the durable KV backend: one embedded file, no server.
// Concurrent processes writing the same file are not coordinated beyond
// what SQLite itself provides.
type SQLiteKV struct {
	db *sql.DB
}

func OpenSQLite(ctx context.Context, path string) (*SQLiteKV, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	// test ping
	ctx2, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx2); err != nil {
		db.Close()
		return nil, err
	}

	const schema = `
CREATE TABLE IF NOT EXISTS kv_store (
  k TEXT PRIMARY KEY,
  v BLOB NOT NULL,
  updated_at TIMESTAMP NOT NULL
);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteKV{db: db}, nil
}

func (s *SQLiteKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const q = `SELECT v FROM kv_store WHERE k = ?;`
	var v []byte
	err := s.db.QueryRowContext(ctx, q, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *SQLiteKV) Set(ctx context.Context, key string, value []byte) error {
	const q = `
INSERT INTO kv_store (k, v, updated_at) VALUES (?,?,?)
ON CONFLICT(k) DO UPDATE SET v=excluded.v, updated_at=excluded.updated_at;`
	_, err := s.db.ExecContext(ctx, q, key, value, time.Now())
	return err
}

func (s *SQLiteKV) Delete(ctx context.Context, key string) error {
	const q = `DELETE FROM kv_store WHERE k = ?;`
	_, err := s.db.ExecContext(ctx, q, key)
	return err
}

func (s *SQLiteKV) Close() error { return s.db.Close() }
