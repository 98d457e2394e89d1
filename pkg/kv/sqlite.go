package kv

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_scalars (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS kv_hashes (
	key   TEXT NOT NULL,
	field TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (key, field)
);
CREATE TABLE IF NOT EXISTS kv_lists (
	key   TEXT NOT NULL,
	pos   INTEGER NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (key, pos)
);
CREATE TABLE IF NOT EXISTS kv_sets (
	key    TEXT NOT NULL,
	member TEXT NOT NULL,
	PRIMARY KEY (key, member)
);
`

// SQLiteStore is the durable Store backend.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLite opens (or creates) the database at path and ensures the schema.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// Pipelines rely on transactions; a single writer connection keeps
	// sqlite's locking out of the way.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv_scalars WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, key, value string) error {
	return setScalar(ctx, s.db, key, value)
}

func setScalar(ctx context.Context, e execer, key, value string) error {
	_, err := e.ExecContext(ctx, `
		INSERT INTO kv_scalars (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func (s *SQLiteStore) Del(ctx context.Context, keys ...string) error {
	return s.Pipelined(ctx, func(p Pipeline) error {
		p.Del(keys...)
		return nil
	})
}

func delKeys(ctx context.Context, e execer, keys ...string) error {
	for _, key := range keys {
		for _, q := range []string{
			`DELETE FROM kv_scalars WHERE key = ?`,
			`DELETE FROM kv_hashes WHERE key = ?`,
			`DELETE FROM kv_sets WHERE key = ?`,
		} {
			if _, err := e.ExecContext(ctx, q, key); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *SQLiteStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT field, value FROM kv_hashes WHERE key = ?`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, err
		}
		out[field] = value
	}
	return out, rows.Err()
}

func (s *SQLiteStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	return hset(ctx, s.db, key, fields)
}

func hset(ctx context.Context, e execer, key string, fields map[string]string) error {
	for field, value := range fields {
		_, err := e.ExecContext(ctx, `
			INSERT INTO kv_hashes (key, field, value) VALUES (?, ?, ?)
			ON CONFLICT(key, field) DO UPDATE SET value = excluded.value`, key, field, value)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	list, err := readList(ctx, s.db, key)
	if err != nil {
		return nil, err
	}
	lo, hi, ok := normalizeRange(start, stop, int64(len(list)))
	if !ok {
		return nil, nil
	}
	return list[lo : hi+1], nil
}

func readList(ctx context.Context, e execer, key string) ([]string, error) {
	rows, err := e.QueryContext(ctx, `SELECT value FROM kv_lists WHERE key = ? ORDER BY pos ASC`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var value string
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) LPush(ctx context.Context, key string, values ...string) error {
	return lpush(ctx, s.db, key, values...)
}

func lpush(ctx context.Context, e execer, key string, values ...string) error {
	for _, value := range values {
		var minPos sql.NullInt64
		if err := e.QueryRowContext(ctx, `SELECT MIN(pos) FROM kv_lists WHERE key = ?`, key).Scan(&minPos); err != nil {
			return err
		}
		pos := int64(0)
		if minPos.Valid {
			pos = minPos.Int64 - 1
		}
		if _, err := e.ExecContext(ctx, `INSERT INTO kv_lists (key, pos, value) VALUES (?, ?, ?)`, key, pos, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) RPush(ctx context.Context, key string, values ...string) error {
	return rpush(ctx, s.db, key, values...)
}

func rpush(ctx context.Context, e execer, key string, values ...string) error {
	for _, value := range values {
		var maxPos sql.NullInt64
		if err := e.QueryRowContext(ctx, `SELECT MAX(pos) FROM kv_lists WHERE key = ?`, key).Scan(&maxPos); err != nil {
			return err
		}
		pos := int64(0)
		if maxPos.Valid {
			pos = maxPos.Int64 + 1
		}
		if _, err := e.ExecContext(ctx, `INSERT INTO kv_lists (key, pos, value) VALUES (?, ?, ?)`, key, pos, value); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) LTrim(ctx context.Context, key string, start, stop int64) error {
	return ltrim(ctx, s.db, key, start, stop)
}

func ltrim(ctx context.Context, e execer, key string, start, stop int64) error {
	list, err := readList(ctx, e, key)
	if err != nil {
		return err
	}
	lo, hi, ok := normalizeRange(start, stop, int64(len(list)))
	if !ok {
		_, err := e.ExecContext(ctx, `DELETE FROM kv_lists WHERE key = ?`, key)
		return err
	}
	if _, err := e.ExecContext(ctx, `DELETE FROM kv_lists WHERE key = ?`, key); err != nil {
		return err
	}
	return rpush(ctx, e, key, list[lo:hi+1]...)
}

func (s *SQLiteStore) LLen(ctx context.Context, key string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_lists WHERE key = ?`, key).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLiteStore) DelList(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv_lists WHERE key = ?`, key)
	return err
}

func (s *SQLiteStore) SAdd(ctx context.Context, key string, members ...string) error {
	return sadd(ctx, s.db, key, members...)
}

func sadd(ctx context.Context, e execer, key string, members ...string) error {
	for _, member := range members {
		_, err := e.ExecContext(ctx, `
			INSERT INTO kv_sets (key, member) VALUES (?, ?)
			ON CONFLICT(key, member) DO NOTHING`, key, member)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SRem(ctx context.Context, key string, members ...string) error {
	return srem(ctx, s.db, key, members...)
}

func srem(ctx context.Context, e execer, key string, members ...string) error {
	for _, member := range members {
		if _, err := e.ExecContext(ctx, `DELETE FROM kv_sets WHERE key = ? AND member = ?`, key, member); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SMembers(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT member FROM kv_sets WHERE key = ?`, key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var member string
		if err := rows.Scan(&member); err != nil {
			return nil, err
		}
		out = append(out, member)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) SCard(ctx context.Context, key string) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM kv_sets WHERE key = ?`, key).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLiteStore) Pipelined(ctx context.Context, fn func(p Pipeline) error) error {
	var ops []func(ctx context.Context, e execer) error
	p := &sqlitePipeline{ops: &ops}
	if err := fn(p); err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	for _, op := range ops {
		if err := op(ctx, tx); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

type sqlitePipeline struct {
	ops *[]func(ctx context.Context, e execer) error
}

func (p *sqlitePipeline) Set(key, value string) {
	*p.ops = append(*p.ops, func(ctx context.Context, e execer) error {
		return setScalar(ctx, e, key, value)
	})
}

func (p *sqlitePipeline) Del(keys ...string) {
	*p.ops = append(*p.ops, func(ctx context.Context, e execer) error {
		return delKeys(ctx, e, keys...)
	})
}

func (p *sqlitePipeline) HSet(key string, fields map[string]string) {
	*p.ops = append(*p.ops, func(ctx context.Context, e execer) error {
		return hset(ctx, e, key, fields)
	})
}

func (p *sqlitePipeline) LPush(key string, values ...string) {
	*p.ops = append(*p.ops, func(ctx context.Context, e execer) error {
		return lpush(ctx, e, key, values...)
	})
}

func (p *sqlitePipeline) RPush(key string, values ...string) {
	*p.ops = append(*p.ops, func(ctx context.Context, e execer) error {
		return rpush(ctx, e, key, values...)
	})
}

func (p *sqlitePipeline) LTrim(key string, start, stop int64) {
	*p.ops = append(*p.ops, func(ctx context.Context, e execer) error {
		return ltrim(ctx, e, key, start, stop)
	})
}

func (p *sqlitePipeline) DelList(key string) {
	*p.ops = append(*p.ops, func(ctx context.Context, e execer) error {
		_, err := e.ExecContext(ctx, `DELETE FROM kv_lists WHERE key = ?`, key)
		return err
	})
}

func (p *sqlitePipeline) SAdd(key string, members ...string) {
	*p.ops = append(*p.ops, func(ctx context.Context, e execer) error {
		return sadd(ctx, e, key, members...)
	})
}

func (p *sqlitePipeline) SRem(key string, members ...string) {
	*p.ops = append(*p.ops, func(ctx context.Context, e execer) error {
		return srem(ctx, e, key, members...)
	})
}
