package kv

import "context"

// Store is the key-value collaborator the engine persists through. It
// exposes scalar, hash, list and set primitives plus a batched pipeline
// giving atomicity of intent (not true transactions on every backend).
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Del(ctx context.Context, keys ...string) error

	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HSet(ctx context.Context, key string, fields map[string]string) error

	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	LPush(ctx context.Context, key string, values ...string) error
	RPush(ctx context.Context, key string, values ...string) error
	LTrim(ctx context.Context, key string, start, stop int64) error
	LLen(ctx context.Context, key string) (int64, error)
	DelList(ctx context.Context, key string) error

	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)

	// Pipelined executes fn's operations as one batch. The memory
	// backend holds its lock for the duration, the sqlite backend runs
	// a transaction.
	Pipelined(ctx context.Context, fn func(p Pipeline) error) error

	Close() error
}

// Pipeline queues mutations inside a Pipelined call. Reads are not part
// of the pipeline contract; callers read first, then batch their writes.
type Pipeline interface {
	Set(key, value string)
	Del(keys ...string)
	HSet(key string, fields map[string]string)
	LPush(key string, values ...string)
	RPush(key string, values ...string)
	LTrim(key string, start, stop int64)
	DelList(key string)
	SAdd(key string, members ...string)
	SRem(key string, members ...string)
}
