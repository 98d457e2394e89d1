package kv

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store. It backs tests and the
// kv.driver=memory configuration.
type MemoryStore struct {
	mu      sync.RWMutex
	scalars map[string]string
	hashes  map[string]map[string]string
	lists   map[string][]string
	sets    map[string]map[string]struct{}
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		scalars: make(map[string]string),
		hashes:  make(map[string]map[string]string),
		lists:   make(map[string][]string),
		sets:    make(map[string]map[string]struct{}),
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.scalars[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scalars[key] = value
	return nil
}

func (s *MemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.scalars, k)
		delete(s.hashes, k)
		delete(s.sets, k)
	}
	return nil
}

func (s *MemoryStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]string, len(s.hashes[key]))
	for f, v := range s.hashes[key] {
		out[f] = v
	}
	return out, nil
}

func (s *MemoryStore) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hset(key, fields)
	return nil
}

func (s *MemoryStore) hset(key string, fields map[string]string) {
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	for f, v := range fields {
		h[f] = v
	}
}

func (s *MemoryStore) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := s.lists[key]
	lo, hi, ok := normalizeRange(start, stop, int64(len(list)))
	if !ok {
		return nil, nil
	}
	out := make([]string, hi-lo+1)
	copy(out, list[lo:hi+1])
	return out, nil
}

func (s *MemoryStore) LPush(_ context.Context, key string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lpush(key, values...)
	return nil
}

// lpush follows redis semantics: values are pushed one by one, so the
// last value ends up at the head.
func (s *MemoryStore) lpush(key string, values ...string) {
	for _, v := range values {
		s.lists[key] = append([]string{v}, s.lists[key]...)
	}
}

func (s *MemoryStore) RPush(_ context.Context, key string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists[key] = append(s.lists[key], values...)
	return nil
}

func (s *MemoryStore) LTrim(_ context.Context, key string, start, stop int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ltrim(key, start, stop)
	return nil
}

func (s *MemoryStore) ltrim(key string, start, stop int64) {
	list := s.lists[key]
	lo, hi, ok := normalizeRange(start, stop, int64(len(list)))
	if !ok {
		delete(s.lists, key)
		return
	}
	trimmed := make([]string, hi-lo+1)
	copy(trimmed, list[lo:hi+1])
	s.lists[key] = trimmed
}

func (s *MemoryStore) LLen(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.lists[key])), nil
}

func (s *MemoryStore) DelList(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lists, key)
	return nil
}

func (s *MemoryStore) SAdd(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sadd(key, members...)
	return nil
}

func (s *MemoryStore) sadd(key string, members ...string) {
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
}

func (s *MemoryStore) SRem(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.srem(key, members...)
	return nil
}

func (s *MemoryStore) srem(key string, members ...string) {
	set := s.sets[key]
	for _, m := range members {
		delete(set, m)
	}
	if len(set) == 0 {
		delete(s.sets, key)
	}
}

func (s *MemoryStore) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.sets[key]))
	for m := range s.sets[key] {
		out = append(out, m)
	}
	return out, nil
}

func (s *MemoryStore) SCard(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.sets[key])), nil
}

func (s *MemoryStore) Pipelined(_ context.Context, fn func(p Pipeline) error) error {
	var ops []func(*MemoryStore)
	p := &memoryPipeline{ops: &ops}
	if err := fn(p); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, op := range ops {
		op(s)
	}
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

type memoryPipeline struct {
	ops *[]func(*MemoryStore)
}

func (p *memoryPipeline) Set(key, value string) {
	*p.ops = append(*p.ops, func(s *MemoryStore) { s.scalars[key] = value })
}

func (p *memoryPipeline) Del(keys ...string) {
	*p.ops = append(*p.ops, func(s *MemoryStore) {
		for _, k := range keys {
			delete(s.scalars, k)
			delete(s.hashes, k)
			delete(s.sets, k)
		}
	})
}

func (p *memoryPipeline) HSet(key string, fields map[string]string) {
	*p.ops = append(*p.ops, func(s *MemoryStore) { s.hset(key, fields) })
}

func (p *memoryPipeline) LPush(key string, values ...string) {
	*p.ops = append(*p.ops, func(s *MemoryStore) { s.lpush(key, values...) })
}

func (p *memoryPipeline) RPush(key string, values ...string) {
	*p.ops = append(*p.ops, func(s *MemoryStore) { s.lists[key] = append(s.lists[key], values...) })
}

func (p *memoryPipeline) LTrim(key string, start, stop int64) {
	*p.ops = append(*p.ops, func(s *MemoryStore) { s.ltrim(key, start, stop) })
}

func (p *memoryPipeline) DelList(key string) {
	*p.ops = append(*p.ops, func(s *MemoryStore) { delete(s.lists, key) })
}

func (p *memoryPipeline) SAdd(key string, members ...string) {
	*p.ops = append(*p.ops, func(s *MemoryStore) { s.sadd(key, members...) })
}

func (p *memoryPipeline) SRem(key string, members ...string) {
	*p.ops = append(*p.ops, func(s *MemoryStore) { s.srem(key, members...) })
}

// normalizeRange resolves redis-style start/stop (negative counts from
// the tail, stop is inclusive) against a list of length n.
func normalizeRange(start, stop, n int64) (int64, int64, bool) {
	if n == 0 {
		return 0, 0, false
	}
	if start < 0 {
		start = n + start
	}
	if stop < 0 {
		stop = n + stop
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return 0, 0, false
	}
	return start, stop, true
}
