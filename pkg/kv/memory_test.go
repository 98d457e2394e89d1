package kv

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Scalars(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	_, found, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "k", "v"))
	got, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", got)

	require.NoError(t, s.Del(ctx, "k"))
	_, found, err = s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryStore_Lists(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.RPush(ctx, "l", "a", "b"))
	require.NoError(t, s.LPush(ctx, "l", "c"))

	got, err := s.LRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, got)

	n, err := s.LLen(ctx, "l")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	// Negative indices count from the tail, stop is inclusive.
	got, err = s.LRange(ctx, "l", -2, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got)

	got, err = s.LRange(ctx, "l", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, got)

	require.NoError(t, s.LTrim(ctx, "l", 0, 1))
	got, err = s.LRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, got)

	// Trimming to an empty window deletes the list.
	require.NoError(t, s.LTrim(ctx, "l", 5, 10))
	n, err = s.LLen(ctx, "l")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestMemoryStore_LPushOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	// Pushed one by one: the last value lands at the head.
	require.NoError(t, s.LPush(ctx, "l", "1", "2", "3"))
	got, err := s.LRange(ctx, "l", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2", "1"}, got)
}

func TestMemoryStore_Hashes(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	got, err := s.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Empty(t, got)

	require.NoError(t, s.HSet(ctx, "h", map[string]string{"a": "1", "b": "2"}))
	require.NoError(t, s.HSet(ctx, "h", map[string]string{"b": "3"}))

	got, err = s.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "3"}, got)
}

func TestMemoryStore_Sets(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.SAdd(ctx, "s", "x", "y"))
	require.NoError(t, s.SAdd(ctx, "s", "x"))

	members, err := s.SMembers(ctx, "s")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"x", "y"}, members)

	n, err := s.SCard(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, s.SRem(ctx, "s", "x", "y"))
	n, err = s.SCard(ctx, "s")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestMemoryStore_Pipelined(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	require.NoError(t, s.RPush(ctx, "feed", "old1", "old2"))

	err := s.Pipelined(ctx, func(p Pipeline) error {
		p.Set("analysis:1", "{}")
		p.DelList("feed")
		p.RPush("feed", "new1", "new2", "new3")
		p.LTrim("feed", 0, 1)
		p.SAdd("tracked", "CRYPTO:BTC")
		return nil
	})
	require.NoError(t, err)

	_, found, err := s.Get(ctx, "analysis:1")
	require.NoError(t, err)
	assert.True(t, found)

	feed, err := s.LRange(ctx, "feed", 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"new1", "new2"}, feed)

	members, err := s.SMembers(ctx, "tracked")
	require.NoError(t, err)
	assert.Equal(t, []string{"CRYPTO:BTC"}, members)
}

func TestMemoryStore_PipelinedErrorDiscardsBatch(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	err := s.Pipelined(ctx, func(p Pipeline) error {
		p.Set("k", "v")
		return assert.AnError
	})
	require.Error(t, err)

	_, found, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, found)
}
