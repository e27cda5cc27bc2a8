package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(Close)
	return mr
}

type listing struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func TestAside_FetchesOnceThenHits(t *testing.T) {
	setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *listing) func() error {
		return func() error {
			calls++
			*dest = listing{ID: "p1", Title: "Cabin"}
			return nil
		}
	}

	var first listing
	require.NoError(t, Aside(ctx, "property", PropertyKey("p1"), &first, PropertyTTL, fetch(&first)))
	var second listing
	require.NoError(t, Aside(ctx, "property", PropertyKey("p1"), &second, PropertyTTL, fetch(&second)))

	assert.Equal(t, 1, calls)
	assert.Equal(t, "Cabin", second.Title)
}

func TestAside_FetchErrorIsNotCached(t *testing.T) {
	mr := setupMiniredis(t)
	boom := errors.New("db down")

	var dest listing
	err := Aside(context.Background(), "property", PropertyKey("p2"), &dest, PropertyTTL, func() error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, mr.Exists(PropertyKey("p2")))
}

func TestAside_WithoutRedisCallsFetch(t *testing.T) {
	SetClient(nil)
	calls := 0
	var dest listing
	for i := 0; i < 2; i++ {
		require.NoError(t, Aside(context.Background(), "property", "k", &dest, time.Minute, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}

func TestPropertyListKey_StableForEqualQueries(t *testing.T) {
	type q struct {
		Page  int    `json:"page"`
		Limit int    `json:"limit"`
		Sort  string `json:"sort"`
	}
	a, err := PropertyListKey(q{Page: 1, Limit: 20, Sort: "createdAt"})
	require.NoError(t, err)
	b, err := PropertyListKey(q{Page: 1, Limit: 20, Sort: "createdAt"})
	require.NoError(t, err)
	c, err := PropertyListKey(q{Page: 2, Limit: 20, Sort: "createdAt"})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, len(PropertyListPrefix)+64)
}

func TestInvalidatePrefix(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		require.NoError(t, mr.Set(PropertyListPrefix+string(rune('a'+i)), "x"))
	}
	require.NoError(t, mr.Set(StatsKey(""), "x"))
	require.NoError(t, mr.Set(PropertyKey("keep"), "x"))

	require.NoError(t, InvalidatePrefix(ctx, PropertyListPrefix))

	keys := mr.Keys()
	assert.ElementsMatch(t, []string{StatsKey(""), PropertyKey("keep")}, keys)
}

func TestInvalidateProperty(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(PropertyKey("id-1"), "x"))
	require.NoError(t, mr.Set(PropertyKey("cabin-1"), "x"))
	require.NoError(t, mr.Set(PropertyListPrefix+"abc", "x"))
	require.NoError(t, mr.Set(StatsKey("agent-1"), "x"))
	require.NoError(t, mr.Set(SessionKey("jti"), "x"))

	require.NoError(t, InvalidateProperty(ctx, "id-1", "cabin-1"))
	assert.Equal(t, []string{SessionKey("jti")}, mr.Keys())
}

func TestBlacklist(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	revoked, err := IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, Blacklist(ctx, "jti-1", time.Hour))
	revoked, err = IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Hour)
	revoked, err = IsBlacklisted(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestStatsKey(t *testing.T) {
	assert.Equal(t, "properties:stats:all", StatsKey(""))
	assert.Equal(t, "properties:stats:u1", StatsKey("u1"))
}
