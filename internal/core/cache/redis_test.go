package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, ttl time.Duration) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	store, err := NewRedisStore(context.Background(), client, "nutrition:", ttl)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestNewRedisStore_PingFailure(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	_, err = NewRedisStore(context.Background(), redis.NewClient(&redis.Options{Addr: addr}), "x:", time.Minute)
	assert.Error(t, err)
}

func TestRedisStore_SetGetJSON(t *testing.T) {
	store, mr := newTestRedisStore(t, time.Minute)
	ctx := context.Background()

	_, ok := store.Get(ctx, "ns:missing")
	assert.False(t, ok)

	require.NoError(t, store.Set(ctx, `ns:{"query":"curry"}`, searchParams{Query: "curry", Number: 3}, 0))
	assert.True(t, mr.Exists(`nutrition:ns:{"query":"curry"}`))

	raw, ok := store.Get(ctx, `ns:{"query":"curry"}`)
	require.True(t, ok)
	var got searchParams
	require.NoError(t, json.Unmarshal(raw.([]byte), &got))
	assert.Equal(t, searchParams{Query: "curry", Number: 3}, got)

	require.NoError(t, store.Delete(ctx, `ns:{"query":"curry"}`))
	_, ok = store.Get(ctx, `ns:{"query":"curry"}`)
	assert.False(t, ok)

	assert.NoError(t, store.Ping(ctx))
}

func TestRedisStore_TTL(t *testing.T) {
	store, mr := newTestRedisStore(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "ns:default", 1, 0))
	require.NoError(t, store.Set(ctx, "ns:short", 2, 10*time.Second))
	assert.Equal(t, time.Minute, mr.TTL("nutrition:ns:default"))
	assert.Equal(t, 10*time.Second, mr.TTL("nutrition:ns:short"))

	mr.FastForward(11 * time.Second)
	_, ok := store.Get(ctx, "ns:short")
	assert.False(t, ok)
	_, ok = store.Get(ctx, "ns:default")
	assert.True(t, ok)
}

func TestRedisStore_InvalidateNamespaceInBatches(t *testing.T) {
	store, mr := newTestRedisStore(t, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2*scanBatch+50; i++ {
		require.NoError(t, store.Set(ctx, fmt.Sprintf("spoonacular:searchRecipes:{\"n\":%d}", i), i, 0))
	}
	require.NoError(t, store.Set(ctx, "spoonacular:getRecipeByID:\"7\"", 7, 0))
	require.NoError(t, store.Set(ctx, "spoonacular:searchRecipesX:1", 1, 0))

	removed, err := store.InvalidateNamespace(ctx, "spoonacular:searchRecipes")
	require.NoError(t, err)
	assert.Equal(t, 2*scanBatch+50, removed)
	assert.Len(t, mr.Keys(), 2)
}

func TestRedisStore_InvalidateNamespaceIsLiteral(t *testing.T) {
	store, mr := newTestRedisStore(t, time.Minute)
	ctx := context.Background()
	mem := NewManager()

	keys := []string{"plans:a", "recipes:b", "a*:c", "a?:d", "[ab]:e"}
	for _, k := range keys {
		require.NoError(t, store.Set(ctx, k, 1, 0))
		require.NoError(t, mem.Set(ctx, k, 1, 0))
	}

	for _, tc := range []struct {
		namespace string
		removed   int
	}{
		{"*", 0},
		{"?", 0},
		{"a", 0},
		{"a*", 1},
		{"a?", 1},
		{"[ab]", 1},
	} {
		got, err := store.InvalidateNamespace(ctx, tc.namespace)
		require.NoError(t, err)
		assert.Equal(t, tc.removed, got, "redis %q", tc.namespace)

		got, err = mem.InvalidateNamespace(ctx, tc.namespace)
		require.NoError(t, err)
		assert.Equal(t, tc.removed, got, "memory %q", tc.namespace)
	}
	assert.ElementsMatch(t, []string{"nutrition:plans:a", "nutrition:recipes:b"}, mr.Keys())
}

func TestWithCache_RedisStore(t *testing.T) {
	store, _ := newTestRedisStore(t, time.Minute)
	calls := 0
	fn := func(_ context.Context, p searchParams) ([]string, error) {
		calls++
		return []string{p.Query, "soup"}, nil
	}
	cached := WithCache(store, "recipes", fn, Options{})

	first, err := cached(context.Background(), searchParams{Query: "lentil"})
	require.NoError(t, err)
	second, err := cached(context.Background(), searchParams{Query: "lentil"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestEscapeGlob(t *testing.T) {
	assert.Equal(t, `ns:plain`, escapeGlob("ns:plain"))
	assert.Equal(t, `\*\?\[x\]\\`, escapeGlob(`*?[x]\`))
}
