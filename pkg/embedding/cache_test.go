package embedding

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingClient struct {
	*HashingClient
	calls  int
	inputs int
}

func (c *countingClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls++
	c.inputs += len(texts)
	return c.HashingClient.CreateEmbeddings(ctx, texts)
}

func TestCachedClient(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	inner := &countingClient{HashingClient: NewHashingClient(16)}
	c := NewCachedClient(inner, rdb, time.Hour)
	ctx := context.Background()

	first, err := c.CreateEmbeddings(ctx, []string{"alpha", "beta"})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 2, inner.inputs)

	second, err := c.CreateEmbeddings(ctx, []string{"beta", "gamma", "alpha"})
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
	assert.Equal(t, 3, inner.inputs, "only gamma is a miss")
	assert.Equal(t, first[0], second[2])
	assert.Equal(t, first[1], second[0])

	key := c.cacheKey("alpha")
	assert.Contains(t, key, "embedding:hashing-16:")
	assert.True(t, mr.Exists(key))
	mr.FastForward(2 * time.Hour)
	assert.False(t, mr.Exists(key))
}

func TestCachedClient_RedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	mr.Close()

	c := NewCachedClient(NewHashingClient(8), rdb, time.Hour)
	v, err := c.CreateEmbedding(context.Background(), "still works")
	require.NoError(t, err)
	assert.Len(t, v, 8)
}
