package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"docqa-go/pkg/log"

	"github.com/go-redis/redis/v8"
)

// CachedClient 在 Redis 中缓存向量，键为 embedding:{model}:{sha256(text)}。
// Redis 不可用时直接回落到底层 Client。
type CachedClient struct {
	inner Client
	rdb   *redis.Client
	ttl   time.Duration
}

func NewCachedClient(inner Client, rdb *redis.Client, ttl time.Duration) *CachedClient {
	return &CachedClient{inner: inner, rdb: rdb, ttl: ttl}
}

func (c *CachedClient) Model() string   { return c.inner.Model() }
func (c *CachedClient) Dimensions() int { return c.inner.Dimensions() }

func (c *CachedClient) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embedding:" + c.inner.Model() + ":" + hex.EncodeToString(sum[:])
}

func (c *CachedClient) CreateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.CreateEmbeddings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (c *CachedClient) CreateEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	keys := make([]string, len(texts))
	for i, t := range texts {
		keys[i] = c.cacheKey(t)
	}

	out := make([][]float32, len(texts))
	var missIdx []int
	cached, err := c.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		log.Warnf("[EmbeddingCache] 读取缓存失败, 直接调用模型: %v", err)
		cached = make([]interface{}, len(texts))
	}
	for i, v := range cached {
		s, ok := v.(string)
		if !ok {
			missIdx = append(missIdx, i)
			continue
		}
		var vec []float32
		if err := json.Unmarshal([]byte(s), &vec); err != nil || len(vec) == 0 {
			missIdx = append(missIdx, i)
			continue
		}
		out[i] = vec
	}
	if len(missIdx) == 0 {
		return out, nil
	}

	missTexts := make([]string, len(missIdx))
	for j, i := range missIdx {
		missTexts[j] = texts[i]
	}
	fresh, err := c.inner.CreateEmbeddings(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	pipe := c.rdb.Pipeline()
	for j, i := range missIdx {
		out[i] = fresh[j]
		data, err := json.Marshal(fresh[j])
		if err != nil {
			continue
		}
		pipe.Set(ctx, keys[i], data, c.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warnf("[EmbeddingCache] 写入缓存失败: %v", err)
	}
	log.Debugf("[EmbeddingCache] batch: %d, hit: %d, miss: %d", len(texts), len(texts)-len(missIdx), len(missIdx))
	return out, nil
}
