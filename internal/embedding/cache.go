package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"ChattyWidget/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// CachedEmbedder 是 Embedding 的读穿缓存装饰器，用 Redis 按文本哈希缓存向量。
// 缓存层的任何失败都只是降级为直接调用底层模型，永远不会让嵌入请求失败。
type CachedEmbedder struct {
	inner Embedding
	rdb   *redis.Client
	model string
	ttl   time.Duration
	log   *logger.Logger
}

// NewCachedEmbedder 创建一个带 Redis 缓存的 Embedding 装饰器。
// ttl 为 0 时缓存条目不过期。
func NewCachedEmbedder(inner Embedding, rdb *redis.Client, model string, ttl time.Duration, log *logger.Logger) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, rdb: rdb, model: model, ttl: ttl, log: log}
}

// Embed 先查缓存，未命中时调用底层模型并回填。
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)

	if data, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var vec []float32
		if jsonErr := json.Unmarshal(data, &vec); jsonErr == nil && len(vec) > 0 {
			return vec, nil
		}
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if data, jsonErr := json.Marshal(vec); jsonErr == nil {
		if setErr := c.rdb.Set(ctx, key, data, c.ttl).Err(); setErr != nil {
			c.log.Warn("嵌入缓存写入失败: " + setErr.Error())
		}
	}
	return vec, nil
}

// EmbedBatch 逐条走缓存。批量接口的调用方（文档处理）本就按顺序逐块处理。
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// cacheKey 由模型名和文本内容的哈希构成，避免不同模型的向量互相污染。
func (c *CachedEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embedding:" + c.model + ":" + hex.EncodeToString(sum[:])
}

var _ Embedding = (*CachedEmbedder)(nil)
