package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"ChattyWidget/pkg/util"
)

// MemoryCachedEmbedder 是 Embedding 的进程内缓存装饰器，在未启用 Redis 时使用。
// 以向量的字节数为权重做 LRU 淘汰，进程重启后缓存即丢失。
type MemoryCachedEmbedder struct {
	inner Embedding
	model string
	cache *util.LRUCache[string, []float32]
}

// NewMemoryCachedEmbedder 创建一个进程内缓存装饰器。
// maxBytes 是缓存向量占用的内存上限，ttl 为 0 时条目不过期。
func NewMemoryCachedEmbedder(inner Embedding, model string, maxBytes int, ttl time.Duration) *MemoryCachedEmbedder {
	return &MemoryCachedEmbedder{
		inner: inner,
		model: model,
		cache: util.NewLRU[string, []float32](maxBytes, ttl),
	}
}

// Embed 先查缓存，未命中时调用底层模型并回填。
func (m *MemoryCachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := m.cacheKey(text)
	if vec, ok := m.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := m.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(vec) > 0 {
		m.cache.Put(key, vec, len(vec)*4)
	}
	return vec, nil
}

// EmbedBatch 逐条走缓存。
func (m *MemoryCachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (m *MemoryCachedEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return m.model + ":" + hex.EncodeToString(sum[:])
}

var _ Embedding = (*MemoryCachedEmbedder)(nil)
