package retrieval

import (
	"context"
	"fmt"
	"sort"

	"ChattyWidget/internal/config"
	"ChattyWidget/internal/models"
	"ChattyWidget/internal/store"
	"ChattyWidget/pkg/logger"
)

// QueryEmbedder 为查询文本生成嵌入向量。
// 空向量表示"无信号"（嵌入服务不可用），检索层据此回退到关键词检索。
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) models.Vector
}

// 关键词回退层的混合打分权重：0.3 为关键词命中的保底分，
// 0.7 乘以余弦相似度作为向量信号的加成。
const (
	hybridBase   = 0.3
	hybridWeight = 0.7
)

// Searcher 实现三层回退的相似度检索：
// 分块向量 → 文档向量 → 关键词+向量混合。每一层只在上一层结果为空时才尝试。
type Searcher struct {
	embedder QueryEmbedder
	docs     store.DocumentStore
	cfg      config.RetrievalConfig
	log      *logger.Logger
}

// NewSearcher 创建一个 Searcher。
func NewSearcher(embedder QueryEmbedder, docs store.DocumentStore, cfg config.RetrievalConfig, log *logger.Logger) *Searcher {
	return &Searcher{
		embedder: embedder,
		docs:     docs,
		cfg:      cfg,
		log:      log.WithComponent("retrieval"),
	}
}

// Search 对查询执行检索，最多返回 limit 条结果。
// 查询嵌入为空时直接走纯关键词检索，完全跳过向量层。
func (s *Searcher) Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	if limit <= 0 {
		limit = s.cfg.DefaultLimit
	}

	queryVec := s.embedder.Embed(ctx, query)
	if queryVec.IsEmpty() {
		s.log.Warn("查询嵌入为空，回退到关键词检索")
		return s.keywordSearch(ctx, query, limit)
	}

	// 第一层：分块级向量检索。
	results, err := s.chunkSearch(ctx, queryVec, limit)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		return results, nil
	}

	// 第二层：文档级向量检索，阈值更宽松。
	s.log.Info("分块检索无结果，回退到文档级检索")
	results, err = s.documentSearch(ctx, queryVec, limit)
	if err != nil {
		return nil, err
	}
	if len(results) > 0 {
		return results, nil
	}

	// 第三层：关键词命中加向量信号的混合打分。
	s.log.Info("文档级检索无结果，回退到混合关键词检索")
	return s.hybridSearch(ctx, query, queryVec, limit)
}

// chunkSearch 对所有已存储分块逐一计算余弦相似度，过滤低于阈值的结果，
// 取前 3×limit 个候选交给重排器做相邻分块合并。
func (s *Searcher) chunkSearch(ctx context.Context, queryVec models.Vector, limit int) ([]models.SearchResult, error) {
	records, err := s.docs.AllChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks for search: %w", err)
	}

	candidates := make([]models.SearchResult, 0)
	for _, rec := range records {
		sim := CosineSimilarity(queryVec, rec.Chunk.Embedding)
		if sim < s.cfg.ChunkThreshold {
			continue
		}
		candidates = append(candidates, models.SearchResult{
			ChunkID:      rec.Chunk.ID,
			DocumentID:   rec.Chunk.DocumentID,
			DocumentName: rec.DocumentName,
			Content:      rec.Chunk.Content,
			ChunkIndex:   rec.Chunk.ChunkIndex,
			Similarity:   sim,
		})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Similarity > candidates[j].Similarity })
	if max := 3 * limit; len(candidates) > max {
		candidates = candidates[:max]
	}
	return rerank(candidates, limit), nil
}

// documentSearch 用整篇文档的嵌入做检索，阈值比分块级更低。
func (s *Searcher) documentSearch(ctx context.Context, queryVec models.Vector, limit int) ([]models.SearchResult, error) {
	docs, err := s.docs.ProcessedDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load documents for search: %w", err)
	}

	results := make([]models.SearchResult, 0)
	for _, doc := range docs {
		sim := CosineSimilarity(queryVec, doc.Embedding)
		if sim < s.cfg.DocumentThreshold {
			continue
		}
		results = append(results, models.SearchResult{
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
			Content:      doc.Content,
			ChunkIndex:   0,
			Similarity:   sim,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// hybridSearch 在关键词命中的分块上叠加向量信号：
// 得分 = 0.3 + 0.7 × 余弦相似度。
func (s *Searcher) hybridSearch(ctx context.Context, query string, queryVec models.Vector, limit int) ([]models.SearchResult, error) {
	terms := queryTerms(query)
	records, err := s.docs.ChunksMatching(ctx, terms, 3*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to match keywords: %w", err)
	}

	results := make([]models.SearchResult, 0, len(records))
	for _, rec := range records {
		score := hybridBase + hybridWeight*CosineSimilarity(queryVec, rec.Chunk.Embedding)
		results = append(results, models.SearchResult{
			ChunkID:      rec.Chunk.ID,
			DocumentID:   rec.Chunk.DocumentID,
			DocumentName: rec.DocumentName,
			Content:      rec.Chunk.Content,
			ChunkIndex:   rec.Chunk.ChunkIndex,
			Similarity:   score,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// keywordSearch 是嵌入服务完全不可用时的纯关键词检索，按词项覆盖度打分。
func (s *Searcher) keywordSearch(ctx context.Context, query string, limit int) ([]models.SearchResult, error) {
	terms := queryTerms(query)
	records, err := s.docs.ChunksMatching(ctx, terms, 3*limit)
	if err != nil {
		return nil, fmt.Errorf("failed to match keywords: %w", err)
	}

	results := make([]models.SearchResult, 0, len(records))
	for _, rec := range records {
		score := keywordScore(rec.Chunk.Content, terms)
		if score == 0 {
			continue
		}
		results = append(results, models.SearchResult{
			ChunkID:      rec.Chunk.ID,
			DocumentID:   rec.Chunk.DocumentID,
			DocumentName: rec.DocumentName,
			Content:      rec.Chunk.Content,
			ChunkIndex:   rec.Chunk.ChunkIndex,
			Similarity:   score,
		})
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
