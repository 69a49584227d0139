package embedding

import (
	"context"
	"fmt"
	"strings"

	"ChattyWidget/internal/chunker"
	"ChattyWidget/internal/models"
	"ChattyWidget/internal/store"
	"ChattyWidget/pkg/logger"
)

// ContentFetcher 是 website 类别文档内容懒加载的抽象。
type ContentFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Store 是嵌入服务：负责嵌入生成、文档分块以及文档/分块向量的持久化。
type Store struct {
	embedder Embedding
	docs     store.DocumentStore
	chunks   *chunker.Chunker
	fetcher  ContentFetcher // 可为 nil，此时不做懒加载
	log      *logger.Logger
}

// NewStore 创建一个嵌入服务。
func NewStore(embedder Embedding, docs store.DocumentStore, chunks *chunker.Chunker, fetcher ContentFetcher, log *logger.Logger) *Store {
	return &Store{
		embedder: embedder,
		docs:     docs,
		chunks:   chunks,
		fetcher:  fetcher,
		log:      log.WithComponent("embedding"),
	}
}

// Embed 为文本生成嵌入向量。任何失败（网络、响应格式）都返回空向量哨兵
// 而不是错误：调用方必须将空向量理解为"无信号"，而不是异常。
func (s *Store) Embed(ctx context.Context, text string) models.Vector {
	if strings.TrimSpace(text) == "" {
		return models.Vector{}
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		s.log.Warn(fmt.Sprintf("嵌入生成失败，返回空向量: %v", err))
		return models.Vector{}
	}
	return models.Vector(vec)
}

// Process 对一篇文档做完整的向量化处理。该操作是幂等的：
// 重复执行会整体替换旧分块（旧分块先删除，新分块再插入）。
// 存储层的失败会向调用方抛出；已提交的部分分块不回滚，重跑 Process 即是恢复路径。
func (s *Store) Process(ctx context.Context, documentID uint) error {
	doc, err := s.docs.GetDocument(ctx, documentID)
	if err != nil {
		return err
	}

	// website 类别的文档内容可能尚未抓取，这里按来源 URL 懒加载。
	if doc.Content == "" && doc.Category == models.CategoryWebsite && doc.SourceURL != "" && s.fetcher != nil {
		content, fetchErr := s.fetcher.Fetch(ctx, doc.SourceURL)
		if fetchErr != nil {
			s.log.Warn(fmt.Sprintf("文档 %d 内容抓取失败: %v", documentID, fetchErr))
		} else {
			doc.Content = content
		}
	}

	// 内容为空的文档直接标记处理完成，嵌入为哨兵空向量，不做分块。
	if strings.TrimSpace(doc.Content) == "" {
		doc.Embedding = models.Vector{}
		doc.EmbeddingProcessed = true
		doc.Status = models.DocStatusProcessed
		return s.docs.UpdateDocument(ctx, doc)
	}

	pieces := s.chunks.Chunk(doc.Content)

	// 逐块顺序计算嵌入，保证序号分配正确并避免压垮嵌入端点。
	chunkRows := make([]models.DocumentChunk, 0, len(pieces))
	for i, piece := range pieces {
		chunkRows = append(chunkRows, models.DocumentChunk{
			DocumentID: documentID,
			ChunkIndex: i,
			Content:    piece,
			Embedding:  s.Embed(ctx, piece),
		})
	}

	if err := s.docs.ReplaceChunks(ctx, documentID, chunkRows); err != nil {
		doc.Status = models.DocStatusError
		if updErr := s.docs.UpdateDocument(ctx, doc); updErr != nil {
			s.log.Error(fmt.Sprintf("文档 %d 状态更新失败: %v", documentID, updErr))
		}
		return err
	}

	doc.Embedding = s.Embed(ctx, doc.Content)
	doc.EmbeddingProcessed = true
	doc.Status = models.DocStatusProcessed
	if err := s.docs.UpdateDocument(ctx, doc); err != nil {
		return err
	}

	s.log.Info(fmt.Sprintf("文档 %d 处理完成，共 %d 个分块", documentID, len(chunkRows)))
	return nil
}
