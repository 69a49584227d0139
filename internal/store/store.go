package store

import (
	"context"
	"errors"

	"ChattyWidget/internal/models"
)

// ErrDocumentNotFound 表示按 ID 解析文档失败。
var ErrDocumentNotFound = errors.New("document not found")

// DocumentStore 是核心对持久化层的唯一依赖。
// 核心只需要这些 CRUD 原语，不关心具体的存储引擎。
type DocumentStore interface {
	// GetDocument 按 ID 加载文档，不存在时返回 ErrDocumentNotFound。
	GetDocument(ctx context.Context, id uint) (*models.Document, error)
	// UpdateDocument 保存文档的全部字段。
	UpdateDocument(ctx context.Context, doc *models.Document) error
	// ListChunks 返回文档的全部分块，按 ChunkIndex 升序排列。
	ListChunks(ctx context.Context, documentID uint) ([]models.DocumentChunk, error)
	// ReplaceChunks 原子地用新分块替换文档的全部旧分块：
	// 旧分块先删除，新分块再插入，二者在同一事务中完成。
	ReplaceChunks(ctx context.Context, documentID uint, chunks []models.DocumentChunk) error
	// AllChunks 返回所有已嵌入分块及其所属文档名称，供相似度检索逐一打分。
	AllChunks(ctx context.Context) ([]ChunkRecord, error)
	// ProcessedDocuments 返回所有已完成向量化的文档，供文档级回退检索使用。
	ProcessedDocuments(ctx context.Context) ([]models.Document, error)
	// ChunksMatching 返回内容中包含任一给定关键词的分块，供关键词回退检索使用。
	ChunksMatching(ctx context.Context, terms []string, limit int) ([]ChunkRecord, error)
}

// ChunkRecord 是检索层消费的分块视图，附带所属文档的名称。
type ChunkRecord struct {
	Chunk        models.DocumentChunk
	DocumentName string
}

// FileStore 提供文档原始文件的读取能力，供支持文件上传的提供方使用。
type FileStore interface {
	// FetchRaw 按对象名读取原始文件字节。
	FetchRaw(ctx context.Context, name string) ([]byte, error)
}

// FeedbackStore 是反馈记录的外部汇集点。核心只负责写入，不做任何分析。
type FeedbackStore interface {
	Record(ctx context.Context, fb *models.Feedback) error
}
