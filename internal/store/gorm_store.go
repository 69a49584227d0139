package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"ChattyWidget/internal/models"

	"gorm.io/gorm"
)

// GormDocumentStore 是 DocumentStore 的 GORM/MySQL 实现。
type GormDocumentStore struct {
	db *gorm.DB
}

// NewGormDocumentStore 创建一个 GormDocumentStore 并确保表结构存在。
func NewGormDocumentStore(db *gorm.DB) (*GormDocumentStore, error) {
	if err := db.AutoMigrate(&models.Document{}, &models.DocumentChunk{}); err != nil {
		return nil, fmt.Errorf("failed to migrate document tables: %w", err)
	}
	return &GormDocumentStore{db: db}, nil
}

// GetDocument 按 ID 加载文档。
func (s *GormDocumentStore) GetDocument(ctx context.Context, id uint) (*models.Document, error) {
	var doc models.Document
	if err := s.db.WithContext(ctx).First(&doc, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to load document %d: %w", id, err)
	}
	return &doc, nil
}

// UpdateDocument 保存文档的全部字段。
func (s *GormDocumentStore) UpdateDocument(ctx context.Context, doc *models.Document) error {
	if err := s.db.WithContext(ctx).Save(doc).Error; err != nil {
		return fmt.Errorf("failed to update document %d: %w", doc.ID, err)
	}
	return nil
}

// ListChunks 返回文档的全部分块，按序号升序。
func (s *GormDocumentStore) ListChunks(ctx context.Context, documentID uint) ([]models.DocumentChunk, error) {
	var chunks []models.DocumentChunk
	err := s.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("chunk_index ASC").
		Find(&chunks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks for document %d: %w", documentID, err)
	}
	return chunks, nil
}

// ReplaceChunks 在一个事务中删除旧分块并插入新分块。
func (s *GormDocumentStore) ReplaceChunks(ctx context.Context, documentID uint, chunks []models.DocumentChunk) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentID).Delete(&models.DocumentChunk{}).Error; err != nil {
			return fmt.Errorf("failed to delete old chunks: %w", err)
		}
		if len(chunks) == 0 {
			return nil
		}
		for i := range chunks {
			chunks[i].DocumentID = documentID
		}
		if err := tx.Create(&chunks).Error; err != nil {
			return fmt.Errorf("failed to insert new chunks: %w", err)
		}
		return nil
	})
}

// AllChunks 返回所有分块及其所属文档名称。
func (s *GormDocumentStore) AllChunks(ctx context.Context) ([]ChunkRecord, error) {
	var chunks []models.DocumentChunk
	if err := s.db.WithContext(ctx).Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	return s.attachDocumentNames(ctx, chunks)
}

// ProcessedDocuments 返回所有已完成向量化的文档。
func (s *GormDocumentStore) ProcessedDocuments(ctx context.Context) ([]models.Document, error) {
	var docs []models.Document
	err := s.db.WithContext(ctx).
		Where("embedding_processed = ?", true).
		Find(&docs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load processed documents: %w", err)
	}
	return docs, nil
}

// ChunksMatching 用 LIKE 做朴素的关键词筛选，打分逻辑在检索层完成。
func (s *GormDocumentStore) ChunksMatching(ctx context.Context, terms []string, limit int) ([]ChunkRecord, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.DocumentChunk{})
	conds := make([]string, 0, len(terms))
	args := make([]interface{}, 0, len(terms))
	for _, term := range terms {
		conds = append(conds, "content LIKE ?")
		args = append(args, "%"+term+"%")
	}
	var chunks []models.DocumentChunk
	err := query.Where(strings.Join(conds, " OR "), args...).
		Limit(limit).
		Find(&chunks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to match chunks by keyword: %w", err)
	}
	return s.attachDocumentNames(ctx, chunks)
}

// attachDocumentNames 批量查出分块所属文档的名称。
func (s *GormDocumentStore) attachDocumentNames(ctx context.Context, chunks []models.DocumentChunk) ([]ChunkRecord, error) {
	if len(chunks) == 0 {
		return nil, nil
	}
	idSet := make(map[uint]struct{}, len(chunks))
	ids := make([]uint, 0, len(chunks))
	for _, c := range chunks {
		if _, ok := idSet[c.DocumentID]; !ok {
			idSet[c.DocumentID] = struct{}{}
			ids = append(ids, c.DocumentID)
		}
	}
	var docs []models.Document
	if err := s.db.WithContext(ctx).Select("id", "name").Find(&docs, ids).Error; err != nil {
		return nil, fmt.Errorf("failed to load document names: %w", err)
	}
	names := make(map[uint]string, len(docs))
	for _, d := range docs {
		names[d.ID] = d.Name
	}
	records := make([]ChunkRecord, 0, len(chunks))
	for _, c := range chunks {
		records = append(records, ChunkRecord{Chunk: c, DocumentName: names[c.DocumentID]})
	}
	return records, nil
}

// 编译期检查。
var _ DocumentStore = (*GormDocumentStore)(nil)
