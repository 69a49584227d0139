package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// DocumentStatus 定义了文档在知识库中的生命周期状态。
type DocumentStatus string

const (
	DocStatusPending   DocumentStatus = "pending"   // 文档已上传，等待处理
	DocStatusProcessed DocumentStatus = "processed" // 文档已完成向量化处理
	DocStatusError     DocumentStatus = "error"     // 文档处理失败
)

// ContentCategory 定义了文档的内容类别，不同类别在构建上下文时采用不同的格式化策略。
type ContentCategory string

const (
	CategoryWebsite     ContentCategory = "website"     // 网页抓取的内容
	CategorySpreadsheet ContentCategory = "spreadsheet" // 表格类文档 (csv/xlsx)
	CategoryPDF         ContentCategory = "pdf"         // PDF 等结构化文档
	CategoryGeneric     ContentCategory = "generic"     // 其他普通文本
)

// Vector 是一个可变长度的嵌入向量，在数据库中以 JSON 数组文本的形式存储。
// 空向量 ([]) 是"未计算"或"计算失败"的哨兵值，永远不使用 null。
type Vector []float32

// IsEmpty 报告该向量是否为哨兵空向量。
func (v Vector) IsEmpty() bool {
	return len(v) == 0
}

// Value 实现 driver.Valuer，将向量序列化为 JSON 文本。
func (v Vector) Value() (driver.Value, error) {
	if v == nil {
		v = Vector{}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal vector: %w", err)
	}
	return string(data), nil
}

// Scan 实现 sql.Scanner，从 JSON 文本反序列化向量。
// 无法解析的内容会被视为空向量，而不是导致查询失败。
func (v *Vector) Scan(value interface{}) error {
	if value == nil {
		*v = Vector{}
		return nil
	}
	var data []byte
	switch src := value.(type) {
	case []byte:
		data = src
	case string:
		data = []byte(src)
	default:
		return fmt.Errorf("unsupported vector source type: %T", value)
	}
	if len(data) == 0 {
		*v = Vector{}
		return nil
	}
	var out []float32
	if err := json.Unmarshal(data, &out); err != nil {
		*v = Vector{}
		return nil
	}
	*v = out
	return nil
}

// Document 代表知识库中的一篇文档。
// 文档由外部采集层创建，核心只负责其向量化与检索；核心从不物理删除文档。
type Document struct {
	gorm.Model

	Name      string          `gorm:"size:512;not null"`              // 文档名称（文件名或页面标题）
	Content   string          `gorm:"type:longtext"`                  // 原始文本内容
	Category  ContentCategory `gorm:"type:varchar(32);default:'generic'"` // 内容类别
	SourceURL string          `gorm:"size:1024"`                      // 来源 URL（website 类别在内容为空时可按此懒加载）
	UserID    string          `gorm:"size:64;index"`                  // 所属用户
	Status    DocumentStatus  `gorm:"type:varchar(20);default:'pending';not null"`

	// Embedding 是整篇文档的嵌入向量，以 JSON 文本存储。
	Embedding Vector `gorm:"type:longtext"`
	// EmbeddingProcessed 标记该文档是否已完成向量化（包括内容为空的退化情形）。
	EmbeddingProcessed bool `gorm:"default:false"`
}

// TableName 自定义 Document 的表名。
func (Document) TableName() string {
	return "documents"
}

// DocumentChunk 是文档的一个分块，独立嵌入以支持更细粒度的检索。
// 分块归属于文档：重新处理文档时旧分块会被整体替换。
type DocumentChunk struct {
	ID         uint      `gorm:"primarykey"`
	DocumentID uint      `gorm:"index;not null"` // 所属文档 ID
	ChunkIndex int       `gorm:"not null"`       // 文档内的序号，从 0 开始且连续递增
	Content    string    `gorm:"type:text"`      // 分块文本
	Embedding  Vector    `gorm:"type:longtext"`  // 分块的嵌入向量
	CreatedAt  time.Time
}

// TableName 自定义 DocumentChunk 的表名。
func (DocumentChunk) TableName() string {
	return "document_chunks"
}
