package retrieval

import (
	"context"
	"reflect"
	"strings"
	"testing"

	"ChattyWidget/internal/config"
	"ChattyWidget/internal/models"
	"ChattyWidget/internal/store"
	"ChattyWidget/pkg/logger"
)

type fakeEmbedder struct {
	vec models.Vector
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) models.Vector {
	return f.vec
}

// fakeStore 用内存数据实现 DocumentStore，只支撑检索相关的方法。
type fakeStore struct {
	chunks []store.ChunkRecord
	docs   []models.Document
}

func (f *fakeStore) GetDocument(ctx context.Context, id uint) (*models.Document, error) {
	for i := range f.docs {
		if f.docs[i].ID == id {
			return &f.docs[i], nil
		}
	}
	return nil, store.ErrDocumentNotFound
}

func (f *fakeStore) UpdateDocument(ctx context.Context, doc *models.Document) error { return nil }

func (f *fakeStore) ListChunks(ctx context.Context, documentID uint) ([]models.DocumentChunk, error) {
	var out []models.DocumentChunk
	for _, rec := range f.chunks {
		if rec.Chunk.DocumentID == documentID {
			out = append(out, rec.Chunk)
		}
	}
	return out, nil
}

func (f *fakeStore) ReplaceChunks(ctx context.Context, documentID uint, chunks []models.DocumentChunk) error {
	return nil
}

func (f *fakeStore) AllChunks(ctx context.Context) ([]store.ChunkRecord, error) {
	return f.chunks, nil
}

func (f *fakeStore) ProcessedDocuments(ctx context.Context) ([]models.Document, error) {
	var out []models.Document
	for _, d := range f.docs {
		if d.EmbeddingProcessed {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) ChunksMatching(ctx context.Context, terms []string, limit int) ([]store.ChunkRecord, error) {
	var out []store.ChunkRecord
	for _, rec := range f.chunks {
		lower := strings.ToLower(rec.Chunk.Content)
		for _, term := range terms {
			if strings.Contains(lower, term) {
				out = append(out, rec)
				break
			}
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func testConfig() config.RetrievalConfig {
	return config.RetrievalConfig{
		ChunkSize:         1000,
		ChunkThreshold:    0.3,
		DocumentThreshold: 0.2,
		DefaultLimit:      5,
	}
}

func testLogger() *logger.Logger {
	return logger.New("retrieval-test", "", "")
}

func chunkRec(id, docID uint, index int, docName, content string, vec models.Vector) store.ChunkRecord {
	return store.ChunkRecord{
		Chunk: models.DocumentChunk{
			ID:         id,
			DocumentID: docID,
			ChunkIndex: index,
			Content:    content,
			Embedding:  vec,
		},
		DocumentName: docName,
	}
}

func TestSearchChunkTier(t *testing.T) {
	fs := &fakeStore{
		chunks: []store.ChunkRecord{
			chunkRec(1, 1, 0, "policy", "refund policy details", models.Vector{1, 0, 0}),
			chunkRec(2, 1, 1, "policy", "shipping details", models.Vector{0, 1, 0}),
		},
	}
	s := NewSearcher(&fakeEmbedder{vec: models.Vector{1, 0, 0}}, fs, testConfig(), testLogger())

	results, err := s.Search(context.Background(), "refund policy", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result above threshold, got %d", len(results))
	}
	if results[0].ChunkID != 1 {
		t.Errorf("expected chunk 1, got %d", results[0].ChunkID)
	}
	if results[0].DocumentName != "policy" {
		t.Errorf("document name not carried through: %q", results[0].DocumentName)
	}
}

func TestSearchFallsBackToDocumentTier(t *testing.T) {
	// 所有分块都低于 0.3 阈值，但文档整体嵌入超过 0.2 阈值。
	fs := &fakeStore{
		chunks: []store.ChunkRecord{
			chunkRec(1, 1, 0, "policy", "off topic", models.Vector{0, 1, 0}),
		},
		docs: []models.Document{
			{Name: "policy", Content: "full document text", Embedding: models.Vector{0.5, 0.8, 0}, EmbeddingProcessed: true},
		},
	}
	fs.docs[0].ID = 1
	s := NewSearcher(&fakeEmbedder{vec: models.Vector{1, 0, 0}}, fs, testConfig(), testLogger())

	results, err := s.Search(context.Background(), "refund", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected document-level result, got %d", len(results))
	}
	if results[0].Content != "full document text" {
		t.Errorf("expected whole-document content, got %q", results[0].Content)
	}
	if results[0].ChunkIndex != 0 {
		t.Errorf("document-level result must report chunk index 0, got %d", results[0].ChunkIndex)
	}
}

func TestSearchFallsBackToHybridTier(t *testing.T) {
	// 向量完全正交：两层向量检索都拿不到结果，关键词命中后叠加保底分。
	fs := &fakeStore{
		chunks: []store.ChunkRecord{
			chunkRec(1, 1, 0, "policy", "the refund window is 30 days", models.Vector{0, 1, 0}),
		},
	}
	s := NewSearcher(&fakeEmbedder{vec: models.Vector{1, 0, 0}}, fs, testConfig(), testLogger())

	results, err := s.Search(context.Background(), "refund", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected hybrid result, got %d", len(results))
	}
	// 正交向量余弦为 0，混合得分恰好是保底分 0.3。
	if results[0].Similarity != hybridBase {
		t.Errorf("hybrid score = %v, want %v", results[0].Similarity, hybridBase)
	}
}

func TestSearchEmptyEmbeddingMatchesKeywordSearch(t *testing.T) {
	fs := &fakeStore{
		chunks: []store.ChunkRecord{
			chunkRec(1, 1, 0, "policy", "the refund window is 30 days", models.Vector{0, 1, 0}),
			chunkRec(2, 2, 0, "faq", "contact support by email", models.Vector{1, 0, 0}),
		},
	}
	s := NewSearcher(&fakeEmbedder{vec: models.Vector{}}, fs, testConfig(), testLogger())

	viaSearch, err := s.Search(context.Background(), "refund window", 5)
	if err != nil {
		t.Fatal(err)
	}
	direct, err := s.keywordSearch(context.Background(), "refund window", 5)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(viaSearch, direct) {
		t.Errorf("empty-embedding search must equal direct keyword search:\n got %+v\nwant %+v", viaSearch, direct)
	}
	if len(viaSearch) != 1 || viaSearch[0].ChunkID != 1 {
		t.Errorf("keyword search returned wrong chunks: %+v", viaSearch)
	}
}

func TestSearchDefaultLimit(t *testing.T) {
	var chunks []store.ChunkRecord
	for i := 0; i < 10; i++ {
		chunks = append(chunks, chunkRec(uint(i+1), uint(i+1), 0, "doc", "content", models.Vector{1, 0, 0}))
	}
	s := NewSearcher(&fakeEmbedder{vec: models.Vector{1, 0, 0}}, &fakeStore{chunks: chunks}, testConfig(), testLogger())

	results, err := s.Search(context.Background(), "anything", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 5 {
		t.Errorf("limit 0 must fall back to configured default 5, got %d", len(results))
	}
}
