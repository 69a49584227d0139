package retrieval

import (
	"math"
	"testing"

	"ChattyWidget/internal/models"
)

func TestCosineSimilaritySelf(t *testing.T) {
	v := models.Vector{0.3, -0.5, 0.81, 0.02}
	got := CosineSimilarity(v, v)
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("self similarity = %v, want 1.0", got)
	}
}

func TestCosineSimilaritySymmetry(t *testing.T) {
	a := models.Vector{1, 2, 3}
	b := models.Vector{-2, 0.5, 4}
	if CosineSimilarity(a, b) != CosineSimilarity(b, a) {
		t.Errorf("cosine similarity must be symmetric")
	}
}

func TestCosineSimilarityDegenerateInputs(t *testing.T) {
	tests := []struct {
		name string
		a, b models.Vector
	}{
		{"both empty", models.Vector{}, models.Vector{}},
		{"first empty", models.Vector{}, models.Vector{1, 2}},
		{"second empty", models.Vector{1, 2}, models.Vector{}},
		{"length mismatch", models.Vector{1, 2}, models.Vector{1, 2, 3}},
		{"zero norm", models.Vector{0, 0}, models.Vector{1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); got != 0.0 {
				t.Errorf("CosineSimilarity(%v, %v) = %v, want exactly 0.0", tt.a, tt.b, got)
			}
		})
	}
}

func TestCosineSimilarityOpposite(t *testing.T) {
	a := models.Vector{1, 0}
	b := models.Vector{-1, 0}
	if got := CosineSimilarity(a, b); math.Abs(got+1.0) > 1e-9 {
		t.Errorf("opposite vectors = %v, want -1.0", got)
	}
}

func TestRerankMergesAdjacentChunks(t *testing.T) {
	candidates := []models.SearchResult{
		{DocumentID: 1, DocumentName: "policy", Content: "chunk two", ChunkIndex: 2, Similarity: 0.8},
		{DocumentID: 1, DocumentName: "policy", Content: "chunk three", ChunkIndex: 3, Similarity: 0.9},
		{DocumentID: 2, DocumentName: "faq", Content: "other", ChunkIndex: 0, Similarity: 0.5},
	}
	results := rerank(candidates, 5)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	top := results[0]
	if top.DocumentID != 1 {
		t.Fatalf("expected document 1 first, got %d", top.DocumentID)
	}
	// 相邻分块按序号顺序合并，得分取最大值，序号取较小值。
	if top.Content != "chunk two\nchunk three" {
		t.Errorf("merged content = %q", top.Content)
	}
	if top.Similarity != 0.9 {
		t.Errorf("merged similarity = %v, want 0.9", top.Similarity)
	}
	if top.ChunkIndex != 2 {
		t.Errorf("merged chunk index = %d, want 2", top.ChunkIndex)
	}
}

func TestRerankKeepsSingleBestForNonAdjacent(t *testing.T) {
	candidates := []models.SearchResult{
		{DocumentID: 1, Content: "first", ChunkIndex: 0, Similarity: 0.7},
		{DocumentID: 1, Content: "far away", ChunkIndex: 5, Similarity: 0.85},
		{DocumentID: 1, Content: "middle", ChunkIndex: 3, Similarity: 0.4},
	}
	results := rerank(candidates, 5)
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Content != "far away" || results[0].Similarity != 0.85 {
		t.Errorf("expected single best chunk, got %+v", results[0])
	}
}

func TestRerankTruncatesToLimit(t *testing.T) {
	candidates := []models.SearchResult{
		{DocumentID: 1, ChunkIndex: 0, Similarity: 0.9},
		{DocumentID: 2, ChunkIndex: 0, Similarity: 0.8},
		{DocumentID: 3, ChunkIndex: 0, Similarity: 0.7},
	}
	results := rerank(candidates, 2)
	if len(results) != 2 {
		t.Fatalf("expected limit 2, got %d", len(results))
	}
	if results[0].DocumentID != 1 || results[1].DocumentID != 2 {
		t.Errorf("results not sorted by score: %+v", results)
	}
}

func TestKeywordScore(t *testing.T) {
	terms := queryTerms("What is the Refund Policy?")
	content := "Our refund policy allows returns within 30 days."
	if got := keywordScore(content, terms); got <= 0 {
		t.Errorf("expected positive score, got %v", got)
	}
	if got := keywordScore("completely unrelated words", terms); got != 0 {
		t.Errorf("expected zero score for unrelated content, got %v", got)
	}
}
