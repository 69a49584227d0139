package chunker

import (
	"strings"
	"testing"
)

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func TestChunkEmptyText(t *testing.T) {
	c := New(100)
	if got := c.Chunk(""); got != nil {
		t.Errorf("expected nil for empty text, got %v", got)
	}
	if got := c.Chunk("   \n\n  "); got != nil {
		t.Errorf("expected nil for blank text, got %v", got)
	}
}

func TestChunkShortTextIsSingleChunk(t *testing.T) {
	c := New(1000)
	text := "A short document.\n\nWith two paragraphs."
	chunks := c.Chunk(text)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0], "short document") {
		t.Errorf("chunk lost content: %q", chunks[0])
	}
}

func TestBaseChunksRespectTargetSize(t *testing.T) {
	c := New(120)
	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("This is sentence number one. And here is another one! Is this a question? ")
	}
	base := c.baseChunks(sb.String())
	if len(base) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(base))
	}
	for i, chunk := range base {
		if n := len([]rune(chunk)); n > 120 {
			t.Errorf("chunk %d exceeds target size: %d chars", i, n)
		}
	}
}

func TestBaseChunksReconstructContent(t *testing.T) {
	c := New(80)
	text := "First paragraph with some words. It has two sentences.\n\n" +
		"Second paragraph here! It is also short.\n\n" +
		"Third paragraph ends the document? Yes it does."
	base := c.baseChunks(text)
	joined := normalizeWhitespace(strings.Join(base, " "))
	if joined != normalizeWhitespace(text) {
		t.Errorf("reconstruction mismatch:\n got: %q\nwant: %q", joined, normalizeWhitespace(text))
	}
}

func TestHardSplitBoundsLongSentences(t *testing.T) {
	c := New(50)
	// 无任何句子边界的超长文本必须被硬切分。
	text := strings.Repeat("x", 173)
	base := c.baseChunks(text)
	for i, chunk := range base {
		if n := len([]rune(chunk)); n > 50 {
			t.Errorf("chunk %d exceeds target after hard split: %d chars", i, n)
		}
	}
	total := 0
	for _, chunk := range base {
		total += len(chunk)
	}
	// 硬切分不能丢字符。
	if total < 173 {
		t.Errorf("hard split lost characters: total %d < 173", total)
	}
}

func TestOverlapInjectsNeighborContext(t *testing.T) {
	c := New(60)
	text := "Alpha beta gamma delta epsilon zeta eta theta. Iota kappa lambda mu nu xi omicron pi. " +
		"Rho sigma tau upsilon phi chi psi omega. Second round alpha beta gamma delta epsilon."
	chunks := c.Chunk(text)
	if len(chunks) < 3 {
		t.Skipf("need at least 3 chunks for this test, got %d", len(chunks))
	}
	middle := chunks[1]
	if !strings.Contains(middle, OverlapMarker) {
		t.Fatalf("middle chunk missing overlap marker: %q", middle)
	}
	// 中间分块应同时携带前后两块的上下文标记。
	if strings.Count(middle, OverlapMarker) < 2 {
		t.Errorf("middle chunk should carry both prefix and suffix overlap: %q", middle)
	}
	// 首块没有前缀重叠，末块没有后缀重叠。
	if strings.HasPrefix(chunks[0], OverlapMarker) {
		t.Errorf("first chunk must not have a prefix overlap")
	}
	if strings.HasSuffix(chunks[len(chunks)-1], OverlapMarker) {
		t.Errorf("last chunk must not have a suffix overlap")
	}
}

func TestOverlapPrefixMatchesPreviousTail(t *testing.T) {
	c := New(60)
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 6)
	base := c.baseChunks(text)
	if len(base) < 2 {
		t.Fatalf("expected at least 2 base chunks, got %d", len(base))
	}
	chunks := c.applyOverlap(base)
	wantPrefix := tail(base[0], c.overlap)
	if !strings.HasPrefix(chunks[1], wantPrefix+OverlapMarker) {
		t.Errorf("second chunk prefix = %q, want tail of first chunk %q", chunks[1][:40], wantPrefix)
	}
}
