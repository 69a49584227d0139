package chunker

import "strings"

// OverlapMarker 是注入重叠上下文时使用的分隔标记。
const OverlapMarker = " ... "

// sentenceTerminators 是句子边界的终止符集合。
// 这不是完整的 NLP 分词器，只是一个可接受的近似。
var sentenceTerminators = []string{". ", "! ", "? ", ".\n", "!\n", "?\n"}

// Chunker 将文档文本切分为目标大小的分块，并在相邻分块之间注入滑动重叠，
// 使得独立存储的分块在检索时仍保留上下文。
type Chunker struct {
	targetSize int // 目标分块大小（字符数）
	overlap    int // 重叠大小，固定为目标的 20%
}

// New 创建一个 Chunker。targetSize 不合法时使用默认值 1000。
func New(targetSize int) *Chunker {
	if targetSize <= 0 {
		targetSize = 1000
	}
	return &Chunker{
		targetSize: targetSize,
		overlap:    targetSize / 5,
	}
}

// Chunk 将文本切分为带重叠的分块，返回的切片顺序即分块序号。
// 空白文本返回 nil。
func (c *Chunker) Chunk(text string) []string {
	base := c.baseChunks(text)
	return c.applyOverlap(base)
}

// baseChunks 构建不含重叠的基础分块：
// 优先按段落切分；超长段落再按句子切分；仍超长的单句做硬切分。
// 切出的单元按顺序贪心打包，保证每个分块不超过目标大小。
func (c *Chunker) baseChunks(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var units []string
	for _, para := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(para) == "" {
			continue
		}
		if len([]rune(para)) <= c.targetSize {
			units = append(units, para)
			continue
		}
		for _, sent := range splitSentences(para) {
			if len([]rune(sent)) <= c.targetSize {
				units = append(units, sent)
				continue
			}
			units = append(units, hardSplit(sent, c.targetSize)...)
		}
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0
	for _, unit := range units {
		unitLen := len([]rune(unit))
		// 加上分隔符后会超出目标时先落盘当前分块。
		if currentLen > 0 && currentLen+2+unitLen > c.targetSize {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteString("\n\n")
			currentLen += 2
		}
		current.WriteString(unit)
		currentLen += unitLen
	}
	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// applyOverlap 为每个分块注入相邻分块的上下文：
// 非首块前缀为上一块的尾部，非末块后缀为下一块的头部，用省略标记分隔。
func (c *Chunker) applyOverlap(base []string) []string {
	if len(base) <= 1 || c.overlap <= 0 {
		return base
	}
	out := make([]string, len(base))
	for i, chunk := range base {
		var sb strings.Builder
		if i > 0 {
			sb.WriteString(tail(base[i-1], c.overlap))
			sb.WriteString(OverlapMarker)
		}
		sb.WriteString(chunk)
		if i < len(base)-1 {
			sb.WriteString(OverlapMarker)
			sb.WriteString(head(base[i+1], c.overlap))
		}
		out[i] = sb.String()
	}
	return out
}

// splitSentences 按固定终止符集合将文本切分为句子，终止符保留在句尾。
func splitSentences(text string) []string {
	var sentences []string
	remaining := text
	for remaining != "" {
		cut := -1
		for _, term := range sentenceTerminators {
			if idx := strings.Index(remaining, term); idx >= 0 {
				end := idx + len(term)
				if cut < 0 || end < cut {
					cut = end
				}
			}
		}
		if cut < 0 {
			sentences = append(sentences, remaining)
			break
		}
		sentences = append(sentences, remaining[:cut])
		remaining = remaining[cut:]
	}
	return sentences
}

// hardSplit 将超长句子按字符数硬切分。
func hardSplit(text string, size int) []string {
	runes := []rune(text)
	var parts []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}

// head 返回字符串开头最多 n 个字符。
func head(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// tail 返回字符串末尾最多 n 个字符。
func tail(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
