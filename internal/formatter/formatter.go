package formatter

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"ChattyWidget/internal/models"
	"ChattyWidget/pkg/logger"
)

// 截断时插入的中段省略标记。
const omissionMarker = "\n[...]\n"

// 预算全部以 rune 数计量，避免多字节文本下字节数和字符数混用。

// 剩余预算低于此值时不再塞入残缺文档，宁缺毋滥。
const minUsefulChars = 200

const (
	spreadsheetHeaderRows = 3
	spreadsheetSampleRows = 5
	structuredMaxHeadings = 10
)

// instructionSuffix 是拼在文档块之后的提示词契约，
// 所有提供方都必须原样收到，不允许被预算裁剪掉。
const instructionSuffix = "Answer the question using only the numbered documents above. " +
	"Cite the documents that support your answer by number, for example [Document 1]. " +
	"If the documents do not contain the answer, say that the information is not available " +
	"in the provided documents instead of guessing."

// Formatter 把排好序的检索结果压缩成带预算控制的文本上下文。
// 格式化策略按文档名推断内容类型：表格类做行采样，结构化文档提取标题，
// 其余做首尾保留的中段截断。
type Formatter struct {
	log *logger.Logger
}

// New 创建一个 Formatter。
func New(log *logger.Logger) *Formatter {
	return &Formatter{log: log.WithComponent("formatter")}
}

// Format 把检索结果渲染成编号文档块加指令后缀。
// 超出总预算时：已纳入至少一篇就直接停；一篇都没有时把首篇截到剩余空间，
// 剩余空间不足 minUsefulChars 则整篇跳过。
func (f *Formatter) Format(results []models.SearchResult, budget Budget) string {
	var b strings.Builder
	total := 0
	included := 0

	for _, res := range results {
		if budget.MaxDocuments > 0 && included >= budget.MaxDocuments {
			break
		}

		body := f.formatDocument(res.Content, res.DocumentName, budget.MaxPerDocument)
		block := fmt.Sprintf("[Document %d] %s:\n%s\n\n", included+1, res.DocumentName, body)
		blockLen := utf8.RuneCountInString(block)

		if total+blockLen > budget.MaxTotal {
			if included > 0 {
				break
			}
			overhead := blockLen - utf8.RuneCountInString(body)
			available := budget.MaxTotal - overhead
			if available < minUsefulChars {
				f.log.Warn(fmt.Sprintf("总预算不足以容纳任何文档，跳过 %q", res.DocumentName))
				continue
			}
			body = positionalTruncate(body, available)
			block = fmt.Sprintf("[Document %d] %s:\n%s\n\n", included+1, res.DocumentName, body)
			blockLen = utf8.RuneCountInString(block)
		}

		b.WriteString(block)
		total += blockLen
		included++
	}

	b.WriteString(instructionSuffix)
	return b.String()
}

// formatDocument 按内容类型选择压缩策略，保证结果不超过 maxChars。
func (f *Formatter) formatDocument(content, title string, maxChars int) string {
	content = strings.TrimSpace(content)
	if utf8.RuneCountInString(content) <= maxChars {
		return content
	}

	switch {
	case spreadsheetLike(title):
		return sampleRows(content, maxChars)
	case structuredLike(title):
		return extractHeadings(content, maxChars)
	default:
		return positionalTruncate(content, maxChars)
	}
}

func spreadsheetLike(title string) bool {
	t := strings.ToLower(title)
	for _, ext := range []string{".csv", ".tsv", ".xls", ".xlsx"} {
		if strings.HasSuffix(t, ext) {
			return true
		}
	}
	return strings.Contains(t, "spreadsheet")
}

func structuredLike(title string) bool {
	t := strings.ToLower(title)
	for _, ext := range []string{".pdf", ".doc", ".docx", ".md"} {
		if strings.HasSuffix(t, ext) {
			return true
		}
	}
	return false
}

// sampleRows 保留表头行，再从中段均匀采样若干行并带上末行，
// 用省略标记标出被跳过的行数，尽量保持表格的行结构而不是压成散文。
func sampleRows(content string, maxChars int) string {
	lines := strings.Split(content, "\n")
	if len(lines) <= spreadsheetHeaderRows+spreadsheetSampleRows+1 {
		return positionalTruncate(content, maxChars)
	}

	headers := lines[:spreadsheetHeaderRows]
	rest := lines[spreadsheetHeaderRows:]

	// 中段均匀取样，最后一行固定保留。
	sampled := make([]string, 0, spreadsheetSampleRows+1)
	step := len(rest) / spreadsheetSampleRows
	if step < 1 {
		step = 1
	}
	for i := 0; i < len(rest)-1 && len(sampled) < spreadsheetSampleRows; i += step {
		sampled = append(sampled, rest[i])
	}
	sampled = append(sampled, rest[len(rest)-1])

	parts := append([]string{}, headers...)
	parts = append(parts, fmt.Sprintf("[... %d of %d rows shown ...]", len(sampled), len(rest)))
	parts = append(parts, sampled...)

	out := strings.Join(parts, "\n")
	if utf8.RuneCountInString(out) > maxChars {
		out = positionalTruncate(out, maxChars)
	}
	return out
}

// extractHeadings 对 PDF/文档类内容做标题提取：
// 短行且以冒号结尾或首字母大写的行视为标题，每个标题附一行样例正文。
// 一个标题都识别不出来时退回位置截断。
func extractHeadings(content string, maxChars int) string {
	lines := strings.Split(content, "\n")
	var parts []string
	headings := 0

	for i := 0; i < len(lines) && headings < structuredMaxHeadings; i++ {
		line := strings.TrimSpace(lines[i])
		if !looksLikeHeading(line) {
			continue
		}
		parts = append(parts, line)
		// 标题后的第一行非空正文作为样例。
		for j := i + 1; j < len(lines); j++ {
			sample := strings.TrimSpace(lines[j])
			if sample == "" {
				continue
			}
			if !looksLikeHeading(sample) {
				parts = append(parts, "  "+sample)
			}
			break
		}
		headings++
	}

	if headings == 0 {
		return positionalTruncate(content, maxChars)
	}

	out := strings.Join(parts, "\n")
	if utf8.RuneCountInString(out) > maxChars {
		out = positionalTruncate(out, maxChars)
	}
	return out
}

func looksLikeHeading(line string) bool {
	if line == "" || len(line) > 80 {
		return false
	}
	if strings.HasSuffix(line, ":") {
		return true
	}
	runes := []rune(line)
	first := runes[0]
	if first >= 'A' && first <= 'Z' && !strings.HasSuffix(line, ".") && len(runes) <= 60 {
		return true
	}
	return strings.HasPrefix(line, "#")
}

// positionalTruncate 保留开头约六成、结尾约四成，中段用省略标记替换。
// 度量和切分统一按 rune，多字节字符不会被截断也不会撑爆预算。
func positionalTruncate(content string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}

	runes := []rune(content)
	if len(runes) <= maxChars {
		return content
	}

	markerLen := utf8.RuneCountInString(omissionMarker)
	if maxChars <= markerLen {
		return string(runes[:maxChars])
	}

	keep := maxChars - markerLen
	head := keep * 6 / 10
	tail := keep - head

	return string(runes[:head]) + omissionMarker + string(runes[len(runes)-tail:])
}
