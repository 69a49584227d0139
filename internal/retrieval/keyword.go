package retrieval

import (
	"strings"
	"unicode"
)

// queryTerms 将查询文本拆分为用于关键词匹配的词项：
// 统一小写、去掉标点，丢弃过短的词。不做词干化，这是可接受的近似。
func queryTerms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 {
			continue
		}
		terms = append(terms, f)
	}
	return terms
}

// keywordScore 按命中词项的比例给文本打分，范围 [0,1]。
// 同一词项出现多次只计一次：这里衡量的是覆盖度，不是词频。
func keywordScore(content string, terms []string) float64 {
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(content)
	hits := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			hits++
		}
	}
	return float64(hits) / float64(len(terms))
}
