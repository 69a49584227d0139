package retrieval

import (
	"math"
	"sort"

	"ChattyWidget/internal/models"
)

// CosineSimilarity 计算两个向量的余弦相似度（点积除以模长之积）。
// 任一向量为空或二者维度不一致时返回 0.0：维度不匹配是数据完整性信号，
// 不是崩溃条件。
func CosineSimilarity(a, b models.Vector) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0.0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0.0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// rerank 对候选分块做按文档的重排与合并：
// 按所属文档分组，每组取得分最高的两个分块；若这两个分块在文档内相邻
// (序号差为 1)，则按序号顺序合并其文本，得分取较高者、序号取较小者；
// 否则每个文档只保留单个最佳分块。合并后按得分降序截断到 limit。
func rerank(candidates []models.SearchResult, limit int) []models.SearchResult {
	byDoc := make(map[uint][]models.SearchResult)
	order := make([]uint, 0)
	for _, cand := range candidates {
		if _, seen := byDoc[cand.DocumentID]; !seen {
			order = append(order, cand.DocumentID)
		}
		byDoc[cand.DocumentID] = append(byDoc[cand.DocumentID], cand)
	}

	merged := make([]models.SearchResult, 0, len(order))
	for _, docID := range order {
		group := byDoc[docID]
		sort.Slice(group, func(i, j int) bool { return group[i].Similarity > group[j].Similarity })

		best := group[0]
		if len(group) >= 2 {
			second := group[1]
			if adjacent(best.ChunkIndex, second.ChunkIndex) {
				best = mergeAdjacent(best, second)
			}
		}
		merged = append(merged, best)
	}

	sort.Slice(merged, func(i, j int) bool { return merged[i].Similarity > merged[j].Similarity })
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

// adjacent 报告两个分块序号是否相邻。
func adjacent(a, b int) bool {
	diff := a - b
	return diff == 1 || diff == -1
}

// mergeAdjacent 将两个相邻分块合并为一个结果：文本按序号顺序拼接，
// 得分取二者较大值，序号取较小值。
func mergeAdjacent(a, b models.SearchResult) models.SearchResult {
	first, second := a, b
	if b.ChunkIndex < a.ChunkIndex {
		first, second = b, a
	}
	merged := first
	merged.Content = first.Content + "\n" + second.Content
	if second.Similarity > merged.Similarity {
		merged.Similarity = second.Similarity
	}
	return merged
}
