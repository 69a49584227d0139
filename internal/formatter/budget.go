package formatter

import "strings"

// Budget 限定单次生成可携带的上下文规模。
type Budget struct {
	// MaxPerDocument 单篇文档格式化后允许的最大字符数。
	MaxPerDocument int
	// MaxTotal 全部文档块加起来允许的最大字符数（不含指令后缀）。
	MaxTotal int
	// MaxDocuments 最多纳入的文档数，0 表示不限。
	MaxDocuments int
}

// 本地模型窗口小，预算收紧；云端模型给更宽裕的预算。
var (
	localBudget = Budget{MaxPerDocument: 2000, MaxTotal: 6000, MaxDocuments: 5}
	cloudBudget = Budget{MaxPerDocument: 4000, MaxTotal: 16000, MaxDocuments: 8}

	// 云端推理模型按 token 计费且延迟敏感，单独压到最多 3 篇、每篇约 1500 字符。
	reasoningBudget = Budget{MaxPerDocument: 1500, MaxTotal: 4500, MaxDocuments: 3}
)

// BudgetFor 按提供方和模型返回上下文预算。
func BudgetFor(provider, modelID string) Budget {
	if isReasoningModel(modelID) {
		return reasoningBudget
	}
	switch provider {
	case "openai", "deepseek":
		return cloudBudget
	default:
		return localBudget
	}
}

func isReasoningModel(modelID string) bool {
	id := strings.ToLower(modelID)
	return strings.Contains(id, "reasoner") || strings.HasPrefix(id, "o1") || strings.HasPrefix(id, "o3")
}
