package models

// SubscriptionTier 定义了调用方的订阅等级，用于模型访问控制。
type SubscriptionTier string

const (
	TierFree    SubscriptionTier = "free"    // 免费用户，仅可使用本地开放模型
	TierBasic   SubscriptionTier = "basic"   // 基础订阅
	TierPremium SubscriptionTier = "premium" // 高级订阅，可使用全部模型
)

// TierRank 返回订阅等级的序数，free < basic < premium。
// 未知等级按 free 处理。
func TierRank(t SubscriptionTier) int {
	switch t {
	case TierPremium:
		return 2
	case TierBasic:
		return 1
	default:
		return 0
	}
}

// AgentModel 是模型注册表中的一个条目。
// 启动时会播种一组固定条目，运行时的发现（例如枚举本地 Ollama 服务）
// 只会追加新条目，永远不会移除已有条目。
type AgentModel struct {
	ID            string           `json:"id"`             // 模型标识，例如 "gpt-4o"
	Name          string           `json:"name"`           // 展示名称
	Provider      string           `json:"provider"`       // 提供方名称，例如 "ollama"
	Description   string           `json:"description"`    // 模型描述
	ContextWindow int              `json:"context_window"` // 上下文窗口大小（token 数）
	Capabilities  []string         `json:"capabilities"`   // 能力标签
	MinTier       SubscriptionTier `json:"min_tier"`       // 使用该模型所需的最低订阅等级
}

// SearchResult 是一次检索命中的临时结果，不做持久化。
type SearchResult struct {
	ChunkID      uint    `json:"chunk_id"`      // 命中的分块 ID（文档级命中时为 0）
	DocumentID   uint    `json:"document_id"`   // 所属文档 ID
	DocumentName string  `json:"document_name"` // 文档名称
	Content      string  `json:"content"`       // 命中文本
	ChunkIndex   int     `json:"chunk_index"`   // 分块序号
	Similarity   float64 `json:"similarity"`    // 相似度得分；低于阈值的余弦值视为不相关
}

// DocumentReference 是附加在回答上的引用信息。
type DocumentReference struct {
	DocumentID uint    `json:"document_id"`
	Title      string  `json:"title"`
	URL        string  `json:"url,omitempty"`
	Relevance  float64 `json:"relevance"` // 策略分配的相关度得分
}

// QueryRequest 是一次问答请求。
type QueryRequest struct {
	Query               string           `json:"query"`                // 用户的自由文本问题
	ModelID             string           `json:"model_id"`             // 目标模型
	DocumentIDs         []uint           `json:"document_ids"`         // 可选的显式文档白名单
	ConfidenceThreshold float64          `json:"confidence_threshold"` // 升级阈值，默认 0.7
	EscalationEnabled   bool             `json:"escalation_enabled"`   // 是否允许转人工，默认开启
	UserID              string           `json:"user_id"`
	Tier                SubscriptionTier `json:"tier"` // 调用方订阅等级
}

// QueryResponse 是一次问答的最终响应。
// 生成阶段的任何失败都会折叠为一个有效的 QueryResponse，而不是裸错误。
type QueryResponse struct {
	ResponseID       string              `json:"response_id"`        // 每次调用新生成
	Answer           string              `json:"answer"`             // 回答文本
	References       []DocumentReference `json:"references"`         // 按相关度排列的引用
	Confidence       float64             `json:"confidence"`         // [0,1] 区间的置信度
	NeedsHumanReview bool                `json:"needs_human_review"` // 是否需要人工复核
	ModelID          string              `json:"model_id"`           // 实际使用的模型（可能因回退与请求不同）
}

// GenerateResult 是 Provider 适配器归一化后的生成结果。
type GenerateResult struct {
	Content    string                 `json:"content"`
	Confidence float64                `json:"confidence"` // 提供方固定的基线置信度，不是由 logits 推算的
	ModelID    string                 `json:"model_id"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}

// StreamEvent 是流式生成通道中的一个事件。
// Err 与 Done 是互斥的终止事件：二者之一出现后通道即关闭。
type StreamEvent struct {
	Content    string  // 本次增量内容
	Err        error   // 非空表示流以错误终止
	Done       bool    // 为 true 表示流正常结束
	Confidence float64 // 仅在 Done 事件上携带
	ModelID    string  // 仅在 Done 事件上携带

	// 以下字段同样只在 Done 事件上携带。
	ResponseID       string              // 本次回答的标识，供反馈接口引用
	NeedsHumanReview bool                // 终止时一次性评估的升级标记
	References       []DocumentReference // 本次回答引用的文档
}

// Feedback 是调用方对某次回答的反馈记录，由外部反馈汇集层消费。
type Feedback struct {
	ResponseID string `json:"response_id" bson:"response_id"`
	UserID     string `json:"user_id" bson:"user_id"`
	Rating     int    `json:"rating" bson:"rating"` // 1 有帮助 / -1 无帮助
	Comment    string `json:"comment,omitempty" bson:"comment,omitempty"`
}
