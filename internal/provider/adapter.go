package provider

import (
	"context"
	"strings"

	"ChattyWidget/internal/models"
)

// Request 是一次生成调用的统一入参：
// Context 是格式化后的文档上下文（含编号块与指令后缀），Files 是可选的原始文件对象名，
// 仅支持文件上传的提供方会使用。
type Request struct {
	Query   string
	Context string
	ModelID string
	Files   []string
}

// Adapter 定义了所有 LLM 提供方客户端必须实现的通用接口。
// 每个提供方自带模型注册表，路由层通过 ProviderFor 做线性匹配。
type Adapter interface {
	// Name 返回提供方名称，例如 "ollama"。
	Name() string
	// Models 返回该提供方当前已注册的全部模型。
	Models() []models.AgentModel
	// ProviderFor 返回该提供方对给定模型的注册信息，不服务该模型时返回 nil。
	ProviderFor(modelID string) *models.AgentModel
	// IsModelAvailable 判断给定订阅等级能否使用该模型。未知模型返回 false，不报错。
	IsModelAvailable(modelID string, tier models.SubscriptionTier) bool
	// Generate 以同步方式生成回答。
	Generate(ctx context.Context, req *Request) (*models.GenerateResult, error)
	// GenerateStream 以流式方式生成回答。通道以 Done 或 Err 事件收尾后关闭。
	GenerateStream(ctx context.Context, req *Request) (<-chan models.StreamEvent, error)
}

// buildPrompt 把文档上下文和用户问题拼成最终提示词。
func buildPrompt(req *Request) string {
	if req.Context == "" {
		return req.Query
	}
	var sb strings.Builder
	sb.WriteString(req.Context)
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(req.Query)
	return sb.String()
}

// tierAllows 按订阅等级的全序关系判断可用性：premium > basic > free。
func tierAllows(tier, minTier models.SubscriptionTier) bool {
	return models.TierRank(tier) >= models.TierRank(minTier)
}
