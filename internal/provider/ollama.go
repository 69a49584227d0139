package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	olla "github.com/ollama/ollama/api"

	"ChattyWidget/internal/config"
	"ChattyWidget/internal/models"
	"ChattyWidget/pkg/logger"
)

// ollamaConfidence 是本地模型的基线置信度。
// 本地小模型的回答质量整体低于云端模型，基线也相应压低。
const ollamaConfidence = 0.75

// Ollama 是本地 Ollama 服务的提供方适配器。
// 内置两个默认模型，启动后可通过 DiscoverModels 从 /api/tags 补充本机实际安装的模型。
type Ollama struct {
	client   *olla.Client // Ollama 客户端实例。
	registry *registry
	log      *logger.Logger
}

// NewOllama 创建一个新的 Ollama 适配器。
//
// 参数:
//
//	cfg: Ollama 服务配置。BaseURL 为空时默认 "http://localhost:11434"。
//
// 返回值:
//
//	*Ollama: 新创建的适配器实例。
//	error: 如果基准 URL 无效，则返回错误。
func NewOllama(cfg config.OllamaConfig, log *logger.Logger) (*Ollama, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	timeout := time.Duration(cfg.GenerateTimeout) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	hc := &http.Client{Timeout: timeout}

	seed := []models.AgentModel{
		{
			ID:            "llama3",
			Name:          "Llama 3",
			Provider:      "ollama",
			Description:   "本地部署的通用模型，免费档默认模型",
			ContextWindow: 8192,
			Capabilities:  []string{"chat"},
			MinTier:       models.TierFree,
		},
		{
			ID:            "mistral",
			Name:          "Mistral",
			Provider:      "ollama",
			Description:   "本地部署的轻量模型",
			ContextWindow: 8192,
			Capabilities:  []string{"chat"},
			MinTier:       models.TierFree,
		},
	}

	return &Ollama{
		client:   olla.NewClient(parsedURL, hc),
		registry: newRegistry(seed...),
		log:      log.WithComponent("provider.ollama"),
	}, nil
}

func (o *Ollama) Name() string { return "ollama" }

func (o *Ollama) Models() []models.AgentModel { return o.registry.list() }

func (o *Ollama) ProviderFor(modelID string) *models.AgentModel {
	return o.registry.find(modelID)
}

func (o *Ollama) IsModelAvailable(modelID string, tier models.SubscriptionTier) bool {
	m := o.registry.find(modelID)
	if m == nil {
		return false
	}
	return tierAllows(tier, m.MinTier)
}

// DiscoverModels 枚举本机已安装的模型并注册为免费档。
// 发现失败只记日志不报错，默认模型仍然可用。
func (o *Ollama) DiscoverModels(ctx context.Context) {
	resp, err := o.client.List(ctx)
	if err != nil {
		o.log.Warn(fmt.Sprintf("枚举 Ollama 模型失败: %v", err))
		return
	}

	discovered := make([]models.AgentModel, 0, len(resp.Models))
	for _, m := range resp.Models {
		discovered = append(discovered, models.AgentModel{
			ID:            m.Name,
			Name:          m.Name,
			Provider:      "ollama",
			Description:   "本机已安装的 Ollama 模型",
			ContextWindow: 8192,
			Capabilities:  []string{"chat"},
			MinTier:       models.TierFree,
		})
	}
	o.registry.add(discovered...)
	o.log.Info(fmt.Sprintf("✅ Ollama 模型发现完成，共 %d 个本地模型", len(resp.Models)))
}

// Generate 使用 Ollama API 生成回答。
//
// 参数:
//
//	ctx: 上下文，用于控制请求的生命周期。
//	req: 生成请求。
//
// 返回值:
//
//	*models.GenerateResult: 归一化后的生成结果。
//	error: 如果生成失败，则返回错误。
func (o *Ollama) Generate(ctx context.Context, req *Request) (*models.GenerateResult, error) {
	prompt := buildPrompt(req)

	var result *olla.GenerateResponse

	err := o.client.Generate(ctx, &olla.GenerateRequest{
		Model:  req.ModelID,
		Prompt: prompt,
		Stream: &[]bool{false}[0], // 设置为非流式传输。
	}, func(resp olla.GenerateResponse) error {
		result = &resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with ollama: %w", err)
	}

	return &models.GenerateResult{
		Content:    result.Response,
		Confidence: ollamaConfidence,
		ModelID:    req.ModelID,
		Metadata: map[string]interface{}{
			"provider": "ollama",
		},
	}, nil
}

// GenerateStream 使用 Ollama API 以流式方式生成回答。
// Ollama 原生支持流式：每个增量作为一条 Content 事件发出，
// 生成结束后补一条携带置信度的 Done 事件。
func (o *Ollama) GenerateStream(ctx context.Context, req *Request) (<-chan models.StreamEvent, error) {
	prompt := buildPrompt(req)
	events := make(chan models.StreamEvent)

	go func() {
		defer close(events) // 确保在 goroutine 退出时关闭通道。

		err := o.client.Generate(ctx, &olla.GenerateRequest{
			Model:  req.ModelID,
			Prompt: prompt,
			Stream: &[]bool{true}[0], // 设置为流式传输。
		}, func(resp olla.GenerateResponse) error {
			if resp.Response != "" {
				events <- models.StreamEvent{Content: resp.Response}
			}
			return nil
		})
		if err != nil {
			events <- models.StreamEvent{Err: fmt.Errorf("ollama stream failed: %w", err)}
			return
		}

		events <- models.StreamEvent{
			Done:       true,
			Confidence: ollamaConfidence,
			ModelID:    req.ModelID,
		}
	}()

	return events, nil
}
