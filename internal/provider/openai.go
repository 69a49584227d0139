package provider

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"ChattyWidget/internal/config"
	"ChattyWidget/internal/models"
	"ChattyWidget/pkg/logger"
)

// openaiConfidence 是 OpenAI 云端模型的基线置信度。
const openaiConfidence = 0.85

// OpenAI 是 OpenAI API 的提供方适配器。
type OpenAI struct {
	client   *openai.Client // OpenAI 客户端实例。
	registry *registry
	log      *logger.Logger
}

// NewOpenAI 创建一个新的 OpenAI 适配器。
func NewOpenAI(cfg config.OpenAIConfig, log *logger.Logger) *OpenAI {
	client := openai.NewClientWithConfig(openai.DefaultConfig(cfg.APIKey))

	seed := []models.AgentModel{
		{
			ID:            "gpt-4o",
			Name:          "GPT-4o",
			Provider:      "openai",
			Description:   "旗舰多模态模型，高级订阅默认模型",
			ContextWindow: 128000,
			Capabilities:  []string{"chat", "vision"},
			MinTier:       models.TierPremium,
		},
		{
			ID:            "gpt-4o-mini",
			Name:          "GPT-4o mini",
			Provider:      "openai",
			Description:   "低成本的云端模型",
			ContextWindow: 128000,
			Capabilities:  []string{"chat"},
			MinTier:       models.TierBasic,
		},
	}

	return &OpenAI{
		client:   client,
		registry: newRegistry(seed...),
		log:      log.WithComponent("provider.openai"),
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Models() []models.AgentModel { return o.registry.list() }

func (o *OpenAI) ProviderFor(modelID string) *models.AgentModel {
	return o.registry.find(modelID)
}

func (o *OpenAI) IsModelAvailable(modelID string, tier models.SubscriptionTier) bool {
	m := o.registry.find(modelID)
	if m == nil {
		return false
	}
	return tierAllows(tier, m.MinTier)
}

// Generate 使用 OpenAI API 生成回答。
func (o *OpenAI) Generate(ctx context.Context, req *Request) (*models.GenerateResult, error) {
	resp, err := o.client.CreateChatCompletion(ctx, o.toChatRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	return &models.GenerateResult{
		Content:    resp.Choices[0].Message.Content,
		Confidence: openaiConfidence,
		ModelID:    req.ModelID,
		Metadata: map[string]interface{}{
			"provider":    "openai",
			"response_id": resp.ID,
		},
	}, nil
}

// GenerateStream 使用 OpenAI API 以流式方式生成回答。
// 逐条转发增量，读到 io.EOF 时补发 Done 事件。
func (o *OpenAI) GenerateStream(ctx context.Context, req *Request) (<-chan models.StreamEvent, error) {
	stream, err := o.client.CreateChatCompletionStream(ctx, o.toChatRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion stream: %w", err)
	}

	events := make(chan models.StreamEvent)

	go func() {
		defer close(events)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				events <- models.StreamEvent{
					Done:       true,
					Confidence: openaiConfidence,
					ModelID:    req.ModelID,
				}
				return
			}
			if err != nil {
				events <- models.StreamEvent{Err: fmt.Errorf("openai stream failed: %w", err)}
				return
			}
			for _, choice := range resp.Choices {
				if choice.Delta.Content != "" {
					events <- models.StreamEvent{Content: choice.Delta.Content}
				}
			}
		}
	}()

	return events, nil
}

// toChatRequest 把统一请求转换为 OpenAI 聊天补全请求。
func (o *OpenAI) toChatRequest(req *Request) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: req.ModelID,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(req),
			},
		},
	}
}
