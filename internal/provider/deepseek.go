package provider

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"ChattyWidget/internal/config"
	"ChattyWidget/internal/models"
	"ChattyWidget/internal/store"
	"ChattyWidget/pkg/logger"
)

// deepseekConfidence 是 DeepSeek 云端模型的基线置信度。
const deepseekConfidence = 0.8

// DeepSeek 是 DeepSeek API 的提供方适配器，走 OpenAI 兼容协议。
// 若配置了对象存储，则优先尝试"上传原始文件"路径；
// 定位或上传文件的任何失败都会无条件回退到文本上下文路径，不向调用方暴露错误。
type DeepSeek struct {
	client   *openai.Client
	files    store.FileStore // 可为 nil，此时直接走文本路径。
	registry *registry
	log      *logger.Logger
}

// NewDeepSeek 创建一个新的 DeepSeek 适配器。
// BaseURL 为空时默认官方端点。
func NewDeepSeek(cfg config.DeepSeekConfig, files store.FileStore, log *logger.Logger) *DeepSeek {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	if clientCfg.BaseURL == "" {
		clientCfg.BaseURL = "https://api.deepseek.com/v1"
	}

	seed := []models.AgentModel{
		{
			ID:            "deepseek-chat",
			Name:          "DeepSeek Chat",
			Provider:      "deepseek",
			Description:   "通用对话模型，基础订阅默认模型",
			ContextWindow: 64000,
			Capabilities:  []string{"chat", "file-upload"},
			MinTier:       models.TierBasic,
		},
		{
			ID:            "deepseek-reasoner",
			Name:          "DeepSeek Reasoner",
			Provider:      "deepseek",
			Description:   "推理模型，上下文预算单独收紧",
			ContextWindow: 64000,
			Capabilities:  []string{"chat", "reasoning", "file-upload"},
			MinTier:       models.TierPremium,
		},
	}

	return &DeepSeek{
		client:   openai.NewClientWithConfig(clientCfg),
		files:    files,
		registry: newRegistry(seed...),
		log:      log.WithComponent("provider.deepseek"),
	}
}

func (d *DeepSeek) Name() string { return "deepseek" }

func (d *DeepSeek) Models() []models.AgentModel { return d.registry.list() }

func (d *DeepSeek) ProviderFor(modelID string) *models.AgentModel {
	return d.registry.find(modelID)
}

func (d *DeepSeek) IsModelAvailable(modelID string, tier models.SubscriptionTier) bool {
	m := d.registry.find(modelID)
	if m == nil {
		return false
	}
	return tierAllows(tier, m.MinTier)
}

// Generate 生成回答。先尝试文件上传路径，失败后回退到文本上下文路径。
func (d *DeepSeek) Generate(ctx context.Context, req *Request) (*models.GenerateResult, error) {
	if d.files != nil && len(req.Files) > 0 {
		result, err := d.generateWithFiles(ctx, req)
		if err == nil {
			return result, nil
		}
		// 回退必须是无条件且静默的：文本路径成功时文件路径的失败不外泄。
		d.log.Warn(fmt.Sprintf("文件上传路径失败，回退到文本上下文: %v", err))
	}
	return d.generateWithText(ctx, req)
}

// generateWithFiles 上传原始文件后发起补全，让模型直接读原始内容。
func (d *DeepSeek) generateWithFiles(ctx context.Context, req *Request) (*models.GenerateResult, error) {
	uploaded := make([]string, 0, len(req.Files))
	for _, name := range req.Files {
		raw, err := d.files.FetchRaw(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch raw file %q: %w", name, err)
		}
		file, err := d.client.CreateFileBytes(ctx, openai.FileBytesRequest{
			Name:    name,
			Bytes:   raw,
			Purpose: openai.PurposeAssistants,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to upload file %q: %w", name, err)
		}
		uploaded = append(uploaded, file.ID)
	}

	prompt := fmt.Sprintf(
		"Answer the question using only the uploaded files (%s). "+
			"If the files do not contain the answer, say the information is not available.\n\nQuestion: %s",
		strings.Join(uploaded, ", "), req.Query,
	)

	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.ModelID,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with files: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("deepseek returned no choices")
	}

	return &models.GenerateResult{
		Content:    resp.Choices[0].Message.Content,
		Confidence: deepseekConfidence,
		ModelID:    req.ModelID,
		Metadata: map[string]interface{}{
			"provider":    "deepseek",
			"path":        "file-upload",
			"response_id": resp.ID,
		},
	}, nil
}

// generateWithText 是标准的文本上下文路径。
func (d *DeepSeek) generateWithText(ctx context.Context, req *Request) (*models.GenerateResult, error) {
	resp, err := d.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: req.ModelID,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("deepseek returned no choices")
	}

	return &models.GenerateResult{
		Content:    resp.Choices[0].Message.Content,
		Confidence: deepseekConfidence,
		ModelID:    req.ModelID,
		Metadata: map[string]interface{}{
			"provider":    "deepseek",
			"path":        "text-context",
			"response_id": resp.ID,
		},
	}, nil
}

// GenerateStream 以模拟流的方式生成回答：完整生成后作为单条增量发出。
// 文件上传路径与回退逻辑和同步路径完全一致。
func (d *DeepSeek) GenerateStream(ctx context.Context, req *Request) (<-chan models.StreamEvent, error) {
	events := make(chan models.StreamEvent)

	go func() {
		defer close(events)

		result, err := d.Generate(ctx, req)
		if err != nil {
			events <- models.StreamEvent{Err: err}
			return
		}

		events <- models.StreamEvent{Content: result.Content}
		events <- models.StreamEvent{
			Done:       true,
			Confidence: result.Confidence,
			ModelID:    result.ModelID,
		}
	}()

	return events, nil
}
