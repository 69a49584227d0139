package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ChattyWidget/internal/formatter"
	"ChattyWidget/internal/models"
	"ChattyWidget/internal/provider"
	"ChattyWidget/internal/store"
	"ChattyWidget/pkg/logger"
)

// ErrUnknownModel 表示请求的模型不在任何提供方的注册表中。
// 这是请求校验阶段唯一的硬失败：校验不通过时不做检索。
var ErrUnknownModel = errors.New("unknown model")

const (
	// defaultConfidenceThreshold 是未显式指定时的升级阈值。
	defaultConfidenceThreshold = 0.7
	// explicitDocRelevance 是显式指定文档的固定相关度。
	explicitDocRelevance = 0.9
	// noDocConfidence 是非流式路径下"无相关文档"固定回答的置信度。
	// 流式路径同样的回答置信度为 0 且强制升级，两条路径刻意不对称。
	noDocConfidence = 0.3
)

const (
	noDocAnswer = "I could not find any relevant information in the knowledge base for your question. " +
		"Please try rephrasing, or contact support directly."
	degradedAnswer = "I was unable to generate an answer right now. " +
		"Your question has been noted; please try again shortly."
)

// Retriever 是编排器对检索层的依赖。
type Retriever interface {
	Search(ctx context.Context, query string, limit int) ([]models.SearchResult, error)
}

// Orchestrator 是查询处理的顶层流水线：
// 校验 → 检索 → 格式化 → 生成 → 升级判定，同步与流式共用前四步的逻辑。
type Orchestrator struct {
	router    *provider.Router
	retriever Retriever
	docs      store.DocumentStore
	formatter *formatter.Formatter
	feedback  store.FeedbackStore // 可为 nil，此时反馈只落日志。
	log       *logger.Logger
}

// New 创建一个 Orchestrator。
func New(router *provider.Router, retriever Retriever, docs store.DocumentStore,
	f *formatter.Formatter, feedback store.FeedbackStore, log *logger.Logger) *Orchestrator {
	return &Orchestrator{
		router:    router,
		retriever: retriever,
		docs:      docs,
		formatter: f,
		feedback:  feedback,
		log:       log.WithComponent("orchestrator"),
	}
}

// ProcessQuery 同步处理一次查询。
func (o *Orchestrator) ProcessQuery(ctx context.Context, req *models.QueryRequest) (*models.QueryResponse, error) {
	applyRequestDefaults(req)

	// 校验阶段：未知模型直接失败，不做检索。
	if !o.router.KnownModel(req.ModelID) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, req.ModelID)
	}

	results, files, err := o.retrieve(ctx, req)
	if err != nil {
		return nil, err
	}

	// 没有任何文档命中时跳过生成，返回固定回答。
	if len(results) == 0 {
		o.log.Info(fmt.Sprintf("查询无文档命中，返回固定回答: %q", req.Query))
		return &models.QueryResponse{
			ResponseID: uuid.NewString(),
			Answer:     noDocAnswer,
			References: []models.DocumentReference{},
			Confidence: noDocConfidence,
			ModelID:    req.ModelID,
		}, nil
	}

	adapter, modelID, genReq := o.prepare(req, results, files)

	result, err := adapter.Generate(ctx, genReq)
	if err != nil {
		// 生成失败降级为一个有效但低置信度的回答，而不是把错误抛给调用方。
		o.log.Error(fmt.Sprintf("生成失败 (model=%s): %v", modelID, err))
		return &models.QueryResponse{
			ResponseID:       uuid.NewString(),
			Answer:           degradedAnswer,
			References:       toReferences(results),
			Confidence:       0.0,
			NeedsHumanReview: req.EscalationEnabled,
			ModelID:          modelID,
		}, nil
	}

	// 升级判定只在生成成功后做一次。
	needsReview := result.Confidence < req.ConfidenceThreshold && req.EscalationEnabled

	return &models.QueryResponse{
		ResponseID:       uuid.NewString(),
		Answer:           result.Content,
		References:       toReferences(results),
		Confidence:       result.Confidence,
		NeedsHumanReview: needsReview,
		ModelID:          result.ModelID,
	}, nil
}

// StreamQuery 流式处理一次查询。增量事件原样转发，
// 升级判定在提供方的 Done 事件上一次性补齐，绝不在流中途触发。
func (o *Orchestrator) StreamQuery(ctx context.Context, req *models.QueryRequest) (<-chan models.StreamEvent, error) {
	applyRequestDefaults(req)

	if !o.router.KnownModel(req.ModelID) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, req.ModelID)
	}

	results, files, err := o.retrieve(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		// 流式路径的无文档回答：置信度 0，升级开关打开时强制升级。
		events := make(chan models.StreamEvent, 2)
		events <- models.StreamEvent{Content: noDocAnswer}
		events <- models.StreamEvent{
			Done:             true,
			Confidence:       0.0,
			ModelID:          req.ModelID,
			ResponseID:       uuid.NewString(),
			NeedsHumanReview: req.EscalationEnabled,
			References:       []models.DocumentReference{},
		}
		close(events)
		return events, nil
	}

	adapter, modelID, genReq := o.prepare(req, results, files)

	upstream, err := adapter.GenerateStream(ctx, genReq)
	if err != nil {
		return nil, fmt.Errorf("failed to start stream with %s: %w", modelID, err)
	}

	events := make(chan models.StreamEvent)
	go func() {
		defer close(events)
		for ev := range upstream {
			if ev.Done {
				ev.ResponseID = uuid.NewString()
				ev.NeedsHumanReview = ev.Confidence < req.ConfidenceThreshold && req.EscalationEnabled
				ev.References = toReferences(results)
			}
			events <- ev
		}
	}()
	return events, nil
}

// ListModels 返回给定订阅等级可用的模型列表。
func (o *Orchestrator) ListModels(tier models.SubscriptionTier) []models.AgentModel {
	return o.router.ListModels(tier)
}

// RecordFeedback 把调用方反馈写入外部汇集层。未配置汇集层时只记日志。
func (o *Orchestrator) RecordFeedback(ctx context.Context, fb *models.Feedback) error {
	if o.feedback == nil {
		o.log.Warn(fmt.Sprintf("反馈汇集层未配置，丢弃反馈 response_id=%s", fb.ResponseID))
		return nil
	}
	return o.feedback.Record(ctx, fb)
}

// retrieve 执行检索阶段：显式文档在前，检索结果按文档名去重后附加。
// 返回的 files 是显式文档的名称，供支持文件上传的提供方使用。
func (o *Orchestrator) retrieve(ctx context.Context, req *models.QueryRequest) ([]models.SearchResult, []string, error) {
	var results []models.SearchResult
	var files []string
	seen := make(map[string]bool)

	for _, id := range req.DocumentIDs {
		doc, err := o.docs.GetDocument(ctx, id)
		if err != nil {
			// 单个缺失不拖垮整个请求。
			o.log.Warn(fmt.Sprintf("显式文档 %d 解析失败，跳过: %v", id, err))
			continue
		}
		results = append(results, models.SearchResult{
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
			Content:      doc.Content,
			Similarity:   explicitDocRelevance,
		})
		files = append(files, doc.Name)
		seen[doc.Name] = true
	}

	ranked, err := o.retriever.Search(ctx, req.Query, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("retrieval failed: %w", err)
	}
	for _, r := range ranked {
		if seen[r.DocumentName] {
			continue
		}
		results = append(results, r)
		seen[r.DocumentName] = true
	}

	return results, files, nil
}

// prepare 执行门禁替换与格式化阶段，产出最终的生成请求。
// 订阅等级不可用的模型静默替换为该等级的默认模型，替换后的 ID 会出现在响应里。
func (o *Orchestrator) prepare(req *models.QueryRequest, results []models.SearchResult, files []string) (provider.Adapter, string, *provider.Request) {
	modelID := req.ModelID
	if !o.router.IsAvailable(modelID, req.Tier) {
		fallback := o.router.DefaultModelFor(req.Tier)
		o.log.Info(fmt.Sprintf("模型 %s 对 %s 档不可用，替换为 %s", modelID, req.Tier, fallback))
		modelID = fallback
	}

	adapter, err := o.router.Resolve(modelID)
	if err != nil {
		// 替换后的默认模型无人服务时退回请求的模型。
		// 请求的模型在校验阶段已确认注册，这里的 Resolve 必然成功。
		modelID = req.ModelID
		adapter, _ = o.router.Resolve(modelID)
	}

	budget := formatter.BudgetFor(adapter.Name(), modelID)
	docContext := o.formatter.Format(results, budget)

	return adapter, modelID, &provider.Request{
		Query:   req.Query,
		Context: docContext,
		ModelID: modelID,
		Files:   files,
	}
}

func applyRequestDefaults(req *models.QueryRequest) {
	if req.ConfidenceThreshold <= 0 {
		req.ConfidenceThreshold = defaultConfidenceThreshold
	}
	if req.Tier == "" {
		req.Tier = models.TierFree
	}
}

func toReferences(results []models.SearchResult) []models.DocumentReference {
	refs := make([]models.DocumentReference, 0, len(results))
	seen := make(map[string]bool)
	for _, r := range results {
		if seen[r.DocumentName] {
			continue
		}
		seen[r.DocumentName] = true
		refs = append(refs, models.DocumentReference{
			DocumentID: r.DocumentID,
			Title:      r.DocumentName,
			Relevance:  r.Similarity,
		})
	}
	return refs
}
