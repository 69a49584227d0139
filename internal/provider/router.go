package provider

import (
	"errors"
	"fmt"

	"ChattyWidget/internal/models"
	"ChattyWidget/pkg/logger"
)

// ErrNoProvider 表示没有任何提供方服务给定的模型。
var ErrNoProvider = errors.New("no provider for model")

// 各订阅等级的默认模型。解析失败或权限不足时路由到这里。
var defaultModels = map[models.SubscriptionTier]string{
	models.TierPremium: "gpt-4o",
	models.TierBasic:   "deepseek-chat",
	models.TierFree:    "llama3",
}

// Router 把模型 ID 映射到服务它的适配器，并执行订阅等级门禁。
type Router struct {
	adapters []Adapter
	log      *logger.Logger
}

// NewRouter 创建一个 Router。适配器的注册顺序即解析时的匹配顺序。
func NewRouter(log *logger.Logger, adapters ...Adapter) *Router {
	return &Router{
		adapters: adapters,
		log:      log.WithComponent("router"),
	}
}

// Resolve 线性扫描所有适配器，第一个声明服务该模型的适配器胜出。
func (r *Router) Resolve(modelID string) (Adapter, error) {
	for _, a := range r.adapters {
		if a.ProviderFor(modelID) != nil {
			return a, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoProvider, modelID)
}

// IsAvailable 判断给定订阅等级能否使用该模型。未知模型返回 false，不是错误。
func (r *Router) IsAvailable(modelID string, tier models.SubscriptionTier) bool {
	adapter, err := r.Resolve(modelID)
	if err != nil {
		return false
	}
	return adapter.IsModelAvailable(modelID, tier)
}

// DefaultModelFor 返回订阅等级的默认模型。
// 默认模型对应的提供方未注册时逐级降档，最终兜底到免费档默认模型。
func (r *Router) DefaultModelFor(tier models.SubscriptionTier) string {
	order := []models.SubscriptionTier{models.TierPremium, models.TierBasic, models.TierFree}
	for _, t := range order {
		if models.TierRank(t) > models.TierRank(tier) {
			continue
		}
		id := defaultModels[t]
		if _, err := r.Resolve(id); err == nil {
			return id
		}
	}
	return defaultModels[models.TierFree]
}

// ListModels 返回给定订阅等级可用的全部模型。
func (r *Router) ListModels(tier models.SubscriptionTier) []models.AgentModel {
	var out []models.AgentModel
	for _, a := range r.adapters {
		for _, m := range a.Models() {
			if tierAllows(tier, m.MinTier) {
				out = append(out, m)
			}
		}
	}
	return out
}

// KnownModel 判断模型是否在任一适配器的注册表中。
func (r *Router) KnownModel(modelID string) bool {
	_, err := r.Resolve(modelID)
	return err == nil
}
