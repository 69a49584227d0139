package provider

import (
	"sync"

	"ChattyWidget/internal/models"
)

// registry 是提供方内部的模型注册表。
// 只增不减：运行期的模型发现（如 Ollama 的 /api/tags）只会补充新模型，
// 已注册的模型不会被移除，避免在线请求与发现过程竞争时模型"消失"。
type registry struct {
	mu     sync.RWMutex
	models []models.AgentModel
}

func newRegistry(seed ...models.AgentModel) *registry {
	return &registry{models: seed}
}

// add 注册新模型，已存在同 ID 的模型时跳过。
func (r *registry) add(ms ...models.AgentModel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range ms {
		if r.findLocked(m.ID) != nil {
			continue
		}
		r.models = append(r.models, m)
	}
}

// list 返回注册表的一个副本。
func (r *registry) list() []models.AgentModel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.AgentModel, len(r.models))
	copy(out, r.models)
	return out
}

// find 按 ID 查找模型，返回副本的指针，未找到时返回 nil。
func (r *registry) find(id string) *models.AgentModel {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.findLocked(id)
}

func (r *registry) findLocked(id string) *models.AgentModel {
	for i := range r.models {
		if r.models[i].ID == id {
			m := r.models[i]
			return &m
		}
	}
	return nil
}
