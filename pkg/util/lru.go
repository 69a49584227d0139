package util

import (
	"container/list"
	"sync"
	"time"
)

// entry 结构体用于存储链表节点中的实际数据。
type entry[K comparable, V any] struct {
	key        K
	value      V
	weight     int       // 元素的权重
	expiration time.Time // 元素的过期时间
}

// LRUCache 是一个支持泛型、线程安全、按权重淘汰的LRU缓存。
// weight 由调用方定义，例如向量缓存用向量的字节数做权重。
type LRUCache[K comparable, V any] struct {
	maxWeight     int
	ttl           time.Duration
	ll            *list.List
	cache         map[K]*list.Element
	currentWeight int
	lock          sync.RWMutex // 读写锁保证并发安全
}

// NewLRU 创建一个LRU缓存实例。
// maxWeight 是所有元素的最大权重总和，必须大于 0。ttl 为 0 时元素永不过期。
func NewLRU[K comparable, V any](maxWeight int, ttl time.Duration) *LRUCache[K, V] {
	if maxWeight <= 0 {
		maxWeight = 1
	}
	return &LRUCache[K, V]{
		maxWeight: maxWeight,
		ttl:       ttl,
		ll:        list.New(),
		cache:     make(map[K]*list.Element),
	}
}

// Get 方法根据键获取一个值。
func (c *LRUCache[K, V]) Get(key K) (V, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()

	element, ok := c.cache[key]
	if !ok {
		var zeroV V
		return zeroV, false
	}

	// 检查TTL是否过期（被动淘汰）
	ent := element.Value.(*entry[K, V])
	if c.ttl > 0 && time.Now().After(ent.expiration) {
		c.removeElement(element)
		var zeroV V
		return zeroV, false
	}

	// 标记为最近使用
	c.ll.MoveToFront(element)
	return ent.value, true
}

// Put 方法向缓存中添加或更新一个键值对，并指定其权重。
func (c *LRUCache[K, V]) Put(key K, value V, weight int) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if element, ok := c.cache[key]; ok {
		// --- 更新现有元素 ---
		ent := element.Value.(*entry[K, V])
		c.currentWeight += (weight - ent.weight)
		ent.weight = weight
		ent.value = value
		if c.ttl > 0 {
			ent.expiration = time.Now().Add(c.ttl)
		}
		c.ll.MoveToFront(element)
	} else {
		// --- 插入新元素 ---
		newEntry := &entry[K, V]{key: key, value: value, weight: weight}
		if c.ttl > 0 {
			newEntry.expiration = time.Now().Add(c.ttl)
		}
		c.cache[key] = c.ll.PushFront(newEntry)
		c.currentWeight += weight
	}

	// 一个大的新元素可能需要淘汰多个旧元素
	for c.currentWeight > c.maxWeight && c.ll.Len() > 1 {
		c.evict()
	}
}

// evict 淘汰最久未使用的元素。此方法假设已持有锁。
func (c *LRUCache[K, V]) evict() {
	if backElement := c.ll.Back(); backElement != nil {
		c.removeElement(backElement)
	}
}

// removeElement 从链表和map中移除元素。此方法假设已持有锁。
func (c *LRUCache[K, V]) removeElement(e *list.Element) {
	c.ll.Remove(e)
	ent := e.Value.(*entry[K, V])
	delete(c.cache, ent.key)
	c.currentWeight -= ent.weight
}

// Len 返回当前缓存中的条目数量。
func (c *LRUCache[K, V]) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.ll.Len()
}

// Weight 返回当前缓存中所有元素的总权重。
func (c *LRUCache[K, V]) Weight() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.currentWeight
}
