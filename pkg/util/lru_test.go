package util

import (
	"testing"
	"time"
)

func TestLRUGetPut(t *testing.T) {
	c := NewLRU[string, int](100, 0)
	c.Put("a", 1, 10)
	c.Put("b", 2, 10)

	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) = %v, %v", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Errorf("missing key must not hit")
	}
}

func TestLRUEvictsByWeight(t *testing.T) {
	c := NewLRU[string, int](30, 0)
	c.Put("a", 1, 10)
	c.Put("b", 2, 10)
	c.Put("c", 3, 10)
	// a 是最久未使用的，再放入新元素应当先淘汰它。
	c.Put("d", 4, 10)

	if _, ok := c.Get("a"); ok {
		t.Errorf("least recently used entry must be evicted")
	}
	if _, ok := c.Get("d"); !ok {
		t.Errorf("newest entry must survive")
	}
	if c.Weight() > 30 {
		t.Errorf("weight %d exceeds the limit", c.Weight())
	}
}

func TestLRUGetRefreshesRecency(t *testing.T) {
	c := NewLRU[string, int](30, 0)
	c.Put("a", 1, 10)
	c.Put("b", 2, 10)
	c.Put("c", 3, 10)

	// 访问 a 之后它变为最近使用，下一次淘汰的应该是 b。
	c.Get("a")
	c.Put("d", 4, 10)

	if _, ok := c.Get("a"); !ok {
		t.Errorf("recently read entry must survive eviction")
	}
	if _, ok := c.Get("b"); ok {
		t.Errorf("expected b to be evicted")
	}
}

func TestLRUTTLExpiry(t *testing.T) {
	c := NewLRU[string, int](100, 10*time.Millisecond)
	c.Put("a", 1, 10)

	time.Sleep(20 * time.Millisecond)
	if _, ok := c.Get("a"); ok {
		t.Errorf("expired entry must not hit")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry must be removed on read, len = %d", c.Len())
	}
}

func TestLRUUpdateExistingKey(t *testing.T) {
	c := NewLRU[string, int](100, 0)
	c.Put("a", 1, 10)
	c.Put("a", 2, 20)

	if v, _ := c.Get("a"); v != 2 {
		t.Errorf("update must replace the value, got %d", v)
	}
	if c.Len() != 1 || c.Weight() != 20 {
		t.Errorf("len = %d, weight = %d", c.Len(), c.Weight())
	}
}
