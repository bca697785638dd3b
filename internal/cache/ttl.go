package cache

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
)

// TTLCache is a cost-bounded cache whose entries expire after a fixed TTL.
// Eviction is admission-based, so a Get right after Set may still miss under pressure.
type TTLCache[T any] struct {
	c   *ristretto.Cache
	ttl time.Duration
}

// NewTTLCache returns a cache holding roughly maxItems entries of unit cost.
func NewTTLCache[T any](maxItems int64, ttl time.Duration) (*TTLCache[T], error) {
	if maxItems <= 0 {
		maxItems = 1024
	}
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: maxItems * 10,
		MaxCost:     maxItems,
		BufferItems: 64,
		// Cost counts entries, not bytes.
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}
	return &TTLCache[T]{c: c, ttl: ttl}, nil
}

func (t *TTLCache[T]) Get(key string) (T, bool) {
	var zero T
	v, ok := t.c.Get(key)
	if !ok {
		return zero, false
	}
	out, ok := v.(T)
	return out, ok
}

// Set stores value and waits for the write buffer so the value is visible to the next Get.
func (t *TTLCache[T]) Set(key string, value T) {
	t.c.SetWithTTL(key, value, 1, t.ttl)
	t.c.Wait()
}

func (t *TTLCache[T]) Delete(key string) {
	t.c.Del(key)
}

// Clear drops every entry.
func (t *TTLCache[T]) Clear() {
	t.c.Clear()
}

func (t *TTLCache[T]) Close() {
	t.c.Close()
}
