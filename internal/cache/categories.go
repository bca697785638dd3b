package cache

import (
	"context"
	"time"

	"hesab/internal/core"
	"hesab/internal/storage"
)

// CategoryStore caches ListCategories per user in front of a storage.Store.
// Usage counts in cached lists may lag until the entry expires.
type CategoryStore struct {
	storage.Store
	lists Cache[[]core.Category]
}

// NewCategoryStore wraps store. A ttl <= 0 defaults to five minutes.
func NewCategoryStore(store storage.Store, ttl time.Duration) (*CategoryStore, error) {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	lists, err := NewTTLCache[[]core.Category](4096, ttl)
	if err != nil {
		return nil, err
	}
	return &CategoryStore{Store: store, lists: lists}, nil
}

func (s *CategoryStore) ListCategories(ctx context.Context, userID string) ([]core.Category, error) {
	if cats, ok := s.lists.Get(userID); ok {
		return append([]core.Category(nil), cats...), nil
	}
	cats, err := s.Store.ListCategories(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.lists.Set(userID, cats)
	return append([]core.Category(nil), cats...), nil
}

// UpsertCategory writes through. A global category invalidates every cached list.
func (s *CategoryStore) UpsertCategory(ctx context.Context, c core.Category) (core.Category, error) {
	out, err := s.Store.UpsertCategory(ctx, c)
	if err != nil {
		return out, err
	}
	s.invalidate(c.UserID)
	return out, nil
}

// Reset forwards to the wrapped store when it supports it and drops the cache.
func (s *CategoryStore) Reset(ctx context.Context) error {
	r, ok := s.Store.(storage.Resetter)
	if !ok {
		return nil
	}
	if err := r.Reset(ctx); err != nil {
		return err
	}
	s.invalidate("")
	return nil
}

func (s *CategoryStore) invalidate(userID string) {
	if userID != "" {
		s.lists.Delete(userID)
		return
	}
	if c, ok := s.lists.(interface{ Clear() }); ok {
		c.Clear()
	}
}

// Close releases the cache and closes the wrapped store.
func (s *CategoryStore) Close() error {
	if c, ok := s.lists.(interface{ Close() }); ok {
		c.Close()
	}
	return s.Store.Close()
}
