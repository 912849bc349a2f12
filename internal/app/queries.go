package app

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"urbannest/internal/domain"
)

type PropertyQueryService struct {
	store    domain.PropertyStore
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewPropertyQueryService(s domain.PropertyStore, c domain.Cache, ttl time.Duration) *PropertyQueryService {
	return &PropertyQueryService{store: s, cache: c, cacheTTL: ttl}
}

func (s *PropertyQueryService) GetProperty(ctx context.Context, id int64) (domain.Property, error) {
	key := fmt.Sprintf("property:%d", id)
	var p domain.Property
	if ok, _ := s.cache.Get(ctx, key, &p); ok {
		return p, nil
	}
	p, err := s.store.GetProperty(ctx, id)
	if err != nil {
		return domain.Property{}, err
	}
	_ = s.cache.Set(ctx, key, p, int(s.cacheTTL.Seconds()))
	return p, nil
}

func (s *PropertyQueryService) ListProperties(ctx context.Context, limit int) (domain.PropertiesPage, error) {
	key := fmt.Sprintf("properties:%d", limit)
	var out domain.PropertiesPage
	if ok, _ := s.cache.Get(ctx, key, &out); ok {
		return out, nil
	}

	page, err := s.store.ListProperties(ctx, limit)
	if err != nil {
		return domain.PropertiesPage{}, err
	}

	// copy slice to avoid aliasing the store's backing array (prevents callers from mutating cached value)
	copyPage := deepCopyPropertiesPage(page)

	// optional size guard
	if b, _ := json.Marshal(copyPage); len(b) < 1_000_000 {
		_ = s.cache.Set(ctx, key, copyPage, int(s.cacheTTL.Seconds()))
	}
	return copyPage, nil
}

// SearchProperties is uncached: filter combinations are too sparse for a
// keyed cache to earn its invalidation complexity.
func (s *PropertyQueryService) SearchProperties(ctx context.Context, q domain.PropertySearch) (domain.PropertiesPage, error) {
	return s.store.SearchProperties(ctx, q)
}

func deepCopyPropertiesPage(in domain.PropertiesPage) domain.PropertiesPage {
	out := domain.PropertiesPage{NextCursor: in.NextCursor}
	if n := len(in.Items); n > 0 {
		out.Items = make([]domain.Property, n)
		copy(out.Items, in.Items)
	}
	return out
}
