package sqlstore

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
	"github.com/goliatone/go-session/core"
)

const stateCacheKeyPrefix = "go-session::state::v1"

// CachedStateStore layers a read-through cache over a base state store.
// The tenant id is read on every outbound request, so the hot path should
// not hit the database.
type CachedStateStore struct {
	base  core.StateStore
	cache repositorycache.CacheService
}

func NewCachedStateStore(base core.StateStore, cacheService repositorycache.CacheService) (*CachedStateStore, error) {
	if base == nil {
		return nil, fmt.Errorf("sqlstore: base state store is required")
	}
	if cacheService == nil {
		return nil, fmt.Errorf("sqlstore: state cache service is required")
	}
	return &CachedStateStore{base: base, cache: cacheService}, nil
}

// StateCacheKey returns the deterministic cache key for a state read:
// go-session::state::v1::<key> with the key URL-path escaped.
func StateCacheKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("sqlstore: state key is required")
	}
	return stateCacheKeyPrefix + "::" + url.PathEscape(key), nil
}

func (s *CachedStateStore) Get(ctx context.Context, key string) (string, error) {
	if s == nil || s.base == nil || s.cache == nil {
		return "", fmt.Errorf("sqlstore: cached state store is not configured")
	}
	cacheKey, err := StateCacheKey(key)
	if err != nil {
		return "", err
	}
	return repositorycache.GetOrFetch(ctx, s.cache, cacheKey, func(ctx context.Context) (string, error) {
		return s.base.Get(ctx, key)
	})
}

func (s *CachedStateStore) Set(ctx context.Context, key string, value string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached state store is not configured")
	}
	cacheKey, err := StateCacheKey(key)
	if err != nil {
		return err
	}
	if err := s.base.Set(ctx, key, value); err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

func (s *CachedStateStore) Clear(ctx context.Context, key string) error {
	if s == nil || s.base == nil || s.cache == nil {
		return fmt.Errorf("sqlstore: cached state store is not configured")
	}
	cacheKey, err := StateCacheKey(key)
	if err != nil {
		return err
	}
	if err := s.base.Clear(ctx, key); err != nil {
		return err
	}
	return s.cache.Delete(ctx, cacheKey)
}

var _ core.StateStore = (*CachedStateStore)(nil)
