package sqlstore

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	repositorycache "github.com/goliatone/go-repository-cache/cache"
)

type stubStateStore struct {
	mu       sync.Mutex
	values   map[string]string
	getCalls int
	setErr   error
}

func (s *stubStateStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.getCalls++
	return s.values[key], nil
}

func (s *stubStateStore) Set(_ context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	if s.values == nil {
		s.values = map[string]string{}
	}
	s.values[key] = value
	return nil
}

func (s *stubStateStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

func newTestStateCacheService(t *testing.T) repositorycache.CacheService {
	t.Helper()
	config := repositorycache.DefaultConfig()
	config.TTL = time.Minute
	service, err := repositorycache.NewCacheService(config)
	if err != nil {
		t.Fatalf("new cache service: %v", err)
	}
	return service
}

func TestCachedStateStore_GetMissFetchThenHit(t *testing.T) {
	base := &stubStateStore{values: map[string]string{"session.tenant_id": "abimoveis-003"}}
	store, err := NewCachedStateStore(base, newTestStateCacheService(t))
	if err != nil {
		t.Fatalf("new cached state store: %v", err)
	}

	value, err := store.Get(context.Background(), "session.tenant_id")
	if err != nil || value != "abimoveis-003" {
		t.Fatalf("first get: %q (%v)", value, err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected one base read, got %d", base.getCalls)
	}

	if _, err := store.Get(context.Background(), "session.tenant_id"); err != nil {
		t.Fatalf("second get: %v", err)
	}
	if base.getCalls != 1 {
		t.Fatalf("expected second get to be a cache hit, base reads=%d", base.getCalls)
	}
}

func TestCachedStateStore_SetInvalidatesCachedKey(t *testing.T) {
	base := &stubStateStore{values: map[string]string{"session.tenant_id": "abimoveis-003"}}
	store, err := NewCachedStateStore(base, newTestStateCacheService(t))
	if err != nil {
		t.Fatalf("new cached state store: %v", err)
	}

	if _, err := store.Get(context.Background(), "session.tenant_id"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	if err := store.Set(context.Background(), "session.tenant_id", "other-001"); err != nil {
		t.Fatalf("set: %v", err)
	}

	value, err := store.Get(context.Background(), "session.tenant_id")
	if err != nil || value != "other-001" {
		t.Fatalf("expected fresh value after invalidation, got %q (%v)", value, err)
	}
}

func TestCachedStateStore_SetFailureSkipsInvalidation(t *testing.T) {
	setErr := errors.New("db unavailable")
	base := &stubStateStore{values: map[string]string{"session.tenant_id": "abimoveis-003"}, setErr: setErr}
	store, err := NewCachedStateStore(base, newTestStateCacheService(t))
	if err != nil {
		t.Fatalf("new cached state store: %v", err)
	}

	if err := store.Set(context.Background(), "session.tenant_id", "other-001"); !errors.Is(err, setErr) {
		t.Fatalf("expected base error to propagate, got %v", err)
	}
}

func TestStateCacheKey(t *testing.T) {
	key, err := StateCacheKey("session.tenant_id")
	if err != nil {
		t.Fatalf("state cache key: %v", err)
	}
	if key != "go-session::state::v1::session.tenant_id" {
		t.Fatalf("unexpected cache key %q", key)
	}
	if _, err := StateCacheKey("  "); err == nil {
		t.Fatalf("blank keys must be rejected")
	}

	escaped, err := StateCacheKey("a/b c")
	if err != nil {
		t.Fatalf("state cache key: %v", err)
	}
	if escaped != "go-session::state::v1::a%2Fb%20c" {
		t.Fatalf("unexpected escaped key %q", escaped)
	}
}
