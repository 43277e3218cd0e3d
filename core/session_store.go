package core

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// SessionStore owns the single process-wide Session value. All writes go
// through whole-value replacement: a new Session is built off to the side
// and installed with one atomic pointer swap, so a reader holding a
// snapshot never observes a partially updated session. The mutex only
// serializes writers; readers are lock-free.
type SessionStore struct {
	mu      sync.Mutex
	current atomic.Pointer[Session]
	bus     SessionEventBus
	logger  Logger
	nowFn   func() time.Time
}

func NewSessionStore(bus SessionEventBus, logger Logger) *SessionStore {
	store := &SessionStore{
		bus:    bus,
		logger: logger,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
	initial := Session{Phase: PhaseInitializing, UpdatedAt: store.nowFn()}
	store.current.Store(&initial)
	return store
}

// Current returns a snapshot. Pointer fields reference immutable values;
// installed credentials and identities are never mutated in place.
func (s *SessionStore) Current() Session {
	if s == nil {
		return Session{Phase: PhaseInitializing}
	}
	return *s.current.Load()
}

func (s *SessionStore) Phase() SessionPhase {
	return s.Current().Phase
}

// MarkReady installs a usable credential as the active session. A
// Ready->Ready replacement is the hard-reload contract: collaborators are
// told to reinitialize because caches keyed by the previous tenant id are
// now stale.
func (s *SessionStore) MarkReady(ctx context.Context, cred Credential, identity *Identity, tenantID string) Session {
	if s == nil {
		return Session{}
	}
	tenantID = NormalizeTenantID(tenantID)

	var installedIdentity *Identity
	if identity != nil {
		cloned := identity.Clone()
		installedIdentity = &cloned
	}
	installedCred := cred

	s.mu.Lock()
	prev := *s.current.Load()
	next := Session{
		Credential: &installedCred,
		Identity:   installedIdentity,
		TenantID:   tenantID,
		Phase:      PhaseReady,
		UpdatedAt:  s.nowFn(),
	}
	s.current.Store(&next)
	s.mu.Unlock()

	if prev.Phase == PhaseReady {
		s.publish(ctx, newSessionEvent(EventSessionReinitialize, PhaseReady, tenantID, map[string]any{
			"previous_tenant_id": prev.TenantID,
		}))
	} else {
		s.publish(ctx, newSessionEvent(EventSessionReady, PhaseReady, tenantID, nil))
	}
	if prev.TenantID != "" && prev.TenantID != tenantID {
		s.publish(ctx, newSessionEvent(EventSessionTenantChanged, PhaseReady, tenantID, map[string]any{
			"previous_tenant_id": prev.TenantID,
		}))
	}
	return next
}

// MarkUnauthenticated clears the credential and identity, recording the
// cause. The tenant id is retained so the credential-acquisition surface
// can still present tenant context.
func (s *SessionStore) MarkUnauthenticated(ctx context.Context, code string, cause string) Session {
	if s == nil {
		return Session{}
	}

	s.mu.Lock()
	prev := *s.current.Load()
	next := Session{
		TenantID:      prev.TenantID,
		Phase:         PhaseUnauthenticated,
		LastError:     strings.TrimSpace(cause),
		LastErrorCode: strings.TrimSpace(code),
		UpdatedAt:     s.nowFn(),
	}
	s.current.Store(&next)
	s.mu.Unlock()

	s.publish(ctx, newSessionEvent(EventSessionUnauthenticated, PhaseUnauthenticated, next.TenantID, map[string]any{
		"cause": next.LastError,
		"code":  next.LastErrorCode,
	}))
	return next
}

// ReplaceTenant swaps only the tenant id, keeping credential and identity.
func (s *SessionStore) ReplaceTenant(ctx context.Context, tenantID string) Session {
	if s == nil {
		return Session{}
	}
	tenantID = NormalizeTenantID(tenantID)

	s.mu.Lock()
	prev := *s.current.Load()
	next := prev
	next.TenantID = tenantID
	next.UpdatedAt = s.nowFn()
	s.current.Store(&next)
	s.mu.Unlock()

	if prev.TenantID != tenantID {
		s.publish(ctx, newSessionEvent(EventSessionTenantChanged, next.Phase, tenantID, map[string]any{
			"previous_tenant_id": prev.TenantID,
		}))
	}
	return next
}

func (s *SessionStore) publish(ctx context.Context, event SessionEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, event); err != nil && s.logger != nil {
		s.logger.Warn("session event handler failure", "event", event.Name, "error", err.Error())
	}
}

var _ SessionReader = (*SessionStore)(nil)
