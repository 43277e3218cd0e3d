package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryEventBus is the default in-process broadcast for session events.
// Handlers run synchronously in registration order; failures are aggregated
// and returned for observability without stopping later handlers.
type MemoryEventBus struct {
	mu       sync.RWMutex
	handlers []SessionEventHandler
}

func NewMemoryEventBus() *MemoryEventBus {
	return &MemoryEventBus{handlers: make([]SessionEventHandler, 0)}
}

func (b *MemoryEventBus) Subscribe(handler SessionEventHandler) {
	if b == nil || handler == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

func (b *MemoryEventBus) Publish(ctx context.Context, event SessionEvent) error {
	var handlerErr error
	for _, handler := range b.handlersSnapshot() {
		if handler == nil {
			continue
		}
		if err := handler.Handle(ctx, event); err != nil {
			handlerErr = errors.Join(handlerErr, fmt.Errorf("session event handler failed for %q: %w", event.Name, err))
		}
	}
	return handlerErr
}

func (b *MemoryEventBus) handlersSnapshot() []SessionEventHandler {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]SessionEventHandler, len(b.handlers))
	copy(out, b.handlers)
	return out
}

func newSessionEvent(name string, phase SessionPhase, tenantID string, metadata map[string]any) SessionEvent {
	return SessionEvent{
		ID:         uuid.NewString(),
		Name:       name,
		Phase:      phase,
		TenantID:   tenantID,
		OccurredAt: time.Now().UTC(),
		Metadata:   metadata,
	}
}

var _ SessionEventBus = (*MemoryEventBus)(nil)
