package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-session/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// EventStore records the session lifecycle audit trail. Subscribe its
// Handler to the event bus and every transition lands in session_events.
type EventStore struct {
	db   *bun.DB
	repo repository.Repository[*sessionEventRecord]
}

func NewEventStore(db *bun.DB) (*EventStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*sessionEventRecord](db, sessionEventHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid session event repository wiring: %w", err)
		}
	}
	return &EventStore{db: db, repo: repo}, nil
}

func (s *EventStore) Append(ctx context.Context, event core.SessionEvent) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: event store is not configured")
	}
	if strings.TrimSpace(event.Name) == "" {
		return fmt.Errorf("sqlstore: event name is required")
	}
	id := strings.TrimSpace(event.ID)
	if id == "" {
		id = uuid.NewString()
	}
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	record := &sessionEventRecord{
		ID:         id,
		Name:       strings.TrimSpace(event.Name),
		Phase:      string(event.Phase),
		TenantID:   strings.TrimSpace(event.TenantID),
		Metadata:   copyAnyMap(event.Metadata),
		OccurredAt: occurredAt.UTC(),
	}
	_, err := s.db.NewInsert().Model(record).Exec(ctx)
	return err
}

// Recent returns the newest events, most recent first.
func (s *EventStore) Recent(ctx context.Context, limit int) ([]core.SessionEvent, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: event store is not configured")
	}
	if limit <= 0 {
		limit = 50
	}

	var records []sessionEventRecord
	err := s.db.NewSelect().
		Model(&records).
		OrderExpr("?TableAlias.occurred_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	events := make([]core.SessionEvent, 0, len(records))
	for _, record := range records {
		events = append(events, core.SessionEvent{
			ID:         record.ID,
			Name:       record.Name,
			Phase:      core.SessionPhase(record.Phase),
			TenantID:   record.TenantID,
			Metadata:   copyAnyMap(record.Metadata),
			OccurredAt: record.OccurredAt.UTC(),
		})
	}
	return events, nil
}

// Handler adapts the store to the event bus contract.
func (s *EventStore) Handler() core.SessionEventHandler {
	return core.SessionEventHandlerFunc(func(ctx context.Context, event core.SessionEvent) error {
		return s.Append(ctx, event)
	})
}
