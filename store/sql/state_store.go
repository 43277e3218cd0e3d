// Package sqlstore persists the small durable slice of session state: the
// derived tenant id and an audit trail of lifecycle events. Everything
// else about a session is process-local and rebuilt at startup.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-session/core"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// StateStore is the bun-backed key/value store session state persists
// through. Keys are unique; Set is an upsert.
type StateStore struct {
	db   *bun.DB
	repo repository.Repository[*sessionStateRecord]
}

func NewStateStore(db *bun.DB) (*StateStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	repo := repository.NewRepository[*sessionStateRecord](db, sessionStateHandlers())
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid session state repository wiring: %w", err)
		}
	}
	return &StateStore{db: db, repo: repo}, nil
}

func (s *StateStore) Get(ctx context.Context, key string) (string, error) {
	if s == nil || s.db == nil {
		return "", fmt.Errorf("sqlstore: state store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("sqlstore: state key is required")
	}

	record := &sessionStateRecord{}
	err := s.db.NewSelect().
		Model(record).
		Where("?TableAlias.key = ?", key).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", nil
		}
		return "", err
	}
	return record.Value, nil
}

func (s *StateStore) Set(ctx context.Context, key string, value string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: state store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("sqlstore: state key is required")
	}
	now := time.Now().UTC()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		record, err := findStateTx(ctx, tx, key)
		if err != nil {
			return err
		}
		if record == nil {
			record = &sessionStateRecord{
				ID:        uuid.NewString(),
				Key:       key,
				Value:     value,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if _, insertErr := tx.NewInsert().Model(record).Exec(ctx); insertErr != nil {
				if isUniqueViolation(insertErr) {
					record, err = findStateTx(ctx, tx, key)
					if err != nil {
						return err
					}
					if record == nil {
						return insertErr
					}
				} else {
					return insertErr
				}
			} else {
				return nil
			}
		}

		record.Value = value
		record.UpdatedAt = now
		if _, updateErr := tx.NewUpdate().Model(record).Where("id = ?", record.ID).Exec(ctx); updateErr != nil {
			return updateErr
		}
		return nil
	})
}

func (s *StateStore) Clear(ctx context.Context, key string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: state store is not configured")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("sqlstore: state key is required")
	}
	_, err := s.db.NewDelete().
		Model((*sessionStateRecord)(nil)).
		Where("key = ?", key).
		Exec(ctx)
	return err
}

func findStateTx(ctx context.Context, tx bun.Tx, key string) (*sessionStateRecord, error) {
	record := &sessionStateRecord{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.key = ?", strings.TrimSpace(key)).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return record, nil
}

func isUniqueViolation(err error) bool {
	message := strings.ToLower(strings.TrimSpace(err.Error()))
	return strings.Contains(message, "unique constraint failed") ||
		strings.Contains(message, "duplicate key value violates unique constraint")
}

func copyAnyMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

var _ core.StateStore = (*StateStore)(nil)
