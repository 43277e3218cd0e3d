package sqlstore

import (
	"time"

	"github.com/uptrace/bun"
)

type sessionStateRecord struct {
	bun.BaseModel `bun:"table:session_state,alias:ss"`

	ID        string    `bun:"id,pk"`
	Key       string    `bun:"key,notnull"`
	Value     string    `bun:"value,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type sessionEventRecord struct {
	bun.BaseModel `bun:"table:session_events,alias:se"`

	ID         string         `bun:"id,pk"`
	Name       string         `bun:"name,notnull"`
	Phase      string         `bun:"phase,notnull"`
	TenantID   string         `bun:"tenant_id"`
	Metadata   map[string]any `bun:"metadata,type:jsonb,notnull"`
	OccurredAt time.Time      `bun:"occurred_at,notnull"`
	CreatedAt  time.Time      `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
