package query

import (
	"context"

	"github.com/goliatone/go-session/core"
)

// SessionReader is the read-only session surface queries consume.
type SessionReader interface {
	Current() core.Session
}

// EventReader lists the persisted lifecycle audit trail.
type EventReader interface {
	Recent(ctx context.Context, limit int) ([]core.SessionEvent, error)
}

type GetSessionQuery struct {
	reader SessionReader
}

func NewGetSessionQuery(reader SessionReader) *GetSessionQuery {
	return &GetSessionQuery{reader: reader}
}

func (q *GetSessionQuery) Query(ctx context.Context, msg GetSessionMessage) (core.Session, error) {
	if q == nil || q.reader == nil {
		return core.Session{}, queryDependencyError("query: session reader is required")
	}
	return q.reader.Current(), nil
}

type GetTenantQuery struct {
	reader SessionReader
}

func NewGetTenantQuery(reader SessionReader) *GetTenantQuery {
	return &GetTenantQuery{reader: reader}
}

func (q *GetTenantQuery) Query(ctx context.Context, msg GetTenantMessage) (string, error) {
	if q == nil || q.reader == nil {
		return "", queryDependencyError("query: session reader is required")
	}
	return q.reader.Current().TenantID, nil
}

type ListEventsQuery struct {
	reader EventReader
}

func NewListEventsQuery(reader EventReader) *ListEventsQuery {
	return &ListEventsQuery{reader: reader}
}

func (q *ListEventsQuery) Query(ctx context.Context, msg ListEventsMessage) ([]core.SessionEvent, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: event reader is required")
	}
	return q.reader.Recent(ctx, msg.Limit)
}
