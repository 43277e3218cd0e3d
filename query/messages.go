package query

import "fmt"

const (
	TypeGetSession = "session.query.session.get"
	TypeGetTenant  = "session.query.tenant.get"
	TypeListEvents = "session.query.events.list"
)

type GetSessionMessage struct{}

func (GetSessionMessage) Type() string { return TypeGetSession }

func (GetSessionMessage) Validate() error { return nil }

type GetTenantMessage struct{}

func (GetTenantMessage) Type() string { return TypeGetTenant }

func (GetTenantMessage) Validate() error { return nil }

type ListEventsMessage struct {
	Limit int
}

func (ListEventsMessage) Type() string { return TypeListEvents }

func (m ListEventsMessage) Validate() error {
	if m.Limit < 0 {
		return fmt.Errorf("query: limit must be >= 0")
	}
	return nil
}
