package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-session/core"
)

var (
	_ gocmd.Querier[GetSessionMessage, core.Session]        = (*GetSessionQuery)(nil)
	_ gocmd.Querier[GetTenantMessage, string]               = (*GetTenantQuery)(nil)
	_ gocmd.Querier[ListEventsMessage, []core.SessionEvent] = (*ListEventsQuery)(nil)
)
