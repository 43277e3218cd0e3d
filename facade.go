// Package session bootstraps the client-side session runtime: credential
// discovery, session lifecycle, and the outbound request pipeline, behind
// one facade that wires the command and query handlers off a configured
// service.
package session

import (
	"fmt"

	sessioncommand "github.com/goliatone/go-session/command"
	"github.com/goliatone/go-session/query"
)

// CommandQueryService is the service surface the facade wires handlers
// around.
type CommandQueryService interface {
	sessioncommand.MutatingService
	query.SessionReader
}

type Commands struct {
	Initialize      *sessioncommand.InitializeCommand
	Refresh         *sessioncommand.RefreshCommand
	Invalidate      *sessioncommand.InvalidateCommand
	SetTenant       *sessioncommand.SetTenantCommand
	AdoptCredential *sessioncommand.AdoptCredentialCommand
	ExecuteRequest  *sessioncommand.ExecuteRequestCommand
}

type Queries struct {
	GetSession *query.GetSessionQuery
	GetTenant  *query.GetTenantQuery
	ListEvents *query.ListEventsQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

type FacadeOption func(*facadeOptions)

type facadeOptions struct {
	executor    sessioncommand.RequestExecutor
	eventReader query.EventReader
}

// WithRequestExecutor wires the outbound pipeline into the facade so the
// execute-request command is available.
func WithRequestExecutor(executor sessioncommand.RequestExecutor) FacadeOption {
	return func(options *facadeOptions) {
		options.executor = executor
	}
}

// WithEventReader wires the persisted lifecycle audit trail into the
// list-events query.
func WithEventReader(reader query.EventReader) FacadeOption {
	return func(options *facadeOptions) {
		options.eventReader = reader
	}
}

func NewFacade(service CommandQueryService, opts ...FacadeOption) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("session: command/query service is required")
	}
	cfg := facadeOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		Initialize: sessioncommand.NewInitializeCommand(service),
		Refresh:    sessioncommand.NewRefreshCommand(service),
		Invalidate: sessioncommand.NewInvalidateCommand(service),
		SetTenant:  sessioncommand.NewSetTenantCommand(service),
	}
	if adopter, ok := service.(sessioncommand.CredentialAdopter); ok {
		facade.commands.AdoptCredential = sessioncommand.NewAdoptCredentialCommand(adopter)
	}
	if cfg.executor != nil {
		facade.commands.ExecuteRequest = sessioncommand.NewExecuteRequestCommand(cfg.executor)
	}
	facade.queries = Queries{
		GetSession: query.NewGetSessionQuery(service),
		GetTenant:  query.NewGetTenantQuery(service),
	}
	if cfg.eventReader != nil {
		facade.queries.ListEvents = query.NewListEventsQuery(cfg.eventReader)
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
