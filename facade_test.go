package session

import (
	"context"
	"testing"

	sessioncommand "github.com/goliatone/go-session/command"
	"github.com/goliatone/go-session/core"
	"github.com/goliatone/go-session/query"
)

type facadeService struct {
	session core.Session
}

func (s *facadeService) Initialize(context.Context) (core.Session, error) {
	s.session = core.Session{Phase: core.PhaseReady, TenantID: "abimoveis-003"}
	return s.session, nil
}

func (s *facadeService) Refresh(context.Context) (core.Session, error) {
	return s.session, nil
}

func (s *facadeService) Invalidate(context.Context, string, string) (core.Session, error) {
	s.session = core.Session{Phase: core.PhaseUnauthenticated}
	return s.session, nil
}

func (s *facadeService) SetTenant(_ context.Context, tenantID string) (core.Session, error) {
	s.session.TenantID = tenantID
	return s.session, nil
}

func (s *facadeService) AdoptCredential(_ context.Context, cred core.Credential) error {
	s.session.Credential = &cred
	return nil
}

func (s *facadeService) Current() core.Session { return s.session }

type facadeExecutor struct{}

func (facadeExecutor) Execute(context.Context, core.RequestDescriptor) (core.ResponseOutcome, error) {
	return core.ResponseOutcome{Kind: core.OutcomeSuccess}, nil
}

type facadeEventReader struct{}

func (facadeEventReader) Recent(context.Context, int) ([]core.SessionEvent, error) {
	return nil, nil
}

func TestNewFacade_WiresCoreHandlers(t *testing.T) {
	facade, err := NewFacade(&facadeService{})
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	commands := facade.Commands()
	if commands.Initialize == nil || commands.Refresh == nil ||
		commands.Invalidate == nil || commands.SetTenant == nil {
		t.Fatalf("expected lifecycle commands wired, got %+v", commands)
	}
	if commands.AdoptCredential == nil {
		t.Fatalf("expected adopt-credential command for an adopting service")
	}
	if commands.ExecuteRequest != nil {
		t.Fatalf("execute-request command needs an executor option")
	}

	queries := facade.Queries()
	if queries.GetSession == nil || queries.GetTenant == nil {
		t.Fatalf("expected session queries wired, got %+v", queries)
	}
	if queries.ListEvents != nil {
		t.Fatalf("list-events query needs an event reader option")
	}
}

func TestNewFacade_OptionalWiring(t *testing.T) {
	facade, err := NewFacade(&facadeService{},
		WithRequestExecutor(facadeExecutor{}),
		WithEventReader(facadeEventReader{}),
	)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	if facade.Commands().ExecuteRequest == nil {
		t.Fatalf("expected execute-request command")
	}
	if facade.Queries().ListEvents == nil {
		t.Fatalf("expected list-events query")
	}
}

func TestNewFacade_RequiresService(t *testing.T) {
	if _, err := NewFacade(nil); err == nil {
		t.Fatalf("expected error for missing service")
	}
}

func TestFacade_CommandsDriveService(t *testing.T) {
	svc := &facadeService{}
	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	if err := facade.Commands().Initialize.Execute(context.Background(), sessioncommand.InitializeMessage{}); err != nil {
		t.Fatalf("initialize command: %v", err)
	}
	session, err := facade.Queries().GetSession.Query(context.Background(), query.GetSessionMessage{})
	if err != nil {
		t.Fatalf("get session query: %v", err)
	}
	if session.TenantID != "abimoveis-003" {
		t.Fatalf("unexpected session %+v", session)
	}
}
