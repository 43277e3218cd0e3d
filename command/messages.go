package command

import (
	"strings"

	"github.com/goliatone/go-session/core"
)

const (
	TypeInitialize = "session.command.initialize"
	TypeRefresh    = "session.command.refresh"
	TypeInvalidate = "session.command.invalidate"
	TypeSetTenant  = "session.command.tenant.set"
	TypeAdopt      = "session.command.credential.adopt"
	TypeExecute    = "session.command.request.execute"
)

type InitializeMessage struct{}

func (InitializeMessage) Type() string { return TypeInitialize }

func (InitializeMessage) Validate() error { return nil }

type RefreshMessage struct{}

func (RefreshMessage) Type() string { return TypeRefresh }

func (RefreshMessage) Validate() error { return nil }

type InvalidateMessage struct {
	Code   string
	Reason string
}

func (InvalidateMessage) Type() string { return TypeInvalidate }

func (m InvalidateMessage) Validate() error {
	if strings.TrimSpace(m.Reason) == "" {
		return commandValidationError("reason", "invalidation reason is required")
	}
	return nil
}

type SetTenantMessage struct {
	TenantID string
}

func (SetTenantMessage) Type() string { return TypeSetTenant }

func (m SetTenantMessage) Validate() error {
	if strings.TrimSpace(m.TenantID) == "" {
		return commandValidationError("tenant_id", "tenant id is required")
	}
	return nil
}

type AdoptCredentialMessage struct {
	Credential core.Credential
}

func (AdoptCredentialMessage) Type() string { return TypeAdopt }

func (m AdoptCredentialMessage) Validate() error {
	if strings.TrimSpace(m.Credential.Raw) == "" {
		return commandValidationError("credential.raw", "credential value is required")
	}
	return nil
}

type ExecuteRequestMessage struct {
	Request core.RequestDescriptor
}

func (ExecuteRequestMessage) Type() string { return TypeExecute }

func (m ExecuteRequestMessage) Validate() error {
	if strings.TrimSpace(m.Request.URL) == "" {
		return commandValidationError("request.url", "request url is required")
	}
	return nil
}
