package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-session/core"
)

// MutatingService is the slice of the session service command handlers
// drive.
type MutatingService interface {
	Initialize(ctx context.Context) (core.Session, error)
	Refresh(ctx context.Context) (core.Session, error)
	Invalidate(ctx context.Context, code string, reason string) (core.Session, error)
	SetTenant(ctx context.Context, tenantID string) (core.Session, error)
}

// CredentialAdopter accepts credentials discovered outside the normal
// resolve flow.
type CredentialAdopter interface {
	AdoptCredential(ctx context.Context, cred core.Credential) error
}

// RequestExecutor runs one outbound call through the pipeline.
type RequestExecutor interface {
	Execute(ctx context.Context, req core.RequestDescriptor) (core.ResponseOutcome, error)
}

type InitializeCommand struct {
	service MutatingService
}

func NewInitializeCommand(service MutatingService) *InitializeCommand {
	return &InitializeCommand{service: service}
}

func (c *InitializeCommand) Execute(ctx context.Context, msg InitializeMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: initialize service is required")
	}
	out, err := c.service.Initialize(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RefreshCommand struct {
	service MutatingService
}

func NewRefreshCommand(service MutatingService) *RefreshCommand {
	return &RefreshCommand{service: service}
}

func (c *RefreshCommand) Execute(ctx context.Context, msg RefreshMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: refresh service is required")
	}
	out, err := c.service.Refresh(ctx)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type InvalidateCommand struct {
	service MutatingService
}

func NewInvalidateCommand(service MutatingService) *InvalidateCommand {
	return &InvalidateCommand{service: service}
}

func (c *InvalidateCommand) Execute(ctx context.Context, msg InvalidateMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: invalidate service is required")
	}
	out, err := c.service.Invalidate(ctx, msg.Code, msg.Reason)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SetTenantCommand struct {
	service MutatingService
}

func NewSetTenantCommand(service MutatingService) *SetTenantCommand {
	return &SetTenantCommand{service: service}
}

func (c *SetTenantCommand) Execute(ctx context.Context, msg SetTenantMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: tenant service is required")
	}
	out, err := c.service.SetTenant(ctx, msg.TenantID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type AdoptCredentialCommand struct {
	adopter CredentialAdopter
}

func NewAdoptCredentialCommand(adopter CredentialAdopter) *AdoptCredentialCommand {
	return &AdoptCredentialCommand{adopter: adopter}
}

func (c *AdoptCredentialCommand) Execute(ctx context.Context, msg AdoptCredentialMessage) error {
	if c == nil || c.adopter == nil {
		return commandDependencyError("command: credential adopter is required")
	}
	return c.adopter.AdoptCredential(ctx, msg.Credential)
}

type ExecuteRequestCommand struct {
	executor RequestExecutor
}

func NewExecuteRequestCommand(executor RequestExecutor) *ExecuteRequestCommand {
	return &ExecuteRequestCommand{executor: executor}
}

func (c *ExecuteRequestCommand) Execute(ctx context.Context, msg ExecuteRequestMessage) error {
	if c == nil || c.executor == nil {
		return commandDependencyError("command: request executor is required")
	}
	out, err := c.executor.Execute(ctx, msg.Request)
	// The outcome is stored even on failure so callers can inspect the
	// classification alongside the error.
	storeResult(ctx, out)
	return err
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
