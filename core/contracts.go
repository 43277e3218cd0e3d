package core

import (
	"context"
	"net/http"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SourceResolver walks the ranked credential source list. Resolve tries
// every source; ResolveFileSources is the poller variant restricted to the
// served-file tier, since bootstrap and fallback are one-shot concerns.
type SourceResolver interface {
	Resolve(ctx context.Context) (Credential, error)
	ResolveFileSources(ctx context.Context) (Credential, error)
}

// ProfileLoader fetches the identity attached to a credential. A load
// failure never blocks readiness; callers tolerate a nil identity.
type ProfileLoader interface {
	Load(ctx context.Context, cred Credential, tenantID string) (Identity, error)
}

// SessionReader is the read-only view the request pipeline takes: one
// snapshot per call, never a live reference.
type SessionReader interface {
	Current() Session
}

// StateKeyTenantID is the well-known key the derived tenant id persists
// under. It survives restarts and is cleared on logout or credential swap.
const StateKeyTenantID = "session.tenant_id"

// StateStore persists small session state (the tenant id) across process
// restarts.
type StateStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string) error
	Clear(ctx context.Context, key string) error
}

type SessionEventHandler interface {
	Handle(ctx context.Context, event SessionEvent) error
}

// SessionEventHandlerFunc adapts a function to SessionEventHandler.
type SessionEventHandlerFunc func(ctx context.Context, event SessionEvent) error

func (f SessionEventHandlerFunc) Handle(ctx context.Context, event SessionEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type SessionEventBus interface {
	Publish(ctx context.Context, event SessionEvent) error
	Subscribe(handler SessionEventHandler)
}

// CredentialInstaller is implemented by the Service; the poller delegates
// adopt/replace decisions to it so install semantics stay in one place.
type CredentialInstaller interface {
	AdoptCredential(ctx context.Context, cred Credential) error
	ReplaceCredential(ctx context.Context, cred Credential) error
}

type JobExecutionMessage struct {
	JobID          string
	Parameters     map[string]any
	IdempotencyKey string
	DedupPolicy    string
}

type JobNackOptions struct {
	Delay      time.Duration
	Requeue    bool
	DeadLetter bool
	Reason     string
}

type JobEnqueuer interface {
	Enqueue(ctx context.Context, msg *JobExecutionMessage) error
}

type JobDelivery interface {
	Message() *JobExecutionMessage
	Ack(ctx context.Context) error
	Nack(ctx context.Context, opts JobNackOptions) error
}

type JobWorkerEvent struct {
	Message   *JobExecutionMessage
	Attempt   int
	Delay     time.Duration
	Err       error
	StartedAt time.Time
	Duration  time.Duration
}

type JobWorkerHook interface {
	OnStart(ctx context.Context, event JobWorkerEvent)
	OnSuccess(ctx context.Context, event JobWorkerEvent)
	OnFailure(ctx context.Context, event JobWorkerEvent)
	OnRetry(ctx context.Context, event JobWorkerEvent)
}
