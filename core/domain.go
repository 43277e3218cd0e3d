package core

import (
	"strings"
	"time"
)

// SessionPhase is the lifecycle state of the process-wide session.
type SessionPhase string

const (
	PhaseInitializing    SessionPhase = "initializing"
	PhaseReady           SessionPhase = "ready"
	PhaseUnauthenticated SessionPhase = "unauthenticated"
)

// Credential is the bearer token granting API access. Only the payload
// segment is ever decoded; the raw string is what goes on the wire.
type Credential struct {
	Raw       string
	IssuedAt  *time.Time
	ExpiresAt *time.Time

	// PayloadOpaque marks a structurally valid credential whose payload
	// segment failed to decode. Expiry is unknown and the credential is
	// treated as non-expiring.
	PayloadOpaque bool
}

// Expired reports whether the credential's expiry has passed. A credential
// without a decodable expiry never expires by this check.
func (c Credential) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	return !now.UTC().Before(c.ExpiresAt.UTC())
}

// Usable reports whether the credential can be installed on a session.
func (c Credential) Usable(now time.Time) bool {
	return strings.TrimSpace(c.Raw) != "" && !c.Expired(now)
}

// Equal compares credentials structurally.
func (c Credential) Equal(other Credential) bool {
	if c.Raw != other.Raw || c.PayloadOpaque != other.PayloadOpaque {
		return false
	}
	if !timesEqual(c.IssuedAt, other.IssuedAt) {
		return false
	}
	return timesEqual(c.ExpiresAt, other.ExpiresAt)
}

func timesEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.UTC().Equal(b.UTC())
}

// Permission is one tenant the identity may act as.
type Permission struct {
	TenantID string
	Vertical string
	Platform string
}

// Identity is the decoded profile attached to a credential. It is owned
// exclusively by the SessionStore and replaced wholesale on refresh.
type Identity struct {
	DisplayName string
	Email       string
	AvatarURL   string
	Permissions []Permission
}

// Clone returns a deep copy so installed identities are never shared with
// caller-owned slices.
func (i Identity) Clone() Identity {
	out := i
	if len(i.Permissions) > 0 {
		out.Permissions = make([]Permission, len(i.Permissions))
		copy(out.Permissions, i.Permissions)
	}
	return out
}

// Session is the process-wide authentication state.
type Session struct {
	Credential    *Credential
	Identity      *Identity
	TenantID      string
	Phase         SessionPhase
	LastError     string
	LastErrorCode string
	UpdatedAt     time.Time
}

// Ready reports whether the session holds a usable credential.
func (s Session) Ready() bool {
	return s.Phase == PhaseReady && s.Credential != nil
}

// BearerToken returns the raw credential, or empty when none is installed.
func (s Session) BearerToken() string {
	if s.Credential == nil {
		return ""
	}
	return strings.TrimSpace(s.Credential.Raw)
}

// Session event names published by the SessionStore.
const (
	EventSessionReady           = "session.ready"
	EventSessionReinitialize    = "session.reinitialize"
	EventSessionUnauthenticated = "session.unauthenticated"
	EventSessionTenantChanged   = "session.tenant_changed"
)

// SessionEvent is broadcast to collaborators on lifecycle transitions.
// EventSessionReinitialize is the hard-reload contract: caches keyed by
// the previous tenant id are stale and must be discarded.
type SessionEvent struct {
	ID         string
	Name       string
	Phase      SessionPhase
	TenantID   string
	OccurredAt time.Time
	Metadata   map[string]any
}

// OutcomeKind tags the classification of an upstream response.
type OutcomeKind string

const (
	OutcomeSuccess              OutcomeKind = "success"
	OutcomeUnauthorized         OutcomeKind = "unauthorized"
	OutcomeTransientServerError OutcomeKind = "transient_server_error"
	OutcomeClientError          OutcomeKind = "client_error"
	OutcomeMasqueradedFailure   OutcomeKind = "masqueraded_failure"
	OutcomeNetworkFailure       OutcomeKind = "network_failure"
)

// ResponseOutcome is the classified result of one pipeline execution.
type ResponseOutcome struct {
	Kind       OutcomeKind
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Retried    bool
	Metadata   map[string]any
}

// AuthSuspect reports whether the outcome signals a stale credential. The
// pipeline never invalidates the session itself; callers decide.
func (o ResponseOutcome) AuthSuspect() bool {
	switch o.Kind {
	case OutcomeMasqueradedFailure, OutcomeUnauthorized:
		return true
	case OutcomeClientError:
		return o.StatusCode == 401
	default:
		return false
	}
}

// RequestDescriptor describes one outbound call. Explicit headers take
// precedence over session-derived auth and tenant headers.
type RequestDescriptor struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   map[string]string
	Body    []byte
	Timeout time.Duration
}
