package session

import "github.com/goliatone/go-session/core"

type Config = core.Config

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies

type Session = core.Session
type Credential = core.Credential
type Identity = core.Identity
type Permission = core.Permission
type SessionEvent = core.SessionEvent
type SessionEventBus = core.SessionEventBus
type SessionEventHandler = core.SessionEventHandler
type SessionEventHandlerFunc = core.SessionEventHandlerFunc
type StateStore = core.StateStore
type HeaderDefaults = core.HeaderDefaults

type RequestDescriptor = core.RequestDescriptor
type ResponseOutcome = core.ResponseOutcome
type OutcomeKind = core.OutcomeKind

var (
	WithLogger          = core.WithLogger
	WithLoggerProvider  = core.WithLoggerProvider
	WithMetricsRecorder = core.WithMetricsRecorder
	WithErrorFactory    = core.WithErrorFactory
	WithErrorMapper     = core.WithErrorMapper
	WithConfigProvider  = core.WithConfigProvider
	WithOptionsResolver = core.WithOptionsResolver
	WithHTTPClient      = core.WithHTTPClient
	WithSourceResolver  = core.WithSourceResolver
	WithProfileLoader   = core.WithProfileLoader
	WithStateStore      = core.WithStateStore
	WithEventBus        = core.WithEventBus
	WithJobEnqueuer     = core.WithJobEnqueuer
	WithHeaderDefaults  = core.WithHeaderDefaults
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}
