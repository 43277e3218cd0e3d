package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

// Job identifiers enqueued by the session runtime. Workers subscribe to
// these to run refresh and reinitialize work off the hot path.
const (
	JobIDSessionRefresh      = "session.refresh"
	JobIDSessionReinitialize = "session.reinitialize"
	JobIDTenantPersist       = "session.tenant_persist"
)

// Service owns the session lifecycle: bootstrapping a credential from the
// ranked sources, attaching the identity and tenant, watching for
// credential rotation, and exposing the read-only session snapshot the
// request pipeline consumes.
type Service struct {
	config          Config
	logger          Logger
	loggerProvider  LoggerProvider
	metricsRecorder MetricsRecorder
	errorFactory    ErrorFactory
	errorMapper     ErrorMapper
	configProvider  ConfigProvider
	optionsResolver OptionsResolver
	httpClient      HTTPDoer
	resolver        SourceResolver
	profileLoader   ProfileLoader
	stateStore      StateStore
	eventBus        SessionEventBus
	jobEnqueuer     JobEnqueuer
	headerDefaults  *HeaderDefaults

	sessions *SessionStore
	poller   *CredentialPoller
	nowFn    func() time.Time
}

type ServiceDependencies struct {
	Logger          Logger
	LoggerProvider  LoggerProvider
	MetricsRecorder MetricsRecorder
	ErrorFactory    ErrorFactory
	ErrorMapper     ErrorMapper
	ConfigProvider  ConfigProvider
	OptionsResolver OptionsResolver
	HTTPClient      HTTPDoer
	SourceResolver  SourceResolver
	ProfileLoader   ProfileLoader
	StateStore      StateStore
	EventBus        SessionEventBus
	JobEnqueuer     JobEnqueuer
	HeaderDefaults  *HeaderDefaults
}

func NewService(cfg Config, options ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("session", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("session"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.eventBus == nil {
		builder.eventBus = NewMemoryEventBus()
	}
	if builder.headerDefaults == nil {
		builder.headerDefaults = NewHeaderDefaults()
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	svc := &Service{
		config:          finalConfig,
		logger:          logger,
		loggerProvider:  provider,
		metricsRecorder: builder.metricsRecorder,
		errorFactory:    builder.errorFactory,
		errorMapper:     builder.errorMapper,
		configProvider:  builder.configProvider,
		optionsResolver: builder.optionsResolver,
		httpClient:      builder.httpClient,
		resolver:        builder.resolver,
		profileLoader:   builder.profileLoader,
		stateStore:      builder.stateStore,
		eventBus:        builder.eventBus,
		jobEnqueuer:     builder.jobEnqueuer,
		headerDefaults:  builder.headerDefaults,
		nowFn:           func() time.Time { return time.Now().UTC() },
	}
	svc.sessions = NewSessionStore(svc.eventBus, logger)
	if svc.resolver != nil {
		svc.poller = NewCredentialPoller(PollerConfig{
			Resolver:  svc.resolver,
			Installer: svc,
			Reader:    svc.sessions,
			Interval:  finalConfig.PollInterval,
			Logger:    logger,
			Metrics:   svc.metricsRecorder,
		})
	}
	return svc, nil
}

func Setup(cfg Config, options ...Option) (*Service, error) {
	return NewService(cfg, options...)
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:          s.logger,
		LoggerProvider:  s.loggerProvider,
		MetricsRecorder: s.metricsRecorder,
		ErrorFactory:    s.errorFactory,
		ErrorMapper:     s.errorMapper,
		ConfigProvider:  s.configProvider,
		OptionsResolver: s.optionsResolver,
		HTTPClient:      s.httpClient,
		SourceResolver:  s.resolver,
		ProfileLoader:   s.profileLoader,
		StateStore:      s.stateStore,
		EventBus:        s.eventBus,
		JobEnqueuer:     s.jobEnqueuer,
		HeaderDefaults:  s.headerDefaults,
	}
}

// Current returns a snapshot of the process-wide session.
func (s *Service) Current() Session {
	if s == nil || s.sessions == nil {
		return Session{Phase: PhaseInitializing}
	}
	return s.sessions.Current()
}

// Events exposes the bus collaborators subscribe to for lifecycle
// transitions.
func (s *Service) Events() SessionEventBus {
	if s == nil {
		return nil
	}
	return s.eventBus
}

// HeaderDefaults exposes the shared header registry consumed by the
// request pipeline.
func (s *Service) HeaderDefaults() *HeaderDefaults {
	if s == nil {
		return nil
	}
	return s.headerDefaults
}

// Initialize resolves the first credential through the ranked sources and
// installs the resulting session. The whole attempt is bounded by the
// configured init timeout; on expiry the session is marked unauthenticated
// so dependents never block on a session that is not coming.
func (s *Service) Initialize(ctx context.Context) (session Session, err error) {
	startedAt := s.now()
	fields := map[string]any{}
	defer func() {
		fields["phase"] = string(session.Phase)
		if session.TenantID != "" {
			fields["tenant_id"] = session.TenantID
		}
		s.observeOperation(ctx, startedAt, "initialize", err, fields)
	}()

	if s == nil || s.resolver == nil {
		err = s.mapError(fmt.Errorf("core: source resolver is required"))
		return Session{}, err
	}

	timeout := s.config.InitTimeout
	if timeout <= 0 {
		timeout = DefaultInitTimeout
	}
	initCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cred, err := s.resolver.Resolve(initCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || initCtx.Err() != nil {
			err = ErrInitTimeout
		}
		code := SessionErrorSourceNotFound
		if errors.Is(err, ErrInitTimeout) {
			code = SessionErrorInitTimeout
		}
		session = s.sessions.MarkUnauthenticated(ctx, code, err.Error())
		err = s.mapError(err)
		return session, err
	}

	session, err = s.install(initCtx, cred)
	if err != nil {
		err = s.mapError(err)
		return session, err
	}
	return session, nil
}

// Refresh re-runs the full ranked resolution and replaces the installed
// credential with whatever wins, regardless of whether it changed.
func (s *Service) Refresh(ctx context.Context) (session Session, err error) {
	startedAt := s.now()
	fields := map[string]any{}
	defer func() {
		fields["phase"] = string(session.Phase)
		s.observeOperation(ctx, startedAt, "refresh", err, fields)
	}()

	if s == nil || s.resolver == nil {
		err = s.mapError(fmt.Errorf("core: source resolver is required"))
		return Session{}, err
	}

	cred, err := s.resolver.Resolve(ctx)
	if err != nil {
		err = s.mapError(err)
		return s.Current(), err
	}
	session, err = s.install(ctx, cred)
	if err != nil {
		err = s.mapError(err)
	}
	return session, err
}

// AdoptCredential installs a credential discovered outside the normal
// resolve flow, used by the poller to seed a session that has none yet.
func (s *Service) AdoptCredential(ctx context.Context, cred Credential) error {
	if s == nil {
		return fmt.Errorf("core: service is not initialized")
	}
	if s.sessions.Current().Credential != nil {
		return nil
	}
	_, err := s.install(ctx, cred)
	return s.mapError(err)
}

// ReplaceCredential swaps the active credential for a rotated one and asks
// dependents to reinitialize. A refresh job is enqueued when a queue is
// wired so heavier reload work happens off the poll loop.
func (s *Service) ReplaceCredential(ctx context.Context, cred Credential) error {
	if s == nil {
		return fmt.Errorf("core: service is not initialized")
	}
	session, err := s.install(ctx, cred)
	if err != nil {
		return s.mapError(err)
	}
	if s.jobEnqueuer != nil {
		enqueueErr := s.jobEnqueuer.Enqueue(ctx, &JobExecutionMessage{
			JobID: JobIDSessionReinitialize,
			Parameters: map[string]any{
				"tenant_id": session.TenantID,
			},
			IdempotencyKey: fmt.Sprintf("%s:%d", JobIDSessionReinitialize, session.UpdatedAt.UnixNano()),
		})
		if enqueueErr != nil {
			s.logWarn(ctx, "reinitialize job enqueue failed", map[string]any{
				"error": enqueueErr.Error(),
			})
		}
	}
	return nil
}

// install validates the credential, attaches identity and tenant, and
// publishes the new session. Identity load failures are tolerated; a
// session with a usable credential and no profile is still ready.
func (s *Service) install(ctx context.Context, cred Credential) (Session, error) {
	if strings.TrimSpace(cred.Raw) == "" {
		return s.Current(), ErrMalformedCredential
	}
	if cred.Expired(s.now()) {
		return s.Current(), ErrCredentialExpired
	}

	var identity *Identity
	tenantID := s.persistedTenant(ctx)
	if s.profileLoader != nil {
		loaded, err := s.profileLoader.Load(ctx, cred, tenantID)
		if err != nil {
			s.logWarn(ctx, "identity load failed, continuing without profile", map[string]any{
				"error": err.Error(),
			})
		} else {
			identity = &loaded
		}
	}

	tenantID = DeriveTenantID(identity, s.config.TargetTenant, s.config.DefaultTenant)
	session := s.sessions.MarkReady(ctx, cred, identity, tenantID)

	s.headerDefaults.Set(HeaderAuthorization, BearerValue(cred.Raw))
	if session.TenantID != "" {
		s.headerDefaults.Set(HeaderCompanyID, session.TenantID)
	}

	s.persistTenant(ctx, session.TenantID)
	return session, nil
}

// Invalidate drops the credential and identity in response to an observed
// auth failure. The persisted tenant id is kept so a later bootstrap can
// come back to the same tenant.
func (s *Service) Invalidate(ctx context.Context, code string, reason string) (session Session, err error) {
	startedAt := s.now()
	fields := map[string]any{"cause": reason}
	defer func() {
		s.observeOperation(ctx, startedAt, "invalidate", err, fields)
	}()

	if s == nil {
		return Session{}, fmt.Errorf("core: service is not initialized")
	}
	if strings.TrimSpace(code) == "" {
		code = SessionErrorCredentialExpired
	}
	session = s.sessions.MarkUnauthenticated(ctx, code, reason)
	s.headerDefaults.Delete(HeaderAuthorization)
	if s.stateStore != nil {
		if clearErr := s.stateStore.Clear(ctx, StateKeyTenantID); clearErr != nil {
			s.logWarn(ctx, "persisted tenant clear failed", map[string]any{
				"error": clearErr.Error(),
			})
		}
	}
	return session, nil
}

// SetTenant switches the active tenant, keeping the installed credential.
func (s *Service) SetTenant(ctx context.Context, tenantID string) (session Session, err error) {
	startedAt := s.now()
	fields := map[string]any{"tenant_id": tenantID}
	defer func() {
		s.observeOperation(ctx, startedAt, "set_tenant", err, fields)
	}()

	if s == nil {
		return Session{}, fmt.Errorf("core: service is not initialized")
	}
	normalized := NormalizeTenantID(tenantID)
	if normalized == "" {
		err = s.mapError(fmt.Errorf("core: tenant id is required"))
		return s.Current(), err
	}
	session = s.sessions.ReplaceTenant(ctx, normalized)
	s.headerDefaults.Set(HeaderCompanyID, normalized)
	s.persistTenant(ctx, normalized)
	return session, nil
}

// StartPolling begins watching the served-file credential for rotation.
func (s *Service) StartPolling(ctx context.Context) {
	if s == nil || s.poller == nil {
		return
	}
	s.poller.Start(ctx)
}

// Close stops background work. The installed session stays readable.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	if s.poller != nil {
		s.poller.Stop()
	}
	return nil
}

func (s *Service) persistedTenant(ctx context.Context) string {
	if s == nil || s.stateStore == nil {
		return ""
	}
	value, err := s.stateStore.Get(ctx, StateKeyTenantID)
	if err != nil {
		s.logWarn(ctx, "persisted tenant load failed", map[string]any{"error": err.Error()})
		return ""
	}
	return NormalizeTenantID(value)
}

func (s *Service) persistTenant(ctx context.Context, tenantID string) {
	if s == nil || s.stateStore == nil || strings.TrimSpace(tenantID) == "" {
		return
	}
	if err := s.stateStore.Set(ctx, StateKeyTenantID, tenantID); err != nil {
		s.logWarn(ctx, "tenant persistence failed", map[string]any{
			"tenant_id": tenantID,
			"error":     err.Error(),
		})
	}
}

func (s *Service) now() time.Time {
	if s == nil || s.nowFn == nil {
		return time.Now().UTC()
	}
	return s.nowFn()
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

var (
	_ CredentialInstaller = (*Service)(nil)
	_ SessionReader       = (*Service)(nil)
)
