package session

import (
	"context"
	"fmt"

	"github.com/goliatone/go-session/core"
	"github.com/goliatone/go-session/identity"
	"github.com/goliatone/go-session/token"
	"github.com/goliatone/go-session/transport"
)

// Runtime is the fully wired session stack: the lifecycle service, the
// ranked credential resolver and profile loader behind it, and the
// outbound request pipeline reading from it.
type Runtime struct {
	Service  *core.Service
	Pipeline *transport.Pipeline
}

// NewRuntime assembles the default wiring from configuration. Components
// already supplied through options are kept; only the missing pieces are
// built.
func NewRuntime(cfg Config, opts ...Option) (*Runtime, error) {
	resolved, err := (core.GoOptionsResolver{}).Resolve(core.DefaultConfig(), core.DefaultConfig(), cfg)
	if err != nil {
		return nil, err
	}

	client := transport.NewHTTPClient(0)
	headerDefaults := core.NewHeaderDefaults()

	resolver, err := token.NewResolver(token.ResolverConfig{
		Client:         client,
		Config:         resolved,
		HeaderDefaults: headerDefaults,
	})
	if err != nil {
		return nil, fmt.Errorf("session: build source resolver: %w", err)
	}
	loader, err := identity.NewLoader(identity.Config{
		HTTPClient:  client,
		BaseURL:     resolved.BaseURL,
		ProfilePath: resolved.ProfilePath,
	})
	if err != nil {
		return nil, fmt.Errorf("session: build profile loader: %w", err)
	}

	wired := append([]Option{
		WithHTTPClient(client),
		WithHeaderDefaults(headerDefaults),
		WithSourceResolver(resolver),
		WithProfileLoader(loader),
	}, opts...)

	svc, err := core.NewService(cfg, wired...)
	if err != nil {
		return nil, err
	}

	deps := svc.Dependencies()
	pipeline := transport.NewPipeline(transport.PipelineConfig{
		Client:         deps.HTTPClient,
		Session:        svc,
		HeaderDefaults: deps.HeaderDefaults,
		Config:         svc.Config(),
		Logger:         deps.Logger,
		Metrics:        deps.MetricsRecorder,
	})

	return &Runtime{Service: svc, Pipeline: pipeline}, nil
}

// Start runs initialization and begins credential polling.
func (r *Runtime) Start(ctx context.Context) (Session, error) {
	if r == nil || r.Service == nil {
		return Session{}, fmt.Errorf("session: runtime is not initialized")
	}
	session, err := r.Service.Initialize(ctx)
	if err != nil {
		return session, err
	}
	r.Service.StartPolling(ctx)
	return session, nil
}

// Close stops background work.
func (r *Runtime) Close() error {
	if r == nil || r.Service == nil {
		return nil
	}
	return r.Service.Close()
}
