package token

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-session/core"
)

// Resolver walks the ranked source list and returns the first usable
// credential. Sources are consulted strictly in priority order and every
// failure is a silent demotion to the next source; only total exhaustion
// surfaces as an error.
type Resolver struct {
	sources        []Source
	fileSourceEnd  int
	headerDefaults *core.HeaderDefaults
	logger         core.Logger
	metrics        core.MetricsRecorder
	nowFn          func() time.Time
}

type ResolverConfig struct {
	Client         core.HTTPDoer
	Config         core.Config
	HeaderDefaults *core.HeaderDefaults
	Logger         core.Logger
	Metrics        core.MetricsRecorder
}

// NewResolver assembles the ranked sources from configuration: the served
// token files in listed order, then the bootstrap API, then the static
// fallback when one is configured.
func NewResolver(cfg ResolverConfig) (*Resolver, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("token: http client is required")
	}

	origin := strings.TrimSpace(cfg.Config.BaseURL)
	sources := make([]Source, 0, len(cfg.Config.TokenPaths)+2)
	for _, path := range cfg.Config.TokenPaths {
		resolved, err := resolveAgainstOrigin(origin, path)
		if err != nil {
			return nil, fmt.Errorf("token: token path %q is invalid: %w", path, err)
		}
		sources = append(sources, NewServedFileSource(cfg.Client, resolved))
	}
	fileSourceEnd := len(sources)

	if bootstrapURL := cfg.Config.ResolveBootstrapURL(); bootstrapURL != "" {
		resolved, err := resolveAgainstOrigin(origin, bootstrapURL)
		if err != nil {
			return nil, fmt.Errorf("token: bootstrap url is invalid: %w", err)
		}
		sources = append(sources, NewBootstrapAPISource(cfg.Client, resolved))
	}
	if strings.TrimSpace(cfg.Config.FallbackToken) != "" {
		sources = append(sources, NewStaticSource(cfg.Config.FallbackToken, cfg.Logger))
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}
	return &Resolver{
		sources:        sources,
		fileSourceEnd:  fileSourceEnd,
		headerDefaults: cfg.HeaderDefaults,
		logger:         cfg.Logger,
		metrics:        metrics,
		nowFn:          func() time.Time { return time.Now().UTC() },
	}, nil
}

// Resolve walks every ranked source. The winning credential is installed
// onto the shared header defaults immediately, so requesters built before
// the session finishes initializing already carry auth.
func (r *Resolver) Resolve(ctx context.Context) (core.Credential, error) {
	cred, err := r.resolve(ctx, r.sources)
	if err != nil {
		return core.Credential{}, err
	}
	if r.headerDefaults != nil {
		r.headerDefaults.Set(core.HeaderAuthorization, core.BearerValue(cred.Raw))
	}
	return cred, nil
}

// ResolveFileSources consults only the served-file tier. The poller uses
// this: bootstrap and fallback are one-shot concerns and never re-polled.
func (r *Resolver) ResolveFileSources(ctx context.Context) (core.Credential, error) {
	if r == nil {
		return core.Credential{}, fmt.Errorf("token: resolver is not configured")
	}
	return r.resolve(ctx, r.sources[:r.fileSourceEnd])
}

func (r *Resolver) resolve(ctx context.Context, sources []Source) (core.Credential, error) {
	if r == nil || len(sources) == 0 {
		return core.Credential{}, fmt.Errorf("token: no sources configured: %w", core.ErrSourceNotFound)
	}

	now := r.now()
	for _, source := range sources {
		if ctx.Err() != nil {
			return core.Credential{}, ctx.Err()
		}
		cred, err := source.Fetch(ctx)
		if err != nil {
			r.logDebug("credential source miss", "source", source.Name(), "error", err.Error())
			r.metrics.IncCounter(ctx, "session.source.miss", 1, map[string]string{"source": source.Name()})
			continue
		}
		if cred.Expired(now) {
			r.logDebug("credential source returned an expired credential", "source", source.Name())
			r.metrics.IncCounter(ctx, "session.source.expired", 1, map[string]string{"source": source.Name()})
			continue
		}
		r.metrics.IncCounter(ctx, "session.source.hit", 1, map[string]string{"source": source.Name()})
		return cred, nil
	}
	return core.Credential{}, fmt.Errorf("token: every ranked source failed: %w", core.ErrSourceNotFound)
}

func (r *Resolver) now() time.Time {
	if r == nil || r.nowFn == nil {
		return time.Now().UTC()
	}
	return r.nowFn()
}

func (r *Resolver) logDebug(message string, args ...any) {
	if r == nil || r.logger == nil {
		return
	}
	r.logger.Debug(message, args...)
}

// resolveAgainstOrigin turns a possibly relative path into a fetchable URL.
// Absolute URLs pass through; relative paths require a configured origin.
func resolveAgainstOrigin(origin string, path string) (string, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	parsed, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	if parsed.IsAbs() {
		return parsed.String(), nil
	}
	if origin == "" {
		return "", fmt.Errorf("relative path %q needs a base url", path)
	}
	base, err := url.Parse(origin)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(parsed).String(), nil
}

var _ core.SourceResolver = (*Resolver)(nil)
