// Package transport executes outbound API calls on behalf of the session:
// it attaches auth and tenant headers by precedence, classifies the
// response, retries idempotent calls once across transient upstream
// failures, and flags upstream responses that masquerade an expired
// session as content.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-session/core"
)

const defaultClientTimeout = 30 * time.Second
const defaultResponseBodyLimit int64 = 10 << 20 // 10 MiB

// Pipeline is the single path every outbound request takes.
type Pipeline struct {
	client               core.HTTPDoer
	session              core.SessionReader
	headerDefaults       *core.HeaderDefaults
	config               core.Config
	logger               core.Logger
	metrics              core.MetricsRecorder
	maxResponseBodyBytes int64
	nowFn                func() time.Time
	sleepFn              func(ctx context.Context, d time.Duration) error
}

type PipelineConfig struct {
	Client               core.HTTPDoer
	Session              core.SessionReader
	HeaderDefaults       *core.HeaderDefaults
	Config               core.Config
	Logger               core.Logger
	Metrics              core.MetricsRecorder
	MaxResponseBodyBytes int64
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	client := cfg.Client
	if client == nil {
		client = NewHTTPClient(defaultClientTimeout)
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = core.NopMetricsRecorder{}
	}
	maxBody := cfg.MaxResponseBodyBytes
	if maxBody <= 0 {
		maxBody = defaultResponseBodyLimit
	}
	return &Pipeline{
		client:               client,
		session:              cfg.Session,
		headerDefaults:       cfg.HeaderDefaults,
		config:               cfg.Config,
		logger:               cfg.Logger,
		metrics:              metrics,
		maxResponseBodyBytes: maxBody,
		nowFn:                func() time.Time { return time.Now().UTC() },
		sleepFn:              sleepContext,
	}
}

// NewHTTPClient builds the default client. Redirects toward a
// credential-acquisition page are not followed so the pipeline sees the
// redirect itself and can classify it, instead of receiving the login
// page body with a 200.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if isLoginPath(req.URL.Path) {
				return http.ErrUseLastResponse
			}
			if len(via) >= 10 {
				return fmt.Errorf("transport: stopped after 10 redirects")
			}
			return nil
		},
	}
}

// Execute runs one request through the pipeline. The outcome is always
// populated; err is non-nil exactly when the outcome is not a success.
func (p *Pipeline) Execute(ctx context.Context, req core.RequestDescriptor) (core.ResponseOutcome, error) {
	if p == nil || p.client == nil {
		return core.ResponseOutcome{}, pipelineError(
			"transport: pipeline requires an http client",
			goerrors.CategoryInternal,
			http.StatusInternalServerError,
			nil,
		)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}

	target, err := p.resolveURL(req.URL, req.Query, method)
	if err != nil {
		return core.ResponseOutcome{}, pipelineWrapError(
			err,
			goerrors.CategoryBadInput,
			"transport: invalid request url",
			http.StatusBadRequest,
			map[string]any{"url": strings.TrimSpace(req.URL)},
		)
	}

	headers := p.assembleHeaders(req.Headers)

	outcome, execErr := p.attempt(ctx, method, target, headers, req.Body, req.Timeout)
	if outcome.Kind == core.OutcomeTransientServerError && method == http.MethodGet {
		delay := p.config.RetryDelay
		if delay <= 0 {
			delay = core.DefaultRetryDelay
		}
		p.logDebug("transient upstream failure, retrying once",
			"status", outcome.StatusCode, "delay", delay.String())
		p.metrics.IncCounter(ctx, "session.request.retry", 1, map[string]string{"method": method})

		if sleepErr := p.sleep(ctx, delay); sleepErr != nil {
			p.observe(ctx, method, outcome)
			return outcome, outcomeError(outcome, "transport: upstream transient failure")
		}
		outcome, execErr = p.attempt(ctx, method, target, headers, req.Body, req.Timeout)
		outcome.Retried = true
	}

	p.observe(ctx, method, outcome)
	if outcome.Kind == core.OutcomeSuccess {
		return outcome, nil
	}
	if execErr != nil {
		return outcome, pipelineWrapError(
			execErr,
			goerrors.CategoryExternal,
			"transport: request failed",
			http.StatusBadGateway,
			map[string]any{"method": method, "retried": outcome.Retried},
		)
	}
	return outcome, outcomeError(outcome, fmt.Sprintf("transport: upstream returned %s", outcome.Kind))
}

// attempt performs a single request/response cycle and classifies it.
func (p *Pipeline) attempt(
	ctx context.Context,
	method string,
	target string,
	headers map[string]string,
	body []byte,
	timeout time.Duration,
) (core.ResponseOutcome, error) {
	requestCtx := ctx
	cancel := func() {}
	if timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, method, target, bytes.NewReader(body))
	if err != nil {
		return core.ResponseOutcome{Kind: core.OutcomeNetworkFailure}, err
	}
	for key, value := range headers {
		if strings.TrimSpace(key) == "" || strings.TrimSpace(value) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	httpRes, err := p.client.Do(httpReq)
	if err != nil {
		return core.ResponseOutcome{Kind: core.OutcomeNetworkFailure, Metadata: map[string]any{
			"error": err.Error(),
		}}, err
	}
	defer httpRes.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(httpRes.Body, p.maxResponseBodyBytes+1))
	if err != nil {
		return core.ResponseOutcome{
			Kind:       core.OutcomeNetworkFailure,
			StatusCode: httpRes.StatusCode,
		}, err
	}
	if int64(len(responseBody)) > p.maxResponseBodyBytes {
		return core.ResponseOutcome{
			Kind:       core.OutcomeClientError,
			StatusCode: httpRes.StatusCode,
		}, fmt.Errorf("transport: response body exceeds limit of %d bytes", p.maxResponseBodyBytes)
	}

	outcome := classify(httpRes, responseBody)
	return outcome, nil
}

// assembleHeaders layers the header sources by precedence: explicit
// request headers over session-derived auth and tenant headers over the
// shared defaults, with the JSON content type as the floor.
func (p *Pipeline) assembleHeaders(explicit map[string]string) map[string]string {
	headers := map[string]string{
		core.HeaderContentType: core.ContentTypeJSON,
	}
	if p.headerDefaults != nil {
		for key, value := range p.headerDefaults.Snapshot() {
			if strings.TrimSpace(value) != "" {
				headers[key] = value
			}
		}
	}

	if p.session != nil {
		session := p.session.Current()
		if bearer := core.BearerValue(session.BearerToken()); bearer != "" {
			headers[core.HeaderAuthorization] = bearer
		}
		if session.TenantID != "" {
			headers[core.HeaderCompanyID] = session.TenantID
			headers[core.HeaderCompanyIDLegacy] = session.TenantID
		}
	}

	for key, value := range explicit {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		headers[canonicalHeaderKey(key, headers)] = strings.TrimSpace(value)
	}
	return headers
}

// canonicalHeaderKey keeps an explicit header from duplicating a layered
// one under a different casing. The tenant header pair shares one
// precedence slot, so an explicit value for either name evicts both
// layered names.
func canonicalHeaderKey(key string, existing map[string]string) string {
	lower := strings.ToLower(key)
	if lower == strings.ToLower(core.HeaderAuthorization) {
		return core.HeaderAuthorization
	}
	if lower == core.HeaderCompanyID || lower == core.HeaderCompanyIDLegacy {
		delete(existing, core.HeaderCompanyID)
		delete(existing, core.HeaderCompanyIDLegacy)
		return key
	}
	for candidate := range existing {
		if strings.EqualFold(candidate, key) {
			return candidate
		}
	}
	return key
}

// resolveURL turns the descriptor URL into a fetchable absolute URL.
// Absolute URLs pass through untouched. Relative paths resolve against
// the configured origin, routed through the proxy prefix in dev mode, and
// dev-mode GETs carry a cache-buster so stale intermediary caches never
// answer for a rotated deployment.
func (p *Pipeline) resolveURL(rawURL string, query map[string]string, method string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("request url is required")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	if !parsed.IsAbs() {
		if p.config.DevMode {
			proxyPath := strings.TrimSpace(p.config.ProxyPath)
			if proxyPath != "" && !strings.HasPrefix(parsed.Path, proxyPath) {
				parsed.Path = strings.TrimSuffix(proxyPath, "/") + "/" + strings.TrimPrefix(parsed.Path, "/")
			}
		}
		origin := strings.TrimSpace(p.config.BaseURL)
		if origin == "" {
			return "", fmt.Errorf("relative url %q needs a base url", rawURL)
		}
		base, baseErr := url.Parse(origin)
		if baseErr != nil {
			return "", baseErr
		}
		parsed = base.ResolveReference(parsed)
	}

	values := parsed.Query()
	for key, value := range query {
		if strings.TrimSpace(key) == "" {
			continue
		}
		values.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	if p.config.DevMode && method == http.MethodGet && !values.Has("ts") {
		values.Set("ts", strconv.FormatInt(p.now().UnixMilli(), 10))
	}
	parsed.RawQuery = values.Encode()
	return parsed.String(), nil
}

func (p *Pipeline) observe(ctx context.Context, method string, outcome core.ResponseOutcome) {
	tags := map[string]string{
		"method":  method,
		"outcome": string(outcome.Kind),
	}
	p.metrics.IncCounter(ctx, "session.request.total", 1, tags)
	if outcome.Kind == core.OutcomeMasqueradedFailure {
		p.logWarn("upstream masqueraded an auth failure as content",
			"status", outcome.StatusCode, "method", method)
	}
}

func (p *Pipeline) sleep(ctx context.Context, d time.Duration) error {
	if p.sleepFn == nil {
		return sleepContext(ctx, d)
	}
	return p.sleepFn(ctx, d)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *Pipeline) now() time.Time {
	if p == nil || p.nowFn == nil {
		return time.Now().UTC()
	}
	return p.nowFn()
}

func (p *Pipeline) logDebug(message string, args ...any) {
	if p == nil || p.logger == nil {
		return
	}
	p.logger.Debug(message, args...)
}

func (p *Pipeline) logWarn(message string, args ...any) {
	if p == nil || p.logger == nil {
		return
	}
	p.logger.Warn(message, args...)
}
