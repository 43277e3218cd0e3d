package token

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goliatone/go-session/core"
)

func liveToken(t *testing.T) string {
	t.Helper()
	return signedToken(t, map[string]any{
		"iat": time.Now().UTC().Unix(),
		"exp": time.Now().UTC().Add(time.Hour).Unix(),
	})
}

func newResolverForOrigin(t *testing.T, origin string, cfg core.Config) *Resolver {
	t.Helper()
	cfg.BaseURL = origin
	resolver, err := NewResolver(ResolverConfig{Client: http.DefaultClient, Config: cfg})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return resolver
}

func TestResolver_FirstFileSourceWins(t *testing.T) {
	raw := liveToken(t)
	var primaryCalls, secondaryCalls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/token.txt":
			primaryCalls.Add(1)
			fmt.Fprint(w, raw)
		case "/token.txt":
			secondaryCalls.Add(1)
			fmt.Fprint(w, raw)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	resolver := newResolverForOrigin(t, server.URL, core.Config{
		TokenPaths: []string{"/auth/token.txt", "/token.txt"},
	})

	cred, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cred.Raw != raw {
		t.Fatalf("unexpected credential %q", cred.Raw)
	}
	if primaryCalls.Load() != 1 || secondaryCalls.Load() != 0 {
		t.Fatalf("expected only the first source to be consulted, got %d/%d",
			primaryCalls.Load(), secondaryCalls.Load())
	}
}

func TestResolver_RepeatedResolveIsIdempotent(t *testing.T) {
	raw := liveToken(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/token.txt" {
			fmt.Fprint(w, raw)
			return
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	resolver := newResolverForOrigin(t, server.URL, core.Config{
		TokenPaths: []string{"/auth/token.txt"},
	})

	first, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if !first.Equal(second) {
		t.Fatalf("unchanged source must yield structurally equal credentials: %+v vs %+v", first, second)
	}
}

func TestResolver_FallsThroughToBootstrap(t *testing.T) {
	raw := liveToken(t)
	var bootstrapCalls atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/token.txt":
			http.NotFound(w, r)
		case "/internal/licenses/abimoveis-003/token":
			bootstrapCalls.Add(1)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"token":%q}`, raw)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	resolver := newResolverForOrigin(t, server.URL, core.Config{
		TokenPaths:   []string{"/auth/token.txt"},
		TargetTenant: "ABIMOVEIS=003",
	})

	cred, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cred.Raw != raw {
		t.Fatalf("unexpected credential %q", cred.Raw)
	}
	if bootstrapCalls.Load() != 1 {
		t.Fatalf("expected bootstrap to be consulted once, got %d", bootstrapCalls.Load())
	}
}

func TestResolver_HTMLBodyIsAMiss(t *testing.T) {
	raw := liveToken(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/token.txt":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, "<!DOCTYPE html><html><body>Sign in</body></html>")
		case "/token.txt":
			fmt.Fprint(w, raw)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	resolver := newResolverForOrigin(t, server.URL, core.Config{
		TokenPaths: []string{"/auth/token.txt", "/token.txt"},
	})

	cred, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cred.Raw != raw {
		t.Fatalf("html body must demote to the next source, got %q", cred.Raw)
	}
}

func TestResolver_ExpiredSourceIsSkipped(t *testing.T) {
	expired := signedToken(t, map[string]any{"exp": time.Now().UTC().Add(-time.Hour).Unix()})
	live := liveToken(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/token.txt":
			fmt.Fprint(w, expired)
		case "/token.txt":
			fmt.Fprint(w, live)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	resolver := newResolverForOrigin(t, server.URL, core.Config{
		TokenPaths: []string{"/auth/token.txt", "/token.txt"},
	})

	cred, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cred.Raw != live {
		t.Fatalf("expired credential must be skipped, got %q", cred.Raw)
	}
}

func TestResolver_StaticFallbackWins(t *testing.T) {
	fallback := liveToken(t)
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	resolver := newResolverForOrigin(t, server.URL, core.Config{
		TokenPaths:    []string{"/auth/token.txt"},
		FallbackToken: fallback,
	})

	cred, err := resolver.Resolve(context.Background())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cred.Raw != fallback {
		t.Fatalf("expected static fallback, got %q", cred.Raw)
	}
}

func TestResolver_ExhaustionReturnsSourceNotFound(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	resolver := newResolverForOrigin(t, server.URL, core.Config{
		TokenPaths: []string{"/auth/token.txt", "/token.txt"},
	})

	_, err := resolver.Resolve(context.Background())
	if !errors.Is(err, core.ErrSourceNotFound) {
		t.Fatalf("expected source-not-found error, got %v", err)
	}
}

func TestResolver_InstallsAuthorizationDefault(t *testing.T) {
	raw := liveToken(t)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, raw)
	}))
	defer server.Close()

	defaults := core.NewHeaderDefaults()
	resolver, err := NewResolver(ResolverConfig{
		Client:         http.DefaultClient,
		Config:         core.Config{BaseURL: server.URL, TokenPaths: []string{"/auth/token.txt"}},
		HeaderDefaults: defaults,
	})
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}

	if _, err := resolver.Resolve(context.Background()); err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := defaults.Get(core.HeaderAuthorization); got != "Bearer "+raw {
		t.Fatalf("expected authorization default to be installed, got %q", got)
	}
}

func TestResolver_FileSourcesSkipBootstrapAndFallback(t *testing.T) {
	var bootstrapCalls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/internal/licenses/abimoveis-003/token" {
			bootstrapCalls.Add(1)
		}
		http.NotFound(w, r)
	}))
	defer server.Close()

	resolver := newResolverForOrigin(t, server.URL, core.Config{
		TokenPaths:    []string{"/auth/token.txt"},
		TargetTenant:  "abimoveis-003",
		FallbackToken: liveToken(t),
	})

	_, err := resolver.ResolveFileSources(context.Background())
	if !errors.Is(err, core.ErrSourceNotFound) {
		t.Fatalf("expected exhaustion of the file tier, got %v", err)
	}
	if bootstrapCalls.Load() != 0 {
		t.Fatalf("poll resolution must never hit the bootstrap endpoint")
	}
}

func TestServedFileSource_SendsCacheBuster(t *testing.T) {
	raw := liveToken(t)
	var sawBuster atomic.Bool
	var sawNoCache atomic.Bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("ts") != "" {
			sawBuster.Store(true)
		}
		if r.Header.Get("Cache-Control") == "no-cache" && r.Header.Get("Pragma") == "no-cache" {
			sawNoCache.Store(true)
		}
		fmt.Fprint(w, raw)
	}))
	defer server.Close()

	source := NewServedFileSource(http.DefaultClient, server.URL+"/auth/token.txt")
	if _, err := source.Fetch(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !sawBuster.Load() {
		t.Fatalf("expected ts cache-buster on the request")
	}
	if !sawNoCache.Load() {
		t.Fatalf("expected no-cache request headers")
	}
}
