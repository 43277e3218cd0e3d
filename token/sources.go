package token

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-session/core"
)

// Source is one ranked credential origin. Fetch either returns a decoded
// credential or an error describing why this source has nothing to offer;
// the resolver treats every error as a miss and moves on.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (core.Credential, error)
}

// maxSourceBodySize bounds how much of a source response is read. Token
// files and bootstrap payloads are tiny; anything bigger is not a token.
const maxSourceBodySize = 64 * 1024

// ServedFileSource reads a token file served next to the application. Each
// fetch carries a cache-buster query parameter and no-cache headers so a
// rotated file is never hidden behind an intermediary cache.
type ServedFileSource struct {
	Client core.HTTPDoer
	URL    string
	nowFn  func() time.Time
}

func NewServedFileSource(client core.HTTPDoer, rawURL string) *ServedFileSource {
	return &ServedFileSource{
		Client: client,
		URL:    strings.TrimSpace(rawURL),
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *ServedFileSource) Name() string {
	return "served_file:" + s.URL
}

func (s *ServedFileSource) Fetch(ctx context.Context) (core.Credential, error) {
	if s == nil || s.Client == nil {
		return core.Credential{}, fmt.Errorf("token: served file source is not configured")
	}
	target, err := withCacheBuster(s.URL, s.now())
	if err != nil {
		return core.Credential{}, fmt.Errorf("token: served file url is invalid: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return core.Credential{}, fmt.Errorf("token: build served file request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Pragma", "no-cache")

	res, err := s.Client.Do(req)
	if err != nil {
		return core.Credential{}, fmt.Errorf("token: served file fetch failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return core.Credential{}, fmt.Errorf("token: served file returned status %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxSourceBodySize))
	if err != nil {
		return core.Credential{}, fmt.Errorf("token: read served file body: %w", err)
	}

	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return core.Credential{}, fmt.Errorf("token: served file is empty")
	}
	if looksLikeHTML(raw) {
		// A login page served in place of the token file means the file is
		// effectively absent, not that the credential is malformed.
		return core.Credential{}, fmt.Errorf("token: served file returned an html document")
	}
	return Decode(raw)
}

func (s *ServedFileSource) now() time.Time {
	if s == nil || s.nowFn == nil {
		return time.Now().UTC()
	}
	return s.nowFn()
}

// BootstrapAPISource asks the token-issuance endpoint for a fresh
// credential. The endpoint answers {"token": "..."}.
type BootstrapAPISource struct {
	Client core.HTTPDoer
	URL    string
}

func NewBootstrapAPISource(client core.HTTPDoer, rawURL string) *BootstrapAPISource {
	return &BootstrapAPISource{Client: client, URL: strings.TrimSpace(rawURL)}
}

func (s *BootstrapAPISource) Name() string {
	return "bootstrap_api:" + s.URL
}

func (s *BootstrapAPISource) Fetch(ctx context.Context) (core.Credential, error) {
	if s == nil || s.Client == nil {
		return core.Credential{}, fmt.Errorf("token: bootstrap source is not configured")
	}
	if s.URL == "" {
		return core.Credential{}, fmt.Errorf("token: bootstrap url is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return core.Credential{}, fmt.Errorf("token: build bootstrap request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := s.Client.Do(req)
	if err != nil {
		return core.Credential{}, fmt.Errorf("token: bootstrap fetch failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return core.Credential{}, fmt.Errorf("token: bootstrap returned status %d", res.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxSourceBodySize))
	if err != nil {
		return core.Credential{}, fmt.Errorf("token: read bootstrap body: %w", err)
	}

	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return core.Credential{}, fmt.Errorf("token: decode bootstrap payload: %w", err)
	}
	if strings.TrimSpace(payload.Token) == "" {
		return core.Credential{}, fmt.Errorf("token: bootstrap payload carries no token")
	}
	return Decode(payload.Token)
}

// StaticSource is the last-resort credential baked into configuration.
// Winning through it is logged at warning grade because it usually means
// the served files and the bootstrap API are both broken.
type StaticSource struct {
	Token  string
	Logger core.Logger
}

func NewStaticSource(raw string, logger core.Logger) *StaticSource {
	return &StaticSource{Token: strings.TrimSpace(raw), Logger: logger}
}

func (s *StaticSource) Name() string {
	return "static_fallback"
}

func (s *StaticSource) Fetch(context.Context) (core.Credential, error) {
	if s == nil || s.Token == "" {
		return core.Credential{}, fmt.Errorf("token: no static fallback configured")
	}
	cred, err := Decode(s.Token)
	if err != nil {
		return core.Credential{}, err
	}
	if s.Logger != nil {
		s.Logger.Warn("using static fallback credential, upstream token sources are unavailable")
	}
	return cred, nil
}

func withCacheBuster(rawURL string, now time.Time) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", err
	}
	query := parsed.Query()
	query.Set("ts", strconv.FormatInt(now.UnixMilli(), 10))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func looksLikeHTML(body string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(body))
	return strings.HasPrefix(trimmed, "<!doctype html") ||
		strings.HasPrefix(trimmed, "<html") ||
		strings.HasPrefix(trimmed, "<head") ||
		strings.HasPrefix(trimmed, "<body")
}

var (
	_ Source = (*ServedFileSource)(nil)
	_ Source = (*BootstrapAPISource)(nil)
	_ Source = (*StaticSource)(nil)
)
