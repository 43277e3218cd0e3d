// Package identity fetches the profile attached to a credential and maps
// it into the session's identity shape: display fields plus the tenant
// permission list the tenant derivation runs against.
package identity

import (
	"context"
	"encoding/json"
	"errors"
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

const (
	defaultRequestTimeout   = 10 * time.Second
	maxProfileResponseBytes = 1 << 20 // 1 MiB
)

var ErrProfileNotFound = errors.New("identity: profile not found")

type ProfileNotFoundError struct {
	Cause error
}

func (e *ProfileNotFoundError) Error() string {
	if e == nil || e.Cause == nil {
		return ErrProfileNotFound.Error()
	}
	return ErrProfileNotFound.Error() + ": " + e.Cause.Error()
}

func (e *ProfileNotFoundError) Unwrap() error {
	if e == nil {
		return nil
	}
	if e.Cause == nil {
		return ErrProfileNotFound
	}
	return errors.Join(ErrProfileNotFound, e.Cause)
}

func (e *ProfileNotFoundError) ToServiceError() *goerrors.Error {
	message := ErrProfileNotFound.Error()
	if e != nil && e.Cause != nil {
		message = e.Error()
	}
	return goerrors.New(message, goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(core.SessionErrorProfileNotFound)
}

func profileNotFound(cause error) error {
	return &ProfileNotFoundError{Cause: cause}
}

type Config struct {
	HTTPClient     core.HTTPDoer
	BaseURL        string
	ProfilePath    string
	RequestTimeout time.Duration
}

// Loader fetches the profile endpoint with the session credential and
// normalizes the payload into a core.Identity.
type Loader struct {
	httpClient     core.HTTPDoer
	profileURL     string
	requestTimeout time.Duration
}

func NewLoader(cfg Config) (*Loader, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}

	profilePath := strings.TrimSpace(cfg.ProfilePath)
	if profilePath == "" {
		profilePath = core.DefaultProfilePath
	}
	profileURL, err := resolveProfileURL(strings.TrimSpace(cfg.BaseURL), profilePath)
	if err != nil {
		return nil, fmt.Errorf("identity: profile url is invalid: %w", err)
	}

	return &Loader{
		httpClient:     httpClient,
		profileURL:     profileURL,
		requestTimeout: requestTimeout,
	}, nil
}

// Load fetches and normalizes the profile for a credential. A 404 means
// the upstream does not know the user and maps to ErrProfileNotFound; any
// other failure is returned as-is for the caller to tolerate.
func (l *Loader) Load(ctx context.Context, cred core.Credential, tenantID string) (core.Identity, error) {
	if l == nil {
		return core.Identity{}, profileNotFound(nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	bearer := core.BearerValue(cred.Raw)
	if bearer == "" {
		return core.Identity{}, fmt.Errorf("identity: credential is required")
	}

	requestCtx := ctx
	cancel := func() {}
	if l.requestTimeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, l.requestTimeout)
	}
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, l.profileURL, nil)
	if err != nil {
		return core.Identity{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(core.HeaderAuthorization, bearer)
	if trimmed := core.NormalizeTenantID(tenantID); trimmed != "" {
		req.Header.Set(core.HeaderCompanyID, trimmed)
	}

	res, err := l.httpClient.Do(req)
	if err != nil {
		return core.Identity{}, fmt.Errorf("identity: profile fetch failed: %w", err)
	}
	defer res.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(res.Body, maxProfileResponseBytes+1))
	if readErr != nil {
		return core.Identity{}, fmt.Errorf("identity: read profile response: %w", readErr)
	}
	if int64(len(body)) > maxProfileResponseBytes {
		return core.Identity{}, fmt.Errorf("identity: profile response exceeds %d bytes", maxProfileResponseBytes)
	}
	if res.StatusCode == http.StatusNotFound {
		return core.Identity{}, profileNotFound(fmt.Errorf("identity: profile endpoint returned status %d", res.StatusCode))
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return core.Identity{}, fmt.Errorf("identity: profile endpoint returned status %d", res.StatusCode)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return core.Identity{}, fmt.Errorf("identity: decode profile response: %w", err)
	}
	return normalizeProfile(payload), nil
}

func normalizeProfile(payload map[string]any) core.Identity {
	identity := core.Identity{
		DisplayName: strings.TrimSpace(readString(payload["name"])),
		Email:       strings.TrimSpace(readString(payload["email"])),
		AvatarURL:   strings.TrimSpace(readString(payload["picture"])),
	}

	rawPermissions, ok := payload["permissions"].([]any)
	if !ok {
		return identity
	}
	for _, entry := range rawPermissions {
		item, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		tenantID := strings.TrimSpace(readString(item["company_id"]))
		if tenantID == "" {
			continue
		}
		identity.Permissions = append(identity.Permissions, core.Permission{
			TenantID: tenantID,
			Vertical: strings.TrimSpace(readString(item["vertical"])),
			Platform: strings.TrimSpace(readString(item["platform"])),
		})
	}
	return identity
}

// readString coerces the loosely typed profile payload values into strings;
// upstream serializes numeric company ids inconsistently.
func readString(value any) string {
	if value == nil {
		return ""
	}
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatInt(int64(typed), 10)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	}
	return strings.TrimSpace(fmt.Sprint(value))
}

func resolveProfileURL(origin string, path string) (string, error) {
	parsed, err := url.Parse(path)
	if err != nil {
		return "", err
	}
	if parsed.IsAbs() {
		return parsed.String(), nil
	}
	if origin == "" {
		return "", fmt.Errorf("relative profile path %q needs a base url", path)
	}
	base, err := url.Parse(origin)
	if err != nil {
		return "", err
	}
	return base.ResolveReference(parsed).String(), nil
}

var _ core.ProfileLoader = (*Loader)(nil)
