package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultPollInterval  = 2 * time.Second
	DefaultInitTimeout   = 30 * time.Second
	DefaultRetryDelay    = 2 * time.Second
	DefaultProfilePath   = "/api/user/"
	DefaultProxyPath     = "/api"
	defaultBootstrapPath = "/internal/licenses/%s/token"
)

// DefaultTokenPaths are the ranked served-file endpoints, highest priority
// first.
var DefaultTokenPaths = []string{"/auth/token.txt", "/token.txt"}

type Config struct {
	ServiceName string `koanf:"service_name" mapstructure:"service_name"`

	// BaseURL is the fully-qualified upstream origin used outside of
	// development mode.
	BaseURL string `koanf:"base_url" mapstructure:"base_url"`

	// ProxyPath is the same-origin prefix relative URLs resolve against
	// when DevMode is on.
	ProxyPath string `koanf:"proxy_path" mapstructure:"proxy_path"`

	DevMode bool `koanf:"dev_mode" mapstructure:"dev_mode"`

	TokenPaths        []string `koanf:"token_paths" mapstructure:"token_paths"`
	BootstrapTokenURL string   `koanf:"bootstrap_token_url" mapstructure:"bootstrap_token_url"`
	ProfilePath       string   `koanf:"profile_path" mapstructure:"profile_path"`

	// FallbackToken is the static credential baked into process config,
	// used only when every other source fails.
	FallbackToken string `koanf:"fallback_token" mapstructure:"fallback_token"`

	// TargetTenant is the tenant the process should act as, in canonical
	// family-number shape (e.g. "abimoveis-003").
	TargetTenant string `koanf:"target_tenant" mapstructure:"target_tenant"`

	// DefaultTenant is the static fallback when no permission matches.
	DefaultTenant string `koanf:"default_tenant" mapstructure:"default_tenant"`

	PollInterval time.Duration `koanf:"poll_interval" mapstructure:"poll_interval"`
	InitTimeout  time.Duration `koanf:"init_timeout" mapstructure:"init_timeout"`
	RetryDelay   time.Duration `koanf:"retry_delay" mapstructure:"retry_delay"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:  "session",
		ProxyPath:    DefaultProxyPath,
		TokenPaths:   append([]string(nil), DefaultTokenPaths...),
		ProfilePath:  DefaultProfilePath,
		PollInterval: DefaultPollInterval,
		InitTimeout:  DefaultInitTimeout,
		RetryDelay:   DefaultRetryDelay,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.PollInterval < 0 {
		return fmt.Errorf("core: poll_interval must not be negative")
	}
	if c.InitTimeout < 0 {
		return fmt.Errorf("core: init_timeout must not be negative")
	}
	if trimmed := strings.TrimSpace(c.BaseURL); trimmed != "" {
		if _, err := url.Parse(trimmed); err != nil {
			return fmt.Errorf("core: base_url is invalid: %w", err)
		}
	}
	return nil
}

// ResolveBootstrapURL returns the token-issuance endpoint, substituting the
// target tenant into the default path when no explicit URL is configured.
func (c Config) ResolveBootstrapURL() string {
	if trimmed := strings.TrimSpace(c.BootstrapTokenURL); trimmed != "" {
		return trimmed
	}
	tenant := NormalizeTenantID(c.TargetTenant)
	if tenant == "" {
		return ""
	}
	return fmt.Sprintf(defaultBootstrapPath, tenant)
}
