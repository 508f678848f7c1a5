package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

type ProviderConfig struct {
	AuthURL        string `koanf:"auth_url" mapstructure:"auth_url"`
	Realm          string `koanf:"realm" mapstructure:"realm"`
	RequestTimeout string `koanf:"request_timeout" mapstructure:"request_timeout"`
}

type SessionConfig struct {
	CookieName   string `koanf:"cookie_name" mapstructure:"cookie_name"`
	CookieSecure bool   `koanf:"cookie_secure" mapstructure:"cookie_secure"`
	SameSite     string `koanf:"same_site" mapstructure:"same_site"`
	MaxAge       string `koanf:"max_age" mapstructure:"max_age"`
}

type SecretConfig struct {
	Iterations int    `koanf:"iterations" mapstructure:"iterations"`
	KeySource  string `koanf:"key_source" mapstructure:"key_source"`
}

type Config struct {
	ServiceName    string         `koanf:"service_name" mapstructure:"service_name"`
	ServerBaseURL  string         `koanf:"server_base_url" mapstructure:"server_base_url"`
	AuthDisabled   bool           `koanf:"auth_disabled" mapstructure:"auth_disabled"`
	Provider       ProviderConfig `koanf:"provider" mapstructure:"provider"`
	Session        SessionConfig  `koanf:"session" mapstructure:"session"`
	Secret         SecretConfig   `koanf:"secret" mapstructure:"secret"`
	LoginStateTTL  string         `koanf:"login_state_ttl" mapstructure:"login_state_ttl"`
	RefreshLockTTL string         `koanf:"refresh_lock_ttl" mapstructure:"refresh_lock_ttl"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:   "appauth",
		ServerBaseURL: "http://localhost:1135",
		Provider: ProviderConfig{
			Realm:          "app",
			RequestTimeout: "10s",
		},
		Session: SessionConfig{
			CookieName:   "app_session",
			CookieSecure: false,
			SameSite:     "lax",
			MaxAge:       "24h",
		},
		Secret: SecretConfig{
			Iterations: 1000,
			KeySource:  "keyring",
		},
		LoginStateTTL:  "10m",
		RefreshLockTTL: "30s",
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if strings.TrimSpace(c.ServerBaseURL) == "" {
		return fmt.Errorf("core: server_base_url is required")
	}
	if _, err := url.Parse(c.ServerBaseURL); err != nil {
		return fmt.Errorf("core: server_base_url is invalid: %w", err)
	}
	if strings.TrimSpace(c.Provider.AuthURL) == "" {
		return fmt.Errorf("core: provider.auth_url is required")
	}
	if _, err := url.Parse(c.Provider.AuthURL); err != nil {
		return fmt.Errorf("core: provider.auth_url is invalid: %w", err)
	}
	if strings.TrimSpace(c.Provider.Realm) == "" {
		return fmt.Errorf("core: provider.realm is required")
	}
	if c.Secret.Iterations <= 0 {
		return fmt.Errorf("core: secret.iterations must be positive")
	}
	for field, raw := range map[string]string{
		"provider.request_timeout": c.Provider.RequestTimeout,
		"session.max_age":          c.Session.MaxAge,
		"login_state_ttl":          c.LoginStateTTL,
		"refresh_lock_ttl":         c.RefreshLockTTL,
	} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("core: %s is invalid: %w", field, err)
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.Session.SameSite)) {
	case "", "lax", "strict", "none":
	default:
		return fmt.Errorf("core: session.same_site must be lax, strict, or none")
	}
	return nil
}

func (c Config) ProviderRequestTimeout() time.Duration {
	return durationOr(c.Provider.RequestTimeout, 10*time.Second)
}

func (c Config) SessionMaxAge() time.Duration {
	return durationOr(c.Session.MaxAge, 24*time.Hour)
}

func (c Config) LoginStateDuration() time.Duration {
	return durationOr(c.LoginStateTTL, 10*time.Minute)
}

func (c Config) RefreshLockDuration() time.Duration {
	return durationOr(c.RefreshLockTTL, 30*time.Second)
}

func durationOr(raw string, fallback time.Duration) time.Duration {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
