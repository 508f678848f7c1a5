// Package identity resolves user profiles from the identity provider's
// realm userinfo endpoint.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-appauth/core"
)

const (
	defaultRequestTimeout   = 10 * time.Second
	maxProfileResponseBytes = 1 << 20 // 1 MiB
	userinfoPath            = "/protocol/openid-connect/userinfo"
)

var ErrProfileNotFound = errors.New("identity: profile not found")

// ProfileNotFoundError wraps the underlying fetch or decode failure so
// callers can branch on ErrProfileNotFound while keeping the cause.
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

func (e *ProfileNotFoundError) ToAuthError() *goerrors.Error {
	message := ErrProfileNotFound.Error()
	if e != nil && e.Cause != nil {
		message = e.Error()
	}
	return goerrors.New(message, goerrors.CategoryNotFound).
		WithCode(http.StatusNotFound).
		WithTextCode(core.AuthErrorNotFound)
}

func profileNotFound(cause error) error {
	return &ProfileNotFoundError{Cause: cause}
}

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// UserProfile is the normalized shape of a realm userinfo response.
type UserProfile struct {
	Issuer        string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	GivenName     string
	FamilyName    string
	PictureURL    string
	Locale        string
	Raw           map[string]any
}

// ExternalAccountID joins issuer and subject into a stable identifier for
// the account across realm renames.
func (p UserProfile) ExternalAccountID() string {
	subject := strings.TrimSpace(p.Subject)
	if subject == "" {
		return ""
	}
	issuer := strings.TrimSpace(p.Issuer)
	if issuer == "" {
		return subject
	}
	return issuer + "|" + subject
}

func (p UserProfile) Map() map[string]any {
	metadata := map[string]any{
		"issuer":         strings.TrimSpace(p.Issuer),
		"subject":        strings.TrimSpace(p.Subject),
		"external_id":    strings.TrimSpace(p.ExternalAccountID()),
		"email":          strings.TrimSpace(p.Email),
		"email_verified": p.EmailVerified,
		"name":           strings.TrimSpace(p.Name),
		"given_name":     strings.TrimSpace(p.GivenName),
		"family_name":    strings.TrimSpace(p.FamilyName),
		"picture_url":    strings.TrimSpace(p.PictureURL),
		"locale":         strings.TrimSpace(p.Locale),
	}
	if len(p.Raw) > 0 {
		metadata["raw"] = copyMap(p.Raw)
	}
	return metadata
}

type ProfileResolver interface {
	Resolve(ctx context.Context, accessToken string) (UserProfile, error)
}

type Config struct {
	// AuthURL and Realm mirror core.ProviderConfig; the userinfo endpoint
	// lives under the realm root.
	AuthURL        string
	Realm          string
	HTTPClient     HTTPDoer
	RequestTimeout time.Duration
}

// Resolver fetches and normalizes the realm's userinfo document for a
// bearer access token.
type Resolver struct {
	endpoint       string
	issuer         string
	httpClient     HTTPDoer
	requestTimeout time.Duration
}

func NewResolver(cfg Config) (*Resolver, error) {
	authURL := strings.TrimRight(strings.TrimSpace(cfg.AuthURL), "/")
	if authURL == "" {
		return nil, fmt.Errorf("identity: auth url is required")
	}
	realm := strings.TrimSpace(cfg.Realm)
	if realm == "" {
		return nil, fmt.Errorf("identity: realm is required")
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	realmRoot := authURL + "/realms/" + realm
	return &Resolver{
		endpoint:       realmRoot + userinfoPath,
		issuer:         realmRoot,
		httpClient:     httpClient,
		requestTimeout: requestTimeout,
	}, nil
}

// FromProviderConfig builds a resolver from the same settings the token
// client uses.
func FromProviderConfig(cfg core.Config) (*Resolver, error) {
	return NewResolver(Config{
		AuthURL:        cfg.Provider.AuthURL,
		Realm:          cfg.Provider.Realm,
		RequestTimeout: cfg.ProviderRequestTimeout(),
	})
}

// Resolve calls the realm userinfo endpoint with the access token and
// normalizes the response. A missing subject is treated as not found.
func (r *Resolver) Resolve(ctx context.Context, accessToken string) (UserProfile, error) {
	if r == nil {
		return UserProfile{}, profileNotFound(nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	payload, err := r.fetchUserInfo(ctx, strings.TrimSpace(accessToken))
	if err != nil {
		return UserProfile{}, profileNotFound(err)
	}

	issuer := strings.TrimSpace(readString(payload["iss"]))
	if issuer == "" {
		issuer = r.issuer
	}
	profile := normalizeProfile(issuer, payload)
	if strings.TrimSpace(profile.Subject) == "" {
		return UserProfile{}, profileNotFound(nil)
	}
	return profile, nil
}

func (r *Resolver) fetchUserInfo(ctx context.Context, accessToken string) (map[string]any, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("identity: access token is required")
	}
	requestCtx := ctx
	cancel := func() {}
	if r.requestTimeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, r.requestTimeout)
	}
	defer cancel()

	req, err := http.NewRequestWithContext(requestCtx, http.MethodGet, r.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	res, err := r.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	body, readErr := io.ReadAll(io.LimitReader(res.Body, maxProfileResponseBytes+1))
	if readErr != nil {
		return nil, fmt.Errorf("identity: read profile response: %w", readErr)
	}
	if int64(len(body)) > maxProfileResponseBytes {
		return nil, fmt.Errorf("identity: profile response exceeds %d bytes", maxProfileResponseBytes)
	}
	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("identity: userinfo endpoint returned status %d", res.StatusCode)
	}
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("identity: decode profile response: %w", err)
	}
	return payload, nil
}

func normalizeProfile(issuer string, payload map[string]any) UserProfile {
	profile := UserProfile{
		Issuer:        strings.TrimSpace(issuer),
		Subject:       strings.TrimSpace(readString(payload["sub"])),
		Email:         strings.TrimSpace(readString(payload["email"])),
		EmailVerified: readBool(payload["email_verified"]),
		Name:          strings.TrimSpace(readString(payload["name"])),
		GivenName:     strings.TrimSpace(readString(payload["given_name"])),
		FamilyName:    strings.TrimSpace(readString(payload["family_name"])),
		PictureURL:    strings.TrimSpace(readString(payload["picture"])),
		Locale:        strings.TrimSpace(readString(payload["locale"])),
		Raw:           copyMap(payload),
	}
	if strings.TrimSpace(profile.Name) == "" {
		profile.Name = strings.TrimSpace(strings.Join(
			[]string{profile.GivenName, profile.FamilyName},
			" ",
		))
	}
	return profile
}

func copyMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return map[string]any{}
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}

func readString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case fmt.Stringer:
		return strings.TrimSpace(typed.String())
	case json.Number:
		return strings.TrimSpace(typed.String())
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatInt(int64(typed), 10)
	default:
		if value == nil {
			return ""
		}
		return strings.TrimSpace(fmt.Sprint(value))
	}
}

func readBool(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		parsed, err := strconv.ParseBool(strings.TrimSpace(typed))
		return err == nil && parsed
	case json.Number:
		parsed, err := typed.Int64()
		return err == nil && parsed != 0
	case int:
		return typed != 0
	case int64:
		return typed != 0
	case float64:
		return typed != 0
	default:
		return false
	}
}
