package identity

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-appauth/core"
)

func TestResolver_Resolve_FromUserinfoEndpoint(t *testing.T) {
	var gotPath string
	var gotAuthorization string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuthorization = strings.TrimSpace(r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"sub":            "subject_1",
			"email":          "user@example.com",
			"email_verified": true,
			"name":           "User Name",
			"picture":        "https://example.com/avatar.jpg",
			"locale":         "en",
		})
	}))
	defer server.Close()

	resolver, err := NewResolver(Config{AuthURL: server.URL, Realm: "app"})
	if err != nil {
		t.Fatalf("build resolver: %v", err)
	}
	profile, err := resolver.Resolve(context.Background(), "access_token_1")
	if err != nil {
		t.Fatalf("resolve profile: %v", err)
	}
	if gotPath != "/realms/app/protocol/openid-connect/userinfo" {
		t.Fatalf("expected realm userinfo path, got %q", gotPath)
	}
	if gotAuthorization != "Bearer access_token_1" {
		t.Fatalf("expected bearer access token header, got %q", gotAuthorization)
	}
	if profile.Subject != "subject_1" {
		t.Fatalf("expected subject subject_1, got %q", profile.Subject)
	}
	if profile.Email != "user@example.com" {
		t.Fatalf("expected email from userinfo, got %q", profile.Email)
	}
	if !profile.EmailVerified {
		t.Fatalf("expected email_verified true")
	}
	wantExternal := server.URL + "/realms/app|subject_1"
	if profile.ExternalAccountID() != wantExternal {
		t.Fatalf("expected issuer-qualified external account id %q, got %q", wantExternal, profile.ExternalAccountID())
	}
}

func TestResolver_Resolve_PrefersIssuerClaim(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"iss": "https://issuer.example.com/realms/app",
			"sub": "subject_2",
		})
	}))
	defer server.Close()

	resolver, err := NewResolver(Config{AuthURL: server.URL, Realm: "app"})
	if err != nil {
		t.Fatalf("build resolver: %v", err)
	}
	profile, err := resolver.Resolve(context.Background(), "access_token_2")
	if err != nil {
		t.Fatalf("resolve profile: %v", err)
	}
	if profile.Issuer != "https://issuer.example.com/realms/app" {
		t.Fatalf("expected iss claim to win, got %q", profile.Issuer)
	}
}

func TestResolver_Resolve_MissingSubjectIsNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"email": "user@example.com"})
	}))
	defer server.Close()

	resolver, err := NewResolver(Config{AuthURL: server.URL, Realm: "app"})
	if err != nil {
		t.Fatalf("build resolver: %v", err)
	}
	if _, err := resolver.Resolve(context.Background(), "access_token_3"); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
}

func TestResolver_Resolve_ErrorStatusIsNotFoundWithCause(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusUnauthorized)
	}))
	defer server.Close()

	resolver, err := NewResolver(Config{AuthURL: server.URL, Realm: "app"})
	if err != nil {
		t.Fatalf("build resolver: %v", err)
	}
	_, err = resolver.Resolve(context.Background(), "expired_token")
	if !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
	var notFound *ProfileNotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ProfileNotFoundError, got %T", err)
	}
	if notFound.Cause == nil || !strings.Contains(notFound.Cause.Error(), "status 401") {
		t.Fatalf("expected status cause, got %v", notFound.Cause)
	}
}

func TestResolver_Resolve_RequiresAccessToken(t *testing.T) {
	resolver, err := NewResolver(Config{AuthURL: "https://auth.example.com", Realm: "app"})
	if err != nil {
		t.Fatalf("build resolver: %v", err)
	}
	if _, err := resolver.Resolve(context.Background(), "  "); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound for empty token, got %v", err)
	}
}

func TestProfileNotFoundError_ToAuthError(t *testing.T) {
	richErr := (&ProfileNotFoundError{Cause: errors.New("boom")}).ToAuthError()
	if richErr.Category != goerrors.CategoryNotFound {
		t.Fatalf("expected not-found category, got %v", richErr.Category)
	}
	if richErr.TextCode != core.AuthErrorNotFound {
		t.Fatalf("expected %s text code, got %q", core.AuthErrorNotFound, richErr.TextCode)
	}
	if richErr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 code, got %d", richErr.Code)
	}
}

func TestNewResolver_Validation(t *testing.T) {
	if _, err := NewResolver(Config{Realm: "app"}); err == nil {
		t.Fatalf("expected error for missing auth url")
	}
	if _, err := NewResolver(Config{AuthURL: "https://auth.example.com"}); err == nil {
		t.Fatalf("expected error for missing realm")
	}
}

func TestFromProviderConfig(t *testing.T) {
	cfg := core.DefaultConfig()
	cfg.Provider.AuthURL = "https://auth.example.com/"
	cfg.Provider.Realm = "app"
	resolver, err := FromProviderConfig(cfg)
	if err != nil {
		t.Fatalf("build resolver from config: %v", err)
	}
	if resolver.endpoint != "https://auth.example.com/realms/app/protocol/openid-connect/userinfo" {
		t.Fatalf("unexpected endpoint %q", resolver.endpoint)
	}
}
