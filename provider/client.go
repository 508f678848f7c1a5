// Package provider implements the Keycloak-style identity provider client.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-appauth/core"
)

const (
	defaultRequestTimeout    = 10 * time.Second
	maxResponseBodyBytes     = 1 << 20 // 1 MiB
	grantTypeAuthCode        = "authorization_code"
	grantTypeRefreshToken    = "refresh_token"
	grantTypeClientCreds     = "client_credentials"
	grantTypeTokenExchange   = "urn:ietf:params:oauth:grant-type:token-exchange"
	tokenTypeAccessToken     = "urn:ietf:params:oauth:token-type:access_token"
	defaultResourceBasePath  = "/resources"
	defaultClientsPath       = "/clients"
	makeResourceAdminPath    = "/clients/make-resource-admin"
	requestAccessPath        = "/clients/request-access"
	openIDConnectTokenPath   = "/protocol/openid-connect/token"
	openIDConnectAuthPath    = "/protocol/openid-connect/auth"
)

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Config struct {
	AuthURL          string
	Realm            string
	ResourceBasePath string
	RequestTimeout   time.Duration
	HTTPClient       HTTPDoer
}

// Client talks to the identity provider's realm endpoints: the standard
// OpenID Connect token and auth endpoints plus the resource extension API
// for dynamic client registration and admin assignment.
type Client struct {
	cfg        Config
	httpClient HTTPDoer
}

func NewClient(cfg Config) (*Client, error) {
	cfg.AuthURL = strings.TrimRight(strings.TrimSpace(cfg.AuthURL), "/")
	if cfg.AuthURL == "" {
		return nil, fmt.Errorf("provider: auth url is required")
	}
	cfg.Realm = strings.TrimSpace(cfg.Realm)
	if cfg.Realm == "" {
		return nil, fmt.Errorf("provider: realm is required")
	}
	cfg.ResourceBasePath = strings.TrimSpace(cfg.ResourceBasePath)
	if cfg.ResourceBasePath == "" {
		cfg.ResourceBasePath = defaultResourceBasePath
	}
	if !strings.HasPrefix(cfg.ResourceBasePath, "/") {
		cfg.ResourceBasePath = "/" + cfg.ResourceBasePath
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}
	return &Client{cfg: cfg, httpClient: httpClient}, nil
}

func (c *Client) realmURL() string {
	return c.cfg.AuthURL + "/realms/" + c.cfg.Realm
}

func (c *Client) resourceAPIURL() string {
	return c.realmURL() + c.cfg.ResourceBasePath
}

func (c *Client) tokenURL() string {
	return c.realmURL() + openIDConnectTokenPath
}

// AuthorizationURL renders the realm's authorize endpoint with an S256 PKCE
// challenge.
func (c *Client) AuthorizationURL(clientID, redirectURI, state, codeChallenge string, scopes []string) string {
	if c == nil {
		return ""
	}
	values := url.Values{}
	values.Set("response_type", "code")
	values.Set("client_id", strings.TrimSpace(clientID))
	values.Set("redirect_uri", strings.TrimSpace(redirectURI))
	values.Set("state", strings.TrimSpace(state))
	values.Set("scope", strings.Join(scopes, " "))
	if strings.TrimSpace(codeChallenge) != "" {
		values.Set("code_challenge", strings.TrimSpace(codeChallenge))
		values.Set("code_challenge_method", "S256")
	}
	return c.realmURL() + openIDConnectAuthPath + "?" + values.Encode()
}

func (c *Client) RegisterClient(ctx context.Context, req core.RegisterClientRequest) (core.RegisteredApp, error) {
	if c == nil {
		return core.RegisteredApp{}, fmt.Errorf("provider: client is nil")
	}
	if len(req.RedirectURIs) == 0 {
		return core.RegisteredApp{}, fmt.Errorf("provider: at least one redirect uri is required")
	}

	payload := map[string]any{
		"name":          strings.TrimSpace(req.AppName),
		"description":   strings.TrimSpace(req.Description),
		"redirect_uris": req.RedirectURIs,
	}
	body, status, err := c.postJSON(ctx, c.resourceAPIURL()+defaultClientsPath, "", payload)
	if err != nil {
		return core.RegisteredApp{}, err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return core.RegisteredApp{}, classifyStatusError("register client", status, body)
	}

	var decoded struct {
		ClientID     string   `json:"client_id"`
		ClientSecret string   `json:"client_secret"`
		Scopes       []string `json:"scopes"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return core.RegisteredApp{}, fmt.Errorf("provider: decode registration response: %w", err)
	}
	if strings.TrimSpace(decoded.ClientID) == "" || strings.TrimSpace(decoded.ClientSecret) == "" {
		return core.RegisteredApp{}, fmt.Errorf("provider: registration response missing credentials")
	}
	return core.RegisteredApp{
		ClientID:     decoded.ClientID,
		ClientSecret: decoded.ClientSecret,
		Scopes:       decoded.Scopes,
	}, nil
}

func (c *Client) MakeResourceAdmin(ctx context.Context, req core.MakeResourceAdminRequest) error {
	if c == nil {
		return fmt.Errorf("provider: client is nil")
	}
	accessToken, err := c.clientAccessToken(ctx, req.ClientID, req.ClientSecret)
	if err != nil {
		return err
	}

	body, status, err := c.postJSON(ctx, c.resourceAPIURL()+makeResourceAdminPath, accessToken, map[string]any{
		"username": strings.TrimSpace(req.UserID),
	})
	if err != nil {
		return err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return classifyStatusError("make resource admin", status, body)
	}
	return nil
}

func (c *Client) RegisterAccessConsent(ctx context.Context, req core.RegisterAccessConsentRequest) error {
	if c == nil {
		return fmt.Errorf("provider: client is nil")
	}
	accessToken := strings.TrimSpace(req.AccessToken)
	if accessToken == "" {
		token, err := c.clientAccessToken(ctx, req.ClientID, req.ClientSecret)
		if err != nil {
			return err
		}
		accessToken = token
	}

	body, status, err := c.postJSON(ctx, c.resourceAPIURL()+requestAccessPath, accessToken, map[string]any{
		"app_client_id": strings.TrimSpace(req.AudienceID),
	})
	if err != nil {
		return err
	}
	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return classifyStatusError("register access consent", status, body)
	}
	return nil
}

func (c *Client) ExchangeAuthCode(ctx context.Context, req core.ExchangeAuthCodeRequest) (core.TokenPair, error) {
	if c == nil {
		return core.TokenPair{}, fmt.Errorf("provider: client is nil")
	}
	if strings.TrimSpace(req.Code) == "" {
		return core.TokenPair{}, fmt.Errorf("provider: authorization code is required")
	}
	form := url.Values{}
	form.Set("grant_type", grantTypeAuthCode)
	form.Set("code", strings.TrimSpace(req.Code))
	form.Set("client_id", strings.TrimSpace(req.ClientID))
	form.Set("client_secret", req.ClientSecret)
	form.Set("redirect_uri", strings.TrimSpace(req.RedirectURI))
	form.Set("code_verifier", strings.TrimSpace(req.CodeVerifier))
	return c.fetchTokenPair(ctx, "exchange auth code", form)
}

func (c *Client) RefreshToken(ctx context.Context, req core.RefreshTokenRequest) (core.TokenPair, error) {
	if c == nil {
		return core.TokenPair{}, fmt.Errorf("provider: client is nil")
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		return core.TokenPair{}, fmt.Errorf("provider: refresh token is required")
	}
	form := url.Values{}
	form.Set("grant_type", grantTypeRefreshToken)
	form.Set("refresh_token", strings.TrimSpace(req.RefreshToken))
	form.Set("client_id", strings.TrimSpace(req.ClientID))
	form.Set("client_secret", req.ClientSecret)
	return c.fetchTokenPair(ctx, "refresh token", form)
}

// ExchangeAppToken performs an RFC 8693 token exchange, rewriting a token
// issued for one audience into this resource client's audience.
func (c *Client) ExchangeAppToken(ctx context.Context, req core.ExchangeAppTokenRequest) (core.TokenPair, error) {
	if c == nil {
		return core.TokenPair{}, fmt.Errorf("provider: client is nil")
	}
	if strings.TrimSpace(req.SubjectToken) == "" {
		return core.TokenPair{}, fmt.Errorf("provider: subject token is required")
	}
	form := url.Values{}
	form.Set("grant_type", grantTypeTokenExchange)
	form.Set("subject_token", strings.TrimSpace(req.SubjectToken))
	form.Set("subject_token_type", tokenTypeAccessToken)
	form.Set("client_id", strings.TrimSpace(req.ClientID))
	form.Set("client_secret", req.ClientSecret)
	if audience := strings.TrimSpace(req.AudienceID); audience != "" {
		form.Set("audience", audience)
	}
	if len(req.Scopes) > 0 {
		form.Set("scope", strings.Join(req.Scopes, " "))
	}
	return c.fetchTokenPair(ctx, "exchange app token", form)
}

func (c *Client) clientAccessToken(ctx context.Context, clientID, clientSecret string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", grantTypeClientCreds)
	form.Set("client_id", strings.TrimSpace(clientID))
	form.Set("client_secret", clientSecret)
	pair, err := c.fetchTokenPair(ctx, "client credentials", form)
	if err != nil {
		return "", err
	}
	return pair.AccessToken, nil
}

func (c *Client) fetchTokenPair(ctx context.Context, operation string, form url.Values) (core.TokenPair, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	requestCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(
		requestCtx,
		http.MethodPost,
		c.tokenURL(),
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return core.TokenPair{}, err
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(httpReq)
	if err != nil {
		return core.TokenPair{}, networkError(operation, err)
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodyBytes+1))
	if readErr != nil {
		return core.TokenPair{}, networkError(operation, readErr)
	}
	if int64(len(body)) > maxResponseBodyBytes {
		return core.TokenPair{}, fmt.Errorf("provider: token response exceeds %d bytes", maxResponseBodyBytes)
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return core.TokenPair{}, classifyStatusError(operation, response.StatusCode, body)
	}

	var decoded struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		TokenType    string `json:"token_type"`
		Scope        string `json:"scope"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return core.TokenPair{}, fmt.Errorf("provider: decode token response: %w", err)
	}
	if strings.TrimSpace(decoded.AccessToken) == "" {
		return core.TokenPair{}, fmt.Errorf("provider: token response missing access token")
	}

	pair := core.TokenPair{
		AccessToken:  strings.TrimSpace(decoded.AccessToken),
		RefreshToken: strings.TrimSpace(decoded.RefreshToken),
		TokenType:    strings.TrimSpace(decoded.TokenType),
		Scope:        strings.TrimSpace(decoded.Scope),
	}
	if decoded.ExpiresIn > 0 {
		expiresAt := time.Now().UTC().Add(time.Duration(decoded.ExpiresIn) * time.Second)
		pair.ExpiresAt = &expiresAt
	}
	return pair, nil
}

func (c *Client) postJSON(ctx context.Context, endpoint, bearer string, payload any) ([]byte, int, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("provider: encode request payload: %w", err)
	}

	requestCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(requestCtx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return nil, 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if strings.TrimSpace(bearer) != "" {
		httpReq.Header.Set("Authorization", "Bearer "+strings.TrimSpace(bearer))
	}

	response, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, networkError("post "+endpoint, err)
	}
	defer response.Body.Close()

	body, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodyBytes+1))
	if readErr != nil {
		return nil, 0, networkError("read "+endpoint, readErr)
	}
	if int64(len(body)) > maxResponseBodyBytes {
		return nil, 0, fmt.Errorf("provider: response exceeds %d bytes", maxResponseBodyBytes)
	}
	return body, response.StatusCode, nil
}

// classifyStatusError separates terminal provider rejections from transient
// ones: 4xx responses mean the request itself is wrong and will never
// succeed on retry, 5xx means the provider is temporarily unavailable.
func classifyStatusError(operation string, status int, body []byte) error {
	message := describeProviderError(body)
	switch {
	case status == http.StatusUnauthorized || status == http.StatusBadRequest || status == http.StatusForbidden:
		return goerrors.New(
			fmt.Sprintf("provider: %s rejected (%d): %s", operation, status, message),
			goerrors.CategoryAuth,
		).WithTextCode(core.AuthErrorInvalidGrant)
	case status >= http.StatusInternalServerError:
		return goerrors.New(
			fmt.Sprintf("provider: %s unavailable (%d): %s", operation, status, message),
			goerrors.CategoryExternal,
		).WithTextCode(core.AuthErrorProviderUnavailable)
	default:
		return goerrors.New(
			fmt.Sprintf("provider: %s failed (%d): %s", operation, status, message),
			goerrors.CategoryExternal,
		).WithTextCode(core.AuthErrorProviderUnavailable)
	}
}

func networkError(operation string, cause error) error {
	return goerrors.Wrap(
		cause,
		goerrors.CategoryExternal,
		fmt.Sprintf("provider: %s transport failure", operation),
	).WithTextCode(core.AuthErrorNetwork)
}

func describeProviderError(body []byte) string {
	var decoded struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Message          string `json:"message"`
	}
	if err := json.Unmarshal(body, &decoded); err == nil {
		if strings.TrimSpace(decoded.ErrorDescription) != "" {
			return strings.TrimSpace(decoded.ErrorDescription)
		}
		if strings.TrimSpace(decoded.Error) != "" {
			return strings.TrimSpace(decoded.Error)
		}
		if strings.TrimSpace(decoded.Message) != "" {
			return strings.TrimSpace(decoded.Message)
		}
	}
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return "unknown error"
	}
	if len(trimmed) > 200 {
		trimmed = trimmed[:200]
	}
	return trimmed
}

var _ core.IdentityClient = (*Client)(nil)
