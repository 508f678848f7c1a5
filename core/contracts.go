package core

import (
	"context"
	"time"

	glog "github.com/goliatone/go-logger/glog"
)

type RegisterClientRequest struct {
	AppName      string
	Description  string
	RedirectURIs []string
	Metadata     map[string]any
}

type RegisteredApp struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	Metadata     map[string]any
}

type MakeResourceAdminRequest struct {
	ClientID     string
	ClientSecret string
	UserID       string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    *time.Time
	Scope        string
}

type ExchangeAuthCodeRequest struct {
	ClientID     string
	ClientSecret string
	Code         string
	RedirectURI  string
	CodeVerifier string
}

type RefreshTokenRequest struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

type ExchangeAppTokenRequest struct {
	ClientID     string
	ClientSecret string
	SubjectToken string
	AudienceID   string
	Scopes       []string
}

type RegisterAccessConsentRequest struct {
	ClientID     string
	ClientSecret string
	AccessToken  string
	AudienceID   string
}

type BeginLoginRequest struct {
	RedirectURI string
	ExtraScopes []string
}

type BeginLoginResponse struct {
	AuthorizationURL string
	State            string
}

type CompleteLoginRequest struct {
	Code  string
	State string
}

type LoginResult struct {
	Tokens   TokenPair
	UserID   string
	Username string
	Role     Role
}

type CreateApiTokenRequest struct {
	AccessToken string
	Name        string
	Scope       TokenScope
}

type CreatedApiToken struct {
	Token  ApiToken
	Secret string
}

type ValidatedToken struct {
	AccessToken string
	UserID      string
	Username    string
	Role        Role
	Scope       *TokenScope
}

type SubmitAccessRequest struct {
	AppClientID   string
	AppName       string
	Description   string
	RedirectURI   string
	UserID        string
	RequestedRole Role
}

type ReviewAccessRequest struct {
	RequestID    string
	ReviewerID   string
	ReviewerRole Role
	ApprovedRole Role
}

type AccessRequestPage struct {
	Items   []AccessRequest
	Page    int
	PerPage int
	Total   int
}

type AccessRequestFilter struct {
	Status  AccessRequestStatus
	UserID  string
	Page    int
	PerPage int
}

// IdentityClient is the outbound surface toward the identity provider. All
// methods classify failures as terminal or transient through the shared
// error taxonomy.
type IdentityClient interface {
	RegisterClient(ctx context.Context, req RegisterClientRequest) (RegisteredApp, error)
	MakeResourceAdmin(ctx context.Context, req MakeResourceAdminRequest) error
	ExchangeAuthCode(ctx context.Context, req ExchangeAuthCodeRequest) (TokenPair, error)
	RefreshToken(ctx context.Context, req RefreshTokenRequest) (TokenPair, error)
	ExchangeAppToken(ctx context.Context, req ExchangeAppTokenRequest) (TokenPair, error)
	RegisterAccessConsent(ctx context.Context, req RegisterAccessConsentRequest) error
	AuthorizationURL(clientID, redirectURI, state, codeChallenge string, scopes []string) string
}

// SecretService encrypts small payloads at rest. Implementations must
// produce a fresh nonce per call so identical plaintexts never share
// ciphertext.
type SecretService interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(encoded string) ([]byte, error)
}

// Keyring abstracts the OS credential store. Get returns
// ErrKeyringEntryNotFound when no entry exists for the key.
type Keyring interface {
	Get(key string) (string, error)
	Set(key, value string) error
	Delete(key string) error
}

// KeyedLocker serializes work per key. WithLock runs fn while holding the
// key's lock, respecting ctx cancellation while waiting.
type KeyedLocker interface {
	WithLock(ctx context.Context, key string, fn func() error) error
}

type AppInstanceStore interface {
	Get(ctx context.Context) (AppInstance, error)
	Insert(ctx context.Context, instance AppInstance) (AppInstance, error)
	Update(ctx context.Context, instance AppInstance) (AppInstance, error)
}

type TokenStore interface {
	CreateToken(ctx context.Context, token ApiToken) (ApiToken, error)
	GetTokenByID(ctx context.Context, id string) (ApiToken, error)
	GetTokenByTokenID(ctx context.Context, tokenID string) (ApiToken, error)
	GetTokenByPrefix(ctx context.Context, prefix string) (ApiToken, error)
	ListTokens(ctx context.Context, userID string, page, perPage int) ([]ApiToken, int, error)
	UpdateToken(ctx context.Context, token ApiToken) (ApiToken, error)

	GetCachedToken(ctx context.Context, tokenID string) (CachedToken, error)
	SaveCachedToken(ctx context.Context, cached CachedToken) (CachedToken, error)
	DeleteCachedToken(ctx context.Context, tokenID string) error
}

type AccessRequestStore interface {
	Create(ctx context.Context, request AccessRequest) (AccessRequest, error)
	Get(ctx context.Context, id string) (AccessRequest, error)
	GetByClientID(ctx context.Context, clientID string) (AccessRequest, error)
	Update(ctx context.Context, request AccessRequest) (AccessRequest, error)
	List(ctx context.Context, filter AccessRequestFilter) (AccessRequestPage, error)
}

// SessionStore persists server side session state keyed by session ID.
type SessionStore interface {
	Save(ctx context.Context, record SessionRecord) error
	Get(ctx context.Context, id string) (SessionRecord, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, before time.Time) (int, error)
	SessionIDsForUser(ctx context.Context, userID string) ([]string, error)
	ClearForUser(ctx context.Context, userID string) (int, error)
	CountForUser(ctx context.Context, userID string) (int, error)
	DumpAll(ctx context.Context) ([]SessionRecord, error)
}

type StoreProvider interface {
	AppInstanceStore() AppInstanceStore
	TokenStore() TokenStore
	AccessRequestStore() AccessRequestStore
	SessionStore() SessionStore
}

type RepositoryStoreFactory interface {
	BuildStores(persistenceClient any) (StoreProvider, error)
}

// LoginStateStore holds pending authorization flows between BeginLogin and
// the provider callback. Consume removes the entry so a state value can be
// redeemed at most once.
type LoginStateStore interface {
	Put(ctx context.Context, state LoginState) error
	Consume(ctx context.Context, stateID string) (LoginState, error)
	PruneExpired(ctx context.Context, now time.Time) int
}

type LoginState struct {
	ID           string
	CodeVerifier string
	RedirectURI  string
	Scopes       []string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

type MetricsRecorder interface {
	IncCounter(ctx context.Context, name string, value int64, tags map[string]string)
	ObserveHistogram(ctx context.Context, name string, value float64, tags map[string]string)
}

type Logger = glog.Logger

type LoggerProvider = glog.LoggerProvider

type FieldsLogger = glog.FieldsLogger
