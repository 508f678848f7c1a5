package appauth

import (
	"github.com/goliatone/go-appauth/core"
	"github.com/goliatone/go-appauth/identity"
)

type Config = core.Config

type ProviderConfig = core.ProviderConfig

type SessionConfig = core.SessionConfig

type SecretConfig = core.SecretConfig

type Option = core.Option

type Service = core.Service

type ServiceDependencies = core.ServiceDependencies
type IdentityClient = core.IdentityClient
type SecretService = core.SecretService
type Keyring = core.Keyring
type KeyedLocker = core.KeyedLocker
type LoginStateStore = core.LoginStateStore
type AppInstanceStore = core.AppInstanceStore
type TokenStore = core.TokenStore
type AccessRequestStore = core.AccessRequestStore
type SessionStore = core.SessionStore
type MetricsRecorder = core.MetricsRecorder

type Role = core.Role
type TokenScope = core.TokenScope
type ValidatedToken = core.ValidatedToken
type TokenPair = core.TokenPair

type RegisterClientRequest = core.RegisterClientRequest
type BeginLoginRequest = core.BeginLoginRequest
type CompleteLoginRequest = core.CompleteLoginRequest
type CreateApiTokenRequest = core.CreateApiTokenRequest
type SubmitAccessRequest = core.SubmitAccessRequest
type ReviewAccessRequest = core.ReviewAccessRequest

var (
	WithLogger             = core.WithLogger
	WithLoggerProvider     = core.WithLoggerProvider
	WithMetricsRecorder    = core.WithMetricsRecorder
	WithErrorFactory       = core.WithErrorFactory
	WithErrorMapper        = core.WithErrorMapper
	WithConfigProvider     = core.WithConfigProvider
	WithOptionsResolver    = core.WithOptionsResolver
	WithClock              = core.WithClock
	WithIdentityClient     = core.WithIdentityClient
	WithSecretService      = core.WithSecretService
	WithKeyring            = core.WithKeyring
	WithPersistenceClient  = core.WithPersistenceClient
	WithRepositoryFactory  = core.WithRepositoryFactory
	WithLoginStateStore    = core.WithLoginStateStore
	WithRefreshLocker      = core.WithRefreshLocker
	WithAppInstanceStore   = core.WithAppInstanceStore
	WithTokenStore         = core.WithTokenStore
	WithAccessRequestStore = core.WithAccessRequestStore
	WithSessionStore       = core.WithSessionStore
)

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return core.Setup(cfg, opts...)
}

// NewProfileResolver builds a realm userinfo resolver from the same provider
// settings the service uses.
func NewProfileResolver(cfg Config) (*identity.Resolver, error) {
	return identity.FromProviderConfig(cfg)
}
