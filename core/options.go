package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-config/cfgx"
	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
	opts "github.com/goliatone/go-options"
)

type ErrorFactory func(message string, category ...goerrors.Category) *goerrors.Error

type ErrorMapper func(err error) *goerrors.Error

type ConfigProvider interface {
	Load(ctx context.Context, defaults Config) (Config, error)
}

type RawConfigLoader interface {
	LoadRaw(ctx context.Context) (map[string]any, error)
}

type OptionsResolver interface {
	Resolve(defaults Config, loaded Config, runtime Config) (Config, error)
}

type serviceBuilder struct {
	runtimeConfig      Config
	logger             Logger
	loggerProvider     LoggerProvider
	metricsRecorder    MetricsRecorder
	errorFactory       ErrorFactory
	errorMapper        ErrorMapper
	configProvider     ConfigProvider
	optionsResolver    OptionsResolver
	clock              Clock
	identityClient     IdentityClient
	secretService      SecretService
	keyring            Keyring
	persistenceClient  any
	repositoryFactory  any
	loginStateStore    LoginStateStore
	refreshLocker      KeyedLocker
	appInstanceStore   AppInstanceStore
	tokenStore         TokenStore
	accessRequestStore AccessRequestStore
	sessionStore       SessionStore
}

type Option func(*serviceBuilder)

func WithLogger(logger Logger) Option {
	return func(b *serviceBuilder) {
		b.logger = logger
	}
}

func WithLoggerProvider(provider LoggerProvider) Option {
	return func(b *serviceBuilder) {
		b.loggerProvider = provider
	}
}

func WithMetricsRecorder(recorder MetricsRecorder) Option {
	return func(b *serviceBuilder) {
		b.metricsRecorder = recorder
	}
}

func WithErrorFactory(factory ErrorFactory) Option {
	return func(b *serviceBuilder) {
		b.errorFactory = factory
	}
}

func WithErrorMapper(mapper ErrorMapper) Option {
	return func(b *serviceBuilder) {
		b.errorMapper = mapper
	}
}

func WithConfigProvider(provider ConfigProvider) Option {
	return func(b *serviceBuilder) {
		b.configProvider = provider
	}
}

func WithOptionsResolver(resolver OptionsResolver) Option {
	return func(b *serviceBuilder) {
		b.optionsResolver = resolver
	}
}

func WithClock(clock Clock) Option {
	return func(b *serviceBuilder) {
		b.clock = clock
	}
}

func WithIdentityClient(client IdentityClient) Option {
	return func(b *serviceBuilder) {
		b.identityClient = client
	}
}

func WithSecretService(secrets SecretService) Option {
	return func(b *serviceBuilder) {
		b.secretService = secrets
	}
}

func WithKeyring(keyring Keyring) Option {
	return func(b *serviceBuilder) {
		b.keyring = keyring
	}
}

func WithPersistenceClient(client any) Option {
	return func(b *serviceBuilder) {
		b.persistenceClient = client
	}
}

func WithRepositoryFactory(factory any) Option {
	return func(b *serviceBuilder) {
		b.repositoryFactory = factory
	}
}

func WithLoginStateStore(store LoginStateStore) Option {
	return func(b *serviceBuilder) {
		b.loginStateStore = store
	}
}

func WithRefreshLocker(locker KeyedLocker) Option {
	return func(b *serviceBuilder) {
		b.refreshLocker = locker
	}
}

func WithAppInstanceStore(store AppInstanceStore) Option {
	return func(b *serviceBuilder) {
		b.appInstanceStore = store
	}
}

func WithTokenStore(store TokenStore) Option {
	return func(b *serviceBuilder) {
		b.tokenStore = store
	}
}

func WithAccessRequestStore(store AccessRequestStore) Option {
	return func(b *serviceBuilder) {
		b.accessRequestStore = store
	}
}

func WithSessionStore(store SessionStore) Option {
	return func(b *serviceBuilder) {
		b.sessionStore = store
	}
}

func defaultServiceBuilder(runtime Config) serviceBuilder {
	loggerProvider, logger := glog.Resolve("appauth", nil, nil)
	return serviceBuilder{
		runtimeConfig:   runtime,
		loggerProvider:  loggerProvider,
		logger:          logger,
		metricsRecorder: NopMetricsRecorder{},
		errorFactory:    goerrors.New,
		errorMapper:     defaultErrorMapper,
		configProvider:  NewCfgxConfigProvider(nil),
		optionsResolver: GoOptionsResolver{},
		clock:           SystemClock{},
	}
}

func defaultErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	return authErrorMapper(err)
}

type staticRawConfigLoader struct {
	Values map[string]any
}

func (l staticRawConfigLoader) LoadRaw(context.Context) (map[string]any, error) {
	if len(l.Values) == 0 {
		return map[string]any{}, nil
	}
	out := make(map[string]any, len(l.Values))
	for key, value := range l.Values {
		out[key] = value
	}
	return out, nil
}

type CfgxConfigProvider struct {
	Loader RawConfigLoader
}

func NewCfgxConfigProvider(loader RawConfigLoader) *CfgxConfigProvider {
	return &CfgxConfigProvider{Loader: loader}
}

func (p *CfgxConfigProvider) Load(ctx context.Context, defaults Config) (Config, error) {
	if p == nil {
		return defaults, nil
	}
	loader := p.Loader
	if loader == nil {
		loader = staticRawConfigLoader{}
	}
	raw, err := loader.LoadRaw(ctx)
	if err != nil {
		return Config{}, err
	}
	// validation runs after the runtime layer merges in, not here: a file
	// may intentionally leave fields for the host to fill at runtime
	cfg, err := cfgx.Build[Config](raw,
		cfgx.WithDefaults(defaults),
	)
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type GoOptionsResolver struct{}

func (GoOptionsResolver) Resolve(defaults Config, loaded Config, runtime Config) (Config, error) {
	defaultLayer := configToLayerMap(defaults, true)
	loadedLayer := configToLayerMap(loaded, false)
	runtimeLayer := configToLayerMap(runtime, false)

	stack, err := opts.NewStack(
		opts.NewLayer(
			opts.NewScope("defaults", 0),
			defaultLayer,
			opts.WithSnapshotID[map[string]any]("defaults"),
		),
		opts.NewLayer(
			opts.NewScope("config", 10),
			loadedLayer,
			opts.WithSnapshotID[map[string]any]("config"),
		),
		opts.NewLayer(
			opts.NewScope("runtime", 20),
			runtimeLayer,
			opts.WithSnapshotID[map[string]any]("runtime"),
		),
	)
	if err != nil {
		return Config{}, fmt.Errorf("core: options stack build failed: %w", err)
	}
	merged, err := stack.Merge()
	if err != nil {
		return Config{}, fmt.Errorf("core: options merge failed: %w", err)
	}
	resolved, err := cfgx.Build[Config](merged.Value,
		cfgx.WithDefaults(defaults),
		cfgx.WithValidator[Config]((*Config).Validate),
	)
	if err != nil {
		return Config{}, err
	}
	if err := resolved.Validate(); err != nil {
		return Config{}, err
	}
	return resolved, nil
}

func configToLayerMap(cfg Config, includeZero bool) map[string]any {
	layer := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.ServiceName) != "" {
		layer["service_name"] = cfg.ServiceName
	}
	if includeZero || strings.TrimSpace(cfg.ServerBaseURL) != "" {
		layer["server_base_url"] = cfg.ServerBaseURL
	}
	if includeZero || cfg.AuthDisabled {
		layer["auth_disabled"] = cfg.AuthDisabled
	}

	provider := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Provider.AuthURL) != "" {
		provider["auth_url"] = cfg.Provider.AuthURL
	}
	if includeZero || strings.TrimSpace(cfg.Provider.Realm) != "" {
		provider["realm"] = cfg.Provider.Realm
	}
	if includeZero || strings.TrimSpace(cfg.Provider.RequestTimeout) != "" {
		provider["request_timeout"] = cfg.Provider.RequestTimeout
	}
	if len(provider) > 0 {
		layer["provider"] = provider
	}

	session := map[string]any{}
	if includeZero || strings.TrimSpace(cfg.Session.CookieName) != "" {
		session["cookie_name"] = cfg.Session.CookieName
	}
	if includeZero || cfg.Session.CookieSecure {
		session["cookie_secure"] = cfg.Session.CookieSecure
	}
	if includeZero || strings.TrimSpace(cfg.Session.SameSite) != "" {
		session["same_site"] = cfg.Session.SameSite
	}
	if includeZero || strings.TrimSpace(cfg.Session.MaxAge) != "" {
		session["max_age"] = cfg.Session.MaxAge
	}
	if len(session) > 0 {
		layer["session"] = session
	}

	secret := map[string]any{}
	if includeZero || cfg.Secret.Iterations > 0 {
		secret["iterations"] = cfg.Secret.Iterations
	}
	if includeZero || strings.TrimSpace(cfg.Secret.KeySource) != "" {
		secret["key_source"] = cfg.Secret.KeySource
	}
	if len(secret) > 0 {
		layer["secret"] = secret
	}

	if includeZero || strings.TrimSpace(cfg.LoginStateTTL) != "" {
		layer["login_state_ttl"] = cfg.LoginStateTTL
	}
	if includeZero || strings.TrimSpace(cfg.RefreshLockTTL) != "" {
		layer["refresh_lock_ttl"] = cfg.RefreshLockTTL
	}
	return layer
}
