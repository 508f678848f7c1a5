package core

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	glog "github.com/goliatone/go-logger/glog"
)

var (
	ErrTokenInactive    = errors.New("core: api token is inactive")
	ErrInstanceNotReady = errors.New("core: app instance is not registered")
)

const tokenPrefixLength = 12

type Service struct {
	config             Config
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
	refreshGroup       RefreshGroup
	appInstanceStore   AppInstanceStore
	tokenStore         TokenStore
	accessRequestStore AccessRequestStore
	sessionStore       SessionStore
}

type ServiceDependencies struct {
	Logger             Logger
	LoggerProvider     LoggerProvider
	MetricsRecorder    MetricsRecorder
	ErrorFactory       ErrorFactory
	ErrorMapper        ErrorMapper
	ConfigProvider     ConfigProvider
	OptionsResolver    OptionsResolver
	Clock              Clock
	IdentityClient     IdentityClient
	SecretService      SecretService
	Keyring            Keyring
	PersistenceClient  any
	RepositoryFactory  any
	LoginStateStore    LoginStateStore
	RefreshLocker      KeyedLocker
	AppInstanceStore   AppInstanceStore
	TokenStore         TokenStore
	AccessRequestStore AccessRequestStore
	SessionStore       SessionStore
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	builder := defaultServiceBuilder(cfg)
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&builder)
	}

	provider, logger := glog.Resolve("appauth", builder.loggerProvider, builder.logger)
	logger = glog.Ensure(logger)
	if provider != nil {
		if named := provider.GetLogger("appauth"); named != nil {
			logger = glog.Ensure(named)
		}
	}

	if builder.errorFactory == nil {
		builder.errorFactory = goerrors.New
	}
	if builder.metricsRecorder == nil {
		builder.metricsRecorder = NopMetricsRecorder{}
	}
	if builder.errorMapper == nil {
		builder.errorMapper = defaultErrorMapper
	}
	if builder.configProvider == nil {
		builder.configProvider = NewCfgxConfigProvider(nil)
	}
	if builder.optionsResolver == nil {
		builder.optionsResolver = GoOptionsResolver{}
	}
	if builder.clock == nil {
		builder.clock = SystemClock{}
	}

	defaults := DefaultConfig()
	loaded, err := builder.configProvider.Load(context.Background(), defaults)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}
	finalConfig, err := builder.optionsResolver.Resolve(defaults, loaded, builder.runtimeConfig)
	if err != nil {
		return nil, mapBuildError(builder.errorMapper, err)
	}

	if builder.loginStateStore == nil {
		builder.loginStateStore = NewMemoryLoginStateStore(finalConfig.LoginStateDuration(), builder.clock)
	}
	if builder.refreshLocker == nil {
		builder.refreshLocker = NewKeyedMutex()
	}

	if builder.repositoryFactory != nil {
		if storeFactory, ok := builder.repositoryFactory.(RepositoryStoreFactory); ok {
			storeProvider, buildErr := storeFactory.BuildStores(builder.persistenceClient)
			if buildErr != nil {
				return nil, mapBuildError(builder.errorMapper, buildErr)
			}
			if storeProvider != nil {
				applyStoreProvider(&builder, storeProvider)
			}
		} else if storeProvider, ok := builder.repositoryFactory.(StoreProvider); ok {
			applyStoreProvider(&builder, storeProvider)
		}
	}

	return &Service{
		config:             finalConfig,
		logger:             logger,
		loggerProvider:     provider,
		metricsRecorder:    builder.metricsRecorder,
		errorFactory:       builder.errorFactory,
		errorMapper:        builder.errorMapper,
		configProvider:     builder.configProvider,
		optionsResolver:    builder.optionsResolver,
		clock:              builder.clock,
		identityClient:     builder.identityClient,
		secretService:      builder.secretService,
		keyring:            builder.keyring,
		persistenceClient:  builder.persistenceClient,
		repositoryFactory:  builder.repositoryFactory,
		loginStateStore:    builder.loginStateStore,
		refreshLocker:      builder.refreshLocker,
		appInstanceStore:   builder.appInstanceStore,
		tokenStore:         builder.tokenStore,
		accessRequestStore: builder.accessRequestStore,
		sessionStore:       builder.sessionStore,
	}, nil
}

func Setup(cfg Config, opts ...Option) (*Service, error) {
	return NewService(cfg, opts...)
}

func applyStoreProvider(builder *serviceBuilder, provider StoreProvider) {
	if builder.appInstanceStore == nil {
		builder.appInstanceStore = provider.AppInstanceStore()
	}
	if builder.tokenStore == nil {
		builder.tokenStore = provider.TokenStore()
	}
	if builder.accessRequestStore == nil {
		builder.accessRequestStore = provider.AccessRequestStore()
	}
	if builder.sessionStore == nil {
		builder.sessionStore = provider.SessionStore()
	}
}

func mapBuildError(mapper ErrorMapper, err error) error {
	if err == nil {
		return nil
	}
	if mapper == nil {
		return err
	}
	mapped := mapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func (s *Service) Config() Config {
	if s == nil {
		return Config{}
	}
	return s.config
}

func (s *Service) Dependencies() ServiceDependencies {
	if s == nil {
		return ServiceDependencies{}
	}
	return ServiceDependencies{
		Logger:             s.logger,
		LoggerProvider:     s.loggerProvider,
		MetricsRecorder:    s.metricsRecorder,
		ErrorFactory:       s.errorFactory,
		ErrorMapper:        s.errorMapper,
		ConfigProvider:     s.configProvider,
		OptionsResolver:    s.optionsResolver,
		Clock:              s.clock,
		IdentityClient:     s.identityClient,
		SecretService:      s.secretService,
		Keyring:            s.keyring,
		PersistenceClient:  s.persistenceClient,
		RepositoryFactory:  s.repositoryFactory,
		LoginStateStore:    s.loginStateStore,
		RefreshLocker:      s.refreshLocker,
		AppInstanceStore:   s.appInstanceStore,
		TokenStore:         s.tokenStore,
		AccessRequestStore: s.accessRequestStore,
		SessionStore:       s.sessionStore,
	}
}

// BeginLogin starts a PKCE authorization-code flow. The verifier stays
// server side in the login state store; only the S256 challenge travels in
// the authorization URL.
func (s *Service) BeginLogin(ctx context.Context, req BeginLoginRequest) (response BeginLoginResponse, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		s.observeOperation(ctx, startedAt, "begin_login", err, fields)
	}()

	if s == nil || s.identityClient == nil {
		err = s.mapError(fmt.Errorf("core: identity client is required"))
		return BeginLoginResponse{}, err
	}
	instance, err := s.readyInstance(ctx)
	if err != nil {
		return BeginLoginResponse{}, err
	}
	fields["client_id"] = instance.ClientID

	redirectURI := strings.TrimSpace(req.RedirectURI)
	if redirectURI == "" {
		redirectURI = strings.TrimRight(s.config.ServerBaseURL, "/") + "/auth/callback"
	}

	stateID, err := generateLoginStateID()
	if err != nil {
		err = s.mapError(err)
		return BeginLoginResponse{}, err
	}
	pkce, err := GeneratePKCEPair()
	if err != nil {
		err = s.mapError(err)
		return BeginLoginResponse{}, err
	}

	scopes := []string{"openid", "email", "profile", "roles", scopeOfflineAccess}
	for _, scope := range req.ExtraScopes {
		scope = strings.TrimSpace(scope)
		if scope != "" && !containsString(scopes, scope) {
			scopes = append(scopes, scope)
		}
	}

	now := s.clock.Now()
	if saveErr := s.loginStateStore.Put(ctx, LoginState{
		ID:           stateID,
		CodeVerifier: pkce.Verifier,
		RedirectURI:  redirectURI,
		Scopes:       scopes,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.config.LoginStateDuration()),
	}); saveErr != nil {
		err = s.mapError(saveErr)
		return BeginLoginResponse{}, err
	}

	response = BeginLoginResponse{
		AuthorizationURL: s.identityClient.AuthorizationURL(instance.ClientID, redirectURI, stateID, pkce.Challenge, scopes),
		State:            stateID,
	}
	return response, nil
}

// CompleteLogin redeems the provider callback. The state is consumed before
// the code exchange, so a replayed callback fails before reaching the
// provider.
func (s *Service) CompleteLogin(ctx context.Context, req CompleteLoginRequest) (result LoginResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"state": req.State,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "complete_login", err, fields)
	}()

	if s == nil || s.identityClient == nil {
		err = s.mapError(fmt.Errorf("core: identity client is required"))
		return LoginResult{}, err
	}
	if strings.TrimSpace(req.Code) == "" {
		err = s.mapError(fmt.Errorf("core: authorization code is required"))
		return LoginResult{}, err
	}

	state, err := s.loginStateStore.Consume(ctx, req.State)
	if err != nil {
		err = s.mapError(err)
		return LoginResult{}, err
	}
	instance, err := s.readyInstance(ctx)
	if err != nil {
		return LoginResult{}, err
	}
	fields["client_id"] = instance.ClientID

	tokens, err := s.identityClient.ExchangeAuthCode(ctx, ExchangeAuthCodeRequest{
		ClientID:     instance.ClientID,
		ClientSecret: instance.ClientSecret,
		Code:         req.Code,
		RedirectURI:  state.RedirectURI,
		CodeVerifier: state.CodeVerifier,
	})
	if err != nil {
		err = s.mapError(err)
		return LoginResult{}, err
	}

	claims, err := DecodeAccessClaims(tokens.AccessToken)
	if err != nil {
		err = s.mapError(err)
		return LoginResult{}, err
	}
	if err = claims.ValidateForAudience(instance.ClientID, s.clock.Now()); err != nil {
		err = s.mapError(err)
		return LoginResult{}, err
	}
	role, roleErr := claims.RoleForClient(instance.ClientID)
	if roleErr != nil {
		// first-party users without an assigned resource role land at the
		// lowest tier until an admin grants more
		role = RoleUser
	}

	fields["user_id"] = claims.Subject
	result = LoginResult{
		Tokens:   tokens,
		UserID:   claims.Subject,
		Username: claims.PreferredUsername,
		Role:     role,
	}
	return result, nil
}

// RefreshSessionTokens exchanges a refresh token for a fresh token pair.
// Callers refreshing the same token concurrently join a single provider call
// and share its result.
func (s *Service) RefreshSessionTokens(ctx context.Context, refreshToken string) (pair TokenPair, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		s.observeOperation(ctx, startedAt, "refresh_session_tokens", err, fields)
	}()

	if s == nil || s.identityClient == nil {
		err = s.mapError(fmt.Errorf("core: identity client is required"))
		return TokenPair{}, err
	}
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		err = s.mapError(fmt.Errorf("core: refresh token is required"))
		return TokenPair{}, err
	}
	instance, err := s.readyInstance(ctx)
	if err != nil {
		return TokenPair{}, err
	}

	// no per-key lock here: the singleflight must see all concurrent
	// callers so rotation hands every one of them the same fresh pair
	key := digestKey(refreshToken)
	pair, _, doErr := s.refreshGroup.Do(key, func() (TokenPair, error) {
		return s.identityClient.RefreshToken(ctx, RefreshTokenRequest{
			ClientID:     instance.ClientID,
			ClientSecret: instance.ClientSecret,
			RefreshToken: refreshToken,
		})
	})
	if doErr != nil {
		err = s.mapError(doErr)
		return TokenPair{}, err
	}
	return pair, nil
}

// CreateApiToken mints a long-lived offline token bound to the session
// user's identity via token exchange, records its registry row, and returns
// the raw token exactly once.
func (s *Service) CreateApiToken(ctx context.Context, req CreateApiTokenRequest) (created CreatedApiToken, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"token_name": req.Name,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "create_api_token", err, fields)
	}()

	if s == nil || s.identityClient == nil || s.tokenStore == nil {
		err = s.mapError(fmt.Errorf("core: identity client and token store are required"))
		return CreatedApiToken{}, err
	}
	if strings.TrimSpace(req.AccessToken) == "" {
		err = s.mapError(fmt.Errorf("core: session access token is required"))
		return CreatedApiToken{}, err
	}
	scope := req.Scope
	if !scope.Valid() {
		err = s.mapError(fmt.Errorf("core: invalid token scope %q", string(req.Scope)))
		return CreatedApiToken{}, err
	}
	instance, err := s.readyInstance(ctx)
	if err != nil {
		return CreatedApiToken{}, err
	}

	pair, err := s.identityClient.ExchangeAppToken(ctx, ExchangeAppTokenRequest{
		ClientID:     instance.ClientID,
		ClientSecret: instance.ClientSecret,
		SubjectToken: req.AccessToken,
		AudienceID:   instance.ClientID,
		Scopes:       []string{scopeOfflineAccess, scope.ScopeToken()},
	})
	if err != nil {
		err = s.mapError(err)
		return CreatedApiToken{}, err
	}
	offlineToken := strings.TrimSpace(pair.RefreshToken)
	if offlineToken == "" {
		err = s.mapError(fmt.Errorf("core: provider returned no offline token"))
		return CreatedApiToken{}, err
	}

	claims, err := DecodeAccessClaims(offlineToken)
	if err != nil {
		err = s.mapError(err)
		return CreatedApiToken{}, err
	}
	if strings.TrimSpace(claims.TokenID) == "" {
		err = s.mapError(fmt.Errorf("core: offline token is missing jti"))
		return CreatedApiToken{}, err
	}

	now := s.clock.Now()
	hash := digestKey(offlineToken)
	token := ApiToken{
		UserID:      claims.Subject,
		Name:        strings.TrimSpace(req.Name),
		TokenID:     claims.TokenID,
		TokenPrefix: hash[:tokenPrefixLength],
		TokenHash:   hash,
		Scopes:      strings.Join([]string{scopeOfflineAccess, scope.ScopeToken()}, " "),
		Status:      TokenStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	token, err = s.tokenStore.CreateToken(ctx, token)
	if err != nil {
		err = s.mapError(err)
		return CreatedApiToken{}, err
	}

	fields["token_id"] = token.TokenID
	fields["user_id"] = token.UserID
	created = CreatedApiToken{Token: token, Secret: offlineToken}
	return created, nil
}

// UpdateApiTokenStatus toggles a token between active and inactive. Only the
// owning user's tokens are reachable.
func (s *Service) UpdateApiTokenStatus(ctx context.Context, userID, id string, status TokenStatus) (token ApiToken, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"user_id": userID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "update_api_token_status", err, fields)
	}()

	if s == nil || s.tokenStore == nil {
		err = s.mapError(fmt.Errorf("core: token store is required"))
		return ApiToken{}, err
	}
	token, err = s.tokenStore.GetTokenByID(ctx, id)
	if err != nil {
		err = s.mapError(err)
		return ApiToken{}, err
	}
	if token.UserID != strings.TrimSpace(userID) {
		err = s.mapError(ErrTokenNotFound)
		return ApiToken{}, err
	}
	if token.Status == status {
		return token, nil
	}
	token.Status = status
	token.UpdatedAt = s.clock.Now()
	token, err = s.tokenStore.UpdateToken(ctx, token)
	if err != nil {
		err = s.mapError(err)
		return ApiToken{}, err
	}
	fields["token_id"] = token.TokenID
	return token, nil
}

// ListApiTokens pages through a user's token registry rows.
func (s *Service) ListApiTokens(ctx context.Context, userID string, page, perPage int) ([]ApiToken, int, error) {
	if s == nil || s.tokenStore == nil {
		return nil, 0, s.mapError(fmt.Errorf("core: token store is required"))
	}
	tokens, total, err := s.tokenStore.ListTokens(ctx, strings.TrimSpace(userID), page, perPage)
	if err != nil {
		return nil, 0, s.mapError(err)
	}
	return tokens, total, nil
}

// ValidateBearerToken authenticates a bearer credential. Offline API tokens
// issued by this instance resolve through the token registry and the cached
// exchanged access token; anything else must carry this client's azp and
// valid resource roles.
func (s *Service) ValidateBearerToken(ctx context.Context, bearer string) (validated ValidatedToken, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{}
	defer func() {
		s.observeOperation(ctx, startedAt, "validate_bearer_token", err, fields)
	}()

	bearer = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(bearer), "Bearer "))
	if bearer == "" {
		err = NewUnauthenticatedError()
		return ValidatedToken{}, err
	}
	if s == nil || s.identityClient == nil {
		err = s.mapError(fmt.Errorf("core: identity client is required"))
		return ValidatedToken{}, err
	}
	instance, err := s.readyInstance(ctx)
	if err != nil {
		return ValidatedToken{}, err
	}

	claims, err := DecodeAccessClaims(bearer)
	if err != nil {
		err = s.mapError(err)
		return ValidatedToken{}, err
	}

	if s.tokenStore != nil && strings.TrimSpace(claims.TokenID) != "" {
		if token, lookupErr := s.tokenStore.GetTokenByTokenID(ctx, claims.TokenID); lookupErr == nil {
			validated, err = s.validateOfflineToken(ctx, instance, token, bearer, fields)
			return validated, err
		}
	}

	return s.validateExternalToken(ctx, instance, bearer, claims, fields)
}

func (s *Service) validateOfflineToken(
	ctx context.Context,
	instance AppInstance,
	token ApiToken,
	bearer string,
	fields map[string]any,
) (ValidatedToken, error) {
	fields["token_id"] = token.TokenID
	fields["user_id"] = token.UserID

	if token.Status != TokenStatusActive {
		return ValidatedToken{}, s.mapError(ErrTokenInactive)
	}
	if digestKey(bearer) != token.TokenHash {
		return ValidatedToken{}, NewUnauthenticatedError()
	}

	scope, scopeErr := TokenScopeFromScope(token.Scopes)
	if scopeErr != nil {
		return ValidatedToken{}, s.mapError(scopeErr)
	}

	accessToken, err := s.exchangedAccessToken(ctx, instance, token, bearer)
	if err != nil {
		return ValidatedToken{}, err
	}

	accessClaims, err := DecodeAccessClaims(accessToken)
	if err != nil {
		return ValidatedToken{}, s.mapError(err)
	}

	return ValidatedToken{
		AccessToken: accessToken,
		UserID:      accessClaims.Subject,
		Username:    accessClaims.PreferredUsername,
		Role:        scope.Role(),
		Scope:       &scope,
	}, nil
}

// exchangedAccessToken returns the cached short-lived access token for an
// offline token, refreshing it through the provider when absent or expired.
// All callers for the same token id funnel into one refresh.
func (s *Service) exchangedAccessToken(ctx context.Context, instance AppInstance, token ApiToken, bearer string) (string, error) {
	now := s.clock.Now()
	if cached, err := s.tokenStore.GetCachedToken(ctx, token.TokenID); err == nil && !cached.Expired(now) {
		return cached.AccessToken, nil
	}

	var accessToken string
	lockErr := s.refreshLocker.WithLock(ctx, token.TokenID, func() error {
		// re-check inside the lock so latecomers reuse the winner's write
		if cached, err := s.tokenStore.GetCachedToken(ctx, token.TokenID); err == nil && !cached.Expired(s.clock.Now()) {
			accessToken = cached.AccessToken
			return nil
		}

		pair, _, doErr := s.refreshGroup.Do(token.TokenID, func() (TokenPair, error) {
			return s.identityClient.RefreshToken(ctx, RefreshTokenRequest{
				ClientID:     instance.ClientID,
				ClientSecret: instance.ClientSecret,
				RefreshToken: bearer,
			})
		})
		if doErr != nil {
			return doErr
		}

		expiresAt := s.clock.Now().Add(5 * time.Minute)
		if pair.ExpiresAt != nil {
			expiresAt = *pair.ExpiresAt
		}
		if _, saveErr := s.tokenStore.SaveCachedToken(ctx, CachedToken{
			TokenID:     token.TokenID,
			TokenPrefix: token.TokenPrefix,
			AccessToken: pair.AccessToken,
			ExpiresAt:   expiresAt,
		}); saveErr != nil {
			return saveErr
		}
		accessToken = pair.AccessToken
		return nil
	})
	if lockErr != nil {
		return "", s.mapError(lockErr)
	}
	return accessToken, nil
}

func (s *Service) validateExternalToken(
	ctx context.Context,
	instance AppInstance,
	bearer string,
	claims AccessClaims,
	fields map[string]any,
) (ValidatedToken, error) {
	now := s.clock.Now()
	azp := strings.TrimSpace(claims.AuthorizedParty)
	fields["client_id"] = azp
	fields["user_id"] = claims.Subject

	if azp == instance.ClientID {
		if err := claims.ValidateForAudience(instance.ClientID, now); err != nil {
			return ValidatedToken{}, s.mapError(err)
		}
		role, err := claims.RoleForClient(instance.ClientID)
		if err != nil {
			return ValidatedToken{}, s.mapError(err)
		}
		return ValidatedToken{
			AccessToken: bearer,
			UserID:      claims.Subject,
			Username:    claims.PreferredUsername,
			Role:        role,
		}, nil
	}

	// tokens minted for an approved external app are exchanged into this
	// audience before use
	if s.accessRequestStore == nil {
		return ValidatedToken{}, NewUnauthenticatedError()
	}
	request, err := s.accessRequestStore.GetByClientID(ctx, azp)
	if err != nil || request.Status != AccessRequestStatusApproved || request.ApprovedRole == nil {
		return ValidatedToken{}, NewUnauthenticatedError()
	}
	if claims.Expired(now) {
		return ValidatedToken{}, s.mapError(fmt.Errorf("core: access token expired"))
	}

	pair, err := s.identityClient.ExchangeAppToken(ctx, ExchangeAppTokenRequest{
		ClientID:     instance.ClientID,
		ClientSecret: instance.ClientSecret,
		SubjectToken: bearer,
		AudienceID:   instance.ClientID,
	})
	if err != nil {
		return ValidatedToken{}, s.mapError(err)
	}
	exchanged, err := DecodeAccessClaims(pair.AccessToken)
	if err != nil {
		return ValidatedToken{}, s.mapError(err)
	}

	role := *request.ApprovedRole
	if granted, roleErr := exchanged.RoleForClient(instance.ClientID); roleErr == nil && role.HasAccessTo(granted) {
		// never exceed what approval allows, even if the provider grants more
		role = granted
	}

	return ValidatedToken{
		AccessToken: pair.AccessToken,
		UserID:      exchanged.Subject,
		Username:    exchanged.PreferredUsername,
		Role:        role,
	}, nil
}

// Authorize enforces the role hierarchy for an already validated caller.
// Rejections are logged at warn level with the request path and carry a
// generic error so callers never learn the tier an endpoint demands.
// Deployments running without authentication carry no roles at all, so every
// check passes there.
func (s *Service) Authorize(ctx context.Context, validated ValidatedToken, required Role, requestPath string) error {
	if s != nil && s.config.AuthDisabled {
		return nil
	}
	if validated.Scope != nil {
		requiredScope, err := ParseTokenScope(string(required))
		if err != nil {
			// endpoint requires a role above what API tokens can ever carry
			return s.denyAuthorization(ctx, validated, requestPath)
		}
		if !validated.Scope.HasAccessTo(requiredScope) {
			return s.denyAuthorization(ctx, validated, requestPath)
		}
		return nil
	}
	if !validated.Role.HasAccessTo(required) {
		return s.denyAuthorization(ctx, validated, requestPath)
	}
	return nil
}

func (s *Service) denyAuthorization(ctx context.Context, validated ValidatedToken, requestPath string) error {
	s.logWarn(ctx, "authorization denied", map[string]any{
		"path":    strings.TrimSpace(requestPath),
		"user_id": validated.UserID,
	})
	return NewAuthorizationError()
}

func (s *Service) readyInstance(ctx context.Context) (AppInstance, error) {
	instance, err := s.Instance(ctx)
	if err != nil {
		return AppInstance{}, err
	}
	if instance.Status == AppStatusSetup {
		return AppInstance{}, s.mapError(ErrInstanceNotReady)
	}
	return instance, nil
}

func (s *Service) mapError(err error) error {
	if err == nil {
		return nil
	}
	if s == nil || s.errorMapper == nil {
		return err
	}
	mapped := s.errorMapper(err)
	if mapped == nil {
		return err
	}
	return mapped
}

func digestKey(value string) string {
	digest := sha256.Sum256([]byte(value))
	return hex.EncodeToString(digest[:])
}

func containsString(values []string, value string) bool {
	for _, candidate := range values {
		if candidate == value {
			return true
		}
	}
	return false
}
