package sqlstore

import (
	"fmt"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-appauth/core"
)

type RepositoryFactory struct {
	db      *bun.DB
	secrets core.SecretService
	clock   core.Clock

	appInstanceStore   *AppInstanceStore
	tokenStore         *TokenStore
	accessRequestStore *AccessRequestStore
	sessionStore       *SessionStore
}

type FactoryOption func(*RepositoryFactory)

// WithSecretService encrypts cached access tokens at rest. Without it the
// stores persist token material verbatim.
func WithSecretService(secrets core.SecretService) FactoryOption {
	return func(f *RepositoryFactory) {
		f.secrets = secrets
	}
}

// WithClock stamps persisted rows through the given clock instead of the
// system time.
func WithClock(clock core.Clock) FactoryOption {
	return func(f *RepositoryFactory) {
		f.clock = clock
	}
}

func NewRepositoryFactory(opts ...FactoryOption) *RepositoryFactory {
	factory := &RepositoryFactory{}
	for _, opt := range opts {
		if opt != nil {
			opt(factory)
		}
	}
	if factory.clock == nil {
		factory.clock = core.SystemClock{}
	}
	return factory
}

func NewRepositoryFactoryFromPersistence(client *persistence.Client, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildStores(client); err != nil {
		return nil, err
	}
	return factory, nil
}

func NewRepositoryFactoryFromDB(db *bun.DB, opts ...FactoryOption) (*RepositoryFactory, error) {
	factory := NewRepositoryFactory(opts...)
	if _, err := factory.BuildStores(db); err != nil {
		return nil, err
	}
	return factory, nil
}

func (f *RepositoryFactory) BuildStores(persistenceClient any) (core.StoreProvider, error) {
	if f == nil {
		return nil, fmt.Errorf("sqlstore: repository factory is nil")
	}
	if f.db == nil {
		db, err := resolveBunDB(persistenceClient)
		if err != nil {
			return nil, err
		}
		f.db = db
	}
	if f.appInstanceStore != nil && f.tokenStore != nil {
		return f, nil
	}
	if err := f.initStores(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *RepositoryFactory) AppInstanceStore() core.AppInstanceStore {
	if f == nil {
		return nil
	}
	return f.appInstanceStore
}

func (f *RepositoryFactory) TokenStore() core.TokenStore {
	if f == nil {
		return nil
	}
	return f.tokenStore
}

func (f *RepositoryFactory) AccessRequestStore() core.AccessRequestStore {
	if f == nil {
		return nil
	}
	return f.accessRequestStore
}

func (f *RepositoryFactory) SessionStore() core.SessionStore {
	if f == nil {
		return nil
	}
	return f.sessionStore
}

func (f *RepositoryFactory) DB() *bun.DB {
	if f == nil {
		return nil
	}
	return f.db
}

func (f *RepositoryFactory) initStores() error {
	appInstanceRepo := repository.NewRepository[*appInstanceRecord](f.db, appInstanceHandlers())
	if validator, ok := appInstanceRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid app instance repository wiring: %w", err)
		}
	}

	tokenRepo := repository.NewRepository[*apiTokenRecord](f.db, apiTokenHandlers())
	if validator, ok := tokenRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid api token repository wiring: %w", err)
		}
	}

	cachedTokenRepo := repository.NewRepository[*cachedTokenRecord](f.db, cachedTokenHandlers())
	if validator, ok := cachedTokenRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid cached token repository wiring: %w", err)
		}
	}

	accessRequestRepo := repository.NewRepository[*accessRequestRecord](f.db, accessRequestHandlers())
	if validator, ok := accessRequestRepo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("sqlstore: invalid access request repository wiring: %w", err)
		}
	}

	f.appInstanceStore = &AppInstanceStore{
		db:    f.db,
		repo:  appInstanceRepo,
		clock: f.clock,
	}
	f.tokenStore = &TokenStore{
		db:      f.db,
		tokens:  tokenRepo,
		cached:  cachedTokenRepo,
		secrets: f.secrets,
		clock:   f.clock,
	}
	f.accessRequestStore = &AccessRequestStore{
		db:    f.db,
		repo:  accessRequestRepo,
		clock: f.clock,
	}
	f.sessionStore = &SessionStore{db: f.db, clock: f.clock}

	return nil
}

func stamp(clock core.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now().UTC()
}

func resolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}
