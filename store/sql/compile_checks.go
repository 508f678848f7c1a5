package sqlstore

import "github.com/goliatone/go-appauth/core"

var (
	_ core.AppInstanceStore       = (*AppInstanceStore)(nil)
	_ core.TokenStore             = (*TokenStore)(nil)
	_ core.AccessRequestStore     = (*AccessRequestStore)(nil)
	_ core.SessionStore           = (*SessionStore)(nil)
	_ core.StoreProvider          = (*RepositoryFactory)(nil)
	_ core.RepositoryStoreFactory = (*RepositoryFactory)(nil)
)
