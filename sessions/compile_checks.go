package sessions

import "github.com/goliatone/go-appauth/core"

var _ core.SessionStore = (*MemoryStore)(nil)
