package sqlstore_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"testing"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"

	"github.com/goliatone/go-appauth/core"
	appauthmigrations "github.com/goliatone/go-appauth/migrations"
	sqlstore "github.com/goliatone/go-appauth/store/sql"
)

func newSQLiteClient(t *testing.T) (*persistence.Client, func()) {
	t.Helper()

	dsn := fmt.Sprintf(
		"file:appauth-test-%d?mode=memory&cache=shared&_foreign_keys=on",
		time.Now().UnixNano(),
	)
	client, err := sqlstore.Connect(sqlstore.ConnectConfig{
		Driver: sqlstore.DriverSQLite,
		DSN:    dsn,
	})
	if err != nil {
		t.Fatalf("connect sqlite: %v", err)
	}

	ctx := context.Background()
	_, err = appauthmigrations.Register(ctx, func(_ context.Context, dialect string, _ string, fsys fs.FS) error {
		if dialect != appauthmigrations.DialectSQLite {
			return nil
		}
		client.RegisterSQLMigrations(fsys)
		return nil
	}, appauthmigrations.WithValidationTargets(appauthmigrations.DialectSQLite))
	if err != nil {
		_ = client.Close()
		t.Fatalf("register migrations: %v", err)
	}
	if err := client.Migrate(ctx); err != nil {
		_ = client.Close()
		t.Fatalf("migrate: %v", err)
	}

	return client, func() {
		_ = client.Close()
	}
}

func newFactory(t *testing.T) (*sqlstore.RepositoryFactory, func()) {
	t.Helper()
	client, cleanup := newSQLiteClient(t)
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client)
	if err != nil {
		cleanup()
		t.Fatalf("new repository factory: %v", err)
	}
	return factory, cleanup
}

func TestMigrationSmokeApplySQLite(t *testing.T) {
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	for _, table := range []string{"app_instances", "api_tokens", "cached_tokens", "access_requests", "auth_sessions"} {
		var name string
		if err := client.DB().NewRaw(
			"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?",
			table,
		).Scan(context.Background(), &name); err != nil {
			t.Fatalf("query sqlite master for %s: %v", table, err)
		}
		if name != table {
			t.Fatalf("expected %s table, got %q", table, name)
		}
	}
}

func TestAppInstanceStore_SingleRowLifecycle(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()

	store := factory.AppInstanceStore()
	if _, err := store.Get(ctx); !errors.Is(err, core.ErrAppInstanceNotFound) {
		t.Fatalf("expected not found before registration, got %v", err)
	}

	created, err := store.Insert(ctx, core.AppInstance{
		ClientID:     "client_1",
		ClientSecret: "secret_1",
		Status:       core.AppStatusPreRegistered,
	})
	if err != nil {
		t.Fatalf("insert app instance: %v", err)
	}
	if created.ClientID != "client_1" {
		t.Fatalf("expected stored client id, got %q", created.ClientID)
	}

	if _, err := store.Insert(ctx, core.AppInstance{
		ClientID:     "client_2",
		ClientSecret: "secret_2",
		Status:       core.AppStatusPreRegistered,
	}); !errors.Is(err, core.ErrAppInstanceExists) {
		t.Fatalf("expected single-row conflict, got %v", err)
	}

	updated, err := store.Update(ctx, core.AppInstance{
		ClientID:     "client_1",
		ClientSecret: "secret_1_rotated",
		Status:       core.AppStatusReady,
	})
	if err != nil {
		t.Fatalf("update app instance: %v", err)
	}
	if updated.Status != core.AppStatusReady {
		t.Fatalf("expected ready status after update, got %q", updated.Status)
	}

	current, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("get app instance: %v", err)
	}
	if current.ClientSecret != "secret_1_rotated" {
		t.Fatalf("expected rotated secret, got %q", current.ClientSecret)
	}
}

func TestTokenStore_CreateLookupListAndStatus(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()

	store := factory.TokenStore()
	created, err := store.CreateToken(ctx, core.ApiToken{
		UserID:      "usr_1",
		Name:        "ci token",
		TokenID:     "jti_1",
		TokenPrefix: "prefix_1",
		TokenHash:   "hash_1",
		Scopes:      "offline_access scope_token_user",
		Status:      core.TokenStatusActive,
	})
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected assigned token record id")
	}

	byTokenID, err := store.GetTokenByTokenID(ctx, "jti_1")
	if err != nil {
		t.Fatalf("get token by token id: %v", err)
	}
	if byTokenID.ID != created.ID {
		t.Fatalf("token id lookup mismatch: got %q want %q", byTokenID.ID, created.ID)
	}

	byPrefix, err := store.GetTokenByPrefix(ctx, "prefix_1")
	if err != nil {
		t.Fatalf("get token by prefix: %v", err)
	}
	if byPrefix.ID != created.ID {
		t.Fatalf("prefix lookup mismatch: got %q want %q", byPrefix.ID, created.ID)
	}

	if _, err := store.GetTokenByTokenID(ctx, "jti_missing"); !errors.Is(err, core.ErrTokenNotFound) {
		t.Fatalf("expected ErrTokenNotFound, got %v", err)
	}

	if _, err := store.CreateToken(ctx, core.ApiToken{
		UserID:      "usr_2",
		Name:        "other token",
		TokenID:     "jti_2",
		TokenPrefix: "prefix_2",
		TokenHash:   "hash_2",
		Scopes:      "offline_access scope_token_user",
		Status:      core.TokenStatusActive,
	}); err != nil {
		t.Fatalf("create second token: %v", err)
	}

	mine, total, err := store.ListTokens(ctx, "usr_1", 1, 10)
	if err != nil {
		t.Fatalf("list tokens: %v", err)
	}
	if total != 1 || len(mine) != 1 {
		t.Fatalf("expected one token for usr_1, got total=%d len=%d", total, len(mine))
	}
	if mine[0].UserID != "usr_1" {
		t.Fatalf("listing leaked another user's token: %q", mine[0].UserID)
	}

	created.Status = core.TokenStatusInactive
	updated, err := store.UpdateToken(ctx, created)
	if err != nil {
		t.Fatalf("update token: %v", err)
	}
	if updated.Status != core.TokenStatusInactive {
		t.Fatalf("expected inactive status, got %q", updated.Status)
	}
}

func TestTokenStore_CachedTokenUpsert(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()

	store := factory.TokenStore()
	if _, err := store.GetCachedToken(ctx, "jti_1"); !errors.Is(err, core.ErrTokenNotFound) {
		t.Fatalf("expected cache miss, got %v", err)
	}

	first, err := store.SaveCachedToken(ctx, core.CachedToken{
		TokenID:     "jti_1",
		TokenPrefix: "prefix_1",
		AccessToken: "access_v1",
		ExpiresAt:   time.Now().Add(time.Minute).UTC(),
	})
	if err != nil {
		t.Fatalf("save cached token: %v", err)
	}

	replaced, err := store.SaveCachedToken(ctx, core.CachedToken{
		TokenID:     "jti_1",
		TokenPrefix: "prefix_1",
		AccessToken: "access_v2",
		ExpiresAt:   time.Now().Add(2 * time.Minute).UTC(),
	})
	if err != nil {
		t.Fatalf("replace cached token: %v", err)
	}
	if replaced.AccessToken != "access_v2" {
		t.Fatalf("expected replaced access token, got %q", replaced.AccessToken)
	}

	cached, err := store.GetCachedToken(ctx, "jti_1")
	if err != nil {
		t.Fatalf("get cached token: %v", err)
	}
	if cached.AccessToken != "access_v2" {
		t.Fatalf("expected latest cached access token, got %q", cached.AccessToken)
	}
	if cached.ID != first.ID {
		t.Fatalf("expected upsert to keep the cache row, got %q want %q", cached.ID, first.ID)
	}

	if err := store.DeleteCachedToken(ctx, "jti_1"); err != nil {
		t.Fatalf("delete cached token: %v", err)
	}
	if _, err := store.GetCachedToken(ctx, "jti_1"); !errors.Is(err, core.ErrTokenNotFound) {
		t.Fatalf("expected cache miss after delete, got %v", err)
	}
}

func TestAccessRequestStore_LifecycleAndFilters(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()

	store := factory.AccessRequestStore()
	created, err := store.Create(ctx, core.AccessRequest{
		AppClientID:   "ext_client_1",
		AppName:       "reporting tool",
		Description:   "nightly report export",
		RedirectURI:   "https://tool.example.com/callback",
		RequestedRole: core.RolePowerUser,
		Status:        core.AccessRequestStatusDraft,
	})
	if err != nil {
		t.Fatalf("create access request: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected assigned access request id")
	}

	if _, err := store.Create(ctx, core.AccessRequest{
		AppClientID:   "ext_client_1",
		AppName:       "duplicate",
		RequestedRole: core.RoleUser,
		Status:        core.AccessRequestStatusDraft,
	}); err == nil {
		t.Fatalf("expected unique app client id violation")
	}

	byClient, err := store.GetByClientID(ctx, "ext_client_1")
	if err != nil {
		t.Fatalf("get access request by client id: %v", err)
	}
	if byClient.ID != created.ID {
		t.Fatalf("client id lookup mismatch: got %q want %q", byClient.ID, created.ID)
	}
	if _, err := store.GetByClientID(ctx, "ext_missing"); !errors.Is(err, core.ErrAccessRequestNotFound) {
		t.Fatalf("expected ErrAccessRequestNotFound, got %v", err)
	}

	approvedRole := core.RoleUser
	expiresAt := time.Now().Add(24 * time.Hour).UTC()
	byClient.Status = core.AccessRequestStatusApproved
	byClient.UserID = "usr_admin"
	byClient.ApprovedRole = &approvedRole
	byClient.ExpiresAt = expiresAt
	updated, err := store.Update(ctx, byClient)
	if err != nil {
		t.Fatalf("update access request: %v", err)
	}
	if updated.Status != core.AccessRequestStatusApproved {
		t.Fatalf("expected approved status, got %q", updated.Status)
	}
	if updated.ApprovedRole == nil || *updated.ApprovedRole != core.RoleUser {
		t.Fatalf("expected approved role user, got %v", updated.ApprovedRole)
	}

	page, err := store.List(ctx, core.AccessRequestFilter{
		Status:  core.AccessRequestStatusApproved,
		Page:    1,
		PerPage: 10,
	})
	if err != nil {
		t.Fatalf("list access requests: %v", err)
	}
	if page.Total != 1 || len(page.Items) != 1 {
		t.Fatalf("expected one approved request, got total=%d len=%d", page.Total, len(page.Items))
	}

	empty, err := store.List(ctx, core.AccessRequestFilter{
		Status:  core.AccessRequestStatusDenied,
		Page:    1,
		PerPage: 10,
	})
	if err != nil {
		t.Fatalf("list denied requests: %v", err)
	}
	if empty.Total != 0 || len(empty.Items) != 0 {
		t.Fatalf("expected no denied requests, got total=%d len=%d", empty.Total, len(empty.Items))
	}
}

func TestSessionStore_UpsertAndUserScoping(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()

	store := factory.SessionStore()
	expiresAt := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	if err := store.Save(ctx, core.SessionRecord{
		ID:        "sess_1",
		UserID:    "usr_1",
		Data:      map[string]any{"role": "user"},
		ExpiresAt: expiresAt,
	}); err != nil {
		t.Fatalf("save session: %v", err)
	}
	if err := store.Save(ctx, core.SessionRecord{
		ID:        "sess_2",
		UserID:    "usr_2",
		Data:      map[string]any{"role": "admin"},
		ExpiresAt: expiresAt,
	}); err != nil {
		t.Fatalf("save second session: %v", err)
	}

	if err := store.Save(ctx, core.SessionRecord{
		ID:        "sess_1",
		UserID:    "usr_1",
		Data:      map[string]any{"role": "power_user"},
		ExpiresAt: expiresAt,
	}); err != nil {
		t.Fatalf("upsert session: %v", err)
	}
	loaded, err := store.Get(ctx, "sess_1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if loaded.Data["role"] != "power_user" {
		t.Fatalf("expected upserted data, got %v", loaded.Data["role"])
	}

	count, err := store.CountForUser(ctx, "usr_1")
	if err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one session for usr_1, got %d", count)
	}

	ids, err := store.SessionIDsForUser(ctx, "usr_1")
	if err != nil {
		t.Fatalf("session ids for user: %v", err)
	}
	if len(ids) != 1 || ids[0] != "sess_1" {
		t.Fatalf("expected [sess_1], got %v", ids)
	}

	cleared, err := store.ClearForUser(ctx, "usr_1")
	if err != nil {
		t.Fatalf("clear sessions: %v", err)
	}
	if cleared != 1 {
		t.Fatalf("expected one cleared session, got %d", cleared)
	}
	if _, err := store.Get(ctx, "sess_1"); !errors.Is(err, sqlstore.ErrSessionNotFound) {
		t.Fatalf("expected session gone after clear, got %v", err)
	}
	if _, err := store.Get(ctx, "sess_2"); err != nil {
		t.Fatalf("expected other user's session untouched, got %v", err)
	}
}

func TestSessionStore_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	factory, cleanup := newFactory(t)
	defer cleanup()

	store := factory.SessionStore()
	now := time.Now().UTC().Truncate(time.Second)
	if err := store.Save(ctx, core.SessionRecord{
		ID:        "sess_old",
		UserID:    "usr_1",
		ExpiresAt: now.Add(-time.Minute),
	}); err != nil {
		t.Fatalf("save expired session: %v", err)
	}
	if err := store.Save(ctx, core.SessionRecord{
		ID:        "sess_live",
		UserID:    "usr_1",
		ExpiresAt: now.Add(time.Hour),
	}); err != nil {
		t.Fatalf("save live session: %v", err)
	}

	removed, err := store.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("delete expired sessions: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one expired session removed, got %d", removed)
	}
	if _, err := store.Get(ctx, "sess_live"); err != nil {
		t.Fatalf("expected live session to survive, got %v", err)
	}
}

type reversibleCipher struct{}

func (reversibleCipher) Encrypt(plaintext []byte) (string, error) {
	return "sealed:" + string(plaintext), nil
}

func (reversibleCipher) Decrypt(encoded string) ([]byte, error) {
	if !strings.HasPrefix(encoded, "sealed:") {
		return nil, fmt.Errorf("not an envelope")
	}
	return []byte(strings.TrimPrefix(encoded, "sealed:")), nil
}

func TestTokenStore_CachedTokenEncryptedAtRest(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client, sqlstore.WithSecretService(reversibleCipher{}))
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}
	store := factory.TokenStore()

	saved, err := store.SaveCachedToken(ctx, core.CachedToken{
		TokenID:     "jti_enc",
		AccessToken: "plaintext_access",
		ExpiresAt:   time.Now().UTC().Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("save cached token: %v", err)
	}
	if saved.AccessToken != "plaintext_access" {
		t.Fatalf("caller must get plaintext back, got %q", saved.AccessToken)
	}

	var stored string
	if err := factory.DB().NewRaw(
		"SELECT access_token FROM cached_tokens WHERE token_id = ?",
		"jti_enc",
	).Scan(ctx, &stored); err != nil {
		t.Fatalf("read raw row: %v", err)
	}
	if stored != "sealed:plaintext_access" {
		t.Fatalf("expected sealed value at rest, got %q", stored)
	}

	cached, err := store.GetCachedToken(ctx, "jti_enc")
	if err != nil {
		t.Fatalf("get cached token: %v", err)
	}
	if cached.AccessToken != "plaintext_access" {
		t.Fatalf("expected decrypted token, got %q", cached.AccessToken)
	}

	// an unreadable row is a cache miss, not an error the caller must untangle
	if _, err := factory.DB().NewRaw(
		"UPDATE cached_tokens SET access_token = 'garbage' WHERE token_id = ?",
		"jti_enc",
	).Exec(ctx); err != nil {
		t.Fatalf("corrupt row: %v", err)
	}
	if _, err := store.GetCachedToken(ctx, "jti_enc"); !errors.Is(err, core.ErrTokenNotFound) {
		t.Fatalf("expected cache miss for unreadable row, got %v", err)
	}
}

func TestStores_StampRowsWithInjectedClock(t *testing.T) {
	ctx := context.Background()
	client, cleanup := newSQLiteClient(t)
	defer cleanup()

	frozen := core.NewFrozenClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	factory, err := sqlstore.NewRepositoryFactoryFromPersistence(client, sqlstore.WithClock(frozen))
	if err != nil {
		t.Fatalf("new repository factory: %v", err)
	}

	if _, err := factory.TokenStore().CreateToken(ctx, core.ApiToken{
		UserID:      "usr_1",
		Name:        "ci token",
		TokenID:     "jti_clock",
		TokenPrefix: "prefix_clock",
		TokenHash:   "hash_clock",
		Scopes:      "offline_access scope_token_user",
		Status:      core.TokenStatusActive,
	}); err != nil {
		t.Fatalf("create token: %v", err)
	}
	var tokenStamp time.Time
	if err := factory.DB().NewRaw(
		"SELECT updated_at FROM api_tokens WHERE token_id = ?",
		"jti_clock",
	).Scan(ctx, &tokenStamp); err != nil {
		t.Fatalf("read token row: %v", err)
	}
	if !tokenStamp.Equal(frozen.Now()) {
		t.Fatalf("expected token row stamped at %v, got %v", frozen.Now(), tokenStamp)
	}

	if err := factory.SessionStore().Save(ctx, core.SessionRecord{
		ID:        "sess_clock",
		UserID:    "usr_1",
		Data:      map[string]any{"role": "user"},
		ExpiresAt: frozen.Now().Add(time.Hour),
	}); err != nil {
		t.Fatalf("save session: %v", err)
	}
	var sessionStamp time.Time
	if err := factory.DB().NewRaw(
		"SELECT updated_at FROM auth_sessions WHERE id = ?",
		"sess_clock",
	).Scan(ctx, &sessionStamp); err != nil {
		t.Fatalf("read session row: %v", err)
	}
	if !sessionStamp.Equal(frozen.Now()) {
		t.Fatalf("expected session row stamped at %v, got %v", frozen.Now(), sessionStamp)
	}
}
