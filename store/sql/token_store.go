package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-appauth/core"
)

type TokenStore struct {
	db      *bun.DB
	tokens  repository.Repository[*apiTokenRecord]
	cached  repository.Repository[*cachedTokenRecord]
	secrets core.SecretService
	clock   core.Clock
}

func (s *TokenStore) sealAccessToken(plaintext string) (string, error) {
	if s.secrets == nil || plaintext == "" {
		return plaintext, nil
	}
	return s.secrets.Encrypt([]byte(plaintext))
}

// openAccessToken reports ok=false when the stored value cannot be decrypted.
// An unreadable cached token is a cache miss: the refresh path rewrites the
// row with a fresh, readable one.
func (s *TokenStore) openAccessToken(stored string) (string, bool) {
	if s.secrets == nil || stored == "" {
		return stored, true
	}
	plaintext, err := s.secrets.Decrypt(stored)
	if err != nil {
		return "", false
	}
	return string(plaintext), true
}

func (s *TokenStore) CreateToken(ctx context.Context, token core.ApiToken) (core.ApiToken, error) {
	if s == nil || s.tokens == nil {
		return core.ApiToken{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	if strings.TrimSpace(token.UserID) == "" {
		return core.ApiToken{}, fmt.Errorf("sqlstore: token user id is required")
	}
	if strings.TrimSpace(token.TokenID) == "" {
		return core.ApiToken{}, fmt.Errorf("sqlstore: token id claim is required")
	}

	record := newApiTokenRecord(token, stamp(s.clock))
	created, err := s.tokens.Create(ctx, record)
	if err != nil {
		return core.ApiToken{}, err
	}
	return created.toDomain(), nil
}

func (s *TokenStore) GetTokenByID(ctx context.Context, id string) (core.ApiToken, error) {
	if s == nil || s.tokens == nil {
		return core.ApiToken{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return core.ApiToken{}, core.ErrTokenNotFound
	}
	record, err := s.tokens.GetByID(ctx, trimmed)
	if err != nil {
		if isNoRows(err) {
			return core.ApiToken{}, core.ErrTokenNotFound
		}
		return core.ApiToken{}, err
	}
	return record.toDomain(), nil
}

func (s *TokenStore) GetTokenByTokenID(ctx context.Context, tokenID string) (core.ApiToken, error) {
	return s.findToken(ctx, "token_id", tokenID)
}

func (s *TokenStore) GetTokenByPrefix(ctx context.Context, prefix string) (core.ApiToken, error) {
	return s.findToken(ctx, "token_prefix", prefix)
}

func (s *TokenStore) findToken(ctx context.Context, column, value string) (core.ApiToken, error) {
	if s == nil || s.tokens == nil {
		return core.ApiToken{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return core.ApiToken{}, core.ErrTokenNotFound
	}
	records, _, err := s.tokens.List(ctx,
		repository.SelectBy(column, "=", trimmed),
	)
	if err != nil {
		return core.ApiToken{}, err
	}
	if len(records) == 0 {
		return core.ApiToken{}, core.ErrTokenNotFound
	}
	return records[0].toDomain(), nil
}

func (s *TokenStore) ListTokens(ctx context.Context, userID string, page, perPage int) ([]core.ApiToken, int, error) {
	if s == nil || s.tokens == nil {
		return nil, 0, fmt.Errorf("sqlstore: token store is not configured")
	}
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	selectors := []repository.SelectCriteria{
		repository.OrderBy("created_at DESC"),
		repository.SelectPaginate(perPage, (page-1)*perPage),
	}
	if trimmed := strings.TrimSpace(userID); trimmed != "" {
		selectors = append(selectors, repository.SelectBy("user_id", "=", trimmed))
	}

	records, total, err := s.tokens.List(ctx, selectors...)
	if err != nil {
		return nil, 0, err
	}
	tokens := make([]core.ApiToken, 0, len(records))
	for _, record := range records {
		tokens = append(tokens, record.toDomain())
	}
	return tokens, total, nil
}

func (s *TokenStore) UpdateToken(ctx context.Context, token core.ApiToken) (core.ApiToken, error) {
	if s == nil || s.tokens == nil {
		return core.ApiToken{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	trimmedID := strings.TrimSpace(token.ID)
	if trimmedID == "" {
		return core.ApiToken{}, core.ErrTokenNotFound
	}
	record, err := s.tokens.GetByID(ctx, trimmedID)
	if err != nil {
		if isNoRows(err) {
			return core.ApiToken{}, core.ErrTokenNotFound
		}
		return core.ApiToken{}, err
	}

	record.Name = token.Name
	record.Status = string(token.Status)
	record.UpdatedAt = stamp(s.clock)

	updated, err := s.tokens.Update(ctx, record, repository.UpdateByID(trimmedID))
	if err != nil {
		return core.ApiToken{}, err
	}
	return updated.toDomain(), nil
}

func (s *TokenStore) GetCachedToken(ctx context.Context, tokenID string) (core.CachedToken, error) {
	if s == nil || s.cached == nil {
		return core.CachedToken{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	trimmed := strings.TrimSpace(tokenID)
	if trimmed == "" {
		return core.CachedToken{}, core.ErrTokenNotFound
	}
	records, _, err := s.cached.List(ctx,
		repository.SelectBy("token_id", "=", trimmed),
	)
	if err != nil {
		return core.CachedToken{}, err
	}
	if len(records) == 0 {
		return core.CachedToken{}, core.ErrTokenNotFound
	}
	cached := records[0].toDomain()
	plaintext, ok := s.openAccessToken(cached.AccessToken)
	if !ok {
		return core.CachedToken{}, core.ErrTokenNotFound
	}
	cached.AccessToken = plaintext
	return cached, nil
}

// SaveCachedToken upserts the exchanged access token keyed by the offline
// token's jti so a later validation can skip the provider round trip.
func (s *TokenStore) SaveCachedToken(ctx context.Context, cached core.CachedToken) (core.CachedToken, error) {
	if s == nil || s.db == nil || s.cached == nil {
		return core.CachedToken{}, fmt.Errorf("sqlstore: token store is not configured")
	}
	trimmed := strings.TrimSpace(cached.TokenID)
	if trimmed == "" {
		return core.CachedToken{}, fmt.Errorf("sqlstore: cached token id claim is required")
	}

	sealed, err := s.sealAccessToken(cached.AccessToken)
	if err != nil {
		return core.CachedToken{}, err
	}
	toStore := cached
	toStore.AccessToken = sealed

	now := stamp(s.clock)
	var saved core.CachedToken
	err = s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var existing []*cachedTokenRecord
		if selectErr := tx.NewSelect().
			Model(&existing).
			Where("token_id = ?", trimmed).
			Scan(ctx); selectErr != nil && !isNoRows(selectErr) {
			return selectErr
		}

		if len(existing) > 0 {
			record := existing[0]
			record.TokenPrefix = toStore.TokenPrefix
			record.AccessToken = toStore.AccessToken
			record.ExpiresAt = toStore.ExpiresAt
			record.UpdatedAt = now
			if _, updateErr := tx.NewUpdate().
				Model(record).
				Where("id = ?", record.ID).
				Exec(ctx); updateErr != nil {
				return updateErr
			}
			saved = record.toDomain()
			return nil
		}

		record := newCachedTokenRecord(toStore, now)
		inserted, createErr := s.cached.CreateTx(ctx, tx, record)
		if createErr != nil {
			return createErr
		}
		saved = inserted.toDomain()
		return nil
	})
	if err != nil {
		return core.CachedToken{}, err
	}
	saved.AccessToken = cached.AccessToken
	return saved, nil
}

func (s *TokenStore) DeleteCachedToken(ctx context.Context, tokenID string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: token store is not configured")
	}
	trimmed := strings.TrimSpace(tokenID)
	if trimmed == "" {
		return nil
	}
	_, err := s.db.NewDelete().
		Model((*cachedTokenRecord)(nil)).
		Where("token_id = ?", trimmed).
		Exec(ctx)
	return err
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
