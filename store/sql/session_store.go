package sqlstore

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	"github.com/goliatone/go-appauth/core"
)

var ErrSessionNotFound = fmt.Errorf("sqlstore: session not found")

type SessionStore struct {
	db    *bun.DB
	clock core.Clock
}

// Save upserts the session row keyed by session ID.
func (s *SessionStore) Save(ctx context.Context, record core.SessionRecord) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: session store is not configured")
	}
	trimmedID := strings.TrimSpace(record.ID)
	if trimmedID == "" {
		return fmt.Errorf("sqlstore: session id is required")
	}
	record.ID = trimmedID

	row := newAuthSessionRecord(record, stamp(s.clock))
	_, err := s.db.NewInsert().
		Model(row).
		On("CONFLICT (id) DO UPDATE").
		Set("user_id = EXCLUDED.user_id").
		Set("data = EXCLUDED.data").
		Set("expires_at = EXCLUDED.expires_at").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return err
}

func (s *SessionStore) Get(ctx context.Context, id string) (core.SessionRecord, error) {
	if s == nil || s.db == nil {
		return core.SessionRecord{}, fmt.Errorf("sqlstore: session store is not configured")
	}
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return core.SessionRecord{}, ErrSessionNotFound
	}
	row := &authSessionRecord{}
	err := s.db.NewSelect().
		Model(row).
		Where("id = ?", trimmed).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return core.SessionRecord{}, ErrSessionNotFound
		}
		return core.SessionRecord{}, err
	}
	return row.toDomain(), nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: session store is not configured")
	}
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil
	}
	_, err := s.db.NewDelete().
		Model((*authSessionRecord)(nil)).
		Where("id = ?", trimmed).
		Exec(ctx)
	return err
}

func (s *SessionStore) DeleteExpired(ctx context.Context, before time.Time) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: session store is not configured")
	}
	result, err := s.db.NewDelete().
		Model((*authSessionRecord)(nil)).
		Where("expires_at <= ?", before.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(affected), nil
}

func (s *SessionStore) SessionIDsForUser(ctx context.Context, userID string) ([]string, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: session store is not configured")
	}
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return nil, nil
	}
	var ids []string
	err := s.db.NewSelect().
		Model((*authSessionRecord)(nil)).
		Column("id").
		Where("user_id = ?", trimmed).
		OrderExpr("created_at ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *SessionStore) ClearForUser(ctx context.Context, userID string) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: session store is not configured")
	}
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return 0, nil
	}
	result, err := s.db.NewDelete().
		Model((*authSessionRecord)(nil)).
		Where("user_id = ?", trimmed).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(affected), nil
}

func (s *SessionStore) CountForUser(ctx context.Context, userID string) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("sqlstore: session store is not configured")
	}
	trimmed := strings.TrimSpace(userID)
	if trimmed == "" {
		return 0, nil
	}
	count, err := s.db.NewSelect().
		Model((*authSessionRecord)(nil)).
		Where("user_id = ?", trimmed).
		Count(ctx)
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (s *SessionStore) DumpAll(ctx context.Context) ([]core.SessionRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: session store is not configured")
	}
	var rows []*authSessionRecord
	err := s.db.NewSelect().
		Model(&rows).
		OrderExpr("created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]core.SessionRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.toDomain())
	}
	return records, nil
}
