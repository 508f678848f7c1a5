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

type AppInstanceStore struct {
	db    *bun.DB
	repo  repository.Repository[*appInstanceRecord]
	clock core.Clock
}

func (s *AppInstanceStore) Get(ctx context.Context) (core.AppInstance, error) {
	if s == nil || s.repo == nil {
		return core.AppInstance{}, fmt.Errorf("sqlstore: app instance store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.OrderBy("created_at ASC"),
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.AppInstance{}, core.ErrAppInstanceNotFound
		}
		return core.AppInstance{}, err
	}
	if len(records) == 0 {
		return core.AppInstance{}, core.ErrAppInstanceNotFound
	}
	return records[0].toDomain(), nil
}

// Insert stores the registration exactly once. The read inside the
// transaction catches the common race; the unique instance_lock constraint
// catches writers that slipped past it.
func (s *AppInstanceStore) Insert(ctx context.Context, instance core.AppInstance) (core.AppInstance, error) {
	if s == nil || s.db == nil || s.repo == nil {
		return core.AppInstance{}, fmt.Errorf("sqlstore: app instance store is not configured")
	}
	if strings.TrimSpace(instance.ClientID) == "" {
		return core.AppInstance{}, fmt.Errorf("sqlstore: client id is required")
	}

	now := stamp(s.clock)
	var created core.AppInstance
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		count, countErr := tx.NewSelect().
			Model((*appInstanceRecord)(nil)).
			Count(ctx)
		if countErr != nil {
			return countErr
		}
		if count > 0 {
			return core.ErrAppInstanceExists
		}

		record := newAppInstanceRecord(instance, now)
		inserted, createErr := s.repo.CreateTx(ctx, tx, record)
		if createErr != nil {
			if isUniqueViolation(createErr) {
				return core.ErrAppInstanceExists
			}
			return createErr
		}
		created = inserted.toDomain()
		return nil
	})
	if err != nil {
		return core.AppInstance{}, err
	}
	return created, nil
}

func (s *AppInstanceStore) Update(ctx context.Context, instance core.AppInstance) (core.AppInstance, error) {
	if s == nil || s.repo == nil {
		return core.AppInstance{}, fmt.Errorf("sqlstore: app instance store is not configured")
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("client_id", "=", strings.TrimSpace(instance.ClientID)),
	)
	if err != nil {
		return core.AppInstance{}, err
	}
	if len(records) == 0 {
		return core.AppInstance{}, core.ErrAppInstanceNotFound
	}

	current := records[0]
	current.ClientSecret = instance.ClientSecret
	current.Status = string(instance.Status)
	current.UpdatedAt = stamp(s.clock)

	updated, err := s.repo.Update(ctx, current, repository.UpdateByID(current.ID))
	if err != nil {
		return core.AppInstance{}, err
	}
	return updated.toDomain(), nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint") ||
		strings.Contains(message, "duplicate key") ||
		strings.Contains(message, "unique violation")
}
