package sqlstore

import (
	"context"
	"fmt"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/goliatone/go-appauth/core"
)

type AccessRequestStore struct {
	db    *bun.DB
	repo  repository.Repository[*accessRequestRecord]
	clock core.Clock
}

func (s *AccessRequestStore) Create(ctx context.Context, request core.AccessRequest) (core.AccessRequest, error) {
	if s == nil || s.repo == nil {
		return core.AccessRequest{}, fmt.Errorf("sqlstore: access request store is not configured")
	}
	if strings.TrimSpace(request.AppClientID) == "" {
		return core.AccessRequest{}, fmt.Errorf("sqlstore: access request client id is required")
	}

	record := newAccessRequestRecord(request, stamp(s.clock))
	if strings.TrimSpace(record.ID) == "" {
		record.ID = uuid.NewString()
	}
	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return core.AccessRequest{}, err
	}
	return created.toDomain(), nil
}

func (s *AccessRequestStore) Get(ctx context.Context, id string) (core.AccessRequest, error) {
	if s == nil || s.repo == nil {
		return core.AccessRequest{}, fmt.Errorf("sqlstore: access request store is not configured")
	}
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return core.AccessRequest{}, core.ErrAccessRequestNotFound
	}
	record, err := s.repo.GetByID(ctx, trimmed)
	if err != nil {
		if isNoRows(err) {
			return core.AccessRequest{}, core.ErrAccessRequestNotFound
		}
		return core.AccessRequest{}, err
	}
	return record.toDomain(), nil
}

func (s *AccessRequestStore) GetByClientID(ctx context.Context, clientID string) (core.AccessRequest, error) {
	if s == nil || s.repo == nil {
		return core.AccessRequest{}, fmt.Errorf("sqlstore: access request store is not configured")
	}
	trimmed := strings.TrimSpace(clientID)
	if trimmed == "" {
		return core.AccessRequest{}, core.ErrAccessRequestNotFound
	}
	records, _, err := s.repo.List(ctx,
		repository.SelectBy("app_client_id", "=", trimmed),
		repository.OrderBy("created_at DESC"),
	)
	if err != nil {
		return core.AccessRequest{}, err
	}
	if len(records) == 0 {
		return core.AccessRequest{}, core.ErrAccessRequestNotFound
	}
	return records[0].toDomain(), nil
}

func (s *AccessRequestStore) Update(ctx context.Context, request core.AccessRequest) (core.AccessRequest, error) {
	if s == nil || s.repo == nil {
		return core.AccessRequest{}, fmt.Errorf("sqlstore: access request store is not configured")
	}
	trimmedID := strings.TrimSpace(request.ID)
	if trimmedID == "" {
		return core.AccessRequest{}, core.ErrAccessRequestNotFound
	}
	record, err := s.repo.GetByID(ctx, trimmedID)
	if err != nil {
		if isNoRows(err) {
			return core.AccessRequest{}, core.ErrAccessRequestNotFound
		}
		return core.AccessRequest{}, err
	}

	record.Status = string(request.Status)
	record.ErrorMessage = request.ErrorMessage
	record.UserID = request.UserID
	record.ApprovedRole = nil
	if request.ApprovedRole != nil {
		approved := string(*request.ApprovedRole)
		record.ApprovedRole = &approved
	}
	record.ExpiresAt = nil
	if !request.ExpiresAt.IsZero() {
		expiresAt := request.ExpiresAt
		record.ExpiresAt = &expiresAt
	}
	record.UpdatedAt = stamp(s.clock)

	updated, err := s.repo.Update(ctx, record, repository.UpdateByID(trimmedID))
	if err != nil {
		return core.AccessRequest{}, err
	}
	return updated.toDomain(), nil
}

func (s *AccessRequestStore) List(ctx context.Context, filter core.AccessRequestFilter) (core.AccessRequestPage, error) {
	if s == nil || s.repo == nil {
		return core.AccessRequestPage{}, fmt.Errorf("sqlstore: access request store is not configured")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	perPage := filter.PerPage
	if perPage < 1 {
		perPage = 20
	}

	selectors := []repository.SelectCriteria{
		repository.OrderBy("created_at DESC"),
		repository.SelectPaginate(perPage, (page-1)*perPage),
	}
	if status := strings.TrimSpace(string(filter.Status)); status != "" {
		selectors = append(selectors, repository.SelectBy("status", "=", status))
	}
	if userID := strings.TrimSpace(filter.UserID); userID != "" {
		selectors = append(selectors, repository.SelectBy("user_id", "=", userID))
	}

	records, total, err := s.repo.List(ctx, selectors...)
	if err != nil {
		return core.AccessRequestPage{}, err
	}
	items := make([]core.AccessRequest, 0, len(records))
	for _, record := range records {
		items = append(items, record.toDomain())
	}
	return core.AccessRequestPage{
		Items:   items,
		Page:    page,
		PerPage: perPage,
		Total:   total,
	}, nil
}
