package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const defaultAccessRequestTTL = 24 * time.Hour

// SubmitAccessRequest records an external app's draft request for access.
// One live request per client id: resubmitting while a draft or approved
// request exists is a conflict.
func (s *Service) SubmitAccessRequest(ctx context.Context, req SubmitAccessRequest) (request AccessRequest, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"client_id": req.AppClientID,
		"user_id":   req.UserID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "submit_access_request", err, fields)
	}()

	if s == nil || s.accessRequestStore == nil {
		err = s.mapError(fmt.Errorf("core: access request store is required"))
		return AccessRequest{}, err
	}
	clientID := strings.TrimSpace(req.AppClientID)
	if clientID == "" {
		err = s.mapError(fmt.Errorf("core: app client id is required"))
		return AccessRequest{}, err
	}
	if strings.TrimSpace(req.AppName) == "" {
		err = s.mapError(fmt.Errorf("core: app name is required"))
		return AccessRequest{}, err
	}
	requested := req.RequestedRole
	if requested == "" {
		requested = RoleUser
	}
	if !requested.Valid() {
		err = s.mapError(fmt.Errorf("core: invalid requested role %q", string(req.RequestedRole)))
		return AccessRequest{}, err
	}

	now := s.clock.Now()
	if existing, getErr := s.accessRequestStore.GetByClientID(ctx, clientID); getErr == nil {
		switch existing.Status {
		case AccessRequestStatusApproved:
			err = s.mapError(fmt.Errorf("core: access request already decided for client %q", clientID))
			return AccessRequest{}, err
		case AccessRequestStatusDraft:
			if existing.ExpiresAt.IsZero() || now.Before(existing.ExpiresAt) {
				err = s.mapError(fmt.Errorf("core: access request already pending for client %q", clientID))
				return AccessRequest{}, err
			}
		}
	}

	request, err = s.accessRequestStore.Create(ctx, AccessRequest{
		AppClientID:   clientID,
		AppName:       strings.TrimSpace(req.AppName),
		Description:   strings.TrimSpace(req.Description),
		RedirectURI:   strings.TrimSpace(req.RedirectURI),
		UserID:        strings.TrimSpace(req.UserID),
		RequestedRole: requested,
		Status:        AccessRequestStatusDraft,
		ExpiresAt:     now.Add(defaultAccessRequestTTL),
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		err = s.mapError(err)
		return AccessRequest{}, err
	}
	fields["request_id"] = request.ID
	return request, nil
}

// ApproveAccessRequest decides a draft request. The reviewer needs at least
// the manager role and can never grant above their own role. Provider-side
// consent registration must succeed before the request is marked approved; a
// provider failure leaves the request failed, never approved.
func (s *Service) ApproveAccessRequest(ctx context.Context, req ReviewAccessRequest) (request AccessRequest, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"request_id": req.RequestID,
		"user_id":    req.ReviewerID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "approve_access_request", err, fields)
	}()

	if s == nil || s.accessRequestStore == nil || s.identityClient == nil {
		err = s.mapError(fmt.Errorf("core: access request store and identity client are required"))
		return AccessRequest{}, err
	}
	if !req.ReviewerRole.HasAccessTo(RoleManager) {
		err = NewAuthorizationError()
		return AccessRequest{}, err
	}
	approved := req.ApprovedRole
	if !approved.Valid() {
		err = s.mapError(fmt.Errorf("core: invalid approved role %q", string(req.ApprovedRole)))
		return AccessRequest{}, err
	}
	if !req.ReviewerRole.HasAccessTo(approved) {
		err = NewAuthorizationError()
		return AccessRequest{}, err
	}

	request, err = s.decidableRequest(ctx, req.RequestID)
	if err != nil {
		return AccessRequest{}, err
	}
	fields["client_id"] = request.AppClientID

	instance, err := s.readyInstance(ctx)
	if err != nil {
		return AccessRequest{}, err
	}

	now := s.clock.Now()
	if consentErr := s.identityClient.RegisterAccessConsent(ctx, RegisterAccessConsentRequest{
		ClientID:     instance.ClientID,
		ClientSecret: instance.ClientSecret,
		AudienceID:   request.AppClientID,
	}); consentErr != nil {
		if transitionErr := request.TransitionTo(AccessRequestStatusFailed, now); transitionErr == nil {
			request.ErrorMessage = consentErr.Error()
			_, _ = s.accessRequestStore.Update(ctx, request)
		}
		err = s.mapError(consentErr)
		return AccessRequest{}, err
	}

	if err = request.TransitionTo(AccessRequestStatusApproved, now); err != nil {
		err = s.mapError(err)
		return AccessRequest{}, err
	}
	request.ApprovedRole = &approved
	request, err = s.accessRequestStore.Update(ctx, request)
	if err != nil {
		err = s.mapError(err)
		return AccessRequest{}, err
	}
	return request, nil
}

// DenyAccessRequest closes a draft request without granting access.
func (s *Service) DenyAccessRequest(ctx context.Context, req ReviewAccessRequest) (request AccessRequest, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"request_id": req.RequestID,
		"user_id":    req.ReviewerID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "deny_access_request", err, fields)
	}()

	if s == nil || s.accessRequestStore == nil {
		err = s.mapError(fmt.Errorf("core: access request store is required"))
		return AccessRequest{}, err
	}
	if !req.ReviewerRole.HasAccessTo(RoleManager) {
		err = NewAuthorizationError()
		return AccessRequest{}, err
	}

	request, err = s.decidableRequest(ctx, req.RequestID)
	if err != nil {
		return AccessRequest{}, err
	}
	fields["client_id"] = request.AppClientID

	if err = request.TransitionTo(AccessRequestStatusDenied, s.clock.Now()); err != nil {
		err = s.mapError(err)
		return AccessRequest{}, err
	}
	request, err = s.accessRequestStore.Update(ctx, request)
	if err != nil {
		err = s.mapError(err)
		return AccessRequest{}, err
	}
	return request, nil
}

// ListAccessRequests pages through requests, optionally filtered by status.
func (s *Service) ListAccessRequests(ctx context.Context, filter AccessRequestFilter) (AccessRequestPage, error) {
	if s == nil || s.accessRequestStore == nil {
		return AccessRequestPage{}, s.mapError(fmt.Errorf("core: access request store is required"))
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 {
		filter.PerPage = 20
	}
	page, err := s.accessRequestStore.List(ctx, filter)
	if err != nil {
		return AccessRequestPage{}, s.mapError(err)
	}
	return page, nil
}

// AccessRequestStatusForClient reports how an external client stands,
// without exposing reviewer detail.
func (s *Service) AccessRequestStatusForClient(ctx context.Context, clientID string) (AccessRequest, error) {
	if s == nil || s.accessRequestStore == nil {
		return AccessRequest{}, s.mapError(fmt.Errorf("core: access request store is required"))
	}
	request, err := s.accessRequestStore.GetByClientID(ctx, strings.TrimSpace(clientID))
	if err != nil {
		return AccessRequest{}, s.mapError(err)
	}
	return request, nil
}

func (s *Service) decidableRequest(ctx context.Context, requestID string) (AccessRequest, error) {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return AccessRequest{}, s.mapError(fmt.Errorf("core: access request id is required"))
	}
	request, err := s.accessRequestStore.Get(ctx, requestID)
	if err != nil {
		return AccessRequest{}, s.mapError(err)
	}
	if request.Status != AccessRequestStatusDraft {
		return AccessRequest{}, s.mapError(fmt.Errorf("core: access request already decided"))
	}
	if !request.ExpiresAt.IsZero() && !s.clock.Now().Before(request.ExpiresAt) {
		return AccessRequest{}, s.mapError(fmt.Errorf("core: access request expired"))
	}
	return request, nil
}
