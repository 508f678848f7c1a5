package sqlstore

import (
	"time"

	"github.com/goliatone/go-appauth/core"
)

func newAppInstanceRecord(instance core.AppInstance, now time.Time) *appInstanceRecord {
	createdAt := instance.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return &appInstanceRecord{
		ClientID:     instance.ClientID,
		ClientSecret: instance.ClientSecret,
		Status:       string(instance.Status),
		InstanceLock: 1,
		CreatedAt:    createdAt,
		UpdatedAt:    now,
	}
}

func (r *appInstanceRecord) toDomain() core.AppInstance {
	if r == nil {
		return core.AppInstance{}
	}
	return core.AppInstance{
		ClientID:     r.ClientID,
		ClientSecret: r.ClientSecret,
		Status:       core.AppStatus(r.Status),
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func newApiTokenRecord(token core.ApiToken, now time.Time) *apiTokenRecord {
	createdAt := token.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return &apiTokenRecord{
		ID:          token.ID,
		UserID:      token.UserID,
		Name:        token.Name,
		TokenID:     token.TokenID,
		TokenPrefix: token.TokenPrefix,
		TokenHash:   token.TokenHash,
		Scopes:      token.Scopes,
		Status:      string(token.Status),
		CreatedAt:   createdAt,
		UpdatedAt:   now,
	}
}

func (r *apiTokenRecord) toDomain() core.ApiToken {
	if r == nil {
		return core.ApiToken{}
	}
	return core.ApiToken{
		ID:          r.ID,
		UserID:      r.UserID,
		Name:        r.Name,
		TokenID:     r.TokenID,
		TokenPrefix: r.TokenPrefix,
		TokenHash:   r.TokenHash,
		Scopes:      r.Scopes,
		Status:      core.TokenStatus(r.Status),
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func newCachedTokenRecord(cached core.CachedToken, now time.Time) *cachedTokenRecord {
	createdAt := cached.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	return &cachedTokenRecord{
		ID:          cached.ID,
		TokenID:     cached.TokenID,
		TokenPrefix: cached.TokenPrefix,
		AccessToken: cached.AccessToken,
		ExpiresAt:   cached.ExpiresAt,
		CreatedAt:   createdAt,
		UpdatedAt:   now,
	}
}

func (r *cachedTokenRecord) toDomain() core.CachedToken {
	if r == nil {
		return core.CachedToken{}
	}
	return core.CachedToken{
		ID:          r.ID,
		TokenID:     r.TokenID,
		TokenPrefix: r.TokenPrefix,
		AccessToken: r.AccessToken,
		ExpiresAt:   r.ExpiresAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func newAccessRequestRecord(request core.AccessRequest, now time.Time) *accessRequestRecord {
	createdAt := request.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	record := &accessRequestRecord{
		ID:            request.ID,
		AppClientID:   request.AppClientID,
		AppName:       request.AppName,
		Description:   request.Description,
		RedirectURI:   request.RedirectURI,
		UserID:        request.UserID,
		RequestedRole: string(request.RequestedRole),
		Status:        string(request.Status),
		ErrorMessage:  request.ErrorMessage,
		CreatedAt:     createdAt,
		UpdatedAt:     now,
	}
	if request.ApprovedRole != nil {
		approved := string(*request.ApprovedRole)
		record.ApprovedRole = &approved
	}
	if !request.ExpiresAt.IsZero() {
		expiresAt := request.ExpiresAt
		record.ExpiresAt = &expiresAt
	}
	return record
}

func (r *accessRequestRecord) toDomain() core.AccessRequest {
	if r == nil {
		return core.AccessRequest{}
	}
	request := core.AccessRequest{
		ID:            r.ID,
		AppClientID:   r.AppClientID,
		AppName:       r.AppName,
		Description:   r.Description,
		RedirectURI:   r.RedirectURI,
		UserID:        r.UserID,
		RequestedRole: core.Role(r.RequestedRole),
		Status:        core.AccessRequestStatus(r.Status),
		ErrorMessage:  r.ErrorMessage,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.ApprovedRole != nil {
		approved := core.Role(*r.ApprovedRole)
		request.ApprovedRole = &approved
	}
	if r.ExpiresAt != nil {
		request.ExpiresAt = *r.ExpiresAt
	}
	return request
}

func newAuthSessionRecord(session core.SessionRecord, now time.Time) *authSessionRecord {
	createdAt := session.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	data := session.Data
	if data == nil {
		data = map[string]any{}
	}
	return &authSessionRecord{
		ID:        session.ID,
		UserID:    session.UserID,
		Data:      data,
		ExpiresAt: session.ExpiresAt,
		CreatedAt: createdAt,
		UpdatedAt: now,
	}
}

func (r *authSessionRecord) toDomain() core.SessionRecord {
	if r == nil {
		return core.SessionRecord{}
	}
	data := r.Data
	if data == nil {
		data = map[string]any{}
	}
	return core.SessionRecord{
		ID:        r.ID,
		UserID:    r.UserID,
		Data:      data,
		ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}
