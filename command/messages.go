package command

import (
	"strings"

	"github.com/goliatone/go-appauth/core"
)

const (
	TypeRegisterInstance    = "appauth.command.instance.register"
	TypeMakeResourceAdmin   = "appauth.command.instance.make_resource_admin"
	TypeBeginLogin          = "appauth.command.login.begin"
	TypeCompleteLogin       = "appauth.command.login.complete"
	TypeRefreshSession      = "appauth.command.session.refresh"
	TypeCreateApiToken      = "appauth.command.token.create"
	TypeUpdateTokenStatus   = "appauth.command.token.update_status"
	TypeSubmitAccessRequest = "appauth.command.access_request.submit"
	TypeApproveAccess       = "appauth.command.access_request.approve"
	TypeDenyAccess          = "appauth.command.access_request.deny"
)

type RegisterInstanceMessage struct {
	Request core.RegisterClientRequest
}

func (RegisterInstanceMessage) Type() string { return TypeRegisterInstance }

func (m RegisterInstanceMessage) Validate() error {
	if strings.TrimSpace(m.Request.AppName) == "" {
		return commandValidationError("app_name", "app name is required")
	}
	return nil
}

type MakeResourceAdminMessage struct {
	UserID string
}

func (MakeResourceAdminMessage) Type() string { return TypeMakeResourceAdmin }

func (m MakeResourceAdminMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return commandValidationError("user_id", "user id is required")
	}
	return nil
}

type BeginLoginMessage struct {
	Request core.BeginLoginRequest
}

func (BeginLoginMessage) Type() string { return TypeBeginLogin }

func (BeginLoginMessage) Validate() error { return nil }

type CompleteLoginMessage struct {
	Request core.CompleteLoginRequest
}

func (CompleteLoginMessage) Type() string { return TypeCompleteLogin }

func (m CompleteLoginMessage) Validate() error {
	if strings.TrimSpace(m.Request.Code) == "" {
		return commandValidationError("code", "authorization code is required")
	}
	if strings.TrimSpace(m.Request.State) == "" {
		return commandValidationError("state", "state is required")
	}
	return nil
}

type RefreshSessionMessage struct {
	RefreshToken string
}

func (RefreshSessionMessage) Type() string { return TypeRefreshSession }

func (m RefreshSessionMessage) Validate() error {
	if strings.TrimSpace(m.RefreshToken) == "" {
		return commandValidationError("refresh_token", "refresh token is required")
	}
	return nil
}

type CreateApiTokenMessage struct {
	Request core.CreateApiTokenRequest
}

func (CreateApiTokenMessage) Type() string { return TypeCreateApiToken }

func (m CreateApiTokenMessage) Validate() error {
	if strings.TrimSpace(m.Request.AccessToken) == "" {
		return commandValidationError("access_token", "access token is required")
	}
	if !m.Request.Scope.Valid() {
		return commandValidationError("scope", "token scope is invalid")
	}
	return nil
}

type UpdateTokenStatusMessage struct {
	UserID  string
	TokenID string
	Status  core.TokenStatus
}

func (UpdateTokenStatusMessage) Type() string { return TypeUpdateTokenStatus }

func (m UpdateTokenStatusMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return commandValidationError("user_id", "user id is required")
	}
	if strings.TrimSpace(m.TokenID) == "" {
		return commandValidationError("token_id", "token id is required")
	}
	switch m.Status {
	case core.TokenStatusActive, core.TokenStatusInactive:
		return nil
	default:
		return commandValidationError("status", "status must be active or inactive")
	}
}

type SubmitAccessRequestMessage struct {
	Request core.SubmitAccessRequest
}

func (SubmitAccessRequestMessage) Type() string { return TypeSubmitAccessRequest }

func (m SubmitAccessRequestMessage) Validate() error {
	if strings.TrimSpace(m.Request.AppClientID) == "" {
		return commandValidationError("app_client_id", "app client id is required")
	}
	if strings.TrimSpace(m.Request.AppName) == "" {
		return commandValidationError("app_name", "app name is required")
	}
	return nil
}

type ApproveAccessMessage struct {
	Request core.ReviewAccessRequest
}

func (ApproveAccessMessage) Type() string { return TypeApproveAccess }

func (m ApproveAccessMessage) Validate() error {
	return validateReview(m.Request)
}

type DenyAccessMessage struct {
	Request core.ReviewAccessRequest
}

func (DenyAccessMessage) Type() string { return TypeDenyAccess }

func (m DenyAccessMessage) Validate() error {
	return validateReview(m.Request)
}

func validateReview(req core.ReviewAccessRequest) error {
	if strings.TrimSpace(req.RequestID) == "" {
		return commandValidationError("request_id", "request id is required")
	}
	if strings.TrimSpace(req.ReviewerID) == "" {
		return commandValidationError("reviewer_id", "reviewer id is required")
	}
	return nil
}
