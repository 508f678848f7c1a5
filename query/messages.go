package query

import (
	"strings"

	"github.com/goliatone/go-appauth/core"
)

const (
	TypeGetInstance            = "appauth.query.instance.get"
	TypeListApiTokens          = "appauth.query.token.list"
	TypeListAccessRequests     = "appauth.query.access_request.list"
	TypeAccessRequestForClient = "appauth.query.access_request.for_client"
	TypeValidateBearerToken    = "appauth.query.token.validate"
)

type GetInstanceMessage struct{}

func (GetInstanceMessage) Type() string { return TypeGetInstance }

func (GetInstanceMessage) Validate() error { return nil }

type ListApiTokensMessage struct {
	UserID  string
	Page    int
	PerPage int
}

func (ListApiTokensMessage) Type() string { return TypeListApiTokens }

func (m ListApiTokensMessage) Validate() error {
	if strings.TrimSpace(m.UserID) == "" {
		return queryValidationError("user_id", "user id is required")
	}
	if m.Page < 0 {
		return queryValidationError("page", "page must be >= 0")
	}
	if m.PerPage < 0 {
		return queryValidationError("per_page", "per_page must be >= 0")
	}
	return nil
}

type ListAccessRequestsMessage struct {
	Filter core.AccessRequestFilter
}

func (ListAccessRequestsMessage) Type() string { return TypeListAccessRequests }

func (m ListAccessRequestsMessage) Validate() error {
	if m.Filter.Page < 0 {
		return queryValidationError("page", "page must be >= 0")
	}
	if m.Filter.PerPage < 0 {
		return queryValidationError("per_page", "per_page must be >= 0")
	}
	return nil
}

type AccessRequestForClientMessage struct {
	ClientID string
}

func (AccessRequestForClientMessage) Type() string { return TypeAccessRequestForClient }

func (m AccessRequestForClientMessage) Validate() error {
	if strings.TrimSpace(m.ClientID) == "" {
		return queryValidationError("client_id", "client id is required")
	}
	return nil
}

type ValidateBearerTokenMessage struct {
	Bearer string
}

func (ValidateBearerTokenMessage) Type() string { return TypeValidateBearerToken }

func (m ValidateBearerTokenMessage) Validate() error {
	if strings.TrimSpace(m.Bearer) == "" {
		return queryValidationError("bearer", "bearer token is required")
	}
	return nil
}
