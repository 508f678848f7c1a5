package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidAppStatusTransition           = errors.New("core: invalid app instance status transition")
	ErrInvalidAccessRequestStatusTransition = errors.New("core: invalid access request status transition")
	ErrAppInstanceExists                    = errors.New("core: app instance already registered")
	ErrAppInstanceNotFound                  = errors.New("core: app instance not found")
	ErrTokenNotFound                        = errors.New("core: api token not found")
	ErrAccessRequestNotFound                = errors.New("core: access request not found")
)

type AppStatus string

const (
	AppStatusSetup         AppStatus = "setup"
	AppStatusPreRegistered AppStatus = "pre_registered"
	AppStatusResourceAdmin AppStatus = "resource_admin"
	AppStatusReady         AppStatus = "ready"
)

// AppInstance holds the OAuth client credentials registered for this
// installation. The client secret is encrypted at rest and decrypted on read;
// exactly one instance row may exist.
type AppInstance struct {
	ClientID     string
	ClientSecret string
	Status       AppStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a *AppInstance) TransitionTo(status AppStatus, now time.Time) error {
	if a == nil {
		return nil
	}
	if a.Status == status {
		a.UpdatedAt = now
		return nil
	}
	if !appStatusTransitionAllowed(a.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidAppStatusTransition, a.Status, status)
	}
	a.Status = status
	a.UpdatedAt = now
	return nil
}

func appStatusTransitionAllowed(current, next AppStatus) bool {
	allowed := map[AppStatus]map[AppStatus]struct{}{
		AppStatusSetup: {
			AppStatusPreRegistered: {},
			AppStatusResourceAdmin: {},
		},
		AppStatusPreRegistered: {
			AppStatusResourceAdmin: {},
			AppStatusReady:         {},
		},
		AppStatusResourceAdmin: {
			AppStatusReady: {},
		},
	}
	_, ok := allowed[current][next]
	return ok
}

func ParseAppStatus(value string) (AppStatus, error) {
	switch AppStatus(strings.TrimSpace(strings.ToLower(value))) {
	case AppStatusSetup:
		return AppStatusSetup, nil
	case AppStatusPreRegistered:
		return AppStatusPreRegistered, nil
	case AppStatusResourceAdmin:
		return AppStatusResourceAdmin, nil
	case AppStatusReady:
		return AppStatusReady, nil
	default:
		return "", fmt.Errorf("core: unknown app status %q", value)
	}
}

type TokenStatus string

const (
	TokenStatusActive   TokenStatus = "active"
	TokenStatusInactive TokenStatus = "inactive"
)

func ParseTokenStatus(value string) (TokenStatus, error) {
	switch TokenStatus(strings.TrimSpace(strings.ToLower(value))) {
	case TokenStatusActive:
		return TokenStatusActive, nil
	case TokenStatusInactive:
		return TokenStatusInactive, nil
	default:
		return "", fmt.Errorf("core: unknown token status %q", value)
	}
}

// ApiToken is the registry row for an issued offline/API token. The raw token
// never persists; TokenPrefix is a truncated digest used for lookup and
// TokenHash the full digest used for verification.
type ApiToken struct {
	ID          string
	UserID      string
	Name        string
	TokenID     string
	TokenPrefix string
	TokenHash   string
	Scopes      string
	Status      TokenStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CachedToken is the exchanged access token kept for an offline token, keyed
// by {TokenID, TokenPrefix}. It is created on first exchange, replaced on
// expiry, and never otherwise mutated.
type CachedToken struct {
	ID          string
	TokenID     string
	TokenPrefix string
	AccessToken string
	ExpiresAt   time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Expired reports whether the cached access token may no longer be served.
// A token at or past its recorded expiry always forces a live refresh.
func (t CachedToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

type AccessRequestStatus string

const (
	AccessRequestStatusDraft    AccessRequestStatus = "draft"
	AccessRequestStatusApproved AccessRequestStatus = "approved"
	AccessRequestStatusDenied   AccessRequestStatus = "denied"
	AccessRequestStatusFailed   AccessRequestStatus = "failed"
)

func ParseAccessRequestStatus(value string) (AccessRequestStatus, error) {
	switch AccessRequestStatus(strings.TrimSpace(strings.ToLower(value))) {
	case AccessRequestStatusDraft:
		return AccessRequestStatusDraft, nil
	case AccessRequestStatusApproved:
		return AccessRequestStatusApproved, nil
	case AccessRequestStatusDenied:
		return AccessRequestStatusDenied, nil
	case AccessRequestStatusFailed:
		return AccessRequestStatusFailed, nil
	default:
		return "", fmt.Errorf("core: unknown access request status %q", value)
	}
}

// AccessRequest tracks an external application's request for elevated access.
// A request is decided exactly once; ApprovedRole is set if and only if the
// request ends up Approved.
type AccessRequest struct {
	ID            string
	AppClientID   string
	AppName       string
	Description   string
	RedirectURI   string
	UserID        string
	RequestedRole Role
	ApprovedRole  *Role
	Status        AccessRequestStatus
	ErrorMessage  string
	ExpiresAt     time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (r *AccessRequest) TransitionTo(status AccessRequestStatus, now time.Time) error {
	if r == nil {
		return nil
	}
	if !accessRequestTransitionAllowed(r.Status, status) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidAccessRequestStatusTransition, r.Status, status)
	}
	r.Status = status
	r.UpdatedAt = now
	return nil
}

func accessRequestTransitionAllowed(current, next AccessRequestStatus) bool {
	if current != AccessRequestStatusDraft {
		return false
	}
	switch next {
	case AccessRequestStatusApproved, AccessRequestStatusDenied, AccessRequestStatusFailed:
		return true
	default:
		return false
	}
}

// SessionRecord is one server-side session row. Data carries the
// authenticated identity and cached claims so authenticated requests avoid a
// provider round-trip.
type SessionRecord struct {
	ID        string
	UserID    string
	Data      map[string]any
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s SessionRecord) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
