package core

import (
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	AuthErrorBadInput            = "AUTH_BAD_INPUT"
	AuthErrorInvalidGrant        = "AUTH_INVALID_GRANT"
	AuthErrorProviderUnavailable = "AUTH_PROVIDER_UNAVAILABLE"
	AuthErrorNetwork             = "AUTH_NETWORK_ERROR"
	AuthErrorStorage             = "AUTH_STORAGE_ERROR"
	AuthErrorForbidden           = "AUTH_FORBIDDEN"
	AuthErrorUnauthenticated     = "AUTH_UNAUTHENTICATED"
	AuthErrorDecryption          = "AUTH_DECRYPTION_FAILED"
	AuthErrorStateConflict       = "AUTH_STATE_CONFLICT"
	AuthErrorNotFound            = "AUTH_NOT_FOUND"
	AuthErrorInternal            = "AUTH_INTERNAL_ERROR"
)

// insufficientPrivilegeMessage is the only text an authorization rejection
// may carry; it never discloses the required role.
const insufficientPrivilegeMessage = "insufficient privilege"

func authErrorMapper(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureAuthErrorEnvelope(richErr)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "invalid_grant"), strings.Contains(msg, "invalid_client"):
		return newAuthError(err.Error(), goerrors.CategoryAuth, AuthErrorInvalidGrant)
	case strings.Contains(msg, "decrypt"), strings.Contains(msg, "authentication tag"):
		return newAuthError(err.Error(), goerrors.CategoryInternal, AuthErrorDecryption)
	case strings.Contains(msg, "already registered"), strings.Contains(msg, "already decided"), strings.Contains(msg, "already pending"):
		return newAuthError(err.Error(), goerrors.CategoryConflict, AuthErrorStateConflict)
	case strings.Contains(msg, "not found"):
		return newAuthError(err.Error(), goerrors.CategoryNotFound, AuthErrorNotFound)
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "network"):
		return newAuthError(err.Error(), goerrors.CategoryExternal, AuthErrorNetwork)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"),
		strings.Contains(msg, "mismatch"):
		return newAuthError(err.Error(), goerrors.CategoryBadInput, AuthErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureAuthErrorEnvelope(mapped)
}

func newAuthError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureAuthErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

// NewAuthorizationError builds the generic rejection returned whenever a
// caller's role is below an endpoint's requirement.
func NewAuthorizationError() *goerrors.Error {
	return newAuthError(insufficientPrivilegeMessage, goerrors.CategoryAuthz, AuthErrorForbidden)
}

// NewUnauthenticatedError builds the generic "please sign in" rejection.
func NewUnauthenticatedError() *goerrors.Error {
	return newAuthError("please sign in", goerrors.CategoryAuth, AuthErrorUnauthenticated)
}

// IsRetryable reports whether a mapped error is a transient provider or
// transport failure the caller may retry with backoff. Terminal provider
// rejections (invalid_grant, invalid_client) are never retryable; they force
// a re-login instead.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	switch strings.TrimSpace(strings.ToUpper(richErr.TextCode)) {
	case AuthErrorProviderUnavailable, AuthErrorNetwork:
		return true
	}
	return false
}

func ensureAuthErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = authHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultAuthTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryAuthz {
		err.Message = insufficientPrivilegeMessage
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultAuthTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return AuthErrorBadInput
	case goerrors.CategoryNotFound:
		return AuthErrorNotFound
	case goerrors.CategoryAuth:
		return AuthErrorInvalidGrant
	case goerrors.CategoryAuthz:
		return AuthErrorForbidden
	case goerrors.CategoryConflict:
		return AuthErrorStateConflict
	case goerrors.CategoryExternal:
		return AuthErrorProviderUnavailable
	default:
		return AuthErrorInternal
	}
}

func authHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
