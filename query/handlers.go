package query

import (
	"context"

	"github.com/goliatone/go-appauth/core"
)

type InstanceReader interface {
	Instance(ctx context.Context) (core.AppInstance, error)
}

type ApiTokenReader interface {
	ListApiTokens(ctx context.Context, userID string, page, perPage int) ([]core.ApiToken, int, error)
}

type AccessRequestReader interface {
	ListAccessRequests(ctx context.Context, filter core.AccessRequestFilter) (core.AccessRequestPage, error)
	AccessRequestStatusForClient(ctx context.Context, clientID string) (core.AccessRequest, error)
}

type TokenValidator interface {
	ValidateBearerToken(ctx context.Context, bearer string) (core.ValidatedToken, error)
}

type GetInstanceQuery struct {
	reader InstanceReader
}

func NewGetInstanceQuery(reader InstanceReader) *GetInstanceQuery {
	return &GetInstanceQuery{reader: reader}
}

func (q *GetInstanceQuery) Query(ctx context.Context, _ GetInstanceMessage) (core.AppInstance, error) {
	if q == nil || q.reader == nil {
		return core.AppInstance{}, queryDependencyError("query: instance reader is required")
	}
	return q.reader.Instance(ctx)
}

type ListApiTokensQuery struct {
	reader ApiTokenReader
}

func NewListApiTokensQuery(reader ApiTokenReader) *ListApiTokensQuery {
	return &ListApiTokensQuery{reader: reader}
}

type ApiTokenPage struct {
	Items []core.ApiToken
	Total int
}

func (q *ListApiTokensQuery) Query(ctx context.Context, msg ListApiTokensMessage) (ApiTokenPage, error) {
	if q == nil || q.reader == nil {
		return ApiTokenPage{}, queryDependencyError("query: api token reader is required")
	}
	items, total, err := q.reader.ListApiTokens(ctx, msg.UserID, msg.Page, msg.PerPage)
	if err != nil {
		return ApiTokenPage{}, err
	}
	return ApiTokenPage{Items: items, Total: total}, nil
}

type ListAccessRequestsQuery struct {
	reader AccessRequestReader
}

func NewListAccessRequestsQuery(reader AccessRequestReader) *ListAccessRequestsQuery {
	return &ListAccessRequestsQuery{reader: reader}
}

func (q *ListAccessRequestsQuery) Query(
	ctx context.Context,
	msg ListAccessRequestsMessage,
) (core.AccessRequestPage, error) {
	if q == nil || q.reader == nil {
		return core.AccessRequestPage{}, queryDependencyError("query: access request reader is required")
	}
	return q.reader.ListAccessRequests(ctx, msg.Filter)
}

type AccessRequestForClientQuery struct {
	reader AccessRequestReader
}

func NewAccessRequestForClientQuery(reader AccessRequestReader) *AccessRequestForClientQuery {
	return &AccessRequestForClientQuery{reader: reader}
}

func (q *AccessRequestForClientQuery) Query(
	ctx context.Context,
	msg AccessRequestForClientMessage,
) (core.AccessRequest, error) {
	if q == nil || q.reader == nil {
		return core.AccessRequest{}, queryDependencyError("query: access request reader is required")
	}
	return q.reader.AccessRequestStatusForClient(ctx, msg.ClientID)
}

type ValidateBearerTokenQuery struct {
	validator TokenValidator
}

func NewValidateBearerTokenQuery(validator TokenValidator) *ValidateBearerTokenQuery {
	return &ValidateBearerTokenQuery{validator: validator}
}

func (q *ValidateBearerTokenQuery) Query(
	ctx context.Context,
	msg ValidateBearerTokenMessage,
) (core.ValidatedToken, error) {
	if q == nil || q.validator == nil {
		return core.ValidatedToken{}, queryDependencyError("query: token validator is required")
	}
	return q.validator.ValidateBearerToken(ctx, msg.Bearer)
}
