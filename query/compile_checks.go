package query

import (
	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-appauth/core"
)

var (
	_ gocmd.Querier[GetInstanceMessage, core.AppInstance]              = (*GetInstanceQuery)(nil)
	_ gocmd.Querier[ListApiTokensMessage, ApiTokenPage]                = (*ListApiTokensQuery)(nil)
	_ gocmd.Querier[ListAccessRequestsMessage, core.AccessRequestPage] = (*ListAccessRequestsQuery)(nil)
	_ gocmd.Querier[AccessRequestForClientMessage, core.AccessRequest] = (*AccessRequestForClientQuery)(nil)
	_ gocmd.Querier[ValidateBearerTokenMessage, core.ValidatedToken]   = (*ValidateBearerTokenQuery)(nil)
)
