package command

import gocmd "github.com/goliatone/go-command"

var (
	_ gocmd.Commander[RegisterInstanceMessage]    = (*RegisterInstanceCommand)(nil)
	_ gocmd.Commander[MakeResourceAdminMessage]   = (*MakeResourceAdminCommand)(nil)
	_ gocmd.Commander[BeginLoginMessage]          = (*BeginLoginCommand)(nil)
	_ gocmd.Commander[CompleteLoginMessage]       = (*CompleteLoginCommand)(nil)
	_ gocmd.Commander[RefreshSessionMessage]      = (*RefreshSessionCommand)(nil)
	_ gocmd.Commander[CreateApiTokenMessage]      = (*CreateApiTokenCommand)(nil)
	_ gocmd.Commander[UpdateTokenStatusMessage]   = (*UpdateTokenStatusCommand)(nil)
	_ gocmd.Commander[SubmitAccessRequestMessage] = (*SubmitAccessRequestCommand)(nil)
	_ gocmd.Commander[ApproveAccessMessage]       = (*ApproveAccessCommand)(nil)
	_ gocmd.Commander[DenyAccessMessage]          = (*DenyAccessCommand)(nil)
)
