package appauth

import (
	"fmt"

	appauthcommand "github.com/goliatone/go-appauth/command"
	appauthquery "github.com/goliatone/go-appauth/query"
)

// CommandQueryService is the surface the facade wires commands and queries
// around. *core.Service satisfies it.
type CommandQueryService interface {
	appauthcommand.MutatingService
	appauthquery.InstanceReader
	appauthquery.ApiTokenReader
	appauthquery.AccessRequestReader
	appauthquery.TokenValidator
}

type Commands struct {
	RegisterInstance    *appauthcommand.RegisterInstanceCommand
	MakeResourceAdmin   *appauthcommand.MakeResourceAdminCommand
	BeginLogin          *appauthcommand.BeginLoginCommand
	CompleteLogin       *appauthcommand.CompleteLoginCommand
	RefreshSession      *appauthcommand.RefreshSessionCommand
	CreateApiToken      *appauthcommand.CreateApiTokenCommand
	UpdateTokenStatus   *appauthcommand.UpdateTokenStatusCommand
	SubmitAccessRequest *appauthcommand.SubmitAccessRequestCommand
	ApproveAccess       *appauthcommand.ApproveAccessCommand
	DenyAccess          *appauthcommand.DenyAccessCommand
}

type Queries struct {
	GetInstance            *appauthquery.GetInstanceQuery
	ListApiTokens          *appauthquery.ListApiTokensQuery
	ListAccessRequests     *appauthquery.ListAccessRequestsQuery
	AccessRequestForClient *appauthquery.AccessRequestForClientQuery
	ValidateBearerToken    *appauthquery.ValidateBearerTokenQuery
}

type Facade struct {
	service  CommandQueryService
	commands Commands
	queries  Queries
}

func NewFacade(service CommandQueryService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("appauth: command/query service is required")
	}

	facade := &Facade{service: service}
	facade.commands = Commands{
		RegisterInstance:    appauthcommand.NewRegisterInstanceCommand(service),
		MakeResourceAdmin:   appauthcommand.NewMakeResourceAdminCommand(service),
		BeginLogin:          appauthcommand.NewBeginLoginCommand(service),
		CompleteLogin:       appauthcommand.NewCompleteLoginCommand(service),
		RefreshSession:      appauthcommand.NewRefreshSessionCommand(service),
		CreateApiToken:      appauthcommand.NewCreateApiTokenCommand(service),
		UpdateTokenStatus:   appauthcommand.NewUpdateTokenStatusCommand(service),
		SubmitAccessRequest: appauthcommand.NewSubmitAccessRequestCommand(service),
		ApproveAccess:       appauthcommand.NewApproveAccessCommand(service),
		DenyAccess:          appauthcommand.NewDenyAccessCommand(service),
	}
	facade.queries = Queries{
		GetInstance:            appauthquery.NewGetInstanceQuery(service),
		ListApiTokens:          appauthquery.NewListApiTokensQuery(service),
		ListAccessRequests:     appauthquery.NewListAccessRequestsQuery(service),
		AccessRequestForClient: appauthquery.NewAccessRequestForClientQuery(service),
		ValidateBearerToken:    appauthquery.NewValidateBearerTokenQuery(service),
	}

	return facade, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() CommandQueryService {
	if f == nil {
		return nil
	}
	return f.service
}
