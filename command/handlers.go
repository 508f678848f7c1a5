package command

import (
	"context"

	gocmd "github.com/goliatone/go-command"

	"github.com/goliatone/go-appauth/core"
)

// MutatingService is the slice of the auth service the command layer depends
// on. *core.Service satisfies it.
type MutatingService interface {
	RegisterInstance(ctx context.Context, req core.RegisterClientRequest) (core.AppInstance, error)
	MakeResourceAdmin(ctx context.Context, userID string) (core.AppInstance, error)
	BeginLogin(ctx context.Context, req core.BeginLoginRequest) (core.BeginLoginResponse, error)
	CompleteLogin(ctx context.Context, req core.CompleteLoginRequest) (core.LoginResult, error)
	RefreshSessionTokens(ctx context.Context, refreshToken string) (core.TokenPair, error)
	CreateApiToken(ctx context.Context, req core.CreateApiTokenRequest) (core.CreatedApiToken, error)
	UpdateApiTokenStatus(ctx context.Context, userID, id string, status core.TokenStatus) (core.ApiToken, error)
	SubmitAccessRequest(ctx context.Context, req core.SubmitAccessRequest) (core.AccessRequest, error)
	ApproveAccessRequest(ctx context.Context, req core.ReviewAccessRequest) (core.AccessRequest, error)
	DenyAccessRequest(ctx context.Context, req core.ReviewAccessRequest) (core.AccessRequest, error)
}

type RegisterInstanceCommand struct {
	service MutatingService
}

func NewRegisterInstanceCommand(service MutatingService) *RegisterInstanceCommand {
	return &RegisterInstanceCommand{service: service}
}

func (c *RegisterInstanceCommand) Execute(ctx context.Context, msg RegisterInstanceMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: instance service is required")
	}
	out, err := c.service.RegisterInstance(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type MakeResourceAdminCommand struct {
	service MutatingService
}

func NewMakeResourceAdminCommand(service MutatingService) *MakeResourceAdminCommand {
	return &MakeResourceAdminCommand{service: service}
}

func (c *MakeResourceAdminCommand) Execute(ctx context.Context, msg MakeResourceAdminMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: instance service is required")
	}
	out, err := c.service.MakeResourceAdmin(ctx, msg.UserID)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type BeginLoginCommand struct {
	service MutatingService
}

func NewBeginLoginCommand(service MutatingService) *BeginLoginCommand {
	return &BeginLoginCommand{service: service}
}

func (c *BeginLoginCommand) Execute(ctx context.Context, msg BeginLoginMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: login service is required")
	}
	out, err := c.service.BeginLogin(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CompleteLoginCommand struct {
	service MutatingService
}

func NewCompleteLoginCommand(service MutatingService) *CompleteLoginCommand {
	return &CompleteLoginCommand{service: service}
}

func (c *CompleteLoginCommand) Execute(ctx context.Context, msg CompleteLoginMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: login service is required")
	}
	out, err := c.service.CompleteLogin(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type RefreshSessionCommand struct {
	service MutatingService
}

func NewRefreshSessionCommand(service MutatingService) *RefreshSessionCommand {
	return &RefreshSessionCommand{service: service}
}

func (c *RefreshSessionCommand) Execute(ctx context.Context, msg RefreshSessionMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: session service is required")
	}
	out, err := c.service.RefreshSessionTokens(ctx, msg.RefreshToken)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type CreateApiTokenCommand struct {
	service MutatingService
}

func NewCreateApiTokenCommand(service MutatingService) *CreateApiTokenCommand {
	return &CreateApiTokenCommand{service: service}
}

func (c *CreateApiTokenCommand) Execute(ctx context.Context, msg CreateApiTokenMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: token service is required")
	}
	out, err := c.service.CreateApiToken(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type UpdateTokenStatusCommand struct {
	service MutatingService
}

func NewUpdateTokenStatusCommand(service MutatingService) *UpdateTokenStatusCommand {
	return &UpdateTokenStatusCommand{service: service}
}

func (c *UpdateTokenStatusCommand) Execute(ctx context.Context, msg UpdateTokenStatusMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: token service is required")
	}
	out, err := c.service.UpdateApiTokenStatus(ctx, msg.UserID, msg.TokenID, msg.Status)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type SubmitAccessRequestCommand struct {
	service MutatingService
}

func NewSubmitAccessRequestCommand(service MutatingService) *SubmitAccessRequestCommand {
	return &SubmitAccessRequestCommand{service: service}
}

func (c *SubmitAccessRequestCommand) Execute(ctx context.Context, msg SubmitAccessRequestMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: access request service is required")
	}
	out, err := c.service.SubmitAccessRequest(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type ApproveAccessCommand struct {
	service MutatingService
}

func NewApproveAccessCommand(service MutatingService) *ApproveAccessCommand {
	return &ApproveAccessCommand{service: service}
}

func (c *ApproveAccessCommand) Execute(ctx context.Context, msg ApproveAccessMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: access request service is required")
	}
	out, err := c.service.ApproveAccessRequest(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

type DenyAccessCommand struct {
	service MutatingService
}

func NewDenyAccessCommand(service MutatingService) *DenyAccessCommand {
	return &DenyAccessCommand{service: service}
}

func (c *DenyAccessCommand) Execute(ctx context.Context, msg DenyAccessMessage) error {
	if c == nil || c.service == nil {
		return commandDependencyError("command: access request service is required")
	}
	out, err := c.service.DenyAccessRequest(ctx, msg.Request)
	if err != nil {
		return err
	}
	storeResult(ctx, out)
	return nil
}

func storeResult[T any](ctx context.Context, value T) {
	collector := gocmd.ResultFromContext[T](ctx)
	if collector == nil {
		return
	}
	collector.Store(value)
}
