package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Instance returns the registered app instance with its client secret
// decrypted.
func (s *Service) Instance(ctx context.Context) (AppInstance, error) {
	if s == nil || s.appInstanceStore == nil {
		return AppInstance{}, s.mapError(fmt.Errorf("core: app instance store is required"))
	}
	instance, err := s.appInstanceStore.Get(ctx)
	if err != nil {
		return AppInstance{}, s.mapError(err)
	}
	if s.secretService != nil && strings.TrimSpace(instance.ClientSecret) != "" {
		plaintext, decErr := s.secretService.Decrypt(instance.ClientSecret)
		if decErr != nil {
			return AppInstance{}, s.mapError(decErr)
		}
		instance.ClientSecret = string(plaintext)
	}
	return instance, nil
}

// RegisterInstance performs dynamic client registration and persists the
// resulting credentials. At most one instance row may exist; racing callers
// lose to the storage uniqueness guarantee and surface a conflict.
func (s *Service) RegisterInstance(ctx context.Context, req RegisterClientRequest) (instance AppInstance, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"app_name": req.AppName,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "register_instance", err, fields)
	}()

	if s == nil || s.identityClient == nil || s.appInstanceStore == nil {
		err = s.mapError(fmt.Errorf("core: identity client and app instance store are required"))
		return AppInstance{}, err
	}
	if strings.TrimSpace(req.AppName) == "" {
		err = s.mapError(fmt.Errorf("core: app name is required"))
		return AppInstance{}, err
	}

	if existing, getErr := s.appInstanceStore.Get(ctx); getErr == nil && strings.TrimSpace(existing.ClientID) != "" {
		err = s.mapError(ErrAppInstanceExists)
		return AppInstance{}, err
	}

	if len(req.RedirectURIs) == 0 {
		req.RedirectURIs = []string{strings.TrimRight(s.config.ServerBaseURL, "/") + "/auth/callback"}
	}
	registered, err := s.identityClient.RegisterClient(ctx, req)
	if err != nil {
		err = s.mapError(err)
		return AppInstance{}, err
	}
	fields["client_id"] = registered.ClientID

	secret := registered.ClientSecret
	if s.secretService != nil {
		secret, err = s.secretService.Encrypt([]byte(registered.ClientSecret))
		if err != nil {
			err = s.mapError(err)
			return AppInstance{}, err
		}
	}

	now := s.clock.Now()
	instance, err = s.appInstanceStore.Insert(ctx, AppInstance{
		ClientID:     registered.ClientID,
		ClientSecret: secret,
		Status:       AppStatusPreRegistered,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, ErrAppInstanceExists) {
			err = s.mapError(ErrAppInstanceExists)
			return AppInstance{}, err
		}
		err = s.mapError(err)
		return AppInstance{}, err
	}

	instance.ClientSecret = registered.ClientSecret
	return instance, nil
}

// MakeResourceAdmin promotes the first logged-in user to the admin role for
// this resource client and advances the instance lifecycle.
func (s *Service) MakeResourceAdmin(ctx context.Context, userID string) (instance AppInstance, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{
		"user_id": userID,
	}
	defer func() {
		s.observeOperation(ctx, startedAt, "make_resource_admin", err, fields)
	}()

	if s == nil || s.identityClient == nil || s.appInstanceStore == nil {
		err = s.mapError(fmt.Errorf("core: identity client and app instance store are required"))
		return AppInstance{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		err = s.mapError(fmt.Errorf("core: user id is required"))
		return AppInstance{}, err
	}

	instance, err = s.Instance(ctx)
	if err != nil {
		return AppInstance{}, err
	}
	fields["client_id"] = instance.ClientID
	if instance.Status == AppStatusReady {
		return instance, nil
	}

	if err = s.identityClient.MakeResourceAdmin(ctx, MakeResourceAdminRequest{
		ClientID:     instance.ClientID,
		ClientSecret: instance.ClientSecret,
		UserID:       userID,
	}); err != nil {
		err = s.mapError(err)
		return AppInstance{}, err
	}

	now := s.clock.Now()
	if instance.Status == AppStatusPreRegistered {
		if err = instance.TransitionTo(AppStatusResourceAdmin, now); err != nil {
			err = s.mapError(err)
			return AppInstance{}, err
		}
	}
	if err = instance.TransitionTo(AppStatusReady, now); err != nil {
		err = s.mapError(err)
		return AppInstance{}, err
	}

	persisted := instance
	if s.secretService != nil && strings.TrimSpace(instance.ClientSecret) != "" {
		persisted.ClientSecret, err = s.secretService.Encrypt([]byte(instance.ClientSecret))
		if err != nil {
			err = s.mapError(err)
			return AppInstance{}, err
		}
	}
	if _, err = s.appInstanceStore.Update(ctx, persisted); err != nil {
		err = s.mapError(err)
		return AppInstance{}, err
	}
	return instance, nil
}
