package core

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type stubSecretService struct {
	encryptErr error
	decryptErr error
}

func (s *stubSecretService) Encrypt(plaintext []byte) (string, error) {
	if s.encryptErr != nil {
		return "", s.encryptErr
	}
	return "enc:" + string(plaintext), nil
}

func (s *stubSecretService) Decrypt(ciphertext string) ([]byte, error) {
	if s.decryptErr != nil {
		return nil, s.decryptErr
	}
	return []byte(strings.TrimPrefix(ciphertext, "enc:")), nil
}

func TestRegisterInstance_EncryptsSecretAtRest(t *testing.T) {
	env := newTestEnv(t, WithSecretService(&stubSecretService{}))

	var registerReq RegisterClientRequest
	env.identity.registerClient = func(_ context.Context, req RegisterClientRequest) (RegisteredApp, error) {
		registerReq = req
		return RegisteredApp{ClientID: "client_1", ClientSecret: "plain_secret"}, nil
	}

	instance, err := env.service.RegisterInstance(context.Background(), RegisterClientRequest{AppName: "inference host"})
	if err != nil {
		t.Fatalf("register instance: %v", err)
	}
	if instance.Status != AppStatusPreRegistered {
		t.Fatalf("expected pre_registered, got %q", instance.Status)
	}
	// the caller gets the plaintext secret, storage gets the ciphertext
	if instance.ClientSecret != "plain_secret" {
		t.Fatalf("expected plaintext secret returned, got %q", instance.ClientSecret)
	}
	if env.instances.instance.ClientSecret != "enc:plain_secret" {
		t.Fatalf("expected encrypted secret at rest, got %q", env.instances.instance.ClientSecret)
	}
	if len(registerReq.RedirectURIs) != 1 || registerReq.RedirectURIs[0] != "http://localhost:1135/auth/callback" {
		t.Fatalf("expected default redirect uri registered, got %v", registerReq.RedirectURIs)
	}
}

func TestRegisterInstance_SecondRegistrationConflicts(t *testing.T) {
	env := newTestEnv(t)
	env.identity.registerClient = func(context.Context, RegisterClientRequest) (RegisteredApp, error) {
		return RegisteredApp{ClientID: "client_1", ClientSecret: "plain_secret"}, nil
	}

	if _, err := env.service.RegisterInstance(context.Background(), RegisterClientRequest{AppName: "inference host"}); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	_, err := env.service.RegisterInstance(context.Background(), RegisterClientRequest{AppName: "inference host"})
	if err == nil {
		t.Fatalf("expected conflict on second registration")
	}
	if errCategory(t, err) != goerrors.CategoryConflict {
		t.Fatalf("expected conflict category, got %v", errCategory(t, err))
	}
}

func TestRegisterInstance_RequiresAppName(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.service.RegisterInstance(context.Background(), RegisterClientRequest{}); err == nil {
		t.Fatalf("expected app name rejection")
	}
}

func TestInstance_DecryptsStoredSecret(t *testing.T) {
	env := newTestEnv(t, WithSecretService(&stubSecretService{}))
	env.instances.instance = &AppInstance{
		ClientID:     "client_1",
		ClientSecret: "enc:plain_secret",
		Status:       AppStatusReady,
	}

	instance, err := env.service.Instance(context.Background())
	if err != nil {
		t.Fatalf("instance: %v", err)
	}
	if instance.ClientSecret != "plain_secret" {
		t.Fatalf("expected decrypted secret, got %q", instance.ClientSecret)
	}
}

func TestInstance_DecryptFailureSurfaces(t *testing.T) {
	env := newTestEnv(t, WithSecretService(&stubSecretService{
		decryptErr: fmt.Errorf("decrypt credential: cipher: message authentication failed"),
	}))
	env.instances.instance = &AppInstance{
		ClientID:     "client_1",
		ClientSecret: "enc:plain_secret",
		Status:       AppStatusReady,
	}

	_, err := env.service.Instance(context.Background())
	if err == nil {
		t.Fatalf("expected decrypt failure")
	}
	if errCategory(t, err) != goerrors.CategoryInternal {
		t.Fatalf("expected internal category, got %v", errCategory(t, err))
	}
}

func TestMakeResourceAdmin_AdvancesLifecycleToReady(t *testing.T) {
	env := newTestEnv(t, WithSecretService(&stubSecretService{}))
	env.instances.instance = &AppInstance{
		ClientID:     "client_1",
		ClientSecret: "enc:plain_secret",
		Status:       AppStatusPreRegistered,
	}

	var adminReq MakeResourceAdminRequest
	env.identity.makeResourceAdmin = func(_ context.Context, req MakeResourceAdminRequest) error {
		adminReq = req
		return nil
	}

	instance, err := env.service.MakeResourceAdmin(context.Background(), "usr_1")
	if err != nil {
		t.Fatalf("make resource admin: %v", err)
	}
	if instance.Status != AppStatusReady {
		t.Fatalf("expected ready, got %q", instance.Status)
	}
	if adminReq.UserID != "usr_1" || adminReq.ClientSecret != "plain_secret" {
		t.Fatalf("expected decrypted credentials on provider call: %+v", adminReq)
	}
	// the persisted row stays encrypted
	if env.instances.instance.ClientSecret != "enc:plain_secret" {
		t.Fatalf("expected encrypted secret at rest, got %q", env.instances.instance.ClientSecret)
	}
	if env.instances.instance.Status != AppStatusReady {
		t.Fatalf("expected persisted ready status, got %q", env.instances.instance.Status)
	}
}

func TestMakeResourceAdmin_IdempotentOnceReady(t *testing.T) {
	env := newTestEnv(t)
	env.seedReadyInstance()

	var calls int
	env.identity.makeResourceAdmin = func(context.Context, MakeResourceAdminRequest) error {
		calls++
		return nil
	}

	instance, err := env.service.MakeResourceAdmin(context.Background(), "usr_1")
	if err != nil {
		t.Fatalf("make resource admin: %v", err)
	}
	if instance.Status != AppStatusReady {
		t.Fatalf("expected ready, got %q", instance.Status)
	}
	if calls != 0 {
		t.Fatalf("ready instances must not re-run the provider grant, got %d calls", calls)
	}
}

func TestMakeResourceAdmin_ProviderFailureLeavesStatus(t *testing.T) {
	env := newTestEnv(t)
	env.instances.instance = &AppInstance{
		ClientID:     "client_1",
		ClientSecret: "secret_1",
		Status:       AppStatusPreRegistered,
	}
	env.identity.makeResourceAdmin = func(context.Context, MakeResourceAdminRequest) error {
		return fmt.Errorf("provider returned status 500")
	}

	if _, err := env.service.MakeResourceAdmin(context.Background(), "usr_1"); err == nil {
		t.Fatalf("expected provider failure")
	}
	if env.instances.instance.Status != AppStatusPreRegistered {
		t.Fatalf("failed grant must not advance the lifecycle, got %q", env.instances.instance.Status)
	}
}

func TestAppInstance_TransitionRules(t *testing.T) {
	cases := []struct {
		from    AppStatus
		to      AppStatus
		allowed bool
	}{
		{AppStatusSetup, AppStatusPreRegistered, true},
		{AppStatusPreRegistered, AppStatusResourceAdmin, true},
		{AppStatusResourceAdmin, AppStatusReady, true},
		{AppStatusSetup, AppStatusReady, false},
		{AppStatusReady, AppStatusSetup, false},
		{AppStatusPreRegistered, AppStatusReady, false},
	}
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for _, tc := range cases {
		instance := AppInstance{Status: tc.from}
		err := instance.TransitionTo(tc.to, now)
		if tc.allowed && err != nil {
			t.Fatalf("%s -> %s should be allowed: %v", tc.from, tc.to, err)
		}
		if !tc.allowed && err == nil {
			t.Fatalf("%s -> %s should be rejected", tc.from, tc.to)
		}
	}
}
