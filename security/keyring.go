package security

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/goliatone/go-appauth/core"
	keyring "github.com/zalando/go-keyring"
)

// ErrKeyringEntryNotFound is returned when the OS credential store has no
// entry for the requested key.
var ErrKeyringEntryNotFound = errors.New("security: keyring entry not found")

// SystemKeyring stores secrets in the OS credential manager under a fixed
// service namespace.
type SystemKeyring struct {
	service string
}

func NewSystemKeyring(service string) (*SystemKeyring, error) {
	service = strings.TrimSpace(service)
	if service == "" {
		return nil, fmt.Errorf("security: keyring service name is required")
	}
	return &SystemKeyring{service: service}, nil
}

func (k *SystemKeyring) Get(key string) (string, error) {
	if k == nil {
		return "", fmt.Errorf("security: keyring is nil")
	}
	value, err := keyring.Get(k.service, strings.TrimSpace(key))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrKeyringEntryNotFound
		}
		return "", fmt.Errorf("security: keyring get: %w", err)
	}
	return value, nil
}

func (k *SystemKeyring) Set(key, value string) error {
	if k == nil {
		return fmt.Errorf("security: keyring is nil")
	}
	if err := keyring.Set(k.service, strings.TrimSpace(key), value); err != nil {
		return fmt.Errorf("security: keyring set: %w", err)
	}
	return nil
}

func (k *SystemKeyring) Delete(key string) error {
	if k == nil {
		return fmt.Errorf("security: keyring is nil")
	}
	if err := keyring.Delete(k.service, strings.TrimSpace(key)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrKeyringEntryNotFound
		}
		return fmt.Errorf("security: keyring delete: %w", err)
	}
	return nil
}

// MemoryKeyring backs environments without an OS credential store, such as
// containers and tests.
type MemoryKeyring struct {
	mu      sync.Mutex
	entries map[string]string
}

func NewMemoryKeyring() *MemoryKeyring {
	return &MemoryKeyring{entries: map[string]string{}}
}

func (k *MemoryKeyring) Get(key string) (string, error) {
	if k == nil {
		return "", fmt.Errorf("security: keyring is nil")
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	value, ok := k.entries[strings.TrimSpace(key)]
	if !ok {
		return "", ErrKeyringEntryNotFound
	}
	return value, nil
}

func (k *MemoryKeyring) Set(key, value string) error {
	if k == nil {
		return fmt.Errorf("security: keyring is nil")
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	k.entries[strings.TrimSpace(key)] = value
	return nil
}

func (k *MemoryKeyring) Delete(key string) error {
	if k == nil {
		return fmt.Errorf("security: keyring is nil")
	}
	k.mu.Lock()
	defer k.mu.Unlock()
	key = strings.TrimSpace(key)
	if _, ok := k.entries[key]; !ok {
		return ErrKeyringEntryNotFound
	}
	delete(k.entries, key)
	return nil
}

// LoadOrCreateMasterKey returns the master passphrase stored under key,
// generating and persisting a random one on first use.
func LoadOrCreateMasterKey(ring core.Keyring, key string) (string, error) {
	if ring == nil {
		return "", fmt.Errorf("security: keyring is required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("security: master key name is required")
	}

	existing, err := ring.Get(key)
	if err == nil && strings.TrimSpace(existing) != "" {
		return existing, nil
	}
	if err != nil && !errors.Is(err, ErrKeyringEntryNotFound) {
		return "", err
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("security: generate master key: %w", err)
	}
	generated := base64.RawURLEncoding.EncodeToString(raw)
	if err := ring.Set(key, generated); err != nil {
		return "", err
	}
	return generated, nil
}

var (
	_ core.Keyring = (*SystemKeyring)(nil)
	_ core.Keyring = (*MemoryKeyring)(nil)
)
