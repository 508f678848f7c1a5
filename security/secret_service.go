package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/goliatone/go-appauth/core"
	"golang.org/x/crypto/pbkdf2"
)

const (
	envelopePrefix    = "appauth.secret.v1:"
	envelopeAlgorithm = "aes-256-gcm"

	defaultIterations = 1000
	saltLength        = 32
	derivedKeyLength  = 32
)

type Option func(*BoxedSecretService)

// BoxedSecretService encrypts small payloads with AES-256-GCM under a key
// derived from a master passphrase via PBKDF2-HMAC-SHA256. Every Encrypt
// draws a fresh salt and nonce, so equal plaintexts never produce equal
// ciphertexts.
type BoxedSecretService struct {
	passphrase []byte
	iterations int
}

type envelope struct {
	Algorithm  string `json:"alg"`
	Iterations int    `json:"iter"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

func WithIterations(iterations int) Option {
	return func(service *BoxedSecretService) {
		if iterations > 0 {
			service.iterations = iterations
		}
	}
}

func NewBoxedSecretService(passphrase []byte, opts ...Option) (*BoxedSecretService, error) {
	if len(strings.TrimSpace(string(passphrase))) == 0 {
		return nil, fmt.Errorf("security: passphrase is required")
	}
	service := &BoxedSecretService{
		passphrase: append([]byte(nil), passphrase...),
		iterations: defaultIterations,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(service)
	}
	return service, nil
}

func NewBoxedSecretServiceFromString(passphrase string, opts ...Option) (*BoxedSecretService, error) {
	return NewBoxedSecretService([]byte(passphrase), opts...)
}

func (s *BoxedSecretService) Encrypt(plaintext []byte) (string, error) {
	if s == nil {
		return "", fmt.Errorf("security: secret service is nil")
	}
	if len(plaintext) == 0 {
		return "", fmt.Errorf("security: plaintext is required")
	}

	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("security: salt generation failed: %w", err)
	}
	gcm, err := s.sealer(salt, s.iterations)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("security: nonce generation failed: %w", err)
	}

	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	data, err := json.Marshal(envelope{
		Algorithm:  envelopeAlgorithm,
		Iterations: s.iterations,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		Ciphertext: base64.StdEncoding.EncodeToString(sealed),
	})
	if err != nil {
		return "", fmt.Errorf("security: encode envelope: %w", err)
	}
	return envelopePrefix + string(data), nil
}

func (s *BoxedSecretService) Decrypt(encoded string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("security: secret service is nil")
	}
	payload := strings.TrimSpace(encoded)
	if payload == "" {
		return nil, fmt.Errorf("security: ciphertext is required")
	}
	if !strings.HasPrefix(payload, envelopePrefix) {
		return nil, fmt.Errorf("security: invalid ciphertext envelope prefix")
	}
	payload = strings.TrimPrefix(payload, envelopePrefix)

	var parsed envelope
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		return nil, fmt.Errorf("security: decode envelope: %w", err)
	}
	if algorithm := strings.ToLower(strings.TrimSpace(parsed.Algorithm)); algorithm != "" && algorithm != envelopeAlgorithm {
		return nil, fmt.Errorf("security: unsupported envelope algorithm %q", parsed.Algorithm)
	}
	iterations := parsed.Iterations
	if iterations <= 0 {
		iterations = s.iterations
	}

	salt, err := base64.StdEncoding.DecodeString(parsed.Salt)
	if err != nil {
		return nil, fmt.Errorf("security: decode salt: %w", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(parsed.Nonce)
	if err != nil {
		return nil, fmt.Errorf("security: decode nonce: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(parsed.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("security: decode ciphertext payload: %w", err)
	}

	gcm, err := s.sealer(salt, iterations)
	if err != nil {
		return nil, err
	}
	// gcm.Open panics on a wrong-length nonce, so a truncated envelope
	// must be rejected here
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("security: decrypt payload: invalid nonce length %d", len(nonce))
	}
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("security: decrypt payload: %w", err)
	}
	return plaintext, nil
}

func (s *BoxedSecretService) sealer(salt []byte, iterations int) (cipher.AEAD, error) {
	if len(salt) == 0 {
		return nil, fmt.Errorf("security: salt is required")
	}
	key := pbkdf2.Key(s.passphrase, salt, iterations, derivedKeyLength, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("security: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("security: create gcm: %w", err)
	}
	return gcm, nil
}

var _ core.SecretService = (*BoxedSecretService)(nil)
