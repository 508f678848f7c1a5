package security

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
)

func newTestSecretService(t *testing.T) *BoxedSecretService {
	t.Helper()
	service, err := NewBoxedSecretServiceFromString("master-passphrase", WithIterations(10))
	if err != nil {
		t.Fatalf("new secret service: %v", err)
	}
	return service
}

func TestBoxedSecretService_RoundTrip(t *testing.T) {
	service := newTestSecretService(t)

	encoded, err := service.Encrypt([]byte("client_secret_value"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if !strings.HasPrefix(encoded, "appauth.secret.v1:") {
		t.Fatalf("missing envelope prefix: %q", encoded)
	}
	if strings.Contains(encoded, "client_secret_value") {
		t.Fatalf("plaintext leaked into envelope")
	}

	plaintext, err := service.Decrypt(encoded)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if !bytes.Equal(plaintext, []byte("client_secret_value")) {
		t.Fatalf("round trip mismatch: %q", plaintext)
	}
}

func TestBoxedSecretService_EqualPlaintextsDiffer(t *testing.T) {
	service := newTestSecretService(t)

	first, err := service.Encrypt([]byte("same"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	second, err := service.Encrypt([]byte("same"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if first == second {
		t.Fatalf("fresh salt and nonce must make envelopes unique")
	}
}

func TestBoxedSecretService_EnvelopeFields(t *testing.T) {
	service := newTestSecretService(t)

	encoded, err := service.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	var parsed struct {
		Algorithm  string `json:"alg"`
		Iterations int    `json:"iter"`
		Salt       string `json:"salt"`
		Nonce      string `json:"nonce"`
		Ciphertext string `json:"ciphertext"`
	}
	payload := strings.TrimPrefix(encoded, "appauth.secret.v1:")
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if parsed.Algorithm != "aes-256-gcm" {
		t.Fatalf("unexpected algorithm %q", parsed.Algorithm)
	}
	if parsed.Iterations != 10 {
		t.Fatalf("unexpected iterations %d", parsed.Iterations)
	}
	salt, err := base64.StdEncoding.DecodeString(parsed.Salt)
	if err != nil || len(salt) != 32 {
		t.Fatalf("expected 32-byte salt, got %d (%v)", len(salt), err)
	}
	if parsed.Nonce == "" || parsed.Ciphertext == "" {
		t.Fatalf("incomplete envelope: %+v", parsed)
	}
}

func TestBoxedSecretService_TamperDetection(t *testing.T) {
	service := newTestSecretService(t)

	encoded, err := service.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	payload := strings.TrimPrefix(encoded, "appauth.secret.v1:")
	var parsed map[string]any
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(parsed["ciphertext"].(string))
	if err != nil {
		t.Fatalf("decode ciphertext: %v", err)
	}
	sealed[0] ^= 0x01
	parsed["ciphertext"] = base64.StdEncoding.EncodeToString(sealed)
	tampered, err := json.Marshal(parsed)
	if err != nil {
		t.Fatalf("encode tampered envelope: %v", err)
	}

	if _, err := service.Decrypt("appauth.secret.v1:" + string(tampered)); err == nil {
		t.Fatalf("expected authentication failure on tampered ciphertext")
	}
}

func TestBoxedSecretService_TruncatedNonceErrorsInsteadOfPanicking(t *testing.T) {
	service := newTestSecretService(t)

	encoded, err := service.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	payload := strings.TrimPrefix(encoded, "appauth.secret.v1:")
	var parsed map[string]any
	if err := json.Unmarshal([]byte(payload), &parsed); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	nonce, err := base64.StdEncoding.DecodeString(parsed["nonce"].(string))
	if err != nil {
		t.Fatalf("decode nonce: %v", err)
	}
	parsed["nonce"] = base64.StdEncoding.EncodeToString(nonce[:len(nonce)-4])
	tampered, err := json.Marshal(parsed)
	if err != nil {
		t.Fatalf("encode tampered envelope: %v", err)
	}

	_, err = service.Decrypt("appauth.secret.v1:" + string(tampered))
	if err == nil {
		t.Fatalf("expected decrypt failure on truncated nonce")
	}
	if !strings.Contains(err.Error(), "invalid nonce length") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestBoxedSecretService_WrongPassphraseFails(t *testing.T) {
	service := newTestSecretService(t)
	encoded, err := service.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	other, err := NewBoxedSecretServiceFromString("different-passphrase", WithIterations(10))
	if err != nil {
		t.Fatalf("new secret service: %v", err)
	}
	if _, err := other.Decrypt(encoded); err == nil {
		t.Fatalf("expected decrypt failure under a different passphrase")
	}
}

func TestBoxedSecretService_Validation(t *testing.T) {
	if _, err := NewBoxedSecretServiceFromString("   "); err == nil {
		t.Fatalf("expected empty passphrase rejection")
	}

	service := newTestSecretService(t)
	if _, err := service.Encrypt(nil); err == nil {
		t.Fatalf("expected empty plaintext rejection")
	}
	if _, err := service.Decrypt(""); err == nil {
		t.Fatalf("expected empty ciphertext rejection")
	}
	if _, err := service.Decrypt("not-an-envelope"); err == nil {
		t.Fatalf("expected prefix rejection")
	}
	if _, err := service.Decrypt("appauth.secret.v1:{bad json"); err == nil {
		t.Fatalf("expected malformed envelope rejection")
	}
}

func TestBoxedSecretService_DecryptRespectsEnvelopeIterations(t *testing.T) {
	// an envelope written with a different iteration count must still open
	writer, err := NewBoxedSecretServiceFromString("master-passphrase", WithIterations(25))
	if err != nil {
		t.Fatalf("new secret service: %v", err)
	}
	encoded, err := writer.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	reader := newTestSecretService(t)
	plaintext, err := reader.Decrypt(encoded)
	if err != nil {
		t.Fatalf("decrypt with envelope iterations: %v", err)
	}
	if string(plaintext) != "payload" {
		t.Fatalf("round trip mismatch: %q", plaintext)
	}
}
