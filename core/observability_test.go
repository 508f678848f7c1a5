package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
)

type capturedLog struct {
	level  string
	msg    string
	fields map[string]any
}

type captureLogger struct {
	mu       *sync.Mutex
	records  *[]capturedLog
	defaults map[string]any
}

func newCaptureLogger() *captureLogger {
	records := []capturedLog{}
	return &captureLogger{mu: &sync.Mutex{}, records: &records, defaults: map[string]any{}}
}

func (l *captureLogger) WithFields(fields map[string]any) Logger {
	merged := cloneFields(l.defaults)
	for key, value := range fields {
		merged[key] = value
	}
	return &captureLogger{mu: l.mu, records: l.records, defaults: merged}
}

func (l *captureLogger) Trace(msg string, args ...any) { l.record("trace", msg, args...) }
func (l *captureLogger) Debug(msg string, args ...any) { l.record("debug", msg, args...) }
func (l *captureLogger) Info(msg string, args ...any)  { l.record("info", msg, args...) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.record("warn", msg, args...) }
func (l *captureLogger) Error(msg string, args ...any) { l.record("error", msg, args...) }
func (l *captureLogger) Fatal(msg string, args ...any) { l.record("fatal", msg, args...) }

func (l *captureLogger) WithContext(context.Context) Logger {
	return &captureLogger{mu: l.mu, records: l.records, defaults: cloneFields(l.defaults)}
}

func (l *captureLogger) record(level string, msg string, args ...any) {
	fields := cloneFields(l.defaults)
	for index := 0; index+1 < len(args); index += 2 {
		key, ok := args[index].(string)
		if !ok {
			continue
		}
		fields[key] = args[index+1]
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	*l.records = append(*l.records, capturedLog{level: level, msg: msg, fields: fields})
}

func (l *captureLogger) snapshot() []capturedLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	items := *l.records
	out := make([]capturedLog, len(items))
	copy(out, items)
	return out
}

func (l *captureLogger) firstAtLevel(level string) (capturedLog, bool) {
	for _, entry := range l.snapshot() {
		if entry.level == level {
			return entry, true
		}
	}
	return capturedLog{}, false
}

func TestLogWithLevel_RedactsSensitiveFields(t *testing.T) {
	logger := newCaptureLogger()
	env := newTestEnv(t, WithLogger(logger))

	env.service.logWithLevel(context.Background(), "info", "login completed", map[string]any{
		"client_secret": "s3cret",
		"refresh_token": "rt_1",
		"user_id":       "usr_1",
		"token_name":    "ci token",
	})

	entry, ok := logger.firstAtLevel("info")
	if !ok {
		t.Fatalf("expected an info entry, got %+v", logger.snapshot())
	}
	if entry.fields["client_secret"] != RedactedValue {
		t.Fatalf("client_secret not redacted: %+v", entry.fields)
	}
	if entry.fields["refresh_token"] != RedactedValue {
		t.Fatalf("refresh_token not redacted: %+v", entry.fields)
	}
	if entry.fields["user_id"] != "usr_1" {
		t.Fatalf("traceability field lost: %+v", entry.fields)
	}
	if entry.fields["token_name"] != "ci token" {
		t.Fatalf("token name must stay readable: %+v", entry.fields)
	}
}

func TestObserveOperation_FailureLogsRedactedFields(t *testing.T) {
	logger := newCaptureLogger()
	env := newTestEnv(t, WithLogger(logger))
	env.seedReadyInstance()

	env.identity.refreshToken = func(context.Context, RefreshTokenRequest) (TokenPair, error) {
		return TokenPair{}, fmt.Errorf("provider rejected the grant")
	}
	if _, err := env.service.RefreshSessionTokens(context.Background(), "refresh_1"); err == nil {
		t.Fatalf("expected refresh failure")
	}

	entry, ok := logger.firstAtLevel("error")
	if !ok {
		t.Fatalf("expected an error entry, got %+v", logger.snapshot())
	}
	if entry.fields["status"] != "failure" {
		t.Fatalf("unexpected status field: %+v", entry.fields)
	}
	for key, value := range entry.fields {
		if text, ok := value.(string); ok && text == "refresh_1" {
			t.Fatalf("refresh token leaked into field %q", key)
		}
	}
}
