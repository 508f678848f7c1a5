package sessions

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/goliatone/go-appauth/core"
)

var ErrNoSession = fmt.Errorf("sessions: no active session")

// Manager issues and resolves server side sessions carried by an HTTP
// cookie. Session state lives in the backing store; the cookie only holds
// the opaque session ID.
type Manager struct {
	store    core.SessionStore
	logger   core.Logger
	clock    core.Clock
	cookie   core.SessionConfig
	lifetime time.Duration
}

type Option func(*Manager)

func WithLogger(logger core.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

func WithClock(clock core.Clock) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

func NewManager(store core.SessionStore, cfg core.Config, options ...Option) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("sessions: session store is required")
	}
	manager := &Manager{
		store:    store,
		logger:   glog.Nop(),
		clock:    core.SystemClock{},
		cookie:   cfg.Session,
		lifetime: cfg.SessionMaxAge(),
	}
	if strings.TrimSpace(manager.cookie.CookieName) == "" {
		manager.cookie.CookieName = "app_session"
	}
	for _, option := range options {
		if option != nil {
			option(manager)
		}
	}
	return manager, nil
}

// Create persists a new session and sets the session cookie on the response.
func (m *Manager) Create(ctx context.Context, w http.ResponseWriter, userID string, data map[string]any) (core.SessionRecord, error) {
	if m == nil || m.store == nil {
		return core.SessionRecord{}, fmt.Errorf("sessions: manager is not configured")
	}

	id, err := generateSessionID()
	if err != nil {
		return core.SessionRecord{}, fmt.Errorf("sessions: generate session id: %w", err)
	}
	now := m.clock.Now()
	if data == nil {
		data = map[string]any{}
	}
	record := core.SessionRecord{
		ID:        id,
		UserID:    strings.TrimSpace(userID),
		Data:      data,
		ExpiresAt: now.Add(m.lifetime),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.store.Save(ctx, record); err != nil {
		return core.SessionRecord{}, err
	}
	if w != nil {
		http.SetCookie(w, m.buildCookie(record.ID, int(m.lifetime.Seconds())))
	}
	return record, nil
}

// Read resolves the session referenced by the request cookie. Expired
// sessions are deleted on sight and reported as missing.
func (m *Manager) Read(ctx context.Context, r *http.Request) (core.SessionRecord, error) {
	if m == nil || m.store == nil {
		return core.SessionRecord{}, fmt.Errorf("sessions: manager is not configured")
	}
	if r == nil {
		return core.SessionRecord{}, ErrNoSession
	}
	cookie, err := r.Cookie(m.cookie.CookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return core.SessionRecord{}, ErrNoSession
	}

	record, err := m.store.Get(ctx, cookie.Value)
	if err != nil {
		return core.SessionRecord{}, ErrNoSession
	}
	if !record.ExpiresAt.IsZero() && !record.ExpiresAt.After(m.clock.Now()) {
		_ = m.store.Delete(ctx, record.ID)
		return core.SessionRecord{}, ErrNoSession
	}
	return record, nil
}

// Refresh persists updated session data and extends the expiry window.
func (m *Manager) Refresh(ctx context.Context, record core.SessionRecord) (core.SessionRecord, error) {
	if m == nil || m.store == nil {
		return core.SessionRecord{}, fmt.Errorf("sessions: manager is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return core.SessionRecord{}, ErrNoSession
	}
	now := m.clock.Now()
	record.ExpiresAt = now.Add(m.lifetime)
	record.UpdatedAt = now
	if err := m.store.Save(ctx, record); err != nil {
		return core.SessionRecord{}, err
	}
	return record, nil
}

// Clear removes the session referenced by the request and expires the cookie.
func (m *Manager) Clear(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	if m == nil || m.store == nil {
		return fmt.Errorf("sessions: manager is not configured")
	}
	if r != nil {
		if cookie, err := r.Cookie(m.cookie.CookieName); err == nil && strings.TrimSpace(cookie.Value) != "" {
			if deleteErr := m.store.Delete(ctx, cookie.Value); deleteErr != nil {
				return deleteErr
			}
		}
	}
	if w != nil {
		http.SetCookie(w, m.buildCookie("", -1))
	}
	return nil
}

// ClearForUser removes every session belonging to the user, for example
// after a role change or forced logout.
func (m *Manager) ClearForUser(ctx context.Context, userID string) (int, error) {
	if m == nil || m.store == nil {
		return 0, fmt.Errorf("sessions: manager is not configured")
	}
	return m.store.ClearForUser(ctx, userID)
}

func (m *Manager) CountForUser(ctx context.Context, userID string) (int, error) {
	if m == nil || m.store == nil {
		return 0, fmt.Errorf("sessions: manager is not configured")
	}
	return m.store.CountForUser(ctx, userID)
}

// PruneExpired deletes sessions whose expiry has passed and returns the count.
func (m *Manager) PruneExpired(ctx context.Context) (int, error) {
	if m == nil || m.store == nil {
		return 0, fmt.Errorf("sessions: manager is not configured")
	}
	return m.store.DeleteExpired(ctx, m.clock.Now())
}

func (m *Manager) CookieName() string {
	if m == nil {
		return ""
	}
	return m.cookie.CookieName
}

func (m *Manager) buildCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     m.cookie.CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.cookie.CookieSecure,
		SameSite: sameSiteMode(m.cookie.SameSite),
	}
}

func sameSiteMode(raw string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}

func generateSessionID() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
