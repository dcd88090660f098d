package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/rental-admin-console/internal/resource"
)

type Authenticator interface {
	Login(ctx context.Context, creds resource.Credentials) (resource.LoginResponse, error)
	Me(ctx context.Context) (resource.Me, error)
}

type Manager struct {
	storage Storage
	auth    Authenticator
	ttl     time.Duration
	now     func() time.Time
}

// NewManager builds a manager. ttl bounds sessions whose token carries no expiry.
func NewManager(storage Storage, auth Authenticator, ttl time.Duration) *Manager {
	return &Manager{
		storage: storage,
		auth:    auth,
		ttl:     ttl,
		now:     time.Now,
	}
}

// WithClock replaces the time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

func (m *Manager) Login(ctx context.Context, creds resource.Credentials) (*Session, error) {
	resp, err := m.auth.Login(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("login failed: %w", err)
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session id: %w", err)
	}

	now := m.now().UTC()
	s := &Session{
		ID:          id.String(),
		Token:       resp.AccessToken,
		User:        resp.User,
		Permissions: resp.Permissions,
		Theme:       ThemeLight,
		CreatedAt:   now,
		ExpiresAt:   now.Add(m.ttl),
	}
	if exp, ok := tokenExpiry(resp.AccessToken); ok && exp.Before(s.ExpiresAt) {
		s.ExpiresAt = exp.UTC()
	}

	// The login answer may omit permissions; /auth/me is authoritative then.
	if len(s.Permissions) == 0 {
		if err := m.refresh(ctx, s); err != nil {
			return nil, err
		}
	}

	if err := m.storage.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	log.Info().Str("session_id", s.ID).Str("username", s.User.Username).Int("permissions", len(s.Permissions)).Msg("Operator logged in")
	return s, nil
}

func (m *Manager) Logout(ctx context.Context, id string) error {
	if err := m.storage.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	log.Info().Str("session_id", id).Msg("Operator logged out")
	return nil
}

// Get hydrates a session from storage. Expired sessions are removed and
// reported as ErrExpired.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	s, err := m.storage.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	now := m.now()
	if s.expired(now) {
		m.drop(ctx, id)
		return nil, ErrExpired
	}
	if exp, ok := tokenExpiry(s.Token); ok && !now.Before(exp) {
		m.drop(ctx, id)
		return nil, ErrExpired
	}
	return s, nil
}

// Refresh reloads profile and permissions from the backend.
func (m *Manager) Refresh(ctx context.Context, s *Session) (*Session, error) {
	updated := *s
	if err := m.refresh(ctx, &updated); err != nil {
		return nil, err
	}
	if err := m.storage.Save(ctx, &updated); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return &updated, nil
}

func (m *Manager) refresh(ctx context.Context, s *Session) error {
	me, err := m.auth.Me(NewContext(ctx, s))
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}
	s.User = me.User
	s.Permissions = me.Permissions
	return nil
}

func (m *Manager) SetTheme(ctx context.Context, id string, theme Theme) (*Session, error) {
	if !theme.Valid() {
		return nil, ErrInvalidTheme
	}
	s, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Theme = theme
	if err := m.storage.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return s, nil
}

// AccessToken returns the token of the session bound to ctx, verbatim.
func (m *Manager) AccessToken(ctx context.Context) string {
	return Tokens{}.AccessToken(ctx)
}

func (m *Manager) drop(ctx context.Context, id string) {
	if err := m.storage.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		log.Warn().Err(err).Str("session_id", id).Msg("Failed to delete expired session")
	}
}

func parseID(id string) (uuid.UUID, error) {
	parsed, err := uuid.FromString(id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return parsed, nil
}

type purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// PurgeExpired drops stored sessions that are past their expiry, when the
// storage supports it.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	p, ok := m.storage.(purger)
	if !ok {
		return 0, nil
	}
	return p.PurgeExpired(ctx, m.now())
}
