// Package session holds the operator session: profile, permissions, access
// token and theme. Sessions live in a pluggable Storage so they survive a
// console restart.
package session

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/vasiliy-maslov/rental-admin-console/internal/resource"
)

var (
	ErrNotFound     = errors.New("session not found")
	ErrExpired      = errors.New("session expired")
	ErrInvalidTheme = errors.New("invalid theme")
	ErrInvalidID    = errors.New("invalid session id")
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

func (t Theme) Valid() bool {
	return t == ThemeLight || t == ThemeDark
}

type Session struct {
	ID          string           `json:"id"`
	Token       string           `json:"token"`
	User        resource.Profile `json:"user"`
	Permissions []string         `json:"permissions"`
	Theme       Theme            `json:"theme"`
	CreatedAt   time.Time        `json:"createdAt"`
	ExpiresAt   time.Time        `json:"expiresAt"`
}

// HasPermission is true iff name is in the permission list. A nil session has none.
func (s *Session) HasPermission(name string) bool {
	if s == nil {
		return false
	}
	return slices.Contains(s.Permissions, name)
}

func (s *Session) expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

type Storage interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Delete(ctx context.Context, id string) error
}

type ctxKey struct{}

func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}

// Tokens hands the access token of the session bound to a context to the
// backend client.
type Tokens struct{}

func (Tokens) AccessToken(ctx context.Context) string {
	s, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return s.Token
}
