package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/rental-admin-console/internal/console"
	"github.com/vasiliy-maslov/rental-admin-console/internal/session"
)

// Authenticate resolves the session cookie and binds the session to the
// request context. Missing, unknown or expired sessions get a 401 that
// points the client at the login page.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(h.cookie.Name)
		if err != nil || cookie.Value == "" {
			respondUnauthorized(w, "Authentication required")
			return
		}

		s, err := h.sessions.Get(r.Context(), cookie.Value)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) || errors.Is(err, session.ErrInvalidID) {
				h.workspaces.Drop(cookie.Value)
				h.clearCookie(w)
				respondUnauthorized(w, "Session expired, please log in again")
				return
			}
			log.Error().Err(err).Msg("Failed to load session")
			respondWithError(w, http.StatusInternalServerError, "Failed to load session")
			return
		}

		next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), s)))
	})
}

func RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, _ := session.FromContext(r.Context())
			if !s.HasPermission(permission) {
				respondWithError(w, http.StatusForbidden, "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (h *Handler) requireListingPermission(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "resource")
		permission, ok := console.ListingPermission(name)
		if !ok {
			respondWithError(w, http.StatusNotFound, "Unknown listing")
			return
		}
		RequirePermission(permission)(next).ServeHTTP(w, r)
	})
}

func (h *Handler) setCookie(w http.ResponseWriter, s *session.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    s.ID,
		Path:     "/",
		Expires:  s.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// endSession removes the current session everywhere: storage, workspace
// and the client cookie.
func (h *Handler) endSession(w http.ResponseWriter, r *http.Request) {
	s, ok := session.FromContext(r.Context())
	if ok {
		if err := h.sessions.Logout(r.Context(), s.ID); err != nil && !errors.Is(err, session.ErrNotFound) {
			log.Warn().Err(err).Str("session_id", s.ID).Msg("Failed to delete session")
		}
		h.workspaces.Drop(s.ID)
	}
	h.clearCookie(w)
}

func (h *Handler) workspace(r *http.Request) (*console.Workspace, *session.Session) {
	s, _ := session.FromContext(r.Context())
	return h.workspaces.For(s), s
}
