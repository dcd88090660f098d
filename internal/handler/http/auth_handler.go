package http

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/rental-admin-console/internal/navigation"
	"github.com/vasiliy-maslov/rental-admin-console/internal/resource"
	"github.com/vasiliy-maslov/rental-admin-console/internal/session"
)

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ThemeRequest struct {
	Theme string `json:"theme" validate:"required,oneof=light dark"`
}

type MeResponse struct {
	User        resource.Profile   `json:"user"`
	Permissions []string           `json:"permissions"`
	Theme       session.Theme      `json:"theme"`
	ExpiresAt   time.Time          `json:"expiresAt"`
	Navigation  []navigation.Entry `json:"navigation"`
}

func toMeResponse(s *session.Session) MeResponse {
	perms := s.Permissions
	if perms == nil {
		perms = []string{}
	}
	return MeResponse{
		User:        s.User,
		Permissions: perms,
		Theme:       s.Theme,
		ExpiresAt:   s.ExpiresAt,
		Navigation:  navigation.For(s),
	}
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	s, err := h.sessions.Login(r.Context(), resource.Credentials{Username: req.Username, Password: req.Password})
	if err != nil {
		status := mapErrorToStatusCode(err)
		if status == http.StatusUnauthorized {
			log.Warn().Str("username", req.Username).Msg("Login rejected")
			respondWithError(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		h.fail(w, r, err, "Failed to log in")
		return
	}

	log.Info().Str("session_id", s.ID).Str("username", s.User.Username).Msg("Operator logged in")
	h.setCookie(w, s)
	respondWithJSON(w, http.StatusOK, toMeResponse(s))
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.endSession(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	s, _ := session.FromContext(r.Context())
	respondWithJSON(w, http.StatusOK, toMeResponse(s))
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s, _ := session.FromContext(r.Context())

	updated, err := h.sessions.Refresh(r.Context(), s)
	if err != nil {
		h.fail(w, r, err, "Failed to refresh profile")
		return
	}
	respondWithJSON(w, http.StatusOK, toMeResponse(updated))
}

func (h *Handler) handleSetTheme(w http.ResponseWriter, r *http.Request) {
	var req ThemeRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	s, _ := session.FromContext(r.Context())
	updated, err := h.sessions.SetTheme(r.Context(), s.ID, session.Theme(req.Theme))
	if err != nil {
		h.fail(w, r, err, "Failed to store theme")
		return
	}
	respondWithJSON(w, http.StatusOK, toMeResponse(updated))
}

func (h *Handler) handleNavigation(w http.ResponseWriter, r *http.Request) {
	s, _ := session.FromContext(r.Context())
	respondWithJSON(w, http.StatusOK, navigation.For(s))
}

func (h *Handler) handleBadge(w http.ResponseWriter, r *http.Request) {
	ws, _ := h.workspace(r)
	respondWithJSON(w, http.StatusOK, ws.Badge())
}
