package http

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/vasiliy-maslov/rental-admin-console/internal/console"
	"github.com/vasiliy-maslov/rental-admin-console/internal/contract"
	"github.com/vasiliy-maslov/rental-admin-console/internal/navigation"
	"github.com/vasiliy-maslov/rental-admin-console/internal/resource"
	"github.com/vasiliy-maslov/rental-admin-console/internal/session"
)

// SessionService is the part of session.Manager the handlers depend on.
type SessionService interface {
	Login(ctx context.Context, creds resource.Credentials) (*session.Session, error)
	Logout(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*session.Session, error)
	Refresh(ctx context.Context, s *session.Session) (*session.Session, error)
	SetTheme(ctx context.Context, id string, theme session.Theme) (*session.Session, error)
}

type CookieConfig struct {
	Name   string
	Secure bool
}

type Handler struct {
	sessions   SessionService
	workspaces *console.Registry
	services   *resource.Services
	company    contract.CompanyData
	cookie     CookieConfig
	validate   *validator.Validate
	now        func() time.Time
}

func NewHandler(sessions SessionService, workspaces *console.Registry, services *resource.Services, company contract.CompanyData, cookie CookieConfig) *Handler {
	if cookie.Name == "" {
		cookie.Name = "console_session"
	}
	return &Handler{
		sessions:   sessions,
		workspaces: workspaces,
		services:   services,
		company:    company,
		cookie:     cookie,
		validate:   newValidator(),
		now:        time.Now,
	}
}

func (h *Handler) RegisterRoutes(router chi.Router) {
	router.Post("/login", h.handleLogin)

	router.Group(func(r chi.Router) {
		r.Use(h.Authenticate)

		r.Post("/logout", h.handleLogout)
		r.Get("/me", h.handleMe)
		r.Post("/me/refresh", h.handleRefresh)
		r.Put("/me/theme", h.handleSetTheme)
		r.Get("/navigation", h.handleNavigation)
		r.Get("/notifications/badge", h.handleBadge)

		r.Route("/lists/{resource}", func(r chi.Router) {
			r.Use(h.requireListingPermission)
			r.Get("/", h.handleListView)
			r.Post("/load", h.handleListLoad)
			r.Post("/search", h.handleListSearch)
			r.Post("/next", h.handleListNext)
			r.Post("/prev", h.handleListPrev)
			r.Put("/size", h.handleListSize)
			r.Get("/export.xlsx", h.handleListExport)
		})

		r.Group(func(r chi.Router) {
			r.Use(RequirePermission(navigation.PermOrdersCreate))
			r.Post("/drafts", h.handleCreateDraft)
			r.Get("/drafts", h.handleListDrafts)
			r.Get("/drafts/{id}", h.handleGetDraft)
			r.Put("/drafts/{id}", h.handleUpdateDraft)
			r.Delete("/drafts/{id}", h.handleCloseDraft)
			r.Post("/drafts/{id}/customer", h.handleLookupCustomer)
			r.Put("/drafts/{id}/customer", h.handleSelectCustomer)
			r.Post("/drafts/{id}/items", h.handleAddItem)
			r.Delete("/drafts/{id}/items/{code}", h.handleRemoveItem)
			r.Get("/drafts/{id}/contract.pdf", h.handleDraftContract)
			r.Post("/drafts/{id}/submit", h.handleSubmitDraft)
		})

		h.registerActionRoutes(r)
	})
}
