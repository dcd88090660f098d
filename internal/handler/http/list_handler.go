package http

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/rental-admin-console/internal/console"
	"github.com/vasiliy-maslov/rental-admin-console/internal/export"
)

type SearchRequest struct {
	Keyword string `json:"keyword" validate:"max=200"`
	Status  string `json:"status" validate:"max=50"`
}

type PageSizeRequest struct {
	Size int `json:"size" validate:"required,min=1,max=100"`
}

func (h *Handler) listing(w http.ResponseWriter, r *http.Request) (console.Listing, bool) {
	ws, _ := h.workspace(r)
	l, err := ws.Listing(chi.URLParam(r, "resource"))
	if err != nil {
		h.fail(w, r, err, "Failed to open listing")
		return nil, false
	}
	return l, true
}

// handleListView returns the current page, fetching it the first time the
// listing is opened.
func (h *Handler) handleListView(w http.ResponseWriter, r *http.Request) {
	l, ok := h.listing(w, r)
	if !ok {
		return
	}
	if !l.Loaded() {
		if err := l.Load(r.Context()); err != nil {
			h.fail(w, r, err, fmt.Sprintf("Failed to load %s", l.Name()))
			return
		}
	}
	respondWithJSON(w, http.StatusOK, l.View())
}

func (h *Handler) handleListLoad(w http.ResponseWriter, r *http.Request) {
	l, ok := h.listing(w, r)
	if !ok {
		return
	}
	if err := l.Load(r.Context()); err != nil {
		h.fail(w, r, err, fmt.Sprintf("Failed to load %s", l.Name()))
		return
	}
	respondWithJSON(w, http.StatusOK, l.View())
}

func (h *Handler) handleListSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	l, ok := h.listing(w, r)
	if !ok {
		return
	}
	if err := l.Search(r.Context(), req.Keyword, req.Status); err != nil {
		h.fail(w, r, err, fmt.Sprintf("Failed to search %s", l.Name()))
		return
	}
	respondWithJSON(w, http.StatusOK, l.View())
}

func (h *Handler) handleListNext(w http.ResponseWriter, r *http.Request) {
	l, ok := h.listing(w, r)
	if !ok {
		return
	}
	if err := l.Next(r.Context()); err != nil {
		h.fail(w, r, err, fmt.Sprintf("Failed to load %s", l.Name()))
		return
	}
	respondWithJSON(w, http.StatusOK, l.View())
}

func (h *Handler) handleListPrev(w http.ResponseWriter, r *http.Request) {
	l, ok := h.listing(w, r)
	if !ok {
		return
	}
	if err := l.Prev(r.Context()); err != nil {
		h.fail(w, r, err, fmt.Sprintf("Failed to load %s", l.Name()))
		return
	}
	respondWithJSON(w, http.StatusOK, l.View())
}

func (h *Handler) handleListSize(w http.ResponseWriter, r *http.Request) {
	var req PageSizeRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	l, ok := h.listing(w, r)
	if !ok {
		return
	}
	if err := l.SetSize(r.Context(), req.Size); err != nil {
		h.fail(w, r, err, fmt.Sprintf("Failed to load %s", l.Name()))
		return
	}
	respondWithJSON(w, http.StatusOK, l.View())
}

// handleListExport streams the rows currently on display as a spreadsheet.
func (h *Handler) handleListExport(w http.ResponseWriter, r *http.Request) {
	l, ok := h.listing(w, r)
	if !ok {
		return
	}
	if !l.Loaded() {
		respondWithError(w, http.StatusConflict, "Nothing to export, load the listing first")
		return
	}

	var buf bytes.Buffer
	if err := l.Export(&buf); err != nil {
		log.Error().Err(err).Str("listing", l.Name()).Msg("Failed to export listing")
		respondWithError(w, http.StatusInternalServerError, "Failed to export listing")
		return
	}

	writeAttachment(w, export.ContentType, export.Filename(l.Name(), l.Page()), buf.Bytes())
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Error().Err(err).Str("filename", filename).Msg("Failed to write attachment")
	}
}
