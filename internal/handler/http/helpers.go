package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/rental-admin-console/internal/apiclient"
	"github.com/vasiliy-maslov/rental-admin-console/internal/console"
	"github.com/vasiliy-maslov/rental-admin-console/internal/contract"
	"github.com/vasiliy-maslov/rental-admin-console/internal/order"
	"github.com/vasiliy-maslov/rental-admin-console/internal/paging"
	"github.com/vasiliy-maslov/rental-admin-console/internal/resource"
	"github.com/vasiliy-maslov/rental-admin-console/internal/session"
)

type ValidationErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

type UnauthorizedResponse struct {
	Error    string `json:"error"`
	Redirect string `json:"redirect"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Failed to marshal JSON response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func respondUnauthorized(w http.ResponseWriter, message string) {
	respondWithJSON(w, http.StatusUnauthorized, UnauthorizedResponse{Error: message, Redirect: "/login"})
}

func respondValidation(w http.ResponseWriter, details map[string]string) {
	respondWithJSON(w, http.StatusBadRequest, ValidationErrorResponse{
		Error:   "Validation failed",
		Details: details,
	})
}

func mapErrorToStatusCode(err error) int {
	var apiErr *apiclient.APIError
	switch {
	case errors.Is(err, apiclient.ErrUnauthorized),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrExpired):
		return http.StatusUnauthorized
	case errors.Is(err, apiclient.ErrNotFound),
		errors.Is(err, console.ErrUnknownListing),
		errors.Is(err, console.ErrDraftNotFound),
		errors.Is(err, order.ErrProductNotFound),
		errors.Is(err, order.ErrItemNotFound),
		errors.Is(err, order.ErrUnknownCustomer):
		return http.StatusNotFound
	case errors.Is(err, session.ErrInvalidTheme),
		errors.Is(err, paging.ErrInvalidSize),
		errors.Is(err, order.ErrInvalidFIN),
		errors.Is(err, order.ErrInvalidItem),
		errors.Is(err, order.ErrInvalidDate),
		errors.Is(err, order.ErrDateRange),
		errors.Is(err, order.ErrInvalidOrderType):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrBusy),
		errors.Is(err, order.ErrAlreadySubmitted),
		errors.Is(err, resource.ErrStatusAlreadySet),
		errors.Is(err, resource.ErrInvalidStatusTransition),
		errors.Is(err, paging.ErrFirstPage),
		errors.Is(err, paging.ErrLastPage):
		return http.StatusConflict
	case errors.Is(err, order.ErrTypeConflict),
		errors.Is(err, order.ErrDateUnavailable),
		errors.Is(err, order.ErrIncomplete),
		errors.Is(err, contract.ErrEmptyDraft):
		return http.StatusUnprocessableEntity
	case errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500:
		return apiErr.Status
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage picks what the operator sees: backend or domain wording for
// 4xx answers, the generic fallback otherwise.
func clientMessage(err error, status int, fallback string) string {
	if status >= 500 {
		return apiclient.Message(err, fallback)
	}
	return apiclient.Message(err, err.Error())
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

func formatValidationErrors(errs validator.ValidationErrors) map[string]string {
	details := make(map[string]string, len(errs))
	for _, fe := range errs {
		switch fe.Tag() {
		case "required":
			details[fe.Field()] = "is required"
		case "min":
			details[fe.Field()] = fmt.Sprintf("must be at least %s", fe.Param())
		case "max":
			details[fe.Field()] = fmt.Sprintf("must be at most %s", fe.Param())
		case "oneof":
			details[fe.Field()] = fmt.Sprintf("must be one of: %s", fe.Param())
		case "email":
			details[fe.Field()] = "must be a valid email"
		case "datetime":
			details[fe.Field()] = fmt.Sprintf("must match %s", fe.Param())
		default:
			details[fe.Field()] = fmt.Sprintf("failed on the '%s' rule", fe.Tag())
		}
	}
	return details
}

// decodeAndValidate reads a JSON body into dst and validates it. It writes
// the error response itself and reports false on failure.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			respondValidation(w, formatValidationErrors(validationErrors))
		} else {
			log.Error().Err(err).Type("validation_error_type", err).Msg("Unexpected error type during validation")
			respondWithError(w, http.StatusInternalServerError, "Internal validation error")
		}
		return false
	}
	return true
}

// fail turns a service or backend error into the matching response. A
// backend 401 also ends the console session.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	if errors.Is(err, apiclient.ErrUnauthorized) {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("Backend rejected the session")
		h.endSession(w, r)
		respondUnauthorized(w, "Session expired, please log in again")
		return
	}
	if fields := apiclient.FieldErrors(err); len(fields) > 0 {
		respondValidation(w, fields)
		return
	}

	status := mapErrorToStatusCode(err)
	if status >= 500 {
		log.Error().Err(err).Str("path", r.URL.Path).Msg(fallback)
	} else {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg(fallback)
	}
	respondWithError(w, status, clientMessage(err, status, fallback))
}
