package http

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/rental-admin-console/internal/apiclient"
	"github.com/vasiliy-maslov/rental-admin-console/internal/console"
	"github.com/vasiliy-maslov/rental-admin-console/internal/navigation"
	"github.com/vasiliy-maslov/rental-admin-console/internal/paging"
	"github.com/vasiliy-maslov/rental-admin-console/internal/resource"
)

const maxUploadMemory = 32 << 20

type RefundRequest struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason" validate:"max=500"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required,max=30"`
}

type NewsletterRequest struct {
	Subject string `json:"subject" validate:"required,max=200"`
	Body    string `json:"body" validate:"required"`
}

type UserRequest struct {
	FIN      string  `json:"fin" validate:"required,max=20"`
	Name     string  `json:"name" validate:"required,min=2"`
	Surname  string  `json:"surname" validate:"required,min=2"`
	Email    string  `json:"email" validate:"required,email"`
	Phone    string  `json:"phone" validate:"omitempty,max=30"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=8"`
}

type DiscountRequest struct {
	Code      string          `json:"code" validate:"required,max=50"`
	Percent   decimal.Decimal `json:"percent"`
	ValidFrom string          `json:"validFrom" validate:"required,datetime=2006-01-02"`
	ValidTo   string          `json:"validTo" validate:"required,datetime=2006-01-02"`
	Active    bool            `json:"active"`
}

type NodeRequest struct {
	ParentID *int64 `json:"parentId,omitempty" validate:"omitempty,min=1"`
	Kind     string `json:"kind" validate:"required,max=30"`
	Title    string `json:"title" validate:"required,max=200"`
	Slug     string `json:"slug" validate:"required,max=200"`
	Body     string `json:"body,omitempty"`
}

// OrderResponse adds the statuses the order may move to next.
type OrderResponse struct {
	resource.Order
	NextStatuses []resource.OrderStatus `json:"nextStatuses"`
}

func toOrderResponse(o resource.Order) OrderResponse {
	return OrderResponse{Order: o, NextStatuses: o.Status.Next()}
}

func (h *Handler) registerActionRoutes(r chi.Router) {
	r.With(RequirePermission(navigation.PermPaymentsWrite)).Post("/payments/{id}/reverse", h.handleReversePayment)
	r.With(RequirePermission(navigation.PermPaymentsWrite)).Post("/payments/{id}/refund", h.handleRefundPayment)

	r.With(RequirePermission(navigation.PermInstallmentsWrite)).Patch("/installments/{id}/status", h.handleInstallmentStatus)
	r.With(RequirePermission(navigation.PermInstallmentsWrite)).Post("/installments/{id}/documents", h.handleInstallmentDocuments)

	r.With(RequirePermission(navigation.PermSubscriptionsWrite)).Delete("/subscriptions/{id}", h.handleUnsubscribe)
	r.With(RequirePermission(navigation.PermSubscriptionsWrite)).Post("/subscriptions/newsletter", h.handleNewsletter)

	r.With(RequirePermission(navigation.PermOrdersRead)).Get("/orders/{id}", h.handleGetOrder)
	r.With(RequirePermission(navigation.PermOrdersWrite)).Patch("/orders/{id}/status", h.handleOrderStatus)
	r.With(RequirePermission(navigation.PermOrdersWrite)).Delete("/orders/{id}", h.handleDeleteOrder)
	r.With(RequirePermission(navigation.PermOrdersRead)).Get("/orders/{id}/contract", h.handleDownloadContract)
	r.With(RequirePermission(navigation.PermOrdersWrite)).Post("/orders/{id}/contract", h.handleUploadContract)

	r.With(RequirePermission(navigation.PermUsersRead)).Get("/users/{id}", h.handleGetUser)
	r.With(RequirePermission(navigation.PermUsersWrite)).Post("/users", h.handleCreateUser)
	r.With(RequirePermission(navigation.PermUsersWrite)).Put("/users/{id}", h.handleUpdateUser)
	r.With(RequirePermission(navigation.PermUsersWrite)).Delete("/users/{id}", h.handleDeleteUser)

	r.With(RequirePermission(navigation.PermDiscountsWrite)).Post("/discounts", h.handleCreateDiscount)
	r.With(RequirePermission(navigation.PermDiscountsWrite)).Put("/discounts/{id}", h.handleUpdateDiscount)
	r.With(RequirePermission(navigation.PermDiscountsWrite)).Delete("/discounts/{id}", h.handleDeleteDiscount)

	r.With(RequirePermission(navigation.PermContentRead)).Get("/content/nodes/{id}/children", h.handleNodeChildren)
	r.With(RequirePermission(navigation.PermContentWrite)).Post("/content/nodes", h.handleCreateNode)
	r.With(RequirePermission(navigation.PermContentWrite)).Put("/content/nodes/{id}", h.handleUpdateNode)
	r.With(RequirePermission(navigation.PermContentWrite)).Delete("/content/nodes/{id}", h.handleDeleteNode)
	r.With(RequirePermission(navigation.PermContentWrite)).Post("/content/nodes/{id}/media", h.handleUploadMedia)

	r.With(RequirePermission(navigation.PermCalendarRead)).Get("/calendar", h.handleCalendar)
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid ID format")
		return 0, false
	}
	return id, true
}

// reloadListing re-fetches a listing after a mutation, if the operator has
// it open. Failures are logged; the mutation already succeeded.
func (h *Handler) reloadListing(r *http.Request, ws *console.Workspace, name string) {
	l, err := ws.Listing(name)
	if err != nil || !l.Loaded() {
		return
	}
	if err := l.Load(r.Context()); err != nil {
		log.Warn().Err(err).Str("listing", name).Msg("Failed to reload listing after change")
	}
}

func (h *Handler) afterChange(r *http.Request, name string) {
	ws, _ := h.workspace(r)
	h.reloadListing(r, ws, name)
}

// multipartFiles opens every file of the form field. The returned close
// function releases them.
func multipartFiles(r *http.Request, field string) ([]apiclient.File, func(), error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, func() {}, fmt.Errorf("invalid multipart form: %w", err)
	}
	headers := r.MultipartForm.File[field]
	opened := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}

	files := make([]apiclient.File, 0, len(headers))
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, fmt.Errorf("failed to open %s: %w", fh.Filename, err)
		}
		opened = append(opened, f)
		files = append(files, apiclient.File{
			Field:       field,
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        f,
		})
	}
	return files, closeAll, nil
}

func (h *Handler) handleReversePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	payment, err := h.services.Payments.Reverse(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Failed to reverse payment")
		return
	}
	log.Info().Int64("payment_id", id).Msg("Payment reversed")
	h.afterChange(r, "payments")
	respondWithJSON(w, http.StatusOK, payment)
}

func (h *Handler) handleRefundPayment(w http.ResponseWriter, r *http.Request) {
	var req RefundRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if !req.Amount.IsPositive() {
		respondValidation(w, map[string]string{"amount": "must be positive"})
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	payment, err := h.services.Payments.Refund(r.Context(), id, resource.RefundInput{Amount: req.Amount, Reason: req.Reason})
	if err != nil {
		h.fail(w, r, err, "Failed to refund payment")
		return
	}
	log.Info().Int64("payment_id", id).Stringer("amount", req.Amount).Msg("Payment refunded")
	h.afterChange(r, "payments")
	respondWithJSON(w, http.StatusOK, payment)
}

func (h *Handler) handleInstallmentStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.services.Installments.UpdateStatus(r.Context(), id, req.Status); err != nil {
		h.fail(w, r, err, "Failed to update installment")
		return
	}
	h.afterChange(r, "installments")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleInstallmentDocuments(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	files, closeFiles, err := multipartFiles(r, "files")
	defer closeFiles()
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(files) == 0 {
		respondValidation(w, map[string]string{"files": "is required"})
		return
	}

	if err := h.services.Installments.UploadDocuments(r.Context(), id, files); err != nil {
		h.fail(w, r, err, "Failed to upload documents")
		return
	}
	log.Info().Int64("installment_id", id).Int("files", len(files)).Msg("Installment documents uploaded")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.services.Subscriptions.Unsubscribe(r.Context(), id); err != nil {
		h.fail(w, r, err, "Failed to remove subscription")
		return
	}
	h.afterChange(r, "subscriptions")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleNewsletter(w http.ResponseWriter, r *http.Request) {
	var req NewsletterRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if err := h.services.Subscriptions.SendNewsletter(r.Context(), resource.Newsletter{Subject: req.Subject, Body: req.Body}); err != nil {
		h.fail(w, r, err, "Failed to send newsletter")
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	o, err := h.services.Orders.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Failed to load order")
		return
	}
	respondWithJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	status := resource.OrderStatus(req.Status)
	if !status.Valid() {
		respondValidation(w, map[string]string{"status": "unknown order status"})
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	current, err := h.services.Orders.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Failed to load order")
		return
	}
	if err := current.Status.CheckTransition(status); err != nil {
		h.fail(w, r, err, "Failed to update order status")
		return
	}

	o, err := h.services.Orders.UpdateStatus(r.Context(), id, status)
	if err != nil {
		h.fail(w, r, err, "Failed to update order status")
		return
	}
	log.Info().Int64("order_id", id).Stringer("from", current.Status).Stringer("to", o.Status).Msg("Order status changed")
	h.afterChange(r, "orders")
	respondWithJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.services.Orders.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, "Failed to delete order")
		return
	}
	h.afterChange(r, "orders")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleDownloadContract(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	blob, err := h.services.Orders.DownloadContract(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Failed to download contract")
		return
	}
	filename := blob.Filename
	if filename == "" {
		filename = fmt.Sprintf("contract-%d.pdf", id)
	}
	contentType := blob.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	writeAttachment(w, contentType, filename, blob.Data)
}

func (h *Handler) handleUploadContract(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	files, closeFiles, err := multipartFiles(r, "file")
	defer closeFiles()
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(files) != 1 {
		respondValidation(w, map[string]string{"file": "exactly one file is required"})
		return
	}
	if err := h.services.Orders.UploadContract(r.Context(), id, files[0].Name, files[0].Data); err != nil {
		h.fail(w, r, err, "Failed to upload contract")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (req UserRequest) toInput() resource.UserInput {
	in := resource.UserInput{
		FIN:     req.FIN,
		Name:    req.Name,
		Surname: req.Surname,
		Email:   req.Email,
		Phone:   req.Phone,
	}
	if req.Password != nil {
		in.Password = *req.Password
	}
	return in
}

func (h *Handler) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	u, err := h.services.Users.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, "Failed to load user")
		return
	}
	respondWithJSON(w, http.StatusOK, u)
}

func (h *Handler) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	if req.Password == nil {
		respondValidation(w, map[string]string{"password": "is required"})
		return
	}
	u, err := h.services.Users.Create(r.Context(), req.toInput())
	if err != nil {
		h.fail(w, r, err, "Failed to create user")
		return
	}
	h.afterChange(r, "users")
	respondWithJSON(w, http.StatusCreated, u)
}

func (h *Handler) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req UserRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	u, err := h.services.Users.Update(r.Context(), id, req.toInput())
	if err != nil {
		h.fail(w, r, err, "Failed to update user")
		return
	}
	h.afterChange(r, "users")
	respondWithJSON(w, http.StatusOK, u)
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.services.Users.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, "Failed to delete user")
		return
	}
	h.afterChange(r, "users")
	w.WriteHeader(http.StatusNoContent)
}

func (req DiscountRequest) toInput() resource.DiscountInput {
	return resource.DiscountInput{
		Code:      req.Code,
		Percent:   req.Percent,
		ValidFrom: req.ValidFrom,
		ValidTo:   req.ValidTo,
		Active:    req.Active,
	}
}

func (h *Handler) decodeDiscount(w http.ResponseWriter, r *http.Request) (DiscountRequest, bool) {
	var req DiscountRequest
	if !h.decodeAndValidate(w, r, &req) {
		return req, false
	}
	details := map[string]string{}
	if !req.Percent.IsPositive() || req.Percent.GreaterThan(decimal.NewFromInt(100)) {
		details["percent"] = "must be greater than 0 and at most 100"
	}
	if req.ValidTo < req.ValidFrom {
		details["validTo"] = "must not be before validFrom"
	}
	if len(details) > 0 {
		respondValidation(w, details)
		return req, false
	}
	return req, true
}

func (h *Handler) handleCreateDiscount(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeDiscount(w, r)
	if !ok {
		return
	}
	d, err := h.services.Discounts.Create(r.Context(), req.toInput())
	if err != nil {
		h.fail(w, r, err, "Failed to create discount")
		return
	}
	h.afterChange(r, "discounts")
	respondWithJSON(w, http.StatusCreated, d)
}

func (h *Handler) handleUpdateDiscount(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeDiscount(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	d, err := h.services.Discounts.Update(r.Context(), id, req.toInput())
	if err != nil {
		h.fail(w, r, err, "Failed to update discount")
		return
	}
	h.afterChange(r, "discounts")
	respondWithJSON(w, http.StatusOK, d)
}

func (h *Handler) handleDeleteDiscount(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.services.Discounts.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err, "Failed to delete discount")
		return
	}
	h.afterChange(r, "discounts")
	w.WriteHeader(http.StatusNoContent)
}

func (req NodeRequest) toInput() resource.NodeInput {
	return resource.NodeInput{
		ParentID: req.ParentID,
		Kind:     req.Kind,
		Title:    req.Title,
		Slug:     req.Slug,
		Body:     req.Body,
	}
}

// handleNodeChildren pages through the children of one content node. The
// content listing only covers the root level.
func (h *Handler) handleNodeChildren(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	q := paging.Query{Size: paging.DefaultSize}
	if v := r.URL.Query().Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid page")
			return
		}
		q.Page = page
	}
	if v := r.URL.Query().Get("size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size <= 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid page size")
			return
		}
		q.Size = size
	}

	page, err := h.services.Content.ListNodes(r.Context(), id, q)
	if err != nil {
		h.fail(w, r, err, "Failed to load content")
		return
	}
	respondWithJSON(w, http.StatusOK, page)
}

func (h *Handler) handleCreateNode(w http.ResponseWriter, r *http.Request) {
	var req NodeRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	n, err := h.services.Content.CreateNode(r.Context(), req.toInput())
	if err != nil {
		h.fail(w, r, err, "Failed to create content")
		return
	}
	h.afterChange(r, "content")
	respondWithJSON(w, http.StatusCreated, n)
}

func (h *Handler) handleUpdateNode(w http.ResponseWriter, r *http.Request) {
	var req NodeRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	n, err := h.services.Content.UpdateNode(r.Context(), id, req.toInput())
	if err != nil {
		h.fail(w, r, err, "Failed to update content")
		return
	}
	h.afterChange(r, "content")
	respondWithJSON(w, http.StatusOK, n)
}

func (h *Handler) handleDeleteNode(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.services.Content.DeleteNode(r.Context(), id); err != nil {
		h.fail(w, r, err, "Failed to delete content")
		return
	}
	h.afterChange(r, "content")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUploadMedia(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	files, closeFiles, err := multipartFiles(r, "file")
	defer closeFiles()
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(files) != 1 {
		respondValidation(w, map[string]string{"file": "exactly one file is required"})
		return
	}
	media, err := h.services.Content.UploadMedia(r.Context(), id, files[0])
	if err != nil {
		h.fail(w, r, err, "Failed to upload media")
		return
	}
	respondWithJSON(w, http.StatusCreated, media)
}

// handleCalendar defaults to the current month when no range is given.
func (h *Handler) handleCalendar(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" && to == "" {
		now := h.now()
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		from = first.Format(time.DateOnly)
		to = first.AddDate(0, 1, -1).Format(time.DateOnly)
	}

	details := map[string]string{}
	fromDay, err := time.Parse(time.DateOnly, from)
	if err != nil {
		details["from"] = "must match 2006-01-02"
	}
	toDay, err := time.Parse(time.DateOnly, to)
	if err != nil {
		details["to"] = "must match 2006-01-02"
	}
	if len(details) == 0 && toDay.Before(fromDay) {
		details["to"] = "must not be before from"
	}
	if len(details) > 0 {
		respondValidation(w, details)
		return
	}

	events, err := h.services.Calendar.Events(r.Context(), from, to)
	if err != nil {
		h.fail(w, r, err, "Failed to load calendar")
		return
	}
	if events == nil {
		events = []resource.Event{}
	}
	respondWithJSON(w, http.StatusOK, events)
}
