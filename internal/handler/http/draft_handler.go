package http

import (
	"bytes"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/rental-admin-console/internal/apiclient"
	"github.com/vasiliy-maslov/rental-admin-console/internal/console"
	"github.com/vasiliy-maslov/rental-admin-console/internal/contract"
	"github.com/vasiliy-maslov/rental-admin-console/internal/order"
	"github.com/vasiliy-maslov/rental-admin-console/internal/resource"
)

type LookupCustomerRequest struct {
	FIN string `json:"fin" validate:"required,max=20"`
}

type SelectCustomerRequest struct {
	CustomerID int64 `json:"customerId" validate:"required,min=1"`
}

type AddItemRequest struct {
	Code     string `json:"code" validate:"required,max=64"`
	Quantity int    `json:"quantity" validate:"omitempty,min=1,max=1000"`
}

// UpdateDraftRequest changes only the fields that are present. An empty
// date string clears that bound.
type UpdateDraftRequest struct {
	OrderType   *string `json:"orderType,omitempty" validate:"omitempty,oneof=RENT SALE"`
	StartDate   *string `json:"startDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	EndDate     *string `json:"endDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PaymentType *string `json:"paymentType,omitempty" validate:"omitempty,max=50"`
}

type DraftResponse struct {
	ID      uuid.UUID         `json:"id"`
	Draft   order.Snapshot    `json:"draft"`
	Notices []order.Notice    `json:"notices"`
	Error   string            `json:"error,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type SubmitResponse struct {
	DraftResponse
	Order            *resource.Order `json:"order,omitempty"`
	ContractUploaded bool            `json:"contractUploaded"`
	ContractError    string          `json:"contractError,omitempty"`
}

type DraftListResponse struct {
	Drafts []uuid.UUID `json:"drafts"`
}

func newDraftResponse(id uuid.UUID, wf *order.Workflow) DraftResponse {
	notices := wf.DrainNotices()
	if notices == nil {
		notices = []order.Notice{}
	}
	return DraftResponse{ID: id, Draft: wf.Snapshot(), Notices: notices}
}

// respondDraft writes the draft state with its pending notices. When err is
// set the state is still returned, next to the error.
func (h *Handler) respondDraft(w http.ResponseWriter, r *http.Request, status int, id uuid.UUID, wf *order.Workflow, err error) {
	if err != nil && errors.Is(err, apiclient.ErrUnauthorized) {
		h.fail(w, r, err, "Draft operation failed")
		return
	}

	resp := newDraftResponse(id, wf)
	if err != nil {
		status = mapErrorToStatusCode(err)
		if fields := apiclient.FieldErrors(err); len(fields) > 0 {
			status = http.StatusBadRequest
			resp.Details = fields
		}
		resp.Error = clientMessage(err, status, "Draft operation failed")
		if status >= 500 {
			log.Error().Err(err).Stringer("draft_id", id).Msg("Draft operation failed")
		} else {
			log.Debug().Err(err).Stringer("draft_id", id).Msg("Draft operation rejected")
		}
	}
	respondWithJSON(w, status, resp)
}

func (h *Handler) draft(w http.ResponseWriter, r *http.Request) (*console.Workspace, uuid.UUID, *order.Workflow, bool) {
	id, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid draft ID format")
		return nil, uuid.Nil, nil, false
	}
	ws, _ := h.workspace(r)
	wf, err := ws.Draft(id)
	if err != nil {
		h.fail(w, r, err, "Failed to open draft")
		return nil, uuid.Nil, nil, false
	}
	return ws, id, wf, true
}

func (h *Handler) handleCreateDraft(w http.ResponseWriter, r *http.Request) {
	ws, _ := h.workspace(r)
	id, wf, err := ws.NewDraft(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Failed to open order draft")
		respondWithError(w, http.StatusInternalServerError, "Failed to open order draft")
		return
	}
	h.respondDraft(w, r, http.StatusCreated, id, wf, nil)
}

func (h *Handler) handleListDrafts(w http.ResponseWriter, r *http.Request) {
	ws, _ := h.workspace(r)
	ids := ws.DraftIDs()
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return bytes.Compare(a.Bytes(), b.Bytes()) })
	respondWithJSON(w, http.StatusOK, DraftListResponse{Drafts: ids})
}

func (h *Handler) handleGetDraft(w http.ResponseWriter, r *http.Request) {
	_, id, wf, ok := h.draft(w, r)
	if !ok {
		return
	}
	h.respondDraft(w, r, http.StatusOK, id, wf, nil)
}

func (h *Handler) handleUpdateDraft(w http.ResponseWriter, r *http.Request) {
	var req UpdateDraftRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	_, id, wf, ok := h.draft(w, r)
	if !ok {
		return
	}

	changes := order.Changes{
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		PaymentType: req.PaymentType,
	}
	if req.OrderType != nil {
		t := resource.OrderType(*req.OrderType)
		changes.OrderType = &t
	}
	h.respondDraft(w, r, http.StatusOK, id, wf, wf.Apply(changes))
}

func (h *Handler) handleCloseDraft(w http.ResponseWriter, r *http.Request) {
	ws, id, _, ok := h.draft(w, r)
	if !ok {
		return
	}
	if err := ws.CloseDraft(id); err != nil {
		h.fail(w, r, err, "Failed to close draft")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLookupCustomer(w http.ResponseWriter, r *http.Request) {
	var req LookupCustomerRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	_, id, wf, ok := h.draft(w, r)
	if !ok {
		return
	}
	_, err := wf.LookupCustomer(r.Context(), req.FIN)
	h.respondDraft(w, r, http.StatusOK, id, wf, err)
}

func (h *Handler) handleSelectCustomer(w http.ResponseWriter, r *http.Request) {
	var req SelectCustomerRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	_, id, wf, ok := h.draft(w, r)
	if !ok {
		return
	}
	h.respondDraft(w, r, http.StatusOK, id, wf, wf.SelectCustomer(req.CustomerID))
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	_, id, wf, ok := h.draft(w, r)
	if !ok {
		return
	}
	qty := req.Quantity
	if qty == 0 {
		qty = 1
	}
	h.respondDraft(w, r, http.StatusOK, id, wf, wf.AddItem(r.Context(), req.Code, qty))
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	_, id, wf, ok := h.draft(w, r)
	if !ok {
		return
	}
	h.respondDraft(w, r, http.StatusOK, id, wf, wf.RemoveItem(chi.URLParam(r, "code")))
}

func (h *Handler) contractData(id uuid.UUID, snap order.Snapshot) contract.Data {
	number := id.String()[:8]
	if snap.SubmittedOrderID != 0 {
		number = strconv.FormatInt(snap.SubmittedOrderID, 10)
	}
	return contract.Data{
		Number:   number,
		IssuedAt: h.now(),
		Company:  h.company,
		Draft:    snap,
	}
}

func (h *Handler) handleDraftContract(w http.ResponseWriter, r *http.Request) {
	_, id, wf, ok := h.draft(w, r)
	if !ok {
		return
	}

	data := h.contractData(id, wf.Snapshot())
	pdf, err := contract.PDF(data)
	if err != nil {
		h.fail(w, r, err, "Failed to generate contract")
		return
	}
	writeAttachment(w, "application/pdf", contract.Filename(data.Number), pdf)
}

// handleSubmitDraft creates the order. With ?uploadContract=true the
// generated contract is attached to the new order as well; a failed upload
// does not undo the order.
func (h *Handler) handleSubmitDraft(w http.ResponseWriter, r *http.Request) {
	upload := false
	if v := r.URL.Query().Get("uploadContract"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid uploadContract flag")
			return
		}
		upload = parsed
	}

	ws, id, wf, ok := h.draft(w, r)
	if !ok {
		return
	}

	created, err := wf.Submit(r.Context())
	if err != nil {
		h.respondDraft(w, r, http.StatusOK, id, wf, err)
		return
	}
	log.Info().Stringer("draft_id", id).Int64("order_id", created.ID).Msg("Order submitted")

	resp := SubmitResponse{Order: &created}
	if upload {
		data := h.contractData(id, wf.Snapshot())
		if err := h.uploadContract(r, created.ID, data); err != nil {
			log.Error().Err(err).Int64("order_id", created.ID).Msg("Failed to upload contract")
			resp.ContractError = apiclient.Message(err, "Failed to upload contract")
		} else {
			resp.ContractUploaded = true
		}
	}
	resp.DraftResponse = newDraftResponse(id, wf)

	h.reloadListing(r, ws, "orders")
	respondWithJSON(w, http.StatusCreated, resp)
}

func (h *Handler) uploadContract(r *http.Request, orderID int64, data contract.Data) error {
	pdf, err := contract.PDF(data)
	if err != nil {
		return err
	}
	return h.services.Orders.UploadContract(r.Context(), orderID, contract.Filename(data.Number), bytes.NewReader(pdf))
}
