package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	consoleHandler "github.com/vasiliy-maslov/rental-admin-console/internal/handler/http"
	"github.com/vasiliy-maslov/rental-admin-console/internal/navigation"
	"github.com/vasiliy-maslov/rental-admin-console/internal/order"
	"github.com/vasiliy-maslov/rental-admin-console/internal/resource"
)

type orderBackend struct {
	mu           sync.Mutex
	created      []resource.OrderInput
	contractName string
	contractPDF  []byte
}

func (b *orderBackend) mux(t *testing.T) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users/fin/{fin}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("fin") != "AZE123" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode([]resource.User{
			{ID: 7, FIN: "AZE123", Name: "Leyla", Surname: "Aliyeva"},
			{ID: 8, FIN: "AZE123", Name: "Leyla", Surname: "Mammadova"},
		})
	})
	mux.HandleFunc("GET /api/products/{code}/availability", func(w http.ResponseWriter, r *http.Request) {
		products := map[string]resource.Availability{
			"R100": {Code: "R100", Name: "Camera", ForRent: true, Price: decimal.NewFromInt(25),
				UnavailableDates: []resource.DateRange{{StartDate: "2026-11-10", EndDate: "2026-11-11"}}},
			"S200": {Code: "S200", Name: "Tripod", ForSale: true, Price: decimal.NewFromInt(40)},
		}
		p, ok := products[r.PathValue("code")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(p)
	})
	mux.HandleFunc("POST /api/orders/calculate-price", func(w http.ResponseWriter, r *http.Request) {
		var req resource.PriceRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		total := decimal.NewFromInt(10).Mul(decimal.NewFromInt(int64(len(req.ProductCodes))))
		_ = json.NewEncoder(w).Encode(resource.PriceQuote{TotalAmount: total.Mul(decimal.NewFromInt(5)), Deposit: total, Currency: "AZN"})
	})
	mux.HandleFunc("POST /api/orders", func(w http.ResponseWriter, r *http.Request) {
		var in resource.OrderInput
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&in)) {
			return
		}
		b.mu.Lock()
		b.created = append(b.created, in)
		b.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resource.Order{ID: 501, CustomerID: in.CustomerID, OrderType: in.OrderType, Status: resource.StatusPending})
	})
	mux.HandleFunc("POST /api/orders/501/contract", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(file)
		b.mu.Lock()
		b.contractName = header.Filename
		b.contractPDF = buf.Bytes()
		b.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func draftPath(id uuid.UUID, suffix string) string {
	return "/drafts/" + id.String() + suffix
}

func TestDraftHandler_FullOrderFlow(t *testing.T) {
	backend := &orderBackend{}
	mockSessions := new(MockSessionService)
	router := newRouter(t, mockSessions, backend.mux(t))
	s := operator(navigation.PermOrdersCreate)
	signedIn(mockSessions, s)

	rr := doRequest(t, router, http.MethodPost, "/drafts", nil, s)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[consoleHandler.DraftResponse](t, rr)
	id := created.ID
	assert.Equal(t, resource.OrderTypeRent, created.Draft.OrderType)
	assert.Empty(t, created.Notices)

	rr = doRequest(t, router, http.MethodPost, draftPath(id, "/customer"), consoleHandler.LookupCustomerRequest{FIN: "AZE123"}, s)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[consoleHandler.DraftResponse](t, rr)
	require.NotNil(t, resp.Draft.Customer)
	assert.Equal(t, int64(7), resp.Draft.Customer.ID)
	assert.Len(t, resp.Draft.Matches, 2)

	rr = doRequest(t, router, http.MethodPut, draftPath(id, "/customer"), consoleHandler.SelectCustomerRequest{CustomerID: 99}, s)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = doRequest(t, router, http.MethodPut, draftPath(id, "/customer"), consoleHandler.SelectCustomerRequest{CustomerID: 7}, s)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, router, http.MethodPost, draftPath(id, "/items"), consoleHandler.AddItemRequest{Code: "R100"}, s)
	require.Equal(t, http.StatusOK, rr.Code)
	resp = decode[consoleHandler.DraftResponse](t, rr)
	assert.Equal(t, []string{"R100"}, resp.Draft.ProductCodes)
	assert.Equal(t, []string{"2026-11-10", "2026-11-11"}, resp.Draft.DisabledDates)

	rr = doRequest(t, router, http.MethodPost, draftPath(id, "/items"), consoleHandler.AddItemRequest{Code: "S200"}, s)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	resp = decode[consoleHandler.DraftResponse](t, rr)
	assert.NotEmpty(t, resp.Error)
	assert.Len(t, resp.Draft.Items, 1, "rejected item leaves the draft unchanged")
	require.Len(t, resp.Notices, 1)
	assert.Equal(t, order.LevelError, resp.Notices[0].Level)

	rr = doRequest(t, router, http.MethodPost, draftPath(id, "/items"), consoleHandler.AddItemRequest{Code: "X999"}, s)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	blocked := consoleHandler.UpdateDraftRequest{StartDate: ptr("2026-11-09"), EndDate: ptr("2026-11-12")}
	rr = doRequest(t, router, http.MethodPut, draftPath(id, ""), blocked, s)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	backwards := consoleHandler.UpdateDraftRequest{StartDate: ptr("2026-11-05"), EndDate: ptr("2026-11-01")}
	rr = doRequest(t, router, http.MethodPut, draftPath(id, ""), backwards, s)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	valid := consoleHandler.UpdateDraftRequest{StartDate: ptr("2026-11-01"), EndDate: ptr("2026-11-05"), PaymentType: ptr("CASH")}
	rr = doRequest(t, router, http.MethodPut, draftPath(id, ""), valid, s)
	require.Equal(t, http.StatusOK, rr.Code)
	resp = decode[consoleHandler.DraftResponse](t, rr)
	assert.Equal(t, "2026-11-01", resp.Draft.StartDate)
	assert.Equal(t, "CASH", resp.Draft.PaymentType)

	assert.Eventually(t, func() bool {
		rr := doRequest(t, router, http.MethodGet, draftPath(id, ""), nil, s)
		var got consoleHandler.DraftResponse
		if json.Unmarshal(rr.Body.Bytes(), &got) != nil {
			return false
		}
		return !got.Draft.PricePending && got.Draft.Quote.Total.Equal(decimal.NewFromInt(50))
	}, 2*time.Second, 20*time.Millisecond)

	rr = doRequest(t, router, http.MethodGet, draftPath(id, "/contract.pdf"), nil, s)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/pdf", rr.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rr.Body.Bytes(), []byte("%PDF")))

	rr = doRequest(t, router, http.MethodPost, draftPath(id, "/submit?uploadContract=true"), nil, s)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	submitted := decode[consoleHandler.SubmitResponse](t, rr)
	require.NotNil(t, submitted.Order)
	assert.Equal(t, int64(501), submitted.Order.ID)
	assert.True(t, submitted.ContractUploaded)
	assert.Equal(t, int64(501), submitted.Draft.SubmittedOrderID)

	backend.mu.Lock()
	require.Len(t, backend.created, 1)
	assert.Equal(t, resource.OrderInput{
		CustomerID:   7,
		OrderType:    resource.OrderTypeRent,
		StartDate:    "2026-11-01",
		EndDate:      "2026-11-05",
		PaymentType:  "CASH",
		ProductCodes: []string{"R100"},
	}, backend.created[0])
	assert.Equal(t, "contract-501.pdf", backend.contractName)
	assert.True(t, bytes.HasPrefix(backend.contractPDF, []byte("%PDF")))
	backend.mu.Unlock()

	rr = doRequest(t, router, http.MethodPost, draftPath(id, "/submit"), nil, s)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doRequest(t, router, http.MethodDelete, draftPath(id, ""), nil, s)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	rr = doRequest(t, router, http.MethodGet, draftPath(id, ""), nil, s)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDraftHandler_LookupWithoutMatch(t *testing.T) {
	backend := &orderBackend{}
	mockSessions := new(MockSessionService)
	router := newRouter(t, mockSessions, backend.mux(t))
	s := operator(navigation.PermOrdersCreate)
	signedIn(mockSessions, s)

	id := decode[consoleHandler.DraftResponse](t, doRequest(t, router, http.MethodPost, "/drafts", nil, s)).ID

	rr := doRequest(t, router, http.MethodPost, draftPath(id, "/customer"), consoleHandler.LookupCustomerRequest{FIN: "NOPE"}, s)
	require.Equal(t, http.StatusOK, rr.Code)
	resp := decode[consoleHandler.DraftResponse](t, rr)
	assert.Nil(t, resp.Draft.Customer)
	require.Len(t, resp.Notices, 1)
	assert.Equal(t, order.LevelWarning, resp.Notices[0].Level)

	rr = doRequest(t, router, http.MethodPost, draftPath(id, "/customer"), map[string]string{"fin": ""}, s)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDraftHandler_IncompleteDraft(t *testing.T) {
	backend := &orderBackend{}
	mockSessions := new(MockSessionService)
	router := newRouter(t, mockSessions, backend.mux(t))
	s := operator(navigation.PermOrdersCreate)
	signedIn(mockSessions, s)

	id := decode[consoleHandler.DraftResponse](t, doRequest(t, router, http.MethodPost, "/drafts", nil, s)).ID

	rr := doRequest(t, router, http.MethodGet, draftPath(id, "/contract.pdf"), nil, s)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = doRequest(t, router, http.MethodPost, draftPath(id, "/submit"), nil, s)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	rr = doRequest(t, router, http.MethodDelete, draftPath(id, "/items/R100"), nil, s)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDraftHandler_BadDraftID(t *testing.T) {
	mockSessions := new(MockSessionService)
	router := newRouter(t, mockSessions, nil)
	s := operator(navigation.PermOrdersCreate)
	signedIn(mockSessions, s)

	rr := doRequest(t, router, http.MethodGet, "/drafts/not-a-uuid", nil, s)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, router, http.MethodGet, draftPath(uuid.Must(uuid.NewV4()), ""), nil, s)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func ptr[T any](v T) *T { return &v }

func TestDraftHandler_RejectedUpdateIsAtomic(t *testing.T) {
	backend := &orderBackend{}
	mockSessions := new(MockSessionService)
	router := newRouter(t, mockSessions, backend.mux(t))
	s := operator(navigation.PermOrdersCreate)
	signedIn(mockSessions, s)

	id := decode[consoleHandler.DraftResponse](t, doRequest(t, router, http.MethodPost, "/drafts", nil, s)).ID

	req := consoleHandler.UpdateDraftRequest{
		OrderType:   ptr("SALE"),
		StartDate:   ptr("2026-11-05"),
		EndDate:     ptr("2026-11-01"),
		PaymentType: ptr("CARD"),
	}
	rr := doRequest(t, router, http.MethodPut, draftPath(id, ""), req, s)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	resp := decode[consoleHandler.DraftResponse](t, rr)
	assert.NotEmpty(t, resp.Error)
	assert.Equal(t, resource.OrderTypeRent, resp.Draft.OrderType, "type change is not applied with rejected dates")
	assert.Empty(t, resp.Draft.StartDate)
	assert.Empty(t, resp.Draft.PaymentType)
}
