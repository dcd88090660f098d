package http_test

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vasiliy-maslov/rental-admin-console/internal/export"
	consoleHandler "github.com/vasiliy-maslov/rental-admin-console/internal/handler/http"
	"github.com/vasiliy-maslov/rental-admin-console/internal/navigation"
	"github.com/vasiliy-maslov/rental-admin-console/internal/paging"
	"github.com/vasiliy-maslov/rental-admin-console/internal/resource"
)

type paymentsView = paging.View[resource.Payment]

// paymentsBackend serves 25 payments, 10 per page, filtered by keyword "big".
func paymentsBackend(fetches *atomic.Int32) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/payments", func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("size"))
		total := 25
		if r.URL.Query().Get("keyword") == "big" {
			total = 3
		}
		out := paging.Page[resource.Payment]{TotalElements: int64(total), Number: page, Size: size}
		for i := page * size; i < total && i < (page+1)*size; i++ {
			out.Content = append(out.Content, resource.Payment{ID: int64(i + 1), Currency: "AZN"})
		}
		_ = json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("POST /api/payments/{id}/reverse", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		_ = json.NewEncoder(w).Encode(resource.Payment{ID: id, Status: "REVERSED"})
	})
	return mux
}

func TestListHandler_PaymentsPaging(t *testing.T) {
	var fetches atomic.Int32
	mockSessions := new(MockSessionService)
	router := newRouter(t, mockSessions, paymentsBackend(&fetches))
	s := operator(navigation.PermPaymentsRead, navigation.PermPaymentsWrite)
	signedIn(mockSessions, s)

	rr := doRequest(t, router, http.MethodGet, "/lists/payments", nil, s)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	view := decode[paymentsView](t, rr)
	assert.True(t, view.Loaded)
	assert.Len(t, view.Items, 10)
	assert.Equal(t, 0, view.Page)
	assert.False(t, view.HasPrev)
	assert.True(t, view.HasNext)
	assert.Equal(t, 3, view.TotalPages)

	rr = doRequest(t, router, http.MethodGet, "/lists/payments", nil, s)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 1, fetches.Load(), "an open listing is served from the workspace")

	rr = doRequest(t, router, http.MethodPost, "/lists/payments/prev", nil, s)
	assert.Equal(t, http.StatusConflict, rr.Code)

	doRequest(t, router, http.MethodPost, "/lists/payments/next", nil, s)
	rr = doRequest(t, router, http.MethodPost, "/lists/payments/next", nil, s)
	require.Equal(t, http.StatusOK, rr.Code)
	view = decode[paymentsView](t, rr)
	assert.Equal(t, 2, view.Page)
	assert.Len(t, view.Items, 5)
	assert.False(t, view.HasNext)

	rr = doRequest(t, router, http.MethodPost, "/lists/payments/next", nil, s)
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doRequest(t, router, http.MethodPost, "/lists/payments/search", consoleHandler.SearchRequest{Keyword: "big"}, s)
	require.Equal(t, http.StatusOK, rr.Code)
	view = decode[paymentsView](t, rr)
	assert.Equal(t, 0, view.Page, "search returns to the first page")
	assert.Equal(t, "big", view.Keyword)
	assert.Len(t, view.Items, 3)

	rr = doRequest(t, router, http.MethodPut, "/lists/payments/size", consoleHandler.PageSizeRequest{Size: 0}, s)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListHandler_ReloadAfterMutation(t *testing.T) {
	var fetches atomic.Int32
	mockSessions := new(MockSessionService)
	router := newRouter(t, mockSessions, paymentsBackend(&fetches))
	s := operator(navigation.PermPaymentsRead, navigation.PermPaymentsWrite)
	signedIn(mockSessions, s)

	rr := doRequest(t, router, http.MethodPost, "/payments/4/reverse", nil, s)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 0, fetches.Load(), "a closed listing is not fetched")

	doRequest(t, router, http.MethodGet, "/lists/payments", nil, s)
	rr = doRequest(t, router, http.MethodPost, "/payments/4/reverse", nil, s)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "REVERSED", decode[resource.Payment](t, rr).Status)
	assert.EqualValues(t, 2, fetches.Load(), "an open listing is fetched again")
}

func TestListHandler_Export(t *testing.T) {
	var fetches atomic.Int32
	mockSessions := new(MockSessionService)
	router := newRouter(t, mockSessions, paymentsBackend(&fetches))
	s := operator(navigation.PermPaymentsRead)
	signedIn(mockSessions, s)

	rr := doRequest(t, router, http.MethodGet, "/lists/payments/export.xlsx", nil, s)
	assert.Equal(t, http.StatusConflict, rr.Code, "nothing on display yet")

	doRequest(t, router, http.MethodGet, "/lists/payments", nil, s)
	doRequest(t, router, http.MethodPost, "/lists/payments/next", nil, s)

	rr = doRequest(t, router, http.MethodGet, "/lists/payments/export.xlsx", nil, s)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, export.ContentType, rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="payments-page-1.xlsx"`, rr.Header().Get("Content-Disposition"))

	f, err := excelize.OpenReader(rr.Body)
	require.NoError(t, err)
	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.Len(t, rows, 11, "header plus the ten rows of page 1")
	assert.Equal(t, "11", rows[1][0])
}

func TestListHandler_BackendUnauthorizedEndsSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users/search", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Token expired"}`))
	})
	mockSessions := new(MockSessionService)
	router := newRouter(t, mockSessions, mux)
	s := operator(navigation.PermUsersRead)
	signedIn(mockSessions, s)
	mockSessions.On("Logout", mock.Anything, s.ID).Return(nil).Once()

	rr := doRequest(t, router, http.MethodGet, "/lists/users", nil, s)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "/login", decode[consoleHandler.UnauthorizedResponse](t, rr).Redirect)
	mockSessions.AssertExpectations(t)
}
