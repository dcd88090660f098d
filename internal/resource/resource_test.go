package resource_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vasiliy-maslov/rental-admin-console/internal/apiclient"
	"github.com/vasiliy-maslov/rental-admin-console/internal/paging"
	"github.com/vasiliy-maslov/rental-admin-console/internal/resource"
)

func newServices(t *testing.T, mux *http.ServeMux) *resource.Services {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return resource.NewServices(apiclient.New(srv.URL, 2*time.Second, nil))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestUsers_SearchAli(t *testing.T) {
	var all []resource.User
	for i := 0; i < 23; i++ {
		all = append(all, resource.User{ID: int64(i + 1), Name: fmt.Sprintf("ali%02d", i)})
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users/search", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "ali", q.Get("keyword"))
		assert.Equal(t, "0", q.Get("page"))
		assert.Equal(t, "10", q.Get("size"))
		writeJSON(w, paging.Page[resource.User]{
			Content:       all[:10],
			TotalElements: int64(len(all)),
			TotalPages:    3,
			Number:        0,
			Size:          10,
		})
	})
	svc := newServices(t, mux)

	page, err := svc.Users.Search(context.Background(), paging.Query{Page: 0, Size: 10, Keyword: "ali"})
	require.NoError(t, err)

	assert.LessOrEqual(t, len(page.Content), 10)
	wantPages := int((page.TotalElements + int64(page.Size) - 1) / int64(page.Size))
	assert.Equal(t, wantPages, page.TotalPages)
}

func TestUsers_FindByFIN(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/users/fin/{fin}", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AB 123", r.PathValue("fin"))
		writeJSON(w, []resource.User{{ID: 1, FIN: "AB 123", Name: "Aysel"}})
	})
	svc := newServices(t, mux)

	users, err := svc.Users.FindByFIN(context.Background(), "AB 123")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "Aysel", users[0].Name)
}

func TestOrders_CalculatePrice(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/orders/calculate-price", func(w http.ResponseWriter, r *http.Request) {
		var req resource.PriceRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, resource.OrderTypeRent, req.OrderType)
		assert.Equal(t, []string{"P100", "P100"}, req.ProductCodes)
		_, _ = w.Write([]byte(`{"totalAmount":"120.50","deposit":30,"currency":"AZN"}`))
	})
	svc := newServices(t, mux)

	quote, err := svc.Orders.CalculatePrice(context.Background(), resource.PriceRequest{
		OrderType:    resource.OrderTypeRent,
		StartDate:    "2026-03-01",
		EndDate:      "2026-03-04",
		ProductCodes: []string{"P100", "P100"},
	})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("120.50").Equal(quote.TotalAmount))
	assert.True(t, decimal.NewFromInt(30).Equal(quote.Deposit))
	assert.Equal(t, "AZN", quote.Currency)
}

func TestOrders_UpdateStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("PATCH /api/orders/{id}/status", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.PathValue("id"))
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeJSON(w, resource.Order{ID: 5, Status: resource.OrderStatus(body["status"])})
	})
	svc := newServices(t, mux)

	order, err := svc.Orders.UpdateStatus(context.Background(), 5, resource.StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, resource.StatusConfirmed, order.Status)
	assert.True(t, resource.StatusConfirmed.Valid())
	assert.False(t, resource.OrderStatus("SHIPPED").Valid())
}

func TestContent_HeaderPassedIDs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/content/nodes", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.Header.Get("X-Parent-Id"))
		writeJSON(w, paging.Page[resource.Node]{Content: []resource.Node{{ID: 4, Title: "FAQ"}}, TotalElements: 1, TotalPages: 1})
	})
	mux.HandleFunc("PUT /api/content/nodes", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "4", r.Header.Get("X-Node-Id"))
		writeJSON(w, resource.Node{ID: 4, Title: "Help"})
	})
	mux.HandleFunc("DELETE /api/content/nodes", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "4", r.Header.Get("X-Node-Id"))
		w.WriteHeader(http.StatusNoContent)
	})
	svc := newServices(t, mux)
	ctx := context.Background()

	page, err := svc.Content.ListNodes(ctx, 3, paging.Query{Page: 0, Size: 10})
	require.NoError(t, err)
	assert.Len(t, page.Content, 1)

	node, err := svc.Content.UpdateNode(ctx, 4, resource.NodeInput{Title: "Help"})
	require.NoError(t, err)
	assert.Equal(t, "Help", node.Title)

	require.NoError(t, svc.Content.DeleteNode(ctx, 4))
}

func TestInstallments_UploadDocumentsParallel(t *testing.T) {
	var (
		mu       sync.Mutex
		received []string
		inFlight atomic.Int32
		peak     atomic.Int32
	)
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/installments/{id}/documents", func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)

		_, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		received = append(received, header.Filename)
		mu.Unlock()
		if header.Filename == "broken.pdf" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"message":"unsupported file"}`))
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	svc := newServices(t, mux)

	files := func(names ...string) []apiclient.File {
		var out []apiclient.File
		for _, n := range names {
			out = append(out, apiclient.File{Field: "file", Name: n, Data: strings.NewReader("data")})
		}
		return out
	}

	require.NoError(t, svc.Installments.UploadDocuments(context.Background(), 9, files("a.pdf", "b.pdf", "c.pdf")))
	assert.ElementsMatch(t, []string{"a.pdf", "b.pdf", "c.pdf"}, received)
	assert.Greater(t, peak.Load(), int32(1), "uploads should overlap")

	err := svc.Installments.UploadDocuments(context.Background(), 9, files("broken.pdf"))
	require.Error(t, err)
	assert.Equal(t, "unsupported file", apiclient.Message(err, ""))
}

func TestReports_DateFilter(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/reports/daily-sales", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "2026-05-01", r.URL.Query().Get("date"))
		assert.Empty(t, r.URL.Query().Get("keyword"))
		writeJSON(w, paging.Page[resource.DailySale]{})
	})
	svc := newServices(t, mux)

	_, err := svc.Reports.DailySales(context.Background(), paging.Query{Page: 0, Size: 10, Keyword: "2026-05-01"})
	require.NoError(t, err)
}

func TestNotifications_UnreadCount(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/notifications/unread-count", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"count":4}`))
	})
	svc := newServices(t, mux)

	n, err := svc.Notifications.UnreadCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestProducts_AvailabilityNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/products/{code}/availability", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Product not found"}`, http.StatusNotFound)
	})
	svc := newServices(t, mux)

	_, err := svc.Products.Availability(context.Background(), "NOPE")
	assert.ErrorIs(t, err, apiclient.ErrNotFound)
}

func TestOrderStatus_CheckTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    resource.OrderStatus
		to      resource.OrderStatus
		wantErr error
	}{
		{name: "pending_to_confirmed", from: resource.StatusPending, to: resource.StatusConfirmed},
		{name: "confirmed_to_completed_sale", from: resource.StatusConfirmed, to: resource.StatusCompleted},
		{name: "active_to_returned", from: resource.StatusActive, to: resource.StatusReturned},
		{name: "same_status", from: resource.StatusActive, to: resource.StatusActive, wantErr: resource.ErrStatusAlreadySet},
		{name: "active_cannot_cancel", from: resource.StatusActive, to: resource.StatusCancelled, wantErr: resource.ErrInvalidStatusTransition},
		{name: "completed_is_final", from: resource.StatusCompleted, to: resource.StatusPending, wantErr: resource.ErrInvalidStatusTransition},
		{name: "unknown_source", from: "SHIPPED", to: resource.StatusPending, wantErr: resource.ErrInvalidStatusTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.from.CheckTransition(tt.to)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	next := resource.StatusPending.Next()
	assert.Equal(t, []resource.OrderStatus{resource.StatusConfirmed, resource.StatusCancelled}, next)
	next[0] = resource.StatusCompleted
	assert.Equal(t, resource.StatusConfirmed, resource.StatusPending.Next()[0], "Next returns a copy")
}
