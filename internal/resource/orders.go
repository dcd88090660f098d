package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/rental-admin-console/internal/apiclient"
	"github.com/vasiliy-maslov/rental-admin-console/internal/paging"
)

type OrderType string

const (
	OrderTypeRent OrderType = "RENT"
	OrderTypeSale OrderType = "SALE"
)

func (t OrderType) String() string {
	return string(t)
}

type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusActive    OrderStatus = "ACTIVE"
	StatusReturned  OrderStatus = "RETURNED"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) String() string {
	return string(s)
}

func (s OrderStatus) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

var allowedTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusActive, StatusCompleted, StatusCancelled},
	StatusActive:    {StatusReturned},
	StatusReturned:  {StatusCompleted},
	StatusCompleted: {},
	StatusCancelled: {},
}

var (
	ErrStatusAlreadySet        = errors.New("status is already set to the desired value")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
)

// Next lists the statuses an order in s may move to. Sale orders go from
// CONFIRMED straight to COMPLETED.
func (s OrderStatus) Next() []OrderStatus {
	return slices.Clone(allowedTransitions[s])
}

func (s OrderStatus) CheckTransition(to OrderStatus) error {
	if s == to {
		return ErrStatusAlreadySet
	}
	if !slices.Contains(allowedTransitions[s], to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidStatusTransition, s, to)
	}
	return nil
}

type Order struct {
	ID           int64           `json:"id"`
	CustomerID   int64           `json:"customerId"`
	CustomerName string          `json:"customerName,omitempty"`
	OrderType    OrderType       `json:"orderType"`
	Status       OrderStatus     `json:"status"`
	StartDate    string          `json:"startDate"`
	EndDate      string          `json:"endDate"`
	PaymentType  string          `json:"paymentType"`
	ProductCodes []string        `json:"productCodes"`
	TotalAmount  decimal.Decimal `json:"totalAmount"`
	Deposit      decimal.Decimal `json:"deposit"`
	Currency     string          `json:"currency"`
	CreatedAt    time.Time       `json:"createdAt"`
}

type OrderInput struct {
	CustomerID   int64     `json:"customerId"`
	OrderType    OrderType `json:"orderType"`
	StartDate    string    `json:"startDate"`
	EndDate      string    `json:"endDate"`
	PaymentType  string    `json:"paymentType"`
	ProductCodes []string  `json:"productCodes"`
}

type PriceRequest struct {
	OrderType    OrderType `json:"orderType"`
	StartDate    string    `json:"startDate"`
	EndDate      string    `json:"endDate"`
	ProductCodes []string  `json:"productCodes"`
}

type PriceQuote struct {
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Deposit     decimal.Decimal `json:"deposit"`
	Currency    string          `json:"currency"`
}

type OrderService struct {
	client *apiclient.Client
}

func NewOrderService(c *apiclient.Client) *OrderService {
	return &OrderService{client: c}
}

// List pages are 0-based.
func (s *OrderService) List(ctx context.Context, q paging.Query) (paging.Page[Order], error) {
	return apiclient.Get[paging.Page[Order]](ctx, s.client, "/orders", apiclient.WithQuery(pageParams(q)))
}

func (s *OrderService) Get(ctx context.Context, id int64) (Order, error) {
	return apiclient.Get[Order](ctx, s.client, idPath("/orders", id, ""))
}

func (s *OrderService) Create(ctx context.Context, in OrderInput) (Order, error) {
	return apiclient.Send[Order](ctx, s.client, http.MethodPost, "/orders", in)
}

func (s *OrderService) Update(ctx context.Context, id int64, in OrderInput) (Order, error) {
	return apiclient.Send[Order](ctx, s.client, http.MethodPut, idPath("/orders", id, ""), in)
}

func (s *OrderService) Delete(ctx context.Context, id int64) error {
	return s.client.Do(ctx, http.MethodDelete, idPath("/orders", id, ""), nil)
}

func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status OrderStatus) (Order, error) {
	body := map[string]OrderStatus{"status": status}
	return apiclient.Send[Order](ctx, s.client, http.MethodPatch, idPath("/orders", id, "/status"), body)
}

func (s *OrderService) CalculatePrice(ctx context.Context, req PriceRequest) (PriceQuote, error) {
	return apiclient.Send[PriceQuote](ctx, s.client, http.MethodPost, "/orders/calculate-price", req)
}

func (s *OrderService) UploadContract(ctx context.Context, id int64, filename string, data io.Reader) error {
	files := []apiclient.File{{Field: "file", Name: filename, ContentType: "application/pdf", Data: data}}
	_, err := apiclient.Upload[struct{}](ctx, s.client, idPath("/orders", id, "/contract"), files, nil)
	if err != nil {
		return fmt.Errorf("failed to upload contract for order %d: %w", id, err)
	}
	return nil
}

func (s *OrderService) DownloadContract(ctx context.Context, id int64) (*apiclient.Blob, error) {
	return s.client.Download(ctx, idPath("/orders", id, "/contract"))
}
