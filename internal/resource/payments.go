package resource

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/rental-admin-console/internal/apiclient"
	"github.com/vasiliy-maslov/rental-admin-console/internal/paging"
)

type Payment struct {
	ID       int64           `json:"id"`
	OrderID  int64           `json:"orderId"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Method   string          `json:"method"`
	Status   string          `json:"status"`
	PaidAt   time.Time       `json:"paidAt"`
}

type RefundInput struct {
	Amount decimal.Decimal `json:"amount"`
	Reason string          `json:"reason,omitempty"`
}

type PaymentService struct {
	client *apiclient.Client
}

func NewPaymentService(c *apiclient.Client) *PaymentService {
	return &PaymentService{client: c}
}

func (s *PaymentService) List(ctx context.Context, q paging.Query) (paging.Page[Payment], error) {
	return apiclient.Get[paging.Page[Payment]](ctx, s.client, "/payments", apiclient.WithQuery(pageParams(q)))
}

func (s *PaymentService) Reverse(ctx context.Context, id int64) (Payment, error) {
	return apiclient.Send[Payment](ctx, s.client, http.MethodPost, idPath("/payments", id, "/reverse"), nil)
}

func (s *PaymentService) Refund(ctx context.Context, id int64, in RefundInput) (Payment, error) {
	return apiclient.Send[Payment](ctx, s.client, http.MethodPost, idPath("/payments", id, "/refund"), in)
}
