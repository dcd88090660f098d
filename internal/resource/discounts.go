package resource

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/rental-admin-console/internal/apiclient"
	"github.com/vasiliy-maslov/rental-admin-console/internal/paging"
)

type Discount struct {
	ID        int64           `json:"id"`
	Code      string          `json:"code"`
	Percent   decimal.Decimal `json:"percent"`
	ValidFrom string          `json:"validFrom"`
	ValidTo   string          `json:"validTo"`
	Active    bool            `json:"active"`
}

type DiscountInput struct {
	Code      string          `json:"code"`
	Percent   decimal.Decimal `json:"percent"`
	ValidFrom string          `json:"validFrom"`
	ValidTo   string          `json:"validTo"`
	Active    bool            `json:"active"`
}

type DiscountService struct {
	client *apiclient.Client
}

func NewDiscountService(c *apiclient.Client) *DiscountService {
	return &DiscountService{client: c}
}

func (s *DiscountService) List(ctx context.Context, q paging.Query) (paging.Page[Discount], error) {
	return apiclient.Get[paging.Page[Discount]](ctx, s.client, "/discounts", apiclient.WithQuery(pageParams(q)))
}

func (s *DiscountService) Create(ctx context.Context, in DiscountInput) (Discount, error) {
	return apiclient.Send[Discount](ctx, s.client, http.MethodPost, "/discounts", in)
}

func (s *DiscountService) Update(ctx context.Context, id int64, in DiscountInput) (Discount, error) {
	return apiclient.Send[Discount](ctx, s.client, http.MethodPut, idPath("/discounts", id, ""), in)
}

func (s *DiscountService) Delete(ctx context.Context, id int64) error {
	return s.client.Do(ctx, http.MethodDelete, idPath("/discounts", id, ""), nil)
}
