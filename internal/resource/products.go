package resource

import (
	"context"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/rental-admin-console/internal/apiclient"
)

// DateRange bounds are ISO dates (YYYY-MM-DD), both inclusive.
type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type Availability struct {
	Code             string          `json:"code"`
	Name             string          `json:"name"`
	ForSale          bool            `json:"forSale"`
	ForRent          bool            `json:"forRent"`
	Price            decimal.Decimal `json:"price"`
	UnavailableDates []DateRange     `json:"unavailableDates"`
}

type ProductService struct {
	client *apiclient.Client
}

func NewProductService(c *apiclient.Client) *ProductService {
	return &ProductService{client: c}
}

func (s *ProductService) Availability(ctx context.Context, code string) (Availability, error) {
	return apiclient.Get[Availability](ctx, s.client, "/products/"+url.PathEscape(code)+"/availability")
}
