package resource

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/rental-admin-console/internal/apiclient"
	"github.com/vasiliy-maslov/rental-admin-console/internal/paging"
)

type DailySale struct {
	Date       string          `json:"date"`
	OrderCount int             `json:"orderCount"`
	RentCount  int             `json:"rentCount"`
	SaleCount  int             `json:"saleCount"`
	Revenue    decimal.Decimal `json:"revenue"`
	Currency   string          `json:"currency"`
}

type ReportService struct {
	client *apiclient.Client
}

func NewReportService(c *apiclient.Client) *ReportService {
	return &ReportService{client: c}
}

// DailySales treats the query keyword as a YYYY-MM-DD date filter.
func (s *ReportService) DailySales(ctx context.Context, q paging.Query) (paging.Page[DailySale], error) {
	params := pageParams(q)
	if q.Keyword != "" {
		params.Del("keyword")
		params.Set("date", q.Keyword)
	}
	return apiclient.Get[paging.Page[DailySale]](ctx, s.client, "/reports/daily-sales", apiclient.WithQuery(params))
}
