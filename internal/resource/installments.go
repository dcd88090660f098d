package resource

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/vasiliy-maslov/rental-admin-console/internal/apiclient"
	"github.com/vasiliy-maslov/rental-admin-console/internal/paging"
)

type Installment struct {
	ID           int64           `json:"id"`
	OrderID      int64           `json:"orderId"`
	CustomerName string          `json:"customerName"`
	Number       int             `json:"number"`
	DueDate      string          `json:"dueDate"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Status       string          `json:"status"`
}

type InstallmentService struct {
	client *apiclient.Client
}

func NewInstallmentService(c *apiclient.Client) *InstallmentService {
	return &InstallmentService{client: c}
}

// List pages are 1-based, unlike the other resources.
func (s *InstallmentService) List(ctx context.Context, q paging.Query) (paging.Page[Installment], error) {
	return apiclient.Get[paging.Page[Installment]](ctx, s.client, "/installments", apiclient.WithQuery(pageParams(q)))
}

func (s *InstallmentService) UpdateStatus(ctx context.Context, id int64, status string) error {
	body := map[string]string{"status": status}
	return s.client.Do(ctx, http.MethodPatch, idPath("/installments", id, "/status"), body)
}

// UploadDocuments sends every file as its own request, all in parallel.
// The first failure is returned once every upload has finished.
func (s *InstallmentService) UploadDocuments(ctx context.Context, id int64, files []apiclient.File) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range files {
		g.Go(func() error {
			_, err := apiclient.Upload[struct{}](gctx, s.client, idPath("/installments", id, "/documents"), []apiclient.File{f}, nil)
			if err != nil {
				return fmt.Errorf("failed to upload %s: %w", f.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}
