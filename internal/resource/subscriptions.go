package resource

import (
	"context"
	"net/http"
	"time"

	"github.com/vasiliy-maslov/rental-admin-console/internal/apiclient"
	"github.com/vasiliy-maslov/rental-admin-console/internal/paging"
)

type Subscription struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Active       bool      `json:"active"`
	SubscribedAt time.Time `json:"subscribedAt"`
}

type Newsletter struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type SubscriptionService struct {
	client *apiclient.Client
}

func NewSubscriptionService(c *apiclient.Client) *SubscriptionService {
	return &SubscriptionService{client: c}
}

func (s *SubscriptionService) List(ctx context.Context, q paging.Query) (paging.Page[Subscription], error) {
	return apiclient.Get[paging.Page[Subscription]](ctx, s.client, "/subscriptions", apiclient.WithQuery(pageParams(q)))
}

func (s *SubscriptionService) Unsubscribe(ctx context.Context, id int64) error {
	return s.client.Do(ctx, http.MethodDelete, idPath("/subscriptions", id, ""), nil)
}

func (s *SubscriptionService) SendNewsletter(ctx context.Context, n Newsletter) error {
	return s.client.Do(ctx, http.MethodPost, "/subscriptions/newsletter", n)
}
