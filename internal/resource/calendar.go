package resource

import (
	"context"
	"net/url"

	"github.com/vasiliy-maslov/rental-admin-console/internal/apiclient"
)

type Event struct {
	ID      int64  `json:"id"`
	OrderID int64  `json:"orderId"`
	Title   string `json:"title"`
	Kind    string `json:"kind"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type CalendarService struct {
	client *apiclient.Client
}

func NewCalendarService(c *apiclient.Client) *CalendarService {
	return &CalendarService{client: c}
}

func (s *CalendarService) Events(ctx context.Context, from, to string) ([]Event, error) {
	q := url.Values{"from": {from}, "to": {to}}
	return apiclient.Get[[]Event](ctx, s.client, "/calendar/events", apiclient.WithQuery(q))
}
