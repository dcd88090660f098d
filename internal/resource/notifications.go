package resource

import (
	"context"

	"github.com/vasiliy-maslov/rental-admin-console/internal/apiclient"
)

type NotificationService struct {
	client *apiclient.Client
}

func NewNotificationService(c *apiclient.Client) *NotificationService {
	return &NotificationService{client: c}
}

func (s *NotificationService) UnreadCount(ctx context.Context) (int, error) {
	out, err := apiclient.Get[struct {
		Count int `json:"count"`
	}](ctx, s.client, "/notifications/unread-count")
	if err != nil {
		return 0, err
	}
	return out.Count, nil
}
