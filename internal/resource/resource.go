// Package resource wraps each backend resource with a thin typed service.
// Every method maps to exactly one endpoint of the commerce API.
package resource

import (
	"net/url"
	"strconv"

	"github.com/vasiliy-maslov/rental-admin-console/internal/apiclient"
	"github.com/vasiliy-maslov/rental-admin-console/internal/paging"
)

// Services groups every resource service behind one shared client.
type Services struct {
	Auth          *AuthService
	Users         *UserService
	Products      *ProductService
	Orders        *OrderService
	Installments  *InstallmentService
	Payments      *PaymentService
	Discounts     *DiscountService
	Subscriptions *SubscriptionService
	Content       *ContentService
	Reports       *ReportService
	Calendar      *CalendarService
	Notifications *NotificationService
}

func NewServices(c *apiclient.Client) *Services {
	return &Services{
		Auth:          NewAuthService(c),
		Users:         NewUserService(c),
		Products:      NewProductService(c),
		Orders:        NewOrderService(c),
		Installments:  NewInstallmentService(c),
		Payments:      NewPaymentService(c),
		Discounts:     NewDiscountService(c),
		Subscriptions: NewSubscriptionService(c),
		Content:       NewContentService(c),
		Reports:       NewReportService(c),
		Calendar:      NewCalendarService(c),
		Notifications: NewNotificationService(c),
	}
}

func pageParams(q paging.Query) url.Values {
	v := url.Values{}
	v.Set("page", strconv.Itoa(q.Page))
	v.Set("size", strconv.Itoa(q.Size))
	if q.Keyword != "" {
		v.Set("keyword", q.Keyword)
	}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	return v
}

func idPath(prefix string, id int64, suffix string) string {
	return prefix + "/" + strconv.FormatInt(id, 10) + suffix
}
