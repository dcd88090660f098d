// Package navigation builds the sidebar menu an operator is allowed to see.
package navigation

import "github.com/vasiliy-maslov/rental-admin-console/internal/session"

// Permission names as issued by the backend.
const (
	PermUsersRead          = "users:read"
	PermUsersWrite         = "users:write"
	PermOrdersRead         = "orders:read"
	PermOrdersCreate       = "orders:create"
	PermOrdersWrite        = "orders:write"
	PermInstallmentsRead   = "installments:read"
	PermInstallmentsWrite  = "installments:write"
	PermPaymentsRead       = "payments:read"
	PermPaymentsWrite      = "payments:write"
	PermDiscountsRead      = "discounts:read"
	PermDiscountsWrite     = "discounts:write"
	PermSubscriptionsRead  = "subscriptions:read"
	PermSubscriptionsWrite = "subscriptions:write"
	PermContentRead        = "content:read"
	PermContentWrite       = "content:write"
	PermReportsRead        = "reports:read"
	PermCalendarRead       = "calendar:read"
)

type Entry struct {
	Key        string `json:"key"`
	Label      string `json:"label"`
	Path       string `json:"path"`
	Icon       string `json:"icon,omitempty"`
	Permission string `json:"-"`
}

var menu = []Entry{
	{Key: "users", Label: "Users", Path: "/lists/users", Icon: "users", Permission: PermUsersRead},
	{Key: "orders", Label: "Orders", Path: "/lists/orders", Icon: "cart", Permission: PermOrdersRead},
	{Key: "new-order", Label: "New order", Path: "/drafts", Icon: "plus", Permission: PermOrdersCreate},
	{Key: "installments", Label: "Installments", Path: "/lists/installments", Icon: "calendar-clock", Permission: PermInstallmentsRead},
	{Key: "payments", Label: "Payments", Path: "/lists/payments", Icon: "wallet", Permission: PermPaymentsRead},
	{Key: "discounts", Label: "Discounts", Path: "/lists/discounts", Icon: "percent", Permission: PermDiscountsRead},
	{Key: "daily-sales", Label: "Daily sales", Path: "/lists/daily-sales", Icon: "chart", Permission: PermReportsRead},
	{Key: "calendar", Label: "Calendar", Path: "/calendar", Icon: "calendar", Permission: PermCalendarRead},
	{Key: "subscriptions", Label: "Subscriptions", Path: "/lists/subscriptions", Icon: "mail", Permission: PermSubscriptionsRead},
	{Key: "content", Label: "Site content", Path: "/lists/content", Icon: "file", Permission: PermContentRead},
}

// For returns the menu entries s may open, in menu order.
func For(s *session.Session) []Entry {
	out := make([]Entry, 0, len(menu))
	for _, e := range menu {
		if e.Permission == "" || s.HasPermission(e.Permission) {
			out = append(out, e)
		}
	}
	return out
}
