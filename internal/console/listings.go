package console

import (
	"context"
	"sort"

	"github.com/vasiliy-maslov/rental-admin-console/internal/export"
	"github.com/vasiliy-maslov/rental-admin-console/internal/navigation"
	"github.com/vasiliy-maslov/rental-admin-console/internal/paging"
	"github.com/vasiliy-maslov/rental-admin-console/internal/resource"
)

type listingDef struct {
	permission string
	build      func(svc *resource.Services) Listing
}

// Installments are the only 1-based resource.
var listingDefs = map[string]listingDef{
	"users": {navigation.PermUsersRead, func(svc *resource.Services) Listing {
		return newListing("users", "Users", 0, svc.Users.Search, []export.Column[resource.User]{
			{Header: "ID", Value: func(u resource.User) any { return u.ID }},
			{Header: "FIN", Width: 14, Value: func(u resource.User) any { return u.FIN }},
			{Header: "Name", Width: 18, Value: func(u resource.User) any { return u.Name }},
			{Header: "Surname", Width: 18, Value: func(u resource.User) any { return u.Surname }},
			{Header: "Email", Width: 28, Value: func(u resource.User) any { return u.Email }},
			{Header: "Phone", Width: 16, Value: func(u resource.User) any { return u.Phone }},
			{Header: "Status", Value: func(u resource.User) any { return u.Status }},
		})
	}},
	"orders": {navigation.PermOrdersRead, func(svc *resource.Services) Listing {
		return newListing("orders", "Orders", 0, svc.Orders.List, []export.Column[resource.Order]{
			{Header: "ID", Value: func(o resource.Order) any { return o.ID }},
			{Header: "Customer", Width: 24, Value: func(o resource.Order) any { return o.CustomerName }},
			{Header: "Type", Value: func(o resource.Order) any { return o.OrderType.String() }},
			{Header: "Status", Width: 12, Value: func(o resource.Order) any { return o.Status.String() }},
			{Header: "Start", Width: 12, Value: func(o resource.Order) any { return o.StartDate }},
			{Header: "End", Width: 12, Value: func(o resource.Order) any { return o.EndDate }},
			{Header: "Total", Value: func(o resource.Order) any { return o.TotalAmount.InexactFloat64() }},
			{Header: "Deposit", Value: func(o resource.Order) any { return o.Deposit.InexactFloat64() }},
			{Header: "Currency", Value: func(o resource.Order) any { return o.Currency }},
		})
	}},
	"installments": {navigation.PermInstallmentsRead, func(svc *resource.Services) Listing {
		return newListing("installments", "Installments", 1, svc.Installments.List, []export.Column[resource.Installment]{
			{Header: "ID", Value: func(i resource.Installment) any { return i.ID }},
			{Header: "Order", Value: func(i resource.Installment) any { return i.OrderID }},
			{Header: "Customer", Width: 24, Value: func(i resource.Installment) any { return i.CustomerName }},
			{Header: "No.", Value: func(i resource.Installment) any { return i.Number }},
			{Header: "Due", Width: 12, Value: func(i resource.Installment) any { return i.DueDate }},
			{Header: "Amount", Value: func(i resource.Installment) any { return i.Amount.InexactFloat64() }},
			{Header: "Status", Width: 12, Value: func(i resource.Installment) any { return i.Status }},
		})
	}},
	"payments": {navigation.PermPaymentsRead, func(svc *resource.Services) Listing {
		return newListing("payments", "Payments", 0, svc.Payments.List, []export.Column[resource.Payment]{
			{Header: "ID", Value: func(p resource.Payment) any { return p.ID }},
			{Header: "Order", Value: func(p resource.Payment) any { return p.OrderID }},
			{Header: "Amount", Value: func(p resource.Payment) any { return p.Amount.InexactFloat64() }},
			{Header: "Currency", Value: func(p resource.Payment) any { return p.Currency }},
			{Header: "Method", Value: func(p resource.Payment) any { return p.Method }},
			{Header: "Status", Width: 12, Value: func(p resource.Payment) any { return p.Status }},
			{Header: "Paid at", Width: 20, Value: func(p resource.Payment) any { return p.PaidAt.Format("2006-01-02 15:04") }},
		})
	}},
	"discounts": {navigation.PermDiscountsRead, func(svc *resource.Services) Listing {
		return newListing("discounts", "Discounts", 0, svc.Discounts.List, []export.Column[resource.Discount]{
			{Header: "ID", Value: func(d resource.Discount) any { return d.ID }},
			{Header: "Code", Width: 16, Value: func(d resource.Discount) any { return d.Code }},
			{Header: "Percent", Value: func(d resource.Discount) any { return d.Percent.InexactFloat64() }},
			{Header: "From", Width: 12, Value: func(d resource.Discount) any { return d.ValidFrom }},
			{Header: "To", Width: 12, Value: func(d resource.Discount) any { return d.ValidTo }},
			{Header: "Active", Value: func(d resource.Discount) any { return d.Active }},
		})
	}},
	"daily-sales": {navigation.PermReportsRead, func(svc *resource.Services) Listing {
		return newListing("daily-sales", "Daily sales", 0, svc.Reports.DailySales, []export.Column[resource.DailySale]{
			{Header: "Date", Width: 12, Value: func(d resource.DailySale) any { return d.Date }},
			{Header: "Orders", Value: func(d resource.DailySale) any { return d.OrderCount }},
			{Header: "Rent", Value: func(d resource.DailySale) any { return d.RentCount }},
			{Header: "Sale", Value: func(d resource.DailySale) any { return d.SaleCount }},
			{Header: "Revenue", Value: func(d resource.DailySale) any { return d.Revenue.InexactFloat64() }},
			{Header: "Currency", Value: func(d resource.DailySale) any { return d.Currency }},
		})
	}},
	"subscriptions": {navigation.PermSubscriptionsRead, func(svc *resource.Services) Listing {
		return newListing("subscriptions", "Subscriptions", 0, svc.Subscriptions.List, []export.Column[resource.Subscription]{
			{Header: "ID", Value: func(s resource.Subscription) any { return s.ID }},
			{Header: "Email", Width: 30, Value: func(s resource.Subscription) any { return s.Email }},
			{Header: "Active", Value: func(s resource.Subscription) any { return s.Active }},
			{Header: "Since", Width: 20, Value: func(s resource.Subscription) any { return s.SubscribedAt.Format("2006-01-02") }},
		})
	}},
	"content": {navigation.PermContentRead, func(svc *resource.Services) Listing {
		fetch := func(ctx context.Context, q paging.Query) (paging.Page[resource.Node], error) {
			return svc.Content.ListNodes(ctx, 0, q)
		}
		return newListing("content", "Content", 0, fetch, []export.Column[resource.Node]{
			{Header: "ID", Value: func(n resource.Node) any { return n.ID }},
			{Header: "Kind", Value: func(n resource.Node) any { return n.Kind }},
			{Header: "Title", Width: 30, Value: func(n resource.Node) any { return n.Title }},
			{Header: "Slug", Width: 24, Value: func(n resource.Node) any { return n.Slug }},
		})
	}},
}

// ListingPermission returns the permission needed to open a listing.
func ListingPermission(name string) (string, bool) {
	def, ok := listingDefs[name]
	return def.permission, ok
}

func ListingNames() []string {
	names := make([]string, 0, len(listingDefs))
	for n := range listingDefs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
