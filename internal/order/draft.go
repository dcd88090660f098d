package order

import (
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/rental-admin-console/internal/resource"
)

type Customer struct {
	ID      int64  `json:"id"`
	FIN     string `json:"fin"`
	Name    string `json:"name"`
	Surname string `json:"surname"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

func customerFrom(u resource.User) Customer {
	return Customer{
		ID:      u.ID,
		FIN:     u.FIN,
		Name:    u.Name,
		Surname: u.Surname,
		Email:   u.Email,
		Phone:   u.Phone,
	}
}

func (c Customer) FullName() string {
	if c.Surname == "" {
		return c.Name
	}
	return c.Name + " " + c.Surname
}

// LineItem is keyed by product code.
type LineItem struct {
	Code        string               `json:"code"`
	Name        string               `json:"name"`
	Quantity    int                  `json:"quantity"`
	ForSale     bool                 `json:"forSale"`
	ForRent     bool                 `json:"forRent"`
	UnitPrice   decimal.Decimal      `json:"unitPrice"`
	Unavailable []resource.DateRange `json:"unavailable,omitempty"`
}

func (li LineItem) allows(t resource.OrderType) bool {
	switch t {
	case resource.OrderTypeSale:
		return li.ForSale
	case resource.OrderTypeRent:
		return li.ForRent
	}
	return false
}

type Quote struct {
	Total    decimal.Decimal `json:"total"`
	Deposit  decimal.Decimal `json:"deposit"`
	Currency string          `json:"currency"`
}

// Snapshot is a detached copy of a draft for rendering.
type Snapshot struct {
	Customer         *Customer            `json:"customer"`
	Matches          []Customer           `json:"matches"`
	OrderType        resource.OrderType   `json:"orderType"`
	AllowedTypes     []resource.OrderType `json:"allowedTypes"`
	StartDate        string               `json:"startDate"`
	EndDate          string               `json:"endDate"`
	PaymentType      string               `json:"paymentType"`
	Items            []LineItem           `json:"items"`
	ProductCodes     []string             `json:"productCodes"`
	DisabledDates    []string             `json:"disabledDates"`
	Quote            Quote                `json:"quote"`
	PricePending     bool                 `json:"pricePending"`
	LookupBusy       bool                 `json:"lookupBusy"`
	SubmittedOrderID int64                `json:"submittedOrderId,omitempty"`
}

func (s Snapshot) ItemCount() int {
	n := 0
	for _, it := range s.Items {
		n += it.Quantity
	}
	return n
}
