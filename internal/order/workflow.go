// Package order implements the order-creation workflow: customer lookup,
// line-item accumulation against live availability, debounced price
// recomputation and submission.
package order

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/vasiliy-maslov/rental-admin-console/internal/apiclient"
	"github.com/vasiliy-maslov/rental-admin-console/internal/debounce"
	"github.com/vasiliy-maslov/rental-admin-console/internal/resource"
)

const DefaultPriceDebounce = 500 * time.Millisecond

var (
	ErrBusy             = errors.New("customer lookup already in progress")
	ErrInvalidFIN       = errors.New("national id is required")
	ErrInvalidItem      = errors.New("product code and a positive quantity are required")
	ErrProductNotFound  = errors.New("product not found")
	ErrTypeConflict     = errors.New("order type conflicts with the items")
	ErrInvalidOrderType = errors.New("invalid order type")
	ErrItemNotFound     = errors.New("item not in draft")
	ErrUnknownCustomer  = errors.New("customer is not among the lookup matches")
	ErrInvalidDate      = errors.New("invalid date")
	ErrDateRange        = errors.New("end date is before start date")
	ErrDateUnavailable  = errors.New("date is unavailable")
	ErrIncomplete       = errors.New("draft is incomplete")
	ErrAlreadySubmitted = errors.New("draft already submitted")
)

type UserFinder interface {
	FindByFIN(ctx context.Context, fin string) ([]resource.User, error)
}

type ProductLookup interface {
	Availability(ctx context.Context, code string) (resource.Availability, error)
}

type OrderAPI interface {
	CalculatePrice(ctx context.Context, req resource.PriceRequest) (resource.PriceQuote, error)
	Create(ctx context.Context, in resource.OrderInput) (resource.Order, error)
}

type Deps struct {
	Users    UserFinder
	Products ProductLookup
	Orders   OrderAPI
}

type Workflow struct {
	mu sync.Mutex

	deps   Deps
	ctx    context.Context
	cancel context.CancelFunc

	customer    *Customer
	matches     []Customer
	orderType   resource.OrderType
	startDate   string
	endDate     string
	paymentType string
	items       []LineItem
	codes       []string
	disabled    []string
	quote       Quote
	busy        bool
	submittedID int64
	notices     []Notice

	recalc *debounce.Debouncer
}

// NewWorkflow starts an empty RENT draft. ctx carries the operator session
// used by the debounced price calls and lives until Close.
func NewWorkflow(ctx context.Context, deps Deps, delay time.Duration) *Workflow {
	if delay <= 0 {
		delay = DefaultPriceDebounce
	}
	wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w := &Workflow{
		deps:      deps,
		ctx:       wctx,
		cancel:    cancel,
		orderType: resource.OrderTypeRent,
	}
	w.recalc = debounce.New(delay, w.recalculate)
	return w
}

func (w *Workflow) Close() {
	w.recalc.Stop()
	w.cancel()
}

// LookupCustomer searches customers by national ID. Only one lookup runs at a time.
func (w *Workflow) LookupCustomer(ctx context.Context, fin string) ([]Customer, error) {
	fin = strings.TrimSpace(fin)
	if fin == "" {
		return nil, ErrInvalidFIN
	}

	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		return nil, ErrBusy
	}
	w.busy = true
	w.mu.Unlock()

	users, err := w.deps.Users.FindByFIN(ctx, fin)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false

	if err != nil && !errors.Is(err, apiclient.ErrNotFound) {
		w.noticeLocked(LevelError, apiclient.Message(err, "Customer lookup failed"))
		return nil, fmt.Errorf("customer lookup: %w", err)
	}
	if len(users) == 0 {
		w.noticeLocked(LevelWarning, fmt.Sprintf("No customer found for %s", fin))
		return nil, nil
	}

	matches := make([]Customer, 0, len(users))
	for _, u := range users {
		matches = append(matches, customerFrom(u))
	}
	first := matches[0]
	w.customer = &first
	w.matches = matches
	return slices.Clone(matches), nil
}

// SelectCustomer picks another customer from the last lookup's matches.
func (w *Workflow) SelectCustomer(id int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, m := range w.matches {
		if m.ID == id {
			c := m
			w.customer = &c
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ErrUnknownCustomer, id)
}

// AddItem looks the product up and merges qty units of it into the draft.
// Rejected additions leave the draft unchanged.
func (w *Workflow) AddItem(ctx context.Context, code string, qty int) error {
	code = strings.TrimSpace(code)
	if code == "" || qty <= 0 {
		return ErrInvalidItem
	}

	product, err := w.deps.Products.Availability(ctx, code)
	if errors.Is(err, apiclient.ErrNotFound) {
		w.notice(LevelError, fmt.Sprintf("Product %s not found", code))
		return fmt.Errorf("%w: %s", ErrProductNotFound, code)
	}
	if err != nil {
		w.notice(LevelError, apiclient.Message(err, "Failed to check product availability"))
		return fmt.Errorf("product lookup: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submittedID != 0 {
		return ErrAlreadySubmitted
	}

	allowed := allowedTypes(w.items, &LineItem{ForSale: product.ForSale, ForRent: product.ForRent})
	if len(allowed) == 0 {
		w.noticeLocked(LevelError, fmt.Sprintf("%s cannot be combined with the current order type", code))
		return fmt.Errorf("%w: %s", ErrTypeConflict, code)
	}

	switch {
	case product.ForSale && !product.ForRent:
		w.orderType = resource.OrderTypeSale
	case product.ForRent && !product.ForSale:
		w.orderType = resource.OrderTypeRent
	case !slices.Contains(allowed, w.orderType):
		w.orderType = allowed[0]
	}

	idx := slices.IndexFunc(w.items, func(li LineItem) bool { return li.Code == code })
	if idx >= 0 {
		w.items[idx].Quantity += qty
		w.items[idx].ForSale = product.ForSale
		w.items[idx].ForRent = product.ForRent
		w.items[idx].Unavailable = product.UnavailableDates
	} else {
		name := product.Name
		if name == "" {
			name = code
		}
		w.items = append(w.items, LineItem{
			Code:        code,
			Name:        name,
			Quantity:    qty,
			ForSale:     product.ForSale,
			ForRent:     product.ForRent,
			UnitPrice:   product.Price,
			Unavailable: product.UnavailableDates,
		})
	}
	for i := 0; i < qty; i++ {
		w.codes = append(w.codes, code)
	}

	w.refreshDisabledLocked()
	w.dropBlockedDatesLocked()
	w.recalc.Trigger()
	return nil
}

// RemoveItem takes one unit of code out of the draft.
func (w *Workflow) RemoveItem(code string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submittedID != 0 {
		return ErrAlreadySubmitted
	}

	idx := slices.IndexFunc(w.items, func(li LineItem) bool { return li.Code == code })
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrItemNotFound, code)
	}

	w.items[idx].Quantity--
	if w.items[idx].Quantity <= 0 {
		w.items = slices.Delete(w.items, idx, idx+1)
	}

	for i := len(w.codes) - 1; i >= 0; i-- {
		if w.codes[i] == code {
			w.codes = slices.Delete(w.codes, i, i+1)
			break
		}
	}

	w.refreshDisabledLocked()
	w.recalc.Trigger()
	return nil
}

// Changes is a partial update of the draft header. Nil fields are kept.
// Empty date strings clear that bound.
type Changes struct {
	OrderType   *resource.OrderType
	StartDate   *string
	EndDate     *string
	PaymentType *string
}

// Apply validates the draft as it would look after c and only then stores it,
// so a rejected update leaves every field untouched.
func (w *Workflow) Apply(c Changes) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submittedID != 0 {
		return ErrAlreadySubmitted
	}

	orderType := w.orderType
	if c.OrderType != nil {
		orderType = *c.OrderType
		if orderType != resource.OrderTypeRent && orderType != resource.OrderTypeSale {
			return fmt.Errorf("%w: %q", ErrInvalidOrderType, orderType)
		}
		if !slices.Contains(allowedTypes(w.items, nil), orderType) {
			return fmt.Errorf("%w: %s", ErrTypeConflict, orderType)
		}
	}

	start, end := w.startDate, w.endDate
	if c.StartDate != nil {
		start = *c.StartDate
	}
	if c.EndDate != nil {
		end = *c.EndDate
	}
	if err := w.checkDatesLocked(start, end, orderType); err != nil {
		return err
	}

	changed := orderType != w.orderType || start != w.startDate || end != w.endDate
	w.orderType = orderType
	w.startDate = start
	w.endDate = end
	if c.PaymentType != nil {
		w.paymentType = *c.PaymentType
	}
	if changed {
		w.recalc.Trigger()
	}
	return nil
}

func (w *Workflow) SetOrderType(t resource.OrderType) error {
	return w.Apply(Changes{OrderType: &t})
}

// SetDates sets the order period as YYYY-MM-DD strings. Empty clears a bound.
// Sale orders ignore the end date.
func (w *Workflow) SetDates(start, end string) error {
	return w.Apply(Changes{StartDate: &start, EndDate: &end})
}

// checkDatesLocked reports whether [start, end] is a well-formed range free of
// disabled days for the given order type.
func (w *Workflow) checkDatesLocked(start, end string, orderType resource.OrderType) error {
	var startDay, endDay time.Time
	var err error
	if start != "" {
		if startDay, err = parseDate(start); err != nil {
			return err
		}
	}
	if end != "" {
		if endDay, err = parseDate(end); err != nil {
			return err
		}
	}
	if start != "" && end != "" && endDay.Before(startDay) {
		return ErrDateRange
	}

	if start != "" {
		last := startDay
		if end != "" && orderType != resource.OrderTypeSale {
			last = endDay
		}
		if day, blocked := firstBlocked(startDay, last, w.disabled); blocked {
			return fmt.Errorf("%w: %s", ErrDateUnavailable, day)
		}
	}
	return nil
}

// dropBlockedDatesLocked clears the selected period when a newly added item
// makes part of it unavailable. A blocked start clears both bounds.
func (w *Workflow) dropBlockedDatesLocked() {
	if w.startDate == "" {
		return
	}
	startDay, err := parseDate(w.startDate)
	if err != nil {
		return
	}
	last := startDay
	if w.endDate != "" && w.orderType != resource.OrderTypeSale {
		if endDay, err := parseDate(w.endDate); err == nil {
			last = endDay
		}
	}
	day, blocked := firstBlocked(startDay, last, w.disabled)
	if !blocked {
		return
	}
	if day == w.startDate {
		w.startDate = ""
	}
	w.endDate = ""
	w.noticeLocked(LevelWarning, fmt.Sprintf("%s is unavailable for the selected items, pick the dates again", day))
}

// SetPaymentType does not affect the price.
func (w *Workflow) SetPaymentType(pt string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paymentType = pt
}

// Submit posts the draft as a new order.
func (w *Workflow) Submit(ctx context.Context) (resource.Order, error) {
	w.mu.Lock()
	if w.submittedID != 0 {
		w.mu.Unlock()
		return resource.Order{}, ErrAlreadySubmitted
	}
	input, err := w.orderInputLocked()
	w.mu.Unlock()
	if err != nil {
		return resource.Order{}, err
	}

	created, err := w.deps.Orders.Create(ctx, input)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		w.noticeLocked(LevelError, apiclient.Message(err, "Failed to create order"))
		return resource.Order{}, fmt.Errorf("create order: %w", err)
	}
	w.submittedID = created.ID
	w.recalc.Stop()
	w.noticeLocked(LevelInfo, fmt.Sprintf("Order #%d created", created.ID))
	return created, nil
}

func (w *Workflow) orderInputLocked() (resource.OrderInput, error) {
	var missing []string
	if w.customer == nil {
		missing = append(missing, "customer")
	}
	if len(w.items) == 0 {
		missing = append(missing, "items")
	}
	if w.startDate == "" {
		missing = append(missing, "startDate")
	}
	if w.orderType != resource.OrderTypeSale && w.endDate == "" {
		missing = append(missing, "endDate")
	}
	if w.paymentType == "" {
		missing = append(missing, "paymentType")
	}
	if len(missing) > 0 {
		return resource.OrderInput{}, fmt.Errorf("%w: missing %s", ErrIncomplete, strings.Join(missing, ", "))
	}

	end := w.endDate
	if w.orderType == resource.OrderTypeSale {
		end = w.startDate
	}
	return resource.OrderInput{
		CustomerID:   w.customer.ID,
		OrderType:    w.orderType,
		StartDate:    w.startDate,
		EndDate:      end,
		PaymentType:  w.paymentType,
		ProductCodes: slices.Clone(w.codes),
	}, nil
}

// priceRequestLocked reports false while the dependency set is incomplete.
func (w *Workflow) priceRequestLocked() (resource.PriceRequest, bool) {
	if len(w.codes) == 0 || w.startDate == "" {
		return resource.PriceRequest{}, false
	}
	end := w.endDate
	if w.orderType == resource.OrderTypeSale {
		end = w.startDate
	} else if end == "" {
		return resource.PriceRequest{}, false
	}
	return resource.PriceRequest{
		OrderType:    w.orderType,
		StartDate:    w.startDate,
		EndDate:      end,
		ProductCodes: slices.Clone(w.codes),
	}, true
}

// recalculate runs on the debounce timer. Responses are applied in arrival order.
func (w *Workflow) recalculate() {
	w.mu.Lock()
	req, ok := w.priceRequestLocked()
	if !ok {
		w.resetQuoteLocked()
		w.mu.Unlock()
		return
	}
	ctx := w.ctx
	w.mu.Unlock()

	quote, err := w.deps.Orders.CalculatePrice(ctx, req)

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.resetQuoteLocked()
		w.noticeLocked(LevelError, apiclient.Message(err, "Failed to calculate price"))
		return
	}
	w.quote = Quote{Total: quote.TotalAmount, Deposit: quote.Deposit, Currency: quote.Currency}
}

func (w *Workflow) resetQuoteLocked() {
	w.quote.Total = decimal.Zero
	w.quote.Deposit = decimal.Zero
}

func (w *Workflow) refreshDisabledLocked() {
	var ranges []resource.DateRange
	for _, it := range w.items {
		ranges = append(ranges, it.Unavailable...)
	}
	w.disabled = expandRanges(ranges)
}

func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	var customer *Customer
	if w.customer != nil {
		c := *w.customer
		customer = &c
	}
	items := make([]LineItem, len(w.items))
	for i, it := range w.items {
		it.Unavailable = slices.Clone(it.Unavailable)
		items[i] = it
	}

	return Snapshot{
		Customer:         customer,
		Matches:          slices.Clone(w.matches),
		OrderType:        w.orderType,
		AllowedTypes:     allowedTypes(w.items, nil),
		StartDate:        w.startDate,
		EndDate:          w.endDate,
		PaymentType:      w.paymentType,
		Items:            items,
		ProductCodes:     slices.Clone(w.codes),
		DisabledDates:    slices.Clone(w.disabled),
		Quote:            w.quote,
		PricePending:     w.recalc.Pending(),
		LookupBusy:       w.busy,
		SubmittedOrderID: w.submittedID,
	}
}

// DrainNotices returns pending notices and clears the queue.
func (w *Workflow) DrainNotices() []Notice {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := w.notices
	w.notices = nil
	return out
}

func (w *Workflow) notice(level Level, msg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.noticeLocked(level, msg)
}

func (w *Workflow) noticeLocked(level Level, msg string) {
	log.WithLevel(level.zerolog()).Str("notice", msg).Msg("Order draft notice")
	w.notices = append(w.notices, Notice{Level: level, Message: msg})
}

// allowedTypes intersects the order types permitted by every item, plus extra when non-nil.
func allowedTypes(items []LineItem, extra *LineItem) []resource.OrderType {
	var out []resource.OrderType
	for _, t := range []resource.OrderType{resource.OrderTypeRent, resource.OrderTypeSale} {
		ok := true
		for _, it := range items {
			if !it.allows(t) {
				ok = false
				break
			}
		}
		if ok && extra != nil && !extra.allows(t) {
			ok = false
		}
		if ok {
			out = append(out, t)
		}
	}
	return out
}
