// Package order submits a user's cart to the administrator.
package order

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/m3rciful/partsbot/core/logger"
	"github.com/m3rciful/partsbot/storefront/cart"
	"github.com/m3rciful/partsbot/storefront/menu"
)

// Messages shown to the customer after a checkout attempt.
const (
	TextEmpty     = menu.TextEmptyCart
	TextFailed    = "Failed to send the order. Please try again later."
	TextDelivered = "✅ Your order was sent successfully. We will contact you soon."
)

// Customer identifies who is ordering.
type Customer struct {
	ID        int64
	Username  string
	FirstName string
}

// Key is the cart store key of the customer.
func (c Customer) Key() string {
	return cart.UserKey(c.ID)
}

// Handle returns "@username", falling back to "@first name".
func (c Customer) Handle() string {
	if name := strings.TrimSpace(c.Username); name != "" {
		return "@" + name
	}
	return "@" + strings.TrimSpace(c.FirstName)
}

// Notifier delivers an order summary to the administrator.
type Notifier interface {
	NotifyAdmin(ctx context.Context, text string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, text string) error

// NotifyAdmin calls f.
func (f NotifierFunc) NotifyAdmin(ctx context.Context, text string) error {
	return f(ctx, text)
}

// Outcome is the terminal state of one checkout attempt.
type Outcome string

const (
	OutcomeEmpty     Outcome = "empty"
	OutcomeDelivered Outcome = "delivered"
	OutcomeFailed    Outcome = "fail"
)

// Result describes a checkout attempt. Message is the text for the customer.
type Result struct {
	Outcome Outcome
	Ref     string
	Items   int
	Total   int
	Message string
}

// Submitter turns carts into admin notifications.
type Submitter struct {
	store  cart.Store
	nav    *menu.Navigator
	newRef func() string
}

// NewSubmitter returns a Submitter reading carts from store and rendering
// lines with nav.
func NewSubmitter(store cart.Store, nav *menu.Navigator) *Submitter {
	return &Submitter{store: store, nav: nav, newRef: ShortRef}
}

// ShortRef returns the first block of a random UUID.
func ShortRef() string {
	id := uuid.NewString()
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// Summary renders the admin message: a header, one line per item and the total.
func (s *Submitter) Summary(ref string, cust Customer, c cart.Cart) string {
	lines := make([]string, 0, len(c.Items)+2)
	lines = append(lines, fmt.Sprintf("New order %s from %s (id: %d)", ref, cust.Handle(), cust.ID))
	lines = append(lines, s.nav.CartLines(c)...)
	return strings.Join(lines, "\n")
}

// Checkout makes one delivery attempt. The cart is cleared only after the
// notifier succeeds. A non-nil error means the cart could not be read.
func (s *Submitter) Checkout(ctx context.Context, cust Customer, n Notifier) (Result, error) {
	c, err := s.store.Get(ctx, cust.Key())
	if err != nil {
		return Result{}, fmt.Errorf("checkout: %w", err)
	}
	if c.Empty() {
		logger.Info(ctx, logger.CompOrders, "order.checkout",
			slog.String("outcome", string(OutcomeEmpty)),
		)
		return Result{Outcome: OutcomeEmpty, Message: TextEmpty}, nil
	}

	res := Result{Ref: s.newRef(), Items: len(c.Items), Total: c.Total()}
	attrs := []slog.Attr{
		slog.String("order_ref", res.Ref),
		slog.Int("items", res.Items),
		slog.Int("total", res.Total),
	}

	if err := n.NotifyAdmin(ctx, s.Summary(res.Ref, cust, c)); err != nil {
		logger.Error(ctx, logger.CompOrders, "order.checkout", append(attrs,
			slog.String("status", "fail"),
			slog.String("outcome", string(OutcomeFailed)),
			slog.String("err", err.Error()),
		)...)
		res.Outcome = OutcomeFailed
		res.Message = TextFailed
		return res, nil
	}

	if err := s.store.Clear(ctx, cust.Key()); err != nil {
		// The admin already has the order, so the outcome stays delivered.
		logger.Error(ctx, logger.CompOrders, "order.clear",
			slog.String("order_ref", res.Ref),
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
	}
	logger.Info(ctx, logger.CompOrders, "order.checkout", append(attrs,
		slog.String("status", "ok"),
		slog.String("outcome", string(OutcomeDelivered)),
	)...)
	res.Outcome = OutcomeDelivered
	res.Message = TextDelivered
	return res, nil
}
