// Package router maps callback commands onto screens and cart changes.
package router

import (
	"context"
	"log/slog"

	"github.com/m3rciful/partsbot/core/logger"
	"github.com/m3rciful/partsbot/storefront/action"
	"github.com/m3rciful/partsbot/storefront/cart"
	"github.com/m3rciful/partsbot/storefront/menu"
	"github.com/m3rciful/partsbot/storefront/order"
)

// Fixed replies.
const (
	TextInvalid     = "Invalid or expired action. Please use the menu."
	TextMalformed   = "Invalid product data."
	TextUnavailable = "Service is temporarily unavailable, please try again later."
	TextCleared     = "🗑️ Cart cleared."
	TextHelp        = "Use the buttons to pick a car, a model and a part. /cart shows your cart, /start opens the menu."
	TextFallback    = "Please use the menu. Send /start to open it."
)

// Mode says how a reply reaches the chat.
type Mode int

const (
	// ModeEdit replaces the message that carried the pressed button.
	ModeEdit Mode = iota
	// ModeSend posts a new message.
	ModeSend
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "send"
}

// Reply is a screen and its delivery mode. Outcome tags the reply for logs.
type Reply struct {
	Screen  menu.Screen
	Mode    Mode
	Outcome string
}

// Request is one command from one customer. Notifier is used by checkout.
type Request struct {
	Command  string
	Customer order.Customer
	Notifier order.Notifier
}

// Router is the single entry point for callback commands.
type Router struct {
	nav    *menu.Navigator
	store  cart.Store
	orders *order.Submitter
}

// New wires a Router.
func New(nav *menu.Navigator, store cart.Store, orders *order.Submitter) *Router {
	return &Router{nav: nav, store: store, orders: orders}
}

func edit(s menu.Screen) Reply {
	return Reply{Screen: s, Mode: ModeEdit, Outcome: "ok"}
}

func send(text, outcome string) Reply {
	return Reply{Screen: menu.TextScreen(text), Mode: ModeSend, Outcome: outcome}
}

func invalid() Reply { return send(TextInvalid, "rejected") }

func unavailable(ctx context.Context, event string, err error) Reply {
	logger.Error(ctx, logger.CompShop, event,
		slog.String("status", "fail"),
		slog.String("err", err.Error()),
	)
	return send(TextUnavailable, "fail")
}

func screenOr(s menu.Screen, ok bool) Reply {
	if !ok {
		return invalid()
	}
	return edit(s)
}

// Route handles req.Command. It always returns a reply; stale, unknown and
// malformed commands get an explanatory text instead of an error.
func (r *Router) Route(ctx context.Context, req Request) Reply {
	switch a := action.Parse(req.Command).(type) {
	case action.ViewCart:
		c, err := r.store.Get(ctx, req.Customer.Key())
		if err != nil {
			return unavailable(ctx, "cart.view", err)
		}
		return edit(r.nav.Cart(c))
	case action.BackMain:
		return edit(r.nav.Root(menu.TextMainMenu))
	case action.SelectBrand:
		return screenOr(r.nav.Models(a.Brand))
	case action.BackModels:
		return screenOr(r.nav.Models(a.Brand))
	case action.SelectModel:
		return screenOr(r.nav.Options(a.Brand, a.Model))
	case action.BackOptions:
		return screenOr(r.nav.Options(a.Brand, a.Model))
	case action.SelectTireOrigin:
		return screenOr(r.nav.TireSizes(a.Brand, a.Model, a.Origin))
	case action.SelectPart:
		return screenOr(r.nav.ConfirmPart(a.Brand, a.Model, a.Part))
	case action.AddItem:
		return r.addItem(ctx, req.Customer, a)
	case action.ClearCart:
		if err := r.store.Clear(ctx, req.Customer.Key()); err != nil {
			return unavailable(ctx, "cart.clear", err)
		}
		logger.Info(ctx, logger.CompShop, "cart.clear", slog.String("status", "ok"))
		return send(TextCleared, "ok")
	case action.Checkout:
		return r.checkout(ctx, req)
	case action.Malformed:
		logger.Warn(ctx, logger.CompShop, "action.malformed",
			slog.String("action", string(a.Of)),
			slog.String("payload", logger.SanitizeLimit(a.Raw, 64)),
		)
		return send(TextMalformed, "rejected")
	default:
		logger.Debug(ctx, logger.CompShop, "action.invalid",
			slog.String("payload", logger.SanitizeLimit(req.Command, 64)),
		)
		return invalid()
	}
}

// addItem rejects items whose model, name, meta or price disagree with the catalog.
func (r *Router) addItem(ctx context.Context, cust order.Customer, a action.AddItem) Reply {
	cat := r.nav.Catalog()
	price, ok := cat.Quote(a.Name, a.Meta)
	if !ok || price != a.Price || !cat.HasModel(a.Brand, a.Model) {
		logger.Info(ctx, logger.CompShop, "cart.add",
			slog.String("status", "skip"),
			slog.String("outcome", "rejected"),
			slog.String("item", a.Name),
			slog.Int("price", a.Price),
		)
		return invalid()
	}

	it := cart.Item{Brand: a.Brand, Model: a.Model, Name: a.Name, Meta: a.Meta, Price: a.Price, Qty: 1}
	c, err := r.store.AddItem(ctx, cust.Key(), it)
	if err != nil {
		return unavailable(ctx, "cart.add", err)
	}
	logger.Info(ctx, logger.CompShop, "cart.add",
		slog.String("status", "ok"),
		slog.String("brand", it.Brand),
		slog.String("model", it.Model),
		slog.String("item", it.Name),
		slog.Int("price", it.Price),
		slog.Int("items", len(c.Items)),
	)
	return send(r.nav.Added(it), "ok")
}

func (r *Router) checkout(ctx context.Context, req Request) Reply {
	if req.Notifier == nil {
		return send(order.TextFailed, "fail")
	}
	res, err := r.orders.Checkout(ctx, req.Customer, req.Notifier)
	if err != nil {
		return unavailable(ctx, "order.checkout", err)
	}
	return send(res.Message, string(res.Outcome))
}

// Start greets the user and shows the root menu.
func (r *Router) Start(firstName string) Reply {
	text := "Hi " + firstName + "!\nWelcome to the car parts shop.\nPick a brand:"
	return Reply{Screen: r.nav.Root(text), Mode: ModeSend, Outcome: "ok"}
}

// CartText renders the user's cart as plain text.
func (r *Router) CartText(ctx context.Context, userID string) Reply {
	c, err := r.store.Get(ctx, userID)
	if err != nil {
		return unavailable(ctx, "cart.view", err)
	}
	return send(r.nav.CartText(c), "ok")
}

// Help returns the static help text.
func (r *Router) Help() Reply {
	return send(TextHelp, "ok")
}

// Fallback answers free text that is not a command.
func (r *Router) Fallback() Reply {
	return send(TextFallback, "skip")
}

// Stats reports open carts for the admin.
func (r *Router) Stats(ctx context.Context) (cart.Stats, error) {
	return r.store.Stats(ctx)
}
