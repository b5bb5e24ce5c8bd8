// Package bot adapts the storefront router to telebot handlers.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/partsbot/core/buildinfo"
	"github.com/m3rciful/partsbot/core/logger"
	tg "github.com/m3rciful/partsbot/core/telegram"
	"github.com/m3rciful/partsbot/core/telegram/callbacks"
	"github.com/m3rciful/partsbot/core/telegram/commands"
	tghelpers "github.com/m3rciful/partsbot/core/telegram/helpers"
	"github.com/m3rciful/partsbot/core/telegram/keyboard"
	tgsender "github.com/m3rciful/partsbot/core/telegram/sender"
	"github.com/m3rciful/partsbot/storefront/action"
	"github.com/m3rciful/partsbot/storefront/cart"
	"github.com/m3rciful/partsbot/storefront/menu"
	"github.com/m3rciful/partsbot/storefront/order"
	"github.com/m3rciful/partsbot/storefront/router"
)

// TextSlowDown answers callbacks dropped by the rate limiter.
const TextSlowDown = "Too many requests, please slow down."

// ErrNoAdmin is returned by the admin notifier when no admin chat is configured.
var ErrNoAdmin = errors.New("bot: admin chat id is not configured")

// Options configure Handlers.
type Options struct {
	Router  *router.Router
	AdminID int64
	// Notifier builds the admin notifier for one update. Nil sends through
	// the update's bot to AdminID.
	Notifier func(c tele.Context) order.Notifier
}

// Handlers holds the telebot handlers of the storefront.
type Handlers struct {
	router   *router.Router
	adminID  int64
	notifier func(c tele.Context) order.Notifier
}

// New builds Handlers.
func New(opts Options) *Handlers {
	h := &Handlers{router: opts.Router, adminID: opts.AdminID, notifier: opts.Notifier}
	if h.notifier == nil {
		h.notifier = h.adminNotifier
	}
	return h
}

// Register adds the storefront commands and one callback handler per action kind.
func (h *Handlers) Register(reg *tg.Registry) error {
	cmds := map[string]commands.Command{
		"/start": {Handler: h.Start, Description: "Open the catalog"},
		"/cart":  {Handler: h.Cart, Description: "Show your cart"},
		"/help":  {Handler: h.Help, Description: "How to order"},
		"/stats": {Handler: h.Stats, Description: "Open carts and build info", AdminOnly: true, Hidden: true},
	}
	for name, cmd := range cmds {
		if err := reg.RegisterCommand(name, cmd); err != nil {
			return err
		}
	}
	for _, kind := range action.Kinds() {
		if err := reg.RegisterCallback(string(kind), h.Callback); err != nil {
			return err
		}
	}
	reg.UseFallbacks(h)
	return nil
}

// Start greets the user with the root menu.
func (h *Handlers) Start(c tele.Context) error {
	return h.render(c, h.router.Start(tghelpers.FirstName(c)))
}

// Cart shows the user's cart as text.
func (h *Handlers) Cart(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	return h.render(c, h.router.CartText(ctx, customer(c).Key()))
}

// Help shows how to use the bot.
func (h *Handlers) Help(c tele.Context) error {
	return h.render(c, h.router.Help())
}

// Stats reports open carts and the build version. Admin only.
func (h *Handlers) Stats(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	st, err := h.router.Stats(ctx)
	if err != nil {
		logger.Error(ctx, logger.CompShop, "stats",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return h.render(c, router.Reply{Screen: menu.TextScreen(router.TextUnavailable), Mode: router.ModeSend, Outcome: "fail"})
	}
	return h.render(c, router.Reply{Screen: menu.TextScreen(StatsText(st)), Mode: router.ModeSend, Outcome: "ok"})
}

// StatsText renders the admin statistics message.
func StatsText(st cart.Stats) string {
	return fmt.Sprintf("Open carts: %d\nItems in carts: %d\nVersion: %s", st.OpenCarts, st.Items, buildinfo.String())
}

// Callback routes one button press.
func (h *Handlers) Callback(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	reply := h.router.Route(ctx, router.Request{
		Command:  callbacks.Raw(c.Callback()),
		Customer: customer(c),
		Notifier: h.notifier(c),
	})
	return h.render(c, reply)
}

// UnknownCallback answers presses whose key no handler is registered for.
func (h *Handlers) UnknownCallback() tele.HandlerFunc {
	return h.Callback
}

// UnknownText answers free text.
func (h *Handlers) UnknownText() tele.HandlerFunc {
	return func(c tele.Context) error {
		return h.render(c, h.router.Fallback())
	}
}

// RejectAdmin answers non-admins who call an admin command.
func (h *Handlers) RejectAdmin(c tele.Context) error {
	return h.render(c, h.router.Fallback())
}

// Limited answers updates dropped by the rate limiter. Messages are dropped
// silently; callbacks get a toast so the button stops spinning.
func (h *Handlers) Limited(c tele.Context) error {
	if c.Callback() == nil {
		return nil
	}
	return c.Respond(&tele.CallbackResponse{Text: TextSlowDown})
}

func (h *Handlers) render(c tele.Context, reply router.Reply) error {
	tghelpers.SetOutcome(c, reply.Outcome)
	markup := Markup(reply.Screen)
	if reply.Mode == router.ModeEdit {
		return tghelpers.EditText(c, reply.Screen.Text, markup)
	}
	return tghelpers.SendText(c, reply.Screen.Text, markup)
}

// Markup converts a screen's keyboard to telebot inline markup, nil when the
// screen has no buttons.
func Markup(s menu.Screen) *tele.ReplyMarkup {
	rows := make([][]keyboard.InlineBtn, 0, len(s.Rows))
	for _, row := range s.Rows {
		btns := make([]keyboard.InlineBtn, 0, len(row))
		for _, b := range row {
			btns = append(btns, Button(b))
		}
		rows = append(rows, btns)
	}
	return keyboard.InlineButtonsRows(rows...)
}

// Button maps a menu button onto an inline button keyed by its action kind.
func Button(b menu.Button) keyboard.InlineBtn {
	return keyboard.InlineBtn{
		Text:   b.Text,
		Unique: string(b.Action.Kind()),
		Data:   action.Payload(b.Action),
	}
}

func customer(c tele.Context) order.Customer {
	u := c.Sender()
	if u == nil {
		return order.Customer{}
	}
	return order.Customer{ID: u.ID, Username: u.Username, FirstName: u.FirstName}
}

// adminNotifier sends the order summary to the admin chat through the update's
// bot, inline and with a single attempt.
func (h *Handlers) adminNotifier(c tele.Context) order.Notifier {
	return order.NotifierFunc(func(ctx context.Context, text string) error {
		if h.adminID == 0 {
			return ErrNoAdmin
		}
		run := func() error {
			_, err := c.Bot().Send(tele.ChatID(h.adminID), text)
			return err
		}
		var err error
		if d := tghelpers.Dispatcher(); d != nil {
			err = d.Do(ctx, "send.admin", "sendMessage", run)
		} else {
			err = run()
		}
		if err != nil {
			logger.Warn(ctx, logger.CompOrders, "notify.admin",
				slog.String("status", logger.Status(err)),
				slog.String("error_kind", tgsender.ClassifyError(err)),
			)
		}
		return err
	})
}
