package router

import (
	"context"
	"errors"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/m3rciful/partsbot/storefront/action"
	"github.com/m3rciful/partsbot/storefront/cart"
	"github.com/m3rciful/partsbot/storefront/cartstore"
	"github.com/m3rciful/partsbot/storefront/catalog"
	"github.com/m3rciful/partsbot/storefront/menu"
	"github.com/m3rciful/partsbot/storefront/order"
)

var buyer = order.Customer{ID: 101, Username: "buyer", FirstName: "Reza"}

type adminInbox struct {
	messages []string
	fail     bool
}

func (a *adminInbox) NotifyAdmin(_ context.Context, text string) error {
	if a.fail {
		return errors.New("telegram: bot was blocked by the user (403)")
	}
	a.messages = append(a.messages, text)
	return nil
}

type harness struct {
	r     *Router
	store cart.Store
	inbox *adminInbox
}

func newHarness(t *testing.T, store cart.Store) *harness {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if store == nil {
		store = cartstore.NewFileStore(filepath.Join(t.TempDir(), "carts.json"))
	}
	nav := menu.New(cat)
	return &harness{
		r:     New(nav, store, order.NewSubmitter(store, nav)),
		store: store,
		inbox: &adminInbox{},
	}
}

func (h *harness) route(cmd string) Reply {
	return h.r.Route(context.Background(), Request{Command: cmd, Customer: buyer, Notifier: h.inbox})
}

func (h *harness) cart(t *testing.T) cart.Cart {
	t.Helper()
	c, err := h.store.Get(context.Background(), buyer.Key())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	return c
}

const (
	addTire   = "add_item|Pride|131|Foreign tire|185|185"
	addMirror = "add_item|Pride|131|Side mirror|1|120"
)

func TestTireAndMirrorTotal305(t *testing.T) {
	h := newHarness(t, nil)
	for _, cmd := range []string{addTire, "\f" + addMirror} {
		if rep := h.route(cmd); rep.Mode != ModeSend || !strings.HasPrefix(rep.Screen.Text, "✅") {
			t.Fatalf("%s: reply = %+v", cmd, rep)
		}
	}
	rep := h.route("view_cart")
	if rep.Mode != ModeEdit {
		t.Fatalf("mode = %s", rep.Mode)
	}
	lines := strings.Split(rep.Screen.Text, "\n")
	want := []string{
		"1. Pride - 131 - Foreign tire (185) ×1 = 185 Toman",
		"2. Pride - 131 - Side mirror (1) ×1 = 120 Toman",
		"Total: 305 Toman",
	}
	if diff := cmp.Diff(want, lines); diff != "" {
		t.Fatalf("cart (-want +got):\n%s", diff)
	}
}

func TestAddConfirmationText(t *testing.T) {
	h := newHarness(t, nil)
	rep := h.route(addTire)
	if rep.Screen.Text != "✅ 'Foreign tire (185)' added to cart — 185 Toman" {
		t.Fatalf("text = %q", rep.Screen.Text)
	}
}

func TestItemCountAndTotalFollowAddsAndClears(t *testing.T) {
	h := newHarness(t, nil)
	adds := []string{
		addTire,
		addMirror,
		"add_item|Peugeot|405|Windshield|1|250",
		"add_item|Samand|Soren|Domestic tire|205|205",
		"add_item|Pride|111|Foreign light-back|1|205",
	}
	rng := rand.New(rand.NewSource(7))
	count, total := 0, 0
	for i := 0; i < 200; i++ {
		if rng.Intn(6) == 0 {
			h.route("clear_cart")
			count, total = 0, 0
		} else {
			cmd := adds[rng.Intn(len(adds))]
			h.route(cmd)
			a := action.Parse(cmd).(action.AddItem)
			count++
			total += a.Price
		}
		c := h.cart(t)
		if len(c.Items) != count || c.Total() != total {
			t.Fatalf("step %d: items=%d total=%d, want %d/%d", i, len(c.Items), c.Total(), count, total)
		}
	}
}

func TestClearThenViewIsEmpty(t *testing.T) {
	h := newHarness(t, nil)
	h.route(addTire)
	if rep := h.route("clear_cart"); rep.Screen.Text != TextCleared {
		t.Fatalf("clear reply = %q", rep.Screen.Text)
	}
	rep := h.route("view_cart")
	if rep.Screen.Text != menu.TextEmptyCart {
		t.Fatalf("view after clear = %q", rep.Screen.Text)
	}
}

func TestCheckoutScenarios(t *testing.T) {
	h := newHarness(t, nil)

	if rep := h.route("checkout"); rep.Screen.Text != order.TextEmpty || len(h.inbox.messages) != 0 {
		t.Fatalf("empty checkout: %+v, sent %d", rep, len(h.inbox.messages))
	}

	h.route(addTire)
	h.route(addMirror)
	before := h.cart(t)

	h.inbox.fail = true
	if rep := h.route("checkout"); rep.Screen.Text != order.TextFailed {
		t.Fatalf("failed checkout reply = %q", rep.Screen.Text)
	}
	if diff := cmp.Diff(before, h.cart(t)); diff != "" {
		t.Fatalf("cart changed after failure (-want +got):\n%s", diff)
	}

	h.inbox.fail = false
	if rep := h.route("checkout"); rep.Screen.Text != order.TextDelivered {
		t.Fatalf("checkout reply = %q", rep.Screen.Text)
	}
	if len(h.inbox.messages) != 1 {
		t.Fatalf("admin got %d messages", len(h.inbox.messages))
	}
	if n := len(strings.Split(h.inbox.messages[0], "\n")); n != len(before.Items)+2 {
		t.Fatalf("summary lines = %d", n)
	}
	if !h.cart(t).Empty() {
		t.Fatal("cart not cleared after delivery")
	}
}

func TestInvalidAndMalformed(t *testing.T) {
	h := newHarness(t, nil)
	cases := map[string]string{
		"":                                    TextInvalid,
		"teleport|x":                          TextInvalid,
		"car|Lada":                            TextInvalid,
		"model|Pride|405":                     TextInvalid,
		"tires_type|Pride|131|retread":        TextInvalid,
		"part|Pride|131|Spoiler":              TextInvalid,
		"add_item|Pride|131|Foreign tire|185": TextMalformed,
		"add_item|Pride|131|Side mirror|1|x":  TextMalformed,
		"add_item|Pride|131|Side mirror|1|1":  TextInvalid,
		"back_models":                         TextInvalid,
		"view_cart|x":                         TextInvalid,
		"checkout|now":                        TextInvalid,
		"clear_cart|1":                        TextInvalid,
		"car|":                                TextInvalid,
	}
	for cmd, want := range cases {
		rep := h.route(cmd)
		if rep.Screen.Text != want || rep.Mode != ModeSend {
			t.Fatalf("%q: reply = %+v, want %q", cmd, rep, want)
		}
	}
	if !h.cart(t).Empty() {
		t.Fatal("rejected commands must not touch the cart")
	}
}

func TestNavigationEditsInPlace(t *testing.T) {
	h := newHarness(t, nil)
	for _, cmd := range []string{
		"back_main", "car|Peugeot", "back_models|Peugeot", "model|Peugeot|Pars",
		"back_model_options|Peugeot|Pars", "tires_type|Peugeot|Pars|domestic", "part|Peugeot|Pars|Windshield",
	} {
		rep := h.route(cmd)
		if rep.Mode != ModeEdit || len(rep.Screen.Rows) == 0 {
			t.Fatalf("%s: reply = %+v", cmd, rep)
		}
	}
}

type brokenStore struct{ cart.Store }

func (brokenStore) Get(context.Context, string) (cart.Cart, error) {
	return cart.Cart{}, errors.New("connection refused")
}

func (brokenStore) AddItem(context.Context, string, cart.Item) (cart.Cart, error) {
	return cart.Cart{}, errors.New("connection refused")
}

func TestStoreFailureDegrades(t *testing.T) {
	h := newHarness(t, brokenStore{})
	for _, cmd := range []string{"view_cart", addTire, "checkout"} {
		if rep := h.route(cmd); rep.Screen.Text != TextUnavailable {
			t.Fatalf("%s: reply = %q", cmd, rep.Screen.Text)
		}
	}
	if rep := h.r.CartText(context.Background(), buyer.Key()); rep.Screen.Text != TextUnavailable {
		t.Fatalf("cart text = %q", rep.Screen.Text)
	}
}

func TestEntryPoints(t *testing.T) {
	h := newHarness(t, nil)
	start := h.r.Start("Reza")
	if !strings.HasPrefix(start.Screen.Text, "Hi Reza!") || len(start.Screen.Rows) != 2 {
		t.Fatalf("start = %+v", start)
	}
	if h.r.Help().Screen.Text != TextHelp {
		t.Fatal("help text mismatch")
	}
	if got := h.r.CartText(context.Background(), buyer.Key()); got.Screen.Text != menu.TextEmptyCart || len(got.Screen.Rows) != 0 {
		t.Fatalf("cart text = %+v", got)
	}
}
