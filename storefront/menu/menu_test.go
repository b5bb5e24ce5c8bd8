package menu

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/m3rciful/partsbot/storefront/action"
	"github.com/m3rciful/partsbot/storefront/cart"
	"github.com/m3rciful/partsbot/storefront/catalog"
)

func newNavigator(t *testing.T) *Navigator {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return New(cat)
}

func kinds(s Screen) []action.Kind {
	var out []action.Kind
	for _, b := range s.Buttons() {
		out = append(out, b.Action.Kind())
	}
	return out
}

func TestRootTwoPerRow(t *testing.T) {
	s := newNavigator(t).Root(TextMainMenu)
	if s.Text != TextMainMenu {
		t.Fatalf("text = %q", s.Text)
	}
	if len(s.Rows) != 2 || len(s.Rows[0]) != 2 || len(s.Rows[1]) != 2 {
		t.Fatalf("rows = %+v", s.Rows)
	}
	want := []action.Action{
		action.SelectBrand{Brand: "Pride"},
		action.SelectBrand{Brand: "Peugeot"},
		action.SelectBrand{Brand: "Samand"},
		action.ViewCart{},
	}
	var got []action.Action
	for _, b := range s.Buttons() {
		got = append(got, b.Action)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("root actions (-want +got):\n%s", diff)
	}
}

func TestModels(t *testing.T) {
	n := newNavigator(t)
	s, ok := n.Models("Samand")
	if !ok {
		t.Fatal("Samand not found")
	}
	want := []action.Kind{action.KindModel, action.KindModel, action.KindBackMain, action.KindViewCart}
	if diff := cmp.Diff(want, kinds(s)); diff != "" {
		t.Fatalf("kinds (-want +got):\n%s", diff)
	}
	if _, ok := n.Models("Lada"); ok {
		t.Fatal("unknown brand must not render")
	}
}

func TestOptionsHasSixChoices(t *testing.T) {
	n := newNavigator(t)
	s, ok := n.Options("Peugeot", "405")
	if !ok {
		t.Fatal("options not rendered")
	}
	want := []action.Kind{
		action.KindTireOrigin, action.KindTireOrigin,
		action.KindPart, action.KindPart, action.KindPart, action.KindPart,
		action.KindBackModels, action.KindBackMain, action.KindViewCart,
	}
	if diff := cmp.Diff(want, kinds(s)); diff != "" {
		t.Fatalf("kinds (-want +got):\n%s", diff)
	}
	if _, ok := n.Options("Peugeot", "111"); ok {
		t.Fatal("model of another brand must not render")
	}
}

func TestTireSizesCarryPrices(t *testing.T) {
	n := newNavigator(t)
	s, ok := n.TireSizes("Pride", "131", "foreign")
	if !ok {
		t.Fatal("sizes not rendered")
	}
	first := s.Rows[0][0]
	if first.Text != "185 — 185 Toman" {
		t.Fatalf("label = %q", first.Text)
	}
	want := action.AddItem{Brand: "Pride", Model: "131", Name: "Foreign tire", Meta: "185", Price: 185}
	if diff := cmp.Diff(action.Action(want), first.Action); diff != "" {
		t.Fatalf("action (-want +got):\n%s", diff)
	}
	if got := kinds(s)[len(s.Buttons())-2]; got != action.KindBackOptions {
		t.Fatalf("back kind = %s", got)
	}
	if _, ok := n.TireSizes("Pride", "131", "retread"); ok {
		t.Fatal("unknown origin must not render")
	}
}

func TestConfirmPartUsesPartName(t *testing.T) {
	n := newNavigator(t)
	s, ok := n.ConfirmPart("Pride", "111", "Light-back")
	if !ok {
		t.Fatal("confirm not rendered")
	}
	add, ok := s.Rows[0][0].Action.(action.AddItem)
	if !ok {
		t.Fatalf("first action = %T", s.Rows[0][0].Action)
	}
	if add.Name != "Foreign light-back" || add.Meta != catalog.PartMeta || add.Price != 205 {
		t.Fatalf("add = %+v", add)
	}
	if s.Text != "Light-back — price: 205 Toman" {
		t.Fatalf("text = %q", s.Text)
	}
	if _, ok := n.ConfirmPart("Pride", "111", "Spoiler"); ok {
		t.Fatal("unknown part must not render without a fallback price")
	}
}

func TestCartScreen(t *testing.T) {
	n := newNavigator(t)
	c := cart.Cart{Items: []cart.Item{
		{Brand: "Pride", Model: "131", Name: "Foreign tire", Meta: "185", Price: 185, Qty: 1},
		{Brand: "Pride", Model: "131", Name: "Side mirror", Meta: "1", Price: 120, Qty: 1},
	}}
	s := n.Cart(c)
	want := strings.Join([]string{
		"1. Pride - 131 - Foreign tire (185) ×1 = 185 Toman",
		"2. Pride - 131 - Side mirror (1) ×1 = 120 Toman",
		"Total: 305 Toman",
	}, "\n")
	if s.Text != want {
		t.Fatalf("text:\n%s\nwant:\n%s", s.Text, want)
	}
	if diff := cmp.Diff([]action.Kind{action.KindCheckout, action.KindClearCart, action.KindBackMain}, kinds(s)); diff != "" {
		t.Fatalf("kinds (-want +got):\n%s", diff)
	}

	empty := n.Cart(cart.Cart{})
	if empty.Text != TextEmptyCart {
		t.Fatalf("empty text = %q", empty.Text)
	}
	if diff := cmp.Diff([]action.Kind{action.KindBackMain}, kinds(empty)); diff != "" {
		t.Fatalf("empty kinds (-want +got):\n%s", diff)
	}
}

func TestEveryButtonFitsCallbackLimit(t *testing.T) {
	n := newNavigator(t)
	screens := []Screen{n.Root(TextMainMenu), n.Cart(cart.Cart{Items: []cart.Item{{Price: 1}}})}
	for _, b := range n.Catalog().Brands {
		s, _ := n.Models(b.Name)
		screens = append(screens, s)
		for _, m := range b.Models {
			s, _ := n.Options(b.Name, m)
			screens = append(screens, s)
			for _, o := range n.Catalog().TireOrigins {
				s, _ := n.TireSizes(b.Name, m, o.Key)
				screens = append(screens, s)
			}
			for _, p := range n.Catalog().Parts {
				s, _ := n.ConfirmPart(b.Name, m, p.Key)
				screens = append(screens, s)
			}
		}
	}
	for _, s := range screens {
		for _, b := range s.Buttons() {
			encoded := action.Encode(b.Action)
			if len(encoded)+1 > catalog.MaxCallbackBytes {
				t.Fatalf("callback %q exceeds %d bytes", encoded, catalog.MaxCallbackBytes)
			}
			if _, bad := action.Parse(encoded).(action.Invalid); bad {
				t.Fatalf("callback %q does not parse", encoded)
			}
		}
	}
}

func TestItemLineTreatsMissingQtyAsOne(t *testing.T) {
	n := newNavigator(t)
	got := n.ItemLine(3, cart.Item{Brand: "Peugeot", Model: "Pars", Name: "Windshield", Meta: "1", Price: 250})
	if got != "3. Peugeot - Pars - Windshield (1) ×1 = 250 Toman" {
		t.Fatalf("line = %q", got)
	}
}
