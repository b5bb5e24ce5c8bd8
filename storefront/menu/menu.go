// Package menu renders catalog state into transport-neutral screens.
//
// Every function is pure: the only state a screen depends on is what its
// arguments carry, and everything the next step needs is encoded in the
// button actions.
package menu

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/m3rciful/partsbot/storefront/action"
	"github.com/m3rciful/partsbot/storefront/cart"
	"github.com/m3rciful/partsbot/storefront/catalog"
)

// Fixed labels and texts shown to users.
const (
	LabelViewCart = "🧾 Cart"
	LabelBack     = "🔙 Back"
	LabelMainMenu = "🏠 Main menu"
	LabelCheckout = "Place order and send to admin"
	LabelClear    = "Clear cart"

	TextMainMenu  = "Main menu:"
	TextEmptyCart = "Your cart is empty."
)

// rootPerRow is the number of buttons per row on the root menu.
const rootPerRow = 2

// Button is a labelled action.
type Button struct {
	Text   string
	Action action.Action
}

// Screen is a message text with an optional inline keyboard.
type Screen struct {
	Text string
	Rows [][]Button
}

// Buttons flattens the keyboard in row order.
func (s Screen) Buttons() []Button {
	var out []Button
	for _, row := range s.Rows {
		out = append(out, row...)
	}
	return out
}

// TextScreen returns a screen without buttons.
func TextScreen(text string) Screen {
	return Screen{Text: text}
}

// Navigator builds screens for one catalog.
type Navigator struct {
	cat *catalog.Catalog
}

// New returns a Navigator over cat.
func New(cat *catalog.Catalog) *Navigator {
	return &Navigator{cat: cat}
}

// Catalog exposes the catalog the navigator renders.
func (n *Navigator) Catalog() *catalog.Catalog { return n.cat }

// Price renders an amount in the catalog currency.
func (n *Navigator) Price(amount int) string {
	return strconv.Itoa(amount) + " " + n.cat.Currency
}

func single(text string, a action.Action) []Button {
	return []Button{{Text: text, Action: a}}
}

func cartRow() []Button {
	return single(LabelViewCart, action.ViewCart{})
}

// Root lists every brand and the cart, two per row, under text.
func (n *Navigator) Root(text string) Screen {
	buttons := make([]Button, 0, len(n.cat.Brands)+1)
	for _, b := range n.cat.Brands {
		buttons = append(buttons, Button{Text: b.Name, Action: action.SelectBrand{Brand: b.Name}})
	}
	buttons = append(buttons, Button{Text: LabelViewCart, Action: action.ViewCart{}})

	rows := make([][]Button, 0, (len(buttons)+rootPerRow-1)/rootPerRow)
	for i := 0; i < len(buttons); i += rootPerRow {
		end := i + rootPerRow
		if end > len(buttons) {
			end = len(buttons)
		}
		rows = append(rows, buttons[i:end])
	}
	return Screen{Text: text, Rows: rows}
}

// Models lists the models of brand. ok is false for an unknown brand.
func (n *Navigator) Models(brand string) (Screen, bool) {
	b, ok := n.cat.Brand(brand)
	if !ok {
		return Screen{}, false
	}
	rows := make([][]Button, 0, len(b.Models)+2)
	for _, m := range b.Models {
		rows = append(rows, single(m, action.SelectModel{Brand: b.Name, Model: m}))
	}
	rows = append(rows, single(LabelBack, action.BackMain{}), cartRow())
	return Screen{Text: "Models of " + b.Name + ":", Rows: rows}, true
}

// Options lists tire origins and flat parts for a brand and model.
func (n *Navigator) Options(brand, model string) (Screen, bool) {
	if !n.cat.HasModel(brand, model) {
		return Screen{}, false
	}
	rows := make([][]Button, 0, len(n.cat.TireOrigins)+len(n.cat.Parts)+3)
	for _, o := range n.cat.TireOrigins {
		rows = append(rows, single(o.Name, action.SelectTireOrigin{Brand: brand, Model: model, Origin: o.Key}))
	}
	for _, p := range n.cat.Parts {
		rows = append(rows, single(p.Key, action.SelectPart{Brand: brand, Model: model, Part: p.Key}))
	}
	rows = append(rows,
		single(LabelBack, action.BackModels{Brand: brand}),
		single(LabelMainMenu, action.BackMain{}),
		cartRow(),
	)
	return Screen{Text: fmt.Sprintf("Choose for %s — %s:", brand, model), Rows: rows}, true
}

func backToOptions(brand, model string) []Button {
	return single(LabelBack, action.BackOptions{Brand: brand, Model: model})
}

// TireSizes lists one add-item button per size of origin.
func (n *Navigator) TireSizes(brand, model, origin string) (Screen, bool) {
	o, ok := n.cat.Origin(origin)
	if !ok || !n.cat.HasModel(brand, model) {
		return Screen{}, false
	}
	rows := make([][]Button, 0, len(o.Sizes)+2)
	for _, s := range o.Sizes {
		rows = append(rows, single(
			s.Size+" — "+n.Price(s.Price),
			action.AddItem{Brand: brand, Model: model, Name: o.Name, Meta: s.Size, Price: s.Price},
		))
	}
	rows = append(rows, backToOptions(brand, model), cartRow())
	return Screen{Text: o.Name + " — choose a size:", Rows: rows}, true
}

// ConfirmPart offers a single add-item button for the resolved part price.
func (n *Navigator) ConfirmPart(brand, model, partKey string) (Screen, bool) {
	p, ok := n.cat.ResolvePart(partKey)
	if !ok || !n.cat.HasModel(brand, model) {
		return Screen{}, false
	}
	add := action.AddItem{Brand: brand, Model: model, Name: p.Name, Meta: catalog.PartMeta, Price: p.Price}
	return Screen{
		Text: p.Key + " — price: " + n.Price(p.Price),
		Rows: [][]Button{
			single("Add to cart — "+n.Price(p.Price), add),
			backToOptions(brand, model),
			cartRow(),
		},
	}, true
}

// Cart renders the cart with checkout and clear when it has items.
func (n *Navigator) Cart(c cart.Cart) Screen {
	var rows [][]Button
	if !c.Empty() {
		rows = append(rows,
			single(LabelCheckout, action.Checkout{}),
			single(LabelClear, action.ClearCart{}),
		)
	}
	rows = append(rows, single(LabelMainMenu, action.BackMain{}))
	return Screen{Text: n.CartText(c), Rows: rows}
}

// CartText is the cart listing without buttons.
func (n *Navigator) CartText(c cart.Cart) string {
	if c.Empty() {
		return TextEmptyCart
	}
	return strings.Join(n.CartLines(c), "\n")
}

// CartLines returns one numbered line per item followed by the total line.
func (n *Navigator) CartLines(c cart.Cart) []string {
	lines := make([]string, 0, len(c.Items)+1)
	for i, it := range c.Items {
		lines = append(lines, n.ItemLine(i+1, it))
	}
	return append(lines, n.TotalLine(c.Total()))
}

// ItemLine formats "i. brand - model - name (meta) ×qty = subtotal currency".
func (n *Navigator) ItemLine(i int, it cart.Item) string {
	return fmt.Sprintf("%d. %s - %s - %s (%s) ×%d = %s",
		i, it.Brand, it.Model, it.Name, it.Meta, it.Quantity(), n.Price(it.Subtotal()))
}

// TotalLine formats the grand total.
func (n *Navigator) TotalLine(total int) string {
	return "Total: " + n.Price(total)
}

// Added confirms an add-item.
func (n *Navigator) Added(it cart.Item) string {
	return fmt.Sprintf("✅ '%s (%s)' added to cart — %s", it.Name, it.Meta, n.Price(it.Price))
}
