// Package action defines the callback commands attached to menu buttons.
//
// Each command is a delimiter-separated string: the action kind followed by its
// fields. Catalog labels must never contain Delimiter.
package action

import (
	"strconv"
	"strings"
)

// Delimiter separates the kind and the fields of an encoded action.
const Delimiter = "|"

// Kind names an action. Its string value is the wire prefix.
type Kind string

const (
	KindViewCart    Kind = "view_cart"
	KindBackMain    Kind = "back_main"
	KindBrand       Kind = "car"
	KindModel       Kind = "model"
	KindTireOrigin  Kind = "tires_type"
	KindPart        Kind = "part"
	KindAddItem     Kind = "add_item"
	KindClearCart   Kind = "clear_cart"
	KindCheckout    Kind = "checkout"
	KindBackModels  Kind = "back_models"
	KindBackOptions Kind = "back_model_options"

	// KindMalformed marks a known kind whose fields could not be parsed.
	KindMalformed Kind = "malformed"
	// KindInvalid marks an unknown or empty command.
	KindInvalid Kind = "invalid"
)

// Kinds lists every routable kind in wire order.
func Kinds() []Kind {
	return []Kind{
		KindViewCart, KindBackMain, KindBrand, KindModel, KindTireOrigin, KindPart,
		KindAddItem, KindClearCart, KindCheckout, KindBackModels, KindBackOptions,
	}
}

// Action is one of the concrete action types in this package.
type Action interface {
	Kind() Kind
	// Fields returns the encoded fields following the kind.
	Fields() []string
	isAction()
}

type (
	ViewCart  struct{}
	BackMain  struct{}
	ClearCart struct{}
	Checkout  struct{}

	SelectBrand struct{ Brand string }
	BackModels  struct{ Brand string }

	SelectModel struct{ Brand, Model string }
	BackOptions struct{ Brand, Model string }

	SelectTireOrigin struct{ Brand, Model, Origin string }
	SelectPart       struct{ Brand, Model, Part string }

	// AddItem appends one priced item to the cart. Meta holds the tire size or
	// "1" for flat parts.
	AddItem struct {
		Brand, Model, Name, Meta string
		Price                    int
	}

	// Malformed is produced for an add-item command with unusable fields.
	Malformed struct {
		Of  Kind
		Raw string
	}

	// Invalid is produced for anything the parser does not recognise.
	Invalid struct{ Raw string }
)

func (ViewCart) Kind() Kind         { return KindViewCart }
func (BackMain) Kind() Kind         { return KindBackMain }
func (ClearCart) Kind() Kind        { return KindClearCart }
func (Checkout) Kind() Kind         { return KindCheckout }
func (SelectBrand) Kind() Kind      { return KindBrand }
func (BackModels) Kind() Kind       { return KindBackModels }
func (SelectModel) Kind() Kind      { return KindModel }
func (BackOptions) Kind() Kind      { return KindBackOptions }
func (SelectTireOrigin) Kind() Kind { return KindTireOrigin }
func (SelectPart) Kind() Kind       { return KindPart }
func (AddItem) Kind() Kind          { return KindAddItem }
func (Malformed) Kind() Kind        { return KindMalformed }
func (Invalid) Kind() Kind          { return KindInvalid }

func (ViewCart) Fields() []string      { return nil }
func (BackMain) Fields() []string      { return nil }
func (ClearCart) Fields() []string     { return nil }
func (Checkout) Fields() []string      { return nil }
func (a SelectBrand) Fields() []string { return []string{a.Brand} }
func (a BackModels) Fields() []string  { return []string{a.Brand} }
func (a SelectModel) Fields() []string { return []string{a.Brand, a.Model} }
func (a BackOptions) Fields() []string { return []string{a.Brand, a.Model} }
func (a SelectTireOrigin) Fields() []string {
	return []string{a.Brand, a.Model, a.Origin}
}
func (a SelectPart) Fields() []string { return []string{a.Brand, a.Model, a.Part} }
func (a AddItem) Fields() []string {
	return []string{a.Brand, a.Model, a.Name, a.Meta, strconv.Itoa(a.Price)}
}
func (a Malformed) Fields() []string { return []string{a.Raw} }
func (a Invalid) Fields() []string   { return []string{a.Raw} }

func (ViewCart) isAction()         {}
func (BackMain) isAction()         {}
func (ClearCart) isAction()        {}
func (Checkout) isAction()         {}
func (SelectBrand) isAction()      {}
func (BackModels) isAction()       {}
func (SelectModel) isAction()      {}
func (BackOptions) isAction()      {}
func (SelectTireOrigin) isAction() {}
func (SelectPart) isAction()       {}
func (AddItem) isAction()          {}
func (Malformed) isAction()        {}
func (Invalid) isAction()          {}

// Encode renders a as "kind|field|field...".
func Encode(a Action) string {
	if a == nil {
		return ""
	}
	return join(a.Kind(), a.Fields())
}

// Payload renders only the fields of a, joined by Delimiter.
func Payload(a Action) string {
	if a == nil {
		return ""
	}
	return strings.Join(a.Fields(), Delimiter)
}

func join(kind Kind, fields []string) string {
	if len(fields) == 0 {
		return string(kind)
	}
	return string(kind) + Delimiter + strings.Join(fields, Delimiter)
}

// arity is the exact number of fields expected after each kind.
var arity = map[Kind]int{
	KindViewCart:    0,
	KindBackMain:    0,
	KindClearCart:   0,
	KindCheckout:    0,
	KindBrand:       1,
	KindBackModels:  1,
	KindModel:       2,
	KindBackOptions: 2,
	KindTireOrigin:  3,
	KindPart:        3,
	KindAddItem:     5,
}

// Parse decodes raw into an Action. It never fails: an add-item command with
// unusable fields yields Malformed, anything else unusable yields Invalid.
//
// A leading form feed (telebot's unique-button marker) is ignored.
func Parse(raw string) Action {
	data := strings.TrimPrefix(raw, "\f")
	if strings.TrimSpace(data) == "" {
		return Invalid{Raw: raw}
	}
	parts := strings.Split(data, Delimiter)
	kind := Kind(parts[0])
	fields := parts[1:]

	want, ok := arity[kind]
	if !ok {
		return Invalid{Raw: raw}
	}
	if len(fields) != want || hasEmpty(fields) {
		if kind == KindAddItem {
			return Malformed{Of: kind, Raw: raw}
		}
		return Invalid{Raw: raw}
	}

	switch kind {
	case KindViewCart:
		return ViewCart{}
	case KindBackMain:
		return BackMain{}
	case KindClearCart:
		return ClearCart{}
	case KindCheckout:
		return Checkout{}
	case KindBrand:
		return SelectBrand{Brand: fields[0]}
	case KindBackModels:
		return BackModels{Brand: fields[0]}
	case KindModel:
		return SelectModel{Brand: fields[0], Model: fields[1]}
	case KindBackOptions:
		return BackOptions{Brand: fields[0], Model: fields[1]}
	case KindTireOrigin:
		return SelectTireOrigin{Brand: fields[0], Model: fields[1], Origin: fields[2]}
	case KindPart:
		return SelectPart{Brand: fields[0], Model: fields[1], Part: fields[2]}
	case KindAddItem:
		price, err := strconv.Atoi(fields[4])
		if err != nil || price < 0 {
			return Malformed{Of: kind, Raw: raw}
		}
		return AddItem{
			Brand: fields[0],
			Model: fields[1],
			Name:  fields[2],
			Meta:  fields[3],
			Price: price,
		}
	}
	return Invalid{Raw: raw}
}

func hasEmpty(fields []string) bool {
	for _, f := range fields {
		if f == "" {
			return true
		}
	}
	return false
}
