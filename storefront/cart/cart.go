// Package cart models a user's shopping cart and the storage port for it.
package cart

import (
	"context"
	"strconv"
)

// Item is one selected product. Items are never edited after they are added.
// The JSON names match the persisted cart document.
type Item struct {
	Brand string `json:"car"`
	Model string `json:"model"`
	Name  string `json:"name"`
	Meta  string `json:"meta"`
	Price int    `json:"price"`
	Qty   int    `json:"qty"`
}

// Quantity returns Qty, treating a missing value as 1.
func (i Item) Quantity() int {
	if i.Qty <= 0 {
		return 1
	}
	return i.Qty
}

// Subtotal is the unit price times the quantity.
func (i Item) Subtotal() int {
	return i.Price * i.Quantity()
}

// Cart is an ordered list of items owned by a single user.
type Cart struct {
	Items []Item `json:"items"`
}

// Empty reports whether the cart has no items.
func (c Cart) Empty() bool {
	return len(c.Items) == 0
}

// Total sums every item subtotal.
func (c Cart) Total() int {
	total := 0
	for _, it := range c.Items {
		total += it.Subtotal()
	}
	return total
}

// Clone returns a cart whose item slice does not alias c.
func (c Cart) Clone() Cart {
	items := make([]Item, len(c.Items))
	copy(items, c.Items)
	return Cart{Items: items}
}

// Document maps user identifiers to their carts.
type Document map[string]Cart

// UserKey formats a Telegram user id as a document key.
func UserKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Stats summarises open carts across all users.
type Stats struct {
	OpenCarts int
	Items     int
}

// Store persists carts keyed by user.
type Store interface {
	// Get returns the user's cart, creating and persisting an empty one if absent.
	Get(ctx context.Context, userID string) (Cart, error)
	// Update replaces the user's cart.
	Update(ctx context.Context, userID string, c Cart) error
	// AddItem appends it to the user's cart atomically and returns the result.
	AddItem(ctx context.Context, userID string, it Item) (Cart, error)
	// Clear removes the user's cart if present.
	Clear(ctx context.Context, userID string) error
	// Stats counts non-empty carts and their items.
	Stats(ctx context.Context) (Stats, error)
	Close() error
}
