package cartstore

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/partsbot/storefront/cart"
)

// PostgresStore keeps one row per user in the carts table created by
// migrations/0001_create_carts.up.sql. The handle is owned by the caller.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// itemList maps a JSONB array onto cart items.
type itemList []cart.Item

// Value encodes as text; lib/pq would send []byte as bytea.
func (l itemList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal([]cart.Item(l))
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (l *itemList) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*l = itemList{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("itemList: unsupported source %T", src)
	}
	var items []cart.Item
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("itemList: %w", err)
	}
	if items == nil {
		items = []cart.Item{}
	}
	*l = items
	return nil
}

const (
	pgGetOrCreate = `
INSERT INTO carts (user_id) VALUES ($1)
ON CONFLICT (user_id) DO UPDATE SET user_id = excluded.user_id
RETURNING items`

	pgReplace = `
INSERT INTO carts (user_id, items) VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE SET items = excluded.items, updated_at = now()`

	pgAppend = `
INSERT INTO carts (user_id, items) VALUES ($1, $2)
ON CONFLICT (user_id) DO UPDATE SET items = carts.items || excluded.items, updated_at = now()
RETURNING items`

	pgDelete = `DELETE FROM carts WHERE user_id = $1`

	pgStats = `
SELECT COUNT(*) AS open_carts, COALESCE(SUM(jsonb_array_length(items)), 0) AS items
FROM carts
WHERE jsonb_array_length(items) > 0`
)

func (s *PostgresStore) Get(ctx context.Context, userID string) (cart.Cart, error) {
	var items itemList
	if err := s.db.GetContext(ctx, &items, pgGetOrCreate, userID); err != nil {
		return cart.Cart{}, fmt.Errorf("get cart: %w", err)
	}
	return cart.Cart{Items: items}, nil
}

func (s *PostgresStore) Update(ctx context.Context, userID string, c cart.Cart) error {
	if _, err := s.db.ExecContext(ctx, pgReplace, userID, itemList(c.Items)); err != nil {
		return fmt.Errorf("update cart: %w", err)
	}
	return nil
}

// AddItem appends in a single upsert so concurrent adds for one user never
// overwrite each other.
func (s *PostgresStore) AddItem(ctx context.Context, userID string, it cart.Item) (cart.Cart, error) {
	var items itemList
	if err := s.db.GetContext(ctx, &items, pgAppend, userID, itemList{it}); err != nil {
		return cart.Cart{}, fmt.Errorf("add cart item: %w", err)
	}
	return cart.Cart{Items: items}, nil
}

func (s *PostgresStore) Clear(ctx context.Context, userID string) error {
	if _, err := s.db.ExecContext(ctx, pgDelete, userID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context) (cart.Stats, error) {
	var row struct {
		OpenCarts int `db:"open_carts"`
		Items     int `db:"items"`
	}
	if err := s.db.GetContext(ctx, &row, pgStats); err != nil {
		return cart.Stats{}, fmt.Errorf("cart stats: %w", err)
	}
	return cart.Stats{OpenCarts: row.OpenCarts, Items: row.Items}, nil
}

// Close is a no-op; the database handle belongs to the bootstrap result.
func (s *PostgresStore) Close() error { return nil }
