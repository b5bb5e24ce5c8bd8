// Package catalog holds the read-only brand, model and price reference data.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/m3rciful/partsbot/core/telegram/keyboard"
	"github.com/m3rciful/partsbot/storefront/action"
)

// PartMeta is the meta value stored for flat (non-tire) parts.
const PartMeta = "1"

// MaxCallbackBytes is Telegram's limit for inline button callback data.
const MaxCallbackBytes = keyboard.MaxCallbackData

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("catalog: invalid")

//go:embed default.yaml
var defaultYAML []byte

// Brand is a vehicle make with its ordered model list.
type Brand struct {
	Name   string   `yaml:"name"`
	Models []string `yaml:"models"`
}

// TireSize is one priced size within a tire origin.
type TireSize struct {
	Size  string `yaml:"size"`
	Price int    `yaml:"price"`
}

// TireOrigin groups tire sizes by sourcing (foreign, domestic).
// Name doubles as the button label and the cart item name.
type TireOrigin struct {
	Key   string     `yaml:"key"`
	Name  string     `yaml:"name"`
	Sizes []TireSize `yaml:"sizes"`
}

// Part is a flat-priced part. Key is the button label, Name the cart item name.
type Part struct {
	Key   string `yaml:"key"`
	Name  string `yaml:"name"`
	Price int    `yaml:"price"`
}

// Catalog is built once at startup and never mutated afterwards.
type Catalog struct {
	Currency    string       `yaml:"currency"`
	Brands      []Brand      `yaml:"brands"`
	TireOrigins []TireOrigin `yaml:"tire_origins"`
	Parts       []Part       `yaml:"parts"`
	// FallbackPartPrice prices unknown part keys when > 0; zero rejects them.
	FallbackPartPrice int `yaml:"fallback_part_price"`
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(defaultYAML)
}

// Load reads a catalog from path, or the built-in default when path is empty.
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if strings.TrimSpace(c.Currency) == "" {
		c.Currency = "Toman"
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks label uniqueness, the delimiter invariant, prices and the
// callback size of every button the menu can produce.
func (c *Catalog) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: nil catalog", ErrInvalid)
	}
	if len(c.Brands) == 0 {
		return fmt.Errorf("%w: no brands", ErrInvalid)
	}
	if c.FallbackPartPrice < 0 {
		return fmt.Errorf("%w: fallback_part_price must be >= 0", ErrInvalid)
	}

	seenBrand := make(map[string]struct{}, len(c.Brands))
	for _, b := range c.Brands {
		if err := checkLabel("brand", b.Name); err != nil {
			return err
		}
		if _, dup := seenBrand[b.Name]; dup {
			return fmt.Errorf("%w: duplicate brand %q", ErrInvalid, b.Name)
		}
		seenBrand[b.Name] = struct{}{}
		if len(b.Models) == 0 {
			return fmt.Errorf("%w: brand %q has no models", ErrInvalid, b.Name)
		}
		seenModel := make(map[string]struct{}, len(b.Models))
		for _, m := range b.Models {
			if err := checkLabel("model", m); err != nil {
				return err
			}
			if _, dup := seenModel[m]; dup {
				return fmt.Errorf("%w: duplicate model %q for %q", ErrInvalid, m, b.Name)
			}
			seenModel[m] = struct{}{}
		}
	}

	seenOrigin := make(map[string]struct{}, len(c.TireOrigins))
	for _, o := range c.TireOrigins {
		if err := checkLabel("tire origin key", o.Key); err != nil {
			return err
		}
		if err := checkLabel("tire origin name", o.Name); err != nil {
			return err
		}
		if _, dup := seenOrigin[o.Key]; dup {
			return fmt.Errorf("%w: duplicate tire origin %q", ErrInvalid, o.Key)
		}
		seenOrigin[o.Key] = struct{}{}
		for _, s := range o.Sizes {
			if err := checkLabel("tire size", s.Size); err != nil {
				return err
			}
			if s.Price < 0 {
				return fmt.Errorf("%w: negative price for %s %s", ErrInvalid, o.Key, s.Size)
			}
		}
	}

	seenPart := make(map[string]struct{}, len(c.Parts))
	for _, p := range c.Parts {
		if err := checkLabel("part key", p.Key); err != nil {
			return err
		}
		if err := checkLabel("part name", p.Name); err != nil {
			return err
		}
		if _, dup := seenPart[p.Key]; dup {
			return fmt.Errorf("%w: duplicate part %q", ErrInvalid, p.Key)
		}
		seenPart[p.Key] = struct{}{}
		if p.Price < 0 {
			return fmt.Errorf("%w: negative price for part %q", ErrInvalid, p.Key)
		}
	}

	return c.checkCallbackSizes()
}

func checkLabel(what, label string) error {
	if strings.TrimSpace(label) == "" {
		return fmt.Errorf("%w: empty %s", ErrInvalid, what)
	}
	if strings.Contains(label, action.Delimiter) || strings.ContainsRune(label, '\f') {
		return fmt.Errorf("%w: %s %q contains a reserved character", ErrInvalid, what, label)
	}
	return nil
}

func (c *Catalog) checkCallbackSizes() error {
	for _, b := range c.Brands {
		for _, m := range b.Models {
			actions := []action.Action{
				action.SelectModel{Brand: b.Name, Model: m},
				action.BackOptions{Brand: b.Name, Model: m},
			}
			for _, o := range c.TireOrigins {
				actions = append(actions, action.SelectTireOrigin{Brand: b.Name, Model: m, Origin: o.Key})
				for _, s := range o.Sizes {
					actions = append(actions, action.AddItem{
						Brand: b.Name, Model: m, Name: o.Name, Meta: s.Size, Price: s.Price,
					})
				}
			}
			for _, p := range c.Parts {
				actions = append(actions,
					action.SelectPart{Brand: b.Name, Model: m, Part: p.Key},
					action.AddItem{Brand: b.Name, Model: m, Name: p.Name, Meta: PartMeta, Price: p.Price},
				)
			}
			for _, a := range actions {
				wire := keyboard.InlineBtn{Unique: string(a.Kind()), Data: action.Payload(a)}.CallbackData()
				if n := len(wire); n > MaxCallbackBytes {
					return fmt.Errorf("%w: callback %q is %d bytes, limit %d",
						ErrInvalid, action.Encode(a), n, MaxCallbackBytes)
				}
			}
		}
	}
	return nil
}

// Brand looks up a brand by name.
func (c *Catalog) Brand(name string) (Brand, bool) {
	for _, b := range c.Brands {
		if b.Name == name {
			return b, true
		}
	}
	return Brand{}, false
}

// HasModel reports whether model belongs to brand.
func (c *Catalog) HasModel(brand, model string) bool {
	b, ok := c.Brand(brand)
	if !ok {
		return false
	}
	for _, m := range b.Models {
		if m == model {
			return true
		}
	}
	return false
}

// Origin looks up a tire origin by key.
func (c *Catalog) Origin(key string) (TireOrigin, bool) {
	for _, o := range c.TireOrigins {
		if o.Key == key {
			return o, true
		}
	}
	return TireOrigin{}, false
}

// ResolvePart returns the part behind a button key. Unknown keys resolve to a
// synthetic part priced at FallbackPartPrice when that is configured.
func (c *Catalog) ResolvePart(key string) (Part, bool) {
	for _, p := range c.Parts {
		if p.Key == key {
			return p, true
		}
	}
	if c.FallbackPartPrice > 0 && checkLabel("part key", key) == nil {
		return Part{Key: key, Name: key, Price: c.FallbackPartPrice}, true
	}
	return Part{}, false
}

// Quote returns the current unit price for an item name and meta pair as it
// would appear in an add-item command.
func (c *Catalog) Quote(name, meta string) (int, bool) {
	for _, o := range c.TireOrigins {
		if o.Name != name {
			continue
		}
		for _, s := range o.Sizes {
			if s.Size == meta {
				return s.Price, true
			}
		}
	}
	if meta != PartMeta {
		return 0, false
	}
	for _, p := range c.Parts {
		if p.Name == name {
			return p.Price, true
		}
	}
	if c.FallbackPartPrice > 0 {
		return c.FallbackPartPrice, true
	}
	return 0, false
}
