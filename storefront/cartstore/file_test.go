package cartstore

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/m3rciful/partsbot/storefront/cart"
)

func newFileStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "carts.json"))
}

func TestFileStore(t *testing.T) {
	exerciseStore(t, newFileStore(t))
}

func TestFileStoreConcurrentAdds(t *testing.T) {
	exerciseConcurrentAdds(t, newFileStore(t), 20)
}

func TestFileStoreDocumentRoundTrip(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()
	doc := cart.Document{
		"1": {Items: []cart.Item{tire, mirror}},
		"2": {Items: []cart.Item{{Brand: "Samand", Model: "Soren Plus", Name: "Windshield", Meta: "1", Price: 250}}},
		"3": {Items: []cart.Item{}},
	}
	if err := s.Save(ctx, doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	if diff := cmp.Diff(doc, s.Load(ctx)); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}

	raw, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"car": "Pride"`, `"qty": 1`, `"items": []`, `"meta": "185"`} {
		if !strings.Contains(string(raw), want) {
			t.Fatalf("document missing %s:\n%s", want, raw)
		}
	}

	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(s.Path()), ".carts.json.*.tmp"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestFileStoreMissingOrCorruptReadsEmpty(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()
	if doc := s.Load(ctx); len(doc) != 0 {
		t.Fatalf("missing file: %v", doc)
	}
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	if doc := s.Load(ctx); len(doc) != 0 {
		t.Fatalf("corrupt file: %v", doc)
	}
	c, err := s.AddItem(ctx, "5", tire)
	if err != nil {
		t.Fatalf("add over corrupt file: %v", err)
	}
	if len(c.Items) != 1 {
		t.Fatalf("items = %+v", c.Items)
	}
}

func TestFileStoreGetPersistsEmptyCart(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()
	if _, err := s.Get(ctx, "99"); err != nil {
		t.Fatalf("get: %v", err)
	}
	doc := s.Load(ctx)
	c, ok := doc["99"]
	if !ok {
		t.Fatal("empty cart was not persisted")
	}
	if c.Items == nil || len(c.Items) != 0 {
		t.Fatalf("persisted cart = %+v", c)
	}
}

func TestFileStoreReadsMissingQty(t *testing.T) {
	s := newFileStore(t)
	legacy := `{"10": {"items": [{"car": "Peugeot", "model": "405", "name": "Rear window", "meta": "1", "price": 200}]}}`
	if err := os.WriteFile(s.Path(), []byte(legacy), 0o600); err != nil {
		t.Fatal(err)
	}
	c, err := s.Get(context.Background(), "10")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if c.Total() != 200 || c.Items[0].Quantity() != 1 {
		t.Fatalf("cart = %+v", c)
	}
}
