package cartstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/m3rciful/partsbot/core/logger"
	"github.com/m3rciful/partsbot/storefront/cart"
)

// FileStore keeps every cart in one JSON document. Each call re-reads the
// file and mutators rewrite it whole, so the cost grows with the user count.
// The mutex serialises read-modify-write within one process only; a second
// process writing the same file can lose updates.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore returns a store backed by the document at path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the document location.
func (s *FileStore) Path() string { return s.path }

// Load returns the persisted document. A missing or unreadable file yields an
// empty document; parse failures are logged.
func (s *FileStore) Load(ctx context.Context) cart.Document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn(ctx, logger.CompStore, "carts.load",
				slog.String("status", "fail"),
				slog.String("path", s.path),
				slog.String("err", err.Error()),
			)
		}
		return cart.Document{}
	}
	doc := cart.Document{}
	if len(bytes.TrimSpace(data)) == 0 {
		return doc
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		logger.Warn(ctx, logger.CompStore, "carts.load",
			slog.String("status", "fail"),
			slog.String("path", s.path),
			slog.String("error_kind", "parse"),
			slog.String("err", err.Error()),
		)
		return cart.Document{}
	}
	if doc == nil {
		doc = cart.Document{}
	}
	return doc
}

// Save replaces the document. It writes a sibling temp file and renames it
// over the target so readers never observe a partial document.
func (s *FileStore) Save(ctx context.Context, doc cart.Document) error {
	if doc == nil {
		doc = cart.Document{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode carts: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create carts dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp carts file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write carts: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync carts: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close carts: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		cleanup()
		return fmt.Errorf("replace carts: %w", err)
	}
	logger.Debug(ctx, logger.CompStore, "carts.save",
		slog.String("path", s.path),
		slog.Int("users", len(doc)),
	)
	return nil
}

func (s *FileStore) Get(ctx context.Context, userID string) (cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.Load(ctx)
	if c, ok := doc[userID]; ok {
		return c.Clone(), nil
	}
	c := emptyCart()
	doc[userID] = c
	if err := s.Save(ctx, doc); err != nil {
		return cart.Cart{}, err
	}
	return c, nil
}

func (s *FileStore) Update(ctx context.Context, userID string, c cart.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.Load(ctx)
	doc[userID] = normalizeCart(c)
	return s.Save(ctx, doc)
}

func (s *FileStore) AddItem(ctx context.Context, userID string, it cart.Item) (cart.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.Load(ctx)
	c := doc[userID].Clone()
	c.Items = append(c.Items, it)
	doc[userID] = c
	if err := s.Save(ctx, doc); err != nil {
		return cart.Cart{}, err
	}
	return c.Clone(), nil
}

func (s *FileStore) Clear(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.Load(ctx)
	if _, ok := doc[userID]; !ok {
		return nil
	}
	delete(doc, userID)
	return s.Save(ctx, doc)
}

func (s *FileStore) Stats(ctx context.Context) (cart.Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.Load(ctx)
	carts := make([]cart.Cart, 0, len(doc))
	for _, c := range doc {
		carts = append(carts, c)
	}
	return statsOf(carts...), nil
}

func (s *FileStore) Close() error { return nil }

func normalizeCart(c cart.Cart) cart.Cart {
	c = c.Clone()
	if c.Items == nil {
		c.Items = []cart.Item{}
	}
	return c
}
