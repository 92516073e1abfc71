// Package catalog manages the menu: the ordered list of items a cashier can
// ring up. The catalog is held in memory and written through to the
// persistence gateway on every mutation.
package catalog

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"

	"conto/internal/core"
	"conto/internal/store"
)

// Service owns the menu catalog. All mutations persist before they become
// visible, so a storage failure never leaves the in-memory view ahead of
// disk.
type Service struct {
	mu    sync.Mutex
	store store.Catalog
	items []core.MenuItem
}

// New loads the existing catalog from the gateway.
func New(ctx context.Context, s store.Catalog) (*Service, error) {
	items, err := s.LoadMenu(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	return &Service{store: s, items: items}, nil
}

// LoadOrSeed loads the catalog and, when it is empty, persists the default
// sample menu so a fresh install has something to sell.
func LoadOrSeed(ctx context.Context, s store.Catalog) (*Service, error) {
	return LoadOrSeedFrom(ctx, s, "")
}

// LoadOrSeedFrom is LoadOrSeed with an optional seed file: when the catalog
// is empty and seedPath exists, the file wins over the sample menu.
func LoadOrSeedFrom(ctx context.Context, s store.Catalog, seedPath string) (*Service, error) {
	svc, err := New(ctx, s)
	if err != nil {
		return nil, err
	}
	if len(svc.items) > 0 {
		return svc, nil
	}

	if seedPath != "" {
		if _, statErr := os.Stat(seedPath); statErr == nil {
			slog.InfoContext(ctx, "Catalog empty, seeding from file", "path", seedPath)
			if err := svc.SeedFromFile(ctx, seedPath); err != nil {
				return nil, err
			}
			return svc, nil
		}
	}

	slog.InfoContext(ctx, "Catalog empty, seeding sample menu")
	if err := svc.replace(ctx, DefaultMenu()); err != nil {
		return nil, fmt.Errorf("seed catalog: %w", err)
	}
	return svc, nil
}

// DefaultMenu is the sample south-Indian menu a fresh install starts with.
func DefaultMenu() []core.MenuItem {
	seed := []struct {
		name  string
		cents int64
		image string
	}{
		{"Idly", 3000, "idly.jpeg"},
		{"Dosa", 1500, "dosa.jpeg"},
		{"Vada", 2000, "vada.jpeg"},
		{"Omelette", 1500, "omelette.jpeg"},
		{"Chutney", 1500, "chutney.jpeg"},
		{"Coffee", 2000, "coffee.jpeg"},
	}
	items := make([]core.MenuItem, len(seed))
	for i, s := range seed {
		items[i] = core.MenuItem{
			ID:       uuid.New().String(),
			Name:     s.name,
			Price:    core.Money{Cents: s.cents},
			ImageRef: s.image,
		}
	}
	return items
}

// SeedFromFile replaces the catalog with items read from a "name|price" or
// "name|price|imageRef" line format. Blank lines and lines starting with #
// are skipped.
func (s *Service) SeedFromFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	items, err := parseSeed(f)
	if err != nil {
		return fmt.Errorf("parse seed file %s: %w", path, err)
	}
	return s.replace(ctx, items)
}

func parseSeed(r io.Reader) ([]core.MenuItem, error) {
	var items []core.MenuItem
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, "|")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("line %d: expected name|price[|image], got %q", lineNo, line)
		}

		cents, err := core.ParsePriceToCents(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}

		item := core.MenuItem{
			ID:    uuid.New().String(),
			Name:  strings.TrimSpace(parts[0]),
			Price: core.Money{Cents: cents},
		}
		if len(parts) == 3 {
			item.ImageRef = strings.TrimSpace(parts[2])
		}
		if err := item.Validate(); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		items = append(items, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// List returns the catalog in insertion order.
func (s *Service) List() []core.MenuItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.MenuItem, len(s.items))
	copy(out, s.items)
	return out
}

// Get returns the item with the given id.
func (s *Service) Get(id string) (core.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.ID == id {
			return it, nil
		}
	}
	return core.MenuItem{}, fmt.Errorf("menu item %s: %w", id, core.ErrNotFound)
}

// Add validates and appends a new item, assigning it a fresh id.
func (s *Service) Add(ctx context.Context, name string, price core.Money, imageRef string) (core.MenuItem, error) {
	item := core.MenuItem{
		ID:       uuid.New().String(),
		Name:     strings.TrimSpace(name),
		Price:    price,
		ImageRef: strings.TrimSpace(imageRef),
	}
	if err := item.Validate(); err != nil {
		return core.MenuItem{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := append(s.copyLocked(), item)
	if err := s.persistLocked(ctx, next); err != nil {
		return core.MenuItem{}, err
	}
	return item, nil
}

// Update replaces the name, price and image of an existing item. The item
// keeps its id and its position in the catalog.
func (s *Service) Update(ctx context.Context, id, name string, price core.Money, imageRef string) (core.MenuItem, error) {
	item := core.MenuItem{
		ID:       id,
		Name:     strings.TrimSpace(name),
		Price:    price,
		ImageRef: strings.TrimSpace(imageRef),
	}
	if err := item.Validate(); err != nil {
		return core.MenuItem{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.copyLocked()
	idx := -1
	for i, it := range next {
		if it.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return core.MenuItem{}, fmt.Errorf("menu item %s: %w", id, core.ErrNotFound)
	}
	next[idx] = item

	if err := s.persistLocked(ctx, next); err != nil {
		return core.MenuItem{}, err
	}
	return item, nil
}

// Delete removes an item from the catalog. Already-committed transactions
// keep their snapshot of the item; open carts are the caller's concern.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.copyLocked()
	idx := -1
	for i, it := range next {
		if it.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("menu item %s: %w", id, core.ErrNotFound)
	}
	next = append(next[:idx], next[idx+1:]...)

	return s.persistLocked(ctx, next)
}

func (s *Service) replace(ctx context.Context, items []core.MenuItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.persistLocked(ctx, items)
}

func (s *Service) copyLocked() []core.MenuItem {
	out := make([]core.MenuItem, len(s.items))
	copy(out, s.items)
	return out
}

// persistLocked writes the candidate catalog through to storage and only
// then swaps it in.
func (s *Service) persistLocked(ctx context.Context, next []core.MenuItem) error {
	if err := s.store.SaveMenu(ctx, next); err != nil {
		return fmt.Errorf("persist catalog: %w", err)
	}
	s.items = next
	return nil
}
