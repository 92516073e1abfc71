// Package kv is a JSON key/value persistence gateway backed by one file per
// key. It mirrors the browser-storage layout the tool replaces: the catalog,
// the transaction log and the invoice counter each live under their own key
// and round-trip as plain JSON.
package kv

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"conto/internal/core"
)

// Keys used by the point-of-sale store.
const (
	KeyMenuItems      = "menuItems"
	KeyTransactions   = "transactions"
	KeyInvoiceCounter = "invoiceCounter"
)

// Gateway reads and writes JSON values under string keys. Writes are staged
// to temp files and renamed into place, so a failed write never leaves a
// half-written value behind.
type Gateway struct {
	mu  sync.Mutex
	dir string
}

func NewGateway(dir string) (*Gateway, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create data directory: %v", core.ErrStorage, err)
	}
	return &Gateway{dir: dir}, nil
}

// Get unmarshals the value stored under key into v. The second return is
// false when the key has never been written.
func (g *Gateway) Get(_ context.Context, key string, v any) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	data, err := os.ReadFile(g.path(key))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: read key %q: %v", core.ErrStorage, key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: decode key %q: %v", core.ErrStorage, key, err)
	}
	return true, nil
}

// Set persists a single value under key.
func (g *Gateway) Set(ctx context.Context, key string, v any) error {
	return g.SetAll(ctx, map[string]any{key: v})
}

// SetAll persists several keys as one unit: every value is staged to a temp
// file first and the renames only start once all stages succeeded. Write
// failures (disk full, permissions) therefore surface before anything
// becomes visible.
func (g *Gateway) SetAll(_ context.Context, values map[string]any) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	staged := make(map[string]string, len(values))
	cleanup := func() {
		for _, tmp := range staged {
			os.Remove(tmp)
		}
	}

	for key, v := range values {
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			cleanup()
			return fmt.Errorf("%w: encode key %q: %v", core.ErrStorage, key, err)
		}
		tmp := g.path(key) + ".tmp"
		if err := writeFileSync(tmp, data); err != nil {
			cleanup()
			return fmt.Errorf("%w: stage key %q: %v", core.ErrStorage, key, err)
		}
		staged[key] = tmp
	}

	// Publish the counter before the log: an interruption between the two
	// renames then leaves the counter ahead of the log, which skips an
	// invoice number but never reuses one.
	for _, key := range publishOrder(staged) {
		if err := os.Rename(staged[key], g.path(key)); err != nil {
			cleanup()
			return fmt.Errorf("%w: publish key %q: %v", core.ErrStorage, key, err)
		}
	}
	return nil
}

func publishOrder(staged map[string]string) []string {
	keys := make([]string, 0, len(staged))
	for key := range staged {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if (keys[i] == KeyInvoiceCounter) != (keys[j] == KeyInvoiceCounter) {
			return keys[i] == KeyInvoiceCounter
		}
		return keys[i] < keys[j]
	})
	return keys
}

func (g *Gateway) path(key string) string {
	return filepath.Join(g.dir, key+".json")
}

func writeFileSync(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Store implements the catalog and ledger ports on top of a Gateway. The
// transaction log and counter are cached in memory and re-persisted as one
// SetAll on every append.
type Store struct {
	mu      sync.Mutex
	gateway *Gateway
	txs     []core.Transaction
	counter int64
}

// Open loads the existing log and counter from dir, starting the counter at
// 1 for a fresh directory.
func Open(dir string) (*Store, error) {
	g, err := NewGateway(dir)
	if err != nil {
		return nil, err
	}
	s := &Store{gateway: g, counter: 1}

	ctx := context.Background()
	if _, err := g.Get(ctx, KeyTransactions, &s.txs); err != nil {
		return nil, fmt.Errorf("load transaction log: %w", err)
	}
	if _, err := g.Get(ctx, KeyInvoiceCounter, &s.counter); err != nil {
		return nil, fmt.Errorf("load invoice counter: %w", err)
	}
	if s.counter < 1 {
		s.counter = 1
	}
	// The counter must stay ahead of every number the log has issued, even
	// when a previous run stopped between publishing the two keys.
	for _, tx := range s.txs {
		if tx.InvoiceNumber >= s.counter {
			s.counter = tx.InvoiceNumber + 1
		}
	}
	return s, nil
}

// LoadMenu implements store.Catalog.
func (s *Store) LoadMenu(ctx context.Context) ([]core.MenuItem, error) {
	var items []core.MenuItem
	if _, err := s.gateway.Get(ctx, KeyMenuItems, &items); err != nil {
		return nil, fmt.Errorf("load menu: %w", err)
	}
	return items, nil
}

// SaveMenu implements store.Catalog.
func (s *Store) SaveMenu(ctx context.Context, items []core.MenuItem) error {
	if err := s.gateway.Set(ctx, KeyMenuItems, items); err != nil {
		return fmt.Errorf("save menu: %w", err)
	}
	return nil
}

// AppendTransaction implements store.Ledger. Log and counter are written in
// one staged SetAll; the in-memory state only advances after the write
// succeeded, so a storage failure leaves no partial commit behind.
func (s *Store) AppendTransaction(ctx context.Context, draft core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := draft.Clone()
	tx.InvoiceNumber = s.counter

	next := make([]core.Transaction, len(s.txs), len(s.txs)+1)
	copy(next, s.txs)
	next = append(next, tx)

	err := s.gateway.SetAll(ctx, map[string]any{
		KeyTransactions:   next,
		KeyInvoiceCounter: s.counter + 1,
	})
	if err != nil {
		return core.Transaction{}, fmt.Errorf("append transaction: %w", err)
	}

	s.txs = next
	s.counter++
	return tx.Clone(), nil
}

// ListTransactions implements store.Ledger.
func (s *Store) ListTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, len(s.txs))
	for i, tx := range s.txs {
		out[i] = tx.Clone()
	}
	return out, nil
}

// NextInvoiceNumber implements store.Ledger.
func (s *Store) NextInvoiceNumber(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter, nil
}
