// Package memory provides an in-memory store, used as the default backend
// and as the fixture for service-level tests.
package memory

import (
	"context"
	"sync"

	"conto/internal/core"
)

type Store struct {
	mu      sync.Mutex
	menu    []core.MenuItem
	txs     []core.Transaction
	counter int64
}

func New() *Store {
	return &Store{counter: 1}
}

// LoadMenu implements store.Catalog.
func (s *Store) LoadMenu(_ context.Context) ([]core.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.MenuItem, len(s.menu))
	copy(out, s.menu)
	return out, nil
}

// SaveMenu implements store.Catalog.
func (s *Store) SaveMenu(_ context.Context, items []core.MenuItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.menu = make([]core.MenuItem, len(items))
	copy(s.menu, items)
	return nil
}

// AppendTransaction implements store.Ledger. Counter increment and log
// append happen under one lock, so the pair is atomic.
func (s *Store) AppendTransaction(_ context.Context, draft core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := draft.Clone()
	tx.InvoiceNumber = s.counter
	s.counter++
	s.txs = append(s.txs, tx)
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
