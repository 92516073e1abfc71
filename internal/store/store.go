// Package store defines the persistence ports for the point-of-sale core.
// Implementations live in the memory, kv and sqlite subpackages so the
// service layer never depends on a concrete backend.
package store

import (
	"context"

	"conto/internal/core"
)

type (
	// Catalog persists the menu catalog as a whole. The catalog service
	// calls SaveMenu after every mutation, so implementations only need
	// whole-snapshot semantics.
	Catalog interface {
		LoadMenu(ctx context.Context) ([]core.MenuItem, error)
		SaveMenu(ctx context.Context, items []core.MenuItem) error
	}

	// Ledger is the append-only transaction log plus the persisted invoice
	// counter.
	Ledger interface {
		// AppendTransaction assigns the next invoice number to the draft,
		// increments the persisted counter and appends the record. The
		// three effects are one atomic unit: on error nothing is
		// observably applied.
		AppendTransaction(ctx context.Context, draft core.Transaction) (core.Transaction, error)

		// ListTransactions returns the full log in append order.
		ListTransactions(ctx context.Context) ([]core.Transaction, error)

		// NextInvoiceNumber returns the number the next commit will be
		// assigned, without consuming it.
		NextInvoiceNumber(ctx context.Context) (int64, error)
	}
)
