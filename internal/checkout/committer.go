// Package checkout turns the open cart into a committed invoice.
package checkout

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"conto/internal/core"
	"conto/internal/metrics"
	"conto/internal/store"
)

// Publisher notifies downstream consumers that an invoice was committed.
// The export worker listens on the other end.
type Publisher interface {
	PublishInvoiceCommitted(ctx context.Context, invoiceNumber int64, committedAt time.Time) error
}

// Committer orchestrates checkout: it snapshots the cart, hands the draft to
// the ledger for atomic number assignment, and clears the cart only once the
// append succeeded.
type Committer struct {
	cart      *core.Cart
	ledger    store.Ledger
	publisher Publisher
	now       func() time.Time
}

func New(cart *core.Cart, ledger store.Ledger, publisher Publisher) *Committer {
	return &Committer{
		cart:      cart,
		ledger:    ledger,
		publisher: publisher,
		now:       time.Now,
	}
}

// Commit finalizes the current sale. On any failure the cart, the counter
// and the log are all left exactly as they were.
func (c *Committer) Commit(ctx context.Context) (core.Transaction, error) {
	lines := c.cart.Lines()
	if len(lines) == 0 {
		return core.Transaction{}, core.ErrEmptyCart
	}

	subtotal := core.Money{}
	for _, line := range lines {
		subtotal.Cents += line.Amount().Cents
	}

	// No tax is levied, so the total equals the subtotal.
	draft := core.Transaction{
		Timestamp: c.now(),
		LineItems: lines,
		Subtotal:  subtotal,
		Tax:       core.Money{},
		Total:     subtotal,
	}

	committed, err := c.ledger.AppendTransaction(ctx, draft)
	if err != nil {
		metrics.CommitFailures.Inc()
		return core.Transaction{}, fmt.Errorf("commit invoice: %w", err)
	}

	c.cart.Clear()
	metrics.InvoicesCommitted.Inc()
	metrics.RevenueCents.Add(float64(committed.Total.Cents))

	slog.InfoContext(ctx, "Invoice committed",
		"invoice_number", committed.InvoiceNumber,
		"total", committed.Total.Format(),
		"line_items", len(committed.LineItems))

	if err := c.publishCommitted(ctx, committed); err != nil {
		// The invoice is safely in the log; export catches up later.
		slog.ErrorContext(ctx, "Failed to publish invoice export message",
			"invoice_number", committed.InvoiceNumber, "error", err)
	}

	return committed, nil
}

func (c *Committer) publishCommitted(ctx context.Context, tx core.Transaction) error {
	if c.publisher == nil {
		return nil
	}
	return c.publisher.PublishInvoiceCommitted(ctx, tx.InvoiceNumber, tx.Timestamp)
}
