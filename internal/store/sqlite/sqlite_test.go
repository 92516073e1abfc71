package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"conto/internal/core"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "conto.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testDraft(itemID, name string, cents int64, qty int) core.Transaction {
	line := core.CartLine{ItemID: itemID, Name: name, Price: core.Money{Cents: cents}, Quantity: qty}
	total := core.Money{Cents: cents * int64(qty)}
	return core.Transaction{
		Timestamp: time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
		LineItems: []core.CartLine{line},
		Subtotal:  total,
		Total:     total,
	}
}

func TestMenuRoundTripPreservesOrder(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	items := []core.MenuItem{
		{ID: "b", Name: "Dosa", Price: core.Money{Cents: 1500}, ImageRef: "dosa.jpg"},
		{ID: "a", Name: "Idly", Price: core.Money{Cents: 3000}},
		{ID: "c", Name: "Coffee", Price: core.Money{Cents: 2000}},
	}
	if err := store.SaveMenu(ctx, items); err != nil {
		t.Fatalf("save menu: %v", err)
	}

	got, err := store.LoadMenu(ctx)
	if err != nil {
		t.Fatalf("load menu: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 items, got %d", len(got))
	}
	for i := range items {
		if got[i] != items[i] {
			t.Fatalf("item %d mismatch: got %+v want %+v", i, got[i], items[i])
		}
	}

	// A second save replaces the catalog instead of appending.
	if err := store.SaveMenu(ctx, items[:1]); err != nil {
		t.Fatalf("save menu: %v", err)
	}
	got, _ = store.LoadMenu(ctx)
	if len(got) != 1 || got[0].Name != "Dosa" {
		t.Fatalf("expected replaced catalog, got %+v", got)
	}
}

func TestAppendTransactionAssignsAndAdvances(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	next, err := store.NextInvoiceNumber(ctx)
	if err != nil {
		t.Fatalf("next number: %v", err)
	}
	if next != 1 {
		t.Fatalf("fresh counter should be 1, got %d", next)
	}

	first, err := store.AppendTransaction(ctx, testDraft("1", "Idly", 3000, 2))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	second, err := store.AppendTransaction(ctx, testDraft("2", "Dosa", 1500, 1))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if first.InvoiceNumber != 1 || second.InvoiceNumber != 2 {
		t.Fatalf("expected invoice numbers 1,2 got %d,%d", first.InvoiceNumber, second.InvoiceNumber)
	}

	next, _ = store.NextInvoiceNumber(ctx)
	if next != 3 {
		t.Fatalf("counter did not advance, next=%d", next)
	}

	log, err := store.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(log) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(log))
	}
	if log[0].Total.Cents != 6000 || log[1].Total.Cents != 1500 {
		t.Fatalf("totals mismatch: %d, %d", log[0].Total.Cents, log[1].Total.Cents)
	}
	if len(log[0].LineItems) != 1 || log[0].LineItems[0].Name != "Idly" || log[0].LineItems[0].Quantity != 2 {
		t.Fatalf("line items mismatch: %+v", log[0].LineItems)
	}
	if !log[0].Timestamp.Equal(time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)) {
		t.Fatalf("timestamp mismatch: %v", log[0].Timestamp)
	}
}

func TestCounterSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "conto.db")
	ctx := context.Background()

	store, err := Open(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.AppendTransaction(ctx, testDraft("1", "Idly", 3000, 1)); err != nil {
		t.Fatalf("append: %v", err)
	}
	store.Close()

	reopened, err := Open(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	next, _ := reopened.NextInvoiceNumber(ctx)
	if next != 2 {
		t.Fatalf("counter not persisted, next=%d", next)
	}
}

func TestGetTransaction(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	committed, err := store.AppendTransaction(ctx, testDraft("1", "Vada", 2000, 3))
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	got, err := store.GetTransaction(ctx, committed.InvoiceNumber)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Total.Cents != 6000 || len(got.LineItems) != 1 || got.LineItems[0].Quantity != 3 {
		t.Fatalf("retrieved transaction mismatch: %+v", got)
	}

	_, err = store.GetTransaction(ctx, 999)
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing invoice, got %v", err)
	}
}

func TestExportQueue(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first, _ := store.AppendTransaction(ctx, testDraft("1", "Idly", 3000, 1))
	second, _ := store.AppendTransaction(ctx, testDraft("2", "Dosa", 1500, 1))

	pending, err := store.ListUnexported(ctx, 10)
	if err != nil {
		t.Fatalf("list unexported: %v", err)
	}
	if len(pending) != 2 || pending[0].InvoiceNumber != first.InvoiceNumber {
		t.Fatalf("expected both invoices pending oldest first, got %+v", pending)
	}

	if err := store.MarkExported(ctx, first.InvoiceNumber); err != nil {
		t.Fatalf("mark exported: %v", err)
	}

	pending, _ = store.ListUnexported(ctx, 10)
	if len(pending) != 1 || pending[0].InvoiceNumber != second.InvoiceNumber {
		t.Fatalf("expected one pending invoice, got %+v", pending)
	}

	if err := store.MarkExported(ctx, 999); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound marking missing invoice, got %v", err)
	}
}
