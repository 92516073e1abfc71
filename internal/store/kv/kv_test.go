package kv

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"conto/internal/core"
)

func draft(totalCents int64) core.Transaction {
	return core.Transaction{
		Timestamp: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		LineItems: []core.CartLine{{ItemID: "1", Name: "Idly", Price: core.Money{Cents: totalCents}, Quantity: 1}},
		Subtotal:  core.Money{Cents: totalCents},
		Total:     core.Money{Cents: totalCents},
	}
}

func TestGatewayRoundTrip(t *testing.T) {
	g, err := NewGateway(t.TempDir())
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	ctx := context.Background()

	var missing []string
	found, err := g.Get(ctx, "nothing", &missing)
	if err != nil {
		t.Fatalf("get absent: %v", err)
	}
	if found {
		t.Fatalf("expected absent key")
	}

	in := map[string]int{"a": 1}
	if err := g.Set(ctx, "blob", in); err != nil {
		t.Fatalf("set: %v", err)
	}
	var out map[string]int
	found, err = g.Get(ctx, "blob", &out)
	if err != nil || !found {
		t.Fatalf("get: found=%v err=%v", found, err)
	}
	if out["a"] != 1 {
		t.Fatalf("round trip mismatch: %v", out)
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	menu := []core.MenuItem{{ID: "1", Name: "Idly", Price: core.Money{Cents: 3000}, ImageRef: "idly.jpg"}}
	if err := s.SaveMenu(ctx, menu); err != nil {
		t.Fatalf("save menu: %v", err)
	}

	first, err := s.AppendTransaction(ctx, draft(3000))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	second, err := s.AppendTransaction(ctx, draft(1500))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if first.InvoiceNumber != 1 || second.InvoiceNumber != 2 {
		t.Fatalf("expected numbers 1,2 got %d,%d", first.InvoiceNumber, second.InvoiceNumber)
	}

	// Reopen from disk: counter and log must survive, line items included.
	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	next, _ := reopened.NextInvoiceNumber(ctx)
	if next != 3 {
		t.Fatalf("counter not persisted: next=%d", next)
	}

	log, err := reopened.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(log) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(log))
	}
	if log[0].InvoiceNumber != 1 || log[0].Total.Cents != 3000 {
		t.Fatalf("first transaction mismatch: %+v", log[0])
	}
	if len(log[0].LineItems) != 1 || log[0].LineItems[0].Name != "Idly" {
		t.Fatalf("line items lost in round trip: %+v", log[0].LineItems)
	}
	if !log[0].Timestamp.Equal(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("timestamp lost precision: %v", log[0].Timestamp)
	}

	gotMenu, err := reopened.LoadMenu(ctx)
	if err != nil {
		t.Fatalf("load menu: %v", err)
	}
	if len(gotMenu) != 1 || gotMenu[0] != menu[0] {
		t.Fatalf("menu round trip mismatch: %+v", gotMenu)
	}
}

func TestOpenReconcilesCounterWithLog(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.AppendTransaction(ctx, draft(3000)); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Wind the persisted counter back behind the log, as an interrupted
	// publish between the two key renames would leave it.
	g, err := NewGateway(dir)
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}
	if err := g.Set(ctx, KeyInvoiceCounter, 1); err != nil {
		t.Fatalf("rewind counter: %v", err)
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	next, _ := reopened.NextInvoiceNumber(ctx)
	if next != 2 {
		t.Fatalf("counter not reconciled with log max: next=%d", next)
	}
	tx, err := reopened.AppendTransaction(ctx, draft(1500))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if tx.InvoiceNumber != 2 {
		t.Fatalf("invoice number 1 reused after reopen: got %d", tx.InvoiceNumber)
	}
}

func TestAppendTransactionFailureLeavesStateUnchanged(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.AppendTransaction(ctx, draft(3000)); err != nil {
		t.Fatalf("append: %v", err)
	}

	// A directory squatting on the staging path makes the next write fail
	// before anything is published.
	blocker := filepath.Join(dir, KeyTransactions+".json.tmp")
	if err := os.Mkdir(blocker, 0755); err != nil {
		t.Fatalf("mkdir blocker: %v", err)
	}

	if _, err := s.AppendTransaction(ctx, draft(1500)); !errors.Is(err, core.ErrStorage) {
		t.Fatalf("expected ErrStorage, got %v", err)
	}

	// In-memory state must not have advanced.
	log, err := s.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(log) != 1 {
		t.Fatalf("failed append leaked into the log: %d entries", len(log))
	}
	next, _ := s.NextInvoiceNumber(ctx)
	if next != 2 {
		t.Fatalf("failed append moved the counter: next=%d", next)
	}

	// Nor the on-disk state: a fresh open sees the same log and counter.
	if err := os.Remove(blocker); err != nil {
		t.Fatalf("remove blocker: %v", err)
	}
	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	diskLog, err := reopened.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(diskLog) != 1 || diskLog[0].InvoiceNumber != 1 {
		t.Fatalf("failed append reached disk: %+v", diskLog)
	}
	diskNext, _ := reopened.NextInvoiceNumber(ctx)
	if diskNext != 2 {
		t.Fatalf("counter on disk moved: next=%d", diskNext)
	}

	// The store recovers once the obstruction is gone.
	tx, err := s.AppendTransaction(ctx, draft(1500))
	if err != nil {
		t.Fatalf("append after recovery: %v", err)
	}
	if tx.InvoiceNumber != 2 {
		t.Fatalf("expected invoice 2 after recovery, got %d", tx.InvoiceNumber)
	}
}

func TestCounterStartsAtOne(t *testing.T) {
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	next, _ := s.NextInvoiceNumber(context.Background())
	if next != 1 {
		t.Fatalf("fresh counter should be 1, got %d", next)
	}
}
