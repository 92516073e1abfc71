package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"conto/internal/amqp"
	"conto/internal/core"
	"conto/internal/export"
	"conto/internal/store/sqlite"
)

func newTestWorker(t *testing.T) (*ExportWorker, *sqlite.Store, string) {
	t.Helper()
	storage, err := sqlite.Open(filepath.Join(t.TempDir(), "conto.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { storage.Close() })

	renderer, err := export.NewRenderer()
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}

	exportDir := filepath.Join(t.TempDir(), "exports")
	return NewExportWorker(storage, renderer, exportDir, 10), storage, exportDir
}

func commitInvoice(t *testing.T, storage *sqlite.Store, cents int64) core.Transaction {
	t.Helper()
	tx, err := storage.AppendTransaction(context.Background(), core.Transaction{
		Timestamp: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		LineItems: []core.CartLine{{ItemID: "a", Name: "Idly", Price: core.Money{Cents: cents}, Quantity: 1}},
		Subtotal:  core.Money{Cents: cents},
		Total:     core.Money{Cents: cents},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	return tx
}

func TestHandleExportMessage(t *testing.T) {
	w, storage, exportDir := newTestWorker(t)
	ctx := context.Background()

	tx := commitInvoice(t, storage, 3000)

	msg := amqp.NewInvoiceExportMessage(tx.InvoiceNumber, tx.Timestamp)
	if err := w.HandleExportMessage(ctx, msg); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if _, err := os.Stat(filepath.Join(exportDir, "invoice-1.html")); err != nil {
		t.Fatalf("exported document missing: %v", err)
	}

	pending, err := storage.ListUnexported(ctx, 10)
	if err != nil {
		t.Fatalf("list unexported: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("invoice still pending after export: %+v", pending)
	}
}

func TestHandleExportMessageUnknownInvoice(t *testing.T) {
	w, _, _ := newTestWorker(t)

	// Unknown invoices are dropped, not retried forever.
	msg := amqp.NewInvoiceExportMessage(999, time.Now())
	if err := w.HandleExportMessage(context.Background(), msg); err != nil {
		t.Fatalf("unknown invoice should be dropped without error, got %v", err)
	}
}

func TestProcessPendingDrainsBacklog(t *testing.T) {
	w, storage, exportDir := newTestWorker(t)
	ctx := context.Background()

	commitInvoice(t, storage, 3000)
	commitInvoice(t, storage, 1500)

	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("process pending: %v", err)
	}

	for _, name := range []string{"invoice-1.html", "invoice-2.html"} {
		if _, err := os.Stat(filepath.Join(exportDir, name)); err != nil {
			t.Errorf("missing %s: %v", name, err)
		}
	}

	pending, _ := storage.ListUnexported(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("backlog not drained: %d pending", len(pending))
	}

	// A second sweep over a drained backlog is a no-op.
	if err := w.ProcessPending(ctx); err != nil {
		t.Fatalf("second sweep: %v", err)
	}
}

func TestStartupCheck(t *testing.T) {
	w, storage, exportDir := newTestWorker(t)
	ctx := context.Background()

	commitInvoice(t, storage, 2000)

	if err := w.StartupCheck(ctx); err != nil {
		t.Fatalf("startup check: %v", err)
	}
	if _, err := os.Stat(filepath.Join(exportDir, "invoice-1.html")); err != nil {
		t.Fatalf("startup check did not export: %v", err)
	}
}
