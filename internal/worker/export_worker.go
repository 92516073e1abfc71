// Package worker runs the invoice export pipeline: it reacts to AMQP
// messages from the web process and sweeps the database for invoices that
// were committed while the exporter was down.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"conto/internal/amqp"
	"conto/internal/core"
	"conto/internal/export"
	"conto/internal/metrics"
	"conto/internal/store/sqlite"
)

// ExportWorker renders committed invoices to disk and marks them exported.
type ExportWorker struct {
	storage   *sqlite.Store
	renderer  *export.Renderer
	exportDir string
	batchSize int
}

func NewExportWorker(storage *sqlite.Store, renderer *export.Renderer, exportDir string, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		renderer:  renderer,
		exportDir: exportDir,
		batchSize: batchSize,
	}
}

// HandleExportMessage processes a single invoice export message from AMQP.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.InvoiceExportMessage) error {
	slog.InfoContext(ctx, "Processing export message", "invoice_number", msg.InvoiceNumber)

	tx, err := w.storage.GetTransaction(ctx, msg.InvoiceNumber)
	if errors.Is(err, core.ErrNotFound) {
		// Stale message for an invoice this database never saw. Dropping it
		// beats requeueing forever.
		slog.WarnContext(ctx, "Export message for unknown invoice, dropping",
			"invoice_number", msg.InvoiceNumber)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}

	return w.exportInvoice(ctx, tx)
}

// ProcessPending exports any invoices that have no export marker yet. This
// is the backup path for lost AMQP messages.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	pending, err := w.storage.ListUnexported(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list unexported invoices: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending invoice exports", "count", len(pending))

	for _, tx := range pending {
		if err := w.exportInvoice(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export invoice",
				"invoice_number", tx.InvoiceNumber, "error", err)
			continue
		}
	}
	return nil
}

// StartupCheck drains the export backlog once at worker startup, using a
// larger batch to recover quickly from downtime.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	pending, err := w.storage.ListUnexported(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list unexported invoices for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending invoice exports on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending invoice exports on startup, processing...",
		"count", len(pending))

	exported := 0
	failed := 0
	for _, tx := range pending {
		if err := w.exportInvoice(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to export invoice during startup",
				"invoice_number", tx.InvoiceNumber, "error", err)
			failed++
			continue
		}
		exported++
	}

	slog.InfoContext(ctx, "Startup export completed",
		"total", len(pending),
		"exported", exported,
		"errors", failed)

	return nil
}

func (w *ExportWorker) exportInvoice(ctx context.Context, tx core.Transaction) error {
	path, err := w.renderer.WriteInvoiceFile(w.exportDir, tx)
	if err != nil {
		return fmt.Errorf("write invoice document: %w", err)
	}

	if err := w.storage.MarkExported(ctx, tx.InvoiceNumber); err != nil {
		// The document exists; the next sweep will rewrite it and try the
		// marker again.
		return fmt.Errorf("mark invoice exported: %w", err)
	}

	metrics.ExportedInvoices.Inc()
	slog.InfoContext(ctx, "Invoice document written",
		"invoice_number", tx.InvoiceNumber,
		"path", path,
		"total", tx.Total.Format())

	return nil
}
