// Package export renders committed invoices and sales reports as standalone
// HTML documents, both for download from the web UI and for the background
// export worker.
package export

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"time"

	"conto/internal/core"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Renderer holds the parsed export templates.
type Renderer struct {
	tmpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse export templates: %w", err)
	}
	return &Renderer{tmpl: tmpl}, nil
}

type invoiceData struct {
	Transaction core.Transaction
}

type reportData struct {
	Title        string
	GeneratedAt  time.Time
	Transactions []core.Transaction
	Summary      core.ReportSummary
}

// RenderInvoice writes the invoice document for a committed transaction.
func (r *Renderer) RenderInvoice(w io.Writer, tx core.Transaction) error {
	if err := r.tmpl.ExecuteTemplate(w, "invoice", invoiceData{Transaction: tx}); err != nil {
		return fmt.Errorf("render invoice %d: %w", tx.InvoiceNumber, err)
	}
	return nil
}

// RenderSalesReport writes the report document for an already-filtered
// transaction sequence.
func (r *Renderer) RenderSalesReport(w io.Writer, title string, txs []core.Transaction) error {
	data := reportData{
		Title:        title,
		GeneratedAt:  time.Now(),
		Transactions: txs,
		Summary:      core.Aggregate(txs),
	}
	if err := r.tmpl.ExecuteTemplate(w, "report", data); err != nil {
		return fmt.Errorf("render sales report: %w", err)
	}
	return nil
}

// WriteInvoiceFile renders an invoice into dir as invoice-<number>.html,
// creating the directory as needed. The write goes through a temp file so a
// crash never leaves a truncated document.
func (r *Renderer) WriteInvoiceFile(dir string, tx core.Transaction) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	path := filepath.Join(dir, fmt.Sprintf("invoice-%d.html", tx.InvoiceNumber))
	tmp := path + ".tmp"

	f, err := os.Create(tmp)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := r.RenderInvoice(f, tx); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("close export file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("publish export file: %w", err)
	}
	return path, nil
}
