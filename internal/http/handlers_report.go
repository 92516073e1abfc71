package http

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"conto/internal/core"
)

// reportCacheKey builds a cache key from the filter query. Relative filters
// share a key; custom ranges key on their bounds.
func reportCacheKey(filter, from, to string) string {
	if filter == "" {
		filter = string(core.PeriodToday)
	}
	return filter + "|" + from + "|" + to
}

func (s *Server) buildReportView(r *http.Request, p core.Period) (reportView, error) {
	txs, err := s.ledger.ListTransactions(r.Context())
	if err != nil {
		return reportView{}, err
	}

	filtered := core.FilterTransactions(txs, p, time.Now())

	// Newest first for display.
	for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	}

	return reportView{
		Title:        PeriodTitle(p),
		Transactions: filtered,
		Summary:      core.Aggregate(filtered),
	}, nil
}

// handleReportView renders the sales report partial for the requested period.
func (s *Server) handleReportView(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	q := r.URL.Query()
	p, err := ParsePeriodParams(q)
	if err != nil {
		BadRequestError("Invalid date range").Write(w)
		return
	}

	key := reportCacheKey(q.Get("filter"), q.Get("from"), q.Get("to"))
	view, ok := s.reportCache.Get(key)
	if !ok {
		view, err = s.buildReportView(r, p)
		if err != nil {
			slog.ErrorContext(r.Context(), "Report query failed", "error", err, "period", string(p.Kind))
			InternalServerError("Error loading report").Write(w)
			return
		}
		s.reportCache.Set(key, view)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.templates.ExecuteTemplate(w, "sales_report", view); err != nil {
		slog.ErrorContext(r.Context(), "Report template execution failed", "error", err)
		_, _ = w.Write([]byte(`<div class="error">Error rendering report</div>`))
	}
}

// handleExportInvoice serves a committed invoice as a downloadable HTML
// document.
func (s *Server) handleExportInvoice(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	number, err := strconv.ParseInt(r.URL.Query().Get("number"), 10, 64)
	if err != nil || number < 1 {
		BadRequestError("Invalid invoice number").Write(w)
		return
	}

	tx, err := s.findTransaction(r, number)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			NotFoundError("Invoice not found").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Invoice lookup failed", "error", err, "invoice_number", number)
		InternalServerError("Error exporting invoice").Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%d.html", number))
	if err := s.renderer.RenderInvoice(w, tx); err != nil {
		slog.ErrorContext(r.Context(), "Invoice render failed", "error", err, "invoice_number", number)
	}
}

func (s *Server) findTransaction(r *http.Request, number int64) (core.Transaction, error) {
	txs, err := s.ledger.ListTransactions(r.Context())
	if err != nil {
		return core.Transaction{}, err
	}
	for _, tx := range txs {
		if tx.InvoiceNumber == number {
			return tx, nil
		}
	}
	return core.Transaction{}, fmt.Errorf("invoice %d: %w", number, core.ErrNotFound)
}

// handleExportReport serves the filtered sales report as a downloadable HTML
// document.
func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	p, err := ParsePeriodParams(r.URL.Query())
	if err != nil {
		BadRequestError("Invalid date range").Write(w)
		return
	}

	txs, err := s.ledger.ListTransactions(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Report query failed", "error", err, "period", string(p.Kind))
		InternalServerError("Error exporting report").Write(w)
		return
	}
	filtered := core.FilterTransactions(txs, p, time.Now())

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename=sales-report.html")
	if err := s.renderer.RenderSalesReport(w, PeriodTitle(p), filtered); err != nil {
		slog.ErrorContext(r.Context(), "Report render failed", "error", err, "period", string(p.Kind))
	}
}
