// Package metrics exposes the Prometheus counters the point of sale
// maintains. Everything is registered on the default registry and served by
// Handler.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// InvoicesCommitted counts successful checkout commits.
	InvoicesCommitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conto_invoices_committed_total",
		Help: "Number of invoices committed to the transaction log.",
	})

	// RevenueCents accumulates the total of every committed invoice.
	RevenueCents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conto_revenue_cents_total",
		Help: "Revenue recorded across committed invoices, in cents.",
	})

	// CommitFailures counts commits rejected by the persistence gateway.
	CommitFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conto_commit_failures_total",
		Help: "Number of checkout commits that failed to persist.",
	})

	// ExportedInvoices counts invoice documents written by the export worker.
	ExportedInvoices = promauto.NewCounter(prometheus.CounterOpts{
		Name: "conto_exported_invoices_total",
		Help: "Number of invoice documents exported to disk.",
	})
)

// Handler serves the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
