package http

import (
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"conto/internal/core"
)

// cartLineView carries one cart line to the cart template.
type cartLineView struct {
	ItemID   string
	Name     string
	Price    string
	Quantity int
	Amount   string
}

func (s *Server) renderCart(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	lines := s.cart.Lines()
	views := make([]cartLineView, len(lines))
	for i, l := range lines {
		views[i] = cartLineView{
			ItemID:   l.ItemID,
			Name:     l.Name,
			Price:    l.Price.Format(),
			Quantity: l.Quantity,
			Amount:   l.Amount().Format(),
		}
	}

	data := struct {
		Lines     []cartLineView
		Subtotal  string
		ItemCount int
		Empty     bool
	}{
		Lines:     views,
		Subtotal:  s.cart.Subtotal().Format(),
		ItemCount: s.cart.TotalItemCount(),
		Empty:     len(views) == 0,
	}

	if err := s.templates.ExecuteTemplate(w, "cart", data); err != nil {
		slog.ErrorContext(r.Context(), "Cart template execution failed", "error", err)
		_, _ = w.Write([]byte(`<div class="error">Error rendering cart</div>`))
	}
}

// handleCartView renders the cart partial.
func (s *Server) handleCartView(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}
	s.renderCart(w, r)
}

// handleCartAdd merges one unit of a menu item into the cart.
func (s *Server) handleCartAdd(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id := sanitizeInput(r.Form.Get("id"))
	if id == "" {
		BadRequestError("Missing item id").Write(w)
		return
	}

	item, err := s.catalog.Get(id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			NotFoundError("Menu item not found").Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Catalog lookup failed", "error", err, "item_id", id)
		InternalServerError("Error adding to cart").Write(w)
		return
	}

	s.cart.Add(item)

	NewHTMXResponse().
		TriggerCartUpdated(s.cart.TotalItemCount()).
		BodyString("").
		Write(w)
}

// handleCartQuantity applies a +1/-1 delta to a cart line. A quantity
// reaching zero removes the line.
func (s *Server) handleCartQuantity(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id := sanitizeInput(r.Form.Get("id"))
	if id == "" {
		BadRequestError("Missing item id").Write(w)
		return
	}
	delta, err := strconv.Atoi(sanitizeInput(r.Form.Get("delta")))
	if err != nil {
		BadRequestError("Invalid quantity delta").Write(w)
		return
	}

	s.cart.UpdateQuantity(id, delta)

	NewHTMXResponse().
		TriggerCartUpdated(s.cart.TotalItemCount()).
		BodyString("").
		Write(w)
}

// handleCartRemove drops a line regardless of quantity.
func (s *Server) handleCartRemove(w http.ResponseWriter, r *http.Request) {
	if resp := RequireDeleteOrPOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	id := sanitizeInput(r.Form.Get("id"))
	if id == "" {
		BadRequestError("Missing item id").Write(w)
		return
	}

	s.cart.Remove(id)

	NewHTMXResponse().
		TriggerCartUpdated(s.cart.TotalItemCount()).
		BodyString("").
		Write(w)
}

// handlePayView renders the payment modal: the amount due and the payment QR
// image when one exists in the image directory.
func (s *Server) handlePayView(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		Empty     bool
		AmountDue string
		ItemCount int
		QRImage   template.URL
	}{
		Empty:     s.cart.Empty(),
		AmountDue: s.cart.Subtotal().Format(),
		ItemCount: s.cart.TotalItemCount(),
		QRImage:   template.URL(s.images.Resolve("payment-qr.jpeg", "payment qr")),
	}

	if err := s.templates.ExecuteTemplate(w, "pay_modal", data); err != nil {
		slog.ErrorContext(r.Context(), "Pay modal template execution failed", "error", err)
		_, _ = w.Write([]byte(`<div class="error">Error rendering payment view</div>`))
	}
}

// handleCartClear abandons the sale in progress.
func (s *Server) handleCartClear(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	s.cart.Clear()

	NewHTMXResponse().
		TriggerCartUpdated(0).
		BodyString("").
		Write(w)
}

// handleCheckout commits the open cart as an invoice.
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}

	committed, err := s.committer.Commit(r.Context())
	if err != nil {
		if errors.Is(err, core.ErrEmptyCart) {
			NewHTMXResponse().
				Status(http.StatusUnprocessableEntity).
				TriggerNotification(NotificationWarning, "Cart is empty", 2000).
				BodyHTML(`<div class="error">Cart is empty</div>`).
				Write(w)
			return
		}
		slog.ErrorContext(r.Context(), "Checkout failed", "error", err)
		NewHTMXResponse().
			Status(http.StatusInternalServerError).
			TriggerErrorNotification("Could not save the invoice, please retry").
			BodyHTML(`<div class="error">Error committing invoice</div>`).
			Write(w)
		return
	}

	s.invalidateReports()

	NewHTMXResponse().
		TriggerInvoiceCommitted(committed.InvoiceNumber).
		TriggerCartUpdated(0).
		TriggerReportRefresh().
		TriggerSuccessNotification("Invoice #" + strconv.FormatInt(committed.InvoiceNumber, 10) + " committed — " + committed.Total.Format()).
		BodyString("").
		Write(w)
}
