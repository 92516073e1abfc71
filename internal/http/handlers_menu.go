package http

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"conto/internal/core"
)

// menuItemView carries one catalog entry to the menu templates. ImageURL is
// template.URL because the placeholder is a data URI, which html/template
// would otherwise filter out of src attributes.
type menuItemView struct {
	ID       string
	Name     string
	Price    string
	PriceRaw string
	ImageRef string
	ImageURL template.URL
}

func (s *Server) menuViews() []menuItemView {
	items := s.catalog.List()
	views := make([]menuItemView, len(items))
	for i, it := range items {
		views[i] = menuItemView{
			ID:       it.ID,
			Name:     it.Name,
			Price:    it.Price.Format(),
			PriceRaw: fmt.Sprintf("%d.%02d", it.Price.Cents/100, it.Price.Cents%100),
			ImageRef: it.ImageRef,
			ImageURL: template.URL(s.images.Resolve(it.ImageRef, it.Name)),
		}
	}
	return views
}

// handleMenuGrid renders the tappable menu partial for the sale screen.
func (s *Server) handleMenuGrid(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		Items []menuItemView
	}{Items: s.menuViews()}

	if err := s.templates.ExecuteTemplate(w, "menu_grid", data); err != nil {
		slog.ErrorContext(r.Context(), "Menu grid template execution failed", "error", err)
		_, _ = w.Write([]byte(`<div class="error">Error rendering menu</div>`))
	}
}

// handleMenuAdmin renders the catalog management partial.
func (s *Server) handleMenuAdmin(w http.ResponseWriter, r *http.Request) {
	if resp := RequireMethod(r, http.MethodGet); resp != nil {
		resp.Write(w)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		Items []menuItemView
	}{Items: s.menuViews()}

	if err := s.templates.ExecuteTemplate(w, "menu_admin", data); err != nil {
		slog.ErrorContext(r.Context(), "Menu admin template execution failed", "error", err)
		_, _ = w.Write([]byte(`<div class="error">Error rendering menu admin</div>`))
	}
}

func (s *Server) handleCreateMenuItem(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	if resp := ParseFormOrFail(r); resp != nil {
		resp.Write(w)
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	priceStr := sanitizeInput(r.Form.Get("price"))
	imageRef := sanitizeInput(r.Form.Get("image"))

	cents, err := core.ParsePriceToCents(priceStr)
	if err != nil {
		UnprocessableEntityError("Invalid price").Write(w)
		return
	}

	item, err := s.catalog.Add(r.Context(), name, core.Money{Cents: cents}, imageRef)
	if err != nil {
		s.writeMenuError(w, r, err, "add")
		return
	}

	slog.InfoContext(r.Context(), "Menu item created",
		"item_id", item.ID,
		"item_name", item.Name,
		"amount_cents", item.Price.Cents)

	NewHTMXResponse().
		TriggerMenuChanged().
		TriggerSuccessNotification("Added " + item.Name + " to the menu").
		BodyString("").
		Write(w)
}

func (s *Server) handleUpdateMenuItem(w http.ResponseWriter, r *http.Request) {
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
	name := sanitizeInput(r.Form.Get("name"))
	imageRef := sanitizeInput(r.Form.Get("image"))

	cents, err := core.ParsePriceToCents(sanitizeInput(r.Form.Get("price")))
	if err != nil {
		UnprocessableEntityError("Invalid price").Write(w)
		return
	}

	item, err := s.catalog.Update(r.Context(), id, name, core.Money{Cents: cents}, imageRef)
	if err != nil {
		s.writeMenuError(w, r, err, "update")
		return
	}

	slog.InfoContext(r.Context(), "Menu item updated",
		"item_id", item.ID,
		"item_name", item.Name,
		"amount_cents", item.Price.Cents)

	NewHTMXResponse().
		TriggerMenuChanged().
		TriggerSuccessNotification("Updated " + item.Name).
		BodyString("").
		Write(w)
}

func (s *Server) handleDeleteMenuItem(w http.ResponseWriter, r *http.Request) {
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

	if err := s.catalog.Delete(r.Context(), id); err != nil {
		s.writeMenuError(w, r, err, "delete")
		return
	}

	slog.InfoContext(r.Context(), "Menu item deleted", "item_id", id)

	NewHTMXResponse().
		TriggerMenuChanged().
		TriggerSuccessNotification("Item removed from the menu").
		BodyString("").
		Write(w)
}

func (s *Server) writeMenuError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	switch {
	case errors.Is(err, core.ErrEmptyName):
		UnprocessableEntityError("Item name is required").Write(w)
	case errors.Is(err, core.ErrNegativePrice), errors.Is(err, core.ErrInvalidAmount):
		UnprocessableEntityError("Invalid price").Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError("Menu item not found").Write(w)
	default:
		slog.ErrorContext(r.Context(), "Catalog operation failed", "error", err, "operation", operation)
		InternalServerError("Error saving menu").Write(w)
	}
}
