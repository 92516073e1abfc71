package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"conto/internal/catalog"
	"conto/internal/checkout"
	"conto/internal/core"
	"conto/internal/export"
	"conto/internal/imageres"
	"conto/internal/store/memory"
)

func newTestServer(t *testing.T) (*Server, *catalog.Service) {
	t.Helper()

	st := memory.New()
	cat, err := catalog.LoadOrSeed(context.Background(), st)
	if err != nil {
		t.Fatalf("seed catalog: %v", err)
	}

	renderer, err := export.NewRenderer()
	if err != nil {
		t.Fatalf("load export templates: %v", err)
	}

	cart := core.NewCart()
	committer := checkout.New(cart, st, nil)
	images := imageres.New(t.TempDir(), "/images")

	s := NewServer(":0", cat, cart, committer, st, renderer, images)
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
	})
	return s, cat
}

func postForm(t *testing.T, ts *httptest.Server, path string, form url.Values) *http.Response {
	t.Helper()
	resp, err := ts.Client().PostForm(ts.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	return resp
}

func get(t *testing.T, ts *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := ts.Client().Get(ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler)
	defer ts.Close()

	for _, path := range []string{"/healthz", "/readyz"} {
		resp := get(t, ts, path)
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: status = %d, want 200", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}

func TestIndexNotFoundOnUnknownPath(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler)
	defer ts.Close()

	resp := get(t, ts, "/nope")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestMenuGridRendersSeededItems(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler)
	defer ts.Close()

	resp := get(t, ts, "/ui/menu")
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	for _, want := range []string{"Idly", "Dosa", "₹30.00"} {
		if !strings.Contains(body, want) {
			t.Errorf("menu grid missing %q", want)
		}
	}
}

func TestCreateMenuItemTriggersMenuChanged(t *testing.T) {
	s, cat := newTestServer(t)
	ts := httptest.NewServer(s.Handler)
	defer ts.Close()

	resp := postForm(t, ts, "/menu", url.Values{
		"name":  {"Upma"},
		"price": {"25"},
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	trigger := resp.Header.Get("HX-Trigger")
	if !strings.Contains(trigger, "menu:changed") {
		t.Errorf("HX-Trigger = %q, want menu:changed", trigger)
	}

	found := false
	for _, it := range cat.List() {
		if it.Name == "Upma" && it.Price.Cents == 2500 {
			found = true
		}
	}
	if !found {
		t.Error("created item not in catalog")
	}
}

func TestCreateMenuItemRejectsBadInput(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler)
	defer ts.Close()

	tests := []struct {
		name string
		form url.Values
		want int
	}{
		{"empty name", url.Values{"name": {""}, "price": {"10"}}, http.StatusUnprocessableEntity},
		{"bad price", url.Values{"name": {"Tea"}, "price": {"ten"}}, http.StatusUnprocessableEntity},
		{"negative price", url.Values{"name": {"Tea"}, "price": {"-5"}}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postForm(t, ts, "/menu", tt.form)
			defer resp.Body.Close()
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}

func TestCartAddCheckoutFlow(t *testing.T) {
	s, cat := newTestServer(t)
	ts := httptest.NewServer(s.Handler)
	defer ts.Close()

	items := cat.List()
	idly := items[0]

	// Two units of the first item.
	for i := 0; i < 2; i++ {
		resp := postForm(t, ts, "/cart/add", url.Values{"id": {idly.ID}})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("cart/add status = %d", resp.StatusCode)
		}
		resp.Body.Close()
	}

	cartResp := get(t, ts, "/ui/cart")
	cartBody := readBody(t, cartResp)
	if !strings.Contains(cartBody, idly.Name) {
		t.Errorf("cart view missing %q", idly.Name)
	}
	if !strings.Contains(cartBody, "₹60.00") {
		t.Errorf("cart view missing merged amount, got: %s", cartBody)
	}

	resp := postForm(t, ts, "/checkout", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("checkout status = %d", resp.StatusCode)
	}
	trigger := resp.Header.Get("HX-Trigger")
	for _, want := range []string{"invoice:committed", "cart:updated", "report:refresh"} {
		if !strings.Contains(trigger, want) {
			t.Errorf("HX-Trigger missing %q: %s", want, trigger)
		}
	}

	if s.cart.TotalItemCount() != 0 {
		t.Errorf("cart not cleared after checkout: %d items", s.cart.TotalItemCount())
	}

	reportResp := get(t, ts, "/ui/report?filter=today")
	reportBody := readBody(t, reportResp)
	if !strings.Contains(reportBody, "#1") {
		t.Errorf("report missing invoice #1: %s", reportBody)
	}
	if !strings.Contains(reportBody, "₹60.00") {
		t.Errorf("report missing total: %s", reportBody)
	}
}

func TestCheckoutEmptyCartIsUnprocessable(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler)
	defer ts.Close()

	resp := postForm(t, ts, "/checkout", nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", resp.StatusCode)
	}
}

func TestCartQuantityDeltaRemovesAtZero(t *testing.T) {
	s, cat := newTestServer(t)
	ts := httptest.NewServer(s.Handler)
	defer ts.Close()

	id := cat.List()[0].ID

	resp := postForm(t, ts, "/cart/add", url.Values{"id": {id}})
	resp.Body.Close()

	resp = postForm(t, ts, "/cart/quantity", url.Values{"id": {id}, "delta": {"-1"}})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cart/quantity status = %d", resp.StatusCode)
	}
	if !s.cart.Empty() {
		t.Error("line with quantity zero should be removed")
	}
}

func TestCartAddUnknownItem(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler)
	defer ts.Close()

	resp := postForm(t, ts, "/cart/add", url.Values{"id": {"missing"}})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler)
	defer ts.Close()

	resp := get(t, ts, "/checkout")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestExportInvoiceDownload(t *testing.T) {
	s, cat := newTestServer(t)
	ts := httptest.NewServer(s.Handler)
	defer ts.Close()

	id := cat.List()[0].ID
	resp := postForm(t, ts, "/cart/add", url.Values{"id": {id}})
	resp.Body.Close()
	resp = postForm(t, ts, "/checkout", nil)
	resp.Body.Close()

	dl := get(t, ts, "/export/invoice?number=1")
	body := readBody(t, dl)
	if dl.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", dl.StatusCode)
	}
	if cd := dl.Header.Get("Content-Disposition"); !strings.Contains(cd, "invoice-1.html") {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !strings.Contains(body, "Hotel Sree Krishna Bhavan") {
		t.Errorf("invoice document missing header: %s", body)
	}

	missing := get(t, ts, "/export/invoice?number=99")
	defer missing.Body.Close()
	if missing.StatusCode != http.StatusNotFound {
		t.Errorf("unknown invoice status = %d, want 404", missing.StatusCode)
	}
}

func TestExportReportDownload(t *testing.T) {
	s, cat := newTestServer(t)
	ts := httptest.NewServer(s.Handler)
	defer ts.Close()

	id := cat.List()[0].ID
	resp := postForm(t, ts, "/cart/add", url.Values{"id": {id}})
	resp.Body.Close()
	resp = postForm(t, ts, "/checkout", nil)
	resp.Body.Close()

	dl := get(t, ts, "/export/report?filter=today")
	body := readBody(t, dl)
	if dl.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", dl.StatusCode)
	}
	if !strings.Contains(body, "1 invoices") {
		t.Errorf("report summary missing: %s", body)
	}
}

func TestPayModal(t *testing.T) {
	s, cat := newTestServer(t)
	ts := httptest.NewServer(s.Handler)
	defer ts.Close()

	// Empty cart: nothing to pay, no confirm button.
	resp := get(t, ts, "/ui/pay")
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(body, "nothing to pay") {
		t.Errorf("empty-cart modal missing message: %s", body)
	}
	if strings.Contains(body, "Confirm Payment") {
		t.Errorf("empty-cart modal should not offer payment: %s", body)
	}

	id := cat.List()[0].ID
	r := postForm(t, ts, "/cart/add", url.Values{"id": {id}})
	r.Body.Close()

	resp = get(t, ts, "/ui/pay")
	body = readBody(t, resp)
	if !strings.Contains(body, "₹30.00") {
		t.Errorf("pay modal missing amount due: %s", body)
	}
	if !strings.Contains(body, "Confirm Payment") {
		t.Errorf("pay modal missing confirm button: %s", body)
	}
	// No QR file in the image dir, so the placeholder data URI serves.
	if !strings.Contains(body, "data:image/svg") {
		t.Errorf("pay modal missing QR fallback image: %s", body)
	}
}

func TestReportCustomRangeValidation(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler)
	defer ts.Close()

	resp := get(t, ts, "/ui/report?filter=custom&from=2026-02-30&to=2026-01-01")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestReportCacheInvalidatedByCommit(t *testing.T) {
	s, cat := newTestServer(t)
	ts := httptest.NewServer(s.Handler)
	defer ts.Close()

	// Prime the cache with an empty report.
	resp := get(t, ts, "/ui/report?filter=today")
	body := readBody(t, resp)
	if !strings.Contains(body, "No sales in this period.") {
		t.Fatalf("expected empty report, got: %s", body)
	}

	id := cat.List()[0].ID
	r := postForm(t, ts, "/cart/add", url.Values{"id": {id}})
	r.Body.Close()
	r = postForm(t, ts, "/checkout", nil)
	r.Body.Close()

	resp = get(t, ts, "/ui/report?filter=today")
	body = readBody(t, resp)
	if !strings.Contains(body, "#1") {
		t.Errorf("report still serving stale cache: %s", body)
	}
}
