package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"conto/internal/cache"
	"conto/internal/catalog"
	"conto/internal/checkout"
	"conto/internal/core"
	"conto/internal/export"
	"conto/internal/imageres"
	applog "conto/internal/log"
	"conto/internal/metrics"
	"conto/internal/store"
	appweb "conto/web"
)

// reportView is a filtered slice of the transaction log, cached per filter
// key until the next commit.
type reportView struct {
	Title        string
	Transactions []core.Transaction
	Summary      core.ReportSummary
}

type Server struct {
	http.Server
	templates *template.Template

	catalog   *catalog.Service
	cart      *core.Cart
	committer *checkout.Committer
	ledger    store.Ledger
	renderer  *export.Renderer
	images    *imageres.Resolver

	rateLimiter *rateLimiter
	reportCache *cache.LRUCache[reportView]

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// server.
func NewServer(addr string, cat *catalog.Service, cart *core.Cart, committer *checkout.Committer, ledger store.Ledger, renderer *export.Renderer, images *imageres.Resolver) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		catalog:     cat,
		cart:        cart,
		committer:   committer,
		ledger:      ledger,
		renderer:    renderer,
		images:      images,
		rateLimiter: newRateLimiter(),
		// Relative filters resolve against "now", so entries go stale on
		// their own; the short TTL bounds that drift between commits.
		reportCache: cache.NewLRUCache[reportView](50, 30*time.Second),
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/images/", s.withSecurityHeaders(s.handleItemImage))

	// Menu
	mux.HandleFunc("/ui/menu", s.withSecurityHeaders(s.handleMenuGrid))
	mux.HandleFunc("/ui/menu-admin", s.withSecurityHeaders(s.handleMenuAdmin))
	mux.HandleFunc("/menu", s.withSecurityHeaders(s.handleCreateMenuItem))
	mux.HandleFunc("/menu/update", s.withSecurityHeaders(s.handleUpdateMenuItem))
	mux.HandleFunc("/menu/delete", s.withSecurityHeaders(s.handleDeleteMenuItem))

	// Cart and checkout
	mux.HandleFunc("/ui/cart", s.withSecurityHeaders(s.handleCartView))
	mux.HandleFunc("/cart/add", s.withSecurityHeaders(s.handleCartAdd))
	mux.HandleFunc("/cart/quantity", s.withSecurityHeaders(s.handleCartQuantity))
	mux.HandleFunc("/cart/remove", s.withSecurityHeaders(s.handleCartRemove))
	mux.HandleFunc("/cart/clear", s.withSecurityHeaders(s.handleCartClear))
	mux.HandleFunc("/ui/pay", s.withSecurityHeaders(s.handlePayView))
	mux.HandleFunc("/checkout", s.withSecurityHeaders(s.handleCheckout))

	// Reports and exports
	mux.HandleFunc("/ui/report", s.withSecurityHeaders(s.handleReportView))
	mux.HandleFunc("/export/invoice", s.withSecurityHeaders(s.handleExportInvoice))
	mux.HandleFunc("/export/report", s.withSecurityHeaders(s.handleExportReport))

	return s
}

// Shutdown stops the server and its background goroutines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting and request
// logging to a handler.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.DebugContext(ctx, "Request started",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"client_ip", clientIP)

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded", "client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		applog.LogHTTPEnd(ctx, applog.FromContext(ctx), r, rw.statusCode, duration.Milliseconds(), clientIP)
	}
}

type contextKey string

const requestIDKey contextKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing.
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.templates == nil {
		slog.ErrorContext(r.Context(), "Templates not loaded", "url", r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	data := struct {
		CartCount int
	}{
		CartCount: s.cart.TotalItemCount(),
	}

	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		slog.ErrorContext(r.Context(), "Index template execution failed", "error", err, "template", "index.html")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// handleItemImage serves a resolved item image from the image directory.
func (s *Server) handleItemImage(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Path[len("/images/"):]
	path, err := s.images.FilePath(name)
	if err != nil {
		if os.IsNotExist(err) {
			http.NotFound(w, r)
			return
		}
		http.Error(w, "invalid image", http.StatusBadRequest)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, path)
}

// invalidateReports flushes every cached report view after a commit.
func (s *Server) invalidateReports() {
	s.reportCache.Clear()
}

// RegisterCaches adds the server's caches to the periodic expiry sweep.
func (s *Server) RegisterCaches(m *cache.Manager) {
	m.Register(s.reportCache)
}
