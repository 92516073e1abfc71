// Command conto runs the point-of-sale web server: menu catalog, cart,
// invoice commits and sales reports over an HTMX UI.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"conto/internal/amqp"
	"conto/internal/backend"
	"conto/internal/cache"
	"conto/internal/catalog"
	"conto/internal/checkout"
	"conto/internal/config"
	"conto/internal/core"
	"conto/internal/export"
	contohttp "conto/internal/http"
	"conto/internal/imageres"
	"conto/internal/log"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", log.FieldError, err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	factory := backend.NewFactory(logger.Logger)
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	result, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err.Error())
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", log.FieldError, err.Error())
			}
		}()
	}

	cat, err := catalog.LoadOrSeedFrom(ctx, result.Catalog, filepath.Join(cfg.DataDir, "seed_menu.txt"))
	if err != nil {
		logger.Error("Failed to load catalog", log.FieldError, err.Error())
		os.Exit(1)
	}

	// AMQP is optional: without it, commits still succeed and the exporter
	// falls back to its pending sweep.
	var publisher checkout.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, continuing without export messages",
				log.FieldError, err.Error())
		} else {
			publisher = amqpClient
			defer amqpClient.Close()
		}
	}

	renderer, err := export.NewRenderer()
	if err != nil {
		logger.Error("Failed to load export templates", log.FieldError, err.Error())
		os.Exit(1)
	}

	cart := core.NewCart()
	committer := checkout.New(cart, result.Ledger, publisher)
	images := imageres.New(cfg.ImageDir, "/images")

	server := contohttp.NewServer(":"+cfg.Port, cat, cart, committer, result.Ledger, renderer, images)
	server.Handler = log.Middleware(logger.WithComponent(log.ComponentHTTP))(server.Handler)

	cacheManager := cache.NewManager()
	server.RegisterCaches(cacheManager)
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting point-of-sale server",
			"addr", server.Addr,
			"backend", cfg.DataBackend)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err.Error())
		os.Exit(1)
	}

	logger.Info("Server stopped")
}
