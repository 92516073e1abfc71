// Command conto-exporter renders committed invoices to HTML documents. It
// consumes export messages from AMQP and periodically sweeps the database for
// invoices missed while it was down.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"conto/internal/amqp"
	"conto/internal/config"
	"conto/internal/export"
	"conto/internal/log"
	"conto/internal/store/sqlite"
	"conto/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: log.ComponentWorker,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", log.FieldError, err.Error())
		os.Exit(1)
	}

	// The exporter reads the export queue columns, so it needs the shared
	// SQLite database regardless of what the web process was configured with.
	if cfg.DataBackend != "sqlite" {
		logger.Error("Exporter requires the sqlite backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	storage, err := sqlite.Open(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to open database", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer storage.Close()

	renderer, err := export.NewRenderer()
	if err != nil {
		logger.Error("Failed to load export templates", log.FieldError, err.Error())
		os.Exit(1)
	}

	exportWorker := worker.NewExportWorker(storage, renderer, cfg.ExportDir, cfg.ExportBatchSize)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := exportWorker.StartupCheck(ctx); err != nil {
		logger.Error("Startup export check failed", log.FieldError, err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, relying on the pending sweep only",
				log.FieldError, err.Error())
		} else {
			defer client.Close()
			g.Go(func() error {
				err := client.ConsumeInvoiceExports(gctx, func(msg *amqp.InvoiceExportMessage) error {
					return exportWorker.HandleExportMessage(gctx, msg)
				})
				if errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			})
		}
	} else {
		logger.Info("No AMQP URL configured, running sweep-only")
	}

	g.Go(func() error {
		ticker := time.NewTicker(cfg.ExportInterval)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := exportWorker.ProcessPending(gctx); err != nil {
					logger.Error("Pending export sweep failed", log.FieldError, err.Error())
				}
			}
		}
	})

	logger.Info("Exporter running",
		"export_dir", cfg.ExportDir,
		"interval", cfg.ExportInterval.String(),
		"batch_size", cfg.ExportBatchSize)

	if err := g.Wait(); err != nil {
		logger.Error("Exporter error", log.FieldError, err.Error())
		os.Exit(1)
	}

	logger.Info("Exporter stopped")
}
