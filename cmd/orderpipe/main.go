// orderpipe wires the order pipeline together: the command service over its
// SQLite store, the in-process event bus with its mail and reporting
// subscribers, the mail queue with its single background worker, and the
// HTTP surface. This is the only place that owns startup and shutdown — the
// queue and the worker are passed around explicitly, never reached through
// globals.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mjurado/orderpipe/internal/events"
	"github.com/mjurado/orderpipe/internal/httpx"
	"github.com/mjurado/orderpipe/internal/mailer"
	"github.com/mjurado/orderpipe/internal/order/adapters/memory"
	ordersqlite "github.com/mjurado/orderpipe/internal/order/adapters/sqlite"
	"github.com/mjurado/orderpipe/internal/order/app"
	"github.com/mjurado/orderpipe/internal/order/ports"
	"github.com/mjurado/orderpipe/internal/pkg/telemetry"
	"github.com/mjurado/orderpipe/internal/pricing"
	"github.com/mjurado/orderpipe/internal/reporting"
	martsqlite "github.com/mjurado/orderpipe/internal/reporting/sqlite"
)

func main() {
	telemetry.InitLogger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.SetupTracer(ctx, getEnv("OTEL_SERVICE_NAME", "orderpipe"))
	if err != nil {
		slog.Error("failed to initialise tracer", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			slog.Error("tracer shutdown error", "error", err)
		}
	}()

	// Stores.
	repo, err := ordersqlite.Open(getEnv("ORDER_DB_PATH", "./data/orders.db"))
	if err != nil {
		slog.Error("failed to open order store", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	mart, err := martsqlite.Open(getEnv("MART_DB_PATH", "./data/mart.db"))
	if err != nil {
		slog.Error("failed to open reporting mart", "error", err)
		os.Exit(1)
	}
	defer mart.Close()

	// Pricing: static catalog, optionally fronted by Redis.
	var lookup pricing.Lookup = demoCatalog()
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		client, err := pricing.NewRedisClient(addr)
		if err != nil {
			slog.Error("failed to connect to redis", "addr", addr, "error", err)
			os.Exit(1)
		}
		defer client.Close()
		lookup = pricing.NewCachedLookup(lookup, client, 5*time.Minute)
	}

	// Event bus and subscribers.
	bus := events.NewBus()
	queue := mailer.NewQueue()
	mailer.NewNotifier(queue).Register(bus)
	reporting.NewIngestor(mart).Register(bus)

	// Mail transport: SMTP when configured, log-only otherwise.
	var transport mailer.Transport = mailer.LogTransport{}
	if addr := os.Getenv("SMTP_ADDR"); addr != "" {
		transport = mailer.NewSMTPTransport(addr, getEnv("SMTP_FROM", "orders@example.com"))
	}
	worker := mailer.NewWorker(queue, transport, 30*time.Second)

	service := app.NewService(repo, lookup, demoDirectory(), bus)
	handler := httpx.NewHandler(service, queue)

	httpAddr := ":" + getEnv("PORT", "8080")
	server := &http.Server{
		Addr:              httpAddr,
		Handler:           httpx.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return worker.Run(gctx)
	})

	g.Go(func() error {
		slog.Info("orderpipe HTTP server running", "addr", httpAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("orderpipe exited with error", "error", err)
		os.Exit(1)
	}
	slog.Info("orderpipe stopped")
}

// demoCatalog is a small fixed product set so the binary is usable without
// a real pricing service behind it.
func demoCatalog() *pricing.StaticCatalog {
	return pricing.NewStaticCatalog(
		pricing.ProductDetails{ProductID: "prod-10", Name: "Widget", UnitPrice: 19.99},
		pricing.ProductDetails{ProductID: "prod-11", Name: "Gadget", UnitPrice: 29.99},
		pricing.ProductDetails{ProductID: "prod-12", Name: "Doohickey", UnitPrice: 5.00},
	)
}

func demoDirectory() ports.CustomerDirectory {
	dir := memory.NewDirectory()
	// CUSTOMERS is "id:name:email,..." for local runs.
	for _, entry := range strings.Split(os.Getenv("CUSTOMERS"), ",") {
		parts := strings.SplitN(entry, ":", 3)
		if len(parts) == 3 {
			dir.Put(ports.Customer{ID: parts[0], Name: parts[1], Email: parts[2]})
		}
	}
	dir.Put(ports.Customer{ID: "cust-42", Name: "Ada", Email: "ada@example.com"})
	return dir
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
