package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/avelez/storefront/pkg/config"
	"github.com/avelez/storefront/pkg/idempotency"
	"github.com/avelez/storefront/pkg/logging"
	"github.com/avelez/storefront/pkg/outbox"
	"github.com/avelez/storefront/pkg/shutdown"
	"github.com/avelez/storefront/pkg/tracing"

	cartapp "github.com/avelez/storefront/internal/cart/application"
	carthttp "github.com/avelez/storefront/internal/cart/infrastructure/http"
	cartpg "github.com/avelez/storefront/internal/cart/infrastructure/postgres"
	cartredis "github.com/avelez/storefront/internal/cart/infrastructure/redis"
	checkoutapp "github.com/avelez/storefront/internal/checkout/application"
	checkouthttp "github.com/avelez/storefront/internal/checkout/infrastructure/http"
	"github.com/avelez/storefront/internal/checkout/infrastructure/payment"
	checkoutredis "github.com/avelez/storefront/internal/checkout/infrastructure/redis"
	"github.com/avelez/storefront/internal/inventory"
	orderapp "github.com/avelez/storefront/internal/order/application"
	orderhttp "github.com/avelez/storefront/internal/order/infrastructure/http"
	orderkafka "github.com/avelez/storefront/internal/order/infrastructure/kafka"
	orderpg "github.com/avelez/storefront/internal/order/infrastructure/postgres"
)

func main() {
	cfg := config.Load()
	log := logging.New("storefront", cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	tp, err := tracing.Init(ctx, "storefront", cfg.OTELEndpoint, log)
	if err != nil {
		log.Error("tracing init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	pool, err := pgxpool.New(ctx, cfg.PGURL)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	// Cart side: durable snapshots in redis, remote carts in postgres.
	oracle := inventory.NewClient(cfg.InventoryURL, 5*time.Second)
	snapshots := cartredis.NewSnapshotStore(rdb)
	carts := cartapp.NewManager(log, oracle, snapshots)
	remoteCarts := cartpg.NewRemoteCartRepository(log, pool)
	reconciler := cartapp.NewReconciler(log, remoteCarts)

	// Checkout side.
	gateway := payment.NewClient(log, cfg.PaymentURL, cfg.PaymentTimeout)
	handoff := checkoutredis.NewHandoffStore(rdb, cfg.HandoffTTL)
	orchestrator := checkoutapp.NewOrchestrator(log, oracle, gateway, handoff,
		cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL, cfg.PaymentTimeout)

	// Order confirmation closes the loop and publishes through the outbox.
	orderRepo := orderpg.NewRepository(log, pool)
	idem := idempotency.NewStore(rdb, 24*time.Hour)
	orders := orderapp.NewService(log, orderRepo, carts, handoff, idem)

	writer := orderkafka.NewWriter([]string{cfg.KafkaAddr})
	defer writer.Close()
	outboxStore := orderpg.NewOutboxStore(log, pool)
	dispatch := outbox.NewDispatcher(log, writer, cfg.OrderTopic)
	relay := outbox.NewRelay(log, outboxStore, dispatch, "storefront-relay")
	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("outbox relay stopped", "err", err)
		}
	}()

	r := chi.NewRouter()
	r.Mount("/", carthttp.NewHandler(log, carts, reconciler).Routes())
	r.Mount("/checkout", checkouthttp.NewHandler(log, carts, orchestrator).Routes())
	r.Mount("/webhooks", orderhttp.NewWebhookHandler(log, orders).Routes())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	log.Info("storefront shutdown complete")
}
