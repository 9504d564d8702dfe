package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/tiendago/checkout/pkg/idempotency"
	"github.com/tiendago/checkout/pkg/logging"
	"github.com/tiendago/checkout/pkg/outbox"
	"github.com/tiendago/checkout/pkg/shutdown"
	"github.com/tiendago/checkout/pkg/tracing"

	"github.com/tiendago/checkout/internal/payment/application"
	paymenthttp "github.com/tiendago/checkout/internal/payment/infrastructure/http"
	"github.com/tiendago/checkout/internal/payment/infrastructure/orders"
	paymentpg "github.com/tiendago/checkout/internal/payment/infrastructure/postgres"
)

func main() {
	log := logging.New("payment-service")

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	cfg, err := NewConfig()
	if err != nil {
		log.Error("config parse failed", "err", err)
		os.Exit(1)
	}

	tp, err := tracing.Init(ctx, "payment-service", cfg.OTLPURL, log)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURI)
	if err != nil {
		log.Error("pg connect failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := paymentpg.NewRepository(log, pool)
	if err := repo.Migrate(ctx); err != nil {
		log.Error("migrate failed", "err", err)
		os.Exit(1)
	}
	store := outbox.NewPGStore(log, pool)
	if err := store.Migrate(ctx); err != nil {
		log.Error("outbox migrate failed", "err", err)
		os.Exit(1)
	}

	writer := outbox.NewWriter([]string{cfg.KafkaAddr})
	defer writer.Close()
	dispatch := outbox.NewDispatcher(log, writer, cfg.OutboxTopic)
	relay := outbox.NewRelay(log, store, dispatch, "payment-service-relay")

	notifier := orders.NewClient(cfg.OrdersURL, cfg.ClientTimeout)

	svc := application.NewService(log, repo, notifier)
	handler := paymenthttp.NewHandler(log, svc)

	r := chi.NewRouter()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		idem := idempotency.NewStore(rdb, 10*time.Minute)
		r.Use(idempotency.Middleware(log, idem, "payment"))
	}
	r.Mount("/", handler.Routes())

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := relay.Run(ctx); err != nil {
			log.Error("relay stopped with error", "err", err)
		}
	}()

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
	log.Info("payment-service shutdown complete")
}
