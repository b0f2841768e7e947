package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"rentledger/internal/audit"
	"rentledger/internal/jwttoken"
	"rentledger/internal/payment"
	"rentledger/internal/platform/config"
	"rentledger/internal/platform/httpserver"
	"rentledger/internal/platform/logger"
	"rentledger/internal/platform/metrics"
	"rentledger/internal/platform/postgres"
	platformredis "rentledger/internal/platform/redis"
	"rentledger/internal/templateconfig"
	"rentledger/internal/tenancy"
	httptransport "rentledger/internal/transport/http"
)

// main wires the dependency graph and owns the process lifecycle. Business
// rules live in the internal service packages; nothing here makes a domain
// decision.
func main() {
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	var auditStore audit.Store
	if len(cfg.KafkaBrokers) > 0 {
		kafkaStore, err := audit.NewKafkaStore(ctx, cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer kafkaStore.Close()
		auditStore = kafkaStore
	} else {
		auditStore = audit.NewInMemoryStore()
	}
	auditPublisher := audit.NewPublisher(auditStore)

	m := metrics.New()

	var configStore templateconfig.Store
	if db != nil {
		configStore = templateconfig.NewPostgresStore(db)
	} else {
		configStore = templateconfig.NewInMemoryStore()
	}
	resolverOpts := []templateconfig.Option{
		templateconfig.WithLogger(log),
		templateconfig.WithAuditPublisher(auditPublisher),
	}
	if redisClient != nil {
		resolverOpts = append(resolverOpts, templateconfig.WithCache(
			templateconfig.NewRedisCache(redisClient.Client, cfg.ConfigCacheTTL),
		))
	}
	resolver := templateconfig.NewResolver(configStore, resolverOpts...)

	var (
		tenancyStore tenancy.Store
		storeTx      tenancy.StoreTx
		paymentStore payment.Store
		agreements   payment.AgreementDirectory
	)
	if db != nil {
		tenancyStore = tenancy.NewPostgresStore(db)
		storeTx = tenancy.NewPostgresTx(db)
		pg := payment.NewPostgresStore(db)
		paymentStore = pg
		agreements = pg
	} else {
		mem := tenancy.NewInMemory()
		tenancyStore = mem
		storeTx = mem
		paymentStore = mem
		agreements = mem
	}

	tenancies := tenancy.NewService(tenancyStore, storeTx, resolver,
		tenancy.WithRegion(cfg.RegionCode),
		tenancy.WithLogger(log),
		tenancy.WithMetrics(m),
		tenancy.WithAuditPublisher(auditPublisher),
	)
	payments := payment.NewService(paymentStore, agreements,
		payment.WithLogger(log),
		payment.WithMetrics(m),
		payment.WithAuditPublisher(auditPublisher),
	)

	tokens := jwttoken.NewService(cfg.JWTSigningKey, "rentledger")

	handler := httptransport.NewHandler(tenancies, payments, resolver, tokens, log)
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler))

	go runExpirySweep(ctx, tenancies, cfg.ExpirySweep, log)

	go func() {
		log.Info("starting rentledger", "addr", cfg.Addr,
			"postgres", db != nil, "redis", redisClient != nil, "kafka", len(cfg.KafkaBrokers) > 0)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

// runExpirySweep transitions active agreements past their end date. Missed
// ticks are harmless: expiry is derived from the end date, not from when the
// sweep happens to run.
func runExpirySweep(ctx context.Context, tenancies *tenancy.Service, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			expired, err := tenancies.ExpireDue(ctx, now)
			if err != nil {
				log.Error("expiry sweep failed", "error", err)
				continue
			}
			if expired > 0 {
				log.Info("expiry sweep completed", "expired", expired)
			}
		}
	}
}
