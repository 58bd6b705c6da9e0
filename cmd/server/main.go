package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"portalpay/internal/audit"
	"portalpay/internal/audit/sink"
	auditmem "portalpay/internal/audit/store/memory"
	auditpg "portalpay/internal/audit/store/postgres"
	auditworker "portalpay/internal/audit/worker"
	"portalpay/internal/payment/gateway"
	paymenthandler "portalpay/internal/payment/handler"
	paymetrics "portalpay/internal/payment/metrics"
	"portalpay/internal/payment/ports"
	"portalpay/internal/payment/service"
	paymemory "portalpay/internal/payment/store/memory"
	paypg "portalpay/internal/payment/store/postgres"
	"portalpay/internal/payment/store/student"
	"portalpay/internal/platform/config"
	"portalpay/internal/platform/httpserver"
	"portalpay/internal/platform/logger"
	"portalpay/internal/platform/postgres"
	redisplatform "portalpay/internal/platform/redis"
	rladmin "portalpay/internal/ratelimit/admin"
	"portalpay/internal/ratelimit/limiter"
	rlmetrics "portalpay/internal/ratelimit/metrics"
	rlports "portalpay/internal/ratelimit/ports"
	rlmemory "portalpay/internal/ratelimit/store/memory"
	rlredis "portalpay/internal/ratelimit/store/redis"
	"portalpay/internal/ratelimit/store/violations"
	httptransport "portalpay/internal/transport/http"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.PostgresDSN)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	} else {
		log.Warn("postgres not configured, using in-memory stores")
	}

	redisClient, err := redisplatform.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	} else {
		log.Warn("redis not configured, rate limits will not survive restarts")
	}

	// Audit pipeline: bounded queue, background worker, optional Kafka mirror.
	publisher := audit.NewPublisher(cfg.Audit.QueueSize, log)
	var auditStores []audit.Store
	if db != nil {
		auditStores = append(auditStores, auditpg.New(db))
	} else {
		auditStores = append(auditStores, auditmem.New())
	}
	if len(cfg.Audit.KafkaBrokers) > 0 {
		kafkaSink, err := sink.NewKafka(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic, log)
		if err != nil {
			log.Error("kafka audit sink unavailable", "error", err)
		} else {
			defer kafkaSink.Close()
			auditStores = append(auditStores, kafkaSink)
		}
	}
	auditWorker := auditworker.New(publisher.Inbox(), log, auditStores...)

	// Rate limiter: in-process cache over an optional durable Redis store.
	cache := rlmemory.NewCache(cfg.RateLimit.CacheSize, cfg.RateLimit.CacheTTL)
	var violationStore rlports.ViolationStore
	if db != nil {
		violationStore = violations.NewPostgres(db)
	} else {
		violationStore = violations.NewMemory()
	}
	limiterOpts := []limiter.Option{
		limiter.WithLogger(log),
		limiter.WithViolationStore(violationStore),
		limiter.WithAuditPublisher(publisher),
		limiter.WithMetrics(rlmetrics.New()),
		limiter.WithBaseBackoff(cfg.RateLimit.BaseBackoff),
		limiter.WithStrict(cfg.RateLimit.Strict),
		limiter.WithDisabled(cfg.RateLimit.Disabled),
	}
	if redisClient != nil {
		limiterOpts = append(limiterOpts, limiter.WithDurableStore(rlredis.New(redisClient.Client)))
	}
	lim, err := limiter.New(cache, limiterOpts...)
	if err != nil {
		log.Error("limiter init failed", "error", err)
		os.Exit(1)
	}

	// Payment verification.
	gw, err := gateway.New(cfg.Gateway.BaseURL, cfg.Gateway.SecretKey,
		gateway.WithTimeout(cfg.Gateway.Timeout))
	if err != nil {
		log.Error("gateway client init failed", "error", err)
		os.Exit(1)
	}
	var paymentStore ports.PaymentStore
	var studentStore ports.StudentStore
	if db != nil {
		paymentStore = paypg.New(db)
		studentStore = student.NewPostgres(db)
	} else {
		paymentStore = paymemory.New()
		studentStore = student.NewMemory()
	}
	paymentSvc, err := service.New(gw, paymentStore, studentStore,
		service.WithLogger(log),
		service.WithRateLimiter(lim),
		service.WithAuditPublisher(publisher),
		service.WithMetrics(paymetrics.New()),
	)
	if err != nil {
		log.Error("payment service init failed", "error", err)
		os.Exit(1)
	}
	paymentHandler, err := paymenthandler.New(paymentSvc, log)
	if err != nil {
		log.Error("payment handler init failed", "error", err)
		os.Exit(1)
	}

	adminSvc, err := rladmin.New(lim, violationStore,
		rladmin.WithLogger(log),
		rladmin.WithAuditPublisher(publisher),
	)
	if err != nil {
		log.Error("admin service init failed", "error", err)
		os.Exit(1)
	}
	adminHandler, err := rladmin.NewHandler(adminSvc, log)
	if err != nil {
		log.Error("admin handler init failed", "error", err)
		os.Exit(1)
	}

	healthChecks := map[string]httptransport.HealthCheck{}
	if db != nil {
		healthChecks["postgres"] = func(ctx context.Context) error {
			return postgres.Health(ctx, db)
		}
	}
	if redisClient != nil {
		healthChecks["redis"] = redisClient.Health
	}

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:              log,
		Payments:            paymentHandler,
		Admin:               adminHandler,
		SuperadminTokenHash: cfg.SuperadminTokenHash,
		HealthChecks:        healthChecks,
	})
	srv := httpserver.New(cfg.Addr, router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := auditWorker.Run(ctx); !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		err := cache.StartCleanup(ctx, cfg.RateLimit.SweepInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		log.Info("starting portalpay", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server exited with error", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete", "audit_entries_dropped", publisher.Dropped())
}
