package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/homefix/calbook/libs/auth"
	"github.com/homefix/calbook/libs/db"
	"github.com/homefix/calbook/libs/grpcx"
	"github.com/homefix/calbook/libs/httpx"
	"github.com/homefix/calbook/libs/kafkax"
	otelx "github.com/homefix/calbook/libs/otel"
	"github.com/homefix/calbook/libs/runtime"
	"github.com/homefix/calbook/services/booking-service/internal/booking"
	"github.com/homefix/calbook/services/booking-service/internal/capacity"
	"github.com/homefix/calbook/services/booking-service/internal/handlers"
	"github.com/homefix/calbook/services/booking-service/internal/outbox"
	"github.com/homefix/calbook/services/booking-service/internal/slots"
	"github.com/homefix/calbook/services/booking-service/internal/storage"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

func newServeCmd() *cobra.Command {
	var migrateUp bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the gRPC health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(envFiles(cmd))
			if err != nil {
				return err
			}
			return serve(cfg, migrateUp)
		},
	}
	cmd.Flags().BoolVar(&migrateUp, "migrate", false, "apply the database schema before serving")
	return cmd
}

func serve(cfg Config, migrateUp bool) error {
	logger := runtime.NewLoggerWithLevel(cfg.ServiceName, cfg.LogLevel)

	ctx, stop := runtime.ShutdownContext(logger)
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.ServiceName))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	cal, err := newCalendar(ctx, cfg, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	var checks []runtime.ReadyCheck

	var recorder booking.Recorder = booking.NopRecorder{}
	if cfg.DatabaseURL != "" {
		pool, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("db connection failed", "err", err)
			return err
		}
		defer pool.Close()
		if migrateUp {
			if err := storage.Migrate(ctx, pool); err != nil {
				return err
			}
			logger.Info("schema applied")
		}
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})

		outboxRepo := outbox.NewRepository()
		recorder = storage.NewBookingRepository(pool, outboxRepo)

		publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
			Brokers:   cfg.KafkaBrokers,
			PollEvery: 2 * time.Second,
			BatchSize: 50,
		})
		g.Go(func() error {
			publisher.Run(gctx)
			return nil
		})
		janitor := outbox.NewJanitor(pool, outboxRepo, logger, cfg.OutboxPurgeSchedule, cfg.OutboxRetention)
		g.Go(func() error { return janitor.Run(gctx) })
	} else {
		logger.Warn("DATABASE_URL not set; booking records and domain events are disabled")
	}
	if brokers := kafkax.SplitBrokers(cfg.KafkaBrokers); len(brokers) > 0 {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
	}

	var limiter httpx.Limiter = httpx.NewMemoryLimiter(cfg.RateLimitPerMinute, time.Minute)
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		limiter = httpx.NewRedisLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, "calbook:ratelimit:")
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}

	if cfg.FirebaseProjectID == "" {
		logger.Warn("FIREBASE_PROJECT_ID not set; every ID token will be rejected")
	}
	verifier := auth.NewVerifier(auth.VerifierConfig{
		ProjectID: cfg.FirebaseProjectID,
		Keys:      auth.NewJWKSClient(cfg.FirebaseJWKSURL, cfg.JWKSCacheTTL),
	})

	generator := slots.NewGenerator(capacity.NewChecker(cal), cfg.SlotCheckConcurrency)
	router := mux.NewRouter()
	router.HandleFunc("/healthz", runtime.HealthHandler()).Methods(http.MethodGet)
	router.HandleFunc("/readyz", runtime.ReadyHandler(checks...)).Methods(http.MethodGet)
	handlers.Routes{
		Slots:      handlers.NewSlotHandler(generator, logger),
		Booking:    handlers.NewBookingHandler(booking.NewService(cal, recorder, logger), logger),
		Auth:       handlers.NewAuthHandler(verifier, logger),
		WriteLimit: httpx.RateLimit(limiter, logger, true),
	}.Register(router)

	httpHandler := httpx.Chain(router,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithRecovery(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: cfg.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", handlers.IdempotencyKeyHeader, httpx.RequestIDHeader},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(cfg.CalendarTimeout+5*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		logger.Info("http server starting", "addr", srv.Addr, "calendar_backend", cfg.CalendarBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "err", err)
		}
		logger.Info("http server stopped")
		return nil
	})
	if cfg.GRPCPort != "" {
		hs := grpcx.NewHealthServer(logger, cfg.ServiceName, 10*time.Second, checks...)
		g.Go(func() error { return hs.Serve(gctx, ":"+cfg.GRPCPort) })
	}

	if err := g.Wait(); err != nil {
		logger.Error("service stopped with error", "err", err)
		return err
	}
	return nil
}
