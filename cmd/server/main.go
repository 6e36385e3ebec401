// Command server runs the SIM card inventory API: CRUD for cards and shops,
// the status reconciliation endpoints, and the optional periodic sweep.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"simtrack/internal/auth"
	"simtrack/internal/authority"
	cardhandler "simtrack/internal/card/handler"
	cardservice "simtrack/internal/card/service"
	cardstore "simtrack/internal/card/store"
	"simtrack/internal/platform/config"
	"simtrack/internal/platform/httpserver"
	"simtrack/internal/platform/logger"
	platformmetrics "simtrack/internal/platform/metrics"
	"simtrack/internal/platform/redis"
	"simtrack/internal/reconcile"
	reconcilehandler "simtrack/internal/reconcile/handler"
	reconcilemetrics "simtrack/internal/reconcile/metrics"
	shophandler "simtrack/internal/shop/handler"
	shopservice "simtrack/internal/shop/service"
	shopstore "simtrack/internal/shop/store"
	"simtrack/internal/stats"
	"simtrack/internal/transition"
	transitionhandler "simtrack/internal/transition/handler"
	"simtrack/internal/transition/kafka"
	"simtrack/internal/transition/publisher"
	transitionstore "simtrack/internal/transition/store"
	httptransport "simtrack/internal/transport/http"
	"simtrack/pkg/platform/tx"
)

func main() {
	cfg := config.FromEnv()
	log := logger.New(logger.ParseLevel(cfg.LogLevel))
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage. An empty DATABASE_URL means in-memory stores, which is enough
	// for local development against the full API surface.
	var (
		cards   cardstore.Store
		shops   shopstore.Store
		transl  transitionstore.Store
		runner  tx.Runner
		checkDB func(ctx context.Context) error
	)
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("ping database: %w", err)
		}
		cards = cardstore.NewPostgresStore(db)
		shops = shopstore.NewPostgresStore(db)
		transl = transitionstore.NewPostgresStore(db)
		runner = tx.NewSQLRunner(db)
		checkDB = db.PingContext
		log.Info("storage ready", "backend", "postgres")
	} else {
		cards = cardstore.NewMemoryStore()
		shops = shopstore.NewMemoryStore()
		transl = transitionstore.NewMemoryStore()
		runner = tx.NewSerial()
		log.Warn("DATABASE_URL not set, running on in-memory stores")
	}

	// Redis backs the sweep leader lock; without it every instance sweeps.
	locker := reconcile.AlwaysLeader
	var checkRedis func(ctx context.Context) error
	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
		locker = reconcile.NewRedisLocker(redisClient)
		checkRedis = redisClient.Health
	}

	// Transition fan-out: always log, optionally produce to Kafka.
	sinks := []publisher.Sink{logSink(log)}
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaSink, err := kafka.NewSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return fmt.Errorf("connect kafka: %w", err)
		}
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
	}
	pub := publisher.NewPublisher(sinks,
		publisher.WithLogger(log),
		publisher.WithAsyncBuffer(256))
	defer pub.Close()

	httpMetrics := platformmetrics.New()
	engineMetrics := reconcilemetrics.New(prometheus.DefaultRegisterer)

	authorityClient := authority.NewHTTPClient(cfg.Authority.BaseURL, cfg.Authority.Timeout,
		authority.WithLogger(log))

	shopSvc := shopservice.New(shops, cards, runner,
		shopservice.WithLogger(log),
		shopservice.WithMetrics(httpMetrics))
	cardSvc := cardservice.New(cards, shopSvc, runner,
		cardservice.WithLogger(log),
		cardservice.WithMetrics(httpMetrics))

	engine := reconcile.NewEngine(cards, transl, authorityClient, runner,
		reconcile.WithLogger(log),
		reconcile.WithMetrics(engineMetrics),
		reconcile.WithPublisher(pub))
	coordinator := reconcile.NewCoordinator(engine, log)

	authSvc := auth.NewService(cfg.JWTSigningKey, cfg.AdminUsername, cfg.AdminPassword)
	statsSvc := stats.New(cards, shops, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:    log,
		Metrics:   httpMetrics,
		Validator: authSvc,
		Health:    httptransport.NewHealth(cards, checkDB, checkRedis).WithAuthorityCheck(authorityClient.Ping),
		Public: []httptransport.Registrar{
			auth.NewHandler(authSvc, log),
		},
		Protected: []httptransport.Registrar{
			cardhandler.New(cardSvc, log),
			shophandler.New(shopSvc, log),
			reconcilehandler.New(engine, coordinator, log),
			transitionhandler.New(transl, log),
			stats.NewHandler(statsSvc, log),
		},
	})
	srv := httpserver.New(cfg.Addr, router)

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		log.Info("http server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Sweep.Enabled {
		sweep := reconcile.NewSweep(cards, engine, cfg.Sweep.Interval, cfg.Sweep.Pause,
			reconcile.WithSweepLogger(log),
			reconcile.WithSweepMetrics(engineMetrics),
			reconcile.WithLocker(locker))
		group.Go(func() error {
			if err := sweep.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("sweep: %w", err)
			}
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

// logSink records every committed transition so status changes are traceable
// even without Kafka configured.
func logSink(log *slog.Logger) publisher.Sink {
	return publisher.SinkFunc(func(ctx context.Context, entry *transition.Entry) error {
		log.InfoContext(ctx, "status transition",
			"simcard_code", entry.CardCode,
			"old_status", entry.OldStatus,
			"new_status", entry.NewStatus,
			"source", entry.Source)
		return nil
	})
}
