package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/radieske/lottery-settlement-platform/internal/settlement/app"
	shttp "github.com/radieske/lottery-settlement-platform/internal/settlement/http"
	sharedcache "github.com/radieske/lottery-settlement-platform/internal/shared/cache"
	"github.com/radieske/lottery-settlement-platform/internal/shared/config"
	"github.com/radieske/lottery-settlement-platform/internal/shared/db"
	"github.com/radieske/lottery-settlement-platform/internal/shared/kafka"
	"github.com/radieske/lottery-settlement-platform/internal/shared/logger"
	"github.com/radieske/lottery-settlement-platform/internal/shared/metrics"
	"github.com/radieske/lottery-settlement-platform/migrations"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	log.Info("starting service", zap.String("service", cfg.ServiceName), zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()
	if cfg.Migrate {
		if err := db.Migrate(ctx, pg, migrations.FS); err != nil {
			log.Fatal("migrate", zap.Error(err))
		}
	}

	// Redis (cache de resultados, lock de execução e pub/sub)
	rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	// em local/dev os tópicos são criados na subida
	if cfg.Env != "prod" {
		if err := kafka.EnsureTopics(ctx, cfg.KafkaBrokers,
			cfg.TopicDrawResult, cfg.TopicDrawResultDLQ, cfg.TopicBetSettled, cfg.TopicReconciliation); err != nil {
			log.Warn("ensure topics", zap.Error(err))
		}
	}

	a := app.New(cfg, log, pg, rdb, prometheus.DefaultRegisterer)
	defer a.Close()

	api := &shttp.API{
		Log:        log,
		Results:    a.Repo,
		Cache:      a.Results,
		Publisher:  a.DrawResults,
		Settler:    a.Orchestrator,
		Bets:       a.Repo,
		RunTimeout: cfg.SettlementRunTimeout,
	}
	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort, // ex: 8084
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort,
		metrics.Check{Name: "postgres", Fn: pg.PingContext},
		metrics.Check{Name: "redis", Fn: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("api listening", zap.String("addr", apiSrv.Addr))
		if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	if cfg.SettlementSweepInterval > 0 {
		g.Go(func() error {
			app.Sweep(gctx, log, a.Orchestrator, cfg.SettlementSweepInterval, cfg.SettlementRunTimeout)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
		return apiSrv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("settlement-service stopped", zap.Error(err))
		return
	}
	log.Info("settlement-service stopped")
}
