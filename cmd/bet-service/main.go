package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	bhttp "github.com/radieske/lottery-settlement-platform/internal/bet-service/http"
	"github.com/radieske/lottery-settlement-platform/internal/bet-service/repo"
	"github.com/radieske/lottery-settlement-platform/internal/bet-service/ws"
	settlementrepo "github.com/radieske/lottery-settlement-platform/internal/settlement/repo"
	sharedcache "github.com/radieske/lottery-settlement-platform/internal/shared/cache"
	"github.com/radieske/lottery-settlement-platform/internal/shared/config"
	"github.com/radieske/lottery-settlement-platform/internal/shared/db"
	"github.com/radieske/lottery-settlement-platform/internal/shared/logger"
	"github.com/radieske/lottery-settlement-platform/internal/shared/metrics"
)

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Postgres
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("pg", zap.Error(err))
	}
	defer pg.Close()

	// Redis (pub/sub de apostas liquidadas)
	rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	// WebSocket de apostas liquidadas; CORS fica no api-gateway
	hub := ws.NewHub(func(r *http.Request) bool { return true })
	if err := ws.StartRedisSubscriber(ctx, rdb, cfg.RedisPubSubChannel, hub, log); err != nil {
		log.Fatal("redis subscribe", zap.Error(err))
	}

	// deps
	m := metrics.NewBetService(prometheus.DefaultRegisterer)
	api := bhttp.NewServer(log, repo.NewPostgres(pg), settlementrepo.NewPostgres(pg), hub.HandleWS)
	api.OnPlaced = func(betType string, n int) { m.Placed.WithLabelValues(betType).Add(float64(n)) }
	api.OnRejected = func(reason string) { m.Rejected.WithLabelValues(reason).Inc() }

	apiSrv := &http.Server{
		Addr:              ":" + cfg.HTTPPort, // ex: 8083
		Handler:           api.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// metrics/health
	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort,
		metrics.Check{Name: "postgres", Fn: pg.PingContext},
		metrics.Check{Name: "redis", Fn: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
		_ = apiSrv.Shutdown(shutdownCtx)
	}()

	log.Info("bet-service listening", zap.String("addr", apiSrv.Addr))
	if err := apiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal("api", zap.Error(err))
	}
	log.Info("bet-service stopped")
}
