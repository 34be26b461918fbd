package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/lottery-settlement-platform/internal/settlement/app"
	"github.com/radieske/lottery-settlement-platform/internal/settlement/consumer"
	"github.com/radieske/lottery-settlement-platform/internal/settlement/orchestrator"
	sharedcache "github.com/radieske/lottery-settlement-platform/internal/shared/cache"
	"github.com/radieske/lottery-settlement-platform/internal/shared/config"
	"github.com/radieske/lottery-settlement-platform/internal/shared/db"
	"github.com/radieske/lottery-settlement-platform/internal/shared/kafka"
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

	// Inicializa dependências: Postgres e Redis
	pg, err := db.ConnectPostgres(cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pg.Close()

	rdb, err := sharedcache.ConnectRedis(cfg.RedisAddr)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()

	a := app.New(cfg, log, pg, rdb, prometheus.DefaultRegisterer)
	defer a.Close()

	// consumer group settlement-worker; commit manual depois de liquidar ou mandar pra DLQ
	reader := kafka.NewReader(cfg.KafkaBrokers, cfg.TopicDrawResult, "settlement-worker")
	defer reader.Close()
	dlq := kafka.NewWriter(cfg.KafkaBrokers, cfg.TopicDrawResultDLQ)
	defer dlq.Close()

	// Métricas Prometheus do consumo
	consumed := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_worker_messages_consumed_total", Help: "mensagens consumidas"})
	dlqSent := prometheus.NewCounter(prometheus.CounterOpts{Name: "settlement_worker_dlq_total", Help: "mensagens enviadas pra DLQ"})
	errorsBy := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "settlement_worker_errors_total", Help: "erros por estágio"}, []string{"stage"})
	prometheus.MustRegister(consumed, dlqSent, errorsBy)

	proc := &consumer.Processor{
		Log:        log,
		Reader:     reader,
		Runner:     a.Orchestrator,
		DLQ:        dlq,
		OnConsumed: func() { consumed.Inc() },
		OnError:    func(stage string) { errorsBy.WithLabelValues(stage).Inc() },
		OnDLQ:      func() { dlqSent.Inc() },
		OnSettled: func(s orchestrator.Summary) {
			log.Info("draw settled",
				zap.String("run_id", s.RunID),
				zap.Int("processed", s.Processed),
				zap.Int("won", s.Won),
				zap.Int("lost", s.Lost),
				zap.Int("errors", s.ErrorCount),
			)
		},
	}

	metricsSrv := metrics.StartMetricsServer(log, cfg.MetricsPort,
		metrics.Check{Name: "postgres", Fn: pg.PingContext},
		metrics.Check{Name: "redis", Fn: func(ctx context.Context) error { return rdb.Ping(ctx).Err() }},
	)

	// Sinalização para shutdown gracioso (SIGINT/SIGTERM)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// varredura periódica opcional, para apostas que perderam o evento
	if cfg.SettlementSweepInterval > 0 {
		go app.Sweep(ctx, log, a.Orchestrator, cfg.SettlementSweepInterval, cfg.SettlementRunTimeout)
	}

	log.Info("settlement-worker started", zap.String("topic", cfg.TopicDrawResult))
	if err := proc.Run(ctx); err != nil && ctx.Err() == nil {
		log.Error("processor stopped with error", zap.Error(err))
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = metricsSrv.Shutdown(shutdownCtx)
	log.Info("settlement-worker stopped")
}
