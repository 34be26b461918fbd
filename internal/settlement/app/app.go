// Package app monta o grafo da liquidação (repositórios, cache, lock, publishers,
// métricas e orquestrador) compartilhado pela settlement-service e pelo settlement-worker.
package app

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/lottery-settlement-platform/internal/settlement/cache"
	"github.com/radieske/lottery-settlement-platform/internal/settlement/orchestrator"
	"github.com/radieske/lottery-settlement-platform/internal/settlement/publisher"
	"github.com/radieske/lottery-settlement-platform/internal/settlement/repo"
	"github.com/radieske/lottery-settlement-platform/internal/shared/config"
	"github.com/radieske/lottery-settlement-platform/internal/shared/kafka"
	"github.com/radieske/lottery-settlement-platform/internal/shared/metrics"
	walletrepo "github.com/radieske/lottery-settlement-platform/internal/wallet-service/repo"
)

type App struct {
	Log          *zap.Logger
	Repo         *repo.Postgres
	Results      *cache.ResultCache
	Orchestrator *orchestrator.Orchestrator
	Metrics      *metrics.Settlement
	DrawResults  *publisher.DrawResultPublisher

	writers []*kafka.Writer
}

// New conecta as peças a partir da config; pg e rdb já devem estar abertos
func New(cfg config.Config, log *zap.Logger, pg *sql.DB, rdb *redis.Client, reg prometheus.Registerer) *App {
	a := &App{Log: log, Repo: repo.NewPostgres(pg), Metrics: metrics.NewSettlement(reg)}

	betSettled := a.writer(cfg.KafkaBrokers, cfg.TopicBetSettled)
	reconciliation := a.writer(cfg.KafkaBrokers, cfg.TopicReconciliation)
	a.DrawResults = &publisher.DrawResultPublisher{Writer: a.writer(cfg.KafkaBrokers, cfg.TopicDrawResult)}

	a.Results = cache.NewResultCache(rdb, a.Repo, cfg.ResultCacheTTL)

	o := orchestrator.New(log, a.Repo, a.Results, a.Repo, walletrepo.NewPostgres(pg))
	o.Lock = cache.NewRunLock(rdb, cfg.SettlementLockTTL)
	o.Notifier = publisher.NewBetSettledNotifier(log, betSettled, rdb, cfg.RedisPubSubChannel)
	o.Reporter = &publisher.ReconciliationReporter{Writer: reconciliation}
	o.BatchSize = cfg.SettlementBatchSize
	o.Workers = cfg.SettlementWorkers
	o.MaxErrorDetails = cfg.SettlementMaxErrorDetails
	Instrument(o, a.Metrics)
	a.Orchestrator = o
	return a
}

// Instrument liga os callbacks do orquestrador aos coletores Prometheus
func Instrument(o *orchestrator.Orchestrator, m *metrics.Settlement) {
	o.OnBet = m.ObserveBet
	o.OnError = m.ObserveError
	o.OnWin = m.ObserveWin
	o.OnInconsistency = m.ObserveInconsistency
	o.OnRun = m.ObserveRun
}

type Runner interface {
	Run(ctx context.Context, f orchestrator.Filter) (orchestrator.Summary, error)
}

// Sweep roda ScanAllPending a cada intervalo até ctx ser cancelado, seguindo o cursor
// até a última página. Cada página tem seu próprio timeout; execução concorrente não é erro.
func Sweep(ctx context.Context, log *zap.Logger, runner Runner, every, timeout time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			sweepOnce(ctx, log, runner, now.Format("2006-01-02"), timeout)
		}
	}
}

const maxSweepPages = 1000

func sweepOnce(ctx context.Context, log *zap.Logger, runner Runner, today string, timeout time.Duration) {
	f := orchestrator.Filter{ScanAllPending: true, DrawnBy: today}
	for page := 0; page < maxSweepPages; page++ {
		rctx, cancel := context.WithTimeout(ctx, timeout)
		sum, err := runner.Run(rctx, f)
		cancel()
		switch {
		case errors.Is(err, orchestrator.ErrRunInProgress):
			log.Debug("sweep skipped, run in progress")
			return
		case err != nil:
			log.Error("sweep failed", zap.Error(err))
			return
		}
		if sum.Processed > 0 {
			log.Info("sweep page done",
				zap.String("run_id", sum.RunID),
				zap.Int("page", page),
				zap.Int("processed", sum.Processed),
				zap.Int("won", sum.Won),
				zap.Int("lost", sum.Lost),
				zap.Int("errors", sum.ErrorCount),
				zap.Bool("partial", sum.Partial),
			)
		}
		if sum.Next == nil {
			return
		}
		f.After = sum.Next
	}
}

// Close fecha os writers Kafka
func (a *App) Close() {
	for _, w := range a.writers {
		if err := w.Close(); err != nil {
			a.Log.Warn("kafka writer close", zap.String("topic", w.Topic), zap.Error(err))
		}
	}
}

func (a *App) writer(brokers, topic string) *kafka.Writer {
	w := kafka.NewWriter(brokers, topic)
	a.writers = append(a.writers, w)
	return w
}
