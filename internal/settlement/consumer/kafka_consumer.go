package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/lottery-settlement-platform/internal/settlement/orchestrator"
	sharedkafka "github.com/radieske/lottery-settlement-platform/internal/shared/kafka"
	"github.com/radieske/lottery-settlement-platform/pkg/contracts/events"
)

const (
	defaultRetries  = 3
	defaultBackoff  = 300 * time.Millisecond
	defaultMaxPages = 100
	defaultLockWait = 5 * time.Minute
)

// Runner executa uma passada de liquidação (o Orchestrator)
type Runner interface {
	Run(ctx context.Context, f orchestrator.Filter) (orchestrator.Summary, error)
}

// Processor consome draw_result_published e liquida as apostas da (data, província) publicada.
// Mensagens que falham após os retries vão para a DLQ; o offset só é commitado depois disso.
type Processor struct {
	Log    *zap.Logger
	Reader sharedkafka.MessageReader
	Runner Runner
	DLQ    sharedkafka.MessageWriter // opcional

	Retries  int
	Backoff  time.Duration
	MaxPages int
	PageSize int           // 0 = BatchSize do orchestrator
	LockWait time.Duration // quanto esperar por outra execução na mesma chave antes de contar como falha

	OnConsumed func()                     // métricas
	OnSettled  func(orchestrator.Summary) // uma chamada por página
	OnError    func(string)               // métricas por fase
	OnDLQ      func()
}

// Run inicia o loop de consumo; retorna quando ctx é cancelado
func (p *Processor) Run(ctx context.Context) error {
	for {
		m, err := p.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.Log.Warn("kafka fetch failed", zap.Error(err))
			p.fail("read")
			time.Sleep(500 * time.Millisecond)
			continue
		}
		if p.OnConsumed != nil {
			p.OnConsumed()
		}

		if err := p.Handle(ctx, m); err != nil {
			if ctx.Err() != nil {
				return ctx.Err() // sem commit: a mensagem volta no próximo start
			}
			p.Log.Error("draw result not settled, sent to dlq", zap.ByteString("key", m.Key), zap.Error(err))
			p.toDLQ(ctx, m, err)
		}
		if err := p.Reader.CommitMessages(ctx, m); err != nil {
			p.Log.Warn("kafka commit failed", zap.Error(err))
			p.fail("commit")
		}
	}
}

// Handle decodifica o evento e liquida com retry e backoff linear
func (p *Processor) Handle(ctx context.Context, m kafka.Message) error {
	var ev events.DrawResultPublished
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		p.fail("decode")
		return fmt.Errorf("decode draw_result_published: %w", err)
	}
	f := orchestrator.Filter{Date: ev.DrawDate, ProvinceID: ev.ProvinceID, Limit: p.PageSize}
	if err := f.Validate(); err != nil {
		p.fail("decode")
		return err
	}

	retries := p.Retries
	if retries <= 0 {
		retries = defaultRetries
	}
	backoff := p.Backoff
	if backoff <= 0 {
		backoff = defaultBackoff
	}

	lockWait := p.LockWait
	if lockWait <= 0 {
		lockWait = defaultLockWait
	}
	lockUntil := time.Now().Add(lockWait)

	attempt := 0
	for {
		err := p.settleAll(ctx, f)
		if err == nil {
			return nil
		}
		if errors.Is(err, orchestrator.ErrRunInProgress) && time.Now().Before(lockUntil) {
			// outra execução segura a chave; espera sem gastar retry
			p.Log.Debug("settlement run in progress, waiting",
				zap.String("province_id", ev.ProvinceID),
				zap.String("draw_date", ev.DrawDate),
			)
			if err := sleep(ctx, backoff); err != nil {
				return err
			}
			continue
		}
		p.fail("settle")
		attempt++
		p.Log.Warn("settlement attempt failed",
			zap.String("province_id", ev.ProvinceID),
			zap.String("draw_date", ev.DrawDate),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if attempt > retries {
			return err
		}
		if err := sleep(ctx, time.Duration(attempt)*backoff); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// settleAll segue o cursor até a última página. Apostas com erro/skip continuam
// pending; o cursor passa por elas para não repetir a mesma página.
func (p *Processor) settleAll(ctx context.Context, f orchestrator.Filter) error {
	maxPages := p.MaxPages
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	for page := 0; page < maxPages; page++ {
		sum, err := p.Runner.Run(ctx, f)
		if err != nil {
			return err
		}
		if p.OnSettled != nil {
			p.OnSettled(sum)
		}
		p.Log.Info("settlement page done",
			zap.String("run_id", sum.RunID),
			zap.String("province_id", f.ProvinceID),
			zap.String("draw_date", f.Date),
			zap.Int("processed", sum.Processed),
			zap.Int("won", sum.Won),
			zap.Int("lost", sum.Lost),
			zap.Int("skipped", sum.Skipped),
			zap.Int("errors", sum.ErrorCount),
		)
		if sum.Partial {
			return errors.New("settlement run interrupted")
		}
		if sum.Processed == 0 || sum.Next == nil {
			return nil
		}
		f.After = sum.Next
	}
	p.Log.Warn("settlement page limit reached",
		zap.String("province_id", f.ProvinceID),
		zap.String("draw_date", f.Date),
		zap.Int("max_pages", maxPages),
	)
	return nil
}

func (p *Processor) toDLQ(ctx context.Context, m kafka.Message, cause error) {
	if p.DLQ == nil {
		return
	}
	msg := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: append(m.Headers,
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
			kafka.Header{Key: "source_topic", Value: []byte(m.Topic)},
		),
		Time: time.Now(),
	}
	if err := p.DLQ.WriteMessages(ctx, msg); err != nil {
		p.Log.Error("dlq write failed", zap.Error(err))
		p.fail("dlq")
		return
	}
	if p.OnDLQ != nil {
		p.OnDLQ()
	}
}

func (p *Processor) fail(stage string) {
	if p.OnError != nil {
		p.OnError(stage)
	}
}
