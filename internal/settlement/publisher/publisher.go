package publisher

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/radieske/lottery-settlement-platform/internal/lottery"
	"github.com/radieske/lottery-settlement-platform/internal/settlement/orchestrator"
	"github.com/radieske/lottery-settlement-platform/internal/shared/kafka"
	"github.com/radieske/lottery-settlement-platform/pkg/contracts/events"
)

// BetSettledNotifier publica cada aposta liquidada no tópico bet_settled
// e replica no canal Redis que alimenta o WebSocket do bet-service
type BetSettledNotifier struct {
	Log     *zap.Logger
	Writer  kafka.MessageWriter
	Redis   *redis.Client // opcional
	Channel string
}

// NewBetSettledNotifier cria o notifier; redis pode ser nil (sem broadcast)
func NewBetSettledNotifier(log *zap.Logger, w kafka.MessageWriter, r *redis.Client, channel string) *BetSettledNotifier {
	return &BetSettledNotifier{Log: log, Writer: w, Redis: r, Channel: channel}
}

// BetSettled implementa orchestrator.Notifier
func (n *BetSettledNotifier) BetSettled(ctx context.Context, bet lottery.Bet) error {
	ev := ToEvent(bet)
	if err := kafka.WriteJSON(ctx, n.Writer, bet.ID, ev); err != nil {
		return err
	}
	if n.Redis == nil || n.Channel == "" {
		return nil
	}
	// broadcast é best-effort: o Kafka já é o registro durável
	b, _ := json.Marshal(ev)
	if err := n.Redis.Publish(ctx, n.Channel, b).Err(); err != nil && n.Log != nil {
		n.Log.Warn("redis publish bet_settled", zap.String("bet_id", bet.ID), zap.Error(err))
	}
	return nil
}

// ToEvent converte a aposta liquidada no contrato bet_settled
func ToEvent(bet lottery.Bet) events.BetSettled {
	ev := events.BetSettled{
		BetID:      bet.ID,
		UserID:     bet.UserID,
		ProvinceID: bet.ProvinceID,
		DrawDate:   bet.DrawDate,
		BetType:    string(bet.BetType),
		Status:     string(bet.Status),
		WinAmount:  bet.WinAmount,
		Ts:         time.Now().UTC(),
	}
	if bet.WinningDetails != nil {
		ev.Matches = bet.WinningDetails.Matches
	}
	if bet.SettledAt != nil {
		ev.Ts = *bet.SettledAt
	}
	return ev
}

// ReconciliationReporter envia inconsistências para o tópico settlement_reconciliation
type ReconciliationReporter struct {
	Writer kafka.MessageWriter
}

// ReportInconsistency implementa orchestrator.Reporter
func (r *ReconciliationReporter) ReportInconsistency(ctx context.Context, inc orchestrator.Inconsistency) error {
	return kafka.WriteJSON(ctx, r.Writer, inc.BetID, events.SettlementInconsistency{
		RunID:     inc.RunID,
		BetID:     inc.BetID,
		UserID:    inc.UserID,
		WinAmount: inc.WinAmount,
		Step:      string(inc.Step),
		Error:     inc.Error,
		Ts:        inc.At,
	})
}

// DrawResultPublisher anuncia um resultado recém-gravado (draw_result_published)
type DrawResultPublisher struct {
	Writer kafka.MessageWriter
}

// PublishDrawResult usa province:date como chave: eventos da mesma chave ficam na mesma partição
func (p *DrawResultPublisher) PublishDrawResult(ctx context.Context, r *lottery.DrawResult) error {
	return kafka.WriteJSON(ctx, p.Writer, r.ProvinceID+":"+r.Date, events.DrawResultPublished{
		ProvinceID:  r.ProvinceID,
		DrawDate:    r.Date,
		Region:      string(r.Region),
		PublishedAt: time.Now().UTC(),
	})
}
