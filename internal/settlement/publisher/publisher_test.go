package publisher

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/radieske/lottery-settlement-platform/internal/lottery"
	"github.com/radieske/lottery-settlement-platform/internal/settlement/orchestrator"
	"github.com/radieske/lottery-settlement-platform/pkg/contracts/events"
)

type captureWriter struct {
	msgs []kafka.Message
}

func (c *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func wonBet() lottery.Bet {
	at := time.Date(2025, 3, 20, 11, 0, 0, 0, time.UTC)
	return lottery.Bet{
		ID: "b1", UserID: "u1", ProvinceID: "hanoi", DrawDate: "2025-03-20",
		BetType: lottery.BetCover, Variant: lottery.VariantCover2, Numbers: []string{"57"},
		Denomination: 10000, Status: lottery.StatusWon, WinAmount: 1500000,
		WinningDetails: &lottery.WinningDetails{Matches: 2, Ratio: 75, Numbers: []string{"57"}},
		SettledAt:      &at,
	}
}

func TestBetSettledNotifierKafkaAndRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()

	ctx := context.Background()
	sub := rc.Subscribe(ctx, "bet_settled_broadcast")
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	w := &captureWriter{}
	n := NewBetSettledNotifier(zap.NewNop(), w, rc, "bet_settled_broadcast")
	if err := n.BetSettled(ctx, wonBet()); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "b1" {
		t.Fatalf("kafka msgs = %+v", w.msgs)
	}
	var ev events.BetSettled
	if err := json.Unmarshal(w.msgs[0].Value, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Status != "won" || ev.WinAmount != 1500000 || ev.Matches != 2 || ev.BetType != "bao_lo" {
		t.Fatalf("event = %+v", ev)
	}
	if !ev.Ts.Equal(*wonBet().SettledAt) {
		t.Fatalf("ts = %s", ev.Ts)
	}

	select {
	case m := <-sub.Channel():
		var got events.BetSettled
		if err := json.Unmarshal([]byte(m.Payload), &got); err != nil || got.BetID != "b1" {
			t.Fatalf("redis payload = %s (%v)", m.Payload, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no redis broadcast")
	}
}

func TestBetSettledNotifierWithoutRedis(t *testing.T) {
	w := &captureWriter{}
	bet := wonBet()
	bet.Status, bet.WinAmount, bet.WinningDetails = lottery.StatusLost, 0, nil
	if err := NewBetSettledNotifier(zap.NewNop(), w, nil, "").BetSettled(context.Background(), bet); err != nil {
		t.Fatalf("notify: %v", err)
	}
	var ev events.BetSettled
	_ = json.Unmarshal(w.msgs[0].Value, &ev)
	if ev.Status != "lost" || ev.Matches != 0 {
		t.Fatalf("event = %+v", ev)
	}
}

func TestReconciliationReporter(t *testing.T) {
	w := &captureWriter{}
	at := time.Date(2025, 3, 20, 11, 0, 0, 0, time.UTC)
	err := (&ReconciliationReporter{Writer: w}).ReportInconsistency(context.Background(), orchestrator.Inconsistency{
		RunID: "r1", BetID: "b1", UserID: "u1", WinAmount: 750000,
		Step: orchestrator.StepCreditBalance, Error: "connection reset", At: at,
	})
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	var ev events.SettlementInconsistency
	if err := json.Unmarshal(w.msgs[0].Value, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.Step != "credit_balance" || ev.WinAmount != 750000 || ev.RunID != "r1" || !ev.Ts.Equal(at) {
		t.Fatalf("event = %+v", ev)
	}
}

func TestDrawResultPublisher(t *testing.T) {
	w := &captureWriter{}
	r := &lottery.DrawResult{ProvinceID: "tphcm", Date: "2025-03-22", Region: lottery.RegionM1}
	if err := (&DrawResultPublisher{Writer: w}).PublishDrawResult(context.Background(), r); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if string(w.msgs[0].Key) != "tphcm:2025-03-22" {
		t.Fatalf("key = %s", w.msgs[0].Key)
	}
	var ev events.DrawResultPublished
	if err := json.Unmarshal(w.msgs[0].Value, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ev.ProvinceID != "tphcm" || ev.DrawDate != "2025-03-22" || ev.Region != "M1" {
		t.Fatalf("event = %+v", ev)
	}
}
