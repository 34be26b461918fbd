package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSettlementCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewSettlement(reg)

	m.ObserveBet("won")
	m.ObserveBet("won")
	m.ObserveBet("lost")
	m.ObserveError("unknown_bet_type")
	m.ObserveWin(750000)
	m.ObserveInconsistency("credit_balance")
	m.ObserveRun(2 * time.Second)

	if v := testutil.ToFloat64(m.Bets.WithLabelValues("won")); v != 2 {
		t.Errorf("won = %v", v)
	}
	if v := testutil.ToFloat64(m.WinAmount); v != 750000 {
		t.Errorf("win amount = %v", v)
	}
	if v := testutil.ToFloat64(m.Inconsistencies.WithLabelValues("credit_balance")); v != 1 {
		t.Errorf("inconsistencies = %v", v)
	}
	if n := testutil.CollectAndCount(m.RunDuration); n != 1 {
		t.Errorf("run duration series = %d", n)
	}
}

func TestBetServiceCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBetService(reg)
	m.Placed.WithLabelValues("bao_lo").Inc()
	if v := testutil.ToFloat64(m.Placed.WithLabelValues("bao_lo")); v != 1 {
		t.Errorf("placed = %v", v)
	}
}
