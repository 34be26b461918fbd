package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Settlement agrupa os coletores da liquidação (settlement-service e settlement-worker)
type Settlement struct {
	Bets            *prometheus.CounterVec
	Errors          *prometheus.CounterVec
	WinAmount       prometheus.Counter
	RunDuration     prometheus.Histogram
	Inconsistencies *prometheus.CounterVec
}

// NewSettlement cria e registra os coletores no registry informado
func NewSettlement(reg prometheus.Registerer) *Settlement {
	m := &Settlement{
		Bets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_bets_total", Help: "apostas examinadas por outcome",
		}, []string{"outcome"}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_errors_total", Help: "erros de liquidação por motivo",
		}, []string{"reason"}),
		WinAmount: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "settlement_win_amount_total", Help: "soma dos prêmios gravados",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "settlement_run_duration_seconds",
			Help:    "duração de cada execução",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 5, 15, 30, 60},
		}),
		Inconsistencies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "settlement_inconsistencies_total", Help: "apostas won sem crédito, por etapa",
		}, []string{"step"}),
	}
	reg.MustRegister(m.Bets, m.Errors, m.WinAmount, m.RunDuration, m.Inconsistencies)
	return m
}

func (m *Settlement) ObserveBet(outcome string) { m.Bets.WithLabelValues(outcome).Inc() }
func (m *Settlement) ObserveError(reason string) { m.Errors.WithLabelValues(reason).Inc() }
func (m *Settlement) ObserveWin(amount int64) { m.WinAmount.Add(float64(amount)) }
func (m *Settlement) ObserveInconsistency(step string) { m.Inconsistencies.WithLabelValues(step).Inc() }
func (m *Settlement) ObserveRun(d time.Duration) { m.RunDuration.Observe(d.Seconds()) }

// BetService: coletores do bet-service
type BetService struct {
	Placed   *prometheus.CounterVec
	Rejected *prometheus.CounterVec
}

func NewBetService(reg prometheus.Registerer) *BetService {
	m := &BetService{
		Placed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bets_placed_total", Help: "apostas aceitas por tipo",
		}, []string{"bet_type"}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bets_rejected_total", Help: "apostas recusadas por motivo",
		}, []string{"reason"}),
	}
	reg.MustRegister(m.Placed, m.Rejected)
	return m
}
