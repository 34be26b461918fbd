package orchestrator

import (
	"context"
	"errors"

	"github.com/radieske/lottery-settlement-platform/internal/lottery"
)

// ErrNotPending é devolvido pelo BetStore quando a aposta já saiu de pending
// (outra execução liquidou primeiro)
var ErrNotPending = errors.New("bet is not pending")

// BetStore lê apostas pendentes e grava o outcome de forma condicional
type BetStore interface {
	ListPending(ctx context.Context, f Filter, limit int) ([]lottery.Bet, error)
	// UpdateBetOutcome só altera a linha se status ainda for pending
	UpdateBetOutcome(ctx context.Context, betID string, status lottery.BetStatus, winAmount int64, details *lottery.WinningDetails) error
}

// ResultRepository carrega os resultados do lote; resultados ilegíveis vão em ResultSet.Errors
type ResultRepository interface {
	GetResults(ctx context.Context, keys []lottery.ResultKey) (lottery.ResultSet, error)
}

// RuleSet guarda as regras decodificadas e, separadamente, as que falharam no decode
type RuleSet struct {
	Rules  map[lottery.BetType]*lottery.BetTypeRule
	Errors map[lottery.BetType]error
}

type RuleRepository interface {
	GetRules(ctx context.Context, types []lottery.BetType) (RuleSet, error)
}

// Ledger aplica o crédito de prêmio: transação win + incremento atômico de saldo
type Ledger interface {
	RecordWinTransaction(ctx context.Context, userID, betID string, amount int64) error
	CreditBalance(ctx context.Context, userID string, amount int64) error
}

// RunLock impede duas execuções sobre o mesmo escopo ao mesmo tempo
type RunLock interface {
	TryLock(ctx context.Context, key string) (unlock func(), ok bool, err error)
}

// Notifier publica a aposta liquidada (bet_settled)
type Notifier interface {
	BetSettled(ctx context.Context, bet lottery.Bet) error
}

// Reporter encaminha inconsistências para reconciliação manual
type Reporter interface {
	ReportInconsistency(ctx context.Context, inc Inconsistency) error
}
