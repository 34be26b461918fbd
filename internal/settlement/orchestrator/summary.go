package orchestrator

import (
	"fmt"
	"sync"
	"time"

	"github.com/radieske/lottery-settlement-platform/internal/lottery"
)

// Step é a etapa de persistência que falhou
type Step string

const (
	StepUpdateBet         Step = "update_bet"
	StepRecordTransaction Step = "record_transaction"
	StepCreditBalance     Step = "credit_balance"
)

// PersistenceError envolve a falha de uma etapa de persistência
type PersistenceError struct {
	Step Step
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence_failure at %s: %v", e.Step, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// motivos de skip (não são erros)
const (
	SkipNoResult       = "no_result_yet"
	SkipAlreadySettled = "already_settled"
)

type BetError struct {
	BetID  string `json:"betId"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

type Skip struct {
	BetID  string `json:"betId"`
	Reason string `json:"reason"`
}

// Inconsistency: aposta gravada como won sem o crédito correspondente
type Inconsistency struct {
	RunID     string    `json:"runId"`
	BetID     string    `json:"betId"`
	UserID    string    `json:"userId"`
	WinAmount int64     `json:"winAmount"`
	Step      Step      `json:"step"`
	Error     string    `json:"error"`
	At        time.Time `json:"at"`
}

// Summary é o relatório de uma execução.
// Processed conta as apostas examinadas; Won/Lost/TotalWinAmount refletem o que foi gravado.
// Errors e Skips são limitados a MaxErrorDetails; Inconsistencies nunca são cortadas.
type Summary struct {
	RunID           string          `json:"runId"`
	Processed       int             `json:"processed"`
	Won             int             `json:"won"`
	Lost            int             `json:"lost"`
	Skipped         int             `json:"skipped"`
	ErrorCount      int             `json:"errorCount"`
	TotalWinAmount  int64           `json:"totalWinAmount"`
	Errors          []BetError      `json:"errors"`
	Skips           []Skip          `json:"skips"`
	Inconsistencies []Inconsistency `json:"inconsistencies,omitempty"`
	Partial         bool            `json:"partial"`
	Next            *Cursor         `json:"next,omitempty"` // página cheia: pode haver mais pendentes depois
	Duration        time.Duration   `json:"-"`
	DurationMs      int64           `json:"durationMs"`
}

// tally acumula o Summary a partir de vários workers
type tally struct {
	mu  sync.Mutex
	sum Summary
	max int
}

func newTally(runID string, max int) *tally {
	return &tally{sum: Summary{RunID: runID, Errors: []BetError{}, Skips: []Skip{}}, max: max}
}

func (t *tally) processed() {
	t.mu.Lock()
	t.sum.Processed++
	t.mu.Unlock()
}

func (t *tally) partial() {
	t.mu.Lock()
	t.sum.Partial = true
	t.mu.Unlock()
}

func (t *tally) settled(status lottery.BetStatus, win int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if status == lottery.StatusWon {
		t.sum.Won++
		t.sum.TotalWinAmount += win
		return
	}
	t.sum.Lost++
}

func (t *tally) skip(betID, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sum.Skipped++
	if len(t.sum.Skips) < t.max {
		t.sum.Skips = append(t.sum.Skips, Skip{BetID: betID, Reason: reason})
	}
}

func (t *tally) fail(betID, reason, detail string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sum.ErrorCount++
	if len(t.sum.Errors) < t.max {
		t.sum.Errors = append(t.sum.Errors, BetError{BetID: betID, Reason: reason, Detail: detail})
	}
}

func (t *tally) inconsistent(inc Inconsistency) {
	t.mu.Lock()
	t.sum.Inconsistencies = append(t.sum.Inconsistencies, inc)
	t.mu.Unlock()
}

// next registra o cursor da próxima página; execução parcial recomeça do início
func (t *tally) next(last lottery.Bet) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.sum.Partial {
		t.sum.Next = &Cursor{CreatedAt: last.CreatedAt, BetID: last.ID}
	}
}

func (t *tally) finish(d time.Duration) Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sum.Duration = d
	t.sum.DurationMs = d.Milliseconds()
	return t.sum
}
