package events

import "time"

// Aposta gravada como won sem o crédito correspondente (tópico "settlement_reconciliation")
type SettlementInconsistency struct {
	RunID     string    `json:"run_id"`
	BetID     string    `json:"bet_id"`
	UserID    string    `json:"user_id"`
	WinAmount int64     `json:"win_amount"`
	Step      string    `json:"step"` // record_transaction | credit_balance
	Error     string    `json:"error"`
	Ts        time.Time `json:"ts"`
}
