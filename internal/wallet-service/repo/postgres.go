package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/radieske/lottery-settlement-platform/internal/lottery"
)

// Postgres implementa carteira e ledger em banco.
// Também é o Ledger do orquestrador (RecordWinTransaction + CreditBalance).
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

var (
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrNotFound             = errors.New("not found")
	ErrDuplicateTransaction = errors.New("transaction already recorded for bet")
)

// código SQLSTATE de unique_violation
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// GetOrCreateWallet retorna o walletId e saldo de um usuário, criando a carteira se não existir
// Usa transação para garantir atomicidade
func (p *Postgres) GetOrCreateWallet(ctx context.Context, userID string) (walletID string, balance int64, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, err
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `SELECT id, balance FROM wallets WHERE user_id=$1`, userID).Scan(&walletID, &balance)
	if errors.Is(err, sql.ErrNoRows) {
		walletID = uuid.NewString()
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO wallets(id, user_id, balance, version) VALUES($1,$2,0,1)`,
			walletID, userID); err != nil {
			return "", 0, err
		}
		balance = 0
	} else if err != nil {
		return "", 0, err
	}

	if err = tx.Commit(); err != nil {
		return "", 0, err
	}
	return walletID, balance, nil
}

// Deposit incrementa o saldo e registra a transação deposit
// Garante lock pessimista na linha da carteira
func (p *Postgres) Deposit(ctx context.Context, userID string, amount int64, externalRef string) (walletID string, newBalance int64, err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return "", 0, err
	}
	defer tx.Rollback()

	if err = tx.QueryRowContext(ctx, `SELECT id FROM wallets WHERE user_id=$1 FOR UPDATE`, userID).Scan(&walletID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", 0, ErrNotFound
		}
		return "", 0, err
	}

	if err = tx.QueryRowContext(ctx,
		`UPDATE wallets SET balance = balance + $1, version = version + 1, updated_at = NOW() WHERE id=$2 RETURNING balance`,
		amount, walletID).Scan(&newBalance); err != nil {
		return "", 0, err
	}

	if _, err = tx.ExecContext(ctx, `
		INSERT INTO transactions(id, user_id, bet_id, amount, type, status, description)
		VALUES($1,$2,NULL,$3,$4,'completed',$5)`,
		uuid.NewString(), userID, amount, string(lottery.TxDeposit), "deposit:"+externalRef); err != nil {
		return "", 0, err
	}

	if err = tx.Commit(); err != nil {
		return "", 0, err
	}
	return walletID, newBalance, nil
}

// DebitForBet debita o custo de uma aposta dentro da transação SQL de quem chama
// (o bet-service grava a aposta na mesma tx) e registra a transação bet
func DebitForBet(ctx context.Context, tx *sql.Tx, userID, betID string, amount int64) error {
	var walletID string
	var balance int64
	if err := tx.QueryRowContext(ctx, `SELECT id, balance FROM wallets WHERE user_id=$1 FOR UPDATE`, userID).Scan(&walletID, &balance); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrInsufficientFunds // carteira inexistente = saldo zero
		}
		return err
	}
	if balance < amount {
		return ErrInsufficientFunds
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE wallets SET balance = balance - $1, version = version + 1, updated_at = NOW() WHERE id=$2`,
		amount, walletID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transactions(id, user_id, bet_id, amount, type, status, description)
		VALUES($1,$2,$3,$4,$5,'completed',$6)`,
		uuid.NewString(), userID, betID, -amount, string(lottery.TxBet), "bet:"+betID); err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateTransaction
		}
		return err
	}
	return nil
}

// RecordWinTransaction registra o prêmio no ledger.
// Idempotência: índice único (bet_id, type); a segunda tentativa devolve ErrDuplicateTransaction.
func (p *Postgres) RecordWinTransaction(ctx context.Context, userID, betID string, amount int64) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO transactions(id, user_id, bet_id, amount, type, status, description)
		VALUES($1,$2,$3,$4,$5,'completed',$6)`,
		uuid.NewString(), userID, betID, amount, string(lottery.TxWin), "win:"+betID)
	if isUniqueViolation(err) {
		return ErrDuplicateTransaction
	}
	return err
}

// CreditBalance soma amount ao saldo com incremento atômico (sem read-then-write).
// Cria a carteira se o usuário ainda não tiver uma.
func (p *Postgres) CreditBalance(ctx context.Context, userID string, amount int64) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO wallets(id, user_id, balance, version) VALUES($1,$2,$3,1)
		ON CONFLICT (user_id) DO UPDATE
		SET balance = wallets.balance + EXCLUDED.balance, version = wallets.version + 1, updated_at = NOW()`,
		uuid.NewString(), userID, amount)
	return err
}

// ListTransactions retorna o extrato do usuário, mais recentes primeiro
func (p *Postgres) ListTransactions(ctx context.Context, userID string, limit int) ([]lottery.Transaction, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, user_id, COALESCE(bet_id::text, ''), amount, type, status, description, created_at
		FROM transactions WHERE user_id=$1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []lottery.Transaction{}
	for rows.Next() {
		var t lottery.Transaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.BetID, &t.Amount, &t.Type, &t.Status, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
