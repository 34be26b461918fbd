package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/radieske/lottery-settlement-platform/internal/lottery"
	settlementrepo "github.com/radieske/lottery-settlement-platform/internal/settlement/repo"
	walletrepo "github.com/radieske/lottery-settlement-platform/internal/wallet-service/repo"
)

// Postgres implementa operações de persistência de apostas em banco Postgres
type Postgres struct{ db *sql.DB }

// NewPostgres retorna uma instância do repositório de apostas
func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// PlaceBets grava as apostas como pending e debita a carteira na mesma transação.
// Saldo insuficiente desfaz tudo (walletrepo.ErrInsufficientFunds).
func (p *Postgres) PlaceBets(ctx context.Context, bets []lottery.Bet) ([]lottery.Bet, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	out := make([]lottery.Bet, 0, len(bets))
	for _, b := range bets {
		b.ID = uuid.NewString()
		b.Status = lottery.StatusPending
		if err := tx.QueryRowContext(ctx, `
			INSERT INTO bets (id, user_id, bet_date, draw_date, region, province_id, bet_type, bet_variant,
				numbers, denomination, total_stake, potential_win, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,'pending')
			RETURNING created_at`,
			b.ID, b.UserID, b.BetDate, b.DrawDate, string(b.Region), b.ProvinceID, string(b.BetType), b.Variant,
			pq.Array(b.Numbers), b.Denomination, b.TotalStake, b.PotentialWin,
		).Scan(&b.CreatedAt); err != nil {
			return nil, fmt.Errorf("insert bet: %w", err)
		}
		if err := walletrepo.DebitForBet(ctx, tx, b.UserID, b.ID, b.TotalStake); err != nil {
			return nil, err
		}
		out = append(out, b)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByUser retorna o histórico do usuário, mais recentes primeiro; status vazio = todos
func (p *Postgres) ListByUser(ctx context.Context, userID string, status lottery.BetStatus, limit int) ([]lottery.Bet, error) {
	q := `SELECT ` + settlementrepo.BetColumns + ` FROM bets WHERE user_id = $1`
	args := []any{userID}
	if status != "" {
		args = append(args, string(status))
		q += ` AND status = $` + strconv.Itoa(len(args))
	}
	args = append(args, limit)
	q += ` ORDER BY created_at DESC LIMIT $` + strconv.Itoa(len(args))

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []lottery.Bet
	for rows.Next() {
		b, err := settlementrepo.ScanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
