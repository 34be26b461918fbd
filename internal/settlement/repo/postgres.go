package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/radieske/lottery-settlement-platform/internal/lottery"
	"github.com/radieske/lottery-settlement-platform/internal/settlement/orchestrator"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrResultConflict = errors.New("result already published with different content")
)

// Postgres implementa BetStore, ResultRepository e RuleRepository do orquestrador
type Postgres struct{ db *sql.DB }

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

// BetColumns é a projeção usada por ScanBet (datas já formatadas YYYY-MM-DD)
const BetColumns = `id, user_id, to_char(bet_date, 'YYYY-MM-DD'), to_char(draw_date, 'YYYY-MM-DD'), region, province_id,
	bet_type, bet_variant, numbers, denomination, total_stake, potential_win, status, win_amount, winning_details,
	created_at, settled_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// ScanBet lê uma linha projetada com BetColumns
func ScanBet(row rowScanner) (lottery.Bet, error) {
	var (
		b       lottery.Bet
		win     sql.NullInt64
		details []byte
		settled sql.NullTime
	)
	if err := row.Scan(&b.ID, &b.UserID, &b.BetDate, &b.DrawDate, &b.Region, &b.ProvinceID,
		&b.BetType, &b.Variant, pq.Array(&b.Numbers), &b.Denomination, &b.TotalStake, &b.PotentialWin, &b.Status,
		&win, &details, &b.CreatedAt, &settled); err != nil {
		return lottery.Bet{}, err
	}
	b.WinAmount = win.Int64
	if settled.Valid {
		t := settled.Time
		b.SettledAt = &t
	}
	if len(details) > 0 {
		var d lottery.WinningDetails
		if err := json.Unmarshal(details, &d); err != nil {
			return lottery.Bet{}, fmt.Errorf("decode winning_details of bet %s: %w", b.ID, err)
		}
		b.WinningDetails = &d
	}
	return b, nil
}

// ListPending busca apostas pendentes do filtro, mais antigas primeiro, a partir do cursor
func (p *Postgres) ListPending(ctx context.Context, f orchestrator.Filter, limit int) ([]lottery.Bet, error) {
	where := []string{"status = 'pending'"}
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Date != "" {
		add("draw_date = $%d", f.Date)
	}
	if f.ProvinceID != "" {
		add("province_id = $%d", f.ProvinceID)
	}
	if f.BetType != "" {
		add("bet_type = $%d", string(f.BetType))
	}
	if f.DrawnBy != "" {
		add("draw_date <= $%d", f.DrawnBy)
	}
	if f.After != nil {
		args = append(args, f.After.CreatedAt, f.After.BetID)
		where = append(where, fmt.Sprintf("(created_at, id) > ($%d, $%d)", len(args)-1, len(args)))
	}
	args = append(args, limit)
	q := fmt.Sprintf(`SELECT %s FROM bets WHERE %s ORDER BY created_at, id LIMIT $%d`,
		BetColumns, strings.Join(where, " AND "), len(args))

	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []lottery.Bet
	for rows.Next() {
		b, err := ScanBet(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// UpdateBetOutcome grava o outcome só se a aposta ainda estiver pending.
// win_amount fica NULL quando a aposta perdeu.
func (p *Postgres) UpdateBetOutcome(ctx context.Context, betID string, status lottery.BetStatus, winAmount int64, details *lottery.WinningDetails) error {
	var raw any
	if details != nil {
		b, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("encode winning_details: %w", err)
		}
		raw = b
	}
	win := sql.NullInt64{Int64: winAmount, Valid: status == lottery.StatusWon}

	res, err := p.db.ExecContext(ctx, `
		UPDATE bets SET status=$2, win_amount=$3, winning_details=$4, settled_at=NOW()
		WHERE id=$1 AND status='pending'`, betID, string(status), win, raw)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return orchestrator.ErrNotPending
	}
	return nil
}

// GetBet retorna uma aposta pelo id
func (p *Postgres) GetBet(ctx context.Context, id string) (lottery.Bet, error) {
	b, err := ScanBet(p.db.QueryRowContext(ctx, `SELECT `+BetColumns+` FROM bets WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return lottery.Bet{}, ErrNotFound
	}
	return b, err
}

const resultColumns = `province_id, to_char(draw_date, 'YYYY-MM-DD'), day_of_week, region, prizes`

func scanResult(row rowScanner) (*lottery.DrawResult, []byte, error) {
	var (
		r   lottery.DrawResult
		raw []byte
	)
	if err := row.Scan(&r.ProvinceID, &r.Date, &r.DayOfWeek, &r.Region, &raw); err != nil {
		return nil, nil, err
	}
	return &r, raw, nil
}

func decodePrizes(r *lottery.DrawResult, raw []byte) error {
	prizes, err := lottery.DecodePrizes(raw)
	if err != nil {
		return fmt.Errorf("result %s/%s: %w", r.ProvinceID, r.Date, err)
	}
	r.Prizes = prizes
	return nil
}

// GetResults carrega, numa consulta, os resultados dos pares (província, data) pedidos.
// Pares sem resultado não aparecem; um resultado com prizes ilegível vai para Errors
// e não derruba o lote.
func (p *Postgres) GetResults(ctx context.Context, keys []lottery.ResultKey) (lottery.ResultSet, error) {
	out := lottery.NewResultSet()
	if len(keys) == 0 {
		return out, nil
	}
	provinces := make([]string, len(keys))
	dates := make([]string, len(keys))
	for i, k := range keys {
		provinces[i], dates[i] = k.ProvinceID, k.Date
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT `+resultColumns+` FROM draw_results
		WHERE (province_id, draw_date) IN (SELECT * FROM unnest($1::text[], $2::date[]))`,
		pq.Array(provinces), pq.Array(dates))
	if err != nil {
		return lottery.ResultSet{}, err
	}
	defer rows.Close()

	for rows.Next() {
		r, raw, err := scanResult(rows)
		if err != nil {
			return lottery.ResultSet{}, err
		}
		if err := decodePrizes(r, raw); err != nil {
			out.Errors[r.Key()] = err
			continue
		}
		out.Results[r.Key()] = r
	}
	if err := rows.Err(); err != nil {
		return lottery.ResultSet{}, err
	}
	return out, nil
}

// GetResult retorna um resultado ou ErrNotFound
func (p *Postgres) GetResult(ctx context.Context, provinceID, date string) (*lottery.DrawResult, error) {
	r, raw, err := scanResult(p.db.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM draw_results WHERE province_id=$1 AND draw_date=$2`, provinceID, date))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := decodePrizes(r, raw); err != nil {
		return nil, err
	}
	return r, nil
}

// SaveResult publica um resultado. Resultados são imutáveis:
// republicar o mesmo conteúdo devolve created=false; conteúdo diferente devolve ErrResultConflict.
func (p *Postgres) SaveResult(ctx context.Context, r *lottery.DrawResult) (created bool, err error) {
	if err := lottery.ValidatePrizes(r.Prizes); err != nil {
		return false, err
	}
	raw, err := json.Marshal(r.Prizes)
	if err != nil {
		return false, err
	}

	res, err := p.db.ExecContext(ctx, `
		INSERT INTO draw_results(province_id, draw_date, day_of_week, region, prizes)
		VALUES($1,$2,$3,$4,$5)
		ON CONFLICT (province_id, draw_date) DO NOTHING`,
		r.ProvinceID, r.Date, r.DayOfWeek, string(r.Region), raw)
	if err != nil {
		return false, err
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return true, nil
	}

	existing, err := p.GetResult(ctx, r.ProvinceID, r.Date)
	if err != nil {
		return false, err
	}
	if !existing.SameContent(r) {
		return false, ErrResultConflict
	}
	return false, nil
}

// GetRules carrega as regras ativas dos tipos pedidos.
// Regras com JSON inválido vão para RuleSet.Errors em vez de derrubar o lote.
func (p *Postgres) GetRules(ctx context.Context, types []lottery.BetType) (orchestrator.RuleSet, error) {
	set := orchestrator.RuleSet{
		Rules:  make(map[lottery.BetType]*lottery.BetTypeRule, len(types)),
		Errors: make(map[lottery.BetType]error),
	}
	if len(types) == 0 {
		return set, nil
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}

	rows, err := p.db.QueryContext(ctx, `
		SELECT bet_type, name, digit_count, region_rules, variants, winning_ratio
		FROM bet_type_rules WHERE active AND bet_type = ANY($1)`, pq.Array(names))
	if err != nil {
		return set, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			bt                            lottery.BetType
			name                          string
			digits                        int
			regionRules, variants, ratios []byte
		)
		if err := rows.Scan(&bt, &name, &digits, &regionRules, &variants, &ratios); err != nil {
			return set, err
		}
		rule, err := lottery.DecodeRule(bt, name, digits, regionRules, variants, ratios)
		if err != nil {
			set.Errors[bt] = err
			continue
		}
		set.Rules[bt] = rule
	}
	return set, rows.Err()
}

// GetRule carrega uma regra (usada pelo bet-service para calcular o custo)
func (p *Postgres) GetRule(ctx context.Context, bt lottery.BetType) (*lottery.BetTypeRule, error) {
	set, err := p.GetRules(ctx, []lottery.BetType{bt})
	if err != nil {
		return nil, err
	}
	if err := set.Errors[bt]; err != nil {
		return nil, err
	}
	rule, ok := set.Rules[bt]
	if !ok {
		return nil, ErrNotFound
	}
	return rule, nil
}
