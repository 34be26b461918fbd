package placement

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/radieske/lottery-settlement-platform/internal/bet-service/dto"
	"github.com/radieske/lottery-settlement-platform/internal/lottery"
	"github.com/radieske/lottery-settlement-platform/internal/settlement/engine"
)

// ErrInvalidBet cobre qualquer pedido que não pode virar aposta (400)
var ErrInvalidBet = errors.New("invalid bet")

const dateLayout = "2006-01-02"

// Build valida o pedido contra a regra do tipo e gera uma aposta pending por província,
// com custo (StakeFor) e prêmio potencial já calculados. IDs ficam a cargo do repositório.
func Build(req dto.PlaceBetRequest, rule *lottery.BetTypeRule, now time.Time) ([]lottery.Bet, error) {
	if strings.TrimSpace(req.UserID) == "" {
		return nil, invalid("userId required")
	}
	region, err := lottery.ParseRegion(req.Region)
	if err != nil {
		return nil, invalid("%v", err)
	}
	if _, err := time.Parse(dateLayout, req.DrawDate); err != nil {
		return nil, invalid("drawDate must be YYYY-MM-DD")
	}
	betDate := now.Format(dateLayout)
	if req.DrawDate < betDate {
		return nil, invalid("drawDate %s is in the past", req.DrawDate)
	}
	provinces, err := distinctProvinces(req.ProvinceIDs)
	if err != nil {
		return nil, err
	}
	if err := checkVariant(req.Variant, rule); err != nil {
		return nil, err
	}
	if err := checkNumbers(req, rule); err != nil {
		return nil, err
	}

	bets := make([]lottery.Bet, 0, len(provinces))
	for _, p := range provinces {
		b := lottery.Bet{
			UserID:       req.UserID,
			BetDate:      betDate,
			DrawDate:     req.DrawDate,
			Region:       region,
			ProvinceID:   p,
			BetType:      rule.BetType,
			Variant:      req.Variant,
			Numbers:      append([]string(nil), req.Numbers...),
			Denomination: req.Denomination,
			Status:       lottery.StatusPending,
		}
		// mesma validação do motor: o que passa aqui só espera o resultado
		if err := engine.Validate(b, rule); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBet, err)
		}
		stake, err := lottery.StakeFor(b, rule)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidBet, err)
		}
		b.TotalStake = stake
		b.PotentialWin = lottery.PotentialWin(b, rule)
		bets = append(bets, b)
	}
	return bets, nil
}

// TotalStake soma o custo de todas as apostas do bilhete
func TotalStake(bets []lottery.Bet) int64 {
	var total int64
	for _, b := range bets {
		total += b.TotalStake
	}
	return total
}

func distinctProvinces(ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, invalid("provinceIds required")
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, invalid("empty provinceId")
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

func checkVariant(variant string, rule *lottery.BetTypeRule) error {
	if len(rule.Variants) == 0 {
		if variant != "" {
			return invalid("%s takes no variant", rule.BetType)
		}
		return nil
	}
	if _, ok := rule.Variant(variant); !ok {
		return invalid("variant %q not offered for %s", variant, rule.BetType)
	}
	return nil
}

func checkNumbers(req dto.PlaceBetRequest, rule *lottery.BetTypeRule) error {
	if len(req.Numbers) == 0 {
		return invalid("numbers required")
	}
	if req.Denomination <= 0 {
		return invalid("denomination must be positive")
	}
	width := rule.Digits(req.Variant)
	for _, n := range req.Numbers {
		if !lottery.IsDigits(n) || n == "" || (width > 0 && len(n) != width) {
			return invalid("number %q, want %d digits", n, width)
		}
	}
	if v, ok := rule.Variant(req.Variant); ok && v.NumberCount > 0 && len(req.Numbers) != v.NumberCount {
		return invalid("%s takes %d numbers, got %d", v.ID, v.NumberCount, len(req.Numbers))
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidBet}, args...)...)
}
