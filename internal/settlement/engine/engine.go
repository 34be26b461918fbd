// Package engine liquida uma aposta contra um resultado publicado.
// Não faz I/O e não altera nenhum dos argumentos.
package engine

import (
	"github.com/radieske/lottery-settlement-platform/internal/lottery"
)

// Outcome é o resultado determinístico da liquidação de uma aposta
type Outcome struct {
	IsWinning bool
	WinAmount int64
	Matches   int
	Ratio     int64
	Details   *lottery.WinningDetails
}

// Status traduz o outcome para o status terminal da aposta
func (o Outcome) Status() lottery.BetStatus {
	if o.IsWinning {
		return lottery.StatusWon
	}
	return lottery.StatusLost
}

// input reúne o que a estratégia precisa, já validado
type input struct {
	bet     lottery.Bet
	result  *lottery.DrawResult
	rule    *lottery.BetTypeRule
	region  lottery.RegionRule
	variant lottery.Variant
	ratio   int64
}

// Settle calcula se a aposta ganhou, quanto e por quê
func Settle(bet lottery.Bet, result *lottery.DrawResult, rule *lottery.BetTypeRule) (Outcome, error) {
	if result == nil || result.ProvinceID != bet.ProvinceID || result.Date != bet.DrawDate {
		return Outcome{}, newErr(KindNoResultYet, bet.BetType, "", "no result for %s on %s", bet.ProvinceID, bet.DrawDate)
	}
	in, strat, err := prepare(bet, rule)
	if err != nil {
		return Outcome{}, err
	}
	if result.Region != "" && result.Region != bet.Region {
		return Outcome{}, newErr(KindUnsupportedRegion, bet.BetType, "", "bet region %s, result region %s", bet.Region, result.Region)
	}
	in.result = result

	matches, hits, err := strat.match(&in)
	if err != nil {
		return Outcome{}, err
	}
	if matches == 0 {
		return Outcome{Ratio: in.ratio}, nil
	}
	return Outcome{
		IsWinning: true,
		WinAmount: int64(matches) * bet.Denomination * in.ratio,
		Matches:   matches,
		Ratio:     in.ratio,
		Details: &lottery.WinningDetails{
			Matches: matches,
			Ratio:   in.ratio,
			Numbers: distinctNumbers(hits),
			Hits:    hits,
		},
	}, nil
}

// Validate aplica à aposta as mesmas checagens de Settle que não dependem do resultado.
// Uma aposta aceita aqui só deixa de ser liquidada por falta de resultado.
func Validate(bet lottery.Bet, rule *lottery.BetTypeRule) error {
	_, _, err := prepare(bet, rule)
	return err
}

func prepare(bet lottery.Bet, rule *lottery.BetTypeRule) (input, strategy, error) {
	if rule == nil || rule.BetType != bet.BetType {
		return input{}, nil, newErr(KindUnknownBetType, bet.BetType, "", "no rule for bet type")
	}
	strat, ok := strategies[bet.BetType]
	if !ok {
		return input{}, nil, newErr(KindUnknownBetType, bet.BetType, "", "no settlement strategy")
	}
	region, ok := rule.Region(bet.Region)
	if !ok {
		return input{}, nil, newErr(KindUnsupportedRegion, bet.BetType, "region_rules", "region %s not offered", bet.Region)
	}

	in := input{bet: bet, rule: rule, region: region}
	switch {
	case len(rule.Variants) == 0 && bet.Variant != "":
		return input{}, nil, newErr(KindInvalidVariant, bet.BetType, "variants", "bet type has no variants, got %q", bet.Variant)
	case len(rule.Variants) > 0:
		v, ok := rule.Variant(bet.Variant)
		if !ok {
			return input{}, nil, newErr(KindInvalidVariant, bet.BetType, "variants", "variant %q not declared", bet.Variant)
		}
		in.variant = v
	}
	if !strat.accepts(bet.Variant) {
		return input{}, nil, newErr(KindInvalidVariant, bet.BetType, "", "variant %q has no matching semantics", bet.Variant)
	}

	if err := checkNumbers(&in, strat); err != nil {
		return input{}, nil, err
	}

	ratio, ok := rule.WinningRatio.Resolve(bet.Variant)
	if !ok {
		return input{}, nil, newErr(KindMalformedRuleData, bet.BetType, "winning_ratio", "no ratio for variant %q", bet.Variant)
	}
	in.ratio = ratio
	return in, strat, nil
}

// checkNumbers valida largura, quantidade e dígitos dos números apostados
func checkNumbers(in *input, strat strategy) error {
	bet := in.bet
	if len(bet.Numbers) == 0 {
		return newErr(KindMalformedBet, bet.BetType, "numbers", "no numbers")
	}
	if bet.Denomination <= 0 {
		return newErr(KindMalformedBet, bet.BetType, "denomination", "denomination %d", bet.Denomination)
	}
	width := strat.width(in)
	if width <= 0 {
		return newErr(KindMalformedRuleData, bet.BetType, "digit_count", "no digit count for variant %q", bet.Variant)
	}
	for _, n := range bet.Numbers {
		if len(n) != width || !lottery.IsDigits(n) {
			return newErr(KindMalformedBet, bet.BetType, "numbers", "number %q, want %d digits", n, width)
		}
	}
	if in.variant.NumberCount > 0 && len(bet.Numbers) != in.variant.NumberCount {
		return newErr(KindMalformedBet, bet.BetType, "numbers", "variant %s takes %d numbers, got %d", bet.Variant, in.variant.NumberCount, len(bet.Numbers))
	}
	return strat.checkNumbers(in)
}

func distinctNumbers(hits []lottery.Hit) []string {
	seen := make(map[string]bool, len(hits))
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if !seen[h.Number] {
			seen[h.Number] = true
			out = append(out, h.Number)
		}
	}
	return out
}
