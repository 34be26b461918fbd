package lottery

import (
	"errors"
	"fmt"
)

var (
	ErrNoNumbers        = errors.New("bet has no numbers")
	ErrBadDenomination  = errors.New("denomination must be positive")
	ErrRegionNotAllowed = errors.New("bet type not offered in region")
	ErrMultiplier       = errors.New("rule has no stake multiplier for variant")
)

// Units é a quantidade de bilhetes cobrados por uma linha de aposta:
// um por número, um único bilhete para xiên e um por par no đá
func Units(betType BetType, numbers int) int64 {
	switch betType {
	case BetCombination:
		if numbers == 0 {
			return 0
		}
		return 1
	case BetPair:
		return int64(numbers * (numbers - 1) / 2)
	default:
		return int64(numbers)
	}
}

// StakeFor calcula o custo total de uma aposta em uma província:
// denominação x multiplicador da região x combinações x unidades
func StakeFor(bet Bet, rule *BetTypeRule) (int64, error) {
	if len(bet.Numbers) == 0 {
		return 0, ErrNoNumbers
	}
	if bet.Denomination <= 0 {
		return 0, ErrBadDenomination
	}
	rr, ok := rule.Region(bet.Region)
	if !ok {
		return 0, fmt.Errorf("%w: %s/%s", ErrRegionNotAllowed, rule.BetType, bet.Region)
	}
	mult, ok := rr.Multiplier.Resolve(bet.Variant)
	if !ok {
		return 0, fmt.Errorf("%w: %s/%s", ErrMultiplier, rule.BetType, bet.Variant)
	}
	combos := int64(rr.Combinations)
	if combos <= 0 {
		combos = 1
	}
	return bet.Denomination * mult * combos * Units(bet.BetType, len(bet.Numbers)), nil
}

// PotentialWin é o prêmio se cada unidade acertar exatamente uma vez
func PotentialWin(bet Bet, rule *BetTypeRule) int64 {
	ratio, ok := rule.WinningRatio.Resolve(bet.Variant)
	if !ok {
		return 0
	}
	return bet.Denomination * ratio * Units(bet.BetType, len(bet.Numbers))
}
