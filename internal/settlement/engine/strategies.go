package engine

import (
	"github.com/radieske/lottery-settlement-platform/internal/lottery"
)

// strategy encapsula seleção de faixas e contagem de acertos de um tipo de aposta
type strategy interface {
	accepts(variant string) bool
	width(in *input) int
	checkNumbers(in *input) error
	match(in *input) (int, []lottery.Hit, error)
}

// strategies é a tabela fechada tipo -> estratégia.
// Todo lottery.BetType precisa de uma entrada (ver TestStrategiesCoverAllBetTypes).
var strategies = map[lottery.BetType]strategy{
	lottery.BetHeadTail:     headTail{digits: 2},
	lottery.BetThreeDigit:   headTail{digits: 3},
	lottery.BetCover:        cover{},
	lottery.BetPartialCover: partialCover{},
	lottery.BetTopTwo:       topTwo{},
	lottery.BetCombination:  combination{},
	lottery.BetPair:         pair{},
}

// window é o sufixo de um número premiado
type window struct {
	suffix string
	tier   lottery.PrizeTier
	prize  string
}

func windows(r *lottery.DrawResult, tiers []lottery.PrizeTier, width int) []window {
	var out []window
	for _, t := range tiers {
		for _, p := range r.Numbers(t) {
			if len(p) >= width {
				out = append(out, window{suffix: p[len(p)-width:], tier: t, prize: p})
			}
		}
	}
	return out
}

// lineHits conta cada par (número apostado, prêmio) separadamente, sem deduplicar
func lineHits(numbers []string, ws []window) []lottery.Hit {
	var hits []lottery.Hit
	for _, n := range numbers {
		for _, w := range ws {
			if w.suffix == n {
				hits = append(hits, lottery.Hit{Number: n, Tier: w.tier, Prize: w.prize})
			}
		}
	}
	return hits
}

func widthOr(in *input, def int) int {
	if d := in.rule.Digits(in.bet.Variant); d > 0 {
		return d
	}
	return def
}

// headTail: đầu compara com as faixas de cabeça da região, đuôi com as de cauda
type headTail struct{ digits int }

func (headTail) accepts(v string) bool {
	return v == lottery.VariantHead || v == lottery.VariantTail || v == lottery.VariantHeadTail
}

func (s headTail) width(in *input) int { return widthOr(in, s.digits) }

func (headTail) checkNumbers(*input) error { return nil }

func (s headTail) match(in *input) (int, []lottery.Hit, error) {
	var tiers []lottery.PrizeTier
	v := in.bet.Variant
	if v == lottery.VariantHead || v == lottery.VariantHeadTail {
		if len(in.region.HeadTiers) == 0 {
			return 0, nil, newErr(KindMalformedRuleData, in.bet.BetType, "region_rules."+string(in.bet.Region)+".head_tiers", "empty")
		}
		tiers = append(tiers, in.region.HeadTiers...)
	}
	if v == lottery.VariantTail || v == lottery.VariantHeadTail {
		if len(in.region.TailTiers) == 0 {
			return 0, nil, newErr(KindMalformedRuleData, in.bet.BetType, "region_rules."+string(in.bet.Region)+".tail_tiers", "empty")
		}
		tiers = append(tiers, in.region.TailTiers...)
	}
	hits := lineHits(in.bet.Numbers, windows(in.result, tiers, s.width(in)))
	return len(hits), hits, nil
}

// cover (bao lô): sufixo de todos os números de todas as faixas
type cover struct{}

func (cover) accepts(v string) bool {
	return v == lottery.VariantCover2 || v == lottery.VariantCover3 || v == lottery.VariantCover4
}

func (cover) width(in *input) int { return in.rule.Digits(in.bet.Variant) }

func (cover) checkNumbers(*input) error { return nil }

func (s cover) match(in *input) (int, []lottery.Hit, error) {
	hits := lineHits(in.bet.Numbers, windows(in.result, lottery.AllTiers, s.width(in)))
	return len(hits), hits, nil
}

// partialCover (bao 7 lô / bao 8 lô): 2 dígitos, só as faixas listadas para a variante
type partialCover struct{}

func (partialCover) accepts(v string) bool {
	return v == lottery.VariantCover7 || v == lottery.VariantCover8
}

func (partialCover) width(in *input) int { return widthOr(in, 2) }

func (partialCover) checkNumbers(*input) error { return nil }

func (s partialCover) match(in *input) (int, []lottery.Hit, error) {
	tiers := in.region.VariantTiers[in.bet.Variant]
	if len(tiers) == 0 {
		return 0, nil, newErr(KindMalformedRuleData, in.bet.BetType,
			"region_rules."+string(in.bet.Region)+".variant_tiers."+in.bet.Variant, "empty")
	}
	hits := lineHits(in.bet.Numbers, windows(in.result, tiers, s.width(in)))
	return len(hits), hits, nil
}

// topTwo (nhất to): 2 últimos dígitos do único número da faixa de topo
type topTwo struct{}

func (topTwo) accepts(v string) bool { return v == "" }

func (topTwo) width(in *input) int { return widthOr(in, 2) }

func (topTwo) checkNumbers(*input) error { return nil }

func (s topTwo) match(in *input) (int, []lottery.Hit, error) {
	tier := in.region.TopTier
	if tier == "" {
		tier = lottery.TierFirst
	}
	nums := in.result.Numbers(tier)
	if len(nums) == 0 {
		return 0, nil, nil
	}
	top := &lottery.DrawResult{Prizes: map[lottery.PrizeTier][]string{tier: nums[:1]}}
	hits := lineHits(in.bet.Numbers, windows(top, []lottery.PrizeTier{tier}, s.width(in)))
	return len(hits), hits, nil
}

// quantidade de números exigida quando a variante não declara number_count
var comboSizes = map[string]int{
	lottery.VariantXien2: 2, lottery.VariantXien3: 3, lottery.VariantXien4: 4,
	lottery.VariantDa2: 2, lottery.VariantDa3: 3, lottery.VariantDa4: 4,
}

func checkCombo(in *input) error {
	want := in.variant.NumberCount
	if want == 0 {
		want = comboSizes[in.bet.Variant]
	}
	if len(in.bet.Numbers) != want {
		return newErr(KindMalformedBet, in.bet.BetType, "numbers", "variant %s takes %d numbers, got %d", in.bet.Variant, want, len(in.bet.Numbers))
	}
	seen := make(map[string]bool, len(in.bet.Numbers))
	for _, n := range in.bet.Numbers {
		if seen[n] {
			return newErr(KindMalformedBet, in.bet.BetType, "numbers", "repeated number %s", n)
		}
		seen[n] = true
	}
	return nil
}

// hitsByNumber agrupa os acertos de 2 dígitos em todas as faixas
func hitsByNumber(in *input) map[string][]lottery.Hit {
	out := make(map[string][]lottery.Hit, len(in.bet.Numbers))
	for _, h := range lineHits(in.bet.Numbers, windows(in.result, lottery.AllTiers, 2)) {
		out[h.Number] = append(out[h.Number], h)
	}
	return out
}

// combination (xiên): ganha se TODOS os números saírem em alguma faixa; paga uma vez
type combination struct{}

func (combination) accepts(v string) bool {
	return v == lottery.VariantXien2 || v == lottery.VariantXien3 || v == lottery.VariantXien4
}

func (combination) width(*input) int { return 2 }

func (combination) checkNumbers(in *input) error { return checkCombo(in) }

func (combination) match(in *input) (int, []lottery.Hit, error) {
	byNum := hitsByNumber(in)
	var hits []lottery.Hit
	for _, n := range in.bet.Numbers {
		if len(byNum[n]) == 0 {
			return 0, nil, nil
		}
		hits = append(hits, byNum[n]...)
	}
	return 1, hits, nil
}

// pair (đá): cada par não ordenado é um sub-bilhete; o par acerta min(acertos(a), acertos(b)) vezes
type pair struct{}

func (pair) accepts(v string) bool {
	return v == lottery.VariantDa2 || v == lottery.VariantDa3 || v == lottery.VariantDa4
}

func (pair) width(*input) int { return 2 }

func (pair) checkNumbers(in *input) error { return checkCombo(in) }

func (pair) match(in *input) (int, []lottery.Hit, error) {
	byNum := hitsByNumber(in)
	nums := in.bet.Numbers
	matches := 0
	winners := make(map[string]bool)
	for i := 0; i < len(nums); i++ {
		for j := i + 1; j < len(nums); j++ {
			m := min(len(byNum[nums[i]]), len(byNum[nums[j]]))
			if m > 0 {
				matches += m
				winners[nums[i]] = true
				winners[nums[j]] = true
			}
		}
	}
	if matches == 0 {
		return 0, nil, nil
	}
	var hits []lottery.Hit
	for _, n := range nums {
		if winners[n] {
			hits = append(hits, byNum[n]...)
		}
	}
	return matches, hits, nil
}
