package engine

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/radieske/lottery-settlement-platform/internal/lottery"
)

// resultado do Norte (M2): faixas special..seventh
func northResult() *lottery.DrawResult {
	return &lottery.DrawResult{
		ProvinceID: "hanoi",
		Date:       "2025-03-21",
		DayOfWeek:  "friday",
		Region:     lottery.RegionM2,
		Prizes: map[lottery.PrizeTier][]string{
			lottery.TierSpecial: {"89157"},
			lottery.TierFirst:   {"43012"},
			lottery.TierSecond:  {"11234", "56780"},
			lottery.TierThird:   {"20001", "20002", "20003", "20004", "20005", "20057"},
			lottery.TierFourth:  {"3001", "3002", "3003", "3004"},
			lottery.TierFifth:   {"4001", "4002", "4003", "4004", "4005", "4006"},
			lottery.TierSixth:   {"501", "502", "503"},
			lottery.TierSeventh: {"61", "62", "63", "64"},
		},
	}
}

// resultado do Sul (M1): faixas special..eighth
func southResult() *lottery.DrawResult {
	return &lottery.DrawResult{
		ProvinceID: "tphcm",
		Date:       "2025-03-22",
		DayOfWeek:  "saturday",
		Region:     lottery.RegionM1,
		Prizes: map[lottery.PrizeTier][]string{
			lottery.TierSpecial: {"123456"},
			lottery.TierFirst:   {"54321"},
			lottery.TierSecond:  {"67890"},
			lottery.TierThird:   {"11111", "22222"},
			lottery.TierFourth:  {"30001", "30002", "30003", "30004", "30005", "30006", "30007"},
			lottery.TierFifth:   {"4001"},
			lottery.TierSixth:   {"5001", "5002", "5003"},
			lottery.TierSeventh: {"789"},
			lottery.TierEighth:  {"45"},
		},
	}
}

func headTailVariants() []lottery.Variant {
	return []lottery.Variant{{ID: lottery.VariantHead}, {ID: lottery.VariantTail}, {ID: lottery.VariantHeadTail}}
}

func scalar(n int64) lottery.RatioTable { return lottery.RatioTable{Scalar: n} }

func perVariant(m map[string]int64) lottery.RatioTable {
	t := lottery.RatioTable{PerVariant: map[string]lottery.VariantRatio{}}
	for k, v := range m {
		t.PerVariant[k] = lottery.VariantRatio{Value: v}
	}
	return t
}

func rules() map[lottery.BetType]*lottery.BetTypeRule {
	return map[lottery.BetType]*lottery.BetTypeRule{
		lottery.BetHeadTail: {
			BetType: lottery.BetHeadTail, DigitCount: 2, Variants: headTailVariants(), WinningRatio: scalar(75),
			RegionRules: map[lottery.Region]lottery.RegionRule{
				lottery.RegionM1: {Multiplier: scalar(1), HeadTiers: []lottery.PrizeTier{lottery.TierEighth}, TailTiers: []lottery.PrizeTier{lottery.TierSpecial}},
				lottery.RegionM2: {Multiplier: scalar(1), HeadTiers: []lottery.PrizeTier{lottery.TierSeventh}, TailTiers: []lottery.PrizeTier{lottery.TierSpecial}},
			},
		},
		lottery.BetThreeDigit: {
			BetType: lottery.BetThreeDigit, DigitCount: 3, Variants: headTailVariants(), WinningRatio: scalar(650),
			RegionRules: map[lottery.Region]lottery.RegionRule{
				lottery.RegionM1: {Multiplier: scalar(1), HeadTiers: []lottery.PrizeTier{lottery.TierSeventh}, TailTiers: []lottery.PrizeTier{lottery.TierSpecial}},
				lottery.RegionM2: {Multiplier: scalar(1), HeadTiers: []lottery.PrizeTier{lottery.TierSixth}, TailTiers: []lottery.PrizeTier{lottery.TierSpecial}},
			},
		},
		lottery.BetCover: {
			BetType: lottery.BetCover,
			Variants: []lottery.Variant{
				{ID: lottery.VariantCover2, DigitCount: 2}, {ID: lottery.VariantCover3, DigitCount: 3}, {ID: lottery.VariantCover4, DigitCount: 4},
			},
			WinningRatio: perVariant(map[string]int64{lottery.VariantCover2: 75, lottery.VariantCover3: 650, lottery.VariantCover4: 5500}),
			RegionRules: map[lottery.Region]lottery.RegionRule{
				lottery.RegionM1: {Multiplier: perVariant(map[string]int64{lottery.VariantCover2: 18, lottery.VariantCover3: 17, lottery.VariantCover4: 16})},
				lottery.RegionM2: {Multiplier: perVariant(map[string]int64{lottery.VariantCover2: 27, lottery.VariantCover3: 23, lottery.VariantCover4: 20})},
			},
		},
		lottery.BetPartialCover: {
			BetType: lottery.BetPartialCover, DigitCount: 2,
			Variants:     []lottery.Variant{{ID: lottery.VariantCover7}, {ID: lottery.VariantCover8}},
			WinningRatio: scalar(75),
			RegionRules: map[lottery.Region]lottery.RegionRule{
				lottery.RegionM1: {
					Multiplier: perVariant(map[string]int64{lottery.VariantCover7: 7, lottery.VariantCover8: 8}),
					VariantTiers: map[string][]lottery.PrizeTier{
						lottery.VariantCover7: {lottery.TierEighth, lottery.TierSeventh, lottery.TierSixth, lottery.TierFifth, lottery.TierSpecial},
					},
				},
			},
		},
		lottery.BetTopTwo: {
			BetType: lottery.BetTopTwo, DigitCount: 2, WinningRatio: scalar(95),
			RegionRules: map[lottery.Region]lottery.RegionRule{
				lottery.RegionM2: {Multiplier: scalar(1), TopTier: lottery.TierFirst},
			},
		},
		lottery.BetCombination: {
			BetType:      lottery.BetCombination,
			Variants:     []lottery.Variant{{ID: lottery.VariantXien2, NumberCount: 2}, {ID: lottery.VariantXien3, NumberCount: 3}, {ID: lottery.VariantXien4, NumberCount: 4}},
			WinningRatio: perVariant(map[string]int64{lottery.VariantXien2: 15, lottery.VariantXien3: 60, lottery.VariantXien4: 200}),
			RegionRules: map[lottery.Region]lottery.RegionRule{
				lottery.RegionM2: {Multiplier: scalar(1)},
			},
		},
		lottery.BetPair: {
			BetType:  lottery.BetPair,
			Variants: []lottery.Variant{{ID: lottery.VariantDa2}, {ID: lottery.VariantDa3}},
			WinningRatio: lottery.RatioTable{PerVariant: map[string]lottery.VariantRatio{
				lottery.VariantDa2: {Sub: map[string]int64{"one_province": 750, "two_provinces": 550}},
				lottery.VariantDa3: {Sub: map[string]int64{"one_province": 700, "two_provinces": 500}},
			}},
			RegionRules: map[lottery.Region]lottery.RegionRule{
				lottery.RegionM2: {Multiplier: scalar(1), Combinations: 1},
			},
		},
	}
}

func northBet(bt lottery.BetType, variant string, denom int64, numbers ...string) lottery.Bet {
	return lottery.Bet{
		ID: "b-1", UserID: "u-1", DrawDate: "2025-03-21", Region: lottery.RegionM2, ProvinceID: "hanoi",
		BetType: bt, Variant: variant, Numbers: numbers, Denomination: denom, Status: lottery.StatusPending,
	}
}

func southBet(bt lottery.BetType, variant string, denom int64, numbers ...string) lottery.Bet {
	b := northBet(bt, variant, denom, numbers...)
	b.DrawDate, b.Region, b.ProvinceID = "2025-03-22", lottery.RegionM1, "tphcm"
	return b
}

func settle(t *testing.T, bet lottery.Bet, res *lottery.DrawResult) Outcome {
	t.Helper()
	out, err := Settle(bet, res, rules()[bet.BetType])
	if err != nil {
		t.Fatalf("settle %s/%s: %v", bet.BetType, bet.Variant, err)
	}
	if out.IsWinning && out.WinAmount != int64(out.Matches)*bet.Denomination*out.Ratio {
		t.Fatalf("win %d != matches %d x denom %d x ratio %d", out.WinAmount, out.Matches, bet.Denomination, out.Ratio)
	}
	if out.IsWinning != (out.WinAmount > 0) {
		t.Fatalf("isWinning=%v with winAmount=%d", out.IsWinning, out.WinAmount)
	}
	if out.IsWinning && (out.Details == nil || len(out.Details.Numbers) == 0) {
		t.Fatalf("won without winning details")
	}
	return out
}

func TestStrategiesCoverAllBetTypes(t *testing.T) {
	for _, bt := range lottery.AllBetTypes {
		if _, ok := strategies[bt]; !ok {
			t.Errorf("bet type %s has no strategy", bt)
		}
	}
	if len(strategies) != len(lottery.AllBetTypes) {
		t.Errorf("strategies = %d, bet types = %d", len(strategies), len(lottery.AllBetTypes))
	}
}

func TestHeadTailTailHitsSpecialPrize(t *testing.T) {
	out := settle(t, northBet(lottery.BetHeadTail, lottery.VariantTail, 10000, "57"), northResult())
	if !out.IsWinning || out.Matches != 1 || out.WinAmount != 750000 {
		t.Fatalf("outcome = %+v, want 1 match and 750000", out)
	}
	want := []lottery.Hit{{Number: "57", Tier: lottery.TierSpecial, Prize: "89157"}}
	if !reflect.DeepEqual(out.Details.Hits, want) {
		t.Fatalf("hits = %+v, want %+v", out.Details.Hits, want)
	}
}

func TestHeadTierDependsOnRegion(t *testing.T) {
	north := settle(t, northBet(lottery.BetHeadTail, lottery.VariantHead, 1000, "61", "45"), northResult())
	if north.Matches != 1 || north.Details.Hits[0].Tier != lottery.TierSeventh {
		t.Fatalf("north head = %+v", north)
	}
	south := settle(t, southBet(lottery.BetHeadTail, lottery.VariantHead, 1000, "61", "45"), southResult())
	if south.Matches != 1 || south.Details.Hits[0].Tier != lottery.TierEighth {
		t.Fatalf("south head = %+v", south)
	}
}

func TestHeadTailBoth(t *testing.T) {
	out := settle(t, northBet(lottery.BetHeadTail, lottery.VariantHeadTail, 1000, "57", "62", "99"), northResult())
	if out.Matches != 2 || out.WinAmount != 2*1000*75 {
		t.Fatalf("outcome = %+v, want 2 matches", out)
	}
	if !reflect.DeepEqual(out.Details.Numbers, []string{"57", "62"}) {
		t.Fatalf("numbers = %v", out.Details.Numbers)
	}
}

func TestThreeDigitHeadTail(t *testing.T) {
	north := settle(t, northBet(lottery.BetThreeDigit, lottery.VariantHead, 1000, "502"), northResult())
	if north.Matches != 1 || north.WinAmount != 650000 {
		t.Fatalf("north xiu chu head = %+v", north)
	}
	tail := settle(t, northBet(lottery.BetThreeDigit, lottery.VariantTail, 1000, "157"), northResult())
	if tail.Matches != 1 {
		t.Fatalf("north xiu chu tail = %+v", tail)
	}
	south := settle(t, southBet(lottery.BetThreeDigit, lottery.VariantHead, 1000, "789"), southResult())
	if south.Matches != 1 || south.Details.Hits[0].Tier != lottery.TierSeventh {
		t.Fatalf("south xiu chu head = %+v", south)
	}
}

func TestCoverCountsEveryHit(t *testing.T) {
	// 57 sai no especial (89157) e no terceiro (20057)
	out := settle(t, northBet(lottery.BetCover, lottery.VariantCover2, 1000, "57", "99"), northResult())
	if out.Matches != 2 || out.WinAmount != 2*1000*75 {
		t.Fatalf("outcome = %+v, want 2 matches", out)
	}
	// número repetido na aposta conta de novo
	out = settle(t, northBet(lottery.BetCover, lottery.VariantCover2, 1000, "57", "57"), northResult())
	if out.Matches != 4 {
		t.Fatalf("repeated number matches = %d, want 4", out.Matches)
	}
	if !reflect.DeepEqual(out.Details.Numbers, []string{"57"}) {
		t.Fatalf("distinct numbers = %v", out.Details.Numbers)
	}
}

func TestCoverWidthFollowsVariant(t *testing.T) {
	three := settle(t, northBet(lottery.BetCover, lottery.VariantCover3, 100, "157"), northResult())
	if three.Matches != 1 || three.Ratio != 650 || three.WinAmount != 65000 {
		t.Fatalf("bao lo 3 = %+v", three)
	}
	four := settle(t, northBet(lottery.BetCover, lottery.VariantCover4, 100, "9157", "0057"), northResult())
	if four.Matches != 2 || four.Ratio != 5500 {
		t.Fatalf("bao lo 4 = %+v", four)
	}
}

func TestCoverNoHit(t *testing.T) {
	res := &lottery.DrawResult{ProvinceID: "hanoi", Date: "2025-03-21", Region: lottery.RegionM2, Prizes: map[lottery.PrizeTier][]string{}}
	tiers := []lottery.PrizeTier{lottery.TierSpecial, lottery.TierFirst, lottery.TierSecond, lottery.TierThird, lottery.TierFourth, lottery.TierFifth, lottery.TierSixth, lottery.TierSeventh}
	for i := 0; i < 40; i++ {
		tier := tiers[i%len(tiers)]
		res.Prizes[tier] = append(res.Prizes[tier], fmt.Sprintf("%03d%02d", i, 40+i))
	}
	out := settle(t, northBet(lottery.BetCover, lottery.VariantCover2, 1000, "12", "34"), res)
	if out.IsWinning || out.WinAmount != 0 || out.Details != nil {
		t.Fatalf("outcome = %+v, want lost", out)
	}
	if out.Status() != lottery.StatusLost {
		t.Fatalf("status = %s", out.Status())
	}
}

func TestPartialCoverRestrictsTiers(t *testing.T) {
	// 01 aparece no quarto, quinto e sexto prêmios; bao 7 lô não cobre o quarto
	partial := settle(t, southBet(lottery.BetPartialCover, lottery.VariantCover7, 1000, "01"), southResult())
	if partial.Matches != 2 {
		t.Fatalf("bao 7 lo matches = %d, want 2", partial.Matches)
	}
	full := settle(t, southBet(lottery.BetCover, lottery.VariantCover2, 1000, "01"), southResult())
	if full.Matches != 3 {
		t.Fatalf("bao lo 2 matches = %d, want 3", full.Matches)
	}
}

func TestTopTwo(t *testing.T) {
	out := settle(t, northBet(lottery.BetTopTwo, "", 1000, "12", "57"), northResult())
	if out.Matches != 1 || out.Details.Hits[0].Tier != lottery.TierFirst || out.WinAmount != 95000 {
		t.Fatalf("nhat to = %+v", out)
	}
}

func TestCombinationNeedsEveryNumber(t *testing.T) {
	win := settle(t, northBet(lottery.BetCombination, lottery.VariantXien2, 1000, "57", "12"), northResult())
	if !win.IsWinning || win.Matches != 1 || win.WinAmount != 15000 {
		t.Fatalf("xien 2 = %+v, want single payout", win)
	}
	lose := settle(t, northBet(lottery.BetCombination, lottery.VariantXien3, 1000, "57", "12", "99"), northResult())
	if lose.IsWinning {
		t.Fatalf("xien 3 with a missing number won: %+v", lose)
	}
}

func TestPairCountsEachPair(t *testing.T) {
	two := settle(t, northBet(lottery.BetPair, lottery.VariantDa2, 1000, "57", "12"), northResult())
	if two.Matches != 1 || two.Ratio != 750 || two.WinAmount != 750000 {
		t.Fatalf("da 2 = %+v", two)
	}
	// 57 x2, 01 x4, 12 x1: pares (57,01)=2 (57,12)=1 (01,12)=1
	three := settle(t, northBet(lottery.BetPair, lottery.VariantDa3, 1000, "57", "01", "12"), northResult())
	if three.Matches != 4 || three.Ratio != 700 {
		t.Fatalf("da 3 = %+v, want 4 matches at 700", three)
	}
	lose := settle(t, northBet(lottery.BetPair, lottery.VariantDa2, 1000, "57", "99"), northResult())
	if lose.IsWinning {
		t.Fatalf("da 2 with one missing number won: %+v", lose)
	}
}

func TestSettleErrors(t *testing.T) {
	rs := rules()
	cases := []struct {
		name   string
		bet    lottery.Bet
		result *lottery.DrawResult
		rule   *lottery.BetTypeRule
		kind   ErrorKind
	}{
		{"no result", northBet(lottery.BetHeadTail, lottery.VariantTail, 10, "57"), nil, rs[lottery.BetHeadTail], KindNoResultYet},
		{"result for other date", func() lottery.Bet {
			b := northBet(lottery.BetHeadTail, lottery.VariantTail, 10, "57")
			b.DrawDate = "2025-03-20"
			return b
		}(), northResult(), rs[lottery.BetHeadTail], KindNoResultYet},
		{"unknown bet type", northBet("xyz", "", 10, "57"), northResult(), nil, KindUnknownBetType},
		{"rule of another type", northBet(lottery.BetHeadTail, lottery.VariantTail, 10, "57"), northResult(), rs[lottery.BetCover], KindUnknownBetType},
		{"region not offered", northBet(lottery.BetPartialCover, lottery.VariantCover7, 10, "57"), northResult(), rs[lottery.BetPartialCover], KindUnsupportedRegion},
		{"undeclared variant", northBet(lottery.BetCover, "bao_lo_9", 10, "57"), northResult(), rs[lottery.BetCover], KindInvalidVariant},
		{"missing variant", northBet(lottery.BetCover, "", 10, "57"), northResult(), rs[lottery.BetCover], KindInvalidVariant},
		{"variant on plain type", northBet(lottery.BetTopTwo, lottery.VariantHead, 10, "57"), northResult(), rs[lottery.BetTopTwo], KindInvalidVariant},
		{"wrong width", northBet(lottery.BetHeadTail, lottery.VariantTail, 10, "157"), northResult(), rs[lottery.BetHeadTail], KindMalformedBet},
		{"xien count", northBet(lottery.BetCombination, lottery.VariantXien3, 10, "57", "12"), northResult(), rs[lottery.BetCombination], KindMalformedBet},
		{"da repeated", northBet(lottery.BetPair, lottery.VariantDa2, 10, "57", "57"), northResult(), rs[lottery.BetPair], KindMalformedBet},
		{"bao 8 lo tiers missing", southBet(lottery.BetPartialCover, lottery.VariantCover8, 10, "01"), southResult(), rs[lottery.BetPartialCover], KindMalformedRuleData},
	}
	for _, c := range cases {
		_, err := Settle(c.bet, c.result, c.rule)
		kind, ok := KindOf(err)
		if !ok || kind != c.kind {
			t.Errorf("%s: err = %v, want kind %s", c.name, err, c.kind)
		}
	}
}

func TestValidateAgreesWithSettle(t *testing.T) {
	rs := rules()
	rejected := []lottery.Bet{
		northBet("xyz", "", 10, "57"),
		northBet(lottery.BetPartialCover, lottery.VariantCover7, 10, "57"),
		northBet(lottery.BetCover, "bao_lo_9", 10, "57"),
		northBet(lottery.BetHeadTail, lottery.VariantTail, 10, "157"),
		northBet(lottery.BetCombination, lottery.VariantXien3, 10, "57", "12"),
		northBet(lottery.BetCombination, lottery.VariantXien2, 10, "57", "57"),
		northBet(lottery.BetPair, lottery.VariantDa2, 10, "57", "57"),
		northBet(lottery.BetHeadTail, lottery.VariantTail, 0, "57"),
	}
	for _, b := range rejected {
		verr := Validate(b, rs[b.BetType])
		_, serr := Settle(b, northResult(), rs[b.BetType])
		vk, ok := KindOf(verr)
		sk, _ := KindOf(serr)
		if !ok || vk != sk {
			t.Errorf("%s/%s %v: Validate = %v, Settle = %v", b.BetType, b.Variant, b.Numbers, verr, serr)
		}
	}

	accepted := []lottery.Bet{
		northBet(lottery.BetHeadTail, lottery.VariantTail, 10, "57"),
		northBet(lottery.BetPair, lottery.VariantDa3, 10, "57", "01", "12"),
		northBet(lottery.BetCombination, lottery.VariantXien2, 10, "57", "99"),
	}
	for _, b := range accepted {
		if err := Validate(b, rs[b.BetType]); err != nil {
			t.Errorf("%s/%s %v: %v", b.BetType, b.Variant, b.Numbers, err)
		}
	}
}

func TestMissingRatioIsMalformedRule(t *testing.T) {
	rule := rules()[lottery.BetCover]
	delete(rule.WinningRatio.PerVariant, lottery.VariantCover4)
	_, err := Settle(northBet(lottery.BetCover, lottery.VariantCover4, 10, "9157"), northResult(), rule)
	var e *Error
	if kind, _ := KindOf(err); kind != KindMalformedRuleData {
		t.Fatalf("err = %v, want malformed rule", err)
	}
	if !errors.As(err, &e) || e.Field != "winning_ratio" {
		t.Fatalf("field = %+v, want winning_ratio", e)
	}
}

func TestSettleIsPure(t *testing.T) {
	bet := northBet(lottery.BetPair, lottery.VariantDa3, 1000, "57", "01", "12")
	res := northResult()
	rule := rules()[lottery.BetPair]

	betCopy := bet
	betCopy.Numbers = append([]string(nil), bet.Numbers...)
	resCopy := northResult()

	first, err := Settle(bet, res, rule)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	second, err := Settle(bet, res, rule)
	if err != nil {
		t.Fatalf("settle: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("outcomes differ:\n%+v\n%+v", first, second)
	}
	if !reflect.DeepEqual(bet, betCopy) || !reflect.DeepEqual(res, resCopy) {
		t.Fatalf("inputs mutated")
	}
	if !reflect.DeepEqual(rule, rules()[lottery.BetPair]) {
		t.Fatalf("rule mutated")
	}
}
