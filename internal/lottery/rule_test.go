package lottery

import (
	"encoding/json"
	"errors"
	"testing"
)

const headTailRegions = `{
	"M1": {"multiplier": {"dau": 1, "duoi": 1, "dau_duoi": 2}, "head_tiers": ["eighth"], "tail_tiers": ["special"]},
	"M2": {"multiplier": {"dau": 4, "duoi": 1, "dau_duoi": 5}, "head_tiers": ["seventh"], "tail_tiers": ["special"]}
}`

const headTailVariants = `[
	{"id": "dau", "name": "Đầu"},
	{"id": "duoi", "name": "Đuôi"},
	{"id": "dau_duoi", "name": "Đầu đuôi"}
]`

func TestDecodeRuleHeadTail(t *testing.T) {
	rule, err := DecodeRule(BetHeadTail, "Đầu đuôi", 2, []byte(headTailRegions), []byte(headTailVariants), []byte(`75`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rule.Variants) != 3 {
		t.Fatalf("variants = %d, want 3", len(rule.Variants))
	}
	m2, ok := rule.Region(RegionM2)
	if !ok {
		t.Fatalf("missing M2")
	}
	if len(m2.HeadTiers) != 1 || m2.HeadTiers[0] != TierSeventh {
		t.Fatalf("M2 head tiers = %v", m2.HeadTiers)
	}
	if mult, _ := m2.Multiplier.Resolve(VariantHeadTail); mult != 5 {
		t.Fatalf("M2 dau_duoi multiplier = %d, want 5", mult)
	}
	if r, ok := rule.WinningRatio.Resolve(VariantHead); !ok || r != 75 {
		t.Fatalf("ratio = %d/%v, want 75", r, ok)
	}
	if rule.Digits(VariantHead) != 2 {
		t.Fatalf("digits = %d, want 2", rule.Digits(VariantHead))
	}
}

func TestRatioTableFormats(t *testing.T) {
	var perVariant RatioTable
	if err := json.Unmarshal([]byte(`{"bao_lo_2": 75, "bao_lo_3": 650, "bao_lo_4": 5500}`), &perVariant); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r, _ := perVariant.Resolve(VariantCover3); r != 650 {
		t.Fatalf("bao_lo_3 = %d, want 650", r)
	}
	if _, ok := perVariant.Resolve("bao_lo_9"); ok {
		t.Fatalf("unknown variant should not resolve")
	}

	var compound RatioTable
	if err := json.Unmarshal([]byte(`{"da_2": {"one_province": 750, "two_provinces": 550}}`), &compound); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if r, _ := compound.Resolve(VariantDa2); r != 750 {
		t.Fatalf("da_2 = %d, want max sub-ratio 750", r)
	}

	for _, bad := range []string{`-1`, `0`, `7.5`, `{"x": "a"}`, `{"x": {}}`} {
		var rt RatioTable
		if err := json.Unmarshal([]byte(bad), &rt); err == nil {
			t.Errorf("%s: expected error", bad)
		}
	}
}

func TestDecodeRuleMalformedField(t *testing.T) {
	cases := []struct {
		name    string
		regions string
		ratio   string
		field   string
	}{
		{"broken regions", `{"M1": [}`, `75`, "region_rules"},
		{"unknown region", `{"M9": {"multiplier": 1}}`, `75`, "region_rules"},
		{"unknown tier", `{"M1": {"multiplier": 1, "head_tiers": ["ninth"]}}`, `75`, "region_rules.M1"},
		{"missing ratio", `{"M1": {"multiplier": 1}}`, `null`, "winning_ratio"},
		{"negative ratio", `{"M1": {"multiplier": 1}}`, `-3`, "winning_ratio"},
	}
	for _, c := range cases {
		_, err := DecodeRule(BetCover, "Bao lô", 0, []byte(c.regions), nil, []byte(c.ratio))
		var de *RuleDecodeError
		if !errors.As(err, &de) {
			t.Errorf("%s: err = %v, want RuleDecodeError", c.name, err)
			continue
		}
		if de.Field != c.field {
			t.Errorf("%s: field = %s, want %s", c.name, de.Field, c.field)
		}
	}
}

func TestDecodeRuleDuplicateVariant(t *testing.T) {
	_, err := DecodeRule(BetHeadTail, "x", 2, []byte(headTailRegions), []byte(`[{"id":"dau"},{"id":"dau"}]`), []byte(`75`))
	var de *RuleDecodeError
	if !errors.As(err, &de) || de.Field != "variants" {
		t.Fatalf("err = %v, want variants decode error", err)
	}
}

func TestDecodePrizes(t *testing.T) {
	m, err := DecodePrizes([]byte(`{"special": ["123457"], "seventh": ["12", "34"]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(m[TierSeventh]) != 2 {
		t.Fatalf("seventh = %v", m[TierSeventh])
	}
	if _, err := DecodePrizes([]byte(`{"seventh": ["12"]}`)); err == nil {
		t.Fatalf("missing special tier should fail")
	}
	if _, err := DecodePrizes([]byte(`{"special": ["12a"]}`)); err == nil {
		t.Fatalf("non-digit number should fail")
	}
	if _, err := DecodePrizes([]byte(`{"special": ["12"], "tenth": ["1"]}`)); err == nil {
		t.Fatalf("unknown tier should fail")
	}
}
