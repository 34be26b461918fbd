package lottery

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// BetTypeRule é a regra de um tipo de aposta, decodificada uma única vez na borda do repositório
type BetTypeRule struct {
	BetType      BetType               `json:"betType"`
	Name         string                `json:"name"`
	DigitCount   int                   `json:"digitCount"`
	RegionRules  map[Region]RegionRule `json:"regionRules"`
	Variants     []Variant             `json:"variants"`
	WinningRatio RatioTable            `json:"winningRatio"`
}

// RegionRule define multiplicador de custo e a seleção de faixas por região
type RegionRule struct {
	Multiplier   RatioTable             `json:"multiplier"`
	Combinations int                    `json:"combinations,omitempty"`
	HeadTiers    []PrizeTier            `json:"head_tiers,omitempty"`
	TailTiers    []PrizeTier            `json:"tail_tiers,omitempty"`
	TopTier      PrizeTier              `json:"top_tier,omitempty"`
	VariantTiers map[string][]PrizeTier `json:"variant_tiers,omitempty"`
}

type Variant struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DigitCount  int    `json:"digit_count,omitempty"`
	NumberCount int    `json:"number_count,omitempty"`
}

// Region devolve a regra da região, se existir
func (r *BetTypeRule) Region(region Region) (RegionRule, bool) {
	rr, ok := r.RegionRules[region]
	return rr, ok
}

// Variant procura uma variante declarada
func (r *BetTypeRule) Variant(id string) (Variant, bool) {
	for _, v := range r.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

// Digits é a largura esperada dos números para a variante (0 = sem restrição)
func (r *BetTypeRule) Digits(variant string) int {
	if v, ok := r.Variant(variant); ok && v.DigitCount > 0 {
		return v.DigitCount
	}
	return r.DigitCount
}

// RatioTable aceita três formatos no JSON:
//
//	75                               escalar
//	{"dau": 75, "duoi": 75}          escalar por variante
//	{"da_2": {"m1": 750, "m2": 600}} sub-chaves por variante (vale o maior)
type RatioTable struct {
	Scalar     int64
	PerVariant map[string]VariantRatio
}

type VariantRatio struct {
	Value int64
	Sub   map[string]int64
}

func (v VariantRatio) resolve() int64 {
	if len(v.Sub) == 0 {
		return v.Value
	}
	var best int64
	for _, x := range v.Sub {
		if x > best {
			best = x
		}
	}
	return best
}

// IsZero indica tabela vazia (campo ausente no JSON)
func (t RatioTable) IsZero() bool { return t.Scalar == 0 && len(t.PerVariant) == 0 }

// Resolve escolhe o valor: escalar; senão escalar da variante; senão o maior das sub-chaves
func (t RatioTable) Resolve(variant string) (int64, bool) {
	if t.Scalar > 0 {
		return t.Scalar, true
	}
	v, ok := t.PerVariant[variant]
	if !ok {
		return 0, false
	}
	x := v.resolve()
	return x, x > 0
}

func (t *RatioTable) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = RatioTable{}
		return nil
	}
	if b[0] != '{' {
		n, err := positiveInt(b)
		if err != nil {
			return err
		}
		*t = RatioTable{Scalar: n}
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := RatioTable{PerVariant: make(map[string]VariantRatio, len(raw))}
	for variant, v := range raw {
		v = bytes.TrimSpace(v)
		if len(v) > 0 && v[0] == '{' {
			var sub map[string]json.RawMessage
			if err := json.Unmarshal(v, &sub); err != nil {
				return fmt.Errorf("variant %s: %w", variant, err)
			}
			if len(sub) == 0 {
				return fmt.Errorf("variant %s: empty sub-ratio table", variant)
			}
			vr := VariantRatio{Sub: make(map[string]int64, len(sub))}
			for k, sv := range sub {
				n, err := positiveInt(sv)
				if err != nil {
					return fmt.Errorf("variant %s.%s: %w", variant, k, err)
				}
				vr.Sub[k] = n
			}
			out.PerVariant[variant] = vr
			continue
		}
		n, err := positiveInt(v)
		if err != nil {
			return fmt.Errorf("variant %s: %w", variant, err)
		}
		out.PerVariant[variant] = VariantRatio{Value: n}
	}
	*t = out
	return nil
}

func (t RatioTable) MarshalJSON() ([]byte, error) {
	if t.Scalar > 0 || t.PerVariant == nil {
		return json.Marshal(t.Scalar)
	}
	m := make(map[string]any, len(t.PerVariant))
	for k, v := range t.PerVariant {
		if len(v.Sub) > 0 {
			m[k] = v.Sub
		} else {
			m[k] = v.Value
		}
	}
	return json.Marshal(m)
}

func positiveInt(b []byte) (int64, error) {
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return 0, fmt.Errorf("ratio %s: not an integer", string(b))
	}
	if n <= 0 {
		return 0, fmt.Errorf("ratio %d: must be positive", n)
	}
	return n, nil
}

// RuleDecodeError aponta qual campo estruturado da regra falhou
type RuleDecodeError struct {
	BetType BetType
	Field   string
	Err     error
}

func (e *RuleDecodeError) Error() string {
	return fmt.Sprintf("rule %s: field %s: %v", e.BetType, e.Field, e.Err)
}

func (e *RuleDecodeError) Unwrap() error { return e.Err }

// DecodeRule monta a regra a partir das colunas JSON armazenadas
func DecodeRule(betType BetType, name string, digitCount int, regionRules, variants, winningRatio []byte) (*BetTypeRule, error) {
	rule := &BetTypeRule{BetType: betType, Name: name, DigitCount: digitCount}

	if err := json.Unmarshal(regionRules, &rule.RegionRules); err != nil {
		return nil, &RuleDecodeError{BetType: betType, Field: "region_rules", Err: err}
	}
	for region, rr := range rule.RegionRules {
		if _, err := ParseRegion(string(region)); err != nil {
			return nil, &RuleDecodeError{BetType: betType, Field: "region_rules", Err: err}
		}
		if err := validateTiers(rr); err != nil {
			return nil, &RuleDecodeError{BetType: betType, Field: "region_rules." + string(region), Err: err}
		}
	}

	if len(bytes.TrimSpace(variants)) > 0 {
		if err := json.Unmarshal(variants, &rule.Variants); err != nil {
			return nil, &RuleDecodeError{BetType: betType, Field: "variants", Err: err}
		}
	}
	seen := make(map[string]bool, len(rule.Variants))
	for _, v := range rule.Variants {
		if v.ID == "" || seen[v.ID] {
			return nil, &RuleDecodeError{BetType: betType, Field: "variants", Err: fmt.Errorf("empty or duplicate variant id %q", v.ID)}
		}
		seen[v.ID] = true
	}

	if err := json.Unmarshal(winningRatio, &rule.WinningRatio); err != nil {
		return nil, &RuleDecodeError{BetType: betType, Field: "winning_ratio", Err: err}
	}
	if rule.WinningRatio.IsZero() {
		return nil, &RuleDecodeError{BetType: betType, Field: "winning_ratio", Err: fmt.Errorf("missing")}
	}
	return rule, nil
}

func validateTiers(rr RegionRule) error {
	check := func(ts []PrizeTier) error {
		for _, t := range ts {
			if !t.Valid() {
				return fmt.Errorf("unknown tier %q", t)
			}
		}
		return nil
	}
	if err := check(rr.HeadTiers); err != nil {
		return err
	}
	if err := check(rr.TailTiers); err != nil {
		return err
	}
	if rr.TopTier != "" && !rr.TopTier.Valid() {
		return fmt.Errorf("unknown tier %q", rr.TopTier)
	}
	for _, ts := range rr.VariantTiers {
		if err := check(ts); err != nil {
			return err
		}
	}
	return nil
}
