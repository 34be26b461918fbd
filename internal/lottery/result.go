package lottery

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// DrawResult é o resultado publicado de uma província em uma data.
// Imutável depois de publicado.
type DrawResult struct {
	ProvinceID string                 `json:"provinceId"`
	Date       string                 `json:"date"`
	DayOfWeek  string                 `json:"dayOfWeek"`
	Region     Region                 `json:"region"`
	Prizes     map[PrizeTier][]string `json:"prizes"`
}

// ResultKey identifica um resultado
type ResultKey struct {
	ProvinceID string
	Date       string
}

// ResultSet guarda os resultados carregados e, separadamente, os que não puderam ser lidos
type ResultSet struct {
	Results map[ResultKey]*DrawResult
	Errors  map[ResultKey]error
}

// NewResultSet cria um ResultSet vazio
func NewResultSet() ResultSet {
	return ResultSet{Results: map[ResultKey]*DrawResult{}, Errors: map[ResultKey]error{}}
}

func (r *DrawResult) Key() ResultKey { return ResultKey{ProvinceID: r.ProvinceID, Date: r.Date} }

// Numbers devolve os números de uma faixa (nil se a faixa não existe na região)
func (r *DrawResult) Numbers(t PrizeTier) []string { return r.Prizes[t] }

// SameContent compara dois resultados da mesma chave
func (r *DrawResult) SameContent(o *DrawResult) bool {
	return r.Region == o.Region && reflect.DeepEqual(r.Prizes, o.Prizes)
}

// DecodePrizes faz o parse da coluna prizes (JSON tier -> números) validando as faixas
func DecodePrizes(raw []byte) (map[PrizeTier][]string, error) {
	var m map[PrizeTier][]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode prizes: %w", err)
	}
	if err := ValidatePrizes(m); err != nil {
		return nil, err
	}
	return m, nil
}

// ValidatePrizes garante faixas conhecidas e números só com dígitos
func ValidatePrizes(m map[PrizeTier][]string) error {
	if len(m) == 0 {
		return fmt.Errorf("prizes: empty")
	}
	if len(m[TierSpecial]) == 0 {
		return fmt.Errorf("prizes: missing %s tier", TierSpecial)
	}
	for tier, nums := range m {
		if !tier.Valid() {
			return fmt.Errorf("prizes: unknown tier %q", tier)
		}
		for _, n := range nums {
			if n == "" || !IsDigits(n) {
				return fmt.Errorf("prizes: tier %s has invalid number %q", tier, n)
			}
		}
	}
	return nil
}

// IsDigits informa se s contém apenas dígitos ASCII
func IsDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
