package dto

// PlaceBetRequest é um bilhete para uma ou mais províncias do mesmo sorteio
type PlaceBetRequest struct {
	UserID       string   `json:"userId"`
	BetType      string   `json:"betType"` // ex: "bao_lo", "xien", "da"
	Variant      string   `json:"variant,omitempty"`
	Region       string   `json:"region"` // "M1" | "M2"
	ProvinceIDs  []string `json:"provinceIds"`
	DrawDate     string   `json:"drawDate"` // YYYY-MM-DD
	Numbers      []string `json:"numbers"`
	Denomination int64    `json:"denomination"`
}
