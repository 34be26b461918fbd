package lottery

import "time"

// Bet é uma linha de aposta (um bilhete) em uma província para uma data de sorteio
type Bet struct {
	ID             string          `json:"id"`
	UserID         string          `json:"userId"`
	BetDate        string          `json:"betDate"`  // YYYY-MM-DD
	DrawDate       string          `json:"drawDate"` // data cujo resultado liquida a aposta
	Region         Region          `json:"region"`
	ProvinceID     string          `json:"provinceId"`
	BetType        BetType         `json:"betType"`
	Variant        string          `json:"variant,omitempty"`
	Numbers        []string        `json:"numbers"`
	Denomination   int64           `json:"denomination"`
	TotalStake     int64           `json:"totalStake"`
	PotentialWin   int64           `json:"potentialWin"`
	Status         BetStatus       `json:"status"`
	WinAmount      int64           `json:"winAmount,omitempty"`
	WinningDetails *WinningDetails `json:"winningDetails,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	SettledAt      *time.Time      `json:"settledAt,omitempty"`
}

// WinningDetails descreve quais números bateram com quais prêmios
type WinningDetails struct {
	Matches int      `json:"matches"`
	Ratio   int64    `json:"ratio"`
	Numbers []string `json:"numbers"` // números distintos premiados
	Hits    []Hit    `json:"hits"`
}

// Hit é um acerto: número apostado x prêmio publicado
type Hit struct {
	Number string    `json:"number"`
	Tier   PrizeTier `json:"tier"`
	Prize  string    `json:"prize"`
}

// Transaction é um lançamento do ledger
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	BetID       string          `json:"betId,omitempty"`
	Amount      int64           `json:"amount"`
	Type        TransactionType `json:"type"`
	Status      string          `json:"status"`
	Description string          `json:"description"`
	CreatedAt   time.Time       `json:"createdAt"`
}
