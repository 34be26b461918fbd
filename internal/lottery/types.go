package lottery

import "fmt"

// Region agrupa as províncias pelo regulamento de premiação
type Region string

const (
	RegionM1 Region = "M1" // Miền Trung / Miền Nam
	RegionM2 Region = "M2" // Miền Bắc
)

func ParseRegion(s string) (Region, error) {
	switch Region(s) {
	case RegionM1, RegionM2:
		return Region(s), nil
	}
	return "", fmt.Errorf("unknown region %q", s)
}

// PrizeTier identifica uma faixa de prêmio do resultado
type PrizeTier string

const (
	TierSpecial PrizeTier = "special"
	TierFirst   PrizeTier = "first"
	TierSecond  PrizeTier = "second"
	TierThird   PrizeTier = "third"
	TierFourth  PrizeTier = "fourth"
	TierFifth   PrizeTier = "fifth"
	TierSixth   PrizeTier = "sixth"
	TierSeventh PrizeTier = "seventh"
	TierEighth  PrizeTier = "eighth"
)

// AllTiers na ordem de publicação (do especial ao oitavo)
var AllTiers = []PrizeTier{
	TierSpecial, TierFirst, TierSecond, TierThird, TierFourth,
	TierFifth, TierSixth, TierSeventh, TierEighth,
}

func (t PrizeTier) Valid() bool {
	for _, k := range AllTiers {
		if k == t {
			return true
		}
	}
	return false
}

// BetStatus: pending -> won | lost, nunca o contrário
type BetStatus string

const (
	StatusPending BetStatus = "pending"
	StatusWon     BetStatus = "won"
	StatusLost    BetStatus = "lost"
)

func (s BetStatus) Terminal() bool { return s == StatusWon || s == StatusLost }

// BetType é o identificador do tipo de aposta (chave da tabela de regras)
type BetType string

const (
	BetHeadTail     BetType = "dau_duoi"       // 2 dígitos, cabeça/cauda
	BetThreeDigit   BetType = "xiu_chu"        // 3 dígitos, cabeça/cauda
	BetCover        BetType = "bao_lo"         // cobre todos os prêmios
	BetPartialCover BetType = "bao_lo_partial" // bao 7 lô / bao 8 lô
	BetTopTwo       BetType = "nhat_to"        // 2 últimos dígitos do primeiro prêmio
	BetCombination  BetType = "xien"           // xiên 2/3/4
	BetPair         BetType = "da"             // đá
)

// AllBetTypes lista os tipos suportados pelo motor de liquidação
var AllBetTypes = []BetType{
	BetHeadTail, BetThreeDigit, BetCover, BetPartialCover, BetTopTwo, BetCombination, BetPair,
}

// Variantes conhecidas
const (
	VariantHead     = "dau"
	VariantTail     = "duoi"
	VariantHeadTail = "dau_duoi"

	VariantCover2 = "bao_lo_2"
	VariantCover3 = "bao_lo_3"
	VariantCover4 = "bao_lo_4"

	VariantCover7 = "bao_7_lo"
	VariantCover8 = "bao_8_lo"

	VariantXien2 = "xien_2"
	VariantXien3 = "xien_3"
	VariantXien4 = "xien_4"

	VariantDa2 = "da_2"
	VariantDa3 = "da_3"
	VariantDa4 = "da_4"
)

// TransactionType do ledger (append-only)
type TransactionType string

const (
	TxBet     TransactionType = "bet"
	TxWin     TransactionType = "win"
	TxDeposit TransactionType = "deposit"
)
