package dto

type DepositRequest struct {
	UserID      string `json:"userId"`
	Amount      int64  `json:"amount"`
	ExternalRef string `json:"external_ref,omitempty"` // referência do pagamento, vai para a descrição
}
