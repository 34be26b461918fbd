package dto

import "github.com/radieske/lottery-settlement-platform/internal/lottery"

type WalletResponse struct {
	UserID   string `json:"userId"`
	WalletID string `json:"walletId"`
	Balance  int64  `json:"balance"`
}

type TransactionsResponse struct {
	UserID       string                `json:"userId"`
	Transactions []lottery.Transaction `json:"transactions"`
}
