package dto

import "github.com/radieske/lottery-settlement-platform/internal/lottery"

type PlaceBetResponse struct {
	Bets       []lottery.Bet `json:"bets"` // uma por província, status pending
	TotalStake int64         `json:"totalStake"`
}

type BetHistoryResponse struct {
	UserID string        `json:"userId"`
	Bets   []lottery.Bet `json:"bets"`
}
