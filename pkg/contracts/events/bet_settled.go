package events

import "time"

// Evento emitido pela liquidação para cada aposta que saiu de pending.
// Também vai para o Redis Pub/Sub e chega ao usuário pelo WebSocket.
type BetSettled struct {
	BetID      string    `json:"betId"`
	UserID     string    `json:"userId"`
	ProvinceID string    `json:"provinceId"`
	DrawDate   string    `json:"drawDate"`
	BetType    string    `json:"betType"`
	Status     string    `json:"status"` // "won" | "lost"
	WinAmount  int64     `json:"winAmount"`
	Matches    int       `json:"matches,omitempty"`
	Ts         time.Time `json:"ts"`
}
