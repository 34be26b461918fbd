package orchestrator

import (
	"errors"
	"fmt"
	"time"

	"github.com/radieske/lottery-settlement-platform/internal/lottery"
)

var (
	ErrInvalidFilter = errors.New("invalid settlement filter")
	ErrRunInProgress = errors.New("settlement run already in progress")
)

const dateLayout = "2006-01-02"

// Filter seleciona o conjunto de apostas pendentes de uma execução.
// DrawnBy limita a varredura a sorteios até a data informada; After continua
// a partir da última aposta examinada na página anterior.
type Filter struct {
	Date           string          `json:"date,omitempty"`
	BetType        lottery.BetType `json:"betType,omitempty"`
	ProvinceID     string          `json:"provinceId,omitempty"`
	ScanAllPending bool            `json:"scanAllPending,omitempty"`
	DrawnBy        string          `json:"drawnBy,omitempty"`
	Limit          int             `json:"limit,omitempty"`
	After          *Cursor         `json:"after,omitempty"`
}

// Cursor aponta para a última aposta de uma página, na ordem (created_at, id)
type Cursor struct {
	CreatedAt time.Time `json:"createdAt"`
	BetID     string    `json:"betId"`
}

// Validate exige data explícita ou varredura de todas as pendentes
func (f Filter) Validate() error {
	if f.Date == "" && !f.ScanAllPending {
		return fmt.Errorf("%w: date or scanAllPending required", ErrInvalidFilter)
	}
	if f.Date != "" {
		if _, err := time.Parse(dateLayout, f.Date); err != nil {
			return fmt.Errorf("%w: date %q", ErrInvalidFilter, f.Date)
		}
	}
	if f.DrawnBy != "" {
		if _, err := time.Parse(dateLayout, f.DrawnBy); err != nil {
			return fmt.Errorf("%w: drawnBy %q", ErrInvalidFilter, f.DrawnBy)
		}
	}
	if f.After != nil && f.After.BetID == "" {
		return fmt.Errorf("%w: cursor without betId", ErrInvalidFilter)
	}
	if f.Limit < 0 {
		return fmt.Errorf("%w: negative limit", ErrInvalidFilter)
	}
	return nil
}

// LockKey identifica o escopo da execução no RunLock
func (f Filter) LockKey() string {
	date := f.Date
	if date == "" {
		date = "all"
	}
	return "settlement:lock:" + date + ":" + orAny(f.ProvinceID) + ":" + orAny(string(f.BetType))
}

func orAny(s string) string {
	if s == "" {
		return "*"
	}
	return s
}
