package engine

import (
	"errors"
	"fmt"

	"github.com/radieske/lottery-settlement-platform/internal/lottery"
)

// ErrorKind classifica por que uma aposta não pôde ser liquidada
type ErrorKind string

const (
	KindNoResultYet        ErrorKind = "no_result_yet"
	KindUnknownBetType     ErrorKind = "unknown_bet_type"
	KindUnsupportedRegion  ErrorKind = "unsupported_region"
	KindInvalidVariant     ErrorKind = "invalid_variant"
	KindMalformedRuleData  ErrorKind = "malformed_rule_data"
	KindMalformedBet       ErrorKind = "malformed_bet"
	KindMalformedResult    ErrorKind = "malformed_result"
	KindPersistenceFailure ErrorKind = "persistence_failure"
)

// Error é devolvido pelo motor em vez de abortar o lote
type Error struct {
	Kind    ErrorKind
	BetType lottery.BetType
	Field   string
	Msg     string
}

func (e *Error) Error() string {
	s := string(e.Kind)
	if e.BetType != "" {
		s += " [" + string(e.BetType) + "]"
	}
	if e.Field != "" {
		s += " field=" + e.Field
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	return s
}

// KindOf extrai o ErrorKind de um erro do motor
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

func newErr(kind ErrorKind, bt lottery.BetType, field, format string, args ...any) *Error {
	return &Error{Kind: kind, BetType: bt, Field: field, Msg: fmt.Sprintf(format, args...)}
}
