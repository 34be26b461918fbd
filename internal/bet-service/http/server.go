package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/lottery-settlement-platform/internal/bet-service/dto"
	"github.com/radieske/lottery-settlement-platform/internal/bet-service/placement"
	"github.com/radieske/lottery-settlement-platform/internal/lottery"
	settlementrepo "github.com/radieske/lottery-settlement-platform/internal/settlement/repo"
	walletrepo "github.com/radieske/lottery-settlement-platform/internal/wallet-service/repo"
)

const historyLimit = 100

type BetRepo interface {
	PlaceBets(ctx context.Context, bets []lottery.Bet) ([]lottery.Bet, error)
	ListByUser(ctx context.Context, userID string, status lottery.BetStatus, limit int) ([]lottery.Bet, error)
}

type RuleReader interface {
	GetRule(ctx context.Context, bt lottery.BetType) (*lottery.BetTypeRule, error)
}

type Server struct {
	log   *zap.Logger
	repo  BetRepo
	rules RuleReader
	ws    http.HandlerFunc // opcional
	now   func() time.Time

	OnPlaced   func(betType string, n int) // métricas
	OnRejected func(reason string)
}

// NewServer instancia o servidor HTTP de apostas; ws pode ser nil
func NewServer(log *zap.Logger, repo BetRepo, rules RuleReader, ws http.HandlerFunc) *Server {
	return &Server{log: log, repo: repo, rules: rules, ws: ws, now: time.Now}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/bets", s.placeBet)                   // um bilhete -> uma aposta por província
	r.Get("/v1/users/{userId}/bets", s.listUserBets) // ?status=pending|won|lost
	if s.ws != nil {
		r.Get("/ws", s.ws) // ?userId=...
	}
	return r
}

func (s *Server) placeBet(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceBetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.reject(w, http.StatusBadRequest, "bad_json", "bad json")
		return
	}

	rule, err := s.rules.GetRule(r.Context(), lottery.BetType(req.BetType))
	if err != nil {
		if errors.Is(err, settlementrepo.ErrNotFound) {
			s.reject(w, http.StatusBadRequest, "unknown_bet_type", "unknown betType "+req.BetType)
			return
		}
		s.log.Error("load rule", zap.String("bet_type", req.BetType), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	bets, err := placement.Build(req, rule, s.now())
	if err != nil {
		s.reject(w, http.StatusBadRequest, "invalid", err.Error())
		return
	}

	placed, err := s.repo.PlaceBets(r.Context(), bets)
	if err != nil {
		if errors.Is(err, walletrepo.ErrInsufficientFunds) {
			s.reject(w, http.StatusConflict, "insufficient_funds", err.Error())
			return
		}
		s.log.Error("place bets", zap.String("user_id", req.UserID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if s.OnPlaced != nil {
		s.OnPlaced(string(rule.BetType), len(placed))
	}
	s.log.Info("bets placed",
		zap.String("user_id", req.UserID),
		zap.String("bet_type", string(rule.BetType)),
		zap.Int("provinces", len(placed)),
		zap.Int64("total_stake", placement.TotalStake(placed)),
	)
	writeJSON(w, http.StatusCreated, dto.PlaceBetResponse{Bets: placed, TotalStake: placement.TotalStake(placed)})
}

func (s *Server) listUserBets(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	status := lottery.BetStatus(r.URL.Query().Get("status"))
	if status != "" && status != lottery.StatusPending && !status.Terminal() {
		writeError(w, http.StatusBadRequest, "status must be pending, won or lost")
		return
	}
	bets, err := s.repo.ListByUser(r.Context(), userID, status, historyLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if bets == nil {
		bets = []lottery.Bet{}
	}
	writeJSON(w, http.StatusOK, dto.BetHistoryResponse{UserID: userID, Bets: bets})
}

func (s *Server) reject(w http.ResponseWriter, status int, reason, msg string) {
	if s.OnRejected != nil {
		s.OnRejected(reason)
	}
	writeError(w, status, msg)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
