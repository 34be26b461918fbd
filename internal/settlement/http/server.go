package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/radieske/lottery-settlement-platform/internal/lottery"
	"github.com/radieske/lottery-settlement-platform/internal/settlement/orchestrator"
	"github.com/radieske/lottery-settlement-platform/internal/settlement/repo"
)

// ResultStore grava e lê resultados (Postgres)
type ResultStore interface {
	SaveResult(ctx context.Context, r *lottery.DrawResult) (created bool, err error)
	GetResult(ctx context.Context, provinceID, date string) (*lottery.DrawResult, error)
}

// ResultCache é o read-through Redis na frente do ResultStore
type ResultCache interface {
	GetResult(ctx context.Context, provinceID, date string) (*lottery.DrawResult, error)
	Put(ctx context.Context, r *lottery.DrawResult) error
}

type DrawPublisher interface {
	PublishDrawResult(ctx context.Context, r *lottery.DrawResult) error
}

type Settler interface {
	Run(ctx context.Context, f orchestrator.Filter) (orchestrator.Summary, error)
}

type BetReader interface {
	GetBet(ctx context.Context, id string) (lottery.Bet, error)
}

// API expõe a administração da liquidação: publicação de resultados,
// execução manual e consulta de apostas. Cache e Publisher são opcionais.
type API struct {
	Log        *zap.Logger
	Results    ResultStore
	Cache      ResultCache
	Publisher  DrawPublisher
	Settler    Settler
	Bets       BetReader
	RunTimeout time.Duration // 0 = sem limite
}

// PublishResponse informa se o resultado foi criado ou já existia igual
type PublishResponse struct {
	Created bool                `json:"created"`
	Result  *lottery.DrawResult `json:"result"`
}

// Router retorna o roteador com as rotas da settlement-service
func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Post("/v1/results", a.publishResult)              // grava resultado (imutável)
	r.Get("/v1/results/{province}/{date}", a.getResult) // lê via cache
	r.Post("/v1/settlements/run", a.runSettlement)      // execução manual
	r.Get("/v1/bets/{id}", a.getBet)                    // status/prêmio da aposta
	return r
}

func (a *API) publishResult(w http.ResponseWriter, r *http.Request) {
	var res lottery.DrawResult
	if err := json.NewDecoder(r.Body).Decode(&res); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}
	if err := validateResult(&res); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := a.Results.SaveResult(r.Context(), &res)
	if err != nil {
		if errors.Is(err, repo.ErrResultConflict) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		a.Log.Error("save result", zap.String("province_id", res.ProvinceID), zap.String("draw_date", res.Date), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if a.Cache != nil && created {
		if err := a.Cache.Put(r.Context(), &res); err != nil {
			a.Log.Warn("cache result", zap.Error(err))
		}
	}
	if a.Publisher != nil {
		// reenvio idêntico republica o evento: recupera um evento perdido sem esperar a varredura.
		// Liquidar de novo é no-op para apostas que já saíram de pending.
		if err := a.Publisher.PublishDrawResult(r.Context(), &res); err != nil {
			a.Log.Error("publish draw_result", zap.String("province_id", res.ProvinceID), zap.Error(err))
		}
	}
	a.Log.Info("draw result published",
		zap.String("province_id", res.ProvinceID),
		zap.String("draw_date", res.Date),
		zap.String("region", string(res.Region)),
		zap.Bool("created", created),
	)
	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	writeJSON(w, status, PublishResponse{Created: created, Result: &res})
}

func (a *API) getResult(w http.ResponseWriter, r *http.Request) {
	province, date := chi.URLParam(r, "province"), chi.URLParam(r, "date")
	get := a.Results.GetResult
	if a.Cache != nil {
		get = a.Cache.GetResult
	}
	res, err := get(r.Context(), province, date)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "result not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) runSettlement(w http.ResponseWriter, r *http.Request) {
	var f orchestrator.Filter
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeError(w, http.StatusBadRequest, "bad json")
		return
	}

	// a execução não deve morrer se o cliente desconectar
	ctx := context.WithoutCancel(r.Context())
	if a.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.RunTimeout)
		defer cancel()
	}

	sum, err := a.Settler.Run(ctx, f)
	switch {
	case errors.Is(err, orchestrator.ErrInvalidFilter):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orchestrator.ErrRunInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		a.Log.Error("settlement run", zap.Any("filter", f), zap.Error(err))
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeJSON(w, http.StatusOK, sum)
	}
}

func (a *API) getBet(w http.ResponseWriter, r *http.Request) {
	bet, err := a.Bets.GetBet(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			writeError(w, http.StatusNotFound, "bet not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, bet)
}

// validateResult confere chave, região e faixas; preenche DayOfWeek se vier vazio
func validateResult(res *lottery.DrawResult) error {
	if strings.TrimSpace(res.ProvinceID) == "" {
		return errors.New("provinceId required")
	}
	d, err := time.Parse("2006-01-02", res.Date)
	if err != nil {
		return errors.New("date must be YYYY-MM-DD")
	}
	if _, err := lottery.ParseRegion(string(res.Region)); err != nil {
		return err
	}
	if res.DayOfWeek == "" {
		res.DayOfWeek = d.Weekday().String()
	}
	return lottery.ValidatePrizes(res.Prizes)
}

// writeJSON serializa a resposta em JSON e define o status HTTP
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
