package main

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"go.uber.org/zap"

	"github.com/radieske/lottery-settlement-platform/internal/shared/config"
	"github.com/radieske/lottery-settlement-platform/internal/shared/logger"
)

func rp(to string) (*httputil.ReverseProxy, error) {
	u, err := url.Parse(to)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid upstream %q", to)
	}
	return httputil.NewSingleHostReverseProxy(u), nil
}

// routes monta o mux de /api/* para os serviços internos
func routes(walletURL, betURL, settlementURL string) (http.Handler, error) {
	mux := http.NewServeMux()
	for prefix, to := range map[string]string{
		"/api/wallet":     walletURL,     // ex.: /api/wallet/wallet?userId=... -> wallet-service
		"/api/bets":       betURL,        // ex.: /api/bets/v1/bets -> bet-service
		"/api/settlement": settlementURL, // ex.: /api/settlement/v1/results -> settlement-service
	} {
		p, err := rp(to)
		if err != nil {
			return nil, err
		}
		mux.Handle(prefix+"/", http.StripPrefix(prefix, p))
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return withCORS(mux), nil
}

func main() {
	cfg := config.Load()
	log, err := logger.New(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	h, err := routes(cfg.WalletURL, cfg.BetURL, cfg.SettlementURL)
	if err != nil {
		log.Fatal("gateway routes", zap.Error(err))
	}

	addr := ":" + cfg.HTTPPort
	log.Info("api-gateway listening", zap.String("addr", addr),
		zap.String("wallet", cfg.WalletURL), zap.String("bets", cfg.BetURL), zap.String("settlement", cfg.SettlementURL))
	if err := http.ListenAndServe(addr, h); err != nil && err != http.ErrServerClosed {
		log.Fatal("gateway failed", zap.Error(err))
	}
}

func withCORS(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		h.ServeHTTP(w, r)
	})
}
